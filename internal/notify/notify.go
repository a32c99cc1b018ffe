// Package notify publishes ingestion events to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const EventImageClassified = "image.classified"

type Event struct {
	Type       string    `json:"type"`
	FarmID     uint      `json:"farm_id"`
	ImageID    uint      `json:"image_id"`
	Anomalous  bool      `json:"anomalous"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	UploadedBy string    `json:"uploaded_by"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier is told about every committed ingestion.
type Notifier interface {
	ImageClassified(ctx context.Context, event Event) error
}

type nop struct{}

func NewNop() Notifier { return nop{} }

func (nop) ImageClassified(ctx context.Context, event Event) error { return nil }

// publisher is the part of mqtt.Client the notifier needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type MQTTNotifier struct {
	client      publisher
	disconnect  func()
	topicPrefix string
	timeout     time.Duration
}

func NewMQTT(broker, clientID, topicPrefix string) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, err)
	}

	return &MQTTNotifier{
		client:      client,
		disconnect:  func() { client.Disconnect(250) },
		topicPrefix: topicPrefix,
		timeout:     5 * time.Second,
	}, nil
}

func (n *MQTTNotifier) Topic(farmID uint) string {
	return fmt.Sprintf("%s/farms/%d/images", n.topicPrefix, farmID)
}

func (n *MQTTNotifier) ImageClassified(ctx context.Context, event Event) error {
	event.Type = EventImageClassified
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	token := n.client.Publish(n.Topic(event.FarmID), 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(n.timeout):
		return errors.New("timed out publishing MQTT event")
	}
	return token.Error()
}

func (n *MQTTNotifier) Close() {
	if n.disconnect != nil {
		n.disconnect()
	}
}
