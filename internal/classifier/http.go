package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrUnknownLabel = errors.New("model returned an unknown label")

const maxResponseBytes = 1 << 20

// HTTPClassifier posts the raw image bytes to a model service and reads back
// either {"anomalous": bool} or {"label": "..."}.
type HTTPClassifier struct {
	endpoint   string
	opener     Opener
	httpClient *http.Client
}

type HTTPOption func(*HTTPClassifier)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPClassifier) {
		c.httpClient = client
	}
}

func NewHTTP(endpoint string, opener Opener, timeout time.Duration, opts ...HTTPOption) *HTTPClassifier {
	c := &HTTPClassifier{
		endpoint:   strings.TrimRight(endpoint, "/"),
		opener:     opener,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type modelResponse struct {
	Anomalous *bool  `json:"anomalous"`
	Label     string `json:"label"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, ref string) (bool, error) {
	rc, err := c.opener.Open(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("failed to open stored image: %w", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return false, fmt.Errorf("failed to read stored image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", http.DetectContentType(data))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, fmt.Errorf("failed to read model response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	var out modelResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("failed to decode model response: %w", err)
	}

	if out.Anomalous != nil {
		return *out.Anomalous, nil
	}
	return parseLabel(out.Label)
}

func parseLabel(label string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "anomalous", "anomaly", "anômala", "anomala":
		return true, nil
	case "healthy", "normal", "saudável", "saudavel":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
}
