// Package classifier adapts the external anomaly-detection model behind a
// single synchronous call.
package classifier

import (
	"context"
	"io"
)

// Classifier decides whether a stored image shows a crop anomaly.
type Classifier interface {
	Classify(ctx context.Context, ref string) (anomalous bool, err error)
}

// Func lets an ordinary function satisfy Classifier.
type Func func(ctx context.Context, ref string) (bool, error)

func (f Func) Classify(ctx context.Context, ref string) (bool, error) {
	return f(ctx, ref)
}

// Opener reads stored images back by reference.
type Opener interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

type static struct {
	anomalous bool
}

// NewStatic returns a classifier that always answers with the same verdict.
// It stands in for the model in test mode and local development.
func NewStatic(anomalous bool) Classifier {
	return &static{anomalous: anomalous}
}

func (s *static) Classify(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.anomalous, nil
}
