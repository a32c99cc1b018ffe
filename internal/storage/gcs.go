package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore keeps objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

// NewGCSStore connects with the service account key at credentialsFile, or
// with application default credentials when it is empty.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("GCS bucket name is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) object(ref string) *gcs.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(ref)
}

func (s *GCSStore) Write(ctx context.Context, farmID uint, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyContent
	}

	ref := newRef(farmID, name)
	writer := s.object(ref).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = http.DetectContentType(data)

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to write GCS object %s: %w", ref, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for %s: %w", ref, err)
	}
	return ref, nil
}

func (s *GCSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	reader, err := s.object(ref).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open GCS object %s: %w", ref, err)
	}
	return reader, nil
}

func (s *GCSStore) Delete(ctx context.Context, ref string) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	err := s.object(ref).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %s: %w", ref, err)
	}
	return nil
}

func (s *GCSStore) Exists(ctx context.Context, ref string) (bool, error) {
	if err := validateRef(ref); err != nil {
		return false, err
	}
	_, err := s.object(ref).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
