// Package storage keeps uploaded image bytes on durable storage. Objects are
// addressed by references of the form "farm-<id>/<uuid>_<sanitized name>".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("stored file not found")
	ErrInvalidRef   = errors.New("invalid storage reference")
	ErrEmptyContent = errors.New("empty content")
)

const maxNameLength = 128

// FileStore is the durable file storage used by the ingestion pipeline.
type FileStore interface {
	// Write stores data under the farm's namespace and returns the reference
	// the object can later be opened or deleted with.
	Write(ctx context.Context, farmID uint, name string, data []byte) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, ref string) error
	Exists(ctx context.Context, ref string) (bool, error)
	Close() error
}

// SanitizeFilename reduces an uploaded file name to its final path element
// and keeps only letters, digits, '.', '-' and '_'.
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}

	clean := strings.TrimLeft(b.String(), "._")
	if runes := []rune(clean); len(runes) > maxNameLength {
		clean = string(runes[len(runes)-maxNameLength:])
	}
	if clean == "" {
		return "upload"
	}
	return clean
}

func farmNamespace(farmID uint) string {
	return fmt.Sprintf("farm-%d", farmID)
}

func newRef(farmID uint, name string) string {
	return path.Join(farmNamespace(farmID), uuid.NewString()+"_"+SanitizeFilename(name))
}

// validateRef rejects references that could leave the farm namespace.
func validateRef(ref string) error {
	if ref == "" || strings.HasPrefix(ref, "/") || strings.Contains(ref, `\`) {
		return ErrInvalidRef
	}
	if path.Clean(ref) != ref {
		return ErrInvalidRef
	}
	parts := strings.Split(ref, "/")
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "farm-") || parts[1] == "" || parts[1] == ".." {
		return ErrInvalidRef
	}
	return nil
}
