package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore writes objects below a base directory through an os.Root so
// no reference can resolve outside of it, symlinks included.
type LocalStore struct {
	baseDir string
	root    *os.Root
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory: %w", err)
	}

	if err := os.MkdirAll(absPath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload directory: %w", err)
	}

	return &LocalStore{baseDir: absPath, root: root}, nil
}

func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

func (s *LocalStore) Write(ctx context.Context, farmID uint, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyContent
	}

	if err := s.root.Mkdir(farmNamespace(farmID), 0o750); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("failed to create farm directory: %w", err)
	}

	ref := newRef(farmID, name)
	f, err := s.root.OpenFile(filepath.FromSlash(ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", ref, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		s.root.Remove(filepath.FromSlash(ref))
		return "", fmt.Errorf("failed to write %s: %w", ref, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		s.root.Remove(filepath.FromSlash(ref))
		return "", fmt.Errorf("failed to sync %s: %w", ref, err)
	}
	if err := f.Close(); err != nil {
		s.root.Remove(filepath.FromSlash(ref))
		return "", fmt.Errorf("failed to close %s: %w", ref, err)
	}

	return ref, nil
}

func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	f, err := s.root.Open(filepath.FromSlash(ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	err := s.root.Remove(filepath.FromSlash(ref))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", ref, err)
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, ref string) (bool, error) {
	if err := validateRef(ref); err != nil {
		return false, err
	}
	_, err := s.root.Stat(filepath.FromSlash(ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalStore) Close() error {
	return s.root.Close()
}
