package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalStorage keeps blobs under a base directory on the local filesystem.
type LocalStorage struct {
	baseDir string
}

func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	slog.Info("initializing local storage", "dir", baseDir)
	return &LocalStorage{baseDir: baseDir}, nil
}

func (s *LocalStorage) fullPath(path string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(path))
}

// Save writes the blob to a temp file in the target directory and renames
// it into place, so readers never observe a partially written blob.
func (s *LocalStorage) Save(path string, r io.Reader) error {
	dst := s.fullPath(path)
	err := os.MkdirAll(filepath.Dir(dst), 0755)
	if err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".save-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	_, err = io.Copy(tmp, r)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write blob: %w", err)
	}

	err = os.Rename(tmp.Name(), dst)
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to move blob into place: %w", err)
	}

	return nil
}

func (s *LocalStorage) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(s.fullPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(path string) error {
	err := os.Remove(s.fullPath(path))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (s *LocalStorage) Exists(path string) (bool, error) {
	_, err := os.Stat(s.fullPath(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// URL returns "" because local blobs are not directly addressable;
// the download handler streams them via Open instead.
func (s *LocalStorage) URL(path string) string {
	return ""
}
