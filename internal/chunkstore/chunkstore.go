// Package chunkstore holds the on-disk chunk blobs of in-progress
// resumable uploads: one directory per session containing zero-padded
// part files, plus one temporary assembly file per completion attempt.
package chunkstore

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type Store struct {
	root string
}

func New(root string) (*Store, error) {
	err := os.MkdirAll(root, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) sessionDir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

func (s *Store) chunkPath(sessionID string, index int) string {
	return filepath.Join(s.sessionDir(sessionID), fmt.Sprintf("%06d.part", index))
}

// Put writes the chunk blob for (sessionID, index), creating the session
// directory if absent. The bytes go to a temp file first and are fsynced
// and renamed into place, so a crashed request leaves the chunk either
// absent or fully written. Re-uploading an index overwrites the blob.
func (s *Store) Put(sessionID string, index int, r io.Reader) (int64, error) {
	dir := s.sessionDir(sessionID)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return 0, fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%06d-*", index))
	if err != nil {
		return 0, fmt.Errorf("failed to create temp chunk file: %w", err)
	}

	n, err := io.Copy(tmp, r)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to write chunk: %w", err)
	}

	err = os.Rename(tmp.Name(), s.chunkPath(sessionID, index))
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to move chunk into place: %w", err)
	}

	return n, nil
}

func (s *Store) Exists(sessionID string, index int) bool {
	_, err := os.Stat(s.chunkPath(sessionID, index))
	return err == nil
}

func (s *Store) Open(sessionID string, index int) (io.ReadCloser, error) {
	f, err := os.Open(s.chunkPath(sessionID, index))
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk %d: %w", index, err)
	}
	return f, nil
}

// DeleteSession removes the whole per-session directory. Best-effort:
// failures are logged, never surfaced, so cleanup cannot block a
// user-facing response.
func (s *Store) DeleteSession(sessionID string) {
	err := os.RemoveAll(s.sessionDir(sessionID))
	if err != nil {
		slog.Error("failed to delete session chunks", "error", err, "session_id", sessionID)
	}
}

// CreateTemp creates the assembly file for a completion attempt.
// The caller must remove it with RemoveTemp in all outcomes.
func (s *Store) CreateTemp(sessionID string) (*os.File, error) {
	f, err := os.Create(s.tempPath(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to create assembly file: %w", err)
	}
	return f, nil
}

func (s *Store) RemoveTemp(sessionID string) {
	err := os.Remove(s.tempPath(sessionID))
	if err != nil && !os.IsNotExist(err) {
		slog.Error("failed to remove assembly file", "error", err, "session_id", sessionID)
	}
}

func (s *Store) tempPath(sessionID string) string {
	return filepath.Join(s.root, sessionID+".tmp")
}
