package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dshare/dshare/internal/model"
	"github.com/dshare/dshare/internal/repository"
	"github.com/dshare/dshare/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrNoSharedFile = errors.New("no file is currently shared")
	ErrEmptyText    = errors.New("text must not be empty")
)

// ShareService manages the share slots: one slot per scope, holding at
// most one artifact (a file or a text snippet). Publishing replaces the
// previous artifact and deletes its blob; artifacts expire lazily on the
// next read or write after their TTL.
type ShareService struct {
	shareRepository repository.ShareRepository
	storage         storage.Storage
	locks           *keyedLocks
	publicTTL       time.Duration
	userTTL         time.Duration
}

func NewShareService(
	shareRepository repository.ShareRepository,
	storage storage.Storage,
	publicTTL time.Duration,
	userTTL time.Duration,
) *ShareService {
	return &ShareService{
		shareRepository: shareRepository,
		storage:         storage,
		locks:           newKeyedLocks(),
		publicTTL:       publicTTL,
		userTTL:         userTTL,
	}
}

func (s *ShareService) ttl(scope model.Scope) time.Duration {
	if scope.IsPublic() {
		return s.publicTTL
	}
	return s.userTTL
}

// Current returns the slot's artifact, expiring it first if it has
// outlived its TTL. An empty slot is returned as a row with no file and
// no text, never as an error.
func (s *ShareService) Current(scope model.Scope) (*model.Share, error) {
	s.locks.Lock(scope.Key())
	defer s.locks.Unlock(scope.Key())

	return s.current(scope)
}

// current assumes the slot lock is held.
func (s *ShareService) current(scope model.Scope) (*model.Share, error) {
	share, err := s.shareRepository.ByScopeKey(scope.Key())
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return s.emptyShare(scope), nil
		}
		return nil, fmt.Errorf("failed to load share: %w", err)
	}

	if share.IsStale(s.ttl(scope), time.Now().UTC()) {
		err = s.clearArtifact(share)
		if err != nil {
			return nil, err
		}
		slog.Info("expired share cleared", "scope", scope.Key())
	}

	return share, nil
}

// PublishFile makes r the slot's artifact, replacing whatever was there.
// The old blob is deleted before the new one is written so a slot never
// references two blobs.
func (s *ShareService) PublishFile(scope model.Scope, filename string, r io.Reader) error {
	s.locks.Lock(scope.Key())
	defer s.locks.Unlock(scope.Key())

	share, err := s.ensureRow(scope)
	if err != nil {
		return err
	}

	s.deleteBlob(share)

	path := s.blobPath(scope, filename)
	err = s.storage.Save(path, r)
	if err != nil {
		return fmt.Errorf("failed to store shared file: %w", err)
	}

	share.FilePath = &path
	share.FileName = &filename
	share.Text = nil
	share.UpdatedAt = time.Now().UTC()

	err = s.shareRepository.Update(share)
	if err != nil {
		return fmt.Errorf("failed to update share: %w", err)
	}

	slog.Info("file shared", "scope", scope.Key(), "filename", filename)
	return nil
}

// PublishText makes text the slot's artifact, replacing whatever was
// there and deleting any previous file blob.
func (s *ShareService) PublishText(scope model.Scope, text string) error {
	if text == "" {
		return ErrEmptyText
	}

	s.locks.Lock(scope.Key())
	defer s.locks.Unlock(scope.Key())

	share, err := s.ensureRow(scope)
	if err != nil {
		return err
	}

	s.deleteBlob(share)

	share.FilePath = nil
	share.FileName = nil
	share.Text = &text
	share.UpdatedAt = time.Now().UTC()

	err = s.shareRepository.Update(share)
	if err != nil {
		return fmt.Errorf("failed to update share: %w", err)
	}

	slog.Info("text shared", "scope", scope.Key(), "length", len(text))
	return nil
}

// Clear empties the slot and deletes its blob. Clearing an already
// empty slot succeeds.
func (s *ShareService) Clear(scope model.Scope) error {
	s.locks.Lock(scope.Key())
	defer s.locks.Unlock(scope.Key())

	share, err := s.shareRepository.ByScopeKey(scope.Key())
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load share: %w", err)
	}

	err = s.clearArtifact(share)
	if err != nil {
		return err
	}

	slog.Info("share cleared", "scope", scope.Key())
	return nil
}

// OpenFile returns a reader over the slot's shared file and its original
// filename. Expired or file-less slots return ErrNoSharedFile.
func (s *ShareService) OpenFile(scope model.Scope) (io.ReadCloser, string, error) {
	s.locks.Lock(scope.Key())
	defer s.locks.Unlock(scope.Key())

	share, err := s.current(scope)
	if err != nil {
		return nil, "", err
	}

	if !share.HasFile() {
		return nil, "", ErrNoSharedFile
	}

	rc, err := s.storage.Open(*share.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open shared file: %w", err)
	}

	return rc, *share.FileName, nil
}

// FileURL returns a directly fetchable URL for the slot's file, or ""
// when the storage backend has none and the server must stream it.
func (s *ShareService) FileURL(scope model.Scope) (string, error) {
	s.locks.Lock(scope.Key())
	defer s.locks.Unlock(scope.Key())

	share, err := s.current(scope)
	if err != nil {
		return "", err
	}

	if !share.HasFile() {
		return "", ErrNoSharedFile
	}

	return s.storage.URL(*share.FilePath), nil
}

func (s *ShareService) emptyShare(scope model.Scope) *model.Share {
	share := &model.Share{ScopeKey: scope.Key()}
	if !scope.IsPublic() {
		userID := scope.UserID
		share.UserID = &userID
	}
	return share
}

// ensureRow loads the slot row, creating it on first use.
func (s *ShareService) ensureRow(scope model.Scope) (*model.Share, error) {
	share, err := s.shareRepository.ByScopeKey(scope.Key())
	if err == nil {
		return share, nil
	}
	if !errors.Is(err, repository.ErrShareNotFound) {
		return nil, fmt.Errorf("failed to load share: %w", err)
	}

	share = s.emptyShare(scope)
	share.UpdatedAt = time.Now().UTC()

	err = s.shareRepository.Create(share)
	if err != nil {
		return nil, fmt.Errorf("failed to create share: %w", err)
	}

	return share, nil
}

// clearArtifact empties the row in place and persists it.
func (s *ShareService) clearArtifact(share *model.Share) error {
	s.deleteBlob(share)

	share.FilePath = nil
	share.FileName = nil
	share.Text = nil
	share.UpdatedAt = time.Now().UTC()

	err := s.shareRepository.Update(share)
	if err != nil {
		return fmt.Errorf("failed to clear share: %w", err)
	}

	return nil
}

// deleteBlob removes the slot's file blob, if any. Best-effort: a
// missing or undeletable blob must not block replacing the artifact.
func (s *ShareService) deleteBlob(share *model.Share) {
	if !share.HasFile() {
		return
	}
	err := s.storage.Delete(*share.FilePath)
	if err != nil {
		slog.Warn("failed to delete old share blob", "error", err, "path", *share.FilePath)
	}
}

// blobPath builds a collision-free storage path that keeps the original
// extension so Content-Type sniffing works on direct URLs.
func (s *ShareService) blobPath(scope model.Scope, filename string) string {
	prefix := "uploads/user"
	if scope.IsPublic() {
		prefix = "uploads/public"
	}
	return fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), filepath.Ext(filename))
}
