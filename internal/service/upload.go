package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dshare/dshare/internal/chunkstore"
	"github.com/dshare/dshare/internal/model"
	"github.com/dshare/dshare/internal/repository"
)

var (
	ErrFilenameRequired     = errors.New("filename is required")
	ErrInvalidTotalSize     = errors.New("total size must be positive")
	ErrUploadTooLarge       = errors.New("upload exceeds the size limit")
	ErrSessionNotFound      = errors.New("upload session not found")
	ErrNotSessionOwner      = errors.New("upload session belongs to another scope")
	ErrChunkIndexOutOfRange = errors.New("chunk index out of range")
	ErrChunkTooLarge        = errors.New("chunk exceeds the session chunk size")
	ErrSizeMismatch         = errors.New("assembled size does not match the declared total")
)

// IncompleteUploadError reports a completion attempt on a session that
// is still missing chunks. Missing is sorted ascending.
type IncompleteUploadError struct {
	Missing []int
}

func (e *IncompleteUploadError) Error() string {
	return fmt.Sprintf("upload incomplete: %d chunks missing", len(e.Missing))
}

type StartRequest struct {
	Filename    string
	ContentType string
	TotalSize   int64
	ChunkSize   int64
	// SessionID optionally names a previous session to resume.
	SessionID string
}

type StartResult struct {
	SessionID      string
	ChunkSize      int64
	TotalChunks    int
	ReceivedChunks []int
	Resumed        bool
}

type ChunkResult struct {
	ReceivedCount int
	TotalChunks   int
	Complete      bool
}

// UploadService coordinates resumable chunked uploads: it owns the
// session lifecycle, routes chunk bytes to the chunk store, keeps the
// session registry authoritative for which chunks exist, and assembles
// and publishes the final file on completion.
//
// All mutations of one session run under a per-session lock, so
// concurrent chunk uploads to the same session and double-submitted
// completions serialize instead of racing.
type UploadService struct {
	sessionRepository repository.UploadSessionRepository
	chunks            *chunkstore.Store
	shareService      *ShareService
	locks             *keyedLocks
	defaultChunkSize  int64
	publicMaxBytes    int64
	userMaxBytes      int64
	sessionTTL        time.Duration
}

func NewUploadService(
	sessionRepository repository.UploadSessionRepository,
	chunks *chunkstore.Store,
	shareService *ShareService,
	defaultChunkSize int64,
	publicMaxBytes int64,
	userMaxBytes int64,
	sessionTTL time.Duration,
) *UploadService {
	return &UploadService{
		sessionRepository: sessionRepository,
		chunks:            chunks,
		shareService:      shareService,
		locks:             newKeyedLocks(),
		defaultChunkSize:  defaultChunkSize,
		publicMaxBytes:    publicMaxBytes,
		userMaxBytes:      userMaxBytes,
		sessionTTL:        sessionTTL,
	}
}

func (s *UploadService) maxBytes(scope model.Scope) int64 {
	if scope.IsPublic() {
		return s.publicMaxBytes
	}
	return s.userMaxBytes
}

// Start creates a new upload session or resumes an existing one. A
// session is resumed only when the request names it and its scope,
// filename, total size and chunk size all still match; anything else
// gets a fresh session. The registry row decides which chunks count as
// received, regardless of what is on disk.
//
// Expired sessions are swept before the reuse lookup, so a session idle
// past the TTL can never be resumed.
func (s *UploadService) Start(scope model.Scope, req StartRequest) (*StartResult, error) {
	if req.Filename == "" {
		return nil, ErrFilenameRequired
	}
	if req.TotalSize <= 0 {
		return nil, ErrInvalidTotalSize
	}
	if req.TotalSize > s.maxBytes(scope) {
		return nil, ErrUploadTooLarge
	}

	if err := s.CleanupExpired(); err != nil {
		slog.Warn("failed to sweep expired sessions", "error", err)
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.defaultChunkSize
	}

	totalChunks := model.TotalChunksFor(req.TotalSize, chunkSize)

	existing, err := s.sessionRepository.FindReusable(scope, req.Filename, req.TotalSize, chunkSize, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if existing != nil {
		s.locks.Lock(existing.ID)
		defer s.locks.Unlock(existing.ID)

		err = s.sessionRepository.Reconcile(existing, totalChunks)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile session: %w", err)
		}

		slog.Info("upload session resumed",
			"session_id", existing.ID,
			"scope", scope.Key(),
			"received", len(existing.ReceivedChunks),
			"total_chunks", existing.TotalChunks,
		)

		return &StartResult{
			SessionID:      existing.ID,
			ChunkSize:      existing.ChunkSize,
			TotalChunks:    existing.TotalChunks,
			ReceivedChunks: existing.ReceivedChunks,
			Resumed:        true,
		}, nil
	}

	session := &model.UploadSession{
		IsPublic:    scope.IsPublic(),
		Filename:    req.Filename,
		ContentType: req.ContentType,
		TotalSize:   req.TotalSize,
		ChunkSize:   chunkSize,
		TotalChunks: totalChunks,
	}
	if !scope.IsPublic() {
		userID := scope.UserID
		session.UserID = &userID
	}

	err = s.sessionRepository.Create(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("upload session started",
		"session_id", session.ID,
		"scope", scope.Key(),
		"filename", req.Filename,
		"total_size", req.TotalSize,
		"total_chunks", totalChunks,
	)

	return &StartResult{
		SessionID:      session.ID,
		ChunkSize:      chunkSize,
		TotalChunks:    totalChunks,
		ReceivedChunks: []int{},
	}, nil
}

// PutChunk stores one chunk's bytes and records its index in the
// registry. Re-uploading an index overwrites the blob and leaves the
// received set unchanged, so retries are idempotent.
func (s *UploadService) PutChunk(scope model.Scope, sessionID string, index int, r io.Reader) (*ChunkResult, error) {
	session, err := s.ownedSession(scope, sessionID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= session.TotalChunks {
		return nil, ErrChunkIndexOutOfRange
	}

	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	// Cap the copy one byte past the chunk size so an oversized body is
	// detected without buffering it.
	n, err := s.chunks.Put(sessionID, index, io.LimitReader(r, session.ChunkSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to store chunk: %w", err)
	}
	if n > session.ChunkSize {
		return nil, ErrChunkTooLarge
	}

	session, err = s.sessionRepository.RecordChunk(sessionID, index)
	if err != nil {
		return nil, fmt.Errorf("failed to record chunk: %w", err)
	}

	return &ChunkResult{
		ReceivedCount: len(session.ReceivedChunks),
		TotalChunks:   session.TotalChunks,
		Complete:      len(session.ReceivedChunks) == session.TotalChunks,
	}, nil
}

// Complete assembles the session's chunks in index order, verifies the
// total size, publishes the file to the caller's share slot and deletes
// the session. An incomplete session fails with the sorted list of
// missing indices so the client can re-send exactly those.
func (s *UploadService) Complete(scope model.Scope, sessionID string) error {
	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	session, err := s.ownedSession(scope, sessionID)
	if err != nil {
		return err
	}

	missing := session.ReceivedChunks.Missing(session.TotalChunks)
	if len(missing) > 0 {
		return &IncompleteUploadError{Missing: missing}
	}

	tmp, err := s.chunks.CreateTemp(sessionID)
	if err != nil {
		return fmt.Errorf("failed to create assembly file: %w", err)
	}
	defer s.chunks.RemoveTemp(sessionID)

	assembled, err := s.assemble(tmp, session)
	if err != nil {
		tmp.Close()
		return err
	}

	if assembled != session.TotalSize {
		tmp.Close()
		return ErrSizeMismatch
	}

	_, err = tmp.Seek(0, io.SeekStart)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to rewind assembly file: %w", err)
	}

	err = s.shareService.PublishFile(scope, session.Filename, tmp)
	tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to publish upload: %w", err)
	}

	// Publish succeeded; everything below is cleanup and must not fail
	// the request.
	s.chunks.DeleteSession(sessionID)
	err = s.sessionRepository.Delete(sessionID)
	if err != nil {
		slog.Warn("failed to delete completed session", "error", err, "session_id", sessionID)
	}

	slog.Info("upload completed",
		"session_id", sessionID,
		"scope", scope.Key(),
		"filename", session.Filename,
		"size", assembled,
	)

	return nil
}

func (s *UploadService) assemble(w io.Writer, session *model.UploadSession) (int64, error) {
	var total int64
	for i := 0; i < session.TotalChunks; i++ {
		rc, err := s.chunks.Open(session.ID, i)
		if err != nil {
			// The registry says the chunk exists but the blob is gone.
			// Surface it as missing so the client re-sends it.
			return 0, &IncompleteUploadError{Missing: []int{i}}
		}

		n, err := io.Copy(w, rc)
		rc.Close()
		if err != nil {
			return 0, fmt.Errorf("failed to assemble chunk %d: %w", i, err)
		}
		total += n
	}
	return total, nil
}

// CleanupExpired removes sessions idle past the TTL together with their
// chunk blobs. Run periodically by the sweeper.
func (s *UploadService) CleanupExpired() error {
	sessions, err := s.sessionRepository.ListExpired(s.sessionTTL)
	if err != nil {
		return fmt.Errorf("failed to list expired sessions: %w", err)
	}

	for _, session := range sessions {
		s.chunks.DeleteSession(session.ID)
		err = s.sessionRepository.Delete(session.ID)
		if err != nil {
			slog.Warn("failed to delete expired session", "error", err, "session_id", session.ID)
		}
	}

	if len(sessions) > 0 {
		slog.Info("expired upload sessions cleaned", "count", len(sessions))
	}

	return nil
}

func (s *UploadService) ownedSession(scope model.Scope, sessionID string) (*model.UploadSession, error) {
	session, err := s.sessionRepository.ByID(sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if !session.OwnedBy(scope) {
		return nil, ErrNotSessionOwner
	}

	return session, nil
}
