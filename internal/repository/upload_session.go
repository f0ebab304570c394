package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/dshare/dshare/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrSessionNotFound = errors.New("upload session not found")
)

// UploadSessionRepository is the durable registry of in-progress
// resumable uploads. It is authoritative for which chunk indices have
// been received; the chunk store only holds the bytes.
//
// Callers must serialize mutations of a single session (the upload
// coordinator holds a per-session lock around RecordChunk and the
// completion critical section).
type UploadSessionRepository interface {
	Create(session *model.UploadSession) error
	ByID(id string) (*model.UploadSession, error)
	// FindReusable returns the session only when existingID resolves and
	// its scope, filename, total size and chunk size all match the
	// request. Anything else means "create a fresh session".
	FindReusable(scope model.Scope, filename string, totalSize, chunkSize int64, existingID string) (*model.UploadSession, error)
	// Reconcile recomputes totalChunks on resume and drops received
	// indices that fell out of range.
	Reconcile(session *model.UploadSession, totalChunks int) error
	// RecordChunk adds index to the received set, idempotently, against a
	// fresh read of the row, and returns the updated session.
	RecordChunk(id string, index int) (*model.UploadSession, error)
	Delete(id string) error
	ListExpired(ttl time.Duration) ([]*model.UploadSession, error)
	DeleteExpired(ttl time.Duration) error
}

type uploadSessionRepository struct {
	db *sqlx.DB
}

func NewUploadSessionRepository(db *sqlx.DB) UploadSessionRepository {
	return &uploadSessionRepository{db: db}
}

func (r *uploadSessionRepository) Create(session *model.UploadSession) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.ReceivedChunks == nil {
		session.ReceivedChunks = model.ChunkList{}
	}

	query := `
		INSERT INTO upload_sessions
			(id, user_id, is_public, filename, content_type, total_size, chunk_size, total_chunks, received_chunks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(query,
		session.ID,
		session.UserID,
		session.IsPublic,
		session.Filename,
		session.ContentType,
		session.TotalSize,
		session.ChunkSize,
		session.TotalChunks,
		session.ReceivedChunks,
		session.CreatedAt,
		session.UpdatedAt,
	)
	return err
}

func (r *uploadSessionRepository) ByID(id string) (*model.UploadSession, error) {
	session := &model.UploadSession{}
	query := `SELECT * FROM upload_sessions WHERE id = $1`

	err := r.db.Get(session, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}

	return session, err
}

func (r *uploadSessionRepository) FindReusable(scope model.Scope, filename string, totalSize, chunkSize int64, existingID string) (*model.UploadSession, error) {
	if existingID == "" {
		return nil, nil
	}

	session, err := r.ByID(existingID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if !session.Matches(scope, filename, totalSize, chunkSize) {
		return nil, nil
	}

	return session, nil
}

func (r *uploadSessionRepository) Reconcile(session *model.UploadSession, totalChunks int) error {
	session.TotalChunks = totalChunks
	session.ReceivedChunks = session.ReceivedChunks.Clamp(totalChunks)
	session.UpdatedAt = time.Now().UTC()

	query := `UPDATE upload_sessions SET total_chunks = $1, received_chunks = $2, updated_at = $3 WHERE id = $4`
	_, err := r.db.Exec(query, session.TotalChunks, session.ReceivedChunks, session.UpdatedAt, session.ID)
	return err
}

func (r *uploadSessionRepository) RecordChunk(id string, index int) (*model.UploadSession, error) {
	// Read-modify-write against the current row so concurrent uploads to
	// other sessions never clobber this one. Same-session calls are
	// serialized by the coordinator's per-session lock.
	session, err := r.ByID(id)
	if err != nil {
		return nil, err
	}

	session.ReceivedChunks = session.ReceivedChunks.Add(index)
	session.UpdatedAt = time.Now().UTC()

	query := `UPDATE upload_sessions SET received_chunks = $1, updated_at = $2 WHERE id = $3`
	_, err = r.db.Exec(query, session.ReceivedChunks, session.UpdatedAt, session.ID)
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *uploadSessionRepository) Delete(id string) error {
	query := `DELETE FROM upload_sessions WHERE id = $1`
	_, err := r.db.Exec(query, id)
	return err
}

func (r *uploadSessionRepository) ListExpired(ttl time.Duration) ([]*model.UploadSession, error) {
	var sessions []*model.UploadSession
	cutoff := time.Now().UTC().Add(-ttl)

	query := `SELECT * FROM upload_sessions WHERE updated_at < $1`
	err := r.db.Select(&sessions, query, cutoff)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *uploadSessionRepository) DeleteExpired(ttl time.Duration) error {
	cutoff := time.Now().UTC().Add(-ttl)

	query := `DELETE FROM upload_sessions WHERE updated_at < $1`
	_, err := r.db.Exec(query, cutoff)
	return err
}
