package repository

import (
	"testing"
	"time"

	"github.com/dshare/dshare/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, repo UploadSessionRepository) *model.UploadSession {
	t.Helper()

	session := &model.UploadSession{
		IsPublic:    true,
		Filename:    "notes.txt",
		ContentType: "text/plain",
		TotalSize:   26,
		ChunkSize:   10,
		TotalChunks: 3,
	}
	require.NoError(t, repo.Create(session))
	return session
}

func TestSessionCreateAndByID(t *testing.T) {
	repo := NewUploadSessionRepository(testDB(t))

	created := newTestSession(t, repo)
	require.NotEmpty(t, created.ID)

	got, err := repo.ByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "notes.txt", got.Filename)
	assert.Equal(t, 3, got.TotalChunks)
	assert.Empty(t, got.ReceivedChunks)
	assert.True(t, got.IsPublic)
}

func TestSessionByIDNotFound(t *testing.T) {
	repo := NewUploadSessionRepository(testDB(t))

	_, err := repo.ByID("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRecordChunkIsIdempotent(t *testing.T) {
	repo := NewUploadSessionRepository(testDB(t))
	session := newTestSession(t, repo)

	s, err := repo.RecordChunk(session.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ChunkList{1}, s.ReceivedChunks)

	s, err = repo.RecordChunk(session.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ChunkList{1}, s.ReceivedChunks)

	s, err = repo.RecordChunk(session.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, model.ChunkList{0, 1}, s.ReceivedChunks)

	// The set survives a reload
	got, err := repo.ByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChunkList{0, 1}, got.ReceivedChunks)
}

func TestFindReusable(t *testing.T) {
	repo := NewUploadSessionRepository(testDB(t))
	session := newTestSession(t, repo)

	t.Run("match", func(t *testing.T) {
		got, err := repo.FindReusable(model.PublicScope(), "notes.txt", 26, 10, session.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, session.ID, got.ID)
	})

	t.Run("no id", func(t *testing.T) {
		got, err := repo.FindReusable(model.PublicScope(), "notes.txt", 26, 10, "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown id", func(t *testing.T) {
		got, err := repo.FindReusable(model.PublicScope(), "notes.txt", 26, 10, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("different filename", func(t *testing.T) {
		got, err := repo.FindReusable(model.PublicScope(), "other.txt", 26, 10, session.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("different chunk size", func(t *testing.T) {
		got, err := repo.FindReusable(model.PublicScope(), "notes.txt", 26, 5, session.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("wrong scope", func(t *testing.T) {
		got, err := repo.FindReusable(model.UserScope("u1"), "notes.txt", 26, 10, session.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestReconcileClampsReceived(t *testing.T) {
	repo := NewUploadSessionRepository(testDB(t))
	session := newTestSession(t, repo)

	for _, i := range []int{0, 1, 2} {
		_, err := repo.RecordChunk(session.ID, i)
		require.NoError(t, err)
	}

	session, err := repo.ByID(session.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Reconcile(session, 2))
	assert.Equal(t, 2, session.TotalChunks)
	assert.Equal(t, model.ChunkList{0, 1}, session.ReceivedChunks)

	got, err := repo.ByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalChunks)
	assert.Equal(t, model.ChunkList{0, 1}, got.ReceivedChunks)
}

func TestExpiredSessions(t *testing.T) {
	database := testDB(t)
	repo := NewUploadSessionRepository(database)

	old := newTestSession(t, repo)
	fresh := newTestSession(t, repo)

	// Age the first session past the TTL
	stale := time.Now().UTC().Add(-48 * time.Hour)
	_, err := database.Exec(`UPDATE upload_sessions SET updated_at = $1 WHERE id = $2`, stale, old.ID)
	require.NoError(t, err)

	expired, err := repo.ListExpired(24 * time.Hour)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old.ID, expired[0].ID)

	require.NoError(t, repo.DeleteExpired(24*time.Hour))

	_, err = repo.ByID(old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = repo.ByID(fresh.ID)
	assert.NoError(t, err)
}

func TestSessionDelete(t *testing.T) {
	repo := NewUploadSessionRepository(testDB(t))
	session := newTestSession(t, repo)

	require.NoError(t, repo.Delete(session.ID))

	_, err := repo.ByID(session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting a missing session is a no-op
	assert.NoError(t, repo.Delete(session.ID))
}
