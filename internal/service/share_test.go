package service

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dshare/dshare/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptySlot(t *testing.T) {
	env := newTestEnv(t)

	share, err := env.share.Current(model.PublicScope())
	require.NoError(t, err)
	assert.False(t, share.HasFile())
	assert.False(t, share.HasText())

	_, _, err = env.share.OpenFile(model.PublicScope())
	assert.ErrorIs(t, err, ErrNoSharedFile)
}

func TestPublishText(t *testing.T) {
	env := newTestEnv(t)
	scope := model.PublicScope()

	require.NoError(t, env.share.PublishText(scope, "hello world"))

	share, err := env.share.Current(scope)
	require.NoError(t, err)
	require.True(t, share.HasText())
	assert.Equal(t, "hello world", *share.Text)
	assert.False(t, share.HasFile())

	assert.ErrorIs(t, env.share.PublishText(scope, ""), ErrEmptyText)
}

func TestPublishFileReplacesText(t *testing.T) {
	env := newTestEnv(t)
	scope := model.PublicScope()

	require.NoError(t, env.share.PublishText(scope, "soon gone"))
	require.NoError(t, env.share.PublishFile(scope, "doc.txt", strings.NewReader("file content")))

	share, err := env.share.Current(scope)
	require.NoError(t, err)
	assert.True(t, share.HasFile())
	assert.False(t, share.HasText())

	rc, filename, err := env.share.OpenFile(scope)
	require.NoError(t, err)
	defer rc.Close()

	assert.Equal(t, "doc.txt", filename)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "file content", string(got))
}

func TestPublishFileDeletesOldBlob(t *testing.T) {
	env := newTestEnv(t)
	scope := model.PublicScope()

	require.NoError(t, env.share.PublishFile(scope, "old.txt", strings.NewReader("old")))

	share, err := env.share.Current(scope)
	require.NoError(t, err)
	oldPath := *share.FilePath

	require.NoError(t, env.share.PublishFile(scope, "new.txt", strings.NewReader("new")))

	exists, err := env.storage.Exists(oldPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTextReplacesFile(t *testing.T) {
	env := newTestEnv(t)
	scope := model.PublicScope()

	require.NoError(t, env.share.PublishFile(scope, "doc.txt", strings.NewReader("bytes")))

	share, err := env.share.Current(scope)
	require.NoError(t, err)
	blobPath := *share.FilePath

	require.NoError(t, env.share.PublishText(scope, "text wins"))

	share, err = env.share.Current(scope)
	require.NoError(t, err)
	assert.True(t, share.HasText())
	assert.False(t, share.HasFile())

	exists, err := env.storage.Exists(blobPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClear(t *testing.T) {
	env := newTestEnv(t)
	scope := model.PublicScope()

	require.NoError(t, env.share.PublishFile(scope, "doc.txt", strings.NewReader("bytes")))

	share, err := env.share.Current(scope)
	require.NoError(t, err)
	blobPath := *share.FilePath

	require.NoError(t, env.share.Clear(scope))

	share, err = env.share.Current(scope)
	require.NoError(t, err)
	assert.False(t, share.HasFile())
	assert.False(t, share.HasText())

	exists, err := env.storage.Exists(blobPath)
	require.NoError(t, err)
	assert.False(t, exists)

	// Clearing an empty slot succeeds
	assert.NoError(t, env.share.Clear(scope))
}

func TestLazyExpiry(t *testing.T) {
	env := newTestEnv(t)
	scope := model.PublicScope() // public TTL is 1h in the test env

	require.NoError(t, env.share.PublishText(scope, "short lived"))

	// Age the artifact past the TTL
	stale := time.Now().UTC().Add(-2 * time.Hour)
	_, err := env.db.Exec(`UPDATE shares SET updated_at = $1 WHERE scope_key = $2`, stale, scope.Key())
	require.NoError(t, err)

	share, err := env.share.Current(scope)
	require.NoError(t, err)
	assert.False(t, share.HasText())
}

func TestScopesAreIndependent(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.share.PublishText(model.PublicScope(), "public note"))
	require.NoError(t, env.share.PublishText(model.UserScope("u1"), "private note"))

	pub, err := env.share.Current(model.PublicScope())
	require.NoError(t, err)
	assert.Equal(t, "public note", *pub.Text)

	private, err := env.share.Current(model.UserScope("u1"))
	require.NoError(t, err)
	assert.Equal(t, "private note", *private.Text)

	require.NoError(t, env.share.Clear(model.PublicScope()))

	private, err = env.share.Current(model.UserScope("u1"))
	require.NoError(t, err)
	assert.True(t, private.HasText())
}
