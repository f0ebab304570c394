package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dshare/dshare/internal/chunkstore"
	"github.com/dshare/dshare/internal/db"
	"github.com/dshare/dshare/internal/repository"
	"github.com/dshare/dshare/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// testEnv wires real repositories, a real chunk store and local disk
// storage against a temp sqlite database.
type testEnv struct {
	db       *sqlx.DB
	users    repository.UserRepository
	tokens   repository.TokenRepository
	shares   repository.ShareRepository
	sessions repository.UploadSessionRepository
	chunks   *chunkstore.Store
	storage  storage.Storage
	auth     *AuthService
	share    *ShareService
	upload   *UploadService
}

const (
	testChunkSize  = int64(10)
	testMaxBytes   = int64(1000)
	testSessionTTL = 24 * time.Hour
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()

	database, err := db.Init("sqlite", filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	err = db.RunMigrations(database.DB, "sqlite")
	require.NoError(t, err)

	chunks, err := chunkstore.New(filepath.Join(dir, "chunks"))
	require.NoError(t, err)

	blobStorage, err := storage.NewLocalStorage(filepath.Join(dir, "storage"))
	require.NoError(t, err)

	env := &testEnv{
		db:       database,
		users:    repository.NewUserRepository(database),
		tokens:   repository.NewTokenRepository(database),
		shares:   repository.NewShareRepository(database),
		sessions: repository.NewUploadSessionRepository(database),
		chunks:   chunks,
		storage:  blobStorage,
	}

	emailService := NewEmailService("", "noreply@test.local", "http://localhost:8090", "DShare", true)
	env.auth = NewAuthService(
		env.users,
		env.tokens,
		emailService,
		"test-secret",
		false,
		time.Hour,
		time.Hour,
	)
	env.share = NewShareService(env.shares, env.storage, time.Hour, 2*time.Hour)
	env.upload = NewUploadService(
		env.sessions,
		env.chunks,
		env.share,
		testChunkSize,
		testMaxBytes,
		testMaxBytes,
		testSessionTTL,
	)

	return env
}

// verificationToken digs the latest verification token for an email out
// of the database, standing in for reading the email.
func (env *testEnv) verificationToken(t *testing.T, email string) string {
	t.Helper()

	var token string
	err := env.db.Get(&token, `
		SELECT t.token FROM tokens t
		JOIN users u ON u.id = t.user_id
		WHERE u.email = $1 AND t.type = 'email_verify' AND t.used_at IS NULL
		ORDER BY t.created_at DESC LIMIT 1
	`, email)
	require.NoError(t, err)
	return token
}
