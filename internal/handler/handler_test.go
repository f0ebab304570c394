package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshare/dshare/internal/app"
	"github.com/dshare/dshare/internal/chunkstore"
	"github.com/dshare/dshare/internal/config"
	"github.com/dshare/dshare/internal/db"
	"github.com/dshare/dshare/internal/repository"
	"github.com/dshare/dshare/internal/routes"
	"github.com/dshare/dshare/internal/service"
	"github.com/dshare/dshare/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// testServer is the full HTTP stack plus a handle on its database for
// fishing out verification tokens.
type testServer struct {
	*httptest.Server
	db *sqlx.DB
}

// newTestServer wires the full HTTP stack against a temp database and
// temp directories, mirroring app.New without reading the environment.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		AppName:                "DShare",
		AppEnv:                 "development",
		AppURL:                 "http://localhost:8090",
		JWTSecret:              "test-secret",
		JWTExpiry:              time.Hour,
		TokenEmailVerifyExpiry: time.Hour,
		DefaultChunkSize:       10,
		PublicMaxUploadBytes:   1000,
		UserMaxUploadBytes:     1000,
		UploadSessionTTL:       24 * time.Hour,
		PublicShareTTL:         time.Hour,
		UserShareTTL:           2 * time.Hour,
		RateLimitWindow:        time.Minute,
		RegisterLimit:          100,
		LoginLimit:             100,
		EmailStatusLimit:       100,
		PublicShareLimit:       100,
	}

	database, err := db.Init("sqlite", filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))

	chunks, err := chunkstore.New(filepath.Join(dir, "chunks"))
	require.NoError(t, err)
	blobStorage, err := storage.NewLocalStorage(filepath.Join(dir, "storage"))
	require.NoError(t, err)

	emailService := service.NewEmailService("", "noreply@test.local", cfg.AppURL, cfg.AppName, true)
	authService := service.NewAuthService(
		repository.NewUserRepository(database),
		repository.NewTokenRepository(database),
		emailService,
		cfg.JWTSecret,
		false,
		cfg.JWTExpiry,
		cfg.TokenEmailVerifyExpiry,
	)
	shareService := service.NewShareService(
		repository.NewShareRepository(database),
		blobStorage,
		cfg.PublicShareTTL,
		cfg.UserShareTTL,
	)
	uploadService := service.NewUploadService(
		repository.NewUploadSessionRepository(database),
		chunks,
		shareService,
		cfg.DefaultChunkSize,
		cfg.PublicMaxUploadBytes,
		cfg.UserMaxUploadBytes,
		cfg.UploadSessionTTL,
	)

	a := &app.App{
		Cfg:           cfg,
		DB:            database,
		AuthService:   authService,
		EmailService:  emailService,
		ShareService:  shareService,
		UploadService: uploadService,
	}

	srv := httptest.NewServer(routes.SetupRoutes(a))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, db: database}
}

// verificationTokenFor digs the latest verification token for an email
// out of the database, standing in for reading the email.
func verificationTokenFor(t *testing.T, srv *testServer, email string) string {
	t.Helper()

	var token string
	err := srv.db.Get(&token, `
		SELECT t.token FROM tokens t
		JOIN users u ON u.id = t.user_id
		WHERE u.email = $1 AND t.type = 'email_verify' AND t.used_at IS NULL
		ORDER BY t.created_at DESC LIMIT 1
	`, email)
	require.NoError(t, err)
	return token
}

func jsonReader(t *testing.T, payload map[string]any) io.Reader {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func postJSON(t *testing.T, srv *testServer, path string, payload map[string]any) *http.Response {
	t.Helper()

	resp, err := http.Post(srv.URL+path, "application/json", jsonReader(t, payload))
	require.NoError(t, err)
	return resp
}

func putChunk(t *testing.T, srv *testServer, sessionID string, index string, data []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/upload/"+sessionID+"/chunk/"+index, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}
