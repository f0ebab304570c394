package routes

import (
	"net/http"

	"github.com/dshare/dshare/internal/app"
	"github.com/dshare/dshare/internal/handler"
	"github.com/dshare/dshare/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler(app.Cfg.AppName)
	auth := handler.NewAuthHandler(app.AuthService)
	share := handler.NewShareHandler(app.ShareService, app.Cfg.MaxUploadBytes)
	upload := handler.NewUploadHandler(app.UploadService)

	// Per-group rate limiters, all keyed by client IP
	registerLimit := middleware.RateLimit(middleware.NewRateLimiter(app.Cfg.RegisterLimit, app.Cfg.RateLimitWindow))
	loginLimit := middleware.RateLimit(middleware.NewRateLimiter(app.Cfg.LoginLimit, app.Cfg.RateLimitWindow))
	statusLimit := middleware.RateLimit(middleware.NewRateLimiter(app.Cfg.EmailStatusLimit, app.Cfg.RateLimitWindow))
	shareLimit := middleware.RateLimit(middleware.NewRateLimiter(app.Cfg.PublicShareLimit, app.Cfg.RateLimitWindow))

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", home.Index)

	// Auth
	mux.HandleFunc("POST /auth/register", registerLimit(auth.Register))
	mux.HandleFunc("GET /auth/verify/{token}", auth.VerifyEmail)
	mux.HandleFunc("POST /auth/login", loginLimit(auth.Login))
	mux.HandleFunc("POST /auth/logout", auth.Logout)
	mux.HandleFunc("POST /auth/email-status", statusLimit(auth.EmailStatus))
	mux.HandleFunc("GET /auth/me", middleware.RequireAuth(auth.Me))
	mux.HandleFunc("POST /auth/credentials", middleware.RequireAuth(auth.SetCredentials))

	// Share slot (public when anonymous, the user's own when logged in)
	mux.HandleFunc("GET /share", share.Current)
	mux.HandleFunc("POST /share/text", shareLimit(share.PublishText))
	mux.HandleFunc("POST /share/file", shareLimit(share.PublishFile))
	mux.HandleFunc("GET /share/download", share.Download)
	mux.HandleFunc("DELETE /share", shareLimit(share.Clear))

	// Resumable chunked uploads
	mux.HandleFunc("POST /upload/start", shareLimit(upload.Start))
	mux.HandleFunc("PUT /upload/{id}/chunk/{index}", upload.PutChunk)
	mux.HandleFunc("POST /upload/{id}/complete", upload.Complete)

	// 404
	mux.HandleFunc("/{path...}", home.NotFound)

	// Global middleware - executed in order (top to bottom)
	h := middleware.Chain(
		mux,
		middleware.SecurityHeaders,
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService),
	)

	return h
}
