package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dshare/dshare/internal/app"
	"github.com/dshare/dshare/internal/config"
	"github.com/dshare/dshare/internal/logger"
	"github.com/dshare/dshare/internal/routes"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	app, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		panic(err)
	}
	defer func() {
		closeErr := app.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	// Sweep abandoned upload sessions in the background
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for range ticker.C {
			err := app.UploadService.CleanupExpired()
			if err != nil {
				slog.Error("upload session sweep failed", "error", err)
			}
		}
	}()

	handler := routes.SetupRoutes(app)
	slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "url", "http://localhost:"+cfg.Port)

	err = http.ListenAndServe(":"+cfg.Port, handler)
	if err != nil {
		slog.Error("server failed", "error", err)
		panic(err)
	}
}
