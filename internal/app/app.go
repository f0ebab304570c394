package app

import (
	"fmt"

	"github.com/dshare/dshare/internal/chunkstore"
	"github.com/dshare/dshare/internal/config"
	"github.com/dshare/dshare/internal/db"
	"github.com/dshare/dshare/internal/repository"
	"github.com/dshare/dshare/internal/service"
	"github.com/dshare/dshare/internal/storage"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg           *config.Config
	DB            *sqlx.DB
	AuthService   *service.AuthService
	EmailService  *service.EmailService
	ShareService  *service.ShareService
	UploadService *service.UploadService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	shareRepository := repository.NewShareRepository(database)
	sessionRepository := repository.NewUploadSessionRepository(database)

	// Storage
	blobStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	chunks, err := chunkstore.New(cfg.ChunkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunk store: %v", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		tokenRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.TokenEmailVerifyExpiry,
	)
	shareService := service.NewShareService(
		shareRepository,
		blobStorage,
		cfg.PublicShareTTL,
		cfg.UserShareTTL,
	)
	uploadService := service.NewUploadService(
		sessionRepository,
		chunks,
		shareService,
		cfg.DefaultChunkSize,
		cfg.PublicMaxUploadBytes,
		cfg.UserMaxUploadBytes,
		cfg.UploadSessionTTL,
	)

	return &App{
		Cfg:           cfg,
		DB:            database,
		AuthService:   authService,
		EmailService:  emailService,
		ShareService:  shareService,
		UploadService: uploadService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
