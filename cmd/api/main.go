package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/api/option"

	"github.com/praxis/backend/internal/api"
	"github.com/praxis/backend/internal/auth"
	"github.com/praxis/backend/internal/config"
	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/internal/fcm"
	"github.com/praxis/backend/internal/middleware"
	"github.com/praxis/backend/internal/realtime"
	"github.com/praxis/backend/internal/repository"
	"github.com/praxis/backend/internal/skills"
	"github.com/praxis/backend/internal/storage"
	"github.com/praxis/backend/internal/store"
)

const version = "1.0.0"

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Praxis API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Firebase holds identities, and optionally the documents and push delivery
	app, err := initFirebase(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("Failed to initialize Firebase", zap.Error(err))
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize Firebase Auth", zap.Error(err))
	}
	firebaseAuth := auth.NewFirebaseAuth(authClient)

	docStore, closeStore, err := initStore(ctx, cfg, app, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document store", zap.Error(err))
	}
	defer closeStore()

	var pusher domain.Pusher
	if fcmClient, err := fcm.NewClient(ctx, app, logger); err != nil {
		logger.Warn("Failed to initialize FCM - push notifications will be disabled", zap.Error(err))
	} else {
		pusher = fcmClient
	}

	fileStorage, err := storage.New(ctx, cfg.Storage, cfg.Server.PublicURL)
	if err != nil {
		logger.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	catalog, err := skills.Default()
	if err != nil {
		logger.Fatal("Failed to load skill catalog", zap.Error(err))
	}

	googleAuth := auth.NewGoogleAuthVerifier(cfg.Google.ClientIDs)
	if googleAuth.IsConfigured() {
		logger.Info("Google sign-in is configured")
	} else {
		logger.Warn("Google sign-in is NOT configured - set GOOGLE_CLIENT_ID to enable")
	}

	// Realtime fan-out
	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	bus, err := initBus(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to initialize event bus", zap.Error(err))
	}
	defer bus.Close()

	dispatcher := realtime.NewDispatcher(hub, bus, logger)
	if err := dispatcher.Start(ctx); err != nil {
		logger.Fatal("Failed to start event forwarder", zap.Error(err))
	}

	// Services
	repo := repository.NewDocumentRepository(docStore)
	notificationService := domain.NewNotificationService(repo, repo, pusher, logger)
	profileService := domain.NewProfileService(repo, fileStorage, logger)
	connectionService := domain.NewConnectionService(repo, notificationService, logger)
	matchService := domain.NewMatchService(repo, repo)
	chatService := domain.NewChatService(repo, repo, repo, logger, notificationService, dispatcher)
	authService := domain.NewAuthService(firebaseAuth, googleAuth, profileService, logger)
	tickets := auth.NewTicketManager(cfg.JWT.Secret, cfg.JWT.TicketExpiry)

	handlers := api.Handlers{
		Auth:         api.NewAuthHandler(authService, cfg.IsProduction(), logger),
		GoogleOAuth:  api.NewGoogleOAuthHandler(cfg, authService, logger),
		Profile:      api.NewProfileHandler(profileService, connectionService, cfg.Storage.MaxUploadBytes, logger),
		Skills:       api.NewSkillsHandler(catalog, profileService, logger),
		Connection:   api.NewConnectionHandler(connectionService, matchService, logger),
		Chat:         api.NewChatHandler(chatService, logger),
		Notification: api.NewNotificationHandler(notificationService, logger),
		Realtime:     api.NewRealtimeHandler(tickets, hub, repo, repo, connectionService, cfg.Server.AllowedOrigins, logger),
		Health:       api.NewHealthHandler(repo, version, logger),
	}
	if local, ok := fileStorage.(*storage.LocalFileStorage); ok {
		handlers.Uploads = http.FileServer(http.Dir(local.Dir()))
		handlers.UploadsPrefix = "/uploads"
	}

	authLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst)
	go authLimiter.Cleanup(ctx, 5*time.Minute)

	router := api.NewRouter(handlers, firebaseAuth, authLimiter, cfg.Server.AllowedOrigins, cfg.Server.TrustProxy, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

func initFirebase(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	return firebase.NewApp(ctx, fbConfig, opts...)
}

// initStore opens the configured document store and returns its cleanup
func initStore(ctx context.Context, cfg *config.Config, app *firebase.App, logger *zap.Logger) (store.DocumentStore, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		s := store.NewFirestoreStore(client, logger)
		return s, func() { _ = s.Close() }, nil

	case config.StorePostgres:
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewPostgresStore(ctx, db, logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Connected to database")
		return s, func() {
			_ = s.Close()
			db.Close()
		}, nil

	case config.StoreMemory:
		logger.Warn("Using the in-memory document store - data is lost on restart")
		s := store.NewMemoryStore()
		return s, func() { _ = s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func initBus(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (realtime.Bus, error) {
	if cfg.URL == "" {
		logger.Info("REDIS_URL not set - realtime events stay on this instance")
		return realtime.NewLocalBus(), nil
	}
	bus, err := realtime.NewRedisBus(ctx, cfg.URL, cfg.Channel, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Realtime events fan out over Redis", zap.String("channel", cfg.Channel))
	return bus, nil
}
