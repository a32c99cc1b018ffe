package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrineural/agrineural/internal/auth"
	"github.com/agrineural/agrineural/internal/classifier"
	"github.com/agrineural/agrineural/internal/config"
	"github.com/agrineural/agrineural/internal/database"
	"github.com/agrineural/agrineural/internal/handlers"
	"github.com/agrineural/agrineural/internal/metrics"
	"github.com/agrineural/agrineural/internal/middleware"
	"github.com/agrineural/agrineural/internal/notify"
	"github.com/agrineural/agrineural/internal/repository"
	"github.com/agrineural/agrineural/internal/services"
	"github.com/agrineural/agrineural/internal/storage"
	"github.com/agrineural/agrineural/internal/telemetry"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the AgriNeural HTTP API.

Configuration is read from the environment and an optional .env file.
Set TEST_MODE=true to authenticate callers with the X-Test-Caller header.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg.Log)

	if !cfg.TestMode && (cfg.JWT.Secret == "" || cfg.ExportSigningKey == "") {
		return errors.New("JWT_SECRET and EXPORT_SIGNING_KEY are required outside test mode")
	}

	if enabled, err := telemetry.Init(cfg.SentryDSN, cfg.GinMode); err != nil {
		logger.Warn("sentry disabled", "error", err)
	} else if enabled {
		defer telemetry.Flush(2 * time.Second)
	}

	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	var cls classifier.Classifier
	if cfg.Classifier.URL != "" {
		cls = classifier.NewHTTP(cfg.Classifier.URL, store, cfg.Classifier.Timeout)
	} else {
		logger.Warn("CLASSIFIER_URL not set, using static verdicts", "verdict", cfg.Classifier.StaticVerdict)
		cls = classifier.NewStatic(cfg.Classifier.StaticVerdict == "anomalous")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	notifier := notify.NewNop()
	if cfg.MQTT.Broker != "" {
		mqttNotifier, err := notify.NewMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix)
		if err != nil {
			return err
		}
		defer mqttNotifier.Close()
		notifier = mqttNotifier
	}

	farmRepo := repository.NewFarmRepository(db)
	associationRepo := repository.NewAssociationRepository(db)
	imageRepo := repository.NewImageRepository(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	guard := services.NewAccessGuard(farmRepo, associationRepo)
	farmService := services.NewFarmService(farmRepo)
	associationService := services.NewAssociationService(farmRepo, associationRepo)
	reportService := services.NewReportService(guard, farmRepo, imageRepo, userRepo, store)
	exportService := services.NewExportService(reportService, cfg.ExportSigningKey)
	tokenService := services.NewTokenService(tokenRepo, cfg.JWT.Secret)
	userService := services.NewUserService(userRepo)
	ingestService := services.NewIngestService(guard, imageRepo, store, cls, db, logger, services.IngestOptions{
		ClassifyTimeout: cfg.Classifier.Timeout,
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
		Metrics:         m,
		Notifier:        notifier,
	})

	router := &handlers.Router{
		Logger:   logger,
		Metrics:  m,
		Admin:    middleware.NewAdminMiddleware(cfg.AdminUsers),
		Farms:    handlers.NewFarmHandler(farmService, associationService),
		Images:   handlers.NewImageHandler(ingestService, reportService, cfg.Storage.MaxUploadBytes),
		Reports:  handlers.NewReportHandler(reportService),
		Exports:  handlers.NewExportHandler(exportService),
		Tokens:   handlers.NewTokenHandler(tokenService),
		Profiles: handlers.NewProfileHandler(userService),
		AdminAPI: handlers.NewAdminHandler(farmService, associationService),
		Public:   handlers.NewPublicHandler(reportService, db),
	}

	var sessionResolver middleware.SessionResolver
	if cfg.Logto.Endpoint != "" && !cfg.TestMode {
		if cfg.Session.Secret == "" {
			return errors.New("SESSION_SECRET is required when Logto sign-in is enabled")
		}
		sessionStore := cookie.NewStore([]byte(cfg.Session.Secret))
		sessionStore.Options(sessions.Options{
			Path:     "/",
			MaxAge:   86400 * 7,
			HttpOnly: true,
			Secure:   cfg.Session.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		logtoHandler := auth.NewLogtoHandler(&cfg.Logto, logger)
		router.SessionStore = sessionStore
		router.Logto = logtoHandler
		sessionResolver = logtoHandler
	}
	router.Auth = middleware.NewAuthMiddleware(tokenService, sessionResolver, cfg.TestMode)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go purgeExpiredTokens(ctx, tokenService, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting AgriNeural server", "addr", srv.Addr, "storage", cfg.Storage.Backend)
		if cfg.TestMode {
			logger.Warn("test mode enabled, callers are taken from the X-Test-Caller header")
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.FileStore, error) {
	switch cfg.Backend {
	case "local", "":
		return storage.NewLocalStore(cfg.UploadDir)
	case "gcs":
		return storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentials)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Backend)
	}
}

func purgeExpiredTokens(ctx context.Context, tokens *services.TokenService, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := tokens.PurgeExpired()
			if err != nil {
				logger.Error("failed to purge expired tokens", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired tokens", "count", n)
			}
		}
	}
}
