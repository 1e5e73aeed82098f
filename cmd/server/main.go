package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conference_registration/internal/config"
	"conference_registration/internal/handler"
	"conference_registration/internal/logger"
	"conference_registration/internal/middleware"
	"conference_registration/internal/model"
	"conference_registration/internal/notify"
	"conference_registration/internal/repository"
	"conference_registration/internal/service"
	"conference_registration/internal/storage"
	"conference_registration/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("No .env file found, relying on environment variables")
	}

	// --- Configuration ---
	cfg, err := config.LoadAppConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Configure(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load DB config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	dbPool, err := config.ConnectDB(ctx, dbCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// --- Auto Migration ---
	if err := config.AutoMigrate(ctx, dbPool); err != nil {
		logger.Fatal().Err(err).Msg("Failed to auto-migrate database")
	}

	// --- Storage ---
	files, err := storage.NewLocalStorage(cfg.Storage.UploadsDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Storage.UploadsDir).Msg("Failed to prepare uploads directory")
	}
	qrStore, err := notify.NewQRStore(cfg.Storage.QRCodeDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Storage.QRCodeDir).Msg("Failed to prepare QR code directory")
	}

	// --- Initialize Utilities ---
	jwtUtil := utils.NewJWTUtil(cfg.Auth.JWTSecret, int64(cfg.Auth.JWTExpirationHours))
	tickets := utils.NewTicketSigner(cfg.Auth.TicketSecret, cfg.Event.Name)

	// --- Notifications ---
	if !cfg.SMTPConfigured() {
		logger.Warn().Msg("SMTP is not configured, emails will only be logged")
	}
	mailer := notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, cfg.Event.Name, tickets, qrStore)
	dispatcher := notify.NewDispatcher(mailer, notify.Config{
		Workers:     cfg.Notify.Workers,
		QueueSize:   cfg.Notify.QueueSize,
		MaxAttempts: cfg.Notify.MaxAttempts,
		Backoff:     cfg.Notify.Backoff,
	})
	dispatcher.Start(context.Background())

	// --- Initialize Repositories ---
	tx := repository.NewTransactor(dbPool)
	userRepo := repository.NewUserRepository(dbPool)
	participantRepo := repository.NewParticipantRepository(dbPool)
	teamRepo := repository.NewTeamRepository(dbPool)
	paymentRepo := repository.NewPaymentRepository(dbPool)
	checkInRepo := repository.NewCheckInRepository(dbPool)
	auditRepo := repository.NewAuditRepository(dbPool)
	statsRepo := repository.NewStatsRepository(dbPool)

	if cfg.Auth.InitialAdminEmail == "" {
		if hasAdmin, err := userRepo.HasRole(ctx, model.RoleAdmin); err == nil && !hasAdmin {
			logger.Warn().Msg("No admin account exists; set INITIAL_ADMIN_EMAIL and register with that address")
		}
	}

	// --- Initialize Services ---
	settings := service.Settings{
		EventName:         cfg.Event.Name,
		RegistrationFee:   cfg.Event.RegistrationFee,
		TeamMinSize:       cfg.Event.TeamMinSize,
		TeamMaxSize:       cfg.Event.TeamMaxSize,
		MaxUploadSize:     cfg.Storage.MaxUploadSize,
		InitialAdminEmail: cfg.Auth.InitialAdminEmail,
		Universities:      cfg.Event.Universities,
	}
	services := handler.Services{
		Auth:         service.NewAuthService(userRepo, participantRepo, jwtUtil),
		Registration: service.NewRegistrationService(userRepo, participantRepo, teamRepo, paymentRepo, statsRepo, tx, dispatcher, settings),
		Teams:        service.NewTeamService(teamRepo, participantRepo, tx, settings),
		Payments:     service.NewPaymentService(participantRepo, paymentRepo, auditRepo, tx, files, dispatcher, settings),
		Participants: service.NewParticipantService(participantRepo),
		CheckIns:     service.NewCheckInService(participantRepo, checkInRepo, auditRepo, tx, tickets),
		Admin:        service.NewAdminService(userRepo, statsRepo, auditRepo, tx),
	}

	// --- Setup Gin Router ---
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.MaxMultipartMemory = cfg.Storage.MaxUploadSize
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.Server.CORSOrigin))

	// --- Register Routes ---
	handler.RegisterRoutes(router.Group("/api/v1"), services, jwtUtil)

	router.GET("/health", func(c *gin.Context) {
		if err := dbPool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Str("event", cfg.Event.Name).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Queued emails are still sent after the last request finishes.
	dispatcher.Close()

	logger.Info().Msg("Server exiting")
}
