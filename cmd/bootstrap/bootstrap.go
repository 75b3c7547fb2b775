package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthsync-api/config"
	deliveryHttp "healthsync-api/internal/delivery/http"
	"healthsync-api/internal/delivery/http/handler"
	"healthsync-api/internal/delivery/http/middleware"
	"healthsync-api/internal/delivery/ws"
	"healthsync-api/internal/infrastructure/cache"
	"healthsync-api/internal/infrastructure/database"
	"healthsync-api/internal/infrastructure/mail"
	"healthsync-api/internal/infrastructure/payment"
	"healthsync-api/internal/repository"
	"healthsync-api/internal/service"
	"healthsync-api/internal/usecase"
	"healthsync-api/pkg/jwt"
	"healthsync-api/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server

	locker      *service.QueueLocker
	relay       *service.QueueEventRelay
	hub         *ws.Hub
	rateLimiter *middleware.RateLimiter
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := NewLogger(cfg.Log.Level)
	app := &App{Config: cfg, Log: log}
	log.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env, log)
	if err != nil {
		return nil, err
	}
	app.DB = db

	if cfg.DB.AutoMigrate {
		migrator, err := database.NewMigrator(db, log)
		if err != nil {
			return nil, err
		}
		if err := migrator.Up(); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	app.RedisClient = redisClient

	if err := app.initializeServer(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// NewLogger builds the JSON logrus logger used across the application.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", level)
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	return log
}

// initializeServer wires repositories, services, usecases and handlers.
func (app *App) initializeServer() error {
	cfg, log, db, redisClient := app.Config, app.Log, app.DB, app.RedisClient

	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()

	// Initialize repositories
	txManager := repository.NewTxManager(db)
	userRepo := repository.NewUserRepository()
	availabilityRepo := repository.NewAvailabilityRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	transactionRepo := repository.NewTransactionRepository()
	couponRepo := repository.NewCouponRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	tokenStore := service.NewRedisTokenStore(redisClient)
	auditService := service.NewAuditService(log, auditLogRepo)
	sequencer := service.NewRedisQueueSequencer(redisClient, log)
	notifier := service.NewRedisQueueNotifier(redisClient, log)
	app.locker = service.NewQueueLocker(log)
	mailer := mail.NewSMTPMailer(cfg.SMTP, log)
	gateway := payment.NewRazorpayGateway(cfg.Payment)
	invoiceGenerator := service.NewPDFInvoiceGenerator()

	// Queue events fan out from redis to websocket rooms
	app.hub = ws.NewHub(log)
	app.relay = service.NewQueueEventRelay(redisClient, app.hub, log)
	if err := app.relay.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start queue event relay: %w", err)
	}

	// Initialize usecases
	authUsecase := usecase.NewAuthUsecase(db, log, txManager, userRepo, jwtService, tokenStore, mailer, auditService, cfg.App)
	userUsecase := usecase.NewUserUsecase(db, log, txManager, userRepo, auditService)
	availabilityUsecase := usecase.NewAvailabilityUsecase(db, log, txManager, availabilityRepo, auditService)
	appointmentUsecase := usecase.NewAppointmentUsecase(db, log, txManager, appointmentRepo, availabilityRepo, sequencer, notifier, app.locker, auditService, cfg.Queue)
	paymentUsecase := usecase.NewPaymentUsecase(db, log, txManager, appointmentRepo, transactionRepo, couponRepo, userRepo, gateway, invoiceGenerator, mailer, auditService, cfg.Payment)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	userHandler := handler.NewUserHandler(userUsecase, customValidator)
	availabilityHandler := handler.NewAvailabilityHandler(availabilityUsecase, customValidator)
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	paymentHandler := handler.NewPaymentHandler(paymentUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)
	queueHandler := ws.NewQueueHandler(app.hub, cfg.App.AllowedOrigins, log)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, tokenStore)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.AllowedOrigins)
	app.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)

	// Initialize router
	router := deliveryHttp.NewRouter(
		log,
		healthHandler,
		authHandler,
		userHandler,
		availabilityHandler,
		appointmentHandler,
		paymentHandler,
		auditLogHandler,
		queueHandler,
		authMiddleware,
		corsMiddleware,
		app.rateLimiter,
	)

	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
	case runErr = <-errCh:
		app.Log.Errorf("Server failed: %v", runErr)
	}

	app.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	app.Close()
	app.Log.Info("Server shutdown complete")
	return runErr
}

// Close stops background workers and closes connections.
func (app *App) Close() {
	if app.relay != nil {
		app.relay.Stop()
	}
	if app.hub != nil {
		app.hub.CloseAll()
	}
	if app.locker != nil {
		app.locker.Stop()
	}
	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}

	if app.DB != nil {
		if sqlDB, err := app.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
