package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vetclinic-scheduler/config"
	deliveryHttp "vetclinic-scheduler/internal/delivery/http"
	"vetclinic-scheduler/internal/delivery/http/handler"
	"vetclinic-scheduler/internal/delivery/http/middleware"
	"vetclinic-scheduler/internal/domain/calendar"
	"vetclinic-scheduler/internal/infrastructure/cache"
	"vetclinic-scheduler/internal/infrastructure/database"
	"vetclinic-scheduler/internal/infrastructure/mail"
	"vetclinic-scheduler/internal/repository"
	"vetclinic-scheduler/internal/service"
	"vetclinic-scheduler/internal/usecase"
	"vetclinic-scheduler/pkg/jwt"
	"vetclinic-scheduler/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config        *config.Config
	DB            *gorm.DB
	RedisClient   *redis.Client
	Server        *http.Server
	Notifications *service.NotificationService
	RateLimiter   *middleware.IPRateLimiter
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	setupLogger(cfg.App.Env)
	logrus.Info("Configuration loaded successfully")

	loc, err := time.LoadLocation(cfg.Clinic.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid clinic time zone %q: %w", cfg.Clinic.TimeZone, err)
	}

	catalog, err := calendar.New(calendar.Config{
		Windows: []calendar.Window{
			{Period: calendar.PeriodMorning, Start: cfg.Clinic.MorningStart, End: cfg.Clinic.MorningEnd},
			{Period: calendar.PeriodAfternoon, Start: cfg.Clinic.AfternoonStart, End: cfg.Clinic.AfternoonEnd},
		},
		Interval:  cfg.Clinic.SlotInterval,
		ClosedDay: cfg.Clinic.ClosedDay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build clinic calendar: %w", err)
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.Clinic.TimeZone, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	if cfg.DB.AutoMigrate {
		if err := database.RunMigrations(db); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize all layers
	app.initializeServer(cfg, loc, catalog)

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(env string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
	if env == "development" {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer(cfg *config.Config, loc *time.Location, catalog *calendar.Catalog) {
	log := logrus.StandardLogger()

	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()

	// Initialize repositories
	appointmentRepo := repository.NewAppointmentRepository(app.DB)
	petRepo := repository.NewPetRepository(app.DB)
	userRepo := repository.NewUserRepository(app.DB)
	auditLogRepo := repository.NewAuditLogRepository(app.DB)

	// Initialize services
	auditService := service.NewAuditService(log, auditLogRepo)
	slotCache := service.NewSlotCacheService(app.RedisClient, log, loc)
	sender := mail.NewSMTPSender(cfg.SMTP)
	notifications := service.NewNotificationService(sender, userRepo, petRepo, log, cfg.Notification.Timeout)
	app.Notifications = notifications

	// Warm the availability cache before serving
	warmupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := slotCache.SyncOnStartup(warmupCtx, appointmentRepo); err != nil {
		log.Warnf("Slot cache warmup failed, continuing with a cold cache: %+v", err)
	}
	cancel()

	// Initialize usecases
	appointmentUsecase := usecase.NewAppointmentUsecase(
		log,
		appointmentRepo,
		petRepo,
		userRepo,
		catalog,
		slotCache,
		auditService,
		notifications,
		usecase.AppointmentSettings{
			Location:     loc,
			CancelNotice: cfg.Clinic.CancelNotice,
			Fees:         cfg.Clinic.Fees,
		},
	)
	auditLogUsecase := usecase.NewAuditLogUsecase(log, auditLogRepo)

	// Initialize handlers
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator, log)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase, customValidator)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, cache.NewTokenDenylist(app.RedisClient), log)
	corsMiddleware := middleware.NewCORSMiddleware()
	rateLimiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	app.RateLimiter = rateLimiter

	// Initialize router
	router := deliveryHttp.NewRouter(appointmentHandler, auditLogHandler, authMiddleware, corsMiddleware, rateLimiter)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	app.Server = &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s, clinic time zone: %s", app.Config.App.Env, app.Config.Clinic.TimeZone)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close waits for in-flight notifications, then closes connections
func (app *App) Close() {
	if app.RateLimiter != nil {
		app.RateLimiter.Stop()
	}

	// pending confirmation mails need the database for recipient lookup
	if app.Notifications != nil {
		app.Notifications.Stop()
	}

	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
