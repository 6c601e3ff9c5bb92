package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/krs-online-api/internal/handler"
	"github.com/noah-isme/krs-online-api/internal/repository"
	"github.com/noah-isme/krs-online-api/internal/service"
	"github.com/noah-isme/krs-online-api/migrations"
	"github.com/noah-isme/krs-online-api/pkg/cache"
	"github.com/noah-isme/krs-online-api/pkg/config"
	"github.com/noah-isme/krs-online-api/pkg/database"
	"github.com/noah-isme/krs-online-api/pkg/export"
	"github.com/noah-isme/krs-online-api/pkg/jobs"
	"github.com/noah-isme/krs-online-api/pkg/logger"
)

// @title KRS Online API
// @version 1.0.0
// @description Course registration (Kartu Rencana Studi) with seat and credit admission control
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, db.DB, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	app := buildApp(cfg, logr, db, redisClient)
	app.audit.Start(ctx)
	defer app.audit.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// app holds the wired services and handlers.
type app struct {
	auth     *service.AuthService
	metrics  *service.MetricsService
	audit    *service.AuditService
	handlers handlers
}

type handlers struct {
	auth        *handler.AuthHandler
	users       *handler.UserHandler
	courses     *handler.CourseHandler
	sections    *handler.SectionHandler
	enrollments *handler.EnrollmentHandler
	saved       *handler.SavedClassHandler
	inbox       *handler.NotificationHandler
	metrics     *handler.MetricsHandler
}

func buildApp(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) *app {
	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	savedRepo := repository.NewSavedClassRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	txManager := repository.NewTxManager(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Sections.CacheTTL, logr, cfg.Sections.CacheEnabled && redisClient != nil)

	auditSvc := service.NewAuditService(userRepo, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.Retries,
		RetryDelay: cfg.Audit.RetryDelay,
		Logger:     logr,
	}, logr)

	authSvc := service.NewAuthService(userRepo, repository.NewOTPRepository(redisClient), validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		OTPTTL:            cfg.OTP.TTL,
		ResetWindow:       cfg.OTP.ResetWindow,
		ExposeOTP:         cfg.Env != config.EnvProduction,
		DefaultMaxCredits: cfg.KRS.DefaultMaxCredits,
	})
	userSvc := service.NewUserService(userRepo, auditSvc, validate, logr, cfg.KRS.DefaultMaxCredits)
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, auditSvc, validate, logr)
	sectionSvc := service.NewSectionService(sectionRepo, courseRepo, cacheSvc, auditSvc, validate, logr, cfg.Sections.CacheTTL)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	enrollmentSvc := service.NewEnrollmentService(txManager, enrollmentRepo, userRepo, cacheSvc, metrics, auditSvc, notificationSvc, validate, logr, service.EnrollmentConfig{
		DefaultMaxCredits: cfg.KRS.DefaultMaxCredits,
		MaxRetries:        cfg.KRS.SeatUpdateRetries,
	})
	exportSvc := service.NewExportService(enrollmentRepo, userRepo, logr, export.NewCSVExporter(), export.NewPDFExporter())
	savedSvc := service.NewSavedClassService(savedRepo, sectionRepo, logr)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	return &app{
		auth:    authSvc,
		metrics: metrics,
		audit:   auditSvc,
		handlers: handlers{
			auth:        handler.NewAuthHandler(authSvc),
			users:       handler.NewUserHandler(userSvc),
			courses:     handler.NewCourseHandler(courseSvc),
			sections:    handler.NewSectionHandler(sectionSvc),
			enrollments: handler.NewEnrollmentHandler(enrollmentSvc, exportSvc),
			saved:       handler.NewSavedClassHandler(savedSvc),
			inbox:       handler.NewNotificationHandler(notificationSvc),
			metrics:     handler.NewMetricsHandler(metrics, checks),
		},
	}
}
