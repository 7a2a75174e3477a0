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

	"github.com/go-playground/validator/v10"

	_ "github.com/sekolahku/sekolahku-api/api/swagger"
	"github.com/sekolahku/sekolahku-api/internal/handler"
	"github.com/sekolahku/sekolahku-api/internal/repository"
	"github.com/sekolahku/sekolahku-api/internal/router"
	"github.com/sekolahku/sekolahku-api/internal/service"
	"github.com/sekolahku/sekolahku-api/pkg/cache"
	"github.com/sekolahku/sekolahku-api/pkg/config"
	"github.com/sekolahku/sekolahku-api/pkg/database"
	"github.com/sekolahku/sekolahku-api/pkg/jobs"
	"github.com/sekolahku/sekolahku-api/pkg/logger"
	"github.com/sekolahku/sekolahku-api/pkg/storage"
)

// @title Sekolahku API
// @version 1.0.0
// @description School administration backend
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	classRepo := repository.NewClassRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewDailyAttendanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	feeRepo := repository.NewFeePaymentRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	txRunner := repository.NewTxRunner(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sekolahku-api",
		Audience:           []string{"sekolahku"},
	})
	userService := service.NewUserService(userRepo, validate, logr)
	yearService := service.NewAcademicYearService(yearRepo, validate, logr)
	classService := service.NewClassService(classRepo, sectionRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, enrollmentRepo, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, logr)
	promotionService := service.NewPromotionService(
		yearRepo, classRepo, sectionRepo, studentRepo, enrollmentRepo,
		txRunner, userRepo, logr,
	)
	attendanceService := service.NewAttendanceService(attendanceRepo, logr)
	notificationService := service.NewNotificationService(notificationRepo, cacheRepo, cfg.Notifications.UnreadCountTTL, logr)

	var gateway service.PaymentGateway
	if cfg.Payments.Enabled {
		gateway = service.NewHTTPPaymentGateway(cfg.Payments.GatewayBaseURL, cfg.Payments.GatewayAPIKey, cfg.Payments.RequestTimeout)
	}
	feeService := service.NewFeeService(feeRepo, studentRepo, gateway, logr)

	settingService := service.NewSettingService(settingRepo, cacheRepo, cfg.Settings.CacheTTL, logr)

	var archiveQueue *jobs.Queue
	if cfg.Exports.ArchiveDir != "" {
		archive, err := storage.NewArchive(cfg.Exports.ArchiveDir)
		if err != nil {
			logr.Sugar().Warnw("export archive unavailable", "error", err)
		} else {
			if removed, err := archive.Sweep(cfg.Exports.ArchiveTTL); err != nil {
				logr.Sugar().Warnw("export archive sweep failed", "error", err)
			} else if removed > 0 {
				logr.Sugar().Infow("swept expired export archives", "removed", removed)
			}
			archiveQueue = jobs.New("export-archive", func(_ context.Context, t jobs.Task) error {
				file, ok := t.Payload.(*service.ExportFile)
				if !ok {
					return fmt.Errorf("unexpected payload type %T", t.Payload)
				}
				_, err := archive.Save(file.FileName, file.Data)
				return err
			}, jobs.Options{Workers: 1}, logr)
			archiveQueue.Start(ctx)
			defer archiveQueue.Stop()
		}
	}

	exportService := service.NewExportService(enrollmentRepo, attendanceRepo, archiveQueue, logr)
	metricsService := service.NewMetricsService()

	engine := router.New(router.Deps{
		Config:    cfg,
		Logger:    logr,
		Auth:      authService,
		Metrics:   metricsService,
		AuditRepo: userRepo,

		AuthHandler:         handler.NewAuthHandler(authService),
		UserHandler:         handler.NewUserHandler(userService),
		StudentHandler:      handler.NewStudentHandler(studentService),
		ClassHandler:        handler.NewClassHandler(classService),
		AcademicYearHandler: handler.NewAcademicYearHandler(yearService),
		EnrollmentHandler:   handler.NewEnrollmentHandler(enrollmentService),
		PromotionHandler:    handler.NewPromotionHandler(promotionService),
		AttendanceHandler:   handler.NewAttendanceHandler(attendanceService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		FeeHandler:          handler.NewFeeHandler(feeService, cfg.Payments.CallbackSecret),
		SettingHandler:      handler.NewSettingHandler(settingService),
		ExportHandler:       handler.NewExportHandler(exportService),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
