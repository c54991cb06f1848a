package main

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	_ "github.com/noah-isme/edulearn-api/api/swagger"
	"github.com/noah-isme/edulearn-api/internal/notifier"
	"github.com/noah-isme/edulearn-api/internal/repository"
	"github.com/noah-isme/edulearn-api/internal/router"
	"github.com/noah-isme/edulearn-api/internal/service"
	"github.com/noah-isme/edulearn-api/pkg/cache"
	"github.com/noah-isme/edulearn-api/pkg/config"
	"github.com/noah-isme/edulearn-api/pkg/database"
	"github.com/noah-isme/edulearn-api/pkg/logger"
)

// @title EduLearn API
// @version 1.0.0
// @description Authentication and access control backend for the EduLearn platform
// @BasePath /
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

	// Redis is optional; the rate limiter and status cache degrade to
	// pass-through behavior without it.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	verifications := repository.NewVerificationRepository(db)
	devices := repository.NewDeviceRepository(db)
	activity := repository.NewActivityRepository(db)
	courses := repository.NewCourseRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metrics := service.NewMetricsService()
	mailer := notifier.NewSMTPNotifier(cfg.SMTP, logr)

	authSvc := service.NewAuthService(users, sessions, verifications, activity, mailer, cacheRepo, metrics, validate, logr, service.AuthConfig{
		TokenSecret:   cfg.JWT.Secret,
		SessionExpiry: cfg.JWT.SessionExpiry,
		Issuer:        cfg.JWT.Issuer,
		BaseURL:       cfg.BaseURL,
	})
	signupSvc := service.NewSignupService(users, verifications, mailer, metrics, validate, logr)
	passwordSvc := service.NewPasswordService(users, verifications, sessions, mailer, metrics, validate, logr)
	userSvc := service.NewUserService(users, sessions, activity, validate, logr)
	courseSvc := service.NewCourseService(courses, validate, logr)
	deviceSvc := service.NewDeviceService(devices, logr)

	r, err := router.New(router.Dependencies{
		Config:      cfg,
		Logger:      logr,
		DB:          db,
		Metrics:     metrics,
		Auth:        authSvc,
		Signup:      signupSvc,
		Password:    passwordSvc,
		Users:       userSvc,
		Courses:     courseSvc,
		Device:      deviceSvc,
		Activity:    activity,
		Devices:     devices,
		RateCounter: cacheRepo,
	})
	if err != nil {
		logr.Sugar().Fatalw("failed to build router", "error", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
