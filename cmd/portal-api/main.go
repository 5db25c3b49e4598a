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

	"github.com/orbitlearn/student-portal-api/internal/handler"
	"github.com/orbitlearn/student-portal-api/internal/middleware"
	"github.com/orbitlearn/student-portal-api/internal/models"
	"github.com/orbitlearn/student-portal-api/internal/repository"
	"github.com/orbitlearn/student-portal-api/internal/service"
	"github.com/orbitlearn/student-portal-api/pkg/cache"
	"github.com/orbitlearn/student-portal-api/pkg/config"
	"github.com/orbitlearn/student-portal-api/pkg/database"
	"github.com/orbitlearn/student-portal-api/pkg/jobs"
	"github.com/orbitlearn/student-portal-api/pkg/logger"
	corsmiddleware "github.com/orbitlearn/student-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/orbitlearn/student-portal-api/pkg/middleware/requestid"
)

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional; without it the progress cache degrades to misses.
	var cacheRepo *repository.CacheRepository
	if cfg.Progress.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, progress cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	validate := validator.New()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Progress.CacheTTL, logr, cacheRepo != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	progressSvc := service.NewProgressService(studentRepo, sessionRepo, attendanceRepo, cacheSvc, logr, cfg.Progress.CacheTTL)
	courseSvc := service.NewCourseService(studentRepo, sessionRepo, logr)
	scheduleSvc := service.NewScheduleService(studentRepo, sessionRepo, logr)
	attendanceSvc := service.NewAttendanceService(studentRepo, attendanceRepo, progressSvc, metricsSvc, validate, logr)

	recorderQueue := jobs.NewQueue("attendance-recorder", attendanceSvc.HandleRecordingJob, jobs.QueueConfig{
		Workers:    cfg.Recorder.Workers,
		BufferSize: cfg.Recorder.BufferSize,
		MaxRetries: cfg.Recorder.MaxRetries,
		RetryDelay: cfg.Recorder.RetryDelay,
		Logger:     logr,
	})
	attendanceSvc.BindQueue(recorderQueue)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorderQueue.Start(ctx)
	defer recorderQueue.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	progressHandler := handler.NewProgressHandler(progressSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Prometheus)
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	me := api.Group("/me", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
	me.GET("/courses", courseHandler.List)
	me.GET("/progress", progressHandler.Summary)
	me.GET("/progress/report", progressHandler.Report)

	api.GET("/schedule", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent), scheduleHandler.Month)

	attendance := api.Group("/attendance", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
	attendance.POST("/record", attendanceHandler.Record)
	attendance.POST("/mark-absent", attendanceHandler.MarkAbsent)
	attendance.GET("/history", attendanceHandler.History)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
