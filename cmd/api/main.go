package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classbridge/school-api/api/swagger"
	"github.com/classbridge/school-api/internal/handler"
	"github.com/classbridge/school-api/internal/middleware"
	"github.com/classbridge/school-api/internal/models"
	"github.com/classbridge/school-api/internal/repository"
	"github.com/classbridge/school-api/internal/service"
	"github.com/classbridge/school-api/pkg/cache"
	"github.com/classbridge/school-api/pkg/config"
	"github.com/classbridge/school-api/pkg/database"
	"github.com/classbridge/school-api/pkg/logger"
	corsmiddleware "github.com/classbridge/school-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classbridge/school-api/pkg/middleware/requestid"
)

// @title ClassBridge School API
// @version 1.0.0
// @description School management backend with automatic roll-number assignment
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Warnw("redis unavailable, roster caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	rollRepo := repository.NewRollNumberRepository(db)
	classSectionRepo := repository.NewClassSectionRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	// Services.
	metricsSvc := service.NewMetricsService()
	rosterSvc := service.NewRosterService(enrollmentRepo, cacheRepo, classSectionRepo, metricsSvc, cfg.Roster.CacheTTL, logr)
	rollSvc := service.NewRollNumberService(rollRepo, classSectionRepo, rosterSvc, metricsSvc, logr)
	dispatcher := service.NewRollNumberDispatcher(rollSvc, cfg.Rolls, logr)
	studentSvc := service.NewStudentService(studentRepo, classSectionRepo, yearRepo, dispatcher, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, classSectionRepo, yearRepo, dispatcher, validate, logr)
	classSectionSvc := service.NewClassSectionService(classSectionRepo, yearRepo, validate, logr)
	yearSvc := service.NewAcademicYearService(yearRepo, validate, logr)
	noticeSvc := service.NewNoticeService(noticeRepo, validate, logr)
	tokenSvc := service.NewTokenService(cfg.JWT)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// Handlers.
	studentHandler := handler.NewStudentHandler(studentSvc, rollSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc)
	classSectionHandler := handler.NewClassSectionHandler(classSectionSvc)
	yearHandler := handler.NewAcademicYearHandler(yearSvc)
	noticeHandler := handler.NewNoticeHandler(noticeSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	staffOnly := middleware.RBAC(models.RoleAdmin, models.RoleStaff)
	readRoles := middleware.RBAC(models.RoleAdmin, models.RoleStaff, models.RoleTeacher)

	students := api.Group("/students")
	{
		students.GET("", readRoles, studentHandler.List)
		students.GET("/:id", readRoles, studentHandler.Get)
		students.POST("", staffOnly, middleware.Audit(auditRepo, "create", "student"), studentHandler.Create)
		students.PUT("/:id", staffOnly, middleware.Audit(auditRepo, "update", "student"), studentHandler.Update)
		students.DELETE("/:id", staffOnly, middleware.Audit(auditRepo, "delete", "student"), studentHandler.Delete)
		students.POST("/recalculate-rolls", staffOnly, middleware.Audit(auditRepo, "recalculate", "roll_numbers"), studentHandler.RecalculateRolls)
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.GET("", readRoles, enrollmentHandler.List)
		enrollments.GET("/:id", readRoles, enrollmentHandler.Get)
		enrollments.POST("", staffOnly, middleware.Audit(auditRepo, "create", "enrollment"), enrollmentHandler.Create)
		enrollments.POST("/:id/transfer", staffOnly, middleware.Audit(auditRepo, "transfer", "enrollment"), enrollmentHandler.Transfer)
		enrollments.POST("/:id/withdraw", staffOnly, middleware.Audit(auditRepo, "withdraw", "enrollment"), enrollmentHandler.Withdraw)
		enrollments.DELETE("/:id", staffOnly, middleware.Audit(auditRepo, "delete", "enrollment"), enrollmentHandler.Delete)
	}

	api.GET("/roster", readRoles, rosterHandler.Get)
	api.GET("/roster/export", readRoles, rosterHandler.Export)

	sections := api.Group("/class-sections")
	{
		sections.GET("", readRoles, classSectionHandler.List)
		sections.GET("/:id", readRoles, classSectionHandler.Get)
		sections.POST("", staffOnly, middleware.Audit(auditRepo, "create", "class_section"), classSectionHandler.Create)
	}

	years := api.Group("/academic-years")
	{
		years.GET("", readRoles, yearHandler.List)
		years.GET("/:id", readRoles, yearHandler.Get)
		years.POST("", staffOnly, middleware.Audit(auditRepo, "create", "academic_year"), yearHandler.Create)
	}

	notices := api.Group("/notices")
	{
		notices.GET("", noticeHandler.List)
		notices.GET("/:id", noticeHandler.Get)
		notices.POST("", staffOnly, middleware.Audit(auditRepo, "create", "notice"), noticeHandler.Create)
		notices.PUT("/:id", staffOnly, middleware.Audit(auditRepo, "update", "notice"), noticeHandler.Update)
		notices.DELETE("/:id", staffOnly, middleware.Audit(auditRepo, "delete", "notice"), noticeHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
