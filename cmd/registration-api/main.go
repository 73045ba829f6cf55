package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/smit-institute/registration-api/api/swagger"
	"github.com/smit-institute/registration-api/internal/handler"
	"github.com/smit-institute/registration-api/internal/middleware"
	"github.com/smit-institute/registration-api/internal/models"
	"github.com/smit-institute/registration-api/internal/repository"
	"github.com/smit-institute/registration-api/internal/service"
	"github.com/smit-institute/registration-api/pkg/cache"
	"github.com/smit-institute/registration-api/pkg/config"
	"github.com/smit-institute/registration-api/pkg/database"
	"github.com/smit-institute/registration-api/pkg/export"
	"github.com/smit-institute/registration-api/pkg/logger"
	corsmiddleware "github.com/smit-institute/registration-api/pkg/middleware/cors"
	reqidmiddleware "github.com/smit-institute/registration-api/pkg/middleware/requestid"
)

// @title SMIT Registration API
// @version 1.0.0
// @description Course registration and enrollment service
// @BasePath /api
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
		// Redis is a read-side accelerator only; the service degrades to
		// direct queries without it.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT)

	notificationSvc := service.NewNotificationService(cfg.Notifications, logr)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	capacitySvc := service.NewCapacityLedger(courseRepo, metricsSvc, logr)
	allocator := service.NewSequenceAllocator(sequenceRepo, cfg.Registration.NumberPrefix, metricsSvc, logr)
	lifecycle := service.NewRegistrationLifecycle(studentRepo, notificationSvc, metricsSvc, logr)
	registrationSvc := service.NewRegistrationService(studentRepo, capacitySvc, allocator, lifecycle, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, studentRepo, cacheRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(studentRepo, courseRepo, cacheRepo, cfg.Dashboard.CacheTTL, logr)

	registrationHandler := handler.NewRegistrationHandler(registrationSvc, export.NewIDCardExporter(), cfg.Registration.InstituteName)
	courseHandler := handler.NewCourseHandler(courseSvc)
	adminHandler := handler.NewAdminHandler(registrationSvc, dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	courses := api.Group("/courses")
	courses.GET("", courseHandler.List)
	courses.GET("/:id", courseHandler.Get)
	courses.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), courseHandler.Create)
	courses.PUT("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), courseHandler.Update)
	courses.DELETE("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), courseHandler.Delete)

	registrations := api.Group("/registrations", middleware.JWT(authSvc))
	registrations.POST("", registrationHandler.Submit)
	registrations.GET("/me", registrationHandler.Me)
	registrations.PUT("/me", registrationHandler.UpdateProfile)
	registrations.GET("/me/status", registrationHandler.Status)
	registrations.GET("/me/id-card", registrationHandler.IDCard)

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/students", adminHandler.ListStudents)
	admin.GET("/students/:id", adminHandler.GetStudent)
	admin.PUT("/students/:id/status", adminHandler.ChangeStatus)
	admin.PUT("/students/:id/payment", adminHandler.AttachPayment)
	admin.GET("/dashboard", adminHandler.Dashboard)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
