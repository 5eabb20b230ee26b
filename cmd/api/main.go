package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/bharatvidya/lms-api/api/swagger"
	"github.com/bharatvidya/lms-api/internal/handler"
	"github.com/bharatvidya/lms-api/internal/middleware"
	"github.com/bharatvidya/lms-api/internal/models"
	"github.com/bharatvidya/lms-api/internal/repository"
	"github.com/bharatvidya/lms-api/internal/service"
	"github.com/bharatvidya/lms-api/pkg/cache"
	"github.com/bharatvidya/lms-api/pkg/config"
	"github.com/bharatvidya/lms-api/pkg/database"
	"github.com/bharatvidya/lms-api/pkg/logger"
	"github.com/bharatvidya/lms-api/pkg/mailer"
	corsmiddleware "github.com/bharatvidya/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bharatvidya/lms-api/pkg/middleware/requestid"
)

// @title Bharat Vidya LMS API
// @version 1.0.0
// @description Role-based school management API: students, attendance, assignments, fees and guardian notifications.
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
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	var mail mailer.Mailer
	switch cfg.Mail.Provider {
	case "sendgrid":
		mail = mailer.NewSendgridMailer(cfg.Mail, logr)
	default:
		mail = mailer.NewConsoleMailer(logr)
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	messageLogRepo := repository.NewMessageLogRepository(db)

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled)
	}

	notifier := service.NewNotifier(mail, messageLogRepo, metricsService, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	studentService := service.NewStudentService(studentRepo, assignmentRepo, submissionRepo, metricsService, validate, logr)
	assignmentService := service.NewAssignmentService(assignmentRepo, studentRepo, submissionRepo, metricsService, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, notifier, validate, logr, cfg.School.Name)
	feeService := service.NewFeeService(feeRepo, studentRepo, notifier, validate, logr, cfg.School.Name)
	adminService := service.NewAdminService(userRepo, studentRepo, messageLogRepo, notifier, validate, logr)
	dashboardService := service.NewDashboardService(studentRepo, userRepo, assignmentRepo, feeRepo, attendanceRepo, submissionRepo, cacheService, cfg.Dashboard.CacheTTL, logr)

	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService, feeService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	feeHandler := handler.NewFeeHandler(feeService)
	adminHandler := handler.NewAdminHandler(adminService)
	notificationHandler := handler.NewNotificationHandler(notifier)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	staff := protected.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	staff.Use(middleware.InvalidateDashboard(dashboardService))
	staff.POST("/students", studentHandler.Enroll)
	staff.POST("/assignments", assignmentHandler.Create)
	staff.POST("/attendance", attendanceHandler.Mark)
	staff.POST("/attendance/bulk", attendanceHandler.BulkMark)
	staff.POST("/attendance/report/send", attendanceHandler.SendReports)
	staff.GET("/attendance/report", attendanceHandler.MonthlyReport)
	staff.GET("/attendance/report/export", attendanceHandler.ExportReport)
	staff.GET("/attendance", attendanceHandler.List)
	staff.GET("/students", studentHandler.List)
	staff.GET("/fees/pending", feeHandler.PendingGroups)
	staff.POST("/fees", feeHandler.Create)
	staff.POST("/fees/:id/pay", feeHandler.MarkPaid)
	staff.POST("/fees/reminders", feeHandler.SendReminders)
	staff.GET("/assignments/:id/submissions", assignmentHandler.Submissions)
	staff.POST("/notifications/email", notificationHandler.SendEmail)

	shared := protected.Group("")
	shared.GET("/dashboard", dashboardHandler.Summary)
	shared.GET("/assignments", assignmentHandler.List)
	shared.PATCH("/submissions/:id/status", assignmentHandler.SetSubmissionStatus)

	studentScoped := protected.Group("/students/:id")
	studentScoped.Use(middleware.StudentScope("id"))
	studentScoped.GET("", studentHandler.Get)
	studentScoped.GET("/attendance", attendanceHandler.StudentAttendance)
	studentScoped.GET("/fees", studentHandler.Fees)
	studentScoped.GET("/fees/statement", studentHandler.FeeStatement)
	studentScoped.GET("/submissions", assignmentHandler.StudentSubmissions)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/users", adminHandler.ListUsers)
	admin.PATCH("/users/:id/role", adminHandler.UpdateRole)
	admin.PATCH("/users/:id/link-student", adminHandler.LinkStudent)
	admin.POST("/broadcast", adminHandler.Broadcast)
	admin.GET("/message-logs", adminHandler.MessageLogs)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	waitForShutdown(srv, logr)
}

func waitForShutdown(srv *http.Server, logr *zap.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
		return
	}
	logr.Info("server stopped")
}
