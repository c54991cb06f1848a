package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/edulearn-api/internal/handler"
	"github.com/noah-isme/edulearn-api/internal/middleware"
	"github.com/noah-isme/edulearn-api/internal/models"
	"github.com/noah-isme/edulearn-api/internal/repository"
	"github.com/noah-isme/edulearn-api/internal/service"
	"github.com/noah-isme/edulearn-api/pkg/config"
	"github.com/noah-isme/edulearn-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edulearn-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edulearn-api/pkg/middleware/requestid"
)

// Dependencies carries everything the router needs. All fields except
// Config are required; nil Logger falls back to a no-op logger.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sqlx.DB
	Metrics *service.MetricsService

	Auth     *service.AuthService
	Signup   *service.SignupService
	Password *service.PasswordService
	Users    *service.UserService
	Courses  *service.CourseService
	Device   *service.DeviceService

	Activity    *repository.ActivityRepository
	Devices     *repository.DeviceRepository
	RateCounter *repository.CacheRepository
}

// New assembles the full HTTP surface: public auth endpoints, the
// role-scoped groups behind the session middleware, and the operational
// endpoints.
func New(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	logr := deps.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	trustGate, err := middleware.NewTrustGate(cfg.Trust.PrivateCIDRs, deps.Devices, logr)
	if err != nil {
		return nil, err
	}

	authHandler := handler.NewAuthHandler(deps.Auth, deps.Signup, deps.Password)
	adminHandler := handler.NewAdminHandler(deps.Users)
	teacherHandler := handler.NewTeacherHandler(deps.Courses)
	studentHandler := handler.NewStudentHandler(deps.Courses)
	deviceHandler := handler.NewDeviceHandler(deps.Device)
	metricsHandler := handler.NewMetricsHandler(deps.Metrics)

	r.GET("/health", metricsHandler.Health)
	r.GET("/health/db", func(c *gin.Context) {
		if err := deps.DB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		stats := deps.DB.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := middleware.Auth(deps.Auth)

	auth := r.Group("/auth")
	{
		loginLimit := middleware.RateLimit(deps.RateCounter, "login", cfg.RateLimit.LoginPerMinute, logr)
		registerLimit := middleware.RateLimit(deps.RateCounter, "register", cfg.RateLimit.RegisterPerMinute, logr)

		auth.POST("/register", registerLimit, authHandler.Register)
		auth.POST("/verify-email", registerLimit, authHandler.VerifyEmail)
		auth.POST("/resend-code", registerLimit, authHandler.ResendCode)
		auth.POST("/login", loginLimit, authHandler.Login)
		auth.GET("/confirm-login", authHandler.ConfirmLogin)
		auth.GET("/challenge-status", authHandler.ChallengeStatus)
		auth.POST("/forgot-password/request", loginLimit, authHandler.ForgotPassword)
		auth.POST("/forgot-password/reset", loginLimit, authHandler.ResetPassword)

		auth.POST("/logout", requireAuth, authHandler.Logout)
		auth.GET("/me", requireAuth, authHandler.Me)

		auth.GET("/devices", requireAuth, deviceHandler.List)
		auth.POST("/devices", requireAuth, deviceHandler.Trust)
		auth.DELETE("/devices/:id", requireAuth, deviceHandler.Revoke)
	}

	admin := r.Group("/admin",
		requireAuth,
		middleware.RequireRoles(models.RoleAdmin),
		middleware.Activity(deps.Activity, logr),
	)
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/activity", adminHandler.ListActivity)

		writes := admin.Group("", trustGate.Require())
		writes.POST("/teachers", adminHandler.CreateTeacher)
		writes.PUT("/users/:id/status", adminHandler.UpdateStatus)
		writes.PUT("/users/:id/permissions", adminHandler.UpdatePermissions)
		writes.DELETE("/users/:id", adminHandler.DeleteUser)
	}

	teacher := r.Group("/teacher",
		requireAuth,
		middleware.RequireRoles(models.RoleTeacher),
		middleware.Activity(deps.Activity, logr),
	)
	{
		teacher.GET("/courses", teacherHandler.ListCourses)
		teacher.GET("/classes", teacherHandler.ListClasses)

		writes := teacher.Group("", trustGate.Require())
		writes.POST("/courses", middleware.RequirePermission(models.PermCourseCreate), teacherHandler.CreateCourse)
		writes.POST("/classes", middleware.RequirePermission(models.PermClassCreate), teacherHandler.CreateClass)
		writes.PUT("/classes/:id", middleware.RequirePermission(models.PermClassEdit), teacherHandler.UpdateClass)
		writes.POST("/classes/:id/join-code", middleware.RequirePermission(models.PermClassEdit), teacherHandler.RegenerateJoinCode)
	}

	student := r.Group("/student", requireAuth, middleware.RequireRoles(models.RoleStudent))
	{
		student.POST("/classes/join", studentHandler.JoinClass)
		student.GET("/enrollments", studentHandler.ListEnrollments)
	}

	return r, nil
}
