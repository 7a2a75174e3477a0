package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/sekolahku/sekolahku-api/internal/handler"
	"github.com/sekolahku/sekolahku-api/internal/middleware"
	"github.com/sekolahku/sekolahku-api/internal/models"
	"github.com/sekolahku/sekolahku-api/internal/repository"
	"github.com/sekolahku/sekolahku-api/internal/service"
	"github.com/sekolahku/sekolahku-api/pkg/config"
	"github.com/sekolahku/sekolahku-api/pkg/logger"
	corsmiddleware "github.com/sekolahku/sekolahku-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sekolahku/sekolahku-api/pkg/middleware/requestid"

	"go.uber.org/zap"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Auth      *service.AuthService
	Metrics   *service.MetricsService
	AuditRepo *repository.UserRepository

	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	StudentHandler      *handler.StudentHandler
	ClassHandler        *handler.ClassHandler
	AcademicYearHandler *handler.AcademicYearHandler
	EnrollmentHandler   *handler.EnrollmentHandler
	PromotionHandler    *handler.PromotionHandler
	AttendanceHandler   *handler.AttendanceHandler
	NotificationHandler *handler.NotificationHandler
	FeeHandler          *handler.FeeHandler
	SettingHandler      *handler.SettingHandler
	ExportHandler       *handler.ExportHandler
}

// New builds the gin engine with all middleware and routes attached.
func New(d Deps) *gin.Engine {
	if d.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(corsmiddleware.New(d.Config.CORS.AllowedOrigins))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	if d.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", d.AuthHandler.Login)
		auth.POST("/refresh", d.AuthHandler.Refresh)

		authed := auth.Group("", middleware.JWT(d.Auth))
		authed.POST("/logout", d.AuthHandler.Logout)
		authed.POST("/change-password", d.AuthHandler.ChangePassword)
		authed.GET("/me", d.AuthHandler.Me)
	}

	// Gateway callbacks authenticate with an HMAC signature, not a JWT.
	api.POST("/fees/webhook", d.FeeHandler.Webhook)

	protected := api.Group("", middleware.JWT(d.Auth))

	admin := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher)

	users := protected.Group("/users", middleware.RequireRoles(models.RoleSuperAdmin))
	{
		users.GET("", d.UserHandler.List)
		users.GET("/:id", d.UserHandler.Get)
		users.POST("", d.UserHandler.Create)
		users.PUT("/:id", d.UserHandler.Update)
		users.DELETE("/:id", d.UserHandler.Deactivate)
	}

	students := protected.Group("/students")
	{
		students.GET("", staff, d.StudentHandler.List)
		students.GET("/:id", staff, d.StudentHandler.Get)
		students.GET("/:id/history", staff, d.StudentHandler.History)
		students.POST("", admin, d.StudentHandler.Create)
		students.PUT("/:id", admin, d.StudentHandler.Update)
		students.DELETE("/:id", admin, d.StudentHandler.Deactivate)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("", staff, d.ClassHandler.List)
		classes.GET("/:id", staff, d.ClassHandler.Get)
		classes.GET("/:id/sections", staff, d.ClassHandler.Sections)
		classes.POST("", admin, d.ClassHandler.Create)
		classes.PUT("/:id", admin, d.ClassHandler.Update)
		classes.DELETE("/:id", admin, d.ClassHandler.Delete)
		classes.POST("/:id/sections", admin, d.ClassHandler.CreateSection)
	}
	protected.PUT("/sections/:sectionId", admin, d.ClassHandler.UpdateSection)
	protected.DELETE("/sections/:sectionId", admin, d.ClassHandler.DeleteSection)

	years := protected.Group("/academic-years")
	{
		years.GET("", staff, d.AcademicYearHandler.List)
		years.GET("/current", staff, d.AcademicYearHandler.Current)
		years.GET("/:id", staff, d.AcademicYearHandler.Get)
		years.POST("", admin, d.AcademicYearHandler.Create)
		years.PUT("/:id", admin, d.AcademicYearHandler.Update)
		years.POST("/:id/set-current", admin, d.AcademicYearHandler.SetCurrent)
		years.POST("/:id/set-active", admin, d.AcademicYearHandler.SetActive)
		years.DELETE("/:id", admin, d.AcademicYearHandler.Delete)
	}

	enrollments := protected.Group("/enrollments", staff)
	{
		enrollments.GET("", d.EnrollmentHandler.List)
		enrollments.GET("/:studentId/:academicYearId", d.EnrollmentHandler.Find)
	}

	promotions := protected.Group("/promotions", admin)
	{
		promotions.POST("/promote", d.PromotionHandler.Promote)
		promotions.POST("/bulk-promote", d.PromotionHandler.PromoteBulk)
		promotions.POST("/re-admit", d.PromotionHandler.ReAdmit)
		promotions.POST("/bulk-re-admit", d.PromotionHandler.ReAdmitBulk)
	}

	attendance := protected.Group("/attendance", staff)
	{
		attendance.GET("", d.AttendanceHandler.List)
		attendance.POST("", d.AttendanceHandler.Upsert)
		attendance.POST("/bulk", d.AttendanceHandler.BulkRecord)
		attendance.GET("/report", d.AttendanceHandler.ClassReport)
		attendance.GET("/students/:id/summary", d.AttendanceHandler.StudentSummary)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", d.NotificationHandler.List)
		notifications.GET("/unread-count", d.NotificationHandler.UnreadCount)
		notifications.POST("", admin, d.NotificationHandler.Publish)
		notifications.POST("/:id/read", d.NotificationHandler.MarkRead)
		notifications.DELETE("/:id", admin, d.NotificationHandler.Delete)
	}

	fees := protected.Group("/fees")
	{
		fees.GET("", staff, d.FeeHandler.List)
		fees.GET("/:id", staff, d.FeeHandler.Get)
		fees.POST("/charge", admin, middleware.Audit(d.AuditRepo, models.AuditActionFeeCharge, "fee"), d.FeeHandler.Charge)
	}

	settings := protected.Group("/settings")
	{
		settings.GET("", staff, d.SettingHandler.List)
		settings.GET("/:key", staff, d.SettingHandler.Get)
		settings.PUT("/:key", middleware.RequireRoles(models.RoleSuperAdmin), middleware.Audit(d.AuditRepo, models.AuditActionSettingUpdate, "setting"), d.SettingHandler.Set)
	}

	if d.Config.Exports.Enabled {
		exports := protected.Group("/exports", staff)
		exports.GET("/roster", d.ExportHandler.Roster)
		exports.GET("/attendance", d.ExportHandler.AttendanceReport)
	}

	return r
}
