package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/krs-online-api/api/swagger"
	"github.com/noah-isme/krs-online-api/internal/middleware"
	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/pkg/config"
	"github.com/noah-isme/krs-online-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/krs-online-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/krs-online-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, logr *zap.Logger, a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.WithResponseMeta())

	h := a.handlers
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authRequired := middleware.JWT(a.auth)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	studentOnly := middleware.RequireRoles(models.RoleStudent)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleStudent)

	auth := api.Group("/auth")
	auth.POST("/register", h.auth.Register)
	auth.POST("/login", h.auth.Login)
	auth.POST("/forgot-password", h.auth.ForgotPassword)
	auth.POST("/verify-otp", h.auth.VerifyOTP)
	auth.POST("/reset-password", h.auth.ResetPassword)
	auth.GET("/profile", authRequired, h.auth.Profile)

	krs := api.Group("/krs", authRequired)
	krs.GET("", anyRole, h.enrollments.List)
	krs.GET("/export", anyRole, middleware.Audit(a.audit, models.AuditActionCardExport, "krs"), h.enrollments.Export)
	krs.GET("/:id", anyRole, h.enrollments.Get)
	krs.POST("", studentOnly, h.enrollments.Enroll)
	krs.DELETE("/:id", studentOnly, h.enrollments.Withdraw)

	sections := api.Group("/jadwal", authRequired)
	sections.GET("", h.sections.List)
	sections.GET("/:id", h.sections.Get)
	sections.POST("", adminOnly, h.sections.Create)
	sections.PUT("/:id", adminOnly, h.sections.Update)
	sections.DELETE("/:id", adminOnly, h.sections.Deactivate)

	courses := api.Group("/mata-kuliah", authRequired)
	courses.GET("", h.courses.List)
	courses.GET("/dropdown", h.courses.Dropdown)
	courses.GET("/:id", h.courses.Get)
	courses.POST("", adminOnly, h.courses.Create)
	courses.PUT("/:id", adminOnly, h.courses.Update)
	courses.DELETE("/:id", adminOnly, h.courses.Delete)

	user := api.Group("/user", authRequired)
	user.PUT("/profile", h.users.UpdateProfile)
	user.GET("/saved-classes", studentOnly, h.saved.List)
	user.POST("/saved-classes", studentOnly, h.saved.Save)
	user.DELETE("/saved-classes/:jadwalId", studentOnly, h.saved.Remove)
	user.GET("/notifications", h.inbox.List)
	user.PATCH("/notifications/:id/read", h.inbox.MarkRead)

	users := user.Group("/users", adminOnly)
	users.GET("", h.users.List)
	users.GET("/:id", h.users.Get)
	users.POST("", h.users.Create)
	users.PUT("/:id", h.users.Update)
	users.DELETE("/:id", h.users.Delete)

	api.GET("/admin/metrics", authRequired, adminOnly, h.metrics.Snapshot)

	return r
}
