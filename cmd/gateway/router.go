package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-gateway/api/swagger"
	"github.com/noah-isme/course-gateway/internal/handler"
	"github.com/noah-isme/course-gateway/internal/middleware"
	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/service"
	"github.com/noah-isme/course-gateway/pkg/config"
	"github.com/noah-isme/course-gateway/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-gateway/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-gateway/pkg/middleware/requestid"
)

type routerDeps struct {
	auth          *service.AuthService
	sessions      *service.SessionManager
	notifications *service.NotificationService
	audit         *service.AuditService
	metrics       *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics, "/metrics", "/health"))

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.sessions)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta(), middleware.JWT(deps.auth), middleware.Session(deps.sessions))

	sessionHandler := handler.NewSessionHandler(deps.sessions, deps.notifications)
	api.GET("/session", sessionHandler.Info)
	api.GET("/session/notifications", sessionHandler.Notifications)
	api.DELETE("/session", sessionHandler.End)

	profileHandler := handler.NewProfileHandler()
	api.GET("/professors/me", profileHandler.Get)
	api.GET("/professors/me/can-create-courses", profileHandler.CanCreateCourses)
	api.POST("/professors/profile", profileHandler.Submit)

	cartHandler := handler.NewCartHandler()
	api.GET("/cart", cartHandler.Get)
	api.DELETE("/cart/items/:id", cartHandler.RemoveItem)

	courseHandler := handler.NewCourseHandler()
	// A freshly approved professor may still carry a student token.
	teacher := api.Group("/teacher", middleware.RequireRoles(models.RoleTeacher, models.RoleStudent))
	teacher.GET("/courses", courseHandler.List)
	teacher.POST("/courses", courseHandler.Create)
	teacher.PATCH("/courses/:id/visibility", courseHandler.ToggleVisibility)
	teacher.POST("/courses/:id/resubmit", courseHandler.Resubmit)

	moderationHandler := handler.NewModerationHandler(deps.audit)
	admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/pending", moderationHandler.Pending)
	admin.POST("/pending/refresh", moderationHandler.Refresh)
	admin.POST("/professors/:id/approve", moderationHandler.ApproveProfile)
	admin.POST("/professors/:id/reject", moderationHandler.RejectProfile)
	admin.POST("/courses/:id/approve", moderationHandler.ApproveCourse)
	admin.POST("/courses/:id/reject", moderationHandler.RejectCourse)
	admin.PATCH("/courses/:id/visibility", moderationHandler.ForceToggleVisibility)
	admin.POST("/courses/:id/deactivate", moderationHandler.Deactivate)
	admin.GET("/audit-logs", moderationHandler.AuditLogs)

	return r
}
