package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-gateway/internal/service"
)

type sessionCounter interface {
	Count() int
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics  *service.MetricsService
	sessions sessionCounter
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, sessions sessionCounter) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, sessions: sessions}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for readiness/liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	payload := gin.H{"status": "ok"}
	if h.sessions != nil {
		payload["sessions"] = h.sessions.Count()
	}
	c.JSON(http.StatusOK, payload)
}
