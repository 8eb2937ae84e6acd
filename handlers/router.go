package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/monitoring"
)

// NewRouter wires middleware and mounts every route at the root and under /api.
func NewRouter(serviceName string, h *PaymentHandler, policy middleware.OriginPolicy) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(MethodNotAllowed)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
	})

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.HTTPMetrics())
	r.Use(middleware.CORS(policy))

	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(monitoring.MetricsHandler()))

	h.Register(r, policy)
	h.Register(r.Group("/api"), policy)

	return r
}
