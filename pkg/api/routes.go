package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/option-pricing-engine/pkg/metrics"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/backpressure"
)

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.engine.Use(RequestIDMiddleware())
	s.engine.Use(LoggingMiddleware())
	s.engine.Use(MetricsMiddleware(s.deps.Recorder))
	s.engine.Use(ErrorMiddleware())
	s.engine.Use(CORSMiddleware(s.config.AllowedOrigins, s.config.AllowedMethods, s.config.AllowedHeaders))

	h := s.handlers

	s.engine.GET("/health", h.HealthCheckHandler)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler(s.deps.Gatherer)))

	if s.deps.Hub != nil {
		s.engine.GET("/ws", gin.WrapF(s.deps.Hub.HandleWebSocket))
	}

	v1 := s.engine.Group("/api/v1")

	options := v1.Group("/options")
	options.POST("/price", h.PriceOptionHandler)
	options.POST("/greeks/profile", h.GreeksProfileHandler)

	simulations := v1.Group("/simulations")
	if s.config.RateLimit > 0 {
		limiter := backpressure.NewKeyedLimiter(s.config.RateLimit, s.config.RateLimitBurst, 10*time.Minute)
		s.limiter = limiter
		simulations.Use(RateLimitMiddleware(limiter, s.deps.Recorder))
	}
	simulations.POST("", h.RunSimulationHandler)
	simulations.POST("/paths", h.GeneratePathsHandler)

	portfolios := v1.Group("/portfolios")
	portfolios.GET("", h.ListPortfoliosHandler)
	portfolios.POST("", h.CreatePortfolioHandler)
	portfolios.GET("/:id", h.GetPortfolioHandler)
	portfolios.DELETE("/:id", h.DeletePortfolioHandler)
	portfolios.POST("/:id/scenarios", h.PortfolioScenarioHandler)

	v1.POST("/scenarios", h.ScenarioHandler)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "route not found: " + c.Request.URL.Path,
			"kind":  "not_found",
		})
	})
}
