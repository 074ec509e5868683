package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rzzdr/option-pricing-engine/internal/simulation"
	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/pkg/metrics"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/backpressure"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// Config holds the configuration for the API server
type Config struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	AllowedOrigins     []string
	AllowedMethods     []string
	AllowedHeaders     []string
	DefaultSteps       int
	DefaultSimulations int
	MaxSampleSize      int
	// Simulation routes are rate limited per client when RateLimit > 0
	RateLimit          float64
	RateLimitBurst     int
}

// Pricer is the closed-form pricing engine
type Pricer interface {
	Evaluate(c models.OptionContract) (*models.Valuation, error)
	GreeksProfile(c models.OptionContract, spots []float64) ([]models.GreeksPoint, error)
}

// ScenarioEngine revalues portfolios under market conditions
type ScenarioEngine interface {
	Revalue(ctx context.Context, portfolio []models.OptionContract, conditions []models.MarketCondition) ([]models.ScenarioResult, error)
	Run(ctx context.Context, portfolio *models.Portfolio, conditions []models.MarketCondition) (*models.ScenarioRun, error)
}

// SimulationRunner runs Monte Carlo simulations
type SimulationRunner interface {
	Run(ctx context.Context, req models.SimulationRequest) (*models.SimulationReport, error)
	Paths(ctx context.Context, req models.SimulationRequest) (*simulation.PricePathMatrix, uint64, error)
}

// ScenarioHub pushes scenario runs to websocket subscribers
type ScenarioHub interface {
	PublishScenarioRun(run *models.ScenarioRun)
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// Dependencies are the services the API exposes. Hub may be nil.
type Dependencies struct {
	Pricer     Pricer
	Scenarios  ScenarioEngine
	Simulation SimulationRunner
	Portfolios store.PortfolioStore
	Hub        ScenarioHub
	Recorder   *metrics.Recorder
	Gatherer   prometheus.Gatherer
}

// Server represents the API server
type Server struct {
	config     Config
	engine     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
	deps       Dependencies
	limiter    *backpressure.KeyedLimiter
	log        *logger.Logger
}

// NewServer creates a new API server
func NewServer(config Config, deps Dependencies) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 30 * time.Second
	}

	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 60 * time.Second
	}

	if config.DefaultSteps <= 0 {
		config.DefaultSteps = 252
	}

	if config.DefaultSimulations <= 0 {
		config.DefaultSimulations = 10000
	}

	if config.MaxSampleSize <= 0 {
		config.MaxSampleSize = 100
	}

	if deps.Recorder == nil {
		deps.Recorder = metrics.NewRecorder()
	}

	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	server := &Server{
		config:   config,
		engine:   gin.New(),
		handlers: NewHandlers(config, deps),
		deps:     deps,
		log:      logger.GetLogger("api.server"),
	}

	server.setupRoutes()

	return server
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the API server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Infof("Starting API server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// SweepRateLimits drops idle client buckets every interval until ctx is
// cancelled
func (s *Server) SweepRateLimits(ctx context.Context, interval time.Duration) {
	if s.limiter == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Sweep(); n > 0 {
				s.log.Debugf("Dropped %d idle rate limit buckets", n)
			}
		}
	}
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info("Stopping API server")
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}
