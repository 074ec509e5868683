package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/simulation"
	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/pkg/metrics"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

const version = "1.0.0"

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	config     Config
	pricer     Pricer
	scenarios  ScenarioEngine
	simulation SimulationRunner
	portfolios store.PortfolioStore
	hub        ScenarioHub
	recorder   *metrics.Recorder
	log        *logger.Logger
}

// NewHandlers creates new API handlers
func NewHandlers(config Config, deps Dependencies) *Handlers {
	return &Handlers{
		config:     config,
		pricer:     deps.Pricer,
		scenarios:  deps.Scenarios,
		simulation: deps.Simulation,
		portfolios: deps.Portfolios,
		hub:        deps.Hub,
		recorder:   deps.Recorder,
		log:        logger.GetLogger("api.handlers"),
	}
}

// contractRequest is an option contract as sent by clients. The type name is
// matched case-insensitively.
type contractRequest struct {
	Type       string  `json:"type" binding:"required"`
	Spot       float64 `json:"spot"`
	Strike     float64 `json:"strike"`
	Maturity   float64 `json:"maturity"`
	Rate       float64 `json:"rate"`
	Volatility float64 `json:"volatility"`
}

func (r contractRequest) toContract() (models.OptionContract, error) {
	t, err := models.ParseOptionType(r.Type)
	if err != nil {
		return models.OptionContract{}, errors.InvalidArgument(err.Error())
	}

	return models.OptionContract{
		Type:       t,
		Spot:       r.Spot,
		Strike:     r.Strike,
		Maturity:   r.Maturity,
		Rate:       r.Rate,
		Volatility: r.Volatility,
	}, nil
}

func toContracts(reqs []contractRequest) ([]models.OptionContract, error) {
	contracts := make([]models.OptionContract, len(reqs))
	for i, r := range reqs {
		c, err := r.toContract()
		if err != nil {
			return nil, errors.Wrapf(err, "contract %d", i)
		}
		contracts[i] = c
	}
	return contracts, nil
}

type greeksProfileRequest struct {
	contractRequest
	Spots []float64 `json:"spots" binding:"required,min=1"`
}

// simulationRequest accepts maturity either in years or in months
type simulationRequest struct {
	Spot           float64  `json:"spot"`
	Strike         float64  `json:"strike"`
	Maturity       *float64 `json:"maturity"`
	MaturityMonths *float64 `json:"maturity_months"`
	Rate           float64  `json:"rate"`
	Volatility     float64  `json:"volatility"`
	Steps          int      `json:"steps"`
	Simulations    int      `json:"simulations"`
	Seed           *uint64  `json:"seed"`
}

func (r simulationRequest) toModel(steps, simulations int) (models.SimulationRequest, error) {
	var maturity float64
	switch {
	case r.Maturity != nil && r.MaturityMonths != nil:
		return models.SimulationRequest{}, errors.InvalidArgument("specify only one of maturity and maturity_months")
	case r.Maturity != nil:
		maturity = *r.Maturity
	case r.MaturityMonths != nil:
		maturity = *r.MaturityMonths / 12
	default:
		return models.SimulationRequest{}, errors.InvalidArgument("maturity or maturity_months is required")
	}

	req := models.SimulationRequest{
		Spot:        r.Spot,
		Strike:      r.Strike,
		Maturity:    maturity,
		Rate:        r.Rate,
		Volatility:  r.Volatility,
		Steps:       r.Steps,
		Simulations: r.Simulations,
		Seed:        r.Seed,
	}
	return req.WithDefaults(steps, simulations), nil
}

type pathsRequest struct {
	simulationRequest
	SampleSize int `json:"sample_size"`
}

type pathsResponse struct {
	Seed        uint64                `json:"seed"`
	Steps       int                   `json:"steps"`
	Simulations int                   `json:"simulations"`
	Terminal    models.PathStatistics `json:"terminal"`
	Paths       [][]float64           `json:"paths"`
}

type portfolioRequest struct {
	Name      string            `json:"name" binding:"required"`
	Contracts []contractRequest `json:"contracts" binding:"dive"`
}

type conditionsRequest struct {
	Conditions []models.MarketCondition `json:"conditions" binding:"required,min=1"`
}

type scenarioRequest struct {
	Portfolio  []contractRequest        `json:"portfolio" binding:"dive"`
	Conditions []models.MarketCondition `json:"conditions" binding:"required,min=1"`
}

// HealthCheckHandler handles health check requests
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
	})
}

// PriceOptionHandler returns the Black-Scholes price and Greeks of a contract
func (h *Handlers) PriceOptionHandler(c *gin.Context) {
	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "price", err)
		return
	}

	contract, err := req.toContract()
	if err != nil {
		h.respondError(c, "price", err)
		return
	}

	start := time.Now()
	valuation, err := h.pricer.Evaluate(contract)
	h.recorder.RecordPricing("price", time.Since(start), err)
	if err != nil {
		h.respondError(c, "price", err)
		return
	}

	c.JSON(http.StatusOK, valuation)
}

// GreeksProfileHandler evaluates the Greeks of a contract at each given spot
func (h *Handlers) GreeksProfileHandler(c *gin.Context) {
	var req greeksProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "greeks_profile", err)
		return
	}

	contract, err := req.toContract()
	if err != nil {
		h.respondError(c, "greeks_profile", err)
		return
	}

	start := time.Now()
	profile, err := h.pricer.GreeksProfile(contract, req.Spots)
	h.recorder.RecordPricing("greeks_profile", time.Since(start), err)
	if err != nil {
		h.respondError(c, "greeks_profile", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// RunSimulationHandler runs a full Monte Carlo simulation
func (h *Handlers) RunSimulationHandler(c *gin.Context) {
	var body simulationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "simulation", err)
		return
	}

	req, err := body.toModel(h.config.DefaultSteps, h.config.DefaultSimulations)
	if err != nil {
		h.respondError(c, "simulation", err)
		return
	}

	start := time.Now()
	report, err := h.simulation.Run(c.Request.Context(), req)
	h.recorder.RecordSimulation(req.Simulations, req.Steps, time.Since(start), err)
	if err != nil {
		h.respondError(c, "simulation", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GeneratePathsHandler returns a sample of simulated price paths
func (h *Handlers) GeneratePathsHandler(c *gin.Context) {
	var body pathsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "paths", err)
		return
	}

	req, err := body.toModel(h.config.DefaultSteps, h.config.DefaultSimulations)
	if err != nil {
		h.respondError(c, "paths", err)
		return
	}

	sampleSize := body.SampleSize
	switch {
	case sampleSize == 0:
		sampleSize = 10
	case sampleSize < 0:
		h.respondError(c, "paths", errors.Domain("sample_size", float64(sampleSize), "non-negative"))
		return
	case sampleSize > h.config.MaxSampleSize:
		h.respondError(c, "paths", errors.ResourceExhausted("sample_size", "sample_size exceeds the configured maximum"))
		return
	}

	start := time.Now()
	paths, seed, err := h.simulation.Paths(c.Request.Context(), req)
	h.recorder.RecordSimulation(req.Simulations, req.Steps, time.Since(start), err)
	if err != nil {
		h.respondError(c, "paths", err)
		return
	}

	c.JSON(http.StatusOK, pathsResponse{
		Seed:        seed,
		Steps:       paths.Steps(),
		Simulations: paths.Simulations(),
		Terminal:    simulation.Statistics(paths.FinalRow()),
		Paths:       paths.SamplePaths(sampleSize),
	})
}

// ListPortfoliosHandler returns all stored portfolios
func (h *Handlers) ListPortfoliosHandler(c *gin.Context) {
	portfolios, err := h.portfolios.GetAllPortfolios()
	if err != nil {
		h.respondError(c, "portfolio_list", err)
		return
	}

	c.JSON(http.StatusOK, portfolios)
}

// CreatePortfolioHandler validates and stores a new portfolio
func (h *Handlers) CreatePortfolioHandler(c *gin.Context) {
	var req portfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "portfolio_create", err)
		return
	}

	contracts, err := toContracts(req.Contracts)
	if err != nil {
		h.respondError(c, "portfolio_create", err)
		return
	}

	for i, contract := range contracts {
		if err := pricing.ValidateContract(contract); err != nil {
			h.respondError(c, "portfolio_create", errors.Wrapf(err, "contract %d", i))
			return
		}
	}

	portfolio, err := h.portfolios.CreatePortfolio(req.Name, contracts)
	if err != nil {
		h.respondError(c, "portfolio_create", err)
		return
	}

	h.log.Infof("Created portfolio %s (%s) with %d contracts", portfolio.ID, portfolio.Name, len(portfolio.Contracts))
	c.JSON(http.StatusCreated, portfolio)
}

// GetPortfolioHandler returns one portfolio
func (h *Handlers) GetPortfolioHandler(c *gin.Context) {
	portfolio, err := h.portfolios.GetPortfolio(c.Param("id"))
	if err != nil {
		h.respondError(c, "portfolio_get", err)
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

// DeletePortfolioHandler removes a portfolio
func (h *Handlers) DeletePortfolioHandler(c *gin.Context) {
	if err := h.portfolios.DeletePortfolio(c.Param("id")); err != nil {
		h.respondError(c, "portfolio_delete", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PortfolioScenarioHandler revalues a stored portfolio under the given
// conditions and pushes the run to websocket subscribers
func (h *Handlers) PortfolioScenarioHandler(c *gin.Context) {
	var req conditionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "scenario", err)
		return
	}

	portfolio, err := h.portfolios.GetPortfolio(c.Param("id"))
	if err != nil {
		h.respondError(c, "scenario", err)
		return
	}

	start := time.Now()
	run, err := h.scenarios.Run(c.Request.Context(), portfolio, req.Conditions)
	h.recorder.RecordScenario(len(req.Conditions), time.Since(start), err)
	if err != nil {
		h.respondError(c, "scenario", err)
		return
	}

	if h.hub != nil {
		h.hub.PublishScenarioRun(run)
	}

	c.JSON(http.StatusOK, run)
}

// ScenarioHandler revalues an inline portfolio under the given conditions
func (h *Handlers) ScenarioHandler(c *gin.Context) {
	var req scenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "scenario", err)
		return
	}

	contracts, err := toContracts(req.Portfolio)
	if err != nil {
		h.respondError(c, "scenario", err)
		return
	}

	start := time.Now()
	results, err := h.scenarios.Revalue(c.Request.Context(), contracts, req.Conditions)
	h.recorder.RecordScenario(len(req.Conditions), time.Since(start), err)
	if err != nil {
		h.respondError(c, "scenario", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
