package simulation

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// Analytics is the closed-form side of a simulation run
type Analytics interface {
	Price(c models.OptionContract) (float64, error)
	GreeksProfile(c models.OptionContract, spots []float64) ([]models.GreeksPoint, error)
}

// RunnerConfig contains configuration for simulation runs
type RunnerConfig struct {
	HistogramBins int
	SamplePaths   int
	// FixedSeed, when set, is used for requests that carry no seed
	FixedSeed *uint64
}

// Runner performs a complete simulation run for one set of market
// parameters: paths, payoffs, Monte Carlo and analytic prices, and the data
// needed to chart them
type Runner struct {
	config    RunnerConfig
	simulator *PathSimulator
	analytics Analytics
	log       *logger.Logger
}

// NewRunner creates a new simulation runner
func NewRunner(config RunnerConfig, simulator *PathSimulator, analytics Analytics) *Runner {
	if config.HistogramBins <= 0 {
		config.HistogramBins = 50
	}

	if config.SamplePaths <= 0 {
		config.SamplePaths = 10
	}

	return &Runner{
		config:    config,
		simulator: simulator,
		analytics: analytics,
		log:       logger.GetLogger("simulation.runner"),
	}
}

// Paths generates a path matrix for the request using the request's seed,
// the configured fixed seed, or a fresh random seed, in that order
func (r *Runner) Paths(ctx context.Context, req models.SimulationRequest) (*PricePathMatrix, uint64, error) {
	seed := r.seedFor(req)
	simulator := r.simulator.WithSource(NewPCGFactory(seed))

	paths, err := simulator.GeneratePaths(ctx, req.Spot, req.Rate, req.Volatility, req.Maturity, req.Steps, req.Simulations)
	if err != nil {
		return nil, seed, err
	}
	return paths, seed, nil
}

// Run executes the full simulation described by req
func (r *Runner) Run(ctx context.Context, req models.SimulationRequest) (*models.SimulationReport, error) {
	startTime := time.Now()

	paths, seed, err := r.Paths(ctx, req)
	if err != nil {
		return nil, err
	}

	report := &models.SimulationReport{
		ID:          uuid.NewString(),
		Request:     req,
		Seed:        seed,
		Terminal:    Statistics(paths.FinalRow()),
		SamplePaths: paths.SamplePaths(r.config.SamplePaths),
	}

	call := models.OptionContract{
		Type:       models.OptionTypeCall,
		Spot:       req.Spot,
		Strike:     req.Strike,
		Maturity:   req.Maturity,
		Rate:       req.Rate,
		Volatility: req.Volatility,
	}
	put := call
	put.Type = models.OptionTypePut

	var callPayoffs, putPayoffs []float64
	if report.Call, callPayoffs, err = r.estimate(call, paths); err != nil {
		return nil, errors.Wrap(err, "call estimate")
	}
	if report.Put, putPayoffs, err = r.estimate(put, paths); err != nil {
		return nil, errors.Wrap(err, "put estimate")
	}

	if report.CallPayoffs, err = PayoffHistogram(callPayoffs, r.config.HistogramBins); err != nil {
		return nil, err
	}
	if report.PutPayoffs, err = PayoffHistogram(putPayoffs, r.config.HistogramBins); err != nil {
		return nil, err
	}

	// Greeks are charted against the prices along the first simulated path
	spots := paths.Column(0)
	if report.CallGreeks, err = r.analytics.GreeksProfile(call, spots); err != nil {
		return nil, errors.Wrap(err, "call greeks")
	}
	if report.PutGreeks, err = r.analytics.GreeksProfile(put, spots); err != nil {
		return nil, errors.Wrap(err, "put greeks")
	}

	report.Summary = summarize(req, report)
	report.Duration = time.Since(startTime)
	report.GeneratedAt = time.Now()

	r.log.Infof("Simulation %s: %d paths x %d steps, call %.4f (bs %.4f), put %.4f (bs %.4f) in %v",
		report.ID, req.Simulations, req.Steps, report.Call.Price, report.Call.Analytic,
		report.Put.Price, report.Put.Analytic, report.Duration)

	return report, nil
}

func (r *Runner) estimate(c models.OptionContract, paths *PricePathMatrix) (models.MonteCarloEstimate, []float64, error) {
	payoffs, err := Payoffs(c.Type, paths, c.Strike)
	if err != nil {
		return models.MonteCarloEstimate{}, nil, err
	}

	price, err := DiscountedPrice(payoffs, c.Rate, c.Maturity)
	if err != nil {
		return models.MonteCarloEstimate{}, nil, err
	}

	stdErr, err := StandardError(payoffs, c.Rate, c.Maturity)
	if err != nil {
		return models.MonteCarloEstimate{}, nil, err
	}

	analytic, err := r.analytics.Price(c)
	if err != nil {
		return models.MonteCarloEstimate{}, nil, err
	}

	return models.MonteCarloEstimate{
		Price:         price,
		StandardError: stdErr,
		Analytic:      analytic,
	}, payoffs, nil
}

func (r *Runner) seedFor(req models.SimulationRequest) uint64 {
	switch {
	case req.Seed != nil:
		return *req.Seed
	case r.config.FixedSeed != nil:
		return *r.config.FixedSeed
	default:
		return RandomSeed()
	}
}

// summarize renders the run's parameters and Monte Carlo prices rounded for
// display
func summarize(req models.SimulationRequest, report *models.SimulationReport) map[string]string {
	round := func(v float64) string {
		return decimal.NewFromFloat(v).StringFixed(2)
	}

	return map[string]string{
		"spot":           round(req.Spot),
		"strike":         round(req.Strike),
		"maturity_years": decimal.NewFromFloat(req.Maturity).StringFixed(4),
		"rate":           decimal.NewFromFloat(req.Rate).StringFixed(4),
		"volatility":     decimal.NewFromFloat(req.Volatility).StringFixed(4),
		"simulations":    strconv.Itoa(req.Simulations),
		"steps":          strconv.Itoa(req.Steps),
		"call_mc":        round(report.Call.Price),
		"put_mc":         round(report.Put.Price),
		"call_bs":        round(report.Call.Analytic),
		"put_bs":         round(report.Put.Analytic),
	}
}
