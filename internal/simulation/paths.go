package simulation

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// SimulatorConfig contains configuration for the path simulator
type SimulatorConfig struct {
	// BatchSize is the number of columns drawn from one random stream.
	// Changing it changes which draws land on which path.
	BatchSize      int
	Workers        int
	MaxSteps       int
	MaxSimulations int
	MaxCells       int
}

// PathSimulator generates geometric Brownian motion price paths
type PathSimulator struct {
	config  SimulatorConfig
	sources SourceFactory
	log     *logger.Logger
}

// NewPathSimulator creates a simulator drawing from the given source factory
func NewPathSimulator(config SimulatorConfig, sources SourceFactory) *PathSimulator {
	if config.BatchSize <= 0 {
		config.BatchSize = 4096
	}

	if config.Workers <= 0 {
		config.Workers = 4
	}

	if config.MaxSteps <= 0 {
		config.MaxSteps = 10000
	}

	if config.MaxSimulations <= 0 {
		config.MaxSimulations = 2000000
	}

	if config.MaxCells <= 0 {
		config.MaxCells = 100000000
	}

	return &PathSimulator{
		config:  config,
		sources: sources,
		log:     logger.GetLogger("simulation.paths"),
	}
}

// WithSource returns a simulator with the same limits drawing from sources
func (ps *PathSimulator) WithSource(sources SourceFactory) *PathSimulator {
	return &PathSimulator{
		config:  ps.config,
		sources: sources,
		log:     ps.log,
	}
}

// Seed returns the seed of the underlying random source
func (ps *PathSimulator) Seed() uint64 {
	return ps.sources.Seed()
}

// GeneratePaths simulates numSimulations paths of numSteps steps each using
// the exact lognormal update
//
//	S[t] = S[t-1] * exp((r - sigma^2/2)*dt + sigma*sqrt(dt)*Z)
//
// Rows are computed sequentially; disjoint column batches run concurrently,
// each with its own random stream. A failing batch does not stop its
// siblings, so the lowest failing batch is always the one reported. The
// context is only checked between batches.
func (ps *PathSimulator) GeneratePaths(ctx context.Context, s0, r, sigma, T float64, numSteps, numSimulations int) (*PricePathMatrix, error) {
	if err := ps.validate(s0, r, sigma, T, numSteps, numSimulations); err != nil {
		return nil, err
	}

	dt := T / float64(numSteps)
	drift := (r - 0.5*sigma*sigma) * dt
	diffusion := sigma * math.Sqrt(dt)
	if math.IsInf(drift, 0) || math.IsNaN(drift) || math.IsInf(diffusion, 0) {
		return nil, errors.Computation("volatility", "GBM step coefficients are not representable")
	}

	startTime := time.Now()
	paths := newPricePathMatrix(numSteps, numSimulations, s0)

	batchSize := ps.config.BatchSize
	numBatches := (numSimulations + batchSize - 1) / batchSize
	batchErrs := make([]error, numBatches)

	var g errgroup.Group
	g.SetLimit(ps.config.Workers)

	for b := 0; b < numBatches; b++ {
		from := b * batchSize
		to := min(from+batchSize, numSimulations)

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := ps.simulateBatch(paths, b, from, to, drift, diffusion); err != nil {
				batchErrs[b] = errors.Wrapf(err, "simulation batch %d (paths %d-%d)", b, from, to-1)
				return batchErrs[b]
			}
			return nil
		})
	}

	waitErr := g.Wait()
	for _, err := range batchErrs {
		if err != nil {
			return nil, err
		}
	}
	if waitErr != nil {
		return nil, waitErr
	}

	ps.log.Debugf("Generated %d paths x %d steps in %d batches in %v",
		numSimulations, numSteps, numBatches, time.Since(startTime))

	return paths, nil
}

// simulateBatch fills columns [from, to) of every row after the first,
// drawing one normal per column per step from the batch's own stream
func (ps *PathSimulator) simulateBatch(paths *PricePathMatrix, batch, from, to int, drift, diffusion float64) error {
	src := ps.sources.Stream(uint64(batch))
	cols := paths.sims

	for t := 1; t <= paths.steps; t++ {
		prev := paths.data[(t-1)*cols : t*cols]
		row := paths.data[t*cols : (t+1)*cols]

		for j := from; j < to; j++ {
			v := prev[j] * math.Exp(drift+diffusion*src.NormFloat64())
			if !(v > 0) || math.IsInf(v, 0) {
				return errors.Computation("price", "simulated price left the representable range")
			}
			row[j] = v
		}
	}

	return nil
}

func (ps *PathSimulator) validate(s0, r, sigma, T float64, numSteps, numSimulations int) error {
	if err := pricing.Positive("spot", s0); err != nil {
		return err
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return errors.Domain("rate", r, "finite")
	}
	if err := pricing.Positive("volatility", sigma); err != nil {
		return err
	}
	if err := pricing.Positive("maturity", T); err != nil {
		return err
	}
	if numSteps < 1 {
		return errors.Domain("num_steps", float64(numSteps), ">= 1")
	}
	if numSimulations < 1 {
		return errors.Domain("num_simulations", float64(numSimulations), ">= 1")
	}

	if numSteps > ps.config.MaxSteps {
		return errors.ResourceExhausted("num_steps", "num_steps exceeds the configured limit")
	}
	if numSimulations > ps.config.MaxSimulations {
		return errors.ResourceExhausted("num_simulations", "num_simulations exceeds the configured limit")
	}
	if (numSteps + 1) > ps.config.MaxCells/numSimulations {
		return errors.ResourceExhausted("num_simulations", "path matrix exceeds the configured cell limit")
	}

	return nil
}
