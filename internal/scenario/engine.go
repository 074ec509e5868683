package scenario

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// Pricer prices a single option contract
type Pricer interface {
	Price(c models.OptionContract) (float64, error)
}

// EngineConfig contains configuration for the scenario engine
type EngineConfig struct {
	Workers       int
	MaxConditions int
}

// Engine revalues portfolios of options under shocked market conditions
type Engine struct {
	config EngineConfig
	pricer Pricer
	log    *logger.Logger
}

// NewEngine creates a new scenario engine
func NewEngine(config EngineConfig, pricer Pricer) *Engine {
	if config.Workers <= 0 {
		config.Workers = 4
	}

	if config.MaxConditions <= 0 {
		config.MaxConditions = 10000
	}

	return &Engine{
		config: config,
		pricer: pricer,
		log:    logger.GetLogger("scenario.engine"),
	}
}

// ValueOption prices c after applying cond to its spot and volatility
func (e *Engine) ValueOption(c models.OptionContract, cond models.MarketCondition) (float64, error) {
	return e.pricer.Price(c.Shock(cond))
}

// RevaluePortfolio returns the summed value of portfolio under each
// condition, in condition order. Conditions are valued concurrently; when
// several fail, the error of the lowest condition index is returned.
func (e *Engine) RevaluePortfolio(ctx context.Context, portfolio []models.OptionContract, conditions []models.MarketCondition) ([]float64, error) {
	if len(conditions) > e.config.MaxConditions {
		return nil, errors.ResourceExhausted("conditions", "number of conditions exceeds the configured limit")
	}

	startTime := time.Now()
	values := make([]float64, len(conditions))
	failures := make([]error, len(conditions))

	it := iter.Iterator[models.MarketCondition]{MaxGoroutines: e.config.Workers}
	it.ForEachIdx(conditions, func(i int, cond *models.MarketCondition) {
		if err := ctx.Err(); err != nil {
			failures[i] = err
			return
		}

		var total float64
		for k, c := range portfolio {
			v, err := e.ValueOption(c, *cond)
			if err != nil {
				failures[i] = errors.Wrapf(err, "contract %d under condition %d", k, i)
				return
			}
			total += v
		}
		values[i] = total
	})

	for _, err := range failures {
		if err != nil {
			return nil, err
		}
	}

	e.log.Debugf("Revalued %d contracts under %d conditions in %v",
		len(portfolio), len(conditions), time.Since(startTime))

	return values, nil
}

// Revalue is RevaluePortfolio with each value paired with its condition
func (e *Engine) Revalue(ctx context.Context, portfolio []models.OptionContract, conditions []models.MarketCondition) ([]models.ScenarioResult, error) {
	values, err := e.RevaluePortfolio(ctx, portfolio, conditions)
	if err != nil {
		return nil, err
	}

	results := make([]models.ScenarioResult, len(conditions))
	for i, cond := range conditions {
		results[i] = models.ScenarioResult{Condition: cond, Value: values[i]}
	}
	return results, nil
}

// Run revalues a stored portfolio and records the unshocked value alongside
// the scenario results
func (e *Engine) Run(ctx context.Context, portfolio *models.Portfolio, conditions []models.MarketCondition) (*models.ScenarioRun, error) {
	if portfolio == nil {
		return nil, errors.InvalidArgument("portfolio is required")
	}

	base, err := e.RevaluePortfolio(ctx, portfolio.Contracts, []models.MarketCondition{{}})
	if err != nil {
		return nil, errors.Wrap(err, "base valuation")
	}

	values, err := e.RevaluePortfolio(ctx, portfolio.Contracts, conditions)
	if err != nil {
		e.log.Errorf("Scenario run for portfolio %s failed: %v", portfolio.ID, err)
		return nil, err
	}

	run := models.NewScenarioRun(uuid.NewString(), portfolio.ID, base[0], conditions, values)
	e.log.Infof("Scenario run %s for portfolio %s: %d conditions, base value %.4f",
		run.ID, portfolio.ID, len(conditions), run.BaseValue)

	return run, nil
}
