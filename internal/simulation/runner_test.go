package simulation

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

func newRunner(fixed *uint64) *Runner {
	simulator := NewPathSimulator(SimulatorConfig{BatchSize: 512, Workers: 4}, NewPCGFactory(0))
	return NewRunner(RunnerConfig{FixedSeed: fixed}, simulator, pricing.NewBlackScholesPricer())
}

func baseRequest() models.SimulationRequest {
	return models.SimulationRequest{
		Spot:        100,
		Strike:      100,
		Maturity:    1,
		Rate:        0.05,
		Volatility:  0.2,
		Steps:       252,
		Simulations: 10000,
	}
}

func TestRunProducesCompleteReport(t *testing.T) {
	seed := uint64(42)
	req := baseRequest()
	req.Seed = &seed

	report, err := newRunner(nil).Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, seed, report.Seed)
	assert.InDelta(t, 10.4506, report.Call.Analytic, 1e-4)
	assert.InDelta(t, 5.5735, report.Put.Analytic, 1e-4)
	assert.InDelta(t, report.Call.Analytic, report.Call.Price, report.Call.Analytic*0.05)
	assert.InDelta(t, report.Put.Analytic, report.Put.Price, report.Put.Analytic*0.05)
	assert.Greater(t, report.Call.StandardError, 0.0)

	require.Len(t, report.SamplePaths, 10)
	assert.Len(t, report.SamplePaths[0], 253)
	assert.Equal(t, 100.0, report.SamplePaths[0][0])

	assert.Len(t, report.CallPayoffs.Counts, 50)
	assert.Len(t, report.PutPayoffs.Edges, 51)

	require.Len(t, report.CallGreeks, 253)
	require.Len(t, report.PutGreeks, 253)
	for i, p := range report.CallGreeks {
		assert.Equal(t, report.SamplePaths[0][i], p.Spot)
	}

	assert.Equal(t, "100.00", report.Summary["spot"])
	assert.Equal(t, "10000", report.Summary["simulations"])
	assert.Equal(t, "10.45", report.Summary["call_bs"])
	assert.Equal(t, "5.57", report.Summary["put_bs"])
}

func TestRunIsReproducibleForAFixedSeed(t *testing.T) {
	seed := uint64(7)
	runner := newRunner(&seed)
	req := baseRequest()
	req.Simulations = 2000

	first, err := runner.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := runner.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), first.Seed)
	assert.Equal(t, first.Call, second.Call)
	assert.Equal(t, first.SamplePaths, second.SamplePaths)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRequestSeedOverridesFixedSeed(t *testing.T) {
	fixed, requested := uint64(1), uint64(2)
	runner := newRunner(&fixed)

	req := baseRequest()
	req.Simulations = 100
	req.Seed = &requested

	_, seed, err := runner.Paths(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, requested, seed)

	req.Seed = nil
	_, seed, err = runner.Paths(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, fixed, seed)
}

func TestRunRejectsInvalidStrike(t *testing.T) {
	req := baseRequest()
	req.Simulations = 100
	req.Strike = -5

	_, err := newRunner(nil).Run(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.IsDomain(err))
	assert.Equal(t, "strike", errors.ParamOf(err))
}

type flatAnalytics struct{}

func (flatAnalytics) Price(models.OptionContract) (float64, error) { return 1, nil }

func (flatAnalytics) GreeksProfile(_ models.OptionContract, spots []float64) ([]models.GreeksPoint, error) {
	return make([]models.GreeksPoint, len(spots)), nil
}

func TestRunSurfacesNonFiniteMonteCarloPrice(t *testing.T) {
	simulator := NewPathSimulator(SimulatorConfig{}, NewPCGFactory(0))
	runner := NewRunner(RunnerConfig{}, simulator, flatAnalytics{})

	req := baseRequest()
	req.Spot = 1
	req.Strike = math.MaxFloat64
	req.Rate = -1
	req.Steps = 4
	req.Simulations = 16

	var report *models.SimulationReport
	var err error
	require.NotPanics(t, func() {
		report, err = runner.Run(context.Background(), req)
	})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.IsComputation(err))
	assert.Equal(t, "price", errors.ParamOf(err))
}
