package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

func atTheMoney(t models.OptionType) models.OptionContract {
	return models.OptionContract{Type: t, Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2}
}

func TestReferencePrices(t *testing.T) {
	call, err := CallPrice(100, 100, 1, 0.05, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, 10.4506, call, 1e-4)

	put, err := PutPrice(100, 100, 1, 0.05, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, 5.5735, put, 1e-4)
}

func TestReferenceGreeks(t *testing.T) {
	cases := []struct {
		name string
		fn   func(S, K, T, r, sigma float64) (float64, error)
		want float64
		tol  float64
	}{
		{"call delta", CallDelta, 0.6368, 5e-5},
		{"put delta", PutDelta, -0.3632, 5e-5},
		{"gamma", Gamma, 0.01876, 5e-6},
		{"vega", Vega, 0.3752, 5e-5},
		{"call theta", CallTheta, -0.0176, 5e-5},
		{"put theta", PutTheta, -0.0045, 5e-5},
		{"call rho", CallRho, 0.5323, 5e-5},
		{"put rho", PutRho, -0.4189, 5e-5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.fn(100, 100, 1, 0.05, 0.2)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, tc.tol)
		})
	}
}

func TestEvaluateMatchesScalarFunctions(t *testing.T) {
	pricer := NewBlackScholesPricer()

	val, err := pricer.Evaluate(atTheMoney(models.OptionTypePut))
	require.NoError(t, err)

	put, _ := PutPrice(100, 100, 1, 0.05, 0.2)
	theta, _ := PutTheta(100, 100, 1, 0.05, 0.2)
	rho, _ := PutRho(100, 100, 1, 0.05, 0.2)

	assert.Equal(t, put, val.Price)
	assert.Equal(t, theta, val.Greeks.Theta)
	assert.Equal(t, rho, val.Greeks.Rho)
	assert.Equal(t, atTheMoney(models.OptionTypePut), val.Contract)
}

func TestThetaIsReportedPerCalendarDay(t *testing.T) {
	c := atTheMoney(models.OptionTypeCall)
	in, err := prepare(c)
	require.NoError(t, err)

	annual := -c.Spot*normalPDF(in.d1)*c.Volatility/(2*math.Sqrt(c.Maturity)) -
		c.Rate*c.Strike*math.Exp(-c.Rate*c.Maturity)*normalCDF(in.d2)

	theta, err := CallTheta(c.Spot, c.Strike, c.Maturity, c.Rate, c.Volatility)
	require.NoError(t, err)
	assert.InDelta(t, annual/365, theta, 1e-12)
}

func TestPutCallParity(t *testing.T) {
	spots := []float64{50, 90, 100, 110, 250}
	strikes := []float64{60, 100, 140}
	maturities := []float64{0.05, 0.5, 1, 3}
	rates := []float64{-0.01, 0, 0.05, 0.12}
	vols := []float64{0.05, 0.2, 0.6}

	for _, S := range spots {
		for _, K := range strikes {
			for _, T := range maturities {
				for _, r := range rates {
					for _, sigma := range vols {
						call, err := CallPrice(S, K, T, r, sigma)
						require.NoError(t, err)
						put, err := PutPrice(S, K, T, r, sigma)
						require.NoError(t, err)

						assert.InDelta(t, S-K*math.Exp(-r*T), call-put, 1e-9,
							"S=%v K=%v T=%v r=%v sigma=%v", S, K, T, r, sigma)
					}
				}
			}
		}
	}
}

func TestGreekBounds(t *testing.T) {
	pricer := NewBlackScholesPricer()

	for _, S := range []float64{1, 40, 100, 160, 1000} {
		for _, sigma := range []float64{0.01, 0.3, 1.5} {
			for _, T := range []float64{0.01, 1, 10} {
				call := models.OptionContract{Type: models.OptionTypeCall, Spot: S, Strike: 100, Maturity: T, Rate: 0.03, Volatility: sigma}
				put := call
				put.Type = models.OptionTypePut

				cg, err := pricer.CalculateGreeks(call)
				require.NoError(t, err)
				pg, err := pricer.CalculateGreeks(put)
				require.NoError(t, err)

				assert.GreaterOrEqual(t, cg.Delta, 0.0)
				assert.LessOrEqual(t, cg.Delta, 1.0)
				assert.GreaterOrEqual(t, pg.Delta, -1.0)
				assert.LessOrEqual(t, pg.Delta, 0.0)
				assert.GreaterOrEqual(t, cg.Gamma, 0.0)
				assert.GreaterOrEqual(t, cg.Vega, 0.0)
				assert.Equal(t, cg.Gamma, pg.Gamma)
				assert.Equal(t, cg.Vega, pg.Vega)
			}
		}
	}
}

func TestInvalidInputsRaiseDomainError(t *testing.T) {
	pricer := NewBlackScholesPricer()

	cases := []struct {
		param  string
		mutate func(*models.OptionContract)
	}{
		{"spot", func(c *models.OptionContract) { c.Spot = 0 }},
		{"spot", func(c *models.OptionContract) { c.Spot = -5 }},
		{"strike", func(c *models.OptionContract) { c.Strike = 0 }},
		{"maturity", func(c *models.OptionContract) { c.Maturity = 0 }},
		{"maturity", func(c *models.OptionContract) { c.Maturity = -1 }},
		{"volatility", func(c *models.OptionContract) { c.Volatility = 0 }},
		{"volatility", func(c *models.OptionContract) { c.Volatility = math.NaN() }},
		{"rate", func(c *models.OptionContract) { c.Rate = math.Inf(1) }},
	}

	for _, tc := range cases {
		t.Run(tc.param, func(t *testing.T) {
			c := atTheMoney(models.OptionTypeCall)
			tc.mutate(&c)

			_, err := pricer.Price(c)
			require.Error(t, err)
			assert.True(t, errors.IsDomain(err))
			assert.Equal(t, tc.param, errors.ParamOf(err))

			_, err = pricer.CalculateGreeks(c)
			assert.True(t, errors.IsDomain(err))

			val, err := pricer.Evaluate(c)
			assert.Nil(t, val)
			assert.True(t, errors.IsDomain(err))
		})
	}
}

func TestExtremeInputsRaiseComputationError(t *testing.T) {
	// exp(-rT) underflows to zero
	_, err := CallPrice(100, 100, 1e6, 5, 0.2)
	require.Error(t, err)
	assert.True(t, errors.IsComputation(err))

	// sigma*sqrt(T) overflows
	_, err = PutPrice(100, 100, 1e300, 0, 1e200)
	require.Error(t, err)
	assert.True(t, errors.IsComputation(err))
}

func TestGreeksProfile(t *testing.T) {
	pricer := NewBlackScholesPricer()
	spots := []float64{80, 90, 100, 110, 120}

	profile, err := pricer.GreeksProfile(atTheMoney(models.OptionTypeCall), spots)
	require.NoError(t, err)
	require.Len(t, profile, len(spots))

	for i := 1; i < len(profile); i++ {
		assert.Equal(t, spots[i], profile[i].Spot)
		assert.Greater(t, profile[i].Greeks.Delta, profile[i-1].Greeks.Delta)
	}

	_, err = pricer.GreeksProfile(atTheMoney(models.OptionTypeCall), []float64{100, -1})
	assert.True(t, errors.IsDomain(err))
	assert.Contains(t, err.Error(), "greeks profile point 1")
}
