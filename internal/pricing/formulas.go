package pricing

import (
	"github.com/rzzdr/option-pricing-engine/pkg/models"
)

// The functions below evaluate one quantity for scalar inputs
// (S, K, T, r, sigma). They validate like the pricer does.

func contract(t models.OptionType, S, K, T, r, sigma float64) models.OptionContract {
	return models.OptionContract{Type: t, Spot: S, Strike: K, Maturity: T, Rate: r, Volatility: sigma}
}

func greek(t models.OptionType, S, K, T, r, sigma float64, pick func(models.GreekSet) float64) (float64, error) {
	in, err := prepare(contract(t, S, K, T, r, sigma))
	if err != nil {
		return 0, err
	}
	g, err := in.greeks(t)
	if err != nil {
		return 0, err
	}
	return Finite("greek", pick(g))
}

// CallPrice is the Black-Scholes premium of a European call
func CallPrice(S, K, T, r, sigma float64) (float64, error) {
	in, err := prepare(contract(models.OptionTypeCall, S, K, T, r, sigma))
	if err != nil {
		return 0, err
	}
	return Finite("price", in.callPrice())
}

// PutPrice is the Black-Scholes premium of a European put
func PutPrice(S, K, T, r, sigma float64) (float64, error) {
	in, err := prepare(contract(models.OptionTypePut, S, K, T, r, sigma))
	if err != nil {
		return 0, err
	}
	return Finite("price", in.putPrice())
}

// CallDelta is N(d1)
func CallDelta(S, K, T, r, sigma float64) (float64, error) {
	return greek(models.OptionTypeCall, S, K, T, r, sigma, func(g models.GreekSet) float64 { return g.Delta })
}

// PutDelta is N(d1) - 1
func PutDelta(S, K, T, r, sigma float64) (float64, error) {
	return greek(models.OptionTypePut, S, K, T, r, sigma, func(g models.GreekSet) float64 { return g.Delta })
}

// Gamma is identical for calls and puts
func Gamma(S, K, T, r, sigma float64) (float64, error) {
	return greek(models.OptionTypeCall, S, K, T, r, sigma, func(g models.GreekSet) float64 { return g.Gamma })
}

// Vega is identical for calls and puts, per volatility point
func Vega(S, K, T, r, sigma float64) (float64, error) {
	return greek(models.OptionTypeCall, S, K, T, r, sigma, func(g models.GreekSet) float64 { return g.Vega })
}

// CallTheta is per calendar day
func CallTheta(S, K, T, r, sigma float64) (float64, error) {
	return greek(models.OptionTypeCall, S, K, T, r, sigma, func(g models.GreekSet) float64 { return g.Theta })
}

// PutTheta is per calendar day
func PutTheta(S, K, T, r, sigma float64) (float64, error) {
	return greek(models.OptionTypePut, S, K, T, r, sigma, func(g models.GreekSet) float64 { return g.Theta })
}

// CallRho is per 1% rate move
func CallRho(S, K, T, r, sigma float64) (float64, error) {
	return greek(models.OptionTypeCall, S, K, T, r, sigma, func(g models.GreekSet) float64 { return g.Rho })
}

// PutRho is per 1% rate move
func PutRho(S, K, T, r, sigma float64) (float64, error) {
	return greek(models.OptionTypePut, S, K, T, r, sigma, func(g models.GreekSet) float64 { return g.Rho })
}
