package simulation

import (
	"math"

	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

// CallPayoffs returns max(S_T - K, 0) for every simulated path
func CallPayoffs(paths *PricePathMatrix, strike float64) ([]float64, error) {
	return Payoffs(models.OptionTypeCall, paths, strike)
}

// PutPayoffs returns max(K - S_T, 0) for every simulated path
func PutPayoffs(paths *PricePathMatrix, strike float64) ([]float64, error) {
	return Payoffs(models.OptionTypePut, paths, strike)
}

// Payoffs returns the terminal payoff of a European option of the given
// type on every simulated path
func Payoffs(t models.OptionType, paths *PricePathMatrix, strike float64) ([]float64, error) {
	if paths == nil || paths.sims == 0 {
		return nil, errors.InvalidArgument("payoffs require a non-empty path matrix")
	}
	if err := pricing.Positive("strike", strike); err != nil {
		return nil, err
	}

	final := paths.FinalRow()
	payoffs := make([]float64, len(final))

	switch t {
	case models.OptionTypeCall:
		for j, s := range final {
			payoffs[j] = math.Max(s-strike, 0)
		}
	case models.OptionTypePut:
		for j, s := range final {
			payoffs[j] = math.Max(strike-s, 0)
		}
	default:
		return nil, errors.InvalidArgument("unsupported option type " + t.String())
	}

	return payoffs, nil
}

// DiscountedPrice is the Monte Carlo estimate exp(-rT) * mean(payoffs)
func DiscountedPrice(payoffs []float64, r, T float64) (float64, error) {
	discount, err := discountFactor(payoffs, r, T)
	if err != nil {
		return 0, err
	}

	mean, _ := meanAndStdDev(payoffs)
	return pricing.Finite("price", discount*mean)
}

// StandardError is the standard error of DiscountedPrice, exp(-rT)*sd/sqrt(n)
func StandardError(payoffs []float64, r, T float64) (float64, error) {
	discount, err := discountFactor(payoffs, r, T)
	if err != nil {
		return 0, err
	}

	_, sd := meanAndStdDev(payoffs)
	return pricing.Finite("standard_error", discount*sd/math.Sqrt(float64(len(payoffs))))
}

func discountFactor(payoffs []float64, r, T float64) (float64, error) {
	if len(payoffs) == 0 {
		return 0, errors.Domain("num_simulations", 0, ">= 1")
	}
	if err := pricing.Positive("maturity", T); err != nil {
		return 0, err
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, errors.Domain("rate", r, "finite")
	}

	discount := math.Exp(-r * T)
	if discount == 0 || math.IsInf(discount, 0) {
		return 0, errors.Computation("rate", "discount factor exp(-rT) is not representable")
	}
	return discount, nil
}

// PayoffHistogram buckets payoffs into the given number of equal-width bins
// spanning [min, max]
func PayoffHistogram(payoffs []float64, bins int) (models.Histogram, error) {
	if len(payoffs) == 0 {
		return models.Histogram{}, errors.InvalidArgument("histogram requires at least one payoff")
	}
	if bins < 1 {
		return models.Histogram{}, errors.InvalidArgument("histogram requires at least one bin")
	}

	stats := Statistics(payoffs)
	lo, hi := stats.Min, stats.Max
	width := (hi - lo) / float64(bins)

	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	counts := make([]int, bins)
	for _, p := range payoffs {
		idx := bins - 1
		if width > 0 {
			idx = min(int((p-lo)/width), bins-1)
		}
		counts[idx]++
	}

	return models.Histogram{Edges: edges, Counts: counts}, nil
}
