package simulation

import (
	"math"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
)

// Statistics returns the mean, population standard deviation, minimum and
// maximum of values. An empty slice yields the zero value.
func Statistics(values []float64) models.PathStatistics {
	if len(values) == 0 {
		return models.PathStatistics{}
	}

	mean, sd := meanAndStdDev(values)
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	return models.PathStatistics{
		Mean:   mean,
		StdDev: sd,
		Min:    lo,
		Max:    hi,
	}
}

// meanAndStdDev calculates the mean and population standard deviation.
// The sums run in slice order so results do not depend on how the values
// were produced. Values are scaled by a power of two below the largest
// magnitude first, so the sums cannot overflow and the scaling is exact.
func meanAndStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var largest float64
	for _, v := range values {
		largest = math.Max(largest, math.Abs(v))
	}
	_, exp := math.Frexp(largest)

	var sum float64
	for _, v := range values {
		sum += math.Ldexp(v, -exp)
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := math.Ldexp(v, -exp) - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return math.Ldexp(mean, exp), math.Ldexp(math.Sqrt(variance), exp)
}
