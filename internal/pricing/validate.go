package pricing

import (
	"math"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

// ValidateContract checks that spot, strike, maturity and volatility are
// strictly positive and that every field is finite. The rate may be any
// finite real.
func ValidateContract(c models.OptionContract) error {
	if err := Positive("spot", c.Spot); err != nil {
		return err
	}
	if err := Positive("strike", c.Strike); err != nil {
		return err
	}
	if err := Positive("maturity", c.Maturity); err != nil {
		return err
	}
	if math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0) {
		return errors.Domain("rate", c.Rate, "finite")
	}
	return Positive("volatility", c.Volatility)
}

// Positive returns a DomainError unless v is finite and > 0
func Positive(param string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return errors.Domain(param, v, "finite and > 0")
	}
	return nil
}
