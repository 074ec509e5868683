package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OptionType is the exercise right of a European option
type OptionType int

const (
	OptionTypeCall OptionType = iota
	OptionTypePut
)

// String returns "call" or "put"
func (t OptionType) String() string {
	switch t {
	case OptionTypeCall:
		return "call"
	case OptionTypePut:
		return "put"
	default:
		return fmt.Sprintf("OptionType(%d)", int(t))
	}
}

// ParseOptionType parses "call" or "put", case-insensitively
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call":
		return OptionTypeCall, nil
	case "put":
		return OptionTypePut, nil
	default:
		return 0, fmt.Errorf("unknown option type %q", s)
	}
}

// MarshalJSON encodes the type as its name
func (t OptionType) MarshalJSON() ([]byte, error) {
	switch t {
	case OptionTypeCall, OptionTypePut:
		return json.Marshal(t.String())
	default:
		return nil, fmt.Errorf("cannot marshal %s", t)
	}
}

// UnmarshalJSON decodes "call" or "put"
func (t *OptionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOptionType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// OptionContract is a single European option together with the market
// parameters it is priced under. Maturity is in years.
type OptionContract struct {
	Type       OptionType `json:"type"`
	Spot       float64    `json:"spot"`
	Strike     float64    `json:"strike"`
	Maturity   float64    `json:"maturity"`
	Rate       float64    `json:"rate"`
	Volatility float64    `json:"volatility"`
}

// MarketCondition is a hypothetical market move. PriceChange is relative
// (0.1 = +10%), VolatilityChange is an absolute shift added to sigma.
type MarketCondition struct {
	PriceChange      float64 `json:"price_change"`
	VolatilityChange float64 `json:"volatility_change"`
}

// Shock returns the contract with the condition applied to spot and volatility
func (c OptionContract) Shock(cond MarketCondition) OptionContract {
	shocked := c
	shocked.Spot = c.Spot * (1 + cond.PriceChange)
	shocked.Volatility = c.Volatility + cond.VolatilityChange
	return shocked
}

// GreekSet holds the sensitivities of one option at one underlying price.
// Vega is per volatility point, Theta per calendar day, Rho per 1% rate move.
type GreekSet struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// Valuation is the closed-form price and Greeks of a contract
type Valuation struct {
	Contract OptionContract `json:"contract"`
	Price    float64        `json:"price"`
	Greeks   GreekSet       `json:"greeks"`
}

// GreeksPoint is the Greek set of a contract evaluated at one spot price
type GreeksPoint struct {
	Spot   float64  `json:"spot"`
	Greeks GreekSet `json:"greeks"`
}
