package pricing

import (
	"math"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// Reporting units for the sensitivities. Vega is quoted per volatility
// point, Rho per 1% rate move and Theta per calendar day.
const (
	vegaScale  = 100.0
	rhoScale   = 100.0
	thetaScale = 365.0
)

// Pricer prices a single European option in closed form
type Pricer interface {
	Price(c models.OptionContract) (float64, error)
	CalculateGreeks(c models.OptionContract) (models.GreekSet, error)
	Evaluate(c models.OptionContract) (*models.Valuation, error)
}

// BlackScholesPricer implements the Black-Scholes model without dividends
type BlackScholesPricer struct {
	log *logger.Logger
}

// NewBlackScholesPricer creates a new Black-Scholes pricer
func NewBlackScholesPricer() *BlackScholesPricer {
	return &BlackScholesPricer{
		log: logger.GetLogger("pricing.blackscholes"),
	}
}

// Price returns the premium of the contract, dispatching on its type
func (bs *BlackScholesPricer) Price(c models.OptionContract) (float64, error) {
	in, err := prepare(c)
	if err != nil {
		bs.log.Debugf("Rejected contract %+v: %v", c, err)
		return 0, err
	}

	var price float64
	switch c.Type {
	case models.OptionTypeCall:
		price = in.callPrice()
	case models.OptionTypePut:
		price = in.putPrice()
	default:
		return 0, errors.InvalidArgument("unsupported option type " + c.Type.String())
	}

	return Finite("price", price)
}

// CalculateGreeks returns Delta, Gamma, Vega, Theta and Rho for the contract
func (bs *BlackScholesPricer) CalculateGreeks(c models.OptionContract) (models.GreekSet, error) {
	in, err := prepare(c)
	if err != nil {
		bs.log.Debugf("Rejected contract %+v: %v", c, err)
		return models.GreekSet{}, err
	}

	greeks, err := in.greeks(c.Type)
	if err != nil {
		return models.GreekSet{}, err
	}

	return greeks, checkGreeks(greeks)
}

// Evaluate returns the price and the Greeks of the contract in one pass
func (bs *BlackScholesPricer) Evaluate(c models.OptionContract) (*models.Valuation, error) {
	price, err := bs.Price(c)
	if err != nil {
		return nil, err
	}

	greeks, err := bs.CalculateGreeks(c)
	if err != nil {
		return nil, err
	}

	return &models.Valuation{
		Contract: c,
		Price:    price,
		Greeks:   greeks,
	}, nil
}

// GreeksProfile evaluates the Greeks of the contract at each of the given
// underlying prices, keeping every other parameter fixed
func (bs *BlackScholesPricer) GreeksProfile(c models.OptionContract, spots []float64) ([]models.GreeksPoint, error) {
	profile := make([]models.GreeksPoint, len(spots))
	for i, s := range spots {
		at := c
		at.Spot = s

		greeks, err := bs.CalculateGreeks(at)
		if err != nil {
			return nil, errors.Wrapf(err, "greeks profile point %d", i)
		}
		profile[i] = models.GreeksPoint{Spot: s, Greeks: greeks}
	}

	return profile, nil
}

// inputs holds a validated contract with d1, d2 and the discount factor
// already computed
type inputs struct {
	S, K, T, r, sigma float64
	sqrtT             float64
	d1, d2            float64
	discount          float64
}

// prepare validates the contract and computes the shared intermediates.
// No formula is evaluated for a contract outside the model's domain.
func prepare(c models.OptionContract) (*inputs, error) {
	if err := ValidateContract(c); err != nil {
		return nil, err
	}

	S, K, T, r, sigma := c.Spot, c.Strike, c.Maturity, c.Rate, c.Volatility
	sqrtT := math.Sqrt(T)
	volSqrtT := sigma * sqrtT
	if math.IsInf(volSqrtT, 0) || volSqrtT == 0 {
		return nil, errors.Computation("volatility", "sigma*sqrt(T) is not representable")
	}

	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / volSqrtT
	if math.IsNaN(d1) || math.IsInf(d1, 0) {
		return nil, errors.Computation("d1", "d1 is not finite")
	}
	d2 := d1 - volSqrtT

	discount := math.Exp(-r * T)
	if discount == 0 || math.IsInf(discount, 0) {
		return nil, errors.Computation("rate", "discount factor exp(-rT) is not representable")
	}

	return &inputs{
		S: S, K: K, T: T, r: r, sigma: sigma,
		sqrtT:    sqrtT,
		d1:       d1,
		d2:       d2,
		discount: discount,
	}, nil
}

func (in *inputs) callPrice() float64 {
	return in.S*normalCDF(in.d1) - in.K*in.discount*normalCDF(in.d2)
}

func (in *inputs) putPrice() float64 {
	return in.K*in.discount*normalCDF(-in.d2) - in.S*normalCDF(-in.d1)
}

func (in *inputs) greeks(t models.OptionType) (models.GreekSet, error) {
	pdf := normalPDF(in.d1)

	// Gamma and Vega are shared by calls and puts
	greeks := models.GreekSet{
		Gamma: pdf / (in.S * in.sigma * in.sqrtT),
		Vega:  in.S * pdf * in.sqrtT / vegaScale,
	}

	decay := -in.S * pdf * in.sigma / (2 * in.sqrtT)
	switch t {
	case models.OptionTypeCall:
		greeks.Delta = normalCDF(in.d1)
		greeks.Theta = (decay - in.r*in.K*in.discount*normalCDF(in.d2)) / thetaScale
		greeks.Rho = in.K * in.T * in.discount * normalCDF(in.d2) / rhoScale
	case models.OptionTypePut:
		greeks.Delta = normalCDF(in.d1) - 1
		greeks.Theta = (decay + in.r*in.K*in.discount*normalCDF(-in.d2)) / thetaScale
		greeks.Rho = -in.K * in.T * in.discount * normalCDF(-in.d2) / rhoScale
	default:
		return models.GreekSet{}, errors.InvalidArgument("unsupported option type " + t.String())
	}

	return greeks, nil
}

func checkGreeks(g models.GreekSet) error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"delta", g.Delta},
		{"gamma", g.Gamma},
		{"vega", g.Vega},
		{"theta", g.Theta},
		{"rho", g.Rho},
	} {
		if _, err := Finite(v.name, v.value); err != nil {
			return err
		}
	}
	return nil
}

// Finite returns v, or a ComputationError tagged with name when v is NaN or
// infinite
func Finite(name string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Computation(name, name+" is not finite")
	}
	return v, nil
}

// normalCDF returns the cumulative distribution function of the standard normal distribution
func normalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normalPDF returns the probability density function of the standard normal distribution
func normalPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
