package models

import (
	"time"
)

// Summary statistics of one row of a path matrix
type PathStatistics struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Equal-width histogram. Edges has len(Counts)+1 entries.
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// A Monte Carlo estimate together with its standard error
type MonteCarloEstimate struct {
	Price         float64 `json:"price"`
	StandardError float64 `json:"standard_error"`
	Analytic      float64 `json:"analytic"`
}

// Parameters of a full simulation run
type SimulationRequest struct {
	Spot        float64 `json:"spot"`
	Strike      float64 `json:"strike"`
	Maturity    float64 `json:"maturity"`
	Rate        float64 `json:"rate"`
	Volatility  float64 `json:"volatility"`
	Steps       int     `json:"steps"`
	Simulations int     `json:"simulations"`
	Seed        *uint64 `json:"seed,omitempty"`
}

// The outputs of a full simulation run, ready to be charted or summarised
type SimulationReport struct {
	ID          string             `json:"id"`
	Request     SimulationRequest  `json:"request"`
	Seed        uint64             `json:"seed"`
	Call        MonteCarloEstimate `json:"call"`
	Put         MonteCarloEstimate `json:"put"`
	Terminal    PathStatistics     `json:"terminal"`
	SamplePaths [][]float64        `json:"sample_paths"`
	CallPayoffs Histogram          `json:"call_payoffs"`
	PutPayoffs  Histogram          `json:"put_payoffs"`
	CallGreeks  []GreeksPoint      `json:"call_greeks"`
	PutGreeks   []GreeksPoint      `json:"put_greeks"`
	Summary     map[string]string  `json:"summary"`
	Duration    time.Duration      `json:"duration"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// WithDefaults fills in a zero step or simulation count
func (r SimulationRequest) WithDefaults(steps, simulations int) SimulationRequest {
	if r.Steps == 0 {
		r.Steps = steps
	}
	if r.Simulations == 0 {
		r.Simulations = simulations
	}
	return r
}
