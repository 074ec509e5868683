package models

import (
	"time"
)

// RequestKind selects the computation a ValuationRequest asks for
type RequestKind string

const (
	RequestKindPrice      RequestKind = "price"
	RequestKindScenario   RequestKind = "scenario"
	RequestKindSimulation RequestKind = "simulation"
)

// ValuationRequest is a pricing job received from a queue. Only the fields
// for its Kind are read.
type ValuationRequest struct {
	ID         string             `json:"id"`
	Kind       RequestKind        `json:"kind"`
	Contract   *OptionContract    `json:"contract,omitempty"`
	Portfolio  []OptionContract   `json:"portfolio,omitempty"`
	Conditions []MarketCondition  `json:"conditions,omitempty"`
	Simulation *SimulationRequest `json:"simulation,omitempty"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValuationResult is the reply to a ValuationRequest. Exactly one of the
// payload fields or Error is set.
type ValuationResult struct {
	RequestID  string            `json:"request_id"`
	Kind       RequestKind       `json:"kind"`
	Valuation  *Valuation        `json:"valuation,omitempty"`
	Scenario   []ScenarioResult  `json:"scenario,omitempty"`
	Simulation *SimulationReport `json:"simulation,omitempty"`
	Error      *ErrorDetail      `json:"error,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}
