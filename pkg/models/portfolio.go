package models

import (
	"time"
)

// Portfolio is a named collection of option contracts
type Portfolio struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Contracts []OptionContract `json:"contracts"`
	Created   time.Time        `json:"created"`
	Updated   time.Time        `json:"updated"`
}

// The value of a portfolio under one market condition
type ScenarioResult struct {
	Condition MarketCondition `json:"condition"`
	Value     float64         `json:"value"`
}

// A completed revaluation of a portfolio over a list of conditions
type ScenarioRun struct {
	ID          string           `json:"id"`
	PortfolioID string           `json:"portfolio_id,omitempty"`
	BaseValue   float64          `json:"base_value"`
	Results     []ScenarioResult `json:"results"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Creates a ScenarioRun pairing each condition with its value
func NewScenarioRun(id, portfolioID string, baseValue float64, conditions []MarketCondition, values []float64) *ScenarioRun {
	results := make([]ScenarioResult, len(conditions))
	for i, cond := range conditions {
		results[i] = ScenarioResult{Condition: cond, Value: values[i]}
	}

	return &ScenarioRun{
		ID:          id,
		PortfolioID: portfolioID,
		BaseValue:   baseValue,
		Results:     results,
		Timestamp:   time.Now(),
	}
}
