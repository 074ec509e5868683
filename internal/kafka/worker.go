package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// Valuer prices a single contract with its Greeks
type Valuer interface {
	Evaluate(c models.OptionContract) (*models.Valuation, error)
}

// ScenarioRevaluer values a portfolio under a list of market conditions
type ScenarioRevaluer interface {
	Revalue(ctx context.Context, portfolio []models.OptionContract, conditions []models.MarketCondition) ([]models.ScenarioResult, error)
}

// SimulationRunner runs a full Monte Carlo simulation
type SimulationRunner interface {
	Run(ctx context.Context, req models.SimulationRequest) (*models.SimulationReport, error)
}

// ResultPublisher sends a result downstream
type ResultPublisher interface {
	ProduceJSON(ctx context.Context, key string, value interface{}) error
}

// WorkerRecorder records worker outcomes
type WorkerRecorder interface {
	RecordKafkaMessage(kind string, err error)
	RecordError(operation, kind string)
}

// WorkerConfig contains configuration for the pricing worker
type WorkerConfig struct {
	DefaultSteps       int
	DefaultSimulations int
	RequestTimeout     time.Duration
}

// PricingWorker turns ValuationRequest messages into ValuationResult
// messages. Results are published and never stored.
type PricingWorker struct {
	config    WorkerConfig
	valuer    Valuer
	scenarios ScenarioRevaluer
	runner    SimulationRunner
	results   ResultPublisher
	recorder  WorkerRecorder
	log       *logger.Logger
}

// NewPricingWorker creates a new pricing worker. recorder may be nil.
func NewPricingWorker(config WorkerConfig, valuer Valuer, scenarios ScenarioRevaluer, runner SimulationRunner, results ResultPublisher, recorder WorkerRecorder) *PricingWorker {
	if config.DefaultSteps <= 0 {
		config.DefaultSteps = 252
	}

	if config.DefaultSimulations <= 0 {
		config.DefaultSimulations = 10000
	}

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 2 * time.Minute
	}

	return &PricingWorker{
		config:    config,
		valuer:    valuer,
		scenarios: scenarios,
		runner:    runner,
		results:   results,
		recorder:  recorder,
		log:       logger.GetLogger("kafka.worker"),
	}
}

// HandleMessage is a MessageHandler. Requests that fail validation or
// computation produce an error result and are acknowledged; only a failure
// to publish is returned.
func (w *PricingWorker) HandleMessage(ctx context.Context, msg *Message) error {
	var req models.ValuationRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		w.log.Warnf("Discarding malformed request at offset %d: %v", msg.Offset, err)
		result := &models.ValuationResult{
			RequestID: string(msg.Key),
			Error:     detail(errors.InvalidArgument("malformed request: " + err.Error())),
			Timestamp: time.Now(),
		}
		w.record("unknown", result.Error)
		return w.publish(ctx, result)
	}

	if req.ID == "" {
		req.ID = string(msg.Key)
	}

	reqCtx, cancel := context.WithTimeout(ctx, w.config.RequestTimeout)
	defer cancel()

	result := w.Process(reqCtx, req)
	if result.Error != nil {
		w.record(string(req.Kind), result.Error)
		w.log.Warnf("Request %s (%s) failed: %s", req.ID, req.Kind, result.Error.Message)
	} else {
		w.record(string(req.Kind), nil)
	}

	return w.publish(ctx, result)
}

// Process runs one request to completion
func (w *PricingWorker) Process(ctx context.Context, req models.ValuationRequest) *models.ValuationResult {
	result := &models.ValuationResult{
		RequestID: req.ID,
		Kind:      req.Kind,
	}

	var err error
	switch req.Kind {
	case models.RequestKindPrice:
		if req.Contract == nil {
			err = errors.InvalidArgument("price request requires a contract")
			break
		}
		result.Valuation, err = w.valuer.Evaluate(*req.Contract)

	case models.RequestKindScenario:
		result.Scenario, err = w.scenarios.Revalue(ctx, req.Portfolio, req.Conditions)

	case models.RequestKindSimulation:
		if req.Simulation == nil {
			err = errors.InvalidArgument("simulation request requires simulation parameters")
			break
		}
		sim := req.Simulation.WithDefaults(w.config.DefaultSteps, w.config.DefaultSimulations)
		result.Simulation, err = w.runner.Run(ctx, sim)

	default:
		err = errors.InvalidArgument(fmt.Sprintf("unknown request kind %q", req.Kind))
	}

	if err != nil {
		result.Valuation, result.Scenario, result.Simulation = nil, nil, nil
		result.Error = detail(err)
	}
	result.Timestamp = time.Now()
	return result
}

func (w *PricingWorker) publish(ctx context.Context, result *models.ValuationResult) error {
	if err := w.results.ProduceJSON(ctx, result.RequestID, result); err != nil {
		return errors.Wrapf(err, "publish result for request %s", result.RequestID)
	}
	return nil
}

func (w *PricingWorker) record(kind string, failure *models.ErrorDetail) {
	if w.recorder == nil {
		return
	}
	if failure == nil {
		w.recorder.RecordKafkaMessage(kind, nil)
		return
	}
	w.recorder.RecordKafkaMessage(kind, errors.New(failure.Message))
	w.recorder.RecordError("kafka_"+kind, failure.Kind)
}

func detail(err error) *models.ErrorDetail {
	return &models.ErrorDetail{
		Kind:    errors.TypeOf(err).String(),
		Param:   errors.ParamOf(err),
		Message: err.Error(),
	}
}
