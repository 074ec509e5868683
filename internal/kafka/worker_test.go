package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/internal/scenario"
	"github.com/rzzdr/option-pricing-engine/internal/simulation"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/circuit"
)

type memoryWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	closed   bool
}

func (w *memoryWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *memoryWriter) Close() error {
	w.closed = true
	return nil
}

func (w *memoryWriter) results(t *testing.T) []models.ValuationResult {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]models.ValuationResult, len(w.messages))
	for i, m := range w.messages {
		require.NoError(t, json.Unmarshal(m.Value, &out[i]))
		assert.Equal(t, out[i].RequestID, string(m.Key))
	}
	return out
}

type memoryReader struct {
	mu        sync.Mutex
	pending   []kafkago.Message
	committed []int64
}

func (r *memoryReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return kafkago.Message{}, err
	}
	if len(r.pending) == 0 {
		return kafkago.Message{}, io.EOF
	}
	m := r.pending[0]
	r.pending = r.pending[1:]
	return m, nil
}

func (r *memoryReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *memoryReader) Close() error { return nil }

type countingRecorder struct {
	mu       sync.Mutex
	messages map[string]int
	errors   map[string]int
}

func (c *countingRecorder) RecordKafkaMessage(kind string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := kind + "/ok"
	if err != nil {
		key = kind + "/error"
	}
	c.messages[key]++
}

func (c *countingRecorder) RecordError(operation, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[operation+"/"+kind]++
}

func newWorker(writer *memoryWriter, recorder WorkerRecorder) *PricingWorker {
	pricer := pricing.NewBlackScholesPricer()
	simulator := simulation.NewPathSimulator(simulation.SimulatorConfig{}, simulation.NewPCGFactory(1))
	runner := simulation.NewRunner(simulation.RunnerConfig{}, simulator, pricer)
	engine := scenario.NewEngine(scenario.EngineConfig{}, pricer)

	return NewPricingWorker(WorkerConfig{DefaultSteps: 12, DefaultSimulations: 500},
		pricer, engine, runner, newProducer(writer, "pricing.results"), recorder)
}

func encode(t *testing.T, offset int64, req models.ValuationRequest) kafkago.Message {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(req.ID), Value: data, Offset: offset, Topic: "pricing.requests"}
}

func atm() *models.OptionContract {
	return &models.OptionContract{Type: models.OptionTypeCall, Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2}
}

func TestWorkerProcessesEachRequestKind(t *testing.T) {
	writer := &memoryWriter{}
	recorder := &countingRecorder{messages: map[string]int{}, errors: map[string]int{}}
	worker := newWorker(writer, recorder)

	put := *atm()
	put.Type = models.OptionTypePut
	seed := uint64(9)

	reader := &memoryReader{pending: []kafkago.Message{
		encode(t, 0, models.ValuationRequest{ID: "price-1", Kind: models.RequestKindPrice, Contract: atm()}),
		encode(t, 1, models.ValuationRequest{
			ID:         "scenario-1",
			Kind:       models.RequestKindScenario,
			Portfolio:  []models.OptionContract{*atm(), put},
			Conditions: []models.MarketCondition{{PriceChange: 0.1, VolatilityChange: 0.05}, {PriceChange: -0.1, VolatilityChange: -0.05}},
		}),
		encode(t, 2, models.ValuationRequest{
			ID:         "sim-1",
			Kind:       models.RequestKindSimulation,
			Simulation: &models.SimulationRequest{Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2, Seed: &seed},
		}),
	}}

	consumer := newConsumer(reader, "pricing.requests")
	require.NoError(t, consumer.ConsumeMessages(context.Background(), worker.HandleMessage))

	assert.Equal(t, []int64{0, 1, 2}, reader.committed)

	results := writer.results(t)
	require.Len(t, results, 3)

	require.NotNil(t, results[0].Valuation)
	assert.InDelta(t, 10.4506, results[0].Valuation.Price, 1e-4)
	assert.InDelta(t, 0.6368, results[0].Valuation.Greeks.Delta, 1e-4)

	require.Len(t, results[1].Scenario, 2)
	assert.InDelta(t, 23.7331, results[1].Scenario[0].Value, 1e-3)
	assert.InDelta(t, 11.8113, results[1].Scenario[1].Value, 1e-3)

	require.NotNil(t, results[2].Simulation)
	assert.Equal(t, 12, results[2].Simulation.Request.Steps)
	assert.Equal(t, 500, results[2].Simulation.Request.Simulations)
	assert.Equal(t, seed, results[2].Simulation.Seed)

	for _, r := range results {
		assert.Nil(t, r.Error)
	}
	assert.Equal(t, 1, recorder.messages["price/ok"])
	assert.Equal(t, 1, recorder.messages["simulation/ok"])
}

func TestWorkerPublishesErrorResults(t *testing.T) {
	writer := &memoryWriter{}
	recorder := &countingRecorder{messages: map[string]int{}, errors: map[string]int{}}
	worker := newWorker(writer, recorder)

	bad := *atm()
	bad.Volatility = -0.1

	reader := &memoryReader{pending: []kafkago.Message{
		encode(t, 0, models.ValuationRequest{ID: "bad-vol", Kind: models.RequestKindPrice, Contract: &bad}),
		encode(t, 1, models.ValuationRequest{ID: "no-contract", Kind: models.RequestKindPrice}),
		encode(t, 2, models.ValuationRequest{ID: "mystery", Kind: "forecast"}),
		{Key: []byte("garbled"), Value: []byte("{not json"), Offset: 3},
	}}

	require.NoError(t, newConsumer(reader, "pricing.requests").ConsumeMessages(context.Background(), worker.HandleMessage))
	assert.Equal(t, []int64{0, 1, 2, 3}, reader.committed)

	results := writer.results(t)
	require.Len(t, results, 4)

	require.NotNil(t, results[0].Error)
	assert.Equal(t, "domain_error", results[0].Error.Kind)
	assert.Equal(t, "volatility", results[0].Error.Param)
	assert.Nil(t, results[0].Valuation)

	assert.Equal(t, "invalid_argument", results[1].Error.Kind)
	assert.Equal(t, "invalid_argument", results[2].Error.Kind)
	assert.Equal(t, "garbled", results[3].RequestID)
	assert.Equal(t, "invalid_argument", results[3].Error.Kind)

	assert.Equal(t, 1, recorder.errors["kafka_price/domain_error"])
	assert.Equal(t, 1, recorder.messages["unknown/error"])
}

func TestConsumerStopsOnCancelledContext(t *testing.T) {
	reader := &memoryReader{pending: []kafkago.Message{{Value: []byte("{}")}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newConsumer(reader, "t").ConsumeMessages(ctx, func(context.Context, *Message) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reader.committed)
}

func TestProducerSendsHeadersAndCloses(t *testing.T) {
	writer := &memoryWriter{}
	producer := newProducer(writer, "pricing.results")

	require.NoError(t, producer.ProduceJSON(context.Background(), "k", map[string]int{"a": 1}))
	require.Len(t, writer.messages, 1)

	msg := fromKafka(writer.messages[0])
	assert.Equal(t, []byte("application/json"), msg.Header("content-type"))
	assert.Nil(t, msg.Header("missing"))
	assert.JSONEq(t, `{"a":1}`, string(msg.Value))

	assert.Equal(t, "pricing.results", producer.Topic())
	require.NoError(t, producer.Close())
	assert.True(t, writer.closed)
}

func TestClientOptionMapping(t *testing.T) {
	assert.Equal(t, kafkago.RequireAll, requiredAcks("all"))
	assert.Equal(t, kafkago.RequireOne, requiredAcks("1"))
	assert.Equal(t, kafkago.RequireNone, requiredAcks("none"))
	assert.Equal(t, kafkago.Snappy, compression("snappy"))
	assert.Equal(t, kafkago.Compression(0), compression("none"))

	_, err := NewClient(&Config{})
	assert.Error(t, err)
}

type failingWriter struct {
	calls int
}

func (w *failingWriter) WriteMessages(context.Context, ...kafkago.Message) error {
	w.calls++
	return errors.New("broker unavailable")
}

func (w *failingWriter) Close() error { return nil }

func TestProducerBreakerFailsFast(t *testing.T) {
	writer := &failingWriter{}
	breaker := circuit.NewBreaker(circuit.Config{Name: "results", MinRequests: 2, FailureRatio: 1}, nil)
	producer := newProducer(writer, "pricing.results").WithBreaker(breaker)

	for range 2 {
		assert.Error(t, producer.ProduceJSON(context.Background(), "k", 1))
	}
	assert.Equal(t, 2, writer.calls)

	err := producer.ProduceJSON(context.Background(), "k", 1)
	assert.ErrorIs(t, err, circuit.ErrOpen)
	assert.Equal(t, 2, writer.calls)
}
