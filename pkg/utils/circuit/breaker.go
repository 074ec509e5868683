package circuit

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// ErrOpen is returned while the breaker rejects calls
var ErrOpen = errors.New("circuit breaker is open")

// StateRecorder observes state transitions. States are reported as
// 0 closed, 1 half-open, 2 open.
type StateRecorder interface {
	RecordBreakerState(name string, state int)
}

// Config for a circuit breaker
type Config struct {
	Name string
	// MaxRequests allowed through while half-open
	MaxRequests uint32
	// Interval after which closed-state counts are cleared; zero never clears
	Interval time.Duration
	// Timeout spent open before probing again
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// Breaker guards calls to a flaky dependency
type Breaker struct {
	cb  *gobreaker.CircuitBreaker
	log *logger.Logger
}

// NewBreaker creates a breaker. recorder may be nil.
func NewBreaker(config Config, recorder StateRecorder) *Breaker {
	if config.MaxRequests == 0 {
		config.MaxRequests = 1
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.FailureRatio <= 0 {
		config.FailureRatio = 0.5
	}

	if config.MinRequests == 0 {
		config.MinRequests = 5
	}

	log := logger.GetLogger("circuit." + config.Name)

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= config.MinRequests && ratio >= config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("Circuit breaker '%s' transitioned from %s to %s", name, from, to)
			if recorder != nil {
				recorder.RecordBreakerState(name, stateValue(to))
			}
		},
	}

	return &Breaker{
		cb:  gobreaker.NewCircuitBreaker(settings),
		log: log,
	}
}

// Execute runs fn unless the breaker is open
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

// State returns the current state name
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Name returns the breaker's name
func (b *Breaker) Name() string {
	return b.cb.Name()
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
