package simulation

import (
	"math/rand/v2"
)

// NormalSource produces standard normal draws
type NormalSource interface {
	NormFloat64() float64
}

// SourceFactory returns the independent random stream used by one batch of
// simulation columns. Calling it twice with the same stream index must yield
// sources that produce the same sequence.
type SourceFactory interface {
	Stream(stream uint64) NormalSource
	Seed() uint64
}

// PCGFactory derives one PCG generator per batch from a single seed, so a
// run is reproducible from (seed, batch size) regardless of how many
// workers execute the batches
type PCGFactory struct {
	seed uint64
}

// NewPCGFactory creates a factory for the given seed
func NewPCGFactory(seed uint64) *PCGFactory {
	return &PCGFactory{seed: seed}
}

// Stream returns the generator for batch index stream
func (f *PCGFactory) Stream(stream uint64) NormalSource {
	return rand.New(rand.NewPCG(f.seed, stream))
}

// Seed returns the seed the factory was created with
func (f *PCGFactory) Seed() uint64 {
	return f.seed
}

// RandomSeed draws a fresh seed from the runtime's generator, for callers
// that did not ask for a reproducible run
func RandomSeed() uint64 {
	return rand.Uint64()
}
