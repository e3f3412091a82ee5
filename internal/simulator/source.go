package simulator

import "math/rand/v2"

// SourceFactory hands out an independent random stream per index. Each series a
// generator produces draws from its own stream, so no two series share state.
type SourceFactory func(stream uint64) rand.Source

// Seeded returns reproducible streams: the same seed and stream index always yield
// the same sequence.
func Seeded(seed uint64) SourceFactory {
	return func(stream uint64) rand.Source {
		return rand.NewPCG(seed, stream)
	}
}

// Entropy returns freshly seeded streams, different on every call.
func Entropy() SourceFactory {
	return func(uint64) rand.Source {
		return rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
}
