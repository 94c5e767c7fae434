package inference

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackGenerator_Classification(t *testing.T) {
	g := NewFallbackGenerator(42)
	seen := map[string]bool{}

	for i := 0; i < 500; i++ {
		c := g.Classification(testClasses)

		assert.Contains(t, testClasses, c.Label)
		assert.Equal(t, testClasses[c.Index], c.Label)
		assert.GreaterOrEqual(t, c.Confidence, FallbackMinConfidence)
		assert.LessOrEqual(t, c.Confidence, FallbackMaxConfidence)
		require.Len(t, c.Probabilities, len(testClasses))

		var sum float64
		for j, p := range c.Probabilities {
			sum += p
			if j != c.Index {
				assert.Less(t, p, c.Confidence)
			}
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
		seen[c.Label] = true
	}

	assert.Len(t, seen, len(testClasses), "every class should eventually be drawn")
}

func TestFallbackGenerator_SeedIsReproducible(t *testing.T) {
	a := NewFallbackGenerator(9)
	b := NewFallbackGenerator(9)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Classification(testClasses), b.Classification(testClasses))
	}
}

func TestFallbackGenerator_SingleClass(t *testing.T) {
	c := NewFallbackGenerator(1).Classification([]string{"only"})
	assert.Equal(t, "only", c.Label)
	assert.Equal(t, 1.0, c.Confidence)
	assert.Equal(t, []float64{1}, c.Probabilities)
}

func TestFallbackGenerator_Concurrent(t *testing.T) {
	g := NewFallbackGenerator(3)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c := g.Classification(testClasses)
				assert.Contains(t, testClasses, c.Label)
			}
		}()
	}
	wg.Wait()
}
