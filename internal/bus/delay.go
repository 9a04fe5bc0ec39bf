package bus

import (
	"math/rand"
	"sync"
	"time"
)

// Delay models the artificial latency between accepting a publish and
// starting delivery. It stands in for the I/O a real broker would do.
// Tests substitute NoDelay for determinism.
type Delay func() time.Duration

// NoDelay delivers immediately.
func NoDelay() time.Duration { return 0 }

// UniformDelay samples uniformly from [min, max] on every call. A nil rng
// falls back to a source seeded from the current time. The returned Delay is
// safe for concurrent use.
func UniformDelay(min, max time.Duration, rng *rand.Rand) Delay {
	if max < min {
		min, max = max, min
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	span := int64(max - min)
	var mu sync.Mutex
	return func() time.Duration {
		if span == 0 {
			return min
		}
		mu.Lock()
		d := min + time.Duration(rng.Int63n(span+1))
		mu.Unlock()
		return d
	}
}
