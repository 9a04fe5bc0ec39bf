package bus

// window is a fixed-capacity ring buffer of latency samples. Only the most
// recent cap(samples) observations contribute to the rolling average.
// Not safe for concurrent use; the bus guards it with its own mutex.
type window struct {
	samples []float64
	pos     int // next write position (wraps around)
	n       int // number of valid samples (up to capacity)
}

func newWindow(capacity int) *window {
	return &window{samples: make([]float64, capacity)}
}

// add records one sample, evicting the oldest when the window is full.
func (w *window) add(ms float64) {
	w.samples[w.pos] = ms
	w.pos = (w.pos + 1) % len(w.samples)
	if w.n < len(w.samples) {
		w.n++
	}
}

// avg returns the mean of the retained samples, or 0 when empty.
func (w *window) avg() float64 {
	if w.n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < w.n; i++ {
		sum += w.samples[i]
	}
	return sum / float64(w.n)
}

// len returns the number of retained samples.
func (w *window) len() int { return w.n }

// reset discards all samples.
func (w *window) reset() {
	w.pos = 0
	w.n = 0
}
