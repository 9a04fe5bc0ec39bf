package bus

import (
	"math"
	"testing"
)

func TestWindow_AverageOverPartialFill(t *testing.T) {
	w := newWindow(100)
	w.add(2)
	w.add(4)
	w.add(6)

	if w.len() != 3 {
		t.Errorf("len = %d, want 3", w.len())
	}
	if got := w.avg(); got != 4 {
		t.Errorf("avg = %f, want 4", got)
	}
}

func TestWindow_EvictsOldestBeyondCapacity(t *testing.T) {
	w := newWindow(100)

	// 150 samples: the first 50 must be evicted.
	for i := 1; i <= 150; i++ {
		w.add(float64(i))
	}

	if w.len() != 100 {
		t.Fatalf("len = %d, want 100", w.len())
	}
	// Mean of 51..150 is 100.5.
	if got := w.avg(); math.Abs(got-100.5) > 1e-9 {
		t.Errorf("avg = %f, want 100.5 (only the last 100 samples)", got)
	}
}

func TestWindow_EmptyAverageIsZero(t *testing.T) {
	w := newWindow(10)
	if got := w.avg(); got != 0 {
		t.Errorf("avg of empty window = %f, want 0", got)
	}
}

func TestWindow_Reset(t *testing.T) {
	w := newWindow(10)
	w.add(5)
	w.reset()
	if w.len() != 0 || w.avg() != 0 {
		t.Errorf("after reset: len=%d avg=%f, want 0/0", w.len(), w.avg())
	}
}
