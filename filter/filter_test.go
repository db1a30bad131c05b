package filter

import (
	"math"
	"testing"
)

func TestLowpassAttenuatesAboveCutoff(t *testing.T) {
	const sampleRate = 48000.0
	f := New(sampleRate)
	f.Configure(500, 0)

	// Feed a settled 5kHz tone (well above cutoff) and measure output RMS
	// relative to a tone at 100Hz (well below cutoff).
	high := toneRMS(f, 5000, sampleRate)

	f2 := New(sampleRate)
	f2.Configure(500, 0)
	low := toneRMS(f2, 100, sampleRate)

	if high >= low {
		t.Errorf("expected lowpass to attenuate 5kHz more than 100Hz: high=%v low=%v", high, low)
	}
}

func TestLowpassSkipsRecomputeBelowThreshold(t *testing.T) {
	f := New(48000)
	f.Configure(1000, 100)
	b0 := f.b0

	f.Configure(1000.01, 100) // far less than 1 cent away
	if f.b0 != b0 {
		t.Errorf("expected coefficients unchanged for a sub-cent cutoff nudge")
	}

	f.Configure(1100, 100) // clearly more than 1 cent away
	if f.b0 == b0 {
		t.Errorf("expected coefficients to change for a meaningfully different cutoff")
	}
}

func TestLowpassUnconfiguredIsPassthrough(t *testing.T) {
	f := New(48000)
	if got := f.Process(0.5); got != 0.5 {
		t.Errorf("expected passthrough before Configure, got %v", got)
	}
}

func toneRMS(f *Lowpass, freq, sampleRate float64) float64 {
	var sumSq float64
	const n = 4800
	for i := 0; i < n; i++ {
		x := math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
		y := f.Process(x)
		if i > n/2 { // only measure once settled
			sumSq += y * y
		}
	}
	return math.Sqrt(sumSq / float64(n/2))
}
