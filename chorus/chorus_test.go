package chorus

import (
	"math"
	"testing"
)

func TestChorusProducesBoundedOutput(t *testing.T) {
	const sampleRate = 44100
	c := New(sampleRate, Config{DelayMillis: 15, DepthMillis: 3, RateHz: 1.5, Feedback: 0.2, Voices: 2})

	block := make([][2]float64, sampleRate/10)
	for i := range block {
		v := math.Sin(2 * math.Pi * 220 * float64(i) / sampleRate)
		block[i][0] = v
		block[i][1] = v
	}
	c.Process(block)

	for i, s := range block {
		if math.IsNaN(s[0]) || math.IsInf(s[0], 0) {
			t.Fatalf("chorus output at %d is not finite: %v", i, s)
		}
		if math.Abs(s[0]) > 10 {
			t.Fatalf("chorus output at %d blew up: %v", i, s[0])
		}
	}
}

func TestChorusDefaultsVoicesWhenUnset(t *testing.T) {
	c := New(44100, Config{DelayMillis: 10, DepthMillis: 2, RateHz: 1})
	if len(c.left) < 1 {
		t.Errorf("expected at least one voice to be created by default")
	}
}
