package lfo

import "testing"

func TestTriangleStartsAtZero(t *testing.T) {
	tri := New(48000)
	tri.Configure(0, 0)
	tri.Trigger()
	if v := tri.Next(); v != 0 {
		t.Errorf("expected triangle LFO to start at 0, got %v", v)
	}
}

func TestTriangleDelayHoldsZero(t *testing.T) {
	tri := New(1000)
	// delayTimecents for ~0.1s: 1200*log2(0.1) ~ -3986
	tri.Configure(-3986, 6000) // freq absolute cents ~ generic, just nonzero
	tri.Trigger()

	var sawNonzero bool
	for i := 0; i < 90; i++ {
		if tri.Next() != 0 {
			sawNonzero = true
		}
	}
	if sawNonzero {
		t.Errorf("expected LFO to stay at 0 during delay")
	}
}

func TestTriangleBounded(t *testing.T) {
	tri := New(48000)
	tri.Configure(-32768, 7200) // no delay, ~523Hz
	tri.Trigger()

	for i := 0; i < 48000; i++ {
		v := tri.Next()
		if v < -1.0001 || v > 1.0001 {
			t.Fatalf("triangle LFO out of range: %v", v)
		}
	}
}
