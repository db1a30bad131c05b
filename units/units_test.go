package units

import (
	"math"
	"testing"
)

func TestTimecentRoundTrip(t *testing.T) {
	for _, tc := range []int16{-7973, -1200, -100, 0, 100, 1200, 4000} {
		s := TimecentsToSeconds(tc)
		got := SecondsToTimecents(s)
		if math.Abs(float64(got)-float64(tc)) > 1 {
			t.Errorf("round trip tc=%d -> s=%v -> tc=%d", tc, s, got)
		}
	}
}

func TestTimecentSentinel(t *testing.T) {
	if s := TimecentsToSeconds(NoTimecent); s != 0 {
		t.Errorf("sentinel timecent must convert to 0s, got %v", s)
	}
}

func TestCentibelRoundTrip(t *testing.T) {
	for cb := 0.0; cb <= 960; cb += 17 {
		gain := CentibelsToGain(cb)
		got := GainToCentibels(gain)
		if math.Abs(got-cb) > 0.1 {
			t.Errorf("round trip cb=%v -> gain=%v -> cb=%v", cb, gain, got)
		}
	}
}

func TestCentibelSilenceFloor(t *testing.T) {
	if g := CentibelsToGain(1000); g != 0 {
		t.Errorf("1000 cB must be silent, got gain %v", g)
	}
	if g := CentibelsToGain(2000); g != 0 {
		t.Errorf("cB above floor must still be silent, got gain %v", g)
	}
}

func TestAbsoluteCentsToHz(t *testing.T) {
	// Root of the absolute-cents scale is 8.176 Hz by definition.
	if hz := AbsoluteCentsToHz(0); math.Abs(hz-8.176) > 1e-9 {
		t.Errorf("0 absolute cents must be 8.176 Hz, got %v", hz)
	}
	// 6900 cents above 8.176 Hz lands on A4 (440 Hz) within rounding.
	hz := AbsoluteCentsToHz(6900)
	if math.Abs(hz-440) > 0.5 {
		t.Errorf("expected ~440Hz, got %v", hz)
	}
}

func TestPanGainsCenterIsEqualPower(t *testing.T) {
	l, r := PanGains(0)
	if math.Abs(l-r) > 1e-9 {
		t.Errorf("center pan must be equal power, got l=%v r=%v", l, r)
	}
	if math.Abs(l*l+r*r-1) > 1e-9 {
		t.Errorf("equal-power law must sum squares to 1, got %v", l*l+r*r)
	}
}

func TestPanGainsExtremes(t *testing.T) {
	l, r := PanGains(-500)
	if math.Abs(r) > 1e-9 || math.Abs(l-1) > 1e-9 {
		t.Errorf("hard left: expected l=1 r=0, got l=%v r=%v", l, r)
	}
	l, r = PanGains(500)
	if math.Abs(l) > 1e-9 || math.Abs(r-1) > 1e-9 {
		t.Errorf("hard right: expected l=0 r=1, got l=%v r=%v", l, r)
	}
}

func TestDecibelGainRoundTrip(t *testing.T) {
	for db := 0.0; db <= 96; db += 3.1 {
		g := DecibelsToGain(db)
		got := GainToDecibels(g)
		if math.Abs(got-db) > 1e-6 {
			t.Errorf("round trip db=%v -> gain=%v -> db=%v", db, g, got)
		}
	}
}
