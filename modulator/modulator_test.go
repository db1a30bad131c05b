package modulator

import (
	"testing"

	"github.com/soundcell/sfsynth/sfbank"
)

func TestEvaluateVelocityToAttenuation(t *testing.T) {
	m := sfbank.Modulator{
		Source:      sfbank.SrcNoteOnVelocity,
		Destination: sfbank.GenInitialAttenuation,
		Amount:      960,
		// default SF2 mod: decreasing, so full velocity -> 0 attenuation
		SourceDirection: true,
	}
	src := Sources{Velocity: 127}
	got := Evaluate(m, src)
	if got < -1 || got > 1 {
		t.Errorf("expected near-zero attenuation offset at full velocity, got %v", got)
	}

	src2 := Sources{Velocity: 0}
	got2 := Evaluate(m, src2)
	if got2 < 959 || got2 > 961 {
		t.Errorf("expected ~960 attenuation offset at zero velocity, got %v", got2)
	}
}

func TestEvaluateBipolarPitchWheel(t *testing.T) {
	m := sfbank.Modulator{
		Source:         sfbank.SrcPitchWheel,
		Destination:    sfbank.GenFineTune,
		Amount:         100,
		SourcePolarity: true,
	}
	center := Evaluate(m, Sources{PitchWheel: 8192})
	if center < -1 || center > 1 {
		t.Errorf("expected ~0 fine tune at centered pitch wheel, got %v", center)
	}

	up := Evaluate(m, Sources{PitchWheel: 16383})
	if up < 95 {
		t.Errorf("expected close to +100 at max pitch wheel, got %v", up)
	}
}

func TestEvaluateAllSumsMatchingDestination(t *testing.T) {
	mods := []sfbank.Modulator{
		{Source: sfbank.SrcNoController, Destination: sfbank.GenFineTune, Amount: 10},
		{Source: sfbank.SrcNoController, Destination: sfbank.GenFineTune, Amount: 20},
		{Source: sfbank.SrcNoController, Destination: sfbank.GenCoarseTune, Amount: 1000},
	}
	total := EvaluateAll(mods, sfbank.GenFineTune, Sources{})
	if total != 30 {
		t.Errorf("expected 30, got %v", total)
	}
}

func TestEvaluateCCSource(t *testing.T) {
	m := sfbank.Modulator{
		Source:     sfbank.ModSource(1), // mod wheel
		SourceIsCC: true,
		Destination: sfbank.GenVibLfoToPitch,
		Amount:     50,
	}
	src := Sources{}
	src.Controllers[1] = 127
	got := Evaluate(m, src)
	if got < 49 || got > 51 {
		t.Errorf("expected ~50 at full mod wheel, got %v", got)
	}
}
