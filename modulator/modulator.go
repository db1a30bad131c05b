// Package modulator evaluates the SF2 modulator graph (spec §3/§4.1): each
// sfbank.Modulator maps a controller/source pair through a linear
// polarity/direction mapping into an additive offset on a destination
// generator. Concave, convex and switch source curves are not implemented;
// every source is shaped linearly. The source-to-setter shape is grounded on
// the teacher's MidiController.BindKnob/knobBind (midi.go), generalized from
// a single linear range-map to two inputs with polarity/direction flags.
package modulator

import (
	"math"

	"github.com/soundcell/sfsynth/sfbank"
)

// Sources supplies the current value of every modulator source a voice can
// reference, sampled once per control-rate update (spec §4.1). Controller
// values are 7-bit (0-127) as delivered by MIDI; PitchWheel is the raw
// 14-bit value centered at 8192.
type Sources struct {
	Controllers   [128]uint8
	Velocity      uint8
	Key           uint8
	PolyPressure  uint8
	ChannelPressure uint8
	PitchWheel    int16 // 0..16383, center 8192
	PitchWheelSensitivityCents int16
}

// Evaluate computes one modulator's contribution to its destination
// generator, in the generator's native units, ready to be added via
// GeneratorVector.AddOffset.
func Evaluate(m sfbank.Modulator, src Sources) float64 {
	s1 := sourceValue(m.Source, m.SourceIsCC, src)
	v1 := shape(s1, m.SourcePolarity, m.SourceDirection)

	s2 := 1.0
	// A zero-valued, non-CC secondary source means "no secondary input",
	// the same as SrcNoController.
	if m.SecondaryIsCC || (m.SecondarySource != sfbank.SrcNoController && m.SecondarySource != 0) {
		raw := sourceValue(m.SecondarySource, m.SecondaryIsCC, src)
		s2 = shape(raw, false, false)
	}

	out := v1 * s2 * float64(m.Amount)
	if m.Transform == sfbank.TransformAbsoluteValue {
		out = math.Abs(out)
	}
	return out
}

// sourceValue reads the raw 0..1-normalized (before polarity/direction
// shaping) value of a modulator source.
func sourceValue(source sfbank.ModSource, isCC bool, src Sources) float64 {
	if isCC {
		cc := int(source)
		if cc < 0 || cc > 127 {
			return 0
		}
		return float64(src.Controllers[cc]) / 127
	}

	switch source {
	case sfbank.SrcNoController:
		return 1
	case sfbank.SrcNoteOnVelocity:
		return float64(src.Velocity) / 127
	case sfbank.SrcNoteOnKey:
		return float64(src.Key) / 127
	case sfbank.SrcPolyPressure:
		return float64(src.PolyPressure) / 127
	case sfbank.SrcChannelPressure:
		return float64(src.ChannelPressure) / 127
	case sfbank.SrcPitchWheel:
		return float64(src.PitchWheel) / 16383
	case sfbank.SrcPitchWheelSensitivity:
		return float64(src.PitchWheelSensitivityCents) / 1200
	default:
		return 0
	}
}

// shape applies the SF2 polarity (unipolar 0..1 vs bipolar -1..1) and
// direction (increasing vs decreasing) flags to a normalized 0..1 source
// reading (SF2 spec §8.2.1's source-type bit fields).
func shape(v float64, bipolar, decreasing bool) float64 {
	if decreasing {
		v = 1 - v
	}
	if bipolar {
		return 2*v - 1
	}
	return v
}

// EvaluateAll sums every modulator in zone targeting dest into one additive
// offset, as required to compose a voice's effective generator value per
// spec §3 ("generators accumulate additively from matching zones").
func EvaluateAll(mods []sfbank.Modulator, dest sfbank.Generator, src Sources) float64 {
	var total float64
	for _, m := range mods {
		if m.Destination != dest {
			continue
		}
		total += Evaluate(m, src)
	}
	return total
}
