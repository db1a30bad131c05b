// Package lfo implements the triangle-wave vibrato and modulation LFOs
// used by a voice (spec §4.3): delayed start, frequency from a generator,
// triangle shape starting at 0. Grounded on the phase-accumulator idiom in
// vst3go's Oscillator.Triangle (other_examples/justyntemme-vst3go__oscillator.go)
// and the teacher's SineWave/SawWave phase bookkeeping (main.go).
package lfo

import (
	"math"

	"github.com/soundcell/sfsynth/units"
)

// Triangle is a delayed-start triangle-wave LFO producing values in
// [-1, 1], starting at 0 and rising.
type Triangle struct {
	sampleRate float64

	delaySamples int
	phaseInc     float64

	elapsed int
	phase   float64
}

// New creates an idle triangle LFO for the given output sample rate.
func New(sampleRate float64) *Triangle {
	return &Triangle{sampleRate: sampleRate}
}

// Configure sets the delay (timecents) and frequency (absolute cents, per
// SF2 freqVibLFO/freqModLFO generators) for the next trigger.
func (t *Triangle) Configure(delayTimecents int16, freqAbsCents int16) {
	delaySeconds := units.TimecentsToSeconds(delayTimecents)
	t.delaySamples = int(math.Round(delaySeconds * t.sampleRate))
	if t.delaySamples < 0 {
		t.delaySamples = 0
	}
	freqHz := units.AbsoluteCentsToHz(float64(freqAbsCents))
	t.phaseInc = freqHz / t.sampleRate
}

// Trigger restarts the LFO at phase 0, delay elapsed 0.
func (t *Triangle) Trigger() {
	t.elapsed = 0
	t.phase = 0
}

// Next advances the LFO by one sample and returns its current value.
// During the delay period it returns 0 (spec §4.3: "starting at 0,
// delayed").
func (t *Triangle) Next() float64 {
	if t.elapsed < t.delaySamples {
		t.elapsed++
		return 0
	}

	v := triangleAt(t.phase)
	t.phase += t.phaseInc
	if t.phase >= 1 {
		t.phase -= math.Floor(t.phase)
	}
	return v
}

// triangleAt returns a triangle wave starting at 0 and rising, over phase
// in [0,1): 0 -> 1 over the first quarter, 1 -> -1 over the middle half,
// -1 -> 0 over the last quarter.
func triangleAt(phase float64) float64 {
	switch {
	case phase < 0.25:
		return phase * 4
	case phase < 0.75:
		return 2 - phase*4
	default:
		return phase*4 - 4
	}
}
