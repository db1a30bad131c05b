// Package sfbanktest builds small in-memory soundfont banks for exercising
// the engine without a real .sf2 file, per spec §8's "Concrete scenarios."
package sfbanktest

import (
	"math"

	"github.com/soundcell/sfsynth/sfbank"
)

// SineBank builds a single-preset, single-instrument, single-sample bank:
// a freqHz sine wave with root key rootKey, looped over its whole length, with a fast attack
// and a long sustain so a rendered note holds its pitch. This is the bank
// used by spec §8 scenario 1 (440 Hz @ key 69, zero-crossing count).
func SineBank(rootKey uint8, freqHz float64, sampleRate int) *sfbank.Bank {
	const cycles = 64
	period := float64(sampleRate) / freqHz
	n := int(period * cycles)
	pcm := make([]int16, n)
	for i := range pcm {
		pcm[i] = int16(math.Round(math.Sin(2*math.Pi*float64(i)/period) * 32000))
	}

	b := sfbank.NewBuilder("sfbanktest-sine")
	sampleIdx := b.AddSample(sfbank.Sample{
		Name:          "sine",
		PCM:           pcm,
		SampleRate:    sampleRate,
		LoopStart:     0,
		LoopEnd:       n,
		OriginalPitch: rootKey,
		SampleType:    sfbank.SampleMono,
	})

	zone := sfbank.NewZone()
	zone.SampleIndex = sampleIdx
	zone.Generators[sfbank.GenSampleModes] = sfbank.SampleModeLoopContinuous
	zone.Generators[sfbank.GenDelayVolEnv] = sfbank.TimecentSentinel
	zone.Generators[sfbank.GenAttackVolEnv] = -7000 // ~18ms
	zone.Generators[sfbank.GenHoldVolEnv] = sfbank.TimecentSentinel
	zone.Generators[sfbank.GenDecayVolEnv] = -1200 // 0.5s
	zone.Generators[sfbank.GenSustainVolEnv] = 0   // no attenuation at sustain
	zone.Generators[sfbank.GenReleaseVolEnv] = -1200
	zone.Generators[sfbank.GenInitialAttenuation] = 0

	instIdx := b.AddInstrument(sfbank.Instrument{
		Name:  "sine",
		Zones: []sfbank.Zone{zone},
	})

	presetZone := sfbank.NewZone()
	presetZone.InstrumentIndex = instIdx
	b.AddPreset(sfbank.Preset{
		Name:   "sine",
		Bank:   0,
		Number: 0,
		Zones:  []sfbank.Zone{presetZone},
	})

	return b.Build()
}
