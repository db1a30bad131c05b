// Package synth is the core mixer (spec §4.6): it owns the channels, a
// capped voice pool, and the reverb/chorus send buses, and renders fixed-size
// audio blocks into reused bus buffers (the reverb convolver's FFT results
// are still allocated per block). The mix-then-filter-then-
// output shape is grounded on the teacher's Controller.Stream (main.go),
// which mixes its voices with beep.Mix and runs the result through a
// Butterworth filter before handing it to the speaker; that step mixes by
// allocating a new beep.Streamer per call, which the spec's "allocation-free
// hot path" rules out, so here the three buses are plain reused [][2]float64
// slices summed in place instead.
package synth

import "github.com/soundcell/sfsynth/chorus"

// Config is the spec §6 configuration surface.
type Config struct {
	SampleRate            float64
	VoiceCap              int
	ReverbEnabled         bool
	ReverbImpulseResponse []float64 // mono IR, applied to both channels if ReverbImpulseResponseR is nil
	ReverbImpulseResponseR []float64
	ChorusEnabled         bool
	ChorusConfig          chorus.Config
	InitialChannelCount   int
	BlockSize             int
}

// DefaultConfig returns a Config holding the spec §6 defaults. Zero-valued
// VoiceCap, InitialChannelCount and BlockSize are filled in separately by
// New.
func DefaultConfig(sampleRate float64) Config {
	return Config{
		SampleRate:          sampleRate,
		VoiceCap:            250,
		ReverbEnabled:       true,
		ChorusEnabled:       true,
		ChorusConfig:        chorus.Config{DelayMillis: 15, DepthMillis: 3, RateHz: 0.8, Feedback: 0.15, Voices: 3},
		InitialChannelCount: 16,
		BlockSize:           512,
	}
}

func (c Config) normalized() Config {
	if c.VoiceCap <= 0 {
		c.VoiceCap = 250
	}
	if c.InitialChannelCount <= 0 {
		c.InitialChannelCount = 16
	}
	if c.BlockSize <= 0 {
		c.BlockSize = 512
	}
	return c
}
