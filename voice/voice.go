// Package voice implements the per-note sample generator (spec §4.4): pitch
// computation, PCM interpolation and looping, the volume/modulation
// envelopes, vibrato/mod LFOs, the resonant filter, and bus writes. The
// phase-accumulator/linear-interpolation idiom is grounded on the teacher's
// SineWave/SawWave position bookkeeping (main.go); the envelope-then-filter-
// then-pan signal chain is grounded on the teacher's Controller.Stream,
// generalized from fixed oscillators to real SoundFont sample playback.
package voice

import (
	"math"

	"github.com/soundcell/sfsynth/envelope"
	"github.com/soundcell/sfsynth/filter"
	"github.com/soundcell/sfsynth/lfo"
	"github.com/soundcell/sfsynth/modulator"
	"github.com/soundcell/sfsynth/sfbank"
	"github.com/soundcell/sfsynth/units"
)

// PitchContext carries the channel-level state a voice's pitch computation
// needs but does not itself own (spec §4.4's "channel tuning" and
// "pitch-wheel scaled by range" terms).
type PitchContext struct {
	TuningCents        float64
	PitchWheelCents    float64
	Sources            modulator.Sources
}

// Voice is one playing SoundFont zone instance (spec §3 "Voice"). It is
// created by a channel on note-on and destroyed once its volume envelope
// reaches perceived silence.
type Voice struct {
	sample *sfbank.Sample

	baseGenerators      sfbank.GeneratorVector
	modulatedGenerators sfbank.GeneratorVector
	modulators          []sfbank.Modulator

	key      uint8
	velocity uint8
	rootKey  uint8

	outputSampleRate float64
	currentIndex     float64
	playbackStep     float64

	looping   bool
	loopStart int
	loopEnd   int

	volEnv *envelope.Volume
	modEnv *envelope.Modulation
	vibLfo *lfo.Triangle // vibrato LFO: pitch only
	modLfo *lfo.Triangle // modulation LFO: pitch, filter, and volume
	filt   *filter.Lowpass

	startBlock     int64
	exclusiveClass int
	isInRelease    bool
	finished       bool
}

// New creates an idle voice with no sample bound; Trigger binds one.
func New(outputSampleRate float64) *Voice {
	return &Voice{
		outputSampleRate: outputSampleRate,
		volEnv:           envelope.NewVolume(outputSampleRate),
		modEnv:           envelope.NewModulation(outputSampleRate),
		vibLfo:           lfo.New(outputSampleRate),
		modLfo:           lfo.New(outputSampleRate),
		filt:             filter.New(outputSampleRate),
	}
}

// Trigger (re)initializes the voice for a new note, given the resolved
// sample, the zone's composed generator vector (preset+instrument, before
// modulators), its modulators, the sounding key/velocity, and the block
// index it starts on (used for voice-stealing age comparisons).
func (v *Voice) Trigger(sample *sfbank.Sample, base sfbank.GeneratorVector, mods []sfbank.Modulator, key, velocity uint8, startBlock int64) {
	v.sample = sample
	v.baseGenerators = base
	v.modulatedGenerators = base
	v.modulators = mods
	v.key = key
	v.velocity = velocity
	v.startBlock = startBlock
	v.isInRelease = false
	v.finished = false

	v.rootKey = sample.OriginalPitch
	if ov := base[sfbank.GenOverridingRootKey]; ov >= 0 {
		v.rootKey = uint8(ov)
	}

	mode := base[sfbank.GenSampleModes]
	v.looping = mode == sfbank.SampleModeLoopContinuous || mode == sfbank.SampleModeLoopUntilRelease
	v.loopStart = sample.LoopStart + int(base[sfbank.GenStartloopAddrsOffset]) + int(base[sfbank.GenStartloopAddrsCoarseOffset])*32768
	v.loopEnd = sample.LoopEnd + int(base[sfbank.GenEndloopAddrsOffset]) + int(base[sfbank.GenEndloopAddrsCoarseOffset])*32768

	start := int(base[sfbank.GenStartAddrsOffset]) + int(base[sfbank.GenStartAddrsCoarseOffset])*32768
	v.currentIndex = float64(start)

	v.exclusiveClass = int(base[sfbank.GenExclusiveClass])

	v.volEnv.Configure(envelope.VolumeParams{
		DelayTimecents:       base[sfbank.GenDelayVolEnv],
		AttackTimecents:      base[sfbank.GenAttackVolEnv],
		HoldTimecents:        base[sfbank.GenHoldVolEnv],
		DecayTimecents:       base[sfbank.GenDecayVolEnv],
		ReleaseTimecents:     base[sfbank.GenReleaseVolEnv],
		InitialAttenuationCb: base[sfbank.GenInitialAttenuation],
		SustainCb:            base[sfbank.GenSustainVolEnv],
		KeynumToVolEnvHold:   base[sfbank.GenKeynumToVolEnvHold],
		KeynumToVolEnvDecay:  base[sfbank.GenKeynumToVolEnvDecay],
	}, key)
	v.volEnv.Trigger()

	v.modEnv.Configure(envelope.ModulationParams{
		DelayTimecents:      base[sfbank.GenDelayModEnv],
		AttackTimecents:     base[sfbank.GenAttackModEnv],
		HoldTimecents:       base[sfbank.GenHoldModEnv],
		DecayTimecents:      base[sfbank.GenDecayModEnv],
		ReleaseTimecents:    base[sfbank.GenReleaseModEnv],
		SustainPerMille:     base[sfbank.GenSustainModEnv],
		KeynumToModEnvHold:  base[sfbank.GenKeynumToModEnvHold],
		KeynumToModEnvDecay: base[sfbank.GenKeynumToModEnvDecay],
	}, key)
	v.modEnv.Trigger()

	v.vibLfo.Configure(base[sfbank.GenDelayVibLFO], base[sfbank.GenFreqVibLFO])
	v.vibLfo.Trigger()
	v.modLfo.Configure(base[sfbank.GenDelayModLFO], base[sfbank.GenFreqModLFO])
	v.modLfo.Trigger()

	v.filt.Reset()
}

// Release moves the voice into its release phase (spec §4.4, §4.5
// note-off/exclusive-class handling).
func (v *Voice) Release() {
	v.isInRelease = true
	v.volEnv.Release()
	v.modEnv.Release()
}

// IsInRelease, Finished, ExclusiveClass, CurrentAttenuationDb, and StartBlock
// expose the state the synth core's voice-stealing comparator needs (spec
// §6.6 / SPEC_FULL §6.6: sort by isInRelease desc, currentAttenuationDb desc,
// then oldest).
func (v *Voice) IsInRelease() bool            { return v.isInRelease }
func (v *Voice) Finished() bool               { return v.finished }
func (v *Voice) ExclusiveClass() int          { return v.exclusiveClass }
func (v *Voice) CurrentAttenuationDb() float64 { return v.volEnv.CurrentDb() }
func (v *Voice) StartBlock() int64            { return v.startBlock }
func (v *Voice) Key() uint8                   { return v.key }
func (v *Voice) Velocity() uint8              { return v.velocity }

// recomputeModulation refreshes modulatedGenerators from the base vector
// plus the current modulator-source readings. Called once per block (spec
// §5 "controller change takes effect on the next block").
func (v *Voice) recomputeModulation(src modulator.Sources) {
	g := v.baseGenerators
	for _, dest := range modulatedDestinations {
		offset := modulator.EvaluateAll(v.modulators, dest, src)
		if offset != 0 {
			g.AddOffset(dest, offset)
		}
	}
	v.modulatedGenerators = g
}

// modulatedDestinations lists the generators a voice's modulators are
// allowed to target per spec §4.1/§4.4 — pitch, filter, volume, and pan
// sources feeding the DSP chain below.
var modulatedDestinations = []sfbank.Generator{
	sfbank.GenInitialFilterFc,
	sfbank.GenInitialFilterQ,
	sfbank.GenInitialAttenuation,
	sfbank.GenPan,
	sfbank.GenFineTune,
	sfbank.GenCoarseTune,
	sfbank.GenModLfoToPitch,
	sfbank.GenVibLfoToPitch,
	sfbank.GenModEnvToPitch,
	sfbank.GenModLfoToFilterFc,
	sfbank.GenModEnvToFilterFc,
	sfbank.GenModLfoToVolume,
	sfbank.GenChorusEffectsSend,
	sfbank.GenReverbEffectsSend,
}

// Render mixes len(dry) frames of this voice into the dry, reverb-send, and
// chorus-send buses (stereo, spec §4.4/§4.6). Returns false once the voice
// has finished and no longer needs to be stepped.
func (v *Voice) Render(dry, reverbBus, chorusBus [][2]float64, ctx PitchContext) bool {
	if v.finished {
		return false
	}
	v.recomputeModulation(ctx.Sources)
	g := v.modulatedGenerators

	scaleTuning := float64(g[sfbank.GenScaleTuning])
	fineTune := float64(g[sfbank.GenFineTune])
	coarseTune := float64(g[sfbank.GenCoarseTune]) * 100
	modEnvToPitch := float64(g[sfbank.GenModEnvToPitch])
	modLfoToPitch := float64(g[sfbank.GenModLfoToPitch])
	vibLfoToPitch := float64(g[sfbank.GenVibLfoToPitch])

	filterBaseCents := float64(g[sfbank.GenInitialFilterFc])
	modEnvToFilter := float64(g[sfbank.GenModEnvToFilterFc])
	modLfoToFilter := float64(g[sfbank.GenModLfoToFilterFc])
	modLfoToVolume := float64(g[sfbank.GenModLfoToVolume])
	resonanceCb := g[sfbank.GenInitialFilterQ]

	left, right := units.PanGains(float64(g[sfbank.GenPan]))
	reverbSend := float64(g[sfbank.GenReverbEffectsSend]) / 1000
	chorusSend := float64(g[sfbank.GenChorusEffectsSend]) / 1000

	n := len(dry)
	for i := 0; i < n; i++ {
		if v.finished {
			break
		}

		modEnvVal := v.modEnv.Next()
		modLfoVal := v.modLfo.Next()
		vibLfoVal := v.vibLfo.Next()

		pitchCents := scaleTuning*(float64(v.key)-float64(v.rootKey)) +
			ctx.TuningCents + ctx.PitchWheelCents +
			modEnvToPitch*modEnvVal + modLfoToPitch*modLfoVal + vibLfoToPitch*vibLfoVal +
			fineTune + coarseTune +
			float64(v.sample.PitchCorrection)

		v.playbackStep = math.Exp2(pitchCents/1200) * float64(v.sample.SampleRate) / v.outputSampleRate

		cutoffCents := filterBaseCents + modEnvToFilter*modEnvVal + modLfoToFilter*modLfoVal
		v.filt.Configure(units.AbsoluteCentsToHz(cutoffCents), resonanceCb)

		sampleVal := v.interpolate()
		sampleVal = v.filt.Process(sampleVal)
		gain := v.volEnv.Next()
		if modLfoToVolume != 0 {
			gain *= units.CentibelsToGain(modLfoToVolume * modLfoVal)
		}
		sampleVal *= gain

		dry[i][0] += sampleVal * left
		dry[i][1] += sampleVal * right
		if reverbSend > 0 {
			reverbBus[i][0] += sampleVal * reverbSend * left
			reverbBus[i][1] += sampleVal * reverbSend * right
		}
		if chorusSend > 0 {
			chorusBus[i][0] += sampleVal * chorusSend * left
			chorusBus[i][1] += sampleVal * chorusSend * right
		}

		v.advance()

		if v.volEnv.Finished() {
			v.finished = true
		}
	}
	return !v.finished
}

// interpolate linearly interpolates the PCM waveform at currentIndex (spec
// §4.4: "linear interpolation is required").
func (v *Voice) interpolate() float64 {
	pcm := v.sample.PCM
	i0 := int(v.currentIndex)
	if i0 < 0 || i0 >= len(pcm) {
		v.finished = true
		return 0
	}
	frac := v.currentIndex - float64(i0)
	i1 := i0 + 1
	if v.looping && i1 >= v.loopEnd {
		i1 = v.loopStart
	}
	if i1 < 0 || i1 >= len(pcm) {
		i1 = i0
	}
	s0 := float64(pcm[i0])
	s1 := float64(pcm[i1])
	return (s0 + (s1-s0)*frac) / 32768
}

// advance moves currentIndex forward by playbackStep, wrapping on loop or
// marking the voice finished past the sample's end (spec §4.4).
func (v *Voice) advance() {
	v.currentIndex += v.playbackStep
	if v.looping {
		if v.currentIndex >= float64(v.loopEnd) {
			v.currentIndex -= float64(v.loopEnd - v.loopStart)
		}
		return
	}
	if v.currentIndex >= float64(len(v.sample.PCM)) {
		v.finished = true
	}
}
