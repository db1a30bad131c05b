// Package envelope implements the SoundFont 6-stage DAHDSR volume envelope
// (spec §4.2, dB domain with zippering smoothing) and the simpler 0..1
// modulation envelope (spec §4.3). The stage-enum/coefficient-cache shape
// is grounded on vst3go's ADSR (other_examples/justyntemme-vst3go__envelope.go);
// the "ramp toward a per-sample target" idiom is grounded on the teacher's
// Envelope.Stream velocity ramp.
package envelope

import (
	"math"

	"github.com/soundcell/sfsynth/units"
)

// Stage is the volume envelope's delay/attack/hold/decay/sustain state.
// Release is tracked orthogonally (Volume.inRelease) per spec §4.2.
type Stage int

const (
	StageDelay Stage = iota
	StageAttack
	StageHold
	StageDecay
	StageSustain
)

const (
	zipperAlpha        = 0.001
	zipperAlphaRelease  = 0.001 * 10
	silenceDb           = 100.0
	perceivedSilenceDb  = 96.0
)

// VolumeParams are the SF2 generators (already converted to their natural
// units) that shape one voice's volume envelope.
type VolumeParams struct {
	DelayTimecents   int16
	AttackTimecents  int16
	HoldTimecents    int16
	DecayTimecents   int16
	ReleaseTimecents int16

	// InitialAttenuationCb and SustainCb are centibels, converted to the
	// envelope's decibel domain by dividing by 10 (spec §9 design note).
	InitialAttenuationCb int16
	SustainCb            int16

	// KeynumToVolEnvHold/Decay scale hold/decay duration by (60 - key),
	// in timecents per semitone (spec §4.2).
	KeynumToVolEnvHold  int16
	KeynumToVolEnvDecay int16
}

// Volume is a per-voice DAHDSR volume envelope, operating internally in
// decibels of attenuation (0 = no attenuation, 100 = silence) and exposing
// linear gain via Next().
type Volume struct {
	sampleRate float64

	delaySamples, attackSamples, holdSamples, decaySamples, releaseSamples int

	attenuationDb float64 // peak attenuation (dB) at full volume
	sustainDb     float64
	peakGain      float64

	stage      Stage
	elapsed    int
	inRelease  bool
	releaseElapsed   int
	releaseStartDb   float64
	finished   bool

	currentDb float64
}

// NewVolume creates an idle volume envelope for the given output sample
// rate.
func NewVolume(sampleRate float64) *Volume {
	return &Volume{sampleRate: sampleRate, currentDb: silenceDb}
}

// Configure (re)computes stage durations and attenuation targets for a
// new note, given the sounding MIDI key (for keynum-to-hold/decay scaling).
func (v *Volume) Configure(p VolumeParams, key uint8) {
	holdTc := int(p.HoldTimecents) + int(p.KeynumToVolEnvHold)*(60-int(key))
	decayTc := int(p.DecayTimecents) + int(p.KeynumToVolEnvDecay)*(60-int(key))

	v.delaySamples = secondsToSamples(units.TimecentsToSeconds(p.DelayTimecents), v.sampleRate)
	v.attackSamples = secondsToSamples(units.TimecentsToSeconds(p.AttackTimecents), v.sampleRate)
	v.holdSamples = secondsToSamples(units.TimecentsToSeconds(clampTimecent(holdTc)), v.sampleRate)
	v.decaySamples = secondsToSamples(units.TimecentsToSeconds(clampTimecent(decayTc)), v.sampleRate)
	v.releaseSamples = secondsToSamples(units.TimecentsToSeconds(p.ReleaseTimecents), v.sampleRate)
	if v.releaseSamples < 1 {
		v.releaseSamples = 1
	}

	v.attenuationDb = float64(p.InitialAttenuationCb) / 10
	v.sustainDb = float64(p.SustainCb) / 10
	if v.sustainDb < v.attenuationDb {
		// sustain can never be louder than the peak it decays from.
		v.sustainDb = v.attenuationDb
	}
	v.peakGain = units.DecibelsToGain(v.attenuationDb)
}

// Trigger starts (or restarts) the envelope at the delay stage.
func (v *Volume) Trigger() {
	v.stage = StageDelay
	v.elapsed = 0
	v.inRelease = false
	v.releaseElapsed = 0
	v.finished = false
	v.currentDb = silenceDb
}

// Release transitions the envelope into its orthogonal release phase,
// capturing the dB value release started from per spec §4.2's rule for
// each originating stage.
func (v *Volume) Release() {
	if v.inRelease || v.finished {
		return
	}
	v.inRelease = true
	v.releaseElapsed = 0

	switch v.stage {
	case StageDelay:
		v.releaseStartDb = silenceDb
	case StageAttack:
		progress := stageProgress(v.elapsed, v.attackSamples)
		v.releaseStartDb = units.GainToDecibels(progress * v.peakGain)
	case StageHold:
		v.releaseStartDb = v.attenuationDb
	case StageDecay:
		progress := stageProgress(v.elapsed, v.decaySamples)
		v.releaseStartDb = v.attenuationDb + (v.sustainDb-v.attenuationDb)*progress
	case StageSustain:
		v.releaseStartDb = v.sustainDb
	}
}

// IsInRelease reports whether the envelope is in its release phase.
func (v *Volume) IsInRelease() bool { return v.inRelease }

// Finished reports whether the envelope has decayed to perceived silence
// during release and the owning voice should be torn down.
func (v *Volume) Finished() bool { return v.finished }

// CurrentDb returns the smoothed attenuation currently being applied, in
// decibels — used by the voice renderer to rank voices for stealing
// (spec §4.5 "kill the oldest voices with highest current attenuation").
func (v *Volume) CurrentDb() float64 { return v.currentDb }

// Next advances the envelope by one sample and returns the linear gain to
// apply to that sample.
func (v *Volume) Next() float64 {
	ideal := v.idealDb()

	alpha := zipperAlpha
	if v.inRelease {
		alpha = zipperAlphaRelease
	}
	v.currentDb += (ideal - v.currentDb) * alpha

	v.advance()

	if v.inRelease && v.currentDb >= perceivedSilenceDb {
		v.finished = true
	}

	return units.DecibelsToGain(v.currentDb)
}

func (v *Volume) idealDb() float64 {
	if v.inRelease {
		progress := stageProgress(v.releaseElapsed, v.releaseSamples)
		return v.releaseStartDb + (silenceDb-v.releaseStartDb)*progress
	}

	switch v.stage {
	case StageDelay:
		return silenceDb
	case StageAttack:
		progress := stageProgress(v.elapsed, v.attackSamples)
		return units.GainToDecibels(progress * v.peakGain)
	case StageHold:
		return v.attenuationDb
	case StageDecay:
		progress := stageProgress(v.elapsed, v.decaySamples)
		return v.attenuationDb + (v.sustainDb-v.attenuationDb)*progress
	default: // StageSustain
		return v.sustainDb
	}
}

func (v *Volume) advance() {
	if v.inRelease {
		v.releaseElapsed++
		return
	}

	v.elapsed++
	switch v.stage {
	case StageDelay:
		if v.elapsed >= v.delaySamples {
			v.stage = StageAttack
			v.elapsed = 0
		}
	case StageAttack:
		if v.elapsed >= v.attackSamples {
			v.stage = StageHold
			v.elapsed = 0
		}
	case StageHold:
		if v.elapsed >= v.holdSamples {
			v.stage = StageDecay
			v.elapsed = 0
		}
	case StageDecay:
		if v.elapsed >= v.decaySamples {
			v.stage = StageSustain
			v.elapsed = 0
		}
	case StageSustain:
		// holds indefinitely until Release()
	}
}

func stageProgress(elapsed, total int) float64 {
	if total <= 0 {
		return 1
	}
	p := float64(elapsed) / float64(total)
	if p > 1 {
		p = 1
	}
	return p
}

func secondsToSamples(s, sampleRate float64) int {
	n := int(math.Round(s * sampleRate))
	if n < 0 {
		n = 0
	}
	return n
}

func clampTimecent(tc int) int16 {
	if tc > 32767 {
		return 32767
	}
	if tc < -32768 {
		return -32768
	}
	return int16(tc)
}
