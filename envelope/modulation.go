package envelope

import "github.com/soundcell/sfsynth/units"

// ModulationParams are the SF2 generators shaping the modulation envelope
// (spec §4.3), applied to pitch/filter rather than volume, so the output
// domain is a plain 0..1 value instead of decibels.
type ModulationParams struct {
	DelayTimecents   int16
	AttackTimecents  int16
	HoldTimecents    int16
	DecayTimecents   int16
	ReleaseTimecents int16

	// SustainPerMille is the SF2 sustainModEnv generator: 0 means the
	// envelope holds at its full peak, 1000 means it decays all the way
	// to 0.
	SustainPerMille int16

	KeynumToModEnvHold  int16
	KeynumToModEnvDecay int16
}

// Modulation is a per-voice DAHDSR envelope producing a 0..1 value.
type Modulation struct {
	sampleRate float64

	delaySamples, attackSamples, holdSamples, decaySamples, releaseSamples int
	sustainLevel float64

	stage   Stage
	elapsed int

	inRelease      bool
	releaseElapsed int
	releaseStartLevel float64

	current float64
}

// NewModulation creates an idle modulation envelope.
func NewModulation(sampleRate float64) *Modulation {
	return &Modulation{sampleRate: sampleRate}
}

// Configure (re)computes stage durations for a new note.
func (m *Modulation) Configure(p ModulationParams, key uint8) {
	holdTc := int(p.HoldTimecents) + int(p.KeynumToModEnvHold)*(60-int(key))
	decayTc := int(p.DecayTimecents) + int(p.KeynumToModEnvDecay)*(60-int(key))

	m.delaySamples = secondsToSamples(units.TimecentsToSeconds(p.DelayTimecents), m.sampleRate)
	m.attackSamples = secondsToSamples(units.TimecentsToSeconds(p.AttackTimecents), m.sampleRate)
	m.holdSamples = secondsToSamples(units.TimecentsToSeconds(clampTimecent(holdTc)), m.sampleRate)
	m.decaySamples = secondsToSamples(units.TimecentsToSeconds(clampTimecent(decayTc)), m.sampleRate)
	m.releaseSamples = secondsToSamples(units.TimecentsToSeconds(p.ReleaseTimecents), m.sampleRate)
	if m.releaseSamples < 1 {
		m.releaseSamples = 1
	}

	sustain := float64(p.SustainPerMille) / 1000
	if sustain < 0 {
		sustain = 0
	}
	if sustain > 1 {
		sustain = 1
	}
	m.sustainLevel = 1 - sustain
}

// Trigger starts the envelope at the delay stage.
func (m *Modulation) Trigger() {
	m.stage = StageDelay
	m.elapsed = 0
	m.inRelease = false
	m.releaseElapsed = 0
	m.current = 0
}

// Release transitions into the release phase, capturing the level release
// started from.
func (m *Modulation) Release() {
	if m.inRelease {
		return
	}
	m.inRelease = true
	m.releaseElapsed = 0

	switch m.stage {
	case StageDelay:
		m.releaseStartLevel = 0
	case StageAttack:
		m.releaseStartLevel = stageProgress(m.elapsed, m.attackSamples)
	case StageHold:
		m.releaseStartLevel = 1
	case StageDecay:
		progress := stageProgress(m.elapsed, m.decaySamples)
		m.releaseStartLevel = 1 + (m.sustainLevel-1)*progress
	case StageSustain:
		m.releaseStartLevel = m.sustainLevel
	}
}

// Next advances the envelope by one sample and returns its current 0..1
// value.
func (m *Modulation) Next() float64 {
	if m.inRelease {
		progress := stageProgress(m.releaseElapsed, m.releaseSamples)
		m.current = m.releaseStartLevel * (1 - progress)
		m.releaseElapsed++
		return m.current
	}

	switch m.stage {
	case StageDelay:
		m.current = 0
	case StageAttack:
		m.current = stageProgress(m.elapsed, m.attackSamples)
	case StageHold:
		m.current = 1
	case StageDecay:
		progress := stageProgress(m.elapsed, m.decaySamples)
		m.current = 1 + (m.sustainLevel-1)*progress
	case StageSustain:
		m.current = m.sustainLevel
	}

	m.elapsed++
	switch m.stage {
	case StageDelay:
		if m.elapsed >= m.delaySamples {
			m.stage = StageAttack
			m.elapsed = 0
		}
	case StageAttack:
		if m.elapsed >= m.attackSamples {
			m.stage = StageHold
			m.elapsed = 0
		}
	case StageHold:
		if m.elapsed >= m.holdSamples {
			m.stage = StageDecay
			m.elapsed = 0
		}
	case StageDecay:
		if m.elapsed >= m.decaySamples {
			m.stage = StageSustain
			m.elapsed = 0
		}
	}

	return m.current
}
