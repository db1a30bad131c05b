package envelope

import "testing"

func TestVolumeReachesSustainAndReleases(t *testing.T) {
	v := NewVolume(1000) // 1kHz for fast, readable stage lengths in samples
	v.Configure(VolumeParams{
		AttackTimecents:  -3000, // short
		DecayTimecents:   -3000,
		SustainCb:        200, // 20dB attenuation at sustain
		ReleaseTimecents: -1200,
	}, 60)
	v.Trigger()

	for i := 0; i < 5000; i++ {
		v.Next()
	}
	if v.stage != StageSustain {
		t.Fatalf("expected to have reached sustain, stage=%v", v.stage)
	}
	if v.CurrentDb() < 15 || v.CurrentDb() > 25 {
		t.Errorf("expected sustain db near 20, got %v", v.CurrentDb())
	}

	v.Release()
	if !v.IsInRelease() {
		t.Fatalf("expected release to start")
	}
	for i := 0; i < 100000 && !v.Finished(); i++ {
		v.Next()
	}
	if !v.Finished() {
		t.Errorf("expected envelope to finish after release")
	}
}

func TestVolumeNoteOffDuringAttack(t *testing.T) {
	v := NewVolume(48000)
	v.Configure(VolumeParams{
		DelayTimecents:   -32768, // SF2 "no delay" sentinel
		AttackTimecents:  1200, // 2s, long enough to release mid-attack
		ReleaseTimecents: -1200,
	}, 60)
	v.Trigger()

	for i := 0; i < 1000; i++ {
		v.Next()
	}
	if v.stage != StageAttack {
		t.Fatalf("expected still in attack")
	}
	v.Release()
	if !v.IsInRelease() {
		t.Fatalf("expected release")
	}
	// releaseStartDb must be a finite, sane attenuation value (not silent,
	// since we were partway through attack).
	if v.releaseStartDb >= silenceDb {
		t.Errorf("expected partial attack to produce a non-silent release start, got %v", v.releaseStartDb)
	}
}

func TestVolumeSustainNeverExceedsPeak(t *testing.T) {
	v := NewVolume(48000)
	v.Configure(VolumeParams{SustainCb: -50, InitialAttenuationCb: 0}, 60)
	if v.sustainDb < v.attenuationDb {
		t.Errorf("sustain must never be louder (lower dB) than peak attenuation")
	}
}

func TestModulationEnvelopeSustainLevel(t *testing.T) {
	m := NewModulation(1000)
	m.Configure(ModulationParams{
		AttackTimecents: -3000,
		DecayTimecents:  -3000,
		SustainPerMille: 250, // 25% decrease -> sustain at 0.75
	}, 60)
	m.Trigger()

	var last float64
	for i := 0; i < 5000; i++ {
		last = m.Next()
	}
	if last < 0.7 || last > 0.8 {
		t.Errorf("expected sustain near 0.75, got %v", last)
	}
}

func TestModulationEnvelopeReleaseDecaysToZero(t *testing.T) {
	m := NewModulation(1000)
	m.Configure(ModulationParams{DelayTimecents: -32768, AttackTimecents: -32768, ReleaseTimecents: -3000}, 60)
	m.Trigger()
	m.Next()
	m.Release()

	var last float64
	for i := 0; i < 2000; i++ {
		last = m.Next()
	}
	if last > 0.01 {
		t.Errorf("expected release to decay to ~0, got %v", last)
	}
}
