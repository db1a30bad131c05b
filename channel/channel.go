// Package channel implements the MIDI channel state machine (spec §4.5):
// controller storage, RPN/NRPN, pitch wheel, sustain pedal, program/bank
// select, note-on/off voice spawning, and GS/XG SysEx recognition
// (SPEC_FULL §6.5). The controller-table-plus-dispatch shape is grounded on
// the teacher's MidiController (midi.go), generalized from a single
// hard-wired note-on/off callback pair into the full SF2 zone-matching
// voice spawner the spec requires.
package channel

import (
	"github.com/soundcell/sfsynth/modulator"
	"github.com/soundcell/sfsynth/sfbank"
	"github.com/soundcell/sfsynth/voice"
)

// Default controller values per spec §3 "Channel" invariant.
const (
	defaultMainVolume     = 100
	defaultExpression     = 127
	defaultPan            = 64
	defaultReleaseTime    = 64
	defaultBrightness     = 64
	defaultEffects1Depth  = 40
)

// Continuous controller numbers this package interprets directly.
const (
	ccModWheel      = 1
	ccVolume        = 7
	ccPan           = 10
	ccExpression    = 11
	ccSustainPedal  = 64
	ccNRPNLsb       = 98
	ccNRPNMsb       = 99
	ccRPNLsb        = 100
	ccRPNMsb        = 101
	ccDataEntryMSB  = 6
	ccDataEntryLSB  = 38
	ccAllSoundOff   = 120
	ccResetAllCtrls = 121
	ccAllNotesOff   = 123
)

// RPN parameter numbers (MSB,LSB) recognized per spec §4.5.
const (
	rpnPitchBendRange = 0x0000
	rpnFineTune       = 0x0001
	rpnCoarseTune     = 0x0002
	rpnNull           = 0x7F7F
)

// VoicePool is the synth-owned voice allocator a channel draws from on
// note-on. Centralizing allocation at the synth keeps voice-cap enforcement
// and stealing (spec §4.5/§6.6) in one place while note-on/off dispatch
// stays in the channel, matching spec.md §4.5's description.
type VoicePool interface {
	Acquire() *voice.Voice
}

// Channel holds all per-channel MIDI state and the voices it currently
// owns (spec §3 "Channel").
type Channel struct {
	Number     int
	bank       *sfbank.Bank
	pool       VoicePool
	blockIndex *int64 // shared with the synth core's block counter

	Percussion bool
	Controllers [128]uint8
	PitchWheel  int16 // 14-bit, center 8192
	ChannelPressure uint8
	PolyPressure    [128]uint8

	pitchBendRangeSemitones int
	pitchBendRangeCents     int
	fineTuneCents           float64
	coarseTuneCents         float64

	Bank    int
	Program int
	preset  *sfbank.Preset

	rpnMSB, rpnLSB     uint8
	nrpnMSB, nrpnLSB   uint8
	nrpnActive         bool

	HoldPedal bool

	ActiveVoices    []*voice.Voice
	SustainedVoices []*voice.Voice

	LockedControllers [128]bool
}

// New creates a channel bound to a soundfont bank and the voice pool it
// will draw from on note-on. blockIndex is a pointer to the synth core's
// current block counter, used to stamp each voice's start time for
// voice-stealing age comparisons (spec §6.6).
func New(number int, bank *sfbank.Bank, pool VoicePool, blockIndex *int64) *Channel {
	c := &Channel{
		Number:                  number,
		bank:                    bank,
		pool:                    pool,
		blockIndex:              blockIndex,
		pitchBendRangeSemitones: 2,
		PitchWheel:              8192,
	}
	c.resetControllersToDefaults()
	return c
}

func (c *Channel) resetControllersToDefaults() {
	for i := range c.Controllers {
		c.Controllers[i] = 0
	}
	c.Controllers[ccVolume] = defaultMainVolume
	c.Controllers[ccExpression] = defaultExpression
	c.Controllers[ccPan] = defaultPan
	c.Controllers[72] = defaultReleaseTime // sound release time
	c.Controllers[74] = defaultBrightness  // sound brightness
	c.Controllers[91] = defaultEffects1Depth
	c.PitchWheel = 8192
	c.ChannelPressure = 0
	c.HoldPedal = false
	c.pitchBendRangeSemitones = 2
	c.pitchBendRangeCents = 0
	c.fineTuneCents = 0
	c.coarseTuneCents = 0
}

// SetBank binds a new soundfont bank, e.g. after loading a new instrument.
func (c *Channel) SetBank(bank *sfbank.Bank) { c.bank = bank }

// ProgramChange selects a preset by (bank, program), spec §4.5
// "bankSelect/programChange change preset".
func (c *Channel) ProgramChange(program uint8) {
	c.Program = int(program)
	c.resolvePreset()
}

// BankSelect applies the coarse (MSB, CC0) and fine (LSB, CC32) bank-select
// controller bytes. Callers route CC0/CC32 here; spec §4.5 also routes
// generic controller storage through ControllerChange.
func (c *Channel) BankSelect(msb, lsb uint8) {
	c.Bank = int(msb)*128 + int(lsb)
	c.resolvePreset()
}

func (c *Channel) resolvePreset() {
	if c.bank == nil {
		c.preset = nil
		return
	}
	p, ok := c.bank.FindPreset(c.Bank, c.Program)
	c.preset = nil
	if ok {
		c.preset = p
	}
}

// PitchBend applies a 14-bit pitch-wheel value (spec §4.5).
func (c *Channel) PitchBend(value14 int) {
	if value14 < 0 {
		value14 = 0
	}
	if value14 > 16383 {
		value14 = 16383
	}
	c.PitchWheel = int16(value14)
}

// PitchWheelCents converts the current pitch wheel position into cents,
// scaled by the channel's pitch-bend-range RPN, for voice.PitchContext.
func (c *Channel) PitchWheelCents() float64 {
	norm := (float64(c.PitchWheel) - 8192) / 8192
	rangeCents := float64(c.pitchBendRangeSemitones)*100 + float64(c.pitchBendRangeCents)
	return norm * rangeCents
}

// TuningCents returns the channel's current fine+coarse tuning offset.
func (c *Channel) TuningCents() float64 {
	return c.fineTuneCents + c.coarseTuneCents
}

// ChannelPressureChange applies an Aftertouch (channel pressure) message.
func (c *Channel) ChannelPressureChange(value uint8) { c.ChannelPressure = value }

// PolyPressureChange applies a per-key Aftertouch message.
func (c *Channel) PolyPressureChange(key, value uint8) {
	if int(key) < len(c.PolyPressure) {
		c.PolyPressure[key] = value
	}
}

// ControllerChange applies a continuous controller message, including
// RPN/NRPN data-entry handling (spec §4.5).
func (c *Channel) ControllerChange(cc, value uint8) {
	if c.LockedControllers[cc] {
		return
	}
	c.Controllers[cc] = value

	switch cc {
	case ccSustainPedal:
		c.HoldPedal = value >= 64
		if !c.HoldPedal {
			c.releaseSustained()
		}
	case ccAllSoundOff:
		c.killAllVoices()
	case ccAllNotesOff:
		c.releaseAllVoices()
	case ccResetAllCtrls:
		c.resetControllersToDefaults()
	case ccRPNMsb:
		c.rpnMSB = value
		c.nrpnActive = false
	case ccRPNLsb:
		c.rpnLSB = value
		c.nrpnActive = false
	case ccNRPNMsb:
		c.nrpnMSB = value
		c.nrpnActive = true
	case ccNRPNLsb:
		c.nrpnLSB = value
		c.nrpnActive = true
	case ccDataEntryMSB:
		c.applyDataEntry(value, c.Controllers[ccDataEntryLSB])
	case ccDataEntryLSB:
		c.applyDataEntry(c.Controllers[ccDataEntryMSB], value)
	}
}

func (c *Channel) applyDataEntry(msb, lsb uint8) {
	if c.nrpnActive {
		// NRPN parameters are instrument-specific and not interpreted here
		// (spec §4.5 only names RPN semantics explicitly).
		return
	}
	param := uint16(c.rpnMSB)<<8 | uint16(c.rpnLSB)
	switch param {
	case rpnPitchBendRange:
		c.pitchBendRangeSemitones = int(msb)
		c.pitchBendRangeCents = int(lsb)
	case rpnFineTune:
		// 14-bit value centered at 8192, +/-100 cents full scale.
		raw := int(msb)<<7 | int(lsb)
		c.fineTuneCents = (float64(raw) - 8192) / 8192 * 100
	case rpnCoarseTune:
		c.coarseTuneCents = (float64(msb) - 64) * 100
	case rpnNull:
		// no-op terminator
	}
}

// NoteOn spawns one voice per matching preset/instrument zone pair and adds
// them to this channel's active set (spec §4.5). vel==0 is handled as
// NoteOff, per the MIDI running-status convention; the engine passes such
// note-ons straight through to here.
func (c *Channel) NoteOn(key, vel uint8) []*voice.Voice {
	if vel == 0 {
		c.NoteOff(key)
		return nil
	}
	if c.preset == nil {
		return nil
	}

	var spawned []*voice.Voice
	for _, pz := range c.matchingPresetZones(key, vel) {
		for _, iz := range c.matchingInstrumentZones(pz, key, vel) {
			if iz.SampleIndex < 0 || iz.SampleIndex >= len(c.bank.Samples) {
				continue
			}
			sample := &c.bank.Samples[iz.SampleIndex]

			base := composeZoneGenerators(c.instrumentGlobalOf(pz), iz, c.preset.GlobalZone(), pz)
			mods := append(append([]sfbank.Modulator{}, iz.Modulators...), pz.Modulators...)

			v := c.pool.Acquire()
			if v == nil {
				continue // spec §4.8: voice creation failures are skipped, not fatal
			}
			v.Trigger(sample, base, mods, key, vel, c.currentBlock())
			c.killExclusiveClassPeers(v)
			c.ActiveVoices = append(c.ActiveVoices, v)
			spawned = append(spawned, v)
		}
	}
	return spawned
}

// NoteOff releases (or, while the sustain pedal is held, parks) every
// active voice matching key (spec §4.5).
func (c *Channel) NoteOff(key uint8) {
	remaining := c.ActiveVoices[:0]
	for _, v := range c.ActiveVoices {
		if v.Key() != key {
			remaining = append(remaining, v)
			continue
		}
		if c.HoldPedal {
			c.SustainedVoices = append(c.SustainedVoices, v)
		} else {
			v.Release()
		}
	}
	c.ActiveVoices = remaining
}

func (c *Channel) releaseSustained() {
	for _, v := range c.SustainedVoices {
		v.Release()
	}
	c.SustainedVoices = c.SustainedVoices[:0]
}

// ReleaseAll moves every active and sustained voice into release, e.g. for
// a sequencer stop or seek (spec §4.7 "stop releases all active voices").
func (c *Channel) ReleaseAll() { c.releaseAllVoices() }

func (c *Channel) releaseAllVoices() {
	for _, v := range c.ActiveVoices {
		v.Release()
	}
	c.releaseSustained()
}

func (c *Channel) killAllVoices() {
	for _, v := range c.ActiveVoices {
		v.Release()
	}
	c.ActiveVoices = c.ActiveVoices[:0]
	c.releaseSustained()
}

func (c *Channel) killExclusiveClassPeers(newVoice *voice.Voice) {
	if newVoice.ExclusiveClass() == 0 {
		return
	}
	for _, v := range c.ActiveVoices {
		if v != newVoice && v.ExclusiveClass() == newVoice.ExclusiveClass() {
			v.Release()
		}
	}
}

// PruneFinished removes finished voices from the active/sustained sets
// (spec §4.6 step 3, driven once per block by the synth core).
func (c *Channel) PruneFinished() {
	c.ActiveVoices = pruneFinishedSlice(c.ActiveVoices)
	c.SustainedVoices = pruneFinishedSlice(c.SustainedVoices)
}

// RemoveVoice drops v from this channel's active/sustained sets without
// releasing it first, for the synth core's global voice-stealing (spec
// §6.6): the pool reclaims v's slot immediately once it decides to steal,
// rather than waiting for an envelope-driven release to finish it.
func (c *Channel) RemoveVoice(v *voice.Voice) {
	c.ActiveVoices = removeVoice(c.ActiveVoices, v)
	c.SustainedVoices = removeVoice(c.SustainedVoices, v)
}

func removeVoice(voices []*voice.Voice, target *voice.Voice) []*voice.Voice {
	for i, v := range voices {
		if v == target {
			return append(voices[:i], voices[i+1:]...)
		}
	}
	return voices
}

func pruneFinishedSlice(voices []*voice.Voice) []*voice.Voice {
	kept := voices[:0]
	for _, v := range voices {
		if !v.Finished() {
			kept = append(kept, v)
		}
	}
	return kept
}

func (c *Channel) currentBlock() int64 {
	if c.blockIndex == nil {
		return 0
	}
	return *c.blockIndex
}

// ModulatorSources assembles the current controller/velocity/key state as
// a modulator.Sources snapshot; velocity/key are supplied per-voice by the
// caller since they're fixed at note-on, not channel-wide.
func (c *Channel) ModulatorSources(velocity, key uint8) modulator.Sources {
	return modulator.Sources{
		Controllers:                c.Controllers,
		Velocity:                   velocity,
		Key:                        key,
		PolyPressure:               c.PolyPressure[key],
		ChannelPressure:            c.ChannelPressure,
		PitchWheel:                 c.PitchWheel,
		PitchWheelSensitivityCents: int16(float64(c.pitchBendRangeSemitones)*100 + float64(c.pitchBendRangeCents)),
	}
}

func (c *Channel) matchingPresetZones(key, vel uint8) []*sfbank.Zone {
	return c.preset.MatchingZones(key, vel)
}

func (c *Channel) matchingInstrumentZones(pz *sfbank.Zone, key, vel uint8) []*sfbank.Zone {
	if pz.InstrumentIndex < 0 || pz.InstrumentIndex >= len(c.bank.Instruments) {
		return nil
	}
	inst := &c.bank.Instruments[pz.InstrumentIndex]
	return inst.MatchingZones(key, vel)
}

func (c *Channel) instrumentGlobalOf(pz *sfbank.Zone) *sfbank.Zone {
	if pz.InstrumentIndex < 0 || pz.InstrumentIndex >= len(c.bank.Instruments) {
		return nil
	}
	return c.bank.Instruments[pz.InstrumentIndex].GlobalZone()
}

// structuralGenerators are SF2 generators that only make sense at the
// instrument-zone level and must not be summed in from a preset zone (SF2
// spec §7.2's "zones add generator values" rule has carve-outs for these).
var structuralGenerators = [...]sfbank.Generator{
	sfbank.GenInstrument, sfbank.GenSampleID, sfbank.GenSampleModes,
	sfbank.GenExclusiveClass, sfbank.GenOverridingRootKey, sfbank.GenKeynum,
	sfbank.GenVelocity, sfbank.GenStartAddrsOffset, sfbank.GenEndAddrsOffset,
	sfbank.GenStartloopAddrsOffset, sfbank.GenEndloopAddrsOffset,
	sfbank.GenStartAddrsCoarseOffset, sfbank.GenEndAddrsCoarseOffset,
	sfbank.GenStartloopAddrsCoarseOffset, sfbank.GenEndloopAddrsCoarseOffset,
}

// composeZoneGenerators builds a voice's effective generator vector: the
// instrument layer (global zone, then the matched zone) overrides the
// defaults outright, then the preset layer (global zone, then the matched
// zone) adds its own generators on top with structural generators stripped
// (spec §3, GLOSSARY: "instrument zones override, preset zones add").
func composeZoneGenerators(instGlobal *sfbank.Zone, inst *sfbank.Zone, presetGlobal *sfbank.Zone, preset *sfbank.Zone) sfbank.GeneratorVector {
	g := sfbank.DefaultGenerators
	if instGlobal != nil {
		g = instGlobal.Generators
	}
	g = inst.Generators

	if presetGlobal != nil {
		g = g.Add(stripStructural(presetGlobal.Generators))
	}
	g = g.Add(stripStructural(preset.Generators))

	return g
}

func stripStructural(v sfbank.GeneratorVector) sfbank.GeneratorVector {
	for _, id := range structuralGenerators {
		v[id] = 0
	}
	return v
}
