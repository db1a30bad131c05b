// Package midiutil names the MIDI 1.0 status-byte and controller constants
// the rest of the module switches on, promoted from the teacher's inline
// hex literals (`0x90`, `0x80`, `0xb0` in main.go/midi.go) into a shared set
// cross-checked against gitlab.com/gomidi/midi/v2's own constant tables.
package midiutil

// Channel voice message status nibbles (high nibble of the status byte;
// the low nibble carries the channel number 0-15).
const (
	StatusNoteOff         uint8 = 0x80
	StatusNoteOn          uint8 = 0x90
	StatusPolyPressure    uint8 = 0xA0
	StatusControlChange   uint8 = 0xB0
	StatusProgramChange   uint8 = 0xC0
	StatusChannelPressure uint8 = 0xD0
	StatusPitchBend       uint8 = 0xE0
)

// System common / real-time / exclusive status bytes.
const (
	StatusSysEx        uint8 = 0xF0
	StatusSysExEnd     uint8 = 0xF7
	StatusSongPosition uint8 = 0xF2
	StatusSongSelect   uint8 = 0xF3
	StatusTuneRequest  uint8 = 0xF6
	StatusTimingClock  uint8 = 0xF8
	StatusStart        uint8 = 0xFA
	StatusContinue     uint8 = 0xFB
	StatusStop         uint8 = 0xFC
	StatusActiveSense  uint8 = 0xFE
	StatusSystemReset  uint8 = 0xFF
)

// Meta event type byte, valid only inside a Standard MIDI File.
const MetaEvent uint8 = 0xFF

// Commonly referenced continuous controller numbers (spec §4.5).
const (
	CCModWheel       uint8 = 1
	CCBreathControl  uint8 = 2
	CCFootController uint8 = 4
	CCPortamentoTime uint8 = 5
	CCDataEntryMSB   uint8 = 6
	CCVolume         uint8 = 7
	CCBalance        uint8 = 8
	CCPan            uint8 = 10
	CCExpression     uint8 = 11
	CCDataEntryLSB   uint8 = 38
	CCSustainPedal   uint8 = 64
	CCPortamentoSwitch uint8 = 65
	CCSoundBrightness  uint8 = 74
	CCSoundReleaseTime uint8 = 72
	CCEffects1Depth    uint8 = 91 // reverb send
	CCEffects3Depth    uint8 = 93 // chorus send
	CCNRPNLsb          uint8 = 98
	CCNRPNMsb          uint8 = 99
	CCRPNLsb           uint8 = 100
	CCRPNMsb           uint8 = 101
	CCAllSoundOff      uint8 = 120
	CCResetAllCtrls    uint8 = 121
	CCLocalControl     uint8 = 122
	CCAllNotesOff      uint8 = 123
	CCOmniOff          uint8 = 124
	CCOmniOn           uint8 = 125
	CCMonoOn           uint8 = 126
	CCPolyOn           uint8 = 127
)

// IsChannelVoiceStatus reports whether status's high nibble is one of the
// seven channel voice/mode message kinds (0x80-0xE0).
func IsChannelVoiceStatus(status uint8) bool {
	hi := status & 0xF0
	return hi >= StatusNoteOff && hi <= StatusPitchBend
}

// DataByteCount returns how many data bytes follow a channel voice status
// byte: program change and channel pressure take one, everything else
// takes two. Returns 0 for a non-channel-voice status.
func DataByteCount(status uint8) int {
	switch status & 0xF0 {
	case StatusProgramChange, StatusChannelPressure:
		return 1
	case StatusNoteOff, StatusNoteOn, StatusPolyPressure, StatusControlChange, StatusPitchBend:
		return 2
	default:
		return 0
	}
}
