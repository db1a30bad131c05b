package channel

import "bytes"

// SysExKind identifies a recognized GM/GS/XG system-exclusive message
// (SPEC_FULL §6.5).
type SysExKind int

const (
	SysExUnrecognized SysExKind = iota
	SysExGMReset
	SysExGSReset
	SysExGSDrumPartToggle
	SysExXGReset
	SysExXGDrumMapSelect
	SysExGMMasterVolume
)

// SysExEvent is the decoded result of ParseSysEx.
type SysExEvent struct {
	Kind SysExKind

	// Channel is the 0-based MIDI channel addressed by a per-channel
	// message (GSDrumPartToggle, XGDrumMapSelect); -1 otherwise.
	Channel int

	// Percussion is the drum-part/drum-map flag for the per-channel
	// messages above.
	Percussion bool

	// MasterVolume is the 0..1 scalar carried by SysExGMMasterVolume.
	MasterVolume float64
}

var (
	gmReset = []byte{0xF0, 0x7E, 0x7F, 0x09, 0x01, 0xF7}
	gsReset = []byte{0xF0, 0x41, 0x10, 0x42, 0x12, 0x40, 0x00, 0x7F, 0x00, 0x41, 0xF7}
	xgReset = []byte{0xF0, 0x43, 0x10, 0x4C, 0x00, 0x00, 0x7E, 0x00, 0xF7}
)

// ParseSysEx recognizes the GM/GS/XG messages named in SPEC_FULL §6.5.
// Unrecognized SysEx yields SysExUnrecognized, which the engine drops
// (never fatal); no count of dropped messages is kept.
func ParseSysEx(data []byte) SysExEvent {
	switch {
	case bytes.Equal(data, gmReset):
		return SysExEvent{Kind: SysExGMReset, Channel: -1}
	case bytes.Equal(data, gsReset):
		return SysExEvent{Kind: SysExGSReset, Channel: -1}
	case bytes.Equal(data, xgReset):
		return SysExEvent{Kind: SysExXGReset, Channel: -1}
	}

	if ev, ok := parseGSDrumPartToggle(data); ok {
		return ev
	}
	if ev, ok := parseXGDrumMapSelect(data); ok {
		return ev
	}
	if ev, ok := parseGMMasterVolume(data); ok {
		return ev
	}

	return SysExEvent{Kind: SysExUnrecognized, Channel: -1}
}

// parseGSDrumPartToggle recognizes Roland's `F0 41 10 42 12 40 1x 15 vv cs F7`
// parameter-change address `40 1x 15` (drum-part toggle for channel x).
func parseGSDrumPartToggle(data []byte) (SysExEvent, bool) {
	if len(data) != 11 || data[0] != 0xF0 || data[1] != 0x41 || data[3] != 0x42 || data[4] != 0x12 {
		return SysExEvent{}, false
	}
	if data[5] != 0x40 || (data[6]&0xF0) != 0x10 || data[7] != 0x15 {
		return SysExEvent{}, false
	}
	ch := int(data[6] & 0x0F)
	return SysExEvent{Kind: SysExGSDrumPartToggle, Channel: ch, Percussion: data[8] != 0}, true
}

// parseXGDrumMapSelect recognizes Yamaha's `F0 43 1n 4C 08 xx 07 vv F7`
// drum-map-select parameter-change for channel n.
func parseXGDrumMapSelect(data []byte) (SysExEvent, bool) {
	if len(data) != 9 || data[0] != 0xF0 || data[1] != 0x43 || data[3] != 0x4C || data[4] != 0x08 {
		return SysExEvent{}, false
	}
	if data[6] != 0x07 {
		return SysExEvent{}, false
	}
	ch := int(data[2] & 0x0F)
	return SysExEvent{Kind: SysExXGDrumMapSelect, Channel: ch, Percussion: data[7] != 0}, true
}

// parseGMMasterVolume recognizes the Universal Real-Time `F0 7F 7F 04 01 ll mm F7`
// device master-volume message; mm (the 14-bit value's MSB) is the
// primary resolution per the MMA spec.
func parseGMMasterVolume(data []byte) (SysExEvent, bool) {
	if len(data) != 8 || data[0] != 0xF0 || data[1] != 0x7F || data[3] != 0x04 || data[4] != 0x01 {
		return SysExEvent{}, false
	}
	raw := int(data[5]) | int(data[6])<<7
	return SysExEvent{Kind: SysExGMMasterVolume, Channel: -1, MasterVolume: float64(raw) / 16383}, true
}

// HandleSysEx applies a decoded SysEx event to this channel: drum-part/
// drum-map toggles addressed to it, and GM/GS/XG resets, which reset its
// controllers, percussion flag and voices. A master-volume event is
// ignored here, and the synth core does not apply it either (SPEC_FULL
// §6.5).
func (c *Channel) HandleSysEx(ev SysExEvent) {
	switch ev.Kind {
	case SysExGSDrumPartToggle, SysExXGDrumMapSelect:
		if ev.Channel == c.Number%16 {
			c.Percussion = ev.Percussion
		}
	case SysExGMReset, SysExGSReset, SysExXGReset:
		c.resetControllersToDefaults()
		c.Percussion = false
		c.killAllVoices()
	}
}
