package midiutil

import "testing"

func TestIsChannelVoiceStatus(t *testing.T) {
	cases := map[uint8]bool{
		0x90: true,
		0x95: true, // channel nibble set, still note-on
		0xE0: true,
		0xF0: false,
		0x70: false,
	}
	for status, want := range cases {
		if got := IsChannelVoiceStatus(status); got != want {
			t.Errorf("IsChannelVoiceStatus(0x%X) = %v, want %v", status, got, want)
		}
	}
}

func TestDataByteCount(t *testing.T) {
	if n := DataByteCount(StatusProgramChange); n != 1 {
		t.Errorf("program change expected 1 data byte, got %d", n)
	}
	if n := DataByteCount(StatusNoteOn); n != 2 {
		t.Errorf("note-on expected 2 data bytes, got %d", n)
	}
	if n := DataByteCount(StatusSysEx); n != 0 {
		t.Errorf("sysex expected 0 via this helper, got %d", n)
	}
}
