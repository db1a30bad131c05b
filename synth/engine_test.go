package synth

import (
	"math"
	"testing"

	"github.com/soundcell/sfsynth/eventbus"
	"github.com/soundcell/sfsynth/sfbank/sfbanktest"
)

func testConfig(sampleRate float64) Config {
	cfg := DefaultConfig(sampleRate)
	cfg.ReverbEnabled = false
	cfg.ChorusEnabled = false
	cfg.InitialChannelCount = 4
	cfg.BlockSize = 256
	return cfg
}

// spec §8 scenario 1: a 440 Hz sine at root key 69, played at key 69, held
// for 1s at 48kHz, crosses zero about 880 times; the assertion accepts
// 876..884.
func TestEngineRendersNoteAtSourcePitch(t *testing.T) {
	const sampleRate = 48000
	bank := sfbanktest.SineBank(69, 440, sampleRate)
	e := New(testConfig(sampleRate), bank)

	e.Dispatch(ControlMessage{Channel: 0, Status: 0xC0, Data1: 0})
	e.Dispatch(ControlMessage{Channel: 0, Status: 0x90, Data1: 69, Data2: 127})

	total := sampleRate
	out := make([][2]float64, e.cfg.BlockSize)
	crossings := 0
	prev := 0.0
	first := true
	rendered := 0
	for rendered < total {
		n := e.cfg.BlockSize
		if rendered+n > total {
			n = total - rendered
		}
		e.Render(out[:n])
		for i := 0; i < n; i++ {
			cur := out[i][0]
			if !first && (prev < 0) != (cur < 0) {
				crossings++
			}
			prev = cur
			first = false
		}
		rendered += n
	}

	if crossings < 876 || crossings > 884 {
		t.Errorf("expected ~880 zero crossings, got %d", crossings)
	}
}

func TestEngineVoiceCapStealsOldestWhenExhausted(t *testing.T) {
	const sampleRate = 48000
	bank := sfbanktest.SineBank(69, 440, sampleRate)
	cfg := testConfig(sampleRate)
	cfg.VoiceCap = 2
	e := New(cfg, bank)

	e.Dispatch(ControlMessage{Channel: 0, Status: 0xC0, Data1: 0})
	e.Dispatch(ControlMessage{Channel: 0, Status: 0x90, Data1: 60, Data2: 100})
	e.Dispatch(ControlMessage{Channel: 0, Status: 0x90, Data1: 61, Data2: 100})
	// a third note-on must steal rather than silently fail to sound.
	e.Dispatch(ControlMessage{Channel: 0, Status: 0x90, Data1: 62, Data2: 100})

	total := 0
	for _, c := range e.channels {
		total += len(c.ActiveVoices) + len(c.SustainedVoices)
	}
	if total > cfg.VoiceCap {
		t.Errorf("expected at most %d live voices, got %d", cfg.VoiceCap, total)
	}
	if total == 0 {
		t.Errorf("expected at least one live voice after stealing")
	}
}

func TestEngineProgramChangePublishesEvent(t *testing.T) {
	const sampleRate = 48000
	bank := sfbanktest.SineBank(69, 440, sampleRate)
	e := New(testConfig(sampleRate), bank)

	e.Dispatch(ControlMessage{Channel: 0, Status: 0xC0, Data1: 5})

	ev, ok := e.Outbound.TryPop()
	if !ok {
		t.Fatalf("expected a published event")
	}
	if ev.Kind != eventbus.ProgramChange || ev.Program != 5 {
		t.Errorf("expected ProgramChange(5), got %+v", ev)
	}
}

func TestEngineGSResetSysExClearsVoices(t *testing.T) {
	const sampleRate = 48000
	bank := sfbanktest.SineBank(69, 440, sampleRate)
	e := New(testConfig(sampleRate), bank)

	e.Dispatch(ControlMessage{Channel: 0, Status: 0xC0, Data1: 0})
	e.Dispatch(ControlMessage{Channel: 0, Status: 0x90, Data1: 60, Data2: 100})
	if len(e.channels[0].ActiveVoices) == 0 {
		t.Fatalf("expected a sounding voice before reset")
	}

	e.Dispatch(ControlMessage{SysEx: []byte{0xF0, 0x41, 0x10, 0x42, 0x12, 0x40, 0x00, 0x7F, 0x00, 0x41, 0xF7}})

	for _, c := range e.channels {
		if len(c.ActiveVoices) != 0 {
			t.Errorf("expected channel %d to have no active voices after GS reset", c.Number)
		}
	}
}

func TestEngineRenderIsFinite(t *testing.T) {
	const sampleRate = 44100
	bank := sfbanktest.SineBank(69, 440, sampleRate)
	cfg := DefaultConfig(sampleRate)
	cfg.InitialChannelCount = 2
	cfg.BlockSize = 128
	e := New(cfg, bank)

	e.Dispatch(ControlMessage{Channel: 0, Status: 0xC0, Data1: 0})
	e.Dispatch(ControlMessage{Channel: 0, Status: 0x90, Data1: 69, Data2: 127})

	out := make([][2]float64, cfg.BlockSize)
	for i := 0; i < 50; i++ {
		e.Render(out)
		for _, s := range out {
			if math.IsNaN(s[0]) || math.IsInf(s[0], 0) || math.IsNaN(s[1]) || math.IsInf(s[1], 0) {
				t.Fatalf("render produced a non-finite sample at block %d: %+v", i, s)
			}
		}
	}
}
