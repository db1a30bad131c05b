package sequencer

import (
	"testing"

	"github.com/soundcell/sfsynth/sfbank/sfbanktest"
	"github.com/soundcell/sfsynth/synth"
)

func newTestSequencer() (*Sequencer, *synth.Engine) {
	bank := sfbanktest.SineBank(69, 440, 44100)
	cfg := synth.DefaultConfig(44100)
	cfg.ReverbEnabled = false
	cfg.ChorusEnabled = false
	cfg.InitialChannelCount = 2
	e := synth.New(cfg, bank)
	s := New(e)
	s.ticksPerQuarter = 480
	s.tempoMap = []TempoPoint{{Tick: 0, MicrosPerQuarter: 500000}} // 120 BPM
	return s, e
}

func TestSecondsToTicksAtFixedTempo(t *testing.T) {
	s, _ := newTestSequencer()
	// 120 BPM, 480 PPQ: one quarter note (480 ticks) per 0.5s.
	tick := s.secondsToTicks(1.0)
	if tick < 958 || tick > 962 {
		t.Errorf("expected ~960 ticks at 1s/120BPM/480PPQ, got %d", tick)
	}
}

func TestSecondsToTicksAcrossTempoChange(t *testing.T) {
	s, _ := newTestSequencer()
	// spec §8 scenario 4: 120->60 BPM change at tick 960, PPQ 480.
	// Event at tick 1440 should fire at 1.0s + 0.5s = 1.5s.
	s.tempoMap = []TempoPoint{
		{Tick: 0, MicrosPerQuarter: 500000},   // 120 BPM
		{Tick: 960, MicrosPerQuarter: 1000000}, // 60 BPM
	}
	seconds := s.ticksToSeconds(1440)
	if seconds < 1.499 || seconds > 1.501 {
		t.Errorf("expected tick 1440 at 1.5s, got %v", seconds)
	}
	// and the inverse should round-trip back near the same tick.
	tick := s.secondsToTicks(seconds)
	if tick < 1438 || tick > 1442 {
		t.Errorf("expected round-trip near tick 1440, got %d", tick)
	}
}

func TestAdvanceDispatchesNoteOnAtItsTick(t *testing.T) {
	s, e := newTestSequencer()
	s.tracks = []*Track{{Events: []Event{
		{Tick: 0, Status: 0x90, Data1: 69, Data2: 100},
	}}}
	s.portOffsets = []int{0}

	e.Dispatch(synth.ControlMessage{Channel: 0, Status: 0xC0, Data1: 0})
	s.Start(0)
	s.Advance(0)

	if len(e.Channel(0).ActiveVoices) == 0 {
		t.Fatalf("expected note-on at tick 0 to have spawned a voice")
	}
}

func TestSeekReplaysControllerStateButNotNotes(t *testing.T) {
	s, e := newTestSequencer()
	s.tracks = []*Track{{Events: []Event{
		{Tick: 0, Status: 0xB0, Data1: 7, Data2: 50}, // CC#7 = 50
		{Tick: 100, Status: 0x90, Data1: 60, Data2: 100},
		{Tick: 200, Status: 0x80, Data1: 60, Data2: 0},
	}}}
	s.portOffsets = []int{0}

	e.Dispatch(synth.ControlMessage{Channel: 0, Status: 0xC0, Data1: 0})
	s.Start(0)
	s.SetTimeTicks(500, 10)

	if e.Channel(0).Controllers[7] != 50 {
		t.Errorf("expected CC#7 to be replayed as 50, got %d", e.Channel(0).Controllers[7])
	}
	if len(e.Channel(0).ActiveVoices) != 0 {
		t.Errorf("expected no active voices after a muted seek, got %d", len(e.Channel(0).ActiveVoices))
	}
}

func TestLoopResetsCursorsAndDecrementsCount(t *testing.T) {
	s, _ := newTestSequencer()
	s.tracks = []*Track{{Events: []Event{
		{Tick: 0, Status: 0x90, Data1: 60, Data2: 100},
		{Tick: 10, Status: 0x80, Data1: 60, Data2: 0},
	}}}
	s.portOffsets = []int{0}
	s.SetLoop(0, 10, 2)

	s.Start(0)
	// advance well past loopEnd in ticks (tempo: 1 tick = 1/(480*2) s at 120bpm).
	secondsAtLoopEnd := s.ticksToSeconds(10)
	s.Advance(secondsAtLoopEnd + 0.01)

	if s.loopCount != 1 {
		t.Errorf("expected loopCount to decrement to 1, got %d", s.loopCount)
	}
	if s.tracks[0].cursor >= len(s.tracks[0].Events) {
		t.Errorf("expected cursor to rewind toward the start after looping, got %d", s.tracks[0].cursor)
	}
}

func TestPauseResumeKeepsPlayedTimeContinuous(t *testing.T) {
	s, _ := newTestSequencer()
	s.Start(0)
	s.Advance(2.0)
	before := s.playedTime

	s.Pause(2.0)
	s.Resume(5.0) // 3 simulated seconds pass while paused

	s.Advance(5.1)
	if s.playedTime < before {
		t.Errorf("expected playedTime to continue increasing after resume, before=%v after=%v", before, s.playedTime)
	}
}
