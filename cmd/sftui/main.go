// Package main is sftui, a terminal transport for sequencer playback: play,
// pause, seek, and loop an SMF against the synth engine while it plays to
// the speaker.
package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/soundcell/sfsynth/sequencer"
	"github.com/soundcell/sfsynth/sfbank/sfbanktest"
	"github.com/soundcell/sfsynth/synth"
)

const sampleRate = 44100

var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(acidGreen).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(silverGray)
	valueStyle = lipgloss.NewStyle().Foreground(acidYellow).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).MarginTop(1)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(acidGreen).Padding(1, 2)
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: sftui <file.mid>")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	bank := sfbanktest.SineBank(69, 440, sampleRate)
	sr := beep.SampleRate(sampleRate)
	quantum := sr.N(time.Second / 10)

	cfg := synth.DefaultConfig(sampleRate)
	cfg.BlockSize = quantum
	engine := synth.New(cfg, bank)

	seq, err := sequencer.LoadSMF(engine, data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	seq.Start(0)

	streamer := newTransportStreamer(engine, seq)
	speaker.Init(sr, quantum)
	speaker.Play(streamer)

	p := tea.NewProgram(newModel(streamer))
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// status is the audio thread's published view of transport state, read by
// the TUI goroutine via atomic.Value.
type status struct {
	tick     int64
	played   float64
	paused   bool
	looping  bool
	finished bool
}

// transportStreamer drives the sequencer and engine from the speaker's
// callback (the audio thread), and accepts transport commands from the TUI
// goroutine through cmds rather than letting the TUI call Sequencer methods
// directly — the sequencer dispatches straight into the engine (spec §4.7),
// so only one goroutine may touch it at a time.
type transportStreamer struct {
	engine *synth.Engine
	seq    *sequencer.Sequencer
	played float64

	cmds chan func(now float64)

	pausedState bool
	looping     bool

	snapshot atomic.Value
}

func newTransportStreamer(engine *synth.Engine, seq *sequencer.Sequencer) *transportStreamer {
	return &transportStreamer{
		engine: engine,
		seq:    seq,
		cmds:   make(chan func(now float64), 8),
	}
}

func (s *transportStreamer) Stream(samples [][2]float64) (int, bool) {
	draining := true
	for draining {
		select {
		case cmd := <-s.cmds:
			cmd(s.played)
		default:
			draining = false
		}
	}

	s.played += float64(len(samples)) / sampleRate
	s.seq.Advance(s.played)
	s.engine.Render(samples)

	s.snapshot.Store(status{
		tick:     s.seq.CurrentTick(),
		played:   s.seq.PlayedTime(),
		paused:   s.pausedState,
		looping:  s.looping,
		finished: s.seq.Finished(),
	})

	if s.seq.Finished() {
		return len(samples), false
	}
	return len(samples), true
}

func (s *transportStreamer) Err() error { return nil }

func (s *transportStreamer) send(fn func(now float64)) {
	select {
	case s.cmds <- fn:
	default:
	}
}

func (s *transportStreamer) togglePause() {
	s.send(func(now float64) {
		if s.pausedState {
			s.seq.Resume(now)
			s.pausedState = false
		} else {
			s.seq.Pause(now)
			s.pausedState = true
		}
	})
}

func (s *transportStreamer) seekBy(deltaSeconds float64) {
	s.send(func(now float64) {
		target := s.seq.PlayedTime() + deltaSeconds
		if target < 0 {
			target = 0
		}
		s.seq.SetTimeSeconds(target, now)
	})
}

func (s *transportStreamer) toggleLoop() {
	s.send(func(now float64) {
		if s.looping {
			s.seq.SetLoop(0, 0, 0)
			s.looping = false
		} else {
			s.seq.SetLoop(0, s.seq.CurrentTick(), 1<<30)
			s.looping = true
		}
	})
}

func (s *transportStreamer) status() status {
	v, _ := s.snapshot.Load().(status)
	return v
}

type tickMsg time.Time

func pollTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	streamer *transportStreamer
	spin     spinner.Model
	last     status
}

func newModel(streamer *transportStreamer) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(acidGreen)
	return model{streamer: streamer, spin: sp}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, pollTick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.last = m.streamer.status()
		return m, pollTick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.streamer.togglePause()
		case "left":
			m.streamer.seekBy(-2)
		case "right":
			m.streamer.seekBy(2)
		case "l":
			m.streamer.toggleLoop()
		}
	}
	return m, nil
}

func (m model) View() string {
	playState := "playing"
	icon := m.spin.View()
	if m.last.paused {
		playState, icon = "paused", "‖"
	}
	if m.last.finished {
		playState, icon = "finished", "■"
	}

	loopState := "off"
	if m.last.looping {
		loopState = "on"
	}

	body := titleStyle.Render(" SFSYNTH TRANSPORT ") + "\n\n" +
		fmt.Sprintf("%s %s\n", icon, valueStyle.Render(playState)) +
		labelStyle.Render("tick:  ") + valueStyle.Render(fmt.Sprintf("%d", m.last.tick)) + "\n" +
		labelStyle.Render("time:  ") + valueStyle.Render(fmt.Sprintf("%.2fs", m.last.played)) + "\n" +
		labelStyle.Render("loop:  ") + valueStyle.Render(loopState)

	return boxStyle.Render(body) + "\n" +
		helpStyle.Render("space: pause/resume  ←/→: seek 2s  l: loop here  q: quit")
}
