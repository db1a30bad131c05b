// Package main is sfscope, a debug oscilloscope/spectrum window over a
// running synth.Engine plus a REPL for poking it with ad hoc MIDI messages.
package main

import (
	"fmt"
	"math/cmplx"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/maddyblue/go-dsp/fft"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/soundcell/sfsynth/sfbank/sfbanktest"
	"github.com/soundcell/sfsynth/synth"
)

const sampleRate = 44100

const (
	screenWidth  = 1000
	screenHeight = 600
)

// recorder wraps an Engine's Render as a beep.Streamer and keeps a ring
// buffer of recent output, so the scope window can snapshot samples without
// touching the audio callback directly (teacher's main.go Recorder, read
// from synth.Engine instead of beep.Mix).
type recorder struct {
	engine *synth.Engine

	mu       sync.Mutex
	buf      [][2]float64
	position int
}

func newRecorder(engine *synth.Engine, size int) *recorder {
	return &recorder{engine: engine, buf: make([][2]float64, size)}
}

func (r *recorder) Stream(samples [][2]float64) (int, bool) {
	r.engine.Render(samples)

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range samples {
		r.buf[r.position%len(r.buf)] = samples[i]
		r.position++
	}
	return len(samples), true
}

func (r *recorder) Err() error { return nil }

func (r *recorder) snapshot(out [][2]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lim := len(out)
	if len(r.buf) < lim {
		lim = len(r.buf)
	}
	for i := 0; i < lim; i++ {
		out[i] = r.buf[(r.position+i)%len(r.buf)]
	}
}

func main() {
	bank := sfbanktest.SineBank(69, 440, sampleRate)
	sr := beep.SampleRate(sampleRate)
	quantum := sr.N(time.Second / 20)

	cfg := synth.DefaultConfig(sampleRate)
	cfg.BlockSize = quantum
	engine := synth.New(cfg, bank)

	rec := newRecorder(engine, 2000)
	speaker.Init(sr, quantum)
	speaker.Play(rec)

	go runREPL(engine)

	runWindow(rec)
}

// runREPL accepts ad hoc MIDI-ish commands and pushes them onto the
// engine's inbound queue, the same crossing the real control thread uses
// (spec §5).
func runREPL(engine *synth.Engine) {
	completer := func(d prompt.Document) []prompt.Suggest { return nil }

	for {
		line := prompt.Input("sfscope> ", completer)
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "noteon":
			if len(fields) < 3 {
				fmt.Println("usage: noteon <channel> <key> [velocity]")
				continue
			}
			ch, _ := strconv.Atoi(fields[1])
			key, _ := strconv.Atoi(fields[2])
			vel := 100
			if len(fields) > 3 {
				vel, _ = strconv.Atoi(fields[3])
			}
			engine.Inbound.TryPush(synth.ControlMessage{Channel: ch, Status: 0x90, Data1: uint8(key), Data2: uint8(vel)})
		case "noteoff":
			if len(fields) < 3 {
				fmt.Println("usage: noteoff <channel> <key>")
				continue
			}
			ch, _ := strconv.Atoi(fields[1])
			key, _ := strconv.Atoi(fields[2])
			engine.Inbound.TryPush(synth.ControlMessage{Channel: ch, Status: 0x80, Data1: uint8(key)})
		case "cc":
			if len(fields) < 4 {
				fmt.Println("usage: cc <channel> <controller> <value>")
				continue
			}
			ch, _ := strconv.Atoi(fields[1])
			cc, _ := strconv.Atoi(fields[2])
			val, _ := strconv.Atoi(fields[3])
			engine.Inbound.TryPush(synth.ControlMessage{Channel: ch, Status: 0xB0, Data1: uint8(cc), Data2: uint8(val)})
		case "program":
			if len(fields) < 3 {
				fmt.Println("usage: program <channel> <program>")
				continue
			}
			ch, _ := strconv.Atoi(fields[1])
			pg, _ := strconv.Atoi(fields[2])
			engine.Inbound.TryPush(synth.ControlMessage{Channel: ch, Status: 0xC0, Data1: uint8(pg)})
		case "exit", "quit":
			os.Exit(0)
		default:
			fmt.Println("commands: noteon, noteoff, cc, program, exit")
		}
	}
}

func runWindow(rec *recorder) {
	if err := sdl.Init(sdl.INIT_EVERYTHING); err != nil {
		fmt.Println("failed to initialize SDL:", err)
		os.Exit(1)
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow("sfscope", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, screenWidth, screenHeight, sdl.WINDOW_SHOWN)
	if err != nil {
		fmt.Println("failed to create window:", err)
		os.Exit(1)
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		fmt.Println("failed to create renderer:", err)
		os.Exit(1)
	}
	defer renderer.Destroy()

	buf := make([][2]float64, 2000)
	dataPoints := make([]float64, len(buf))

	running := true
	for running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch event.(type) {
			case *sdl.QuitEvent:
				running = false
			}
		}

		rec.snapshot(buf)
		for i, v := range buf {
			dataPoints[i] = v[0]
		}

		fftResult := fft.FFTReal(dataPoints)
		magnitudeSpectrum := make([]float64, len(fftResult)/2+1)
		for i, c := range fftResult[:len(magnitudeSpectrum)] {
			magnitudeSpectrum[i] = cmplx.Abs(c) / float64(len(dataPoints))
		}

		renderer.SetDrawColor(255, 255, 255, 255)
		renderer.Clear()

		graphData(renderer, dataPoints[:500], 50, 50, 600, 200, -1, 1)
		graphData(renderer, magnitudeSpectrum[:100], 50, 300, 600, 200, 0, 0.5)

		renderer.Present()
		sdl.Delay(16)
	}
}

func graphData(renderer *sdl.Renderer, dataPoints []float64, x, y, width, height int32, minval, maxval float64) {
	renderer.SetDrawColor(0, 0, 0, 255)
	renderer.DrawLine(x, y+height/2, x+width, y+height/2)
	renderer.DrawLine(x, y, x, y+height)

	spread := maxval - minval
	renderer.SetDrawColor(255, 0, 0, 255)
	for i := 0; i < len(dataPoints)-1; i++ {
		x1 := x + int32(float64(i)*float64(width)/float64(len(dataPoints)-1))
		y1 := y + height - int32((float64(dataPoints[i]-minval)/maxval)*float64(height)/spread)
		x2 := x + int32(float64(i+1)*float64(width)/float64(len(dataPoints)-1))
		y2 := y + height - int32((float64(dataPoints[i+1]-minval)/maxval)*float64(height)/spread)
		renderer.DrawLine(x1, y1, x2, y2)
	}
}
