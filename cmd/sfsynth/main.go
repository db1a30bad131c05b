// Package main is the sfsynth command-line player: render an SMF through a
// SoundFont bank to the system speaker, or listen to a live MIDI input.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/rakyll/portmidi"
	"github.com/spf13/cobra"

	"github.com/soundcell/sfsynth/sequencer"
	"github.com/soundcell/sfsynth/sfbank"
	"github.com/soundcell/sfsynth/sfbank/sfbanktest"
	"github.com/soundcell/sfsynth/synth"
)

const sampleRate = 44100

var (
	sf2Path    string
	demoBank   bool
	deviceID   int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sfsynth",
	Short: "Play Standard MIDI Files and live MIDI through a SoundFont bank",
}

var playCmd = &cobra.Command{
	Use:   "play <file.mid>",
	Short: "Render an SMF to the speaker",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Play live notes from a MIDI input device",
	RunE:  runListen,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available MIDI devices",
	RunE:  runDevices,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sf2Path, "sf2", "", "path to a .sf2 SoundFont file")
	rootCmd.PersistentFlags().BoolVar(&demoBank, "demo", false, "use a built-in sine-wave test bank instead of --sf2")
	listenCmd.Flags().IntVar(&deviceID, "device", -1, "MIDI input device id (default: system default)")

	rootCmd.AddCommand(playCmd, listenCmd, devicesCmd)
}

// loadBank resolves the bank for this run. Binary SoundFont decoding is an
// external collaborator per this module's contract (sfbank.Loader) — no
// decoder ships here, so a real --sf2 path is only accepted once one is
// wired in by the caller; --demo exercises the engine with sfbanktest's
// synthetic sine bank.
func loadBank() (*sfbank.Bank, error) {
	if demoBank || sf2Path == "" {
		return sfbanktest.SineBank(69, 440, sampleRate), nil
	}
	return nil, fmt.Errorf("no SoundFont decoder registered for %q; pass --demo for a built-in test bank (SF2 parsing is out of scope for this module, see sfbank.Loader)", sf2Path)
}

// engineStreamer adapts synth.Engine (optionally driven by a sequencer) to
// beep.Streamer, the same interface the teacher's Controller/Recorder
// implemented against the speaker.
type engineStreamer struct {
	engine *synth.Engine
	seq    *sequencer.Sequencer
	played float64
}

func (s *engineStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.seq != nil {
		s.played += float64(len(samples)) / sampleRate
		s.seq.Advance(s.played)
	}
	s.engine.Render(samples)
	if s.seq != nil && s.seq.Finished() {
		return len(samples), false
	}
	return len(samples), true
}

func (s *engineStreamer) Err() error { return nil }

func runPlay(cmd *cobra.Command, args []string) error {
	bank, err := loadBank()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	sr := beep.SampleRate(sampleRate)
	quantum := sr.N(time.Second / 10)

	cfg := synth.DefaultConfig(sampleRate)
	cfg.BlockSize = quantum
	engine := synth.New(cfg, bank)

	seq, err := sequencer.LoadSMF(engine, data)
	if err != nil {
		return err
	}
	seq.Start(0)

	speaker.Init(sr, quantum)
	streamer := &engineStreamer{engine: engine, seq: seq}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() { close(done) })))
	<-done
	return nil
}

func runListen(cmd *cobra.Command, args []string) error {
	bank, err := loadBank()
	if err != nil {
		return err
	}

	if err := portmidi.Initialize(); err != nil {
		return err
	}
	defer portmidi.Terminate()

	id := portmidi.DefaultInputDeviceID()
	if deviceID >= 0 {
		id = portmidi.DeviceID(deviceID)
	}
	in, err := portmidi.NewInputStream(id, 1024)
	if err != nil {
		return err
	}
	defer in.Close()

	sr := beep.SampleRate(sampleRate)
	quantum := sr.N(time.Second / 10)

	cfg := synth.DefaultConfig(sampleRate)
	cfg.BlockSize = quantum
	engine := synth.New(cfg, bank)

	speaker.Init(sr, quantum)
	speaker.Play(&engineStreamer{engine: engine})

	fmt.Println("listening, ctrl-c to quit")
	for {
		events, err := in.Read(1024)
		if err != nil {
			return err
		}
		for _, ev := range events {
			engine.Inbound.TryPush(synth.ControlMessage{
				Channel: int(ev.Status & 0x0F),
				Status:  uint8(ev.Status & 0xF0),
				Data1:   uint8(ev.Data1),
				Data2:   uint8(ev.Data2),
			})
		}
	}
}

func runDevices(cmd *cobra.Command, args []string) error {
	if err := portmidi.Initialize(); err != nil {
		return err
	}
	defer portmidi.Terminate()

	n := portmidi.CountDevices()
	for i := 0; i < n; i++ {
		info := portmidi.Info(portmidi.DeviceID(i))
		if info == nil {
			continue
		}
		dir := "output"
		if info.IsInputAvailable {
			dir = "input"
		}
		fmt.Printf("%d: %s (%s, %s)\n", i, info.Name, info.Interface, dir)
	}
	return nil
}
