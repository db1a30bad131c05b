package synth

import (
	"github.com/soundcell/sfsynth/channel"
	"github.com/soundcell/sfsynth/chorus"
	"github.com/soundcell/sfsynth/eventbus"
	"github.com/soundcell/sfsynth/midiutil"
	"github.com/soundcell/sfsynth/reverb"
	"github.com/soundcell/sfsynth/sfbank"
	"github.com/soundcell/sfsynth/voice"
)

// ControlMessage is one inbound message crossing from the control thread to
// the audio thread (spec §5): either a MIDI channel-voice/mode message or a
// raw SysEx byte string.
type ControlMessage struct {
	Channel    int
	Status     uint8 // top nibble: 0x8 note-off, 0x9 note-on, 0xA poly-pressure, 0xB CC, 0xC program, 0xD channel-pressure, 0xE pitch-bend
	Data1      uint8
	Data2      uint8
	SysEx      []byte // non-nil for a SysEx message; Status/Data* are ignored
}

// Engine is the synth core (spec §4.6): it owns every channel, a capped
// voice pool shared across them, and the two send-effect buses, and renders
// one fixed-size audio block at a time into bus buffers reused across
// blocks; the reverb convolver still allocates its FFT results per block.
type Engine struct {
	cfg Config

	channels []*channel.Channel
	block    int64

	pool     *pool
	poolAdap poolAdapter

	reverbConv *reverb.Convolver
	chorusFx   *chorus.Chorus

	dryBus    [][2]float64
	reverbBus [][2]float64
	chorusBus [][2]float64

	Inbound  *eventbus.Queue[ControlMessage]
	Outbound *eventbus.Queue[eventbus.Event]

	candidateBuf []candidate
}

// poolAdapter satisfies channel.VoicePool for a specific Engine, closing
// over it so each Channel.NoteOn can Acquire without knowing about the
// engine's global stealing logic.
type poolAdapter struct{ engine *Engine }

func (a poolAdapter) Acquire() *voice.Voice {
	return a.engine.pool.Acquire(a.engine.gatherCandidates())
}

// New builds an engine with cfg.InitialChannelCount channels bound to bank,
// a voice pool sized to cfg.VoiceCap, and reverb/chorus processors per
// cfg.ReverbEnabled/ChorusEnabled (spec §6 Configuration).
func New(cfg Config, bank *sfbank.Bank) *Engine {
	cfg = cfg.normalized()

	e := &Engine{
		cfg:       cfg,
		dryBus:    make([][2]float64, cfg.BlockSize),
		reverbBus: make([][2]float64, cfg.BlockSize),
		chorusBus: make([][2]float64, cfg.BlockSize),
		Inbound:   eventbus.New[ControlMessage](256),
		Outbound:  eventbus.New[eventbus.Event](256),
	}
	e.poolAdap = poolAdapter{engine: e}
	e.pool = newPool(cfg.SampleRate, cfg.VoiceCap)

	e.channels = make([]*channel.Channel, cfg.InitialChannelCount)
	for i := range e.channels {
		e.channels[i] = channel.New(i, bank, e.poolAdap, &e.block)
	}

	if cfg.ReverbEnabled {
		ir := cfg.ReverbImpulseResponse
		if ir == nil {
			ir = reverb.DefaultImpulseResponse(int(cfg.SampleRate), 1.5)
		}
		irR := cfg.ReverbImpulseResponseR
		if irR == nil {
			irR = ir
		}
		e.reverbConv = reverb.NewConvolver(cfg.BlockSize, ir, irR)
	}
	if cfg.ChorusEnabled {
		e.chorusFx = chorus.New(cfg.SampleRate, cfg.ChorusConfig)
	}

	return e
}

// AddChannel appends a new channel, e.g. for multi-port MIDI beyond the
// initial 16 (spec §4.6 "up to 32"), and publishes a NewChannel event.
func (e *Engine) AddChannel(bank *sfbank.Bank) *channel.Channel {
	c := channel.New(len(e.channels), bank, e.poolAdap, &e.block)
	e.channels = append(e.channels, c)
	e.Outbound.TryPush(eventbus.Event{Kind: eventbus.NewChannel, Channel: c.Number})
	return c
}

// Channel returns channel n, or nil if it doesn't exist (multi-port
// dispatch, SPEC_FULL §6.7: `channel.number + portOffset*16`).
func (e *Engine) Channel(n int) *channel.Channel {
	if n < 0 || n >= len(e.channels) {
		return nil
	}
	return e.channels[n]
}

func (e *Engine) gatherCandidates() []candidate {
	buf := e.candidateBuf[:0]
	for _, c := range e.channels {
		for _, v := range c.ActiveVoices {
			buf = append(buf, candidate{owner: c, v: v})
		}
		for _, v := range c.SustainedVoices {
			buf = append(buf, candidate{owner: c, v: v})
		}
	}
	e.candidateBuf = buf
	return buf
}

// Dispatch applies one inbound control message to its target channel (spec
// §4.5). Called from Render's top-of-block drain, or directly by callers
// that dispatch synchronously on the audio thread.
func (e *Engine) Dispatch(msg ControlMessage) {
	if msg.SysEx != nil {
		e.dispatchSysEx(msg.SysEx)
		return
	}
	c := e.Channel(msg.Channel)
	if c == nil {
		return
	}
	switch msg.Status & 0xF0 {
	case midiutil.StatusNoteOff:
		c.NoteOff(msg.Data1)
		e.Outbound.TryPush(eventbus.Event{Kind: eventbus.NoteOff, Channel: c.Number, Key: msg.Data1, Velocity: msg.Data2})
	case midiutil.StatusNoteOn:
		c.NoteOn(msg.Data1, msg.Data2)
		if msg.Data2 == 0 {
			e.Outbound.TryPush(eventbus.Event{Kind: eventbus.NoteOff, Channel: c.Number, Key: msg.Data1})
		} else {
			e.Outbound.TryPush(eventbus.Event{Kind: eventbus.NoteOn, Channel: c.Number, Key: msg.Data1, Velocity: msg.Data2})
		}
	case midiutil.StatusPolyPressure:
		c.PolyPressureChange(msg.Data1, msg.Data2)
	case midiutil.StatusControlChange:
		e.dispatchController(c, msg.Data1, msg.Data2)
	case midiutil.StatusProgramChange:
		c.ProgramChange(msg.Data1)
		e.Outbound.TryPush(eventbus.Event{Kind: eventbus.ProgramChange, Channel: c.Number, Program: int(msg.Data1)})
	case midiutil.StatusChannelPressure:
		c.ChannelPressureChange(msg.Data1)
	case midiutil.StatusPitchBend:
		value14 := int(msg.Data2)<<7 | int(msg.Data1)
		c.PitchBend(value14)
		e.Outbound.TryPush(eventbus.Event{Kind: eventbus.PitchWheel, Channel: c.Number, PitchBend: int16(value14)})
	}
}

func (e *Engine) dispatchController(c *channel.Channel, cc, value uint8) {
	const ccBankSelectMSB = 0
	const ccBankSelectLSB = 32
	c.ControllerChange(cc, value)
	e.Outbound.TryPush(eventbus.Event{Kind: eventbus.ControllerChange, Channel: c.Number, Controller: cc, Value: value})
	if cc == ccBankSelectMSB || cc == ccBankSelectLSB {
		c.BankSelect(c.Controllers[ccBankSelectMSB], c.Controllers[ccBankSelectLSB])
	}
}

// StopAll releases every voice on every channel (spec §4.7 sequencer
// "stop") and publishes a StopAll event.
func (e *Engine) StopAll() {
	for _, c := range e.channels {
		c.ReleaseAll()
	}
	e.Outbound.TryPush(eventbus.Event{Kind: eventbus.StopAll})
}

func (e *Engine) dispatchSysEx(data []byte) {
	ev := channel.ParseSysEx(data)
	if ev.Kind == channel.SysExUnrecognized {
		return
	}
	if c := e.Channel(ev.Channel); c != nil {
		c.HandleSysEx(ev)
	} else {
		for _, c := range e.channels {
			c.HandleSysEx(ev)
		}
	}
}

// Render advances the engine by one audio block (spec §4.6): drains inbound
// control messages, zeroes the mix buses, renders every channel's voices,
// prunes finished voices, feeds the reverb/chorus buses through their
// processors, and sums everything into out. out must be pre-sized to the
// engine's configured block size; the buses inside Render are reused across
// calls and never reallocated.
func (e *Engine) Render(out [][2]float64) {
	e.Inbound.DrainAll(e.Dispatch)

	n := len(out)
	if n > len(e.dryBus) {
		n = len(e.dryBus)
	}
	zero(e.dryBus[:n])
	zero(e.reverbBus[:n])
	zero(e.chorusBus[:n])

	for _, c := range e.channels {
		ctxBase := voice.PitchContext{TuningCents: c.TuningCents(), PitchWheelCents: c.PitchWheelCents()}
		renderVoices(c.ActiveVoices, e.dryBus[:n], e.reverbBus[:n], e.chorusBus[:n], ctxBase, c)
		renderVoices(c.SustainedVoices, e.dryBus[:n], e.reverbBus[:n], e.chorusBus[:n], ctxBase, c)
		e.reclaimFinishedFrom(c.ActiveVoices)
		e.reclaimFinishedFrom(c.SustainedVoices)
		c.PruneFinished()
	}

	if e.reverbConv != nil {
		e.reverbConv.Process(e.reverbBus[:n])
	}
	if e.chorusFx != nil {
		e.chorusFx.Process(e.chorusBus[:n])
	}

	for i := 0; i < n; i++ {
		out[i][0] = e.dryBus[i][0] + e.reverbBus[i][0] + e.chorusBus[i][0]
		out[i][1] = e.dryBus[i][1] + e.reverbBus[i][1] + e.chorusBus[i][1]
	}

	e.block++
}

// renderVoices renders every voice in voices, filling per-voice modulator
// sources from c (key/velocity vary per voice, everything else is
// channel-wide).
func renderVoices(voices []*voice.Voice, dry, reverbBus, chorusBus [][2]float64, base voice.PitchContext, c *channel.Channel) {
	for _, v := range voices {
		ctx := base
		ctx.Sources = c.ModulatorSources(v.Velocity(), v.Key())
		v.Render(dry, reverbBus, chorusBus, ctx)
	}
}

// reclaimFinishedFrom returns every finished voice in voices to the pool's
// free list before the channel drops its own reference in PruneFinished,
// so the slot is reusable on the very next Acquire.
func (e *Engine) reclaimFinishedFrom(voices []*voice.Voice) {
	for _, v := range voices {
		if v.Finished() {
			e.pool.Release(v)
		}
	}
}

func zero(buf [][2]float64) {
	for i := range buf {
		buf[i] = [2]float64{}
	}
}
