// Package chorus implements the chorus send bus (spec §4.6/§6) as a bank
// of modulated delay lines with feedback. The ring-buffer delay line and
// its read/write-position bookkeeping are grounded directly on the
// teacher's Delay2 (edelay.go); the per-voice depth/rate modulation reuses
// this module's own lfo.Triangle rather than Delay2's static delay, per
// the spec's `chorusConfig: {delay, depth, rate, feedback}`.
package chorus

import (
	"github.com/soundcell/sfsynth/lfo"
	"github.com/soundcell/sfsynth/units"
)

// Config is the spec §6 `chorusConfig` shape.
type Config struct {
	DelayMillis float64
	DepthMillis float64
	RateHz      float64
	Feedback    float64
	Voices      int
}

// voice is one modulated delay line feeding back on itself.
type voice struct {
	buf  []float64
	wpos int
	mod  *lfo.Triangle
}

// Chorus mixes Config.Voices modulated delay lines, one per stereo
// channel pair, into the chorus bus.
type Chorus struct {
	sampleRate float64
	cfg        Config
	left       []voice
	right      []voice
}

// New builds a chorus processor for the given output sample rate and
// config. Each voice's LFO is phase-staggered (spec-silent on exact
// stagger; evenly spaced across the 0..1 cycle is the conventional chorus
// construction, matching how commercial multi-voice choruses avoid
// voices moving in lockstep).
func New(sampleRate float64, cfg Config) *Chorus {
	if cfg.Voices < 1 {
		cfg.Voices = 2
	}
	maxDelaySamples := int((cfg.DelayMillis + cfg.DepthMillis) / 1000 * sampleRate)
	bufLen := maxDelaySamples*2 + 8

	c := &Chorus{sampleRate: sampleRate, cfg: cfg}
	c.left = make([]voice, cfg.Voices)
	c.right = make([]voice, cfg.Voices)
	for i := 0; i < cfg.Voices; i++ {
		c.left[i] = newVoice(sampleRate, bufLen, cfg.RateHz)
		c.right[i] = newVoice(sampleRate, bufLen, cfg.RateHz)
		// Stagger each voice's starting phase by advancing its LFO before
		// use, spreading voices evenly around the cycle.
		stagger := samplesForPhase(sampleRate, cfg.RateHz, float64(i)/float64(cfg.Voices))
		for s := 0; s < stagger; s++ {
			c.left[i].mod.Next()
			c.right[i].mod.Next()
		}
	}
	return c
}

func newVoice(sampleRate float64, bufLen int, rateHz float64) voice {
	mod := lfo.New(sampleRate)
	mod.Configure(0, clampCents(units.HzToAbsoluteCents(rateHz)))
	mod.Trigger()
	return voice{buf: make([]float64, bufLen), mod: mod}
}

func clampCents(cents float64) int16 {
	if cents > 32767 {
		return 32767
	}
	if cents < -32768 {
		return -32768
	}
	return int16(cents)
}

// Process mixes the chorus voices into in, wet-only (the caller composes
// dry/wet per spec §4.4's per-voice chorusEffectsSend weighting upstream).
func (c *Chorus) Process(in [][2]float64) {
	baseDelaySamples := c.cfg.DelayMillis / 1000 * c.sampleRate
	depthSamples := c.cfg.DepthMillis / 1000 * c.sampleRate

	for i := range in {
		var wetL, wetR float64
		for vi := range c.left {
			wetL += c.left[vi].step(in[i][0], baseDelaySamples, depthSamples, c.cfg.Feedback)
			wetR += c.right[vi].step(in[i][1], baseDelaySamples, depthSamples, c.cfg.Feedback)
		}
		n := float64(len(c.left))
		in[i][0] = wetL / n
		in[i][1] = wetR / n
	}
}

// step advances one delay line by one sample: reads the modulated delay
// tap, writes the input plus feedback, advances the ring position.
func (v *voice) step(in, baseDelaySamples, depthSamples, feedback float64) float64 {
	delaySamples := baseDelaySamples + depthSamples*v.mod.Next()
	if delaySamples < 1 {
		delaySamples = 1
	}

	readPos := float64(v.wpos) - delaySamples
	for readPos < 0 {
		readPos += float64(len(v.buf))
	}
	i0 := int(readPos) % len(v.buf)
	i1 := (i0 + 1) % len(v.buf)
	frac := readPos - float64(int(readPos))
	tapped := v.buf[i0] + (v.buf[i1]-v.buf[i0])*frac

	v.buf[v.wpos%len(v.buf)] = in + tapped*feedback
	v.wpos++

	return tapped
}

func samplesForPhase(sampleRate, rateHz, phaseFraction float64) int {
	if rateHz <= 0 {
		return 0
	}
	periodSamples := sampleRate / rateHz
	return int(periodSamples * phaseFraction)
}
