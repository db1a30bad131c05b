package synth

import "github.com/soundcell/sfsynth/voice"

// voiceOwner lets the pool remove a stolen voice from the channel that
// holds it, without the pool importing channel's concrete type directly
// into its struct fields.
type voiceOwner interface {
	RemoveVoice(v *voice.Voice)
}

// pool is a fixed-size, allocation-free voice allocator (spec §4.5 "voice
// limit: configurable global cap... kill the oldest voices with highest
// current attenuation"). All *voice.Voice objects are created once, up
// front; Acquire either hands back a free one or steals the worst-ranked
// currently-sounding voice from whatever channel owns it.
type pool struct {
	voices   []*voice.Voice
	indexOf  map[*voice.Voice]int
	free     []int // stack of free slot indices
	sweeping []candidate
}

type candidate struct {
	owner voiceOwner
	v     *voice.Voice
}

func newPool(outputSampleRate float64, capacity int) *pool {
	p := &pool{
		voices:  make([]*voice.Voice, capacity),
		indexOf: make(map[*voice.Voice]int, capacity),
		free:    make([]int, capacity),
	}
	for i := 0; i < capacity; i++ {
		v := voice.New(outputSampleRate)
		p.voices[i] = v
		p.indexOf[v] = i
		p.free[i] = capacity - 1 - i
	}
	return p
}

// Acquire satisfies channel.VoicePool. candidates supplies every currently
// sounding voice, paired with the channel that owns it, for stealing when
// the pool has no free slot (spec §4.5/§6.6).
func (p *pool) Acquire(candidates []candidate) *voice.Voice {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return p.voices[idx]
	}
	return p.steal(candidates)
}

// Release returns a finished voice's slot to the free list (called by the
// engine for each finished voice just before the owning channel's
// PruneFinished drops its own reference).
func (p *pool) Release(v *voice.Voice) {
	idx, ok := p.indexOf[v]
	if !ok {
		return
	}
	p.free = append(p.free, idx)
}

// steal picks the worst-ranked sounding voice — in release, then highest
// current attenuation, then oldest start block (spec §6.6) — evicts it from
// its owning channel, and hands it back for immediate reuse.
func (p *pool) steal(candidates []candidate) *voice.Voice {
	if len(candidates) == 0 {
		return nil
	}
	worst := candidates[0]
	worstRank := voiceRank(worst.v)
	for _, c := range candidates[1:] {
		r := voiceRank(c.v)
		if r.greaterThan(worstRank) {
			worst = c
			worstRank = r
		}
	}
	worst.owner.RemoveVoice(worst.v)
	return worst.v
}

// voiceRank orders voices from "safest to steal" (high) to "least safe"
// (low): in-release voices outrank sustaining ones, and within a tier,
// quieter (more attenuated) and older voices outrank louder/newer ones.
type rank struct {
	inRelease  int
	attenDb    float64
	negStart   int64
}

func voiceRank(v *voice.Voice) rank {
	inRelease := 0
	if v.IsInRelease() {
		inRelease = 1
	}
	return rank{inRelease: inRelease, attenDb: v.CurrentAttenuationDb(), negStart: -v.StartBlock()}
}

func (r rank) compare(o rank) int {
	if r.inRelease != o.inRelease {
		return r.inRelease - o.inRelease
	}
	if r.attenDb != o.attenDb {
		if r.attenDb > o.attenDb {
			return 1
		}
		return -1
	}
	if r.negStart == o.negStart {
		return 0
	}
	if r.negStart > o.negStart {
		return 1
	}
	return -1
}

func (r rank) greaterThan(o rank) bool { return r.compare(o) > 0 }
