package trackerengine

// MaxVoices bounds the fixed voice-slot array; no allocation occurs
// once the pool is constructed.
const MaxVoices = 128

// VoicePool owns a fixed array of voice slots and hands them out by
// opaque VoiceID; callers never hold a pointer across a steal.
type VoicePool struct {
	voices [MaxVoices]Voice
	inUse  [MaxVoices]bool
}

// NewVoicePool returns an empty pool.
func NewVoicePool() *VoicePool { return &VoicePool{} }

// Allocate finds a free slot, or steals the lowest steal-priority
// in-use slot if the pool is full, and returns its id.
func (p *VoicePool) Allocate() VoiceID {
	for i := range p.inUse {
		if !p.inUse[i] {
			p.inUse[i] = true
			return VoiceID(i)
		}
	}

	victim := 0
	victimPrio := stealPriority(p.voices[0].State)
	for i := 1; i < MaxVoices; i++ {
		prio := stealPriority(p.voices[i].State)
		if prio < victimPrio {
			victim = i
			victimPrio = prio
		}
	}
	p.voices[victim] = Voice{}
	return VoiceID(victim)
}

// Get returns a pointer to the voice at id, or nil if out of range.
func (p *VoicePool) Get(id VoiceID) *Voice {
	if int(id) >= MaxVoices {
		return nil
	}
	return &p.voices[id]
}

// Free releases a slot back to the pool.
func (p *VoicePool) Free(id VoiceID) {
	if int(id) >= MaxVoices {
		return
	}
	p.inUse[id] = false
	p.voices[id] = Voice{}
}

// ReapFinished scans every in-use slot and frees any voice that has
// finished fading, called once per tick by Engine.processTick so long-fading voices
// don't hold slots forever.
func (p *VoicePool) ReapFinished() {
	for i := range p.inUse {
		if p.inUse[i] && p.voices[i].State == VoiceFading && p.voices[i].FadeEnvelope.IsFinished() {
			p.inUse[i] = false
			p.voices[i] = Voice{}
		}
	}
}

// AdvanceFades steps every fading voice's FadeEnvelope by dt sub-beat
// units, called once per tick so ReapFinished eventually sees them
// finish instead of fading forever.
func (p *VoicePool) AdvanceFades(dt uint32) {
	for i := range p.inUse {
		if p.inUse[i] && p.voices[i].State == VoiceFading {
			p.voices[i].FadeEnvelope.Advance(dt)
		}
	}
}

// CutDuplicates frees every in-use voice playing sampleIdx, used by the
// DuplicateCheck instrument property when a new note on the same sample
// fires and the instrument says not to let them overlap.
func (p *VoicePool) CutDuplicates(sampleIdx int) {
	for i := range p.inUse {
		if p.inUse[i] && p.voices[i].SampleIdx == sampleIdx {
			p.inUse[i] = false
			p.voices[i] = Voice{}
		}
	}
}

// RenderVoice renders one voice's contribution for this block using a
// split-borrow of the voice and its sample so the caller's sample bank
// and this pool don't need to share a lock.
func (p *VoicePool) RenderVoice(id VoiceID, s Sample, out []Frame) {
	v := p.Get(id)
	if v == nil {
		return
	}
	v.RenderWithSource(s, out)
}

// RenderAll renders every in-use voice into out via lookup, matching
// source sample indices to samples via the provided sampleBank slice.
func (p *VoicePool) RenderAll(sampleBank []Sample, out []Frame) {
	for i := range p.inUse {
		if !p.inUse[i] {
			continue
		}
		idx := p.voices[i].SampleIdx
		if idx < 0 || idx >= len(sampleBank) {
			continue
		}
		p.voices[i].RenderWithSource(sampleBank[idx], out)
	}
}
