package trackerengine

import "github.com/chriskillpack/trackerengine/internal/comb"

// MachineInfo describes a Machine implementation's identity and
// parameter schema, queried once when a graph node is constructed.
type MachineInfo struct {
	Name       string
	Parameters []Parameter
}

// Machine is a graph node's behavior implementation. The capability set
// here is the full one the engine needs (render/event/speed control),
// broader than a minimal tick-only trait would be, since a single
// Machine may be asked to render audio, react to scheduler events, and
// track tempo changes all at once.
type Machine interface {
	Info() MachineInfo
	Init(sampleRate uint32)
	Tick()
	Stop()
	SetParam(id uint32, value float32)
	ApplyEvent(e Event)
	SetSpeed(tempo uint16, speed uint8)
	RenderIntoBuffer(in Frame) Frame
}

// Passthrough is a Machine that copies its input straight to its
// output; useful as a graph node placeholder and as a base to embed.
type Passthrough struct{}

func (Passthrough) Info() MachineInfo                 { return MachineInfo{Name: "passthrough"} }
func (Passthrough) Init(uint32)                       {}
func (Passthrough) Tick()                             {}
func (Passthrough) Stop()                             {}
func (Passthrough) SetParam(uint32, float32)          {}
func (Passthrough) ApplyEvent(Event)                  {}
func (Passthrough) SetSpeed(uint16, uint8)             {}
func (Passthrough) RenderIntoBuffer(in Frame) Frame    { return in }

// AmigaFilter is a one-pole RC low-pass modeling the Amiga's output
// filter, the Machine Song.WithChannels wires between every tracker
// channel and the master bus.
type AmigaFilter struct {
	cutoffHz   float32
	sampleRate float32
	alpha      float32
	stateL     float32
	stateR     float32
}

// NewAmigaFilter returns a filter at the classic Amiga "LED off" cutoff
// of roughly 6 kHz.
func NewAmigaFilter() *AmigaFilter {
	return &AmigaFilter{cutoffHz: 6000}
}

func (f *AmigaFilter) Info() MachineInfo {
	return MachineInfo{Name: "AmigaFilter", Parameters: []Parameter{
		{ID: 0, Name: "cutoff_hz", Value: f.cutoffHz, Min: 100, Max: 20000, Default: 6000},
	}}
}

func (f *AmigaFilter) Init(sampleRate uint32) {
	f.sampleRate = float32(sampleRate)
	f.recomputeAlpha()
}

func (f *AmigaFilter) recomputeAlpha() {
	if f.sampleRate == 0 {
		f.alpha = 1
		return
	}
	rc := 1.0 / (2 * 3.14159265 * f.cutoffHz)
	dt := 1.0 / f.sampleRate
	f.alpha = dt / (rc + dt)
}

func (f *AmigaFilter) Tick()  {}
func (f *AmigaFilter) Stop()  { f.stateL, f.stateR = 0, 0 }

func (f *AmigaFilter) SetParam(id uint32, value float32) {
	if id == 0 {
		f.cutoffHz = value
		f.recomputeAlpha()
	}
}

func (f *AmigaFilter) ApplyEvent(Event)          {}
func (f *AmigaFilter) SetSpeed(uint16, uint8)    {}

func (f *AmigaFilter) RenderIntoBuffer(in Frame) Frame {
	f.stateL += f.alpha * (float32(in.Left) - f.stateL)
	f.stateR += f.alpha * (float32(in.Right) - f.stateR)
	return Frame{Left: clampInt32ToInt16(int32(f.stateL)), Right: clampInt32ToInt16(int32(f.stateR))}
}

// TrackerMachine is the Machine wrapper around a ChannelState: it
// renders the channel's voice and exposes volume/pan as parameters so a
// graph's generic node walk can read and animate them the same way it
// would a plugin's. It looks the playing sample up from channel.SampleIdx
// on every render call, since a channel can retrigger onto a different
// sample between one render block and the next.
type TrackerMachine struct {
	channel    *ChannelState
	samples    []Sample
	sampleRate uint32
	scratch    [1]Frame
}

// NewTrackerMachine wraps channel, rendering whichever sample
// channel.SampleIdx currently selects out of samples.
func NewTrackerMachine(channel *ChannelState, samples []Sample) *TrackerMachine {
	return &TrackerMachine{channel: channel, samples: samples}
}

func (m *TrackerMachine) Info() MachineInfo {
	return MachineInfo{Name: "TrackerChannel", Parameters: []Parameter{
		{ID: 0, Name: "volume", Min: 0, Max: 64, Default: 64},
		{ID: 1, Name: "panning", Min: -64, Max: 64, Default: 0},
	}}
}

func (m *TrackerMachine) Init(sampleRate uint32) { m.sampleRate = sampleRate }
func (m *TrackerMachine) Tick()                  {}
func (m *TrackerMachine) Stop()                  { m.channel.active = false }

func (m *TrackerMachine) SetParam(id uint32, value float32) {
	switch id {
	case 0:
		m.channel.Volume = value
	case 1:
		m.channel.Panning = int8(value)
	}
}

func (m *TrackerMachine) ApplyEvent(e Event) {
	switch e.Payload.Kind {
	case PayloadNoteCut:
		m.channel.active = false
	case PayloadSetVolume:
		m.channel.baseVolume = float32(e.Payload.Value)
	case PayloadSetPanning:
		m.channel.Panning = int8(e.Payload.Value)
	case PayloadSetModulator:
		if e.Payload.Modulator != nil {
			m.channel.SetupModulator(*e.Payload.Modulator, false)
		}
	case PayloadClearModulator:
		m.channel.ClearModulation()
	}
}

func (m *TrackerMachine) SetSpeed(tempo uint16, speed uint8) {}

func (m *TrackerMachine) RenderIntoBuffer(in Frame) Frame {
	idx := m.channel.SampleIdx
	if idx < 0 || idx >= len(m.samples) {
		return in
	}
	m.scratch[0] = in
	m.channel.Render(m.samples[idx], m.scratch[:])
	return m.scratch[0]
}

// SamplerMachine plays a single sample directly from a NodeSampler
// graph node (ambience, a one-shot jingle) with no tracker channel or
// scheduler driving it, mirroring ChannelState.Render's mono playback
// loop without any of the note/envelope machinery.
type SamplerMachine struct {
	samples    []Sample
	sampleIdx  int
	increment  uint32
	pos        uint32
}

// NewSamplerMachine plays samples[sampleIdx] on a loop.
func NewSamplerMachine(samples []Sample, sampleIdx uint32) *SamplerMachine {
	return &SamplerMachine{samples: samples, sampleIdx: int(sampleIdx)}
}

func (m *SamplerMachine) Info() MachineInfo { return MachineInfo{Name: "Sampler"} }

func (m *SamplerMachine) Init(sampleRate uint32) {
	if m.sampleIdx < 0 || m.sampleIdx >= len(m.samples) {
		return
	}
	m.increment = NoteToIncrement(uint8(ReferenceNote), m.samples[m.sampleIdx].C4Speed, sampleRate)
}

func (m *SamplerMachine) Tick()                             {}
func (m *SamplerMachine) Stop()                              { m.pos = 0 }
func (m *SamplerMachine) SetParam(uint32, float32)           {}
func (m *SamplerMachine) ApplyEvent(Event)                   {}
func (m *SamplerMachine) SetSpeed(uint16, uint8)              {}

func (m *SamplerMachine) RenderIntoBuffer(in Frame) Frame {
	if m.sampleIdx < 0 || m.sampleIdx >= len(m.samples) || m.increment == 0 {
		return in
	}
	smp := m.samples[m.sampleIdx]
	length := smp.Data.Len()
	if length == 0 {
		return in
	}
	v := smp.GetMonoInterpolated(m.pos)
	m.pos += m.increment
	if int(m.pos>>16) >= length {
		if smp.LoopType != LoopNone && smp.LoopEnd > smp.LoopStart {
			span := uint32(smp.LoopEnd-smp.LoopStart) << 16
			if span > 0 {
				m.pos -= span
			}
		} else {
			m.pos = 0
		}
	}
	return in.Mix(Frame{Left: v, Right: v})
}

// ReverbMachine is the NodeBuzzMachine "Reverb" wrapper around
// internal/comb's StereoReverb: a bounded, allocation-free-after-Init
// Schroeder reverb that feeds and drains one frame at a time through a
// pair of single-frame scratch buffers.
type ReverbMachine struct {
	decay, damping, mix float32
	rev                 *comb.StereoReverb
	scratchIn           [2]int16
	scratchOut          [2]int16
}

// NewReverbMachine builds a Reverb machine; the underlying StereoReverb
// is constructed lazily in Init once the sample rate is known.
func NewReverbMachine(decay, damping, mix float32) *ReverbMachine {
	return &ReverbMachine{decay: decay, damping: damping, mix: mix}
}

func (m *ReverbMachine) Info() MachineInfo {
	return MachineInfo{Name: "Reverb", Parameters: []Parameter{
		{ID: 0, Name: "mix", Value: m.mix, Min: 0, Max: 1, Default: m.mix},
	}}
}

func (m *ReverbMachine) Init(sampleRate uint32) {
	m.rev = comb.NewStereoReverb(2048, m.decay, m.damping, m.mix, int(sampleRate))
}

func (m *ReverbMachine) Tick() {}
func (m *ReverbMachine) Stop() {}

func (m *ReverbMachine) SetParam(id uint32, value float32) {
	if id == 0 {
		m.mix = value
	}
}

func (m *ReverbMachine) ApplyEvent(Event)        {}
func (m *ReverbMachine) SetSpeed(uint16, uint8) {}

func (m *ReverbMachine) RenderIntoBuffer(in Frame) Frame {
	if m.rev == nil {
		return in
	}
	m.scratchIn[0], m.scratchIn[1] = in.Left, in.Right
	if m.rev.InputSamples(m.scratchIn[:]) < 2 {
		return in
	}
	if m.rev.GetAudio(m.scratchOut[:]) < 2 {
		return in
	}
	return Frame{Left: m.scratchOut[0], Right: m.scratchOut[1]}
}
