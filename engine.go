package trackerengine

// Engine owns all mutable playback state and runs entirely on the
// render thread: every other thread only ever publishes a packed
// position (see PackTime) or enqueues an Edit command.
type Engine struct {
	Song *Song

	channels   []ChannelState
	voices     *VoicePool
	eventQueue *EventQueue
	graphState *GraphState

	currentTime    MusicalTime
	sampleRate     uint32
	samplesPerTick uint32
	sampleCounter  uint32
	tempo          uint16
	speed          uint8
	playing        bool

	edits        *EditRing
	DroppedEdits uint64

	machines   []Machine // indexed by NodeID, built once from Song.Graph
	masterNode NodeID
	hasMaster  bool

	// scratchVoice is reused every frame so mixChannels never allocates.
	scratchVoice [1]Frame

	// Debug is a caller-settable flag; nothing in the engine reads it, so
	// setting it produces no tracing output.
	Debug bool
}

// NewEngine builds an Engine for song at sampleRate, scheduled from the
// start of the song.
func NewEngine(song *Song, sampleRate uint32) *Engine {
	e := &Engine{
		Song:       song,
		sampleRate: sampleRate,
		tempo:      song.InitialTempo,
		speed:      song.InitialSpeed,
		voices:     NewVoicePool(),
		eventQueue: NewEventQueue(),
		edits:      NewEditRing(64),
	}
	e.channels = make([]ChannelState, len(song.Channels))
	for i, cs := range song.Channels {
		e.channels[i].Panning = cs.InitialPan
		e.channels[i].baseVolume = float32(cs.InitialVol)
		e.channels[i].Volume = float32(cs.InitialVol)
	}
	e.graphState = NewGraphState(song.Graph)
	e.buildMachines()
	e.updateSamplesPerTick()
	ScheduleSong(song, ZeroTime(), e.eventQueue)
	return e
}

// buildMachines instantiates one Machine per graph node, indexed by
// NodeID (NodeID == slice index, see AudioGraph.AddNode), so the render
// path can dispatch a node's rendered input through it by a plain slice
// lookup.
func (e *Engine) buildMachines() {
	nodes := e.Song.Graph.Nodes
	e.machines = make([]Machine, len(nodes))
	for _, n := range nodes {
		if n.Type.Kind == NodeMaster {
			e.masterNode = n.ID
			e.hasMaster = true
		}
		var m Machine
		switch n.Type.Kind {
		case NodeTrackerChannel:
			idx := int(n.Type.ChannelIndex)
			if idx >= 0 && idx < len(e.channels) {
				m = NewTrackerMachine(&e.channels[idx], e.Song.Samples)
			}
		case NodeSampler:
			m = NewSamplerMachine(e.Song.Samples, n.Type.SampleID)
		case NodeBuzzMachine:
			switch n.Type.BuzzMachineName {
			case "Reverb":
				decay, damping, mix := float32(0.5), float32(0.5), float32(0.25)
				for _, p := range n.Parameters {
					switch p.Name {
					case "decay":
						decay = p.Value
					case "damping":
						damping = p.Value
					case "mix":
						mix = p.Value
					}
				}
				m = NewReverbMachine(decay, damping, mix)
			default:
				m = NewAmigaFilter()
			}
		case NodeMaster:
			m = Passthrough{}
		}
		if m == nil {
			m = Passthrough{}
		}
		m.Init(e.sampleRate)
		e.machines[n.ID] = m
	}
}

// updateSamplesPerTick recomputes samples-per-tick from tempo: the
// classic tracker relation samples_per_tick = sample_rate*5/(tempo*2),
// saturating at a minimum of 1 sample/tick so a pathological tempo (< 32)
// never underflows to zero and stalls the transport.
func (e *Engine) updateSamplesPerTick() {
	if e.tempo == 0 {
		e.samplesPerTick = 1
		return
	}
	spt := (uint64(e.sampleRate) * 5) / (uint64(e.tempo) * 2)
	if spt < 1 {
		spt = 1
	}
	e.samplesPerTick = uint32(spt)
}

// Play starts/resumes the transport.
func (e *Engine) Play() { e.playing = true }

// Stop halts the transport and silences every channel, never failing
// even if nothing is currently playing.
func (e *Engine) Stop() {
	e.playing = false
	for i := range e.channels {
		e.channels[i].active = false
	}
}

// Position returns the engine's current musical time.
func (e *Engine) Position() MusicalTime { return e.currentTime }

// PackedPosition returns Position packed for lock-free cross-thread
// readout.
func (e *Engine) PackedPosition() uint64 { return PackTime(e.currentTime) }

// PushEdit enqueues ed for the render thread to apply on its next
// ApplyEdits call, incrementing DroppedEdits instead of blocking if the
// ring is full. Returns whether the edit was accepted.
func (e *Engine) PushEdit(ed Edit) bool {
	if !e.edits.Push(ed) {
		e.DroppedEdits++
		return false
	}
	return true
}

// ApplyEdits drains any pending Edit commands and re-schedules playback
// from the current position, per the resolved Open Question that edits
// are not patched in place (see DESIGN.md).
func (e *Engine) ApplyEdits() {
	e.edits.Drain(func(ed Edit) {
		e.applyEdit(ed)
	})
}

func (e *Engine) applyEdit(ed Edit) {
	switch ed.Kind {
	case EditSetPattern:
		if ed.PatternIdx >= 0 && ed.PatternIdx < len(e.Song.Patterns) {
			e.rescheduleFrom(e.currentTime)
		}
	case EditSeek:
		e.currentTime = ed.SeekTo
		e.rescheduleFrom(e.currentTime)
	}
}

func (e *Engine) rescheduleFrom(from MusicalTime) {
	e.eventQueue.Reset()
	ScheduleSong(e.Song, from, e.eventQueue)
}

// RenderFramesInto renders n frames of audio into out (len(out) must be
// n, stereo Frame per sample), advancing the transport and never
// failing: a zero-length Song or missing sample data just produces
// silence.
func (e *Engine) RenderFramesInto(out []Frame) {
	for i := range out {
		out[i] = Frame{}
	}
	if !e.playing || e.Song == nil {
		return
	}

	for i := range out {
		e.eventQueue.DrainUntil(e.currentTime, func(ev Event) { e.dispatchEvent(ev) })
		frame := e.mixChannels()
		out[i] = frame

		e.sampleCounter++
		if e.sampleCounter >= e.samplesPerTick {
			e.sampleCounter = 0
			e.processTick()
			e.currentTime = e.currentTime.AddTicks(1, tickGridFor(e.speed, e.Song.RowsPerBeat))
		}
	}
}

func tickGridFor(speed uint8, rowsPerBeat uint32) uint32 {
	if speed == 0 {
		return 0
	}
	return uint32(speed) * rowsPerBeat
}

// processTick advances every channel's per-tick modulators by one tick
// and recomputes their playback increment.
func (e *Engine) processTick() {
	dt := subBeatsPerTick(e.speed, e.Song.RowsPerBeat)
	for i := range e.channels {
		e.channels[i].AdvanceModulators(dt)
		c4 := e.sampleC4Speed(e.channels[i].SampleIdx)
		e.channels[i].UpdateIncrement(c4, e.sampleRate)
	}
	e.voices.AdvanceFades(dt)
	e.voices.ReapFinished()
}

// handleNewNoteAction lets a still-sounding voice on ch survive a
// retrigger per its instrument's NewNoteAction/DuplicateCheck policy,
// handing it off to the detached VoicePool before ch.Trigger overwrites
// the channel's own playback state for the incoming note. A cut (the
// default, and NNACut) does nothing: the old sound simply stops when
// Trigger resets the channel.
func (e *Engine) handleNewNoteAction(ch *ChannelState, newInsIdx int) {
	if !ch.active || ch.InstrumentIdx < 0 || ch.InstrumentIdx >= len(e.Song.Instruments) {
		return
	}
	ins := e.Song.Instruments[ch.InstrumentIdx]
	if ins.NewNoteAction == NNACut {
		return
	}
	if ins.DuplicateCheck != DuplicateOff {
		e.voices.CutDuplicates(ch.SampleIdx)
	}
	id := e.voices.Allocate()
	v := e.voices.Get(id)
	if v == nil {
		return
	}
	v.Reset(ch.SampleIdx, ch.increment, ch.Volume, ch.Panning)
	v.samplePos = ch.samplePos
	v.direction = ch.loopDir
	switch ins.NewNoteAction {
	case NNAContinue:
		v.State = VoiceBackground
	case NNAOff:
		v.Release()
	case NNAFade:
		fadeTicks := uint32(ins.Fadeout)
		if fadeTicks == 0 {
			fadeTicks = 1
		}
		env := OneShotEnvelope([]ModBreakPoint{
			{DT: 0, Value: 1, Curve: CurveLinear},
			{DT: fadeTicks, Value: 0, Curve: CurveLinear},
		})
		v.FadeEnvelope = NewEnvelopeState(env)
		v.State = VoiceFading
	}
}

func (e *Engine) sampleC4Speed(idx int) uint32 {
	if idx < 0 || idx >= len(e.Song.Samples) {
		return 8363
	}
	return e.Song.Samples[idx].C4Speed
}

// mixChannels walks the audio graph in topological order, dispatching
// each node's gathered input through its Machine, then sums the
// master bus output with the detached VoicePool (one-shot/background
// voices that aren't tied to any tracker channel node) into the final
// frame. No slice is allocated here: graphState's per-node outputs and
// the engine's single-frame scratch fields are all reused block to
// block.
func (e *Engine) mixChannels() Frame {
	e.graphState.ClearOutputs()
	for _, id := range e.graphState.TopoOrder() {
		in := e.graphState.GatherInputs(id)
		out := in
		if int(id) < len(e.machines) && e.machines[id] != nil {
			out = e.machines[id].RenderIntoBuffer(in)
		}
		e.graphState.SetOutput(id, out)
	}

	var w WideFrame
	if e.hasMaster {
		w.Accumulate(e.graphState.Output(e.masterNode))
	}

	e.scratchVoice[0] = Frame{}
	e.voices.RenderAll(e.Song.Samples, e.scratchVoice[:])
	w.Accumulate(e.scratchVoice[0])

	return w.ToFrame()
}

// dispatchEvent applies one scheduled Event to its target.
func (e *Engine) dispatchEvent(ev Event) {
	switch ev.Target.Kind {
	case EventTargetChannel:
		e.applyChannelEvent(int(ev.Target.Channel), ev)
	case EventTargetNode:
		e.applyNodeEvent(ev)
	case EventTargetGlobal:
		e.applyGlobalEvent(ev)
	}
}

func (e *Engine) applyNodeEvent(ev Event) {
	id := ev.Target.NodeID
	if int(id) >= len(e.machines) || e.machines[id] == nil {
		return
	}
	e.machines[id].ApplyEvent(ev)
}

func (e *Engine) applyChannelEvent(idx int, ev Event) {
	if idx < 0 || idx >= len(e.channels) {
		return
	}
	ch := &e.channels[idx]
	rowsPerBeat := e.Song.RowsPerBeat
	switch ev.Payload.Kind {
	case PayloadNoteOn:
		insIdx := e.resolveInstrumentIdx(ch, ev.Payload.Instrument)
		e.handleNewNoteAction(ch, insIdx)
		sampleIdx := e.resolveSample(insIdx, ev.Payload.Note)
		c4 := e.sampleC4Speed(sampleIdx)
		ch.Trigger(sampleIdx, insIdx, ev.Payload.Note, c4)
	case PayloadNoteOff, PayloadNoteCut:
		ch.active = false
	case PayloadSetVolume:
		ch.baseVolume = float32(ev.Payload.Value)
	case PayloadSetPanning:
		ch.Panning = int8(ev.Payload.Value)
	case PayloadSetModulator:
		if ev.Payload.Modulator != nil {
			ch.SetupModulator(*ev.Payload.Modulator, false)
		}
	case PayloadClearModulator:
		ch.ClearModulation()
	case PayloadPortaTarget:
		sampleIdx := -1
		insIdx := -1
		if ev.Payload.Instrument != 0 {
			insIdx = e.resolveInstrumentIdx(ch, ev.Payload.Instrument)
			sampleIdx = e.resolveSample(insIdx, ev.Payload.Note)
		}
		ch.SetPortaTarget(ev.Payload.Note, sampleIdx, insIdx)
	case PayloadTonePorta:
		ch.StartTonePorta(uint8(ev.Payload.Value), e.speed, rowsPerBeat)
	case PayloadPortamento:
		ch.StartPortamento(float32(ev.Payload.Value), e.speed, rowsPerBeat)
	case PayloadVolumeSlide:
		ch.StartVolumeSlide(int16(ev.Payload.Value), int16(ev.Payload.Value2), e.speed, rowsPerBeat)
	case PayloadVibrato:
		ch.StartVibrato(uint8(ev.Payload.Value), uint8(ev.Payload.Value2), e.speed, rowsPerBeat, false)
	case PayloadTremolo:
		ch.StartTremolo(uint8(ev.Payload.Value), uint8(ev.Payload.Value2), e.speed, rowsPerBeat, false)
	case PayloadRetrigNote:
		ch.StartRetrigger(uint8(ev.Payload.Value), e.speed, rowsPerBeat)
	case PayloadMultiRetrig:
		ch.StartRetrigger(uint8(ev.Payload.Value), e.speed, rowsPerBeat)
	case PayloadTremor:
		ch.StartTremor(uint8(ev.Payload.Value), uint8(ev.Payload.Value2), e.speed, rowsPerBeat)
	case PayloadSampleOffset:
		if ev.Payload.Value >= 0 {
			ch.samplePos = uint32(ev.Payload.Value) << 16
		}
	case PayloadFinePorta:
		delta := float32(ev.Payload.Value)
		if ev.Payload.Value2 == 1 {
			delta /= 4
		}
		ch.ApplyFinePorta(delta)
	case PayloadFineVolumeSlide:
		ch.ApplyFineVolumeSlide(float32(ev.Payload.Value))
	case PayloadSetVibratoWaveform:
		ch.vibratoWaveform = uint8(ev.Payload.Value)
	case PayloadSetTremoloWaveform:
		ch.tremoloWaveform = uint8(ev.Payload.Value)
	case PayloadGlissandoControl:
		ch.glissando = ev.Payload.Value != 0
	case PayloadSetFinetune:
		ch.ApplyFinetune(int16(ev.Payload.Value))
	case PayloadInvertLoop:
		ch.invertLoopSpeed = uint8(ev.Payload.Value)
	case PayloadPanSlide:
		ch.ApplyPanSlide(float32(ev.Payload.Value - ev.Payload.Value2))
	case PayloadSetEnvelopePosition:
		ch.envelopeTick = uint16(ev.Payload.Value)
	}
}

// resolveInstrumentIdx turns a 1-based Cell.Instrument (0 = "no change")
// into a 0-based Song.Instruments index, falling back to ch's currently
// active instrument when the cell didn't name one.
func (e *Engine) resolveInstrumentIdx(ch *ChannelState, instrument uint16) int {
	if instrument == 0 {
		return ch.InstrumentIdx
	}
	return int(instrument) - 1
}

func (e *Engine) resolveSample(instrumentIdx int, note uint8) int {
	if instrumentIdx < 0 || instrumentIdx >= len(e.Song.Instruments) {
		return -1
	}
	return int(e.Song.Instruments[instrumentIdx].SampleFor(note))
}

func (e *Engine) applyGlobalEvent(ev Event) {
	switch ev.Payload.Kind {
	case PayloadSetSpeed:
		e.speed = uint8(ev.Payload.Value)
	case PayloadSetTempo:
		e.tempo = uint16(ev.Payload.Value)
		e.updateSamplesPerTick()
	case PayloadSetGlobalVolume:
		if e.Song != nil {
			e.Song.GlobalVolume = uint8(ev.Payload.Value)
		}
	case PayloadGlobalVolumeSlide:
		if e.Song != nil {
			v := int32(e.Song.GlobalVolume) + (ev.Payload.Value - ev.Payload.Value2)
			if v < 0 {
				v = 0
			}
			if v > 64 {
				v = 64
			}
			e.Song.GlobalVolume = uint8(v)
		}
	}
}
