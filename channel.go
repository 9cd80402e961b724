package trackerengine

import "math"

// ChannelState is one tracker channel's complete mutable playback
// state: current sample/instrument, period/volume/pan, and the live
// modulators effects install on it. The scheduler and render thread
// only ever talk to channels through this type.
type ChannelState struct {
	SampleIdx     int
	InstrumentIdx int
	samplePos     uint32 // 16.16 fixed point
	increment     uint32

	Period  float32
	Volume  float32 // 0..64
	Panning int8    // -64..64

	basePeriod float32
	baseVolume float32

	// portaTargetPeriod is the destination period of an in-flight tone
	// portamento glide, set by a PortaTarget event and consumed the next
	// time a TonePorta effect installs its glide modulator.
	portaTargetPeriod float32

	periodMod  *Modulator
	volumeMod  *Modulator
	triggerMod *Modulator

	active bool

	// loopDir is the sample-position direction for ping-pong loops: +1
	// forward, -1 while playing the reverse leg.
	loopDir int8

	// vibratoPhaseCarry is cleared by Trigger and read by nothing else;
	// vibrato phase continuity is governed only by SetupModulator's
	// continueVibratoPhase argument.
	vibratoPhaseCarry uint32

	// Effect memory: a zero speed/depth/waveform parameter on a later
	// Vibrato/Tremolo/TonePorta command reuses the last non-zero value
	// seen, per the tracker convention that "0" means "keep going".
	vibratoSpeed, vibratoDepth, vibratoWaveform uint8
	tremoloSpeed, tremoloDepth, tremoloWaveform uint8
	portaSpeed                                  uint8

	// glissando, set by a GlissandoControl effect, makes StartTonePorta
	// build its glide with CurveStep: the period holds for the row and
	// then jumps to the row's end value in one step instead of gliding
	// continuously. It does not quantize the glide to semitones.
	glissando bool

	// invertLoopSpeed is recorded from an InvertLoop (EFx) command;
	// nothing reads it, so no bit-inversion of the looped region happens.
	invertLoopSpeed uint8

	// envelopeTick records a SetEnvelopePosition (EFF) jump target;
	// nothing reads it, so no instrument envelope is repositioned.
	envelopeTick uint16
}

// Trigger starts playback of sample/instrument at note, resetting
// sample position and setting the channel's base period from note. The
// channel's volume is left unchanged; the sample's default volume is
// not applied.
func (c *ChannelState) Trigger(sampleIdx, instrumentIdx int, note uint8, c4Speed uint32) {
	c.SampleIdx = sampleIdx
	c.InstrumentIdx = instrumentIdx
	c.samplePos = 0
	c.basePeriod = float32(NoteToPeriod(note))
	c.Period = c.basePeriod
	c.active = true
	c.loopDir = 1
	c.periodMod = nil
	c.volumeMod = nil
	c.triggerMod = nil
	c.vibratoPhaseCarry = 0
	c.portaTargetPeriod = 0
	_ = c4Speed
}

// Active reports whether the channel currently has a voice sounding.
func (c *ChannelState) Active() bool { return c.active }

// SetPortaTarget records note as the destination of an upcoming tone
// portamento glide without retriggering the channel, matching the
// tracker convention that a new note under a 3xx/5xx effect names a
// target pitch to glide toward rather than a fresh NoteOn. An instrument
// upgrade (sampleIdx/instrumentIdx >= 0) is allowed to swap the sample a
// channel is reading from mid-glide without resetting its sample
// position, per the tone-porta instrument-upgrade rule.
func (c *ChannelState) SetPortaTarget(note uint8, sampleIdx, instrumentIdx int) {
	c.portaTargetPeriod = float32(NoteToPeriod(note))
	if sampleIdx >= 0 {
		c.SampleIdx = sampleIdx
		c.InstrumentIdx = instrumentIdx
	}
}

// StartTonePorta installs a one-shot glide from the channel's current
// period toward its last-recorded portamento target, at rawSpeed period
// units per tick over the row's remaining ticks (0 reuses the last
// non-zero speed this channel saw, per effect memory). A no-op if no
// target has been recorded yet (a bare TonePorta effect with nothing to
// glide toward) or no speed has ever been given.
func (c *ChannelState) StartTonePorta(rawSpeed uint8, rowSpeed uint8, rowsPerBeat uint32) {
	if c.portaTargetPeriod == 0 {
		return
	}
	if rawSpeed == 0 {
		rawSpeed = c.portaSpeed
	} else {
		c.portaSpeed = rawSpeed
	}
	if rawSpeed == 0 {
		return
	}
	curve := CurveLinear
	if c.glissando {
		curve = CurveStep
	}
	env := tonePortaEnvelope(c.Period, c.portaTargetPeriod, float32(rawSpeed), rowSpeed, rowSpeed, rowsPerBeat, curve)
	mod := NewModulator(env, ModSet, ModTarget{Kind: TargetChannel})
	c.SetupModulator(mod, false)
}

// StartVolumeSlide installs a one-shot ramp from the channel's current,
// live volume toward up-down applied once per tick across the row's
// remaining ticks, correcting the earlier bug of ramping from a
// hardcoded start value with an additive combine mode: like
// StartTonePorta/StartPortamento, this always reads live channel state
// and replaces it (ModSet) rather than adding onto it.
func (c *ChannelState) StartVolumeSlide(up, down int16, rowSpeed uint8, rowsPerBeat uint32) {
	delta := float32(up - down)
	if delta == 0 {
		return
	}
	env := volumeSlideEnvelope(c.baseVolume, delta, rowSpeed, rowSpeed, rowsPerBeat)
	mod := NewModulator(env, ModSet, ModTarget{Kind: TargetGlobal})
	c.SetupModulator(mod, false)
}

// StartVibrato installs (or continues) a looping period-oscillation
// modulator at rawSpeed/rawDepth, 0 meaning "reuse effect memory".
// continuePhase carries an in-flight vibrato's phase across a row
// boundary instead of restarting it, matching how most trackers treat a
// VibratoVolSlide (6xy) immediately following a Vibrato (4xy).
func (c *ChannelState) StartVibrato(rawSpeed, rawDepth uint8, rowSpeed uint8, rowsPerBeat uint32, continuePhase bool) {
	if rawSpeed == 0 {
		rawSpeed = c.vibratoSpeed
	} else {
		c.vibratoSpeed = rawSpeed
	}
	if rawDepth == 0 {
		rawDepth = c.vibratoDepth
	} else {
		c.vibratoDepth = rawDepth
	}
	if rawSpeed == 0 {
		return
	}
	env := addModeSineEnvelope(float32(rawDepth), quarterCycleTicks(rawSpeed), rowSpeed, rowsPerBeat)
	mod := NewModulator(env, ModAdd, ModTarget{Kind: TargetChannel})
	c.SetupModulator(mod, continuePhase)
}

// StartTremolo mirrors StartVibrato for the volume-oscillation effect.
func (c *ChannelState) StartTremolo(rawSpeed, rawDepth uint8, rowSpeed uint8, rowsPerBeat uint32, continuePhase bool) {
	if rawSpeed == 0 {
		rawSpeed = c.tremoloSpeed
	} else {
		c.tremoloSpeed = rawSpeed
	}
	if rawDepth == 0 {
		rawDepth = c.tremoloDepth
	} else {
		c.tremoloDepth = rawDepth
	}
	if rawSpeed == 0 {
		return
	}
	env := addModeSineEnvelope(float32(rawDepth), quarterCycleTicks(rawSpeed), rowSpeed, rowsPerBeat)
	mod := NewModulator(env, ModAdd, ModTarget{Kind: TargetGlobal})
	c.SetupModulator(mod, continuePhase)
}

// StartRetrigger installs a looping trigger-mode modulator that fires
// every interval ticks; AdvanceModulators resets samplePos to 0 each
// time Modulator.State.Looped() reports a crossing, giving RetrigNote
// (and, with its volume-change parameter not yet applied, MultiRetrig)
// a real per-interval sample restart.
func (c *ChannelState) StartRetrigger(interval uint8, rowSpeed uint8, rowsPerBeat uint32) {
	if interval == 0 {
		return
	}
	env := retriggerEnvelope(interval, rowSpeed, rowsPerBeat)
	mod := NewModulator(env, ModTrigger, ModTarget{Kind: TargetChannel})
	c.triggerMod = &mod
}

// StartTremor installs a looping on/off volume-gate modulator for the
// Txy effect.
func (c *ChannelState) StartTremor(onTicks, offTicks uint8, rowSpeed uint8, rowsPerBeat uint32) {
	if onTicks == 0 && offTicks == 0 {
		return
	}
	env := tremorEnvelope(onTicks, offTicks, rowSpeed, rowsPerBeat)
	mod := NewModulator(env, ModMultiply, ModTarget{Kind: TargetGlobal})
	c.SetupModulator(mod, false)
}

// ApplyFinePorta nudges basePeriod once by delta period units (negative
// raises pitch), used by the one-shot Exx/EFx fine and extra-fine
// portamento commands instead of a per-tick ramp.
func (c *ChannelState) ApplyFinePorta(delta float32) {
	c.basePeriod = float32(ClampPeriod(uint16(c.basePeriod + delta)))
	c.Period = c.basePeriod
}

// ApplyFineVolumeSlide nudges baseVolume once by delta, clamped to
// 0..64.
func (c *ChannelState) ApplyFineVolumeSlide(delta float32) {
	v := c.baseVolume + delta
	if v < 0 {
		v = 0
	}
	if v > 64 {
		v = 64
	}
	c.baseVolume = v
	c.Volume = v
}

// ApplyPanSlide nudges Panning once by delta, clamped to -64..64 - a
// one-shot per-row simplification of the per-tick Pxy ramp, since the
// modulator target model only covers period and volume.
func (c *ChannelState) ApplyPanSlide(delta float32) {
	p := float32(c.Panning) + delta
	if p < -64 {
		p = -64
	}
	if p > 64 {
		p = 64
	}
	c.Panning = int8(p)
}

// ApplyFinetune shifts the channel's current period by eighths of a
// semitone (the classic MOD finetune unit), using a fractional 12-TET
// exponent rather than the whole-semitone semitoneMul table in
// period.go, since finetune steps don't land on a whole semitone.
func (c *ChannelState) ApplyFinetune(eighths int16) {
	semitones := float64(eighths) / 8.0
	factor := math.Pow(2, -semitones/12)
	c.basePeriod = float32(ClampPeriod(uint16(float64(c.basePeriod) * factor)))
	c.Period = c.basePeriod
}

// StartPortamento installs a one-shot open-ended period glide (plain
// portamento up/down, not aimed at a specific note) at delta period
// units per tick over the row's remaining ticks.
func (c *ChannelState) StartPortamento(delta float32, rowSpeed uint8, rowsPerBeat uint32) {
	env := portaEnvelope(c.Period, delta, rowSpeed, rowSpeed, rowsPerBeat)
	mod := NewModulator(env, ModSet, ModTarget{Kind: TargetChannel})
	c.SetupModulator(mod, false)
}

// SetupModulator installs mod as the channel's period or volume
// modulator depending on its Target.Kind, replacing any previous
// modulator of the same kind. When continueVibratoPhase is true and a
// period modulator is already installed, the new modulator takes over
// the old one's runtime state (envelope position), so an in-flight
// oscillation keeps its phase. The engine's event dispatch always passes
// false, so every Vibrato or VibratoVolSlide row restarts the vibrato
// from phase zero.
func (c *ChannelState) SetupModulator(mod Modulator, continueVibratoPhase bool) {
	switch mod.Target.Kind {
	case TargetChannel:
		if continueVibratoPhase && c.periodMod != nil {
			mod.State = c.periodMod.State
		}
		c.periodMod = &mod
	default:
		c.volumeMod = &mod
	}
}

// ClearModulation drops the channel's period and volume modulators,
// returning Period/Volume to their un-modulated base values.
func (c *ChannelState) ClearModulation() {
	c.periodMod = nil
	c.volumeMod = nil
	c.Period = c.basePeriod
	c.Volume = c.baseVolume
}

// AdvanceModulators steps any live modulators by dt sub-beat units and
// applies their combine mode onto Period/Volume.
func (c *ChannelState) AdvanceModulators(dt uint32) {
	c.Period = c.basePeriod
	if c.periodMod != nil {
		c.periodMod.State.Advance(dt)
		c.Period = applyMod(c.basePeriod, c.periodMod.Mode, c.periodMod.State.Value())
	}
	c.Volume = c.baseVolume
	if c.volumeMod != nil {
		c.volumeMod.State.Advance(dt)
		c.Volume = applyMod(c.baseVolume, c.volumeMod.Mode, c.volumeMod.State.Value())
	}
	if c.triggerMod != nil {
		c.triggerMod.State.Advance(dt)
		if c.triggerMod.State.Looped() {
			c.samplePos = 0
			c.loopDir = 1
		}
	}
}

func applyMod(base float32, mode ModMode, v float32) float32 {
	switch mode {
	case ModAdd:
		return base + v
	case ModMultiply:
		return base * v
	case ModSet:
		return v
	default:
		return base
	}
}

// UpdateIncrement recomputes the 16.16 sample-stepping increment from
// the channel's current Period against c4Speed/sampleRate.
func (c *ChannelState) UpdateIncrement(c4Speed, sampleRate uint32) {
	period := ClampPeriod(uint16(c.Period))
	c.increment = PeriodToIncrement(period, c4Speed, sampleRate)
}

// Render produces n frames of this channel's output into out, reading
// through sample via linear interpolation and applying the channel's
// current volume/pan. Panning follows the source's formula: right gain
// uses panning+64 remapped into 0..128, so hard-left (-64) mutes the
// right channel and hard-right (64) mutes the left.
func (c *ChannelState) Render(sample Sample, out []Frame) {
	if !c.active || c.increment == 0 {
		return
	}
	length := sample.Data.Len()
	if length == 0 {
		c.active = false
		return
	}
	if c.loopDir == 0 {
		c.loopDir = 1
	}
	for i := range out {
		idx := int(c.samplePos >> 16)
		if idx < 0 || idx >= length {
			c.active = false
			break
		}
		v := sample.GetMonoInterpolated(c.samplePos)

		panRight := int32(c.Panning) + 64 // 0..128
		panLeft := 128 - panRight

		volScale := int32(c.Volume) // 0..64

		left := (int32(v) * panLeft * volScale) / (128 * 64)
		right := (int32(v) * panRight * volScale) / (128 * 64)

		out[i] = out[i].Mix(Frame{Left: clampInt32ToInt16(left), Right: clampInt32ToInt16(right)})

		c.advanceLoop(sample, length)
		if !c.active {
			break
		}
	}
}

// advanceLoop steps samplePos forward by one increment, honoring
// sample's loop type: Forward/Sustain wrap to LoopStart on crossing
// LoopEnd (per the data-model invariant loop_start < loop_end <= len),
// PingPong reverses direction at either boundary, and a sample with no
// usable loop simply stops the channel at its natural end.
func (c *ChannelState) advanceLoop(sample Sample, length int) {
	loopEndFixed := sample.LoopEnd << 16
	loopStartFixed := sample.LoopStart << 16
	endFixed := uint32(length) << 16

	var next uint32
	if c.loopDir >= 0 {
		next = c.samplePos + c.increment
	} else if c.samplePos < c.increment {
		next = 0
	} else {
		next = c.samplePos - c.increment
	}

	switch sample.LoopType {
	case LoopForward, LoopSustain:
		if sample.HasLoop() && next>>16 >= sample.LoopEnd {
			next -= (loopEndFixed - loopStartFixed)
		} else if !sample.HasLoop() && next>>16 >= uint32(length) {
			c.active = false
		}
	case LoopPingPong:
		if sample.HasLoop() && c.loopDir >= 0 && next>>16 >= sample.LoopEnd {
			over := next - loopEndFixed
			next = loopEndFixed - over
			c.loopDir = -1
		} else if sample.HasLoop() && c.loopDir < 0 && next>>16 < sample.LoopStart {
			under := loopStartFixed - next
			next = loopStartFixed + under
			c.loopDir = 1
		} else if !sample.HasLoop() && next>>16 >= uint32(length) {
			c.active = false
		}
	default:
		if next>>16 >= uint32(length) {
			c.active = false
			next = endFixed
		}
	}

	c.samplePos = next
}
