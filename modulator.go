package trackerengine

// ModMode selects how a modulator's value combines with a target
// parameter's existing value.
type ModMode int

const (
	ModAdd ModMode = iota
	ModMultiply
	ModSet
	ModTrigger
)

// ModTargetKind selects what kind of object a modulator is routed to.
type ModTargetKind int

const (
	TargetChannel ModTargetKind = iota
	TargetNode
	TargetGlobal
)

// ModTarget identifies the destination of a Modulator: a channel index,
// a graph node + parameter id, or a global parameter name.
type ModTarget struct {
	Kind      ModTargetKind
	Channel   uint8
	NodeID    uint32
	ParamID   uint32
	ParamName string
}

// Modulator binds an envelope to a target parameter with a combine mode.
// Channels own up to three live modulators (period/volume/trigger); the
// scheduler installs and clears them as effects fire.
type Modulator struct {
	Envelope ModEnvelope
	Mode     ModMode
	Target   ModTarget
	State    EnvelopeState
}

// NewModulator starts a modulator's runtime state from its envelope.
func NewModulator(env ModEnvelope, mode ModMode, target ModTarget) Modulator {
	return Modulator{Envelope: env, Mode: mode, Target: target, State: NewEnvelopeState(env)}
}

// subBeatsPerTick converts a ticks-per-row speed and rows-per-beat value
// into the sub-beat duration of a single tracker tick.
func subBeatsPerTick(speed uint8, rowsPerBeat uint32) uint32 {
	if speed == 0 || rowsPerBeat == 0 {
		return 0
	}
	subBeatsPerRow := SubBeatUnit / rowsPerBeat
	return subBeatsPerRow / uint32(speed)
}

// volumeSlideEnvelope builds the one-shot envelope for a 0..63 volume
// effect that ramps by delta per tick across the remaining ticks in the
// row (Axy and the volume-slide half of 5xy/6xy; the fine slides EAx/EBx
// go through ChannelState.ApplyFineVolumeSlide instead).
func volumeSlideEnvelope(startVol float32, delta float32, ticks uint8, speed uint8, rowsPerBeat uint32) ModEnvelope {
	dt := subBeatsPerTick(speed, rowsPerBeat)
	endVol := startVol + delta*float32(ticks)
	if endVol < 0 {
		endVol = 0
	}
	if endVol > 64 {
		endVol = 64
	}
	return OneShotEnvelope([]ModBreakPoint{
		{DT: 0, Value: startVol, Curve: CurveLinear},
		{DT: dt * uint32(ticks), Value: endVol, Curve: CurveLinear},
	})
}

// portaEnvelope builds a one-shot linear pitch ramp from startPeriod to
// startPeriod+delta over the row's remaining ticks (portamento up/down).
func portaEnvelope(startPeriod float32, delta float32, ticks uint8, speed uint8, rowsPerBeat uint32) ModEnvelope {
	dt := subBeatsPerTick(speed, rowsPerBeat)
	return OneShotEnvelope([]ModBreakPoint{
		{DT: 0, Value: startPeriod, Curve: CurveLinear},
		{DT: dt * uint32(ticks), Value: startPeriod + delta*float32(ticks), Curve: CurveLinear},
	})
}

// tonePortaEnvelope builds a one-shot glide from startPeriod to
// targetPeriod at the given per-tick speed, clamped so it never
// overshoots the target (property: tone porta never overshoots). curve
// is CurveLinear for a normal glide or CurveStep when glissando control
// is on, snapping the pitch to its target in one jump rather than
// sliding smoothly.
func tonePortaEnvelope(startPeriod, targetPeriod float32, speed float32, ticks uint8, rowSpeed uint8, rowsPerBeat uint32, curve CurveKind) ModEnvelope {
	dt := subBeatsPerTick(rowSpeed, rowsPerBeat)
	totalDelta := speed * float32(ticks)
	var end float32
	if startPeriod < targetPeriod {
		end = startPeriod + totalDelta
		if end > targetPeriod {
			end = targetPeriod
		}
	} else {
		end = startPeriod - totalDelta
		if end < targetPeriod {
			end = targetPeriod
		}
	}
	return OneShotEnvelope([]ModBreakPoint{
		{DT: 0, Value: startPeriod, Curve: CurveLinear},
		{DT: dt * uint32(ticks), Value: end, Curve: curve},
	})
}

// quarterCycleTicks converts a vibrato/tremolo effect's own speed nibble
// into the tick count of one quarter-cycle: ceil(16/speed), per the
// classic ProTracker LFO table (speed 0 is treated as speed 1, giving 16
// ticks, rather than dividing by zero).
func quarterCycleTicks(effectSpeed uint8) uint32 {
	if effectSpeed == 0 {
		effectSpeed = 1
	}
	return uint32((16 + int(effectSpeed) - 1) / int(effectSpeed))
}

// addModeSineEnvelope builds a looping sine-ish vibrato/tremolo envelope
// that is added (ModMode=Add) onto the channel's base period/volume. The
// envelope is built from quarter-sine segments so CurveSineQuarter can
// render the full wave shape, and loops over its full body so phase is
// continuous across rows as long as the modulator is not reset.
func addModeSineEnvelope(depth float32, quarterTicks uint32, speed uint8, rowsPerBeat uint32) ModEnvelope {
	dt := subBeatsPerTick(speed, rowsPerBeat) * quarterTicks
	return LoopingEnvelope([]ModBreakPoint{
		{DT: 0, Value: 0, Curve: CurveSineQuarter},
		{DT: dt, Value: depth, Curve: CurveSineQuarter},
		{DT: dt, Value: 0, Curve: CurveSineQuarter},
		{DT: dt, Value: -depth, Curve: CurveSineQuarter},
		{DT: dt, Value: 0, Curve: CurveSineQuarter},
	}, 0, 4)
}

// arpeggioEnvelope builds the 3-step (root, +x semitones, +y semitones)
// step envelope that repeats every tick, looping over all three steps so
// it returns to neutral (root) every multiple of 3 ticks.
func arpeggioEnvelope(rootPeriod, period1, period2 float32, speed uint8, rowsPerBeat uint32) ModEnvelope {
	dt := subBeatsPerTick(speed, rowsPerBeat)
	return LoopingEnvelope([]ModBreakPoint{
		{DT: 0, Value: rootPeriod, Curve: CurveStep},
		{DT: dt, Value: period1, Curve: CurveStep},
		{DT: dt, Value: period2, Curve: CurveStep},
		{DT: dt, Value: rootPeriod, Curve: CurveStep},
	}, 0, 3)
}

// retriggerEnvelope builds a Trigger-mode envelope that fires once every
// interval ticks, used by RetrigNote/MultiRetrig; ChannelState.
// AdvanceModulators watches Modulator.State.Looped() to know a retrigger
// point was crossed and resets samplePos accordingly.
func retriggerEnvelope(interval uint8, speed uint8, rowsPerBeat uint32) ModEnvelope {
	dt := subBeatsPerTick(speed, rowsPerBeat) * uint32(interval)
	return LoopingEnvelope([]ModBreakPoint{
		{DT: 0, Value: 1, Curve: CurveStep},
		{DT: dt, Value: 0, Curve: CurveStep},
	}, 0, 1)
}

// tremorEnvelope builds a 3-step looping volume-gate envelope: full
// volume for onTicks, silence for offTicks, repeating - the classic
// Txy tremor effect, built as 3 points looping over 0..2 so it can drive
// a ModMultiply volume modulator.
func tremorEnvelope(onTicks, offTicks uint8, speed uint8, rowsPerBeat uint32) ModEnvelope {
	dt := subBeatsPerTick(speed, rowsPerBeat)
	return LoopingEnvelope([]ModBreakPoint{
		{DT: 0, Value: 1, Curve: CurveStep},
		{DT: dt * uint32(onTicks), Value: 0, Curve: CurveStep},
		{DT: dt * uint32(offTicks), Value: 1, Curve: CurveStep},
	}, 0, 2)
}

// adsrEnvelope builds the classic attack/decay/sustain/release shape
// used by Instrument volume envelopes rendered through the modulator
// runtime; sustainLevel holds until GateOff is called on the state.
func adsrEnvelope(attack, decay, sustainLevel, release uint32) ModEnvelope {
	sustainIdx := uint16(2)
	return ModEnvelope{
		Points: []ModBreakPoint{
			{DT: 0, Value: 0, Curve: CurveLinear},
			{DT: attack, Value: 1, Curve: CurveLinear},
			{DT: decay, Value: float32(sustainLevel) / 64, Curve: CurveLinear},
			{DT: release, Value: 0, Curve: CurveLinear},
		},
		SustainPoint: &sustainIdx,
	}
}
