package trackerengine

// VoiceState tracks a voice's lifecycle stage, used by the pool's
// steal-priority ordering (Fading < Released < Background < Active:
// lower-priority voices are stolen first when a new note needs a slot).
type VoiceState uint8

const (
	VoiceFading VoiceState = iota
	VoiceReleased
	VoiceBackground
	VoiceActive
)

// stealPriority returns a voice state's steal priority: lower values
// are stolen before higher ones.
func stealPriority(s VoiceState) int {
	switch s {
	case VoiceFading:
		return 0
	case VoiceReleased:
		return 1
	case VoiceBackground:
		return 2
	default:
		return 3
	}
}

// VoiceID addresses a voice slot opaquely; the pool owns the backing
// array, callers only ever hold this key.
type VoiceID uint32

// Voice is one sounding instance of a sample, independent of the
// channel that triggered it (a channel retriggering a new note can
// leave the old voice fading out under NNAFade/NNAContinue/NNAOff
// while a fresh voice starts).
type Voice struct {
	State      VoiceState
	SampleIdx  int
	samplePos  uint32
	increment  uint32
	direction  int8 // +1 forward, -1 for ping-pong's reverse leg
	Volume     float32
	Panning    int8
	FadeEnvelope EnvelopeState
}

// Reset reinitializes the voice for a fresh trigger.
func (v *Voice) Reset(sampleIdx int, increment uint32, volume float32, pan int8) {
	v.State = VoiceActive
	v.SampleIdx = sampleIdx
	v.samplePos = 0
	v.increment = increment
	v.direction = 1
	v.Volume = volume
	v.Panning = pan
}

// Release marks the voice released (note-off received, sample keeps
// playing per its loop/sustain rules until NNA/fade finishes it).
func (v *Voice) Release() {
	if v.State == VoiceActive || v.State == VoiceBackground {
		v.State = VoiceReleased
	}
}

// AdvanceLoop moves the voice's sample position forward by one frame,
// applying the sample's loop type: None stops at the end, Forward wraps
// to LoopStart, PingPong reverses direction at each boundary, Sustain
// behaves like Forward until the voice has released (then plays out to
// the natural end).
func (v *Voice) AdvanceLoop(s Sample) {
	length := uint32(s.Data.Len())
	if length == 0 {
		v.State = VoiceFading
		return
	}

	var next uint32
	if v.direction >= 0 {
		next = v.samplePos + v.increment
	} else {
		if v.samplePos < v.increment {
			next = 0
		} else {
			next = v.samplePos - v.increment
		}
	}

	endFixed := length << 16
	loopStartFixed := s.LoopStart << 16
	loopEndFixed := s.LoopEnd << 16

	switch s.LoopType {
	case LoopForward:
		if next >= loopEndFixed && loopEndFixed > loopStartFixed {
			over := next - loopEndFixed
			next = loopStartFixed + over
		}
	case LoopSustain:
		if v.State != VoiceReleased {
			if next >= loopEndFixed && loopEndFixed > loopStartFixed {
				over := next - loopEndFixed
				next = loopStartFixed + over
			}
		} else if next >= endFixed {
			v.State = VoiceFading
		}
	case LoopPingPong:
		if next >= loopEndFixed && loopEndFixed > loopStartFixed && v.direction >= 0 {
			over := next - loopEndFixed
			next = loopEndFixed - over
			v.direction = -1
		} else if v.direction < 0 && next <= loopStartFixed {
			under := loopStartFixed - next
			next = loopStartFixed + under
			v.direction = 1
		}
	default: // LoopNone
		if next >= endFixed {
			v.State = VoiceFading
			next = endFixed
		}
	}

	v.samplePos = next
}

// RenderWithSource renders n frames of this voice's audio through
// source into out, applying the same volume/pan formula
// ChannelState.Render uses (confirmed consistent by design: a voice is
// just a channel's sound that has detached from its trigger). A fading
// voice (NNAFade) keeps rendering, scaled down by FadeEnvelope's value,
// until the envelope finishes and the pool reaps it.
func (v *Voice) RenderWithSource(s Sample, out []Frame) {
	if v.increment == 0 {
		return
	}
	if v.State == VoiceFading && v.FadeEnvelope.IsFinished() {
		return
	}
	panRight := int32(v.Panning) + 64
	panLeft := 128 - panRight
	volScale := v.Volume
	if v.State == VoiceFading {
		volScale *= v.FadeEnvelope.Value()
	}
	scale := int32(volScale)

	for i := range out {
		if v.State == VoiceFading && v.FadeEnvelope.IsFinished() {
			break
		}
		sample := s.GetMonoInterpolated(v.samplePos)

		left := (int32(sample) * panLeft * scale) / (128 * 64)
		right := (int32(sample) * panRight * scale) / (128 * 64)
		out[i] = out[i].Mix(Frame{Left: clampInt32ToInt16(left), Right: clampInt32ToInt16(right)})

		v.AdvanceLoop(s)
	}
}
