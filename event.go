package trackerengine

// EventTargetKind selects what an Event addresses.
type EventTargetKind uint8

const (
	EventTargetChannel EventTargetKind = iota
	EventTargetNode
	EventTargetGlobal
)

// EventTarget identifies the destination a scheduled Event acts on.
type EventTarget struct {
	Kind    EventTargetKind
	Channel uint8
	NodeID  uint32
}

// EventPayloadKind enumerates what an Event carries.
type EventPayloadKind uint8

const (
	PayloadNoteOn EventPayloadKind = iota
	PayloadNoteOff
	PayloadNoteCut
	PayloadSetVolume
	PayloadSetPanning
	PayloadSetModulator
	PayloadClearModulator
	PayloadSetSpeed
	PayloadSetTempo
	PayloadSetGlobalVolume
	PayloadJumpOrder
	PayloadPortaTarget
	PayloadTonePorta
	PayloadPortamento

	// PayloadVolumeSlide carries a raw Axy-style volume slide (Value =
	// slide-up nibble, Value2 = slide-down nibble) resolved against the
	// channel's live volume at dispatch time instead of a pre-built
	// modulator, so ChannelState.StartVolumeSlide always ramps from
	// wherever the channel's volume actually is.
	PayloadVolumeSlide
	// PayloadVibrato/PayloadTremolo carry raw speed/depth (Value/Value2),
	// zero meaning "reuse effect memory", resolved by ChannelState against
	// its own latched vibratoSpeed/vibratoDepth/tremoloSpeed/tremoloDepth.
	PayloadVibrato
	PayloadTremolo
	// PayloadRetrigNote/PayloadMultiRetrig carry the retrigger interval in
	// Value; MultiRetrig's volume-change nibble is carried in Value2, and
	// the engine does not apply it.
	PayloadRetrigNote
	PayloadMultiRetrig
	// PayloadTremor carries on-ticks (Value) and off-ticks (Value2).
	PayloadTremor
	PayloadSampleOffset
	// PayloadFinePorta carries a signed, already-directional period delta
	// (negative raises pitch, matching PayloadPortamento's convention),
	// applied once instead of ramped.
	PayloadFinePorta
	// PayloadFineVolumeSlide carries a signed, already-directional volume
	// delta, applied once to baseVolume.
	PayloadFineVolumeSlide
	PayloadSetVibratoWaveform
	PayloadSetTremoloWaveform
	PayloadGlissandoControl
	PayloadSetFinetune
	PayloadInvertLoop
	// PayloadGlobalVolumeSlide carries slide-up (Value) and slide-down
	// (Value2) amounts; Value-Value2 is applied once (the modulator
	// runtime has no global-volume target to ramp against) to
	// Song.GlobalVolume, clamped to 0..64.
	PayloadGlobalVolumeSlide
	PayloadSetEnvelopePosition
	// PayloadPanSlide carries slide-up (Value) and slide-down (Value2)
	// amounts; Value-Value2 is applied once to Panning, the same one-shot
	// simplification as PayloadFineVolumeSlide.
	PayloadPanSlide
)

// EventPayload is the flattened tagged-union body of an Event: fields
// not relevant to Kind are left zero, matching Effect/VolumeCommand.
type EventPayload struct {
	Kind       EventPayloadKind
	Note       uint8
	Instrument uint16
	Value      int32
	Value2     int32
	Modulator  *Modulator
}

// Event is a single scheduled action at an exact musical time.
type Event struct {
	Time    MusicalTime
	Target  EventTarget
	Payload EventPayload
}

// Less orders events by time; ties keep insertion order (stable sort is
// the caller's responsibility via stable insertion, see EventQueue).
func (e Event) Less(other Event) bool { return e.Time.Less(other.Time) }
