package trackerengine

// ScheduleSong walks every Track in song starting from startTime and
// inserts the resulting Events into q. This is the only place that
// turns "patterns on a timeline" into "events at exact MusicalTimes";
// the render thread never looks at Patterns/Tracks directly.
func ScheduleSong(song *Song, startTime MusicalTime, q *EventQueue) {
	// An ungrouped track walks independently of every other track, which
	// is exactly what the grouped-walk algorithm does for a singleton
	// member list: its own column still drives its own flow control
	// (pattern break/position jump/pattern delay), just without any
	// other lane's transport synchronized to it.
	for trackIdx, track := range song.Tracks {
		if track.Group >= 0 {
			continue // scheduled once per group below, not per track
		}
		scheduleGroup(song, -1, []int{trackIdx}, startTime, q)
	}

	groups := collectGroups(song.Tracks)
	for group, memberIdxs := range groups {
		scheduleGroup(song, group, memberIdxs, startTime, q)
	}
}

// collectGroups partitions track indices by their Group field, skipping
// ungrouped (-1) tracks.
func collectGroups(tracks []Track) map[int][]int {
	groups := map[int][]int{}
	for i, t := range tracks {
		if t.Group < 0 {
			continue
		}
		groups[t.Group] = append(groups[t.Group], i)
	}
	return groups
}

// effectiveSpeed returns the in-effect ticks-per-row, honoring any
// SetSpeed effect encountered so far on this row (EffectSetSpeed's A
// holds the new value, applied starting the row it appears on).
func effectiveSpeed(cell Cell, current uint8) uint8 {
	if cell.Effect.Kind == EffectSetSpeed && cell.Effect.A > 0 {
		return uint8(cell.Effect.A)
	}
	return current
}

// isToneporta reports whether cell's effect is a tone-portamento
// variant (plain or combined with volume slide); these substitute a
// PortaTarget payload instead of a fresh NoteOn, per scenario S2.
func isToneporta(e Effect) bool {
	return e.Kind == EffectTonePorta || e.Kind == EffectTonePortaVolSlide
}

// noteDelayAmount extracts an EffectNoteDelay's tick count (0 if the
// cell carries no delay).
func noteDelayAmount(e Effect) uint8 {
	if e.Kind == EffectNoteDelay {
		return uint8(e.A)
	}
	return 0
}

// trackChannelIndexFromSong returns the ChannelState index a Track
// drives, which is always the track's own position in song.Tracks: the
// graph scan finds a NodeTrackerChannel with that index, and when none
// exists (e.g. a test fixture built without WithChannels) the same
// index is returned.
func trackChannelIndexFromSong(song *Song, trackIdx int) int {
	for _, n := range song.Graph.Nodes {
		if n.Type.Kind == NodeTrackerChannel && int(n.Type.ChannelIndex) == trackIdx {
			return trackIdx
		}
	}
	return trackIdx
}

// getTrackClip returns clip i of track, or the zero Clip if out of
// range.
func getTrackClip(track Track, i int) (Clip, bool) {
	if i < 0 || i >= len(track.Clips) {
		return Clip{}, false
	}
	return track.Clips[i], true
}

// computeGroupMaxRows bounds a group transport walk's safety loop: sum
// of every member clip's rows*2, plus a flat 256-row pad, so a
// malformed sequence (e.g. a jump cycle) can never spin forever.
func computeGroupMaxRows(song *Song, memberIdxs []int) int {
	total := 256
	for _, idx := range memberIdxs {
		track := song.Tracks[idx]
		for _, clip := range track.Clips {
			total += clip.Rows * 2
		}
	}
	return total
}

// groupFlowControl is what scanGroupFlowControl finds scanning each
// member track's own channel column at one row (spec.md section 4.D
// step 3): a
// PatternBreak's target row, a PositionJump's target sequence index, and
// a PatternDelay's repeat count, any or none of which may be present on
// the same row.
type groupFlowControl struct {
	breakRow     int
	hasBreak     bool
	jumpOrder    int
	hasJump      bool
	patternDelay int

	// patternLoop holds an E6x command's repeat count (0 for E60, which
	// sets the loop anchor instead of repeating); hasPatternLoop reports
	// whether the row carries one at all.
	patternLoop    int
	hasPatternLoop bool
}

// scanGroupFlowControl inspects row across every member track's pattern
// and collects the flow-control directives present there. Multiple
// member lanes may each carry one of these effects on the same row (a
// locked-step group applies them all to its single shared transport).
func scanGroupFlowControl(song *Song, memberIdxs []int, patternByTrack map[int]int, row int) groupFlowControl {
	var fc groupFlowControl
	for _, idx := range memberIdxs {
		pattern, ok := patternByTrack[idx]
		if !ok {
			continue
		}
		p := song.PatternAt(pattern)
		if row < 0 || row >= p.Rows {
			continue
		}
		chanIdx := trackChannelIndexFromSong(song, idx)
		eff := p.CellAt(row, chanIdx).Effect
		switch eff.Kind {
		case EffectPatternBreak:
			fc.breakRow, fc.hasBreak = int(eff.A), true
		case EffectPositionJump:
			fc.jumpOrder, fc.hasJump = int(eff.A), true
		case EffectPatternDelay:
			fc.patternDelay = int(eff.A)
		case EffectPatternLoop:
			fc.patternLoop, fc.hasPatternLoop = int(eff.A), true
		}
	}
	return fc
}

// scheduleCell schedules one cell's note, volume command, and effect.
func scheduleCell(song *Song, chanIdx int, cell Cell, rowTime MusicalTime, speed uint8, rowsPerBeat uint32, q *EventQueue) {
	delay := noteDelayAmount(cell.Effect)
	noteTime := rowTime
	if delay > 0 {
		noteTime = rowTime.AddTicks(uint32(delay), uint32(speed)*rowsPerBeat)
	}

	target := EventTarget{Kind: EventTargetChannel, Channel: uint8(chanIdx)}

	if cell.Note.Kind == NoteKindOn && isToneporta(cell.Effect) {
		q.Insert(Event{Time: noteTime, Target: target, Payload: EventPayload{
			Kind: PayloadPortaTarget, Note: cell.Note.Pitch, Instrument: cell.Instrument,
		}})
	} else if cell.Note.Kind == NoteKindOn {
		q.Insert(Event{Time: noteTime, Target: target, Payload: EventPayload{
			Kind: PayloadNoteOn, Note: cell.Note.Pitch, Instrument: cell.Instrument,
		}})
	} else if cell.Note.Kind == NoteKindOff {
		q.Insert(Event{Time: noteTime, Target: target, Payload: EventPayload{Kind: PayloadNoteOff}})
	} else if cell.Note.Kind == NoteKindFade {
		q.Insert(Event{Time: noteTime, Target: target, Payload: EventPayload{Kind: PayloadNoteCut}})
	}

	scheduleVolumeCommand(cell.Volume, target, rowTime, q)
	scheduleEffect(cell.Effect, target, rowTime, speed, rowsPerBeat, q)
}

// scheduleVolumeCommand schedules the volume column: a plain set-volume
// becomes a PayloadSetVolume event at t. The other volume-column
// commands (slides, vibrato, panning) produce no event.
func scheduleVolumeCommand(v VolumeCommand, target EventTarget, t MusicalTime, q *EventQueue) {
	if v.Kind == VolCmdSetVolume {
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadSetVolume, Value: int32(v.Value)}})
	}
}

// isSchedulerDirective reports whether an effect is handled directly by
// the scheduler's transport walk (speed/tempo/position) rather than
// being forwarded to the channel as a modulator-driving event.
func isSchedulerDirective(e Effect) bool {
	switch e.Kind {
	case EffectSetSpeed, EffectSetTempo, EffectPositionJump, EffectPatternBreak, EffectPatternDelay, EffectPatternLoop:
		return true
	default:
		return false
	}
}

// scheduleEffect turns a single Effect into zero or more Events.
func scheduleEffect(e Effect, target EventTarget, t MusicalTime, speed uint8, rowsPerBeat uint32, q *EventQueue) {
	if e.Kind == EffectNone {
		return
	}

	if isSchedulerDirective(e) {
		switch e.Kind {
		case EffectSetSpeed:
			q.Insert(Event{Time: t, Target: EventTarget{Kind: EventTargetGlobal}, Payload: EventPayload{Kind: PayloadSetSpeed, Value: int32(e.A)}})
		case EffectSetTempo:
			q.Insert(Event{Time: t, Target: EventTarget{Kind: EventTargetGlobal}, Payload: EventPayload{Kind: PayloadSetTempo, Value: int32(e.A)}})
		}
		return
	}

	switch e.Kind {
	case EffectSetPanning:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadSetPanning, Value: int32(e.A)}})
	case EffectSetVolume:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadSetVolume, Value: int32(e.A)}})
	case EffectNoteCut:
		cutTime := t.AddTicks(uint32(e.A), uint32(speed)*rowsPerBeat)
		q.Insert(Event{Time: cutTime, Target: target, Payload: EventPayload{Kind: PayloadNoteCut}})
	case EffectKeyOff:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadNoteOff}})
	case EffectVibrato:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadVibrato, Value: int32(e.A), Value2: int32(e.B)}})
	case EffectVibratoVolSlide:
		// 6xy's A/B are a volume slide's up/down nibbles, not vibrato
		// parameters - the vibrato is reinstalled at its last-memorized
		// speed/depth (Value=Value2=0 requests pure memory reuse) and
		// restarts from phase zero.
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadVibrato, Value: 0, Value2: 0}})
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadVolumeSlide, Value: int32(e.A), Value2: int32(e.B)}})
	case EffectTremolo:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadTremolo, Value: int32(e.A), Value2: int32(e.B)}})
	case EffectArpeggio:
		env := arpeggioEnvelope(0, float32(e.A), float32(e.B), speed, rowsPerBeat)
		mod := NewModulator(env, ModAdd, ModTarget{Kind: TargetChannel})
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadSetModulator, Modulator: &mod}})
	case EffectVolumeSlide:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadVolumeSlide, Value: int32(e.A), Value2: int32(e.B)}})
	case EffectPortaUp:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadPortamento, Value: -int32(e.A)}})
	case EffectPortaDown:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadPortamento, Value: int32(e.A)}})
	case EffectTonePorta:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadTonePorta, Value: int32(e.A)}})
	case EffectTonePortaVolSlide:
		// 5xy's A/B are a volume slide's up/down nibbles, so the glide
		// continues at the memorized porta speed (Value=0).
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadTonePorta, Value: 0}})
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadVolumeSlide, Value: int32(e.A), Value2: int32(e.B)}})
	case EffectRetrigNote:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadRetrigNote, Value: int32(e.A)}})
	case EffectMultiRetrig:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadMultiRetrig, Value: int32(e.A), Value2: int32(e.B)}})
	case EffectTremor:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadTremor, Value: int32(e.A), Value2: int32(e.B)}})
	case EffectSampleOffset:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadSampleOffset, Value: int32(e.A)}})
	case EffectFinePortaUp:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadFinePorta, Value: -int32(e.A)}})
	case EffectFinePortaDown:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadFinePorta, Value: int32(e.A)}})
	case EffectXFinePorta:
		// Extra-fine portamento moves at 1/4 of a fine-porta step.
		sub := e.B
		delta := int32(e.A)
		if sub == 1 {
			delta = -delta
		}
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadFinePorta, Value: delta, Value2: 1}})
	case EffectFineVolumeSlideUp, EffectFineVolSlideUp:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadFineVolumeSlide, Value: int32(e.A)}})
	case EffectFineVolumeSlideDown, EffectFineVolSlideDown:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadFineVolumeSlide, Value: -int32(e.A)}})
	case EffectSetVibratoWaveform:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadSetVibratoWaveform, Value: int32(e.A)}})
	case EffectSetTremoloWaveform:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadSetTremoloWaveform, Value: int32(e.A)}})
	case EffectGlissandoControl:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadGlissandoControl, Value: int32(e.A)}})
	case EffectSetFinetune:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadSetFinetune, Value: int32(e.A)}})
	case EffectInvertLoop:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadInvertLoop, Value: int32(e.A)}})
	case EffectSetGlobalVolume:
		q.Insert(Event{Time: t, Target: EventTarget{Kind: EventTargetGlobal}, Payload: EventPayload{Kind: PayloadSetGlobalVolume, Value: int32(e.A)}})
	case EffectGlobalVolumeSlide:
		q.Insert(Event{Time: t, Target: EventTarget{Kind: EventTargetGlobal}, Payload: EventPayload{Kind: PayloadGlobalVolumeSlide, Value: int32(e.A), Value2: int32(e.B)}})
	case EffectSetEnvelopePosition:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadSetEnvelopePosition, Value: int32(e.A)}})
	case EffectPanSlide:
		q.Insert(Event{Time: t, Target: target, Payload: EventPayload{Kind: PayloadPanSlide, Value: int32(e.A), Value2: int32(e.B)}})
	}
}

// scheduleGroup walks every member track of a lock-stepped group in
// tandem, following the per-group-walk algorithm of spec.md section
// 4.D: the representative (first) member track dictates row count and
// clip structure for the whole group, while flow control (pattern
// break, position jump, pattern delay, speed change) is collected by
// scanning every member lane at the current row and resolved into the
// group's next (seqIdx, row) position once per row. Mismatched
// per-track clip structure is coerced to the representative track's
// shape, matching the documented Open Question resolution.
func scheduleGroup(song *Song, group int, memberIdxs []int, startTime MusicalTime, q *EventQueue) {
	if len(memberIdxs) == 0 {
		return
	}
	repTrack := song.Tracks[memberIdxs[0]]
	rowsPerBeat := song.RowsPerBeat
	if rowsPerBeat == 0 {
		rowsPerBeat = 4
	}

	t := startTime
	speed := song.InitialSpeed
	guard := computeGroupMaxRows(song, memberIdxs)

	seqIdx, row := 0, 0
	loopAnchorRow := 0
	loopCounter := 0
	loopActive := false
	for steps := 0; steps < guard && seqIdx < len(repTrack.Sequence); steps++ {
		entry := repTrack.Sequence[seqIdx]
		if entry.Kind == SeqEndOfSong {
			return
		}
		if entry.Kind == SeqJumpToClip {
			seqIdx = entry.ClipIndex
			row = 0
			continue
		}

		clip, ok := getTrackClip(repTrack, entry.ClipIndex)
		if !ok {
			seqIdx++
			row = 0
			continue
		}
		if row >= clip.Rows {
			row = 0
		}
		actualRow := clip.StartRow + row

		// patternByTrack resolves each member's own pattern at this step:
		// normally every member shares the representative's pattern, but a
		// member with its own differently-indexed clip at the same seqIdx
		// is still read from its own pattern for its own column's flow
		// control.
		patternByTrack := map[int]int{}
		for _, idx := range memberIdxs {
			memberClip, ok := getTrackClip(song.Tracks[idx], entry.ClipIndex)
			if !ok {
				memberClip = clip
			}
			patternByTrack[idx] = memberClip.Pattern
		}

		for _, idx := range memberIdxs {
			chanIdx := trackChannelIndexFromSong(song, idx)
			cell := song.PatternAt(patternByTrack[idx]).CellAt(actualRow, chanIdx)
			speed = effectiveSpeed(cell, speed)
			scheduleCell(song, chanIdx, cell, t, speed, rowsPerBeat, q)
		}

		fc := scanGroupFlowControl(song, memberIdxs, patternByTrack, actualRow)

		t = t.AddRows(uint32(1+fc.patternDelay), rowsPerBeat)

		switch {
		case fc.hasPatternLoop && fc.patternLoop == 0:
			// E60 drops an anchor at this row rather than repeating.
			loopAnchorRow = actualRow
			row++
			if row >= clip.Rows {
				seqIdx, row = seqIdx+1, 0
			}
		case fc.hasPatternLoop:
			if !loopActive {
				loopActive = true
				loopCounter = fc.patternLoop
			}
			if loopCounter > 0 {
				loopCounter--
				row = loopAnchorRow - clip.StartRow
			} else {
				loopActive = false
				row++
				if row >= clip.Rows {
					seqIdx, row = seqIdx+1, 0
				}
			}
		case fc.hasJump && fc.hasBreak:
			seqIdx, row = fc.jumpOrder, fc.breakRow
		case fc.hasJump:
			seqIdx, row = fc.jumpOrder, 0
		case fc.hasBreak:
			seqIdx, row = seqIdx+1, fc.breakRow
		default:
			row++
			if row >= clip.Rows {
				seqIdx, row = seqIdx+1, 0
			}
		}
	}
}
