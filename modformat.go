package trackerengine

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
)

const modRowsPerPattern = 64

// NewMODSongFromBytes parses a classic 31-sample ProTracker-family MOD
// file (4/6/8/xxCH channel signatures) into a playable Song.
func NewMODSongFromBytes(data []byte) (*Song, error) {
	if len(data) < 1084 {
		return nil, NewParseError(ErrUnexpectedEOF, "MOD file too short (%d bytes)", len(data))
	}

	buf := bytes.NewReader(data)
	titleRaw := make([]byte, 20)
	if _, err := buf.Read(titleRaw); err != nil {
		return nil, WrapParseError(ErrIO, "reading title", err)
	}
	title := strings.TrimRight(string(titleRaw), "\x00")

	const numSamples = 31
	samples := make([]Sample, numSamples)
	sampleLens := make([]int, numSamples)
	for i := 0; i < numSamples; i++ {
		smp, length, err := readMODSampleInfo(buf)
		if err != nil {
			return nil, err
		}
		samples[i] = smp
		sampleLens[i] = length
	}

	var orderCount, unused uint8
	if err := binary.Read(buf, binary.BigEndian, &orderCount); err != nil {
		return nil, WrapParseError(ErrUnexpectedEOF, "reading order count", err)
	}
	if err := binary.Read(buf, binary.BigEndian, &unused); err != nil {
		return nil, WrapParseError(ErrUnexpectedEOF, "reading order table", err)
	}
	orderData := make([]byte, 128)
	if _, err := buf.Read(orderData); err != nil {
		return nil, WrapParseError(ErrUnexpectedEOF, "reading order table", err)
	}

	maxPattern := 0
	for i := 0; i < int(orderCount) && i < len(orderData); i++ {
		if int(orderData[i]) > maxPattern {
			maxPattern = int(orderData[i])
		}
	}
	numPatterns := maxPattern + 1

	sig := make([]byte, 4)
	if _, err := buf.Read(sig); err != nil {
		return nil, WrapParseError(ErrUnexpectedEOF, "reading channel signature", err)
	}
	channels, err := channelsFromMODSignature(sig)
	if err != nil {
		return nil, err
	}

	const bytesPerCell = 4
	patterns := make([]Pattern, numPatterns)
	cellBuf := make([]byte, modRowsPerPattern*channels*bytesPerCell)
	for p := 0; p < numPatterns; p++ {
		pat := NewPattern(modRowsPerPattern, channels, 6)
		if _, err := buf.Read(cellBuf); err != nil {
			return nil, WrapParseError(ErrUnexpectedEOF, "reading pattern data", err)
		}
		for i := 0; i < modRowsPerPattern*channels; i++ {
			row := i / channels
			ch := i % channels
			pat.SetCellAt(row, ch, cellFromMODBytes(cellBuf[i*bytesPerCell:i*bytesPerCell+bytesPerCell]))
		}
		patterns[p] = pat
	}

	for i := 0; i < numSamples; i++ {
		// Some MOD files record a sample length longer than what remains in
		// the file (e.g. "believe.mod" sample 8); read what's actually
		// there instead of failing the whole load.
		n := sampleLens[i]
		if n > buf.Len() {
			n = buf.Len()
		}
		raw := make([]int8, n)
		if n > 0 {
			if err := binary.Read(buf, binary.LittleEndian, raw); err != nil {
				return nil, WrapParseError(ErrIO, "reading sample data", err)
			}
		}
		samples[i].Data = SampleData{Kind: SampleMono8, Mono8: raw}
	}

	order := make([]OrderEntry, orderCount)
	for i := range order {
		order[i] = OrderEntry{Kind: OrderPattern, Pattern: orderData[i]}
	}

	instruments := make([]Instrument, numSamples)
	for i := range instruments {
		ins := Instrument{Name: samples[i].Name, Fadeout: 0}
		for n := range ins.SampleMap {
			ins.SampleMap[n] = uint8(i)
		}
		instruments[i] = ins
	}

	song := &Song{
		Title:        title,
		InitialTempo: 125,
		InitialSpeed: 6,
		RowsPerBeat:  4,
		GlobalVolume: 64,
		Patterns:     patterns,
		Order:        order,
		Instruments:  instruments,
		Samples:      samples,
	}
	song.WithChannels(channels)
	song.Tracks = tracksFromOrder(song.Order, song.Patterns, channels)
	return song, nil
}

func channelsFromMODSignature(sig []byte) (int, error) {
	switch string(sig[2:]) {
	case "K.": // M.K., 4 channels
		return 4, nil
	case "HN": // xCHN
		return int(sig[0]) - '0', nil
	case "CH": // xxCH
		return (int(sig[0])-'0')*10 + (int(sig[1]) - '0'), nil
	default:
		return 0, NewParseError(ErrUnsupportedVersion, "unrecognized MOD channel signature %q", string(sig))
	}
}

// readMODSampleInfo reads one of the 31 fixed-layout sample headers
// that precede a MOD file's order table, returning the Sample (minus
// PCM data, filled in later) and its declared length in bytes.
func readMODSampleInfo(r *bytes.Reader) (Sample, int, error) {
	data := struct {
		Name      [22]byte
		Length    uint16
		FineTune  uint8
		Volume    uint8
		LoopStart uint16
		LoopLen   uint16
	}{}
	if err := binary.Read(r, binary.BigEndian, &data); err != nil {
		return Sample{}, 0, WrapParseError(ErrUnexpectedEOF, "reading sample header", err)
	}

	length := int(data.Length) * 2
	loopStart := int(data.LoopStart) * 2
	loopLen := int(data.LoopLen) * 2
	if loopLen < 4 {
		loopLen = 0
	}

	// If the loop overshoots the sample's end, correct it the way
	// MilkyTracker does: first try moving the loop start back, then
	// clamp the loop length if it still overshoots.
	if loopStart+loopLen > length {
		dx := loopStart + loopLen - length
		loopStart -= dx
		if loopStart+loopLen > length {
			dx = loopStart + loopLen - length
			loopLen -= dx
		}
	}
	if loopLen < 2 {
		loopLen = 0
	}

	loopType := LoopNone
	if loopLen > 0 {
		loopType = LoopForward
	}

	smp := Sample{
		Name:          strings.TrimRight(string(data.Name[:]), "\x00"),
		LoopStart:     uint32(loopStart),
		LoopEnd:       uint32(loopStart + loopLen),
		LoopType:      loopType,
		DefaultVolume: data.Volume,
		C4Speed:       modFinetuneToC4Speed(data.FineTune),
	}
	return smp, length, nil
}

// modFinetuneMul table: MOD finetune is a signed nibble (-8..7) in
// eighths of a semitone, applied to the standard 8363Hz C4Speed.
var modFinetuneMul = [16]float64{
	1.0, 1.007246, 1.014545, 1.021897, 1.029302, 1.036761, 1.044274, 1.051841, // 0..7
	0.943874, 0.950714, 0.957603, 0.964542, 0.971532, 0.978572, 0.985663, 0.992806, // 8(-8)..15(-1)
}

func modFinetuneToC4Speed(fineTune uint8) uint32 {
	idx := fineTune & 0xF
	return uint32(8363.0 * modFinetuneMul[idx])
}

// cellFromMODBytes decodes one 4-byte MOD pattern cell: a 12-bit Amiga
// period, a 4+4 bit split sample number, and an effect nibble+byte.
func cellFromMODBytes(b []byte) Cell {
	period := int(int(b[0]&0xF)<<8 | int(b[1]))
	sampleNum := (b[0] & 0xF0) | (b[2] >> 4)
	effectNibble := b[2] & 0xF
	param := b[3]

	// sampleNum==0 means "no instrument column on this row" in MOD.
	// Cell.Instrument is 1-based (0 = no change, per the data model),
	// so the raw sample number is passed through unchanged; the engine
	// resolves 0 to "keep the channel's currently active instrument"
	// (see Engine.resolveInstrumentIdx).
	var cell Cell
	cell.Instrument = uint16(sampleNum)
	if period > 0 {
		cell.Note = Note{Kind: NoteKindOn, Pitch: uint8(periodToMODNote(period))}
	}

	if effectNibble == 0xC {
		cell.Volume = VolumeCommand{Kind: VolCmdSetVolume, Value: int16(param)}
	} else {
		cell.Effect = modEffectFromNibble(effectNibble, param)
	}
	return cell
}

const (
	modPeriodBase = 6848 // Amiga period of note 0 in this tuning (428 << 4)
)

// periodToMODNote converts an Amiga period into this engine's absolute
// MIDI-style note numbering (ReferenceNote==48 at period 428),
// "lifted from libxmp" in spirit: 12*log2(periodBase/period) gives a
// linear note index, which this engine's pitch table already expects.
func periodToMODNote(period int) int {
	if period <= 0 {
		return 0
	}
	calc := 12.0 * math.Log2(float64(modPeriodBase)/float64(period))
	note := int(calc + 0.5)
	if note < 0 {
		note = 0
	}
	if note > 119 {
		note = 119
	}
	return note
}

// modEffectFromNibble maps a ProTracker effect nibble + param byte to
// this engine's Effect model, covering the full 0x0-0xF command set
// including the 0xE extended sub-effects.
func modEffectFromNibble(nibble, param byte) Effect {
	switch nibble {
	case 0x0:
		if param == 0 {
			return Effect{}
		}
		return Effect{Kind: EffectArpeggio, A: int16(param >> 4), B: int16(param & 0xF)}
	case 0x1:
		return Effect{Kind: EffectPortaUp, A: int16(param)}
	case 0x2:
		return Effect{Kind: EffectPortaDown, A: int16(param)}
	case 0x3:
		return Effect{Kind: EffectTonePorta, A: int16(param)}
	case 0x4:
		return Effect{Kind: EffectVibrato, A: int16(param >> 4), B: int16(param & 0xF)}
	case 0x5:
		return Effect{Kind: EffectTonePortaVolSlide, A: int16(param >> 4), B: int16(param & 0xF)}
	case 0x6:
		return Effect{Kind: EffectVibratoVolSlide, A: int16(param >> 4), B: int16(param & 0xF)}
	case 0x7:
		return Effect{Kind: EffectTremolo, A: int16(param >> 4), B: int16(param & 0xF)}
	case 0x8:
		return Effect{Kind: EffectSetPanning, A: int16(param)}
	case 0x9:
		return Effect{Kind: EffectSampleOffset, A: int16(param) * 256}
	case 0xA:
		return Effect{Kind: EffectVolumeSlide, A: int16(param >> 4), B: int16(param & 0xF)}
	case 0xB:
		return Effect{Kind: EffectPositionJump, A: int16(param)}
	case 0xC:
		// cellFromMODBytes intercepts nibble 0xC before it ever reaches
		// this function (MOD's "set volume" command belongs in the cell's
		// volume column, not its effect column) - this case exists so the
		// mapping is still correct for any other caller that hands this
		// function a raw 0xC nibble directly.
		return Effect{Kind: EffectSetVolume, A: int16(param)}
	case 0xD:
		return Effect{Kind: EffectPatternBreak, A: int16((param>>4)*10 + (param & 0xF))}
	case 0xE:
		return modExtendedEffect(param)
	case 0xF:
		if param < 32 {
			return Effect{Kind: EffectSetSpeed, A: int16(param)}
		}
		return Effect{Kind: EffectSetTempo, A: int16(param)}
	default:
		return Effect{}
	}
}

func modExtendedEffect(param byte) Effect {
	sub := param >> 4
	val := int16(param & 0xF)
	switch sub {
	case 0x1:
		return Effect{Kind: EffectFinePortaUp, A: val}
	case 0x2:
		return Effect{Kind: EffectFinePortaDown, A: val}
	case 0x3:
		return Effect{Kind: EffectGlissandoControl, A: val}
	case 0x4:
		return Effect{Kind: EffectSetVibratoWaveform, A: val}
	case 0x5:
		return Effect{Kind: EffectSetFinetune, A: val}
	case 0x6:
		return Effect{Kind: EffectPatternLoop, A: val}
	case 0x7:
		return Effect{Kind: EffectSetTremoloWaveform, A: val}
	case 0x9:
		return Effect{Kind: EffectRetrigNote, A: val}
	case 0xA:
		return Effect{Kind: EffectFineVolumeSlideUp, A: val}
	case 0xB:
		return Effect{Kind: EffectFineVolumeSlideDown, A: val}
	case 0xC:
		return Effect{Kind: EffectNoteCut, A: val}
	case 0xD:
		return Effect{Kind: EffectNoteDelay, A: val}
	case 0xE:
		return Effect{Kind: EffectPatternDelay, A: val}
	case 0xF:
		return Effect{Kind: EffectInvertLoop, A: val}
	default: // 0x0, 0x8: hardware filter toggle / unused, no engine equivalent
		return Effect{}
	}
}
