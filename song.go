package trackerengine

// OrderEntryKind tags a step in a Song's play order.
type OrderEntryKind uint8

const (
	OrderPattern OrderEntryKind = iota
	OrderSkip
	OrderEnd
)

// OrderEntry is one step of the classic MOD/S3M linear play order.
type OrderEntry struct {
	Kind    OrderEntryKind
	Pattern uint8
}

// ChannelSettings holds a channel's static defaults: initial panning,
// initial volume, and whether it starts muted.
type ChannelSettings struct {
	InitialPan int8
	InitialVol uint8
	Muted      bool
}

// Clip is one placement of a Pattern's rows onto a Track's timeline: it
// plays Pattern starting at StartRow for Rows rows (a sub-range lets one
// Pattern be split across multiple Clips, e.g. for pattern loop effects).
type Clip struct {
	Pattern  int
	StartRow int
	Rows     int
}

// SeqEntryKind tags a scheduler sequence-walk directive.
type SeqEntryKind uint8

const (
	SeqPlayClip SeqEntryKind = iota
	SeqJumpToClip
	SeqEndOfSong
)

// SeqEntry is one step of a Track's flattened, clip-indexed play
// sequence (distinct from the Song-level OrderEntry list: a Track's
// sequence is derived from the order list plus any group/pattern-jump
// structure, and is what the scheduler actually walks).
type SeqEntry struct {
	Kind      SeqEntryKind
	ClipIndex int
}

// Track is one channel's scheduling timeline: the clips it can play,
// the order it walks them in, and the transport group it belongs to
// (tracks sharing a group advance row-for-row in lockstep, e.g. for
// grouped percussion lanes).
type Track struct {
	Clips    []Clip
	Sequence []SeqEntry
	Group    int // -1 == ungrouped
}

// Song is the fully parsed, playable unit the engine's scheduler and
// mixer consume. It never reaches back into MOD/S3M/BMX format details;
// format loaders (modformat.go, s3mformat.go, bmxformat.go) are responsible for producing
// one of these.
type Song struct {
	Title         string
	InitialTempo  uint16
	InitialSpeed  uint8
	RowsPerBeat   uint32
	GlobalVolume  uint8
	Patterns      []Pattern
	Order         []OrderEntry
	Instruments   []Instrument
	Samples       []Sample
	Channels      []ChannelSettings
	Graph         AudioGraph
	Tracks        []Track
}

// WithChannels builds the classic "channel -> Amiga low-pass filter ->
// master" routing graph for n channels, with the traditional Amiga
// alternating L/R/R/L panning (channels 0 and 3 mod 4 pan hard left,
// 1 and 2 mod 4 pan hard right).
func (s *Song) WithChannels(n int) {
	var g AudioGraph
	master := g.AddNode(NodeType{Kind: NodeMaster})

	s.Channels = make([]ChannelSettings, n)
	for i := 0; i < n; i++ {
		pan := int8(64)
		if i%4 == 0 || i%4 == 3 {
			pan = -64
		}
		s.Channels[i] = ChannelSettings{InitialPan: pan, InitialVol: 64}

		ch := g.AddNode(NodeType{Kind: NodeTrackerChannel, ChannelIndex: uint8(i)})
		filt := g.AddNode(NodeType{Kind: NodeBuzzMachine, BuzzMachineName: "AmigaFilter"})
		g.Connect(ch, filt)
		g.Connect(filt, master)
	}
	s.Graph = g
}

// WithReverb inserts a "Reverb" BuzzMachine node between every existing
// feed into the master bus and the master bus itself, so the mix passes
// through reverb before hitting the speakers while the master node
// stays the graph's one true sink (Engine.buildMachines keys off
// NodeMaster to find it). Parameters 0/1/2 carry decay/damping/mix so
// buildMachines can construct the underlying comb.StereoReverb with
// them instead of falling back to its default preset.
func (s *Song) WithReverb(decay, damping, mix float32) {
	var master NodeID
	found := false
	for _, n := range s.Graph.Nodes {
		if n.Type.Kind == NodeMaster {
			master = n.ID
			found = true
			break
		}
	}
	if !found {
		return
	}

	reverb := s.Graph.AddNode(NodeType{Kind: NodeBuzzMachine, BuzzMachineName: "Reverb"},
		Parameter{ID: 0, Name: "decay", Value: decay, Min: 0, Max: 1, Default: decay},
		Parameter{ID: 1, Name: "damping", Value: damping, Min: 0, Max: 1, Default: damping},
		Parameter{ID: 2, Name: "mix", Value: mix, Min: 0, Max: 1, Default: mix},
	)

	for i := range s.Graph.Connections {
		if s.Graph.Connections[i].To == master {
			s.Graph.Connections[i].To = reverb
		}
	}
	s.Graph.Connect(reverb, master)
}

// tracksFromOrder builds one Track per channel from a song's linear
// play Order, flattening Skip/End entries the way spec.md section 4.D
// describes ("OrderEntry::Skip is ignored; OrderEntry::End terminates")
// into a clip-indexed Sequence. Every channel's Track shares the same
// Clips/Sequence and is placed in Group 0, so the scheduler's grouped
// transport walk (the one that understands pattern break / position
// jump / pattern delay) drives the whole song instead of each channel
// free-running independently - the correct behavior for formats like
// MOD/BMX where one linear order and one set of patterns drive every
// channel in lockstep.
func tracksFromOrder(order []OrderEntry, patterns []Pattern, channels int) []Track {
	var clips []Clip
	var seq []SeqEntry
	for _, o := range order {
		switch o.Kind {
		case OrderSkip:
			continue
		case OrderEnd:
			seq = append(seq, SeqEntry{Kind: SeqEndOfSong})
			return buildChannelTracks(clips, seq, channels)
		default:
			rows := 0
			if int(o.Pattern) < len(patterns) {
				rows = patterns[o.Pattern].Rows
			}
			clipIdx := len(clips)
			clips = append(clips, Clip{Pattern: int(o.Pattern), StartRow: 0, Rows: rows})
			seq = append(seq, SeqEntry{Kind: SeqPlayClip, ClipIndex: clipIdx})
		}
	}
	seq = append(seq, SeqEntry{Kind: SeqEndOfSong})
	return buildChannelTracks(clips, seq, channels)
}

func buildChannelTracks(clips []Clip, seq []SeqEntry, channels int) []Track {
	tracks := make([]Track, channels)
	for c := range tracks {
		tracks[c] = Track{Clips: clips, Sequence: seq, Group: 0}
	}
	return tracks
}

// PatternAt returns the pattern at index idx, or the zero Pattern if out
// of range.
func (s Song) PatternAt(idx int) Pattern {
	if idx < 0 || idx >= len(s.Patterns) {
		return Pattern{}
	}
	return s.Patterns[idx]
}
