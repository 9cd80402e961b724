package trackerengine

// NewS3MSongFromBytes is expected to parse a Scream Tracker 3 module
// into a Song, alongside NewMODSongFromBytes and NewBMXSongFromBytes.
// S3M's instrument/pattern layout differs enough from the MOD loader
// (separate volume column, per-row compressed channel masks, signed
// 8/16-bit PCM with an adlib-instrument variant) that it needs its own
// reader rather than reuse of modformat.go; that reader is not yet
// written, so this returns a clear unsupported-version error instead
// of silently misparsing a file it doesn't actually understand.
func NewS3MSongFromBytes(data []byte) (*Song, error) {
	if len(data) < 0x60 || string(data[0x2C:0x30]) != "SCRM" {
		return nil, NewParseError(ErrInvalidHeader, "not an S3M file")
	}
	return nil, NewParseError(ErrUnsupportedVersion, "S3M loading not yet implemented")
}
