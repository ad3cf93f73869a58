package assembly

import "context"

// ChapterMarker is one navigation point in the chaptered output. One marker
// is produced per input fragment; Start is the running duration sum of every
// fragment before it.
type ChapterMarker struct {
	Number   int     `json:"number"`
	Title    string  `json:"title"`
	Start    float64 `json:"start"`    // seconds from the beginning
	Duration float64 `json:"duration"` // seconds
}

// Metadata describes the finished audiobook for embedding into the encoded
// containers.
type Metadata struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Narrator string `json:"narrator"`
	Language string `json:"language"`
	Year     string `json:"year,omitempty"`
}

// EncodeSpec tells the audio engine how to render one output format.
// Chapters is nil for formats without chapter support.
type EncodeSpec struct {
	Format     string // "mp3", "m4b"
	Bitrate    string // e.g. "128k"
	SampleRate int
	Metadata   Metadata
	Chapters   []ChapterMarker
}

// AssembledFile is one encoded rendition of the audiobook.
type AssembledFile struct {
	Format string
	Audio  []byte
}

// AssembledAudiobook is the terminal artifact of a generation run.
type AssembledAudiobook struct {
	Files         []AssembledFile
	Chapters      []ChapterMarker
	TotalDuration float64
	TotalCost     float64
	Metadata      Metadata
}

// Engine is the external audio processing backend. All three operations take
// and return complete in-memory streams; the engine owns any temporary files
// it needs and must release them on every exit path.
type Engine interface {
	// Normalize brings the stream to the target integrated loudness in LUFS
	// under the given true-peak ceiling in dBTP.
	Normalize(ctx context.Context, audio []byte, targetLUFS, truePeak float64) ([]byte, error)

	// Concat joins already-normalized streams into one continuous stream,
	// in the order given.
	Concat(ctx context.Context, segments [][]byte) ([]byte, error)

	// Encode renders the continuous stream into the requested container,
	// embedding metadata and chapters where the format supports them.
	Encode(ctx context.Context, audio []byte, spec EncodeSpec) ([]byte, error)
}
