package assembly

import (
	"context"
	"fmt"
	"sort"

	"storyvoice-server-go/internal/domain/generation"
	"storyvoice-server-go/internal/domain/script"
	platformerrors "storyvoice-server-go/internal/platform/errors"
	"storyvoice-server-go/internal/platform/logging"
)

// Options control loudness targets and output renditions.
type Options struct {
	TargetLUFS float64
	TruePeak   float64
	Bitrate    string
	SampleRate int
	Formats    []string
}

func (o Options) withDefaults() Options {
	if o.TargetLUFS == 0 {
		o.TargetLUFS = -18
	}
	if o.TruePeak == 0 {
		o.TruePeak = -1.5
	}
	if o.Bitrate == "" {
		o.Bitrate = "128k"
	}
	if o.SampleRate == 0 {
		o.SampleRate = 44100
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{"mp3", "m4b"}
	}
	return o
}

// Input bundles everything one assembly needs. Chapters and Units are
// optional context used only for marker titles; Fragments are required.
type Input struct {
	Chapters  []script.Chapter
	Units     []script.NarrationUnit
	Fragments []generation.SynthesizedFragment
	Metadata  Metadata
}

// Assembler turns a run's synthesized fragments into the final audiobook.
type Assembler struct {
	engine Engine
	opts   Options
	logger *logging.Logger
}

func NewAssembler(engine Engine, opts Options, logger *logging.Logger) *Assembler {
	return &Assembler{engine: engine, opts: opts.withDefaults(), logger: logger}
}

// Assemble normalizes every fragment, concatenates them in sequence order,
// computes chapter markers, and encodes each requested format. Fragments may
// arrive in any order; output order is defined solely by sequence numbers.
// Any engine failure aborts the whole assembly.
func (a *Assembler) Assemble(ctx context.Context, in Input) (*AssembledAudiobook, error) {
	if len(in.Fragments) == 0 {
		return nil, platformerrors.New(platformerrors.KindValidation, "assemble", "no fragments to assemble")
	}

	fragments := make([]generation.SynthesizedFragment, len(in.Fragments))
	copy(fragments, in.Fragments)
	sort.Slice(fragments, func(i, j int) bool {
		return fragments[i].Sequence < fragments[j].Sequence
	})

	titles := markerTitles(in.Chapters, in.Units)

	normalized := make([][]byte, len(fragments))
	markers := make([]ChapterMarker, len(fragments))
	var offset, totalCost float64
	for i, f := range fragments {
		audio, err := a.engine.Normalize(ctx, f.Audio, a.opts.TargetLUFS, a.opts.TruePeak)
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindEngine, "assemble",
				fmt.Sprintf("loudness normalization failed for fragment %d", f.Sequence), err)
		}
		normalized[i] = audio

		markers[i] = ChapterMarker{
			Number:   i + 1,
			Title:    titles(f.Sequence, i+1),
			Start:    offset,
			Duration: f.Duration,
		}
		offset += f.Duration
		totalCost += f.Cost
	}

	stream, err := a.engine.Concat(ctx, normalized)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindEngine, "assemble", "concatenation failed", err)
	}

	if a.logger != nil {
		a.logger.InfoTag("Assemble", "normalized and joined %d fragments, %.1fs total", len(fragments), offset)
	}

	book := &AssembledAudiobook{
		Chapters:      markers,
		TotalDuration: offset,
		TotalCost:     totalCost,
		Metadata:      in.Metadata,
	}
	for _, format := range a.opts.Formats {
		spec := EncodeSpec{
			Format:     format,
			Bitrate:    a.opts.Bitrate,
			SampleRate: a.opts.SampleRate,
			Metadata:   in.Metadata,
		}
		if formatSupportsChapters(format) {
			spec.Chapters = markers
		}
		encoded, err := a.engine.Encode(ctx, stream, spec)
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindEngine, "assemble",
				fmt.Sprintf("encoding to %s failed", format), err)
		}
		book.Files = append(book.Files, AssembledFile{Format: format, Audio: encoded})
	}
	return book, nil
}

func formatSupportsChapters(format string) bool {
	return format == "m4b" || format == "m4a" || format == "mp4"
}

// markerTitles returns a lookup from a fragment's sequence number and marker
// ordinal to a human-readable title. With chapter context available the title
// is the originating chapter's; without it a plain section number is used.
func markerTitles(chapters []script.Chapter, units []script.NarrationUnit) func(sequence, ordinal int) string {
	chapterTitle := make(map[int]string, len(chapters))
	for _, c := range chapters {
		chapterTitle[c.Number] = c.Title
	}
	unitChapter := make(map[int]int, len(units))
	for _, u := range units {
		unitChapter[u.Sequence] = u.Chapter
	}
	return func(sequence, ordinal int) string {
		if ch, ok := unitChapter[sequence]; ok {
			if title, ok := chapterTitle[ch]; ok && title != "" {
				return title
			}
			return fmt.Sprintf("Chapter %d", ch)
		}
		return fmt.Sprintf("Section %d", ordinal)
	}
}
