// Package ffmpeg drives an external ffmpeg binary as the audio engine.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"storyvoice-server-go/internal/domain/assembly"
	platformerrors "storyvoice-server-go/internal/platform/errors"
	"storyvoice-server-go/internal/platform/logging"
)

// Engine shells out to ffmpeg for every operation. The binary path is
// resolved once at construction; all work happens in per-call temp
// directories that are removed on every exit path.
type Engine struct {
	path   string
	logger *logging.Logger
}

func New(path string, logger *logging.Logger) (*Engine, error) {
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindEngine, "ffmpeg",
			fmt.Sprintf("ffmpeg binary %q not found", path), err)
	}
	return &Engine{path: resolved, logger: logger}, nil
}

func (e *Engine) Normalize(ctx context.Context, audio []byte, targetLUFS, truePeak float64) ([]byte, error) {
	dir, err := os.MkdirTemp("", "storyvoice-norm-*")
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindEngine, "ffmpeg", "temp dir", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.mp3")
	out := filepath.Join(dir, "out.mp3")
	if err := os.WriteFile(in, audio, 0o644); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindEngine, "ffmpeg", "write input", err)
	}

	filter := fmt.Sprintf("loudnorm=I=%g:TP=%g:LRA=11", targetLUFS, truePeak)
	if err := e.run(ctx, "-i", in, "-af", filter, "-f", "mp3", out); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}

func (e *Engine) Concat(ctx context.Context, segments [][]byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "storyvoice-concat-*")
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindEngine, "ffmpeg", "temp dir", err)
	}
	defer os.RemoveAll(dir)

	var list strings.Builder
	for i, segment := range segments {
		name := fmt.Sprintf("seg-%05d.mp3", i)
		if err := os.WriteFile(filepath.Join(dir, name), segment, 0o644); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindEngine, "ffmpeg", "write segment", err)
		}
		fmt.Fprintf(&list, "file '%s'\n", name)
	}
	listPath := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindEngine, "ffmpeg", "write concat list", err)
	}

	out := filepath.Join(dir, "out.mp3")
	if err := e.run(ctx, "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", out); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}

func (e *Engine) Encode(ctx context.Context, audio []byte, spec assembly.EncodeSpec) ([]byte, error) {
	dir, err := os.MkdirTemp("", "storyvoice-encode-*")
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindEngine, "ffmpeg", "temp dir", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.mp3")
	if err := os.WriteFile(in, audio, 0o644); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindEngine, "ffmpeg", "write input", err)
	}

	args := []string{"-i", in}
	if len(spec.Chapters) > 0 {
		metaPath := filepath.Join(dir, "metadata.txt")
		if err := os.WriteFile(metaPath, []byte(RenderMetadata(spec)), 0o644); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindEngine, "ffmpeg", "write metadata", err)
		}
		args = append(args, "-i", metaPath, "-map_metadata", "1")
	}

	var out string
	switch spec.Format {
	case "mp3":
		out = filepath.Join(dir, "out.mp3")
		args = append(args, "-codec:a", "libmp3lame")
	case "m4b", "m4a":
		out = filepath.Join(dir, "out."+spec.Format)
		args = append(args, "-codec:a", "aac", "-f", "mp4")
	default:
		return nil, platformerrors.New(platformerrors.KindEngine, "ffmpeg",
			fmt.Sprintf("unsupported output format %q", spec.Format))
	}
	if spec.Bitrate != "" {
		args = append(args, "-b:a", spec.Bitrate)
	}
	if spec.SampleRate > 0 {
		args = append(args, "-ar", fmt.Sprintf("%d", spec.SampleRate))
	}
	args = append(args, out)

	if err := e.run(ctx, args...); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}

// run executes ffmpeg with -y and quiet logging, surfacing the stderr tail
// on failure.
func (e *Engine) run(ctx context.Context, args ...string) error {
	full := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)
	cmd := exec.CommandContext(ctx, e.path, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if e.logger != nil {
		e.logger.DebugTag("Engine", "ffmpeg %s", strings.Join(args, " "))
	}
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 500 {
			detail = detail[len(detail)-500:]
		}
		return platformerrors.Wrap(platformerrors.KindEngine, "ffmpeg",
			fmt.Sprintf("ffmpeg failed: %s", detail), err)
	}
	return nil
}

// RenderMetadata produces an FFMETADATA1 document carrying the container
// tags and a [CHAPTER] block per marker, with millisecond timebase.
func RenderMetadata(spec assembly.EncodeSpec) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	writeTag(&b, "title", spec.Metadata.Title)
	writeTag(&b, "artist", spec.Metadata.Author)
	writeTag(&b, "composer", spec.Metadata.Narrator)
	writeTag(&b, "language", spec.Metadata.Language)
	writeTag(&b, "date", spec.Metadata.Year)
	writeTag(&b, "genre", "Audiobook")

	for _, ch := range spec.Chapters {
		start := int64(ch.Start * 1000)
		end := int64((ch.Start + ch.Duration) * 1000)
		b.WriteString("[CHAPTER]\nTIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\nEND=%d\n", start, end)
		writeTag(&b, "title", ch.Title)
	}
	return b.String()
}

func writeTag(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s=%s\n", key, escapeMetadata(value))
}

// escapeMetadata backslash-escapes the characters the FFMETADATA format
// treats specially.
func escapeMetadata(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"=", `\=`,
		";", `\;`,
		"#", `\#`,
		"\n", `\`+"\n",
	)
	return r.Replace(s)
}
