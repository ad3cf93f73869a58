package edge

import (
	"context"

	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"storyvoice-server-go/internal/domain/synthesis"
	"storyvoice-server-go/internal/domain/synthesis/inter"
	"storyvoice-server-go/internal/domain/voice"
	platformerrors "storyvoice-server-go/internal/platform/errors"
	"storyvoice-server-go/internal/platform/logging"
)

// Config for the Edge TTS adapter.
type Config struct {
	DefaultVoice string
}

// Provider drives Microsoft Edge's free TTS service. It has no API key and
// zero marginal cost, which makes it the usual fallback provider.
type Provider struct {
	config Config
	logger *logging.Logger
}

func New(cfg Config, logger *logging.Logger) *Provider {
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = "en-US-AriaNeural"
	}
	return &Provider{config: cfg, logger: logger}
}

func (p *Provider) Name() string          { return "edge" }
func (p *Provider) SupportsCloning() bool { return false }

func (p *Provider) Synthesize(ctx context.Context, req inter.Request) (*inter.Result, error) {
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = p.config.DefaultVoice
	}

	type synthOut struct {
		audio []byte
		err   error
	}
	done := make(chan synthOut, 1)

	// edge-tts-go offers no context-aware call, so the websocket exchange
	// runs on its own goroutine and the result is abandoned on cancellation.
	go func() {
		communicate, err := edge_tts.NewCommunicate(req.Text, edge_tts.SetVoice(voiceID))
		if err != nil {
			done <- synthOut{err: err}
			return
		}

		audio, err := communicate.Stream()
		done <- synthOut{audio: audio, err: err}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, platformerrors.Wrap(platformerrors.KindTimeout, "synthesize",
				"edge tts call timed out", ctx.Err())
		}
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "synthesize",
			"edge tts call cancelled", ctx.Err())
	case out := <-done:
		if out.err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindProvider, "synthesize",
				"edge tts synthesis failed", out.err)
		}
		return &inter.Result{
			Audio:    out.audio,
			Format:   "mp3",
			Duration: synthesis.MeasureDuration(out.audio, "mp3"),
			Cost:     0,
			Provider: p.Name(),
		}, nil
	}
}

// ListVoices returns a curated subset of the Edge neural voice catalog with
// the metadata the matcher needs.
func (p *Provider) ListVoices(ctx context.Context) ([]voice.VoiceProfile, error) {
	return []voice.VoiceProfile{
		{ID: "en-US-AriaNeural", Name: "Aria", Provider: p.Name(),
			Gender: voice.GenderFemale, AgeBracket: voice.BracketYoungAdult,
			Accent: "american", Descriptors: []string{"natural", "friendly"}},
		{ID: "en-US-JennyNeural", Name: "Jenny", Provider: p.Name(),
			Gender: voice.GenderFemale, AgeBracket: voice.BracketAdult,
			Accent: "american", Descriptors: []string{"warm", "assistant"}},
		{ID: "en-US-GuyNeural", Name: "Guy", Provider: p.Name(),
			Gender: voice.GenderMale, AgeBracket: voice.BracketAdult,
			Accent: "american", Descriptors: []string{"friendly", "casual"}},
		{ID: "en-GB-RyanNeural", Name: "Ryan", Provider: p.Name(),
			Gender: voice.GenderMale, AgeBracket: voice.BracketAdult,
			Accent: "british", Descriptors: []string{"calm", "measured"}},
		{ID: "en-GB-SoniaNeural", Name: "Sonia", Provider: p.Name(),
			Gender: voice.GenderFemale, AgeBracket: voice.BracketYoungAdult,
			Accent: "british", Descriptors: []string{"clear", "gentle"}},
		{ID: "en-AU-NatashaNeural", Name: "Natasha", Provider: p.Name(),
			Gender: voice.GenderFemale, AgeBracket: voice.BracketYoungAdult,
			Accent: "australian", Descriptors: []string{"bright", "lively"}},
	}, nil
}

// HealthCheck synthesizes a single word, since the service has no status
// endpoint.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	_, err := p.Synthesize(ctx, inter.Request{Text: "ok", VoiceID: p.config.DefaultVoice})
	return err == nil
}
