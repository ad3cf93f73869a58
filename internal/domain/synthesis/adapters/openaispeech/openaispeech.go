package openaispeech

import (
	"context"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"storyvoice-server-go/internal/domain/synthesis"
	"storyvoice-server-go/internal/domain/synthesis/inter"
	"storyvoice-server-go/internal/domain/voice"
	platformerrors "storyvoice-server-go/internal/platform/errors"
	"storyvoice-server-go/internal/platform/logging"
)

// Config for the OpenAI speech adapter.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	CostPerChar float64
}

// Provider drives the OpenAI audio/speech endpoint through go-openai.
type Provider struct {
	config Config
	client *openai.Client
	logger *logging.Logger
}

func New(cfg Config, logger *logging.Logger) *Provider {
	if cfg.Model == "" {
		cfg.Model = string(openai.TTSModel1)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Provider{
		config: cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

func (p *Provider) Name() string          { return "openai" }
func (p *Provider) SupportsCloning() bool { return false }

func (p *Provider) Synthesize(ctx context.Context, req inter.Request) (*inter.Result, error) {
	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.config.Model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.VoiceID),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, platformerrors.Wrap(platformerrors.KindTimeout, "synthesize",
				"openai speech call timed out", err)
		}
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "synthesize",
			"openai speech call failed", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "synthesize",
			"failed to read audio stream", err)
	}

	return &inter.Result{
		Audio:    audio,
		Format:   "mp3",
		Duration: synthesis.MeasureDuration(audio, "mp3"),
		Cost:     float64(len(req.Text)) * p.config.CostPerChar,
		Provider: p.Name(),
	}, nil
}

// ListVoices returns the fixed set of published OpenAI speech voices. The
// API exposes no catalog endpoint, so the metadata here is curated.
func (p *Provider) ListVoices(ctx context.Context) ([]voice.VoiceProfile, error) {
	return []voice.VoiceProfile{
		{ID: string(openai.VoiceAlloy), Name: "Alloy", Provider: p.Name(),
			Gender: voice.GenderNeutral, AgeBracket: voice.BracketYoungAdult,
			Accent: "american", Descriptors: []string{"balanced", "neutral"}},
		{ID: string(openai.VoiceEcho), Name: "Echo", Provider: p.Name(),
			Gender: voice.GenderMale, AgeBracket: voice.BracketYoungAdult,
			Accent: "american", Descriptors: []string{"clear", "confident"}},
		{ID: string(openai.VoiceFable), Name: "Fable", Provider: p.Name(),
			Gender: voice.GenderMale, AgeBracket: voice.BracketAdult,
			Accent: "british", Descriptors: []string{"warm", "storyteller"}},
		{ID: string(openai.VoiceOnyx), Name: "Onyx", Provider: p.Name(),
			Gender: voice.GenderMale, AgeBracket: voice.BracketAdult,
			Accent: "american", Descriptors: []string{"deep", "authoritative"}},
		{ID: string(openai.VoiceNova), Name: "Nova", Provider: p.Name(),
			Gender: voice.GenderFemale, AgeBracket: voice.BracketYoungAdult,
			Accent: "american", Descriptors: []string{"energetic", "bright"}},
		{ID: string(openai.VoiceShimmer), Name: "Shimmer", Provider: p.Name(),
			Gender: voice.GenderFemale, AgeBracket: voice.BracketAdult,
			Accent: "american", Descriptors: []string{"warm", "gentle"}},
	}, nil
}

func (p *Provider) HealthCheck(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.client.ListModels(probeCtx)
	return err == nil
}
