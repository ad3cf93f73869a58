package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyvoice-server-go/internal/domain/synthesis"
	"storyvoice-server-go/internal/domain/synthesis/inter"
	"storyvoice-server-go/internal/domain/voice"
	platformerrors "storyvoice-server-go/internal/platform/errors"
	"storyvoice-server-go/internal/platform/logging"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Config for the ElevenLabs adapter.
type Config struct {
	APIKey      string
	BaseURL     string
	ModelID     string
	CostPerChar float64
	Timeout     time.Duration
}

// Provider drives the ElevenLabs text-to-speech API. The HTTP client is
// shared read-only across concurrent synthesis calls.
type Provider struct {
	config Config
	client *http.Client
	logger *logging.Logger
}

func New(cfg Config, logger *logging.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Provider{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (p *Provider) Name() string          { return "elevenlabs" }
func (p *Provider) SupportsCloning() bool { return true }

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize posts to /v1/text-to-speech/{voice} and returns the MP3 bytes.
func (p *Provider) Synthesize(ctx context.Context, req inter.Request) (*inter.Result, error) {
	body, err := json.Marshal(speechRequest{
		Text:    req.Text,
		ModelID: p.config.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       req.Settings.Stability,
			SimilarityBoost: req.Settings.SimilarityBoost,
			Style:           req.Settings.Style,
			UseSpeakerBoost: req.Settings.SpeakerBoost,
		},
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "synthesize",
			"failed to encode request", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", p.config.BaseURL, req.VoiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "synthesize",
			"failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, platformerrors.Wrap(platformerrors.KindTimeout, "synthesize",
				"elevenlabs call timed out", err)
		}
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "synthesize",
			"elevenlabs call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, platformerrors.New(platformerrors.KindProvider, "synthesize",
			fmt.Sprintf("elevenlabs returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "synthesize",
			"failed to read audio body", err)
	}

	return &inter.Result{
		Audio:    audio,
		Format:   "mp3",
		Duration: synthesis.MeasureDuration(audio, "mp3"),
		Cost:     float64(len(req.Text)) * p.config.CostPerChar,
		Provider: p.Name(),
	}, nil
}

type voicesResponse struct {
	Voices []struct {
		VoiceID string `json:"voice_id"`
		Name    string `json:"name"`
		Labels  struct {
			Gender      string `json:"gender"`
			Age         string `json:"age"`
			Accent      string `json:"accent"`
			Description string `json:"description"`
			UseCase     string `json:"use_case"`
		} `json:"labels"`
	} `json:"voices"`
}

// ListVoices fetches the account's voice catalog from /v1/voices.
func (p *Provider) ListVoices(ctx context.Context) ([]voice.VoiceProfile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+"/v1/voices", nil)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "list voices",
			"failed to build request", err)
	}
	httpReq.Header.Set("xi-api-key", p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "list voices",
			"elevenlabs call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, platformerrors.New(platformerrors.KindProvider, "list voices",
			fmt.Sprintf("elevenlabs returned %d", resp.StatusCode))
	}

	var parsed voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "list voices",
			"failed to decode catalog", err)
	}

	voices := make([]voice.VoiceProfile, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		profile := voice.VoiceProfile{
			ID:         v.VoiceID,
			Name:       v.Name,
			Provider:   p.Name(),
			Gender:     parseGender(v.Labels.Gender),
			AgeBracket: parseAgeLabel(v.Labels.Age),
			Accent:     strings.ToLower(v.Labels.Accent),
		}
		for _, tag := range []string{v.Labels.Description, v.Labels.UseCase} {
			if tag != "" {
				profile.Descriptors = append(profile.Descriptors, strings.ToLower(tag))
			}
		}
		voices = append(voices, profile)
	}
	return voices, nil
}

// HealthCheck probes /v1/user with a short deadline.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(probeCtx, http.MethodGet, p.config.BaseURL+"/v1/user", nil)
	if err != nil {
		return false
	}
	httpReq.Header.Set("xi-api-key", p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func parseGender(label string) voice.Gender {
	switch strings.ToLower(label) {
	case "male":
		return voice.GenderMale
	case "female":
		return voice.GenderFemale
	default:
		return voice.GenderNeutral
	}
}

// parseAgeLabel maps ElevenLabs age labels onto the matcher's brackets.
func parseAgeLabel(label string) voice.AgeBracket {
	switch strings.ToLower(label) {
	case "child":
		return voice.BracketChild
	case "teen", "teenager":
		return voice.BracketTeen
	case "young", "young adult":
		return voice.BracketYoungAdult
	case "old", "senior", "elderly":
		return voice.BracketSenior
	default:
		return voice.BracketAdult
	}
}
