package character

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	openai "github.com/sashabaranov/go-openai"

	"storyvoice-server-go/internal/domain/script"
	"storyvoice-server-go/internal/domain/voice"
	platformerrors "storyvoice-server-go/internal/platform/errors"
	"storyvoice-server-go/internal/platform/logging"
)

const classifierPrompt = `You are a casting assistant for audiobook production.
Given dialogue lines grouped by speaker, return a JSON object:
{"characters":[{"name":"...","age":30,"gender":"male|female|neutral","tones":["warm","calm"],"emotional_range":"low|medium|high"}]}
Use only the speakers given. Respond with JSON only.`

// maxSampleLines bounds how many dialogue lines per speaker go into the
// prompt.
const maxSampleLines = 5

// LLMClassifier asks a chat completion model for character profiles. Emotion
// tags still come from the cue-word lexicon; the model only refines the cast
// profiles, so a model outage costs profile quality, not emotion coverage.
type LLMClassifier struct {
	client    *openai.Client
	model     string
	heuristic *HeuristicClassifier
	logger    *logging.Logger
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewLLMClassifier(cfg LLMConfig, logger *logging.Logger) *LLMClassifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &LLMClassifier{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		heuristic: NewHeuristicClassifier(),
		logger:    logger,
	}
}

func (c *LLMClassifier) Analyze(ctx context.Context, units []script.NarrationUnit) (*Analysis, error) {
	analysis, err := c.heuristic.Analyze(ctx, units)
	if err != nil {
		return nil, err
	}
	if len(analysis.Characters) == 0 {
		return analysis, nil
	}

	refined, err := c.refine(ctx, units, analysis.Characters)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "classifier",
			"character profiling call failed", err)
	}
	analysis.Characters = refined
	return analysis, nil
}

func (c *LLMClassifier) refine(ctx context.Context, units []script.NarrationUnit, base []voice.CharacterProfile) ([]voice.CharacterProfile, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildSampleDoc(units, base)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	var payload struct {
		Characters []struct {
			Name           string   `json:"name"`
			Age            int      `json:"age"`
			Gender         string   `json:"gender"`
			Tones          []string `json:"tones"`
			EmotionalRange string   `json:"emotional_range"`
		} `json:"characters"`
	}
	if err := sonic.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("malformed classifier response: %w", err)
	}

	// Only speakers the segmenter actually saw are accepted; the model may
	// not invent cast members.
	known := make(map[string]voice.CharacterProfile, len(base))
	for _, profile := range base {
		known[profile.Name] = profile
	}
	refined := make([]voice.CharacterProfile, 0, len(base))
	seen := make(map[string]bool)
	for _, ch := range payload.Characters {
		fallback, ok := known[ch.Name]
		if !ok || seen[ch.Name] {
			continue
		}
		seen[ch.Name] = true
		refined = append(refined, mergeProfile(fallback, ch.Age, ch.Gender, ch.Tones, ch.EmotionalRange))
	}
	// Speakers the model skipped keep their heuristic profile.
	for _, profile := range base {
		if !seen[profile.Name] {
			refined = append(refined, profile)
		}
	}
	if c.logger != nil {
		c.logger.DebugTag("Voice", "classifier refined %d of %d profiles", len(seen), len(base))
	}
	return refined, nil
}

func mergeProfile(base voice.CharacterProfile, age int, gender string, tones []string, emotionalRange string) voice.CharacterProfile {
	if age > 0 {
		base.Age = age
	}
	switch voice.Gender(gender) {
	case voice.GenderMale, voice.GenderFemale, voice.GenderNeutral:
		base.Gender = voice.Gender(gender)
	}
	if len(tones) > 0 {
		base.Tones = tones
	}
	switch voice.EmotionalRange(emotionalRange) {
	case voice.RangeLow, voice.RangeMedium, voice.RangeHigh:
		base.EmotionalRange = voice.EmotionalRange(emotionalRange)
	}
	return base
}

// buildSampleDoc renders up to maxSampleLines dialogue lines per speaker.
func buildSampleDoc(units []script.NarrationUnit, cast []voice.CharacterProfile) string {
	samples := make(map[string][]string, len(cast))
	for _, unit := range units {
		if unit.Kind != script.KindDialogue || unit.Speaker == "" {
			continue
		}
		if len(samples[unit.Speaker]) < maxSampleLines {
			samples[unit.Speaker] = append(samples[unit.Speaker], unit.Text)
		}
	}

	var b strings.Builder
	for _, profile := range cast {
		fmt.Fprintf(&b, "Speaker: %s\n", profile.Name)
		for _, line := range samples[profile.Name] {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("\n")
	}
	return b.String()
}
