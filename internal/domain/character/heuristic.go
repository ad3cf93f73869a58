package character

import (
	"context"
	"sort"
	"strings"

	"storyvoice-server-go/internal/domain/script"
	"storyvoice-server-go/internal/domain/voice"
)

// emotionLexicon maps cue words to an emotion kind and a base intensity.
// Repeated cues in one unit raise the intensity.
var emotionLexicon = map[string]script.Emotion{
	"laughed": {Kind: "happy", Intensity: 0.6},
	"smiled":  {Kind: "happy", Intensity: 0.4},
	"grinned": {Kind: "happy", Intensity: 0.5},
	"joy":     {Kind: "happy", Intensity: 0.5},

	"cried":   {Kind: "sad", Intensity: 0.7},
	"wept":    {Kind: "sad", Intensity: 0.8},
	"sighed":  {Kind: "sad", Intensity: 0.3},
	"tears":   {Kind: "sad", Intensity: 0.6},
	"sobbed":  {Kind: "sad", Intensity: 0.8},
	"mourned": {Kind: "sad", Intensity: 0.7},

	"shouted": {Kind: "angry", Intensity: 0.7},
	"yelled":  {Kind: "angry", Intensity: 0.7},
	"snapped": {Kind: "angry", Intensity: 0.6},
	"furious": {Kind: "angry", Intensity: 0.9},
	"growled": {Kind: "angry", Intensity: 0.6},
	"slammed": {Kind: "angry", Intensity: 0.5},

	"trembled":  {Kind: "fearful", Intensity: 0.6},
	"terrified": {Kind: "fearful", Intensity: 0.9},
	"afraid":    {Kind: "fearful", Intensity: 0.6},
	"shivered":  {Kind: "fearful", Intensity: 0.5},

	"gasped":     {Kind: "surprised", Intensity: 0.6},
	"stunned":    {Kind: "surprised", Intensity: 0.7},
	"astonished": {Kind: "surprised", Intensity: 0.7},

	"whispered": {Kind: "calm", Intensity: 0.4},
	"murmured":  {Kind: "calm", Intensity: 0.3},
	"gently":    {Kind: "calm", Intensity: 0.3},
}

// toneForEmotion maps detected emotion kinds to matcher tone tags.
var toneForEmotion = map[string][]string{
	"happy":     {"warm", "lively"},
	"sad":       {"soft", "melancholic"},
	"angry":     {"intense", "dynamic"},
	"fearful":   {"tense", "soft"},
	"surprised": {"expressive"},
	"calm":      {"calm", "gentle"},
}

// HeuristicClassifier builds profiles from dialogue frequency and a cue-word
// lexicon. It needs no network and never fails; it serves both as the
// default classifier and as the degradation target when an LLM-backed one is
// configured but unreachable.
type HeuristicClassifier struct {
	// MinLines is the number of dialogue lines a speaker needs before a
	// profile is emitted. Below it the speaker stays on the narrator voice.
	MinLines int
}

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{MinLines: 1}
}

func (h *HeuristicClassifier) Analyze(ctx context.Context, units []script.NarrationUnit) (*Analysis, error) {
	analysis := &Analysis{Emotions: make(map[int]script.Emotion)}

	type speakerStats struct {
		lines    int
		emotions map[string]int
	}
	stats := make(map[string]*speakerStats)
	var speakerOrder []string

	for _, unit := range units {
		if emotion, ok := detectEmotion(unit.Text); ok {
			analysis.Emotions[unit.Sequence] = emotion
		}
		if unit.Kind != script.KindDialogue || unit.Speaker == "" {
			continue
		}
		s, ok := stats[unit.Speaker]
		if !ok {
			s = &speakerStats{emotions: make(map[string]int)}
			stats[unit.Speaker] = s
			speakerOrder = append(speakerOrder, unit.Speaker)
		}
		s.lines++
		if emotion, ok := analysis.Emotions[unit.Sequence]; ok {
			s.emotions[emotion.Kind]++
		}
	}

	minLines := h.MinLines
	if minLines < 1 {
		minLines = 1
	}
	for _, name := range speakerOrder {
		s := stats[name]
		if s.lines < minLines {
			continue
		}
		analysis.Characters = append(analysis.Characters, voice.CharacterProfile{
			Name:           name,
			Age:            30,
			Gender:         voice.GenderNeutral,
			Tones:          tonesFor(s.emotions),
			EmotionalRange: rangeFor(s.lines, s.emotions),
		})
	}
	return analysis, nil
}

// detectEmotion picks the emotion kind with the most cue hits in the text.
// Intensity is the strongest matching cue's, raised slightly per extra hit
// and clamped to 1.
func detectEmotion(text string) (script.Emotion, bool) {
	lower := strings.ToLower(text)
	hits := make(map[string]int)
	peak := make(map[string]float64)
	for cue, emotion := range emotionLexicon {
		if !strings.Contains(lower, cue) {
			continue
		}
		hits[emotion.Kind]++
		if emotion.Intensity > peak[emotion.Kind] {
			peak[emotion.Kind] = emotion.Intensity
		}
	}
	if len(hits) == 0 {
		return script.Emotion{}, false
	}

	kinds := make([]string, 0, len(hits))
	for kind := range hits {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	best := kinds[0]
	for _, kind := range kinds[1:] {
		if hits[kind] > hits[best] {
			best = kind
		}
	}

	intensity := peak[best] + 0.1*float64(hits[best]-1)
	if intensity > 1 {
		intensity = 1
	}
	return script.Emotion{Kind: best, Intensity: intensity}, true
}

func tonesFor(emotions map[string]int) []string {
	kinds := make([]string, 0, len(emotions))
	for kind := range emotions {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var tones []string
	seen := make(map[string]bool)
	for _, kind := range kinds {
		for _, tone := range toneForEmotion[kind] {
			if !seen[tone] {
				seen[tone] = true
				tones = append(tones, tone)
			}
		}
	}
	return tones
}

// rangeFor grades a speaker's expressiveness by the share of their lines
// carrying an emotion cue.
func rangeFor(lines int, emotions map[string]int) voice.EmotionalRange {
	emotional := 0
	for _, n := range emotions {
		emotional += n
	}
	ratio := float64(emotional) / float64(lines)
	switch {
	case ratio > 0.5:
		return voice.RangeHigh
	case ratio > 0.2:
		return voice.RangeMedium
	default:
		return voice.RangeLow
	}
}
