package voice

import "strings"

// Tone keywords that nudge the derived settings. Calming tones push
// stability up and style variance down; energetic tones do the inverse.
var (
	calmingTones   = []string{"calm", "serene", "gentle", "soothing", "quiet", "measured"}
	energeticTones = []string{"energetic", "dynamic", "lively", "excited", "passionate", "bold"}
)

const toneNudge = 0.1

// OptimizeSettings derives synthesis settings from the winning voice and the
// character's target emotional range. A low range biases toward high
// stability and low style variance; a high range the inverse. Literal tone
// keywords then nudge stability and style, with every value clamped to [0,1].
func OptimizeSettings(voice VoiceProfile, character CharacterProfile) SynthesisSettings {
	settings := SynthesisSettings{
		SimilarityBoost: 0.75,
		SpeakerBoost:    true,
	}

	switch character.EmotionalRange {
	case RangeLow:
		settings.Stability = 0.85
		settings.Style = 0.1
	case RangeHigh:
		settings.Stability = 0.4
		settings.Style = 0.55
	default:
		settings.Stability = 0.65
		settings.Style = 0.3
	}

	for _, tone := range character.Tones {
		tone = strings.ToLower(tone)
		if containsAny(tone, calmingTones) {
			settings.Stability += toneNudge
			settings.Style -= toneNudge
		}
		if containsAny(tone, energeticTones) {
			settings.Stability -= toneNudge
			settings.Style += toneNudge
		}
	}

	settings.Stability = clamp01(settings.Stability)
	settings.Style = clamp01(settings.Style)
	return settings
}

func containsAny(tone string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(tone, kw) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
