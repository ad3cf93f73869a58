package voice

import (
	"fmt"
	"strings"

	platformerrors "storyvoice-server-go/internal/platform/errors"
	"storyvoice-server-go/internal/platform/logging"
)

// DefaultAccent is the fallback accent that always survives the accent
// filter, so pools without accent metadata stay usable.
const DefaultAccent = "american"

// Matcher filters and scores a voice pool against character profiles.
type Matcher struct {
	logger *logging.Logger
}

func NewMatcher(logger *logging.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Match runs the staged filter pipeline for one character and returns the
// best-scoring assignment. Stages run strictly in order and each stage only
// sees the survivors of the previous one; an empty survivor set at any stage
// fails the match with a validation error.
func (m *Matcher) Match(character CharacterProfile, pool []VoiceProfile) (*VoiceAssignment, error) {
	if len(pool) == 0 {
		return nil, platformerrors.New(platformerrors.KindValidation, "match",
			fmt.Sprintf("empty voice pool for character %q", character.Name))
	}

	survivors := filterGender(character, pool)
	if len(survivors) == 0 {
		return nil, noSuitableVoice(character, "gender")
	}

	survivors = filterAge(character, survivors)
	if len(survivors) == 0 {
		return nil, noSuitableVoice(character, "age")
	}

	survivors = filterAccent(character, survivors)
	if len(survivors) == 0 {
		return nil, noSuitableVoice(character, "accent")
	}

	best := survivors[0]
	bestScore := toneScore(character.Tones, best.Descriptors)
	for _, candidate := range survivors[1:] {
		// Strict greater-than keeps the first occurrence on ties, so
		// selection is deterministic for a given pool order.
		if score := toneScore(character.Tones, candidate.Descriptors); score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	if m.logger != nil {
		m.logger.DebugTag("Voice", "matched %q to voice %s (%s) score %.2f",
			character.Name, best.Name, best.Provider, bestScore)
	}

	return &VoiceAssignment{
		Character: character.Name,
		Voice:     best,
		Settings:  OptimizeSettings(best, character),
		Score:     bestScore,
	}, nil
}

// MatchAll matches many characters independently. A failed character never
// aborts the rest of the cast: failures are collected per character name and
// returned out-of-band while the successful subset is returned in input order.
func (m *Matcher) MatchAll(characters []CharacterProfile, pool []VoiceProfile) ([]VoiceAssignment, map[string]error) {
	var assignments []VoiceAssignment
	failures := make(map[string]error)

	for _, character := range characters {
		assignment, err := m.Match(character, pool)
		if err != nil {
			failures[character.Name] = err
			if m.logger != nil {
				m.logger.WarnTag("Voice", "no assignment for %q: %v", character.Name, err)
			}
			continue
		}
		assignments = append(assignments, *assignment)
	}
	return assignments, failures
}

func noSuitableVoice(character CharacterProfile, stage string) error {
	return platformerrors.New(platformerrors.KindValidation, "match",
		fmt.Sprintf("no suitable voice for character %q: %s filter left no candidates", character.Name, stage))
}

// filterGender keeps voices matching the character's gender, plus neutral
// voices which fit anyone.
func filterGender(character CharacterProfile, pool []VoiceProfile) []VoiceProfile {
	var out []VoiceProfile
	for _, v := range pool {
		if v.Gender == character.Gender || v.Gender == GenderNeutral {
			out = append(out, v)
		}
	}
	return out
}

// filterAge keeps voices in the character's age bracket or an adjacent one.
func filterAge(character CharacterProfile, pool []VoiceProfile) []VoiceProfile {
	target := BracketForAge(character.Age)
	var out []VoiceProfile
	for _, v := range pool {
		if BracketsAdjacent(target, v.AgeBracket) {
			out = append(out, v)
		}
	}
	return out
}

// filterAccent applies only when the character states a preference. Neutral
// voices and the default accent always pass, so accent preferences narrow
// the pool without starving it.
func filterAccent(character CharacterProfile, pool []VoiceProfile) []VoiceProfile {
	if character.PreferredAccent == "" {
		return pool
	}
	preferred := strings.ToLower(character.PreferredAccent)
	var out []VoiceProfile
	for _, v := range pool {
		accent := strings.ToLower(v.Accent)
		if accent == preferred || accent == "neutral" || accent == DefaultAccent {
			out = append(out, v)
		}
	}
	return out
}

// toneScore scores personality overlap between character tone tags and voice
// descriptor tags. Tags match when either lower-cased string contains the
// other. Missing metadata on either side scores a neutral 0.5 rather than 0,
// so sparse catalogs are not unfairly excluded.
func toneScore(tones, descriptors []string) float64 {
	if len(tones) == 0 || len(descriptors) == 0 {
		return 0.5
	}

	matches := 0
	for _, tone := range tones {
		tone = strings.ToLower(tone)
		for _, desc := range descriptors {
			desc = strings.ToLower(desc)
			if strings.Contains(tone, desc) || strings.Contains(desc, tone) {
				matches++
			}
		}
	}

	denom := len(tones)
	if len(descriptors) > denom {
		denom = len(descriptors)
	}
	score := float64(matches) / float64(denom)
	if score > 1 {
		score = 1
	}
	return score
}
