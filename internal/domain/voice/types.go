package voice

// Gender of a voice or character.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderNeutral Gender = "neutral"
)

// AgeBracket is one of five ordered buckets. Adjacency in this ordering is
// what the age filter considers an acceptable match.
type AgeBracket string

const (
	BracketChild      AgeBracket = "child"      // 0-12
	BracketTeen       AgeBracket = "teen"       // 13-19
	BracketYoungAdult AgeBracket = "youngAdult" // 20-35
	BracketAdult      AgeBracket = "adult"      // 36-55
	BracketSenior     AgeBracket = "senior"     // 56+
)

// bracketOrder fixes the adjacency relation used by the age filter.
var bracketOrder = []AgeBracket{
	BracketChild, BracketTeen, BracketYoungAdult, BracketAdult, BracketSenior,
}

// BracketForAge maps a numeric age to its bracket.
func BracketForAge(age int) AgeBracket {
	switch {
	case age <= 12:
		return BracketChild
	case age <= 19:
		return BracketTeen
	case age <= 35:
		return BracketYoungAdult
	case age <= 55:
		return BracketAdult
	default:
		return BracketSenior
	}
}

func bracketIndex(b AgeBracket) int {
	for i, candidate := range bracketOrder {
		if candidate == b {
			return i
		}
	}
	return -1
}

// BracketsAdjacent reports whether two brackets are equal or neighbours in
// the fixed ordering.
func BracketsAdjacent(a, b AgeBracket) bool {
	ia, ib := bracketIndex(a), bracketIndex(b)
	if ia < 0 || ib < 0 {
		return false
	}
	d := ia - ib
	return d >= -1 && d <= 1
}

// EmotionalRange is a character's target expressive range.
type EmotionalRange string

const (
	RangeLow    EmotionalRange = "low"
	RangeMedium EmotionalRange = "medium"
	RangeHigh   EmotionalRange = "high"
)

// VoiceProfile describes a synthetic voice from a provider catalog.
// Profiles are immutable and cached for the process lifetime.
type VoiceProfile struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Provider    string     `json:"provider"`
	Gender      Gender     `json:"gender"`
	AgeBracket  AgeBracket `json:"age_bracket"`
	Accent      string     `json:"accent"`
	Descriptors []string   `json:"descriptors"`
	ClonedFrom  string     `json:"cloned_from,omitempty"`
}

// CharacterProfile holds the speaker attributes used for matching. Supplied
// by the character classifier; immutable per generation run.
type CharacterProfile struct {
	Name            string         `json:"name"`
	Age             int            `json:"age"`
	Gender          Gender         `json:"gender"`
	Tones           []string       `json:"tones"`
	EmotionalRange  EmotionalRange `json:"emotional_range"`
	PreferredAccent string         `json:"preferred_accent,omitempty"`
}

// SynthesisSettings are the per-assignment synthesis knobs, all in [0,1].
type SynthesisSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"speaker_boost"`
}

// VoiceAssignment binds a character name (or the narrator sentinel) to a
// chosen voice and its settings. Read-only during generation.
type VoiceAssignment struct {
	Character string            `json:"character"`
	Voice     VoiceProfile      `json:"voice"`
	Settings  SynthesisSettings `json:"settings"`
	Score     float64           `json:"score"`
}
