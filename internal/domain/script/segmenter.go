package script

import (
	"strings"
	"unicode"
)

// UnitKind classifies a narration unit.
type UnitKind string

const (
	KindNarrative UnitKind = "narrative"
	KindDialogue  UnitKind = "dialogue"
)

// Chapter is one chapter of the manuscript, in reading order.
type Chapter struct {
	Number int
	Title  string
	Text   string
}

// Emotion is an optional per-unit emotion tag supplied by the classifier.
type Emotion struct {
	Kind      string
	Intensity float64 // [0,1]
}

// NarrationUnit is one atomic piece of text to synthesize. Sequence defines
// the final audio order and never changes after segmentation.
type NarrationUnit struct {
	Sequence int
	Chapter  int
	Kind     UnitKind
	Speaker  string // empty means the narrator voice
	Text     string
	Emotion  *Emotion
}

// attributionVerbs is the fixed lexicon used to detect speech attribution.
var attributionVerbs = map[string]bool{
	"said": true, "asked": true, "replied": true, "whispered": true,
	"shouted": true, "answered": true, "exclaimed": true, "muttered": true,
	"murmured": true, "cried": true, "called": true, "demanded": true,
	"insisted": true, "continued": true, "added": true, "observed": true,
	"remarked": true, "began": true, "interrupted": true, "screamed": true,
	"yelled": true, "sighed": true, "laughed": true, "snapped": true,
	"warned": true, "agreed": true, "admitted": true, "suggested": true,
}

// nonSpeakerWords are tokens that can precede an attribution verb but never
// name a speaker.
var nonSpeakerWords = map[string]bool{
	"he": true, "she": true, "they": true, "i": true, "you": true, "we": true,
	"it": true, "the": true, "a": true, "an": true, "and": true, "then": true,
	"who": true, "voice": true, "man": true, "woman": true,
}

// Segmenter splits chapter text into ordered narration units.
type Segmenter struct{}

func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment splits every chapter into paragraph-level units, classifying each
// as narrative or dialogue and extracting a speaker where one is detectable.
// Sequence numbers are global across the whole book, dense, and strictly
// increasing. Every non-blank paragraph produces exactly one unit; the
// heuristics never drop or fail a paragraph.
func (s *Segmenter) Segment(chapters []Chapter) []NarrationUnit {
	var units []NarrationUnit
	seq := 1

	for _, chapter := range chapters {
		for _, para := range splitParagraphs(chapter.Text) {
			unit := NarrationUnit{
				Sequence: seq,
				Chapter:  chapter.Number,
				Kind:     KindNarrative,
				Text:     para,
			}
			if isDialogue(para) {
				unit.Kind = KindDialogue
				unit.Speaker = extractSpeaker(para)
			}
			units = append(units, unit)
			seq++
		}
	}
	return units
}

// splitParagraphs splits text on blank-line boundaries, discarding
// whitespace-only candidates.
func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var paras []string
	for _, candidate := range strings.Split(normalized, "\n\n") {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" {
			paras = append(paras, candidate)
		}
	}
	return paras
}

// isDialogue reports whether the paragraph contains a quoted span and an
// attribution verb. Both conditions are required; a quote alone is treated
// as narrative (e.g. a quoted sign or letter).
func isDialogue(para string) bool {
	return hasQuotedSpan(para) && hasAttributionVerb(para)
}

func hasQuotedSpan(para string) bool {
	straight := strings.Count(para, `"`) >= 2
	curly := strings.ContainsRune(para, '“') && strings.ContainsRune(para, '”')
	return straight || curly
}

func hasAttributionVerb(para string) bool {
	for _, token := range strings.Fields(para) {
		if attributionVerbs[normalizeToken(token)] {
			return true
		}
	}
	return false
}

// extractSpeaker takes the token immediately preceding the first attribution
// verb as the speaker name. Pronouns, articles, and non-capitalized tokens
// are rejected and the unit falls back to the narrator voice downstream.
// Compound names and inverted attribution order ("said Maria") defeat this
// heuristic; the contract is only that it never fails a paragraph.
func extractSpeaker(para string) string {
	tokens := strings.Fields(para)
	for i, token := range tokens {
		if !attributionVerbs[normalizeToken(token)] || i == 0 {
			continue
		}
		candidate := strings.TrimFunc(tokens[i-1], func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		if candidate == "" || nonSpeakerWords[strings.ToLower(candidate)] {
			return ""
		}
		if !unicode.IsUpper([]rune(candidate)[0]) {
			return ""
		}
		return candidate
	}
	return ""
}

func normalizeToken(token string) string {
	return strings.ToLower(strings.TrimFunc(token, func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
}
