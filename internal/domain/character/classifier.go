// Package character builds speaker profiles and per-unit emotion tags from a
// segmented manuscript. The classifier is a pluggable collaborator: a failed
// or absent classifier degrades a run to narrator-only voicing, it never
// aborts generation.
package character

import (
	"context"

	"storyvoice-server-go/internal/domain/script"
	"storyvoice-server-go/internal/domain/voice"
)

// Analysis is the classifier's output for one manuscript.
type Analysis struct {
	// Characters holds one profile per detected recurring speaker.
	Characters []voice.CharacterProfile
	// Emotions maps unit sequence numbers to detected emotion tags. Units
	// without an entry carry no emotion hint.
	Emotions map[int]script.Emotion
}

// Classifier extracts character profiles and emotion tags from narration
// units.
type Classifier interface {
	Analyze(ctx context.Context, units []script.NarrationUnit) (*Analysis, error)
}

// Annotate copies the units, attaching the analysis's emotion tags. The
// input slice is never mutated.
func Annotate(units []script.NarrationUnit, analysis *Analysis) []script.NarrationUnit {
	annotated := make([]script.NarrationUnit, len(units))
	copy(annotated, units)
	if analysis == nil {
		return annotated
	}
	for i := range annotated {
		if emotion, ok := analysis.Emotions[annotated[i].Sequence]; ok {
			e := emotion
			annotated[i].Emotion = &e
		}
	}
	return annotated
}
