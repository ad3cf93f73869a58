package character

import (
	"context"
	"testing"

	"storyvoice-server-go/internal/domain/script"
	"storyvoice-server-go/internal/domain/voice"
)

func dialogue(seq int, speaker, text string) script.NarrationUnit {
	return script.NarrationUnit{Sequence: seq, Kind: script.KindDialogue, Speaker: speaker, Text: text}
}

func narrative(seq int, text string) script.NarrationUnit {
	return script.NarrationUnit{Sequence: seq, Kind: script.KindNarrative, Text: text}
}

func TestAnalyze_ProfilesPerSpeaker(t *testing.T) {
	units := []script.NarrationUnit{
		narrative(1, "The sun rose over the hills."),
		dialogue(2, "Maria", `"Good morning," Maria said.`),
		dialogue(3, "John", `"Is it?" John shouted angrily.`),
		dialogue(4, "Maria", `"Calm down," Maria whispered gently.`),
	}

	analysis, err := NewHeuristicClassifier().Analyze(context.Background(), units)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if len(analysis.Characters) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(analysis.Characters))
	}
	// First-appearance order.
	if analysis.Characters[0].Name != "Maria" || analysis.Characters[1].Name != "John" {
		t.Errorf("unexpected cast order: %+v", analysis.Characters)
	}
	for _, profile := range analysis.Characters {
		if profile.Gender != voice.GenderNeutral || profile.Age != 30 {
			t.Errorf("profile %s should carry neutral defaults, got %+v", profile.Name, profile)
		}
	}
}

func TestAnalyze_EmotionTags(t *testing.T) {
	units := []script.NarrationUnit{
		dialogue(1, "John", `"Get out!" John shouted and slammed the door.`),
		dialogue(2, "Maria", `"Fine," Maria said.`),
		narrative(3, "They gasped at the sight before them."),
	}

	analysis, err := NewHeuristicClassifier().Analyze(context.Background(), units)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	angry, ok := analysis.Emotions[1]
	if !ok || angry.Kind != "angry" {
		t.Errorf("unit 1 should be angry, got %+v", analysis.Emotions[1])
	}
	if angry.Intensity <= 0.7 || angry.Intensity > 1 {
		t.Errorf("two angry cues should raise intensity above the base, got %v", angry.Intensity)
	}
	if _, ok := analysis.Emotions[2]; ok {
		t.Error("unit 2 carries no cue words, should have no emotion tag")
	}
	if surprised := analysis.Emotions[3]; surprised.Kind != "surprised" {
		t.Errorf("unit 3 should be surprised, got %+v", surprised)
	}
}

func TestAnalyze_EmotionalRangeGrading(t *testing.T) {
	units := []script.NarrationUnit{
		dialogue(1, "Ann", `"Ha!" Ann laughed.`),
		dialogue(2, "Ann", `"No!" Ann shouted.`),
		dialogue(3, "Bob", `"Hm," Bob said.`),
		dialogue(4, "Bob", `"Right," Bob said.`),
		dialogue(5, "Bob", `"Okay," Bob said.`),
		dialogue(6, "Bob", `"Then we walk," Bob said.`),
		dialogue(7, "Bob", `"Enough!" Bob yelled.`),
	}

	analysis, err := NewHeuristicClassifier().Analyze(context.Background(), units)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	byName := make(map[string]voice.CharacterProfile)
	for _, profile := range analysis.Characters {
		byName[profile.Name] = profile
	}
	if byName["Ann"].EmotionalRange != voice.RangeHigh {
		t.Errorf("Ann: every line is emotional, want high range, got %s", byName["Ann"].EmotionalRange)
	}
	if byName["Bob"].EmotionalRange == voice.RangeHigh {
		t.Errorf("Bob: one emotional line in five should not grade high, got %s", byName["Bob"].EmotionalRange)
	}
}

func TestAnalyze_MinLinesThreshold(t *testing.T) {
	units := []script.NarrationUnit{
		dialogue(1, "Maria", `"Hello," Maria said.`),
		dialogue(2, "Maria", `"Again," Maria said.`),
		dialogue(3, "Stranger", `"Once," the Stranger said.`),
	}
	c := &HeuristicClassifier{MinLines: 2}
	analysis, err := c.Analyze(context.Background(), units)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if len(analysis.Characters) != 1 || analysis.Characters[0].Name != "Maria" {
		t.Errorf("only Maria clears the line threshold, got %+v", analysis.Characters)
	}
}

func TestAnnotate(t *testing.T) {
	units := []script.NarrationUnit{
		dialogue(1, "John", `"Go!" John shouted.`),
		narrative(2, "Nothing happened."),
	}
	analysis := &Analysis{Emotions: map[int]script.Emotion{
		1: {Kind: "angry", Intensity: 0.7},
	}}

	annotated := Annotate(units, analysis)
	if annotated[0].Emotion == nil || annotated[0].Emotion.Kind != "angry" {
		t.Errorf("unit 1 should carry the angry tag, got %+v", annotated[0].Emotion)
	}
	if annotated[1].Emotion != nil {
		t.Error("unit 2 should stay untagged")
	}
	if units[0].Emotion != nil {
		t.Error("input slice must not be mutated")
	}
}
