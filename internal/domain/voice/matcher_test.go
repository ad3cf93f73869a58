package voice

import (
	"testing"

	platformerrors "storyvoice-server-go/internal/platform/errors"
)

func testPool() []VoiceProfile {
	return []VoiceProfile{
		{ID: "v1", Name: "Clara", Provider: "elevenlabs", Gender: GenderFemale,
			AgeBracket: BracketYoungAdult, Accent: "american", Descriptors: []string{"warm", "calm"}},
		{ID: "v2", Name: "Rex", Provider: "elevenlabs", Gender: GenderMale,
			AgeBracket: BracketAdult, Accent: "british", Descriptors: []string{"dynamic"}},
		{ID: "v3", Name: "Sam", Provider: "edge", Gender: GenderNeutral,
			AgeBracket: BracketYoungAdult, Accent: "neutral", Descriptors: nil},
	}
}

func TestMatch_GenderFilterFailure(t *testing.T) {
	pool := []VoiceProfile{
		{ID: "m1", Gender: GenderMale, AgeBracket: BracketYoungAdult},
		{ID: "m2", Gender: GenderMale, AgeBracket: BracketAdult},
	}
	character := CharacterProfile{Name: "Ava", Age: 30, Gender: GenderFemale}

	_, err := NewMatcher(nil).Match(character, pool)
	if err == nil {
		t.Fatal("expected no-suitable-voice error")
	}
	if !platformerrors.IsKind(err, platformerrors.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestMatch_ToneScoringPrefersOverlap(t *testing.T) {
	pool := []VoiceProfile{
		{ID: "a", Name: "A", Gender: GenderFemale, AgeBracket: BracketYoungAdult,
			Descriptors: []string{"warm", "calm"}},
		{ID: "b", Name: "B", Gender: GenderFemale, AgeBracket: BracketYoungAdult,
			Descriptors: []string{"dynamic"}},
	}
	character := CharacterProfile{Name: "Ava", Age: 28, Gender: GenderFemale, Tones: []string{"calm"}}

	assignment, err := NewMatcher(nil).Match(character, pool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment.Voice.ID != "a" {
		t.Errorf("expected warm/calm voice selected, got %s", assignment.Voice.ID)
	}
	if assignment.Score <= 0 {
		t.Errorf("expected positive score, got %f", assignment.Score)
	}
}

func TestMatch_TieBrokenByPoolOrder(t *testing.T) {
	pool := []VoiceProfile{
		{ID: "first", Gender: GenderNeutral, AgeBracket: BracketYoungAdult, Descriptors: []string{"bright"}},
		{ID: "second", Gender: GenderNeutral, AgeBracket: BracketYoungAdult, Descriptors: []string{"bright"}},
	}
	character := CharacterProfile{Name: "Ava", Age: 25, Gender: GenderFemale, Tones: []string{"bright"}}

	assignment, err := NewMatcher(nil).Match(character, pool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment.Voice.ID != "first" {
		t.Errorf("tie should keep first occurrence, got %s", assignment.Voice.ID)
	}
}

func TestMatch_EmptyTagsScoreNeutral(t *testing.T) {
	character := CharacterProfile{Name: "Ava", Age: 25, Gender: GenderFemale}
	assignment, err := NewMatcher(nil).Match(character, testPool())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment.Score != 0.5 {
		t.Errorf("expected neutral 0.5 score with no tags, got %f", assignment.Score)
	}
}

func TestMatch_AgeAdjacency(t *testing.T) {
	pool := []VoiceProfile{
		{ID: "senior", Gender: GenderNeutral, AgeBracket: BracketSenior},
	}
	// Age 40 maps to adult, adjacent to senior.
	if _, err := NewMatcher(nil).Match(CharacterProfile{Name: "A", Age: 40, Gender: GenderFemale}, pool); err != nil {
		t.Errorf("adjacent bracket should pass: %v", err)
	}
	// Age 25 maps to youngAdult, two steps from senior.
	if _, err := NewMatcher(nil).Match(CharacterProfile{Name: "A", Age: 25, Gender: GenderFemale}, pool); err == nil {
		t.Error("non-adjacent bracket should fail")
	}
}

func TestMatch_AccentFilter(t *testing.T) {
	character := CharacterProfile{Name: "Ava", Age: 28, Gender: GenderFemale, PreferredAccent: "British"}

	// Pool has no british female voice, but the american (default accent)
	// and neutral-accent entries survive the accent stage.
	assignment, err := NewMatcher(nil).Match(character, testPool())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment.Voice.ID != "v1" && assignment.Voice.ID != "v3" {
		t.Errorf("expected default/neutral accent survivor, got %s", assignment.Voice.ID)
	}

	strictPool := []VoiceProfile{
		{ID: "x", Gender: GenderFemale, AgeBracket: BracketYoungAdult, Accent: "australian"},
	}
	if _, err := NewMatcher(nil).Match(character, strictPool); err == nil {
		t.Error("expected accent filter to empty the pool")
	}
}

func TestMatchAll_ContinuesPastFailures(t *testing.T) {
	characters := []CharacterProfile{
		{Name: "Ava", Age: 28, Gender: GenderFemale},
		{Name: "Ghost", Age: 30, Gender: GenderMale, PreferredAccent: "martian"},
		{Name: "Ben", Age: 45, Gender: GenderMale},
	}
	pool := []VoiceProfile{
		{ID: "f", Gender: GenderFemale, AgeBracket: BracketYoungAdult, Accent: "american"},
		{ID: "m", Gender: GenderMale, AgeBracket: BracketAdult, Accent: "british"},
	}

	assignments, failures := NewMatcher(nil).MatchAll(characters, pool)

	if len(assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assignments))
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if _, ok := failures["Ghost"]; !ok {
		t.Error("expected Ghost to be the failed character")
	}
}

func TestBracketForAge(t *testing.T) {
	tests := []struct {
		age      int
		expected AgeBracket
	}{
		{0, BracketChild}, {12, BracketChild},
		{13, BracketTeen}, {19, BracketTeen},
		{20, BracketYoungAdult}, {35, BracketYoungAdult},
		{36, BracketAdult}, {55, BracketAdult},
		{56, BracketSenior}, {90, BracketSenior},
	}
	for _, tt := range tests {
		if got := BracketForAge(tt.age); got != tt.expected {
			t.Errorf("BracketForAge(%d) = %s, expected %s", tt.age, got, tt.expected)
		}
	}
}
