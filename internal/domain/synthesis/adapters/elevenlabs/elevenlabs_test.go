package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storyvoice-server-go/internal/domain/synthesis/inter"
	"storyvoice-server-go/internal/domain/voice"
	platformerrors "storyvoice-server-go/internal/platform/errors"
)

func TestSynthesize_Success(t *testing.T) {
	fakeAudio := []byte("not-really-mp3-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		var req speechRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Text != "Hello there" {
			t.Errorf("unexpected text %q", req.Text)
		}
		if req.VoiceSettings.Stability != 0.65 {
			t.Errorf("unexpected stability %f", req.VoiceSettings.Stability)
		}
		w.Write(fakeAudio)
	}))
	defer server.Close()

	p := New(Config{APIKey: "test-key", BaseURL: server.URL, CostPerChar: 0.001}, nil)

	result, err := p.Synthesize(context.Background(), inter.Request{
		Text:    "Hello there",
		VoiceID: "voice-1",
		Settings: voice.SynthesisSettings{
			Stability: 0.65, SimilarityBoost: 0.75, Style: 0.3, SpeakerBoost: true,
		},
	})
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if string(result.Audio) != string(fakeAudio) {
		t.Error("audio bytes mangled")
	}
	if result.Provider != "elevenlabs" {
		t.Errorf("provider = %s", result.Provider)
	}
	if result.Cost != float64(len("Hello there"))*0.001 {
		t.Errorf("unexpected cost %f", result.Cost)
	}
	if result.Duration <= 0 {
		t.Errorf("expected estimated duration, got %f", result.Duration)
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := New(Config{APIKey: "k", BaseURL: server.URL}, nil)
	_, err := p.Synthesize(context.Background(), inter.Request{Text: "x", VoiceID: "v"})
	if err == nil {
		t.Fatal("expected provider error")
	}
	if !platformerrors.IsKind(err, platformerrors.KindProvider) {
		t.Errorf("expected provider kind, got %v", err)
	}
}

func TestListVoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"voices":[
			{"voice_id":"v1","name":"Clara","labels":{"gender":"female","age":"young","accent":"American","description":"warm"}},
			{"voice_id":"v2","name":"Rex","labels":{"gender":"male","age":"old","accent":"British","use_case":"narration"}}
		]}`))
	}))
	defer server.Close()

	p := New(Config{APIKey: "k", BaseURL: server.URL}, nil)
	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices() error: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}
	if voices[0].Gender != voice.GenderFemale || voices[0].AgeBracket != voice.BracketYoungAdult {
		t.Errorf("voice labels mis-parsed: %+v", voices[0])
	}
	if voices[0].Accent != "american" {
		t.Errorf("accent should be lower-cased, got %q", voices[0].Accent)
	}
	if voices[1].AgeBracket != voice.BracketSenior {
		t.Errorf("old label should map to senior, got %s", voices[1].AgeBracket)
	}
	if len(voices[1].Descriptors) != 1 || voices[1].Descriptors[0] != "narration" {
		t.Errorf("descriptors mis-parsed: %+v", voices[1].Descriptors)
	}
}

func TestHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	if !New(Config{APIKey: "k", BaseURL: healthy.URL}, nil).HealthCheck(context.Background()) {
		t.Error("expected healthy")
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	if New(Config{APIKey: "k", BaseURL: broken.URL}, nil).HealthCheck(context.Background()) {
		t.Error("expected unhealthy")
	}
}
