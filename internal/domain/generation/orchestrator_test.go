package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"storyvoice-server-go/internal/domain/eventbus"
	"storyvoice-server-go/internal/domain/script"
	"storyvoice-server-go/internal/domain/synthesis"
	"storyvoice-server-go/internal/domain/synthesis/inter"
	"storyvoice-server-go/internal/domain/voice"
	platformerrors "storyvoice-server-go/internal/platform/errors"
)

// fakeProvider is a scriptable in-memory synthesis backend.
type fakeProvider struct {
	name    string
	fail    func(req inter.Request) error
	delay   time.Duration
	mu      sync.Mutex
	calls   []string
	started func(req inter.Request)
}

func (f *fakeProvider) Name() string          { return f.name }
func (f *fakeProvider) SupportsCloning() bool { return false }
func (f *fakeProvider) HealthCheck(ctx context.Context) bool {
	return true
}

func (f *fakeProvider) ListVoices(ctx context.Context) ([]voice.VoiceProfile, error) {
	return []voice.VoiceProfile{{ID: "fake-voice", Provider: f.name, Gender: voice.GenderNeutral}}, nil
}

func (f *fakeProvider) Synthesize(ctx context.Context, req inter.Request) (*inter.Result, error) {
	if f.started != nil {
		f.started(req)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, req.Text)
	f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(req); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindProvider, "synthesize", "scripted failure", err)
		}
	}
	return &inter.Result{
		Audio:    []byte("audio:" + req.Text),
		Format:   "mp3",
		Duration: 1.5,
		Cost:     0.01,
		Provider: f.name,
	}, nil
}

func testRegistry(t *testing.T, primary, fallback inter.Provider) *synthesis.Registry {
	t.Helper()
	reg := synthesis.NewRegistry(nil, nil)
	reg.Register(primary)
	fallbackName := ""
	if fallback != nil {
		reg.Register(fallback)
		fallbackName = fallback.Name()
	}
	if err := reg.SetSelection(primary.Name(), fallbackName); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	return reg
}

func testUnits(n int) []script.NarrationUnit {
	units := make([]script.NarrationUnit, n)
	for i := range units {
		units[i] = script.NarrationUnit{
			Sequence: i + 1,
			Kind:     script.KindNarrative,
			Text:     fmt.Sprintf("paragraph %d", i+1),
		}
	}
	return units
}

func narratorOnly() map[string]voice.VoiceAssignment {
	return map[string]voice.VoiceAssignment{
		NarratorSentinel: {
			Character: NarratorSentinel,
			Voice:     voice.VoiceProfile{ID: "fake-voice", Provider: "primary"},
			Settings:  voice.SynthesisSettings{Stability: 0.65, SimilarityBoost: 0.75},
		},
	}
}

func TestGenerate_OrderPreservedDespiteCompletionOrder(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	orch := NewOrchestrator(testRegistry(t, primary, nil), Options{BatchSize: 3}, nil)

	units := testUnits(6)
	fragments, err := orch.Generate(context.Background(), "run-1", units, narratorOnly(), NopSink)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(fragments) != 6 {
		t.Fatalf("expected 6 fragments, got %d", len(fragments))
	}
	for i, f := range fragments {
		if f.Sequence != i+1 {
			t.Errorf("fragment %d has sequence %d", i, f.Sequence)
		}
		if string(f.Audio) != fmt.Sprintf("audio:paragraph %d", i+1) {
			t.Errorf("fragment %d carries wrong audio: %s", i, f.Audio)
		}
	}
}

func TestGenerate_FallbackAttribution(t *testing.T) {
	primary := &fakeProvider{
		name: "primary",
		fail: func(req inter.Request) error {
			if req.Text == "paragraph 2" {
				return errors.New("bad gateway")
			}
			return nil
		},
	}
	fallback := &fakeProvider{name: "fallback"}
	orch := NewOrchestrator(testRegistry(t, primary, fallback), Options{BatchSize: 5}, nil)

	fragments, err := orch.Generate(context.Background(), "run-2", testUnits(3), narratorOnly(), NopSink)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if fragments[1].Provider != "fallback" {
		t.Errorf("expected unit 2 attributed to fallback, got %s", fragments[1].Provider)
	}
	if fragments[0].Provider != "primary" || fragments[2].Provider != "primary" {
		t.Error("other units should stay on the primary provider")
	}
}

func TestGenerate_ExhaustionAbortsRun(t *testing.T) {
	alwaysFail := func(req inter.Request) error { return errors.New("down") }
	primary := &fakeProvider{name: "primary", fail: alwaysFail}
	fallback := &fakeProvider{name: "fallback", fail: alwaysFail}
	orch := NewOrchestrator(testRegistry(t, primary, fallback), Options{BatchSize: 2}, nil)

	fragments, err := orch.Generate(context.Background(), "run-3", testUnits(4), narratorOnly(), NopSink)
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if !platformerrors.IsKind(err, platformerrors.KindExhaustion) {
		t.Errorf("expected exhaustion kind, got %v", err)
	}
	if fragments != nil {
		t.Errorf("no fragments should be returned on a failed run, got %d", len(fragments))
	}
}

func TestGenerate_MissingAssignmentFailsBeforeSynthesis(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	orch := NewOrchestrator(testRegistry(t, primary, nil), Options{BatchSize: 2}, nil)

	units := testUnits(2)
	units[1].Speaker = "Maria"

	// No narrator sentinel, no Maria.
	_, err := orch.Generate(context.Background(), "run-4", units, map[string]voice.VoiceAssignment{}, NopSink)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !platformerrors.IsKind(err, platformerrors.KindValidation) {
		t.Errorf("expected validation kind, got %v", err)
	}
	primary.mu.Lock()
	defer primary.mu.Unlock()
	if len(primary.calls) != 0 {
		t.Errorf("no synthesis should have run, saw %d calls", len(primary.calls))
	}
}

func TestGenerate_SpeakerWithoutAssignmentUsesNarrator(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	orch := NewOrchestrator(testRegistry(t, primary, nil), Options{BatchSize: 2}, nil)

	units := testUnits(1)
	units[0].Speaker = "Unknown Stranger"

	fragments, err := orch.Generate(context.Background(), "run-5", units, narratorOnly(), NopSink)
	if err != nil {
		t.Fatalf("expected narrator fallback, got error: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}
}

func TestGenerate_BatchBoundaries(t *testing.T) {
	var mu sync.Mutex
	var order []string
	inFlight, maxInFlight := 0, 0

	primary := &fakeProvider{name: "primary", delay: 10 * time.Millisecond}
	primary.started = func(req inter.Request) {
		mu.Lock()
		order = append(order, "start:"+req.Text)
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		// delay happens after started; completion is recorded in fail hook
	}
	primary.fail = func(req inter.Request) error {
		mu.Lock()
		order = append(order, "end:"+req.Text)
		inFlight--
		mu.Unlock()
		return nil
	}

	orch := NewOrchestrator(testRegistry(t, primary, nil), Options{BatchSize: 2}, nil)
	if _, err := orch.Generate(context.Background(), "run-6", testUnits(5), narratorOnly(), NopSink); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if maxInFlight > 2 {
		t.Errorf("concurrency exceeded batch size: %d", maxInFlight)
	}
	// With batch size 2 over 5 units we see 3 dispatch waves; unit 3 must
	// not start until units 1 and 2 both ended.
	indexOf := func(entry string) int {
		for i, e := range order {
			if e == entry {
				return i
			}
		}
		t.Fatalf("entry %q not recorded", entry)
		return -1
	}
	start3 := indexOf("start:paragraph 3")
	if indexOf("end:paragraph 1") > start3 || indexOf("end:paragraph 2") > start3 {
		t.Error("batch 2 started before batch 1 fully resolved")
	}
}

func TestGenerate_ProgressMonotonic(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	orch := NewOrchestrator(testRegistry(t, primary, nil), Options{BatchSize: 2}, nil)

	var mu sync.Mutex
	var percents []float64
	var stages []string
	sink := SinkFunc(func(e eventbus.ProgressEventData) {
		mu.Lock()
		percents = append(percents, e.PercentComplete)
		stages = append(stages, e.Stage)
		mu.Unlock()
	})

	if _, err := orch.Generate(context.Background(), "run-7", testUnits(5), narratorOnly(), sink); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	orch.Complete("run-7", sink)

	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Errorf("percent decreased: %v", percents)
		}
	}
	if stages[0] != string(StageAnalyzing) {
		t.Errorf("first stage should be analyzing, got %s", stages[0])
	}
	if stages[len(stages)-1] != string(StageComplete) {
		t.Errorf("final stage should be complete, got %s", stages[len(stages)-1])
	}
	if percents[len(percents)-1] != 100 {
		t.Errorf("final percent should be 100, got %f", percents[len(percents)-1])
	}
}

func TestGenerate_Cancellation(t *testing.T) {
	primary := &fakeProvider{name: "primary", delay: 50 * time.Millisecond}
	orch := NewOrchestrator(testRegistry(t, primary, nil), Options{BatchSize: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := orch.Generate(ctx, "run-8", testUnits(10), narratorOnly(), NopSink)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
