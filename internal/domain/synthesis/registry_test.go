package synthesis

import (
	"context"
	"errors"
	"testing"
	"time"

	"storyvoice-server-go/internal/domain/synthesis/inter"
	"storyvoice-server-go/internal/domain/voice"
)

type catalogProvider struct {
	name      string
	voices    []voice.VoiceProfile
	fail      bool
	listCalls int
}

func (p *catalogProvider) Name() string                         { return p.name }
func (p *catalogProvider) SupportsCloning() bool                { return false }
func (p *catalogProvider) HealthCheck(ctx context.Context) bool { return !p.fail }

func (p *catalogProvider) Synthesize(ctx context.Context, req inter.Request) (*inter.Result, error) {
	return nil, errors.New("not under test")
}

func (p *catalogProvider) ListVoices(ctx context.Context) ([]voice.VoiceProfile, error) {
	p.listCalls++
	if p.fail {
		return nil, errors.New("catalog down")
	}
	return p.voices, nil
}

func profile(id, provider string) voice.VoiceProfile {
	return voice.VoiceProfile{ID: id, Provider: provider, Gender: voice.GenderNeutral}
}

func TestVoicePool_RegistrationOrder(t *testing.T) {
	reg := NewRegistry(nil, nil)
	reg.Register(&catalogProvider{name: "first", voices: []voice.VoiceProfile{profile("f1", "first"), profile("f2", "first")}})
	reg.Register(&catalogProvider{name: "second", voices: []voice.VoiceProfile{profile("s1", "second")}})

	pool, err := reg.VoicePool(context.Background())
	if err != nil {
		t.Fatalf("VoicePool: %v", err)
	}
	want := []string{"f1", "f2", "s1"}
	if len(pool) != len(want) {
		t.Fatalf("pool size %d, want %d", len(pool), len(want))
	}
	for i, id := range want {
		if pool[i].ID != id {
			t.Errorf("pool[%d] = %s, want %s", i, pool[i].ID, id)
		}
	}
}

func TestVoicePool_FailingProviderDegrades(t *testing.T) {
	reg := NewRegistry(nil, nil)
	reg.Register(&catalogProvider{name: "down", fail: true})
	reg.Register(&catalogProvider{name: "up", voices: []voice.VoiceProfile{profile("u1", "up")}})

	pool, err := reg.VoicePool(context.Background())
	if err != nil {
		t.Fatalf("one healthy provider should carry the pool: %v", err)
	}
	if len(pool) != 1 || pool[0].ID != "u1" {
		t.Errorf("unexpected pool: %+v", pool)
	}
}

func TestVoicePool_AllProvidersFailing(t *testing.T) {
	reg := NewRegistry(nil, nil)
	reg.Register(&catalogProvider{name: "down", fail: true})

	if _, err := reg.VoicePool(context.Background()); err == nil {
		t.Fatal("empty pool should be an error")
	}
}

func TestVoicePool_CacheAvoidsRefetch(t *testing.T) {
	cache := voice.NewMemoryCatalogCache(time.Minute)
	reg := NewRegistry(cache, nil)
	p := &catalogProvider{name: "cached", voices: []voice.VoiceProfile{profile("c1", "cached")}}
	reg.Register(p)

	for i := 0; i < 3; i++ {
		if _, err := reg.VoicePool(context.Background()); err != nil {
			t.Fatalf("VoicePool: %v", err)
		}
	}
	if p.listCalls != 1 {
		t.Errorf("catalog should be fetched once and cached, got %d calls", p.listCalls)
	}
}

func TestSetSelection(t *testing.T) {
	reg := NewRegistry(nil, nil)
	reg.Register(&catalogProvider{name: "a"})

	if err := reg.SetSelection("a", ""); err != nil {
		t.Errorf("primary without fallback should be accepted: %v", err)
	}
	if reg.Fallback() != nil {
		t.Error("no fallback was configured")
	}
	if err := reg.SetSelection("missing", ""); err == nil {
		t.Error("unregistered primary should be rejected")
	}
	if err := reg.SetSelection("a", "missing"); err == nil {
		t.Error("unregistered fallback should be rejected")
	}
}
