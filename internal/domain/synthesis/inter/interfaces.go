package inter

import (
	"context"

	"storyvoice-server-go/internal/domain/voice"
)

// Request carries everything one synthesis call needs.
type Request struct {
	Text     string
	VoiceID  string
	Settings voice.SynthesisSettings
	Emotion  string // optional emotion hint; providers may ignore it
}

// Result is the output of one provider call.
type Result struct {
	Audio    []byte
	Format   string  // "mp3", "wav", ...
	Duration float64 // seconds
	Cost     float64 // USD
	Provider string
}

// Provider is the capability interface every speech synthesis backend
// implements. Implementations hold long-lived client state constructed once
// at process scope; no field mutates after construction, so one instance is
// safely shared across concurrent calls.
type Provider interface {
	// Name identifies the provider in config, logs, and fragments.
	Name() string

	// Synthesize converts text into audio. Network failures, non-2xx
	// responses, and timeouts all surface as provider errors.
	Synthesize(ctx context.Context, req Request) (*Result, error)

	// ListVoices fetches the provider's voice catalog.
	ListVoices(ctx context.Context) ([]voice.VoiceProfile, error)

	// HealthCheck reports whether the backend is currently reachable.
	HealthCheck(ctx context.Context) bool

	// SupportsCloning reports whether this backend runs voice-cloning
	// synthesis, which is granted a longer call timeout.
	SupportsCloning() bool
}
