package synthesis

import (
	"context"
	"fmt"
	"time"

	"storyvoice-server-go/internal/domain/synthesis/inter"
	"storyvoice-server-go/internal/domain/voice"
	platformerrors "storyvoice-server-go/internal/platform/errors"
	"storyvoice-server-go/internal/platform/logging"
)

// Registry holds the configured provider instances and pins the primary and
// fallback pair the orchestrator drives. Providers are registered during
// bootstrap and the registry is read-only afterwards.
type Registry struct {
	providers map[string]inter.Provider
	// order preserves registration order so the aggregated voice pool, and
	// therefore tie-breaking in the matcher, stays deterministic.
	order    []string
	primary  string
	fallback string
	catalog  voice.CatalogCache
	logger   *logging.Logger
}

func NewRegistry(catalog voice.CatalogCache, logger *logging.Logger) *Registry {
	return &Registry{
		providers: make(map[string]inter.Provider),
		catalog:   catalog,
		logger:    logger,
	}
}

// Register adds a provider under its name. Last registration wins.
func (r *Registry) Register(p inter.Provider) {
	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

// SetSelection pins the primary and fallback providers. The fallback may be
// empty, in which case units get a single synthesis attempt.
func (r *Registry) SetSelection(primary, fallback string) error {
	if _, ok := r.providers[primary]; !ok {
		return platformerrors.New(platformerrors.KindConfig, "registry",
			fmt.Sprintf("primary provider %q not registered", primary))
	}
	if fallback != "" {
		if _, ok := r.providers[fallback]; !ok {
			return platformerrors.New(platformerrors.KindConfig, "registry",
				fmt.Sprintf("fallback provider %q not registered", fallback))
		}
	}
	r.primary = primary
	r.fallback = fallback
	return nil
}

// Primary returns the pinned primary provider.
func (r *Registry) Primary() inter.Provider {
	return r.providers[r.primary]
}

// Fallback returns the pinned fallback provider, or nil when none is set.
func (r *Registry) Fallback() inter.Provider {
	if r.fallback == "" {
		return nil
	}
	return r.providers[r.fallback]
}

// Get looks up a provider by name.
func (r *Registry) Get(name string) (inter.Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names lists registered provider names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// VoicePool aggregates the catalogs of every registered provider, consulting
// the catalog cache first. A provider whose catalog call fails contributes
// nothing rather than failing the pool; matching quality degrades, the run
// does not.
func (r *Registry) VoicePool(ctx context.Context) ([]voice.VoiceProfile, error) {
	var pool []voice.VoiceProfile
	for _, name := range r.order {
		p := r.providers[name]
		if r.catalog != nil {
			if cached, ok, err := r.catalog.Get(ctx, name); err == nil && ok {
				pool = append(pool, cached...)
				continue
			}
		}

		listCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		voices, err := p.ListVoices(listCtx)
		cancel()
		if err != nil {
			if r.logger != nil {
				r.logger.WarnTag("Catalog", "catalog fetch failed for %s: %v", name, err)
			}
			continue
		}

		if r.catalog != nil {
			if err := r.catalog.Put(ctx, name, voices); err != nil && r.logger != nil {
				r.logger.WarnTag("Catalog", "catalog cache write failed for %s: %v", name, err)
			}
		}
		pool = append(pool, voices...)
	}

	if len(pool) == 0 {
		return nil, platformerrors.New(platformerrors.KindProvider, "registry",
			"no provider returned a voice catalog")
	}
	return pool, nil
}
