// Package bootstrap wires the whole server: configuration, logging,
// storage, synthesis providers, the pipeline services, and the transports,
// then runs them until a shutdown signal arrives.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"storyvoice-server-go/internal/app/services"
	"storyvoice-server-go/internal/domain/assembly"
	"storyvoice-server-go/internal/domain/assembly/ffmpeg"
	"storyvoice-server-go/internal/domain/character"
	"storyvoice-server-go/internal/domain/generation"
	"storyvoice-server-go/internal/domain/script"
	"storyvoice-server-go/internal/domain/synthesis"
	"storyvoice-server-go/internal/domain/synthesis/adapters/edge"
	"storyvoice-server-go/internal/domain/synthesis/adapters/elevenlabs"
	"storyvoice-server-go/internal/domain/synthesis/adapters/openaispeech"
	"storyvoice-server-go/internal/domain/synthesis/inter"
	"storyvoice-server-go/internal/domain/voice"
	platformconfig "storyvoice-server-go/internal/platform/config"
	platformerrors "storyvoice-server-go/internal/platform/errors"
	platformlogging "storyvoice-server-go/internal/platform/logging"
	platformobservability "storyvoice-server-go/internal/platform/observability"
	platformstorage "storyvoice-server-go/internal/platform/storage"
	httptransport "storyvoice-server-go/internal/transport/http"
	httpwebapi "storyvoice-server-go/internal/transport/http/webapi"
	"storyvoice-server-go/internal/transport/ws"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	configPath string

	config     *platformconfig.Config
	logger     *platformlogging.Logger
	obsStop    platformobservability.ShutdownFunc
	catalog    voice.CatalogCache
	registry   *synthesis.Registry
	runs       *platformstorage.RunRepository
	audiobooks *platformstorage.AudiobookRepository
	audiobook  *services.AudiobookService
	router     *httptransport.Router
	hub        *ws.Hub
	relay      *ws.Relay
}

// Run executes the full server lifecycle: init graph, serve, graceful stop.
func Run(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := &appState{configPath: configPath}
	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}
	defer teardown(state)

	return serve(ctx, state)
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(platformerrors.KindBootstrap, step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep))
			}
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the bootstrap steps in dependency order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup",
			Title:     "Set up observability",
			DependsOn: []string{"logging:init"},
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:open",
			Title:     "Open run storage",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   openStorageStep,
		},
		{
			ID:        "catalog:init",
			Title:     "Initialise voice catalog cache",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   initCatalogStep,
		},
		{
			ID:        "providers:register",
			Title:     "Register synthesis providers",
			DependsOn: []string{"catalog:init"},
			Kind:      platformerrors.KindProvider,
			Execute:   registerProvidersStep,
		},
		{
			ID:        "services:build",
			Title:     "Build pipeline services",
			DependsOn: []string{"providers:register", "storage:open"},
			Execute:   buildServicesStep,
		},
		{
			ID:        "transport:build",
			Title:     "Build transports",
			DependsOn: []string{"services:build"},
			Kind:      platformerrors.KindTransport,
			Execute:   buildTransportStep,
		},
	}
}

func loadConfigStep(ctx context.Context, state *appState) error {
	cfg, err := platformconfig.NewLoader(state.configPath).WithDotEnv(true).Load()
	if err != nil {
		return err
	}
	state.config = cfg
	return nil
}

func initLoggingStep(ctx context.Context, state *appState) error {
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return err
	}
	state.logger = logger
	logger.InfoTag("Bootstrap", "logging initialised (level=%s)", state.config.Log.Level)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	shutdown, err := platformobservability.Setup(ctx,
		platformobservability.Config{Enabled: true}, state.logger.Slog())
	if err != nil {
		return err
	}
	state.obsStop = shutdown
	return nil
}

func openStorageStep(ctx context.Context, state *appState) error {
	db, err := platformstorage.Open(state.config.Storage.Dir)
	if err != nil {
		return err
	}
	state.runs = platformstorage.NewRunRepository(db)
	state.audiobooks = platformstorage.NewAudiobookRepository(db)
	state.logger.InfoTag("Storage", "run storage ready at %s", state.config.Storage.Dir)
	return nil
}

func initCatalogStep(ctx context.Context, state *appState) error {
	cfg := state.config.Catalog
	ttl := time.Duration(cfg.TTL) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}

	switch cfg.Type {
	case "redis":
		cache, err := voice.NewRedisCatalogCache(ctx, voice.RedisCatalogOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      ttl,
		})
		if err != nil {
			return err
		}
		state.catalog = cache
		state.logger.InfoTag("Catalog", "redis catalog cache at %s", cfg.Redis.Addr)
	default:
		state.catalog = voice.NewMemoryCatalogCache(ttl)
		state.logger.InfoTag("Catalog", "in-memory catalog cache (ttl=%s)", ttl)
	}
	return nil
}

func registerProvidersStep(ctx context.Context, state *appState) error {
	registry := synthesis.NewRegistry(state.catalog, state.logger)

	for name, cfg := range state.config.Providers {
		provider, err := buildProvider(name, cfg, state.logger)
		if err != nil {
			return err
		}
		registry.Register(provider)
		state.logger.InfoTag("Synth", "registered provider %s (%s)", name, cfg.Type)
	}

	selected := state.config.Selected
	if err := registry.SetSelection(selected.Primary, selected.Fallback); err != nil {
		return err
	}
	state.registry = registry
	state.logger.InfoTag("Synth", "primary=%s fallback=%s", selected.Primary, selected.Fallback)
	return nil
}

func buildProvider(name string, cfg platformconfig.ProviderConfig, logger *platformlogging.Logger) (inter.Provider, error) {
	switch cfg.Type {
	case "elevenlabs":
		return elevenlabs.New(elevenlabs.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			ModelID:     cfg.ModelName,
			CostPerChar: cfg.CostPerChar,
			Timeout:     time.Duration(cfg.TimeoutSecond) * time.Second,
		}, logger), nil
	case "openai":
		return openaispeech.New(openaispeech.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.ModelName,
			CostPerChar: cfg.CostPerChar,
		}, logger), nil
	case "edge":
		return edge.New(edge.Config{DefaultVoice: cfg.Voice}, logger), nil
	default:
		return nil, platformerrors.New(platformerrors.KindConfig, "providers:register",
			fmt.Sprintf("provider %s has unknown type %q", name, cfg.Type))
	}
}

func buildServicesStep(ctx context.Context, state *appState) error {
	cfg := state.config

	engine, err := ffmpeg.New(cfg.Assembly.FFmpegPath, state.logger)
	if err != nil {
		return err
	}

	var classifier character.Classifier
	if cfg.Classifier.Type == "openai" && cfg.Classifier.APIKey != "" {
		classifier = character.NewLLMClassifier(character.LLMConfig{
			APIKey:  cfg.Classifier.APIKey,
			BaseURL: cfg.Classifier.BaseURL,
			Model:   cfg.Classifier.ModelName,
		}, state.logger)
	} else {
		classifier = character.NewHeuristicClassifier()
	}

	orchestrator := generation.NewOrchestrator(state.registry, generation.Options{
		BatchSize:        cfg.Generation.BatchSize,
		SynthesisTimeout: time.Duration(cfg.Generation.SynthesisTimeout) * time.Second,
		CloningTimeout:   time.Duration(cfg.Generation.CloningTimeout) * time.Second,
	}, state.logger)

	assembler := assembly.NewAssembler(engine, assembly.Options{
		TargetLUFS: cfg.Assembly.TargetLUFS,
		TruePeak:   cfg.Assembly.TruePeak,
		Bitrate:    cfg.Assembly.Bitrate,
		SampleRate: cfg.Assembly.SampleRate,
		Formats:    cfg.Assembly.Formats,
	}, state.logger)

	state.audiobook = services.NewAudiobookService(services.AudiobookServiceConfig{
		Logger:         state.logger,
		Registry:       state.registry,
		Segmenter:      script.NewSegmenter(),
		Classifier:     classifier,
		Matcher:        voice.NewMatcher(state.logger),
		Orchestrator:   orchestrator,
		Assembler:      assembler,
		Runs:           state.runs,
		Audiobooks:     state.audiobooks,
		OutputDir:      cfg.Storage.Dir + "/audiobooks",
		NarratorName:   cfg.Generation.NarratorName,
		NarratorGender: voice.Gender(cfg.Generation.NarratorGender),
	})
	return nil
}

func buildTransportStep(ctx context.Context, state *appState) error {
	router, err := httptransport.Build(httptransport.Options{
		Logger:   state.logger,
		LogLevel: state.config.Log.Level,
	})
	if err != nil {
		return err
	}

	api, err := httpwebapi.NewService(state.audiobook, state.logger)
	if err != nil {
		return err
	}
	if err := api.Register(ctx, router.API); err != nil {
		return err
	}

	state.hub = ws.NewHub(state.logger)
	state.relay = ws.NewRelay(state.hub, state.logger)
	if err := state.relay.Start(); err != nil {
		return err
	}
	router.Engine.GET("/ws/progress", ws.Handler(state.hub, state.logger))

	state.router = router
	return nil
}

func serve(ctx context.Context, state *appState) error {
	addr := fmt.Sprintf("%s:%d", state.config.Server.IP, state.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           state.router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		state.logger.InfoTag("Bootstrap", "serving on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return platformerrors.Wrap(platformerrors.KindTransport, "serve", "http server failed", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func teardown(state *appState) {
	if state.relay != nil {
		state.relay.Stop()
	}
	if state.catalog != nil {
		state.catalog.Close()
	}
	if state.obsStop != nil {
		state.obsStop(context.Background())
	}
	if state.logger != nil {
		state.logger.InfoTag("Bootstrap", "shutdown complete")
		state.logger.Close()
	}
}
