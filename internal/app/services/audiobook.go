// Package services hosts the application layer: use cases wiring the domain
// pipeline together behind transport-agnostic operations.
package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"storyvoice-server-go/internal/domain/assembly"
	"storyvoice-server-go/internal/domain/character"
	"storyvoice-server-go/internal/domain/eventbus"
	"storyvoice-server-go/internal/domain/generation"
	"storyvoice-server-go/internal/domain/script"
	"storyvoice-server-go/internal/domain/synthesis"
	"storyvoice-server-go/internal/domain/voice"
	platformerrors "storyvoice-server-go/internal/platform/errors"
	"storyvoice-server-go/internal/platform/logging"
	"storyvoice-server-go/internal/platform/storage"
)

// GenerationRequest is one audiobook production order.
type GenerationRequest struct {
	Title    string           `json:"title"`
	Author   string           `json:"author"`
	Language string           `json:"language"`
	Chapters []script.Chapter `json:"chapters"`
}

// RunStatus is the externally visible state of a run.
type RunStatus struct {
	RunID      string                    `json:"run_id"`
	Title      string                    `json:"title"`
	Status     string                    `json:"status"`
	UnitCount  int                       `json:"unit_count"`
	Error      string                    `json:"error,omitempty"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt *time.Time                `json:"finished_at,omitempty"`
	Artifacts  []storage.AudiobookRecord `json:"artifacts,omitempty"`
}

// AudiobookServiceConfig carries the service's collaborators.
type AudiobookServiceConfig struct {
	Logger       *logging.Logger
	Registry     *synthesis.Registry
	Segmenter    *script.Segmenter
	Classifier   character.Classifier
	Matcher      *voice.Matcher
	Orchestrator *generation.Orchestrator
	Assembler    *assembly.Assembler
	Runs         *storage.RunRepository
	Audiobooks   *storage.AudiobookRepository
	OutputDir    string
	// Narrator shapes the default voice every unassigned unit falls back to.
	NarratorName   string
	NarratorGender voice.Gender
}

// AudiobookService runs the full text-to-audiobook pipeline. Submissions run
// asynchronously; progress is observable over the event bus, results through
// Status.
type AudiobookService struct {
	cfg AudiobookServiceConfig

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewAudiobookService(cfg AudiobookServiceConfig) *AudiobookService {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./data/audiobooks"
	}
	if cfg.NarratorName == "" {
		cfg.NarratorName = generation.NarratorSentinel
	}
	if cfg.NarratorGender == "" {
		cfg.NarratorGender = voice.GenderNeutral
	}
	return &AudiobookService{
		cfg:    cfg,
		active: make(map[string]context.CancelFunc),
	}
}

// Submit validates the request, records the run, and starts the pipeline in
// the background. The returned run ID is immediately pollable.
func (s *AudiobookService) Submit(ctx context.Context, req GenerationRequest) (string, error) {
	if req.Title == "" {
		return "", platformerrors.New(platformerrors.KindValidation, "audiobook.submit", "title is required")
	}
	nonEmpty := false
	for _, ch := range req.Chapters {
		if len(ch.Text) > 0 {
			nonEmpty = true
			break
		}
	}
	if !nonEmpty {
		return "", platformerrors.New(platformerrors.KindValidation, "audiobook.submit", "no chapter text to narrate")
	}

	runID := uuid.NewString()
	if s.cfg.Runs != nil {
		record := &storage.GenerationRun{
			RunID:     runID,
			Title:     req.Title,
			Author:    req.Author,
			Status:    storage.RunStatusPending,
			StartedAt: time.Now(),
		}
		if err := s.cfg.Runs.Create(ctx, record); err != nil {
			return "", err
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.active[runID] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.active, runID)
			s.mu.Unlock()
		}()
		s.run(runCtx, runID, req)
	}()

	return runID, nil
}

// Cancel aborts an in-flight run. Canceling an unknown or finished run is a
// no-op returning false.
func (s *AudiobookService) Cancel(runID string) bool {
	s.mu.Lock()
	cancel, ok := s.active[runID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Status reports the durable state of a run plus its artifacts.
func (s *AudiobookService) Status(ctx context.Context, runID string) (*RunStatus, error) {
	if s.cfg.Runs == nil {
		return nil, platformerrors.New(platformerrors.KindStorage, "audiobook.status", "run storage is not configured")
	}
	run, err := s.cfg.Runs.FindByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, platformerrors.New(platformerrors.KindValidation, "audiobook.status",
			fmt.Sprintf("unknown run %q", runID))
	}

	status := &RunStatus{
		RunID:      run.RunID,
		Title:      run.Title,
		Status:     run.Status,
		UnitCount:  run.UnitCount,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if s.cfg.Audiobooks != nil && run.Status == storage.RunStatusComplete {
		artifacts, err := s.cfg.Audiobooks.ListByRunID(ctx, runID)
		if err != nil {
			return nil, err
		}
		status.Artifacts = artifacts
	}
	return status, nil
}

// List returns recent runs, newest first.
func (s *AudiobookService) List(ctx context.Context, limit int) ([]storage.GenerationRun, error) {
	if s.cfg.Runs == nil {
		return nil, platformerrors.New(platformerrors.KindStorage, "audiobook.list", "run storage is not configured")
	}
	return s.cfg.Runs.List(ctx, limit)
}

// Voices returns the aggregated provider voice pool.
func (s *AudiobookService) Voices(ctx context.Context) ([]voice.VoiceProfile, error) {
	return s.cfg.Registry.VoicePool(ctx)
}

// run executes the pipeline for one submission. All failures are terminal
// for the run and surface through the run record and the event bus.
func (s *AudiobookService) run(ctx context.Context, runID string, req GenerationRequest) {
	sink := generation.BusSink{}
	s.setStatus(runID, storage.RunStatusRunning, "")

	units := s.cfg.Segmenter.Segment(req.Chapters)
	if len(units) == 0 {
		s.fail(runID, platformerrors.New(platformerrors.KindValidation, "audiobook.run", "segmentation produced no units"))
		return
	}
	s.setUnitCount(runID, len(units))

	// A classifier outage degrades the run to narrator-only voicing.
	var analysis *character.Analysis
	if s.cfg.Classifier != nil {
		a, err := s.cfg.Classifier.Analyze(ctx, units)
		if err != nil {
			s.cfg.Logger.WarnTag("Voice", "classifier failed, narrating without cast: %v", err)
		} else {
			analysis = a
		}
	}
	units = character.Annotate(units, analysis)

	pool, err := s.cfg.Registry.VoicePool(ctx)
	if err != nil {
		s.fail(runID, err)
		return
	}

	assignments := s.castVoices(runID, analysis, pool)
	narrator, err := s.narratorAssignment(pool)
	if err != nil {
		s.fail(runID, err)
		return
	}
	assignments[generation.NarratorSentinel] = *narrator
	s.persistCast(runID, assignments)

	fragments, err := s.cfg.Orchestrator.Generate(ctx, runID, units, assignments, sink)
	if err != nil {
		s.fail(runID, err)
		return
	}

	book, err := s.cfg.Assembler.Assemble(ctx, assembly.Input{
		Chapters:  req.Chapters,
		Units:     units,
		Fragments: fragments,
		Metadata: assembly.Metadata{
			Title:    req.Title,
			Author:   req.Author,
			Narrator: s.cfg.NarratorName,
			Language: req.Language,
		},
	})
	if err != nil {
		s.fail(runID, err)
		return
	}

	if err := s.persistArtifacts(ctx, runID, book); err != nil {
		s.fail(runID, err)
		return
	}

	s.cfg.Orchestrator.Complete(runID, sink)
	s.setStatus(runID, storage.RunStatusComplete, "")

	formats := make([]string, len(book.Files))
	for i, f := range book.Files {
		formats[i] = f.Format
	}
	eventbus.Publish(eventbus.EventGenerationComplete, eventbus.CompleteEventData{
		RunID:           runID,
		DurationSeconds: book.TotalDuration,
		CostUSD:         book.TotalCost,
		Formats:         formats,
	})
	s.cfg.Logger.InfoTag("Generate", "run %s complete: %.1fs of audio, $%.4f", runID, book.TotalDuration, book.TotalCost)
}

// castVoices matches every classified character to a voice. Unmatched
// characters fall back to the narrator voice downstream; matching never
// aborts a run.
func (s *AudiobookService) castVoices(runID string, analysis *character.Analysis, pool []voice.VoiceProfile) map[string]voice.VoiceAssignment {
	assignments := make(map[string]voice.VoiceAssignment)
	if analysis == nil || len(analysis.Characters) == 0 {
		return assignments
	}

	matched, failures := s.cfg.Matcher.MatchAll(analysis.Characters, pool)
	for _, assignment := range matched {
		assignments[assignment.Character] = assignment
	}
	for name, err := range failures {
		s.cfg.Logger.WarnTag("Voice", "run %s: no voice for %q, using narrator: %v", runID, name, err)
	}
	return assignments
}

// narratorAssignment picks the narrator voice. When no pool voice survives
// the narrator profile's filters, the first pool voice serves, so a run
// never fails for want of a narrator.
func (s *AudiobookService) narratorAssignment(pool []voice.VoiceProfile) (*voice.VoiceAssignment, error) {
	if len(pool) == 0 {
		return nil, platformerrors.New(platformerrors.KindProvider, "audiobook.cast", "voice pool is empty")
	}

	profile := voice.CharacterProfile{
		Name:           generation.NarratorSentinel,
		Age:            40,
		Gender:         s.cfg.NarratorGender,
		Tones:          []string{"warm", "clear", "steady"},
		EmotionalRange: voice.RangeMedium,
	}
	if assignment, err := s.cfg.Matcher.Match(profile, pool); err == nil {
		return assignment, nil
	}

	first := pool[0]
	return &voice.VoiceAssignment{
		Character: generation.NarratorSentinel,
		Voice:     first,
		Settings:  voice.OptimizeSettings(first, profile),
	}, nil
}

// persistArtifacts writes every encoded rendition to disk and records it.
func (s *AudiobookService) persistArtifacts(ctx context.Context, runID string, book *assembly.AssembledAudiobook) error {
	dir := filepath.Join(s.cfg.OutputDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "audiobook.persist", "failed to create output dir", err)
	}

	chapters, err := sonic.Marshal(book.Chapters)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "audiobook.persist", "failed to encode chapters", err)
	}

	for _, file := range book.Files {
		path := filepath.Join(dir, "audiobook."+file.Format)
		if err := os.WriteFile(path, file.Audio, 0o644); err != nil {
			return platformerrors.Wrap(platformerrors.KindStorage, "audiobook.persist",
				fmt.Sprintf("failed to write %s output", file.Format), err)
		}
		if s.cfg.Audiobooks == nil {
			continue
		}
		record := &storage.AudiobookRecord{
			RunID:         runID,
			Format:        file.Format,
			Path:          path,
			SizeBytes:     int64(len(file.Audio)),
			TotalDuration: book.TotalDuration,
			TotalCost:     book.TotalCost,
			Chapters:      chapters,
		}
		if err := s.cfg.Audiobooks.Create(ctx, record); err != nil {
			return err
		}
	}

	eventbus.Publish(eventbus.EventAssemblyComplete, eventbus.CompleteEventData{
		RunID:           runID,
		DurationSeconds: book.TotalDuration,
		CostUSD:         book.TotalCost,
	})
	return nil
}

func (s *AudiobookService) persistCast(runID string, assignments map[string]voice.VoiceAssignment) {
	if s.cfg.Runs == nil {
		return
	}
	cast, err := sonic.Marshal(assignments)
	if err != nil {
		s.cfg.Logger.WarnTag("Storage", "run %s: failed to encode cast: %v", runID, err)
		return
	}
	if err := s.cfg.Runs.SetCast(context.Background(), runID, cast); err != nil {
		s.cfg.Logger.WarnTag("Storage", "run %s: failed to persist cast: %v", runID, err)
	}
}

func (s *AudiobookService) setUnitCount(runID string, count int) {
	if s.cfg.Runs == nil {
		return
	}
	if err := s.cfg.Runs.SetUnitCount(context.Background(), runID, count); err != nil {
		s.cfg.Logger.WarnTag("Storage", "run %s: unit count update failed: %v", runID, err)
	}
}

func (s *AudiobookService) setStatus(runID, status, errMsg string) {
	if s.cfg.Runs == nil {
		return
	}
	if err := s.cfg.Runs.SetStatus(context.Background(), runID, status, errMsg); err != nil {
		s.cfg.Logger.WarnTag("Storage", "run %s: status update failed: %v", runID, err)
	}
}

func (s *AudiobookService) fail(runID string, cause error) {
	s.setStatus(runID, storage.RunStatusFailed, cause.Error())
	eventbus.Publish(eventbus.EventGenerationError, eventbus.ProgressEventData{
		RunID:   runID,
		Stage:   string(generation.StageError),
		Message: cause.Error(),
	})
	s.cfg.Logger.ErrorTag("Generate", "run %s failed: %v", runID, cause)
}
