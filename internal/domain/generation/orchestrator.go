package generation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"storyvoice-server-go/internal/domain/eventbus"
	"storyvoice-server-go/internal/domain/script"
	"storyvoice-server-go/internal/domain/synthesis"
	"storyvoice-server-go/internal/domain/synthesis/inter"
	"storyvoice-server-go/internal/domain/voice"
	platformerrors "storyvoice-server-go/internal/platform/errors"
	"storyvoice-server-go/internal/platform/logging"
)

// NarratorSentinel is the assignment key for units without a speaker, and
// the fallback for dialogue whose speaker has no assignment of its own.
const NarratorSentinel = "narrator"

// SynthesizedFragment is the output of one provider call, keyed back to its
// originating unit's sequence number. Fragments only live for the duration
// of one generation run.
type SynthesizedFragment struct {
	Sequence int
	Audio    []byte
	Format   string
	Duration float64
	Cost     float64
	Provider string
}

// Options tune a generation run.
type Options struct {
	BatchSize        int
	SynthesisTimeout time.Duration
	CloningTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 5
	}
	if o.SynthesisTimeout <= 0 {
		o.SynthesisTimeout = 60 * time.Second
	}
	if o.CloningTimeout <= 0 {
		o.CloningTimeout = 5 * time.Minute
	}
	return o
}

// Orchestrator drives narration units through the synthesis providers:
// fixed-size batches, concurrent dispatch within a batch, primary-then-
// fallback provider attempts, and ordered progress events.
type Orchestrator struct {
	registry *synthesis.Registry
	opts     Options
	logger   *logging.Logger
}

func NewOrchestrator(registry *synthesis.Registry, opts Options, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Progress checkpoints. Batches advance linearly through the generating
// band; the ends are reserved for analysis and finalization.
const (
	percentAnalyzed   = 5.0
	percentGenerated  = 90.0
	percentFinalizing = 95.0
)

// Generate synthesizes every unit and returns fragments in strict sequence
// order. The run fails wholly on the first unit for which every provider
// attempt failed; no partial fragment list is ever returned.
func (o *Orchestrator) Generate(ctx context.Context, runID string, units []script.NarrationUnit, assignments map[string]voice.VoiceAssignment, sink ProgressSink) ([]SynthesizedFragment, error) {
	t := newTracker(runID, sink)
	t.emit(StageAnalyzing, 0, eventbus.ProgressEventData{
		UnitsTotal: len(units),
		Message:    "run started",
	})

	// Every unit must resolve to an assignment before any synthesis work
	// begins; a missing one is a fatal precondition violation.
	for _, unit := range units {
		if _, err := resolveAssignment(unit, assignments); err != nil {
			t.emit(StageError, 0, eventbus.ProgressEventData{Message: err.Error()})
			return nil, err
		}
	}

	totalBatches := (len(units) + o.opts.BatchSize - 1) / o.opts.BatchSize
	t.emit(StageAnalyzing, percentAnalyzed, eventbus.ProgressEventData{
		UnitsTotal:   len(units),
		TotalBatches: totalBatches,
		Message:      fmt.Sprintf("%d units across %d batches", len(units), totalBatches),
	})

	fragments := make([]SynthesizedFragment, 0, len(units))
	unitsDone := 0

	for batchNum := 0; batchNum*o.opts.BatchSize < len(units); batchNum++ {
		// Cancellation is observed at every batch boundary.
		if err := ctx.Err(); err != nil {
			wrapped := platformerrors.Wrap(platformerrors.KindProvider, "generate", "run cancelled", err)
			t.emit(StageError, 0, eventbus.ProgressEventData{Message: wrapped.Error()})
			return nil, wrapped
		}

		start := batchNum * o.opts.BatchSize
		end := start + o.opts.BatchSize
		if end > len(units) {
			end = len(units)
		}
		batch := units[start:end]

		// Index-addressed buffer: completion order within the batch is
		// unconstrained, placement keeps sequence order.
		results := make([]SynthesizedFragment, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, unit := range batch {
			i, unit := i, unit
			g.Go(func() error {
				fragment, err := o.synthesizeUnit(gctx, runID, unit, assignments)
				if err != nil {
					return err
				}
				results[i] = *fragment
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.emit(StageError, 0, eventbus.ProgressEventData{
				CurrentBatch: batchNum + 1,
				TotalBatches: totalBatches,
				Message:      err.Error(),
			})
			return nil, err
		}

		fragments = append(fragments, results...)
		unitsDone += len(batch)

		percent := percentAnalyzed + (percentGenerated-percentAnalyzed)*float64(batchNum+1)/float64(totalBatches)
		t.emit(StageGenerating, percent, eventbus.ProgressEventData{
			CurrentBatch: batchNum + 1,
			TotalBatches: totalBatches,
			UnitsDone:    unitsDone,
			UnitsTotal:   len(units),
			Message:      fmt.Sprintf("batch %d/%d complete", batchNum+1, totalBatches),
		})
	}

	t.emit(StageFinalizing, percentFinalizing, eventbus.ProgressEventData{
		UnitsDone:  unitsDone,
		UnitsTotal: len(units),
		Message:    "synthesis complete",
	})
	return fragments, nil
}

// Complete emits the terminal progress event for a successful run. The
// caller invokes it after assembly so 100% really means a finished product.
func (o *Orchestrator) Complete(runID string, sink ProgressSink) {
	newTracker(runID, sink).emit(StageComplete, 100, eventbus.ProgressEventData{
		Message: "audiobook ready",
	})
}

// resolveAssignment maps a unit to its voice assignment: the speaker's own
// assignment when present, otherwise the narrator sentinel.
func resolveAssignment(unit script.NarrationUnit, assignments map[string]voice.VoiceAssignment) (voice.VoiceAssignment, error) {
	if unit.Speaker != "" {
		if assignment, ok := assignments[unit.Speaker]; ok {
			return assignment, nil
		}
	}
	if assignment, ok := assignments[NarratorSentinel]; ok {
		return assignment, nil
	}
	return voice.VoiceAssignment{}, platformerrors.New(platformerrors.KindValidation, "generate",
		fmt.Sprintf("unit %d: no voice assignment for speaker %q and no narrator assignment",
			unit.Sequence, unit.Speaker))
}

// synthesizeUnit runs the primary-then-fallback attempt chain for one unit.
func (o *Orchestrator) synthesizeUnit(ctx context.Context, runID string, unit script.NarrationUnit, assignments map[string]voice.VoiceAssignment) (*SynthesizedFragment, error) {
	assignment, err := resolveAssignment(unit, assignments)
	if err != nil {
		return nil, err
	}

	req := inter.Request{
		Text:     unit.Text,
		VoiceID:  assignment.Voice.ID,
		Settings: assignment.Settings,
	}
	if unit.Emotion != nil {
		req.Emotion = unit.Emotion.Kind
	}

	primary := o.registry.Primary()
	result, primaryErr := o.attempt(ctx, primary, req)
	if primaryErr == nil {
		return o.fragment(unit, result), nil
	}

	fallback := o.registry.Fallback()
	if fallback == nil {
		return nil, platformerrors.Wrap(platformerrors.KindExhaustion, "generate",
			fmt.Sprintf("unit %d: primary provider failed and no fallback is configured", unit.Sequence),
			primaryErr)
	}

	if o.logger != nil {
		o.logger.WarnTag("Generate", "unit %d: %s failed (%v), trying %s",
			unit.Sequence, primary.Name(), primaryErr, fallback.Name())
	}
	eventbus.Publish(eventbus.EventSynthesisFallback, eventbus.FallbackEventData{
		RunID:    runID,
		Sequence: unit.Sequence,
		Primary:  primary.Name(),
		Fallback: fallback.Name(),
		Cause:    primaryErr.Error(),
	})

	result, fallbackErr := o.attempt(ctx, fallback, req)
	if fallbackErr != nil {
		return nil, platformerrors.Wrap(platformerrors.KindExhaustion, "generate",
			fmt.Sprintf("unit %d: all providers failed (primary: %v)", unit.Sequence, primaryErr),
			fallbackErr)
	}
	return o.fragment(unit, result), nil
}

// attempt runs one provider call under its own timeout. Cloning-capable
// providers get the longer ceiling.
func (o *Orchestrator) attempt(ctx context.Context, provider inter.Provider, req inter.Request) (*inter.Result, error) {
	timeout := o.opts.SynthesisTimeout
	if provider.SupportsCloning() {
		timeout = o.opts.CloningTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return provider.Synthesize(callCtx, req)
}

func (o *Orchestrator) fragment(unit script.NarrationUnit, result *inter.Result) *SynthesizedFragment {
	return &SynthesizedFragment{
		Sequence: unit.Sequence,
		Audio:    result.Audio,
		Format:   result.Format,
		Duration: result.Duration,
		Cost:     result.Cost,
		Provider: result.Provider,
	}
}
