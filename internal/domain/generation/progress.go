package generation

import (
	"sync"

	"storyvoice-server-go/internal/domain/eventbus"
)

// Stage names for the run state machine.
type Stage string

const (
	StageAnalyzing  Stage = "analyzing"
	StageGenerating Stage = "generating"
	StageFinalizing Stage = "finalizing"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// ProgressSink receives ordered progress events. Delivery is best-effort:
// the pipeline never blocks on, or fails because of, a sink.
type ProgressSink interface {
	Publish(event eventbus.ProgressEventData)
}

// SinkFunc adapts a function to the ProgressSink interface.
type SinkFunc func(event eventbus.ProgressEventData)

func (f SinkFunc) Publish(event eventbus.ProgressEventData) { f(event) }

// NopSink discards all events.
var NopSink = SinkFunc(func(eventbus.ProgressEventData) {})

// BusSink publishes progress onto the process event bus, where the WebSocket
// relay and any other subscriber picks it up.
type BusSink struct{}

func (BusSink) Publish(event eventbus.ProgressEventData) {
	eventbus.Publish(eventbus.EventGenerationProgress, event)
}

// tracker serializes progress emission and enforces that percent-complete
// never decreases, whatever order checkpoints fire in.
type tracker struct {
	mu      sync.Mutex
	runID   string
	sink    ProgressSink
	percent float64
}

func newTracker(runID string, sink ProgressSink) *tracker {
	if sink == nil {
		sink = NopSink
	}
	return &tracker{runID: runID, sink: sink}
}

func (t *tracker) emit(stage Stage, percent float64, event eventbus.ProgressEventData) {
	t.mu.Lock()
	if percent < t.percent {
		percent = t.percent
	}
	t.percent = percent
	t.mu.Unlock()

	event.RunID = t.runID
	event.Stage = string(stage)
	event.PercentComplete = percent
	t.sink.Publish(event)
}
