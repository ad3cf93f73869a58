package eventbus

// Topic definitions.
const (
	// Generation run lifecycle.
	EventGenerationProgress = "generation:progress"
	EventGenerationComplete = "generation:complete"
	EventGenerationError    = "generation:error"

	// Synthesis provider activity.
	EventSynthesisFallback = "synthesis:fallback"

	// Assembly stage.
	EventAssemblyComplete = "assembly:complete"

	// System events.
	EventSystemError = "system:error"
	EventSystemInfo  = "system:info"
)

// ProgressEventData is published on EventGenerationProgress at every
// checkpoint of a run.
type ProgressEventData struct {
	RunID           string  `json:"run_id"`
	Stage           string  `json:"stage"`
	PercentComplete float64 `json:"percent_complete"`
	CurrentBatch    int     `json:"current_batch,omitempty"`
	TotalBatches    int     `json:"total_batches,omitempty"`
	UnitsDone       int     `json:"units_done,omitempty"`
	UnitsTotal      int     `json:"units_total,omitempty"`
	Message         string  `json:"message,omitempty"`
}

// FallbackEventData is published when the primary provider failed for a unit
// and the fallback path was taken.
type FallbackEventData struct {
	RunID    string `json:"run_id"`
	Sequence int    `json:"sequence"`
	Primary  string `json:"primary"`
	Fallback string `json:"fallback"`
	Cause    string `json:"cause"`
}

// CompleteEventData is published once a run finished assembling.
type CompleteEventData struct {
	RunID           string   `json:"run_id"`
	DurationSeconds float64  `json:"duration_seconds"`
	CostUSD         float64  `json:"cost_usd"`
	Formats         []string `json:"formats"`
}

// SystemEventData carries out-of-band system information.
type SystemEventData struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
