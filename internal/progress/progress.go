package progress

import "time"

// Stage identifies which batch stage is active.
type Stage string

const (
	StagePlan       Stage = "plan"
	StageEstimate   Stage = "estimate"
	StageSynthesize Stage = "synthesize"
	StageTag        Stage = "tag"
	StageComplete   Stage = "complete"
)

// Event carries progress information from the batch processor to the renderer.
type Event struct {
	Stage   Stage
	Message string
	Percent float64 // 0.0–1.0
	// Part and PartTotal count parts across the whole batch.
	Part      int
	PartTotal int
	Elapsed   time.Duration
	// EstimatedCost is set on StageEstimate, in US dollars.
	EstimatedCost float64
	// OutputFile is set on StageTag and on parts that already exist.
	OutputFile string
	// Synthesized and Skipped are set on StageComplete.
	Synthesized int
	Skipped     int
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// Func receives fine-grained progress from a single long operation.
// current never decreases between calls for one operation.
type Func func(message string, current, max int)

// NopFunc ignores progress.
func NopFunc(string, int, int) {}
