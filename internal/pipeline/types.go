package pipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageAcquire obtains the source tree.
	StageAcquire Stage = "acquire"
	// StageConfigure installs dependencies and declares build options.
	StageConfigure Stage = "configure"
	// StageBuild runs the native library build.
	StageBuild Stage = "build"
	// StageHarness compiles fuzz harnesses.
	StageHarness Stage = "harness"
	// StageAssets assembles corpus and dictionary.
	StageAssets Stage = "assets"
	// StageInclude exports the public headers.
	StageInclude Stage = "include"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the unit is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the unit is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the unit is done.
	StatusDone Status = "done"
	// StatusError indicates the unit encountered an error.
	StatusError Status = "error"
)

// Event reports progress for one unit (a harness name, or the overall
// phase when Unit is empty).
type Event struct {
	Unit    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Total returns the sum of all recorded durations.
func (t Timings) Total() time.Duration {
	var total time.Duration
	for _, dur := range t.stages {
		total += dur
	}
	return total
}
