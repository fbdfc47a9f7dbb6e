package scheduler

import (
	"time"

	"github.com/twitter/jobcore/job"
)

// Config holds the JobManager options a caller can set before calling
// Start.
type Config struct {
	// ThreadCount is the size of the worker pool. Zero or negative means
	// use runtime.NumCPU().
	ThreadCount int

	// AllowedErrors is the number of jobs allowed to finish with a
	// non-zero error code before the manager transitions to the terminal
	// TooManyErrors state. Negative disables the cap. Default 0.
	AllowedErrors int

	// ProgressReportInterval is how often the manager emits a Progress
	// event while running. Zero disables periodic progress reporting,
	// including the final Progress(100) on successful completion.
	ProgressReportInterval time.Duration

	// ReportJobFinish, if true, makes the manager emit a JobCompleted
	// event for every job that terminates, whether it succeeded, errored,
	// or was cancelled.
	ReportJobFinish bool
}

// ErrorKind enumerates the terminal scheduler-level error conditions a
// listener's OnError callback can observe.
type ErrorKind int

const (
	// NoError is the zero value; never delivered to a listener.
	NoError ErrorKind = iota
	// TooManyErrors: errors exceeded AllowedErrors.
	TooManyErrors
	// NoJobReady: the waiting queue is non-empty but no job's CanStart
	// returned true and nothing is running — an unsatisfiable or
	// deadlocked dependency graph.
	NoJobReady
	// CouldNotStart: a session-level failure to (re)start the internal
	// JobManager for the next phase.
	CouldNotStart

	// ImplementationError is a defensive sentinel for states that should
	// be unreachable; its existence is itself a bug report.
	ImplementationError ErrorKind = 900

	// UserDefined is the first value in the range reserved for
	// caller-defined error kinds layered on top of this package's own.
	UserDefined ErrorKind = 1000
)

func (k ErrorKind) String() string {
	switch k {
	case NoError:
		return "NoError"
	case TooManyErrors:
		return "TooManyErrors"
	case NoJobReady:
		return "NoJobReady"
	case CouldNotStart:
		return "CouldNotStart"
	case ImplementationError:
		return "ImplementationError"
	default:
		return "UserDefined"
	}
}

// Status is the JobManager's coarse lifecycle state.
type Status int

const (
	StatusFinished Status = iota
	StatusRunning
	StatusStopped
	StatusErrorTerminal
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusFinished:
		return "Finished"
	case StatusStopped:
		return "Stopped"
	case StatusErrorTerminal:
		return "ErrorTerminal"
	default:
		return "Unknown"
	}
}

// Listener is a set of optional callbacks a caller registers with
// Subscribe. Every non-nil field is invoked for its corresponding event;
// a JobManager may have any number of listeners, invoked in registration
// order.
type Listener struct {
	// OnCompleted fires once all jobs have terminated with no unbudgeted
	// error and the run was not stopped.
	OnCompleted func()

	// OnJobCompleted fires once per terminated job, only if
	// Config.ReportJobFinish is set.
	OnJobCompleted func(j job.Job)

	// OnError fires exactly once per run on a terminal scheduler error.
	OnError func(kind ErrorKind)

	// OnStopped fires exactly once per run when Stop was observed and
	// every running job has terminated.
	OnStopped func()

	// OnProgress fires periodically (per Config.ProgressReportInterval)
	// and once more at 100 when the run completes successfully.
	OnProgress func(percent int)
}
