// Package job defines the unit of work executed by a scheduler.JobManager:
// the Job contract, its lifecycle flags, and dependency bookkeeping.
package job

import (
	"context"

	uuid "github.com/nu7hatch/gouuid"
)

// Job is the contract the scheduler invokes. Callers embed BaseJob and
// implement Run; the rest of the interface is satisfied by BaseJob's
// default implementations, which subclasses may override (canStart in
// particular is commonly extended, never narrowed).
type Job interface {
	// ID is a stable identifier assigned at construction, independent of
	// table position.
	ID() string

	// Name is the caller-set opaque display name; may be empty.
	Name() string

	// Run performs the work. Invoked on the worker's goroutine exactly
	// once. It must consult ctx.Done() (or Cancelled()) and return
	// promptly once the context is cancelled. On failure it calls
	// ReportError with a positive code; it must not itself emit any
	// scheduler event.
	Run(ctx context.Context)

	// Progress returns a 0..100 completion hint. The BaseJob default is
	// 0 before Finished and 100 after.
	Progress() int

	// CanStart returns true iff every dependency has reached
	// Finished()==true. The BaseJob default prunes finished dependencies
	// from the front of the list and returns true once it's empty.
	CanStart() bool

	// NextSpawnedJob is polled by the manager after Run returns, until it
	// returns nil. Each non-nil result is appended to the job table and
	// marked spawned.
	NextSpawnedJob() Job

	// Cleanup runs after the spawn drain and before dispatch continues.
	// The BaseJob default promotes Finished to true iff ErrorCode()==0
	// and the job was not cancelled.
	Cleanup()

	// ReportError records a positive failure code. Safe to call only from
	// within Run.
	ReportError(code int)

	// Stop requests cancellation. Safe from any goroutine.
	Stop()

	// Cancelled reports whether Stop was called.
	Cancelled() bool

	// ErrorCode returns the code set by ReportError, or 0.
	ErrorCode() int

	// Finished reports the terminal success flag.
	Finished() bool

	// Spawned reports whether this job was produced by another job's
	// NextSpawnedJob rather than submitted directly by the caller.
	Spawned() bool

	// AddDependency registers a strong predecessor reference. Must be
	// called before the job is submitted to a manager.
	AddDependency(dep Job)

	// Setting the spawned flag is not part of this interface; the
	// scheduler package does it through the SpawnMarker interface below.
}

// SpawnMarker is implemented by BaseJob; the scheduler package uses it to
// flag a job returned by NextSpawnedJob as spawned. The mutator is kept
// out of the Job interface, but BaseJob.MarkSpawned is exported and can
// be called by any code holding the job.
type SpawnMarker interface {
	MarkSpawned()
}

// BaseJob implements every Job method except Run. Embed it by value in a
// concrete job type and implement Run on the concrete type.
//
//	type SumJob struct {
//		job.BaseJob
//		N   int
//		Sum int
//	}
//
//	func (j *SumJob) Run(ctx context.Context) {
//		for i := 1; i <= j.N; i++ {
//			select {
//			case <-ctx.Done():
//				return
//			default:
//			}
//			j.Sum += i
//		}
//	}
type BaseJob struct {
	id   string
	name string

	cancelled bool
	errCode   int
	finished  bool
	spawned   bool

	deps []Job
}

// NewBaseJob constructs a BaseJob with the given display name (may be
// empty) and a fresh stable ID.
func NewBaseJob(name string) BaseJob {
	id := ""
	if u, err := uuid.NewV4(); err == nil {
		id = u.String()
	}
	return BaseJob{id: id, name: name}
}

func (b *BaseJob) ID() string   { return b.id }
func (b *BaseJob) Name() string { return b.name }

// Progress returns 0 before Finished, 100 after. Override for finer-
// grained reporting.
func (b *BaseJob) Progress() int {
	if b.finished {
		return 100
	}
	return 0
}

// CanStart prunes dependencies off the front of the list while the front
// is Finished, then reports whether the list is empty. Note this only
// looks at the front: a dependency later in the list that finished out of
// order does not unblock the job until every dependency ahead of it in
// the list has also finished.
func (b *BaseJob) CanStart() bool {
	for len(b.deps) > 0 && b.deps[0].Finished() {
		b.deps = b.deps[1:]
	}
	return len(b.deps) == 0
}

// NextSpawnedJob returns nil; override to spawn children.
func (b *BaseJob) NextSpawnedJob() Job { return nil }

// Cleanup promotes Finished to true iff the job did not error or cancel.
// Overrides that release resources must call BaseJob.Cleanup first.
func (b *BaseJob) Cleanup() {
	if b.errCode == 0 && !b.cancelled {
		b.finished = true
	}
}

func (b *BaseJob) ReportError(code int) { b.errCode = code }
func (b *BaseJob) Stop()                { b.cancelled = true }
func (b *BaseJob) Cancelled() bool      { return b.cancelled }
func (b *BaseJob) ErrorCode() int       { return b.errCode }
func (b *BaseJob) Finished() bool       { return b.finished }
func (b *BaseJob) Spawned() bool        { return b.spawned }
func (b *BaseJob) MarkSpawned()         { b.spawned = true }

// AddDependency registers dep as a predecessor. Nil is ignored.
func (b *BaseJob) AddDependency(dep Job) {
	if dep == nil {
		return
	}
	b.deps = append(b.deps, dep)
}

// resetForRun clears the per-run state the contract wrapper is
// responsible for resetting before each Run invocation.
func (b *BaseJob) resetForRun() {
	b.cancelled = false
	b.errCode = 0
}

// Resetter is implemented by BaseJob; the worker package uses it to reset
// cancel/error state immediately before invoking Run.
type Resetter interface {
	ResetForRun()
}

// ResetForRun is the exported form of resetForRun, invoked once per
// scheduling by the worker's contract wrapper.
func (b *BaseJob) ResetForRun() { b.resetForRun() }
