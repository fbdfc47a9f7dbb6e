// Package worker implements the single-goroutine job executor bound to a
// scheduler.JobManager's pool. A Worker runs one job's contract at a time
// on its own goroutine and reports completion back to whoever assigned
// it, identified by the job's table index.
package worker

import (
	"context"
	"fmt"

	"github.com/twitter/jobcore/job"
	log "github.com/twitter/jobcore/jobcorelog"
)

// Completion is delivered on a Worker's report channel when its assigned
// job's contract returns.
type Completion struct {
	Worker   *Worker
	JobIndex int
	Job      job.Job
	Outcome  job.Outcome
}

// Worker is a reusable executor. Zero value is not usable; construct with
// New.
type Worker struct {
	id       int
	jobIndex int
	running  bool
	reportCh chan<- Completion

	cancel context.CancelFunc
}

// New constructs an idle Worker that reports completions on reportCh. id
// is only used for logging.
func New(id int, reportCh chan<- Completion) *Worker {
	return &Worker{id: id, jobIndex: -1, reportCh: reportCh}
}

// JobIndex returns the table index of the job currently bound to this
// worker, or -1 if idle. This is the key the manager uses to map a
// completion back to a job-table slot.
func (w *Worker) JobIndex() int { return w.jobIndex }

// IsRunning reports whether this worker currently has a job assigned.
func (w *Worker) IsRunning() bool { return w.running }

// Assign binds jobIndex/j to this worker and starts its goroutine. The
// caller must ensure the worker is idle; Assign panics otherwise, since a
// double-assign indicates a dispatch-invariant violation in the manager.
func (w *Worker) Assign(jobIndex int, j job.Job) {
	if w.running {
		panic(fmt.Sprintf("worker %d: Assign called while running job %d", w.id, w.jobIndex))
	}
	w.running = true
	w.jobIndex = jobIndex

	if r, ok := j.(job.Resetter); ok {
		r.ResetForRun()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	go func() {
		log.Debugf("worker %d: starting job %d %q", w.id, jobIndex, j.Name())
		j.Run(ctx)
		outcome := job.Decide(j)
		log.Debugf("worker %d: job %d %q finished with outcome %s", w.id, jobIndex, j.Name(), outcome)
		w.reportCh <- Completion{Worker: w, JobIndex: jobIndex, Job: j, Outcome: outcome}
	}()
}

// release marks the worker idle. Called by the manager once it has
// consumed the Completion for this worker's current job.
func (w *Worker) release() {
	w.running = false
	w.jobIndex = -1
	w.cancel = nil
}

// Release is the exported form of release; the manager calls it under its
// own mutex after processing a Completion.
func (w *Worker) Release() { w.release() }

// Cancel requests that the job currently bound to this worker stop, by
// both cancelling its context and calling Job.Stop(). Safe to call from
// any goroutine; a no-op if the worker is idle.
func (w *Worker) Cancel(j job.Job) {
	if !w.running {
		return
	}
	j.Stop()
	if w.cancel != nil {
		w.cancel()
	}
}
