// Package jobqueue implements a sequential Job adapter: a Job whose body
// runs an ordered list of sub-jobs, one at a time, on the worker thread
// it was assigned. Useful for composing a serial phase inside an
// otherwise parallel schedule.
package jobqueue

import (
	"context"

	"github.com/twitter/jobcore/job"
)

// JobQueue runs a fixed, ordered list of sub-jobs synchronously within a
// single Run invocation. Construct with New, then Append sub-jobs before
// submitting the queue itself to a scheduler.JobManager.
type JobQueue struct {
	job.BaseJob

	jobs    []job.Job
	current int // index of the sub-job in progress, or -1 before Run starts
}

// New constructs an empty JobQueue with the given display name.
func New(name string) *JobQueue {
	return &JobQueue{BaseJob: job.NewBaseJob(name), current: -1}
}

// Append adds a sub-job to the end of the queue. Must be called before
// the queue is submitted to a manager.
func (q *JobQueue) Append(j job.Job) {
	q.jobs = append(q.jobs, j)
}

// Len returns the number of sub-jobs in the queue.
func (q *JobQueue) Len() int { return len(q.jobs) }

// Progress returns (100*i + subjob.Progress())/n, where i is the index
// of the sub-job currently in progress and n is the total count.
func (q *JobQueue) Progress() int {
	n := len(q.jobs)
	if n == 0 {
		return 100
	}
	if q.current < 0 {
		return 0
	}
	if q.current >= n {
		return 100
	}
	return (100*q.current + q.jobs[q.current].Progress()) / n
}

// Run executes every sub-job's contract in order on this goroutine,
// aborting as soon as a sub-job reports a non-zero error code or the
// queue itself observes cancellation. The aborting sub-job's error is
// propagated onto the queue via ReportError.
func (q *JobQueue) Run(ctx context.Context) {
	for q.current = 0; q.current < len(q.jobs); q.current++ {
		select {
		case <-ctx.Done():
			q.Stop()
			return
		default:
		}
		if q.Cancelled() {
			return
		}

		sub := q.jobs[q.current]
		if r, ok := sub.(job.Resetter); ok {
			r.ResetForRun()
		}
		sub.Run(ctx)
		if code := sub.ErrorCode(); code > 0 {
			q.ReportError(code)
			return
		}
	}
}
