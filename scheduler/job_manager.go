// Package scheduler implements the dispatch core: JobManager owns a
// fixed worker pool, a job table, a waiting queue of not-yet-dispatched
// job indices, and drives the state machine that guarantees every
// submitted job is terminally accounted for exactly once.
//
// The shape of this file — a documented Config, a struct guarded by one
// mutex, a background loop reacting to worker completions, listener
// callbacks invoked outside the lock — follows the update-loop pattern
// of a stateful scheduler with cluster/task assignment replaced by a
// dependency-queue dispatch algorithm.
package scheduler

import (
	"runtime"
	"sync"
	"time"

	"github.com/twitter/jobcore/job"
	"github.com/twitter/jobcore/jobcorestats"
	"github.com/twitter/jobcore/worker"
)

// JobManager dispatches jobs from a table onto a bounded worker pool,
// respecting per-job dependencies and an error budget. Construct with
// NewJobManager; the zero value is not usable.
type JobManager struct {
	mu sync.Mutex

	cfg Config
	// stat is intentionally not swappable after construction: sharing
	// one scoped receiver for the manager's lifetime keeps counters
	// cumulative across sessions.
	stat jobcorestats.StatsReceiver

	jobs    []job.Job
	waiting []int

	workers []*worker.Worker
	idle    []*worker.Worker

	reportCh chan worker.Completion

	started  int
	running  int
	finished int
	errors   int

	stopFlag  bool
	status    Status
	lastError ErrorKind

	progressStop chan struct{}

	listeners []Listener
}

// NewJobManager constructs a JobManager with the given config and an
// idle worker pool of Config.ThreadCount workers (or runtime.NumCPU() if
// ThreadCount <= 0). stat may be nil, in which case a
// jobcorestats.NilStatsReceiver is used.
func NewJobManager(cfg Config, stat jobcorestats.StatsReceiver) *JobManager {
	if stat == nil {
		stat = jobcorestats.NilStatsReceiver()
	}
	m := &JobManager{
		cfg:      cfg,
		stat:     stat.Scope("jobmanager"),
		status:   StatusFinished,
		reportCh: make(chan worker.Completion),
	}
	m.allocateWorkersLocked(threadCount(cfg.ThreadCount))
	go m.completionLoop()
	return m
}

func threadCount(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Subscribe registers l; every non-nil callback in l is invoked for its
// event on every future run. Safe to call at any time.
func (m *JobManager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// AppendJob takes ownership of j, appends it to the job table, and
// enqueues it in the waiting queue. Safe to call while running; the job
// is picked up on the next dispatch tick.
func (m *JobManager) AppendJob(j job.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendJobLocked(j)
}

func (m *JobManager) appendJobLocked(j job.Job) {
	idx := len(m.jobs)
	m.jobs = append(m.jobs, j)
	m.waiting = append(m.waiting, idx)
}

// Clear resets the job table, waiting queue, and counters. It is a no-op
// if the manager is currently running.
func (m *JobManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusRunning {
		return
	}
	m.jobs = nil
	m.waiting = nil
	m.started = 0
	m.running = 0
	m.finished = 0
	m.errors = 0
	m.stopFlag = false
	m.lastError = NoError
}

// SetThreadCount reallocates the worker pool. No-op while running.
func (m *JobManager) SetThreadCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusRunning {
		return
	}
	m.allocateWorkersLocked(threadCount(n))
}

func (m *JobManager) allocateWorkersLocked(n int) {
	m.workers = make([]*worker.Worker, 0, n)
	m.idle = make([]*worker.Worker, 0, n)
	for i := 0; i < n; i++ {
		w := worker.New(i, m.reportCh)
		m.workers = append(m.workers, w)
		m.idle = append(m.idle, w)
	}
}

// AddThreads adds n idle workers to the pool. Valid at any time,
// including mid-run: each new worker triggers one dispatch attempt if
// waiting jobs exist.
func (m *JobManager) AddThreads(n int) {
	m.mu.Lock()
	var events []func()
	for i := 0; i < n; i++ {
		w := worker.New(len(m.workers), m.reportCh)
		m.workers = append(m.workers, w)
		m.idle = append(m.idle, w)
		if m.status == StatusRunning {
			events = append(events, m.startNextLocked()...)
		}
	}
	m.mu.Unlock()
	emit(events)
}

// SetAllowedErrors sets the error budget; negative disables it.
func (m *JobManager) SetAllowedErrors(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.AllowedErrors = n
}

// SetProgressInterval sets the periodic progress-report interval; zero
// disables it.
func (m *JobManager) SetProgressInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.ProgressReportInterval = d
}

// SetReportJobFinish toggles per-job JobCompleted events.
func (m *JobManager) SetReportJobFinish(b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.ReportJobFinish = b
}

// ThreadRunningCount returns how many workers currently have a job
// assigned.
func (m *JobManager) ThreadRunningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, w := range m.workers {
		if w.IsRunning() {
			n++
		}
	}
	return n
}

func (m *JobManager) JobCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

func (m *JobManager) FinishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

func (m *JobManager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusRunning
}

func (m *JobManager) IsFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusFinished
}

func (m *JobManager) IsStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusStopped
}

func (m *JobManager) IsIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status != StatusRunning
}

// Status returns the current lifecycle status.
func (m *JobManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start dispatches ready jobs to idle workers and returns true, unless
// the manager is already running, in which case it returns false without
// doing anything. An empty job table completes synchronously: Start
// returns true having already emitted Completed before it returns.
func (m *JobManager) Start() bool {
	m.mu.Lock()
	if m.status == StatusRunning {
		m.mu.Unlock()
		return false
	}
	m.status = StatusRunning
	m.started = 0
	m.running = 0
	m.finished = 0
	m.errors = 0
	m.stopFlag = false
	m.lastError = NoError

	if len(m.jobs) == 0 {
		m.status = StatusFinished
		fn := m.emitCompletedFn()
		m.mu.Unlock()
		fn()
		return true
	}

	n := len(m.idle)
	if len(m.waiting) < n {
		n = len(m.waiting)
	}
	var events []func()
	for i := 0; i < n; i++ {
		events = append(events, m.startNextLocked()...)
	}
	// If not a single job could be started (an unsatisfiable dependency
	// graph), running stays 0 forever and no worker completion will ever
	// come along to notice startNextLocked's NoJobReady. Check right
	// here so the manager doesn't just sit at StatusRunning forever.
	if handled, errEvents := m.handleErrorLocked(); handled {
		events = append(events, errEvents...)
	}

	if m.cfg.ProgressReportInterval > 0 {
		m.progressStop = make(chan struct{})
		go m.progressLoop(m.cfg.ProgressReportInterval, m.progressStop)
	}
	m.mu.Unlock()
	emit(events)
	return true
}

// Stop requests cancellation: every running job's Stop() is called and no
// further waiting jobs are dispatched. The manager transitions to
// StatusStopped once every running job has terminated — immediately, if
// nothing is running when Stop is called.
func (m *JobManager) Stop() {
	m.mu.Lock()
	m.stopFlag = true
	for _, w := range m.workers {
		if idx := w.JobIndex(); idx >= 0 {
			w.Cancel(m.jobs[idx])
		}
	}
	var events []func()
	if m.running == 0 && m.status != StatusStopped {
		m.status = StatusStopped
		m.stopProgressLocked()
		events = append(events, m.emitStoppedFn())
	}
	m.mu.Unlock()
	emit(events)
}

func (m *JobManager) stopProgressLocked() {
	if m.progressStop != nil {
		close(m.progressStop)
		m.progressStop = nil
	}
}
