// Package session implements a sequencer that runs a fixed number of
// scheduler.JobManager phases ("sessions") back to back, one at a time:
// every job in a session must reach a terminal state before the next
// session's jobs are populated and started.
package session

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"

	"github.com/twitter/jobcore/job"
	log "github.com/twitter/jobcore/jobcorelog"
	"github.com/twitter/jobcore/jobcorestats"
	"github.com/twitter/jobcore/scheduler"
)

// Status is the sequencer's coarse lifecycle state.
type Status int

const (
	StatusFinished Status = iota
	StatusRunning
	StatusPaused // between sessions, waiting out the inter-session delay
	StatusStopped
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusPaused:
		return "Paused"
	case StatusFinished:
		return "Finished"
	case StatusStopped:
		return "Stopped"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Phaser supplies the jobs for each session. SessionCount is read at
// Start, after each session finishes, and on each progress event;
// InitSession is called once per session, immediately before that
// session's JobManager is started, and must populate jm with that
// session's jobs via jm.AppendJob. AllowedErrors is consulted once per
// session to set that session's error budget.
type Phaser interface {
	SessionCount() int
	InitSession(index int, jm *scheduler.JobManager)
	AllowedErrors(index int) int
}

// Listener mirrors scheduler.Listener at the session-sequence level, with
// session indices attached to the events that need them.
type Listener struct {
	OnFinished        func()
	OnSessionFinished func(index int)
	OnError           func(index int, kind scheduler.ErrorKind)
	OnStopped         func(index int)
	OnProgress        func(percent int)
}

// Manager sequences a Phaser's sessions through one JobManager, reused
// across sessions via Clear.
type Manager struct {
	mu sync.Mutex

	phaser   Phaser
	stat     jobcorestats.StatsReceiver
	cfg      Config
	jm       *scheduler.JobManager
	index    int
	status   Status
	finished int

	listeners []Listener
}

// Config holds Manager options.
type Config struct {
	// ThreadCount sizes the JobManager's worker pool for every session.
	ThreadCount int
	// SessionDelay is how long the Manager waits between one session
	// finishing and the next session's jobs starting.
	SessionDelay time.Duration
	// ProgressInterval, if non-zero, makes each session's JobManager
	// report progress periodically; the Manager rescales it into an
	// aggregate percentage across all sessions before re-emitting it.
	ProgressInterval time.Duration
}

// New constructs a Manager that pulls its jobs from phaser. The Manager
// owns a single scheduler.JobManager for its entire lifetime, reused
// across sessions via Clear rather than reconstructed per session.
func New(phaser Phaser, cfg Config, stat jobcorestats.StatsReceiver) *Manager {
	if stat == nil {
		stat = jobcorestats.NilStatsReceiver()
	}
	scoped := stat.Scope("session")

	m := &Manager{
		phaser: phaser,
		cfg:    cfg,
		stat:   scoped,
		status: StatusFinished,
		index:  -1,
	}

	m.jm = scheduler.NewJobManager(scheduler.Config{
		ThreadCount:     cfg.ThreadCount,
		ReportJobFinish: true,
	}, scoped)
	m.jm.SetProgressInterval(cfg.ProgressInterval)
	m.jm.Subscribe(scheduler.Listener{
		OnCompleted: m.handleFinished,
		OnError:     m.handleError,
		OnStopped:   func() { m.handleStopped() },
		OnProgress:  m.handleProgress,
		OnJobCompleted: func(job.Job) {
			m.mu.Lock()
			m.finished++
			m.mu.Unlock()
		},
	})

	return m
}

// Subscribe registers l for future events.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// CurrentSession returns the index of the session in progress, or -1
// before Start and after an error or a stop. Once every session has
// finished it equals the session count.
func (m *Manager) CurrentSession() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// FinishedJobs returns the total number of jobs finished across every
// session run so far.
func (m *Manager) FinishedJobs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

// IsRunning reports whether the sequence is active, including the paused
// interval between sessions.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusRunning || m.status == StatusPaused
}

// IsFinished reports whether every session completed successfully.
func (m *Manager) IsFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusFinished
}

// Status returns the current lifecycle status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ThreadsRunningCount forwards to the underlying JobManager.
func (m *Manager) ThreadsRunningCount() int {
	return m.jm.ThreadRunningCount()
}

// AddThreads forwards to the underlying JobManager.
func (m *Manager) AddThreads(n int) {
	m.jm.AddThreads(n)
}

// Start begins session 0. Returns false if already running. If the
// Phaser reports zero sessions, OnFinished fires before Start returns
// true.
func (m *Manager) Start() bool {
	m.mu.Lock()
	if m.status == StatusRunning || m.status == StatusPaused {
		m.mu.Unlock()
		log.Warnf("session: Start called while already running")
		return false
	}

	count := m.phaser.SessionCount()
	if count == 0 {
		m.status = StatusFinished
		m.mu.Unlock()
		m.emitFinishedFn()()
		return true
	}

	m.index = 0
	m.finished = 0
	m.status = StatusPaused
	m.mu.Unlock()

	m.startSession()
	m.mu.Lock()
	ok := m.status == StatusRunning
	m.mu.Unlock()
	return ok
}

// Stop halts the sequence: if a session is running, it is stopped and
// OnStopped fires once that session's jobs have all terminated; if the
// sequence is idle (between sessions), OnStopped fires immediately.
func (m *Manager) Stop() {
	if m.jm.IsRunning() {
		m.jm.Stop()
		return
	}
	m.handleStopped()
}

func (m *Manager) startSession() {
	if m.jm.IsStopped() {
		m.handleStopped()
		return
	}
	m.mu.Lock()
	stopped := m.status == StatusStopped
	m.mu.Unlock()
	if stopped {
		return
	}

	m.jm.Clear()
	m.jm.SetAllowedErrors(m.phaser.AllowedErrors(m.index))

	m.mu.Lock()
	index := m.index
	m.mu.Unlock()

	m.phaser.InitSession(index, m.jm)

	m.mu.Lock()
	m.status = StatusRunning
	m.mu.Unlock()

	if !m.jm.Start() {
		m.mu.Lock()
		m.status = StatusError
		m.mu.Unlock()
		emit([]func(){m.emitErrorFn(index, scheduler.CouldNotStart)})
	}
}

func (m *Manager) handleFinished() {
	m.mu.Lock()
	if m.status != StatusRunning {
		badIndex := m.index
		m.mu.Unlock()
		emit([]func(){m.emitErrorFn(badIndex, scheduler.ImplementationError)})
		return
	}
	m.status = StatusPaused
	finishedIndex := m.index
	m.index++
	sessionCount := m.phaser.SessionCount()
	last := m.index >= sessionCount
	if last {
		m.status = StatusFinished
	}
	m.mu.Unlock()

	emit([]func(){m.emitSessionFinishedFn(finishedIndex)})

	if last {
		emit([]func(){m.emitFinishedFn()})
		return
	}

	if m.cfg.SessionDelay > 0 {
		waitOnce(m.cfg.SessionDelay)
	}
	m.startSession()
}

// waitOnce blocks for d using a single-attempt constant backoff. This
// reuses the retry package's timer plumbing for a plain delay instead of
// hand-rolling one, keeping every wait in the module going through the
// same clock abstraction.
func waitOnce(d time.Duration) {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(d), 1)
	attempted := false
	_ = backoff.Retry(func() error {
		if attempted {
			return nil
		}
		attempted = true
		return errWait
	}, b)
}

var errWait = errors.New("session: waiting out inter-session delay")

func (m *Manager) handleError(kind scheduler.ErrorKind) {
	m.mu.Lock()
	m.status = StatusError
	index := m.index
	m.index = -1
	m.mu.Unlock()
	emit([]func(){m.emitErrorFn(index, kind)})
}

func (m *Manager) handleStopped() {
	m.mu.Lock()
	m.status = StatusStopped
	index := m.index
	m.index = -1
	m.mu.Unlock()
	emit([]func(){m.emitStoppedFn(index)})
}

func (m *Manager) handleProgress(percent int) {
	m.mu.Lock()
	index := m.index
	count := m.phaser.SessionCount()
	m.mu.Unlock()
	if count == 0 {
		return
	}
	total := (100*index + percent) / count
	emit([]func(){m.emitProgressFn(total)})
}

func emit(events []func()) {
	for _, e := range events {
		if e != nil {
			e()
		}
	}
}

func (m *Manager) emitFinishedFn() func() {
	m.mu.Lock()
	ls := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	return func() {
		for _, l := range ls {
			if l.OnFinished != nil {
				l.OnFinished()
			}
		}
	}
}

func (m *Manager) emitSessionFinishedFn(index int) func() {
	m.mu.Lock()
	ls := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	return func() {
		for _, l := range ls {
			if l.OnSessionFinished != nil {
				l.OnSessionFinished(index)
			}
		}
	}
}

func (m *Manager) emitErrorFn(index int, kind scheduler.ErrorKind) func() {
	m.mu.Lock()
	ls := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	return func() {
		for _, l := range ls {
			if l.OnError != nil {
				l.OnError(index, kind)
			}
		}
	}
}

func (m *Manager) emitStoppedFn(index int) func() {
	m.mu.Lock()
	ls := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	return func() {
		for _, l := range ls {
			if l.OnStopped != nil {
				l.OnStopped(index)
			}
		}
	}
}

func (m *Manager) emitProgressFn(percent int) func() {
	m.mu.Lock()
	ls := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	return func() {
		for _, l := range ls {
			if l.OnProgress != nil {
				l.OnProgress(percent)
			}
		}
	}
}
