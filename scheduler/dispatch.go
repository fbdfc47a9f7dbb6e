package scheduler

import (
	"github.com/sirupsen/logrus"

	"github.com/twitter/jobcore/job"
	log "github.com/twitter/jobcore/jobcorelog"
	"github.com/twitter/jobcore/worker"
)

// completionLoop is the manager's single long-lived goroutine: it is the
// only reader of reportCh, so every worker completion re-enters the
// manager through one serialization point before taking the mutex.
// Workers never touch manager state directly.
func (m *JobManager) completionLoop() {
	for comp := range m.reportCh {
		m.mu.Lock()
		events := m.handleCompletionLocked(comp)
		m.mu.Unlock()
		emit(events)
	}
}

// handleCompletionLocked runs the full worker-completion sequence:
// account for the finished job, drain any children it spawned, run
// cleanup, free the worker, update error/progress counters, then attempt
// to dispatch replacement work. Must be called with mu held.
func (m *JobManager) handleCompletionLocked(comp worker.Completion) []func() {
	m.finished++
	m.running--

	idx := comp.JobIndex
	j := m.jobs[idx]

	// Spawned children are drained and appended to the table before
	// cleanup runs, so a child of a finishing job is visible to
	// dispatch as soon as this completion is processed.
	for {
		sj := j.NextSpawnedJob()
		if sj == nil {
			break
		}
		if sm, ok := sj.(job.SpawnMarker); ok {
			sm.MarkSpawned()
		}
		m.appendJobLocked(sj)
	}

	j.Cleanup()

	comp.Worker.Release()
	m.idle = append(m.idle, comp.Worker)

	if j.ErrorCode() != 0 {
		m.errors++
		m.stat.Counter("jobs_errored").Inc(1)
	}
	m.stat.Gauge("jobs_running").Update(int64(m.running))
	m.stat.Counter("jobs_finished").Inc(1)

	var events []func()
	if m.cfg.ReportJobFinish {
		events = append(events, m.emitJobCompletedFn(j))
	}

	n := len(m.waiting)
	if len(m.idle) < n {
		n = len(m.idle)
	}
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		if m.status != StatusRunning {
			break
		}
		events = append(events, m.checkNextLocked()...)
	}

	if m.status == StatusFinished {
		events = append(events, m.emitCompletedFn())
	}

	return events
}

// checkNextLocked is one dispatch step: guard the error budget and stop
// flag, then either start the next runnable job or declare the run
// finished. Must be called with mu held.
func (m *JobManager) checkNextLocked() []func() {
	if m.cfg.AllowedErrors >= 0 && m.errors > m.cfg.AllowedErrors {
		m.lastError = TooManyErrors
	}

	if handled, events := m.handleErrorLocked(); handled {
		return events
	}

	if m.stopFlag {
		if m.running == 0 && m.status != StatusStopped {
			m.status = StatusStopped
			m.stopProgressLocked()
			return []func(){m.emitStoppedFn()}
		}
		return nil
	}

	if m.finished < len(m.jobs) {
		events := m.startNextLocked()
		if handled, errEvents := m.handleErrorLocked(); handled {
			return append(events, errEvents...)
		}
		return events
	}

	var events []func()
	if m.cfg.ProgressReportInterval > 0 {
		events = append(events, m.emitProgressFn(100))
		m.stopProgressLocked()
	}
	m.status = StatusFinished
	return events
}

// startNextLocked pops one idle worker and walks the waiting queue for
// the first job whose CanStart returns true, rotating unready jobs to
// the tail so submission order is preserved among ready jobs. Must be
// called with mu held.
func (m *JobManager) startNextLocked() []func() {
	defer m.stat.Latency("dispatch_ms").Time().Stop()

	if len(m.idle) == 0 {
		return nil
	}
	w := m.idle[0]
	m.idle = m.idle[1:]

	if m.started < len(m.jobs) {
		n := len(m.waiting)
		for i := 0; i < n; i++ {
			idx := m.waiting[0]
			m.waiting = m.waiting[1:]
			if m.jobs[idx].CanStart() {
				w.Assign(idx, m.jobs[idx])
				m.started++
				m.running++
				m.stat.Counter("jobs_started").Inc(1)
				m.stat.Gauge("jobs_running").Update(int64(m.running))
				return nil
			}
			m.waiting = append(m.waiting, idx)
		}
		if m.running == 0 {
			log.Warnf("jobmanager: no runnable job found, %d unfinished jobs left waiting", len(m.waiting))
			if log.Log.IsLevelEnabled(logrus.DebugLevel) {
				log.Debug("jobmanager: waiting queue at NoJobReady:\n" + log.Dump(m.waiting))
			}
			m.lastError = NoJobReady
		}
	}
	m.idle = append(m.idle, w)
	return nil
}

// handleErrorLocked reports whether a terminal error is pending and, if
// all running jobs have since drained, transitions to StatusErrorTerminal
// and returns the Error event to emit. Must be called with mu held.
func (m *JobManager) handleErrorLocked() (bool, []func()) {
	if m.lastError != NoError {
		if m.running == 0 && m.status != StatusErrorTerminal {
			m.status = StatusErrorTerminal
			return true, []func(){m.emitErrorFn(m.lastError)}
		}
		return true, nil
	}
	return false, nil
}

// emit invokes every collected event closure in order. Each closure has
// already captured its own listener snapshot, so emit never touches
// m.mu and is safe to call unlocked.
func emit(events []func()) {
	for _, e := range events {
		if e != nil {
			e()
		}
	}
}

func (m *JobManager) emitCompletedFn() func() {
	ls := append([]Listener(nil), m.listeners...)
	return func() {
		for _, l := range ls {
			if l.OnCompleted != nil {
				l.OnCompleted()
			}
		}
	}
}

func (m *JobManager) emitJobCompletedFn(j job.Job) func() {
	ls := append([]Listener(nil), m.listeners...)
	return func() {
		for _, l := range ls {
			if l.OnJobCompleted != nil {
				l.OnJobCompleted(j)
			}
		}
	}
}

func (m *JobManager) emitErrorFn(kind ErrorKind) func() {
	ls := append([]Listener(nil), m.listeners...)
	return func() {
		for _, l := range ls {
			if l.OnError != nil {
				l.OnError(kind)
			}
		}
	}
}

func (m *JobManager) emitStoppedFn() func() {
	ls := append([]Listener(nil), m.listeners...)
	return func() {
		for _, l := range ls {
			if l.OnStopped != nil {
				l.OnStopped()
			}
		}
	}
}

func (m *JobManager) emitProgressFn(percent int) func() {
	ls := append([]Listener(nil), m.listeners...)
	return func() {
		for _, l := range ls {
			if l.OnProgress != nil {
				l.OnProgress(percent)
			}
		}
	}
}
