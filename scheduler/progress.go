package scheduler

import "time"

// progressLoop emits a periodic Progress event while the manager runs.
// It never holds mu across an emission: listeners run arbitrary code and
// must not be able to deadlock the dispatch loop.
func (m *JobManager) progressLoop(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.status != StatusRunning || len(m.jobs) == 0 {
				m.mu.Unlock()
				continue
			}
			percent := 100 * m.finished / len(m.jobs)
			fn := m.emitProgressFn(percent)
			m.mu.Unlock()
			fn()
		}
	}
}
