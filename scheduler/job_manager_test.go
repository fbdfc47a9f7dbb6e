package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/twitter/jobcore/job"
)

// trackingJob is a minimal Job used across scheduler tests: it records
// how many times it ran and can be told to error, block, or spawn a
// fixed number of children.
type trackingJob struct {
	job.BaseJob

	mu      sync.Mutex
	runs    int
	errCode int
	block   chan struct{}

	toSpawn []job.Job
}

func newTrackingJob(name string) *trackingJob {
	return &trackingJob{BaseJob: job.NewBaseJob(name)}
}

func (j *trackingJob) Run(ctx context.Context) {
	j.mu.Lock()
	j.runs++
	if j.errCode != 0 {
		j.ReportError(j.errCode)
	}
	block := j.block
	j.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
}

func (j *trackingJob) NextSpawnedJob() job.Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.toSpawn) == 0 {
		return nil
	}
	next := j.toSpawn[0]
	j.toSpawn = j.toSpawn[1:]
	return next
}

func (j *trackingJob) Runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func waitFor(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the manager to report an event")
	}
}

func TestJobManagerRunsAllJobsAndCompletes(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 4}, nil)
	jobs := make([]*trackingJob, 10)
	for i := range jobs {
		jobs[i] = newTrackingJob("j")
		m.AppendJob(jobs[i])
	}

	completed := make(chan struct{})
	m.Subscribe(Listener{OnCompleted: func() { close(completed) }})
	m.Start()
	waitFor(t, completed)

	if m.Status() != StatusFinished {
		t.Fatalf("Status() = %s, want Finished", m.Status())
	}
	for i, j := range jobs {
		if j.Runs() != 1 {
			t.Fatalf("job %d ran %d times, want 1", i, j.Runs())
		}
	}
}

func TestJobManagerEmptyTableCompletesImmediately(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 2}, nil)
	completed := make(chan struct{})
	m.Subscribe(Listener{OnCompleted: func() { close(completed) }})
	if ok := m.Start(); !ok {
		t.Fatal("expected Start() to return true for an empty job table")
	}
	waitFor(t, completed)
}

func TestJobManagerRespectsDependencyOrder(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 4}, nil)

	var mu sync.Mutex
	var order []string
	record := func(name string) { mu.Lock(); order = append(order, name); mu.Unlock() }

	a := newTrackingJob("a")
	b := newTrackingJob("b")
	b.AddDependency(a)
	c := newTrackingJob("c")
	c.AddDependency(b)

	wrap := func(j *trackingJob, name string) *orderedJob {
		return &orderedJob{trackingJob: j, name: name, record: record}
	}
	m.AppendJob(wrap(a, "a"))
	m.AppendJob(wrap(b, "b"))
	m.AppendJob(wrap(c, "c"))

	completed := make(chan struct{})
	m.Subscribe(Listener{OnCompleted: func() { close(completed) }})
	m.Start()
	waitFor(t, completed)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("unexpected execution order: %v", order)
	}
}

// orderedJob wraps a trackingJob to additionally record its own name when
// Run is invoked, without disturbing CanStart's dependency pruning (which
// lives on the embedded BaseJob via trackingJob).
type orderedJob struct {
	*trackingJob
	name   string
	record func(string)
}

func (j *orderedJob) Run(ctx context.Context) {
	j.record(j.name)
	j.trackingJob.Run(ctx)
}

func TestJobManagerStopsAfterAllowedErrorsExceeded(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 1, AllowedErrors: 1}, nil)
	for i := 0; i < 5; i++ {
		j := newTrackingJob("e")
		j.errCode = 1
		m.AppendJob(j)
	}

	var gotErr ErrorKind
	errCh := make(chan struct{})
	m.Subscribe(Listener{OnError: func(kind ErrorKind) { gotErr = kind; close(errCh) }})
	m.Start()
	waitFor(t, errCh)

	if gotErr != TooManyErrors {
		t.Fatalf("ErrorKind = %s, want TooManyErrors", gotErr)
	}
	if m.Status() != StatusErrorTerminal {
		t.Fatalf("Status() = %s, want ErrorTerminal", m.Status())
	}
	// Not every job should have run, since dispatch stops once the
	// budget is exceeded.
	if m.FinishedCount() >= 5 {
		t.Fatalf("FinishedCount() = %d, expected dispatch to stop early", m.FinishedCount())
	}
}

func TestJobManagerStopCancelsRunningJobs(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 2}, nil)
	blocked := make(chan struct{})
	j := newTrackingJob("blocked")
	j.block = blocked
	m.AppendJob(j)

	stopped := make(chan struct{})
	m.Subscribe(Listener{OnStopped: func() { close(stopped) }})
	m.Start()

	// give the worker a moment to pick up the job before stopping
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	waitFor(t, stopped)

	if m.Status() != StatusStopped {
		t.Fatalf("Status() = %s, want Stopped", m.Status())
	}
}

func TestJobManagerStopWhenIdleIsImmediate(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 1}, nil)
	stopped := make(chan struct{})
	m.Subscribe(Listener{OnStopped: func() { close(stopped) }})
	m.Stop()
	waitFor(t, stopped)
}

func TestJobManagerUnsatisfiableDependencyReportsNoJobReady(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 2}, nil)

	// dep is never appended to the manager, so it can never finish, and
	// j can never start.
	dep := newTrackingJob("dep")
	j := newTrackingJob("j")
	j.AddDependency(dep)
	m.AppendJob(j)

	errCh := make(chan struct{})
	var gotErr ErrorKind
	m.Subscribe(Listener{OnError: func(kind ErrorKind) { gotErr = kind; close(errCh) }})
	m.Start()
	waitFor(t, errCh)

	if gotErr != NoJobReady {
		t.Fatalf("ErrorKind = %s, want NoJobReady", gotErr)
	}
}

func TestJobManagerDrainsSpawnedChildren(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 2}, nil)

	child1 := newTrackingJob("child1")
	child2 := newTrackingJob("child2")
	parent := newTrackingJob("parent")
	parent.toSpawn = []job.Job{child1, child2}
	m.AppendJob(parent)

	completed := make(chan struct{})
	m.Subscribe(Listener{OnCompleted: func() { close(completed) }})
	m.Start()
	waitFor(t, completed)

	if parent.Runs() != 1 || child1.Runs() != 1 || child2.Runs() != 1 {
		t.Fatalf("expected parent and both children to run exactly once, got %d/%d/%d",
			parent.Runs(), child1.Runs(), child2.Runs())
	}
	if !child1.Spawned() || !child2.Spawned() {
		t.Fatal("expected spawned children to be marked Spawned()")
	}
	if m.JobCount() != 3 {
		t.Fatalf("JobCount() = %d, want 3", m.JobCount())
	}
}

// sumJob computes 1+2+...+n and records the result for the test to
// inspect once the manager reports completion.
type sumJob struct {
	job.BaseJob
	n int

	mu     sync.Mutex
	result int
}

func newSumJob(n int) *sumJob {
	return &sumJob{BaseJob: job.NewBaseJob("sum"), n: n}
}

func (j *sumJob) Run(ctx context.Context) {
	total := 0
	for i := 1; i <= j.n; i++ {
		total += i
	}
	j.mu.Lock()
	j.result = total
	j.mu.Unlock()
}

func (j *sumJob) Result() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// TestJobManagerSumReducerProducesExpectedTotals runs three independent
// triangular-sum jobs on a 3-worker pool and checks each job's own
// result, not just that the manager reached Completed.
func TestJobManagerSumReducerProducesExpectedTotals(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 3}, nil)

	inputs := []int{100, 200, 300}
	want := map[int]int{100: 5050, 200: 20100, 300: 45150}
	jobs := make([]*sumJob, len(inputs))
	for i, n := range inputs {
		jobs[i] = newSumJob(n)
		m.AppendJob(jobs[i])
	}

	completed := make(chan struct{})
	m.Subscribe(Listener{OnCompleted: func() { close(completed) }})
	m.Start()
	waitFor(t, completed)

	for _, j := range jobs {
		if got, w := j.Result(), want[j.n]; got != w {
			t.Fatalf("sum(1..%d) = %d, want %d", j.n, got, w)
		}
	}
}

// TestJobManagerReconvergentDependencyOrder reproduces a 7-job DAG with
// four independently-ready roots (0,1,2,3) and a reconvergent node (6,
// depending on both 2 and 4) feeding a final sink (5, depending on both
// 6 and 3): edges 4<-0, 4<-1, 6<-2, 6<-4, 5<-6, 5<-3. A pool wide enough
// to run all four roots at once forces startNextLocked to repeatedly
// rotate 4, 5, and 6 to the tail of the waiting queue while they are
// not yet ready, rather than exercising only a single-ready-job chain.
func TestJobManagerReconvergentDependencyOrder(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 4}, nil)

	var mu sync.Mutex
	var order []string
	record := func(name string) { mu.Lock(); order = append(order, name); mu.Unlock() }

	wrap := func(name string) *orderedJob {
		return &orderedJob{trackingJob: newTrackingJob(name), name: name, record: record}
	}

	j0 := wrap("0")
	j1 := wrap("1")
	j2 := wrap("2")
	j3 := wrap("3")
	j4 := wrap("4")
	j4.AddDependency(j0)
	j4.AddDependency(j1)
	j6 := wrap("6")
	j6.AddDependency(j2)
	j6.AddDependency(j4)
	j5 := wrap("5")
	j5.AddDependency(j6)
	j5.AddDependency(j3)

	for _, j := range []*orderedJob{j0, j1, j2, j3, j4, j6, j5} {
		m.AppendJob(j)
	}

	completed := make(chan struct{})
	m.Subscribe(Listener{OnCompleted: func() { close(completed) }})
	m.Start()
	waitFor(t, completed)

	mu.Lock()
	defer mu.Unlock()

	pos := map[string]int{}
	for i, name := range order {
		pos[name] = i
	}
	if len(order) != 7 {
		t.Fatalf("unexpected execution order: %v", order)
	}
	if pos["4"] >= pos["6"] {
		t.Fatalf("job 4 must finish before job 6: order = %v", order)
	}
	if pos["6"] >= pos["5"] {
		t.Fatalf("job 6 must finish before job 5: order = %v", order)
	}
	if pos["5"] != len(order)-1 {
		t.Fatalf("job 5 must be last to finish: order = %v", order)
	}
}

// neverReadyJob always reports CanStart false, regardless of its
// dependencies, modeling a job whose readiness gate can never pass.
type neverReadyJob struct {
	*trackingJob
}

func (j *neverReadyJob) CanStart() bool { return false }

// TestJobManagerUnsatisfiableDependencyAmongOtherFinishers submits 21
// jobs where one job can never start; the other 20 have no dependency
// on it and must run to completion before the manager reports
// NoJobReady, distinguishing this from a run where nothing else is
// happening.
func TestJobManagerUnsatisfiableDependencyAmongOtherFinishers(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 4}, nil)

	blocker := &neverReadyJob{trackingJob: newTrackingJob("blocker")}
	m.AppendJob(blocker)
	for i := 0; i < 20; i++ {
		m.AppendJob(newTrackingJob("finisher"))
	}

	errCh := make(chan struct{})
	var gotErr ErrorKind
	m.Subscribe(Listener{OnError: func(kind ErrorKind) { gotErr = kind; close(errCh) }})
	m.Start()
	waitFor(t, errCh)

	if gotErr != NoJobReady {
		t.Fatalf("ErrorKind = %s, want NoJobReady", gotErr)
	}
	if m.FinishedCount() != 20 {
		t.Fatalf("FinishedCount() = %d, want 20", m.FinishedCount())
	}
}

// parityJob reports error=1 iff the triangular sum 1+2+...+n is odd,
// giving roughly half a large batch an error without any shared state.
type parityJob struct {
	job.BaseJob
	n int
}

func newParityJob(n int) *parityJob { return &parityJob{BaseJob: job.NewBaseJob("p"), n: n} }

func (j *parityJob) Run(ctx context.Context) {
	total := j.n * (j.n + 1) / 2
	if total%2 != 0 {
		j.ReportError(1)
	}
}

// TestJobManagerLargeErrorBudgetExceeded submits 1000 jobs whose error
// rate is driven by triangular-sum parity, with a budget of 10, and
// expects the manager to terminate in TooManyErrors well before every
// job has run.
func TestJobManagerLargeErrorBudgetExceeded(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 8, AllowedErrors: 10}, nil)
	for n := 1; n <= 1000; n++ {
		m.AppendJob(newParityJob(n))
	}

	errCh := make(chan struct{})
	var gotErr ErrorKind
	m.Subscribe(Listener{OnError: func(kind ErrorKind) { gotErr = kind; close(errCh) }})
	m.Start()
	waitFor(t, errCh)

	if gotErr != TooManyErrors {
		t.Fatalf("ErrorKind = %s, want TooManyErrors", gotErr)
	}
	if m.IsFinished() {
		t.Fatal("expected IsFinished() false after TooManyErrors")
	}
	if m.FinishedCount() >= 1000 {
		t.Fatalf("FinishedCount() = %d, expected dispatch to stop well short of 1000", m.FinishedCount())
	}
}

// TestJobManagerStopLargeBatchReportsNoError submits 1900 jobs that
// block until cancelled and calls Stop almost immediately, expecting a
// clean Stopped terminal event and no Error event at all.
func TestJobManagerStopLargeBatchReportsNoError(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 8}, nil)
	blocked := make(chan struct{})
	for i := 0; i < 1900; i++ {
		j := newTrackingJob("blocked")
		j.block = blocked
		m.AppendJob(j)
	}

	stopped := make(chan struct{})
	gotError := false
	m.Subscribe(Listener{
		OnStopped: func() { close(stopped) },
		OnError:   func(ErrorKind) { gotError = true },
	})
	m.Start()
	m.Stop()
	waitFor(t, stopped)

	if gotError {
		t.Fatal("expected no Error event when Stop wins the race")
	}
	if m.Status() != StatusStopped {
		t.Fatalf("Status() = %s, want Stopped", m.Status())
	}
	if m.IsFinished() {
		t.Fatal("expected IsFinished() false after Stop")
	}
}

func TestJobManagerReportsPerJobCompletion(t *testing.T) {
	m := NewJobManager(Config{ThreadCount: 2, ReportJobFinish: true}, nil)
	j1 := newTrackingJob("a")
	j2 := newTrackingJob("b")
	m.AppendJob(j1)
	m.AppendJob(j2)

	var mu sync.Mutex
	seen := map[string]bool{}
	completed := make(chan struct{})
	m.Subscribe(Listener{
		OnJobCompleted: func(j job.Job) {
			mu.Lock()
			seen[j.ID()] = true
			mu.Unlock()
		},
		OnCompleted: func() { close(completed) },
	})
	m.Start()
	waitFor(t, completed)

	mu.Lock()
	defer mu.Unlock()
	if !seen[j1.ID()] || !seen[j2.ID()] {
		t.Fatal("expected OnJobCompleted for every job")
	}
}
