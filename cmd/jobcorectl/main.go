// Command jobcorectl is a small demonstration CLI for the scheduling
// core: it runs the example jobs directly against a JobManager or a
// session.Manager and prints the resulting timing and status.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/twitter/jobcore/examples"
	log "github.com/twitter/jobcore/jobcorelog"
	"github.com/twitter/jobcore/jobcorestats"
	"github.com/twitter/jobcore/scheduler"
	"github.com/twitter/jobcore/session"
)

func main() {
	root := &cobra.Command{
		Use:   "jobcorectl",
		Short: "jobcorectl runs the example jobs against the scheduling core",
	}
	root.AddCommand(newSumCmd(), newQsortCmd(), newSessionsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSumCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "sum N...",
		Short: "split N integer arguments across workers and add them up",
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make([]int, len(args))
			for i, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("argument %q is not an integer: %w", a, err)
				}
				values[i] = n
			}
			return runSum(values, workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "worker pool size")
	return cmd
}

func runSum(values []int, workers int) error {
	chunks := chunk(values, workers)
	jm := scheduler.NewJobManager(scheduler.Config{ThreadCount: workers}, jobcorestats.NilStatsReceiver())

	jobs := make([]*examples.SumJob, len(chunks))
	for i, c := range chunks {
		jobs[i] = examples.NewSumJob(fmt.Sprintf("sum-%d", i), c)
		jm.AppendJob(jobs[i])
	}

	done := make(chan struct{})
	jm.Subscribe(scheduler.Listener{
		OnCompleted: func() { close(done) },
		OnError:     func(kind scheduler.ErrorKind) { log.Errorf("sum failed: %s", kind); close(done) },
	})
	jm.Start()
	<-done

	total := 0
	for _, j := range jobs {
		total += j.Total
	}
	fmt.Println(total)
	return nil
}

func chunk(values []int, n int) [][]int {
	if n < 1 {
		n = 1
	}
	if n > len(values) {
		n = len(values)
	}
	if n == 0 {
		return nil
	}
	out := make([][]int, n)
	size := (len(values) + n - 1) / n
	for i := 0; i < n; i++ {
		lo := i * size
		hi := lo + size
		if lo > len(values) {
			lo = len(values)
		}
		if hi > len(values) {
			hi = len(values)
		}
		out[i] = values[lo:hi]
	}
	return out
}

func newQsortCmd() *cobra.Command {
	var n, workers int
	cmd := &cobra.Command{
		Use:   "qsort",
		Short: "sort a random slice of n integers using spawned quicksort jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQsort(n, workers)
		},
	}
	cmd.Flags().IntVar(&n, "n", 1000000, "number of elements to sort")
	cmd.Flags().IntVar(&workers, "workers", 8, "worker pool size")
	return cmd
}

func runQsort(n, workers int) error {
	values := make([]int, n)
	rng := rand.New(rand.NewSource(1))
	for i := range values {
		values[i] = rng.Intn(10 * n)
	}

	jm := scheduler.NewJobManager(scheduler.Config{ThreadCount: workers}, jobcorestats.NilStatsReceiver())
	jm.AppendJob(examples.NewQuickSortJob(values, 0, n-1))

	done := make(chan struct{})
	jm.Subscribe(scheduler.Listener{
		OnCompleted: func() { close(done) },
		OnError:     func(kind scheduler.ErrorKind) { log.Errorf("qsort failed: %s", kind); close(done) },
	})

	start := time.Now()
	jm.Start()
	<-done
	elapsed := time.Since(start)

	for i := 1; i < n; i++ {
		if values[i-1] > values[i] {
			return fmt.Errorf("sort verification failed at index %d", i)
		}
	}
	fmt.Printf("sorted %d elements in %s using %d workers\n", n, elapsed, workers)
	return nil
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "run a three-phase demo through a session.Manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions()
		},
	}
}

// demoPhaser runs three sessions of increasing size, each summing the
// integers 1..n split across four SumJobs.
type demoPhaser struct {
	sizes []int
}

func (p *demoPhaser) SessionCount() int { return len(p.sizes) }

func (p *demoPhaser) InitSession(index int, jm *scheduler.JobManager) {
	n := p.sizes[index]
	values := make([]int, n)
	for i := range values {
		values[i] = i + 1
	}
	for _, c := range chunk(values, 4) {
		jm.AppendJob(examples.NewSumJob("sum", c))
	}
}

func (p *demoPhaser) AllowedErrors(index int) int { return 0 }

func runSessions() error {
	phaser := &demoPhaser{sizes: []int{50, 100, 200}}
	mgr := session.New(phaser, session.Config{ThreadCount: 4, SessionDelay: 200 * time.Millisecond}, jobcorestats.NilStatsReceiver())

	done := make(chan struct{})
	mgr.Subscribe(session.Listener{
		OnSessionFinished: func(index int) {
			fmt.Printf("session %d finished (%d jobs so far)\n", index, mgr.FinishedJobs())
		},
		OnFinished: func() { fmt.Println("all sessions finished"); close(done) },
		OnError:    func(index int, kind scheduler.ErrorKind) { log.Errorf("session %d failed: %s", index, kind); close(done) },
	})
	mgr.Start()
	<-done
	return nil
}
