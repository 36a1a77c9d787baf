package worker_test

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors/markers"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/worker"
)

type recordingRunner struct {
	mu     sync.Mutex
	jobIDs []string
	block  chan struct{}
}

func (r *recordingRunner) Run(ctx context.Context, jobID string) {
	if r.block != nil {
		<-r.block
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobIDs = append(r.jobIDs, jobID)
}

func (r *recordingRunner) RanJobIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobIDs := make([]string, len(r.jobIDs))
	copy(jobIDs, r.jobIDs)
	return jobIDs
}

var _ = Describe("Pool", func() {
	var (
		runner *recordingRunner
		pool   *worker.Pool
	)

	BeforeEach(func() {
		runner = &recordingRunner{}
	})

	It("runs every dispatched job", func() {
		pool = worker.NewPool(runner, 2, 10)
		pool.Start()

		Expect(pool.Dispatch("job-1")).To(Succeed())
		Expect(pool.Dispatch("job-2")).To(Succeed())
		Expect(pool.Dispatch("job-3")).To(Succeed())

		pool.Stop()

		Expect(runner.RanJobIDs()).To(ConsistOf("job-1", "job-2", "job-3"))
	})

	It("rejects dispatches beyond the queue capacity", func() {
		// never started, so the queue fills up
		pool = worker.NewPool(runner, 1, 2)

		Expect(pool.Dispatch("job-1")).To(Succeed())
		Expect(pool.Dispatch("job-2")).To(Succeed())

		err := pool.Dispatch("job-3")
		Expect(err).To(HaveOccurred())
		Expect(markers.Is(err, worker.QueueFull)).To(BeTrue())
	})

	It("rejects dispatches after the pool has stopped", func() {
		pool = worker.NewPool(runner, 1, 2)
		pool.Start()
		pool.Stop()

		err := pool.Dispatch("job-1")
		Expect(err).To(HaveOccurred())
		Expect(markers.Is(err, worker.PoolStopped)).To(BeTrue())
	})

	It("drains queued jobs before Stop returns", func() {
		runner.block = make(chan struct{})
		pool = worker.NewPool(runner, 1, 10)
		pool.Start()

		Expect(pool.Dispatch("job-1")).To(Succeed())
		Expect(pool.Dispatch("job-2")).To(Succeed())

		close(runner.block)
		pool.Stop()

		Expect(runner.RanJobIDs()).To(Equal([]string{"job-1", "job-2"}))
	})

	It("tolerates being stopped twice", func() {
		pool = worker.NewPool(runner, 1, 2)
		pool.Start()
		pool.Stop()
		pool.Stop()
	})
})
