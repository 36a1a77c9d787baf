package worker

import (
	"context"
	"sync"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/urmt/STEM-SPLITTER/src/shared/lib/errors/mark"
)

//counterfeiter:generate . Runner
type Runner interface {
	Run(ctx context.Context, jobID string)
}

//counterfeiter:generate . Dispatcher
type Dispatcher interface {
	Dispatch(jobID string) error
}

var (
	QueueFull   = errors.New("The job queue is full")
	PoolStopped = errors.New("The worker pool has been stopped")
)

var _ Dispatcher = &Pool{}

// Pool runs separation jobs on a bounded set of workers. Dispatch
// never blocks the request surface: jobs queue up to the buffer
// capacity and are rejected beyond that.
type Pool struct {
	runner      Runner
	workerCount int

	jobs     chan string
	wg       sync.WaitGroup
	stopLock sync.Mutex
	stopped  bool
}

func NewPool(runner Runner, workerCount int, queueSize int) *Pool {
	return &Pool{
		runner:      runner,
		workerCount: workerCount,
		jobs:        make(chan string, queueSize),
	}
}

func (p *Pool) Start() {
	log.WithField("workers", p.workerCount).Info("Starting worker pool")

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()

			for jobID := range p.jobs {
				p.runner.Run(context.Background(), jobID)
			}
		}()
	}
}

func (p *Pool) Dispatch(jobID string) error {
	p.stopLock.Lock()
	defer p.stopLock.Unlock()

	if p.stopped {
		return mark.Message(PoolStopped, "Cannot dispatch jobs after the pool has stopped")
	}

	select {
	case p.jobs <- jobID:
		return nil
	default:
		return mark.Message(QueueFull, "Too many queued jobs, try again later")
	}
}

// Stop drains the queue and joins all workers - the defined shutdown
// point for in-flight jobs.
func (p *Pool) Stop() {
	p.stopLock.Lock()
	if p.stopped {
		p.stopLock.Unlock()
		return
	}

	p.stopped = true
	close(p.jobs)
	p.stopLock.Unlock()

	p.wg.Wait()
}
