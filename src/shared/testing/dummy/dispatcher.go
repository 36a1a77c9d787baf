package dummy

import "sync"

// Dispatcher captures dispatched job IDs instead of running anything,
// so usecase tests can assert on scheduling without a live pool.
type Dispatcher struct {
	DispatchError error

	mu     sync.Mutex
	jobIDs []string
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Dispatch(jobID string) error {
	if d.DispatchError != nil {
		return d.DispatchError
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.jobIDs = append(d.jobIDs, jobID)
	return nil
}

func (d *Dispatcher) DispatchedJobIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	jobIDs := make([]string, len(d.jobIDs))
	copy(jobIDs, d.jobIDs)
	return jobIDs
}
