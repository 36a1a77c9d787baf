package jobentity

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

type Updater func(job *Job)

// Store is the process-wide job table. Each record has one writing
// worker and arbitrarily many concurrent pollers, so every method must
// be atomic with respect to the others, and reads must never observe a
// record mid-update.
//counterfeiter:generate . Store
type Store interface {
	Create(job Job) error
	Get(id string) (Job, error)
	Update(id string, updater Updater) (Job, error)
	SweepTerminal(id string) (Job, error)
	Size() int
}
