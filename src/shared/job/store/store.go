package jobstore

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/urmt/STEM-SPLITTER/src/shared/job/entity"
	"github.com/urmt/STEM-SPLITTER/src/shared/lib/errors/mark"
)

var (
	JobNotFound  = errors.New("Job is not found")
	DuplicateJob = errors.New("Job already exists")
)

var _ jobentity.Store = &MemoryStore{}

// MemoryStore holds the job table for the process lifetime. Records are
// never deleted, only their scratch fields are swept after completion.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*jobentity.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: map[string]*jobentity.Job{},
	}
}

func (m *MemoryStore) Create(job jobentity.Job) error {
	if job.ID == "" {
		return mark.Message(JobNotFound, "Cannot create a job with an empty ID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[job.ID]; ok {
		return mark.Message(DuplicateJob, "A job with this ID already exists")
	}

	clone := job.Clone()
	m.jobs[job.ID] = &clone

	return nil
}

func (m *MemoryStore) Get(id string) (jobentity.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return jobentity.Job{}, mark.Message(JobNotFound, "No job found for ID "+id)
	}

	return job.Clone(), nil
}

func (m *MemoryStore) Update(id string, updater jobentity.Updater) (jobentity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return jobentity.Job{}, mark.Message(JobNotFound, "No job found for ID "+id)
	}

	updater(job)

	return job.Clone(), nil
}

// SweepTerminal removes the job's scratch input storage the first time
// it's called on a terminal record, and is a no-op on every later call.
func (m *MemoryStore) SweepTerminal(id string) (jobentity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return jobentity.Job{}, mark.Message(JobNotFound, "No job found for ID "+id)
	}

	if !job.Terminal() || job.TempDir == "" {
		return job.Clone(), nil
	}

	// best effort, an undeletable scratch dir shouldn't fail a status poll
	_ = os.RemoveAll(job.TempDir)
	job.TempDir = ""
	job.InputPath = ""

	return job.Clone(), nil
}

func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.jobs)
}
