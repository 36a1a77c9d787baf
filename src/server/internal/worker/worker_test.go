package worker_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/worker"
	jobentity "github.com/urmt/STEM-SPLITTER/src/shared/job/entity"
	jobstore "github.com/urmt/STEM-SPLITTER/src/shared/job/store"
	modelregistry "github.com/urmt/STEM-SPLITTER/src/shared/model/registry"
	testlib "github.com/urmt/STEM-SPLITTER/src/shared/testing"
	"github.com/urmt/STEM-SPLITTER/src/shared/testing/dummy"
)

// recordingStore wraps the real store and captures every snapshot that
// an update produces, so tests can assert on the order of transitions.
type recordingStore struct {
	*jobstore.MemoryStore

	mu        sync.Mutex
	snapshots []jobentity.Job
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		MemoryStore: jobstore.NewMemoryStore(),
	}
}

func (r *recordingStore) Update(id string, updater jobentity.Updater) (jobentity.Job, error) {
	job, err := r.MemoryStore.Update(id, updater)
	if err != nil {
		return job, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, job)

	return job, nil
}

func (r *recordingStore) Snapshots() []jobentity.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make([]jobentity.Job, len(r.snapshots))
	copy(snapshots, r.snapshots)
	return snapshots
}

var _ = Describe("SeparationWorker", func() {
	var (
		store      *recordingStore
		model      *dummy.Model
		loader     *dummy.Loader
		registry   *modelregistry.Registry
		engine     *dummy.Engine
		sepWorker  worker.SeparationWorker
		workDir    string
		inputPath  string
		outputDir  string
		jobID      string
		stemNames  []string
		createdJob jobentity.Job
	)

	BeforeEach(func() {
		var err error
		workDir, err = os.MkdirTemp("", "worker-test")
		Expect(err).NotTo(HaveOccurred())

		stemNames = []string{"drums", "bass", "other", "vocals"}
		model = dummy.NewModel("htdemucs", stemNames, 44100)
		loader = dummy.NewLoader(model)
		registry = modelregistry.NewRegistry(loader)

		inputPath = filepath.Join(workDir, "input.wav")
		engine = dummy.NewEngine()
		engine.Seed(inputPath, testlib.SineWaveform(2, 4410, 44100))

		outputDir = filepath.Join(workDir, "outputs", "job-id")

		store = newRecordingStore()
		jobID = "job-id"
		createdJob = jobentity.Job{
			ID:        jobID,
			Filename:  "song.wav",
			ModelName: "htdemucs",
			Status:    jobentity.StatusQueued,
			CreatedAt: time.Now(),
			TempDir:   workDir,
			InputPath: inputPath,
			OutputDir: outputDir,
		}
		err = store.Create(createdJob)
		Expect(err).NotTo(HaveOccurred())

		sepWorker = worker.NewSeparationWorker(store, registry, engine)
	})

	AfterEach(func() {
		_ = os.RemoveAll(workDir)
	})

	Describe("a successful run", func() {
		BeforeEach(func() {
			sepWorker.Run(context.Background(), jobID)
		})

		It("completes the job", func() {
			job, err := store.Get(jobID)
			Expect(err).NotTo(HaveOccurred())

			Expect(job.Status).To(Equal(jobentity.StatusCompleted))
			Expect(job.Progress).To(Equal(100))
			Expect(job.CompletedAt).NotTo(BeNil())
			Expect(job.Error).To(BeEmpty())
		})

		It("records one stem per model source", func() {
			job, err := store.Get(jobID)
			Expect(err).NotTo(HaveOccurred())

			Expect(job.Stems).To(HaveLen(len(stemNames)))
			for i, stemName := range stemNames {
				Expect(job.Stems[i].Name).To(Equal(stemName))
				Expect(job.Stems[i].File).To(Equal(stemName + ".wav"))
				Expect(job.Stems[i].Path).To(Equal(filepath.Join(outputDir, stemName+".wav")))
			}
		})

		It("writes every stem file to the output directory", func() {
			job, err := store.Get(jobID)
			Expect(err).NotTo(HaveOccurred())

			for _, stem := range job.Stems {
				_, err := os.Stat(stem.Path)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("preserves the input's length and sample rate in each stem", func() {
			job, err := store.Get(jobID)
			Expect(err).NotTo(HaveOccurred())

			input, err := engine.Load(inputPath)
			Expect(err).NotTo(HaveOccurred())

			for _, stem := range job.Stems {
				wave, err := engine.Load(stem.Path)
				Expect(err).NotTo(HaveOccurred())
				Expect(wave.NumSamples()).To(Equal(input.NumSamples()))
				Expect(wave.SampleRate).To(Equal(input.SampleRate))
			}
		})

		It("moves the status strictly forward through the pipeline", func() {
			statuses := []jobentity.Status{}
			progresses := []int{}
			for _, snapshot := range store.Snapshots() {
				statuses = append(statuses, snapshot.Status)
				progresses = append(progresses, snapshot.Progress)
			}

			Expect(statuses).To(Equal([]jobentity.Status{
				jobentity.StatusLoadModel,
				jobentity.StatusLoadAudio,
				jobentity.StatusSeparating,
				jobentity.StatusSaving,
				jobentity.StatusCompleted,
			}))
			Expect(progresses).To(Equal([]int{10, 20, 30, 70, 100}))
		})
	})

	Describe("failure handling", func() {
		It("fails the job when the model can't be loaded", func() {
			_, err := store.Update(jobID, func(j *jobentity.Job) {
				j.ModelName = "not_a_model"
			})
			Expect(err).NotTo(HaveOccurred())

			sepWorker.Run(context.Background(), jobID)

			job, err := store.Get(jobID)
			Expect(err).NotTo(HaveOccurred())
			Expect(job.Status).To(Equal(jobentity.StatusError))
			Expect(job.Progress).To(Equal(10))
			Expect(job.Error).NotTo(BeEmpty())
		})

		It("fails the job when the audio can't be loaded", func() {
			engine.LoadError = errors.New("corrupted file")

			sepWorker.Run(context.Background(), jobID)

			job, err := store.Get(jobID)
			Expect(err).NotTo(HaveOccurred())
			Expect(job.Status).To(Equal(jobentity.StatusError))
			Expect(job.Progress).To(Equal(20))
		})

		It("fails the job when separation errors out", func() {
			model.SeparateError = errors.New("the model exploded")

			sepWorker.Run(context.Background(), jobID)

			job, err := store.Get(jobID)
			Expect(err).NotTo(HaveOccurred())
			Expect(job.Status).To(Equal(jobentity.StatusError))
			Expect(job.Progress).To(Equal(30))
			Expect(job.Error).To(ContainSubstring("the model exploded"))
		})

		It("fails the job when a stem can't be saved", func() {
			engine.SaveError = errors.New("disk full")

			sepWorker.Run(context.Background(), jobID)

			job, err := store.Get(jobID)
			Expect(err).NotTo(HaveOccurred())
			Expect(job.Status).To(Equal(jobentity.StatusError))
			Expect(job.Progress).To(Equal(70))
		})

		It("does nothing for a job that isn't in the store", func() {
			sepWorker.Run(context.Background(), "nonexistent")

			Expect(store.Snapshots()).To(BeEmpty())
			Expect(model.SeparateCalls()).To(Equal(0))
		})
	})
})
