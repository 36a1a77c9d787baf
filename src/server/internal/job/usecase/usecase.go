package jobusecase

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/google/uuid"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/errors/api"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/job/errors"
	"github.com/urmt/STEM-SPLITTER/src/server/internal/worker"
	"github.com/urmt/STEM-SPLITTER/src/shared/job/entity"
	"github.com/urmt/STEM-SPLITTER/src/shared/job/store"
	modelentity "github.com/urmt/STEM-SPLITTER/src/shared/model/entity"
)

var allowedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
}

type SubmitRequest struct {
	Filename        string
	Content         io.Reader
	ModelName       string
	OutputDirectory string
}

type Download struct {
	Path          string
	SuggestedName string
}

type Usecase struct {
	store       jobentity.Store
	dispatcher  worker.Dispatcher
	outputRoot  string
	scratchRoot string
}

func NewUsecase(store jobentity.Store, dispatcher worker.Dispatcher, outputRoot string, scratchRoot string) Usecase {
	return Usecase{
		store:       store,
		dispatcher:  dispatcher,
		outputRoot:  outputRoot,
		scratchRoot: scratchRoot,
	}
}

// Submit validates the upload, persists it to scratch storage, creates
// the job record and dispatches it. All validation happens before the
// record is created so a rejected upload never grows the job table.
func (u Usecase) Submit(req SubmitRequest) (jobentity.Job, *api.Error) {
	if req.Filename == "" {
		return jobentity.Job{}, api.CommitError(
			errors.New("The upload has an empty filename"),
			joberrors.MissingAudioFileCode,
			"No file selected")
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !allowedExtensions[ext] {
		return jobentity.Job{}, api.CommitError(
			errors.Newf("Extension %s is not in the allow-list", ext),
			joberrors.UnsupportedFileTypeCode,
			fmt.Sprintf("Unsupported file type: %s", ext))
	}

	modelName := req.ModelName
	if modelName == "" {
		modelName = modelentity.DefaultModelName
	}

	jobID := uuid.New().String()

	tempDir, err := os.MkdirTemp(u.scratchRoot, "stem-splitter-job")
	if err != nil {
		return jobentity.Job{}, api.CommitError(
			errors.Wrap(err, "Failed to create scratch storage for the upload"),
			api.DefaultErrorCode,
			"Unknown error: Failed to store the uploaded file")
	}

	inputPath := filepath.Join(tempDir, "input"+ext)
	if err := persistUpload(req.Content, inputPath); err != nil {
		_ = os.RemoveAll(tempDir)
		return jobentity.Job{}, api.CommitError(
			errors.Wrap(err, "Failed to save the uploaded file"),
			api.DefaultErrorCode,
			"Unknown error: Failed to store the uploaded file")
	}

	outputDir, useCustomDir := u.resolveOutputDir(req.OutputDirectory, jobID)

	job := jobentity.Job{
		ID:           jobID,
		Filename:     req.Filename,
		ModelName:    modelName,
		Status:       jobentity.StatusQueued,
		Progress:     0,
		CreatedAt:    time.Now(),
		TempDir:      tempDir,
		InputPath:    inputPath,
		OutputDir:    outputDir,
		UseCustomDir: useCustomDir,
	}

	if err := u.store.Create(job); err != nil {
		_ = os.RemoveAll(tempDir)
		return jobentity.Job{}, api.CommitError(
			errors.Wrap(err, "Failed to create the job record"),
			api.DefaultErrorCode,
			"Unknown error: Failed to create the job")
	}

	if err := u.dispatcher.Dispatch(jobID); err != nil {
		err = errors.Wrap(err, "Failed to dispatch the job")

		// the record exists, so settle it into a terminal state instead
		// of leaving a queued job that no worker will ever pick up
		failed, updateErr := u.store.Update(jobID, func(j *jobentity.Job) {
			j.Fail("The job could not be scheduled")
		})
		if updateErr == nil {
			_, _ = u.store.SweepTerminal(failed.ID)
		}

		if markers.Is(err, worker.QueueFull) {
			return jobentity.Job{}, api.CommitError(err,
				joberrors.QueueFullCode,
				"The server is at capacity, please try again later")
		}

		return jobentity.Job{}, api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to schedule the job")
	}

	return job, nil
}

// Status returns the job's current snapshot. The first status read
// after a job turns terminal also sweeps its scratch input files.
func (u Usecase) Status(jobID string) (jobentity.Job, *api.Error) {
	job, err := u.store.Get(jobID)
	if err != nil {
		return jobentity.Job{}, u.storeError(err, "Failed to fetch the job")
	}

	if !job.Terminal() {
		return job, nil
	}

	swept, err := u.store.SweepTerminal(jobID)
	if err != nil {
		return jobentity.Job{}, u.storeError(err, "Failed to sweep the job's scratch storage")
	}

	return swept, nil
}

func (u Usecase) Download(jobID string, stemName string) (Download, *api.Error) {
	job, err := u.store.Get(jobID)
	if err != nil {
		return Download{}, u.storeError(err, "Failed to fetch the job")
	}

	if job.Status != jobentity.StatusCompleted {
		return Download{}, api.CommitError(
			errors.Newf("Job is in status %s", job.Status),
			joberrors.JobNotCompleteCode,
			"Job not completed")
	}

	stem, ok := job.FindStem(stemName)
	if !ok {
		return Download{}, api.CommitError(
			errors.Newf("Job has no stem named %s", stemName),
			joberrors.StemNotFoundCode,
			"Stem not found")
	}

	return Download{
		Path:          stem.Path,
		SuggestedName: fmt.Sprintf("%s_%s.wav", job.Filename, stem.Name),
	}, nil
}

func (u Usecase) ListModels() []modelentity.Metadata {
	return modelentity.Catalog()
}

func (u Usecase) resolveOutputDir(customDir string, jobID string) (string, bool) {
	if customDir != "" {
		if info, err := os.Stat(customDir); err == nil && info.IsDir() {
			return filepath.Join(customDir, "stems_"+jobID), true
		}
	}

	return filepath.Join(u.outputRoot, jobID), false
}

func (u Usecase) storeError(err error, msg string) *api.Error {
	err = errors.Wrap(err, msg)

	if markers.Is(err, jobstore.JobNotFound) {
		return api.CommitError(err,
			joberrors.JobNotFoundCode,
			"Job not found")
	}

	return api.CommitError(err,
		api.DefaultErrorCode,
		"Unknown error: Failed to access the job table")
}

func persistUpload(content io.Reader, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "Failed to create the input file")
	}

	if _, err := io.Copy(file, content); err != nil {
		_ = file.Close()
		return errors.Wrap(err, "Failed to write the input file")
	}

	if err := file.Close(); err != nil {
		return errors.Wrap(err, "Failed to flush the input file")
	}

	return nil
}
