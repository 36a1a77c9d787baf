package worker

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/urmt/STEM-SPLITTER/src/shared/audioio"
	"github.com/urmt/STEM-SPLITTER/src/shared/job/entity"
	"github.com/urmt/STEM-SPLITTER/src/shared/lib/cerr"
	modelentity "github.com/urmt/STEM-SPLITTER/src/shared/model/entity"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . ModelRegistry
type ModelRegistry interface {
	Get(name string) (modelentity.Model, error)
}

// SeparationWorker runs one job end to end: a strictly linear pipeline
// that advances the job record through its states and never retries.
// Failures at any stage land the job in the error state with its
// progress frozen where the failure happened.
type SeparationWorker struct {
	store    jobentity.Store
	registry ModelRegistry
	engine   audioio.Engine
}

func NewSeparationWorker(store jobentity.Store, registry ModelRegistry, engine audioio.Engine) SeparationWorker {
	return SeparationWorker{
		store:    store,
		registry: registry,
		engine:   engine,
	}
}

func (w SeparationWorker) Run(ctx context.Context, jobID string) {
	logger := log.WithField("job_id", jobID)

	job, err := w.store.Get(jobID)
	if err != nil {
		cerr.Log(cerr.Field("job_id", jobID).
			Wrap(err).Error("Worker was dispatched a job that's not in the store"))
		return
	}

	if err := w.process(ctx, job); err != nil {
		cerr.Log(cerr.Field("job_id", jobID).
			Wrap(err).Error("Failed to process job"))

		message := err.Error()
		if _, updateErr := w.store.Update(jobID, func(j *jobentity.Job) {
			j.Fail(message)
		}); updateErr != nil {
			cerr.Log(cerr.Field("job_id", jobID).
				Wrap(updateErr).Error("Failed to record the job failure"))
		}

		return
	}

	logger.Info("Job completed successfully")
}

func (w SeparationWorker) process(ctx context.Context, job jobentity.Job) error {
	errctx := cerr.Fields(cerr.F{
		"job_id": job.ID,
		"model":  job.ModelName,
	})

	if err := w.advance(job.ID, jobentity.StatusLoadModel, 10); err != nil {
		return err
	}

	model, err := w.registry.Get(job.ModelName)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to load model")
	}

	if err := w.advance(job.ID, jobentity.StatusLoadAudio, 20); err != nil {
		return err
	}

	wave, err := w.engine.Load(job.InputPath)
	if err != nil {
		return errctx.Field("input_path", job.InputPath).
			Wrap(err).Error("Failed to load audio")
	}

	if err := w.advance(job.ID, jobentity.StatusSeparating, 30); err != nil {
		return err
	}

	sources, err := model.Separate(ctx, wave.Batch())
	if err != nil {
		return errctx.Wrap(err).Error("Failed to separate stems")
	}

	stemNames := model.Sources()
	if len(sources) != len(stemNames) {
		return errctx.Field("stem_count", len(sources)).
			Error("Model returned an unexpected number of stems")
	}

	if err := w.advance(job.ID, jobentity.StatusSaving, 70); err != nil {
		return err
	}

	if err := os.MkdirAll(job.OutputDir, os.ModePerm); err != nil {
		return errctx.Field("output_dir", job.OutputDir).
			Wrap(err).Error("Failed to create the output directory")
	}

	stems := make([]jobentity.StemFile, 0, len(stemNames))
	for i, stemName := range stemNames {
		stemFile := stemName + ".wav"
		stemPath := filepath.Join(job.OutputDir, stemFile)

		if err := w.engine.Save(sources[i], stemPath); err != nil {
			return errctx.Field("stem", stemName).
				Wrap(err).Error("Failed to save stem")
		}

		log.WithFields(log.Fields{
			"job_id": job.ID,
			"stem":   stemName,
			"path":   stemPath,
		}).Info("Saved stem")

		stems = append(stems, jobentity.StemFile{
			Name: stemName,
			File: stemFile,
			Path: stemPath,
		})
	}

	completedAt := time.Now()
	if _, err := w.store.Update(job.ID, func(j *jobentity.Job) {
		j.Complete(stems, completedAt)
	}); err != nil {
		return errctx.Wrap(err).Error("Failed to mark the job completed")
	}

	return nil
}

func (w SeparationWorker) advance(jobID string, status jobentity.Status, progress int) error {
	_, err := w.store.Update(jobID, func(j *jobentity.Job) {
		j.Advance(status, progress)
	})
	if err != nil {
		return cerr.Fields(cerr.F{
			"job_id": jobID,
			"status": status,
		}).Wrap(err).Error("Failed to advance the job state")
	}

	return nil
}
