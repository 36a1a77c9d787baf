package jobentity

import "time"

type Status string

const (
	StatusQueued     Status = "queued"
	StatusLoadModel  Status = "loading_model"
	StatusLoadAudio  Status = "loading_audio"
	StatusSeparating Status = "separating_stems"
	StatusSaving     Status = "saving_stems"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

type StemFile struct {
	Name string `json:"name"`
	File string `json:"file"`
	Path string `json:"path"`
}

// Job is one tracked separation request. The record itself carries the
// full polled API payload; TempDir/InputPath are scratch locations owned
// by the job until the first terminal-state observation sweeps them.
type Job struct {
	ID           string     `json:"id"`
	Filename     string     `json:"filename"`
	ModelName    string     `json:"model"`
	Status       Status     `json:"status"`
	Progress     int        `json:"progress"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	TempDir      string     `json:"temp_dir,omitempty"`
	InputPath    string     `json:"input_path,omitempty"`
	OutputDir    string     `json:"output_dir"`
	UseCustomDir bool       `json:"use_custom_dir"`
	Stems        []StemFile `json:"stems,omitempty"`
	Error        string     `json:"error,omitempty"`
}

func (j Job) Terminal() bool {
	return j.Status.Terminal()
}

// Advance moves the job to a pipeline stage. Progress never regresses -
// a failure freezes it at its last value so the UI can show where in
// the pipeline the job died.
func (j *Job) Advance(status Status, progress int) {
	j.Status = status
	if progress > j.Progress {
		j.Progress = progress
	}
}

func (j *Job) Fail(message string) {
	j.Status = StatusError
	j.Error = message
}

func (j *Job) Complete(stems []StemFile, completedAt time.Time) {
	j.Status = StatusCompleted
	j.Progress = 100
	j.Stems = stems
	j.CompletedAt = &completedAt
}

func (j Job) FindStem(stemName string) (StemFile, bool) {
	for _, stem := range j.Stems {
		if stem.Name == stemName {
			return stem, true
		}
	}

	return StemFile{}, false
}

func (j Job) Clone() Job {
	clone := j

	if j.CompletedAt != nil {
		completedAt := *j.CompletedAt
		clone.CompletedAt = &completedAt
	}

	if j.Stems != nil {
		clone.Stems = make([]StemFile, len(j.Stems))
		copy(clone.Stems, j.Stems)
	}

	return clone
}
