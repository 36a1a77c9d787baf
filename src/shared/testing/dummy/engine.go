package dummy

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/urmt/STEM-SPLITTER/src/shared/audioio"
)

var _ audioio.Engine = &Engine{}

// Engine keeps waveforms in a map keyed by path and touches a real
// file on Save so callers that stat the output still see one.
type Engine struct {
	LoadError error
	SaveError error

	mu    sync.Mutex
	files map[string]audioio.Waveform
}

func NewEngine() *Engine {
	return &Engine{
		files: map[string]audioio.Waveform{},
	}
}

func (e *Engine) Load(path string) (audioio.Waveform, error) {
	if e.LoadError != nil {
		return audioio.Waveform{}, e.LoadError
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	wave, ok := e.files[path]
	if !ok {
		return audioio.Waveform{}, errors.Newf("No dummy audio at %s", path)
	}

	return wave, nil
}

func (e *Engine) Save(wave audioio.Waveform, path string) error {
	if e.SaveError != nil {
		return e.SaveError
	}

	if err := os.WriteFile(path, []byte("dummy audio"), 0644); err != nil {
		return errors.Wrap(err, "Failed to touch the dummy audio file")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.files[path] = wave
	return nil
}

// Seed registers a waveform for Load without going through Save.
func (e *Engine) Seed(path string, wave audioio.Waveform) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.files[path] = wave
}

func (e *Engine) SavedPaths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	paths := make([]string, 0, len(e.files))
	for path := range e.files {
		paths = append(paths, path)
	}

	return paths
}
