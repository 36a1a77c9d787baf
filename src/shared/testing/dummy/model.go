package dummy

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/urmt/STEM-SPLITTER/src/shared/audioio"
	modelentity "github.com/urmt/STEM-SPLITTER/src/shared/model/entity"
)

var _ modelentity.Model = &Model{}

type Model struct {
	ModelName     string
	StemSources   []string
	Rate          int
	SeparateError error

	mu            sync.Mutex
	separateCalls int
}

func NewModel(name string, sources []string, sampleRate int) *Model {
	return &Model{
		ModelName:   name,
		StemSources: sources,
		Rate:        sampleRate,
	}
}

func (m *Model) Name() string {
	return m.ModelName
}

func (m *Model) Sources() []string {
	return m.StemSources
}

func (m *Model) SampleRate() int {
	return m.Rate
}

// Separate hands back one copy of the mix per source, so stem length
// and sample rate always match the input.
func (m *Model) Separate(_ context.Context, batch audioio.Batch) ([]audioio.Waveform, error) {
	m.mu.Lock()
	m.separateCalls++
	m.mu.Unlock()

	if m.SeparateError != nil {
		return nil, m.SeparateError
	}

	if len(batch.Mixes) != 1 {
		return nil, errors.Newf("Expected a single item batch, got %d", len(batch.Mixes))
	}

	mix := batch.Mixes[0]
	stems := make([]audioio.Waveform, len(m.StemSources))
	for i := range m.StemSources {
		stems[i] = mix
	}

	return stems, nil
}

func (m *Model) SeparateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.separateCalls
}

var _ interface {
	LoadModel(name string) (modelentity.Model, error)
} = &Loader{}

type Loader struct {
	Models    map[string]modelentity.Model
	LoadError error
	// LoadDelay lets tests hold a load open to exercise concurrent
	// cold starts.
	LoadDelay chan struct{}

	mu        sync.Mutex
	loadCalls int
}

func NewLoader(models ...*Model) *Loader {
	loader := &Loader{
		Models: map[string]modelentity.Model{},
	}

	for _, model := range models {
		loader.Models[model.ModelName] = model
	}

	return loader
}

func (l *Loader) LoadModel(name string) (modelentity.Model, error) {
	l.mu.Lock()
	l.loadCalls++
	l.mu.Unlock()

	if l.LoadDelay != nil {
		<-l.LoadDelay
	}

	if l.LoadError != nil {
		return nil, l.LoadError
	}

	model, ok := l.Models[name]
	if !ok {
		return nil, errors.Newf("No dummy model named %s", name)
	}

	return model, nil
}

func (l *Loader) LoadCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.loadCalls
}
