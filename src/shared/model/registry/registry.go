package modelregistry

import (
	"sync"

	"github.com/apex/log"
	"github.com/urmt/STEM-SPLITTER/src/shared/lib/cerr"
	modelentity "github.com/urmt/STEM-SPLITTER/src/shared/model/entity"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Loader materializes a model variant. Loads are potentially expensive
// (weight materialization, device placement) so the registry caches the
// result per name for the process lifetime.
//counterfeiter:generate . Loader
type Loader interface {
	LoadModel(name string) (modelentity.Model, error)
}

type Registry struct {
	loader Loader

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
	models   map[string]modelentity.Model
}

func NewRegistry(loader Loader) *Registry {
	return &Registry{
		loader:   loader,
		keyLocks: map[string]*sync.Mutex{},
		models:   map[string]modelentity.Model{},
	}
}

// Get returns the cached model for name, loading it on first request.
// The load-and-insert sequence is serialized per name so that
// concurrent cold starts pay the load cost exactly once.
func (r *Registry) Get(name string) (modelentity.Model, error) {
	keyLock := r.keyLock(name)
	keyLock.Lock()
	defer keyLock.Unlock()

	if model, ok := r.cached(name); ok {
		return model, nil
	}

	log.WithField("model", name).Info("Loading model")

	model, err := r.loader.LoadModel(name)
	if err != nil {
		return nil, cerr.Field("model", name).
			Wrap(err).Error("Failed to load model")
	}

	log.WithField("model", name).Info("Model loaded successfully")

	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[name] = model

	return model, nil
}

func (r *Registry) keyLock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.keyLocks[name]
	if !ok {
		lock = &sync.Mutex{}
		r.keyLocks[name] = lock
	}

	return lock
}

func (r *Registry) cached(name string) (modelentity.Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	model, ok := r.models[name]
	return model, ok
}
