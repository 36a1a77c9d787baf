package modelentity

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/urmt/STEM-SPLITTER/src/shared/audioio"
	"github.com/urmt/STEM-SPLITTER/src/shared/lib/errors/mark"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const DefaultModelName = "htdemucs"

// UnknownModelMark marks requests for a model name outside the catalog.
var UnknownModelMark = errors.New("Unknown model name")

// Model is one loaded separation model variant. Separate consumes a
// single-item batch and returns one waveform per source, in the order
// reported by Sources, all sharing the input's length and sample rate.
//counterfeiter:generate . Model
type Model interface {
	Name() string
	Sources() []string
	SampleRate() int
	Separate(ctx context.Context, batch audioio.Batch) ([]audioio.Waveform, error)
}

type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Stems       int    `json:"stems"`
	Recommended bool   `json:"recommended"`
}

var catalog = []Metadata{
	{
		Name:        "htdemucs",
		Description: "High-quality 4-stem separation (vocals, drums, bass, other)",
		Stems:       4,
		Recommended: true,
	},
	{
		Name:        "htdemucs_ft",
		Description: "Fine-tuned version with improved quality",
		Stems:       4,
		Recommended: false,
	},
	{
		Name:        "htdemucs_6s",
		Description: "6-stem separation (vocals, drums, bass, piano, guitar, other)",
		Stems:       6,
		Recommended: false,
	},
}

var sourceNames = map[string][]string{
	"htdemucs":    {"drums", "bass", "other", "vocals"},
	"htdemucs_ft": {"drums", "bass", "other", "vocals"},
	"htdemucs_6s": {"drums", "bass", "other", "vocals", "guitar", "piano"},
}

// Catalog returns the static model metadata - pure data, no I/O.
func Catalog() []Metadata {
	models := make([]Metadata, len(catalog))
	copy(models, catalog)
	return models
}

// SourceNames returns the ordered stem names a model variant produces.
func SourceNames(modelName string) ([]string, error) {
	sources, ok := sourceNames[modelName]
	if !ok {
		return nil, mark.Message(UnknownModelMark, "No model in the catalog is named "+modelName)
	}

	names := make([]string, len(sources))
	copy(names, sources)
	return names, nil
}
