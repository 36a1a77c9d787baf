package audioio

import (
	"fmt"

	"github.com/urmt/STEM-SPLITTER/src/shared/lib/errors/mark"
)

// Tensor is the raw result of a decode backend: a flat buffer plus its
// dimensions. It only exists on the boundary between decoders and
// NewWaveform - everything past that point works with Waveform.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Waveform is the canonical (channels, samples) representation that the
// separation models operate on. It can only be constructed through
// NewWaveform, which is the single place shape coercion is allowed.
type Waveform struct {
	SampleRate int
	channels   [][]float32
}

// NewWaveform validates and canonicalizes a decoded tensor. The only
// permitted coercion is squeezing a singleton leading dimension off a
// 3-D result. Anything else that isn't already 2-D is a ShapeMark error.
func NewWaveform(tensor Tensor, sampleRate int) (Waveform, error) {
	shape := tensor.Shape

	if len(shape) == 3 && shape[0] == 1 {
		shape = shape[1:]
	}

	if len(shape) != 2 {
		return Waveform{}, mark.Message(ShapeMark,
			fmt.Sprintf("Audio must be 2D (channels, samples), got shape: %v", tensor.Shape))
	}

	numChannels := shape[0]
	numSamples := shape[1]

	if numChannels <= 0 || numSamples <= 0 {
		return Waveform{}, mark.Message(ShapeMark,
			fmt.Sprintf("Audio dimensions must be positive, got shape: %v", tensor.Shape))
	}

	if numChannels*numSamples != len(tensor.Data) {
		return Waveform{}, mark.Message(ShapeMark,
			fmt.Sprintf("Audio data length %d doesn't match shape %v", len(tensor.Data), tensor.Shape))
	}

	channels := make([][]float32, numChannels)
	for i := range channels {
		channels[i] = tensor.Data[i*numSamples : (i+1)*numSamples]
	}

	return Waveform{
		SampleRate: sampleRate,
		channels:   channels,
	}, nil
}

func (w Waveform) NumChannels() int {
	return len(w.channels)
}

func (w Waveform) NumSamples() int {
	if len(w.channels) == 0 {
		return 0
	}

	return len(w.channels[0])
}

func (w Waveform) Channel(i int) []float32 {
	return w.channels[i]
}

// Batch adds the leading batch dimension of size 1 that separation
// models expect, even for single file jobs.
func (w Waveform) Batch() Batch {
	return Batch{Mixes: []Waveform{w}}
}

type Batch struct {
	Mixes []Waveform
}
