package audioio

import "github.com/cockroachdb/errors"

var (
	// DecodeMark marks failures to parse an input container/codec.
	DecodeMark = errors.New("Failed to decode audio input")
	// ShapeMark marks decode results that cannot be canonicalized to
	// a (channels, samples) waveform.
	ShapeMark = errors.New("Audio data has an unusable shape")
	// EncodeMark marks failures of both the primary and the fallback
	// encoder while writing a stem.
	EncodeMark = errors.New("Failed to encode audio output")
)
