package audioio

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Engine reads uploaded audio into canonical waveforms and persists
// separated stems back to disk.
//counterfeiter:generate . Engine
type Engine interface {
	Load(path string) (Waveform, error)
	Save(wave Waveform, path string) error
}
