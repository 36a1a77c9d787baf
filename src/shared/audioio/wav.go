package audioio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/urmt/STEM-SPLITTER/src/shared/lib/errors/mark"
	"github.com/urmt/STEM-SPLITTER/src/shared/lib/executor"
	youpywav "github.com/youpy/go-wav"
)

const stemBitDepth = 16

// Encoder is one write backend for a stem. Codec availability varies by
// deployment environment, so the engine tries a primary encoder and
// falls back to a secondary one before giving up.
type Encoder interface {
	Encode(wave Waveform, path string) error
}

var _ Engine = WAVEngine{}

// WAVEngine decodes uploads into waveforms and writes stems as WAV
// files. Non-WAV uploads are transcoded through ffmpeg first.
type WAVEngine struct {
	ffmpegBin string
	executor  executor.Executor
	primary   Encoder
	fallback  Encoder
}

func NewWAVEngine(ffmpegBin string, exec executor.Executor) WAVEngine {
	return NewWAVEngineWithEncoders(ffmpegBin, exec, PCMEncoder{}, InterleavedEncoder{})
}

func NewWAVEngineWithEncoders(ffmpegBin string, exec executor.Executor, primary Encoder, fallback Encoder) WAVEngine {
	return WAVEngine{
		ffmpegBin: ffmpegBin,
		executor:  exec,
		primary:   primary,
		fallback:  fallback,
	}
}

func (w WAVEngine) Load(path string) (Waveform, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".wav" {
		return w.decodeWAVFile(path)
	}

	transcodeDir, err := os.MkdirTemp("", "stem-splitter-transcode")
	if err != nil {
		return Waveform{}, errors.Wrap(err, "Failed to create a scratch dir for transcoding")
	}
	defer func() {
		_ = os.RemoveAll(transcodeDir)
	}()

	transcodedPath := filepath.Join(transcodeDir, "input.wav")
	if err := w.transcodeToWAV(path, transcodedPath); err != nil {
		return Waveform{}, errors.Wrap(err, "Failed to transcode input to WAV")
	}

	return w.decodeWAVFile(transcodedPath)
}

func (w WAVEngine) transcodeToWAV(sourcePath string, destPath string) error {
	args := []string{"-y", "-i", sourcePath, "-f", "wav", destPath}

	cmd := w.executor.Command(w.ffmpegBin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return mark.Wrap(err, DecodeMark,
			fmt.Sprintf("ffmpeg could not decode the input: %s", string(output)))
	}

	return nil
}

func (w WAVEngine) decodeWAVFile(path string) (Waveform, error) {
	file, err := os.Open(path)
	if err != nil {
		return Waveform{}, mark.Wrap(err, DecodeMark, "Failed to open audio file")
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return Waveform{}, mark.Message(DecodeMark, "Input is not a parseable WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return Waveform{}, mark.Wrap(err, DecodeMark, "Failed to read PCM data from WAV file")
	}

	numChannels := buf.Format.NumChannels
	if numChannels <= 0 {
		return Waveform{}, mark.Message(DecodeMark, "WAV file reports no channels")
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = stemBitDepth
	}

	numSamples := len(buf.Data) / numChannels
	scale := float32(int(1) << (bitDepth - 1))

	data := make([]float32, numChannels*numSamples)
	for ch := 0; ch < numChannels; ch++ {
		for s := 0; s < numSamples; s++ {
			data[ch*numSamples+s] = float32(buf.Data[s*numChannels+ch]) / scale
		}
	}

	return NewWaveform(Tensor{
		Shape: []int{numChannels, numSamples},
		Data:  data,
	}, buf.Format.SampleRate)
}

func (w WAVEngine) Save(wave Waveform, path string) error {
	primaryErr := w.primary.Encode(wave, path)
	if primaryErr == nil {
		return nil
	}

	log.WithFields(log.Fields{
		"path":  path,
		"error": primaryErr.Error(),
	}).Warn("Primary encoder failed, trying fallback encoder")

	fallbackErr := w.fallback.Encode(wave, path)
	if fallbackErr == nil {
		return nil
	}

	bothErr := errors.CombineErrors(primaryErr, fallbackErr)
	return mark.Wrap(bothErr, EncodeMark, "Both the primary and fallback encoders failed")
}

var _ Encoder = PCMEncoder{}

// PCMEncoder writes a stem through go-audio's WAV encoder in the
// engine's native (channels, samples) layout.
type PCMEncoder struct{}

func (PCMEncoder) Encode(wave Waveform, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "Failed to create stem file")
	}
	defer file.Close()

	numChannels := wave.NumChannels()
	numSamples := wave.NumSamples()

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  wave.SampleRate,
		},
		Data:           make([]int, numChannels*numSamples),
		SourceBitDepth: stemBitDepth,
	}

	for ch := 0; ch < numChannels; ch++ {
		channel := wave.Channel(ch)
		for s := 0; s < numSamples; s++ {
			buf.Data[s*numChannels+ch] = quantizeSample(channel[s])
		}
	}

	encoder := wav.NewEncoder(file, wave.SampleRate, stemBitDepth, numChannels, 1)
	if err := encoder.Write(buf); err != nil {
		_ = encoder.Close()
		return errors.Wrap(err, "Failed to write PCM data to stem file")
	}

	if err := encoder.Close(); err != nil {
		return errors.Wrap(err, "Failed to finalize stem file")
	}

	return nil
}

var _ Encoder = InterleavedEncoder{}

// InterleavedEncoder is the fallback write path: a second WAV backend
// fed sample-major (samples, channels) data, mirroring how a numpy
// transpose would be handed to a different audio library.
type InterleavedEncoder struct{}

func (InterleavedEncoder) Encode(wave Waveform, path string) error {
	numChannels := wave.NumChannels()
	if numChannels > 2 {
		return errors.Newf("Fallback encoder supports at most 2 channels, got %d", numChannels)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "Failed to create stem file")
	}
	defer file.Close()

	numSamples := wave.NumSamples()
	samples := make([]youpywav.Sample, numSamples)
	for ch := 0; ch < numChannels; ch++ {
		channel := wave.Channel(ch)
		for s := 0; s < numSamples; s++ {
			samples[s].Values[ch] = quantizeSample(channel[s])
		}
	}

	writer := youpywav.NewWriter(file, uint32(numSamples), uint16(numChannels), uint32(wave.SampleRate), stemBitDepth)
	if err := writer.WriteSamples(samples); err != nil {
		return errors.Wrap(err, "Failed to write samples to stem file")
	}

	return nil
}

func quantizeSample(val float32) int {
	scaled := math.Round(float64(val) * float64(math.MaxInt16))
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}

	return int(scaled)
}
