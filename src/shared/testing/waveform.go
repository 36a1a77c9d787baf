package testing

import (
	"math"

	"github.com/onsi/gomega"
	"github.com/urmt/STEM-SPLITTER/src/shared/audioio"
)

// SineWaveform produces a synthetic multi-channel waveform: one sine
// tone per channel, offset in frequency so channels are distinguishable.
func SineWaveform(numChannels int, numSamples int, sampleRate int) audioio.Waveform {
	data := make([]float32, numChannels*numSamples)
	for ch := 0; ch < numChannels; ch++ {
		freq := 220.0 * float64(ch+1)
		for s := 0; s < numSamples; s++ {
			t := float64(s) / float64(sampleRate)
			data[ch*numSamples+s] = float32(0.5 * math.Sin(2*math.Pi*freq*t))
		}
	}

	wave, err := audioio.NewWaveform(audioio.Tensor{
		Shape: []int{numChannels, numSamples},
		Data:  data,
	}, sampleRate)
	gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())

	return wave
}
