package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
)

// SpectrogramOptions size the spectrogram image.
type SpectrogramOptions struct {
	Width  int // 0 selects 1024
	Height int // frequency bins; 0 selects 256
}

// ErrNoSampleRate is returned when a spectrogram is requested for a tracing
// without a SampleBase.
var ErrNoSampleRate = errors.New("sample rate unknown")

// Spectrogram renders the magnitude spectrogram of s and saves it as a PNG
// at path. Samples are normalized to [-1, 1] first.
func Spectrogram(path string, s waveform.Series, sampleRate int, opts SpectrogramOptions) error {
	if len(s) == 0 {
		return ErrNoLeads
	}
	if sampleRate <= 0 {
		return ErrNoSampleRate
	}
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 256
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, opts.Width, opts.Height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, linear magnitude.
	spectrogram.Drawfft(
		img,
		normalize(s),
		uint32(sampleRate),
		uint32(opts.Height),
		false,
		false,
		true,
		false,
	)

	if err := spectrogram.SavePng(img, path); err != nil {
		return fmt.Errorf("failed to save spectrogram %s: %w", path, err)
	}
	return nil
}

func normalize(s waveform.Series) []float64 {
	peak := 0.0
	for _, v := range s {
		peak = math.Max(peak, math.Abs(v))
	}
	out := make([]float64, len(s))
	if peak == 0 {
		return out
	}
	for i, v := range s {
		out[i] = v / peak
	}
	return out
}
