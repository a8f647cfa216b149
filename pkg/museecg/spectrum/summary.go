// Package spectrum computes per-lead amplitude statistics and the dominant
// frequency of a decoded series.
package spectrum

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
)

// minFFTSamples is the shortest series a dominant frequency is computed for.
const minFFTSamples = 4

// Summary describes one lead.
type Summary struct {
	Lead       string  `json:"lead"`
	Samples    int     `json:"samples"`
	Min        float64 `json:"min_uv"`
	Max        float64 `json:"max_uv"`
	Mean       float64 `json:"mean_uv"`
	RMS        float64 `json:"rms_uv"`
	DominantHz float64 `json:"dominant_hz"`
}

// Summarize computes the statistics of s. DominantHz stays 0 when the sample
// rate is unknown or the series is too short.
func Summarize(lead waveform.Lead, s waveform.Series, sampleRate int) Summary {
	sum := Summary{Lead: lead.String(), Samples: len(s)}
	if len(s) == 0 {
		return sum
	}

	sum.Min, sum.Max = s[0], s[0]
	var total, squares float64
	for _, v := range s {
		sum.Min = math.Min(sum.Min, v)
		sum.Max = math.Max(sum.Max, v)
		total += v
		squares += v * v
	}
	n := float64(len(s))
	sum.Mean = total / n
	sum.RMS = math.Sqrt(squares / n)

	if sampleRate > 0 && len(s) >= minFFTSamples {
		sum.DominantHz = DominantFrequency(s, sum.Mean, sampleRate)
	}
	return sum
}

// SummarizeAll summarizes every lead of ls in enumeration order.
func SummarizeAll(ls waveform.LeadSet, sampleRate int) []Summary {
	out := make([]Summary, 0, waveform.NumLeads)
	ls.Each(func(lead waveform.Lead, s waveform.Series) {
		out = append(out, Summarize(lead, s, sampleRate))
	})
	return out
}

// DominantFrequency returns the frequency of the strongest non-DC bin of the
// real FFT of s with mean removed.
func DominantFrequency(s waveform.Series, mean float64, sampleRate int) float64 {
	centered := make([]float64, len(s))
	for i, v := range s {
		centered[i] = v - mean
	}

	spectrum := fft.FFTReal(centered)
	half := len(spectrum) / 2

	peak, peakMag := 0, 0.0
	for k := 1; k <= half; k++ {
		if mag := cmplx.Abs(spectrum[k]); mag > peakMag {
			peak, peakMag = k, mag
		}
	}
	if peak == 0 {
		return 0
	}
	return float64(peak) * float64(sampleRate) / float64(len(s))
}
