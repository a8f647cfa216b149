package export

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
	"github.com/himanishpuri/museecg/pkg/utils"
)

const (
	// DefaultWAVRate is used when the tracing has no sample rate.
	DefaultWAVRate = 500

	wavBitDepth  = 16
	wavPCMFormat = 1
)

// ErrNoSamples is returned when every lead is empty.
var ErrNoSamples = errors.New("no samples to export")

// WAVOptions control the conversion from microvolts back to PCM counts.
type WAVOptions struct {
	SampleRate int     // Hz; 0 selects DefaultWAVRate
	Resolution float64 // microvolts per count; 0 selects waveform.DefaultScale
}

func (o WAVOptions) withDefaults() WAVOptions {
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultWAVRate
	}
	if o.Resolution <= 0 {
		o.Resolution = waveform.DefaultScale
	}
	return o
}

// WriteWAV encodes the twelve leads of ls as a 16-bit PCM WAV with one
// channel per lead in enumeration order. Shorter leads are zero-padded and
// out-of-range values are clamped.
func WriteWAV(w io.WriteSeeker, ls waveform.LeadSet, opts WAVOptions) error {
	opts = opts.withDefaults()

	frames := 0
	ls.Each(func(_ waveform.Lead, s waveform.Series) {
		frames = max(frames, len(s))
	})
	if frames == 0 {
		return ErrNoSamples
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: waveform.NumLeads,
			SampleRate:  opts.SampleRate,
		},
		Data:           make([]int, frames*waveform.NumLeads),
		SourceBitDepth: wavBitDepth,
	}
	ls.Each(func(lead waveform.Lead, s waveform.Series) {
		for i, v := range s {
			buf.Data[i*waveform.NumLeads+int(lead)] = toCount(v, opts.Resolution)
		}
	})

	enc := wav.NewEncoder(w, opts.SampleRate, wavBitDepth, waveform.NumLeads, wavPCMFormat)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}

// WriteWAVFile writes the WAV to path atomically.
func WriteWAVFile(path string, ls waveform.LeadSet, opts WAVOptions) error {
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		ws, ok := w.(io.WriteSeeker)
		if !ok {
			return fmt.Errorf("wav output for %s is not seekable", path)
		}
		return WriteWAV(ws, ls, opts)
	})
}

func toCount(uv, resolution float64) int {
	c := math.Round(uv / resolution)
	return int(math.Max(math.MinInt16, math.Min(math.MaxInt16, c)))
}
