package waveform

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"
)

// DefaultScale is the MUSE amplitude resolution in microvolts per LSB used
// when a caller has no per-lead calibration.
const DefaultScale = 4.88

// Series is a calibrated sample sequence in microvolts.
type Series []float64

// DecodeError reports a waveform blob that could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding waveform: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder carries the default calibration for blobs that have none.
type Decoder struct {
	DefaultScale float64
}

// NewDecoder returns a Decoder; a zero scale selects DefaultScale.
func NewDecoder(defaultScale float64) *Decoder {
	if defaultScale == 0 {
		defaultScale = DefaultScale
	}
	return &Decoder{DefaultScale: defaultScale}
}

// Decode decodes blob with an explicit scale.
func (d *Decoder) Decode(blob string, scale float64) (Series, error) {
	return Decode(blob, scale)
}

// DecodeDefault decodes blob with the decoder's default scale.
func (d *Decoder) DecodeDefault(blob string) (Series, error) {
	return Decode(blob, d.DefaultScale)
}

// Decode turns base64 text holding little-endian int16 samples into a
// Series, multiplying each sample by scale. Whitespace inside the text is
// ignored. A trailing odd byte is dropped.
func Decode(blob string, scale float64) (Series, error) {
	raw, err := base64.StdEncoding.DecodeString(stripSpace(blob))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	counts, err := convertToInt16Samples(raw)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return scaleSamples(counts, scale), nil
}

func stripSpace(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// convertToInt16Samples reads floor(len(data)/2) little-endian int16 values.
func convertToInt16Samples(data []byte) ([]int16, error) {
	sampleCount := len(data) / 2
	buf := make([]int16, sampleCount)
	if sampleCount == 0 {
		return buf, nil
	}
	if err := binary.Read(bytes.NewReader(data[:sampleCount*2]), binary.LittleEndian, buf); err != nil {
		return nil, fmt.Errorf("reading int16 samples: %w", err)
	}
	return buf, nil
}

func scaleSamples(samples []int16, scale float64) Series {
	out := make(Series, len(samples))
	for i, s := range samples {
		out[i] = float64(s) * scale
	}
	return out
}
