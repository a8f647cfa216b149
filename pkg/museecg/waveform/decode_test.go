package waveform

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeSamples(samples ...int16) string {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func TestDecodeRoundTrip(t *testing.T) {
	blob := base64.StdEncoding.EncodeToString([]byte{0x01, 0x00, 0xFF, 0xFF})

	got, err := Decode(blob, 2.0)
	require.NoError(t, err)
	assert.Equal(t, Series{2.0, -2.0}, got)
}

func TestDecodeEvenLength(t *testing.T) {
	samples := []int16{0, 1, -1, 256, 32767, -32768, 1234}
	blob := encodeSamples(samples...)

	got, err := Decode(blob, 4.88)
	require.NoError(t, err)
	require.Len(t, got, len(samples))
	for i, s := range samples {
		assert.Equal(t, float64(s)*4.88, got[i], "sample %d", i)
	}
}

func TestDecodeOddLengthDropsTrailingByte(t *testing.T) {
	blob := base64.StdEncoding.EncodeToString([]byte{0x10, 0x00, 0x20, 0x00, 0x7F})

	got, err := Decode(blob, 1.0)
	require.NoError(t, err)
	assert.Equal(t, Series{16, 32}, got)
}

func TestDecodeSingleByte(t *testing.T) {
	blob := base64.StdEncoding.EncodeToString([]byte{0x42})

	got, err := Decode(blob, 1.0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeEmpty(t *testing.T) {
	for _, scale := range []float64{4.88, 1.0, 0, -3.5} {
		got, err := Decode("", scale)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestDecodeInvalidBase64(t *testing.T) {
	tests := []string{
		"!!!!",
		"AQ",      // missing padding
		"AQAB/w=", // bad padding
		"@@@@AQA=",
	}

	for _, blob := range tests {
		t.Run(blob, func(t *testing.T) {
			got, err := Decode(blob, 1.0)
			require.Error(t, err)
			assert.Nil(t, got)

			var decErr *DecodeError
			require.True(t, errors.As(err, &decErr))
			assert.NotNil(t, errors.Unwrap(err))
		})
	}
}

func TestDecodeIgnoresWhitespace(t *testing.T) {
	blob := encodeSamples(5, -5, 7)
	wrapped := "  " + blob[:4] + "\n" + blob[4:] + "\r\n\t"

	got, err := Decode(wrapped, 1.0)
	require.NoError(t, err)
	assert.Equal(t, Series{5, -5, 7}, got)
}

func TestDecodeNegativeScaleInverts(t *testing.T) {
	got, err := Decode(encodeSamples(10, -20), -0.5)
	require.NoError(t, err)
	assert.Equal(t, Series{-5, 10}, got)
}

func TestDecoderDefaultScale(t *testing.T) {
	blob := encodeSamples(100)

	d := NewDecoder(0)
	assert.Equal(t, DefaultScale, d.DefaultScale)

	got, err := d.DecodeDefault(blob)
	require.NoError(t, err)
	assert.Equal(t, Series{100 * DefaultScale}, got)

	custom := NewDecoder(2.5)
	got, err = custom.DecodeDefault(blob)
	require.NoError(t, err)
	assert.Equal(t, Series{250}, got)

	got, err = custom.Decode(blob, 1)
	require.NoError(t, err)
	assert.Equal(t, Series{100}, got)
}

func TestConvertToInt16Samples(t *testing.T) {
	// Little-endian int16: 256, 32767
	samples, err := convertToInt16Samples([]byte{0x00, 0x01, 0xFF, 0x7F})
	require.NoError(t, err)
	assert.Equal(t, []int16{256, 32767}, samples)
}
