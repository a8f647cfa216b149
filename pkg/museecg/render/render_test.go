package render

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
)

func testLeadSet() waveform.LeadSet {
	ls := waveform.NewLeadSet()
	n := 1000
	lI, lII := make(waveform.Series, n), make(waveform.Series, n)
	for i := 0; i < n; i++ {
		lI[i] = 500 * math.Sin(2*math.Pi*1.2*float64(i)/500)
		lII[i] = 800 * math.Sin(2*math.Pi*1.2*float64(i)/500+0.3)
	}
	ls.Set(waveform.I, lI)
	ls.Set(waveform.II, lII)
	ls.Set(waveform.V2, lI)
	ls.Set(waveform.V5, lII)
	ls.Derive()
	return ls
}

func TestTracesDefaultLeads(t *testing.T) {
	var buf bytes.Buffer
	err := Traces(&buf, testLeadSet(), nil, TraceOptions{Width: 400, StripHeight: 100})
	require.NoError(t, err)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 300), img.Bounds())

	// Some pixel in the first strip is drawn in the trace colour.
	found := false
	for y := 0; y < 100 && !found; y++ {
		for x := 0; x < 400; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r == 0 && g == 0 && b == 0 {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "expected a trace in the aVF strip")
}

func TestTracesFlatAndShortSeries(t *testing.T) {
	ls := waveform.NewLeadSet()
	ls.Set(waveform.V1, waveform.Series{3, 3, 3})
	ls.Set(waveform.V2, waveform.Series{7})

	var buf bytes.Buffer
	err := Traces(&buf, ls, []waveform.Lead{waveform.V1, waveform.V2, waveform.V3}, TraceOptions{})
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1600, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
}

func TestTracesErrors(t *testing.T) {
	var buf bytes.Buffer
	err := Traces(&buf, waveform.NewLeadSet(), nil, TraceOptions{})
	assert.ErrorIs(t, err, ErrNoLeads)

	err = Traces(&buf, testLeadSet(), []waveform.Lead{waveform.Lead(42)}, TraceOptions{})
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestSpectrogram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "II.png")

	ls := testLeadSet()
	err := Spectrogram(path, ls.Get(waveform.II), 500, SpectrogramOptions{Width: 256, Height: 64})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Width)
	assert.Equal(t, 64, cfg.Height)
}

func TestSpectrogramErrors(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, Spectrogram(filepath.Join(dir, "a.png"), nil, 500, SpectrogramOptions{}), ErrNoLeads)
	assert.ErrorIs(t, Spectrogram(filepath.Join(dir, "b.png"), waveform.Series{1, 2}, 0, SpectrogramOptions{}), ErrNoSampleRate)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0.5, -1, 0}, normalize(waveform.Series{2, -4, 0}))
	assert.Equal(t, []float64{0, 0}, normalize(waveform.Series{0, 0}))
}
