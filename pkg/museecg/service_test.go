package museecg

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/museecg/internal/testutil"
	"github.com/himanishpuri/museecg/pkg/logger"
	"github.com/himanishpuri/museecg/pkg/museecg/batch"
	"github.com/himanishpuri/museecg/pkg/museecg/muse"
	"github.com/himanishpuri/museecg/pkg/museecg/storage"
	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
)

func newTestService(t *testing.T, opts ...Option) Service {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	svc, err := NewService(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

// longECG returns a ten second rhythm strip at 500 Hz.
func longECG(patientID string) testutil.ECG {
	const n = 5000
	lI, lII, v := make([]int16, n), make([]int16, n), make([]int16, n)
	for i := 0; i < n; i++ {
		ph := 2 * math.Pi * 1.25 * float64(i) / 500
		lI[i] = int16(100 * math.Sin(ph))
		lII[i] = int16(180 * math.Sin(ph+0.2))
		v[i] = int16(150 * math.Sin(ph+0.5))
	}
	ecg := testutil.Sample(patientID)
	ecg.Waveforms = []testutil.Waveform{{
		Type:       "Rhythm",
		SampleBase: 500,
		Leads: []testutil.Lead{
			{ID: "I", Samples: lI, Scale: "4.88"},
			{ID: "II", Samples: lII, Scale: "4.88"},
			{ID: "V2", Samples: v, Scale: "4.88"},
			{ID: "V5", Samples: v, Scale: "4.88"},
		},
	}}
	return ecg
}

func TestServiceAnalyze(t *testing.T) {
	svc := newTestService(t)

	a, err := svc.Analyze(context.Background(), strings.NewReader(testutil.Sample("P9").XML()), "mem.xml")
	require.NoError(t, err)

	assert.Equal(t, "mem.xml", a.Record.FilePath)
	assert.Equal(t, "P9", a.Record.PatientID)
	assert.Equal(t, 500, a.Tracing.SampleRate)
	assert.Empty(t, a.Issues)
	assert.Empty(t, a.IssueMessages())

	require.Len(t, a.Summaries, waveform.NumLeads)
	v5 := a.Summaries[waveform.V5]
	assert.Equal(t, "V5", v5.Lead)
	assert.Equal(t, 4, v5.Samples)
	assert.InDelta(t, 250.0, v5.DominantHz, 1e-9)
}

func TestServiceParseErrorNamesSource(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ExtractRecord(strings.NewReader("<RestingECG>"), "upload.xml")
	var pe *muse.DocumentParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "upload.xml", pe.Source)

	_, err = svc.ReadLeads(strings.NewReader("nope"), "x")
	assert.True(t, errors.As(err, &pe))
}

func TestServiceDecodeBlob(t *testing.T) {
	svc := newTestService(t)

	s, err := svc.DecodeBlobDefault("AQD//w==")
	require.NoError(t, err)
	assert.Equal(t, waveform.Series{4.88, -4.88}, s)

	s, err = svc.DecodeBlob("AQD//w==", 2)
	require.NoError(t, err)
	assert.Equal(t, waveform.Series{2, -2}, s)

	s, err = svc.DecodeBlob("AQD//w==", -2)
	require.NoError(t, err)
	assert.Equal(t, waveform.Series{-2, 2}, s)

	s, err = svc.DecodeBlob("AQD//w==", 0)
	require.NoError(t, err)
	assert.Equal(t, waveform.Series{0, 0}, s)

	custom := newTestService(t, WithDecodeScale(3))
	s, err = custom.DecodeBlobDefault("AQD//w==")
	require.NoError(t, err)
	assert.Equal(t, waveform.Series{3, -3}, s)
	s, err = custom.DecodeBlob("AQD//w==", 1)
	require.NoError(t, err)
	assert.Equal(t, waveform.Series{1, -1}, s)

	_, err = svc.DecodeBlob("%%%", 1)
	var de *waveform.DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestServiceWriteMetadataTSV(t *testing.T) {
	in := t.TempDir()
	testutil.WriteFile(t, in, "good.xml", testutil.Sample("P1").XML())
	testutil.WriteFile(t, in, "sub/also-good.XML", testutil.Sample("P2").XML())
	testutil.WriteFile(t, in, "bad.xml", "<RestingECG><PatientDemographics>")
	testutil.WriteFile(t, in, "readme.txt", "skip me")
	out := filepath.Join(t.TempDir(), "meta.tsv")

	for _, workers := range []int{1, 4} {
		svc := newTestService(t, WithWorkers(workers), WithProgressEvery(1))

		sum, err := svc.WriteMetadataTSV(context.Background(), []string{in}, out, false)
		require.NoError(t, err)
		assert.Equal(t, 3, sum.Total)
		assert.Equal(t, 2, sum.Succeeded)
		assert.Equal(t, 1, sum.Failed)
		assert.Equal(t, batch.ExitPartial, sum.ExitCode())

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSuffix(string(data), "\r\n"), "\r\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "file_path\tpatient_id\t"))
		assert.Contains(t, lines[1], "\tP1\t")
		assert.Contains(t, lines[2], "\tP2\t")
		assert.Contains(t, lines[1], `Normal sinus rhythm \nNormal ECG`)
	}
}

func TestServiceWriteMetadataTSVAllFailed(t *testing.T) {
	in := t.TempDir()
	testutil.WriteFile(t, in, "a.xml", "garbage")
	testutil.WriteFile(t, in, "b.xml", "")
	svc := newTestService(t)

	sum, err := svc.WriteMetadataTSV(context.Background(), []string{in}, filepath.Join(in, "out.tsv"), false)
	require.NoError(t, err)
	assert.Equal(t, batch.ExitFailed, sum.ExitCode())
}

func TestServiceWriteMetadataTSVNoInputs(t *testing.T) {
	svc := newTestService(t)
	out := filepath.Join(t.TempDir(), "out.tsv")

	sum, err := svc.WriteMetadataTSV(context.Background(), []string{t.TempDir()}, out, false)
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
	assert.Equal(t, batch.ExitOK, sum.ExitCode())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\r\n"), "\r\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "file_path\tpatient_id\t"))
}

func TestServiceBatchLogPrefix(t *testing.T) {
	in := t.TempDir()
	testutil.WriteFile(t, in, "good.xml", testutil.Sample("P1").XML())
	testutil.WriteFile(t, in, "bad.xml", "<broken")

	var buf bytes.Buffer
	svc := newTestService(t,
		WithLogger(logger.New(logger.Config{Level: logger.INFO, Output: &buf})),
		WithWorkers(1), WithProgressEvery(1))

	_, err := svc.WriteMetadataTSV(context.Background(), []string{in}, filepath.Join(t.TempDir(), "out.tsv"), false)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[INFO] [batch] Processed 1 files")
	assert.Contains(t, out, "[WARN] [batch] Failed on")
	assert.Contains(t, out, "[INFO] Found 2 XML files")
}

func TestServiceExports(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "long.xml", longECG("P1").XML())
	svc := newTestService(t, WithWAVResolution(4.88))

	wavPath := filepath.Join(dir, "out", "long.wav")
	require.NoError(t, svc.ExportWAV(path, wavPath))
	f, err := os.Open(wavPath)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	assert.EqualValues(t, waveform.NumLeads, dec.NumChans)
	assert.EqualValues(t, 500, dec.SampleRate)

	var buf bytes.Buffer
	require.NoError(t, svc.PlotLeads(path, &buf, nil))
	_, err = png.DecodeConfig(&buf)
	require.NoError(t, err)

	written, err := svc.RenderSpectrograms(path, filepath.Join(dir, "spectrograms"), []waveform.Lead{waveform.II, waveform.V1})
	require.NoError(t, err)
	require.Len(t, written, 1, "V1 is empty")
	assert.Equal(t, filepath.Join(dir, "spectrograms", "long_II.png"), written[0])
	assert.FileExists(t, written[0])
}

func TestServiceWithoutStorage(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Index(context.Background(), []string{t.TempDir()})
	assert.ErrorIs(t, err, ErrStorageDisabled)
	_, err = svc.GetRecord("x")
	assert.ErrorIs(t, err, ErrStorageDisabled)
	_, err = svc.ListRecords()
	assert.ErrorIs(t, err, ErrStorageDisabled)
	_, err = svc.FindByPatient("x")
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.ErrorIs(t, svc.DeleteRecord("x"), ErrStorageDisabled)
	_, err = svc.CountRecords()
	assert.ErrorIs(t, err, ErrStorageDisabled)
	_, err = svc.AddRecord(context.Background(), strings.NewReader(testutil.Sample("P1").XML()), "x.xml")
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestServiceAddRecord(t *testing.T) {
	svc := newTestService(t, WithDBPath(filepath.Join(t.TempDir(), "ecg.sqlite3")))

	rec, err := svc.AddRecord(context.Background(), strings.NewReader(testutil.Sample("P7").XML()), "upload.xml")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "upload.xml", rec.Record.FilePath)
	assert.Equal(t, "P7", rec.Record.PatientID)
	assert.Len(t, rec.Leads, waveform.NumLeads)

	again, err := svc.AddRecord(context.Background(), strings.NewReader(testutil.Sample("P8").XML()), "upload.xml")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)
	assert.Equal(t, "P8", again.Record.PatientID)

	_, err = svc.AddRecord(context.Background(), strings.NewReader("<x"), "bad.xml")
	var pe *muse.DocumentParseError
	assert.True(t, errors.As(err, &pe))
}

func TestServiceIndex(t *testing.T) {
	in := t.TempDir()
	testutil.WriteFile(t, in, "a.xml", testutil.Sample("P1").XML())
	testutil.WriteFile(t, in, "b.xml", testutil.Sample("P2").XML())
	testutil.WriteFile(t, in, "c.xml", "<broken")

	svc := newTestService(t, WithDBPath(filepath.Join(t.TempDir(), "ecg.sqlite3")))

	sum, err := svc.Index(context.Background(), []string{in})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)

	// Indexing again replaces rather than duplicates.
	_, err = svc.Index(context.Background(), []string{in})
	require.NoError(t, err)

	all, err := svc.ListRecords()
	require.NoError(t, err)
	require.Len(t, all, 2)
	n, err := svc.CountRecords()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p2, err := svc.FindByPatient("P2")
	require.NoError(t, err)
	require.Len(t, p2, 1)

	rec, err := svc.GetRecord(p2[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "P2", rec.Record.PatientID)
	assert.Equal(t, 500, rec.SampleRate)
	require.Len(t, rec.Leads, waveform.NumLeads)
	assert.Equal(t, "I", rec.Leads[0].Lead)
	assert.Equal(t, "V6", rec.Leads[waveform.NumLeads-1].Lead)

	require.NoError(t, svc.DeleteRecord(rec.ID))
	_, err = svc.GetRecord(rec.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
