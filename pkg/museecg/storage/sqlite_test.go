//go:build !js && !wasm

package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/museecg/pkg/museecg/muse"
)

func newTestClient(t *testing.T) *DBClient {
	t.Helper()
	c, err := NewDBClientWithPath(filepath.Join(t.TempDir(), "db", "test.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func intPtr(v int) *int { return &v }

func testRecord(path, patient string) *ECGRecord {
	diag := "Normal sinus rhythm \nNormal ECG"
	return &ECGRecord{
		FilePath:           path,
		PatientID:          patient,
		PatientAge:         intPtr(55),
		PatientGender:      "MALE",
		DiagnosisStatement: &diag,
		Measurements:       muse.Measurements{VentricularRate: intPtr(72), PAxis: nil},
		OriginalMeasurements: muse.Measurements{
			QRSDuration: intPtr(96),
		},
		SampleRate: 500,
		Leads: []LeadSummary{
			{Lead: "II", Position: 1, Samples: 5000, Min: -300, Max: 900, Mean: 1.5, RMS: 120, DominantHz: 1.2},
			{Lead: "I", Position: 0, Samples: 5000, Min: -200, Max: 700},
		},
	}
}

func TestSaveAndGetRecord(t *testing.T) {
	c := newTestClient(t)

	id, err := c.SaveRecord(testRecord("/data/a.xml", "P1"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := c.GetRecord(id)
	require.NoError(t, err)
	assert.Equal(t, "/data/a.xml", got.FilePath)
	assert.Equal(t, "P1", got.PatientID)
	require.NotNil(t, got.PatientAge)
	assert.Equal(t, 55, *got.PatientAge)
	require.NotNil(t, got.DiagnosisStatement)
	assert.Equal(t, "Normal sinus rhythm \nNormal ECG", *got.DiagnosisStatement)
	assert.Nil(t, got.OriginalDiagnosis)
	require.NotNil(t, got.Measurements.VentricularRate)
	assert.Equal(t, 72, *got.Measurements.VentricularRate)
	assert.Nil(t, got.Measurements.PAxis)
	require.NotNil(t, got.OriginalMeasurements.QRSDuration)
	assert.Equal(t, 96, *got.OriginalMeasurements.QRSDuration)
	assert.Equal(t, 500, got.SampleRate)

	require.Len(t, got.Leads, 2)
	assert.Equal(t, "I", got.Leads[0].Lead)
	assert.Equal(t, "II", got.Leads[1].Lead)
	assert.InDelta(t, 1.2, got.Leads[1].DominantHz, 1e-9)
}

func TestSaveRecordReplacesByPath(t *testing.T) {
	c := newTestClient(t)

	first, err := c.SaveRecord(testRecord("/data/a.xml", "P1"))
	require.NoError(t, err)

	updated := testRecord("/data/a.xml", "P1-renamed")
	updated.Leads = updated.Leads[:1]
	second, err := c.SaveRecord(updated)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	n, err := c.CountRecords()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := c.GetRecord(first)
	require.NoError(t, err)
	assert.Equal(t, "P1-renamed", got.PatientID)
	assert.Len(t, got.Leads, 1)

	var summaries int64
	require.NoError(t, c.DB.Model(&LeadSummary{}).Count(&summaries).Error)
	assert.EqualValues(t, 1, summaries)
}

func TestListFindDelete(t *testing.T) {
	c := newTestClient(t)

	idA, err := c.SaveRecord(testRecord("/data/a.xml", "P1"))
	require.NoError(t, err)
	_, err = c.SaveRecord(testRecord("/data/b.xml", "P2"))
	require.NoError(t, err)
	_, err = c.SaveRecord(testRecord("/data/c.xml", "P1"))
	require.NoError(t, err)

	all, err := c.ListRecords()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	p1, err := c.FindByPatient("P1")
	require.NoError(t, err)
	require.Len(t, p1, 2)
	assert.Equal(t, "/data/a.xml", p1[0].FilePath)
	assert.Equal(t, "/data/c.xml", p1[1].FilePath)

	none, err := c.FindByPatient("nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, c.DeleteRecord(idA))
	_, err = c.GetRecord(idA)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.DeleteRecord(idA), ErrNotFound)

	var orphans int64
	require.NoError(t, c.DB.Model(&LeadSummary{}).Where("record_id = ?", idA).Count(&orphans).Error)
	assert.Zero(t, orphans)

	n, err := c.CountRecords()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNilClient(t *testing.T) {
	var c *DBClient
	_, err := c.SaveRecord(&ECGRecord{})
	assert.Error(t, err)
	_, err = c.CountRecords()
	assert.Error(t, err)
	assert.NoError(t, c.Close())
}
