package muse

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/museecg/internal/testutil"
	"github.com/himanishpuri/museecg/pkg/logger"
	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
)

func parseECG(t *testing.T, ecg testutil.ECG) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(ecg.XML()))
	require.NoError(t, err)
	return doc
}

func newTestAssembler() *Assembler {
	return NewAssembler(logger.Discard())
}

func TestAssembleRhythmLeads(t *testing.T) {
	doc := parseECG(t, testutil.Sample("P-1"))

	tr := newTestAssembler().Assemble(doc)
	require.Empty(t, tr.Issues)
	assert.Equal(t, 500, tr.SampleRate)

	assert.InDeltaSlice(t, []float64{48.8, 97.6, 146.4, 195.2}, []float64(tr.Leads.Get(waveform.I)), 1e-9)
	assert.InDeltaSlice(t, []float64{488, -488, 488, -488}, []float64(tr.Leads.Get(waveform.V5)), 1e-9)

	lI, lII := tr.Leads.Get(waveform.I), tr.Leads.Get(waveform.II)
	for k := range lI {
		assert.Equal(t, lII[k]-lI[k], tr.Leads.Get(waveform.III)[k])
		assert.Equal(t, -(lI[k]+lII[k])/2, tr.Leads.Get(waveform.AVR)[k])
		assert.Equal(t, lI[k]-lII[k]/2, tr.Leads.Get(waveform.AVL)[k])
		assert.Equal(t, lII[k]-lI[k]/2, tr.Leads.Get(waveform.AVF)[k])
	}
	for _, lead := range waveform.AllLeads() {
		assert.Len(t, tr.Leads.Get(lead), 4, lead.String())
	}
}

func TestAssembleScaleExample(t *testing.T) {
	doc := parseECG(t, testutil.ECG{
		Waveforms: []testutil.Waveform{{
			Type:  "rhythm",
			Leads: []testutil.Lead{{ID: "I", Blob: "AQD//w==", Scale: "2.0"}},
		}},
	})

	tr := newTestAssembler().Assemble(doc)
	assert.Equal(t, waveform.Series{2.0, -2.0}, tr.Leads.Get(waveform.I))
}

func TestAssembleDefaultScaleIsOne(t *testing.T) {
	doc := parseECG(t, testutil.ECG{
		Waveforms: []testutil.Waveform{{
			Type:  "RHYTHM",
			Leads: []testutil.Lead{{ID: "v4", Samples: []int16{3, -3}}},
		}},
	})

	tr := newTestAssembler().Assemble(doc)
	assert.Equal(t, waveform.Series{3, -3}, tr.Leads.Get(waveform.V4))
	assert.Equal(t, 0, tr.SampleRate)
}

func TestAssembleMedianOnly(t *testing.T) {
	doc := parseECG(t, testutil.ECG{
		Waveforms: []testutil.Waveform{
			{Type: "Median", Leads: []testutil.Lead{{ID: "I", Samples: []int16{1, 2}}, {ID: "II", Samples: []int16{3, 4}}}},
			{Type: "median", Leads: []testutil.Lead{{ID: "V1", Samples: []int16{1}}}},
		},
	})

	tr := newTestAssembler().Assemble(doc)
	for _, lead := range waveform.AllLeads() {
		s := tr.Leads.Get(lead)
		assert.NotNil(t, s, lead.String())
		assert.Empty(t, s, lead.String())
	}
}

func TestAssembleUnknownLeadDropped(t *testing.T) {
	doc := parseECG(t, testutil.ECG{
		Waveforms: []testutil.Waveform{{
			Type: "Rhythm",
			Leads: []testutil.Lead{
				{ID: "X9", Samples: []int16{1, 2, 3}},
				{ID: "I", Samples: []int16{4}},
			},
		}},
	})

	tr := newTestAssembler().Assemble(doc)
	assert.Equal(t, waveform.Series{4}, tr.Leads.Get(waveform.I))
	assert.NotContains(t, tr.Leads.Map(), "X9")

	require.Len(t, tr.Issues, 1)
	var unknown *waveform.UnknownLeadError
	require.True(t, errors.As(tr.Issues[0], &unknown))
	assert.Equal(t, "X9", unknown.ID)
}

func TestAssembleMissingNodesAreSkipped(t *testing.T) {
	xml := `<RestingECG>
  <Waveform>
    <WaveformType>Rhythm</WaveformType>
    <LeadData><WaveFormData>AQA=</WaveFormData></LeadData>
    <LeadData><LeadID>V1</LeadID></LeadData>
    <LeadData><LeadID>V2</LeadID><WaveFormData>AgA=</WaveFormData></LeadData>
  </Waveform>
  <Waveform>
    <LeadData><LeadID>V3</LeadID><WaveFormData>AgA=</WaveFormData></LeadData>
  </Waveform>
</RestingECG>`
	doc, err := Parse(strings.NewReader(xml))
	require.NoError(t, err)

	tr := newTestAssembler().Assemble(doc)
	assert.Equal(t, waveform.Series{2}, tr.Leads.Get(waveform.V2))
	assert.Empty(t, tr.Leads.Get(waveform.V1))
	assert.Empty(t, tr.Leads.Get(waveform.V3))

	require.Len(t, tr.Issues, 3)
	var missing *MissingFieldError
	for _, issue := range tr.Issues {
		assert.True(t, errors.As(issue, &missing), issue.Error())
	}
	assert.Error(t, tr.Err())
}

func TestAssembleCorruptBlobIsContained(t *testing.T) {
	doc := parseECG(t, testutil.ECG{
		Waveforms: []testutil.Waveform{{
			Type: "Rhythm",
			Leads: []testutil.Lead{
				{ID: "I", Blob: "not*base64"},
				{ID: "II", Samples: []int16{1, 2}},
				{ID: "V6", Samples: []int16{8}, Scale: "abc"},
			},
		}},
	})

	tr := newTestAssembler().Assemble(doc)
	assert.Empty(t, tr.Leads.Get(waveform.I))
	assert.Equal(t, waveform.Series{1, 2}, tr.Leads.Get(waveform.II))
	assert.Empty(t, tr.Leads.Get(waveform.V6))

	// I is empty, so derived leads follow the shorter length.
	assert.Empty(t, tr.Leads.Get(waveform.AVF))

	require.Len(t, tr.Issues, 2)
	var leadErr *LeadError
	require.True(t, errors.As(tr.Issues[0], &leadErr))
	assert.Equal(t, "I", leadErr.Lead)
	var decErr *waveform.DecodeError
	assert.True(t, errors.As(tr.Issues[0], &decErr))

	require.True(t, errors.As(tr.Issues[1], &leadErr))
	assert.Equal(t, "V6", leadErr.Lead)
}

func TestAssembleIgnoresRecordedDerivedLeads(t *testing.T) {
	doc := parseECG(t, testutil.ECG{
		Waveforms: []testutil.Waveform{{
			Type: "Rhythm",
			Leads: []testutil.Lead{
				{ID: "I", Samples: []int16{1}},
				{ID: "II", Samples: []int16{5}},
				{ID: "III", Samples: []int16{100}},
			},
		}},
	})

	tr := newTestAssembler().Assemble(doc)
	assert.Equal(t, waveform.Series{4}, tr.Leads.Get(waveform.III))
	assert.Empty(t, tr.Issues)
}

func TestAssembleIgnoresRecordedAugmentedLeads(t *testing.T) {
	doc := parseECG(t, testutil.ECG{
		Waveforms: []testutil.Waveform{{
			Type: "Rhythm",
			Leads: []testutil.Lead{
				{ID: "I", Samples: []int16{2}},
				{ID: "II", Samples: []int16{4}},
				{ID: "aVR", Samples: []int16{100}},
				{ID: "aVL", Samples: []int16{100}},
				{ID: "avf", Samples: []int16{100}},
			},
		}},
	})

	tr := newTestAssembler().Assemble(doc)
	assert.Empty(t, tr.Issues)
	assert.Equal(t, waveform.Series{-3}, tr.Leads.Get(waveform.AVR))
	assert.Equal(t, waveform.Series{0}, tr.Leads.Get(waveform.AVL))
	assert.Equal(t, waveform.Series{3}, tr.Leads.Get(waveform.AVF))
}

func TestAssembleIsIdempotent(t *testing.T) {
	doc := parseECG(t, testutil.Sample("P-2"))
	a := newTestAssembler()

	first := a.Assemble(doc)
	second := a.Assemble(doc)

	if diff := cmp.Diff(first.Leads.Map(), second.Leads.Map()); diff != "" {
		t.Errorf("lead sets differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.SampleRate, second.SampleRate)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"unclosed":  "<RestingECG><PatientDemographics></RestingECG>",
		"plaintext": "this is not xml",
		"empty":     "",
		"two roots": "<RestingECG/><RestingECG/>",
		"siblings":  "<A/><B/>",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := Parse(strings.NewReader(input))
			assert.Nil(t, doc)
			var parseErr *DocumentParseError
			require.True(t, errors.As(err, &parseErr), "%v", err)
		})
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile("does-not-exist.xml")
	var parseErr *DocumentParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "does-not-exist.xml", parseErr.Source)
}
