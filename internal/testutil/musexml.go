// Package testutil builds MUSE XML fixtures for tests.
package testutil

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Lead describes one LeadData element. Blob overrides Samples when set;
// Scale is written only when non-empty.
type Lead struct {
	ID      string
	Samples []int16
	Blob    string
	Scale   string
}

// Waveform describes one Waveform section.
type Waveform struct {
	Type       string
	SampleBase int
	Leads      []Lead
}

// Statement is one DiagnosisStatement.
type Statement struct {
	Text string
	Flag string
}

// ECG holds the content of a fixture document. Zero values are omitted.
type ECG struct {
	PatientID           string
	Age                 string
	Gender              string
	AcquisitionDate     string
	VentricularRate     string
	QTCorrected         string
	PAxis               string
	OriginalQRSDuration string
	Diagnosis           []Statement
	OriginalDiagnosis   []Statement
	Waveforms           []Waveform
}

// EncodeSamples returns the base64 MUSE encoding of little-endian int16 samples.
func EncodeSamples(samples ...int16) string {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func element(sb *strings.Builder, indent, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "%s<%s>%s</%s>\n", indent, name, value, name)
}

// XML renders the document.
func (e ECG) XML() string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<!DOCTYPE RestingECG SYSTEM "restecg.dtd">` + "\n")
	sb.WriteString("<RestingECG>\n")

	sb.WriteString("  <PatientDemographics>\n")
	element(&sb, "    ", "PatientID", e.PatientID)
	element(&sb, "    ", "PatientAge", e.Age)
	element(&sb, "    ", "Gender", e.Gender)
	sb.WriteString("  </PatientDemographics>\n")

	sb.WriteString("  <TestDemographics>\n")
	element(&sb, "    ", "AcquisitionDate", e.AcquisitionDate)
	sb.WriteString("  </TestDemographics>\n")

	sb.WriteString("  <RestingECGMeasurements>\n")
	element(&sb, "    ", "VentricularRate", e.VentricularRate)
	element(&sb, "    ", "QTCorrected", e.QTCorrected)
	element(&sb, "    ", "PAxis", e.PAxis)
	sb.WriteString("  </RestingECGMeasurements>\n")

	if e.OriginalQRSDuration != "" {
		sb.WriteString("  <OriginalRestingECGMeasurements>\n")
		element(&sb, "    ", "QRSDuration", e.OriginalQRSDuration)
		sb.WriteString("  </OriginalRestingECGMeasurements>\n")
	}

	writeDiagnosis(&sb, "Diagnosis", e.Diagnosis)
	writeDiagnosis(&sb, "OriginalDiagnosis", e.OriginalDiagnosis)

	for _, wf := range e.Waveforms {
		sb.WriteString("  <Waveform>\n")
		element(&sb, "    ", "WaveformType", wf.Type)
		if wf.SampleBase > 0 {
			element(&sb, "    ", "SampleBase", fmt.Sprint(wf.SampleBase))
		}
		for _, l := range wf.Leads {
			sb.WriteString("    <LeadData>\n")
			element(&sb, "      ", "LeadAmplitudeUnitsPerBit", l.Scale)
			element(&sb, "      ", "LeadID", l.ID)
			blob := l.Blob
			if blob == "" && l.Samples != nil {
				blob = EncodeSamples(l.Samples...)
			}
			element(&sb, "      ", "WaveFormData", blob)
			sb.WriteString("    </LeadData>\n")
		}
		sb.WriteString("  </Waveform>\n")
	}

	sb.WriteString("</RestingECG>\n")
	return sb.String()
}

func writeDiagnosis(sb *strings.Builder, block string, stmts []Statement) {
	if len(stmts) == 0 {
		return
	}
	fmt.Fprintf(sb, "  <%s>\n", block)
	for _, s := range stmts {
		sb.WriteString("    <DiagnosisStatement>\n")
		element(sb, "      ", "StmtFlag", s.Flag)
		element(sb, "      ", "StmtText", s.Text)
		sb.WriteString("    </DiagnosisStatement>\n")
	}
	fmt.Fprintf(sb, "  </%s>\n", block)
}

// Sample returns a small valid rhythm document with leads I, II and V1-V6.
func Sample(patientID string) ECG {
	return ECG{
		PatientID:       patientID,
		Age:             "63",
		Gender:          "MALE",
		AcquisitionDate: "03-14-2019",
		VentricularRate: "72",
		QTCorrected:     "431",
		PAxis:           "-12",
		Diagnosis: []Statement{
			{Text: "Normal sinus rhythm", Flag: "ENDSLINE"},
			{Text: "Normal ECG"},
		},
		Waveforms: []Waveform{
			{Type: "Median", SampleBase: 500, Leads: []Lead{{ID: "I", Samples: []int16{9, 9, 9}}}},
			{
				Type:       "Rhythm",
				SampleBase: 500,
				Leads: []Lead{
					{ID: "I", Samples: []int16{10, 20, 30, 40}, Scale: "4.88"},
					{ID: "II", Samples: []int16{5, 15, 25, 35}, Scale: "4.88"},
					{ID: "V1", Samples: []int16{1, 2, 3, 4}, Scale: "4.88"},
					{ID: "V2", Samples: []int16{-1, -2, -3, -4}, Scale: "4.88"},
					{ID: "V3", Samples: []int16{0, 0, 0, 0}, Scale: "4.88"},
					{ID: "V4", Samples: []int16{7, 7, 7, 7}, Scale: "4.88"},
					{ID: "V5", Samples: []int16{100, -100, 100, -100}, Scale: "4.88"},
					{ID: "V6", Samples: []int16{3, 1, 4, 1}, Scale: "4.88"},
				},
			},
		},
	}
}

// WriteFile writes content under dir and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
