package muse

import (
	"strings"
)

// Unknown is written for text fields whose node is absent.
const Unknown = "Unknown"

// Measurements are the integer interval, rate and axis values of a
// RestingECGMeasurements block. Nil means absent or not all digits.
type Measurements struct {
	VentricularRate *int `json:"ventricular_rate"`
	AtrialRate      *int `json:"atrial_rate"`
	PRInterval      *int `json:"pr_interval"`
	QRSDuration     *int `json:"qrs_duration"`
	QTInterval      *int `json:"qt_interval"`
	QTCorrected     *int `json:"qt_corrected"`
	PAxis           *int `json:"p_axis"`
	RAxis           *int `json:"r_axis"`
	TAxis           *int `json:"t_axis"`
	QRSCount        *int `json:"qrs_count"`
}

// Record is the metadata row of one document.
type Record struct {
	FilePath                   string       `json:"file_path"`
	PatientID                  string       `json:"patient_id"`
	PatientAge                 *int         `json:"patient_age"`
	PatientGender              string       `json:"patient_gender"`
	PatientRace                string       `json:"patient_race"`
	Priority                   string       `json:"priority"`
	Location                   string       `json:"location"`
	ECGDate                    string       `json:"ecg_date"`
	AcquisitionSoftwareVersion string       `json:"acquisition_software_version"`
	AnalysisSoftwareVersion    string       `json:"analysis_software_version"`
	OverreadLastName           string       `json:"overread_lastname"`
	OverreadFirstName          string       `json:"overread_firstname"`
	AdmitDiagnosis             string       `json:"admit_diagnosis"`
	DiagnosisStatement         *string      `json:"diagnosis_statement"`
	OriginalDiagnosis          *string      `json:"original_diagnosis"`
	Measurements               Measurements `json:"measurements"`
	OriginalMeasurements       Measurements `json:"original_measurements"`
}

// Field is one named column value: a string, an int, or nil for null.
type Field struct {
	Name  string
	Value any
}

var measurementNames = []string{
	"VentricularRate", "AtrialRate", "PRInterval", "QRSDuration", "QTInterval",
	"QTCorrected", "PAxis", "RAxis", "TAxis", "QRSCount",
}

// FieldNames is the fixed column order of a metadata row.
var FieldNames = func() []string {
	names := []string{
		"file_path",
		"patient_id",
		"patient_age",
		"patient_gender",
		"patient_race",
		"priority",
		"location",
		"ecg_date",
		"acquisition_software_version",
		"analysis_software_version",
		"overread_lastname",
		"overread_firstname",
		"admit_diagnosis",
		"diagnosis_statement",
		"original_diagnosis",
	}
	names = append(names, measurementNames...)
	for _, m := range measurementNames {
		names = append(names, "Original_"+m)
	}
	return names
}()

// Fields returns the record as columns in FieldNames order.
func (r *Record) Fields() []Field {
	values := []any{
		r.FilePath,
		r.PatientID,
		intValue(r.PatientAge),
		r.PatientGender,
		r.PatientRace,
		r.Priority,
		r.Location,
		r.ECGDate,
		r.AcquisitionSoftwareVersion,
		r.AnalysisSoftwareVersion,
		r.OverreadLastName,
		r.OverreadFirstName,
		r.AdmitDiagnosis,
		stringValue(r.DiagnosisStatement),
		stringValue(r.OriginalDiagnosis),
	}
	values = append(values, r.Measurements.values()...)
	values = append(values, r.OriginalMeasurements.values()...)

	fields := make([]Field, len(values))
	for i, v := range values {
		fields[i] = Field{Name: FieldNames[i], Value: v}
	}
	return fields
}

func (m *Measurements) values() []any {
	return []any{
		intValue(m.VentricularRate),
		intValue(m.AtrialRate),
		intValue(m.PRInterval),
		intValue(m.QRSDuration),
		intValue(m.QTInterval),
		intValue(m.QTCorrected),
		intValue(m.PAxis),
		intValue(m.RAxis),
		intValue(m.TAxis),
		intValue(m.QRSCount),
	}
}

func (m *Measurements) pointers() []**int {
	return []**int{
		&m.VentricularRate, &m.AtrialRate, &m.PRInterval, &m.QRSDuration, &m.QTInterval,
		&m.QTCorrected, &m.PAxis, &m.RAxis, &m.TAxis, &m.QRSCount,
	}
}

func intValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// ExtractRecord reads the metadata row of doc. source is stored as the file
// path column. The returned issues are non-fatal.
func ExtractRecord(doc *Document, source string) (*Record, []error) {
	r := &Record{
		FilePath:                   source,
		PatientID:                  doc.TextOr(".//PatientID", Unknown),
		PatientAge:                 doc.Int("./PatientDemographics/PatientAge"),
		PatientGender:              doc.TextOr("./PatientDemographics/Gender", Unknown),
		PatientRace:                doc.TextOr("./PatientDemographics/Race", Unknown),
		Priority:                   doc.TextOr("./TestDemographics/Priority", Unknown),
		Location:                   doc.TextOr("./TestDemographics/LocationName", Unknown),
		ECGDate:                    doc.TextOr("./TestDemographics/AcquisitionDate", Unknown),
		AcquisitionSoftwareVersion: doc.TextOr("./TestDemographics/AcquisitionSoftwareVersion", Unknown),
		AnalysisSoftwareVersion:    doc.TextOr("./TestDemographics/AnalysisSoftwareVersion", Unknown),
		OverreadLastName:           doc.TextOr("./TestDemographics/OverreaderLastName", Unknown),
		OverreadFirstName:          doc.TextOr("./TestDemographics/OverreaderFirstName", Unknown),
		AdmitDiagnosis:             doc.TextOr("./Order/AdmitDiagnosis", Unknown),
	}
	readMeasurements(doc, "./RestingECGMeasurements/", &r.Measurements)
	readMeasurements(doc, "./OriginalRestingECGMeasurements/", &r.OriginalMeasurements)

	var issues []error
	r.DiagnosisStatement = diagnosisText(doc, "Diagnosis", &issues)
	r.OriginalDiagnosis = diagnosisText(doc, "OriginalDiagnosis", &issues)

	return r, issues
}

func readMeasurements(doc *Document, prefix string, m *Measurements) {
	for i, p := range m.pointers() {
		*p = doc.Int(prefix + measurementNames[i])
	}
}

// diagnosisText joins the statements of a diagnosis block. Each statement
// contributes its text and a space; an ENDSLINE flag adds a line break.
func diagnosisText(doc *Document, block string, issues *[]error) *string {
	var sb strings.Builder
	for _, stmt := range doc.all("./" + block + "/DiagnosisStatement") {
		text, ok := findText(stmt, "./StmtText")
		if !ok {
			*issues = append(*issues, &MissingFieldError{Path: block + "/DiagnosisStatement/StmtText"})
			continue
		}
		sb.WriteString(strings.TrimSpace(text))
		sb.WriteByte(' ')

		if flag, ok := findText(stmt, "./StmtFlag"); ok && strings.TrimSpace(flag) == "ENDSLINE" {
			sb.WriteByte('\n')
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return nil
	}
	return &out
}
