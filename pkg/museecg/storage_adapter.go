package museecg

import (
	"github.com/himanishpuri/museecg/pkg/museecg/muse"
	"github.com/himanishpuri/museecg/pkg/museecg/spectrum"
	"github.com/himanishpuri/museecg/pkg/museecg/storage"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) SaveRecord(a *Analysis) (string, error) {
	r := a.Record
	row := &storage.ECGRecord{
		FilePath:                   r.FilePath,
		PatientID:                  r.PatientID,
		PatientAge:                 r.PatientAge,
		PatientGender:              r.PatientGender,
		PatientRace:                r.PatientRace,
		Priority:                   r.Priority,
		Location:                   r.Location,
		ECGDate:                    r.ECGDate,
		AcquisitionSoftwareVersion: r.AcquisitionSoftwareVersion,
		AnalysisSoftwareVersion:    r.AnalysisSoftwareVersion,
		OverreadLastName:           r.OverreadLastName,
		OverreadFirstName:          r.OverreadFirstName,
		AdmitDiagnosis:             r.AdmitDiagnosis,
		DiagnosisStatement:         r.DiagnosisStatement,
		OriginalDiagnosis:          r.OriginalDiagnosis,
		Measurements:               r.Measurements,
		OriginalMeasurements:       r.OriginalMeasurements,
	}
	if a.Tracing != nil {
		row.SampleRate = a.Tracing.SampleRate
	}

	row.Leads = make([]storage.LeadSummary, len(a.Summaries))
	for i, sum := range a.Summaries {
		row.Leads[i] = storage.LeadSummary{
			Lead:       sum.Lead,
			Position:   i,
			Samples:    sum.Samples,
			Min:        sum.Min,
			Max:        sum.Max,
			Mean:       sum.Mean,
			RMS:        sum.RMS,
			DominantHz: sum.DominantHz,
		}
	}
	return s.db.SaveRecord(row)
}

func (s *storageAdapter) GetRecord(id string) (*StoredRecord, error) {
	row, err := s.db.GetRecord(id)
	if err != nil {
		return nil, err
	}
	rec := toStoredRecord(row)
	return &rec, nil
}

func (s *storageAdapter) ListRecords() ([]StoredRecord, error) {
	rows, err := s.db.ListRecords()
	if err != nil {
		return nil, err
	}
	return toStoredRecords(rows), nil
}

func (s *storageAdapter) FindByPatient(patientID string) ([]StoredRecord, error) {
	rows, err := s.db.FindByPatient(patientID)
	if err != nil {
		return nil, err
	}
	return toStoredRecords(rows), nil
}

func (s *storageAdapter) DeleteRecord(id string) error {
	return s.db.DeleteRecord(id)
}

func (s *storageAdapter) CountRecords() (int, error) {
	return s.db.CountRecords()
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func toStoredRecords(rows []storage.ECGRecord) []StoredRecord {
	out := make([]StoredRecord, len(rows))
	for i := range rows {
		out[i] = toStoredRecord(&rows[i])
	}
	return out
}

func toStoredRecord(row *storage.ECGRecord) StoredRecord {
	rec := StoredRecord{
		ID:         row.ID,
		SampleRate: row.SampleRate,
		CreatedAt:  row.CreatedAt,
		Record: muse.Record{
			FilePath:                   row.FilePath,
			PatientID:                  row.PatientID,
			PatientAge:                 row.PatientAge,
			PatientGender:              row.PatientGender,
			PatientRace:                row.PatientRace,
			Priority:                   row.Priority,
			Location:                   row.Location,
			ECGDate:                    row.ECGDate,
			AcquisitionSoftwareVersion: row.AcquisitionSoftwareVersion,
			AnalysisSoftwareVersion:    row.AnalysisSoftwareVersion,
			OverreadLastName:           row.OverreadLastName,
			OverreadFirstName:          row.OverreadFirstName,
			AdmitDiagnosis:             row.AdmitDiagnosis,
			DiagnosisStatement:         row.DiagnosisStatement,
			OriginalDiagnosis:          row.OriginalDiagnosis,
			Measurements:               row.Measurements,
			OriginalMeasurements:       row.OriginalMeasurements,
		},
	}
	for _, l := range row.Leads {
		rec.Leads = append(rec.Leads, spectrum.Summary{
			Lead:       l.Lead,
			Samples:    l.Samples,
			Min:        l.Min,
			Max:        l.Max,
			Mean:       l.Mean,
			RMS:        l.RMS,
			DominantHz: l.DominantHz,
		})
	}
	return rec
}
