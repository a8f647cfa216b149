//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/museecg/pkg/museecg/muse"
	"github.com/himanishpuri/museecg/pkg/utils"
)

const errDBClientNil = "db client is nil"

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// ECGRecord is one indexed document.
type ECGRecord struct {
	ID                         string `gorm:"primaryKey;type:varchar(36)"`
	FilePath                   string `gorm:"uniqueIndex:idx_file_path;not null"`
	PatientID                  string `gorm:"index:idx_patient_id"`
	PatientAge                 *int
	PatientGender              string
	PatientRace                string
	Priority                   string
	Location                   string
	ECGDate                    string `gorm:"column:ecg_date"`
	AcquisitionSoftwareVersion string
	AnalysisSoftwareVersion    string
	OverreadLastName           string
	OverreadFirstName          string
	AdmitDiagnosis             string
	DiagnosisStatement         *string
	OriginalDiagnosis          *string
	Measurements               muse.Measurements `gorm:"embedded;embeddedPrefix:meas_"`
	OriginalMeasurements       muse.Measurements `gorm:"embedded;embeddedPrefix:orig_"`
	SampleRate                 int
	CreatedAt                  time.Time
	Leads                      []LeadSummary `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE"`
}

// LeadSummary holds the statistics of one lead of a record.
type LeadSummary struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RecordID   string `gorm:"type:varchar(36);index:idx_record"`
	Lead       string
	Position   int
	Samples    int
	Min        float64
	Max        float64
	Mean       float64
	RMS        float64 `gorm:"column:rms"`
	DominantHz float64
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&ECGRecord{}, &LeadSummary{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveRecord stores rec and its lead summaries. A record already stored for
// the same file path is replaced and keeps its id. The stored id is returned.
func (c *DBClient) SaveRecord(rec *ECGRecord) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}

	err := c.DB.Transaction(func(tx *gorm.DB) error {
		var existing ECGRecord
		err := tx.Where("file_path = ?", rec.FilePath).First(&existing).Error
		switch {
		case err == nil:
			rec.ID = existing.ID
			if err := deleteRecord(tx, existing.ID); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if rec.ID == "" {
				rec.ID = utils.GenerateUUID()
			}
		default:
			return fmt.Errorf("querying existing record: %w", err)
		}

		for i := range rec.Leads {
			rec.Leads[i].ID = 0
			rec.Leads[i].RecordID = rec.ID
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("creating record: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// GetRecord loads a record with its lead summaries in lead order.
func (c *DBClient) GetRecord(id string) (*ECGRecord, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rec ECGRecord
	err := c.DB.Preload("Leads", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying record: %w", err)
	}
	return &rec, nil
}

// ListRecords returns every record without lead summaries, oldest first.
func (c *DBClient) ListRecords() ([]ECGRecord, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []ECGRecord
	if err := c.DB.Order("created_at, file_path").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return rows, nil
}

// FindByPatient returns the records of one patient id, oldest first.
func (c *DBClient) FindByPatient(patientID string) ([]ECGRecord, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []ECGRecord
	if err := c.DB.Where("patient_id = ?", patientID).Order("created_at, file_path").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying patient %s: %w", patientID, err)
	}
	return rows, nil
}

// DeleteRecord removes a record and its lead summaries.
func (c *DBClient) DeleteRecord(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ECGRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return deleteRecord(tx, id)
	})
}

// CountRecords returns the number of stored records.
func (c *DBClient) CountRecords() (int, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.Model(&ECGRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func deleteRecord(tx *gorm.DB, id string) error {
	if err := tx.Where("record_id = ?", id).Delete(&LeadSummary{}).Error; err != nil {
		return fmt.Errorf("deleting lead summaries: %w", err)
	}
	if err := tx.Where("id = ?", id).Delete(&ECGRecord{}).Error; err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}
