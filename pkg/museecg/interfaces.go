package museecg

import (
	"context"
	"io"

	"github.com/himanishpuri/museecg/pkg/museecg/batch"
	"github.com/himanishpuri/museecg/pkg/museecg/muse"
	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
)

type Service interface {
	ExtractRecord(r io.Reader, source string) (*muse.Record, error)
	ReadLeads(r io.Reader, source string) (*muse.Tracing, error)
	Analyze(ctx context.Context, r io.Reader, source string) (*Analysis, error)
	AnalyzeFile(ctx context.Context, path string) (*Analysis, error)
	DecodeBlob(blob string, scale float64) (waveform.Series, error)
	DecodeBlobDefault(blob string) (waveform.Series, error)
	WriteMetadataTSV(ctx context.Context, inputs []string, out string, appendMode bool) (*batch.Summary, error)
	ExportWAV(path, out string) error
	PlotLeads(path string, w io.Writer, leads []waveform.Lead) error
	RenderSpectrograms(path, outDir string, leads []waveform.Lead) ([]string, error)
	Index(ctx context.Context, inputs []string) (*batch.Summary, error)
	AddRecord(ctx context.Context, r io.Reader, source string) (*StoredRecord, error)
	GetRecord(id string) (*StoredRecord, error)
	ListRecords() ([]StoredRecord, error)
	FindByPatient(patientID string) ([]StoredRecord, error)
	DeleteRecord(id string) error
	CountRecords() (int, error)
	Close() error
}

type Storage interface {
	SaveRecord(a *Analysis) (string, error)
	GetRecord(id string) (*StoredRecord, error)
	ListRecords() ([]StoredRecord, error)
	FindByPatient(patientID string) ([]StoredRecord, error)
	DeleteRecord(id string) error
	CountRecords() (int, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
