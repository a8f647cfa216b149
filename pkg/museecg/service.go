package museecg

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/museecg/pkg/logger"
	"github.com/himanishpuri/museecg/pkg/museecg/batch"
	"github.com/himanishpuri/museecg/pkg/museecg/export"
	"github.com/himanishpuri/museecg/pkg/museecg/muse"
	"github.com/himanishpuri/museecg/pkg/museecg/render"
	"github.com/himanishpuri/museecg/pkg/museecg/spectrum"
	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
	"github.com/himanishpuri/museecg/pkg/utils"
)

// ecgService is the default implementation of the Service interface.
type ecgService struct {
	storage   Storage
	log       Logger
	batchLog  Logger
	config    *Config
	decoder   *waveform.Decoder
	assembler *muse.Assembler
}

// NewService builds a Service. The record store is opened only when a
// storage or a DB path is configured.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	stor := cfg.Storage
	if stor == nil && cfg.DBPath != "" {
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	batchLog := cfg.Logger
	if l, ok := cfg.Logger.(*logger.Logger); ok {
		batchLog = l.Named("batch")
	}

	return &ecgService{
		storage:   stor,
		log:       cfg.Logger,
		batchLog:  batchLog,
		config:    cfg,
		decoder:   waveform.NewDecoder(cfg.DecodeScale),
		assembler: muse.NewAssembler(cfg.Logger),
	}, nil
}

func (s *ecgService) runner() *batch.Runner {
	return &batch.Runner{
		Workers:       s.config.Workers,
		ProgressEvery: s.config.ProgressEvery,
		Log:           s.batchLog,
	}
}

func (s *ecgService) warnIssues(source string, issues []error) {
	for _, err := range issues {
		s.log.Debugf("%s: %v", source, err)
	}
	if len(issues) > 0 {
		s.log.Warnf("%s: %d issue(s) while reading document", source, len(issues))
	}
}

// ExtractRecord reads the metadata row of one document.
func (s *ecgService) ExtractRecord(r io.Reader, source string) (*muse.Record, error) {
	doc, err := muse.ParseNamed(r, source)
	if err != nil {
		return nil, err
	}
	rec, issues := muse.ExtractRecord(doc, source)
	s.warnIssues(source, issues)
	return rec, nil
}

// ReadLeads decodes the rhythm leads of one document and derives the limb
// and augmented leads.
func (s *ecgService) ReadLeads(r io.Reader, source string) (*muse.Tracing, error) {
	doc, err := muse.ParseNamed(r, source)
	if err != nil {
		return nil, err
	}
	return s.assembler.Assemble(doc), nil
}

// Analyze reads the metadata, the leads and the per-lead summaries of one
// document.
func (s *ecgService) Analyze(ctx context.Context, r io.Reader, source string) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := muse.ParseNamed(r, source)
	if err != nil {
		return nil, err
	}
	return s.analyze(doc, source), nil
}

// AnalyzeFile is Analyze on the file at path.
func (s *ecgService) AnalyzeFile(ctx context.Context, path string) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := muse.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return s.analyze(doc, path), nil
}

func (s *ecgService) analyze(doc *muse.Document, source string) *Analysis {
	rec, issues := muse.ExtractRecord(doc, source)
	tracing := s.assembler.Assemble(doc)
	issues = append(issues, tracing.Issues...)
	s.warnIssues(source, issues)

	return &Analysis{
		Record:    rec,
		Tracing:   tracing,
		Summaries: spectrum.SummarizeAll(tracing.Leads, tracing.SampleRate),
		Issues:    issues,
	}
}

// DecodeBlob decodes one WaveFormData blob with scale. Any real scale is
// applied as given; zero yields zeros and a negative scale flips polarity.
func (s *ecgService) DecodeBlob(blob string, scale float64) (waveform.Series, error) {
	return s.decoder.Decode(blob, scale)
}

// DecodeBlobDefault decodes one WaveFormData blob with the configured scale.
func (s *ecgService) DecodeBlobDefault(blob string) (waveform.Series, error) {
	return s.decoder.DecodeDefault(blob)
}

// WriteMetadataTSV writes one row per readable document under inputs to
// out. Unreadable documents are logged and counted in the summary.
func (s *ecgService) WriteMetadataTSV(ctx context.Context, inputs []string, out string, appendMode bool) (*batch.Summary, error) {
	paths := batch.Discover(inputs, s.log)

	// The header row is written even when no document is found.
	w, err := export.Open(out, appendMode)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		s.log.Warnf("No XML files found.")
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close %s: %w", out, err)
		}
		return &batch.Summary{}, nil
	}
	s.log.Infof("Found %d XML files", len(paths))

	sum, runErr := batch.Run(ctx, s.runner(), paths,
		func(_ context.Context, path string) (*muse.Record, error) {
			doc, err := muse.ParseFile(path)
			if err != nil {
				return nil, err
			}
			rec, issues := muse.ExtractRecord(doc, path)
			s.warnIssues(path, issues)
			return rec, nil
		},
		func(_ string, rec *muse.Record) error {
			return w.Write(rec)
		},
	)
	if err := w.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close %s: %w", out, err)
	}
	if runErr != nil {
		return sum, runErr
	}

	if sum.Failed > 0 {
		s.log.Infof("Done. Wrote %d rows to %s (%d failed)", w.Rows(), out, sum.Failed)
	} else {
		s.log.Infof("Done. Wrote %d rows to %s", w.Rows(), out)
	}
	return sum, nil
}

func (s *ecgService) readTracing(path string) (*muse.Tracing, error) {
	doc, err := muse.ParseFile(path)
	if err != nil {
		return nil, err
	}
	t := s.assembler.Assemble(doc)
	s.warnIssues(path, t.Issues)
	return t, nil
}

// ExportWAV writes the twelve leads of the document at path as a WAV file.
func (s *ecgService) ExportWAV(path, out string) error {
	t, err := s.readTracing(path)
	if err != nil {
		return err
	}
	if err := export.WriteWAVFile(out, t.Leads, s.config.wavOptions(t.SampleRate)); err != nil {
		return fmt.Errorf("failed to export %s: %w", path, err)
	}
	s.log.Infof("Wrote %s", out)
	return nil
}

// PlotLeads writes a stacked strip PNG of leads to w.
func (s *ecgService) PlotLeads(path string, w io.Writer, leads []waveform.Lead) error {
	t, err := s.readTracing(path)
	if err != nil {
		return err
	}
	if err := render.Traces(w, t.Leads, leads, render.TraceOptions{}); err != nil {
		return fmt.Errorf("failed to plot %s: %w", path, err)
	}
	return nil
}

// RenderSpectrograms saves one spectrogram PNG per non-empty lead under
// outDir and returns the written paths. An empty leads list renders all
// twelve.
func (s *ecgService) RenderSpectrograms(path, outDir string, leads []waveform.Lead) ([]string, error) {
	t, err := s.readTracing(path)
	if err != nil {
		return nil, err
	}
	if t.SampleRate <= 0 {
		return nil, fmt.Errorf("%s: %w", path, render.ErrNoSampleRate)
	}
	if len(leads) == 0 {
		leads = waveform.AllLeads()
	}

	if err := utils.MakeDir(outDir); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var written []string
	for _, lead := range leads {
		series := t.Leads.Get(lead)
		if len(series) == 0 {
			s.log.Debugf("Skipping empty lead %s", lead)
			continue
		}
		out := filepath.Join(outDir, fmt.Sprintf("%s_%s.png", base, lead))
		if err := render.Spectrogram(out, series, t.SampleRate, render.SpectrogramOptions{}); err != nil {
			return written, err
		}
		written = append(written, out)
	}
	s.log.Infof("Saved %d spectrograms to %s", len(written), outDir)
	return written, nil
}

// Index analyzes every document under inputs and stores it, replacing
// earlier entries for the same path.
func (s *ecgService) Index(ctx context.Context, inputs []string) (*batch.Summary, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	paths := batch.Discover(inputs, s.log)
	if len(paths) == 0 {
		s.log.Warnf("No XML files found.")
		return &batch.Summary{}, nil
	}

	sum, err := batch.Run(ctx, s.runner(), paths, s.AnalyzeFile,
		func(path string, a *Analysis) error {
			id, err := s.storage.SaveRecord(a)
			if err != nil {
				return err
			}
			s.log.Debugf("Stored %s as %s", path, id)
			return nil
		},
	)
	if err != nil {
		return sum, err
	}
	s.log.Infof("Indexed %d of %d documents", sum.Succeeded, sum.Total)
	return sum, nil
}

// AddRecord analyzes one document read from r and stores it under source.
func (s *ecgService) AddRecord(ctx context.Context, r io.Reader, source string) (*StoredRecord, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	a, err := s.Analyze(ctx, r, source)
	if err != nil {
		return nil, err
	}
	id, err := s.storage.SaveRecord(a)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", source, err)
	}
	s.log.Infof("Stored %s as %s", source, id)
	return s.storage.GetRecord(id)
}

func (s *ecgService) GetRecord(id string) (*StoredRecord, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	return s.storage.GetRecord(id)
}

func (s *ecgService) ListRecords() ([]StoredRecord, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	return s.storage.ListRecords()
}

func (s *ecgService) FindByPatient(patientID string) ([]StoredRecord, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	return s.storage.FindByPatient(patientID)
}

func (s *ecgService) CountRecords() (int, error) {
	if s.storage == nil {
		return 0, ErrStorageDisabled
	}
	return s.storage.CountRecords()
}

func (s *ecgService) DeleteRecord(id string) error {
	if s.storage == nil {
		return ErrStorageDisabled
	}
	return s.storage.DeleteRecord(id)
}

// Close releases all resources held by the service.
func (s *ecgService) Close() error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Close()
}
