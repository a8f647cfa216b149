package muse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/himanishpuri/museecg/pkg/logger"
	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
)

const (
	// UnknownLeadID stands in for a LeadData without a LeadID; it matches no lead.
	UnknownLeadID = "[Unknown LeadID]"

	// DefaultUnitsPerBit applies when a LeadData has no LeadAmplitudeUnitsPerBit.
	DefaultUnitsPerBit = 1.0

	rhythmWaveform = "rhythm"
)

// Logger is the subset of logging used while walking documents.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// Tracing is the decoded rhythm strip of one document.
type Tracing struct {
	Leads      waveform.LeadSet
	SampleRate int     // Hz, from SampleBase; 0 when the document has none
	Issues     []error // non-fatal per-lead and per-section problems
}

// Assembler decodes the rhythm leads of a document and derives the rest.
type Assembler struct {
	log Logger
}

// NewAssembler returns an Assembler logging to log, or to the default
// logger when log is nil.
func NewAssembler(log Logger) *Assembler {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Assembler{log: log}
}

// Assemble never fails: sections other than rhythm are skipped, bad leads
// stay empty and are reported in Issues, and III, aVR, aVL and aVF are
// always derived from whatever I and II hold.
func (a *Assembler) Assemble(doc *Document) *Tracing {
	t := &Tracing{Leads: waveform.NewLeadSet()}

	for _, wf := range doc.all(".//Waveform") {
		kind, ok := findText(wf, "./WaveformType")
		if !ok {
			t.warn(a.log, &MissingFieldError{Path: "Waveform/WaveformType"})
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(kind), rhythmWaveform) {
			a.log.Debugf("Skipping %s waveform section", strings.TrimSpace(kind))
			continue
		}

		if base, ok := findText(wf, "./SampleBase"); ok {
			if rate := digitsToInt(base); rate != nil {
				t.SampleRate = *rate
			}
		}

		for _, ld := range queryAll(wf, ".//LeadData") {
			a.assembleLead(t, ld)
		}
	}

	if truncated := t.Leads.Derive(); truncated {
		a.log.Warnf("Leads I (%d samples) and II (%d samples) differ in length; derived leads truncated to the shorter",
			t.Leads.Len(waveform.I), t.Leads.Len(waveform.II))
	}

	return t
}

func (a *Assembler) assembleLead(t *Tracing, ld *xmlquery.Node) {
	id := UnknownLeadID
	if s, ok := findText(ld, "./LeadID"); ok && strings.TrimSpace(s) != "" {
		id = strings.ToUpper(strings.TrimSpace(s))
	}

	lead, err := waveform.ParseLead(id)
	if err != nil {
		// Uppercasing turns aVR into AVR; derived ids are still ignored quietly.
		if l, ferr := waveform.LookupLead(id); ferr == nil && l.Derived() {
			lead, err = l, nil
		}
	}
	if err != nil {
		if id == UnknownLeadID {
			err = &MissingFieldError{Path: "LeadData/LeadID"}
		}
		t.warn(a.log, err)
		return
	}
	if lead.Derived() {
		a.log.Debugf("Ignoring recorded lead %s; it is derived from I and II", lead)
		return
	}

	blob, ok := findText(ld, "./WaveFormData")
	if !ok {
		t.warn(a.log, &LeadError{Lead: id, Err: &MissingFieldError{Path: "LeadData/WaveFormData"}})
		return
	}

	scale, err := leadScale(ld)
	if err != nil {
		t.warn(a.log, &LeadError{Lead: id, Err: err})
		return
	}

	series, err := waveform.Decode(strings.TrimSpace(blob), scale)
	if err != nil {
		t.warn(a.log, &LeadError{Lead: id, Err: err})
		return
	}

	a.log.Debugf("Decoded lead %s: %d samples at %g uV/LSB", lead, len(series), scale)
	t.Leads.Set(lead, series)
}

func leadScale(ld *xmlquery.Node) (float64, error) {
	s, ok := findText(ld, "./LeadAmplitudeUnitsPerBit")
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		return DefaultUnitsPerBit, nil
	}
	scale, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid LeadAmplitudeUnitsPerBit %q: %w", s, err)
	}
	return scale, nil
}

func (t *Tracing) warn(log Logger, err error) {
	log.Warnf("%v", err)
	t.Issues = append(t.Issues, err)
}

// Err joins the tracing issues, or returns nil when there are none.
func (t *Tracing) Err() error {
	return errors.Join(t.Issues...)
}
