package museecg

import (
	"errors"
	"time"

	"github.com/himanishpuri/museecg/pkg/museecg/muse"
	"github.com/himanishpuri/museecg/pkg/museecg/spectrum"
)

// ErrStorageDisabled is returned by record operations when the service was
// built without a database.
var ErrStorageDisabled = errors.New("record store not configured")

// Analysis is everything read from one document.
type Analysis struct {
	Record    *muse.Record
	Tracing   *muse.Tracing
	Summaries []spectrum.Summary
	Issues    []error // non-fatal problems from both the metadata and the leads
}

// IssueMessages returns the issues as strings.
func (a *Analysis) IssueMessages() []string {
	msgs := make([]string, len(a.Issues))
	for i, err := range a.Issues {
		msgs[i] = err.Error()
	}
	return msgs
}

// StoredRecord is an indexed document as read back from the store.
type StoredRecord struct {
	ID         string             `json:"id"`
	Record     muse.Record        `json:"record"`
	SampleRate int                `json:"sample_rate"`
	CreatedAt  time.Time          `json:"created_at"`
	Leads      []spectrum.Summary `json:"leads,omitempty"`
}
