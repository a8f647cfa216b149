//go:build !js && !wasm

package main

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/himanishpuri/museecg/pkg/museecg"
	"github.com/himanishpuri/museecg/pkg/museecg/muse"
	"github.com/himanishpuri/museecg/pkg/museecg/spectrum"
	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
)

// ExtractResponse is the response for POST /api/extract
type ExtractResponse struct {
	Record *muse.Record `json:"record"`
	Issues []string     `json:"issues,omitempty"`
}

// LeadDTO is one lead in API responses
type LeadDTO struct {
	Lead    string           `json:"lead"`
	Summary spectrum.Summary `json:"summary"`
	Samples waveform.Series  `json:"samples"`
}

// LeadsResponse is the response for POST /api/leads
type LeadsResponse struct {
	Source     string    `json:"source"`
	SampleRate int       `json:"sample_rate"`
	Leads      []LeadDTO `json:"leads"`
	Issues     []string  `json:"issues,omitempty"`
}

// ListRecordsResponse is the response for GET /api/records
type ListRecordsResponse struct {
	Records []museecg.StoredRecord `json:"records"`
	Count   int                    `json:"count"`
	Total   int                    `json:"total"`
}

// DeleteRecordResponse is the response for DELETE /api/records/{id}
type DeleteRecordResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Render sets the response status from Code.
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Code)
	return nil
}

func newErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	}
}

func errorMessages(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return msgs
}
