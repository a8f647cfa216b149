//go:build !js && !wasm

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/himanishpuri/museecg/internal/config"
	"github.com/himanishpuri/museecg/pkg/logger"
	"github.com/himanishpuri/museecg/pkg/museecg"
	"github.com/himanishpuri/museecg/pkg/museecg/muse"
	"github.com/himanishpuri/museecg/pkg/museecg/spectrum"
	"github.com/himanishpuri/museecg/pkg/museecg/storage"
	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
	"github.com/himanishpuri/museecg/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service        museecg.Service
	config         *config.Config
	allowedOrigins []string
	log            museecg.Logger
}

// NewServer creates a new server instance
func NewServer(service museecg.Service, cfg *config.Config, origins []string, log museecg.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Server{
		service:        service,
		config:         cfg,
		allowedOrigins: origins,
		log:            log,
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, code int, message string) {
	if err := render.Render(w, r, newErrorResponse(code, message)); err != nil {
		s.log.Errorf("Failed to render error response: %v", err)
	}
}

// respondServiceError maps service errors to HTTP status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var parseErr *muse.DocumentParseError
	switch {
	case errors.As(err, &parseErr):
		s.respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, museecg.ErrStorageDisabled):
		s.respondError(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		s.respondError(w, r, http.StatusInternalServerError, err.Error())
	}
}

// readDocument buffers the request body up to the configured limit.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (io.Reader, bool) {
	body := http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("document exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		s.respondError(w, r, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		s.respondError(w, r, http.StatusBadRequest, "request body must be a MUSE XML document")
		return nil, false
	}
	return bytes.NewReader(data), true
}

// sourceName names the uploaded document in records and errors.
func sourceName(r *http.Request) string {
	if name := r.URL.Query().Get("source"); name != "" {
		return name
	}
	return "upload.xml"
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleExtract handles POST /api/extract
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	a, err := s.service.Analyze(r.Context(), doc, sourceName(r))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	render.JSON(w, r, ExtractResponse{
		Record: a.Record,
		Issues: a.IssueMessages(),
	})
}

// handleLeads handles POST /api/leads
func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	leads := waveform.AllLeads()
	if list := r.URL.Query().Get("leads"); list != "" {
		var err error
		if leads, err = waveform.ParseLeadList(list); err != nil {
			s.respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	source := sourceName(r)
	t, err := s.service.ReadLeads(doc, source)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	resp := LeadsResponse{
		Source:     source,
		SampleRate: t.SampleRate,
		Leads:      make([]LeadDTO, len(leads)),
		Issues:     errorMessages(t.Issues),
	}
	for i, lead := range leads {
		series := t.Leads.Get(lead)
		if series == nil {
			series = waveform.Series{}
		}
		resp.Leads[i] = LeadDTO{
			Lead:    lead.String(),
			Summary: spectrum.Summarize(lead, series, t.SampleRate),
			Samples: series,
		}
	}
	render.JSON(w, r, resp)
}

// handleAddRecord handles POST /api/records
func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	rec, err := s.service.AddRecord(r.Context(), doc, sourceName(r))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

// handleListRecords handles GET /api/records, optionally filtered by ?patient=.
// Total is the number of stored records regardless of the filter.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	var (
		recs []museecg.StoredRecord
		err  error
	)
	if pid := r.URL.Query().Get("patient"); pid != "" {
		recs, err = s.service.FindByPatient(pid)
	} else {
		recs, err = s.service.ListRecords()
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if recs == nil {
		recs = []museecg.StoredRecord{}
	}
	total, err := s.service.CountRecords()
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	render.JSON(w, r, ListRecordsResponse{Records: recs, Count: len(recs), Total: total})
}

// recordID returns the {id} path parameter, or false after responding 400
// when it is not a record id.
func (s *Server) recordID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !utils.ValidUUID(id) {
		s.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid record id %q", id))
		return "", false
	}
	return id, true
}

// handleGetRecord handles GET /api/records/{id}
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	rec, err := s.service.GetRecord(id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

// handleDeleteRecord handles DELETE /api/records/{id}
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteRecord(id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.log.Infof("Deleted record %s", id)
	render.JSON(w, r, DeleteRecordResponse{
		Message: "Record deleted successfully",
		ID:      id,
	})
}
