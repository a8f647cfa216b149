package muse

import "fmt"

// DocumentParseError is fatal for one document: the XML could not be read
// or has no root element.
type DocumentParseError struct {
	Source string
	Err    error
}

func (e *DocumentParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parsing MUSE document: %v", e.Err)
	}
	return fmt.Sprintf("parsing MUSE document %s: %v", e.Source, e.Err)
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// MissingFieldError is a non-fatal issue: an expected node is absent and a
// default was used or the item was skipped.
type MissingFieldError struct {
	Path string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %s", e.Path)
}

// LeadError scopes a per-lead failure to its lead id.
type LeadError struct {
	Lead string
	Err  error
}

func (e *LeadError) Error() string {
	return fmt.Sprintf("lead %s: %v", e.Lead, e.Err)
}

func (e *LeadError) Unwrap() error { return e.Err }
