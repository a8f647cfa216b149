package waveform

import (
	"fmt"
	"strings"
)

// Lead identifies one of the twelve standard ECG leads.
type Lead int

const (
	I Lead = iota
	II
	III
	AVR
	AVL
	AVF
	V1
	V2
	V3
	V4
	V5
	V6

	NumLeads = 12
)

var leadNames = [NumLeads]string{"I", "II", "III", "aVR", "aVL", "aVF", "V1", "V2", "V3", "V4", "V5", "V6"}

func (l Lead) String() string {
	if l < 0 || int(l) >= NumLeads {
		return fmt.Sprintf("Lead(%d)", int(l))
	}
	return leadNames[l]
}

// Valid reports whether l is one of the enumerated leads.
func (l Lead) Valid() bool {
	return l >= 0 && int(l) < NumLeads
}

// Derived reports whether the lead is computed from I and II rather than
// recorded by the device.
func (l Lead) Derived() bool {
	switch l {
	case III, AVR, AVL, AVF:
		return true
	}
	return false
}

// AllLeads returns every lead in enumeration order.
func AllLeads() []Lead {
	out := make([]Lead, NumLeads)
	for i := range out {
		out[i] = Lead(i)
	}
	return out
}

// UnknownLeadError reports a lead identifier outside the enumeration.
type UnknownLeadError struct {
	ID string
}

func (e *UnknownLeadError) Error() string {
	return fmt.Sprintf("unknown lead id %q", e.ID)
}

// ParseLead resolves a lead identifier by exact name match after trimming.
// Matching is case-sensitive because device ids are uppercased upstream:
// "AVR" is not "aVR".
func ParseLead(id string) (Lead, error) {
	id = strings.TrimSpace(id)
	for i, name := range leadNames {
		if name == id {
			return Lead(i), nil
		}
	}
	return -1, &UnknownLeadError{ID: id}
}

// ParseLeadList parses a comma-separated list such as "aVF,V2,V5".
// Matching here is case-insensitive since the list comes from users.
func ParseLeadList(s string) ([]Lead, error) {
	var leads []Lead
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lead, err := LookupLead(part)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// LookupLead resolves a lead identifier ignoring case.
func LookupLead(id string) (Lead, error) {
	for i, name := range leadNames {
		if strings.EqualFold(name, id) {
			return Lead(i), nil
		}
	}
	return -1, &UnknownLeadError{ID: id}
}
