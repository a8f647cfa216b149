package waveform

// LeadSet holds one Series per enumerated lead. The zero value has every
// lead empty; lookups never miss.
type LeadSet struct {
	series [NumLeads]Series
}

// NewLeadSet returns a set with every lead mapped to an empty, non-nil series.
func NewLeadSet() LeadSet {
	var ls LeadSet
	for i := range ls.series {
		ls.series[i] = Series{}
	}
	return ls
}

// Get returns the series for lead. Invalid leads yield nil.
func (ls *LeadSet) Get(lead Lead) Series {
	if !lead.Valid() {
		return nil
	}
	return ls.series[lead]
}

// Set stores s under lead, ignoring invalid leads.
func (ls *LeadSet) Set(lead Lead, s Series) {
	if !lead.Valid() {
		return
	}
	if s == nil {
		s = Series{}
	}
	ls.series[lead] = s
}

// Len returns the number of samples of lead.
func (ls *LeadSet) Len(lead Lead) int {
	return len(ls.Get(lead))
}

// Each calls fn for every lead in enumeration order.
func (ls *LeadSet) Each(fn func(Lead, Series)) {
	for i, s := range ls.series {
		fn(Lead(i), s)
	}
}

// Map returns the set keyed by lead name, for JSON and other consumers that
// want a name-keyed view.
func (ls *LeadSet) Map() map[string]Series {
	out := make(map[string]Series, NumLeads)
	ls.Each(func(l Lead, s Series) {
		if s == nil {
			s = Series{}
		}
		out[l.String()] = s
	})
	return out
}

// Derive recomputes III, aVR, aVL and aVF from I and II using the
// Einthoven and Goldberger relations:
//
//	III = II - I
//	aVR = -(I + II) / 2
//	aVL = I - II / 2
//	aVF = II - I / 2
//
// When I and II differ in length the derived leads cover only the shorter
// one; Derive returns true in that case.
func (ls *LeadSet) Derive() (truncated bool) {
	lI, lII := ls.series[I], ls.series[II]
	n := min(len(lI), len(lII))

	iii := make(Series, n)
	avr := make(Series, n)
	avl := make(Series, n)
	avf := make(Series, n)
	for k := 0; k < n; k++ {
		a, b := lI[k], lII[k]
		iii[k] = b - a
		avr[k] = -(a + b) / 2
		avl[k] = a - b/2
		avf[k] = b - a/2
	}

	ls.series[III] = iii
	ls.series[AVR] = avr
	ls.series[AVL] = avl
	ls.series[AVF] = avf

	return len(lI) != len(lII)
}
