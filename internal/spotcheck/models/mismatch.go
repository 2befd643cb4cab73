package models

import "time"

// Lineage is the stable identity of one tracked discrepancy. ContentKey
// variants are comparable structs, so Lineage values can be used directly as
// map keys when computing set differences across reports.
type Lineage struct {
	Key           ContentKey
	MismatchType  MismatchType
	ReferenceType ReferenceType
}

// Mismatch is one immutable row of the append-only ledger: a lineage had, at a
// given reference-active time, a discrepancy or its resolution. Rows are never
// updated; the current state of a lineage is the row with the greatest
// reference-active time.
type Mismatch struct {
	ID            int64
	ReportID      int64
	Key           ContentKey
	MismatchType  MismatchType
	ReferenceType ReferenceType
	DataSource    DataSource
	ContentType   ContentType
	Status        MismatchStatus
	ReferenceData string
	ObservedData  string
	Notes         string

	// IgnoreLevel is the overlay level joined at read time; on write it is a
	// point-in-time snapshot only. The overlay stays authoritative.
	IgnoreLevel IgnoreLevel

	// IssueIDs joined from the issue tracker at read time.
	IssueIDs []string

	ReportDateTime          time.Time
	ObservedDateTime        time.Time
	ReferenceActiveDateTime time.Time
}

// Lineage returns the identity this row belongs to.
func (m *Mismatch) Lineage() Lineage {
	return Lineage{Key: m.Key, MismatchType: m.MismatchType, ReferenceType: m.ReferenceType}
}

// SessionStart returns the beginning of the two-year legislative session
// containing t. Sessions start on January 1st of odd years.
func SessionStart(t time.Time) time.Time {
	year := t.Year()
	if year%2 == 0 {
		year--
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, t.Location())
}
