package models

import (
	"fmt"
	"time"
)

// ReportID uniquely identifies one comparison run. Reports are immutable once
// inserted; re-ingesting the same (reference type, report time) pair is
// rejected, which serves as the idempotency guard.
type ReportID struct {
	ReferenceType  ReferenceType
	ReportDateTime time.Time
}

func (id ReportID) String() string {
	return fmt.Sprintf("%s@%s", id.ReferenceType, id.ReportDateTime.Format(time.RFC3339))
}

// DuplicateReportError signals that a report header with the same reference
// type and report time already exists. The caller decides whether to pick a
// different report time or treat the snapshot as already processed.
type DuplicateReportError struct {
	ID ReportID
}

func (e *DuplicateReportError) Error() string {
	return fmt.Sprintf("report %s already exists", e.ID)
}

// ReferenceID pins an observation to the reference snapshot it was compared
// against.
type ReferenceID struct {
	ReferenceType  ReferenceType
	ActiveDateTime time.Time
}

// ObservedMismatch is one discrepancy found within an observation, as supplied
// by a comparison producer. Status is never part of the input; the engine
// derives it during ingestion.
type ObservedMismatch struct {
	Type          MismatchType
	ReferenceData string
	ObservedData  string
	Notes         string
	IssueIDs      []string
}

// Observation records one content item examined in a report, with whatever
// mismatches the comparison found. An observation with no mismatches still
// matters: it marks the key as checked, which bounds automatic resolution.
type Observation struct {
	Key              ContentKey
	ReferenceID      ReferenceID
	ObservedDateTime time.Time
	Mismatches       []ObservedMismatch
}

// Report is one comparison run between a reference snapshot and observed data.
type Report struct {
	ReferenceType     ReferenceType
	ReportDateTime    time.Time
	ReferenceDateTime time.Time
	Notes             string
	Observations      []Observation
}

// ID returns the report's unique identity.
func (r *Report) ID() ReportID {
	return ReportID{ReferenceType: r.ReferenceType, ReportDateTime: r.ReportDateTime}
}

// ReportSummary carries per-report mismatch counts for the report listing view.
type ReportSummary struct {
	ID                ReportID
	ReferenceDateTime time.Time
	Notes             string
	CountsByStatus    map[MismatchStatus]int
}

// Total returns the number of mismatch rows the report produced.
func (s *ReportSummary) Total() int {
	total := 0
	for _, n := range s.CountsByStatus {
		total += n
	}
	return total
}

// HistoryRow is a ledger row in a report history view. Current marks rows
// produced by the requested report; prior rows of the same lineages are
// included for audit with Current unset.
type HistoryRow struct {
	Mismatch
	Current bool
}

// ReportHistory is a report header together with its rows and the prior rows
// of the same lineages.
type ReportHistory struct {
	Report Report
	Rows   []HistoryRow
}
