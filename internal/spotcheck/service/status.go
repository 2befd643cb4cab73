package service

import (
	"time"

	"spotcheck/internal/spotcheck/models"
)

// The status deriver is pure set algebra over two row sets: the mismatches a
// report just produced and the latest open state already in the ledger. It
// performs no I/O so the classification rules stay independently testable.

// DeriveStatuses classifies incoming report rows. A row whose lineage has a
// non-resolved current entry is EXISTING; everything else, including a lineage
// whose last row was RESOLVED, starts over as NEW. Returns new row values;
// inputs are not mutated.
func DeriveStatuses(incoming []*models.Mismatch, current []*models.Mismatch) []*models.Mismatch {
	open := openByLineage(current)
	out := make([]*models.Mismatch, 0, len(incoming))
	for _, row := range incoming {
		classified := *row
		if _, ok := open[row.Lineage()]; ok {
			classified.Status = models.StatusExisting
		} else {
			classified.Status = models.StatusNew
		}
		out = append(out, &classified)
	}
	return out
}

// DeriveResolved synthesizes RESOLVED rows for open lineages the report
// checked but found clean. A lineage qualifies only when its content key was
// observed this run and its mismatch type is in the reference type's checked
// set; absence of an observation is not evidence of resolution. The resolved
// row carries the prior row's data forward and takes its timestamps from the
// resolving report.
func DeriveResolved(
	incoming []*models.Mismatch,
	current []*models.Mismatch,
	checkedKeys map[models.ContentKey]models.Observation,
	checkedTypes []models.MismatchType,
	reportID int64,
	reportDateTime time.Time,
	referenceDateTime time.Time,
) []*models.Mismatch {
	reported := make(map[models.Lineage]struct{}, len(incoming))
	for _, row := range incoming {
		reported[row.Lineage()] = struct{}{}
	}
	typeChecked := make(map[models.MismatchType]struct{}, len(checkedTypes))
	for _, t := range checkedTypes {
		typeChecked[t] = struct{}{}
	}

	var resolved []*models.Mismatch
	for lineage, prior := range openByLineage(current) {
		if _, ok := reported[lineage]; ok {
			continue
		}
		obs, keyChecked := checkedKeys[lineage.Key]
		if !keyChecked {
			continue
		}
		if _, ok := typeChecked[lineage.MismatchType]; !ok {
			continue
		}

		row := *prior
		row.ID = 0
		row.ReportID = reportID
		row.Status = models.StatusResolved
		row.ReportDateTime = reportDateTime
		row.ReferenceActiveDateTime = referenceDateTime
		row.ObservedDateTime = obs.ObservedDateTime
		if row.ObservedDateTime.IsZero() {
			row.ObservedDateTime = reportDateTime
		}
		resolved = append(resolved, &row)
	}
	return resolved
}

// openByLineage indexes the latest-state rows that are still open. Current
// rows arrive one per lineage (latest-state query contract), so a plain map
// suffices.
func openByLineage(current []*models.Mismatch) map[models.Lineage]*models.Mismatch {
	open := make(map[models.Lineage]*models.Mismatch, len(current))
	for _, row := range current {
		if row.Status == models.StatusResolved {
			continue
		}
		open[row.Lineage()] = row
	}
	return open
}
