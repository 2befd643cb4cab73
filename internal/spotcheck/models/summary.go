package models

// SummaryKey groups latest-state rows for the dashboard summary.
type SummaryKey struct {
	ContentType ContentType
	Status      MismatchStatus
}

// MismatchSummary holds counts of unresolved (plus same-day resolved)
// lineages, grouped by content type and status.
type MismatchSummary struct {
	Counts map[SummaryKey]int
}

func NewMismatchSummary() *MismatchSummary {
	return &MismatchSummary{Counts: make(map[SummaryKey]int)}
}

// Add counts one latest-state row.
func (s *MismatchSummary) Add(ct ContentType, status MismatchStatus) {
	s.Counts[SummaryKey{ContentType: ct, Status: status}]++
}

// Count returns the tally for one content type and status.
func (s *MismatchSummary) Count(ct ContentType, status MismatchStatus) int {
	return s.Counts[SummaryKey{ContentType: ct, Status: status}]
}

// StatusTotal sums counts across content types for one status.
func (s *MismatchSummary) StatusTotal(status MismatchStatus) int {
	total := 0
	for key, n := range s.Counts {
		if key.Status == status {
			total += n
		}
	}
	return total
}
