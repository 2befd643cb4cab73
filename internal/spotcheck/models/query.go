package models

import "time"

// MismatchQuery filters the latest-state view of the ledger. Empty sets mean
// "no restriction" for that dimension. FromDate/ToDate bound the
// reference-active time; zero values leave the corresponding side open.
type MismatchQuery struct {
	DataSource   DataSource
	ContentTypes []ContentType
	Statuses     []MismatchStatus
	IgnoreLevels []IgnoreLevel
	FromDate     time.Time
	ToDate       time.Time
}

// LimitOffset paginates query results. A zero Limit returns everything.
type LimitOffset struct {
	Limit  int
	Offset int
}

// All is the no-pagination sentinel used for internal full reads.
var All = LimitOffset{}

// Page slices rows according to the limit/offset, tolerating out-of-range
// offsets.
func (lo LimitOffset) Page(n int) (start, end int) {
	start = lo.Offset
	if start > n {
		start = n
	}
	end = n
	if lo.Limit > 0 && start+lo.Limit < n {
		end = start + lo.Limit
	}
	return start, end
}

// PaginatedList is one page of results plus the pre-pagination total, so
// clients can render pagination controls.
type PaginatedList[T any] struct {
	Total   int
	Limit   int
	Offset  int
	Results []T
}

// MatchesStatuses reports whether s passes the query's status filter.
func (q *MismatchQuery) MatchesStatuses(s MismatchStatus) bool {
	if len(q.Statuses) == 0 {
		return true
	}
	for _, st := range q.Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// MatchesIgnoreLevels reports whether il passes the query's ignore filter.
func (q *MismatchQuery) MatchesIgnoreLevels(il IgnoreLevel) bool {
	if len(q.IgnoreLevels) == 0 {
		return true
	}
	for _, l := range q.IgnoreLevels {
		if l == il {
			return true
		}
	}
	return false
}

// MatchesContentTypes reports whether ct passes the query's content filter.
func (q *MismatchQuery) MatchesContentTypes(ct ContentType) bool {
	if len(q.ContentTypes) == 0 {
		return true
	}
	for _, c := range q.ContentTypes {
		if c == ct {
			return true
		}
	}
	return false
}

// MatchesDates reports whether a reference-active time falls inside the
// query's date window.
func (q *MismatchQuery) MatchesDates(t time.Time) bool {
	if !q.FromDate.IsZero() && t.Before(q.FromDate) {
		return false
	}
	if !q.ToDate.IsZero() && t.After(q.ToDate) {
		return false
	}
	return true
}
