package models

import "fmt"

// DataSource identifies whose data a reference snapshot describes.
type DataSource string

const (
	DataSourceLBDC     DataSource = "LBDC"
	DataSourceNYSenate DataSource = "NYSENATE"
)

// ParseDataSource converts a stored string to a DataSource. Unknown values are
// rejected rather than coerced; they indicate storage corruption.
func ParseDataSource(s string) (DataSource, error) {
	switch ds := DataSource(s); ds {
	case DataSourceLBDC, DataSourceNYSenate:
		return ds, nil
	}
	return "", fmt.Errorf("invalid data source %q", s)
}

// ContentType is the content domain a mismatch was observed on.
type ContentType string

const (
	ContentTypeBill     ContentType = "BILL"
	ContentTypeCalendar ContentType = "CALENDAR"
	ContentTypeAgenda   ContentType = "AGENDA"
)

func ParseContentType(s string) (ContentType, error) {
	switch ct := ContentType(s); ct {
	case ContentTypeBill, ContentTypeCalendar, ContentTypeAgenda:
		return ct, nil
	}
	return "", fmt.Errorf("invalid content type %q", s)
}

// MismatchStatus classifies a ledger row relative to prior reports.
type MismatchStatus string

const (
	StatusNew      MismatchStatus = "NEW"
	StatusExisting MismatchStatus = "EXISTING"
	StatusResolved MismatchStatus = "RESOLVED"
)

func ParseMismatchStatus(s string) (MismatchStatus, error) {
	switch ms := MismatchStatus(s); ms {
	case StatusNew, StatusExisting, StatusResolved:
		return ms, nil
	}
	return "", fmt.Errorf("invalid mismatch status %q", s)
}

// AllStatuses returns every mismatch status; convenience for unfiltered queries.
func AllStatuses() []MismatchStatus {
	return []MismatchStatus{StatusNew, StatusExisting, StatusResolved}
}

// IgnoreLevel is the suppression level applied to a lineage via the overlay.
type IgnoreLevel string

const (
	NotIgnored      IgnoreLevel = "NOT_IGNORED"
	IgnoreTemporary IgnoreLevel = "TEMPORARY"
	IgnorePermanent IgnoreLevel = "PERMANENT"
)

func ParseIgnoreLevel(s string) (IgnoreLevel, error) {
	switch il := IgnoreLevel(s); il {
	case NotIgnored, IgnoreTemporary, IgnorePermanent:
		return il, nil
	}
	return "", fmt.Errorf("invalid ignore level %q", s)
}

// MismatchType names one kind of discrepancy a comparison can find.
type MismatchType string

const (
	MismatchBillTitle         MismatchType = "BILL_TITLE"
	MismatchBillAction        MismatchType = "BILL_ACTION"
	MismatchBillSponsor       MismatchType = "BILL_SPONSOR"
	MismatchBillCosponsor     MismatchType = "BILL_COSPONSOR"
	MismatchBillSummary       MismatchType = "BILL_SUMMARY"
	MismatchBillLawSection    MismatchType = "BILL_LAW_SECTION"
	MismatchBillFullTextPages MismatchType = "BILL_FULLTEXT_PAGE_COUNT"
	MismatchCalendarEntry     MismatchType = "CALENDAR_ENTRY"
	MismatchCalendarSupp      MismatchType = "CALENDAR_SUPPLEMENTAL"
	MismatchAgendaItem        MismatchType = "AGENDA_ITEM"
	MismatchAgendaMeetingTime MismatchType = "AGENDA_MEETING_TIME"
)

var validMismatchTypes = map[MismatchType]struct{}{
	MismatchBillTitle: {}, MismatchBillAction: {}, MismatchBillSponsor: {},
	MismatchBillCosponsor: {}, MismatchBillSummary: {}, MismatchBillLawSection: {},
	MismatchBillFullTextPages: {}, MismatchCalendarEntry: {}, MismatchCalendarSupp: {},
	MismatchAgendaItem: {}, MismatchAgendaMeetingTime: {},
}

func ParseMismatchType(s string) (MismatchType, error) {
	if _, ok := validMismatchTypes[MismatchType(s)]; ok {
		return MismatchType(s), nil
	}
	return "", fmt.Errorf("invalid mismatch type %q", s)
}

// ReferenceType identifies the external source a report compares against.
// Each reference type is bound to one data source, one content type, and a
// fixed set of mismatch types it checks. A type can be checked and come back
// clean; the checked set bounds automatic resolution, not what was found.
type ReferenceType string

const (
	RefTypeLBDCDaybreak       ReferenceType = "LBDC_DAYBREAK"
	RefTypeLBDCScrapedBill    ReferenceType = "LBDC_SCRAPED_BILL"
	RefTypeLBDCCalendarAlert  ReferenceType = "LBDC_CALENDAR_ALERT"
	RefTypeLBDCAgendaAlert    ReferenceType = "LBDC_AGENDA_ALERT"
	RefTypeSenateSiteBills    ReferenceType = "SENATE_SITE_BILLS"
	RefTypeSenateSiteCalendar ReferenceType = "SENATE_SITE_CALENDAR"
)

type refTypeSpec struct {
	dataSource   DataSource
	contentType  ContentType
	checkedTypes []MismatchType
}

var refTypeSpecs = map[ReferenceType]refTypeSpec{
	RefTypeLBDCDaybreak: {
		DataSourceLBDC, ContentTypeBill,
		[]MismatchType{MismatchBillTitle, MismatchBillAction, MismatchBillSponsor, MismatchBillCosponsor, MismatchBillLawSection, MismatchBillFullTextPages},
	},
	RefTypeLBDCScrapedBill: {
		DataSourceLBDC, ContentTypeBill,
		[]MismatchType{MismatchBillTitle, MismatchBillSummary, MismatchBillFullTextPages},
	},
	RefTypeLBDCCalendarAlert: {
		DataSourceLBDC, ContentTypeCalendar,
		[]MismatchType{MismatchCalendarEntry, MismatchCalendarSupp},
	},
	RefTypeLBDCAgendaAlert: {
		DataSourceLBDC, ContentTypeAgenda,
		[]MismatchType{MismatchAgendaItem, MismatchAgendaMeetingTime},
	},
	RefTypeSenateSiteBills: {
		DataSourceNYSenate, ContentTypeBill,
		[]MismatchType{MismatchBillTitle, MismatchBillAction, MismatchBillSponsor, MismatchBillSummary},
	},
	RefTypeSenateSiteCalendar: {
		DataSourceNYSenate, ContentTypeCalendar,
		[]MismatchType{MismatchCalendarEntry},
	},
}

func ParseReferenceType(s string) (ReferenceType, error) {
	if _, ok := refTypeSpecs[ReferenceType(s)]; ok {
		return ReferenceType(s), nil
	}
	return "", fmt.Errorf("invalid reference type %q", s)
}

// DataSource returns the data source this reference type reports on.
func (rt ReferenceType) DataSource() DataSource { return refTypeSpecs[rt].dataSource }

// ContentType returns the content domain this reference type covers.
func (rt ReferenceType) ContentType() ContentType { return refTypeSpecs[rt].contentType }

// CheckedMismatchTypes returns the mismatch types a report of this reference
// type is defined to check. The slice is a copy; callers may mutate it.
func (rt ReferenceType) CheckedMismatchTypes() []MismatchType {
	spec := refTypeSpecs[rt]
	out := make([]MismatchType, len(spec.checkedTypes))
	copy(out, spec.checkedTypes)
	return out
}
