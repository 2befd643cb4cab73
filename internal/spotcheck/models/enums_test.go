package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnumsRejectUnknownValues(t *testing.T) {
	_, err := ParseDataSource("OPENSTATES")
	assert.Error(t, err)
	_, err = ParseContentType("TRANSCRIPT")
	assert.Error(t, err)
	_, err = ParseMismatchStatus("IGNORED")
	assert.Error(t, err)
	_, err = ParseIgnoreLevel("FOREVER")
	assert.Error(t, err)
	_, err = ParseMismatchType("BILL_MEMO")
	assert.Error(t, err)
	_, err = ParseReferenceType("LBDC_TRANSCRIPT")
	assert.Error(t, err)
}

func TestParseEnumsAcceptKnownValues(t *testing.T) {
	ds, err := ParseDataSource("LBDC")
	require.NoError(t, err)
	assert.Equal(t, DataSourceLBDC, ds)

	status, err := ParseMismatchStatus("RESOLVED")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, status)

	refType, err := ParseReferenceType("SENATE_SITE_BILLS")
	require.NoError(t, err)
	assert.Equal(t, RefTypeSenateSiteBills, refType)
}

func TestReferenceTypeBindings(t *testing.T) {
	tests := []struct {
		refType     ReferenceType
		dataSource  DataSource
		contentType ContentType
	}{
		{RefTypeLBDCDaybreak, DataSourceLBDC, ContentTypeBill},
		{RefTypeLBDCScrapedBill, DataSourceLBDC, ContentTypeBill},
		{RefTypeLBDCCalendarAlert, DataSourceLBDC, ContentTypeCalendar},
		{RefTypeLBDCAgendaAlert, DataSourceLBDC, ContentTypeAgenda},
		{RefTypeSenateSiteBills, DataSourceNYSenate, ContentTypeBill},
		{RefTypeSenateSiteCalendar, DataSourceNYSenate, ContentTypeCalendar},
	}
	for _, tt := range tests {
		t.Run(string(tt.refType), func(t *testing.T) {
			assert.Equal(t, tt.dataSource, tt.refType.DataSource())
			assert.Equal(t, tt.contentType, tt.refType.ContentType())
			assert.NotEmpty(t, tt.refType.CheckedMismatchTypes())
		})
	}
}

func TestCheckedMismatchTypesReturnsCopy(t *testing.T) {
	first := RefTypeLBDCDaybreak.CheckedMismatchTypes()
	first[0] = MismatchType("MUTATED")
	assert.NotContains(t, RefTypeLBDCDaybreak.CheckedMismatchTypes(), MismatchType("MUTATED"))
}
