package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFromFields(t *testing.T) {
	tests := []struct {
		name        string
		contentType ContentType
		fields      map[string]string
		want        ContentKey
		wantReason  string
	}{
		{
			name:        "bill key",
			contentType: ContentTypeBill,
			fields:      map[string]string{"session": "2023", "basePrintNo": "S1234", "version": "A"},
			want:        BillKey{Session: 2023, BasePrintNo: "S1234", Version: "A"},
		},
		{
			name:        "bill key base version",
			contentType: ContentTypeBill,
			fields:      map[string]string{"session": "2023", "basePrintNo": "S1234"},
			want:        BillKey{Session: 2023, BasePrintNo: "S1234"},
		},
		{
			name:        "bill key non-numeric session",
			contentType: ContentTypeBill,
			fields:      map[string]string{"session": "20x3", "basePrintNo": "S1234"},
			wantReason:  "missing or non-numeric session",
		},
		{
			name:        "bill key missing print no",
			contentType: ContentTypeBill,
			fields:      map[string]string{"session": "2023"},
			wantReason:  "missing basePrintNo",
		},
		{
			name:        "calendar key",
			contentType: ContentTypeCalendar,
			fields:      map[string]string{"year": "2024", "calNo": "7"},
			want:        CalendarKey{Year: 2024, CalNo: 7},
		},
		{
			name:        "calendar key missing calNo",
			contentType: ContentTypeCalendar,
			fields:      map[string]string{"year": "2024"},
			wantReason:  "missing or non-numeric calNo",
		},
		{
			name:        "agenda key",
			contentType: ContentTypeAgenda,
			fields:      map[string]string{"year": "2024", "agendaNo": "12", "committee": "Finance"},
			want:        AgendaKey{Year: 2024, AgendaNo: 12, Committee: "Finance"},
		},
		{
			name:        "agenda key missing committee",
			contentType: ContentTypeAgenda,
			fields:      map[string]string{"year": "2024", "agendaNo": "12"},
			wantReason:  "missing committee",
		},
		{
			name:        "unknown content type",
			contentType: ContentType("TRANSCRIPT"),
			fields:      map[string]string{},
			wantReason:  "unknown content type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeyFromFields(tt.contentType, tt.fields)
			if tt.wantReason != "" {
				var convErr *ContentKeyConversionError
				require.ErrorAs(t, err, &convErr)
				assert.Equal(t, tt.wantReason, convErr.Reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyFieldMapRoundTrip(t *testing.T) {
	keys := []ContentKey{
		BillKey{Session: 2023, BasePrintNo: "A500", Version: "B"},
		CalendarKey{Year: 2024, CalNo: 3},
		AgendaKey{Year: 2023, AgendaNo: 9, Committee: "Rules"},
	}
	for _, key := range keys {
		got, err := KeyFromFields(key.ContentType(), KeyFieldMap(key))
		require.NoError(t, err)
		assert.Equal(t, key, got)
	}
}

func TestKeysAreComparable(t *testing.T) {
	// Lineages are used as map keys; two keys with the same fields must
	// collapse to one entry.
	a := Lineage{Key: BillKey{Session: 2023, BasePrintNo: "S1"}, MismatchType: MismatchBillTitle, ReferenceType: RefTypeLBDCDaybreak}
	b := Lineage{Key: BillKey{Session: 2023, BasePrintNo: "S1"}, MismatchType: MismatchBillTitle, ReferenceType: RefTypeLBDCDaybreak}

	set := map[Lineage]struct{}{a: {}}
	_, ok := set[b]
	assert.True(t, ok)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "session=2023 basePrintNo=S1234 version=A",
		KeyString(BillKey{Session: 2023, BasePrintNo: "S1234", Version: "A"}))
	assert.Equal(t, "<nil>", KeyString(nil))
}
