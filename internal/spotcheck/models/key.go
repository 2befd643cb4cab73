package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ContentKey identifies the content item an observation examined. Each content
// domain has its own variant; all variants convert losslessly to and from the
// string-field representation used for storage. Variants are small comparable
// structs so keys can be used directly in maps and set membership checks.
type ContentKey interface {
	ContentType() ContentType

	// Fields returns the ordered field representation of the key. Field order
	// is fixed per variant so the canonical string form is stable.
	Fields() []KeyField
}

// KeyField is one name/value pair of a content key's storage form.
type KeyField struct {
	Name  string
	Value string
}

// ContentKeyConversionError reports a stored or supplied key mapping that
// cannot be converted to the expected ContentKey variant. It is fatal for the
// affected row only; unrelated rows are unaffected.
type ContentKeyConversionError struct {
	ContentType ContentType
	Fields      map[string]string
	Reason      string
}

func (e *ContentKeyConversionError) Error() string {
	return fmt.Sprintf("cannot convert key fields to %s key: %s", e.ContentType, e.Reason)
}

// BillKey identifies a bill amendment within a legislative session.
type BillKey struct {
	Session     int
	BasePrintNo string
	Version     string
}

func (k BillKey) ContentType() ContentType { return ContentTypeBill }

func (k BillKey) Fields() []KeyField {
	return []KeyField{
		{"session", strconv.Itoa(k.Session)},
		{"basePrintNo", k.BasePrintNo},
		{"version", k.Version},
	}
}

// CalendarKey identifies a floor calendar by number within a year.
type CalendarKey struct {
	Year  int
	CalNo int
}

func (k CalendarKey) ContentType() ContentType { return ContentTypeCalendar }

func (k CalendarKey) Fields() []KeyField {
	return []KeyField{
		{"year", strconv.Itoa(k.Year)},
		{"calNo", strconv.Itoa(k.CalNo)},
	}
}

// AgendaKey identifies a committee agenda by number within a year.
type AgendaKey struct {
	Year      int
	AgendaNo  int
	Committee string
}

func (k AgendaKey) ContentType() ContentType { return ContentTypeAgenda }

func (k AgendaKey) Fields() []KeyField {
	return []KeyField{
		{"year", strconv.Itoa(k.Year)},
		{"agendaNo", strconv.Itoa(k.AgendaNo)},
		{"committee", k.Committee},
	}
}

// KeyFromFields reconstructs the ContentKey variant for the given content type
// from its stored field mapping. Conversion failures return a
// ContentKeyConversionError.
func KeyFromFields(ct ContentType, fields map[string]string) (ContentKey, error) {
	fail := func(reason string) (ContentKey, error) {
		return nil, &ContentKeyConversionError{ContentType: ct, Fields: fields, Reason: reason}
	}
	intField := func(name string) (int, bool) {
		v, err := strconv.Atoi(fields[name])
		return v, err == nil
	}
	switch ct {
	case ContentTypeBill:
		session, ok := intField("session")
		if !ok {
			return fail("missing or non-numeric session")
		}
		if fields["basePrintNo"] == "" {
			return fail("missing basePrintNo")
		}
		return BillKey{Session: session, BasePrintNo: fields["basePrintNo"], Version: fields["version"]}, nil
	case ContentTypeCalendar:
		year, ok := intField("year")
		if !ok {
			return fail("missing or non-numeric year")
		}
		calNo, ok := intField("calNo")
		if !ok {
			return fail("missing or non-numeric calNo")
		}
		return CalendarKey{Year: year, CalNo: calNo}, nil
	case ContentTypeAgenda:
		year, ok := intField("year")
		if !ok {
			return fail("missing or non-numeric year")
		}
		agendaNo, ok := intField("agendaNo")
		if !ok {
			return fail("missing or non-numeric agendaNo")
		}
		if fields["committee"] == "" {
			return fail("missing committee")
		}
		return AgendaKey{Year: year, AgendaNo: agendaNo, Committee: fields["committee"]}, nil
	}
	return fail("unknown content type")
}

// KeyFieldMap flattens a key's ordered fields into a plain map for storage.
func KeyFieldMap(key ContentKey) map[string]string {
	fields := key.Fields()
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}

// KeyString renders a key in its canonical single-line form, primarily for
// logging and error messages.
func KeyString(key ContentKey) string {
	if key == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(key.Fields()))
	for _, f := range key.Fields() {
		parts = append(parts, f.Name+"="+f.Value)
	}
	return strings.Join(parts, " ")
}
