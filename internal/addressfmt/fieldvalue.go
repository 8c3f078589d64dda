package addressfmt

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/utafrali/addressbook/internal/domain"
	"github.com/utafrali/addressbook/internal/store"
)

// FieldValueFormatter turns a stored column value into display text.
type FieldValueFormatter interface {
	Format(table, field string, value any, st store.Config) string
}

// SchemaFormatter formats address values from the column schema: option codes
// become labels, countries become localized names, timestamps become dates in
// the store date format. Anything else is shown as is.
type SchemaFormatter struct {
	options map[string]map[string]map[string]string // field -> language -> code -> label
	yesNo   map[string][2]string                    // language -> {yes, no}
}

// NewSchemaFormatter returns a SchemaFormatter with the built-in option labels.
func NewSchemaFormatter() *SchemaFormatter {
	return &SchemaFormatter{
		options: map[string]map[string]map[string]string{
			"gender": {
				"en": {"male": "Male", "female": "Female", "other": "Other"},
				"de": {"male": "Männlich", "female": "Weiblich", "other": "Divers"},
			},
		},
		yesNo: map[string][2]string{
			"en": {"Yes", "No"},
			"de": {"Ja", "Nein"},
		},
	}
}

// Format implements FieldValueFormatter.
func (f *SchemaFormatter) Format(_, field string, value any, st store.Config) string {
	switch field {
	case "country":
		return countryName(toText(value), st.Language)
	case "dateOfBirth":
		return formatUnix(value, st.DateFormat)
	case "tstamp":
		return formatUnix(value, st.DateFormat+" 15:04")
	case "isDefaultBilling", "isDefaultShipping":
		b, _ := value.(bool)
		labels := pick(f.yesNo, st.Language)
		if b {
			return labels[0]
		}
		return labels[1]
	}

	text := toText(value)
	if opts, ok := f.options[field]; ok && text != "" {
		if label, ok := pick(opts, st.Language)[text]; ok {
			return label
		}
	}
	return text
}

func pick[T any](byLang map[string]T, lang string) T {
	if v, ok := byLang[lang]; ok {
		return v
	}
	base, _, _ := strings.Cut(lang, "-")
	if v, ok := byLang[base]; ok {
		return v
	}
	return byLang["en"]
}

// countryName returns the name of an ISO 3166-1 code in the given language.
// Codes that do not parse are returned unchanged.
func countryName(code, lang string) string {
	if code == "" {
		return ""
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}

	namer := display.Regions(language.Make(lang))
	if namer == nil {
		namer = display.English.Regions()
	}
	if name := namer.Name(region); name != "" {
		return name
	}
	return code
}

func formatUnix(value any, layout string) string {
	var ts int64
	switch v := value.(type) {
	case int64:
		ts = v
	case int:
		ts = int64(v)
	}
	if ts == 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format(layout)
}

func toText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case domain.ParentTable:
		return v.String()
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		if v {
			return "1"
		}
		return ""
	default:
		return ""
	}
}
