// Package addressfmt renders addresses as hCard markup using per-country
// templates.
//
// See http://microformats.org/wiki/hcard for the class names used by the
// hcard_* tokens.
package addressfmt

import (
	"bytes"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/html"

	"github.com/utafrali/addressbook/internal/domain"
	"github.com/utafrali/addressbook/internal/store"
)

var addressRendersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "address_format_renders_total",
		Help: "Total number of formatted addresses by template and output format",
	},
	[]string{"format", "output"},
)

// Renderer substitutes tokens into a template.
type Renderer interface {
	Render(tpl string, tokens map[string]string) string
}

// SubdivisionSource returns the subdivisions of a lower-case country code,
// keyed by the composite "COUNTRY-REGION" code.
type SubdivisionSource interface {
	ForCountry(country string) map[string]string
}

// Options controls one formatting call.
type Options struct {
	// Store supplies the default country, the language and the default field set.
	Store store.Config
	// Fields is the ordered field configuration. Nil selects the store billing fields.
	Fields []domain.FieldConfig
	// OutputFormat is "html" or "xhtml". Empty selects the store output format.
	OutputFormat string
}

func (o Options) fields() []domain.FieldConfig {
	if o.Fields == nil {
		return o.Store.BillingFieldsConfig()
	}
	return o.Fields
}

func (o Options) outputFormat() string {
	switch {
	case o.OutputFormat != "":
		return o.OutputFormat
	case o.Store.OutputFormat != "":
		return o.Store.OutputFormat
	default:
		return store.OutputHTML
	}
}

// Formatter renders addresses. It is safe for concurrent use.
type Formatter struct {
	formats      *Formats
	values       FieldValueFormatter
	subdivisions SubdivisionSource
	renderer     Renderer
}

// NewFormatter creates a Formatter.
func NewFormatter(formats *Formats, values FieldValueFormatter, subdivisions SubdivisionSource, renderer Renderer) *Formatter {
	return &Formatter{
		formats:      formats,
		values:       values,
		subdivisions: subdivisions,
		renderer:     renderer,
	}
}

// Generate renders the address with the template of its country, or of the
// store country when the address has none.
func (f *Formatter) Generate(addr *domain.Address, opts Options) string {
	country := addr.Country
	if country == "" {
		country = opts.Store.Country
	}

	key, tpl := f.formats.Template(country)
	out := f.renderer.Render(tpl, f.Tokens(addr, opts))

	addressRendersTotal.WithLabelValues(key, opts.outputFormat()).Inc()
	return out
}

// GenerateHTML is an alias of Generate.
//
// Deprecated: use Generate.
func (f *Formatter) GenerateHTML(addr *domain.Address, opts Options) string {
	return f.Generate(addr, opts)
}

// GenerateText renders the address and strips all markup tags.
func (f *Formatter) GenerateText(addr *domain.Address, opts Options) string {
	return StripTags(f.Generate(addr, opts))
}

// Tokens returns the template tokens of an address: one token per configured
// field, the hcard_* tokens and outputFormat.
func (f *Formatter) Tokens(addr *domain.Address, opts Options) map[string]string {
	output := opts.outputFormat()
	tokens := map[string]string{"outputFormat": output}

	for _, fc := range opts.fields() {
		name := fc.Value

		// Disabled fields still get a token so the placeholder is replaced.
		if !fc.Enabled {
			tokens[name] = ""
			continue
		}

		if name == "subdivision" && addr.Subdivision != "" {
			country, region := addr.SubdivisionParts()
			tokens["subdivision"] = f.subdivisions.ForCountry(strings.ToLower(country))[addr.Subdivision]
			tokens["subdivision_abbr"] = region
			continue
		}

		v, ok := addr.Get(name)
		if !ok {
			tokens[name] = ""
			continue
		}
		tokens[name] = f.values.Format(domain.TableAddress, name, v, opts.Store)
	}

	for k, v := range hcardTokens(addr, tokens, output) {
		if _, ok := tokens[k]; !ok {
			tokens[k] = v
		}
	}
	return tokens
}

func hcardTokens(addr *domain.Address, t map[string]string, output string) map[string]string {
	fn, fnCompany := strings.TrimSpace(t["firstname"]+" "+t["lastname"]), ""
	if t["company"] != "" {
		fn, fnCompany = t["company"], " fn"
	}

	sep := "<br />"
	if output == store.OutputHTML {
		sep = "<br>"
	}
	street := joinNonEmpty(sep, addr.Street1, addr.Street2, addr.Street3)

	return map[string]string{
		"hcard_fn":               wrap(fn, `<span class="fn">`, `</span>`),
		"hcard_n":                flag(t["firstname"] != "" || t["lastname"] != ""),
		"hcard_honorific_prefix": wrap(t["salutation"], `<span class="honorific-prefix">`, `</span>`),
		"hcard_given_name":       wrap(t["firstname"], `<span class="given-name">`, `</span>`),
		"hcard_family_name":      wrap(t["lastname"], `<span class="family-name">`, `</span>`),
		"hcard_org":              wrap(t["company"], `<div class="org`+fnCompany+`">`, `</div>`),
		"hcard_email":            wrap(t["email"], `<a href="mailto:`+t["email"]+`">`, `</a>`),
		"hcard_tel":              wrap(t["phone"], `<div class="tel">`, `</div>`),
		"hcard_adr":              flag(street != "" || t["city"] != "" || t["postal"] != "" || t["subdivision"] != "" || t["country"] != ""),
		"hcard_street_address":   wrap(street, `<div class="street-address">`, `</div>`),
		"hcard_locality":         wrap(t["city"], `<span class="locality">`, `</span>`),
		"hcard_region":           wrap(t["subdivision"], `<span class="region">`, `</span>`),
		"hcard_region_abbr":      wrap(t["subdivision_abbr"], `<abbr class="region" title="`+t["subdivision"]+`">`, `</abbr>`),
		"hcard_postal_code":      wrap(t["postal"], `<span class="postal-code">`, `</span>`),
		"hcard_country_name":     wrap(t["country"], `<div class="country-name">`, `</div>`),
	}
}

func wrap(v, open, close string) string {
	if v == "" {
		return ""
	}
	return open + v + close
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// StripTags removes markup tags and comments from s. Text, including
// character references, is kept as written.
func StripTags(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b bytes.Buffer
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Raw())
		}
	}
}
