package addressfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/addressbook/internal/domain"
	"github.com/utafrali/addressbook/internal/simpletoken"
	"github.com/utafrali/addressbook/internal/store"
	"github.com/utafrali/addressbook/internal/subdivision"
)

func enabled(names ...string) []domain.FieldConfig {
	fields := make([]domain.FieldConfig, 0, len(names))
	for _, n := range names {
		fields = append(fields, domain.FieldConfig{Value: n, Enabled: true})
	}
	return fields
}

var allFields = enabled(
	"salutation", "firstname", "lastname", "company", "street_1", "street_2", "street_3",
	"postal", "city", "subdivision", "country", "phone", "email",
)

func testStore() store.Config {
	return store.Config{
		ID:            1,
		Country:       "us",
		Language:      "en",
		OutputFormat:  store.OutputHTML,
		DateFormat:    "01/02/2006",
		BillingFields: allFields,
	}
}

func newTestFormatter(t *testing.T, formats *Formats) *Formatter {
	t.Helper()
	if formats == nil {
		var err error
		formats, err = DefaultFormats()
		require.NoError(t, err)
	}
	return NewFormatter(formats, NewSchemaFormatter(), subdivision.Default(), simpletoken.New())
}

func sampleAddress() *domain.Address {
	return &domain.Address{
		FirstName:   "Alice",
		LastName:    "Smith",
		Street1:     "123 Main St",
		Street2:     "Apt 4",
		Postal:      "62701",
		City:        "Springfield",
		Subdivision: "US-CA",
		Country:     "us",
		Phone:       "555-0100",
		Email:       "alice@example.com",
	}
}

func TestTokens_DisabledFieldsAreEmpty(t *testing.T) {
	f := newTestFormatter(t, nil)
	fields := []domain.FieldConfig{
		{Value: "firstname", Enabled: true},
		{Value: "lastname", Enabled: false},
		{Value: "city", Enabled: false},
	}

	tokens := f.Tokens(sampleAddress(), Options{Store: testStore(), Fields: fields})

	assert.Equal(t, "Alice", tokens["firstname"])
	v, ok := tokens["lastname"]
	assert.True(t, ok)
	assert.Equal(t, "", v)
	v, ok = tokens["city"]
	assert.True(t, ok)
	assert.Equal(t, "", v)
	assert.Equal(t, `<span class="fn">Alice</span>`, tokens["hcard_fn"])
	assert.Equal(t, "", tokens["hcard_locality"])
}

func TestTokens_Subdivision(t *testing.T) {
	f := newTestFormatter(t, nil)

	tokens := f.Tokens(sampleAddress(), Options{Store: testStore()})

	assert.Equal(t, "California", tokens["subdivision"])
	assert.Equal(t, "CA", tokens["subdivision_abbr"])
	assert.Equal(t, `<span class="region">California</span>`, tokens["hcard_region"])
	assert.Equal(t, `<abbr class="region" title="California">CA</abbr>`, tokens["hcard_region_abbr"])
}

func TestTokens_UnknownSubdivision(t *testing.T) {
	f := newTestFormatter(t, nil)
	addr := sampleAddress()
	addr.Subdivision = "US-XX"

	tokens := f.Tokens(addr, Options{Store: testStore()})

	assert.Equal(t, "", tokens["subdivision"])
	assert.Equal(t, "XX", tokens["subdivision_abbr"])
	assert.Equal(t, "", tokens["hcard_region"])
	assert.Equal(t, `<abbr class="region" title="">XX</abbr>`, tokens["hcard_region_abbr"])
}

func TestTokens_EmptySubdivisionUsesValueFormatter(t *testing.T) {
	f := newTestFormatter(t, nil)
	addr := sampleAddress()
	addr.Subdivision = ""

	tokens := f.Tokens(addr, Options{Store: testStore()})

	assert.Equal(t, "", tokens["subdivision"])
	_, ok := tokens["subdivision_abbr"]
	assert.False(t, ok)
	assert.Equal(t, "", tokens["hcard_region_abbr"])
}

func TestTokens_FullName(t *testing.T) {
	f := newTestFormatter(t, nil)

	t.Run("company takes precedence", func(t *testing.T) {
		addr := sampleAddress()
		addr.Company = "ACME Corp"

		tokens := f.Tokens(addr, Options{Store: testStore()})

		assert.Equal(t, `<span class="fn">ACME Corp</span>`, tokens["hcard_fn"])
		assert.Equal(t, `<div class="org fn">ACME Corp</div>`, tokens["hcard_org"])
		assert.Equal(t, "1", tokens["hcard_n"])
	})

	t.Run("trimmed person name", func(t *testing.T) {
		addr := sampleAddress()
		addr.FirstName = ""

		tokens := f.Tokens(addr, Options{Store: testStore()})

		assert.Equal(t, `<span class="fn">Smith</span>`, tokens["hcard_fn"])
		assert.Equal(t, "", tokens["hcard_org"])
		assert.Equal(t, "", tokens["hcard_given_name"])
		assert.Equal(t, `<span class="family-name">Smith</span>`, tokens["hcard_family_name"])
	})

	t.Run("no name at all", func(t *testing.T) {
		tokens := f.Tokens(&domain.Address{City: "Bern"}, Options{Store: testStore()})

		assert.Equal(t, "", tokens["hcard_fn"])
		assert.Equal(t, "", tokens["hcard_n"])
	})
}

func TestTokens_ContactMarkup(t *testing.T) {
	f := newTestFormatter(t, nil)
	addr := sampleAddress()
	addr.Salutation = "Dr."

	tokens := f.Tokens(addr, Options{Store: testStore()})

	assert.Equal(t, `<a href="mailto:alice@example.com">alice@example.com</a>`, tokens["hcard_email"])
	assert.Equal(t, `<div class="tel">555-0100</div>`, tokens["hcard_tel"])
	assert.Equal(t, `<span class="honorific-prefix">Dr.</span>`, tokens["hcard_honorific_prefix"])
	assert.Equal(t, `<span class="postal-code">62701</span>`, tokens["hcard_postal_code"])
	assert.Equal(t, `<span class="locality">Springfield</span>`, tokens["hcard_locality"])
	assert.Equal(t, `<div class="country-name">United States</div>`, tokens["hcard_country_name"])
}

func TestTokens_StreetSeparator(t *testing.T) {
	f := newTestFormatter(t, nil)
	addr := sampleAddress()
	addr.Street3 = "Building C"

	html := f.Tokens(addr, Options{Store: testStore(), OutputFormat: store.OutputHTML})
	assert.Equal(t, `<div class="street-address">123 Main St<br>Apt 4<br>Building C</div>`, html["hcard_street_address"])
	assert.Equal(t, "html", html["outputFormat"])

	xhtml := f.Tokens(addr, Options{Store: testStore(), OutputFormat: store.OutputXHTML})
	assert.Equal(t, `<div class="street-address">123 Main St<br />Apt 4<br />Building C</div>`, xhtml["hcard_street_address"])
	assert.Equal(t, "xhtml", xhtml["outputFormat"])
}

func TestTokens_StreetSkipsEmptyLines(t *testing.T) {
	f := newTestFormatter(t, nil)
	addr := &domain.Address{Street1: "Main St 1", Street3: "Rear"}

	tokens := f.Tokens(addr, Options{Store: testStore()})

	assert.Equal(t, `<div class="street-address">Main St 1<br>Rear</div>`, tokens["hcard_street_address"])
}

func TestTokens_OutputFormatFallsBackToStore(t *testing.T) {
	f := newTestFormatter(t, nil)
	st := testStore()
	st.OutputFormat = store.OutputXHTML

	tokens := f.Tokens(sampleAddress(), Options{Store: st})

	assert.Equal(t, "xhtml", tokens["outputFormat"])
}

// hcard_adr is a logical OR over the address components.
func TestTokens_HasAddressFlag(t *testing.T) {
	f := newTestFormatter(t, nil)

	tests := []struct {
		name string
		addr domain.Address
		want string
	}{
		{"empty", domain.Address{FirstName: "A"}, ""},
		{"street only", domain.Address{Street1: "x"}, "1"},
		{"city only", domain.Address{City: "x"}, "1"},
		{"postal only", domain.Address{Postal: "x"}, "1"},
		{"subdivision only", domain.Address{Subdivision: "US-CA"}, "1"},
		{"country only", domain.Address{Country: "de"}, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := f.Tokens(&tt.addr, Options{Store: testStore()})
			assert.Equal(t, tt.want, tokens["hcard_adr"])
		})
	}
}

func TestTokens_HCardDoesNotOverrideFieldTokens(t *testing.T) {
	f := newTestFormatter(t, nil)
	fields := append(enabled("firstname", "lastname"), domain.FieldConfig{Value: "hcard_fn"})

	tokens := f.Tokens(sampleAddress(), Options{Store: testStore(), Fields: fields})

	assert.Equal(t, "", tokens["hcard_fn"])
	assert.Equal(t, `<span class="given-name">Alice</span>`, tokens["hcard_given_name"])
}

func TestTokens_NilFieldsUseStoreBillingFields(t *testing.T) {
	f := newTestFormatter(t, nil)
	st := testStore()
	st.BillingFields = enabled("city")

	tokens := f.Tokens(sampleAddress(), Options{Store: st})

	assert.Equal(t, "Springfield", tokens["city"])
	_, ok := tokens["firstname"]
	assert.False(t, ok)
	assert.Equal(t, "", tokens["hcard_given_name"])
}

func TestGenerate_SelectsTemplate(t *testing.T) {
	formats, err := NewFormats(map[string]string{
		"generic": "G:{city}",
		"US":      "US:{city}",
	})
	require.NoError(t, err)
	f := newTestFormatter(t, formats)
	opts := Options{Store: testStore()}

	addr := sampleAddress()
	assert.Equal(t, "US:Springfield", f.Generate(addr, opts))

	addr.Country = "fr"
	assert.Equal(t, "G:Springfield", f.Generate(addr, opts))

	addr.Country = ""
	assert.Equal(t, "US:Springfield", f.Generate(addr, opts), "falls back to the store country")

	st := testStore()
	st.Country = ""
	assert.Equal(t, "G:Springfield", f.Generate(addr, Options{Store: st}))
}

func TestGenerate_MissingDataRendersEmpty(t *testing.T) {
	formats, err := NewFormats(map[string]string{"generic": "[{firstname}|{unknown}|{hcard_org}]"})
	require.NoError(t, err)
	f := newTestFormatter(t, formats)

	assert.Equal(t, "[||]", f.Generate(&domain.Address{}, Options{Store: testStore()}))
}

func TestGenerate_DefaultUSFormat(t *testing.T) {
	f := newTestFormatter(t, nil)
	opts := Options{Store: testStore()}

	out := f.Generate(sampleAddress(), opts)
	assert.Contains(t, out, `<div class="vcard">`)
	assert.Contains(t, out, `<div class="adr">`)
	assert.Contains(t, out, `<span class="given-name">Alice</span>`)

	text := f.GenerateText(sampleAddress(), opts)
	assert.Contains(t, text, "Springfield, CA 62701")
	assert.Contains(t, text, "123 Main StApt 4")
	assert.Contains(t, text, "United States")
	assert.NotContains(t, text, "<")
}

func TestGenerate_CompanyOnlySkipsNameBlock(t *testing.T) {
	f := newTestFormatter(t, nil)

	opts := Options{Store: testStore(), Fields: enabled("company", "firstname", "lastname")}

	out := f.Generate(&domain.Address{Company: "ACME", Country: "de"}, opts)

	assert.Contains(t, out, `<div class="org fn">ACME</div>`)
	assert.NotContains(t, out, `<div class="n">`)
	assert.NotContains(t, out, `<div class="adr">`)
}

func TestGenerateText_EqualsStrippedGenerate(t *testing.T) {
	f := newTestFormatter(t, nil)
	opts := Options{Store: testStore(), OutputFormat: store.OutputXHTML}

	for _, country := range []string{"us", "de", "ch", "gb", "au", "jp"} {
		addr := sampleAddress()
		addr.Country = country
		assert.Equal(t, StripTags(f.Generate(addr, opts)), f.GenerateText(addr, opts), country)
	}
}

func TestGenerateHTML_IsGenerate(t *testing.T) {
	f := newTestFormatter(t, nil)
	opts := Options{Store: testStore()}

	assert.Equal(t, f.Generate(sampleAddress(), opts), f.GenerateHTML(sampleAddress(), opts))
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`<div class="a">x<br>y &amp; z</div>`, "xy &amp; z"},
		{`a<br />b`, "ab"},
		{`<!-- note -->text`, "text"},
		{`plain`, "plain"},
		{``, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripTags(tt.in), tt.in)
	}
}
