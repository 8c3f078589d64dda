// Package subdivision provides display names for ISO 3166-2 subdivision codes.
package subdivision

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed subdivisions.yaml
var defaultData []byte

// Table maps a lower-case country code to its subdivisions, keyed by the
// composite "COUNTRY-REGION" code.
type Table map[string]map[string]string

var (
	defaultOnce  sync.Once
	defaultTable Table
)

// Default returns the built-in subdivision table. It is parsed once and must
// not be modified by callers.
func Default() Table {
	defaultOnce.Do(func() {
		t, err := Parse(defaultData)
		if err != nil {
			panic(fmt.Sprintf("subdivision: invalid embedded data: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// Load reads a subdivision table in YAML form.
func Load(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read subdivisions: %w", err)
	}
	return Parse(data)
}

// Parse decodes a subdivision table from YAML. Country keys are lower-cased.
func Parse(data []byte) (Table, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode subdivisions: %w", err)
	}

	t := make(Table, len(raw))
	for country, entries := range raw {
		t[strings.ToLower(country)] = entries
	}
	return t, nil
}

// ForCountry returns the subdivisions of a country. The lookup key is the
// lower-cased country code.
func (t Table) ForCountry(country string) map[string]string {
	return t[strings.ToLower(country)]
}

// Name returns the display name of a composite subdivision code, or "" when
// the code is unknown.
func (t Table) Name(code string) string {
	country, _, _ := strings.Cut(code, "-")
	return t.ForCountry(country)[code]
}

// Countries returns the number of countries with subdivision data.
func (t Table) Countries() int {
	return len(t)
}
