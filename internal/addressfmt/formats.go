package addressfmt

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// GenericFormat is the key of the fallback template.
const GenericFormat = "generic"

//go:embed formats.yaml
var defaultFormats []byte

// Formats maps country codes to address templates. A Formats value is built
// once and never modified afterwards.
type Formats struct {
	templates map[string]string
}

// DefaultFormats returns the built-in address templates.
func DefaultFormats() (*Formats, error) {
	return ParseFormats(defaultFormats)
}

// LoadFormatsFile reads address templates from a YAML file.
func LoadFormatsFile(path string) (*Formats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open address formats: %w", err)
	}
	defer f.Close()
	return LoadFormats(f)
}

// LoadFormats reads address templates in YAML form.
func LoadFormats(r io.Reader) (*Formats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read address formats: %w", err)
	}
	return ParseFormats(data)
}

// ParseFormats decodes address templates. The "generic" template is required.
func ParseFormats(data []byte) (*Formats, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode address formats: %w", err)
	}
	return NewFormats(raw)
}

// NewFormats builds a template table from a country -> template map.
func NewFormats(templates map[string]string) (*Formats, error) {
	f := &Formats{templates: make(map[string]string, len(templates))}
	for k, v := range templates {
		f.templates[strings.ToLower(k)] = v
	}
	if _, ok := f.templates[GenericFormat]; !ok {
		return nil, fmt.Errorf("address formats: missing %q template", GenericFormat)
	}
	return f, nil
}

// Template returns the template for a country together with the key it was
// found under: the lower-cased country, or "generic" when the country has no
// template of its own.
func (f *Formats) Template(country string) (key, tpl string) {
	country = strings.ToLower(country)
	if tpl, ok := f.templates[country]; ok && country != "" {
		return country, tpl
	}
	return GenericFormat, f.templates[GenericFormat]
}

// Countries returns the keys of all templates in sorted order.
func (f *Formats) Countries() []string {
	keys := make([]string, 0, len(f.templates))
	for k := range f.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
