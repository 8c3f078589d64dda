// Package store holds the storefront configurations that scope address
// lookups and drive address formatting.
package store

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/utafrali/addressbook/internal/domain"
)

//go:embed stores.yaml
var defaultStores []byte

// Output formats understood by the address formatter.
const (
	OutputHTML  = "html"
	OutputXHTML = "xhtml"
)

// Config is the configuration of one storefront.
type Config struct {
	ID             int                  `yaml:"id" json:"id"`
	Name           string               `yaml:"name" json:"name"`
	Country        string               `yaml:"country" json:"country"`
	Language       string               `yaml:"language" json:"language"`
	OutputFormat   string               `yaml:"output_format" json:"output_format"`
	DateFormat     string               `yaml:"date_format" json:"date_format"`
	BillingFields  []domain.FieldConfig `yaml:"billing_fields" json:"billing_fields"`
	ShippingFields []domain.FieldConfig `yaml:"shipping_fields" json:"shipping_fields"`
}

// BillingFieldsConfig returns the ordered billing field descriptors.
func (c Config) BillingFieldsConfig() []domain.FieldConfig {
	return c.BillingFields
}

// ShippingFieldsConfig returns the ordered shipping field descriptors. Stores
// without a dedicated shipping form reuse the billing fields.
func (c Config) ShippingFieldsConfig() []domain.FieldConfig {
	if len(c.ShippingFields) == 0 {
		return c.BillingFields
	}
	return c.ShippingFields
}

// Registry is an immutable set of store configurations.
type Registry struct {
	stores    map[int]Config
	defaultID int
}

type registryFile struct {
	Default int      `yaml:"default"`
	Stores  []Config `yaml:"stores"`
}

// DefaultRegistry returns the registry built from the embedded store file.
func DefaultRegistry() (*Registry, error) {
	return Parse(defaultStores)
}

// LoadFile reads a registry from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a registry in YAML form.
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a registry.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode store file: %w", err)
	}
	if len(file.Stores) == 0 {
		return nil, fmt.Errorf("store file defines no stores")
	}

	reg := &Registry{stores: make(map[int]Config, len(file.Stores)), defaultID: file.Default}
	for _, s := range file.Stores {
		if s.ID <= 0 {
			return nil, fmt.Errorf("store %q: id must be positive", s.Name)
		}
		if _, dup := reg.stores[s.ID]; dup {
			return nil, fmt.Errorf("store %d defined twice", s.ID)
		}
		s.Country = strings.ToLower(s.Country)
		switch s.OutputFormat {
		case "":
			s.OutputFormat = OutputHTML
		case OutputHTML, OutputXHTML:
		default:
			return nil, fmt.Errorf("store %d: unknown output format %q", s.ID, s.OutputFormat)
		}
		if s.Language == "" {
			s.Language = "en"
		}
		if s.DateFormat == "" {
			s.DateFormat = "2006-01-02"
		}
		for _, f := range slices.Concat(s.BillingFields, s.ShippingFields) {
			if !domain.IsAddressField(f.Value) {
				return nil, fmt.Errorf("store %d: unknown address field %q", s.ID, f.Value)
			}
		}
		reg.stores[s.ID] = s
	}

	if reg.defaultID == 0 {
		reg.defaultID = file.Stores[0].ID
	}
	if _, ok := reg.stores[reg.defaultID]; !ok {
		return nil, fmt.Errorf("default store %d is not defined", reg.defaultID)
	}

	return reg, nil
}

// WithDefault returns a copy of the registry using id as its default store.
func (r *Registry) WithDefault(id int) (*Registry, error) {
	if _, ok := r.stores[id]; !ok {
		return nil, fmt.Errorf("default store %d is not defined", id)
	}
	cpy := *r
	cpy.defaultID = id
	return &cpy, nil
}

// Get returns the configuration of the given store.
func (r *Registry) Get(id int) (Config, bool) {
	c, ok := r.stores[id]
	return c, ok
}

// Default returns the configuration of the default store.
func (r *Registry) Default() Config {
	return r.stores[r.defaultID]
}

// IDs returns the configured store ids in ascending order.
func (r *Registry) IDs() []int {
	ids := make([]int, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

type contextKey struct{}

// NewContext returns a context carrying the active store.
func NewContext(ctx context.Context, c Config) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the active store stored in ctx.
func FromContext(ctx context.Context) (Config, bool) {
	c, ok := ctx.Value(contextKey{}).(Config)
	return c, ok
}
