package domain

// FieldConfig describes one address field of a checkout form: which column it
// shows and whether it is enabled. The order of a []FieldConfig is the form order.
type FieldConfig struct {
	Value     string `json:"value" yaml:"value"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Mandatory bool   `json:"mandatory,omitempty" yaml:"mandatory"`
}

// FieldNames returns the column names of the enabled fields.
func FieldNames(fields []FieldConfig) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Enabled {
			names = append(names, f.Value)
		}
	}
	return names
}
