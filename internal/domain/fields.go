package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// fieldAccessor maps a column name onto a typed Address field.
type fieldAccessor struct {
	get func(a *Address) any
	set func(a *Address, v any) bool
}

func stringField(ptr func(a *Address) *string) fieldAccessor {
	return fieldAccessor{
		get: func(a *Address) any { return *ptr(a) },
		set: func(a *Address, v any) bool {
			s, ok := toString(v)
			if ok {
				*ptr(a) = s
			}
			return ok
		},
	}
}

func int64Field(ptr func(a *Address) *int64) fieldAccessor {
	return fieldAccessor{
		get: func(a *Address) any { return *ptr(a) },
		set: func(a *Address, v any) bool {
			n, ok := toInt64(v)
			if ok {
				*ptr(a) = n
			}
			return ok
		},
	}
}

func boolField(ptr func(a *Address) *bool) fieldAccessor {
	return fieldAccessor{
		get: func(a *Address) any { return *ptr(a) },
		set: func(a *Address, v any) bool {
			b, ok := toBool(v)
			if ok {
				*ptr(a) = b
			}
			return ok
		},
	}
}

// addressFieldOrder lists the address columns in storage order.
var addressFieldOrder = []string{
	"id", "pid", "ptable", "tstamp", "label", "store_id",
	"gender", "salutation", "firstname", "lastname", "dateOfBirth",
	"company", "vat_no", "street_1", "street_2", "street_3",
	"postal", "city", "subdivision", "country", "phone", "email",
	"isDefaultShipping", "isDefaultBilling",
}

var addressFields = map[string]fieldAccessor{
	"id":     int64Field(func(a *Address) *int64 { return &a.ID }),
	"pid":    int64Field(func(a *Address) *int64 { return &a.PID }),
	"tstamp": int64Field(func(a *Address) *int64 { return &a.Tstamp }),
	"ptable": {
		get: func(a *Address) any { return string(a.PTable) },
		set: func(a *Address, v any) bool {
			s, ok := toString(v)
			if ok {
				a.PTable = ParentTable(s)
			}
			return ok
		},
	},
	"store_id": {
		get: func(a *Address) any { return a.StoreID },
		set: func(a *Address, v any) bool {
			n, ok := toInt64(v)
			if ok {
				a.StoreID = int(n)
			}
			return ok
		},
	},
	"label":             stringField(func(a *Address) *string { return &a.Label }),
	"gender":            stringField(func(a *Address) *string { return &a.Gender }),
	"salutation":        stringField(func(a *Address) *string { return &a.Salutation }),
	"firstname":         stringField(func(a *Address) *string { return &a.FirstName }),
	"lastname":          stringField(func(a *Address) *string { return &a.LastName }),
	"dateOfBirth":       int64Field(func(a *Address) *int64 { return &a.DateOfBirth }),
	"company":           stringField(func(a *Address) *string { return &a.Company }),
	"vat_no":            stringField(func(a *Address) *string { return &a.VATNo }),
	"street_1":          stringField(func(a *Address) *string { return &a.Street1 }),
	"street_2":          stringField(func(a *Address) *string { return &a.Street2 }),
	"street_3":          stringField(func(a *Address) *string { return &a.Street3 }),
	"postal":            stringField(func(a *Address) *string { return &a.Postal }),
	"city":              stringField(func(a *Address) *string { return &a.City }),
	"subdivision":       stringField(func(a *Address) *string { return &a.Subdivision }),
	"country":           stringField(func(a *Address) *string { return &a.Country }),
	"phone":             stringField(func(a *Address) *string { return &a.Phone }),
	"email":             stringField(func(a *Address) *string { return &a.Email }),
	"isDefaultShipping": boolField(func(a *Address) *bool { return &a.IsDefaultShipping }),
	"isDefaultBilling":  boolField(func(a *Address) *bool { return &a.IsDefaultBilling }),
}

// AddressFields returns the address column names in storage order.
func AddressFields() []string {
	out := make([]string, len(addressFieldOrder))
	copy(out, addressFieldOrder)
	return out
}

// IsAddressField reports whether name is an address column.
func IsAddressField(name string) bool {
	_, ok := addressFields[name]
	return ok
}

func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case nil:
		return "", true
	case fmt.Stringer:
		return t.String(), true
	case int, int32, int64, float64:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case string:
		if t == "" {
			return 0, true
		}
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	case nil:
		return 0, true
	default:
		return 0, false
	}
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(t) {
		case "1", "true", "yes":
			return true, true
		case "", "0", "false", "no":
			return false, true
		}
		return false, false
	case int:
		return t != 0, true
	case int64:
		return t != 0, true
	case float64:
		return t != 0, true
	case nil:
		return false, true
	default:
		return false, false
	}
}
