package domain

import (
	"strings"
)

// Storage tables. The names match the legacy shop schema so that migrated rows
// keep their polymorphic ptable references intact.
const (
	TableAddress = "tl_iso_address"
	TableMember  = "tl_member"
)

// ParentTable names the table that an address pid points into.
type ParentTable string

// ParentMember is the parent table of addresses owned by a member.
const ParentMember ParentTable = TableMember

// String returns the string representation of the ParentTable.
func (p ParentTable) String() string {
	return string(p)
}

// Row is a raw column snapshot keyed by column name.
type Row map[string]any

// Address is a postal/contact address owned by a parent record within one store.
// The (PID, PTable, StoreID) triple identifies the set of addresses of one owner.
type Address struct {
	ID                int64       `json:"id"`
	PID               int64       `json:"pid"`
	PTable            ParentTable `json:"ptable"`
	Tstamp            int64       `json:"tstamp"`
	Label             string      `json:"label,omitempty"`
	StoreID           int         `json:"store_id"`
	Gender            string      `json:"gender,omitempty"`
	Salutation        string      `json:"salutation,omitempty"`
	FirstName         string      `json:"firstname"`
	LastName          string      `json:"lastname"`
	DateOfBirth       int64       `json:"dateOfBirth,omitempty"`
	Company           string      `json:"company,omitempty"`
	VATNo             string      `json:"vat_no,omitempty"`
	Street1           string      `json:"street_1"`
	Street2           string      `json:"street_2,omitempty"`
	Street3           string      `json:"street_3,omitempty"`
	Postal            string      `json:"postal"`
	City              string      `json:"city"`
	Subdivision       string      `json:"subdivision,omitempty"`
	Country           string      `json:"country"`
	Phone             string      `json:"phone,omitempty"`
	Email             string      `json:"email,omitempty"`
	IsDefaultShipping bool        `json:"isDefaultShipping"`
	IsDefaultBilling  bool        `json:"isDefaultBilling"`

	populated map[string]struct{}
}

// Get returns the value of the named field.
func (a *Address) Get(field string) (any, bool) {
	acc, ok := addressFields[field]
	if !ok {
		return nil, false
	}
	return acc.get(a), true
}

// Set assigns the named field and marks it as populated. Unknown field names
// and values that cannot be converted to the field type are ignored.
func (a *Address) Set(field string, value any) bool {
	acc, ok := addressFields[field]
	if !ok {
		return false
	}
	if !acc.set(a, value) {
		return false
	}
	a.MarkPopulated(field)
	return true
}

// SetRow replaces the address data with the given row. Fields not present in
// the row are reset to their zero value and are no longer populated.
func (a *Address) SetRow(row Row) {
	*a = Address{}
	for _, name := range addressFieldOrder {
		if v, ok := row[name]; ok {
			a.Set(name, v)
		}
	}
}

// Row returns a snapshot of the populated fields.
func (a *Address) Row() Row {
	row := make(Row, len(a.populated))
	for _, name := range a.Populated() {
		row[name] = addressFields[name].get(a)
	}
	return row
}

// MarkPopulated records the given fields as holding data. Repositories call it
// with AddressFields() after hydrating a stored row.
func (a *Address) MarkPopulated(fields ...string) {
	if a.populated == nil {
		a.populated = make(map[string]struct{}, len(fields))
	}
	for _, f := range fields {
		if _, ok := addressFields[f]; ok {
			a.populated[f] = struct{}{}
		}
	}
}

// Populated returns the names of the fields that hold data, in column order.
func (a *Address) Populated() []string {
	names := make([]string, 0, len(a.populated))
	for _, name := range addressFieldOrder {
		if _, ok := a.populated[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// IsNew reports whether the address has not been stored yet.
func (a *Address) IsNew() bool {
	return a.ID == 0
}

// SubdivisionParts splits the subdivision code on its first dash. A code
// without a dash yields the whole value as country and an empty region.
func (a *Address) SubdivisionParts() (country, region string) {
	country, region, _ = strings.Cut(a.Subdivision, "-")
	return country, region
}

// BelongsTo reports whether the address is owned by the given parent in the given store.
func (a *Address) BelongsTo(pid int64, ptable ParentTable, storeID int) bool {
	return a.PID == pid && a.PTable == ptable && a.StoreID == storeID
}
