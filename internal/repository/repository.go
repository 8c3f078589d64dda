package repository

import (
	"context"

	"github.com/utafrali/addressbook/internal/domain"
)

// Criterion is one "column = value" predicate. Criteria lists are ANDed.
type Criterion struct {
	Column string
	Value  any
}

// Eq returns the criterion column = value.
func Eq(column string, value any) Criterion {
	return Criterion{Column: column, Value: value}
}

// FindOptions controls ordering and paging of a lookup.
type FindOptions struct {
	// Order is a comma separated list of "column [ASC|DESC]" terms.
	Order  string
	Limit  int
	Offset int
}

// AddressRepository defines the interface for address persistence operations.
type AddressRepository interface {
	// FindBy returns all addresses matching the criteria. No match yields an empty slice.
	FindBy(ctx context.Context, criteria []Criterion, opts FindOptions) ([]domain.Address, error)

	// FindOneBy returns the first address matching the criteria, or an
	// apperrors.ErrNotFound error.
	FindOneBy(ctx context.Context, criteria []Criterion, opts FindOptions) (*domain.Address, error)

	// Save inserts a new address (assigning its id) or updates an existing one.
	Save(ctx context.Context, address *domain.Address) error

	// Delete removes the addresses matching the criteria. It returns an
	// apperrors.ErrNotFound error when nothing was deleted.
	Delete(ctx context.Context, criteria []Criterion) error
}

// MemberRepository defines read access to member records.
type MemberRepository interface {
	// FindByID returns the member with the given id, or an apperrors.ErrNotFound error.
	FindByID(ctx context.Context, id int64) (*domain.Member, error)
}

// RenderKey identifies one rendered form of an address.
type RenderKey struct {
	AddressID int64
	StoreID   int
	// Variant distinguishes output mode, field set and text/markup rendering.
	Variant string
}

// RenderCache stores rendered addresses.
type RenderCache interface {
	// Get returns a cached rendering. A miss is reported as ok == false, not as an error.
	Get(ctx context.Context, key RenderKey) (value string, ok bool, err error)

	// Set stores a rendering.
	Set(ctx context.Context, key RenderKey, value string) error

	// InvalidateAddress drops every rendering of an address.
	InvalidateAddress(ctx context.Context, addressID int64) error
}
