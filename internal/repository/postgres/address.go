package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/addressbook/internal/domain"
	"github.com/utafrali/addressbook/internal/repository"
	"github.com/utafrali/addressbook/pkg/database"
	apperrors "github.com/utafrali/addressbook/pkg/errors"
)

// addressColumns lists the tl_iso_address columns in scan order.
var addressColumns = []string{
	"id", "pid", "ptable", "tstamp", "label", "store_id",
	"gender", "salutation", "firstname", "lastname", "dateOfBirth", "company", "vat_no",
	"street_1", "street_2", "street_3", "postal", "city", "subdivision", "country",
	"phone", "email", "isDefaultShipping", "isDefaultBilling",
}

var (
	addressTable      = pgx.Identifier{domain.TableAddress}.Sanitize()
	addressSelectList = quoteColumns(addressColumns)
)

// AddressRepository implements repository.AddressRepository using PostgreSQL.
type AddressRepository struct {
	db  database.DBTX
	now func() time.Time
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(db database.DBTX) *AddressRepository {
	return &AddressRepository{db: db, now: time.Now}
}

// FindBy returns all addresses matching the criteria.
func (r *AddressRepository) FindBy(ctx context.Context, criteria []repository.Criterion, opts repository.FindOptions) (_ []domain.Address, err error) {
	query, args, err := buildSelect(criteria, opts)
	if err != nil {
		return nil, err
	}

	ctx, end := database.TraceQuery(ctx, "FindAddresses", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	addresses := make([]domain.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addresses = append(addresses, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate addresses: %w", err)
	}

	return addresses, nil
}

// FindOneBy returns the first address matching the criteria.
func (r *AddressRepository) FindOneBy(ctx context.Context, criteria []repository.Criterion, opts repository.FindOptions) (_ *domain.Address, err error) {
	opts.Limit = 1
	query, args, err := buildSelect(criteria, opts)
	if err != nil {
		return nil, err
	}

	ctx, end := database.TraceQuery(ctx, "FindAddress", query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	a, err := scanAddress(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("address", describe(criteria))
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

// Save inserts a new address or updates an existing one. The tstamp column is
// set to the current time.
func (r *AddressRepository) Save(ctx context.Context, a *domain.Address) error {
	a.Tstamp = r.now().Unix()
	if a.IsNew() {
		return r.insert(ctx, a)
	}
	return r.update(ctx, a)
}

func (r *AddressRepository) insert(ctx context.Context, a *domain.Address) (err error) {
	cols := addressColumns[1:]
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		addressTable, quoteColumns(cols), strings.Join(placeholders, ", "), pgx.Identifier{"id"}.Sanitize())

	ctx, end := database.TraceQuery(ctx, "InsertAddress", query)
	defer func() { end(err) }()

	if err := r.db.QueryRow(ctx, query, addressValues(a)...).Scan(&a.ID); err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	a.MarkPopulated(addressColumns...)
	return nil
}

func (r *AddressRepository) update(ctx context.Context, a *domain.Address) (err error) {
	cols := addressColumns[1:]
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), i+1)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		addressTable, strings.Join(sets, ", "), pgx.Identifier{"id"}.Sanitize(), len(cols)+1)

	ctx, end := database.TraceQuery(ctx, "UpdateAddress", query)
	defer func() { end(err) }()

	args := append(addressValues(a), a.ID)
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("address", strconv.FormatInt(a.ID, 10))
	}
	a.MarkPopulated(addressColumns...)
	return nil
}

// Delete removes the addresses matching the criteria.
func (r *AddressRepository) Delete(ctx context.Context, criteria []repository.Criterion) (err error) {
	if len(criteria) == 0 {
		return apperrors.InvalidInput("delete requires at least one criterion")
	}
	where, args, err := buildWhere(criteria)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", addressTable, where)

	ctx, end := database.TraceQuery(ctx, "DeleteAddress", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("address", describe(criteria))
	}
	return nil
}

// addressValues returns the column values of a, without id, in addressColumns order.
func addressValues(a *domain.Address) []any {
	return []any{
		a.PID, string(a.PTable), a.Tstamp, a.Label, a.StoreID,
		a.Gender, a.Salutation, a.FirstName, a.LastName, a.DateOfBirth, a.Company, a.VATNo,
		a.Street1, a.Street2, a.Street3, a.Postal, a.City, a.Subdivision, a.Country,
		a.Phone, a.Email, a.IsDefaultShipping, a.IsDefaultBilling,
	}
}

func scanAddress(row pgx.Row) (*domain.Address, error) {
	var (
		a      domain.Address
		ptable string
	)
	err := row.Scan(
		&a.ID, &a.PID, &ptable, &a.Tstamp, &a.Label, &a.StoreID,
		&a.Gender, &a.Salutation, &a.FirstName, &a.LastName, &a.DateOfBirth, &a.Company, &a.VATNo,
		&a.Street1, &a.Street2, &a.Street3, &a.Postal, &a.City, &a.Subdivision, &a.Country,
		&a.Phone, &a.Email, &a.IsDefaultShipping, &a.IsDefaultBilling,
	)
	if err != nil {
		return nil, err
	}
	a.PTable = domain.ParentTable(ptable)
	a.MarkPopulated(addressColumns...)
	return &a, nil
}

func buildSelect(criteria []repository.Criterion, opts repository.FindOptions) (string, []any, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", addressSelectList, addressTable)

	where, args, err := buildWhere(criteria)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	order, err := buildOrder(opts.Order)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(order)

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	return b.String(), args, nil
}

func buildWhere(criteria []repository.Criterion) (string, []any, error) {
	parts := make([]string, 0, len(criteria))
	args := make([]any, 0, len(criteria))
	for _, c := range criteria {
		if !domain.IsAddressField(c.Column) {
			return "", nil, apperrors.InvalidInput(fmt.Sprintf("unknown address column %q", c.Column))
		}
		v := c.Value
		if p, ok := v.(domain.ParentTable); ok {
			v = string(p)
		}
		args = append(args, v)
		parts = append(parts, fmt.Sprintf("%s = $%d", pgx.Identifier{c.Column}.Sanitize(), len(args)))
	}
	return strings.Join(parts, " AND "), args, nil
}

// buildOrder validates an order expression. The id column is always appended
// as a tie breaker so paging is stable.
func buildOrder(order string) (string, error) {
	terms := make([]string, 0, 2)
	hasID := false
	for _, term := range strings.Split(order, ",") {
		fields := strings.Fields(term)
		if len(fields) == 0 {
			continue
		}
		if len(fields) > 2 || !domain.IsAddressField(fields[0]) {
			return "", apperrors.InvalidInput(fmt.Sprintf("invalid order term %q", strings.TrimSpace(term)))
		}
		dir := "ASC"
		if len(fields) == 2 {
			dir = strings.ToUpper(fields[1])
			if dir != "ASC" && dir != "DESC" {
				return "", apperrors.InvalidInput(fmt.Sprintf("invalid order direction %q", fields[1]))
			}
		}
		hasID = hasID || fields[0] == "id"
		terms = append(terms, pgx.Identifier{fields[0]}.Sanitize()+" "+dir)
	}
	if !hasID {
		terms = append(terms, pgx.Identifier{"id"}.Sanitize()+" ASC")
	}
	return strings.Join(terms, ", "), nil
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

func describe(criteria []repository.Criterion) string {
	parts := make([]string, len(criteria))
	for i, c := range criteria {
		parts[i] = fmt.Sprintf("%s=%v", c.Column, c.Value)
	}
	return strings.Join(parts, ",")
}
