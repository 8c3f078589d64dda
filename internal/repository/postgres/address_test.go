package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/addressbook/internal/domain"
	"github.com/utafrali/addressbook/internal/repository"
	"github.com/utafrali/addressbook/pkg/database"
	apperrors "github.com/utafrali/addressbook/pkg/errors"
)

var fixedNow = time.Date(2026, time.October, 1, 12, 0, 0, 0, time.UTC)

func newAddressTestFixture(t *testing.T) (*AddressRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewAddressRepository(mock)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func sampleAddress() *domain.Address {
	return &domain.Address{
		ID:               11,
		PID:              7,
		PTable:           domain.ParentMember,
		Tstamp:           1700000000,
		Label:            "Home",
		StoreID:          1,
		FirstName:        "Alice",
		LastName:         "Smith",
		Street1:          "123 Main St",
		Postal:           "62701",
		City:             "Springfield",
		Subdivision:      "US-IL",
		Country:          "us",
		Email:            "alice@example.com",
		IsDefaultBilling: true,
	}
}

func addressRows(addrs ...*domain.Address) *pgxmock.Rows {
	rows := pgxmock.NewRows(addressColumns)
	for _, a := range addrs {
		rows.AddRow(append([]any{a.ID}, addressValues(a)...)...)
	}
	return rows
}

func memberScope() []repository.Criterion {
	return []repository.Criterion{
		repository.Eq("pid", int64(7)),
		repository.Eq("ptable", domain.ParentMember),
		repository.Eq("store_id", 1),
	}
}

func TestAddressColumns_MatchFieldRegistry(t *testing.T) {
	assert.Equal(t, domain.AddressFields(), addressColumns)
}

// ---------------------------------------------------------------------------
// FindBy
// ---------------------------------------------------------------------------

func TestAddressRepository_FindBy_Success(t *testing.T) {
	repo, mock := newAddressTestFixture(t)

	a1 := sampleAddress()
	a2 := sampleAddress()
	a2.ID = 12
	a2.Label = "Office"
	a2.IsDefaultBilling = false

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "pid", "ptable"`)+`.+`+
		regexp.QuoteMeta(`FROM "tl_iso_address" WHERE "pid" = $1 AND "ptable" = $2 AND "store_id" = $3 ORDER BY "label" DESC, "id" ASC`)).
		WithArgs(int64(7), "tl_member", 1).
		WillReturnRows(addressRows(a1, a2))

	got, err := repo.FindBy(context.Background(), memberScope(), repository.FindOptions{Order: "label desc"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(11), got[0].ID)
	assert.Equal(t, domain.ParentMember, got[0].PTable)
	assert.Equal(t, "Springfield", got[0].City)
	assert.True(t, got[0].IsDefaultBilling)
	assert.Equal(t, domain.AddressFields(), got[0].Populated())
	assert.Equal(t, "Office", got[1].Label)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_FindBy_Empty(t *testing.T) {
	repo, mock := newAddressTestFixture(t)

	mock.ExpectQuery(`SELECT .+ FROM "tl_iso_address"`).
		WithArgs(int64(7), "tl_member", 1).
		WillReturnRows(pgxmock.NewRows(addressColumns))

	got, err := repo.FindBy(context.Background(), memberScope(), repository.FindOptions{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_FindBy_LimitOffset(t *testing.T) {
	repo, mock := newAddressTestFixture(t)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY "id" ASC LIMIT $4 OFFSET $5`)).
		WithArgs(int64(7), "tl_member", 1, 10, 20).
		WillReturnRows(pgxmock.NewRows(addressColumns))

	_, err := repo.FindBy(context.Background(), memberScope(), repository.FindOptions{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_FindBy_QueryError(t *testing.T) {
	repo, mock := newAddressTestFixture(t)

	mock.ExpectQuery(`SELECT .+ FROM "tl_iso_address"`).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.FindBy(context.Background(), nil, repository.FindOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query addresses")
}

func TestAddressRepository_FindBy_RejectsUnknownColumns(t *testing.T) {
	repo, mock := newAddressTestFixture(t)

	_, err := repo.FindBy(context.Background(), []repository.Criterion{repository.Eq("1=1; --", 1)}, repository.FindOptions{})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	for _, order := range []string{"password", "label sideways", "label asc extra"} {
		_, err = repo.FindBy(context.Background(), memberScope(), repository.FindOptions{Order: order})
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), order)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// FindOneBy
// ---------------------------------------------------------------------------

func TestAddressRepository_FindOneBy_Success(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	a := sampleAddress()

	criteria := append(memberScope(), repository.Eq("isDefaultBilling", true))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE "pid" = $1 AND "ptable" = $2 AND "store_id" = $3 AND "isDefaultBilling" = $4 ORDER BY "id" ASC LIMIT $5`)).
		WithArgs(int64(7), "tl_member", 1, true, 1).
		WillReturnRows(addressRows(a))

	got, err := repo.FindOneBy(context.Background(), criteria, repository.FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "Alice", got.FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_FindOneBy_NotFound(t *testing.T) {
	repo, mock := newAddressTestFixture(t)

	mock.ExpectQuery(`SELECT .+ FROM "tl_iso_address"`).
		WithArgs(int64(99), int64(7), "tl_member", 1, 1).
		WillReturnError(pgx.ErrNoRows)

	criteria := append([]repository.Criterion{repository.Eq("id", int64(99))}, memberScope()...)
	got, err := repo.FindOneBy(context.Background(), criteria, repository.FindOptions{})
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

func TestAddressRepository_Save_Insert(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	a := sampleAddress()
	a.ID = 0

	expected := *a
	expected.Tstamp = fixedNow.Unix()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "tl_iso_address" ("pid", "ptable", "tstamp"`) + `.+` +
		regexp.QuoteMeta(`RETURNING "id"`)).
		WithArgs(addressValues(&expected)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, repo.Save(context.Background(), a))
	assert.Equal(t, int64(42), a.ID)
	assert.Equal(t, fixedNow.Unix(), a.Tstamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Save_Update(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	a := sampleAddress()

	expected := *a
	expected.Tstamp = fixedNow.Unix()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "tl_iso_address" SET "pid" = $1`) + `.+` +
		regexp.QuoteMeta(`"isDefaultBilling" = $23 WHERE "id" = $24`)).
		WithArgs(append(addressValues(&expected), a.ID)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Save(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Save_UpdateNotFound(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	a := sampleAddress()

	expected := *a
	expected.Tstamp = fixedNow.Unix()

	mock.ExpectExec(`UPDATE "tl_iso_address"`).
		WithArgs(append(addressValues(&expected), a.ID)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Save(context.Background(), a)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestAddressRepository_Delete(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	criteria := append([]repository.Criterion{repository.Eq("id", int64(11))}, memberScope()...)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "tl_iso_address" WHERE "id" = $1 AND "pid" = $2 AND "ptable" = $3 AND "store_id" = $4`)).
		WithArgs(int64(11), int64(7), "tl_member", 1).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.Delete(context.Background(), criteria))

	mock.ExpectExec(`DELETE FROM "tl_iso_address"`).
		WithArgs(int64(11), int64(7), "tl_member", 1).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	err := repo.Delete(context.Background(), criteria)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Delete_RequiresCriteria(t *testing.T) {
	repo, _ := newAddressTestFixture(t)

	err := repo.Delete(context.Background(), nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}
