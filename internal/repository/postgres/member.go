package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/addressbook/internal/domain"
	"github.com/utafrali/addressbook/pkg/database"
	apperrors "github.com/utafrali/addressbook/pkg/errors"
)

// MemberRepository implements repository.MemberRepository using PostgreSQL.
type MemberRepository struct {
	db database.DBTX
}

// NewMemberRepository creates a new PostgreSQL-backed member repository.
func NewMemberRepository(db database.DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

// FindByID retrieves a member by id.
func (r *MemberRepository) FindByID(ctx context.Context, id int64) (_ *domain.Member, err error) {
	query := `
		SELECT id, tstamp, firstname, lastname, "dateOfBirth", gender, company,
		       street, postal, city, state, country, phone, email
		FROM tl_member
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "FindMember", query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	var m domain.Member
	err = r.db.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.Tstamp,
		&m.FirstName,
		&m.LastName,
		&m.DateOfBirth,
		&m.Gender,
		&m.Company,
		&m.Street,
		&m.Postal,
		&m.City,
		&m.State,
		&m.Country,
		&m.Phone,
		&m.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("member", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get member: %w", err)
	}

	return &m, nil
}
