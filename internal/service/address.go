package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/addressbook/internal/addressfmt"
	"github.com/utafrali/addressbook/internal/domain"
	"github.com/utafrali/addressbook/internal/repository"
	"github.com/utafrali/addressbook/internal/store"
	apperrors "github.com/utafrali/addressbook/pkg/errors"
	"github.com/utafrali/addressbook/pkg/tracing"
)

var tracer = tracing.Tracer("github.com/utafrali/addressbook/internal/service")

// EventPublisher emits address domain events.
type EventPublisher interface {
	PublishAddressSaved(ctx context.Context, addr *domain.Address, created bool) error
	PublishAddressDeleted(ctx context.Context, id, memberID int64, storeID int) error
}

// AddressService implements the member address book.
type AddressService struct {
	addresses repository.AddressRepository
	members   repository.MemberRepository
	cache     repository.RenderCache
	formatter *addressfmt.Formatter
	stores    *store.Registry
	events    EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewAddressService creates a new address service. cache may be nil.
func NewAddressService(
	addresses repository.AddressRepository,
	members repository.MemberRepository,
	cache repository.RenderCache,
	formatter *addressfmt.Formatter,
	stores *store.Registry,
	events EventPublisher,
	logger *slog.Logger,
) *AddressService {
	return &AddressService{
		addresses: addresses,
		members:   members,
		cache:     cache,
		formatter: formatter,
		stores:    stores,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// Store returns the store of the request, or the default store when the
// request carries none.
func (s *AddressService) Store(ctx context.Context) store.Config {
	if st, ok := store.FromContext(ctx); ok {
		return st
	}
	return s.stores.Default()
}

func (s *AddressService) memberScope(ctx context.Context, memberID int64, extra ...repository.Criterion) []repository.Criterion {
	criteria := []repository.Criterion{
		repository.Eq("pid", memberID),
		repository.Eq("ptable", domain.ParentMember),
		repository.Eq("store_id", s.Store(ctx).ID),
	}
	return append(criteria, extra...)
}

// --- Lookups ---

// FindForMember returns the addresses of a member in the current store.
func (s *AddressService) FindForMember(ctx context.Context, memberID int64, opts repository.FindOptions) ([]domain.Address, error) {
	addrs, err := s.addresses.FindBy(ctx, s.memberScope(ctx, memberID), opts)
	if err != nil {
		return nil, fmt.Errorf("find addresses for member %d: %w", memberID, err)
	}
	return addrs, nil
}

// FindOneForMember returns the address with the given id if it belongs to the
// member in the current store. It returns nil when there is no such address.
func (s *AddressService) FindOneForMember(ctx context.Context, id, memberID int64, opts repository.FindOptions) (*domain.Address, error) {
	return s.findOne(ctx, s.memberScope(ctx, memberID, repository.Eq("id", id)), opts)
}

// FindDefaultBillingForMember returns the default billing address of a member,
// or nil when none is flagged.
func (s *AddressService) FindDefaultBillingForMember(ctx context.Context, memberID int64, opts repository.FindOptions) (*domain.Address, error) {
	return s.findOne(ctx, s.memberScope(ctx, memberID, repository.Eq("isDefaultBilling", true)), opts)
}

// FindDefaultShippingForMember returns the default shipping address of a
// member, or nil when none is flagged.
func (s *AddressService) FindDefaultShippingForMember(ctx context.Context, memberID int64, opts repository.FindOptions) (*domain.Address, error) {
	return s.findOne(ctx, s.memberScope(ctx, memberID, repository.Eq("isDefaultShipping", true)), opts)
}

func (s *AddressService) findOne(ctx context.Context, criteria []repository.Criterion, opts repository.FindOptions) (*domain.Address, error) {
	addr, err := s.addresses.FindOneBy(ctx, criteria, opts)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find address: %w", err)
	}
	return addr, nil
}

// --- Creation ---

// CreateForMember returns a new, unsaved address for the member in the
// current store. When fill names fields and the member exists, the address
// is prefilled from the member record and holds exactly the fill fields.
func (s *AddressService) CreateForMember(ctx context.Context, memberID int64, fill []string) (*domain.Address, error) {
	row := domain.Row{
		"pid":      memberID,
		"ptable":   domain.ParentMember,
		"tstamp":   s.now().Unix(),
		"store_id": s.Store(ctx).ID,
	}

	if len(fill) > 0 {
		member, err := s.members.FindByID(ctx, memberID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			s.logger.DebugContext(ctx, "member not found, address not prefilled",
				slog.Int64("member_id", memberID),
			)
		case err != nil:
			return nil, fmt.Errorf("load member %d: %w", memberID, err)
		default:
			row = prefill(member, row, fill)
		}
	}

	addr := &domain.Address{}
	addr.SetRow(row)
	return addr, nil
}

// prefill merges the member record, the defaults and the member fields whose
// names differ from the address columns, then keeps only the fill fields.
func prefill(member *domain.Member, defaults domain.Row, fill []string) domain.Row {
	merged := member.Row()
	for k, v := range defaults {
		merged[k] = v
	}
	merged["street_1"] = member.Street
	merged["subdivision"] = strings.ToUpper(member.Country + "-" + member.State)

	row := make(domain.Row, len(fill))
	for _, name := range fill {
		if v, ok := merged[name]; ok {
			row[name] = v
		}
	}
	return row
}

// --- Persistence ---

// Save stores an address of the member in the current store. Existing
// addresses must belong to the member. Setting a default flag clears it on
// the member's other addresses.
func (s *AddressService) Save(ctx context.Context, memberID int64, addr *domain.Address) error {
	st := s.Store(ctx)
	created := addr.IsNew()

	if !created {
		existing, err := s.FindOneForMember(ctx, addr.ID, memberID, repository.FindOptions{})
		if err != nil {
			return err
		}
		if existing == nil {
			return apperrors.NotFound("address", strconv.FormatInt(addr.ID, 10))
		}
	}

	addr.PID = memberID
	addr.PTable = domain.ParentMember
	addr.StoreID = st.ID
	addr.Country = strings.ToLower(addr.Country)
	addr.Subdivision = strings.ToUpper(addr.Subdivision)

	if err := s.addresses.Save(ctx, addr); err != nil {
		return fmt.Errorf("save address: %w", err)
	}

	if err := s.clearOtherDefaults(ctx, memberID, addr); err != nil {
		return err
	}

	s.invalidate(ctx, addr.ID)
	if err := s.events.PublishAddressSaved(ctx, addr, created); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish address.saved event",
			slog.Int64("address_id", addr.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "address saved",
		slog.Int64("address_id", addr.ID),
		slog.Int64("member_id", memberID),
		slog.Int("store_id", st.ID),
		slog.Bool("created", created),
	)
	return nil
}

func (s *AddressService) clearOtherDefaults(ctx context.Context, memberID int64, addr *domain.Address) error {
	if !addr.IsDefaultBilling && !addr.IsDefaultShipping {
		return nil
	}

	siblings, err := s.FindForMember(ctx, memberID, repository.FindOptions{})
	if err != nil {
		return err
	}
	for i := range siblings {
		other := &siblings[i]
		if other.ID == addr.ID {
			continue
		}
		changed := false
		if addr.IsDefaultBilling && other.IsDefaultBilling {
			other.IsDefaultBilling = false
			changed = true
		}
		if addr.IsDefaultShipping && other.IsDefaultShipping {
			other.IsDefaultShipping = false
			changed = true
		}
		if !changed {
			continue
		}
		if err := s.addresses.Save(ctx, other); err != nil {
			return fmt.Errorf("clear default flag on address %d: %w", other.ID, err)
		}
		s.invalidate(ctx, other.ID)
	}
	return nil
}

// DeleteForMember removes an address of the member in the current store.
func (s *AddressService) DeleteForMember(ctx context.Context, id, memberID int64) error {
	st := s.Store(ctx)
	if err := s.addresses.Delete(ctx, s.memberScope(ctx, memberID, repository.Eq("id", id))); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("address", strconv.FormatInt(id, 10))
		}
		return fmt.Errorf("delete address: %w", err)
	}

	s.invalidate(ctx, id)
	if err := s.events.PublishAddressDeleted(ctx, id, memberID, st.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish address.deleted event",
			slog.Int64("address_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "address deleted",
		slog.Int64("address_id", id),
		slog.Int64("member_id", memberID),
		slog.Int("store_id", st.ID),
	)
	return nil
}

// DeleteAllForMember removes the addresses of a member in every store and
// returns how many were removed. It runs when the member itself is deleted.
func (s *AddressService) DeleteAllForMember(ctx context.Context, memberID int64) (int, error) {
	owner := []repository.Criterion{
		repository.Eq("pid", memberID),
		repository.Eq("ptable", domain.ParentMember),
	}

	addrs, err := s.addresses.FindBy(ctx, owner, repository.FindOptions{})
	if err != nil {
		return 0, fmt.Errorf("find addresses of member %d: %w", memberID, err)
	}
	if len(addrs) == 0 {
		return 0, nil
	}

	if err := s.addresses.Delete(ctx, owner); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("delete addresses of member %d: %w", memberID, err)
	}

	for _, a := range addrs {
		s.invalidate(ctx, a.ID)
		if err := s.events.PublishAddressDeleted(ctx, a.ID, memberID, a.StoreID); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish address.deleted event",
				slog.Int64("address_id", a.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "member addresses deleted",
		slog.Int64("member_id", memberID),
		slog.Int("count", len(addrs)),
	)
	return len(addrs), nil
}

// --- Rendering ---

// Field sets selectable for rendering.
const (
	FieldSetBilling  = "billing"
	FieldSetShipping = "shipping"
)

// RenderOptions selects how an address is rendered.
type RenderOptions struct {
	// FieldSet is FieldSetBilling (default) or FieldSetShipping.
	FieldSet string
	// OutputFormat is "html" or "xhtml". Empty selects the store setting.
	OutputFormat string
	// Text strips the markup from the result.
	Text bool
}

func (o RenderOptions) variant(st store.Config) string {
	output := o.OutputFormat
	if output == "" {
		output = st.OutputFormat
	}
	mode := "markup"
	if o.Text {
		mode = "text"
	}
	return strings.Join([]string{o.fieldSet(), output, mode}, ":")
}

// revision fingerprints the stored address. Renderings are cached under it, so
// a rendering of an older revision is never served after the address changes.
func revision(addr *domain.Address) string {
	fields := make(map[string]any, len(domain.AddressFields()))
	for _, name := range domain.AddressFields() {
		fields[name], _ = addr.Get(name)
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return strconv.FormatInt(addr.Tstamp, 10)
	}
	return strconv.FormatUint(xxhash.Sum64(data), 36)
}

func (o RenderOptions) fieldSet() string {
	if o.FieldSet == "" {
		return FieldSetBilling
	}
	return o.FieldSet
}

// Render formats an address of the member. Renderings are cached per store
// and variant until the address changes.
func (s *AddressService) Render(ctx context.Context, id, memberID int64, opts RenderOptions) (_ string, err error) {
	ctx, span := tracer.Start(ctx, "AddressService.Render", trace.WithAttributes(
		attribute.Int64("address.id", id),
		attribute.String("address.field_set", opts.fieldSet()),
		attribute.Bool("address.text", opts.Text),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if fs := opts.fieldSet(); fs != FieldSetBilling && fs != FieldSetShipping {
		return "", apperrors.InvalidInput(fmt.Sprintf("unknown field set %q", opts.FieldSet))
	}
	if o := opts.OutputFormat; o != "" && o != store.OutputHTML && o != store.OutputXHTML {
		return "", apperrors.InvalidInput(fmt.Sprintf("unknown output format %q", o))
	}

	addr, err := s.FindOneForMember(ctx, id, memberID, repository.FindOptions{})
	if err != nil {
		return "", err
	}
	if addr == nil {
		return "", apperrors.NotFound("address", strconv.FormatInt(id, 10))
	}

	st := s.Store(ctx)
	key := repository.RenderKey{AddressID: id, StoreID: st.ID, Variant: opts.variant(st) + ":" + revision(addr)}
	outcome := renderCacheDisabled
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			outcome = renderCacheError
			s.logger.WarnContext(ctx, "render cache read failed",
				slog.Int64("address_id", id),
				slog.String("error", err.Error()),
			)
		case ok:
			rendersTotal.WithLabelValues(renderCacheHit).Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		default:
			outcome = renderCacheMiss
		}
	}
	rendersTotal.WithLabelValues(outcome).Inc()

	out := s.RenderAddress(addr, st, opts)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out); err != nil {
			s.logger.WarnContext(ctx, "render cache write failed",
				slog.Int64("address_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return out, nil
}

// RenderAddress formats an address without touching storage, for example a
// draft returned by CreateForMember.
func (s *AddressService) RenderAddress(addr *domain.Address, st store.Config, opts RenderOptions) string {
	fmtOpts := addressfmt.Options{Store: st, OutputFormat: opts.OutputFormat}
	if opts.fieldSet() == FieldSetShipping {
		fmtOpts.Fields = st.ShippingFieldsConfig()
	}

	if opts.Text {
		return s.formatter.GenerateText(addr, fmtOpts)
	}
	return s.formatter.Generate(addr, fmtOpts)
}

func (s *AddressService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAddress(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "render cache invalidation failed",
			slog.Int64("address_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// FillableFields returns the field names CreateForMember may prefill.
func FillableFields() []string {
	return slices.DeleteFunc(domain.AddressFields(), func(name string) bool {
		return name == "id"
	})
}
