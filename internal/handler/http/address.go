package http

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/addressbook/internal/domain"
	"github.com/utafrali/addressbook/internal/repository"
	"github.com/utafrali/addressbook/internal/service"
	"github.com/utafrali/addressbook/internal/store"
	"github.com/utafrali/addressbook/pkg/httputil"
	"github.com/utafrali/addressbook/pkg/logger"
	"github.com/utafrali/addressbook/pkg/pagination"
	"github.com/utafrali/addressbook/pkg/validator"
)

// AddressHandler handles HTTP requests for member address endpoints.
type AddressHandler struct {
	service *service.AddressService
	logger  *slog.Logger
}

// NewAddressHandler creates a new address HTTP handler.
func NewAddressHandler(svc *service.AddressService, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{service: svc, logger: logger}
}

// --- Request / response DTOs ---

// AddressRequest is the JSON request body for creating or replacing an
// address. Which fields are mandatory depends on the store.
type AddressRequest struct {
	Label             string `json:"label" validate:"max=255,nomarkup"`
	Gender            string `json:"gender" validate:"omitempty,oneof=male female other"`
	Salutation        string `json:"salutation" validate:"max=255,nomarkup"`
	FirstName         string `json:"firstname" validate:"max=255,nomarkup"`
	LastName          string `json:"lastname" validate:"max=255,nomarkup"`
	DateOfBirth       int64  `json:"dateOfBirth"`
	Company           string `json:"company" validate:"max=255,nomarkup"`
	VATNo             string `json:"vat_no" validate:"max=255,nomarkup"`
	Street1           string `json:"street_1" validate:"max=255,nomarkup"`
	Street2           string `json:"street_2" validate:"max=255,nomarkup"`
	Street3           string `json:"street_3" validate:"max=255,nomarkup"`
	Postal            string `json:"postal" validate:"max=32,nomarkup"`
	City              string `json:"city" validate:"max=255,nomarkup"`
	Subdivision       string `json:"subdivision" validate:"omitempty,subdivision"`
	Country           string `json:"country" validate:"required,country"`
	Phone             string `json:"phone" validate:"max=64,nomarkup"`
	Email             string `json:"email" validate:"omitempty,max=255,email"`
	IsDefaultShipping bool   `json:"isDefaultShipping"`
	IsDefaultBilling  bool   `json:"isDefaultBilling"`
}

func (req AddressRequest) toDomain() *domain.Address {
	return &domain.Address{
		Label:             req.Label,
		Gender:            req.Gender,
		Salutation:        req.Salutation,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		DateOfBirth:       req.DateOfBirth,
		Company:           req.Company,
		VATNo:             req.VATNo,
		Street1:           req.Street1,
		Street2:           req.Street2,
		Street3:           req.Street3,
		Postal:            req.Postal,
		City:              req.City,
		Subdivision:       req.Subdivision,
		Country:           req.Country,
		Phone:             req.Phone,
		Email:             req.Email,
		IsDefaultShipping: req.IsDefaultShipping,
		IsDefaultBilling:  req.IsDefaultBilling,
	}
}

// FormattedResponse is the rendering of one address.
type FormattedResponse struct {
	AddressID int64  `json:"address_id"`
	FieldSet  string `json:"fieldset"`
	Format    string `json:"format"`
	Content   string `json:"content"`
}

// --- Handlers ---

// List handles GET /api/v1/members/{memberID}/addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	memberID := memberIDFromContext(r.Context())
	params := pagination.FromRequest(r)

	addrs, err := h.service.FindForMember(r.Context(), memberID, repository.FindOptions{
		Order:  r.URL.Query().Get("order"),
		Limit:  params.Limit(),
		Offset: params.Offset,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(addrs, params))
}

// Get handles GET /api/v1/members/{memberID}/addresses/{id}
func (h *AddressHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "address id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	addr, err := h.service.FindOneForMember(r.Context(), id, memberIDFromContext(r.Context()), repository.FindOptions{})
	h.writeAddress(w, r, addr, err)
}

// DefaultBilling handles GET /api/v1/members/{memberID}/addresses/default-billing
func (h *AddressHandler) DefaultBilling(w http.ResponseWriter, r *http.Request) {
	addr, err := h.service.FindDefaultBillingForMember(r.Context(), memberIDFromContext(r.Context()), repository.FindOptions{})
	h.writeAddress(w, r, addr, err)
}

// DefaultShipping handles GET /api/v1/members/{memberID}/addresses/default-shipping
func (h *AddressHandler) DefaultShipping(w http.ResponseWriter, r *http.Request) {
	addr, err := h.service.FindDefaultShippingForMember(r.Context(), memberIDFromContext(r.Context()), repository.FindOptions{})
	h.writeAddress(w, r, addr, err)
}

func (h *AddressHandler) writeAddress(w http.ResponseWriter, r *http.Request, addr *domain.Address, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if addr == nil {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "address not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: addr})
}

// Draft handles GET /api/v1/members/{memberID}/addresses/draft?fill=a,b
//
// It returns an unsaved address prefilled from the member record. Only the
// fields named by fill are returned.
func (h *AddressHandler) Draft(w http.ResponseWriter, r *http.Request) {
	fill, ok := parseFill(w, r)
	if !ok {
		return
	}

	addr, err := h.service.CreateForMember(r.Context(), memberIDFromContext(r.Context()), fill)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: addr.Row()})
}

// parseFill reads the fill query parameter, which may be repeated or comma
// separated. Unknown field names are rejected.
func parseFill(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	fillable := service.FillableFields()
	var fill []string
	for _, v := range r.URL.Query()["fill"] {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name == "" || slices.Contains(fill, name) {
				continue
			}
			if !slices.Contains(fillable, name) {
				writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "unknown fill field: "+name)
				return nil, false
			}
			fill = append(fill, name)
		}
	}
	return fill, true
}

// Create handles POST /api/v1/members/{memberID}/addresses
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.decodeAddress(w, r)
	if !ok {
		return
	}

	if err := h.service.Save(r.Context(), memberIDFromContext(r.Context()), addr); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: addr})
}

// Update handles PUT /api/v1/members/{memberID}/addresses/{id}
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "address id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	addr, ok := h.decodeAddress(w, r)
	if !ok {
		return
	}
	addr.ID = id

	if err := h.service.Save(r.Context(), memberIDFromContext(r.Context()), addr); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: addr})
}

func (h *AddressHandler) decodeAddress(w http.ResponseWriter, r *http.Request) (*domain.Address, bool) {
	var req AddressRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return nil, false
	}

	addr := req.toDomain()
	if missing := missingMandatory(addr, h.service.Store(r.Context())); len(missing) > 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   "request validation failed",
				Fields:    missing,
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return nil, false
	}
	return addr, true
}

// missingMandatory reports the enabled, mandatory billing fields of the store
// that the address leaves empty.
func missingMandatory(addr *domain.Address, st store.Config) map[string]string {
	missing := make(map[string]string)
	for _, f := range st.BillingFieldsConfig() {
		if !f.Enabled || !f.Mandatory {
			continue
		}
		v, ok := addr.Get(f.Value)
		if !ok {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			missing[f.Value] = "is required"
		}
	}
	return missing
}

// Delete handles DELETE /api/v1/members/{memberID}/addresses/{id}
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "address id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteForMember(r.Context(), id, memberIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Formatted handles GET /api/v1/members/{memberID}/addresses/{id}/formatted
//
// Query parameters: fieldset (billing|shipping), output (html|xhtml) and
// format (markup|text).
func (h *AddressHandler) Formatted(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "address id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := service.RenderOptions{
		FieldSet:     q.Get("fieldset"),
		OutputFormat: q.Get("output"),
	}
	format := q.Get("format")
	switch format {
	case "", "markup":
		format = "markup"
	case "text":
		opts.Text = true
	default:
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "unknown format: "+format)
		return
	}

	out, err := h.service.Render(r.Context(), id, memberIDFromContext(r.Context()), opts)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	fieldSet := opts.FieldSet
	if fieldSet == "" {
		fieldSet = service.FieldSetBilling
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: FormattedResponse{
		AddressID: id,
		FieldSet:  fieldSet,
		Format:    format,
		Content:   out,
	}})
}
