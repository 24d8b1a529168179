package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/larder-io/larder/internal/crud"
	"github.com/larder-io/larder/internal/db"
	"github.com/larder-io/larder/internal/metrics"
	"github.com/larder-io/larder/internal/payload"
	"github.com/larder-io/larder/internal/repositories"
)

// ResourceHandler serves the CRUD routes of one stored model. Every handler
// builds a crud bridge around a repository bound to the request session.
type ResourceHandler[M any, C repositories.Applier[M], U repositories.Applier[M]] struct {
	name    string
	newRepo func(*repositories.Session) *repositories.Generic[M, C, U]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func newResourceHandler[M any, C repositories.Applier[M], U repositories.Applier[M]](
	name string,
	newRepo func(*repositories.Session) *repositories.Generic[M, C, U],
	m *metrics.Metrics,
	logger *zap.Logger,
) *ResourceHandler[M, C, U] {
	return &ResourceHandler[M, C, U]{
		name:    name,
		newRepo: newRepo,
		metrics: m,
		logger:  logger.Named(name + "_handler"),
	}
}

// NewFoodHandler creates the handler for /api/v1/foods.
func NewFoodHandler(m *metrics.Metrics, logger *zap.Logger) *ResourceHandler[db.Food, payload.FoodCreate, payload.FoodUpdate] {
	return newResourceHandler("foods", repositories.NewFoodRepository, m, logger)
}

// NewUnitHandler creates the handler for /api/v1/units.
func NewUnitHandler(m *metrics.Metrics, logger *zap.Logger) *ResourceHandler[db.Unit, payload.UnitCreate, payload.UnitUpdate] {
	return newResourceHandler("units", repositories.NewUnitRepository, m, logger)
}

// NewTagHandler creates the handler for /api/v1/tags.
func NewTagHandler(m *metrics.Metrics, logger *zap.Logger) *ResourceHandler[db.Tag, payload.TagCreate, payload.TagUpdate] {
	return newResourceHandler("tags", repositories.NewTagRepository, m, logger)
}

// Routes registers the collection and item routes on r.
func (h *ResourceHandler[M, C, U]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Replace)
	r.Patch("/{id}", h.Patch)
	r.Delete("/{id}", h.Delete)
}

// listResponse wraps a paginated list of items.
type listResponse[M any] struct {
	Items []M   `json:"items"`
	Total int64 `json:"total"`
}

// List handles GET /api/v1/{resource}.
func (h *ResourceHandler[M, C, U]) List(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repository(w, r)
	if !ok {
		return
	}

	items, total, err := repo.List(r.Context(), paginationOpts(r))
	if err != nil {
		h.logger.Error("failed to list items", zap.Error(err))
		ErrInternal(w)
		return
	}
	if items == nil {
		items = []M{}
	}

	Ok(w, listResponse[M]{Items: items, Total: total})
}

// Create handles POST /api/v1/{resource}.
func (h *ResourceHandler[M, C, U]) Create(w http.ResponseWriter, r *http.Request) {
	var req C
	if !decodeJSON(w, r, &req) || !validatePayload(w, payload.Validate(&req)) {
		return
	}

	bridge, ok := h.bridge(w, r)
	if !ok {
		return
	}
	item, err := bridge.CreateOne(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	Created(w, item)
}

// GetByID handles GET /api/v1/{resource}/{id}.
func (h *ResourceHandler[M, C, U]) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	h.get(w, r, id.String(), "")
}

// GetByKey returns a handler that looks items up by the unique column key,
// taking the value from the URL parameter of the same name.
func (h *ResourceHandler[M, C, U]) GetByKey(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.get(w, r, chi.URLParam(r, key), key)
	}
}

func (h *ResourceHandler[M, C, U]) get(w http.ResponseWriter, r *http.Request, id, key string) {
	bridge, ok := h.bridge(w, r)
	if !ok {
		return
	}
	item, err := bridge.GetOne(r.Context(), id, key)
	if err != nil {
		writeError(w, err)
		return
	}
	Ok(w, item)
}

// Replace handles PUT /api/v1/{resource}/{id}. Fields missing from the body
// are reset to their defaults.
func (h *ResourceHandler[M, C, U]) Replace(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req U
	if !decodeJSON(w, r, &req) || !validatePayload(w, payload.ValidateReplace(&req)) {
		return
	}

	bridge, ok := h.bridge(w, r)
	if !ok {
		return
	}
	item, err := bridge.UpdateOne(r.Context(), req, id.String())
	if err != nil {
		writeError(w, err)
		return
	}
	Ok(w, item)
}

// Patch handles PATCH /api/v1/{resource}/{id}. Only the fields present in the
// body are written.
func (h *ResourceHandler[M, C, U]) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req U
	if !decodeJSON(w, r, &req) || !validatePayload(w, payload.Validate(&req)) {
		return
	}

	bridge, ok := h.bridge(w, r)
	if !ok {
		return
	}
	item, err := bridge.PatchOne(r.Context(), req, id.String())
	if err != nil {
		writeError(w, err)
		return
	}
	Ok(w, item)
}

// Delete handles DELETE /api/v1/{resource}/{id} and returns the deleted item.
func (h *ResourceHandler[M, C, U]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}

	bridge, ok := h.bridge(w, r)
	if !ok {
		return
	}
	item, err := bridge.DeleteOne(r.Context(), id.String())
	if err != nil {
		writeError(w, err)
		return
	}
	Ok(w, item)
}

func (h *ResourceHandler[M, C, U]) repository(w http.ResponseWriter, r *http.Request) (*repositories.Generic[M, C, U], bool) {
	session, ok := repositories.SessionFrom(r.Context())
	if !ok {
		h.logger.Error("no database session in request context")
		ErrInternal(w)
		return nil, false
	}
	return h.newRepo(session), true
}

func (h *ResourceHandler[M, C, U]) bridge(w http.ResponseWriter, r *http.Request) (*crud.Bridge[C, *M, U], bool) {
	repo, ok := h.repository(w, r)
	if !ok {
		return nil, false
	}
	return crud.New[C, *M, U](repo, h.logger,
		crud.WithMessageMapper(messages),
		crud.WithObserver(h.metrics.Failures(h.name)),
	), true
}

// messages translates the storage errors a client can act on. Uniqueness
// violations never reach it.
var messages = crud.MessageMapperFunc(func(err error) string {
	switch {
	case errors.Is(err, repositories.ErrUnknownKey):
		return "Unknown lookup key."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "The request was cancelled before it completed."
	default:
		return crud.DefaultMessage
	}
})

// -----------------------------------------------------------------------------
// Shared handler helpers
// -----------------------------------------------------------------------------

// validatePayload writes a 400 for a failed payload validation.
func validatePayload(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	ErrBadRequest(w, "Validation failed.", err.Error())
	return false
}

// parseUUID extracts and parses a UUID path parameter by name.
// Writes a 400 and returns false if the parameter is missing or malformed.
func parseUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		ErrBadRequest(w, "Invalid "+param+": must be a valid UUID.", err.Error())
		return uuid.UUID{}, false
	}
	return id, true
}

// paginationOpts reads limit and offset query parameters from the request.
// Defaults: limit=20, offset=0. Max limit is capped at 100.
func paginationOpts(r *http.Request) repositories.ListOptions {
	limit := 20
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return repositories.ListOptions{Limit: limit, Offset: offset}
}
