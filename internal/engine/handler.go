package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"

	"bookstack-backend/internal/audit"
	"bookstack-backend/internal/metadata"
	"bookstack-backend/internal/policy"
	"bookstack-backend/internal/store"
)

type Handler struct {
	store    *store.Store
	registry *metadata.Registry
	policies *policy.Registry
	audit    audit.Recorder
}

func NewHandler(s *store.Store, reg *metadata.Registry, policies *policy.Registry, rec audit.Recorder) *Handler {
	if rec == nil {
		rec = audit.Noop{}
	}
	return &Handler{store: s, registry: reg, policies: policies, audit: rec}
}

// List handles GET /api/:entity
func (h *Handler) List(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	rctx := requestContext(c)
	decision := h.authorize(c, entity, policy.OpList, rctx, nil, "")
	if !decision.Allowed {
		return respondError(c, ForbiddenError(decision.Reason))
	}

	plan, err := ParseQueryParams(c, entity, h.registry)
	if err != nil {
		return err
	}

	// Row-level filters from the policy decision narrow the result set.
	for _, f := range decision.Filters {
		plan.Filters = append(plan.Filters, WhereClause{
			Field:    f.Field,
			Operator: f.Operator,
			Value:    f.Value,
		})
	}

	qr := BuildSelectSQL(plan, h.store.Dialect)
	rows, err := store.QueryRows(c.Context(), h.store.DB, qr.SQL, qr.Params...)
	if err != nil {
		return fmt.Errorf("list %s: %w", entity.Name, err)
	}
	if h.store.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans(rows, boolFields(entity))
	}

	cr := BuildCountSQL(plan, h.store.Dialect)
	countRow, err := store.QueryRow(c.Context(), h.store.DB, cr.SQL, cr.Params...)
	if err != nil {
		return fmt.Errorf("count %s: %w", entity.Name, err)
	}
	total := countRow["count"]

	if len(plan.Includes) > 0 {
		if err := LoadIncludes(c.Context(), h.store.DB, h.store.Dialect, h.registry, entity, rows, plan.Includes); err != nil {
			return fmt.Errorf("load includes: %w", err)
		}
	}

	if rows == nil {
		rows = []map[string]any{}
	}

	return c.JSON(fiber.Map{
		"data": rows,
		"meta": fiber.Map{
			"page":     plan.Page,
			"per_page": plan.PerPage,
			"total":    total,
		},
	})
}

// GetByID handles GET /api/:entity/:id
func (h *Handler) GetByID(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	rctx := requestContext(c)
	id := c.Params("id")

	decision := h.authorize(c, entity, policy.OpGet, rctx, nil, id)
	if !decision.Allowed {
		return respondError(c, ForbiddenError(decision.Reason))
	}

	row, err := FetchRecord(c.Context(), h.store.DB, h.store.Dialect, entity, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError(entity.Name, id))
		}
		return fmt.Errorf("get %s/%s: %w", entity.Name, id, err)
	}

	// Filters returned by the decision still apply to single reads, so a
	// record outside the caller's row scope looks identical to a missing one.
	if !policy.MatchAll(decision.Filters, row) {
		return respondError(c, NotFoundError(entity.Name, id))
	}

	if h.store.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans([]map[string]any{row}, boolFields(entity))
	}

	includes := parseIncludes(c)
	if len(includes) > 0 {
		rows := []map[string]any{row}
		if err := LoadIncludes(c.Context(), h.store.DB, h.store.Dialect, h.registry, entity, rows, includes); err != nil {
			return fmt.Errorf("load includes: %w", err)
		}
		row = rows[0]
	}

	return c.JSON(fiber.Map{"data": row})
}

// Create handles POST /api/:entity
func (h *Handler) Create(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	rctx := requestContext(c)

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	decision := h.authorize(c, entity, policy.OpCreate, rctx, body, "")
	if !decision.Allowed {
		return respondError(c, ForbiddenError(decision.Reason))
	}

	fields, validationErrs := ValidateWrite(entity, body, true)
	if len(validationErrs) > 0 {
		return respondError(c, ValidationError(validationErrs))
	}

	id, err := InsertRecord(c.Context(), h.store.DB, h.store.Dialect, entity, fields)
	if err != nil {
		return handleWriteError(c, err)
	}

	h.recordMutation(c, entity, policy.OpCreate, rctx, fmt.Sprintf("%v", id))

	record, err := FetchRecord(c.Context(), h.store.DB, h.store.Dialect, entity, id)
	if err != nil {
		return fmt.Errorf("fetch created %s: %w", entity.Name, err)
	}
	return c.Status(201).JSON(fiber.Map{"data": record})
}

// Update handles PUT /api/:entity/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	id := c.Params("id")
	rctx := requestContext(c)

	// The current record is the candidate for record-aware guards.
	current, err := FetchRecord(c.Context(), h.store.DB, h.store.Dialect, entity, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError(entity.Name, id))
		}
		return fmt.Errorf("fetch %s/%s: %w", entity.Name, id, err)
	}

	decision := h.authorize(c, entity, policy.OpUpdate, rctx, current, id)
	if !decision.Allowed {
		return respondError(c, ForbiddenError(decision.Reason))
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	fields, validationErrs := ValidateWrite(entity, body, false)
	if len(validationErrs) > 0 {
		return respondError(c, ValidationError(validationErrs))
	}

	if err := UpdateRecord(c.Context(), h.store.DB, h.store.Dialect, entity, id, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError(entity.Name, id))
		}
		return handleWriteError(c, err)
	}

	h.recordMutation(c, entity, policy.OpUpdate, rctx, id)

	record, err := FetchRecord(c.Context(), h.store.DB, h.store.Dialect, entity, id)
	if err != nil {
		return fmt.Errorf("fetch updated %s: %w", entity.Name, err)
	}
	return c.JSON(fiber.Map{"data": record})
}

// Delete handles DELETE /api/:entity/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	id := c.Params("id")
	rctx := requestContext(c)

	current, err := FetchRecord(c.Context(), h.store.DB, h.store.Dialect, entity, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError(entity.Name, id))
		}
		return fmt.Errorf("fetch %s/%s: %w", entity.Name, id, err)
	}

	decision := h.authorize(c, entity, policy.OpDelete, rctx, current, id)
	if !decision.Allowed {
		return respondError(c, ForbiddenError(decision.Reason))
	}

	if err := DeleteRecord(c.Context(), h.store.DB, h.store.Dialect, entity, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError(entity.Name, id))
		}
		return fmt.Errorf("delete %s/%s: %w", entity.Name, id, err)
	}

	h.recordMutation(c, entity, policy.OpDelete, rctx, id)

	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

// authorize evaluates the policy for the entity's resource type and
// records the decision.
func (h *Handler) authorize(c *fiber.Ctx, entity *metadata.Entity, op policy.Operation, rctx *policy.RequestContext, candidate map[string]any, recordID string) policy.Decision {
	rt := policy.ResourceTypeOf(entity.Resource)
	decision := h.policies.Authorize(rt, op, rctx, candidate)

	h.audit.Record(c.Context(), audit.Event{
		Kind:      audit.KindDecision,
		Resource:  entity.Resource,
		Operation: string(op),
		RecordID:  recordID,
		Subject:   subjectOf(rctx),
		Allowed:   decision.Allowed,
		Reason:    decision.Reason,
	})

	return decision
}

func (h *Handler) recordMutation(c *fiber.Ctx, entity *metadata.Entity, op policy.Operation, rctx *policy.RequestContext, recordID string) {
	h.audit.Record(c.Context(), audit.Event{
		Kind:      audit.KindMutation,
		Resource:  entity.Resource,
		Operation: string(op),
		RecordID:  recordID,
		Subject:   subjectOf(rctx),
		Allowed:   true,
	})
}

func (h *Handler) resolveEntity(c *fiber.Ctx) (*metadata.Entity, error) {
	name := c.Params("entity")
	entity := h.registry.GetEntity(name)
	if entity == nil {
		return nil, respondError(c, UnknownEntityError(name))
	}
	return entity, nil
}

// requestContext returns the caller's policy context, falling back to
// anonymous when the authentication middleware set nothing.
func requestContext(c *fiber.Ctx) *policy.RequestContext {
	if rctx, ok := c.Locals("user").(*policy.RequestContext); ok && rctx != nil {
		return rctx
	}
	return policy.Anonymous()
}

func subjectOf(rctx *policy.RequestContext) string {
	if rctx.IsAnonymous() {
		return "anonymous"
	}
	return rctx.Subject
}

func boolFields(entity *metadata.Entity) []string {
	var names []string
	for _, f := range entity.Fields {
		if f.Type == "boolean" {
			names = append(names, f.Name)
		}
	}
	return names
}

func respondError(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
}

func handleWriteError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return respondError(c, appErr)
	}

	if errors.Is(err, store.ErrUniqueViolation) {
		msg := "A record with this value already exists"
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			msg = pgErr.Detail
		}
		return respondError(c, ConflictError(msg))
	}

	return err
}

func parseIncludes(c *fiber.Ctx) []string {
	inc := c.Query("include")
	if inc == "" {
		return nil
	}
	var includes []string
	for _, name := range strings.Split(inc, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			includes = append(includes, name)
		}
	}
	return includes
}
