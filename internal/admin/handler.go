package admin

import (
	"github.com/gofiber/fiber/v2"

	"bookstack-backend/internal/engine"
	"bookstack-backend/internal/metadata"
	"bookstack-backend/internal/policy"
)

// Handler exposes read-only introspection endpoints for operators.
// The catalog schema and access policies are fixed at startup, so these
// endpoints only describe what the server was booted with.
type Handler struct {
	registry *metadata.Registry
	policies *policy.Registry
}

func NewHandler(reg *metadata.Registry, policies *policy.Registry) *Handler {
	return &Handler{registry: reg, policies: policies}
}

func RegisterAdminRoutes(app *fiber.App, h *Handler, guards ...fiber.Handler) {
	grp := app.Group("/api/_admin")
	for _, g := range guards {
		grp.Use(g)
	}

	grp.Get("/entities", h.ListEntities)
	grp.Get("/entities/:name", h.GetEntity)
	grp.Get("/relations", h.ListRelations)
	grp.Get("/policies", h.ListPolicies)
}

// ListEntities handles GET /api/_admin/entities.
func (h *Handler) ListEntities(c *fiber.Ctx) error {
	entities := h.registry.AllEntities()
	out := make([]fiber.Map, 0, len(entities))
	for _, e := range entities {
		out = append(out, fiber.Map{
			"name":     e.Name,
			"table":    e.Table,
			"resource": e.Resource,
			"fields":   e.Fields,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// GetEntity handles GET /api/_admin/entities/:name.
func (h *Handler) GetEntity(c *fiber.Ctx) error {
	name := c.Params("name")
	entity := h.registry.GetEntity(name)
	if entity == nil {
		appErr := engine.UnknownEntityError(name)
		return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
	}
	return c.JSON(fiber.Map{"data": entity})
}

// ListRelations handles GET /api/_admin/relations.
func (h *Handler) ListRelations(c *fiber.Ctx) error {
	var out []fiber.Map
	for _, e := range h.registry.AllEntities() {
		for _, rel := range h.registry.GetRelationsForSource(e.Name) {
			out = append(out, fiber.Map{
				"name":       rel.Name,
				"type":       rel.Type,
				"source":     rel.Source,
				"target":     rel.Target,
				"source_key": rel.SourceKey,
				"target_key": rel.TargetKey,
			})
		}
	}
	if out == nil {
		out = []fiber.Map{}
	}
	return c.JSON(fiber.Map{"data": out})
}

// ListPolicies handles GET /api/_admin/policies. For every registered
// resource it reports the configured operations and guard names; anything
// not listed is denied.
func (h *Handler) ListPolicies(c *fiber.Ctx) error {
	resources := h.policies.Resources()
	out := make([]fiber.Map, 0, len(resources))
	for _, rt := range resources {
		ps, ok := h.policies.Lookup(rt)
		if !ok {
			continue
		}
		ops := fiber.Map{}
		for _, op := range ps.Operations() {
			var names []string
			for _, g := range ps.ForOperation(op) {
				names = append(names, g.Name)
			}
			ops[string(op)] = names
		}
		out = append(out, fiber.Map{
			"resource":   rt.Key(),
			"operations": ops,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}
