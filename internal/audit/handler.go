package audit

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"bookstack-backend/internal/store"
)

// Handler exposes the audit log over REST for operators.
type Handler struct {
	db      *sql.DB
	dialect store.Dialect
}

func NewHandler(db *sql.DB, dialect store.Dialect) *Handler {
	return &Handler{db: db, dialect: dialect}
}

// List handles GET /_events (admin only).
func (h *Handler) List(c *fiber.Ctx) error {
	ctx := c.UserContext()

	pb := h.dialect.NewParamBuilder()
	var conditions []string

	addFilter := func(col, val string) {
		if val != "" {
			conditions = append(conditions, fmt.Sprintf("%s = %s", col, pb.Add(val)))
		}
	}
	addFilter("kind", c.Query("kind"))
	addFilter("resource", c.Query("resource"))
	addFilter("operation", c.Query("operation"))
	addFilter("subject", c.Query("subject"))
	addFilter("record_id", c.Query("record_id"))
	if v := c.Query("allowed"); v != "" {
		allowed, err := strconv.ParseBool(v)
		if err == nil {
			conditions = append(conditions, fmt.Sprintf("allowed = %s", pb.Add(allowed)))
		}
	}
	if v := c.Query("from"); v != "" {
		conditions = append(conditions, fmt.Sprintf("created_at >= %s", pb.Add(v)))
	}
	if v := c.Query("to"); v != "" {
		conditions = append(conditions, fmt.Sprintf("created_at <= %s", pb.Add(v)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.Query("per_page", "50"))
	if perPage < 1 {
		perPage = 50
	}
	if perPage > 100 {
		perPage = 100
	}

	countSQL := "SELECT COUNT(*) AS count FROM _events" + whereClause
	countRow, err := store.QueryRow(ctx, h.db, countSQL, pb.Params()...)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	total := countRow["count"]

	orderBy := "created_at DESC"
	if c.Query("sort") == "created_at" {
		orderBy = "created_at ASC"
	}

	dataSQL := fmt.Sprintf(
		"SELECT id, kind, resource, operation, record_id, subject, allowed, reason, metadata, created_at FROM _events%s ORDER BY %s LIMIT %s OFFSET %s",
		whereClause, orderBy, pb.Add(perPage), pb.Add((page-1)*perPage),
	)
	rows, err := store.QueryRows(ctx, h.db, dataSQL, pb.Params()...)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	if h.dialect.NeedsBoolFix() {
		store.NormalizeBooleans(rows, []string{"allowed"})
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	return c.JSON(fiber.Map{
		"data": rows,
		"meta": fiber.Map{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}
