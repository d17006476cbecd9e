package engine

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"bookstack-backend/internal/catalog"
	"bookstack-backend/internal/metadata"
	"bookstack-backend/internal/policy"
	"bookstack-backend/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A second connection would see a fresh empty in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	d := store.NewDialect("sqlite")
	for _, stmt := range strings.Split(d.SchemaSQL(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec schema: %v", err)
		}
	}

	seed := []string{
		`INSERT INTO authors (id, name) VALUES ('a-1', 'Iris Murdoch')`,
		`INSERT INTO books (id, title, author_id, price) VALUES ('b-1', 'The Sea, The Sea', 'a-1', 12.50)`,
		`INSERT INTO reviews (id, book_id, user_id, rating, body) VALUES ('r-1', 'b-1', 'owner-1', 5, 'A favourite')`,
	}
	for _, stmt := range seed {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	return &store.Store{DB: db, Dialect: d}
}

// newTestApp mounts the dynamic routes over an in-memory store. When user is
// non-nil a middleware installs it as the request context, mirroring what the
// authentication middleware does for a valid token.
func newTestApp(t *testing.T, policies *policy.Registry, user *policy.RequestContext) *fiber.App {
	t.Helper()

	st := newTestStore(t)
	reg := metadata.NewRegistry()
	catalog.LoadMetadata(reg)

	app := fiber.New()
	if user != nil {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("user", user)
			return c.Next()
		})
	}
	RegisterDynamicRoutes(app, NewHandler(st, reg, policies, nil))
	return app
}

func catalogPolicies(t *testing.T) *policy.Registry {
	t.Helper()
	reg := policy.NewRegistry()
	if err := catalog.RegisterPolicies(reg); err != nil {
		t.Fatalf("register policies: %v", err)
	}
	reg.Freeze()
	return reg
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp, raw
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(raw, &er); err != nil {
		t.Fatalf("decode error body %q: %v", raw, err)
	}
	if er.Error == nil {
		t.Fatalf("expected error envelope, got %q", raw)
	}
	return er.Error.Code
}

func TestAnonymousCanReadCatalog(t *testing.T) {
	app := newTestApp(t, catalogPolicies(t), nil)

	resp, raw := doRequest(t, app, "GET", "/api/books", "")
	if resp.StatusCode != 200 {
		t.Fatalf("list books: status %d, body %s", resp.StatusCode, raw)
	}
	var listBody struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &listBody); err != nil {
		t.Fatalf("decode list body: %v", err)
	}
	if len(listBody.Data) != 1 {
		t.Fatalf("expected 1 book, got %d", len(listBody.Data))
	}
	if listBody.Data[0]["title"] != "The Sea, The Sea" {
		t.Errorf("unexpected title %v", listBody.Data[0]["title"])
	}

	resp, raw = doRequest(t, app, "GET", "/api/books/b-1", "")
	if resp.StatusCode != 200 {
		t.Fatalf("get book: status %d, body %s", resp.StatusCode, raw)
	}
}

func TestUngrantedOperationIsForbidden(t *testing.T) {
	app := newTestApp(t, catalogPolicies(t), nil)

	resp, raw := doRequest(t, app, "POST", "/api/books",
		`{"title": "New Book", "author_id": "a-1"}`)
	if resp.StatusCode != 403 {
		t.Fatalf("create: status %d, body %s", resp.StatusCode, raw)
	}
	if code := errorCode(t, raw); code != "FORBIDDEN" {
		t.Errorf("create: error code %q, want FORBIDDEN", code)
	}

	resp, raw = doRequest(t, app, "DELETE", "/api/books/b-1", "")
	if resp.StatusCode != 403 {
		t.Fatalf("delete: status %d, body %s", resp.StatusCode, raw)
	}
	if code := errorCode(t, raw); code != "FORBIDDEN" {
		t.Errorf("delete: error code %q, want FORBIDDEN", code)
	}

	// The denied write must not have touched the table.
	resp, raw = doRequest(t, app, "GET", "/api/books/b-1", "")
	if resp.StatusCode != 200 {
		t.Fatalf("book disappeared after denied delete: status %d, body %s", resp.StatusCode, raw)
	}
}

func TestRowScopedGetHidesForeignRecords(t *testing.T) {
	reviewsOwned := func(t *testing.T) *policy.Registry {
		reg := policy.NewRegistry()
		err := policy.Resource("Review").
			Grant(policy.OpList, policy.OwnedBy("user_id")).
			Grant(policy.OpGet, policy.OwnedBy("user_id")).
			Apply(reg)
		if err != nil {
			t.Fatalf("register policies: %v", err)
		}
		reg.Freeze()
		return reg
	}

	t.Run("non-owner gets 404", func(t *testing.T) {
		app := newTestApp(t, reviewsOwned(t), &policy.RequestContext{
			Subject: "someone-else",
			Roles:   []string{"user"},
		})

		resp, raw := doRequest(t, app, "GET", "/api/reviews/r-1", "")
		if resp.StatusCode != 404 {
			t.Fatalf("status %d, body %s", resp.StatusCode, raw)
		}
		if code := errorCode(t, raw); code != "NOT_FOUND" {
			t.Errorf("error code %q, want NOT_FOUND", code)
		}
	})

	t.Run("owner sees the record", func(t *testing.T) {
		app := newTestApp(t, reviewsOwned(t), &policy.RequestContext{
			Subject: "owner-1",
			Roles:   []string{"user"},
		})

		resp, raw := doRequest(t, app, "GET", "/api/reviews/r-1", "")
		if resp.StatusCode != 200 {
			t.Fatalf("status %d, body %s", resp.StatusCode, raw)
		}
		var body struct {
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Data["user_id"] != "owner-1" {
			t.Errorf("unexpected user_id %v", body.Data["user_id"])
		}
	})
}
