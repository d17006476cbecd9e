package engine

import (
	"strings"
	"testing"

	"bookstack-backend/internal/metadata"
	"bookstack-backend/internal/store"
)

func testEntity() *metadata.Entity {
	return &metadata.Entity{
		Name:     "books",
		Table:    "books",
		Resource: "Book",
		PrimaryKey: metadata.PrimaryKey{
			Field: "id", Type: "uuid", Generated: true,
		},
		Fields: []metadata.Field{
			{Name: "id", Type: "uuid"},
			{Name: "title", Type: "string", Required: true},
			{Name: "author_id", Type: "uuid", Required: true},
			{Name: "price", Type: "decimal", Precision: 2},
			{Name: "published_year", Type: "int"},
			{Name: "created_at", Type: "timestamp", Auto: "create"},
		},
	}
}

func TestBuildSelectSQLPostgres(t *testing.T) {
	d := store.NewDialect("postgres")
	plan := &QueryPlan{
		Entity: testEntity(),
		Filters: []WhereClause{
			{Field: "published_year", Operator: "gte", Value: 1990},
			{Field: "author_id", Operator: "eq", Value: "a1"},
		},
		Sorts:   []OrderClause{{Field: "title", Dir: "ASC"}},
		Page:    2,
		PerPage: 10,
	}

	qr := BuildSelectSQL(plan, d)

	if !strings.Contains(qr.SQL, "FROM books") {
		t.Errorf("missing table: %s", qr.SQL)
	}
	if !strings.Contains(qr.SQL, "published_year >= $1") {
		t.Errorf("missing gte clause: %s", qr.SQL)
	}
	if !strings.Contains(qr.SQL, "author_id = $2") {
		t.Errorf("missing eq clause: %s", qr.SQL)
	}
	if !strings.Contains(qr.SQL, "ORDER BY title ASC") {
		t.Errorf("missing order: %s", qr.SQL)
	}
	if !strings.Contains(qr.SQL, "LIMIT $3 OFFSET $4") {
		t.Errorf("missing pagination: %s", qr.SQL)
	}
	if len(qr.Params) != 4 {
		t.Fatalf("expected 4 params, got %d", len(qr.Params))
	}
	if qr.Params[2] != 10 || qr.Params[3] != 10 {
		t.Errorf("unexpected limit/offset params: %v", qr.Params)
	}
}

func TestBuildSelectSQLSQLitePlaceholders(t *testing.T) {
	d := store.NewDialect("sqlite")
	plan := &QueryPlan{
		Entity:  testEntity(),
		Filters: []WhereClause{{Field: "title", Operator: "eq", Value: "Solaris"}},
		Page:    1,
		PerPage: 25,
	}

	qr := BuildSelectSQL(plan, d)

	if !strings.Contains(qr.SQL, "title = ?1") {
		t.Errorf("expected sqlite placeholder: %s", qr.SQL)
	}
	if strings.Contains(qr.SQL, "$") {
		t.Errorf("postgres placeholder leaked into sqlite SQL: %s", qr.SQL)
	}
}

func TestBuildSelectSQLInOperator(t *testing.T) {
	pg := store.NewDialect("postgres")
	plan := &QueryPlan{
		Entity:  testEntity(),
		Filters: []WhereClause{{Field: "author_id", Operator: "in", Value: []any{"a1", "a2"}}},
		Page:    1,
		PerPage: 25,
	}
	qr := BuildSelectSQL(plan, pg)
	if !strings.Contains(qr.SQL, "author_id = ANY($1)") {
		t.Errorf("expected ANY clause: %s", qr.SQL)
	}

	lite := store.NewDialect("sqlite")
	qr = BuildSelectSQL(plan, lite)
	if !strings.Contains(qr.SQL, "author_id IN (?1, ?2)") {
		t.Errorf("expected expanded IN clause: %s", qr.SQL)
	}
}

func TestBuildCountSQLSharesFilters(t *testing.T) {
	d := store.NewDialect("postgres")
	plan := &QueryPlan{
		Entity:  testEntity(),
		Filters: []WhereClause{{Field: "published_year", Operator: "lt", Value: 2000}},
		Page:    3,
		PerPage: 5,
	}

	cr := BuildCountSQL(plan, d)
	if !strings.Contains(cr.SQL, "SELECT COUNT(*) AS count FROM books") {
		t.Errorf("unexpected count SQL: %s", cr.SQL)
	}
	if !strings.Contains(cr.SQL, "published_year < $1") {
		t.Errorf("missing filter in count: %s", cr.SQL)
	}
	if strings.Contains(cr.SQL, "LIMIT") {
		t.Errorf("count must not paginate: %s", cr.SQL)
	}
	if len(cr.Params) != 1 {
		t.Fatalf("expected 1 param, got %d", len(cr.Params))
	}
}

func TestParseFilterKey(t *testing.T) {
	field, op := parseFilterKey("price.gte")
	if field != "price" || op != "gte" {
		t.Errorf("got (%s, %s)", field, op)
	}
	field, op = parseFilterKey("title")
	if field != "title" || op != "eq" {
		t.Errorf("got (%s, %s)", field, op)
	}
}

func TestCoerceValue(t *testing.T) {
	intField := &metadata.Field{Name: "published_year", Type: "int"}
	v, err := coerceValue(intField, "1987", "eq")
	if err != nil || v != 1987 {
		t.Errorf("got %v, %v", v, err)
	}

	if _, err := coerceValue(intField, "abc", "eq"); err == nil {
		t.Error("expected error for non-numeric int")
	}

	v, err = coerceValue(intField, "1961, 1987", "in")
	if err != nil {
		t.Fatalf("coerce in list: %v", err)
	}
	list, ok := v.([]any)
	if !ok || len(list) != 2 || list[0] != 1961 || list[1] != 1987 {
		t.Errorf("got %#v", v)
	}

	decField := &metadata.Field{Name: "price", Type: "decimal"}
	v, err = coerceValue(decField, "15.5", "eq")
	if err != nil || v != 15.5 {
		t.Errorf("got %v, %v", v, err)
	}

	strField := &metadata.Field{Name: "title", Type: "string"}
	v, err = coerceValue(strField, "Beloved", "eq")
	if err != nil || v != "Beloved" {
		t.Errorf("got %v, %v", v, err)
	}
}
