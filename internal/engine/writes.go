package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"bookstack-backend/internal/metadata"
	"bookstack-backend/internal/store"
)

// InsertRecord inserts validated fields and returns the new record's ID.
// When the database does not generate UUID primary keys, the ID is
// assigned here before the insert.
func InsertRecord(ctx context.Context, q store.Querier, d store.Dialect, entity *metadata.Entity, fields map[string]any) (any, error) {
	var id any
	if !d.GeneratesUUIDs() && entity.PrimaryKey.Generated && entity.PrimaryKey.Type == "uuid" {
		id = uuid.New().String()
		fields[entity.PrimaryKey.Field] = id
	}

	pb := d.NewParamBuilder()
	cols := make([]string, 0, len(fields))
	phs := make([]string, 0, len(fields))
	for _, name := range sortedKeys(fields) {
		cols = append(cols, name)
		phs = append(phs, pb.Add(fields[name]))
	}

	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		entity.Table, strings.Join(cols, ", "), strings.Join(phs, ", "))

	if id != nil {
		if _, err := store.Exec(ctx, q, sqlStr, pb.Params()...); err != nil {
			return nil, d.MapError(err)
		}
		return id, nil
	}

	sqlStr += " RETURNING " + entity.PrimaryKey.Field
	row, err := store.QueryRow(ctx, q, sqlStr, pb.Params()...)
	if err != nil {
		return nil, d.MapError(err)
	}
	return row[entity.PrimaryKey.Field], nil
}

// UpdateRecord applies validated fields to an existing record. A nil SQL
// statement (no updatable fields in the payload) is a no-op.
func UpdateRecord(ctx context.Context, q store.Querier, d store.Dialect, entity *metadata.Entity, id any, fields map[string]any) error {
	delete(fields, entity.PrimaryKey.Field)
	if len(fields) == 0 {
		return nil
	}

	pb := d.NewParamBuilder()
	sets := make([]string, 0, len(fields)+1)
	for _, name := range sortedKeys(fields) {
		sets = append(sets, fmt.Sprintf("%s = %s", name, pb.Add(fields[name])))
	}
	if entity.HasField("updated_at") {
		sets = append(sets, "updated_at = "+d.NowExpr())
	}

	sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		entity.Table, strings.Join(sets, ", "), entity.PrimaryKey.Field, pb.Add(id))

	affected, err := store.Exec(ctx, q, sqlStr, pb.Params()...)
	if err != nil {
		return d.MapError(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteRecord removes a record by primary key.
func DeleteRecord(ctx context.Context, q store.Querier, d store.Dialect, entity *metadata.Entity, id any) error {
	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		entity.Table, entity.PrimaryKey.Field, pb.Add(id))

	affected, err := store.Exec(ctx, q, sqlStr, pb.Params()...)
	if err != nil {
		return d.MapError(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// FetchRecord loads a single record by primary key.
func FetchRecord(ctx context.Context, q store.Querier, d store.Dialect, entity *metadata.Entity, id any) (map[string]any, error) {
	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(entity.FieldNames(), ", "), entity.Table,
		entity.PrimaryKey.Field, pb.Add(id))

	return store.QueryRow(ctx, q, sqlStr, pb.Params()...)
}

// sortedKeys keeps generated SQL deterministic, which matters for tests
// and query plan caching.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
