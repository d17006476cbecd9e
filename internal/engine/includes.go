package engine

import (
	"context"
	"fmt"
	"strings"

	"bookstack-backend/internal/metadata"
	"bookstack-backend/internal/store"
)

// LoadIncludes fetches related data and attaches it to the parent rows.
func LoadIncludes(ctx context.Context, q store.Querier, d store.Dialect, reg *metadata.Registry, entity *metadata.Entity, rows []map[string]any, includes []string) error {
	if len(rows) == 0 || len(includes) == 0 {
		return nil
	}

	for _, incName := range includes {
		rel := reg.FindRelationForEntity(incName, entity.Name)
		if rel == nil {
			continue
		}

		if rel.Source == entity.Name {
			// Forward relation: load children by parent PK
			if err := loadForwardRelation(ctx, q, d, reg, entity, rel, rows, incName); err != nil {
				return err
			}
		} else if rel.Target == entity.Name {
			// Reverse relation: load parents by FK on current entity
			if err := loadReverseRelation(ctx, q, d, reg, rel, rows, incName); err != nil {
				return err
			}
		}
	}

	return nil
}

func loadForwardRelation(ctx context.Context, q store.Querier, d store.Dialect, reg *metadata.Registry, parentEntity *metadata.Entity, rel *metadata.Relation, rows []map[string]any, incName string) error {
	parentPKField := parentEntity.PrimaryKey.Field
	parentIDs := collectValues(rows, parentPKField)
	if len(parentIDs) == 0 {
		return nil
	}

	targetEntity := reg.GetEntity(rel.Target)
	if targetEntity == nil {
		return fmt.Errorf("unknown target entity: %s", rel.Target)
	}

	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(targetEntity.FieldNames(), ", "), targetEntity.Table,
		d.InExpr(rel.TargetKey, pb, parentIDs))

	childRows, err := store.QueryRows(ctx, q, sqlStr, pb.Params()...)
	if err != nil {
		return fmt.Errorf("load include %s: %w", incName, err)
	}

	// Group by FK
	grouped := make(map[string][]map[string]any)
	for _, child := range childRows {
		fk := fmt.Sprintf("%v", child[rel.TargetKey])
		grouped[fk] = append(grouped[fk], child)
	}

	for _, row := range rows {
		pk := fmt.Sprintf("%v", row[parentPKField])
		if rel.IsOneToOne() {
			if children := grouped[pk]; len(children) > 0 {
				row[incName] = children[0]
			} else {
				row[incName] = nil
			}
		} else {
			if grouped[pk] == nil {
				row[incName] = []map[string]any{}
			} else {
				row[incName] = grouped[pk]
			}
		}
	}

	return nil
}

// loadReverseRelation loads parent records referenced by FK on the current entity.
func loadReverseRelation(ctx context.Context, q store.Querier, d store.Dialect, reg *metadata.Registry, rel *metadata.Relation, rows []map[string]any, incName string) error {
	sourceEntity := reg.GetEntity(rel.Source)
	if sourceEntity == nil {
		return fmt.Errorf("unknown source entity: %s", rel.Source)
	}

	fkValues := collectValues(rows, rel.TargetKey)
	if len(fkValues) == 0 {
		return nil
	}

	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(sourceEntity.FieldNames(), ", "), sourceEntity.Table,
		d.InExpr(rel.SourceKey, pb, fkValues))

	parentRows, err := store.QueryRows(ctx, q, sqlStr, pb.Params()...)
	if err != nil {
		return fmt.Errorf("load reverse include %s: %w", incName, err)
	}

	parentByPK := make(map[string]map[string]any, len(parentRows))
	for _, pr := range parentRows {
		pk := fmt.Sprintf("%v", pr[rel.SourceKey])
		parentByPK[pk] = pr
	}

	for _, row := range rows {
		fk := fmt.Sprintf("%v", row[rel.TargetKey])
		row[incName] = parentByPK[fk]
	}

	return nil
}

func collectValues(rows []map[string]any, field string) []any {
	seen := make(map[string]bool)
	var values []any
	for _, row := range rows {
		v := row[field]
		if v == nil {
			continue
		}
		s := fmt.Sprintf("%v", v)
		if !seen[s] {
			seen[s] = true
			values = append(values, v)
		}
	}
	return values
}
