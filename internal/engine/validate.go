package engine

import (
	"fmt"
	"strings"

	"bookstack-backend/internal/metadata"
)

// ValidateWrite checks a request body against the entity metadata and
// returns the cleaned field map. Auto-managed columns are stripped,
// unknown keys are rejected, and values are coerced to the field type.
func ValidateWrite(entity *metadata.Entity, body map[string]any, isCreate bool) (map[string]any, []ErrorDetail) {
	var errs []ErrorDetail
	fields := make(map[string]any, len(body))

	for key, val := range body {
		field := entity.GetField(key)
		if field == nil {
			errs = append(errs, ErrorDetail{
				Field:   key,
				Rule:    "unknown",
				Message: fmt.Sprintf("Unknown field: %s", key),
			})
			continue
		}
		if field.IsAuto() || isGeneratedPK(entity, key) {
			// id, created_at, updated_at are never client-writable
			continue
		}

		coerced, err := coerceWriteValue(field, val)
		if err != nil {
			errs = append(errs, ErrorDetail{
				Field:   key,
				Rule:    "type",
				Message: err.Error(),
			})
			continue
		}

		if len(field.Enum) > 0 && coerced != nil {
			if s, ok := coerced.(string); !ok || !containsString(field.Enum, s) {
				errs = append(errs, ErrorDetail{
					Field:   key,
					Rule:    "enum",
					Message: fmt.Sprintf("%s must be one of: %s", key, strings.Join(field.Enum, ", ")),
				})
				continue
			}
		}

		fields[key] = coerced
	}

	if isCreate {
		for _, f := range entity.Fields {
			if !f.Required || f.IsAuto() || isGeneratedPK(entity, f.Name) {
				continue
			}
			if v, ok := fields[f.Name]; !ok || v == nil {
				errs = append(errs, ErrorDetail{
					Field:   f.Name,
					Rule:    "required",
					Message: fmt.Sprintf("%s is required", f.Name),
				})
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return fields, nil
}

func coerceWriteValue(field *metadata.Field, val any) (any, error) {
	if val == nil {
		return nil, nil
	}

	switch field.Type {
	case "int", "bigint":
		switch v := val.(type) {
		case float64:
			if v != float64(int64(v)) {
				return nil, fmt.Errorf("%s must be an integer", field.Name)
			}
			return int64(v), nil
		case int, int64:
			return v, nil
		default:
			return nil, fmt.Errorf("%s must be an integer", field.Name)
		}
	case "decimal":
		switch v := val.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		default:
			return nil, fmt.Errorf("%s must be a number", field.Name)
		}
	case "boolean":
		if v, ok := val.(bool); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%s must be a boolean", field.Name)
	case "string", "text", "uuid", "timestamp", "date":
		if v, ok := val.(string); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%s must be a string", field.Name)
	default:
		return val, nil
	}
}

func isGeneratedPK(entity *metadata.Entity, name string) bool {
	return name == entity.PrimaryKey.Field && entity.PrimaryKey.Generated
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
