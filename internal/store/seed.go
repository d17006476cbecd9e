package store

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

// Seed inserts sample catalog data when the authors table is empty.
// IDs are generated in application code so the same data works on both
// dialects.
func (s *Store) Seed(ctx context.Context) error {
	var count int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM authors").Scan(&count); err != nil {
		return fmt.Errorf("seed check: %w", err)
	}
	if count > 0 {
		return nil
	}

	ids := map[string]string{}
	for _, key := range []string{
		"morrison", "murakami", "lem",
		"knopf", "vintage",
		"fiction", "scifi",
		"beloved", "kafka", "solaris",
		"rev1", "rev2",
	} {
		ids[key] = uuid.New().String()
	}
	newID := func(key string) string { return ids[key] }

	inserts := []struct {
		table string
		cols  []string
		vals  []any
	}{
		{"authors", []string{"id", "name", "bio", "country"},
			[]any{newID("morrison"), "Toni Morrison", "Nobel laureate known for Beloved and Song of Solomon.", "US"}},
		{"authors", []string{"id", "name", "bio", "country"},
			[]any{newID("murakami"), "Haruki Murakami", "Japanese novelist blending realism and the surreal.", "JP"}},
		{"authors", []string{"id", "name", "bio", "country"},
			[]any{newID("lem"), "Stanislaw Lem", "Science fiction writer and essayist.", "PL"}},

		{"publishers", []string{"id", "name", "city", "founded"},
			[]any{newID("knopf"), "Alfred A. Knopf", "New York", 1915}},
		{"publishers", []string{"id", "name", "city", "founded"},
			[]any{newID("vintage"), "Vintage Books", "New York", 1954}},

		{"categories", []string{"id", "name", "description"},
			[]any{newID("fiction"), "Fiction", "Literary fiction"}},
		{"categories", []string{"id", "name", "description"},
			[]any{newID("scifi"), "Science Fiction", "Speculative and science fiction"}},

		{"books", []string{"id", "title", "author_id", "publisher_id", "category_id", "isbn", "price", "published_year"},
			[]any{newID("beloved"), "Beloved", ids["morrison"], ids["knopf"], ids["fiction"], "9781400033416", 16.00, 1987}},
		{"books", []string{"id", "title", "author_id", "publisher_id", "category_id", "isbn", "price", "published_year"},
			[]any{newID("kafka"), "Kafka on the Shore", ids["murakami"], ids["vintage"], ids["fiction"], "9781400079278", 17.00, 2002}},
		{"books", []string{"id", "title", "author_id", "publisher_id", "category_id", "isbn", "price", "published_year"},
			[]any{newID("solaris"), "Solaris", ids["lem"], ids["vintage"], ids["scifi"], "9780156027601", 15.00, 1961}},

		{"reviews", []string{"id", "book_id", "user_id", "rating", "body"},
			[]any{newID("rev1"), ids["beloved"], uuid.New().String(), 5, "Devastating and essential."}},
		{"reviews", []string{"id", "book_id", "user_id", "rating", "body"},
			[]any{newID("rev2"), ids["solaris"], uuid.New().String(), 4, "The ocean stays with you."}},
	}

	for _, ins := range inserts {
		pb := s.Dialect.NewParamBuilder()
		phs := make([]string, len(ins.vals))
		for i, v := range ins.vals {
			phs[i] = pb.Add(v)
		}
		sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			ins.table, strings.Join(ins.cols, ", "), strings.Join(phs, ", "))
		if _, err := s.DB.ExecContext(ctx, sqlStr, pb.Params()...); err != nil {
			return fmt.Errorf("seed %s: %w", ins.table, err)
		}
	}

	log.Printf("Seeded catalog sample data (%d rows)", len(inserts))
	return nil
}
