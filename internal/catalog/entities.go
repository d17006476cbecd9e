package catalog

import "bookstack-backend/internal/metadata"

// Entities returns the static entity definitions for the catalog.
func Entities() []*metadata.Entity {
	return []*metadata.Entity{
		{
			Name:       "authors",
			Table:      "authors",
			Resource:   "Author",
			PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "uuid", Generated: true},
			Fields: []metadata.Field{
				{Name: "id", Type: "uuid"},
				{Name: "name", Type: "string", Required: true},
				{Name: "bio", Type: "text", Nullable: true},
				{Name: "country", Type: "string", Nullable: true},
				{Name: "created_at", Type: "timestamp", Auto: "create"},
				{Name: "updated_at", Type: "timestamp", Auto: "update"},
			},
		},
		{
			Name:       "publishers",
			Table:      "publishers",
			Resource:   "Publisher",
			PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "uuid", Generated: true},
			Fields: []metadata.Field{
				{Name: "id", Type: "uuid"},
				{Name: "name", Type: "string", Required: true, Unique: true},
				{Name: "city", Type: "string", Nullable: true},
				{Name: "founded", Type: "int", Nullable: true},
				{Name: "created_at", Type: "timestamp", Auto: "create"},
				{Name: "updated_at", Type: "timestamp", Auto: "update"},
			},
		},
		{
			Name:       "categories",
			Table:      "categories",
			Resource:   "Category",
			PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "uuid", Generated: true},
			Fields: []metadata.Field{
				{Name: "id", Type: "uuid"},
				{Name: "name", Type: "string", Required: true, Unique: true},
				{Name: "description", Type: "text", Nullable: true},
				{Name: "created_at", Type: "timestamp", Auto: "create"},
				{Name: "updated_at", Type: "timestamp", Auto: "update"},
			},
		},
		{
			Name:       "books",
			Table:      "books",
			Resource:   "Book",
			PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "uuid", Generated: true},
			Fields: []metadata.Field{
				{Name: "id", Type: "uuid"},
				{Name: "title", Type: "string", Required: true},
				{Name: "author_id", Type: "uuid", Required: true},
				{Name: "publisher_id", Type: "uuid", Nullable: true},
				{Name: "category_id", Type: "uuid", Nullable: true},
				{Name: "isbn", Type: "string", Unique: true, Nullable: true},
				{Name: "price", Type: "decimal", Precision: 2, Nullable: true},
				{Name: "published_year", Type: "int", Nullable: true},
				{Name: "created_at", Type: "timestamp", Auto: "create"},
				{Name: "updated_at", Type: "timestamp", Auto: "update"},
			},
		},
		{
			Name:       "reviews",
			Table:      "reviews",
			Resource:   "Review",
			PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "uuid", Generated: true},
			Fields: []metadata.Field{
				{Name: "id", Type: "uuid"},
				{Name: "book_id", Type: "uuid", Required: true},
				{Name: "user_id", Type: "uuid", Required: true},
				{Name: "rating", Type: "int", Required: true},
				{Name: "body", Type: "text", Nullable: true},
				{Name: "created_at", Type: "timestamp", Auto: "create"},
				{Name: "updated_at", Type: "timestamp", Auto: "update"},
			},
		},
	}
}

// Relations returns the static relations between catalog entities.
func Relations() []*metadata.Relation {
	return []*metadata.Relation{
		{Name: "author_books", Type: "one_to_many", Source: "authors", Target: "books", SourceKey: "id", TargetKey: "author_id"},
		{Name: "publisher_books", Type: "one_to_many", Source: "publishers", Target: "books", SourceKey: "id", TargetKey: "publisher_id"},
		{Name: "category_books", Type: "one_to_many", Source: "categories", Target: "books", SourceKey: "id", TargetKey: "category_id"},
		{Name: "book_reviews", Type: "one_to_many", Source: "books", Target: "reviews", SourceKey: "id", TargetKey: "book_id"},
	}
}

// LoadMetadata populates a metadata registry with the catalog definitions.
func LoadMetadata(reg *metadata.Registry) {
	reg.Load(Entities(), Relations())
}
