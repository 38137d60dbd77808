package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kidney-story/internal/domain"

	"github.com/google/uuid"
)

// TagRepository stores the shared tag vocabulary of products, blogs and
// stories. Names are expected to be normalized by the caller.
type TagRepository interface {
	// GetOrCreate returns the tag called name, creating it if needed. Safe
	// under concurrent first use of the same name.
	GetOrCreate(ctx context.Context, name string) (*domain.Tag, error)
	// EnsureAll resolves every name with GetOrCreate semantics.
	EnsureAll(ctx context.Context, names []string) ([]domain.Tag, error)
	List(ctx context.Context, search string) ([]domain.Tag, error)
}

type tagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new instance of TagRepository
func NewTagRepository(db *sql.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) GetOrCreate(ctx context.Context, name string) (*domain.Tag, error) {
	// DO UPDATE rather than DO NOTHING so RETURNING yields the existing row.
	query := `
		INSERT INTO tags (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at
	`

	tag := &domain.Tag{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, uuid.New(), name, time.Now()).
		Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create tag %q: %w", name, err)
	}
	return tag, nil
}

func (r *tagRepository) EnsureAll(ctx context.Context, names []string) ([]domain.Tag, error) {
	tags := make([]domain.Tag, 0, len(names))
	for _, name := range names {
		tag, err := r.GetOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

// List returns all tags, or those whose name contains search.
func (r *tagRepository) List(ctx context.Context, search string) ([]domain.Tag, error) {
	var w filter
	if search != "" {
		w.add("name ILIKE $%d", likePattern(search))
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, name, created_at FROM tags `+w.where()+` ORDER BY name ASC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}
