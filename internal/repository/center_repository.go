package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kidney-story/internal/domain"

	"github.com/google/uuid"
)

var ErrCenterNotFound = fmt.Errorf("dialysis center %w", domain.ErrNotFound)

// CenterFilter narrows the dialysis-center directory.
type CenterFilter struct {
	City   string
	State  string
	Type   string
	Search string
}

type CenterRepository interface {
	Create(ctx context.Context, c *domain.DialysisCenter) error
	Update(ctx context.Context, c *domain.DialysisCenter) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.DialysisCenter, error)
	List(ctx context.Context, f CenterFilter, page Page) ([]*domain.DialysisCenter, int, error)
	// ExistsByName reports whether a center with name exists in city.
	ExistsByName(ctx context.Context, name, city string) (bool, error)
}

type centerRepository struct {
	db *sql.DB
}

func NewCenterRepository(db *sql.DB) CenterRepository {
	return &centerRepository{db: db}
}

const centerColumns = `id, name, address, city, state, contact, email, website, type, description, image_url,
	latitude, longitude, created_at, updated_at`

func scanCenter(row interface{ Scan(...any) error }) (*domain.DialysisCenter, error) {
	c := &domain.DialysisCenter{}
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.City, &c.State, &c.Contact, &c.Email, &c.Website,
		&c.Type, &c.Description, &c.ImageURL, &c.Latitude, &c.Longitude, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *centerRepository) Create(ctx context.Context, c *domain.DialysisCenter) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO dialysis_centers (`+centerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, c.ID, c.Name, c.Address, c.City, c.State, c.Contact, c.Email, c.Website, c.Type,
		c.Description, c.ImageURL, c.Latitude, c.Longitude, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create dialysis center: %w", err)
	}
	return nil
}

func (r *centerRepository) Update(ctx context.Context, c *domain.DialysisCenter) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE dialysis_centers
		SET name = $2, address = $3, city = $4, state = $5, contact = $6, email = $7, website = $8,
		    type = $9, description = $10, image_url = $11, latitude = $12, longitude = $13, updated_at = $14
		WHERE id = $1
	`, c.ID, c.Name, c.Address, c.City, c.State, c.Contact, c.Email, c.Website, c.Type,
		c.Description, c.ImageURL, c.Latitude, c.Longitude, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update dialysis center: %w", err)
	}
	return expectOneRow(result, ErrCenterNotFound)
}

func (r *centerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM dialysis_centers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dialysis center: %w", err)
	}
	return expectOneRow(result, ErrCenterNotFound)
}

func (r *centerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.DialysisCenter, error) {
	c, err := scanCenter(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+centerColumns+` FROM dialysis_centers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCenterNotFound
		}
		return nil, fmt.Errorf("failed to find dialysis center: %w", err)
	}
	return c, nil
}

// List returns one page of centers ordered by city, then name.
func (r *centerRepository) List(ctx context.Context, f CenterFilter, page Page) ([]*domain.DialysisCenter, int, error) {
	page = page.Normalize()

	var w filter
	if f.City != "" {
		w.add("LOWER(city) = LOWER($%d)", f.City)
	}
	if f.State != "" {
		w.add("LOWER(state) = LOWER($%d)", f.State)
	}
	if f.Type != "" {
		w.add("type = $%d", f.Type)
	}
	if f.Search != "" {
		w.add("(name ILIKE $%d OR address ILIKE $%d OR city ILIKE $%d OR state ILIKE $%d)", likePattern(f.Search))
	}

	q := conn(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM dialysis_centers "+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count dialysis centers: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM dialysis_centers %s ORDER BY city ASC, name ASC, id LIMIT $%d OFFSET $%d`,
		centerColumns, w.where(), w.next(), w.next()+1)
	rows, err := q.QueryContext(ctx, query, append(w.args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dialysis centers: %w", err)
	}
	defer rows.Close()

	centers := []*domain.DialysisCenter{}
	for rows.Next() {
		c, err := scanCenter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan dialysis center: %w", err)
		}
		centers = append(centers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating dialysis centers: %w", err)
	}
	return centers, total, nil
}

func (r *centerRepository) ExistsByName(ctx context.Context, name, city string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM dialysis_centers WHERE LOWER(name) = LOWER($1) AND LOWER(city) = LOWER($2))`,
		name, city).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check dialysis center: %w", err)
	}
	return exists, nil
}
