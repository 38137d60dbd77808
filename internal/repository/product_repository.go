package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kidney-story/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", domain.ErrNotFound)
	ErrProductHasOrders = fmt.Errorf("%w: product is referenced by existing orders", domain.ErrConflict)
)

// ProductFilter narrows product listings. Nil and empty fields do not filter.
type ProductFilter struct {
	CategoryID *uuid.UUID
	InStock    *bool
	Tag        string
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	SortBy     string
	SortOrder  SortOrder
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, f ProductFilter, page Page) ([]*domain.Product, int, error)
	// SetTags replaces the whole tag set of the product.
	SetTags(ctx context.Context, productID uuid.UUID, tagIDs []uuid.UUID) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `p.id, p.title, p.description, p.image_url, p.category_id, p.price, p.in_stock,
	p.created_at, p.updated_at`

func scanProduct(row interface{ Scan(...any) error }, product *domain.Product) error {
	return row.Scan(
		&product.ID,
		&product.Title,
		&product.Description,
		&product.ImageURL,
		&product.CategoryID,
		&product.Price,
		&product.InStock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, title, description, image_url, category_id, price, in_stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Description,
		product.ImageURL,
		product.CategoryID,
		product.Price,
		product.InStock,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product in the database using parameterized queries
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET title = $2, description = $3, image_url = $4, category_id = $5,
		    price = $6, in_stock = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Description,
		product.ImageURL,
		product.CategoryID,
		product.Price,
		product.InStock,
		product.UpdatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

// Delete removes a product. Products that appear in orders are kept.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductHasOrders
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

// FindByID retrieves a product and its tags
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	q := conn(ctx, r.db)

	product := &domain.Product{}
	err := scanProduct(q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id), product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	tags, err := loadTags(ctx, q, "product_tags", "product_id", []uuid.UUID{product.ID})
	if err != nil {
		return nil, err
	}
	product.Tags = nonNilTags(tags[product.ID])

	return product, nil
}

// List retrieves products with filtering, pagination, and sorting
func (r *productRepository) List(ctx context.Context, f ProductFilter, page Page) ([]*domain.Product, int, error) {
	page = page.Normalize()

	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"title":      true,
		"price":      true,
		"created_at": true,
	}
	sortBy := f.SortBy
	if !validSortFields[sortBy] {
		sortBy = "title"
	}
	sortOrder := f.SortOrder
	if !sortOrder.valid() {
		sortOrder = SortOrderAsc
	}

	var w filter
	if f.CategoryID != nil {
		w.add("p.category_id = $%d", *f.CategoryID)
	}
	if f.InStock != nil {
		w.add("p.in_stock = $%d", *f.InStock)
	}
	if f.Tag != "" {
		w.add(`EXISTS (SELECT 1 FROM product_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.product_id = p.id AND t.name = LOWER($%d))`, f.Tag)
	}
	if f.Search != "" {
		w.add("(p.title ILIKE $%d OR p.description ILIKE $%d)", likePattern(f.Search))
	}
	if f.MinPrice != nil {
		w.add("p.price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		w.add("p.price <= $%d", *f.MaxPrice)
	}

	q := conn(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM products p "+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		%s
		ORDER BY p.%s %s, p.id
		LIMIT $%d OFFSET $%d
	`, productColumns, w.where(), sortBy, sortOrder, w.next(), w.next()+1)

	rows, err := q.QueryContext(ctx, query, append(w.args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	ids := []uuid.UUID{}
	for rows.Next() {
		product := &domain.Product{}
		if err := scanProduct(rows, product); err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
		ids = append(ids, product.ID)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	tags, err := loadTags(ctx, q, "product_tags", "product_id", ids)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range products {
		p.Tags = nonNilTags(tags[p.ID])
	}

	return products, total, nil
}

func (r *productRepository) SetTags(ctx context.Context, productID uuid.UUID, tagIDs []uuid.UUID) error {
	return replaceTags(ctx, conn(ctx, r.db), "product_tags", "product_id", productID, tagIDs)
}

func nonNilTags(tags []domain.Tag) []domain.Tag {
	if tags == nil {
		return []domain.Tag{}
	}
	return tags
}
