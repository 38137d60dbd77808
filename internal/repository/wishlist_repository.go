package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kidney-story/internal/domain"

	"github.com/google/uuid"
)

type WishlistRepository interface {
	// GetOrCreate returns the user's wishlist with its products, creating
	// an empty one on first access.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wishlist, error)
	// AddProduct returns domain.ErrAlreadyInWishlist when the product is
	// already present.
	AddProduct(ctx context.Context, wishlistID, productID uuid.UUID) error
	// RemoveProduct returns domain.ErrNotInWishlist when the product is
	// absent.
	RemoveProduct(ctx context.Context, wishlistID, productID uuid.UUID) error
}

type wishlistRepository struct {
	db *sql.DB
}

func NewWishlistRepository(db *sql.DB) WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Wishlist, error) {
	q := conn(ctx, r.db)
	now := time.Now()

	_, err := q.ExecContext(ctx, `
		INSERT INTO wishlists (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID, now)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create wishlist: %w", err)
	}

	w := &domain.Wishlist{}
	err = q.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM wishlists WHERE user_id = $1`, userID).
		Scan(&w.ID, &w.UserID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find wishlist: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM wishlist_products wp
		JOIN products p ON p.id = wp.product_id
		WHERE wp.wishlist_id = $1
		ORDER BY wp.added_at DESC, p.id
	`, w.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist products: %w", err)
	}
	defer rows.Close()

	w.Products = []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Tags = []domain.Tag{}
		w.Products = append(w.Products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishlist products: %w", err)
	}
	return w, nil
}

func (r *wishlistRepository) AddProduct(ctx context.Context, wishlistID, productID uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO wishlist_products (wishlist_id, product_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (wishlist_id, product_id) DO NOTHING
	`, wishlistID, productID, time.Now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to add product to wishlist: %w", err)
	}
	return expectOneRow(result, domain.ErrAlreadyInWishlist)
}

func (r *wishlistRepository) RemoveProduct(ctx context.Context, wishlistID, productID uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM wishlist_products WHERE wishlist_id = $1 AND product_id = $2`, wishlistID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove product from wishlist: %w", err)
	}
	return expectOneRow(result, domain.ErrNotInWishlist)
}
