package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kidney-story/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound     = fmt.Errorf("cart %w", domain.ErrNotFound)
	ErrCartItemNotFound = fmt.Errorf("cart item %w", domain.ErrNotFound)
)

// CartRepository persists carts and their lines. Items are always returned
// with their live product.
type CartRepository interface {
	// GetOrCreate returns the user's cart, creating an empty one on first
	// access. Concurrent first accesses converge on the same row.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// FindByUserForUpdate locks the user's cart row and its current lines
	// until the surrounding transaction ends. Returns ErrCartNotFound when
	// the user has no cart.
	FindByUserForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// AddItem inserts a line or adds quantity to the existing line for the
	// same product.
	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, itemID uuid.UUID) error
	// ClearItems deletes every line of the cart; the cart row remains.
	ClearItems(ctx context.Context, cartID uuid.UUID) (int64, error)
	// RemoveItems deletes the given lines of the cart and leaves any line
	// added since they were read.
	RemoveItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) (int64, error)
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	q := conn(ctx, r.db)
	now := time.Now()

	_, err := q.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID, now)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return r.find(ctx, q, userID, false)
}

func (r *cartRepository) FindByUserForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return r.find(ctx, conn(ctx, r.db), userID, true)
}

func (r *cartRepository) find(ctx context.Context, q DBTX, userID uuid.UUID, lock bool) (*domain.Cart, error) {
	query := `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	cart := &domain.Cart{}
	err := q.QueryRowContext(ctx, query, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	items, err := r.items(ctx, q, cart.ID, lock)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

const cartItemSelect = `
	SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at, ` + productColumns + `
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
`

func scanCartItem(row interface{ Scan(...any) error }) (domain.CartItem, error) {
	var item domain.CartItem
	p := &item.Product
	err := row.Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
		&p.ID, &p.Title, &p.Description, &p.ImageURL, &p.CategoryID, &p.Price, &p.InStock, &p.CreatedAt, &p.UpdatedAt,
	)
	return item, err
}

// items loads the lines of a cart. With lock set the lines stay locked, so
// a concurrent quantity merge waits for the locking transaction.
func (r *cartRepository) items(ctx context.Context, q DBTX, cartID uuid.UUID, lock bool) ([]domain.CartItem, error) {
	query := cartItemSelect + ` WHERE ci.cart_id = $1 ORDER BY ci.created_at ASC, ci.id`
	if lock {
		query += ` FOR UPDATE OF ci`
	}
	rows, err := q.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

func (r *cartRepository) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	q := conn(ctx, r.db)
	now := time.Now()

	var itemID uuid.UUID
	err := q.QueryRowContext(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
		RETURNING id
	`, uuid.New(), cartID, productID, quantity, now).Scan(&itemID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return r.FindItem(ctx, itemID)
}

func (r *cartRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error) {
	item, err := scanCartItem(conn(ctx, r.db).QueryRowContext(ctx, cartItemSelect+` WHERE ci.id = $1`, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}
	return &item, nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE cart_items SET quantity = $2, updated_at = $3 WHERE id = $1`, itemID, quantity, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return expectOneRow(result, ErrCartItemNotFound)
}

func (r *cartRepository) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return expectOneRow(result, ErrCartItemNotFound)
}

func (r *cartRepository) RemoveItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = id.String()
	}

	result, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND id = ANY($2::uuid[])`, cartID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to remove cart items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
