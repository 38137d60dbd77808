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

var ErrOrderNotFound = fmt.Errorf("order %w", domain.ErrNotFound)

// OrderFilter narrows order listings. A nil UserID lists every user's orders.
type OrderFilter struct {
	UserID *uuid.UUID
	Status *domain.OrderStatus
}

type OrderRepository interface {
	// Create inserts the order and all of its items. Call it inside a
	// transaction so a failure part-way leaves nothing behind.
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, f OrderFilter, page Page) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	// HasPurchased reports whether any order of the user, in any status,
	// contains the product.
	HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	q := conn(ctx, r.db)

	_, err := q.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, shipping_address, contact_number, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, order.ID, order.UserID, order.Status, order.ShippingAddress, order.ContactNumber,
		order.TotalAmount, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		_, err := q.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.ID, order.ID, item.ProductID, item.Quantity, item.Price, item.CreatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

const orderColumns = `id, user_id, status, shipping_address, contact_number, total_amount, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(&order.ID, &order.UserID, &order.Status, &order.ShippingAddress,
		&order.ContactNumber, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt)
	return order, err
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	q := conn(ctx, r.db)

	order, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	items, err := r.loadItems(ctx, q, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = nonNilItems(items[order.ID])
	return order, nil
}

// List returns one page of orders, newest first.
func (r *orderRepository) List(ctx context.Context, f OrderFilter, page Page) ([]*domain.Order, int, error) {
	page = page.Normalize()

	var w filter
	if f.UserID != nil {
		w.add("user_id = $%d", *f.UserID)
	}
	if f.Status != nil {
		w.add("status = $%d", string(*f.Status))
	}

	q := conn(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders "+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		orderColumns, w.where(), w.next(), w.next()+1)
	rows, err := q.QueryContext(ctx, query, append(w.args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	ids := []uuid.UUID{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	items, err := r.loadItems(ctx, q, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, o := range orders {
		o.Items = nonNilItems(items[o.ID])
	}
	return orders, total, nil
}

func (r *orderRepository) loadItems(ctx context.Context, q DBTX, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	out := make(map[uuid.UUID][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.title, oi.quantity, oi.price, oi.created_at
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1::uuid[])
		ORDER BY oi.created_at ASC, oi.id
	`, idStrings(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductTitle,
			&item.Quantity, &item.Price, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		out[item.OrderID] = append(out[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return out, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return expectOneRow(result, ErrOrderNotFound)
}

func (r *orderRepository) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var purchased bool
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.user_id = $1 AND oi.product_id = $2
		)
	`, userID, productID).Scan(&purchased)
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return purchased, nil
}

func nonNilItems(items []domain.OrderItem) []domain.OrderItem {
	if items == nil {
		return []domain.OrderItem{}
	}
	return items
}
