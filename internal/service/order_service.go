package service

import (
	"context"
	"errors"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService turns carts into immutable orders and lets admins move them
// through their statuses.
type OrderService interface {
	// Checkout snapshots the user's cart into a PENDING order and empties
	// the cart, atomically. A concurrent checkout of the same user waits for
	// the cart row lock and then finds the cart empty.
	Checkout(ctx context.Context, userID uuid.UUID, details domain.CheckoutDetails) (*domain.Order, error)
	GetOrder(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error)
	// ListOrders returns every order for admins and the actor's own orders
	// otherwise, newest first.
	ListOrders(ctx context.Context, actor domain.Actor, status string, page repository.Page) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, orderID uuid.UUID, status string) (*domain.Order, error)
}

type orderService struct {
	tx     repository.Transactor
	carts  repository.CartRepository
	orders repository.OrderRepository
	logger *zap.Logger
}

func NewOrderService(
	tx repository.Transactor,
	carts repository.CartRepository,
	orders repository.OrderRepository,
	logger *zap.Logger,
) OrderService {
	return &orderService{tx: tx, carts: carts, orders: orders, logger: logger}
}

func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, details domain.CheckoutDetails) (*domain.Order, error) {
	if err := details.Validate(); err != nil {
		return nil, err
	}

	var order *domain.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.carts.FindByUserForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrCartNotFound) {
				return domain.ErrCartEmpty
			}
			return err
		}

		order, err = domain.NewOrderFromCart(cart, details, time.Now())
		if err != nil {
			return err
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(cart.Items))
		for i, item := range cart.Items {
			ids[i] = item.ID
		}
		_, err = s.carts.RemoveItems(ctx, cart.ID, ids)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrCartEmpty) {
			s.logger.Error("Checkout failed",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !domain.CanModify(actor, order) {
		// Other users' orders are not disclosed.
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor domain.Actor, status string, page repository.Page) ([]*domain.Order, int, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, 0, err
	}

	var f repository.OrderFilter
	if !actor.IsAdmin() {
		f.UserID = &actor.UserID
	}
	if status != "" {
		st, err := domain.ParseOrderStatus(status)
		if err != nil {
			return nil, 0, err
		}
		f.Status = &st
	}
	return s.orders.List(ctx, f, page)
}

// UpdateStatus lets an admin set any valid status; transitions between
// statuses are not restricted.
func (s *orderService) UpdateStatus(ctx context.Context, actor domain.Actor, orderID uuid.UUID, status string) (*domain.Order, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	st, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, orderID, st); err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(st)),
		zap.String("admin_id", actor.UserID.String()),
	)
	return s.orders.FindByID(ctx, orderID)
}
