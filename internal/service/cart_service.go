package service

import (
	"context"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"

	"github.com/google/uuid"
)

// CartService manages the single basket of each user. Totals are always
// computed from live product prices.
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// AddItem merges into an existing line for the same product by adding
	// quantities.
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository) CartService {
	return &cartService{carts: carts, products: products}
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return s.carts.GetOrCreate(ctx, userID)
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.InStock {
		return nil, domain.ErrOutOfStock
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.carts.AddItem(ctx, cart.ID, productID, quantity)
	if err != nil {
		return nil, err
	}
	item.Product = *product
	return item, nil
}

func (s *cartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	item, err := s.ownItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if _, err := s.ownItem(ctx, userID, itemID); err != nil {
		return err
	}
	return s.carts.RemoveItem(ctx, itemID)
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	_, err = s.carts.ClearItems(ctx, cart.ID)
	return err
}

// ownItem loads an item of the user's cart. Items of other carts are
// reported as missing.
func (s *cartService) ownItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.CartItem, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.carts.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.CartID != cart.ID {
		return nil, repository.ErrCartItemNotFound
	}
	return item, nil
}
