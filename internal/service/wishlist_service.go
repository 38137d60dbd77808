package service

import (
	"context"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"

	"github.com/google/uuid"
)

type WishlistService interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Wishlist, error)
	AddProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.Wishlist, error)
	RemoveProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.Wishlist, error)
}

type wishlistService struct {
	wishlists repository.WishlistRepository
	products  repository.ProductRepository
}

func NewWishlistService(wishlists repository.WishlistRepository, products repository.ProductRepository) WishlistService {
	return &wishlistService{wishlists: wishlists, products: products}
}

func (s *wishlistService) Get(ctx context.Context, userID uuid.UUID) (*domain.Wishlist, error) {
	return s.wishlists.GetOrCreate(ctx, userID)
}

func (s *wishlistService) AddProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.Wishlist, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	w, err := s.wishlists.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.wishlists.AddProduct(ctx, w.ID, productID); err != nil {
		return nil, err
	}
	return s.wishlists.GetOrCreate(ctx, userID)
}

func (s *wishlistService) RemoveProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.Wishlist, error) {
	w, err := s.wishlists.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.wishlists.RemoveProduct(ctx, w.ID, productID); err != nil {
		return nil, err
	}
	return s.wishlists.GetOrCreate(ctx, userID)
}
