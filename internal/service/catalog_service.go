package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductInput carries the editable fields of a product. Tags replace the
// whole tag set.
type ProductInput struct {
	Title       string
	Description string
	ImageURL    string
	CategoryID  uuid.UUID
	Price       decimal.Decimal
	InStock     bool
	Tags        []string
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Invalid("title", "is required")
	}
	if in.CategoryID == uuid.Nil {
		return domain.Invalid("category_id", "is required")
	}
	if in.Price.IsNegative() {
		return domain.ErrInvalidPrice
	}
	return nil
}

// CatalogService defines the product catalog: categories, products, tags
// and verified-purchase reviews.
type CatalogService interface {
	CreateCategory(ctx context.Context, actor domain.Actor, name, description string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, actor domain.Actor, id uuid.UUID, name, description string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)

	CreateProduct(ctx context.Context, actor domain.Actor, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, actor domain.Actor, id uuid.UUID, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, f repository.ProductFilter, page repository.Page) ([]*domain.Product, int, error)
	ListTags(ctx context.Context, search string) ([]domain.Tag, error)

	// AddReview requires that the actor bought the product in any order and
	// has not reviewed it yet.
	AddReview(ctx context.Context, actor domain.Actor, productID uuid.UUID, rating int, comment string) (*domain.Review, error)
	UpdateReview(ctx context.Context, actor domain.Actor, reviewID uuid.UUID, rating int, comment string) (*domain.Review, error)
	DeleteReview(ctx context.Context, actor domain.Actor, reviewID uuid.UUID) error
	ListReviews(ctx context.Context, f repository.ReviewFilter) ([]domain.Review, error)
	AverageRating(ctx context.Context, productID uuid.UUID) (float64, error)
}

type catalogService struct {
	tx         repository.Transactor
	products   repository.ProductRepository
	categories repository.CategoryRepository
	tags       repository.TagRepository
	reviews    repository.ReviewRepository
	orders     repository.OrderRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	tx repository.Transactor,
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	tags repository.TagRepository,
	reviews repository.ReviewRepository,
	orders repository.OrderRepository,
) CatalogService {
	return &catalogService{
		tx:         tx,
		products:   products,
		categories: categories,
		tags:       tags,
		reviews:    reviews,
		orders:     orders,
	}
}

func (s *catalogService) CreateCategory(ctx context.Context, actor domain.Actor, name, description string) (*domain.Category, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}

	now := time.Now()
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, actor domain.Actor, id uuid.UUID, name, description string) (*domain.Category, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}

	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.Description = strings.TrimSpace(description)
	category.UpdatedAt = time.Now()

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}
	return s.categories.Delete(ctx, id)
}

func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categories.FindByID(ctx, id)
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

// CreateProduct stores the product and its tags in one transaction.
func (s *catalogService) CreateProduct(ctx context.Context, actor domain.Actor, in ProductInput) (*domain.Product, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		CreatedAt: now,
	}
	in.applyTo(product, now)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.categories.FindByID(ctx, in.CategoryID); err != nil {
			return err
		}
		if err := s.products.Create(ctx, product); err != nil {
			return err
		}
		return s.replaceTags(ctx, product, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, actor domain.Actor, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var product *domain.Product
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.products.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if product.CategoryID != in.CategoryID {
			if _, err := s.categories.FindByID(ctx, in.CategoryID); err != nil {
				return err
			}
		}
		in.applyTo(product, time.Now())
		if err := s.products.Update(ctx, product); err != nil {
			return err
		}
		return s.replaceTags(ctx, product, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (in ProductInput) applyTo(p *domain.Product, now time.Time) {
	p.Title = strings.TrimSpace(in.Title)
	p.Description = strings.TrimSpace(in.Description)
	p.ImageURL = strings.TrimSpace(in.ImageURL)
	p.CategoryID = in.CategoryID
	p.Price = in.Price
	p.InStock = in.InStock
	p.UpdatedAt = now
}

func (s *catalogService) replaceTags(ctx context.Context, product *domain.Product, names []string) error {
	tags, err := s.tags.EnsureAll(ctx, domain.NormalizeTagNames(names))
	if err != nil {
		return err
	}
	if err := s.products.SetTags(ctx, product.ID, tagIDs(tags)); err != nil {
		return err
	}
	product.Tags = tags
	return nil
}

func tagIDs(tags []domain.Tag) []uuid.UUID {
	ids := make([]uuid.UUID, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}

func (s *catalogService) DeleteProduct(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}
	return s.products.Delete(ctx, id)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *catalogService) ListProducts(ctx context.Context, f repository.ProductFilter, page repository.Page) ([]*domain.Product, int, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, 0, domain.Invalid("min_price", "must not exceed max_price")
	}
	return s.products.List(ctx, f, page)
}

func (s *catalogService) ListTags(ctx context.Context, search string) ([]domain.Tag, error) {
	return s.tags.List(ctx, strings.TrimSpace(search))
}

func (s *catalogService) AddReview(ctx context.Context, actor domain.Actor, productID uuid.UUID, rating int, comment string) (*domain.Review, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	purchased, err := s.orders.HasPurchased(ctx, actor.UserID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to check purchase: %w", err)
	}
	if !purchased {
		return nil, domain.ErrNotPurchased
	}

	exists, err := s.reviews.Exists(ctx, productID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check review: %w", err)
	}
	if exists {
		return nil, domain.ErrAlreadyReviewed
	}

	now := time.Now()
	review := &domain.Review{
		ID:        uuid.New(),
		ProductID: productID,
		UserID:    actor.UserID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The unique (product, user) key still guards a concurrent second review.
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *catalogService) UpdateReview(ctx context.Context, actor domain.Actor, reviewID uuid.UUID, rating int, comment string) (*domain.Review, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireOwnerOrAdmin(actor, review); err != nil {
		return nil, err
	}

	review.Rating = rating
	review.Comment = strings.TrimSpace(comment)
	review.UpdatedAt = time.Now()
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *catalogService) DeleteReview(ctx context.Context, actor domain.Actor, reviewID uuid.UUID) error {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if err := domain.RequireOwnerOrAdmin(actor, review); err != nil {
		return err
	}
	return s.reviews.Delete(ctx, reviewID)
}

func (s *catalogService) ListReviews(ctx context.Context, f repository.ReviewFilter) ([]domain.Review, error) {
	if f.Rating != 0 {
		if err := domain.ValidateRating(f.Rating); err != nil {
			return nil, err
		}
	}
	return s.reviews.List(ctx, f)
}

func (s *catalogService) AverageRating(ctx context.Context, productID uuid.UUID) (float64, error) {
	reviews, err := s.reviews.List(ctx, repository.ReviewFilter{ProductID: &productID})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return domain.AverageRating(reviews), nil
}
