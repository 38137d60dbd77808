package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kidney-story/internal/domain"

	"github.com/google/uuid"
)

var ErrReviewNotFound = fmt.Errorf("review %w", domain.ErrNotFound)

// ReviewFilter narrows review listings.
type ReviewFilter struct {
	ProductID *uuid.UUID
	UserID    *uuid.UUID
	Rating    int
}

type ReviewRepository interface {
	// Create returns domain.ErrAlreadyReviewed when the user already
	// reviewed the product.
	Create(ctx context.Context, review *domain.Review) error
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	List(ctx context.Context, f ReviewFilter) ([]domain.Review, error)
	Exists(ctx context.Context, productID, userID uuid.UUID) (bool, error)
}

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		review.ID, review.ProductID, review.UserID, review.Rating, review.Comment, review.CreatedAt, review.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "reviews_product_user_key") {
			return domain.ErrAlreadyReviewed
		}
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *reviewRepository) Update(ctx context.Context, review *domain.Review) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE reviews SET rating = $2, comment = $3, updated_at = $4 WHERE id = $1`,
		review.ID, review.Rating, review.Comment, review.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return expectOneRow(result, ErrReviewNotFound)
}

func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return expectOneRow(result, ErrReviewNotFound)
}

const reviewColumns = `id, product_id, user_id, rating, comment, created_at, updated_at`

func scanReview(row interface{ Scan(...any) error }, review *domain.Review) error {
	return row.Scan(&review.ID, &review.ProductID, &review.UserID, &review.Rating,
		&review.Comment, &review.CreatedAt, &review.UpdatedAt)
}

func (r *reviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	review := &domain.Review{}
	err := scanReview(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id), review)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return review, nil
}

// List returns matching reviews, newest first.
func (r *reviewRepository) List(ctx context.Context, f ReviewFilter) ([]domain.Review, error) {
	var w filter
	if f.ProductID != nil {
		w.add("product_id = $%d", *f.ProductID)
	}
	if f.UserID != nil {
		w.add("user_id = $%d", *f.UserID)
	}
	if f.Rating != 0 {
		w.add("rating = $%d", f.Rating)
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews `+w.where()+` ORDER BY created_at DESC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var review domain.Review
		if err := scanReview(rows, &review); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}
	return reviews, nil
}

func (r *reviewRepository) Exists(ctx context.Context, productID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE product_id = $1 AND user_id = $2)`,
		productID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check review: %w", err)
	}
	return exists, nil
}
