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
	ErrFeedbackNotFound = fmt.Errorf("feedback %w", domain.ErrNotFound)
	ErrResponseNotFound = fmt.Errorf("feedback response %w", domain.ErrNotFound)
)

// FeedbackFilter narrows feedback listings. A nil UserID lists everyone's.
type FeedbackFilter struct {
	UserID *uuid.UUID
	Type   string
	Status string
}

type FeedbackRepository interface {
	Create(ctx context.Context, f *domain.Feedback) error
	Update(ctx context.Context, f *domain.Feedback) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Feedback, error)
	List(ctx context.Context, f FeedbackFilter, page Page) ([]*domain.Feedback, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// CountSince counts feedback the user created at or after since.
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)

	CreateResponse(ctx context.Context, r *domain.FeedbackResponse) error
	FindResponse(ctx context.Context, id uuid.UUID) (*domain.FeedbackResponse, error)
	UpdateResponse(ctx context.Context, id uuid.UUID, content string) error
	DeleteResponse(ctx context.Context, id uuid.UUID) error
}

type feedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

const feedbackColumns = `id, title, description, type, status, user_id, created_at, updated_at`

func scanFeedback(row interface{ Scan(...any) error }) (*domain.Feedback, error) {
	f := &domain.Feedback{}
	err := row.Scan(&f.ID, &f.Title, &f.Description, &f.Type, &f.Status, &f.UserID, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (r *feedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO feedback (`+feedbackColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, f.ID, f.Title, f.Description, f.Type, f.Status, f.UserID, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

func (r *feedbackRepository) Update(ctx context.Context, f *domain.Feedback) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE feedback SET title = $2, description = $3, type = $4, updated_at = $5 WHERE id = $1`,
		f.ID, f.Title, f.Description, f.Type, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	return expectOneRow(result, ErrFeedbackNotFound)
}

func (r *feedbackRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	return expectOneRow(result, ErrFeedbackNotFound)
}

func (r *feedbackRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Feedback, error) {
	q := conn(ctx, r.db)

	f, err := scanFeedback(q.QueryRowContext(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to find feedback: %w", err)
	}

	responses, err := r.loadResponses(ctx, q, []uuid.UUID{f.ID})
	if err != nil {
		return nil, err
	}
	f.Responses = nonNilResponses(responses[f.ID])
	return f, nil
}

// List returns one page of feedback, newest first.
func (r *feedbackRepository) List(ctx context.Context, f FeedbackFilter, page Page) ([]*domain.Feedback, int, error) {
	page = page.Normalize()

	var w filter
	if f.UserID != nil {
		w.add("user_id = $%d", *f.UserID)
	}
	if f.Type != "" {
		w.add("type = $%d", f.Type)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}

	q := conn(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback "+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count feedback: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM feedback %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		feedbackColumns, w.where(), w.next(), w.next()+1)
	rows, err := q.QueryContext(ctx, query, append(w.args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	items := []*domain.Feedback{}
	ids := []uuid.UUID{}
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan feedback: %w", err)
		}
		items = append(items, fb)
		ids = append(ids, fb.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating feedback: %w", err)
	}

	responses, err := r.loadResponses(ctx, q, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, fb := range items {
		fb.Responses = nonNilResponses(responses[fb.ID])
	}
	return items, total, nil
}

func (r *feedbackRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE feedback SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update feedback status: %w", err)
	}
	return expectOneRow(result, ErrFeedbackNotFound)
}

func (r *feedbackRepository) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback WHERE user_id = $1 AND created_at >= $2`, userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return n, nil
}

const responseColumns = `id, feedback_id, user_id, content, created_at, updated_at`

func scanResponse(row interface{ Scan(...any) error }, resp *domain.FeedbackResponse) error {
	return row.Scan(&resp.ID, &resp.FeedbackID, &resp.UserID, &resp.Content, &resp.CreatedAt, &resp.UpdatedAt)
}

func (r *feedbackRepository) loadResponses(ctx context.Context, q DBTX, feedbackIDs []uuid.UUID) (map[uuid.UUID][]domain.FeedbackResponse, error) {
	out := make(map[uuid.UUID][]domain.FeedbackResponse, len(feedbackIDs))
	if len(feedbackIDs) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+responseColumns+`
		FROM feedback_responses
		WHERE feedback_id = ANY($1::uuid[])
		ORDER BY created_at ASC, id
	`, idStrings(feedbackIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback responses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var resp domain.FeedbackResponse
		if err := scanResponse(rows, &resp); err != nil {
			return nil, fmt.Errorf("failed to scan feedback response: %w", err)
		}
		out[resp.FeedbackID] = append(out[resp.FeedbackID], resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback responses: %w", err)
	}
	return out, nil
}

func (r *feedbackRepository) CreateResponse(ctx context.Context, resp *domain.FeedbackResponse) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO feedback_responses (`+responseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, resp.ID, resp.FeedbackID, resp.UserID, resp.Content, resp.CreatedAt, resp.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrFeedbackNotFound
		}
		return fmt.Errorf("failed to create feedback response: %w", err)
	}
	return nil
}

func (r *feedbackRepository) FindResponse(ctx context.Context, id uuid.UUID) (*domain.FeedbackResponse, error) {
	resp := &domain.FeedbackResponse{}
	err := scanResponse(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+responseColumns+` FROM feedback_responses WHERE id = $1`, id), resp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("failed to find feedback response: %w", err)
	}
	return resp, nil
}

func (r *feedbackRepository) UpdateResponse(ctx context.Context, id uuid.UUID, content string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE feedback_responses SET content = $2, updated_at = $3 WHERE id = $1`, id, content, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update feedback response: %w", err)
	}
	return expectOneRow(result, ErrResponseNotFound)
}

func (r *feedbackRepository) DeleteResponse(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM feedback_responses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback response: %w", err)
	}
	return expectOneRow(result, ErrResponseNotFound)
}

func nonNilResponses(rs []domain.FeedbackResponse) []domain.FeedbackResponse {
	if rs == nil {
		return []domain.FeedbackResponse{}
	}
	return rs
}
