package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kidney-story/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrForumCategoryNotFound      = fmt.Errorf("forum category %w", domain.ErrNotFound)
	ErrForumCategoryAlreadyExists = fmt.Errorf("%w: forum category already exists", domain.ErrConflict)
	ErrThreadNotFound             = fmt.Errorf("thread %w", domain.ErrNotFound)
	ErrReportNotFound             = fmt.Errorf("report %w", domain.ErrNotFound)
)

// ThreadFilter narrows thread listings.
type ThreadFilter struct {
	CategoryID *uuid.UUID
	UserID     *uuid.UUID
	Search     string
}

// ForumRepository stores forum categories, threads and moderation reports.
// Posts live in the forum CommentRepository.
type ForumRepository interface {
	CreateCategory(ctx context.Context, c *domain.ForumCategory) error
	UpdateCategory(ctx context.Context, c *domain.ForumCategory) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	FindCategory(ctx context.Context, id uuid.UUID) (*domain.ForumCategory, error)
	ListCategories(ctx context.Context) ([]domain.ForumCategory, error)

	CreateThread(ctx context.Context, t *domain.ForumThread) error
	UpdateThread(ctx context.Context, t *domain.ForumThread) error
	DeleteThread(ctx context.Context, id uuid.UUID) error
	FindThread(ctx context.Context, id uuid.UUID) (*domain.ForumThread, error)
	// ListThreads orders pinned threads first, then newest first.
	ListThreads(ctx context.Context, f ThreadFilter, page Page) ([]*domain.ForumThread, int, error)
	// TogglePinned and ToggleClosed flip the flag and return the new value.
	TogglePinned(ctx context.Context, id uuid.UUID) (bool, error)
	ToggleClosed(ctx context.Context, id uuid.UUID) (bool, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (int, error)

	CreateReport(ctx context.Context, r *domain.ReportedContent) error
	FindReport(ctx context.Context, id uuid.UUID) (*domain.ReportedContent, error)
	ListReports(ctx context.Context, status string) ([]domain.ReportedContent, error)
	UpdateReportStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteReport(ctx context.Context, id uuid.UUID) error
}

type forumRepository struct {
	db *sql.DB
}

func NewForumRepository(db *sql.DB) ForumRepository {
	return &forumRepository{db: db}
}

const forumCategorySelect = `
	SELECT fc.id, fc.name, fc.description,
	       (SELECT COUNT(*) FROM forum_threads t WHERE t.category_id = fc.id),
	       fc.created_at, fc.updated_at
	FROM forum_categories fc
`

func scanForumCategory(row interface{ Scan(...any) error }, c *domain.ForumCategory) error {
	return row.Scan(&c.ID, &c.Name, &c.Description, &c.ThreadCount, &c.CreatedAt, &c.UpdatedAt)
}

func (r *forumRepository) CreateCategory(ctx context.Context, c *domain.ForumCategory) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO forum_categories (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "forum_categories_name_key") {
			return ErrForumCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create forum category: %w", err)
	}
	return nil
}

func (r *forumRepository) UpdateCategory(ctx context.Context, c *domain.ForumCategory) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE forum_categories SET name = $2, description = $3, updated_at = $4 WHERE id = $1`,
		c.ID, c.Name, c.Description, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "forum_categories_name_key") {
			return ErrForumCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update forum category: %w", err)
	}
	return expectOneRow(result, ErrForumCategoryNotFound)
}

func (r *forumRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM forum_categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete forum category: %w", err)
	}
	return expectOneRow(result, ErrForumCategoryNotFound)
}

func (r *forumRepository) FindCategory(ctx context.Context, id uuid.UUID) (*domain.ForumCategory, error) {
	c := &domain.ForumCategory{}
	if err := scanForumCategory(conn(ctx, r.db).QueryRowContext(ctx, forumCategorySelect+` WHERE fc.id = $1`, id), c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrForumCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find forum category: %w", err)
	}
	return c, nil
}

func (r *forumRepository) ListCategories(ctx context.Context) ([]domain.ForumCategory, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, forumCategorySelect+` ORDER BY fc.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list forum categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.ForumCategory{}
	for rows.Next() {
		var c domain.ForumCategory
		if err := scanForumCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan forum category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forum categories: %w", err)
	}
	return categories, nil
}

const threadSelect = `
	SELECT t.id, t.title, t.category_id, t.user_id, t.is_pinned, t.is_closed, t.views,
	       (SELECT COUNT(*) FROM forum_posts p WHERE p.thread_id = t.id),
	       (SELECT MAX(p.created_at) FROM forum_posts p WHERE p.thread_id = t.id),
	       t.created_at, t.updated_at
	FROM forum_threads t
`

func scanThread(row interface{ Scan(...any) error }) (*domain.ForumThread, error) {
	t := &domain.ForumThread{}
	var lastPost sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &t.CategoryID, &t.UserID, &t.IsPinned, &t.IsClosed, &t.Views,
		&t.PostCount, &lastPost, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastPost.Valid {
		t.LastPostAt = &lastPost.Time
	}
	return t, nil
}

func (r *forumRepository) CreateThread(ctx context.Context, t *domain.ForumThread) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO forum_threads (id, title, category_id, user_id, is_pinned, is_closed, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
	`, t.ID, t.Title, t.CategoryID, t.UserID, t.IsPinned, t.IsClosed, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrForumCategoryNotFound
		}
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

func (r *forumRepository) UpdateThread(ctx context.Context, t *domain.ForumThread) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE forum_threads SET title = $2, category_id = $3, updated_at = $4 WHERE id = $1`,
		t.ID, t.Title, t.CategoryID, t.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrForumCategoryNotFound
		}
		return fmt.Errorf("failed to update thread: %w", err)
	}
	return expectOneRow(result, ErrThreadNotFound)
}

func (r *forumRepository) DeleteThread(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM forum_threads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return expectOneRow(result, ErrThreadNotFound)
}

func (r *forumRepository) FindThread(ctx context.Context, id uuid.UUID) (*domain.ForumThread, error) {
	t, err := scanThread(conn(ctx, r.db).QueryRowContext(ctx, threadSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to find thread: %w", err)
	}
	return t, nil
}

func (r *forumRepository) ListThreads(ctx context.Context, f ThreadFilter, page Page) ([]*domain.ForumThread, int, error) {
	page = page.Normalize()

	var w filter
	if f.CategoryID != nil {
		w.add("t.category_id = $%d", *f.CategoryID)
	}
	if f.UserID != nil {
		w.add("t.user_id = $%d", *f.UserID)
	}
	if f.Search != "" {
		w.add("t.title ILIKE $%d", likePattern(f.Search))
	}

	q := conn(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM forum_threads t "+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count threads: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY t.is_pinned DESC, t.created_at DESC, t.id LIMIT $%d OFFSET $%d`,
		threadSelect, w.where(), w.next(), w.next()+1)
	rows, err := q.QueryContext(ctx, query, append(w.args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	threads := []*domain.ForumThread{}
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating threads: %w", err)
	}
	return threads, total, nil
}

func (r *forumRepository) TogglePinned(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.toggle(ctx, id, "is_pinned")
}

func (r *forumRepository) ToggleClosed(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.toggle(ctx, id, "is_closed")
}

func (r *forumRepository) toggle(ctx context.Context, id uuid.UUID, column string) (bool, error) {
	var value bool
	query := fmt.Sprintf(`UPDATE forum_threads SET %[1]s = NOT %[1]s WHERE id = $1 RETURNING %[1]s`, column)
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrThreadNotFound
		}
		return false, fmt.Errorf("failed to toggle %s: %w", column, err)
	}
	return value, nil
}

func (r *forumRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	return incrementViews(ctx, conn(ctx, r.db), "forum_threads", id, ErrThreadNotFound)
}

const reportColumns = `id, content_type, content_id, reported_by, reason, description, status, created_at, updated_at`

func scanReport(row interface{ Scan(...any) error }, rc *domain.ReportedContent) error {
	return row.Scan(&rc.ID, &rc.ContentType, &rc.ContentID, &rc.ReportedBy, &rc.Reason,
		&rc.Description, &rc.Status, &rc.CreatedAt, &rc.UpdatedAt)
}

func (r *forumRepository) CreateReport(ctx context.Context, rc *domain.ReportedContent) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO reported_content (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rc.ID, rc.ContentType, rc.ContentID, rc.ReportedBy, rc.Reason, rc.Description, rc.Status, rc.CreatedAt, rc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *forumRepository) FindReport(ctx context.Context, id uuid.UUID) (*domain.ReportedContent, error) {
	rc := &domain.ReportedContent{}
	err := scanReport(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reported_content WHERE id = $1`, id), rc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to find report: %w", err)
	}
	return rc, nil
}

// ListReports returns reports newest first, optionally narrowed to one status.
func (r *forumRepository) ListReports(ctx context.Context, status string) ([]domain.ReportedContent, error) {
	var w filter
	if status != "" {
		w.add("status = $%d", status)
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reported_content `+w.where()+` ORDER BY created_at DESC, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []domain.ReportedContent{}
	for rows.Next() {
		var rc domain.ReportedContent
		if err := scanReport(rows, &rc); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

func (r *forumRepository) UpdateReportStatus(ctx context.Context, id uuid.UUID, status string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE reported_content SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	return expectOneRow(result, ErrReportNotFound)
}

func (r *forumRepository) DeleteReport(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM reported_content WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return expectOneRow(result, ErrReportNotFound)
}
