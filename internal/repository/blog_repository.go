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
	ErrBlogNotFound = fmt.Errorf("blog %w", domain.ErrNotFound)
	ErrSlugTaken    = fmt.Errorf("%w: slug already in use", domain.ErrConflict)
)

// BlogFilter narrows blog listings. Viewer decides draft visibility:
// anonymous viewers see published blogs, users also see their own drafts,
// admins see everything.
type BlogFilter struct {
	Viewer   domain.Actor
	AuthorID *uuid.UUID
	Tag      string
	Search   string
}

type BlogRepository interface {
	// Create returns ErrSlugTaken when the slug is in use.
	Create(ctx context.Context, blog *domain.Blog) error
	Update(ctx context.Context, blog *domain.Blog) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Blog, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Blog, error)
	List(ctx context.Context, f BlogFilter, page Page) ([]*domain.Blog, int, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// IncrementViews bumps the view counter and returns its new value.
	IncrementViews(ctx context.Context, id uuid.UUID) (int, error)
	SetTags(ctx context.Context, blogID uuid.UUID, tagIDs []uuid.UUID) error
}

type blogRepository struct {
	db *sql.DB
}

func NewBlogRepository(db *sql.DB) BlogRepository {
	return &blogRepository{db: db}
}

const blogSelect = `
	SELECT b.id, b.title, b.slug, b.content, b.thumbnail_url, b.author_id, b.published, b.views,
	       (SELECT COUNT(*) FROM blog_comments c WHERE c.blog_id = b.id),
	       b.created_at, b.updated_at
	FROM blogs b
`

func scanBlog(row interface{ Scan(...any) error }) (*domain.Blog, error) {
	b := &domain.Blog{}
	err := row.Scan(&b.ID, &b.Title, &b.Slug, &b.Content, &b.ThumbnailURL, &b.AuthorID,
		&b.Published, &b.Views, &b.CommentCount, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *blogRepository) Create(ctx context.Context, blog *domain.Blog) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO blogs (id, title, slug, content, thumbnail_url, author_id, published, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9)
	`, blog.ID, blog.Title, blog.Slug, blog.Content, blog.ThumbnailURL, blog.AuthorID,
		blog.Published, blog.CreatedAt, blog.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "blogs_slug_key") {
			return ErrSlugTaken
		}
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create blog: %w", err)
	}
	return nil
}

func (r *blogRepository) Update(ctx context.Context, blog *domain.Blog) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE blogs
		SET title = $2, slug = $3, content = $4, thumbnail_url = $5, published = $6, updated_at = $7
		WHERE id = $1
	`, blog.ID, blog.Title, blog.Slug, blog.Content, blog.ThumbnailURL, blog.Published, blog.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "blogs_slug_key") {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to update blog: %w", err)
	}
	return expectOneRow(result, ErrBlogNotFound)
}

func (r *blogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blog: %w", err)
	}
	return expectOneRow(result, ErrBlogNotFound)
}

func (r *blogRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Blog, error) {
	return r.findOne(ctx, `b.id = $1`, id)
}

func (r *blogRepository) FindBySlug(ctx context.Context, slug string) (*domain.Blog, error) {
	return r.findOne(ctx, `b.slug = $1`, slug)
}

func (r *blogRepository) findOne(ctx context.Context, cond string, arg any) (*domain.Blog, error) {
	q := conn(ctx, r.db)

	blog, err := scanBlog(q.QueryRowContext(ctx, blogSelect+` WHERE `+cond, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBlogNotFound
		}
		return nil, fmt.Errorf("failed to find blog: %w", err)
	}

	tags, err := loadTags(ctx, q, "blog_tags", "blog_id", []uuid.UUID{blog.ID})
	if err != nil {
		return nil, err
	}
	blog.Tags = nonNilTags(tags[blog.ID])
	return blog, nil
}

// List returns one page of visible blogs, newest first.
func (r *blogRepository) List(ctx context.Context, f BlogFilter, page Page) ([]*domain.Blog, int, error) {
	page = page.Normalize()

	var w filter
	switch {
	case f.Viewer.IsAdmin():
	case f.Viewer.Authenticated():
		w.add("(b.published OR b.author_id = $%d)", f.Viewer.UserID)
	default:
		w.raw("b.published")
	}
	if f.AuthorID != nil {
		w.add("b.author_id = $%d", *f.AuthorID)
	}
	if f.Tag != "" {
		w.add(`EXISTS (SELECT 1 FROM blog_tags bt JOIN tags t ON t.id = bt.tag_id
			WHERE bt.blog_id = b.id AND t.name = LOWER($%d))`, f.Tag)
	}
	if f.Search != "" {
		w.add("(b.title ILIKE $%d OR b.content ILIKE $%d)", likePattern(f.Search))
	}

	q := conn(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM blogs b "+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count blogs: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY b.created_at DESC, b.id LIMIT $%d OFFSET $%d`,
		blogSelect, w.where(), w.next(), w.next()+1)
	rows, err := q.QueryContext(ctx, query, append(w.args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list blogs: %w", err)
	}
	defer rows.Close()

	blogs := []*domain.Blog{}
	ids := []uuid.UUID{}
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan blog: %w", err)
		}
		blogs = append(blogs, blog)
		ids = append(ids, blog.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating blogs: %w", err)
	}

	tags, err := loadTags(ctx, q, "blog_tags", "blog_id", ids)
	if err != nil {
		return nil, 0, err
	}
	for _, b := range blogs {
		b.Tags = nonNilTags(tags[b.ID])
	}
	return blogs, total, nil
}

func (r *blogRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM blogs WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

func (r *blogRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	return incrementViews(ctx, conn(ctx, r.db), "blogs", id, ErrBlogNotFound)
}

func (r *blogRepository) SetTags(ctx context.Context, blogID uuid.UUID, tagIDs []uuid.UUID) error {
	return replaceTags(ctx, conn(ctx, r.db), "blog_tags", "blog_id", blogID, tagIDs)
}

// incrementViews bumps the views column of table in a single statement.
func incrementViews(ctx context.Context, q DBTX, table string, id uuid.UUID, notFound error) (int, error) {
	var views int
	query := fmt.Sprintf(`UPDATE %s SET views = views + 1 WHERE id = $1 RETURNING views`, table)
	if err := q.QueryRowContext(ctx, query, id).Scan(&views); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFound
		}
		return 0, fmt.Errorf("failed to increment %s views: %w", table, err)
	}
	return views, nil
}
