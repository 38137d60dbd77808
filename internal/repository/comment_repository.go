package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"kidney-story/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCommentNotFound    = fmt.Errorf("comment %w", domain.ErrNotFound)
	ErrDiscussionNotFound = fmt.Errorf("discussion %w", domain.ErrNotFound)
)

// CommentRepository stores the nodes of one kind of reply tree. The same
// implementation backs blog comments, forum posts and story comments.
type CommentRepository interface {
	Kind() domain.DiscussionKind
	// Create returns domain.ErrParentMismatch when the parent is missing or
	// belongs to a different discussion.
	Create(ctx context.Context, c *domain.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error)
	// ListByDiscussion returns every node of the discussion in creation
	// order; callers build the tree from it.
	ListByDiscussion(ctx context.Context, discussionID uuid.UUID) ([]domain.Comment, error)
	ListTopLevel(ctx context.Context, discussionID uuid.UUID) ([]domain.Comment, error)
	ListReplies(ctx context.Context, parentID uuid.UUID) ([]domain.Comment, error)
	// Delete removes the node and, through the parent key, its whole subtree.
	Delete(ctx context.Context, id uuid.UUID) error
	CountByDiscussion(ctx context.Context, discussionID uuid.UUID) (int, error)
}

type commentTable struct {
	table     string
	column    string
	parentKey string
}

var commentTables = map[domain.DiscussionKind]commentTable{
	domain.KindBlog:  {table: "blog_comments", column: "blog_id", parentKey: "fk_blog_comments_parent"},
	domain.KindForum: {table: "forum_posts", column: "thread_id", parentKey: "fk_forum_posts_parent"},
	domain.KindStory: {table: "story_comments", column: "story_id", parentKey: "fk_story_comments_parent"},
}

type commentRepository struct {
	db   *sql.DB
	kind domain.DiscussionKind
	t    commentTable
}

// NewCommentRepository returns the repository for kind. It panics on an
// unknown kind, which is a wiring bug.
func NewCommentRepository(db *sql.DB, kind domain.DiscussionKind) CommentRepository {
	t, ok := commentTables[kind]
	if !ok {
		panic(fmt.Sprintf("repository: no comment table for kind %q", kind))
	}
	return &commentRepository{db: db, kind: kind, t: t}
}

func (r *commentRepository) Kind() domain.DiscussionKind {
	return r.kind
}

func (r *commentRepository) columns() string {
	return "id, " + r.t.column + ", user_id, content, parent_id, created_at, updated_at"
}

func (r *commentRepository) scan(row interface{ Scan(...any) error }) (domain.Comment, error) {
	c := domain.Comment{Kind: r.kind}
	err := row.Scan(&c.ID, &c.DiscussionID, &c.AuthorID, &c.Content, &c.ParentID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *commentRepository) Create(ctx context.Context, c *domain.Comment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, %s, user_id, content, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.t.table, r.t.column)

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		c.ID, c.DiscussionID, c.AuthorID, c.Content, c.ParentID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			switch constraint := pgConstraint(err); {
			case constraint == r.t.parentKey:
				return domain.ErrParentMismatch
			case strings.Contains(constraint, "user_id"):
				return ErrUserNotFound
			default:
				return ErrDiscussionNotFound
			}
		}
		return fmt.Errorf("failed to create %s comment: %w", r.kind, err)
	}
	c.Kind = r.kind
	return nil
}

func (r *commentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, r.columns(), r.t.table)
	c, err := r.scan(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to find %s comment: %w", r.kind, err)
	}
	return &c, nil
}

func (r *commentRepository) ListByDiscussion(ctx context.Context, discussionID uuid.UUID) ([]domain.Comment, error) {
	return r.list(ctx, r.t.column+" = $1", discussionID)
}

func (r *commentRepository) ListTopLevel(ctx context.Context, discussionID uuid.UUID) ([]domain.Comment, error) {
	return r.list(ctx, r.t.column+" = $1 AND parent_id IS NULL", discussionID)
}

func (r *commentRepository) ListReplies(ctx context.Context, parentID uuid.UUID) ([]domain.Comment, error) {
	return r.list(ctx, "parent_id = $1", parentID)
}

func (r *commentRepository) list(ctx context.Context, cond string, arg any) ([]domain.Comment, error) {
	order := "ASC"
	if r.kind.NewestFirst() {
		order = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY created_at %s, id %s`,
		r.columns(), r.t.table, cond, order, order)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s comments: %w", r.kind, err)
	}
	defer rows.Close()

	comments := []domain.Comment{}
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s comment: %w", r.kind, err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s comments: %w", r.kind, err)
	}
	return comments, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.t.table), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s comment: %w", r.kind, err)
	}
	return expectOneRow(result, ErrCommentNotFound)
}

func (r *commentRepository) CountByDiscussion(ctx context.Context, discussionID uuid.UUID) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, r.t.table, r.t.column)
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, discussionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s comments: %w", r.kind, err)
	}
	return n, nil
}
