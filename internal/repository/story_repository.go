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

var ErrStoryNotFound = fmt.Errorf("story %w", domain.ErrNotFound)

// StoryFilter narrows story listings. Viewer only drives the is_liked flag.
type StoryFilter struct {
	Viewer uuid.UUID
	UserID *uuid.UUID
	Tag    string
	Search string
}

type StoryRepository interface {
	Create(ctx context.Context, story *domain.Story) error
	Update(ctx context.Context, story *domain.Story) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id, viewer uuid.UUID) (*domain.Story, error)
	List(ctx context.Context, f StoryFilter, page Page) ([]*domain.Story, int, error)
	// Trending returns up to limit stories created after since, ranked by
	// views, then likes, then comments.
	Trending(ctx context.Context, viewer uuid.UUID, since time.Time, limit int) ([]*domain.Story, error)
	// ToggleLike likes the story for the user, or unlikes it when already
	// liked. It returns the resulting state and like count.
	ToggleLike(ctx context.Context, storyID, userID uuid.UUID) (liked bool, count int, err error)
	IncrementViews(ctx context.Context, id uuid.UUID) (int, error)
	SetTags(ctx context.Context, storyID uuid.UUID, tagIDs []uuid.UUID) error
}

type storyRepository struct {
	db *sql.DB
}

func NewStoryRepository(db *sql.DB) StoryRepository {
	return &storyRepository{db: db}
}

// storySelect renders the story projection with the viewer bound to
// positional argument viewerArg.
func storySelect(viewerArg int) string {
	return fmt.Sprintf(`
		SELECT s.id, s.title, s.body, s.image_url, s.user_id, s.views,
		       (SELECT COUNT(*) FROM story_likes l WHERE l.story_id = s.id) AS like_count,
		       (SELECT COUNT(*) FROM story_comments c WHERE c.story_id = s.id) AS comment_count,
		       EXISTS (SELECT 1 FROM story_likes l WHERE l.story_id = s.id AND l.user_id = $%d),
		       s.created_at, s.updated_at
		FROM stories s
	`, viewerArg)
}

func scanStory(row interface{ Scan(...any) error }) (*domain.Story, error) {
	s := &domain.Story{}
	err := row.Scan(&s.ID, &s.Title, &s.Body, &s.ImageURL, &s.UserID, &s.Views,
		&s.LikeCount, &s.CommentCount, &s.IsLiked, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *storyRepository) Create(ctx context.Context, story *domain.Story) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO stories (id, title, body, image_url, user_id, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`, story.ID, story.Title, story.Body, story.ImageURL, story.UserID, story.CreatedAt, story.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create story: %w", err)
	}
	return nil
}

func (r *storyRepository) Update(ctx context.Context, story *domain.Story) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE stories SET title = $2, body = $3, image_url = $4, updated_at = $5 WHERE id = $1`,
		story.ID, story.Title, story.Body, story.ImageURL, story.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	return expectOneRow(result, ErrStoryNotFound)
}

func (r *storyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return expectOneRow(result, ErrStoryNotFound)
}

func (r *storyRepository) FindByID(ctx context.Context, id, viewer uuid.UUID) (*domain.Story, error) {
	q := conn(ctx, r.db)

	story, err := scanStory(q.QueryRowContext(ctx, storySelect(2)+` WHERE s.id = $1`, id, viewer))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStoryNotFound
		}
		return nil, fmt.Errorf("failed to find story: %w", err)
	}

	if err := r.attachTags(ctx, q, []*domain.Story{story}); err != nil {
		return nil, err
	}
	return story, nil
}

// List returns one page of stories, newest first.
func (r *storyRepository) List(ctx context.Context, f StoryFilter, page Page) ([]*domain.Story, int, error) {
	page = page.Normalize()

	var w filter
	if f.UserID != nil {
		w.add("s.user_id = $%d", *f.UserID)
	}
	if f.Tag != "" {
		w.add(`EXISTS (SELECT 1 FROM story_tags st JOIN tags t ON t.id = st.tag_id
			WHERE st.story_id = s.id AND t.name = LOWER($%d))`, f.Tag)
	}
	if f.Search != "" {
		w.add("(s.title ILIKE $%d OR s.body ILIKE $%d)", likePattern(f.Search))
	}

	q := conn(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM stories s "+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count stories: %w", err)
	}

	n := w.next()
	query := fmt.Sprintf(`%s %s ORDER BY s.created_at DESC, s.id LIMIT $%d OFFSET $%d`,
		storySelect(n), w.where(), n+1, n+2)
	stories, err := r.query(ctx, q, query, append(w.args, f.Viewer, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return stories, total, nil
}

func (r *storyRepository) Trending(ctx context.Context, viewer uuid.UUID, since time.Time, limit int) ([]*domain.Story, error) {
	query := storySelect(1) + `
		WHERE s.created_at >= $2
		ORDER BY s.views DESC, like_count DESC, comment_count DESC, s.id
		LIMIT $3
	`
	return r.query(ctx, conn(ctx, r.db), query, viewer, since, limit)
}

func (r *storyRepository) query(ctx context.Context, q DBTX, query string, args ...any) ([]*domain.Story, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	stories := []*domain.Story{}
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stories: %w", err)
	}

	if err := r.attachTags(ctx, q, stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *storyRepository) attachTags(ctx context.Context, q DBTX, stories []*domain.Story) error {
	ids := make([]uuid.UUID, len(stories))
	for i, s := range stories {
		ids[i] = s.ID
	}
	tags, err := loadTags(ctx, q, "story_tags", "story_id", ids)
	if err != nil {
		return err
	}
	for _, s := range stories {
		s.Tags = nonNilTags(tags[s.ID])
	}
	return nil
}

func (r *storyRepository) ToggleLike(ctx context.Context, storyID, userID uuid.UUID) (bool, int, error) {
	q := conn(ctx, r.db)

	var liked bool
	err := q.QueryRowContext(ctx, `
		WITH removed AS (
			DELETE FROM story_likes WHERE story_id = $1 AND user_id = $2 RETURNING 1
		), added AS (
			INSERT INTO story_likes (story_id, user_id, created_at)
			SELECT $1, $2, $3 WHERE NOT EXISTS (SELECT 1 FROM removed)
			ON CONFLICT DO NOTHING
			RETURNING 1
		)
		SELECT EXISTS (SELECT 1 FROM added)
	`, storyID, userID, time.Now()).Scan(&liked)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, 0, ErrStoryNotFound
		}
		return false, 0, fmt.Errorf("failed to toggle like: %w", err)
	}

	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM story_likes WHERE story_id = $1`, storyID).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return liked, count, nil
}

func (r *storyRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	return incrementViews(ctx, conn(ctx, r.db), "stories", id, ErrStoryNotFound)
}

func (r *storyRepository) SetTags(ctx context.Context, storyID uuid.UUID, tagIDs []uuid.UUID) error {
	return replaceTags(ctx, conn(ctx, r.db), "story_tags", "story_id", storyID, tagIDs)
}
