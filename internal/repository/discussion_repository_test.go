//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"kidney-story/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBlog(t *testing.T, authorID uuid.UUID, published bool) *domain.Blog {
	t.Helper()
	now := time.Now()
	blog := &domain.Blog{
		ID:        uuid.New(),
		Title:     "Living with CKD",
		Slug:      "living-with-ckd-" + uuid.NewString()[:8],
		Content:   "content",
		AuthorID:  authorID,
		Published: published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, NewBlogRepository(testDB).Create(context.Background(), blog))
	return blog
}

func newComment(discussionID, authorID uuid.UUID, parent *uuid.UUID) *domain.Comment {
	now := time.Now()
	return &domain.Comment{
		ID:           uuid.New(),
		DiscussionID: discussionID,
		AuthorID:     authorID,
		Content:      "reply",
		ParentID:     parent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCommentRepository_ParentMustShareDiscussion(t *testing.T) {
	ctx := context.Background()
	repo := NewCommentRepository(testDB, domain.KindBlog)
	user := createTestUser(t, domain.RolePatient)
	blogA := createTestBlog(t, user.ID, true)
	blogB := createTestBlog(t, user.ID, true)

	root := newComment(blogA.ID, user.ID, nil)
	require.NoError(t, repo.Create(ctx, root))

	err := repo.Create(ctx, newComment(blogB.ID, user.ID, &root.ID))
	assert.ErrorIs(t, err, domain.ErrParentMismatch)

	missing := uuid.New()
	err = repo.Create(ctx, newComment(blogA.ID, user.ID, &missing))
	assert.ErrorIs(t, err, domain.ErrParentMismatch)

	err = repo.Create(ctx, newComment(uuid.New(), user.ID, nil))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommentRepository_DeleteCascadesToReplies(t *testing.T) {
	ctx := context.Background()
	repo := NewCommentRepository(testDB, domain.KindBlog)
	user := createTestUser(t, domain.RolePatient)
	blog := createTestBlog(t, user.ID, true)

	root := newComment(blog.ID, user.ID, nil)
	require.NoError(t, repo.Create(ctx, root))
	child := newComment(blog.ID, user.ID, &root.ID)
	require.NoError(t, repo.Create(ctx, child))
	grandchild := newComment(blog.ID, user.ID, &child.ID)
	require.NoError(t, repo.Create(ctx, grandchild))

	replies, err := repo.ListReplies(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)

	require.NoError(t, repo.Delete(ctx, root.ID))
	n, err := repo.CountByDiscussion(ctx, blog.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBlogRepository_Visibility(t *testing.T) {
	ctx := context.Background()
	repo := NewBlogRepository(testDB)
	author := createTestUser(t, domain.RolePatient)
	other := createTestUser(t, domain.RolePatient)
	createTestBlog(t, author.ID, true)
	createTestBlog(t, author.ID, false)

	count := func(viewer domain.Actor) int {
		_, total, err := repo.List(ctx, BlogFilter{Viewer: viewer, AuthorID: &author.ID}, Page{})
		require.NoError(t, err)
		return total
	}

	assert.Equal(t, 1, count(domain.Anonymous))
	assert.Equal(t, 1, count(domain.Actor{UserID: other.ID, Role: domain.RolePatient}))
	assert.Equal(t, 2, count(domain.Actor{UserID: author.ID, Role: domain.RolePatient}))
	assert.Equal(t, 2, count(domain.Actor{UserID: other.ID, Role: domain.RoleAdmin}))
}

func TestForumRepository_ToggleAndOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewForumRepository(testDB)
	user := createTestUser(t, domain.RolePatient)

	category := &domain.ForumCategory{ID: uuid.New(), Name: "Diet " + uuid.NewString()[:6], CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, repo.CreateCategory(ctx, category))

	var threads []*domain.ForumThread
	for i := 0; i < 2; i++ {
		th := &domain.ForumThread{
			ID: uuid.New(), Title: "Question", CategoryID: category.ID, UserID: user.ID,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second), UpdatedAt: time.Now(),
		}
		require.NoError(t, repo.CreateThread(ctx, th))
		threads = append(threads, th)
	}

	pinned, err := repo.TogglePinned(ctx, threads[0].ID)
	require.NoError(t, err)
	assert.True(t, pinned)

	closed, err := repo.ToggleClosed(ctx, threads[0].ID)
	require.NoError(t, err)
	assert.True(t, closed)

	list, total, err := repo.ListThreads(ctx, ThreadFilter{CategoryID: &category.ID}, Page{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	assert.Equal(t, threads[0].ID, list[0].ID)
	assert.True(t, list[0].Closed())

	views, err := repo.IncrementViews(ctx, threads[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, views)

	cat, err := repo.FindCategory(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.ThreadCount)
}

func TestStoryRepository_ToggleLike(t *testing.T) {
	ctx := context.Background()
	repo := NewStoryRepository(testDB)
	user := createTestUser(t, domain.RolePatient)

	story := &domain.Story{ID: uuid.New(), Title: "My transplant", Body: "body", UserID: user.ID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, story))

	liked, count, err := repo.ToggleLike(ctx, story.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, count)

	got, err := repo.FindByID(ctx, story.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLiked)
	assert.Equal(t, 1, got.LikeCount)

	liked, count, err = repo.ToggleLike(ctx, story.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Zero(t, count)

	_, _, err = repo.ToggleLike(ctx, uuid.New(), user.ID)
	assert.ErrorIs(t, err, ErrStoryNotFound)

	trending, err := repo.Trending(ctx, uuid.Nil, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.NotEmpty(t, trending)
}
