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
)

// maxSlugAttempts bounds the suffix search of a colliding slug.
const maxSlugAttempts = 50

type BlogInput struct {
	Title        string
	Content      string
	ThumbnailURL string
	Published    bool
	Tags         []string
}

func (in BlogInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Invalid("title", "is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return domain.Invalid("content", "is required")
	}
	return nil
}

// BlogService manages blog articles. Drafts are visible only to their
// author and admins; reading a blog counts a view.
type BlogService interface {
	Create(ctx context.Context, actor domain.Actor, in BlogInput) (*domain.Blog, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in BlogInput) (*domain.Blog, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Blog, error)
	GetBySlug(ctx context.Context, actor domain.Actor, slug string) (*domain.Blog, error)
	List(ctx context.Context, f repository.BlogFilter, page repository.Page) ([]*domain.Blog, int, error)
}

type blogService struct {
	tx    repository.Transactor
	blogs repository.BlogRepository
	tags  repository.TagRepository
}

func NewBlogService(tx repository.Transactor, blogs repository.BlogRepository, tags repository.TagRepository) BlogService {
	return &blogService{tx: tx, blogs: blogs, tags: tags}
}

func (s *blogService) Create(ctx context.Context, actor domain.Actor, in BlogInput) (*domain.Blog, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	blog := &domain.Blog{
		ID:        uuid.New(),
		AuthorID:  actor.UserID,
		CreatedAt: now,
	}
	in.applyTo(blog, now)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.assignSlug(ctx, blog, func() error { return s.blogs.Create(ctx, blog) }); err != nil {
			return err
		}
		return s.replaceTags(ctx, blog, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	return blog, nil
}

func (s *blogService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in BlogInput) (*domain.Blog, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var blog *domain.Blog
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		blog, err = s.blogs.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.RequireOwnerOrAdmin(actor, blog); err != nil {
			return err
		}

		retitled := strings.TrimSpace(in.Title) != blog.Title
		in.applyTo(blog, time.Now())
		save := func() error { return s.blogs.Update(ctx, blog) }
		if retitled {
			err = s.assignSlug(ctx, blog, save)
		} else {
			err = save()
		}
		if err != nil {
			return err
		}
		return s.replaceTags(ctx, blog, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	return blog, nil
}

func (in BlogInput) applyTo(b *domain.Blog, now time.Time) {
	b.Title = strings.TrimSpace(in.Title)
	b.Content = in.Content
	b.ThumbnailURL = strings.TrimSpace(in.ThumbnailURL)
	b.Published = in.Published
	b.UpdatedAt = now
}

// assignSlug derives the slug from the title and calls save, appending -2,
// -3, ... while the slug is taken. A writer racing for the same slug loses
// with repository.ErrSlugTaken from the unique key.
func (s *blogService) assignSlug(ctx context.Context, blog *domain.Blog, save func() error) error {
	base := domain.Slugify(blog.Title)
	if base == "" {
		base = "blog"
	}

	for n := 1; n <= maxSlugAttempts; n++ {
		slug := base
		if n > 1 {
			slug = fmt.Sprintf("%s-%d", base, n)
		}

		existing, err := s.blogs.FindBySlug(ctx, slug)
		if err == nil && existing.ID != blog.ID {
			continue
		}
		if err != nil && !errors.Is(err, repository.ErrBlogNotFound) {
			return err
		}

		blog.Slug = slug
		return save()
	}
	return repository.ErrSlugTaken
}

func (s *blogService) replaceTags(ctx context.Context, blog *domain.Blog, names []string) error {
	tags, err := s.tags.EnsureAll(ctx, domain.NormalizeTagNames(names))
	if err != nil {
		return err
	}
	if err := s.blogs.SetTags(ctx, blog.ID, tagIDs(tags)); err != nil {
		return err
	}
	blog.Tags = tags
	return nil
}

func (s *blogService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	blog, err := s.blogs.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := domain.RequireOwnerOrAdmin(actor, blog); err != nil {
		return err
	}
	return s.blogs.Delete(ctx, id)
}

func (s *blogService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Blog, error) {
	blog, err := s.blogs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor, blog)
}

func (s *blogService) GetBySlug(ctx context.Context, actor domain.Actor, slug string) (*domain.Blog, error) {
	blog, err := s.blogs.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor, blog)
}

func (s *blogService) view(ctx context.Context, actor domain.Actor, blog *domain.Blog) (*domain.Blog, error) {
	if !blog.VisibleTo(actor) {
		return nil, repository.ErrBlogNotFound
	}
	views, err := s.blogs.IncrementViews(ctx, blog.ID)
	if err != nil {
		return nil, err
	}
	blog.Views = views
	return blog, nil
}

func (s *blogService) List(ctx context.Context, f repository.BlogFilter, page repository.Page) ([]*domain.Blog, int, error) {
	return s.blogs.List(ctx, f, page)
}
