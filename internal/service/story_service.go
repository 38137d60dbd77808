package service

import (
	"context"
	"strings"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"

	"github.com/google/uuid"
)

const (
	TrendingWindow = 30 * 24 * time.Hour
	TrendingLimit  = 10
)

type StoryInput struct {
	Title    string
	Body     string
	ImageURL string
	Tags     []string
}

// LikeResult is the state of a story like after a toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

type StoryService interface {
	Create(ctx context.Context, actor domain.Actor, in StoryInput) (*domain.Story, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in StoryInput) (*domain.Story, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	// Get counts a view.
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Story, error)
	List(ctx context.Context, f repository.StoryFilter, page repository.Page) ([]*domain.Story, int, error)
	ToggleLike(ctx context.Context, actor domain.Actor, id uuid.UUID) (*LikeResult, error)
	// Trending ranks the stories of the last 30 days.
	Trending(ctx context.Context, actor domain.Actor) ([]*domain.Story, error)
}

type storyService struct {
	tx      repository.Transactor
	stories repository.StoryRepository
	tags    repository.TagRepository
	now     func() time.Time
}

func NewStoryService(tx repository.Transactor, stories repository.StoryRepository, tags repository.TagRepository) StoryService {
	return &storyService{tx: tx, stories: stories, tags: tags, now: time.Now}
}

func (in StoryInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Invalid("title", "is required")
	}
	if strings.TrimSpace(in.Body) == "" {
		return domain.Invalid("body", "is required")
	}
	return nil
}

func (s *storyService) Create(ctx context.Context, actor domain.Actor, in StoryInput) (*domain.Story, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	story := &domain.Story{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(in.Title),
		Body:      in.Body,
		ImageURL:  strings.TrimSpace(in.ImageURL),
		UserID:    actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.stories.Create(ctx, story); err != nil {
			return err
		}
		return s.replaceTags(ctx, story, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	return story, nil
}

func (s *storyService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in StoryInput) (*domain.Story, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var story *domain.Story
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		story, err = s.stories.FindByID(ctx, id, actor.UserID)
		if err != nil {
			return err
		}
		if err := domain.RequireOwnerOrAdmin(actor, story); err != nil {
			return err
		}
		story.Title = strings.TrimSpace(in.Title)
		story.Body = in.Body
		story.ImageURL = strings.TrimSpace(in.ImageURL)
		story.UpdatedAt = s.now()
		if err := s.stories.Update(ctx, story); err != nil {
			return err
		}
		return s.replaceTags(ctx, story, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	return story, nil
}

func (s *storyService) replaceTags(ctx context.Context, story *domain.Story, names []string) error {
	tags, err := s.tags.EnsureAll(ctx, domain.NormalizeTagNames(names))
	if err != nil {
		return err
	}
	if err := s.stories.SetTags(ctx, story.ID, tagIDs(tags)); err != nil {
		return err
	}
	story.Tags = tags
	return nil
}

func (s *storyService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	story, err := s.stories.FindByID(ctx, id, actor.UserID)
	if err != nil {
		return err
	}
	if err := domain.RequireOwnerOrAdmin(actor, story); err != nil {
		return err
	}
	return s.stories.Delete(ctx, id)
}

func (s *storyService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Story, error) {
	story, err := s.stories.FindByID(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	views, err := s.stories.IncrementViews(ctx, id)
	if err != nil {
		return nil, err
	}
	story.Views = views
	return story, nil
}

func (s *storyService) List(ctx context.Context, f repository.StoryFilter, page repository.Page) ([]*domain.Story, int, error) {
	return s.stories.List(ctx, f, page)
}

func (s *storyService) ToggleLike(ctx context.Context, actor domain.Actor, id uuid.UUID) (*LikeResult, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	liked, count, err := s.stories.ToggleLike(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, LikeCount: count}, nil
}

func (s *storyService) Trending(ctx context.Context, actor domain.Actor) ([]*domain.Story, error) {
	return s.stories.Trending(ctx, actor.UserID, s.now().Add(-TrendingWindow), TrendingLimit)
}
