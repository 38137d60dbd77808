package service

import (
	"context"
	"strings"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ThreadInput struct {
	Title      string
	CategoryID uuid.UUID
}

// ReportInput flags a thread or post for moderation.
type ReportInput struct {
	ContentType string
	ContentID   uuid.UUID
	Reason      string
	Description string
}

// ForumService manages forum categories, threads and moderation reports.
// Posts are handled by CommentService under domain.KindForum.
type ForumService interface {
	CreateCategory(ctx context.Context, actor domain.Actor, name, description string) (*domain.ForumCategory, error)
	UpdateCategory(ctx context.Context, actor domain.Actor, id uuid.UUID, name, description string) (*domain.ForumCategory, error)
	DeleteCategory(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.ForumCategory, error)
	ListCategories(ctx context.Context) ([]domain.ForumCategory, error)

	CreateThread(ctx context.Context, actor domain.Actor, in ThreadInput) (*domain.ForumThread, error)
	UpdateThread(ctx context.Context, actor domain.Actor, id uuid.UUID, in ThreadInput) (*domain.ForumThread, error)
	DeleteThread(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	// GetThread counts a view.
	GetThread(ctx context.Context, id uuid.UUID) (*domain.ForumThread, error)
	ListThreads(ctx context.Context, f repository.ThreadFilter, page repository.Page) ([]*domain.ForumThread, int, error)
	TogglePin(ctx context.Context, actor domain.Actor, id uuid.UUID) (bool, error)
	ToggleClose(ctx context.Context, actor domain.Actor, id uuid.UUID) (bool, error)

	Report(ctx context.Context, actor domain.Actor, in ReportInput) (*domain.ReportedContent, error)
	ListReports(ctx context.Context, actor domain.Actor, status string) ([]domain.ReportedContent, error)
	UpdateReportStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status string) (*domain.ReportedContent, error)
	DeleteReport(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

type forumService struct {
	forums repository.ForumRepository
	posts  repository.CommentRepository
	logger *zap.Logger
}

func NewForumService(forums repository.ForumRepository, posts repository.CommentRepository, logger *zap.Logger) ForumService {
	return &forumService{forums: forums, posts: posts, logger: logger}
}

func (s *forumService) CreateCategory(ctx context.Context, actor domain.Actor, name, description string) (*domain.ForumCategory, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	now := time.Now()
	c := &domain.ForumCategory{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.forums.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *forumService) UpdateCategory(ctx context.Context, actor domain.Actor, id uuid.UUID, name, description string) (*domain.ForumCategory, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	c, err := s.forums.FindCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = name
	c.Description = strings.TrimSpace(description)
	c.UpdatedAt = time.Now()
	if err := s.forums.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *forumService) DeleteCategory(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}
	return s.forums.DeleteCategory(ctx, id)
}

func (s *forumService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.ForumCategory, error) {
	return s.forums.FindCategory(ctx, id)
}

func (s *forumService) ListCategories(ctx context.Context) ([]domain.ForumCategory, error) {
	return s.forums.ListCategories(ctx)
}

func (in ThreadInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Invalid("title", "is required")
	}
	if in.CategoryID == uuid.Nil {
		return domain.Invalid("category_id", "is required")
	}
	return nil
}

func (s *forumService) CreateThread(ctx context.Context, actor domain.Actor, in ThreadInput) (*domain.ForumThread, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.forums.FindCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now()
	t := &domain.ForumThread{
		ID:         uuid.New(),
		Title:      strings.TrimSpace(in.Title),
		CategoryID: in.CategoryID,
		UserID:     actor.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.forums.CreateThread(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *forumService) UpdateThread(ctx context.Context, actor domain.Actor, id uuid.UUID, in ThreadInput) (*domain.ForumThread, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t, err := s.forums.FindThread(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireOwnerOrAdmin(actor, t); err != nil {
		return nil, err
	}
	if t.CategoryID != in.CategoryID {
		if _, err := s.forums.FindCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
	}

	t.Title = strings.TrimSpace(in.Title)
	t.CategoryID = in.CategoryID
	t.UpdatedAt = time.Now()
	if err := s.forums.UpdateThread(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *forumService) DeleteThread(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	t, err := s.forums.FindThread(ctx, id)
	if err != nil {
		return err
	}
	if err := domain.RequireOwnerOrAdmin(actor, t); err != nil {
		return err
	}
	return s.forums.DeleteThread(ctx, id)
}

func (s *forumService) GetThread(ctx context.Context, id uuid.UUID) (*domain.ForumThread, error) {
	t, err := s.forums.FindThread(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.forums.IncrementViews(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Views = views
	return t, nil
}

func (s *forumService) ListThreads(ctx context.Context, f repository.ThreadFilter, page repository.Page) ([]*domain.ForumThread, int, error) {
	return s.forums.ListThreads(ctx, f, page)
}

func (s *forumService) TogglePin(ctx context.Context, actor domain.Actor, id uuid.UUID) (bool, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return false, err
	}
	return s.forums.TogglePinned(ctx, id)
}

func (s *forumService) ToggleClose(ctx context.Context, actor domain.Actor, id uuid.UUID) (bool, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return false, err
	}
	closed, err := s.forums.ToggleClosed(ctx, id)
	if err != nil {
		return false, err
	}
	s.logger.Info("Thread closed state changed",
		zap.String("thread_id", id.String()),
		zap.Bool("closed", closed),
	)
	return closed, nil
}

func (s *forumService) Report(ctx context.Context, actor domain.Actor, in ReportInput) (*domain.ReportedContent, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	switch in.ContentType {
	case domain.ReportContentThread:
		if _, err := s.forums.FindThread(ctx, in.ContentID); err != nil {
			return nil, err
		}
	case domain.ReportContentPost:
		if _, err := s.posts.FindByID(ctx, in.ContentID); err != nil {
			return nil, err
		}
	default:
		return nil, domain.Invalid("content_type", "must be THREAD or POST")
	}

	switch in.Reason {
	case domain.ReportReasonSpam, domain.ReportReasonOffensive, domain.ReportReasonInappropriate, domain.ReportReasonOther:
	default:
		return nil, domain.Invalid("reason", "must be SPAM, OFFENSIVE, INAPPROPRIATE or OTHER")
	}

	now := time.Now()
	r := &domain.ReportedContent{
		ID:          uuid.New(),
		ContentType: in.ContentType,
		ContentID:   in.ContentID,
		ReportedBy:  actor.UserID,
		Reason:      in.Reason,
		Description: strings.TrimSpace(in.Description),
		Status:      domain.ReportStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.forums.CreateReport(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Warn("Content reported",
		zap.String("content_type", r.ContentType),
		zap.String("content_id", r.ContentID.String()),
		zap.String("reason", r.Reason),
	)
	return r, nil
}

func (s *forumService) ListReports(ctx context.Context, actor domain.Actor, status string) ([]domain.ReportedContent, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if status != "" && !domain.ValidReportStatus(status) {
		return nil, domain.Invalid("status", "must be PENDING, RESOLVED or DISMISSED")
	}
	return s.forums.ListReports(ctx, status)
}

func (s *forumService) UpdateReportStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status string) (*domain.ReportedContent, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if !domain.ValidReportStatus(status) {
		return nil, domain.Invalid("status", "must be PENDING, RESOLVED or DISMISSED")
	}
	if err := s.forums.UpdateReportStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.forums.FindReport(ctx, id)
}

func (s *forumService) DeleteReport(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}
	return s.forums.DeleteReport(ctx, id)
}
