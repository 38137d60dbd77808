package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"

	"github.com/google/uuid"
)

// DefaultFeedbackPerDay is the number of feedback items a user may submit
// in any rolling 24 hours.
const DefaultFeedbackPerDay = 10

type FeedbackInput struct {
	Title       string
	Description string
	Type        string
}

func (in FeedbackInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Invalid("title", "is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return domain.Invalid("description", "is required")
	}
	switch in.Type {
	case domain.FeedbackTypeBug, domain.FeedbackTypeFeature, domain.FeedbackTypeGeneral:
		return nil
	}
	return domain.Invalid("type", "must be BUG, FEATURE or GENERAL")
}

// FeedbackService collects bug reports and feature requests. Users see
// their own feedback, admins see and triage everything.
type FeedbackService interface {
	Create(ctx context.Context, actor domain.Actor, in FeedbackInput) (*domain.Feedback, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in FeedbackInput) (*domain.Feedback, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Feedback, error)
	List(ctx context.Context, actor domain.Actor, feedbackType, status string, page repository.Page) ([]*domain.Feedback, int, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status string) (*domain.Feedback, error)

	AddResponse(ctx context.Context, actor domain.Actor, feedbackID uuid.UUID, content string) (*domain.FeedbackResponse, error)
	UpdateResponse(ctx context.Context, actor domain.Actor, id uuid.UUID, content string) (*domain.FeedbackResponse, error)
	DeleteResponse(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

type feedbackService struct {
	feedback repository.FeedbackRepository
	perDay   int
	now      func() time.Time
}

func NewFeedbackService(feedback repository.FeedbackRepository, perDay int) FeedbackService {
	if perDay <= 0 {
		perDay = DefaultFeedbackPerDay
	}
	return &feedbackService{feedback: feedback, perDay: perDay, now: time.Now}
}

func (s *feedbackService) Create(ctx context.Context, actor domain.Actor, in FeedbackInput) (*domain.Feedback, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	count, err := s.feedback.CountSince(ctx, actor.UserID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	if count >= s.perDay {
		return nil, fmt.Errorf("%w: at most %d feedback submissions per day", domain.ErrRateLimited, s.perDay)
	}

	f := &domain.Feedback{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		Status:      domain.FeedbackStatusPending,
		UserID:      actor.UserID,
		Responses:   []domain.FeedbackResponse{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.feedback.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *feedbackService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in FeedbackInput) (*domain.Feedback, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	f, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	f.Title = strings.TrimSpace(in.Title)
	f.Description = strings.TrimSpace(in.Description)
	f.Type = in.Type
	f.UpdatedAt = s.now()
	if err := s.feedback.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *feedbackService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	return s.feedback.Delete(ctx, id)
}

// Get returns the feedback to its author and admins; others get NotFound.
func (s *feedbackService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Feedback, error) {
	f, err := s.feedback.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanModify(actor, f) {
		return nil, repository.ErrFeedbackNotFound
	}
	return f, nil
}

func (s *feedbackService) List(ctx context.Context, actor domain.Actor, feedbackType, status string, page repository.Page) ([]*domain.Feedback, int, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, 0, err
	}
	if status != "" && !domain.ValidFeedbackStatus(status) {
		return nil, 0, domain.Invalid("status", "must be PENDING, ACCEPTED, DECLINED or IMPLEMENTED")
	}

	f := repository.FeedbackFilter{Type: feedbackType, Status: status}
	if !actor.IsAdmin() {
		f.UserID = &actor.UserID
	}
	return s.feedback.List(ctx, f, page)
}

func (s *feedbackService) UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status string) (*domain.Feedback, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if !domain.ValidFeedbackStatus(status) {
		return nil, domain.Invalid("status", "must be PENDING, ACCEPTED, DECLINED or IMPLEMENTED")
	}
	if err := s.feedback.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.feedback.FindByID(ctx, id)
}

func (s *feedbackService) AddResponse(ctx context.Context, actor domain.Actor, feedbackID uuid.UUID, content string) (*domain.FeedbackResponse, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.Invalid("content", "is required")
	}

	now := s.now()
	r := &domain.FeedbackResponse{
		ID:         uuid.New(),
		FeedbackID: feedbackID,
		UserID:     actor.UserID,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.feedback.CreateResponse(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *feedbackService) UpdateResponse(ctx context.Context, actor domain.Actor, id uuid.UUID, content string) (*domain.FeedbackResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.Invalid("content", "is required")
	}
	r, err := s.feedback.FindResponse(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireOwnerOrAdmin(actor, r); err != nil {
		return nil, err
	}
	if err := s.feedback.UpdateResponse(ctx, id, content); err != nil {
		return nil, err
	}
	r.Content = content
	r.UpdatedAt = s.now()
	return r, nil
}

func (s *feedbackService) DeleteResponse(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	r, err := s.feedback.FindResponse(ctx, id)
	if err != nil {
		return err
	}
	if err := domain.RequireOwnerOrAdmin(actor, r); err != nil {
		return err
	}
	return s.feedback.DeleteResponse(ctx, id)
}
