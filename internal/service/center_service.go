package service

import (
	"context"
	"strings"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CenterInput struct {
	Name        string
	Address     string
	City        string
	State       string
	Contact     string
	Email       string
	Website     string
	Type        string
	Description string
	ImageURL    string
	Latitude    decimal.NullDecimal
	Longitude   decimal.NullDecimal
}

func (in CenterInput) validate() error {
	required := []struct{ field, value string }{
		{"name", in.Name},
		{"address", in.Address},
		{"city", in.City},
		{"state", in.State},
		{"contact", in.Contact},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domain.Invalid(r.field, "is required")
		}
	}
	switch in.Type {
	case domain.CenterTypeHospital, domain.CenterTypeStandalone:
	default:
		return domain.Invalid("type", "must be HOSPITAL or STANDALONE")
	}
	if in.Latitude.Valid && in.Latitude.Decimal.Abs().GreaterThan(decimal.NewFromInt(90)) {
		return domain.Invalid("latitude", "must be between -90 and 90")
	}
	if in.Longitude.Valid && in.Longitude.Decimal.Abs().GreaterThan(decimal.NewFromInt(180)) {
		return domain.Invalid("longitude", "must be between -180 and 180")
	}
	return nil
}

func (in CenterInput) applyTo(c *domain.DialysisCenter, now time.Time) {
	c.Name = strings.TrimSpace(in.Name)
	c.Address = strings.TrimSpace(in.Address)
	c.City = strings.TrimSpace(in.City)
	c.State = strings.TrimSpace(in.State)
	c.Contact = strings.TrimSpace(in.Contact)
	c.Email = strings.TrimSpace(in.Email)
	c.Website = strings.TrimSpace(in.Website)
	c.Type = in.Type
	c.Description = in.Description
	c.ImageURL = strings.TrimSpace(in.ImageURL)
	c.Latitude = in.Latitude
	c.Longitude = in.Longitude
	c.UpdatedAt = now
}

// CenterService is the dialysis-center directory: public reads, admin writes.
type CenterService interface {
	Create(ctx context.Context, actor domain.Actor, in CenterInput) (*domain.DialysisCenter, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in CenterInput) (*domain.DialysisCenter, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.DialysisCenter, error)
	List(ctx context.Context, f repository.CenterFilter, page repository.Page) ([]*domain.DialysisCenter, int, error)
}

type centerService struct {
	centers repository.CenterRepository
}

func NewCenterService(centers repository.CenterRepository) CenterService {
	return &centerService{centers: centers}
}

func (s *centerService) Create(ctx context.Context, actor domain.Actor, in CenterInput) (*domain.DialysisCenter, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	c := &domain.DialysisCenter{ID: uuid.New(), CreatedAt: now}
	in.applyTo(c, now)
	if err := s.centers.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *centerService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in CenterInput) (*domain.DialysisCenter, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := s.centers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.applyTo(c, time.Now())
	if err := s.centers.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *centerService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}
	return s.centers.Delete(ctx, id)
}

func (s *centerService) Get(ctx context.Context, id uuid.UUID) (*domain.DialysisCenter, error) {
	return s.centers.FindByID(ctx, id)
}

func (s *centerService) List(ctx context.Context, f repository.CenterFilter, page repository.Page) ([]*domain.DialysisCenter, int, error) {
	if f.Type != "" && f.Type != domain.CenterTypeHospital && f.Type != domain.CenterTypeStandalone {
		return nil, 0, domain.Invalid("type", "must be HOSPITAL or STANDALONE")
	}
	return s.centers.List(ctx, f, page)
}
