package transport

import (
	"net/http"

	"kidney-story/internal/middleware"
	"kidney-story/internal/repository"
	"kidney-story/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CenterRequest struct {
	Name        string              `json:"name" validate:"required,max=200"`
	Address     string              `json:"address" validate:"required"`
	City        string              `json:"city" validate:"required,max=100"`
	State       string              `json:"state" validate:"required,max=100"`
	Contact     string              `json:"contact" validate:"required,max=20"`
	Email       string              `json:"email" validate:"omitempty,email"`
	Website     string              `json:"website" validate:"omitempty,url"`
	Type        string              `json:"type" validate:"required,oneof=HOSPITAL STANDALONE"`
	Description string              `json:"description"`
	ImageURL    string              `json:"image_url" validate:"omitempty,url"`
	Latitude    decimal.NullDecimal `json:"latitude"`
	Longitude   decimal.NullDecimal `json:"longitude"`
}

func (req CenterRequest) input() service.CenterInput {
	return service.CenterInput{
		Name:        req.Name,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		Contact:     req.Contact,
		Email:       req.Email,
		Website:     req.Website,
		Type:        req.Type,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
}

// CenterHandler serves the dialysis center directory.
type CenterHandler struct {
	centers service.CenterService
	logger  *zap.Logger
}

func NewCenterHandler(centers service.CenterService, logger *zap.Logger) *CenterHandler {
	return &CenterHandler{centers: centers, logger: logger}
}

func (h *CenterHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/centers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Group(func(r chi.Router) {
			r.Use(g.Auth, g.Admin)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

func (h *CenterHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := pageFrom(r)
	centers, total, err := h.centers.List(r.Context(), repository.CenterFilter{
		City:   q.Get("city"),
		State:  q.Get("state"),
		Type:   q.Get("type"),
		Search: q.Get("search"),
	}, page)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newPage(centers, total, page))
}

func (h *CenterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	center, err := h.centers.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, center)
}

func (h *CenterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CenterRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	center, err := h.centers.Create(r.Context(), middleware.ActorFrom(r.Context()), req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, center)
}

func (h *CenterHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req CenterRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	center, err := h.centers.Update(r.Context(), middleware.ActorFrom(r.Context()), id, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, center)
}

func (h *CenterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.centers.Delete(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
