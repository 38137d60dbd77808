package transport

import (
	"context"
	"net/http"

	"kidney-story/internal/domain"
	"kidney-story/internal/middleware"
	"kidney-story/internal/repository"
	"kidney-story/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type StoryRequest struct {
	Title    string   `json:"title" validate:"required,max=200"`
	Body     string   `json:"body" validate:"required"`
	ImageURL string   `json:"image_url" validate:"omitempty,url"`
	Tags     []string `json:"tags" validate:"dive,max=50"`
}

func (req StoryRequest) input() service.StoryInput {
	return service.StoryInput{Title: req.Title, Body: req.Body, ImageURL: req.ImageURL, Tags: req.Tags}
}

// TagLister is the read side of the shared tag vocabulary.
type TagLister interface {
	ListTags(ctx context.Context, search string) ([]domain.Tag, error)
}

type StoryHandler struct {
	stories  service.StoryService
	tags     TagLister
	comments *CommentHandler
	logger   *zap.Logger
}

func NewStoryHandler(stories service.StoryService, tags TagLister, comments *CommentHandler, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{stories: stories, tags: tags, comments: comments, logger: logger}
}

func (h *StoryHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/stories", func(r chi.Router) {
		r.Route("/comments", func(r chi.Router) {
			h.comments.RegisterRoutes(r, g)
		})
		r.Get("/tags", h.ListTags)

		r.Group(func(r chi.Router) {
			r.Use(g.Optional)
			r.Get("/", h.List)
			r.Get("/trending", h.Trending)
			r.Get("/{id}", h.Get)
		})
		r.Group(func(r chi.Router) {
			r.Use(g.Auth)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/like", h.ToggleLike)
		})
	})
}

func (h *StoryHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.ListTags(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if tags == nil {
		tags = []domain.Tag{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, tags)
}

func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUUID(r, "user")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	page := pageFrom(r)
	stories, total, err := h.stories.List(r.Context(), repository.StoryFilter{
		Viewer: middleware.ActorFrom(r.Context()).UserID,
		UserID: userID,
		Tag:    q.Get("tag"),
		Search: q.Get("search"),
	}, page)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newPage(stories, total, page))
}

func (h *StoryHandler) Trending(w http.ResponseWriter, r *http.Request) {
	stories, err := h.stories.Trending(r.Context(), middleware.ActorFrom(r.Context()))
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if stories == nil {
		stories = []*domain.Story{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, stories)
}

func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	story, err := h.stories.Get(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, story)
}

func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req StoryRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	story, err := h.stories.Create(r.Context(), middleware.ActorFrom(r.Context()), req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, story)
}

func (h *StoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req StoryRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	story, err := h.stories.Update(r.Context(), middleware.ActorFrom(r.Context()), id, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, story)
}

func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.stories.Delete(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleLike likes the story, or unlikes it when already liked.
func (h *StoryHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	result, err := h.stories.ToggleLike(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, result)
}
