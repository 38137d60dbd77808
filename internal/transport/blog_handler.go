package transport

import (
	"net/http"

	"kidney-story/internal/middleware"
	"kidney-story/internal/repository"
	"kidney-story/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BlogRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Content      string   `json:"content" validate:"required"`
	ThumbnailURL string   `json:"thumbnail_url" validate:"omitempty,url"`
	Published    *bool    `json:"published"`
	Tags         []string `json:"tags" validate:"dive,max=50"`
}

func (req BlogRequest) input() service.BlogInput {
	published := true
	if req.Published != nil {
		published = *req.Published
	}
	return service.BlogInput{
		Title:        req.Title,
		Content:      req.Content,
		ThumbnailURL: req.ThumbnailURL,
		Published:    published,
		Tags:         req.Tags,
	}
}

type BlogHandler struct {
	blogs    service.BlogService
	comments *CommentHandler
	logger   *zap.Logger
}

func NewBlogHandler(blogs service.BlogService, comments *CommentHandler, logger *zap.Logger) *BlogHandler {
	return &BlogHandler{blogs: blogs, comments: comments, logger: logger}
}

// RegisterRoutes mounts /blogs and its comment section.
func (h *BlogHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/blogs", func(r chi.Router) {
		r.Route("/comments", func(r chi.Router) {
			h.comments.RegisterRoutes(r, g)
		})

		r.Group(func(r chi.Router) {
			r.Use(g.Optional)
			r.Get("/", h.List)
			r.Get("/slug/{slug}", h.GetBySlug)
			r.Get("/{id}", h.Get)
		})
		r.Group(func(r chi.Router) {
			r.Use(g.Auth)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List shows published blogs plus the caller's own drafts.
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	authorID, err := queryUUID(r, "author")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	page := pageFrom(r)
	blogs, total, err := h.blogs.List(r.Context(), repository.BlogFilter{
		Viewer:   middleware.ActorFrom(r.Context()),
		AuthorID: authorID,
		Tag:      q.Get("tag"),
		Search:   q.Get("search"),
	}, page)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newPage(blogs, total, page))
}

// Get counts a view.
func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	blog, err := h.blogs.Get(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, blog)
}

func (h *BlogHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	blog, err := h.blogs.GetBySlug(r.Context(), middleware.ActorFrom(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, blog)
}

func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BlogRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	blog, err := h.blogs.Create(r.Context(), middleware.ActorFrom(r.Context()), req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Blog created", zap.String("blog_id", blog.ID.String()), zap.String("slug", blog.Slug))
	middleware.RespondWithJSON(w, http.StatusCreated, blog)
}

func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req BlogRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	blog, err := h.blogs.Update(r.Context(), middleware.ActorFrom(r.Context()), id, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, blog)
}

func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.blogs.Delete(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
