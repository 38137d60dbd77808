package transport

import (
	"net/http"

	"kidney-story/internal/domain"
	"kidney-story/internal/middleware"
	"kidney-story/internal/repository"
	"kidney-story/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ThreadRequest struct {
	Title      string    `json:"title" validate:"required,max=200"`
	CategoryID uuid.UUID `json:"category" validate:"required"`
}

type ReportRequest struct {
	ContentType string    `json:"content_type" validate:"required,oneof=THREAD POST"`
	ContentID   uuid.UUID `json:"content_id" validate:"required"`
	Reason      string    `json:"reason" validate:"required,oneof=SPAM OFFENSIVE INAPPROPRIATE OTHER"`
	Description string    `json:"description"`
}

type toggleResponse struct {
	ID     uuid.UUID `json:"id"`
	Pinned *bool     `json:"is_pinned,omitempty"`
	Closed *bool     `json:"is_closed,omitempty"`
}

// ForumHandler serves forum categories, threads, posts and moderation
// reports.
type ForumHandler struct {
	forums service.ForumService
	posts  *CommentHandler
	logger *zap.Logger
}

func NewForumHandler(forums service.ForumService, posts *CommentHandler, logger *zap.Logger) *ForumHandler {
	return &ForumHandler{forums: forums, posts: posts, logger: logger}
}

func (h *ForumHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/forums", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Get("/{id}", h.GetCategory)
			r.Group(func(r chi.Router) {
				r.Use(g.Auth, g.Admin)
				r.Post("/", h.CreateCategory)
				r.Put("/{id}", h.UpdateCategory)
				r.Delete("/{id}", h.DeleteCategory)
			})
		})

		r.Route("/threads", func(r chi.Router) {
			r.Get("/", h.ListThreads)
			r.Get("/{id}", h.GetThread)
			r.Group(func(r chi.Router) {
				r.Use(g.Auth)
				r.Post("/", h.CreateThread)
				r.Put("/{id}", h.UpdateThread)
				r.Patch("/{id}", h.UpdateThread)
				r.Delete("/{id}", h.DeleteThread)
			})
			r.Group(func(r chi.Router) {
				r.Use(g.Auth, g.Admin)
				r.Post("/{id}/pin", h.TogglePin)
				r.Post("/{id}/close", h.ToggleClose)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			h.posts.RegisterRoutes(r, g)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(g.Auth)
			r.Post("/", h.Report)
			r.Group(func(r chi.Router) {
				r.Use(g.Admin)
				r.Get("/", h.ListReports)
				r.Patch("/{id}", h.UpdateReport)
				r.Delete("/{id}", h.DeleteReport)
			})
		})
	})
}

func (h *ForumHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.forums.ListCategories(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if categories == nil {
		categories = []domain.ForumCategory{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *ForumHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	category, err := h.forums.GetCategory(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *ForumHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	category, err := h.forums.CreateCategory(r.Context(), middleware.ActorFrom(r.Context()), req.Name, req.Description)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *ForumHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req CategoryRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	category, err := h.forums.UpdateCategory(r.Context(), middleware.ActorFrom(r.Context()), id, req.Name, req.Description)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *ForumHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.forums.DeleteCategory(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListThreads returns pinned threads first, then by latest activity.
func (h *ForumHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	var f repository.ThreadFilter
	var err error
	if f.CategoryID, err = queryUUID(r, "category"); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if f.UserID, err = queryUUID(r, "user"); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	f.Search = r.URL.Query().Get("search")

	page := pageFrom(r)
	threads, total, err := h.forums.ListThreads(r.Context(), f, page)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newPage(threads, total, page))
}

func (h *ForumHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	thread, err := h.forums.GetThread(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, thread)
}

func (h *ForumHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	var req ThreadRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	thread, err := h.forums.CreateThread(r.Context(), middleware.ActorFrom(r.Context()), service.ThreadInput{
		Title:      req.Title,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, thread)
}

func (h *ForumHandler) UpdateThread(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req ThreadRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	thread, err := h.forums.UpdateThread(r.Context(), middleware.ActorFrom(r.Context()), id, service.ThreadInput{
		Title:      req.Title,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, thread)
}

func (h *ForumHandler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.forums.DeleteThread(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ForumHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	pinned, err := h.forums.TogglePin(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toggleResponse{ID: id, Pinned: &pinned})
}

func (h *ForumHandler) ToggleClose(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	closed, err := h.forums.ToggleClose(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toggleResponse{ID: id, Closed: &closed})
}

func (h *ForumHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	report, err := h.forums.Report(r.Context(), middleware.ActorFrom(r.Context()), service.ReportInput{
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, report)
}

func (h *ForumHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.forums.ListReports(r.Context(), middleware.ActorFrom(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if reports == nil {
		reports = []domain.ReportedContent{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, reports)
}

func (h *ForumHandler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req StatusRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	report, err := h.forums.UpdateReportStatus(r.Context(), middleware.ActorFrom(r.Context()), id, req.Status)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, report)
}

func (h *ForumHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.forums.DeleteReport(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
