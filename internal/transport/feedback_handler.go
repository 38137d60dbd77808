package transport

import (
	"net/http"

	"kidney-story/internal/middleware"
	"kidney-story/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type FeedbackRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=BUG FEATURE GENERAL"`
}

func (req FeedbackRequest) input() service.FeedbackInput {
	return service.FeedbackInput{Title: req.Title, Description: req.Description, Type: req.Type}
}

// FeedbackHandler serves user feedback and the admin responses to it.
type FeedbackHandler struct {
	feedback service.FeedbackService
	throttle func(http.Handler) http.Handler
	logger   *zap.Logger
}

// NewFeedbackHandler wraps submissions in throttle when it is not nil.
func NewFeedbackHandler(feedback service.FeedbackService, throttle func(http.Handler) http.Handler, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, throttle: throttle, logger: logger}
}

func (h *FeedbackHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/feedback", func(r chi.Router) {
		r.Use(g.Auth)

		submit := http.Handler(http.HandlerFunc(h.Create))
		if h.throttle != nil {
			submit = h.throttle(submit)
		}
		r.Method(http.MethodPost, "/", submit)

		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/update-status", h.UpdateStatus)
		r.Post("/{id}/responses", h.AddResponse)
		r.Put("/responses/{id}", h.UpdateResponse)
		r.Patch("/responses/{id}", h.UpdateResponse)
		r.Delete("/responses/{id}", h.DeleteResponse)
	})
}

// List returns every item to admins and the caller's own otherwise.
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := pageFrom(r)
	items, total, err := h.feedback.List(r.Context(), middleware.ActorFrom(r.Context()), q.Get("type"), q.Get("status"), page)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newPage(items, total, page))
}

func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	item, err := h.feedback.Get(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, item)
}

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	actor := middleware.ActorFrom(r.Context())
	item, err := h.feedback.Create(r.Context(), actor, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Feedback submitted",
		zap.String("feedback_id", item.ID.String()),
		zap.String("user_id", actor.UserID.String()),
		zap.String("type", item.Type),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, item)
}

func (h *FeedbackHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req FeedbackRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	item, err := h.feedback.Update(r.Context(), middleware.ActorFrom(r.Context()), id, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, item)
}

func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.feedback.Delete(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FeedbackHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req StatusRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	item, err := h.feedback.UpdateStatus(r.Context(), middleware.ActorFrom(r.Context()), id, req.Status)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, item)
}

func (h *FeedbackHandler) AddResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req ContentRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	response, err := h.feedback.AddResponse(r.Context(), middleware.ActorFrom(r.Context()), id, req.Content)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, response)
}

func (h *FeedbackHandler) UpdateResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req ContentRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	response, err := h.feedback.UpdateResponse(r.Context(), middleware.ActorFrom(r.Context()), id, req.Content)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

func (h *FeedbackHandler) DeleteResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.feedback.DeleteResponse(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
