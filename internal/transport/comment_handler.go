package transport

import (
	"net/http"

	"kidney-story/internal/domain"
	"kidney-story/internal/middleware"
	"kidney-story/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CommentRequest creates a node. Exactly the field named after the kind
// (blog, thread or story) identifies the discussion.
type CommentRequest struct {
	Blog    *uuid.UUID `json:"blog"`
	Thread  *uuid.UUID `json:"thread"`
	Story   *uuid.UUID `json:"story"`
	Content string     `json:"content" validate:"required,max=10000"`
	Parent  *uuid.UUID `json:"parent"`
}

type ContentRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

// CommentHandler exposes the reply tree of one discussion kind.
type CommentHandler struct {
	kind     domain.DiscussionKind
	param    string
	comments service.CommentService
	logger   *zap.Logger
}

// NewCommentHandler serves comments of kind. param is the query and body
// field naming the discussion.
func NewCommentHandler(kind domain.DiscussionKind, param string, comments service.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{kind: kind, param: param, comments: comments, logger: logger.With(zap.String("kind", string(kind)))}
}

func (h *CommentHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Group(func(r chi.Router) {
		r.Use(g.Optional)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/replies", h.Replies)
	})
	r.Group(func(r chi.Router) {
		r.Use(g.Auth)
		r.Post("/", h.Create)
		r.Delete("/{id}", h.Delete)
	})
}

func (req CommentRequest) discussion(kind domain.DiscussionKind) *uuid.UUID {
	switch kind {
	case domain.KindBlog:
		return req.Blog
	case domain.KindForum:
		return req.Thread
	case domain.KindStory:
		return req.Story
	}
	return nil
}

// List returns the top-level nodes of a discussion, or the whole tree with
// tree=true.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	discussionID, err := queryUUID(r, h.param)
	if err == nil && discussionID == nil {
		err = domain.Invalid(h.param, "is required")
	}
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	tree, err := queryBool(r, "tree")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}

	actor := middleware.ActorFrom(r.Context())
	if tree != nil && *tree {
		nodes, err := h.comments.Thread(r.Context(), actor, h.kind, *discussionID)
		if err != nil {
			middleware.RespondWithDomainError(w, r, h.logger, err)
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, nodes)
		return
	}

	comments, err := h.comments.ListTopLevel(r.Context(), actor, h.kind, *discussionID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	node, err := h.comments.Get(r.Context(), middleware.ActorFrom(r.Context()), h.kind, id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, node)
}

func (h *CommentHandler) Replies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	replies, err := h.comments.ExpandReplies(r.Context(), middleware.ActorFrom(r.Context()), h.kind, id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, replies)
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	discussionID := req.discussion(h.kind)
	if discussionID == nil {
		middleware.RespondWithDomainError(w, r, h.logger, domain.Invalid(h.param, "is required"))
		return
	}

	comment, err := h.comments.Create(r.Context(), middleware.ActorFrom(r.Context()), h.kind, *discussionID, req.Content, req.Parent)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.comments.Delete(r.Context(), middleware.ActorFrom(r.Context()), h.kind, id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
