package transport

import (
	"net/http"

	"kidney-story/internal/middleware"
	"kidney-story/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PresignRequest struct {
	FileType string `json:"file_type" validate:"required,max=100"`
}

// UploadHandler hands out presigned object storage URLs. Clients upload
// directly to the bucket and store the public URL on their entity.
type UploadHandler struct {
	uploads service.UploadService
	logger  *zap.Logger
}

func NewUploadHandler(uploads service.UploadService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

func (h *UploadHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.With(g.Auth).Post("/uploads/presign", h.Presign)
}

func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var req PresignRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	actor := middleware.ActorFrom(r.Context())
	upload, err := h.uploads.Presign(r.Context(), actor, req.FileType)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	h.logger.Debug("Upload presigned",
		zap.String("user_id", actor.UserID.String()),
		zap.String("object", upload.ObjectName),
	)
	middleware.RespondWithJSON(w, http.StatusOK, upload)
}
