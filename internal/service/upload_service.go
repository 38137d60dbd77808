package service

import (
	"context"
	"strings"

	"kidney-story/internal/domain"
	"kidney-story/internal/storage"

	"github.com/google/uuid"
)

type UploadService interface {
	// Presign reserves a fresh object name for a file of the given MIME type
	// and returns where to upload it.
	Presign(ctx context.Context, actor domain.Actor, fileType string) (*storage.PresignedUpload, error)
}

type uploadService struct {
	store storage.ObjectStore
}

func NewUploadService(store storage.ObjectStore) UploadService {
	return &uploadService{store: store}
}

func (s *uploadService) Presign(ctx context.Context, actor domain.Actor, fileType string) (*storage.PresignedUpload, error) {
	if err := domain.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	ext, err := uploadExtension(fileType)
	if err != nil {
		return nil, err
	}
	return s.store.PresignUpload(ctx, uuid.New().String()+"."+ext)
}

// uploadExtension takes the subtype of a MIME type: image/png -> png.
func uploadExtension(fileType string) (string, error) {
	fileType = strings.TrimSpace(fileType)
	if fileType == "" {
		return "", domain.Invalid("file_type", "is required")
	}
	ext := fileType[strings.LastIndex(fileType, "/")+1:]
	if i := strings.IndexAny(ext, "; "); i >= 0 {
		ext = ext[:i]
	}
	if ext == "" {
		return "", domain.Invalid("file_type", "must be a MIME type such as image/png")
	}
	return strings.ToLower(ext), nil
}
