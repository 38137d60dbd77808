package transport

import (
	"net/http"
	"strconv"
	"strings"

	"kidney-story/internal/domain"
	"kidney-story/internal/middleware"
	"kidney-story/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Guards are the auth middlewares a handler mounts on its routes.
type Guards struct {
	// Auth rejects requests without a valid bearer token.
	Auth func(http.Handler) http.Handler
	// Optional resolves the caller when a token is sent.
	Optional func(http.Handler) http.Handler
	// Admin must run after Auth.
	Admin func(http.Handler) http.Handler
}

// NewGuards builds the standard guards from a token parser.
func NewGuards(parse middleware.TokenParser, logger *zap.Logger) Guards {
	return Guards{
		Auth:     middleware.AuthMiddleware(parse, logger),
		Optional: middleware.OptionalAuthMiddleware(parse, logger),
		Admin:    middleware.RequireAdmin(logger),
	}
}

// Page is the envelope of paginated list responses.
type Page[T any] struct {
	Count    int `json:"count"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Results  []T `json:"results"`
}

func newPage[T any](items []T, total int, page repository.Page) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Count: total, Page: page.Number, PageSize: page.Size, Results: items}
}

type messageResponse struct {
	Detail string `json:"detail"`
}

// decode reads a JSON body into v and answers 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domain.Invalid(name, "must be a valid UUID")
	}
	return id, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.Invalid(name, "must be a valid UUID")
	}
	return &id, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domain.Invalid(name, "must be true or false")
	}
	return &v, nil
}

// pageFrom reads page and page_size; bad values fall back to defaults.
func pageFrom(r *http.Request) repository.Page {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return repository.Page{Number: number, Size: size}.Normalize()
}
