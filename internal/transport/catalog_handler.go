package transport

import (
	"net/http"
	"strconv"
	"strings"

	"kidney-story/internal/domain"
	"kidney-story/internal/middleware"
	"kidney-story/internal/repository"
	"kidney-story/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type ProductRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	CategoryID  uuid.UUID       `json:"category" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	InStock     *bool           `json:"in_stock"`
	Tags        []string        `json:"tags" validate:"dive,max=50"`
}

func (req ProductRequest) input() service.ProductInput {
	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}
	return service.ProductInput{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		Price:       req.Price,
		InStock:     inStock,
		Tags:        req.Tags,
	}
}

type ReviewRequest struct {
	ProductID uuid.UUID `json:"product" validate:"required"`
	Rating    int       `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string    `json:"comment"`
}

type ReviewUpdateRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment"`
}

// ProductDetail is a product with its reviews and their mean rating.
type ProductDetail struct {
	*domain.Product
	AverageRating float64         `json:"average_rating"`
	Reviews       []domain.Review `json:"reviews"`
}

// CatalogHandler serves categories, products, tags and reviews.
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes mounts the catalog routes on a /products router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, g Guards) {
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

	r.Get("/tags", h.ListTags)

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/", h.ListReviews)
		r.Group(func(r chi.Router) {
			r.Use(g.Auth)
			r.Post("/", h.AddReview)
			r.Put("/{id}", h.UpdateReview)
			r.Patch("/{id}", h.UpdateReview)
			r.Delete("/{id}", h.DeleteReview)
		})
	})

	r.Get("/filter-by-price", h.FilterByPrice)
	r.Get("/", h.ListProducts)
	r.Get("/{id}", h.GetProduct)
	r.Group(func(r chi.Router) {
		r.Use(g.Auth, g.Admin)
		r.Post("/", h.CreateProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if categories == nil {
		categories = []*domain.Category{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	category, err := h.catalog.CreateCategory(r.Context(), middleware.ActorFrom(r.Context()), req.Name, req.Description)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req CategoryRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	category, err := h.catalog.UpdateCategory(r.Context(), middleware.ActorFrom(r.Context()), id, req.Name, req.Description)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.catalog.ListTags(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if tags == nil {
		tags = []domain.Tag{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, tags)
}

func queryDecimal(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.Invalid(name, "must be a number")
	}
	return &d, nil
}

// productFilter reads the list filters. ordering takes a field name with
// an optional leading "-" for descending order.
func productFilter(r *http.Request) (repository.ProductFilter, error) {
	q := r.URL.Query()
	var f repository.ProductFilter
	var err error

	if f.CategoryID, err = queryUUID(r, "category"); err != nil {
		return f, err
	}
	if f.InStock, err = queryBool(r, "in_stock"); err != nil {
		return f, err
	}
	if f.MinPrice, err = queryDecimal(r, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryDecimal(r, "max_price"); err != nil {
		return f, err
	}
	f.Tag = q.Get("tag")
	f.Search = q.Get("search")

	if ordering := q.Get("ordering"); ordering != "" {
		f.SortOrder = repository.SortOrderAsc
		if strings.HasPrefix(ordering, "-") {
			f.SortOrder = repository.SortOrderDesc
		}
		f.SortBy = strings.TrimPrefix(ordering, "-")
	}
	return f, nil
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f, err := productFilter(r)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	h.listProducts(w, r, f)
}

// FilterByPrice takes min and max and lists the products in that range,
// cheapest first.
func (h *CatalogHandler) FilterByPrice(w http.ResponseWriter, r *http.Request) {
	var f repository.ProductFilter
	var err error
	if f.MinPrice, err = queryDecimal(r, "min"); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if f.MaxPrice, err = queryDecimal(r, "max"); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	f.SortBy = "price"
	f.SortOrder = repository.SortOrderAsc
	h.listProducts(w, r, f)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request, f repository.ProductFilter) {
	page := pageFrom(r)
	products, total, err := h.catalog.ListProducts(r.Context(), f, page)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newPage(products, total, page))
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	reviews, err := h.catalog.ListReviews(r.Context(), repository.ReviewFilter{ProductID: &id})
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, ProductDetail{
		Product:       product,
		AverageRating: domain.AverageRating(reviews),
		Reviews:       reviews,
	})
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), middleware.ActorFrom(r.Context()), req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req ProductRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	product, err := h.catalog.UpdateProduct(r.Context(), middleware.ActorFrom(r.Context()), id, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	var f repository.ReviewFilter
	var err error
	if f.ProductID, err = queryUUID(r, "product"); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if f.UserID, err = queryUUID(r, "user"); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if raw := r.URL.Query().Get("rating"); raw != "" {
		if f.Rating, err = strconv.Atoi(raw); err != nil {
			middleware.RespondWithDomainError(w, r, h.logger, domain.Invalid("rating", "must be a number"))
			return
		}
	}

	reviews, err := h.catalog.ListReviews(r.Context(), f)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, reviews)
}

func (h *CatalogHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	review, err := h.catalog.AddReview(r.Context(), middleware.ActorFrom(r.Context()), req.ProductID, req.Rating, req.Comment)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, review)
}

func (h *CatalogHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req ReviewUpdateRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	review, err := h.catalog.UpdateReview(r.Context(), middleware.ActorFrom(r.Context()), id, req.Rating, req.Comment)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, review)
}

func (h *CatalogHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.catalog.DeleteReview(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
