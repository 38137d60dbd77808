package transport

import (
	"net/http"

	"kidney-story/internal/domain"
	"kidney-story/internal/middleware"
	"kidney-story/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartItemRequest struct {
	ProductID uuid.UUID `json:"product" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,gte=1"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

type WishlistRequest struct {
	ProductID uuid.UUID `json:"product" validate:"required"`
}

type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	ContactNumber   string `json:"contact_number" validate:"required,max=20"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type CartItemView struct {
	domain.CartItem
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CartView adds the derived totals to a cart.
type CartView struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Items     []CartItemView  `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func cartView(cart *domain.Cart) CartView {
	items := make([]CartItemView, len(cart.Items))
	for i := range cart.Items {
		items[i] = CartItemView{CartItem: cart.Items[i], Subtotal: cart.Items[i].Subtotal()}
	}
	return CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     items,
		Total:     cart.Total(),
		ItemCount: cart.ItemCount(),
	}
}

// ShopHandler serves the per-user cart, wishlist and orders.
type ShopHandler struct {
	carts     service.CartService
	wishlists service.WishlistService
	orders    service.OrderService
	logger    *zap.Logger
}

func NewShopHandler(carts service.CartService, wishlists service.WishlistService, orders service.OrderService, logger *zap.Logger) *ShopHandler {
	return &ShopHandler{carts: carts, wishlists: wishlists, orders: orders, logger: logger}
}

// RegisterRoutes mounts cart, cart-items, wishlist and orders on a
// /products router. Every route requires authentication.
func (h *ShopHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Group(func(r chi.Router) {
		r.Use(g.Auth)

		r.Get("/cart", h.GetCart)
		r.Delete("/cart", h.ClearCart)

		r.Route("/cart-items", func(r chi.Router) {
			r.Get("/", h.ListCartItems)
			r.Post("/", h.AddCartItem)
			r.Put("/{id}", h.UpdateCartItem)
			r.Patch("/{id}", h.UpdateCartItem)
			r.Delete("/{id}", h.RemoveCartItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.GetWishlist)
			r.Post("/", h.AddToWishlist)
			r.Post("/remove", h.RemoveFromWishlist)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.Checkout)
			r.Get("/{id}", h.GetOrder)
			r.Post("/{id}/update-status", h.UpdateOrderStatus)
		})
	})
}

func (h *ShopHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), middleware.ActorFrom(r.Context()).UserID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cartView(cart))
}

func (h *ShopHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), middleware.ActorFrom(r.Context()).UserID); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShopHandler) ListCartItems(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), middleware.ActorFrom(r.Context()).UserID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cartView(cart).Items)
}

// AddCartItem merges into an existing line for the same product. Quantity
// defaults to one.
func (h *ShopHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.carts.AddItem(r.Context(), middleware.ActorFrom(r.Context()).UserID, req.ProductID, req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, CartItemView{CartItem: *item, Subtotal: item.Subtotal()})
}

func (h *ShopHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req QuantityRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	item, err := h.carts.UpdateItem(r.Context(), middleware.ActorFrom(r.Context()).UserID, id, req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, CartItemView{CartItem: *item, Subtotal: item.Subtotal()})
}

func (h *ShopHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.carts.RemoveItem(r.Context(), middleware.ActorFrom(r.Context()).UserID, id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShopHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	list, err := h.wishlists.Get(r.Context(), middleware.ActorFrom(r.Context()).UserID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, list)
}

func (h *ShopHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	var req WishlistRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	list, err := h.wishlists.AddProduct(r.Context(), middleware.ActorFrom(r.Context()).UserID, req.ProductID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, list)
}

func (h *ShopHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	var req WishlistRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	list, err := h.wishlists.RemoveProduct(r.Context(), middleware.ActorFrom(r.Context()).UserID, req.ProductID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, list)
}

// Checkout turns the caller's cart into an order.
func (h *ShopHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	actor := middleware.ActorFrom(r.Context())
	order, err := h.orders.Checkout(r.Context(), actor.UserID, domain.CheckoutDetails{
		ShippingAddress: req.ShippingAddress,
		ContactNumber:   req.ContactNumber,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

func (h *ShopHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := pageFrom(r)
	orders, total, err := h.orders.ListOrders(r.Context(), middleware.ActorFrom(r.Context()), r.URL.Query().Get("status"), page)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newPage(orders, total, page))
}

func (h *ShopHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	order, err := h.orders.GetOrder(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus is admin only; the service enforces it.
func (h *ShopHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req StatusRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	order, err := h.orders.UpdateStatus(r.Context(), middleware.ActorFrom(r.Context()), id, req.Status)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}
