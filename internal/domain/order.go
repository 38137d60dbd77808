package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderStatuses lists every valid status in display order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus accepts only the exact enum values.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrInvalidOrderStatus
}

// Order is an immutable snapshot of a cart taken at checkout. Only Status
// changes after creation.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	ShippingAddress string          `json:"shipping_address" db:"shipping_address"`
	ContactNumber   string          `json:"contact_number" db:"contact_number"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

func (o *Order) OwnerID() uuid.UUID { return o.UserID }

// OrderItem records the product price at purchase time.
type OrderItem struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrderID      uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID    uuid.UUID       `json:"product_id" db:"product_id"`
	ProductTitle string          `json:"product_title"`
	Quantity     int             `json:"quantity" db:"quantity"`
	Price        decimal.Decimal `json:"price" db:"price"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CheckoutDetails are the shipping fields captured at checkout.
type CheckoutDetails struct {
	ShippingAddress string
	ContactNumber   string
}

func (d CheckoutDetails) Validate() error {
	if strings.TrimSpace(d.ShippingAddress) == "" {
		return Invalid("shipping_address", "is required")
	}
	contact := strings.TrimSpace(d.ContactNumber)
	if contact == "" {
		return Invalid("contact_number", "is required")
	}
	if len(contact) > 20 {
		return Invalid("contact_number", "must be at most 20 characters")
	}
	return nil
}

// NewOrderFromCart snapshots cart into a PENDING order, copying each line's
// current product price. The total equals the sum of the locked lines.
func NewOrderFromCart(cart *Cart, details CheckoutDetails, now time.Time) (*Order, error) {
	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}

	order := &Order{
		ID:              uuid.New(),
		UserID:          cart.UserID,
		Status:          OrderStatusPending,
		ShippingAddress: strings.TrimSpace(details.ShippingAddress),
		ContactNumber:   strings.TrimSpace(details.ContactNumber),
		TotalAmount:     cart.Total(),
		Items:           make([]OrderItem, 0, len(cart.Items)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, ci := range cart.Items {
		order.Items = append(order.Items, OrderItem{
			ID:           uuid.New(),
			OrderID:      order.ID,
			ProductID:    ci.ProductID,
			ProductTitle: ci.Product.Title,
			Quantity:     ci.Quantity,
			Price:        ci.Product.Price,
			CreatedAt:    now,
		})
	}
	return order, nil
}

// ItemsTotal recomputes the sum of the locked lines.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Subtotal())
	}
	return total
}
