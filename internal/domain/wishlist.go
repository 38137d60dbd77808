package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wishlist is the per-user set of saved products.
type Wishlist struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Products  []Product `json:"products"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (w *Wishlist) OwnerID() uuid.UUID { return w.UserID }

func (w *Wishlist) Contains(productID uuid.UUID) bool {
	for _, p := range w.Products {
		if p.ID == productID {
			return true
		}
	}
	return false
}
