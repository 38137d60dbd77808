package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CenterTypeHospital   = "HOSPITAL"
	CenterTypeStandalone = "STANDALONE"
)

// DialysisCenter is an entry of the public dialysis-center directory
type DialysisCenter struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	Name        string              `json:"name" db:"name"`
	Address     string              `json:"address" db:"address"`
	City        string              `json:"city" db:"city"`
	State       string              `json:"state" db:"state"`
	Contact     string              `json:"contact" db:"contact"`
	Email       string              `json:"email" db:"email"`
	Website     string              `json:"website" db:"website"`
	Type        string              `json:"type" db:"type"`
	Description string              `json:"description" db:"description"`
	ImageURL    string              `json:"image_url" db:"image_url"`
	Latitude    decimal.NullDecimal `json:"latitude" db:"latitude"`
	Longitude   decimal.NullDecimal `json:"longitude" db:"longitude"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}
