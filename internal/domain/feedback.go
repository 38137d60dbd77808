package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	FeedbackTypeBug     = "BUG"
	FeedbackTypeFeature = "FEATURE"
	FeedbackTypeGeneral = "GENERAL"

	FeedbackStatusPending     = "PENDING"
	FeedbackStatusAccepted    = "ACCEPTED"
	FeedbackStatusDeclined    = "DECLINED"
	FeedbackStatusImplemented = "IMPLEMENTED"
)

func ValidFeedbackStatus(s string) bool {
	switch s {
	case FeedbackStatusPending, FeedbackStatusAccepted, FeedbackStatusDeclined, FeedbackStatusImplemented:
		return true
	}
	return false
}

// Feedback is a bug report, feature request or general remark from a user.
type Feedback struct {
	ID          uuid.UUID          `json:"id" db:"id"`
	Title       string             `json:"title" db:"title"`
	Description string             `json:"description" db:"description"`
	Type        string             `json:"type" db:"type"`
	Status      string             `json:"status" db:"status"`
	UserID      uuid.UUID          `json:"user_id" db:"user_id"`
	Responses   []FeedbackResponse `json:"responses"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`
}

func (f *Feedback) OwnerID() uuid.UUID { return f.UserID }

type FeedbackResponse struct {
	ID         uuid.UUID `json:"id" db:"id"`
	FeedbackID uuid.UUID `json:"feedback_id" db:"feedback_id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

func (r *FeedbackResponse) OwnerID() uuid.UUID { return r.UserID }
