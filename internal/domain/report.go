package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReportContentThread = "THREAD"
	ReportContentPost   = "POST"

	ReportReasonSpam          = "SPAM"
	ReportReasonOffensive     = "OFFENSIVE"
	ReportReasonInappropriate = "INAPPROPRIATE"
	ReportReasonOther         = "OTHER"

	ReportStatusPending   = "PENDING"
	ReportStatusResolved  = "RESOLVED"
	ReportStatusDismissed = "DISMISSED"
)

// ReportedContent flags a forum thread or post for moderation.
type ReportedContent struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ContentType string    `json:"content_type" db:"content_type"`
	ContentID   uuid.UUID `json:"content_id" db:"content_id"`
	ReportedBy  uuid.UUID `json:"reported_by" db:"reported_by"`
	Reason      string    `json:"reason" db:"reason"`
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (r *ReportedContent) OwnerID() uuid.UUID { return r.ReportedBy }

func ValidReportStatus(s string) bool {
	return s == ReportStatusPending || s == ReportStatusResolved || s == ReportStatusDismissed
}
