package billing

import (
	"time"

	"notes-marketplace/internal/domain/users"
)

// Purchase records a completed, paid acquisition of a note. At most one per
// (buyer, note) pair; the composite unique index backs up the handler-level
// duplicate check.
type Purchase struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"uniqueIndex:idx_purchases_user_note;not null"`
	User   users.User
	NoteID string `gorm:"uniqueIndex:idx_purchases_user_note;not null"`

	OrderID   string `gorm:"uniqueIndex"`
	PaymentID string
	Amount    float64

	PurchasedAt time.Time
	CreatedAt   time.Time
}
