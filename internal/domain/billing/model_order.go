package billing

import (
	"time"

	"notes-marketplace/internal/domain/users"
)

const (
	OrderStatusCreated = "created"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// Order tracks one gateway checkout attempt. Keyed by the gateway-assigned
// order id. Created by the checkout endpoint, mutated only by payment
// verification, never deleted.
type Order struct {
	ID     string `gorm:"primaryKey"`
	NoteID string `gorm:"index;not null"`
	UserID uint   `gorm:"index;not null"`
	User   users.User

	// Amount in currency major units (rupees, not paise).
	Amount   float64
	Currency string `gorm:"not null;default:'INR'"`
	Receipt  string

	Status        string `gorm:"index;not null;default:'created'"`
	FailureReason *string
	PaymentID     *string
	Signature     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
