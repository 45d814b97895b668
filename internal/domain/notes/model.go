package notes

import (
	"time"

	"notes-marketplace/internal/domain/users"
)

// Note is the study material being sold. Uploading and editing notes is
// handled elsewhere; the payments core only reads the title/uploader and
// bumps the sales counter.
type Note struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string
	Subject     string

	UploaderID uint `gorm:"index"`
	Uploader   users.User

	Price      float64
	SalesCount int64 `gorm:"column:sales_count;not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
