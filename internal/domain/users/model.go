package users

import (
	"time"
)

type User struct {
	ID          uint `gorm:"primaryKey"`
	Name        string
	Email       string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password    *string `gorm:""`
	Role        string
	IsVerified  bool
	Institution string

	// Gross earnings from note sales. The platform fee is deducted at
	// redemption time, outside this service.
	TotalEarnings float64 `gorm:"column:total_earnings;not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
