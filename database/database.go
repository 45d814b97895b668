package database

import (
	"fmt"
	"log"
	"os"

	"notes-marketplace/internal/domain/billing"
	"notes-marketplace/internal/domain/notes"
	"notes-marketplace/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("❌ DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}

	DB = db

	if err := DB.AutoMigrate(
		// core
		&users.User{},
		&users.VerificationToken{},
		&notes.Note{},

		// payments
		&billing.Order{},
		&billing.Purchase{},
	); err != nil {
		log.Fatal("❌ AutoMigrate error:", err)
	}

	fmt.Println("✅ Connected and migrated successfully")
}
