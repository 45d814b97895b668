package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT       string
	DB_URL     string
	JWT_SECRET string

	RAZORPAY_KEY_ID         string
	RAZORPAY_KEY_SECRET     string
	RAZORPAY_WEBHOOK_SECRET string

	CORS_ORIGIN string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")

	RAZORPAY_KEY_ID = mustEnv("RAZORPAY_KEY_ID")
	RAZORPAY_KEY_SECRET = mustEnv("RAZORPAY_KEY_SECRET")
	RAZORPAY_WEBHOOK_SECRET = getEnv("RAZORPAY_WEBHOOK_SECRET", "")

	CORS_ORIGIN = getEnv("CORS_ORIGIN", "http://localhost:5173")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
