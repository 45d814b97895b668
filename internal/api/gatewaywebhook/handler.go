package gatewaywebhook

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"

	"notes-marketplace/internal/infra/razorpay"

	"github.com/gin-gonic/gin"
)

// webhookEvent is the envelope Razorpay posts. Only the payment entity is
// ever needed here.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	ErrorDescription string `json:"error_description"`
}

// RazorpayWebhook handles gateway-pushed payment events. Settlement goes
// through the same status-guarded transaction as client-side verification, so
// a webhook landing after the client already verified is a no-op.
func RazorpayWebhook(c *gin.Context) {
	webhookSecret := os.Getenv("RAZORPAY_WEBHOOK_SECRET")
	if webhookSecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RAZORPAY_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readWebhookBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	if !razorpay.VerifyWebhookSignature(payload, c.GetHeader("X-Razorpay-Signature"), webhookSecret) {
		log.Println("❌ Razorpay webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event"})
		return
	}

	switch event.Event {
	case "payment.captured":
		if err := handlePaymentCaptured(c, event.Payload.Payment.Entity); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return

	case "payment.failed":
		if err := handlePaymentFailed(c, event.Payload.Payment.Entity); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return

	default:
		// Acknowledge unknown events to avoid retries
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
}

func readWebhookBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
