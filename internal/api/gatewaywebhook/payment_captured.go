package gatewaywebhook

import (
	"errors"
	"fmt"
	"log"

	"notes-marketplace/database"
	"notes-marketplace/internal/domain/billing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func handlePaymentCaptured(c *gin.Context, payment paymentEntity) error {
	if payment.OrderID == "" || payment.ID == "" {
		return errors.New("payment.captured event missing order or payment id")
	}

	_, err := billing.SettleOrder(database.DB, payment.OrderID, payment.ID, c.GetHeader("X-Razorpay-Signature"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// An order with no local record is the known orphan case. Not
			// retryable; log it for reconciliation and move on.
			log.Printf("❌ webhook for unknown order %s (payment %s), reconcile manually", payment.OrderID, payment.ID)
			return nil
		}
		if errors.Is(err, billing.ErrOrderNotSettleable) {
			return nil
		}
		return fmt.Errorf("failed to settle order %s: %w", payment.OrderID, err)
	}

	return nil
}
