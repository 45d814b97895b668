package gatewaywebhook

import (
	"fmt"

	"notes-marketplace/database"
	"notes-marketplace/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

func handlePaymentFailed(c *gin.Context, payment paymentEntity) error {
	if payment.OrderID == "" {
		return nil
	}

	reason := payment.ErrorDescription
	if reason == "" {
		reason = "payment failed at gateway"
	}

	if err := billing.MarkOrderFailed(database.DB, payment.OrderID, reason); err != nil {
		return fmt.Errorf("failed to mark order %s failed: %w", payment.OrderID, err)
	}

	return nil
}
