package billing

import (
	"errors"
	"log"
	"net/http"

	"notes-marketplace/database"
	"notes-marketplace/internal/domain/billing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// VerifyPayment checks the checkout callback signature and settles the order.
// A replayed callback on an already-paid order is answered with success
// without touching anything.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req struct {
		OrderID   string `json:"order_id" binding:"required"`
		PaymentID string `json:"payment_id" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing order_id, payment_id or signature", "code": "invalid_argument"})
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified", "code": "unauthenticated"})
		return
	}

	var order billing.Order
	if err := database.DB.First(&order, "id = ?", req.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found", "code": "not_found"})
			return
		}
		log.Println("❌ verifyPayment order lookup failed:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not verify payment", "code": "internal"})
		return
	}

	if order.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order belongs to another user", "code": "permission_denied"})
		return
	}

	if !h.gw.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature) {
		if err := billing.MarkOrderFailed(database.DB, order.ID, "signature verification failed"); err != nil {
			log.Println("❌ could not mark order failed:", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment verification failed", "code": "invalid_argument"})
		return
	}

	result, err := billing.SettleOrder(database.DB, order.ID, req.PaymentID, req.Signature)
	if err != nil {
		if errors.Is(err, billing.ErrOrderNotSettleable) {
			c.JSON(http.StatusConflict, gin.H{"error": "Order already failed, create a new one", "code": "order_failed"})
			return
		}
		log.Println("❌ settlement failed for order", order.ID, ":", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not verify payment", "code": "internal"})
		return
	}

	message := "Payment verified successfully"
	if result.AlreadyPaid {
		message = "Payment already verified"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"note_id": result.NoteID,
	})
}
