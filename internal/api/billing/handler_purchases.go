package billing

import (
	"errors"
	"net/http"

	"notes-marketplace/database"
	"notes-marketplace/internal/domain/billing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func GetPurchaseHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthenticated"})
		return
	}

	var purchases []billing.Purchase
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("purchased_at DESC").
		Find(&purchases).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load purchases", "code": "internal"})
		return
	}

	c.JSON(http.StatusOK, purchases)
}

func GetOrder(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthenticated"})
		return
	}

	var order billing.Order
	if err := database.DB.First(&order, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found", "code": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order", "code": "internal"})
		return
	}

	if order.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order belongs to another user", "code": "permission_denied"})
		return
	}

	c.JSON(http.StatusOK, order)
}
