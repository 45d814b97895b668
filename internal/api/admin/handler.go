package admin

import (
	"net/http"
	"time"

	"notes-marketplace/database"
	"notes-marketplace/internal/domain/billing"
	"notes-marketplace/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type AdminOrder struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	NoteID        string  `json:"note_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	FailureReason *string `json:"failure_reason,omitempty"`
	PaymentID     *string `json:"payment_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type AdminPurchase struct {
	ID          uint    `json:"id"`
	Email       string  `json:"email"`
	NoteID      string  `json:"note_id"`
	OrderID     string  `json:"order_id"`
	Amount      float64 `json:"amount"`
	PurchasedAt string  `json:"purchased_at"`
}

type AdminStats struct {
	TotalUsers     int            `json:"total_users"`
	TotalRevenue   float64        `json:"total_revenue"`
	RecentRevenue  float64        `json:"recent_revenue"`
	OrdersByStatus map[string]int `json:"orders_by_status"`
}

func AdminDashboard(c *gin.Context) {
	var stats AdminStats

	var totalUsers int64
	var totalRevenue float64
	var recentRevenue float64

	database.DB.Model(&users.User{}).Count(&totalUsers)
	database.DB.Model(&billing.Order{}).Where("status = ?", billing.OrderStatusPaid).
		Select("COALESCE(SUM(amount), 0)").Scan(&totalRevenue)

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	database.DB.Model(&billing.Order{}).
		Where("status = ? AND created_at >= ?", billing.OrderStatusPaid, thirtyDaysAgo).
		Select("COALESCE(SUM(amount), 0)").Scan(&recentRevenue)

	stats.TotalUsers = int(totalUsers)
	stats.TotalRevenue = totalRevenue
	stats.RecentRevenue = recentRevenue

	type StatusCount struct {
		Status string
		Count  int
	}
	var counts []StatusCount
	database.DB.
		Table("orders").
		Select("status, COUNT(id) as count").
		Group("status").
		Scan(&counts)

	stats.OrdersByStatus = map[string]int{}
	for _, sc := range counts {
		stats.OrdersByStatus[sc.Status] = sc.Count
	}

	c.JSON(http.StatusOK, stats)
}

// ListAllOrders returns every order, optionally filtered by ?status=. Orders
// stuck in 'created' show up here when a gateway callback never arrived.
func ListAllOrders(c *gin.Context) {
	q := database.DB.Preload("User").Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var orders []billing.Order
	if err := q.Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
		return
	}

	var result []AdminOrder
	for _, o := range orders {
		result = append(result, AdminOrder{
			ID:            o.ID,
			Email:         o.User.Email,
			NoteID:        o.NoteID,
			Amount:        o.Amount,
			Currency:      o.Currency,
			Status:        o.Status,
			FailureReason: o.FailureReason,
			PaymentID:     o.PaymentID,
			CreatedAt:     o.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, result)
}

func ListAllPurchases(c *gin.Context) {
	var purchases []billing.Purchase
	err := database.DB.Preload("User").Order("purchased_at DESC").Find(&purchases).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load purchases"})
		return
	}

	var result []AdminPurchase
	for _, p := range purchases {
		result = append(result, AdminPurchase{
			ID:          p.ID,
			Email:       p.User.Email,
			NoteID:      p.NoteID,
			OrderID:     p.OrderID,
			Amount:      p.Amount,
			PurchasedAt: p.PurchasedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, result)
}

func GetUserDetails(c *gin.Context) {
	userID := c.Param("id")

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var orders []billing.Order
	if err := database.DB.Where("user_id = ?", userID).Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   user,
		"orders": orders,
	})
}
