package routes

import (
	adminapi "notes-marketplace/internal/api/admin"
	authapi "notes-marketplace/internal/api/auth"
	billingapi "notes-marketplace/internal/api/billing"
	"notes-marketplace/internal/api/gatewaywebhook"
	"notes-marketplace/internal/api/users"
	"notes-marketplace/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, billing *billingapi.Handler) {
	r.POST("/webhook", gatewaywebhook.RazorpayWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)
	public.GET("/verify", users.VerifyEmail)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())
	auth.GET("/me", users.GetCurrentUser)

	auth.POST("/orders", billing.CreateOrder)
	auth.POST("/payments/verify", billing.VerifyPayment)
	auth.GET("/orders/:id", billingapi.GetOrder)
	auth.GET("/purchases", billingapi.GetPurchaseHistory)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/dashboard", adminapi.AdminDashboard)
	admin.GET("/orders", adminapi.ListAllOrders)
	admin.GET("/purchases", adminapi.ListAllPurchases)
	admin.GET("/user/:id", adminapi.GetUserDetails)
}
