package billing

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"notes-marketplace/database"
	"notes-marketplace/internal/domain/billing"
	"notes-marketplace/internal/domain/notes"
	"notes-marketplace/internal/domain/users"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// CreateOrder validates a purchase request, creates the remote gateway order
// and records the matching pending Order. Nothing about the note or the buyer
// is mutated here; that only happens on verification.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req struct {
		NoteID string  `json:"note_id"`
		Amount float64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_argument"})
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified", "code": "unauthenticated"})
		return
	}

	if req.NoteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing note_id", "code": "invalid_argument"})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive", "code": "invalid_argument"})
		return
	}

	var (
		buyer        users.User
		note         notes.Note
		alreadyOwned bool
		noteMissing  bool
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		var p billing.Purchase
		err := database.DB.First(&p, "user_id = ? AND note_id = ?", userID, req.NoteID).Error
		if err == nil {
			alreadyOwned = true
			return nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := database.DB.First(&note, "id = ?", req.NoteID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			noteMissing = true
			return nil
		}
		return err
	})
	g.Go(func() error {
		return database.DB.First(&buyer, "id = ?", userID).Error
	})
	if err := g.Wait(); err != nil {
		log.Println("❌ createOrder lookup failed:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create order", "code": "internal"})
		return
	}

	if alreadyOwned {
		c.JSON(http.StatusConflict, gin.H{"error": "You already own this note", "code": "already_exists"})
		return
	}
	if noteMissing {
		c.JSON(http.StatusNotFound, gin.H{"error": "Note not found", "code": "not_found"})
		return
	}
	if !buyer.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email first", "code": "permission_denied"})
		return
	}

	amountPaise := int64(math.Round(req.Amount * 100))
	receipt := fmt.Sprintf("note_%s_%d", req.NoteID, time.Now().Unix())

	orderID, err := h.gw.CreateOrder(amountPaise, "INR", receipt, map[string]interface{}{
		"note_id":    req.NoteID,
		"user_id":    fmt.Sprint(userID),
		"note_title": note.Title,
	})
	if err != nil {
		log.Println("❌ gateway order creation failed:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create order", "code": "internal"})
		return
	}

	order := billing.Order{
		ID:       orderID,
		NoteID:   req.NoteID,
		UserID:   userID,
		Amount:   req.Amount,
		Currency: "INR",
		Receipt:  receipt,
		Status:   billing.OrderStatusCreated,
	}
	if err := database.DB.Create(&order).Error; err != nil {
		// The remote order exists with no local record now. Log the id so the
		// orphan can be reconciled by hand.
		log.Printf("❌ gateway order %s has no local record, reconcile manually: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create order", "code": "internal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"amount":   req.Amount,
		"currency": "INR",
	})
}
