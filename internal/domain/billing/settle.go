package billing

import (
	"errors"
	"time"

	"notes-marketplace/internal/domain/notes"
	"notes-marketplace/internal/domain/users"

	"gorm.io/gorm"
)

// ErrOrderNotSettleable is returned when the order exists but is in the
// failed state. A failed order is terminal; the client has to create a new
// one.
var ErrOrderNotSettleable = errors.New("order is not in a settleable state")

type SettleResult struct {
	NoteID      string
	AlreadyPaid bool
}

// SettleOrder commits a verified payment in a single transaction:
// order -> paid, purchase created, note sales_count +1, uploader earnings
// credited with the order amount. All four apply together or not at all.
//
// The status guard (status must still be 'created') makes a second call on a
// paid order a no-op, so repeated callbacks cannot double-count sales or
// earnings.
func SettleOrder(db *gorm.DB, orderID, paymentID, signature string) (*SettleResult, error) {
	result := &SettleResult{}

	err := db.Transaction(func(tx *gorm.DB) error {
		var order Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}
		result.NoteID = order.NoteID

		res := tx.Model(&Order{}).
			Where("id = ? AND status = ?", order.ID, OrderStatusCreated).
			Updates(map[string]interface{}{
				"status":     OrderStatusPaid,
				"payment_id": paymentID,
				"signature":  signature,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Someone got here first. Re-read to tell a duplicate callback
			// from a dead order.
			var current Order
			if err := tx.First(&current, "id = ?", order.ID).Error; err != nil {
				return err
			}
			if current.Status == OrderStatusPaid {
				result.AlreadyPaid = true
				return nil
			}
			return ErrOrderNotSettleable
		}

		purchase := Purchase{
			UserID:      order.UserID,
			NoteID:      order.NoteID,
			OrderID:     order.ID,
			PaymentID:   paymentID,
			Amount:      order.Amount,
			PurchasedAt: time.Now(),
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return err
		}

		if err := tx.Model(&notes.Note{}).
			Where("id = ?", order.NoteID).
			UpdateColumn("sales_count", gorm.Expr("sales_count + ?", 1)).Error; err != nil {
			return err
		}

		// Credit the uploader. A missing note is not fatal: the purchase and
		// order stay valid, there is just nobody left to pay.
		var note notes.Note
		if err := tx.First(&note, "id = ?", order.NoteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Model(&users.User{}).
			Where("id = ?", note.UploaderID).
			UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", order.Amount)).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkOrderFailed records a verification failure on the order. Paid orders
// are never downgraded.
func MarkOrderFailed(db *gorm.DB, orderID, reason string) error {
	return db.Model(&Order{}).
		Where("id = ? AND status <> ?", orderID, OrderStatusPaid).
		Updates(map[string]interface{}{
			"status":         OrderStatusFailed,
			"failure_reason": reason,
		}).Error
}
