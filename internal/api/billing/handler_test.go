package billing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"notes-marketplace/database"
	"notes-marketplace/internal/domain/billing"
	"notes-marketplace/internal/domain/notes"
	"notes-marketplace/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test_key_secret"

// stubGateway stands in for the Razorpay client: order creation is canned,
// signature verification uses the same HMAC scheme as the real gateway.
type stubGateway struct {
	orderID    string
	err        error
	lastPaise  int64
	lastNotes  map[string]interface{}
	orderCalls int
}

func (s *stubGateway) CreateOrder(amountPaise int64, currency, receipt string, notes map[string]interface{}) (string, error) {
	s.orderCalls++
	s.lastPaise = amountPaise
	s.lastNotes = notes
	if s.err != nil {
		return "", s.err
	}
	return s.orderID, nil
}

func (s *stubGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return signature == sign(orderID, paymentID)
}

func sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&users.User{},
		&users.VerificationToken{},
		&notes.Note{},
		&billing.Order{},
		&billing.Purchase{},
	))
	database.DB = db
	return db
}

func newTestRouter(h *Handler, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set("user_id", userID)
			c.Set("email", "buyer@example.com")
		}
	})
	r.POST("/orders", h.CreateOrder)
	r.POST("/payments/verify", h.VerifyPayment)
	r.GET("/purchases", GetPurchaseHistory)
	r.GET("/orders/:id", GetOrder)
	return r
}

func seedMarketplace(t *testing.T, db *gorm.DB) (buyer users.User, uploader users.User, note notes.Note) {
	t.Helper()
	buyer = users.User{Name: "Buyer", Email: "buyer@example.com", Role: "user", IsVerified: true}
	require.NoError(t, db.Create(&buyer).Error)
	uploader = users.User{Name: "Uploader", Email: "uploader@example.com", Role: "user", IsVerified: true}
	require.NoError(t, db.Create(&uploader).Error)
	note = notes.Note{ID: "note_abc", Title: "Linear Algebra Summary", UploaderID: uploader.ID, Price: 100}
	require.NoError(t, db.Create(&note).Error)
	return buyer, uploader, note
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestCreateOrder(t *testing.T) {
	db := setupDB(t)
	buyer, _, note := seedMarketplace(t, db)

	gw := &stubGateway{orderID: "order_test_1"}
	r := newTestRouter(NewHandler(gw), buyer.ID)

	w, resp := doJSON(t, r, http.MethodPost, "/orders", gin.H{"note_id": note.ID, "amount": 100.50})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "order_test_1", resp["order_id"])
	assert.Equal(t, 100.50, resp["amount"])
	assert.Equal(t, "INR", resp["currency"])

	// gateway got paise, not rupees
	assert.Equal(t, int64(10050), gw.lastPaise)
	assert.Equal(t, note.Title, gw.lastNotes["note_title"])

	var order billing.Order
	require.NoError(t, db.First(&order, "id = ?", "order_test_1").Error)
	assert.Equal(t, billing.OrderStatusCreated, order.Status)
	assert.Equal(t, buyer.ID, order.UserID)
	assert.Equal(t, note.ID, order.NoteID)
	assert.Equal(t, 100.50, order.Amount)
}

func TestCreateOrderUnauthenticated(t *testing.T) {
	db := setupDB(t)
	_, _, note := seedMarketplace(t, db)

	r := newTestRouter(NewHandler(&stubGateway{orderID: "order_x"}), 0)
	w, resp := doJSON(t, r, http.MethodPost, "/orders", gin.H{"note_id": note.ID, "amount": 50})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", resp["code"])
}

func TestCreateOrderInvalidArgument(t *testing.T) {
	db := setupDB(t)
	buyer, _, note := seedMarketplace(t, db)
	r := newTestRouter(NewHandler(&stubGateway{orderID: "order_x"}), buyer.ID)

	w, resp := doJSON(t, r, http.MethodPost, "/orders", gin.H{"note_id": "", "amount": 50})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", resp["code"])

	w, resp = doJSON(t, r, http.MethodPost, "/orders", gin.H{"note_id": note.ID, "amount": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", resp["code"])
}

func TestCreateOrderAlreadyPurchased(t *testing.T) {
	db := setupDB(t)
	buyer, _, note := seedMarketplace(t, db)
	require.NoError(t, db.Create(&billing.Purchase{
		UserID: buyer.ID, NoteID: note.ID, OrderID: "order_prev", PaymentID: "pay_prev", Amount: 100,
	}).Error)

	gw := &stubGateway{orderID: "order_new"}
	r := newTestRouter(NewHandler(gw), buyer.ID)

	w, resp := doJSON(t, r, http.MethodPost, "/orders", gin.H{"note_id": note.ID, "amount": 100})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_exists", resp["code"])
	assert.Zero(t, gw.orderCalls)

	var count int64
	db.Model(&billing.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateOrderNoteNotFound(t *testing.T) {
	db := setupDB(t)
	buyer, _, _ := seedMarketplace(t, db)
	r := newTestRouter(NewHandler(&stubGateway{orderID: "order_x"}), buyer.ID)

	w, resp := doJSON(t, r, http.MethodPost, "/orders", gin.H{"note_id": "note_missing", "amount": 100})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", resp["code"])
}

func TestCreateOrderUnverifiedBuyer(t *testing.T) {
	db := setupDB(t)
	_, _, note := seedMarketplace(t, db)
	unverified := users.User{Name: "New", Email: "new@example.com", Role: "user", IsVerified: false}
	require.NoError(t, db.Create(&unverified).Error)

	r := newTestRouter(NewHandler(&stubGateway{orderID: "order_x"}), unverified.ID)
	w, resp := doJSON(t, r, http.MethodPost, "/orders", gin.H{"note_id": note.ID, "amount": 100})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "permission_denied", resp["code"])
}

func TestCreateOrderGatewayFailure(t *testing.T) {
	db := setupDB(t)
	buyer, _, note := seedMarketplace(t, db)

	gw := &stubGateway{err: errors.New("gateway down")}
	r := newTestRouter(NewHandler(gw), buyer.ID)

	w, resp := doJSON(t, r, http.MethodPost, "/orders", gin.H{"note_id": note.ID, "amount": 100})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal", resp["code"])

	var count int64
	db.Model(&billing.Order{}).Count(&count)
	assert.Zero(t, count)
}

func seedOrder(t *testing.T, db *gorm.DB, buyer users.User, note notes.Note) billing.Order {
	t.Helper()
	order := billing.Order{
		ID: "order_test_1", NoteID: note.ID, UserID: buyer.ID,
		Amount: 100, Currency: "INR", Status: billing.OrderStatusCreated,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestVerifyPayment(t *testing.T) {
	db := setupDB(t)
	buyer, uploader, note := seedMarketplace(t, db)
	order := seedOrder(t, db, buyer, note)

	r := newTestRouter(NewHandler(&stubGateway{}), buyer.ID)
	w, resp := doJSON(t, r, http.MethodPost, "/payments/verify", gin.H{
		"order_id":   order.ID,
		"payment_id": "pay_1",
		"signature":  sign(order.ID, "pay_1"),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, note.ID, resp["note_id"])

	var got billing.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, billing.OrderStatusPaid, got.Status)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, "pay_1", *got.PaymentID)
	require.NotNil(t, got.Signature)

	var purchase billing.Purchase
	require.NoError(t, db.First(&purchase, "order_id = ?", order.ID).Error)
	assert.Equal(t, buyer.ID, purchase.UserID)
	assert.Equal(t, note.ID, purchase.NoteID)
	assert.Equal(t, 100.0, purchase.Amount)

	var gotNote notes.Note
	require.NoError(t, db.First(&gotNote, "id = ?", note.ID).Error)
	assert.Equal(t, int64(1), gotNote.SalesCount)

	var seller users.User
	require.NoError(t, db.First(&seller, "id = ?", uploader.ID).Error)
	assert.Equal(t, 100.0, seller.TotalEarnings)
}

func TestVerifyPaymentBadSignature(t *testing.T) {
	db := setupDB(t)
	buyer, uploader, note := seedMarketplace(t, db)
	order := seedOrder(t, db, buyer, note)

	r := newTestRouter(NewHandler(&stubGateway{}), buyer.ID)

	// a bad signature fails the same way every time it is retried
	for i := 0; i < 2; i++ {
		w, resp := doJSON(t, r, http.MethodPost, "/payments/verify", gin.H{
			"order_id":   order.ID,
			"payment_id": "pay_1",
			"signature":  "forged",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_argument", resp["code"])
	}

	var got billing.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, billing.OrderStatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)

	var purchases int64
	db.Model(&billing.Purchase{}).Count(&purchases)
	assert.Zero(t, purchases)

	var gotNote notes.Note
	require.NoError(t, db.First(&gotNote, "id = ?", note.ID).Error)
	assert.Zero(t, gotNote.SalesCount)

	var seller users.User
	require.NoError(t, db.First(&seller, "id = ?", uploader.ID).Error)
	assert.Zero(t, seller.TotalEarnings)
}

func TestVerifyPaymentMissingFields(t *testing.T) {
	db := setupDB(t)
	buyer, _, note := seedMarketplace(t, db)
	seedOrder(t, db, buyer, note)

	r := newTestRouter(NewHandler(&stubGateway{}), buyer.ID)
	w, resp := doJSON(t, r, http.MethodPost, "/payments/verify", gin.H{
		"order_id": "order_test_1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", resp["code"])
}

func TestVerifyPaymentOrderNotFound(t *testing.T) {
	db := setupDB(t)
	buyer, _, _ := seedMarketplace(t, db)

	r := newTestRouter(NewHandler(&stubGateway{}), buyer.ID)
	w, resp := doJSON(t, r, http.MethodPost, "/payments/verify", gin.H{
		"order_id": "order_missing", "payment_id": "pay_1", "signature": "x",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", resp["code"])
}

func TestVerifyPaymentWrongUser(t *testing.T) {
	db := setupDB(t)
	buyer, _, note := seedMarketplace(t, db)
	order := seedOrder(t, db, buyer, note)

	other := users.User{Name: "Other", Email: "other@example.com", Role: "user", IsVerified: true}
	require.NoError(t, db.Create(&other).Error)

	r := newTestRouter(NewHandler(&stubGateway{}), other.ID)
	w, resp := doJSON(t, r, http.MethodPost, "/payments/verify", gin.H{
		"order_id":   order.ID,
		"payment_id": "pay_1",
		"signature":  sign(order.ID, "pay_1"),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "permission_denied", resp["code"])

	// no writes happened
	var got billing.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, billing.OrderStatusCreated, got.Status)
}

func TestVerifyPaymentIdempotent(t *testing.T) {
	db := setupDB(t)
	buyer, uploader, note := seedMarketplace(t, db)
	order := seedOrder(t, db, buyer, note)

	r := newTestRouter(NewHandler(&stubGateway{}), buyer.ID)
	body := gin.H{
		"order_id":   order.ID,
		"payment_id": "pay_1",
		"signature":  sign(order.ID, "pay_1"),
	}

	w, _ := doJSON(t, r, http.MethodPost, "/payments/verify", body)
	require.Equal(t, http.StatusOK, w.Code)

	// the replay succeeds without applying anything twice
	w, resp := doJSON(t, r, http.MethodPost, "/payments/verify", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Payment already verified", resp["message"])

	var purchases int64
	db.Model(&billing.Purchase{}).Count(&purchases)
	assert.Equal(t, int64(1), purchases)

	var gotNote notes.Note
	require.NoError(t, db.First(&gotNote, "id = ?", note.ID).Error)
	assert.Equal(t, int64(1), gotNote.SalesCount)

	var seller users.User
	require.NoError(t, db.First(&seller, "id = ?", uploader.ID).Error)
	assert.Equal(t, 100.0, seller.TotalEarnings)
}

func TestVerifyPaymentFailedOrderIsTerminal(t *testing.T) {
	db := setupDB(t)
	buyer, _, note := seedMarketplace(t, db)
	order := seedOrder(t, db, buyer, note)
	require.NoError(t, billing.MarkOrderFailed(db, order.ID, "signature verification failed"))

	r := newTestRouter(NewHandler(&stubGateway{}), buyer.ID)
	w, resp := doJSON(t, r, http.MethodPost, "/payments/verify", gin.H{
		"order_id":   order.ID,
		"payment_id": "pay_1",
		"signature":  sign(order.ID, "pay_1"),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "order_failed", resp["code"])
}

func TestGetPurchaseHistory(t *testing.T) {
	db := setupDB(t)
	buyer, _, note := seedMarketplace(t, db)
	require.NoError(t, db.Create(&billing.Purchase{
		UserID: buyer.ID, NoteID: note.ID, OrderID: "order_1", PaymentID: "pay_1", Amount: 100,
	}).Error)

	r := newTestRouter(NewHandler(&stubGateway{}), buyer.ID)
	req := httptest.NewRequest(http.MethodGet, "/purchases", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var list []billing.Purchase
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, note.ID, list[0].NoteID)
}
