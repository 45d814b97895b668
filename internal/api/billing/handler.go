package billing

// Gateway is the slice of the payment provider the checkout flow needs. The
// real client lives in internal/infra/razorpay and is constructed once in
// main; tests plug in a stub.
type Gateway interface {
	CreateOrder(amountPaise int64, currency, receipt string, notes map[string]interface{}) (string, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

type Handler struct {
	gw Gateway
}

func NewHandler(gw Gateway) *Handler {
	return &Handler{gw: gw}
}
