package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	razorpaygo "github.com/razorpay/razorpay-go"
)

// Client wraps the Razorpay SDK. Built once at startup and handed to the
// billing handler; the key secret stays in here and is never logged.
type Client struct {
	api       *razorpaygo.Client
	keySecret string
}

func NewClient(keyID, keySecret string) *Client {
	return &Client{
		api:       razorpaygo.NewClient(keyID, keySecret),
		keySecret: keySecret,
	}
}

// CreateOrder creates a remote order and returns the gateway-assigned id.
// Amount is in paise.
func (c *Client) CreateOrder(amountPaise int64, currency, receipt string, notes map[string]interface{}) (string, error) {
	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	body, err := c.api.Order.Create(data, nil)
	if err != nil {
		return "", err
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("gateway order response missing id")
	}
	return id, nil
}

// VerifyPaymentSignature checks the checkout callback signature:
// HMAC-SHA256 hex over "orderID|paymentID" keyed with the key secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyHMAC([]byte(orderID+"|"+paymentID), signature, c.keySecret)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// raw webhook body.
func VerifyWebhookSignature(body []byte, signature, webhookSecret string) bool {
	return verifyHMAC(body, signature, webhookSecret)
}

func verifyHMAC(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
