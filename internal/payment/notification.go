package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"storefront/internal/model"
)

// Notification is the webhook body the gateway posts.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	CustomField1      string `json:"custom_field1"`
	CustomField2      string `json:"custom_field2"`
	CustomField3      string `json:"custom_field3"`
}

// Signature is hex(sha512(order_id + status_code + gross_amount + server_key)).
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// Verify compares the provided signature with the expected one in constant time.
func (n Notification) Verify(serverKey string) bool {
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	got := strings.ToLower(strings.TrimSpace(n.SignatureKey))
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// ResolveStatus maps gateway statuses onto an order status. ok=false means the
// combination is unknown and orders must be left alone.
func ResolveStatus(transactionStatus, fraudStatus string) (model.OrderStatus, bool) {
	switch transactionStatus {
	case "capture":
		switch fraudStatus {
		case "challenge":
			return model.OrderPending, true
		case "accept":
			return model.OrderCompleted, true
		}
	case "settlement":
		return model.OrderCompleted, true
	case "deny", "cancel", "expire":
		return model.OrderCancelled, true
	case "pending":
		return model.OrderPending, true
	}
	return "", false
}

// FormatOrderIDs renders ids as the comma-separated custom_field3 value.
func FormatOrderIDs(ids []uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	return strings.Join(parts, ",")
}

// ParseOrderIDs reads custom_field3. Empty input yields nil.
func ParseOrderIDs(s string) ([]uint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []uint
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil || v == 0 {
			return nil, fmt.Errorf("invalid order id %q", part)
		}
		out = append(out, uint(v))
	}
	return out, nil
}

func parseUserID(s string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return uint(v), nil
}
