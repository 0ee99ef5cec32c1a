package redis

import "fmt"

// RateLimitKey scopes a sliding-window counter to a route group and a caller.
func RateLimitKey(scope, caller string) string {
	return fmt.Sprintf("storefront:rate_limit:%s:%s", scope, caller)
}

// WebhookDedupKey marks a gateway notification as processed. The gateway may resend
// the same (order, status, code) triple; a status change produces a new key.
func WebhookDedupKey(gatewayOrderID, transactionStatus, statusCode string) string {
	return fmt.Sprintf("storefront:webhook:%s:%s:%s", gatewayOrderID, transactionStatus, statusCode)
}

// PaymentStateKey stores what an initiated payment covers.
func PaymentStateKey(gatewayOrderID string) string {
	return fmt.Sprintf("storefront:payment:%s", gatewayOrderID)
}
