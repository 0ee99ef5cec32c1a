package events

import "github.com/shopspring/decimal"

type OrderPayload struct {
	OrderID   uint            `json:"order_id"`
	UserID    uint            `json:"user_id"`
	ProductID uint            `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Status    string          `json:"status"`
}

type OrderDetailPayload struct {
	OrderNumber string          `json:"order_number"`
	UserID      uint            `json:"user_id"`
	DetailIDs   []uint          `json:"detail_ids"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
}

type PaymentInitiatedPayload struct {
	GatewayOrderID string `json:"gateway_order_id"`
	UserID         uint   `json:"user_id"`
	OrderIDs       []uint `json:"order_ids"`
	Amount         int64  `json:"amount"`
}

type PaymentResolvedPayload struct {
	GatewayOrderID    string `json:"gateway_order_id"`
	UserID            uint   `json:"user_id"`
	TransactionStatus string `json:"transaction_status"`
	Status            string `json:"status"`
	Affected          int64  `json:"affected"`
	Source            string `json:"source"` // webhook | manual
}
