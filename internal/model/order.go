package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the payment state of an order.
type OrderStatus string

const (
	OrderUnpaid    OrderStatus = "unpaid"
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Resolvable reports whether s may be assigned to unpaid orders by a payment outcome
// or a manual override.
func (s OrderStatus) Resolvable() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Order is one product line. While unpaid it holds a stock reservation and counts
// toward the owner's payable balance.
type Order struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID    uint            `gorm:"not null;index:idx_orders_user_status,priority:1" json:"userId"`
	ProductID uint            `gorm:"not null;index" json:"productId"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	OrderDate time.Time       `gorm:"not null" json:"orderDate"`
	Status    OrderStatus     `gorm:"size:16;not null;default:unpaid;index:idx_orders_user_status,priority:2" json:"status"`

	Product *Product `json:"Product,omitempty"`
	User    *User    `json:"User,omitempty"`
}

func (Order) TableName() string { return "orders" }

// LineTotal is quantity times the current price of the joined product.
// Callers must preload Product.
func (o Order) LineTotal() decimal.Decimal {
	if o.Product == nil {
		return decimal.Zero
	}
	return o.Product.Price.Mul(decimal.NewFromInt(o.Quantity))
}
