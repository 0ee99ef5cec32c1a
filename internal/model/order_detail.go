package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DetailStatus is the invoice status of an OrderDetail, independent of Order.Status.
type DetailStatus string

const (
	DetailPending   DetailStatus = "pending"
	DetailCompleted DetailStatus = "completed"
	DetailCancelled DetailStatus = "cancelled"
)

func (s DetailStatus) Valid() bool {
	switch s {
	case DetailPending, DetailCompleted, DetailCancelled:
		return true
	}
	return false
}

// CanTransition: pending -> completed|cancelled, terminal states stay put.
// Staying in the same status is always allowed.
func (s DetailStatus) CanTransition(next DetailStatus) bool {
	if s == next {
		return true
	}
	return s == DetailPending && (next == DetailCompleted || next == DetailCancelled)
}

// OrderDetail is an invoice-like record for one Order. TotalAmount is stored for
// reference but always recomputed from Order and Product before it leaves the service.
type OrderDetail struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID      uint            `gorm:"not null;index" json:"userId"`
	OrderID     uint            `gorm:"not null;index" json:"orderId"`
	OrderNumber string          `gorm:"size:64;not null;index" json:"orderNumber"`
	Status      DetailStatus    `gorm:"size:16;not null;default:pending;index" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"totalAmount"`

	Order *Order `json:"Order,omitempty"`
}

func (OrderDetail) TableName() string { return "order_details" }

// Recompute sets TotalAmount from the joined Order and Product.
func (d *OrderDetail) Recompute() decimal.Decimal {
	if d.Order != nil {
		d.TotalAmount = d.Order.LineTotal()
	}
	return d.TotalAmount
}

// All lists every model for migrations.
func All() []any {
	return []any{&User{}, &Category{}, &Product{}, &Order{}, &OrderDetail{}, &EventRecord{}}
}
