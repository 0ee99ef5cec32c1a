package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog item. Stock is mutated only through the ledger package.
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string          `gorm:"size:128;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       int64           `gorm:"not null;default:0" json:"stock"`
	ImgURL      string          `gorm:"type:text" json:"imgUrl,omitempty"`
	CategoryID  uint            `gorm:"index" json:"categoryId,omitempty"`
	UserID      uint            `gorm:"index" json:"userId,omitempty"`

	Category *Category `json:"Category,omitempty"`
}

func (Product) TableName() string { return "products" }

// ProductSummary is the narrowed projection returned alongside an order.
type ProductSummary struct {
	ID     uint            `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	ImgURL string          `json:"imgUrl"`
}

// Summary narrows p to the fields an order response carries.
func (p Product) Summary() ProductSummary {
	return ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price, ImgURL: p.ImgURL}
}
