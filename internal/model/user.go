package model

import "time"

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// User mirrors the identity store. Credentials live with the token issuer, not here.
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name  string `gorm:"size:128" json:"name"`
	Email string `gorm:"size:128;uniqueIndex" json:"email"`
	Role  string `gorm:"size:16;not null;default:customer" json:"role"`
	Phone string `gorm:"size:32" json:"phone,omitempty"`
}

func (User) TableName() string { return "users" }
