package model

import "time"

type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name string `gorm:"size:64;not null;uniqueIndex" json:"name"`
}

func (Category) TableName() string { return "categories" }
