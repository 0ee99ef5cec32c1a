package model

import "time"

// EventRecord is one domain event as seen on the broker.
type EventRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	EventID       string    `gorm:"size:64;uniqueIndex;not null" json:"eventId"`
	EventType     string    `gorm:"size:64;index;not null" json:"eventType"`
	CorrelationID string    `gorm:"size:64;index" json:"correlationId"`
	OccurredAt    time.Time `json:"occurredAt"`
	Payload       string    `gorm:"type:text" json:"payload"`
}

func (EventRecord) TableName() string { return "order_events" }
