package models

import "time"

// Entity type tags used in workflow events.
const (
	EntityTypeFavor      string = "FAVOR"
	EntityTypeMarketItem string = "MARKET_ITEM"
)

// WorkflowEvent is the audit event emitted for every successful transition,
// written in the same transaction as the transition itself.
type WorkflowEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EntityType string    `gorm:"size:50;not null;index:idx_event_entity" json:"entity_type"`
	EntityID   int64     `gorm:"not null;index:idx_event_entity" json:"entity_id"`
	EventType  string    `gorm:"size:100;not null" json:"event_type"`
	Actor      string    `gorm:"size:255;not null" json:"actor"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (WorkflowEvent) TableName() string {
	return "workflow_events"
}
