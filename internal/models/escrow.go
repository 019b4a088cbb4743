package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Workflow instance names. Each owns exactly one escrow account.
const (
	WorkflowFavors string = "favors"
	WorkflowMarket string = "market_items"
)

// EscrowAccount tracks the total value a workflow currently holds in custody.
// Only Lock and Release mutate it.
type EscrowAccount struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Workflow  string          `gorm:"uniqueIndex;size:50;not null" json:"workflow"`
	Locked    decimal.Decimal `gorm:"type:decimal(18,8);not null;default:0" json:"locked"`
	UpdatedAt time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (EscrowAccount) TableName() string {
	return "escrow_accounts"
}

type EscrowDirection string

const (
	EscrowDirectionLock    EscrowDirection = "LOCK"
	EscrowDirectionRelease EscrowDirection = "RELEASE"
)

// EscrowEntry is the audit row written for every escrow adjustment.
type EscrowEntry struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Workflow     string          `gorm:"size:50;not null;index" json:"workflow"`
	Direction    EscrowDirection `gorm:"size:20;not null" json:"direction"`
	Counterparty string          `gorm:"size:255;not null" json:"counterparty"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"amount"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (EscrowEntry) TableName() string {
	return "escrow_entries"
}

// WorkflowSequence issues monotonically increasing entity ids, one row per
// workflow so the counters are never shared.
type WorkflowSequence struct {
	Name   string `gorm:"primaryKey;size:50" json:"name"`
	NextID int64  `gorm:"not null;default:1" json:"next_id"`
}

func (WorkflowSequence) TableName() string {
	return "workflow_sequences"
}
