package models

import (
	"time"
)

// User represents an authenticated principal's account record. Authorization
// decisions compare wallet addresses, not user ids.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	WalletAddress string     `gorm:"uniqueIndex;size:255;not null" json:"wallet_address"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
