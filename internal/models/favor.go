package models

import (
	"time"

	"github.com/google/uuid"
)

type FavorStatus string

const (
	FavorStatusPending      FavorStatus = "PENDING"
	FavorStatusOpen         FavorStatus = "OPEN"
	FavorStatusInProgress   FavorStatus = "IN_PROGRESS"
	FavorStatusCompleted    FavorStatus = "COMPLETED"
	FavorStatusAcknowledged FavorStatus = "ACKNOWLEDGED"
	FavorStatusRejected     FavorStatus = "REJECTED"
	FavorStatusCancelled    FavorStatus = "CANCELLED"
)

// Terminal reports whether no further transition is defined for the status.
func (s FavorStatus) Terminal() bool {
	return s == FavorStatusAcknowledged || s == FavorStatusRejected || s == FavorStatusCancelled
}

// Favor represents a posted task whose reward is locked in escrow until the
// poster acknowledges completion. Terminal favors are retained for audit.
type Favor struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	FavorID     int64       `gorm:"uniqueIndex;not null" json:"favor_id"`
	Status      FavorStatus `gorm:"size:50;not null;default:PENDING;index" json:"status"`
	Reward      int64       `gorm:"not null" json:"reward"`
	Name        string      `gorm:"size:255;not null" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Poster      string      `gorm:"size:255;not null;index" json:"poster"`
	CreatedAt   time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	ClosedAt    *time.Time  `json:"closed_at,omitempty"`
}

func (Favor) TableName() string {
	return "favors"
}

// FavorBidder is one entry in a favor's append-only bidder list.
type FavorBidder struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FavorID   int64     `gorm:"not null;index" json:"favor_id"`
	Position  int       `gorm:"not null" json:"position"`
	Address   string    `gorm:"size:255;not null" json:"address"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (FavorBidder) TableName() string {
	return "favor_bidders"
}

// FavorAssignee is one entry in a favor's assignee list. The poster replaces
// the whole list at once; positions preserve the supplied order.
type FavorAssignee struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FavorID   int64     `gorm:"not null;index" json:"favor_id"`
	Position  int       `gorm:"not null" json:"position"`
	Address   string    `gorm:"size:255;not null" json:"address"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (FavorAssignee) TableName() string {
	return "favor_assignees"
}

// PostFavorRequest creates a new favor and locks its reward.
type PostFavorRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Reward      int64  `json:"reward" binding:"gte=0"`
}

// SetAssigneesRequest replaces the favor's assignee list wholesale.
type SetAssigneesRequest struct {
	Assignees []string `json:"assignees" binding:"required,min=1"`
}

// AcknowledgeFavorRequest settles a completed favor. Assignees and shares are
// parallel arrays; shares must sum to the favor's locked reward.
type AcknowledgeFavorRequest struct {
	Assignees []string `json:"assignees" binding:"required,min=1"`
	Shares    []int64  `json:"shares" binding:"required,min=1"`
}

// FavorResponse is the API shape of a favor with its member lists.
type FavorResponse struct {
	ID          string     `json:"id"`
	FavorID     int64      `json:"favor_id"`
	Status      string     `json:"status"`
	Reward      int64      `json:"reward"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Poster      string     `json:"poster"`
	Bidders     []string   `json:"bidders"`
	Assignees   []string   `json:"assignees"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}
