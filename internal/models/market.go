package models

import (
	"time"

	"github.com/google/uuid"
)

type ItemStatus string

const (
	ItemStatusPending  ItemStatus = "PENDING"
	ItemStatusOpen     ItemStatus = "OPEN"
	ItemStatusSoldout  ItemStatus = "SOLDOUT"
	ItemStatusRejected ItemStatus = "REJECTED"
	ItemStatusVoid     ItemStatus = "VOID"
)

// Terminal reports whether no further item transition is defined.
func (s ItemStatus) Terminal() bool {
	return s == ItemStatusRejected || s == ItemStatusVoid
}

type RedemptionStatus string

const (
	RedemptionStatusRedeem    RedemptionStatus = "REDEEM"
	RedemptionStatusDelivered RedemptionStatus = "DELIVERED"
	RedemptionStatusConfirmed RedemptionStatus = "CONFIRMED"
	RedemptionStatusVoid      RedemptionStatus = "VOID"
)

// UnlimitedUnits marks an item without an inventory cap.
const UnlimitedUnits int64 = -1

// MarketItem represents a posted catalog item. Counter tracks units currently
// redeemed and not voided; it never exceeds AvailableUnit for capped items.
type MarketItem struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID        int64      `gorm:"uniqueIndex;not null" json:"item_id"`
	Status        ItemStatus `gorm:"size:50;not null;default:PENDING;index" json:"status"`
	UnitPrice     int64      `gorm:"not null" json:"unit_price"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	Poster        string     `gorm:"size:255;not null;index" json:"poster"`
	AvailableUnit int64      `gorm:"not null" json:"available_unit"`
	Counter       int64      `gorm:"not null;default:0" json:"counter"`
	Repeatable    bool       `gorm:"not null;default:false" json:"repeatable"`
	CreatedAt     time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MarketItem) TableName() string {
	return "market_items"
}

// Redemption is one principal's claim on one unit of an item. Idx is the
// record's stable position in the item's redemption list; voided redemptions
// keep their index.
type Redemption struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID      int64            `gorm:"not null;uniqueIndex:idx_item_redemption" json:"item_id"`
	Idx         int              `gorm:"not null;uniqueIndex:idx_item_redemption" json:"idx"`
	Redeemer    string           `gorm:"size:255;not null;index" json:"redeemer"`
	Status      RedemptionStatus `gorm:"size:50;not null;default:REDEEM;index" json:"status"`
	CreatedAt   time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	DeliveredAt *time.Time       `json:"delivered_at,omitempty"`
	SettledAt   *time.Time       `json:"settled_at,omitempty"`
}

func (Redemption) TableName() string {
	return "redemptions"
}

// PostItemRequest creates a new market item. AvailableUnit -1 means no cap.
type PostItemRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	UnitPrice     int64  `json:"unit_price" binding:"gte=0"`
	AvailableUnit int64  `json:"available_unit" binding:"gte=-1"`
	Repeatable    bool   `json:"repeatable"`
}

// DeliveryRequest marks one redemption as delivered to the named account.
type DeliveryRequest struct {
	Account string `json:"account" binding:"required"`
}

// MarketItemResponse is the API shape of an item with its redemption list.
type MarketItemResponse struct {
	ID            string       `json:"id"`
	ItemID        int64        `json:"item_id"`
	Status        string       `json:"status"`
	UnitPrice     int64        `json:"unit_price"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Poster        string       `json:"poster"`
	AvailableUnit int64        `json:"available_unit"`
	Counter       int64        `json:"counter"`
	Repeatable    bool         `json:"repeatable"`
	Redemptions   []Redemption `json:"redemptions"`
	CreatedAt     time.Time    `json:"created_at"`
}
