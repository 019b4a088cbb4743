package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenBalance holds one principal's custodial token balance.
type TokenBalance struct {
	Address   string          `gorm:"primaryKey;size:255" json:"address"`
	Balance   decimal.Decimal `gorm:"type:decimal(18,8);not null;default:0" json:"balance"`
	UpdatedAt time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TokenBalance) TableName() string {
	return "token_balances"
}

// TokenAllowance records how much a spender may debit from an owner via
// TransferFrom. Approve replaces the amount outright.
type TokenAllowance struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Owner     string          `gorm:"size:255;not null;uniqueIndex:idx_token_allowance" json:"owner"`
	Spender   string          `gorm:"size:255;not null;uniqueIndex:idx_token_allowance" json:"spender"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,8);not null;default:0" json:"amount"`
	UpdatedAt time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TokenAllowance) TableName() string {
	return "token_allowances"
}

type LedgerTransferKind string

const (
	LedgerTransferKindTransfer      LedgerTransferKind = "TRANSFER"
	LedgerTransferKindTransferFrom  LedgerTransferKind = "TRANSFER_FROM"
	LedgerTransferKindGenesis       LedgerTransferKind = "GENESIS"
	LedgerTransferKindFaucet        LedgerTransferKind = "FAUCET"
	LedgerTransferKindEscrowLock    LedgerTransferKind = "ESCROW_LOCK"
	LedgerTransferKindEscrowRelease LedgerTransferKind = "ESCROW_RELEASE"
)

// LedgerTransfer is the audit row written for every successful movement.
type LedgerTransfer struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	FromAddress string             `gorm:"size:255;not null;index" json:"from_address"`
	ToAddress   string             `gorm:"size:255;not null;index" json:"to_address"`
	Amount      decimal.Decimal    `gorm:"type:decimal(18,8);not null" json:"amount"`
	Kind        LedgerTransferKind `gorm:"size:50;not null" json:"kind"`
	CreatedAt   time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (LedgerTransfer) TableName() string {
	return "ledger_transfers"
}

// TokenConfig stores the token identity and its owner principal. The owner
// acts as the ledger admin for workflow authorization checks.
type TokenConfig struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	TokenSymbol  string          `gorm:"uniqueIndex;size:20;not null" json:"token_symbol"`
	OwnerAddress string          `gorm:"size:255;not null" json:"owner_address"`
	Decimals     int             `gorm:"default:6" json:"decimals"`
	TotalSupply  decimal.Decimal `gorm:"type:decimal(18,8);not null;default:0" json:"total_supply"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (TokenConfig) TableName() string {
	return "token_configs"
}

// TransferRequest moves tokens from the caller to another principal.
type TransferRequest struct {
	To     string `json:"to" binding:"required"`
	Amount int64  `json:"amount" binding:"gte=0"`
}

// ApproveRequest authorizes a spender to debit the caller's balance.
type ApproveRequest struct {
	Spender string `json:"spender" binding:"required"`
	Amount  int64  `json:"amount" binding:"gte=0"`
}

// TransferOwnershipRequest hands the token admin role to a new principal.
type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner" binding:"required"`
}
