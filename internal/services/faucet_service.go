package services

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"favor-market/internal/models"
)

// FaucetService hands out a fixed grant from a funded faucet address so new
// principals can participate without an out-of-band top-up.
type FaucetService struct {
	db      *gorm.DB
	ledger  *LedgerService
	address string
	amount  int64
}

func NewFaucetService(db *gorm.DB, ledger *LedgerService, address string, amount int64) *FaucetService {
	return &FaucetService{db: db, ledger: ledger, address: address, amount: amount}
}

// Amount returns the fixed grant size.
func (s *FaucetService) Amount() int64 {
	return s.amount
}

// Drip transfers the grant to the recipient. The faucet draining fails the
// same way any underfunded transfer does.
func (s *FaucetService) Drip(ctx context.Context, recipient string) (int64, error) {
	if recipient == "" {
		return 0, precondition("recipient", "recipient must not be empty")
	}
	if recipient == s.address {
		return 0, precondition("recipient", "the faucet may not drip to itself")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.ledger.transferTx(ctx, tx, s.address, recipient, decimal.NewFromInt(s.amount), models.LedgerTransferKindFaucet)
	})
	if err != nil {
		return 0, fmt.Errorf("faucet drip to %s: %w", recipient, err)
	}

	log.Printf("Faucet dripped %d to %s", s.amount, recipient)
	return s.amount, nil
}
