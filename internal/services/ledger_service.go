package services

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"favor-market/internal/models"
	"favor-market/internal/repository"
)

// LedgerService is the custodial fungible-token ledger. Balances are
// non-negative; a failed operation changes nothing. The token owner acts as
// the ledger admin for workflow authorization checks.
type LedgerService struct {
	db     *gorm.DB
	symbol string
}

func NewLedgerService(db *gorm.DB, symbol string) *LedgerService {
	return &LedgerService{db: db, symbol: symbol}
}

// EnsureGenesis bootstraps the token config and credits the initial supply
// to the owner. Calling it against an existing config is a no-op.
func (s *LedgerService) EnsureGenesis(ctx context.Context, owner string, supply int64, decimals int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		if _, err := repo.GetTokenConfig(ctx, s.symbol); err == nil {
			return nil
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		amount := decimal.NewFromInt(supply)
		config := models.TokenConfig{
			TokenSymbol:  s.symbol,
			OwnerAddress: owner,
			Decimals:     decimals,
			TotalSupply:  amount,
		}
		if err := repo.SaveTokenConfig(ctx, &config); err != nil {
			return fmt.Errorf("failed to create token config: %w", err)
		}

		if amount.IsPositive() {
			if err := s.creditTx(ctx, tx, owner, amount); err != nil {
				return err
			}
			if err := repo.CreateTransfer(ctx, &models.LedgerTransfer{
				FromAddress: "",
				ToAddress:   owner,
				Amount:      amount,
				Kind:        models.LedgerTransferKindGenesis,
			}); err != nil {
				return err
			}
		}

		log.Printf("Ledger genesis: %s supply %s credited to %s", s.symbol, amount, owner)
		return nil
	})
}

// Owner returns the ledger admin principal.
func (s *LedgerService) Owner(ctx context.Context) (string, error) {
	return s.ownerTx(ctx, s.db)
}

func (s *LedgerService) ownerTx(ctx context.Context, tx *gorm.DB) (string, error) {
	config, err := repository.NewRepository(tx).GetTokenConfig(ctx, s.symbol)
	if err != nil {
		return "", fmt.Errorf("failed to load token config: %w", err)
	}
	return config.OwnerAddress, nil
}

// TransferOwnership hands the admin role to a new principal. Only the
// current owner may call it.
func (s *LedgerService) TransferOwnership(ctx context.Context, caller, newOwner string) error {
	if newOwner == "" {
		return precondition("new_owner", "new owner must not be empty")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)
		config, err := repo.GetTokenConfig(ctx, s.symbol)
		if err != nil {
			return fmt.Errorf("failed to load token config: %w", err)
		}
		if config.OwnerAddress != caller {
			return precondition("caller", "only the token owner may transfer ownership")
		}
		config.OwnerAddress = newOwner
		if err := repo.SaveTokenConfig(ctx, config); err != nil {
			return err
		}
		log.Printf("Ledger ownership transferred: %s -> %s", caller, newOwner)
		return nil
	})
}

// BalanceOf returns a principal's balance, zero for unknown addresses.
func (s *LedgerService) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	balance, err := repository.NewRepository(s.db).GetBalance(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Balance, nil
}

// Allowance returns what spender may still debit from owner.
func (s *LedgerService) Allowance(ctx context.Context, owner, spender string) (decimal.Decimal, error) {
	allowance, err := repository.NewRepository(s.db).GetAllowance(ctx, owner, spender)
	if err != nil {
		return decimal.Zero, err
	}
	return allowance.Amount, nil
}

// Approve sets (replaces) the (owner, spender) allowance.
func (s *LedgerService) Approve(ctx context.Context, owner, spender string, amount int64) error {
	if amount < 0 {
		return precondition("amount", "allowance must be non-negative")
	}
	if spender == "" {
		return precondition("spender", "spender must not be empty")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)
		allowance, err := repo.GetAllowance(ctx, owner, spender)
		if err != nil {
			return err
		}
		allowance.Amount = decimal.NewFromInt(amount)
		return repo.SaveAllowance(ctx, allowance)
	})
}

// Transfer moves tokens between principals. Fails with ErrInsufficientFunds
// when the sender's balance cannot cover the amount.
func (s *LedgerService) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount < 0 {
		return precondition("amount", "transfer amount must be non-negative")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.transferTx(ctx, tx, from, to, decimal.NewFromInt(amount), models.LedgerTransferKindTransfer)
	})
}

// TransferFrom moves tokens on behalf of a pre-authorized spender, debiting
// both the sender's balance and the spender's allowance.
func (s *LedgerService) TransferFrom(ctx context.Context, spender, from, to string, amount int64) error {
	if amount < 0 {
		return precondition("amount", "transfer amount must be non-negative")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.transferFromTx(ctx, tx, spender, from, to, decimal.NewFromInt(amount), models.LedgerTransferKindTransferFrom)
	})
}

// History returns a principal's ledger movements, newest first.
func (s *LedgerService) History(ctx context.Context, address string, limit int) ([]*models.LedgerTransfer, error) {
	return repository.NewRepository(s.db).GetTransfersByAddress(ctx, address, limit)
}

// transferTx is the tx-scoped movement primitive shared by every caller that
// already holds a transaction. Zero-amount transfers are accepted and leave
// no trace.
func (s *LedgerService) transferTx(ctx context.Context, tx *gorm.DB, from, to string, amount decimal.Decimal, kind models.LedgerTransferKind) error {
	if amount.IsNegative() {
		return precondition("amount", "transfer amount must be non-negative")
	}
	if amount.IsZero() {
		return nil
	}
	repo := repository.NewRepository(tx)

	fromBalance, err := repo.GetBalance(ctx, from)
	if err != nil {
		return err
	}
	if fromBalance.Balance.LessThan(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from, fromBalance.Balance, amount)
	}

	fromBalance.Balance = fromBalance.Balance.Sub(amount)
	if err := repo.SaveBalance(ctx, fromBalance); err != nil {
		return err
	}
	if err := s.creditTx(ctx, tx, to, amount); err != nil {
		return err
	}

	return repo.CreateTransfer(ctx, &models.LedgerTransfer{
		FromAddress: from,
		ToAddress:   to,
		Amount:      amount,
		Kind:        kind,
	})
}

// transferFromTx additionally consumes the (from, spender) allowance.
func (s *LedgerService) transferFromTx(ctx context.Context, tx *gorm.DB, spender, from, to string, amount decimal.Decimal, kind models.LedgerTransferKind) error {
	if amount.IsNegative() {
		return precondition("amount", "transfer amount must be non-negative")
	}
	if amount.IsZero() {
		return nil
	}
	repo := repository.NewRepository(tx)

	allowance, err := repo.GetAllowance(ctx, from, spender)
	if err != nil {
		return err
	}
	if allowance.Amount.LessThan(amount) {
		return fmt.Errorf("%w: %s allows %s to spend %s, needs %s",
			ErrInsufficientAllowance, from, spender, allowance.Amount, amount)
	}

	if err := s.transferTx(ctx, tx, from, to, amount, kind); err != nil {
		return err
	}

	allowance.Amount = allowance.Amount.Sub(amount)
	return repo.SaveAllowance(ctx, allowance)
}

func (s *LedgerService) creditTx(ctx context.Context, tx *gorm.DB, to string, amount decimal.Decimal) error {
	repo := repository.NewRepository(tx)
	toBalance, err := repo.GetBalance(ctx, to)
	if err != nil {
		return err
	}
	toBalance.Balance = toBalance.Balance.Add(amount)
	return repo.SaveBalance(ctx, toBalance)
}
