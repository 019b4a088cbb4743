package services

import (
	"context"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"favor-market/internal/models"
	"favor-market/internal/repository"
)

// EscrowService holds workflow funds in custody. lockTx and releaseTx are
// the only mutators of the escrow counters; every workflow transition that
// moves value calls exactly one of them, inside the transition's own
// transaction.
type EscrowService struct {
	db      *gorm.DB
	ledger  *LedgerService
	custody string
}

func NewEscrowService(db *gorm.DB, ledger *LedgerService, custodyAddress string) *EscrowService {
	return &EscrowService{
		db:      db,
		ledger:  ledger,
		custody: custodyAddress,
	}
}

// CustodyAddress returns the custodial principal payers must pre-approve.
func (s *EscrowService) CustodyAddress() string {
	return s.custody
}

// GetAccount returns a workflow's escrow account.
func (s *EscrowService) GetAccount(ctx context.Context, workflow string) (*models.EscrowAccount, error) {
	return repository.NewRepository(s.db).GetEscrowAccount(ctx, workflow)
}

// GetEntries returns a workflow's escrow audit rows, newest first.
func (s *EscrowService) GetEntries(ctx context.Context, workflow string, limit int) ([]*models.EscrowEntry, error) {
	return repository.NewRepository(s.db).GetEscrowEntries(ctx, workflow, limit)
}

// lockTx debits the payer into custody and raises the workflow's locked
// counter. The payer must have pre-approved the custody principal; a ledger
// decline rolls the whole transition back.
func (s *EscrowService) lockTx(ctx context.Context, tx *gorm.DB, workflow, payer string, amount int64) error {
	if amount < 0 {
		return precondition("amount", "escrow amount must be non-negative")
	}
	value := decimal.NewFromInt(amount)

	if err := s.ledger.transferFromTx(ctx, tx, s.custody, payer, s.custody, value, models.LedgerTransferKindEscrowLock); err != nil {
		return err
	}

	repo := repository.NewRepository(tx)
	account, err := repo.GetEscrowAccount(ctx, workflow)
	if err != nil {
		return err
	}
	account.Locked = account.Locked.Add(value)
	if err := repo.SaveEscrowAccount(ctx, account); err != nil {
		return err
	}

	return repo.CreateEscrowEntry(ctx, &models.EscrowEntry{
		Workflow:     workflow,
		Direction:    models.EscrowDirectionLock,
		Counterparty: payer,
		Amount:       value,
	})
}

// releaseTx pays custody funds out to the payee and lowers the locked
// counter. A release exceeding the locked balance means the escrow-entity
// reconciliation already drifted; it surfaces as an InvariantError.
func (s *EscrowService) releaseTx(ctx context.Context, tx *gorm.DB, workflow, payee string, amount int64) error {
	if amount < 0 {
		return precondition("amount", "escrow amount must be non-negative")
	}
	value := decimal.NewFromInt(amount)

	repo := repository.NewRepository(tx)
	account, err := repo.GetEscrowAccount(ctx, workflow)
	if err != nil {
		return err
	}
	if account.Locked.LessThan(value) {
		log.Printf("ESCROW INVARIANT BREACH: workflow=%s locked=%s release=%s payee=%s",
			workflow, account.Locked, value, payee)
		return &InvariantError{
			Message: "release exceeds escrow balance for workflow " + workflow,
		}
	}

	if err := s.ledger.transferTx(ctx, tx, s.custody, payee, value, models.LedgerTransferKindEscrowRelease); err != nil {
		return err
	}

	account.Locked = account.Locked.Sub(value)
	if err := repo.SaveEscrowAccount(ctx, account); err != nil {
		return err
	}

	return repo.CreateEscrowEntry(ctx, &models.EscrowEntry{
		Workflow:     workflow,
		Direction:    models.EscrowDirectionRelease,
		Counterparty: payee,
		Amount:       value,
	})
}
