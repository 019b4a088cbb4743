package services

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"favor-market/internal/models"
)

const (
	testAdmin   = "admin-wallet"
	testCustody = "custody-wallet"
	testFaucet  = "faucet-wallet"
	testAlice   = "alice-wallet"
	testBob     = "bob-wallet"
	testCarol   = "carol-wallet"

	testSupply = int64(1_000_000)
)

func setupTestDB(t *testing.T) *gorm.DB {
	// One named shared-cache memory DB per test so parallel tests never see
	// each other's tables.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.TokenConfig{},
		&models.TokenBalance{},
		&models.TokenAllowance{},
		&models.LedgerTransfer{},
		&models.EscrowAccount{},
		&models.EscrowEntry{},
		&models.WorkflowSequence{},
		&models.Favor{},
		&models.FavorBidder{},
		&models.FavorAssignee{},
		&models.MarketItem{},
		&models.Redemption{},
		&models.WorkflowEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

type testEnv struct {
	db     *gorm.DB
	ledger *LedgerService
	escrow *EscrowService
	favors *FavorService
	market *MarketService
	faucet *FaucetService
}

// newTestEnv bootstraps the full service stack against a fresh in-memory DB:
// genesis supply on the admin, funded user accounts, and custody allowances
// so workflow escrow locks succeed.
func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	ctx := context.Background()

	ledger := NewLedgerService(db, "FVR")
	escrow := NewEscrowService(db, ledger, testCustody)
	env := &testEnv{
		db:     db,
		ledger: ledger,
		escrow: escrow,
		favors: NewFavorService(db, ledger, escrow),
		market: NewMarketService(db, ledger, escrow),
		faucet: NewFaucetService(db, ledger, testFaucet, 100),
	}

	if err := ledger.EnsureGenesis(ctx, testAdmin, testSupply, 8); err != nil {
		t.Fatalf("genesis failed: %v", err)
	}

	for _, user := range []string{testAlice, testBob, testCarol, testFaucet} {
		if err := ledger.Transfer(ctx, testAdmin, user, 10_000); err != nil {
			t.Fatalf("funding %s failed: %v", user, err)
		}
	}
	for _, user := range []string{testAdmin, testAlice, testBob, testCarol} {
		if err := ledger.Approve(ctx, user, testCustody, testSupply); err != nil {
			t.Fatalf("custody approval for %s failed: %v", user, err)
		}
	}

	return env
}

func (e *testEnv) balance(t *testing.T, address string) int64 {
	balance, err := e.ledger.BalanceOf(context.Background(), address)
	if err != nil {
		t.Fatalf("balance of %s: %v", address, err)
	}
	return balance.IntPart()
}

func (e *testEnv) locked(t *testing.T, workflow string) int64 {
	account, err := e.escrow.GetAccount(context.Background(), workflow)
	if err != nil {
		t.Fatalf("escrow account %s: %v", workflow, err)
	}
	return account.Locked.IntPart()
}

func (e *testEnv) custodyBalance(t *testing.T) int64 {
	return e.balance(t, testCustody)
}

func (e *testEnv) events(t *testing.T, entityType string, entityID int64) []string {
	var rows []models.WorkflowEvent
	if err := e.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).Order("id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("events for %s %d: %v", entityType, entityID, err)
	}
	types := make([]string, 0, len(rows))
	for _, row := range rows {
		types = append(types, row.EventType)
	}
	return types
}
