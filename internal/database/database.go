package database

import (
	"fmt"
	"log"

	"favor-market/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	// Ledger models first: workflows reference the token config owner
	ledgerModels := []interface{}{
		&models.TokenConfig{},
		&models.TokenBalance{},
		&models.TokenAllowance{},
		&models.LedgerTransfer{},
		&models.EscrowAccount{},
		&models.EscrowEntry{},
		&models.WorkflowSequence{},
	}

	for _, model := range ledgerModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	workflowModels := []interface{}{
		&models.User{},
		&models.Favor{},
		&models.FavorBidder{},
		&models.FavorAssignee{},
		&models.MarketItem{},
		&models.Redemption{},
		&models.WorkflowEvent{},
	}

	for _, model := range workflowModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
