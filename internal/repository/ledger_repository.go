package repository

import (
	"context"

	"favor-market/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetBalance retrieves a principal's balance row, zero-valued when absent
func (r *Repository) GetBalance(ctx context.Context, address string) (*models.TokenBalance, error) {
	var balance models.TokenBalance
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&balance).Error
	if err == gorm.ErrRecordNotFound {
		return &models.TokenBalance{Address: address}, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// SaveBalance upserts a principal's balance row. The address is the primary
// key, so a plain Save would update zero rows for first-time holders.
func (r *Repository) SaveBalance(ctx context.Context, balance *models.TokenBalance) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		UpdateAll: true,
	}).Create(balance).Error
}

// GetAllowance retrieves an (owner, spender) allowance row, zero-valued when absent
func (r *Repository) GetAllowance(ctx context.Context, owner, spender string) (*models.TokenAllowance, error) {
	var allowance models.TokenAllowance
	err := r.db.WithContext(ctx).
		Where("owner = ? AND spender = ?", owner, spender).
		First(&allowance).Error
	if err == gorm.ErrRecordNotFound {
		return &models.TokenAllowance{Owner: owner, Spender: spender}, nil
	}
	if err != nil {
		return nil, err
	}
	return &allowance, nil
}

// SaveAllowance upserts an allowance row
func (r *Repository) SaveAllowance(ctx context.Context, allowance *models.TokenAllowance) error {
	return r.db.WithContext(ctx).Save(allowance).Error
}

// CreateTransfer records a ledger movement audit row
func (r *Repository) CreateTransfer(ctx context.Context, transfer *models.LedgerTransfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

// GetTransfersByAddress retrieves a principal's ledger history, newest first
func (r *Repository) GetTransfersByAddress(ctx context.Context, address string, limit int) ([]*models.LedgerTransfer, error) {
	var transfers []*models.LedgerTransfer
	query := r.db.WithContext(ctx).
		Where("from_address = ? OR to_address = ?", address, address).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// GetTokenConfig retrieves the token configuration by symbol
func (r *Repository) GetTokenConfig(ctx context.Context, symbol string) (*models.TokenConfig, error) {
	var config models.TokenConfig
	err := r.db.WithContext(ctx).Where("token_symbol = ?", symbol).First(&config).Error
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveTokenConfig upserts the token configuration
func (r *Repository) SaveTokenConfig(ctx context.Context, config *models.TokenConfig) error {
	return r.db.WithContext(ctx).Save(config).Error
}
