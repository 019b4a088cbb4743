package repository

import (
	"context"

	"favor-market/internal/models"

	"gorm.io/gorm"
)

// GetEscrowAccount retrieves a workflow's escrow account, creating the
// zero-valued row on first use.
func (r *Repository) GetEscrowAccount(ctx context.Context, workflow string) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	err := r.db.WithContext(ctx).Where("workflow = ?", workflow).First(&account).Error
	if err == gorm.ErrRecordNotFound {
		account = models.EscrowAccount{Workflow: workflow}
		if err := r.db.WithContext(ctx).Create(&account).Error; err != nil {
			return nil, err
		}
		return &account, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// SaveEscrowAccount updates a workflow's escrow account
func (r *Repository) SaveEscrowAccount(ctx context.Context, account *models.EscrowAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// CreateEscrowEntry records an escrow adjustment audit row
func (r *Repository) CreateEscrowEntry(ctx context.Context, entry *models.EscrowEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetEscrowEntries retrieves a workflow's escrow history, newest first
func (r *Repository) GetEscrowEntries(ctx context.Context, workflow string, limit int) ([]*models.EscrowEntry, error) {
	var entries []*models.EscrowEntry
	query := r.db.WithContext(ctx).
		Where("workflow = ?", workflow).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
