package repository

import (
	"context"

	"favor-market/internal/models"
)

// CreateItem creates a new market item
func (r *Repository) CreateItem(ctx context.Context, item *models.MarketItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// GetItemByItemID retrieves a market item by its workflow id
func (r *Repository) GetItemByItemID(ctx context.Context, itemID int64) (*models.MarketItem, error) {
	var item models.MarketItem
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem updates a market item
func (r *Repository) UpdateItem(ctx context.Context, item *models.MarketItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// ListItems retrieves market items with optional status/poster filters and total count
func (r *Repository) ListItems(
	ctx context.Context,
	status models.ItemStatus,
	poster string,
	limit, offset int,
) ([]*models.MarketItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MarketItem{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if poster != "" {
		query = query.Where("poster = ?", poster)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []*models.MarketItem
	err := query.
		Order("item_id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// CreateRedemption appends a redemption record for an item
func (r *Repository) CreateRedemption(ctx context.Context, redemption *models.Redemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

// GetRedemption retrieves one redemption by (item id, index)
func (r *Repository) GetRedemption(ctx context.Context, itemID int64, idx int) (*models.Redemption, error) {
	var redemption models.Redemption
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND idx = ?", itemID, idx).
		First(&redemption).Error
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

// UpdateRedemption updates a redemption record
func (r *Repository) UpdateRedemption(ctx context.Context, redemption *models.Redemption) error {
	return r.db.WithContext(ctx).Save(redemption).Error
}

// GetRedemptions retrieves an item's redemptions in list order
func (r *Repository) GetRedemptions(ctx context.Context, itemID int64) ([]*models.Redemption, error) {
	var redemptions []*models.Redemption
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("idx ASC").
		Find(&redemptions).Error
	if err != nil {
		return nil, err
	}
	return redemptions, nil
}

// CountRedemptions counts all redemption records for an item, voided included.
// The count doubles as the next stable redemption index.
func (r *Repository) CountRedemptions(ctx context.Context, itemID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Redemption{}).
		Where("item_id = ?", itemID).
		Count(&count).Error
	return count, err
}

// CountActiveRedemptionsByRedeemer counts a principal's non-void redemptions
// on an item. Used by the repeatable-redemption guard.
func (r *Repository) CountActiveRedemptionsByRedeemer(ctx context.Context, itemID int64, redeemer string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Redemption{}).
		Where("item_id = ? AND redeemer = ? AND status != ?", itemID, redeemer, models.RedemptionStatusVoid).
		Count(&count).Error
	return count, err
}
