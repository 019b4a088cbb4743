package repository

import (
	"context"

	"favor-market/internal/models"
)

// CreateFavor creates a new favor
func (r *Repository) CreateFavor(ctx context.Context, favor *models.Favor) error {
	return r.db.WithContext(ctx).Create(favor).Error
}

// GetFavorByFavorID retrieves a favor by its workflow id
func (r *Repository) GetFavorByFavorID(ctx context.Context, favorID int64) (*models.Favor, error) {
	var favor models.Favor
	err := r.db.WithContext(ctx).Where("favor_id = ?", favorID).First(&favor).Error
	if err != nil {
		return nil, err
	}
	return &favor, nil
}

// UpdateFavor updates a favor
func (r *Repository) UpdateFavor(ctx context.Context, favor *models.Favor) error {
	return r.db.WithContext(ctx).Save(favor).Error
}

// ListFavors retrieves favors with optional status/poster filters and total count
func (r *Repository) ListFavors(
	ctx context.Context,
	status models.FavorStatus,
	poster string,
	limit, offset int,
) ([]*models.Favor, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Favor{})
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

	var favors []*models.Favor
	err := query.
		Order("favor_id DESC").
		Limit(limit).
		Offset(offset).
		Find(&favors).Error
	if err != nil {
		return nil, 0, err
	}

	return favors, total, nil
}

// AddBidder appends a bidder to a favor's bidder list
func (r *Repository) AddBidder(ctx context.Context, bidder *models.FavorBidder) error {
	return r.db.WithContext(ctx).Create(bidder).Error
}

// CountBidders counts the bidders recorded for a favor
func (r *Repository) CountBidders(ctx context.Context, favorID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FavorBidder{}).
		Where("favor_id = ?", favorID).
		Count(&count).Error
	return count, err
}

// GetBidders retrieves a favor's bidders in bid order
func (r *Repository) GetBidders(ctx context.Context, favorID int64) ([]*models.FavorBidder, error) {
	var bidders []*models.FavorBidder
	err := r.db.WithContext(ctx).
		Where("favor_id = ?", favorID).
		Order("position ASC").
		Find(&bidders).Error
	if err != nil {
		return nil, err
	}
	return bidders, nil
}

// ReplaceAssignees replaces a favor's assignee list wholesale
func (r *Repository) ReplaceAssignees(ctx context.Context, favorID int64, addresses []string) error {
	if err := r.db.WithContext(ctx).
		Where("favor_id = ?", favorID).
		Delete(&models.FavorAssignee{}).Error; err != nil {
		return err
	}

	for i, addr := range addresses {
		assignee := models.FavorAssignee{
			FavorID:  favorID,
			Position: i,
			Address:  addr,
		}
		if err := r.db.WithContext(ctx).Create(&assignee).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetAssignees retrieves a favor's assignees in list order
func (r *Repository) GetAssignees(ctx context.Context, favorID int64) ([]*models.FavorAssignee, error) {
	var assignees []*models.FavorAssignee
	err := r.db.WithContext(ctx).
		Where("favor_id = ?", favorID).
		Order("position ASC").
		Find(&assignees).Error
	if err != nil {
		return nil, err
	}
	return assignees, nil
}
