package repository

import (
	"context"

	"favor-market/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// NextSequence issues the next monotonic id for a workflow. The sequence row
// is owned by the workflow; ids are strictly increasing and never reused.
func (r *Repository) NextSequence(ctx context.Context, name string) (int64, error) {
	seq := models.WorkflowSequence{Name: name, NextID: 2}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"next_id": gorm.Expr("workflow_sequences.next_id + 1"),
		}),
	}).Create(&seq).Error
	if err != nil {
		return 0, err
	}

	var current models.WorkflowSequence
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&current).Error; err != nil {
		return 0, err
	}
	return current.NextID - 1, nil
}

// CreateEvent records a workflow transition event.
func (r *Repository) CreateEvent(ctx context.Context, event *models.WorkflowEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// GetEntityEvents retrieves all events for an entity in emission order.
func (r *Repository) GetEntityEvents(ctx context.Context, entityType string, entityID int64) ([]*models.WorkflowEvent, error) {
	var events []*models.WorkflowEvent
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
