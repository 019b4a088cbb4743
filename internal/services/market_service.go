package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"favor-market/internal/models"
	"favor-market/internal/repository"
)

// MarketService runs the market workflow: item lifecycle, per-redemption
// sub-state, inventory tracking, and price settlement. Soldout is derived
// from the counter, never set independently — the counter is the single
// source of truth for capacity.
type MarketService struct {
	db     *gorm.DB
	ledger *LedgerService
	escrow *EscrowService
}

func NewMarketService(db *gorm.DB, ledger *LedgerService, escrow *EscrowService) *MarketService {
	return &MarketService{db: db, ledger: ledger, escrow: escrow}
}

func (s *MarketService) loadItem(ctx context.Context, repo *repository.Repository, itemID int64) (*models.MarketItem, error) {
	item, err := repo.GetItemByItemID(ctx, itemID)
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("market item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market item: %w", err)
	}
	return item, nil
}

// loadRedemption bounds-checks the index before the query so an out-of-range
// access is a guard failure, never a driver error.
func (s *MarketService) loadRedemption(ctx context.Context, repo *repository.Repository, itemID int64, idx int) (*models.Redemption, error) {
	if idx < 0 {
		return nil, precondition("index", "redemption index must be non-negative")
	}
	count, err := repo.CountRedemptions(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if int64(idx) >= count {
		return nil, precondition("index", "item %d has %d redemptions, index %d out of range", itemID, count, idx)
	}
	redemption, err := repo.GetRedemption(ctx, itemID, idx)
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption: %w", err)
	}
	return redemption, nil
}

func (s *MarketService) requireAdmin(ctx context.Context, tx *gorm.DB, caller string) error {
	owner, err := s.ledger.ownerTx(ctx, tx)
	if err != nil {
		return err
	}
	if owner != caller {
		return precondition("caller", "only the ledger admin may perform this transition")
	}
	return nil
}

func (s *MarketService) emit(ctx context.Context, repo *repository.Repository, itemID int64, eventType, actor string) error {
	return repo.CreateEvent(ctx, &models.WorkflowEvent{
		EntityType: models.EntityTypeMarketItem,
		EntityID:   itemID,
		EventType:  eventType,
		Actor:      actor,
	})
}

// PostItem creates a market item in PENDING with an empty redemption list.
func (s *MarketService) PostItem(ctx context.Context, caller string, req *models.PostItemRequest) (*models.MarketItem, error) {
	if req.UnitPrice < 0 {
		return nil, precondition("unit_price", "unit price must be non-negative")
	}
	if req.AvailableUnit < 0 && req.AvailableUnit != models.UnlimitedUnits {
		return nil, precondition("available_unit", "available units must be non-negative or the unlimited sentinel")
	}

	var item *models.MarketItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		itemID, err := repo.NextSequence(ctx, models.WorkflowMarket)
		if err != nil {
			return fmt.Errorf("failed to issue item id: %w", err)
		}

		item = &models.MarketItem{
			ID:            uuid.New(),
			ItemID:        itemID,
			Status:        models.ItemStatusPending,
			UnitPrice:     req.UnitPrice,
			Title:         req.Title,
			Description:   req.Description,
			Poster:        caller,
			AvailableUnit: req.AvailableUnit,
			Counter:       0,
			Repeatable:    req.Repeatable,
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}

		return s.emit(ctx, repo, itemID, "item.posted", caller)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Item %d posted by %s (price %d, units %d)", item.ItemID, caller, item.UnitPrice, item.AvailableUnit)
	return item, nil
}

// ApproveItem opens a pending item for redemption. Admin only.
func (s *MarketService) ApproveItem(ctx context.Context, caller string, itemID int64) (*models.MarketItem, error) {
	return s.transition(ctx, itemID, func(tx *gorm.DB, repo *repository.Repository, item *models.MarketItem) (string, error) {
		if err := s.requireAdmin(ctx, tx, caller); err != nil {
			return "", err
		}
		if item.Status != models.ItemStatusPending {
			return "", precondition("status", "item %d is %s, expected PENDING", itemID, item.Status)
		}
		item.Status = models.ItemStatusOpen
		return "item.approved", nil
	}, caller)
}

// RejectItem refuses a pending item. Admin only. No escrow moves: nothing is
// locked until the first redemption.
func (s *MarketService) RejectItem(ctx context.Context, caller string, itemID int64) (*models.MarketItem, error) {
	return s.transition(ctx, itemID, func(tx *gorm.DB, repo *repository.Repository, item *models.MarketItem) (string, error) {
		if err := s.requireAdmin(ctx, tx, caller); err != nil {
			return "", err
		}
		if item.Status != models.ItemStatusPending {
			return "", precondition("status", "item %d is %s, expected PENDING", itemID, item.Status)
		}
		item.Status = models.ItemStatusRejected
		return "item.rejected", nil
	}, caller)
}

// Redeem claims one unit: appends a redemption record, bumps the counter,
// locks the unit price from the redeemer, and flips the item to SOLDOUT when
// the last unit goes.
func (s *MarketService) Redeem(ctx context.Context, caller string, itemID int64) (*models.Redemption, error) {
	var redemption *models.Redemption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		item, err := s.loadItem(ctx, repo, itemID)
		if err != nil {
			return err
		}
		if item.Status != models.ItemStatusOpen {
			return precondition("status", "item %d is %s, expected OPEN", itemID, item.Status)
		}
		if item.Poster == caller {
			return precondition("caller", "the poster may not redeem its own item")
		}
		if item.AvailableUnit != models.UnlimitedUnits && item.Counter >= item.AvailableUnit {
			return precondition("capacity", "item %d has no units left (%d/%d)", itemID, item.Counter, item.AvailableUnit)
		}
		if !item.Repeatable {
			prior, err := repo.CountActiveRedemptionsByRedeemer(ctx, itemID, caller)
			if err != nil {
				return err
			}
			if prior > 0 {
				return precondition("repeatable", "item %d already redeemed by %s", itemID, caller)
			}
		}

		nextIdx, err := repo.CountRedemptions(ctx, itemID)
		if err != nil {
			return err
		}
		redemption = &models.Redemption{
			ID:       uuid.New(),
			ItemID:   item.ItemID,
			Idx:      int(nextIdx),
			Redeemer: caller,
			Status:   models.RedemptionStatusRedeem,
		}
		if err := repo.CreateRedemption(ctx, redemption); err != nil {
			return fmt.Errorf("failed to create redemption: %w", err)
		}

		item.Counter++
		if item.AvailableUnit != models.UnlimitedUnits && item.Counter == item.AvailableUnit {
			item.Status = models.ItemStatusSoldout
		}
		if err := repo.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		if err := s.escrow.lockTx(ctx, tx, models.WorkflowMarket, caller, item.UnitPrice); err != nil {
			return err
		}

		return s.emit(ctx, repo, itemID, "item.redeemed", caller)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Item %d redeemed by %s (index %d)", itemID, caller, redemption.Idx)
	return redemption, nil
}

// Delivery marks the redemption at index as delivered to the named account.
// Poster only; the record must match the account and still be in REDEEM.
func (s *MarketService) Delivery(ctx context.Context, caller string, itemID int64, idx int, account string) (*models.Redemption, error) {
	return s.redemptionTransition(ctx, itemID, idx, func(tx *gorm.DB, repo *repository.Repository, item *models.MarketItem, redemption *models.Redemption) (string, error) {
		if item.Poster != caller {
			return "", precondition("caller", "only the poster may deliver")
		}
		if redemption.Redeemer != account {
			return "", precondition("account", "redemption %d of item %d belongs to %s", idx, itemID, redemption.Redeemer)
		}
		if redemption.Status != models.RedemptionStatusRedeem {
			return "", precondition("substatus", "redemption %d of item %d is %s, expected REDEEM", idx, itemID, redemption.Status)
		}
		redemption.Status = models.RedemptionStatusDelivered
		now := time.Now()
		redemption.DeliveredAt = &now
		return "item.delivered", nil
	}, caller)
}

// Confirm settles a delivered redemption: the unit price is released from
// escrow to the poster. Admin or the redeemer at index.
func (s *MarketService) Confirm(ctx context.Context, caller string, itemID int64, idx int) (*models.Redemption, error) {
	return s.redemptionTransition(ctx, itemID, idx, func(tx *gorm.DB, repo *repository.Repository, item *models.MarketItem, redemption *models.Redemption) (string, error) {
		if redemption.Redeemer != caller {
			owner, err := s.ledger.ownerTx(ctx, tx)
			if err != nil {
				return "", err
			}
			if owner != caller {
				return "", precondition("caller", "only the ledger admin or the redeemer may confirm")
			}
		}
		if redemption.Status != models.RedemptionStatusDelivered {
			return "", precondition("substatus", "redemption %d of item %d is %s, expected DELIVERED", idx, itemID, redemption.Status)
		}

		if err := s.escrow.releaseTx(ctx, tx, models.WorkflowMarket, item.Poster, item.UnitPrice); err != nil {
			return "", err
		}

		redemption.Status = models.RedemptionStatusConfirmed
		now := time.Now()
		redemption.SettledAt = &now
		return "item.confirmed", nil
	}, caller)
}

// VoidPostedItem retires an item. Admin or poster; re-voiding is rejected.
// Outstanding redemptions keep their own sub-state and settlement paths.
func (s *MarketService) VoidPostedItem(ctx context.Context, caller string, itemID int64) (*models.MarketItem, error) {
	return s.transition(ctx, itemID, func(tx *gorm.DB, repo *repository.Repository, item *models.MarketItem) (string, error) {
		if item.Poster != caller {
			owner, err := s.ledger.ownerTx(ctx, tx)
			if err != nil {
				return "", err
			}
			if owner != caller {
				return "", precondition("caller", "only the ledger admin or the poster may void an item")
			}
		}
		if item.Status == models.ItemStatusVoid {
			return "", precondition("status", "item %d is already VOID", itemID)
		}
		item.Status = models.ItemStatusVoid
		return "item.voided", nil
	}, caller)
}

// VoidRedemption cancels the redemption at index and refunds the original
// redeemer. Admin or the redeemer; REDEEM is the only voidable sub-state —
// a delivered redemption can no longer back out, and voiding a confirmed or
// void record would move settled funds twice.
func (s *MarketService) VoidRedemption(ctx context.Context, caller string, itemID int64, idx int) (*models.Redemption, error) {
	var redemption *models.Redemption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		item, err := s.loadItem(ctx, repo, itemID)
		if err != nil {
			return err
		}
		loaded, err := s.loadRedemption(ctx, repo, itemID, idx)
		if err != nil {
			return err
		}

		if loaded.Redeemer != caller {
			owner, err := s.ledger.ownerTx(ctx, tx)
			if err != nil {
				return err
			}
			if owner != caller {
				return precondition("caller", "only the ledger admin or the redeemer may void a redemption")
			}
		}
		if loaded.Status != models.RedemptionStatusRedeem {
			return precondition("substatus", "redemption %d of item %d is %s, only REDEEM may be voided", idx, itemID, loaded.Status)
		}

		// Refund always goes to the recorded redeemer, never the caller.
		if err := s.escrow.releaseTx(ctx, tx, models.WorkflowMarket, loaded.Redeemer, item.UnitPrice); err != nil {
			return err
		}

		loaded.Status = models.RedemptionStatusVoid
		if err := repo.UpdateRedemption(ctx, loaded); err != nil {
			return fmt.Errorf("failed to update redemption: %w", err)
		}

		item.Counter--
		if item.Status == models.ItemStatusSoldout {
			item.Status = models.ItemStatusOpen
		}
		if err := repo.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		if err := s.emit(ctx, repo, itemID, "redemption.voided", caller); err != nil {
			return err
		}

		redemption = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Item %d: redemption %d voided by %s", itemID, idx, caller)
	return redemption, nil
}

// transition wraps the shared item load/guard/save/emit skeleton.
func (s *MarketService) transition(
	ctx context.Context,
	itemID int64,
	body func(tx *gorm.DB, repo *repository.Repository, item *models.MarketItem) (string, error),
	actor string,
) (*models.MarketItem, error) {
	var item *models.MarketItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		loaded, err := s.loadItem(ctx, repo, itemID)
		if err != nil {
			return err
		}

		eventType, err := body(tx, repo, loaded)
		if err != nil {
			return err
		}

		if err := repo.UpdateItem(ctx, loaded); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		if err := s.emit(ctx, repo, itemID, eventType, actor); err != nil {
			return err
		}

		item = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Item %d -> %s (by %s)", item.ItemID, item.Status, actor)
	return item, nil
}

// redemptionTransition wraps the shared redemption load/guard/save/emit
// skeleton for transitions that do not touch the item row.
func (s *MarketService) redemptionTransition(
	ctx context.Context,
	itemID int64,
	idx int,
	body func(tx *gorm.DB, repo *repository.Repository, item *models.MarketItem, redemption *models.Redemption) (string, error),
	actor string,
) (*models.Redemption, error) {
	var redemption *models.Redemption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		item, err := s.loadItem(ctx, repo, itemID)
		if err != nil {
			return err
		}
		loaded, err := s.loadRedemption(ctx, repo, itemID, idx)
		if err != nil {
			return err
		}

		eventType, err := body(tx, repo, item, loaded)
		if err != nil {
			return err
		}

		if err := repo.UpdateRedemption(ctx, loaded); err != nil {
			return fmt.Errorf("failed to update redemption: %w", err)
		}
		if err := s.emit(ctx, repo, itemID, eventType, actor); err != nil {
			return err
		}

		redemption = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Item %d: redemption %d -> %s (by %s)", itemID, idx, redemption.Status, actor)
	return redemption, nil
}

// GetItem retrieves an item with its redemption list.
func (s *MarketService) GetItem(ctx context.Context, itemID int64) (*models.MarketItemResponse, error) {
	repo := repository.NewRepository(s.db)

	item, err := s.loadItem(ctx, repo, itemID)
	if err != nil {
		return nil, err
	}
	redemptions, err := repo.GetRedemptions(ctx, itemID)
	if err != nil {
		return nil, err
	}

	list := make([]models.Redemption, 0, len(redemptions))
	for _, r := range redemptions {
		list = append(list, *r)
	}

	return &models.MarketItemResponse{
		ID:            item.ID.String(),
		ItemID:        item.ItemID,
		Status:        string(item.Status),
		UnitPrice:     item.UnitPrice,
		Title:         item.Title,
		Description:   item.Description,
		Poster:        item.Poster,
		AvailableUnit: item.AvailableUnit,
		Counter:       item.Counter,
		Repeatable:    item.Repeatable,
		Redemptions:   list,
		CreatedAt:     item.CreatedAt,
	}, nil
}

// ListItems retrieves market items with optional filters.
func (s *MarketService) ListItems(ctx context.Context, status models.ItemStatus, poster string, limit, offset int) ([]*models.MarketItem, int64, error) {
	return repository.NewRepository(s.db).ListItems(ctx, status, poster, limit, offset)
}

// GetRedemptions returns an item's redemption records in list order.
func (s *MarketService) GetRedemptions(ctx context.Context, itemID int64) ([]*models.Redemption, error) {
	return repository.NewRepository(s.db).GetRedemptions(ctx, itemID)
}

// GetRedemption returns one redemption by (item id, index).
func (s *MarketService) GetRedemption(ctx context.Context, itemID int64, idx int) (*models.Redemption, error) {
	return s.loadRedemption(ctx, repository.NewRepository(s.db), itemID, idx)
}
