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

// FavorService runs the favor workflow state machine. Every transition
// takes the caller principal explicitly, validates its guards, and commits
// the status change, the escrow movement and the audit event in one
// transaction.
type FavorService struct {
	db     *gorm.DB
	ledger *LedgerService
	escrow *EscrowService
}

func NewFavorService(db *gorm.DB, ledger *LedgerService, escrow *EscrowService) *FavorService {
	return &FavorService{db: db, ledger: ledger, escrow: escrow}
}

func (s *FavorService) loadFavor(ctx context.Context, repo *repository.Repository, favorID int64) (*models.Favor, error) {
	favor, err := repo.GetFavorByFavorID(ctx, favorID)
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("favor %d: %w", favorID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get favor: %w", err)
	}
	return favor, nil
}

func (s *FavorService) requireAdmin(ctx context.Context, tx *gorm.DB, caller string) error {
	owner, err := s.ledger.ownerTx(ctx, tx)
	if err != nil {
		return err
	}
	if owner != caller {
		return precondition("caller", "only the ledger admin may perform this transition")
	}
	return nil
}

func (s *FavorService) emit(ctx context.Context, repo *repository.Repository, favorID int64, eventType, actor string) error {
	return repo.CreateEvent(ctx, &models.WorkflowEvent{
		EntityType: models.EntityTypeFavor,
		EntityID:   favorID,
		EventType:  eventType,
		Actor:      actor,
	})
}

// PostFavor creates a favor in PENDING and locks the reward in escrow. The
// reward is fixed for the favor's whole lifetime.
func (s *FavorService) PostFavor(ctx context.Context, caller string, req *models.PostFavorRequest) (*models.Favor, error) {
	if req.Reward < 0 {
		return nil, precondition("reward", "reward must be non-negative")
	}

	var favor *models.Favor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		favorID, err := repo.NextSequence(ctx, models.WorkflowFavors)
		if err != nil {
			return fmt.Errorf("failed to issue favor id: %w", err)
		}

		favor = &models.Favor{
			ID:          uuid.New(),
			FavorID:     favorID,
			Status:      models.FavorStatusPending,
			Reward:      req.Reward,
			Name:        req.Name,
			Description: req.Description,
			Poster:      caller,
		}
		if err := repo.CreateFavor(ctx, favor); err != nil {
			return fmt.Errorf("failed to create favor: %w", err)
		}

		if err := s.escrow.lockTx(ctx, tx, models.WorkflowFavors, caller, req.Reward); err != nil {
			return err
		}

		return s.emit(ctx, repo, favorID, "favor.posted", caller)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Favor %d posted by %s (reward %d)", favor.FavorID, caller, favor.Reward)
	return favor, nil
}

// Approve opens a pending favor for bidding. Admin only.
func (s *FavorService) Approve(ctx context.Context, caller string, favorID int64) (*models.Favor, error) {
	return s.transition(ctx, favorID, func(tx *gorm.DB, repo *repository.Repository, favor *models.Favor) (string, error) {
		if err := s.requireAdmin(ctx, tx, caller); err != nil {
			return "", err
		}
		if favor.Status != models.FavorStatusPending {
			return "", precondition("status", "favor %d is %s, expected PENDING", favorID, favor.Status)
		}
		favor.Status = models.FavorStatusOpen
		return "favor.approved", nil
	}, caller)
}

// Reject refuses a pending favor and refunds the poster. Admin only.
func (s *FavorService) Reject(ctx context.Context, caller string, favorID int64) (*models.Favor, error) {
	return s.transition(ctx, favorID, func(tx *gorm.DB, repo *repository.Repository, favor *models.Favor) (string, error) {
		if err := s.requireAdmin(ctx, tx, caller); err != nil {
			return "", err
		}
		if favor.Status != models.FavorStatusPending {
			return "", precondition("status", "favor %d is %s, expected PENDING", favorID, favor.Status)
		}
		if err := s.escrow.releaseTx(ctx, tx, models.WorkflowFavors, favor.Poster, favor.Reward); err != nil {
			return "", err
		}
		favor.Status = models.FavorStatusRejected
		now := time.Now()
		favor.ClosedAt = &now
		return "favor.rejected", nil
	}, caller)
}

// SetAssignees replaces the assignee list wholesale and moves the favor to
// IN_PROGRESS. Poster only; allowed from any non-terminal state.
func (s *FavorService) SetAssignees(ctx context.Context, caller string, favorID int64, assignees []string) (*models.Favor, error) {
	if len(assignees) == 0 {
		return nil, precondition("assignees", "assignee list must not be empty")
	}
	return s.transition(ctx, favorID, func(tx *gorm.DB, repo *repository.Repository, favor *models.Favor) (string, error) {
		if favor.Poster != caller {
			return "", precondition("caller", "only the poster may assign a favor")
		}
		if favor.Status.Terminal() {
			return "", precondition("status", "favor %d is %s, a terminal state", favorID, favor.Status)
		}
		if err := repo.ReplaceAssignees(ctx, favorID, assignees); err != nil {
			return "", fmt.Errorf("failed to replace assignees: %w", err)
		}
		favor.Status = models.FavorStatusInProgress
		return "favor.assigned", nil
	}, caller)
}

// Bid appends the caller to the favor's bidder list. Any caller; the favor's
// status does not change and carries no precondition.
func (s *FavorService) Bid(ctx context.Context, caller string, favorID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)
		favor, err := s.loadFavor(ctx, repo, favorID)
		if err != nil {
			return err
		}

		count, err := repo.CountBidders(ctx, favorID)
		if err != nil {
			return err
		}
		bidder := models.FavorBidder{
			FavorID:  favor.FavorID,
			Position: int(count),
			Address:  caller,
		}
		if err := repo.AddBidder(ctx, &bidder); err != nil {
			return fmt.Errorf("failed to record bid: %w", err)
		}

		return s.emit(ctx, repo, favorID, "favor.bid", caller)
	})
	if err != nil {
		return err
	}

	log.Printf("Favor %d: bid recorded for %s", favorID, caller)
	return nil
}

// Complete marks an in-progress favor as done. Assignees only.
func (s *FavorService) Complete(ctx context.Context, caller string, favorID int64) (*models.Favor, error) {
	return s.transition(ctx, favorID, func(tx *gorm.DB, repo *repository.Repository, favor *models.Favor) (string, error) {
		ok, err := s.isAssignee(ctx, repo, favorID, caller)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", precondition("caller", "only an assignee may complete a favor")
		}
		if favor.Status != models.FavorStatusInProgress {
			return "", precondition("status", "favor %d is %s, expected IN_PROGRESS", favorID, favor.Status)
		}
		favor.Status = models.FavorStatusCompleted
		return "favor.completed", nil
	}, caller)
}

// RevertComplete sends a completed favor back to IN_PROGRESS. Poster or any
// assignee.
func (s *FavorService) RevertComplete(ctx context.Context, caller string, favorID int64) (*models.Favor, error) {
	return s.transition(ctx, favorID, func(tx *gorm.DB, repo *repository.Repository, favor *models.Favor) (string, error) {
		ok, err := s.isAssignee(ctx, repo, favorID, caller)
		if err != nil {
			return "", err
		}
		if !ok && favor.Poster != caller {
			return "", precondition("caller", "only the poster or an assignee may revert completion")
		}
		if favor.Status != models.FavorStatusCompleted {
			return "", precondition("status", "favor %d is %s, expected COMPLETED", favorID, favor.Status)
		}
		favor.Status = models.FavorStatusInProgress
		return "favor.reverted", nil
	}, caller)
}

// Acknowledge settles a completed favor: the poster partitions the locked
// reward across the supplied (assignee, share) pairs and each share is
// released in the same transaction. Shares must sum to the reward — the
// escrow account is shared by all favors, so an over-allocation would pay
// out another favor's locked funds.
func (s *FavorService) Acknowledge(ctx context.Context, caller string, favorID int64, assignees []string, shares []int64) (*models.Favor, error) {
	if len(assignees) != len(shares) {
		return nil, precondition("shares", "assignees and shares must have equal length")
	}
	if len(assignees) == 0 {
		return nil, precondition("assignees", "assignee list must not be empty")
	}
	return s.transition(ctx, favorID, func(tx *gorm.DB, repo *repository.Repository, favor *models.Favor) (string, error) {
		if favor.Poster != caller {
			return "", precondition("caller", "only the poster may acknowledge a favor")
		}
		if favor.Status != models.FavorStatusCompleted {
			return "", precondition("status", "favor %d is %s, expected COMPLETED", favorID, favor.Status)
		}

		var total int64
		for i, share := range shares {
			if share < 0 {
				return "", precondition("shares", "share %d must be non-negative", i)
			}
			total += share
		}
		if total != favor.Reward {
			return "", precondition("shares", "shares sum to %d, favor reward is %d", total, favor.Reward)
		}

		for i, assignee := range assignees {
			if err := s.escrow.releaseTx(ctx, tx, models.WorkflowFavors, assignee, shares[i]); err != nil {
				return "", err
			}
		}

		favor.Status = models.FavorStatusAcknowledged
		now := time.Now()
		favor.ClosedAt = &now
		return "favor.acknowledged", nil
	}, caller)
}

// Cancel aborts a non-terminal favor and refunds the poster. Poster or admin.
func (s *FavorService) Cancel(ctx context.Context, caller string, favorID int64) (*models.Favor, error) {
	return s.transition(ctx, favorID, func(tx *gorm.DB, repo *repository.Repository, favor *models.Favor) (string, error) {
		if favor.Poster != caller {
			owner, err := s.ledger.ownerTx(ctx, tx)
			if err != nil {
				return "", err
			}
			if owner != caller {
				return "", precondition("caller", "only the poster or the ledger admin may cancel a favor")
			}
		}
		if favor.Status.Terminal() {
			return "", precondition("status", "favor %d is %s, a terminal state", favorID, favor.Status)
		}
		if err := s.escrow.releaseTx(ctx, tx, models.WorkflowFavors, favor.Poster, favor.Reward); err != nil {
			return "", err
		}
		favor.Status = models.FavorStatusCancelled
		now := time.Now()
		favor.ClosedAt = &now
		return "favor.cancelled", nil
	}, caller)
}

// transition wraps the shared load/guard/save/emit skeleton. The body mutates
// the favor and returns the event type to emit.
func (s *FavorService) transition(
	ctx context.Context,
	favorID int64,
	body func(tx *gorm.DB, repo *repository.Repository, favor *models.Favor) (string, error),
	actor string,
) (*models.Favor, error) {
	var favor *models.Favor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		loaded, err := s.loadFavor(ctx, repo, favorID)
		if err != nil {
			return err
		}

		eventType, err := body(tx, repo, loaded)
		if err != nil {
			return err
		}

		if err := repo.UpdateFavor(ctx, loaded); err != nil {
			return fmt.Errorf("failed to update favor: %w", err)
		}
		if err := s.emit(ctx, repo, favorID, eventType, actor); err != nil {
			return err
		}

		favor = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Favor %d -> %s (by %s)", favor.FavorID, favor.Status, actor)
	return favor, nil
}

func (s *FavorService) isAssignee(ctx context.Context, repo *repository.Repository, favorID int64, caller string) (bool, error) {
	assignees, err := repo.GetAssignees(ctx, favorID)
	if err != nil {
		return false, err
	}
	for _, a := range assignees {
		if a.Address == caller {
			return true, nil
		}
	}
	return false, nil
}

// GetFavor retrieves a favor with its bidder and assignee lists.
func (s *FavorService) GetFavor(ctx context.Context, favorID int64) (*models.FavorResponse, error) {
	repo := repository.NewRepository(s.db)

	favor, err := s.loadFavor(ctx, repo, favorID)
	if err != nil {
		return nil, err
	}

	bidders, err := s.GetBidders(ctx, favorID)
	if err != nil {
		return nil, err
	}
	assignees, err := s.GetAssignees(ctx, favorID)
	if err != nil {
		return nil, err
	}

	return &models.FavorResponse{
		ID:          favor.ID.String(),
		FavorID:     favor.FavorID,
		Status:      string(favor.Status),
		Reward:      favor.Reward,
		Name:        favor.Name,
		Description: favor.Description,
		Poster:      favor.Poster,
		Bidders:     bidders,
		Assignees:   assignees,
		CreatedAt:   favor.CreatedAt,
		ClosedAt:    favor.ClosedAt,
	}, nil
}

// ListFavors retrieves favors with optional filters.
func (s *FavorService) ListFavors(ctx context.Context, status models.FavorStatus, poster string, limit, offset int) ([]*models.Favor, int64, error) {
	return repository.NewRepository(s.db).ListFavors(ctx, status, poster, limit, offset)
}

// GetBidders returns a favor's bidder addresses in bid order.
func (s *FavorService) GetBidders(ctx context.Context, favorID int64) ([]string, error) {
	bidders, err := repository.NewRepository(s.db).GetBidders(ctx, favorID)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, 0, len(bidders))
	for _, b := range bidders {
		addresses = append(addresses, b.Address)
	}
	return addresses, nil
}

// GetAssignees returns a favor's assignee addresses in list order.
func (s *FavorService) GetAssignees(ctx context.Context, favorID int64) ([]string, error) {
	assignees, err := repository.NewRepository(s.db).GetAssignees(ctx, favorID)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, 0, len(assignees))
	for _, a := range assignees {
		addresses = append(addresses, a.Address)
	}
	return addresses, nil
}
