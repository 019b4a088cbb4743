package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"favor-market/internal/models"
	"favor-market/internal/repository"
	"favor-market/internal/services"
)

type LedgerHandler struct {
	db            *gorm.DB
	ledgerService *services.LedgerService
	escrowService *services.EscrowService
	faucetService *services.FaucetService
}

func NewLedgerHandler(db *gorm.DB, ledger *services.LedgerService, escrow *services.EscrowService, faucet *services.FaucetService) *LedgerHandler {
	return &LedgerHandler{
		db:            db,
		ledgerService: ledger,
		escrowService: escrow,
		faucetService: faucet,
	}
}

// GetBalance returns a principal's balance (zero for unknown addresses)
// GET /ledger/balance/:address
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	address := c.Param("address")

	balance, err := h.ledgerService.BalanceOf(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"address": address,
			"balance": balance,
		},
	})
}

// Transfer moves tokens from the caller to another principal
// POST /ledger/transfer
func (h *LedgerHandler) Transfer(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	var req models.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ledgerService.Transfer(c.Request.Context(), caller, req.To, req.Amount); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Approve sets the caller's allowance for a spender
// POST /ledger/approve
func (h *LedgerHandler) Approve(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	var req models.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ledgerService.Approve(c.Request.Context(), caller, req.Spender, req.Amount); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetAllowance returns what spender may still debit from owner
// GET /ledger/allowance/:owner/:spender
func (h *LedgerHandler) GetAllowance(c *gin.Context) {
	owner := c.Param("owner")
	spender := c.Param("spender")

	allowance, err := h.ledgerService.Allowance(c.Request.Context(), owner, spender)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch allowance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"owner":     owner,
			"spender":   spender,
			"allowance": allowance,
		},
	})
}

// GetOwner returns the ledger admin principal
// GET /ledger/owner
func (h *LedgerHandler) GetOwner(c *gin.Context) {
	owner, err := h.ledgerService.Owner(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch owner"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"owner": owner},
	})
}

// TransferOwnership hands the admin role to a new principal (owner only)
// POST /ledger/owner
func (h *LedgerHandler) TransferOwnership(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	var req models.TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ledgerService.TransferOwnership(c.Request.Context(), caller, req.NewOwner); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetHistory returns the caller's ledger movements, newest first
// GET /ledger/history
func (h *LedgerHandler) GetHistory(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	transfers, err := h.ledgerService.History(c.Request.Context(), caller, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    transfers,
		"count":   len(transfers),
	})
}

// Faucet drips the fixed grant to the caller
// POST /ledger/faucet
func (h *LedgerHandler) Faucet(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	amount, err := h.faucetService.Drip(c.Request.Context(), caller)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"amount": amount},
	})
}

// GetEscrowAccount returns a workflow's escrow balance
// GET /escrow/:workflow
func (h *LedgerHandler) GetEscrowAccount(c *gin.Context) {
	workflow := c.Param("workflow")
	if workflow != models.WorkflowFavors && workflow != models.WorkflowMarket {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown workflow"})
		return
	}

	account, err := h.escrowService.GetAccount(c.Request.Context(), workflow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch escrow account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    account,
	})
}

// GetEscrowEntries returns a workflow's lock/release audit trail
// GET /escrow/:workflow/entries
func (h *LedgerHandler) GetEscrowEntries(c *gin.Context) {
	workflow := c.Param("workflow")
	if workflow != models.WorkflowFavors && workflow != models.WorkflowMarket {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown workflow"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.escrowService.GetEntries(c.Request.Context(), workflow, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch escrow entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entries,
		"count":   len(entries),
	})
}

// GetEvents returns the transition log for one workflow entity
// GET /events/:entity/:id
func (h *LedgerHandler) GetEvents(c *gin.Context) {
	var entityType string
	switch c.Param("entity") {
	case "favors":
		entityType = models.EntityTypeFavor
	case "market_items":
		entityType = models.EntityTypeMarketItem
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown entity type"})
		return
	}

	entityID, ok := parseID(c)
	if !ok {
		return
	}

	events, err := repository.NewRepository(h.db).GetEntityEvents(c.Request.Context(), entityType, entityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    events,
		"count":   len(events),
	})
}
