package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"favor-market/internal/models"
	"favor-market/internal/services"
)

type MarketHandler struct {
	marketService *services.MarketService
}

func NewMarketHandler(marketService *services.MarketService) *MarketHandler {
	return &MarketHandler{marketService: marketService}
}

func parseIdx(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid redemption index"})
		return 0, false
	}
	return idx, true
}

// ListItems returns market items with optional status/poster filtering
// GET /market/items
func (h *MarketHandler) ListItems(c *gin.Context) {
	status := c.Query("status")
	poster := c.Query("poster")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, total, err := h.marketService.ListItems(c.Request.Context(), models.ItemStatus(status), poster, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"count":   total,
	})
}

// GetItem returns one item with its redemption list
// GET /market/items/:id
func (h *MarketHandler) GetItem(c *gin.Context) {
	itemID, ok := parseID(c)
	if !ok {
		return
	}

	item, err := h.marketService.GetItem(c.Request.Context(), itemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// GetRedemption returns one redemption record by list index
// GET /market/items/:id/redemptions/:idx
func (h *MarketHandler) GetRedemption(c *gin.Context) {
	itemID, ok := parseID(c)
	if !ok {
		return
	}
	idx, ok := parseIdx(c)
	if !ok {
		return
	}

	redemption, err := h.marketService.GetRedemption(c.Request.Context(), itemID, idx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    redemption,
	})
}

// PostItem creates a market item in PENDING
// POST /market/items
func (h *MarketHandler) PostItem(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	var req models.PostItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.marketService.PostItem(c.Request.Context(), caller, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    item,
	})
}

// ApproveItem opens a pending item (admin only)
// POST /market/items/:id/approve
func (h *MarketHandler) ApproveItem(c *gin.Context) {
	h.itemTransition(c, h.marketService.ApproveItem)
}

// RejectItem refuses a pending item (admin only)
// POST /market/items/:id/reject
func (h *MarketHandler) RejectItem(c *gin.Context) {
	h.itemTransition(c, h.marketService.RejectItem)
}

// VoidPostedItem retires an item (admin or poster)
// POST /market/items/:id/void
func (h *MarketHandler) VoidPostedItem(c *gin.Context) {
	h.itemTransition(c, h.marketService.VoidPostedItem)
}

// Redeem claims one unit, locking the unit price from the caller
// POST /market/items/:id/redeem
func (h *MarketHandler) Redeem(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c)
	if !ok {
		return
	}

	redemption, err := h.marketService.Redeem(c.Request.Context(), caller, itemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    redemption,
	})
}

// Delivery marks one redemption as delivered (poster only)
// POST /market/items/:id/redemptions/:idx/delivery
func (h *MarketHandler) Delivery(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c)
	if !ok {
		return
	}
	idx, ok := parseIdx(c)
	if !ok {
		return
	}

	var req models.DeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	redemption, err := h.marketService.Delivery(c.Request.Context(), caller, itemID, idx, req.Account)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    redemption,
	})
}

// Confirm settles a delivered redemption, paying the poster
// POST /market/items/:id/redemptions/:idx/confirm
func (h *MarketHandler) Confirm(c *gin.Context) {
	h.redemptionTransition(c, h.marketService.Confirm)
}

// VoidRedemption cancels a redemption and refunds the redeemer
// POST /market/items/:id/redemptions/:idx/void
func (h *MarketHandler) VoidRedemption(c *gin.Context) {
	h.redemptionTransition(c, h.marketService.VoidRedemption)
}

func (h *MarketHandler) itemTransition(c *gin.Context, op func(ctx context.Context, caller string, itemID int64) (*models.MarketItem, error)) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c)
	if !ok {
		return
	}

	item, err := op(c.Request.Context(), caller, itemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

func (h *MarketHandler) redemptionTransition(c *gin.Context, op func(ctx context.Context, caller string, itemID int64, idx int) (*models.Redemption, error)) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c)
	if !ok {
		return
	}
	idx, ok := parseIdx(c)
	if !ok {
		return
	}

	redemption, err := op(c.Request.Context(), caller, itemID, idx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    redemption,
	})
}
