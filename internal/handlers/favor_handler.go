package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"favor-market/internal/models"
	"favor-market/internal/services"
)

type FavorHandler struct {
	favorService *services.FavorService
}

func NewFavorHandler(favorService *services.FavorService) *FavorHandler {
	return &FavorHandler{favorService: favorService}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// ListFavors returns favors with optional status/poster filtering
// GET /favors
func (h *FavorHandler) ListFavors(c *gin.Context) {
	status := c.Query("status")
	poster := c.Query("poster")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	favors, total, err := h.favorService.ListFavors(c.Request.Context(), models.FavorStatus(status), poster, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch favors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    favors,
		"count":   total,
	})
}

// GetFavor returns one favor with its bidder and assignee lists
// GET /favors/:id
func (h *FavorHandler) GetFavor(c *gin.Context) {
	favorID, ok := parseID(c)
	if !ok {
		return
	}

	favor, err := h.favorService.GetFavor(c.Request.Context(), favorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    favor,
	})
}

// PostFavor creates a favor and locks the reward from the caller
// POST /favors
func (h *FavorHandler) PostFavor(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	var req models.PostFavorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	favor, err := h.favorService.PostFavor(c.Request.Context(), caller, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    favor,
	})
}

// Approve opens a pending favor (admin only)
// POST /favors/:id/approve
func (h *FavorHandler) Approve(c *gin.Context) {
	h.simpleTransition(c, h.favorService.Approve)
}

// Reject refuses a pending favor and refunds the poster (admin only)
// POST /favors/:id/reject
func (h *FavorHandler) Reject(c *gin.Context) {
	h.simpleTransition(c, h.favorService.Reject)
}

// Bid appends the caller to the favor's bidder list
// POST /favors/:id/bid
func (h *FavorHandler) Bid(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	favorID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.favorService.Bid(c.Request.Context(), caller, favorID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetAssignees replaces the assignee list and moves the favor to IN_PROGRESS
// POST /favors/:id/assignees
func (h *FavorHandler) SetAssignees(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	favorID, ok := parseID(c)
	if !ok {
		return
	}

	var req models.SetAssigneesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	favor, err := h.favorService.SetAssignees(c.Request.Context(), caller, favorID, req.Assignees)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    favor,
	})
}

// Complete marks the work done (assignee only)
// POST /favors/:id/complete
func (h *FavorHandler) Complete(c *gin.Context) {
	h.simpleTransition(c, h.favorService.Complete)
}

// RevertComplete sends a completed favor back to IN_PROGRESS
// POST /favors/:id/revert
func (h *FavorHandler) RevertComplete(c *gin.Context) {
	h.simpleTransition(c, h.favorService.RevertComplete)
}

// Acknowledge settles a completed favor, splitting the reward across assignees
// POST /favors/:id/acknowledge
func (h *FavorHandler) Acknowledge(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	favorID, ok := parseID(c)
	if !ok {
		return
	}

	var req models.AcknowledgeFavorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	favor, err := h.favorService.Acknowledge(c.Request.Context(), caller, favorID, req.Assignees, req.Shares)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    favor,
	})
}

// Cancel aborts a non-terminal favor and refunds the poster
// POST /favors/:id/cancel
func (h *FavorHandler) Cancel(c *gin.Context) {
	h.simpleTransition(c, h.favorService.Cancel)
}

// simpleTransition covers the argument-free transitions that only need the
// caller and the favor id.
func (h *FavorHandler) simpleTransition(c *gin.Context, op func(ctx context.Context, caller string, favorID int64) (*models.Favor, error)) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	favorID, ok := parseID(c)
	if !ok {
		return
	}

	favor, err := op(c.Request.Context(), caller, favorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    favor,
	})
}
