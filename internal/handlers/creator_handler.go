package handlers

import (
	"net/http"
	"strconv"

	"prediction-events/internal/repository"
	"prediction-events/internal/services"

	"github.com/gin-gonic/gin"
)

type CreatorHandler struct {
	reputationService *services.ReputationService
	repo              *repository.Repository
}

func NewCreatorHandler(reputationService *services.ReputationService, repo *repository.Repository) *CreatorHandler {
	return &CreatorHandler{
		reputationService: reputationService,
		repo:              repo,
	}
}

// GetCreatorProfile returns a creator's reputation profile and achievements
// GET /api/creators/:wallet
func (h *CreatorHandler) GetCreatorProfile(c *gin.Context) {
	wallet := c.Param("wallet")
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet address required"})
		return
	}

	profile, err := h.reputationService.GetProfileWithAchievements(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get creator profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetCreatorEvents lists the events a creator has opened
// GET /api/creators/:wallet/events
func (h *CreatorHandler) GetCreatorEvents(c *gin.Context) {
	wallet := c.Param("wallet")
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet address required"})
		return
	}

	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	events, err := h.repo.ListEventsByCreator(c.Request.Context(), wallet, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get creator events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  len(events),
	})
}
