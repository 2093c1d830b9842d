package handlers

import (
	"net/http"

	"prediction-events/internal/auth"
	"prediction-events/internal/models"
	"prediction-events/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type StakingHandler struct {
	stakingService *services.StakingService
}

func NewStakingHandler(stakingService *services.StakingService) *StakingHandler {
	return &StakingHandler{
		stakingService: stakingService,
	}
}

// GetStakeStatus returns the wallet's stake record plus the gate verdict
// GET /api/staking/status
func (h *StakingHandler) GetStakeStatus(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	record, err := h.stakingService.GetStakeRecord(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stake record"})
		return
	}

	gate, err := h.stakingService.CanCreate(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to evaluate creation gate"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stake": record,
		"gate":  gate,
	})
}

// Stake adds to the wallet's staked balance
// POST /api/staking/stake
func (h *StakingHandler) Stake(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.StakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.stakingService.Stake(c.Request.Context(), wallet, decimal.NewFromFloat(req.Amount))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ApplyPenalty slashes a wallet's staked balance (admin only)
// POST /api/admin/staking/:wallet/penalty
func (h *StakingHandler) ApplyPenalty(c *gin.Context) {
	wallet := c.Param("wallet")
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet address required"})
		return
	}

	var req struct {
		Amount float64 `json:"amount" binding:"required,gt=0"`
		Reason string  `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.stakingService.ApplyPenalty(c.Request.Context(), wallet, decimal.NewFromFloat(req.Amount), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// Unstake withdraws from the wallet's staked balance once unlocked
// POST /api/staking/unstake
func (h *StakingHandler) Unstake(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.StakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.stakingService.Unstake(c.Request.Context(), wallet, decimal.NewFromFloat(req.Amount))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}
