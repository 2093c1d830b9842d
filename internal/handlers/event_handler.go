package handlers

import (
	"net/http"
	"strconv"

	"prediction-events/internal/auth"
	"prediction-events/internal/blockchain"
	"prediction-events/internal/models"
	"prediction-events/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventHandler struct {
	eventService *services.EventService
	solanaClient *blockchain.SolanaClient
}

func NewEventHandler(eventService *services.EventService, solanaClient *blockchain.SolanaClient) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		solanaClient: solanaClient,
	}
}

// CreateEvent opens a new event for the authenticated creator
// POST /api/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.solanaClient.ValidateTxRef(req.DepositTxRef); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), wallet, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// GetEvent retrieves an event with participants, predictions and winners
// GET /api/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	event, err := h.eventService.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	c.JSON(http.StatusOK, event)
}

// ListEvents retrieves events, optionally filtered by status
// GET /api/events
func (h *EventHandler) ListEvents(c *gin.Context) {
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

	status := models.EventStatus(c.Query("status"))

	events, total, err := h.eventService.ListEvents(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
	})
}

// JoinEvent registers the authenticated wallet as a participant
// POST /api/events/:id/join
func (h *EventHandler) JoinEvent(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req models.JoinEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.EntryTxRef != "" {
		if err := h.solanaClient.ValidateTxRef(req.EntryTxRef); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	participant, err := h.eventService.JoinEvent(
		c.Request.Context(),
		eventID,
		wallet,
		decimal.NewFromFloat(req.EntryFeePaid),
		req.EntryTxRef,
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, participant)
}

// SubmitPrediction records the authenticated participant's blind price call
// POST /api/events/:id/predict
func (h *EventHandler) SubmitPrediction(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req models.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prediction, err := h.eventService.SubmitPrediction(c.Request.Context(), eventID, wallet, req.PredictedPrice)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// The stored price stays blind until resolution
	c.JSON(http.StatusCreated, prediction.ToResponse(false))
}

// ResolveEvent settles a waiting event at the supplied final price (admin only)
// POST /api/admin/events/:id/resolve
func (h *EventHandler) ResolveEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req models.ResolveEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.eventService.ResolveEvent(c.Request.Context(), eventID, req.FinalPrice, req.ResolutionRef)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelEvent cancels an event and emits the refund list
// POST /api/events/:id/cancel
func (h *EventHandler) CancelEvent(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req models.CancelEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	refunds, err := h.eventService.CancelEvent(c.Request.Context(), eventID, wallet, req.Reason, auth.IsAdmin(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "event cancelled",
		"refunds": refunds,
	})
}

// GetEventTransactions retrieves the event's money ledger
// GET /api/events/:id/transactions
func (h *EventHandler) GetEventTransactions(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	ledger, err := h.eventService.GetEventLedger(c.Request.Context(), eventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": ledger,
		"total":        len(ledger),
	})
}

// GetPayoutPreview projects payouts at the current fill and at capacity
// GET /api/events/:id/payout-preview
func (h *EventHandler) GetPayoutPreview(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	preview, err := h.eventService.GetPayoutPreview(c.Request.Context(), eventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}
