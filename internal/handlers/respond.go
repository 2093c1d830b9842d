package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"prediction-events/internal/services"
)

// respondServiceError maps service-layer errors onto HTTP statuses:
// validation failures are 400, phase/terminal/concurrency conflicts are 409,
// stake-gate denials are 403, missing rows are 404.
func respondServiceError(c *gin.Context, err error) {
	var (
		validationError *services.ValidationError
		stateError      *services.StateError
		conflictError   *services.ConflictError
		gateError       *services.GateDeniedError
	)

	switch {
	case errors.As(err, &validationError):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &gateError):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &stateError),
		errors.As(err, &conflictError),
		errors.Is(err, services.ErrAlreadyResolved),
		errors.Is(err, services.ErrAlreadyCancelled),
		errors.Is(err, services.ErrSlotTaken),
		errors.Is(err, services.ErrStakeLocked),
		errors.Is(err, services.ErrInsufficientStake):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
