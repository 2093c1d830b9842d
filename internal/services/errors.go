package services

import (
	"errors"
	"fmt"

	"prediction-events/internal/models"
)

// Terminal-state and race guards. Callers match with errors.Is.
var (
	ErrAlreadyResolved   = errors.New("event already resolved")
	ErrAlreadyCancelled  = errors.New("event already cancelled")
	ErrSlotTaken         = errors.New("participant slot already taken")
	ErrStakeLocked       = errors.New("staked tokens are still locked")
	ErrInsufficientStake = errors.New("insufficient staked balance")
)

// ValidationError rejects bad input before any mutation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StateError rejects an operation invalid for the event's current phase
type StateError struct {
	Op     string
	Status models.EventStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s event in status %s", e.Op, e.Status)
}

func stateErr(op string, status models.EventStatus) error {
	return &StateError{Op: op, Status: status}
}

// ConflictError rejects duplicate wallets and lost concurrent writes
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func conflictErr(reason string) error {
	return &ConflictError{Reason: reason}
}

// GateDeniedError rejects event creation blocked by the stake tier gate
type GateDeniedError struct {
	Reason string
}

func (e *GateDeniedError) Error() string {
	return fmt.Sprintf("creation denied: %s", e.Reason)
}
