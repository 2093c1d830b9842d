package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"prediction-events/internal/services"
)

// PhaseSweeper periodically advances event phases and resolves due events
// against the price oracle. The sweep is idempotent, so overlapping or
// retried runs are safe.
type PhaseSweeper struct {
	eventService *services.EventService
	oracle       services.PriceOracle
	interval     time.Duration
	stopChan     chan struct{}
}

// NewPhaseSweeper creates a new phase sweeper job
func NewPhaseSweeper(eventService *services.EventService, oracle services.PriceOracle, interval time.Duration) *PhaseSweeper {
	return &PhaseSweeper{
		eventService: eventService,
		oracle:       oracle,
		interval:     interval,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the sweep loop
func (sw *PhaseSweeper) Start() {
	log.Printf("[PhaseSweeper] Starting phase sweep job (interval: %v)", sw.interval)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.sweep()
		case <-sw.stopChan:
			log.Println("[PhaseSweeper] Stopping phase sweep job")
			return
		}
	}
}

// Stop stops the sweep loop
func (sw *PhaseSweeper) Stop() {
	close(sw.stopChan)
}

func (sw *PhaseSweeper) sweep() {
	ctx := context.Background()

	advanced, err := sw.eventService.AdvancePhases(ctx)
	if err != nil {
		log.Printf("[PhaseSweeper] Error advancing phases: %v", err)
	}
	if advanced > 0 {
		log.Printf("[PhaseSweeper] Advanced %d events", advanced)
	}

	sw.resolveDueEvents(ctx)
}

// resolveDueEvents settles waiting events whose resolution time has arrived.
// A failed price lookup leaves the event in waiting for the next tick.
func (sw *PhaseSweeper) resolveDueEvents(ctx context.Context) {
	due, err := sw.eventService.DueForResolution(ctx)
	if err != nil {
		log.Printf("[PhaseSweeper] Error fetching due events: %v", err)
		return
	}

	for _, event := range due {
		price, err := sw.oracle.GetFinalPrice(ctx, event.Token)
		if err != nil {
			log.Printf("[PhaseSweeper] Error getting price for event %s (%s): %v",
				event.ID, event.Token, err)
			continue
		}

		_, err = sw.eventService.ResolveEvent(ctx, event.ID, price, "")
		if err != nil {
			if errors.Is(err, services.ErrAlreadyResolved) {
				continue // another worker got there first
			}
			log.Printf("[PhaseSweeper] Error resolving event %s: %v", event.ID, err)
			continue
		}

		log.Printf("[PhaseSweeper] Resolved event %s (%s) at price %.6f", event.ID, event.Token, price)
	}
}
