package services

import (
	"context"
	"sync"
	"time"

	"learnhub-api/pkg/logging"
)

// ReplayProtection is the in-memory EventGuard used when Redis is not configured.
// Expired entries are swept lazily on write.
type ReplayProtection struct {
	processedEvents map[string]time.Time
	mutex           sync.Mutex
	cleanupInterval time.Duration
	eventTTL        time.Duration
	lastCleanup     time.Time
	now             func() time.Time
}

// NewReplayProtection creates an in-memory replay guard
func NewReplayProtection() *ReplayProtection {
	return &ReplayProtection{
		processedEvents: make(map[string]time.Time),
		cleanupInterval: time.Hour,
		eventTTL:        defaultEventTTL,
		lastCleanup:     time.Now(),
		now:             time.Now,
	}
}

// MarkProcessed records id, returning false when it was already recorded
func (rp *ReplayProtection) MarkProcessed(_ context.Context, id string) (bool, error) {
	rp.mutex.Lock()
	defer rp.mutex.Unlock()

	now := rp.now()
	if now.Sub(rp.lastCleanup) >= rp.cleanupInterval {
		rp.cleanup(now)
	}

	if processedAt, exists := rp.processedEvents[id]; exists && now.Sub(processedAt) <= rp.eventTTL {
		logging.Infof("Replay detected - event_id: %s, previously processed at: %v", id, processedAt)
		return false, nil
	}

	rp.processedEvents[id] = now
	return true, nil
}

// Forget removes id
func (rp *ReplayProtection) Forget(_ context.Context, id string) error {
	rp.mutex.Lock()
	defer rp.mutex.Unlock()

	delete(rp.processedEvents, id)
	return nil
}

// cleanup drops expired entries. Caller holds mutex.
func (rp *ReplayProtection) cleanup(now time.Time) {
	initialCount := len(rp.processedEvents)
	for id, processedAt := range rp.processedEvents {
		if now.Sub(processedAt) > rp.eventTTL {
			delete(rp.processedEvents, id)
		}
	}
	rp.lastCleanup = now

	if cleaned := initialCount - len(rp.processedEvents); cleaned > 0 {
		logging.Infof("Replay protection cleanup: removed %d expired events, remaining: %d", cleaned, len(rp.processedEvents))
	}
}

// Len returns the number of remembered events
func (rp *ReplayProtection) Len() int {
	rp.mutex.Lock()
	defer rp.mutex.Unlock()

	return len(rp.processedEvents)
}

// Clear removes every record (used in tests)
func (rp *ReplayProtection) Clear() {
	rp.mutex.Lock()
	defer rp.mutex.Unlock()

	rp.processedEvents = make(map[string]time.Time)
}
