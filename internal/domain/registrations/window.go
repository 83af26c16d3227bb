package registrations

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/server/internal/domain/events"
)

// Counter is the slice of the repository the window validator needs.
type Counter interface {
	CountActive(ctx context.Context, eventID string, onlyPaid bool) (int, error)
}

// WindowValidator decides whether an event currently accepts
// registrations. The clock is injected so the cutoff checks are testable.
type WindowValidator struct {
	counter Counter
	now     func() time.Time
}

func NewWindowValidator(counter Counter, now func() time.Time) *WindowValidator {
	if now == nil {
		now = time.Now
	}
	return &WindowValidator{counter: counter, now: now}
}

// Check returns nil when the window is open and a *ClosedError otherwise.
// The window is closed when registration is disabled, the event has ended,
// now is past the late cutoff, now is before the early open, or the
// capacity limit is reached. With payment required, only paid registrants
// count toward the limit. Limit 0 means unlimited.
func (v *WindowValidator) Check(ctx context.Context, event *events.Event) error {
	config := event.Registration
	if config == nil || !config.Enabled {
		return &ClosedError{Reason: ReasonDisabled}
	}

	now := v.now()
	if !event.EndTime.IsZero() && now.After(event.EndTime) {
		return &ClosedError{Reason: ReasonEventEnded}
	}
	if now.After(config.LateDT) {
		return &ClosedError{Reason: ReasonAfterLate}
	}
	if now.Before(config.EarlyDT) {
		return &ClosedError{Reason: ReasonBeforeEarly}
	}

	if config.Limit > 0 {
		count, err := v.counter.CountActive(ctx, event.ID, config.PaymentRequired)
		if err != nil {
			return fmt.Errorf("count registrants: %w", err)
		}
		if count >= config.Limit {
			return &ClosedError{Reason: ReasonFull}
		}
	}
	return nil
}
