package registrations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/domain/events"
)

// Canceller withdraws a registration. Cancelling an already-cancelled
// registrant is allowed and simply refreshes cancel_dt.
type Canceller struct {
	repo     Repository
	oracle   auth.Oracle
	notifier events.Notifier
	site     events.SiteInfo
	now      func() time.Time
}

func NewCanceller(repo Repository, oracle auth.Oracle, notifier events.Notifier, site events.SiteInfo, now func() time.Time) *Canceller {
	if notifier == nil {
		notifier = events.NoopNotifier{}
	}
	if now == nil {
		now = time.Now
	}
	return &Canceller{repo: repo, oracle: oracle, notifier: notifier, site: site, now: now}
}

// CancelByID cancels on behalf of an authenticated caller: the registrant
// themselves, an organizer or an admin.
func (c *Canceller) CancelByID(ctx context.Context, event *events.Event, registrantID string) (*Registrant, error) {
	registrant, err := c.repo.GetByID(ctx, registrantID)
	if err != nil {
		return nil, err
	}
	if registrant.EventID != event.ID {
		return nil, ErrNotFound
	}

	identity := auth.IdentityFromContext(ctx)
	if !c.oracle.CanView(identity, auth.Resource{Kind: "registrant", OwnerEmail: registrant.Email}) {
		return nil, ErrForbidden
	}
	return c.cancel(ctx, event, registrant)
}

// CancelByHash cancels with the mailed token as the only credential.
func (c *Canceller) CancelByHash(ctx context.Context, event *events.Event, hash string) (*Registrant, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, ErrNotFound
	}
	registrant, err := c.repo.FindByHash(ctx, event.ID, hash)
	if err != nil {
		return nil, err
	}
	return c.cancel(ctx, event, registrant)
}

func (c *Canceller) cancel(ctx context.Context, event *events.Event, registrant *Registrant) (*Registrant, error) {
	cancelled, err := c.repo.MarkCancelled(ctx, registrant.ID, c.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("mark cancelled: %w", err)
	}

	paid, pending, err := c.counts(ctx, event.ID)
	if err != nil {
		paid, pending = 0, 0
	}

	recipients := append([]string{cancelled.Email}, c.site.NoticeRecipients...)
	c.notifier.Send(ctx, "registration_cancelled", recipients, map[string]any{
		"event_title":         event.Title,
		"event_ulid":          event.ULID,
		"registrant_name":     cancelled.FullName(),
		"registrants_paid":    paid,
		"registrants_pending": pending,
		"site_display_name":   c.site.DisplayName,
		"site_url":            c.site.URL,
	})
	return cancelled, nil
}

func (c *Canceller) counts(ctx context.Context, eventID string) (int, int, error) {
	total, err := c.repo.CountActive(ctx, eventID, false)
	if err != nil {
		return 0, 0, err
	}
	paid, err := c.repo.CountActive(ctx, eventID, true)
	if err != nil {
		return 0, 0, err
	}
	return paid, total - paid, nil
}
