package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherly/server/internal/audit"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/ids"
)

// Recorder performs the atomic get-or-create step of the workflow. The
// uniqueness guarantee comes from the (event_id, lower(email)) index in
// the store; the recorder's job is to converge both sides of a race onto
// the single surviving row and to send the confirmation notification
// exactly once, on the side that created it.
type Recorder struct {
	repo     Repository
	notifier events.Notifier
	site     events.SiteInfo
}

func NewRecorder(repo Repository, notifier events.Notifier, site events.SiteInfo) *Recorder {
	if notifier == nil {
		notifier = events.NoopNotifier{}
	}
	return &Recorder{repo: repo, notifier: notifier, site: site}
}

// Record returns the registrant for (event, email), creating it if
// needed. wasCreated reports which side this call took; the confirmation
// notification goes out only when true.
func (r *Recorder) Record(ctx context.Context, event *events.Event, input RegistrantInput, paymentMethodID int, amountCents int64) (*Registrant, bool, error) {
	email := NormalizeEmail(input.Email)

	existing, err := r.repo.FindActiveByEmail(ctx, event.ID, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("lookup registrant: %w", err)
	}

	registrant, err := r.repo.Create(ctx, CreateParams{
		EventID:         event.ID,
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Email:           email,
		Phone:           input.Phone,
		Company:         input.Company,
		HashToken:       ids.NewHashToken(),
		AmountCents:     amountCents,
		PaymentMethodID: paymentMethodID,
		InvoiceGuard:    ids.NewGuardToken(),
	})
	if errors.Is(err, ErrDuplicate) {
		// Lost the race; the other request's row is the registration.
		existing, err := r.repo.FindActiveByEmail(ctx, event.ID, email)
		if err != nil {
			return nil, false, fmt.Errorf("fetch racing registrant: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create registrant: %w", err)
	}

	identity := registrant.Email
	audit.FromContext(ctx).Record(audit.CodeRegistration,
		fmt.Sprintf("Registration (event %s) by %s", event.ULID, identity), identity)

	r.notifier.Send(ctx, "registration_confirmation", []string{registrant.Email}, map[string]any{
		"event_title":       event.Title,
		"event_ulid":        event.ULID,
		"registrant_name":   registrant.FullName(),
		"hash_token":        registrant.HashToken,
		"amount_cents":      registrant.AmountCents,
		"site_display_name": r.site.DisplayName,
		"site_url":          r.site.URL,
	})
	return registrant, true, nil
}
