package events

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gatherly/server/internal/audit"
	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/domain/ids"
)

// Notifier dispatches a named template to recipients. Delivery is
// fire-and-forget: failures are logged by the implementation and never
// surfaced to the caller.
type Notifier interface {
	Send(ctx context.Context, template string, recipients []string, payload map[string]any)
}

// NoopNotifier is the default when no dispatcher is configured.
type NoopNotifier struct{}

func (NoopNotifier) Send(context.Context, string, []string, map[string]any) {}

// RegistrantCounter reports how many registrants an event has, split by
// whether their invoice is settled.
type RegistrantCounter interface {
	PaidAndPending(ctx context.Context, eventID string) (paid int, pending int, err error)
}

// SiteInfo is stamped into notification payloads.
type SiteInfo struct {
	DisplayName      string
	URL              string
	NoticeRecipients []string
}

type Service struct {
	repo     Repository
	oracle   auth.Oracle
	notifier Notifier
	counter  RegistrantCounter
	site     SiteInfo
}

func NewService(repo Repository, oracle auth.Oracle, notifier Notifier, counter RegistrantCounter, site SiteInfo) *Service {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Service{repo: repo, oracle: oracle, notifier: notifier, counter: counter, site: site}
}

func (s *Service) List(ctx context.Context, filters Filters, pagination Pagination) (ListResult, error) {
	result, err := s.repo.List(ctx, filters, pagination)
	if err != nil {
		return ListResult{}, err
	}
	if filters.Query != "" {
		identity := auth.IdentityFromContext(ctx)
		audit.FromContext(ctx).Record(audit.CodeEventSearched,
			fmt.Sprintf("Event searched by %s", identity), identity.String())
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, ulid string) (*Event, error) {
	event, err := s.repo.GetByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}

	identity := auth.IdentityFromContext(ctx)
	if !s.oracle.CanView(identity, auth.Resource{Kind: "event", Public: true, OwnerEmail: event.OwnerEmail}) {
		return nil, ErrForbidden
	}

	audit.FromContext(ctx).Record(audit.CodeEventViewed,
		fmt.Sprintf("Event (%s) viewed by %s", event.ULID, identity), identity.String())
	return event, nil
}

func (s *Service) Create(ctx context.Context, input EventInput) (*Event, error) {
	identity := auth.IdentityFromContext(ctx)
	if !s.oracle.CanChange(identity, auth.Resource{Kind: "event"}) {
		return nil, ErrForbidden
	}

	validated, err := ValidateEventInput(input)
	if err != nil {
		return nil, err
	}

	ulidValue, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate ulid: %w", err)
	}

	params := validated.createParams()
	params.ULID = ulidValue
	params.OwnerEmail = identity.Email

	event, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	audit.FromContext(ctx).Record(audit.CodeEventAdded,
		fmt.Sprintf("Event (%s) added by %s", event.ULID, identity), identity.String())
	s.notifyLifecycle(ctx, "event_added", event, identity)
	return event, nil
}

func (s *Service) Update(ctx context.Context, ulid string, input EventInput) (*Event, error) {
	existing, err := s.repo.GetByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}

	identity := auth.IdentityFromContext(ctx)
	if !s.oracle.CanChange(identity, auth.Resource{Kind: "event", OwnerEmail: existing.OwnerEmail}) {
		return nil, ErrForbidden
	}

	validated, err := ValidateEventInput(input)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.Update(ctx, ulid, validated.updateParams())
	if err != nil {
		return nil, err
	}

	audit.FromContext(ctx).Record(audit.CodeEventEdited,
		fmt.Sprintf("Event (%s) edited by %s", event.ULID, identity), identity.String())
	s.notifyLifecycle(ctx, "event_edited", event, identity)
	return event, nil
}

func (s *Service) Delete(ctx context.Context, ulid string) error {
	existing, err := s.repo.GetByULID(ctx, ulid)
	if err != nil {
		return err
	}

	identity := auth.IdentityFromContext(ctx)
	if !s.oracle.CanChange(identity, auth.Resource{Kind: "event", OwnerEmail: existing.OwnerEmail}) {
		return ErrForbidden
	}

	// Notification goes out before the rows disappear so the payload can
	// still include registrant counts.
	s.notifyLifecycle(ctx, "event_deleted", existing, identity)

	if err := s.repo.Delete(ctx, ulid); err != nil {
		return err
	}

	audit.FromContext(ctx).Record(audit.CodeEventDeleted,
		fmt.Sprintf("Event (%s) deleted by %s", existing.ULID, identity), identity.String())
	return nil
}

// Day returns the events starting on the given calendar day, ordered by
// start time.
func (s *Service) Day(ctx context.Context, year int, month time.Month, day int) ([]Event, error) {
	from := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return s.repo.ListBetween(ctx, from, from.AddDate(0, 0, 1))
}

// Month returns the month grid plus the events starting within the month.
func (s *Service) Month(ctx context.Context, year int, month time.Month) (MonthView, []Event, error) {
	view := BuildMonthView(year, month)
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	items, err := s.repo.ListBetween(ctx, from, from.AddDate(0, 1, 0))
	if err != nil {
		return MonthView{}, nil, err
	}
	return view, items, nil
}

// Upcoming returns events that have not yet ended, for the feed.
func (s *Service) Upcoming(ctx context.Context, now time.Time, horizon time.Duration) ([]Event, error) {
	return s.repo.ListBetween(ctx, now, now.Add(horizon))
}

func (s *Service) notifyLifecycle(ctx context.Context, template string, event *Event, identity auth.Identity) {
	if len(s.site.NoticeRecipients) == 0 {
		return
	}
	paid, pending := 0, 0
	if s.counter != nil {
		var err error
		paid, pending, err = s.counter.PaidAndPending(ctx, event.ID)
		if err != nil {
			paid, pending = 0, 0
		}
	}
	s.notifier.Send(ctx, template, s.site.NoticeRecipients, map[string]any{
		"event_title":         event.Title,
		"event_ulid":          event.ULID,
		"user":                identity.String(),
		"registrants_paid":    paid,
		"registrants_pending": pending,
		"site_display_name":   s.site.DisplayName,
		"site_url":            s.site.URL,
	})
}

type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func ParseFilters(values url.Values) (Filters, Pagination, error) {
	filters := Filters{}
	pagination := Pagination{Limit: 50}

	startDate, err := parseDate("startDate", values.Get("startDate"))
	if err != nil {
		return filters, pagination, err
	}
	endDate, err := parseDate("endDate", values.Get("endDate"))
	if err != nil {
		return filters, pagination, err
	}
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		return filters, pagination, FilterError{Field: "endDate", Message: "must be on or after startDate"}
	}
	filters.StartDate = startDate
	filters.EndDate = endDate

	filters.TypeSlug = strings.ToLower(strings.TrimSpace(values.Get("type")))
	filters.Query = strings.TrimSpace(values.Get("q"))

	limit, err := parseLimit(values)
	if err != nil {
		return filters, pagination, err
	}
	pagination.Limit = limit

	after := strings.TrimSpace(values.Get("after"))
	pagination.After = after

	return filters, pagination, nil
}

func parseDate(field string, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, FilterError{Field: field, Message: "must be ISO8601 date"}
	}
	return &parsed, nil
}

func parseLimit(values url.Values) (int, error) {
	limit := 50
	rawLimit := strings.TrimSpace(values.Get("limit"))
	if rawLimit == "" {
		return limit, nil
	}
	parsed, err := strconv.Atoi(rawLimit)
	if err != nil {
		return 0, FilterError{Field: "limit", Message: "must be a number"}
	}
	if parsed < 1 || parsed > 200 {
		return 0, FilterError{Field: "limit", Message: "must be between 1 and 200"}
	}
	return parsed, nil
}
