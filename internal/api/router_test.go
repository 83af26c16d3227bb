package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/config"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/ids"
	"github.com/gatherly/server/internal/domain/registrations"
)

type fakeEventsRepo struct {
	mu     sync.Mutex
	seq    int
	byULID map[string]*events.Event
}

func newFakeEventsRepo() *fakeEventsRepo {
	return &fakeEventsRepo{byULID: map[string]*events.Event{}}
}

func (f *fakeEventsRepo) List(ctx context.Context, filters events.Filters, pagination events.Pagination) (events.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]events.Event, 0, len(f.byULID))
	for _, e := range f.byULID {
		items = append(items, *e)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StartTime.Before(items[j].StartTime) })
	return events.ListResult{Events: items}, nil
}

func (f *fakeEventsRepo) GetByULID(ctx context.Context, ulid string) (*events.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byULID[ulid]
	if !ok {
		return nil, events.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (f *fakeEventsRepo) Create(ctx context.Context, params events.EventCreateParams) (*events.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	e := &events.Event{
		ID:           fmt.Sprintf("event-%d", f.seq),
		ULID:         params.ULID,
		Title:        params.Title,
		Description:  params.Description,
		TypeSlug:     params.TypeSlug,
		StartTime:    params.StartTime,
		EndTime:      params.EndTime,
		Place:        params.Place,
		Organizer:    params.Organizer,
		Speaker:      params.Speaker,
		Registration: params.Registration,
		OwnerEmail:   params.OwnerEmail,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	f.byULID[e.ULID] = e
	clone := *e
	return &clone, nil
}

func (f *fakeEventsRepo) Update(ctx context.Context, ulid string, params events.EventUpdateParams) (*events.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byULID[ulid]
	if !ok {
		return nil, events.ErrNotFound
	}
	e.Title = params.Title
	e.Description = params.Description
	e.TypeSlug = params.TypeSlug
	e.StartTime = params.StartTime
	e.EndTime = params.EndTime
	e.Place = params.Place
	e.Organizer = params.Organizer
	e.Speaker = params.Speaker
	e.Registration = params.Registration
	e.UpdatedAt = time.Now().UTC()
	clone := *e
	return &clone, nil
}

func (f *fakeEventsRepo) Delete(ctx context.Context, ulid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byULID[ulid]; !ok {
		return events.ErrNotFound
	}
	delete(f.byULID, ulid)
	return nil
}

func (f *fakeEventsRepo) ListBetween(ctx context.Context, from, to time.Time) ([]events.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []events.Event
	for _, e := range f.byULID {
		if !e.StartTime.Before(from) && e.StartTime.Before(to) {
			items = append(items, *e)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StartTime.Before(items[j].StartTime) })
	return items, nil
}

type fakeRegRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]*registrations.Registrant
}

func newFakeRegRepo() *fakeRegRepo {
	return &fakeRegRepo{items: map[string]*registrations.Registrant{}}
}

func (f *fakeRegRepo) CountActive(ctx context.Context, eventID string, onlyPaid bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.items {
		if r.EventID != eventID || r.Cancelled {
			continue
		}
		if onlyPaid && !r.Paid() {
			continue
		}
		count++
	}
	return count, nil
}

func (f *fakeRegRepo) FindActiveByEmail(ctx context.Context, eventID, email string) (*registrations.Registrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.items {
		if r.EventID == eventID && !r.Cancelled && strings.EqualFold(r.Email, email) {
			clone := *r
			return &clone, nil
		}
	}
	return nil, registrations.ErrNotFound
}

func (f *fakeRegRepo) FindByHash(ctx context.Context, eventID, hash string) (*registrations.Registrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *registrations.Registrant
	for _, r := range f.items {
		if r.EventID != eventID || r.HashToken != hash {
			continue
		}
		if best == nil || r.UpdatedAt.After(best.UpdatedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, registrations.ErrNotFound
	}
	clone := *best
	return &clone, nil
}

func (f *fakeRegRepo) GetByID(ctx context.Context, id string) (*registrations.Registrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return nil, registrations.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (f *fakeRegRepo) Create(ctx context.Context, params registrations.CreateParams) (*registrations.Registrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.items {
		if r.EventID == params.EventID && !r.Cancelled && strings.EqualFold(r.Email, params.Email) {
			return nil, registrations.ErrDuplicate
		}
	}
	f.seq++
	now := time.Now().UTC()
	r := &registrations.Registrant{
		ID:              fmt.Sprintf("rg-%d", f.seq),
		RegistrationID:  fmt.Sprintf("reg-%d", f.seq),
		EventID:         params.EventID,
		FirstName:       params.FirstName,
		LastName:        params.LastName,
		Email:           params.Email,
		Phone:           params.Phone,
		Company:         params.Company,
		HashToken:       params.HashToken,
		AmountCents:     params.AmountCents,
		PaymentMethodID: params.PaymentMethodID,
		Invoice: &registrations.Invoice{
			ID:           fmt.Sprintf("inv-%d", f.seq),
			Guard:        params.InvoiceGuard,
			TotalCents:   params.AmountCents,
			BalanceCents: params.AmountCents,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.items[r.ID] = r
	clone := *r
	return &clone, nil
}

func (f *fakeRegRepo) MarkCancelled(ctx context.Context, id string, at time.Time) (*registrations.Registrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return nil, registrations.ErrNotFound
	}
	r.Cancelled = true
	r.CancelDT = &at
	r.UpdatedAt = time.Now().UTC()
	clone := *r
	return &clone, nil
}

func (f *fakeRegRepo) ListByEvent(ctx context.Context, eventID string, view registrations.RosterView) ([]registrations.Registrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []registrations.Registrant
	for _, r := range f.items {
		if r.EventID != eventID || r.Cancelled {
			continue
		}
		switch view {
		case registrations.RosterPaid:
			if !r.Paid() {
				continue
			}
		case registrations.RosterNonPaid:
			if r.Paid() {
				continue
			}
		}
		items = append(items, *r)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (f *fakeRegRepo) Search(ctx context.Context, eventID, query string) ([]registrations.Registrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	query = strings.ToLower(query)
	var items []registrations.Registrant
	for _, r := range f.items {
		if r.EventID != eventID {
			continue
		}
		haystack := strings.ToLower(r.FirstName + " " + r.LastName + " " + r.Email + " " + r.Company)
		if query == "" || strings.Contains(haystack, query) {
			items = append(items, *r)
		}
	}
	return items, nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]auth.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]auth.User{}}
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[strings.ToLower(email)]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeUserStore) Upsert(ctx context.Context, user auth.User) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(f.users)+1)
	}
	f.users[strings.ToLower(user.Email)] = user
	return &user, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Send(ctx context.Context, template string, recipients []string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, template)
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

type routerFixture struct {
	handler    http.Handler
	eventsRepo *fakeEventsRepo
	regRepo    *fakeRegRepo
	users      *fakeUserStore
	notifier   *recordingNotifier
	jwt        *auth.JWTManager
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	cfg := config.Config{
		Server:      config.ServerConfig{BaseURL: "http://localhost:8080"},
		Auth:        config.AuthConfig{JWTSecret: "test-secret", JWTExpiry: time.Hour, Issuer: "gatherly"},
		Site:        config.SiteConfig{DisplayName: "Gatherly", URL: "https://events.example.org", WebmasterEmail: "webmaster@example.org"},
		Environment: "test",
	}

	fx := &routerFixture{
		eventsRepo: newFakeEventsRepo(),
		regRepo:    newFakeRegRepo(),
		users:      newFakeUserStore(),
		notifier:   &recordingNotifier{},
		jwt:        auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer),
	}
	fx.handler = NewRouter(Deps{
		Config:        cfg,
		Logger:        zerolog.Nop(),
		Events:        fx.eventsRepo,
		Registrations: fx.regRepo,
		Users:         fx.users,
		Notifier:      fx.notifier,
		Version:       "test",
	})
	return fx
}

func (fx *routerFixture) organizerToken(t *testing.T) string {
	t.Helper()
	token, err := fx.jwt.Generate("user-1", "organizer@example.org", "organizer")
	require.NoError(t, err)
	return token
}

func (fx *routerFixture) seedEvent(t *testing.T, mutate func(*events.Event)) *events.Event {
	t.Helper()
	ulidValue, err := ids.NewULID()
	require.NoError(t, err)
	now := time.Now().UTC()
	event := &events.Event{
		ULID:      ulidValue,
		Title:     "Autumn Meetup",
		StartTime: now.Add(48 * time.Hour),
		EndTime:   now.Add(50 * time.Hour),
		Registration: &events.RegistrationConfiguration{
			Enabled:   true,
			EarlyDT:   now.Add(-24 * time.Hour),
			RegularDT: now.Add(12 * time.Hour),
			LateDT:    now.Add(24 * time.Hour),
		},
		OwnerEmail: "organizer@example.org",
	}
	if mutate != nil {
		mutate(event)
	}
	created, err := fx.eventsRepo.Create(context.Background(), events.EventCreateParams{
		ULID:         event.ULID,
		Title:        event.Title,
		Description:  event.Description,
		TypeSlug:     event.TypeSlug,
		StartTime:    event.StartTime,
		EndTime:      event.EndTime,
		Place:        event.Place,
		Organizer:    event.Organizer,
		Speaker:      event.Speaker,
		Registration: event.Registration,
		OwnerEmail:   event.OwnerEmail,
	})
	require.NoError(t, err)
	return created
}

func (fx *routerFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.0.0.1:5000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	fx := newRouterFixture(t)

	rec := fx.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetEventUnknownID(t *testing.T) {
	fx := newRouterFixture(t)

	rec := fx.do(t, http.MethodGet, "/api/v1/events/not-a-ulid", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestEventCRUDOverHTTP(t *testing.T) {
	fx := newRouterFixture(t)
	token := fx.organizerToken(t)

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	create := map[string]any{
		"title":     "Winter Workshop",
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(2 * time.Hour).Format(time.RFC3339),
	}

	rec := fx.do(t, http.MethodPost, "/api/v1/events", "", create)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = fx.do(t, http.MethodPost, "/api/v1/events", token, create)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "Winter Workshop", created.Title)
	require.True(t, ids.IsULID(created.ID))

	rec = fx.do(t, http.MethodGet, "/api/v1/events/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/v1/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Winter Workshop")

	rec = fx.do(t, http.MethodDelete, "/api/v1/events/"+created.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/v1/events/"+created.ID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEventValidationFailure(t *testing.T) {
	fx := newRouterFixture(t)
	token := fx.organizerToken(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/events", token, map[string]any{
		"title": "",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "title")
}

func TestRegisterFreeEventConfirms(t *testing.T) {
	fx := newRouterFixture(t)
	event := fx.seedEvent(t, nil)

	form := map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.org",
	}
	rec := fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/register", "", form)
	require.Equal(t, http.StatusCreated, rec.Code)

	var decision struct {
		State      string `json:"state"`
		Registrant *struct {
			Email string `json:"email"`
			Paid  bool   `json:"paid"`
		} `json:"registrant"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	require.Equal(t, "confirmed", decision.State)
	require.NotNil(t, decision.Registrant)
	require.Equal(t, "ada@example.org", decision.Registrant.Email)
	require.True(t, decision.Registrant.Paid)

	// Same email again converges on the existing registrant.
	rec = fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/register", "", form)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "already_registered")

	require.Equal(t, []string{"registration_confirmation"}, fx.notifier.templates())
}

func TestRegisterClosedRedirects(t *testing.T) {
	fx := newRouterFixture(t)
	event := fx.seedEvent(t, func(e *events.Event) {
		e.Registration.Enabled = false
	})

	rec := fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/register", "", map[string]any{
		"firstName": "Ada",
		"email":     "ada@example.org",
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	require.Contains(t, location, "/events/"+event.ULID)
	require.Contains(t, location, "closed=")
}

func TestRegisterPaidEventPendingPayment(t *testing.T) {
	fx := newRouterFixture(t)
	event := fx.seedEvent(t, func(e *events.Event) {
		e.Registration.PriceCents = 2500
		e.Registration.PaymentRequired = true
	})

	rec := fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/register", "", map[string]any{
		"firstName":       "Grace",
		"email":           "grace@example.org",
		"paymentMethodId": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var decision struct {
		State      string `json:"state"`
		PaymentURL string `json:"paymentUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	require.Equal(t, "payment_pending", decision.State)
	require.Contains(t, decision.PaymentURL, "/payments/")
	require.Contains(t, decision.PaymentURL, "guard=")
}

func TestRegisterValidationFailure(t *testing.T) {
	fx := newRouterFixture(t)
	event := fx.seedEvent(t, nil)

	rec := fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/register", "", map[string]any{
		"firstName": "Ada",
		"email":     "not-an-email",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "email")
}

func TestConfirmationAndCancelByHash(t *testing.T) {
	fx := newRouterFixture(t)
	event := fx.seedEvent(t, nil)

	rec := fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/register", "", map[string]any{
		"firstName": "Ada",
		"email":     "ada@example.org",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	registrant, err := fx.regRepo.FindActiveByEmail(context.Background(), event.ID, "ada@example.org")
	require.NoError(t, err)

	rec = fx.do(t, http.MethodGet, "/api/v1/events/"+event.ULID+"/registrations/confirm/"+registrant.HashToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ada@example.org")

	rec = fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/registrations/confirm/"+registrant.HashToken+"/cancel", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"cancelled":true`)

	// The cancelled spot no longer matches by email.
	_, err = fx.regRepo.FindActiveByEmail(context.Background(), event.ID, "ada@example.org")
	require.ErrorIs(t, err, registrations.ErrNotFound)

	rec = fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/registrations/confirm/deadbeefdeadbeefdeadbeefdeadbeef/cancel", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistrantDetailsAndCancelByID(t *testing.T) {
	fx := newRouterFixture(t)
	token := fx.organizerToken(t)
	event := fx.seedEvent(t, nil)

	rec := fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/register", "", map[string]any{
		"firstName": "Ada",
		"email":     "ada@example.org",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	registrant, err := fx.regRepo.FindActiveByEmail(context.Background(), event.ID, "ada@example.org")
	require.NoError(t, err)

	rec = fx.do(t, http.MethodGet, "/api/v1/registrants/"+registrant.ID, "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/v1/registrants/"+registrant.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ada@example.org")

	rec = fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/registrations/"+registrant.ID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"cancelled":true`)
}

func TestRosterRequiresAuth(t *testing.T) {
	fx := newRouterFixture(t)
	event := fx.seedEvent(t, nil)

	rec := fx.do(t, http.MethodGet, "/api/v1/events/"+event.ULID+"/registrants/roster/total", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRosterAndExport(t *testing.T) {
	fx := newRouterFixture(t)
	token := fx.organizerToken(t)
	event := fx.seedEvent(t, nil)

	for _, email := range []string{"a@example.org", "b@example.org"} {
		rec := fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/register", "", map[string]any{
			"firstName": "Reg",
			"email":     email,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := fx.do(t, http.MethodGet, "/api/v1/events/"+event.ULID+"/registrants/roster/total", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var roster struct {
		Registrants []json.RawMessage `json:"registrants"`
		Totals      struct {
			PaidCount int `json:"paidCount"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roster))
	require.Len(t, roster.Registrants, 2)
	require.Equal(t, 2, roster.Totals.PaidCount)

	rec = fx.do(t, http.MethodGet, "/api/v1/events/"+event.ULID+"/registrants/roster/bogus", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/v1/events/"+event.ULID+"/registrants/export?view=total", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, rec.Header().Get("Content-Disposition"), "Event-Autumn-Meetup-Total.csv")
	require.Contains(t, rec.Body.String(), "a@example.org")

	rec = fx.do(t, http.MethodGet, "/api/v1/events/"+event.ULID+"/registrants?q=b@example.org", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "b@example.org")
	require.NotContains(t, rec.Body.String(), "a@example.org")
}

func TestMessagesFanOut(t *testing.T) {
	fx := newRouterFixture(t)
	token := fx.organizerToken(t)
	event := fx.seedEvent(t, nil)

	for _, email := range []string{"a@example.org", "b@example.org"} {
		rec := fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/register", "", map[string]any{
			"firstName": "Reg",
			"email":     email,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/messages", token, map[string]any{
		"subject": "Venue change",
		"body":    `<p>New venue.</p><script>alert(1)</script>`,
		"filter":  "total",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"recipients":2`)

	sent := fx.notifier.templates()
	messageCount := 0
	summaryCount := 0
	for _, template := range sent {
		switch template {
		case "registrants_message":
			messageCount++
		case "registrants_message_summary":
			summaryCount++
		}
	}
	require.Equal(t, 2, messageCount)
	require.Equal(t, 1, summaryCount)
}

func TestMessagesRejectsAnonymous(t *testing.T) {
	fx := newRouterFixture(t)
	event := fx.seedEvent(t, nil)

	rec := fx.do(t, http.MethodPost, "/api/v1/events/"+event.ULID+"/messages", "", map[string]any{
		"subject": "Hi",
		"body":    "there",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	fx := newRouterFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.DefaultCost)
	require.NoError(t, err)
	_, err = fx.users.Upsert(context.Background(), auth.User{
		Email:        "organizer@example.org",
		Name:         "Org",
		Role:         "organizer",
		PasswordHash: string(hash),
	})
	require.NoError(t, err)

	rec := fx.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "Organizer@Example.org",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.Equal(t, "organizer", login.Role)

	event := fx.seedEvent(t, nil)
	recRoster := fx.do(t, http.MethodGet, "/api/v1/events/"+event.ULID+"/registrants/roster/total", login.Token, nil)
	require.Equal(t, http.StatusOK, recRoster.Code)

	rec = fx.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "organizer@example.org",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFeedAndCalendar(t *testing.T) {
	fx := newRouterFixture(t)
	event := fx.seedEvent(t, nil)

	rec := fx.do(t, http.MethodGet, "/api/v1/events/feed.ics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	require.Contains(t, rec.Header().Get("Content-Disposition"), "events.example.org.ics")
	require.Contains(t, rec.Body.String(), "BEGIN:VEVENT")
	require.Contains(t, rec.Body.String(), event.ULID)

	start := event.StartTime.UTC()
	monthPath := fmt.Sprintf("/api/v1/events/calendar/%d/%d", start.Year(), int(start.Month()))
	rec = fx.do(t, http.MethodGet, monthPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Autumn Meetup")

	dayPath := fmt.Sprintf("%s/%d", monthPath, start.Day())
	rec = fx.do(t, http.MethodGet, dayPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Autumn Meetup")

	rec = fx.do(t, http.MethodGet, "/api/v1/events/calendar/2026/13", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	fx := newRouterFixture(t)

	rec := fx.do(t, http.MethodPatch, "/api/v1/events", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET, POST", rec.Header().Get("Allow"))
}
