package registrations

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// memRepo mimics the store's behavior, including the partial unique
// index on (event_id, lower(email)) over non-cancelled rows.
type memRepo struct {
	mu          sync.Mutex
	rows        map[string]*Registrant
	nextID      int
	beforeCreate func(*memRepo)
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]*Registrant{}}
}

func (m *memRepo) CountActive(ctx context.Context, eventID string, onlyPaid bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.rows {
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

func (m *memRepo) FindActiveByEmail(ctx context.Context, eventID, email string) (*Registrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findActiveLocked(eventID, email)
}

func (m *memRepo) findActiveLocked(eventID, email string) (*Registrant, error) {
	for _, r := range m.rows {
		if r.EventID == eventID && !r.Cancelled && strings.EqualFold(r.Email, email) {
			copied := *r
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) FindByHash(ctx context.Context, eventID, hash string) (*Registrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []*Registrant
	for _, r := range m.rows {
		if r.EventID == eventID && r.HashToken == hash {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	copied := *matches[0]
	return &copied, nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*Registrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *memRepo) Create(ctx context.Context, params CreateParams) (*Registrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.beforeCreate != nil {
		hook := m.beforeCreate
		m.beforeCreate = nil
		hook(m)
	}

	if _, err := m.findActiveLocked(params.EventID, params.Email); err == nil {
		return nil, ErrDuplicate
	}

	m.nextID++
	now := time.Now().UTC()
	r := &Registrant{
		ID:             fmt.Sprintf("rgt-%d", m.nextID),
		RegistrationID: fmt.Sprintf("reg-%d", m.nextID),
		EventID:        params.EventID,
		FirstName:      params.FirstName,
		LastName:       params.LastName,
		Email:          params.Email,
		Phone:          params.Phone,
		Company:        params.Company,
		HashToken:      params.HashToken,
		AmountCents:    params.AmountCents,
		PaymentMethodID: params.PaymentMethodID,
		Invoice: &Invoice{
			ID:           fmt.Sprintf("inv-%d", m.nextID),
			Guard:        params.InvoiceGuard,
			TotalCents:   params.AmountCents,
			BalanceCents: params.AmountCents,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.rows[r.ID] = r
	copied := *r
	return &copied, nil
}

func (m *memRepo) MarkCancelled(ctx context.Context, id string, at time.Time) (*Registrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.Cancelled = true
	r.CancelDT = &at
	r.UpdatedAt = at
	copied := *r
	return &copied, nil
}

func (m *memRepo) ListByEvent(ctx context.Context, eventID string, view RosterView) ([]Registrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Registrant
	for _, r := range m.rows {
		if r.EventID != eventID || r.Cancelled {
			continue
		}
		switch view {
		case RosterPaid:
			if !r.Paid() {
				continue
			}
		case RosterNonPaid:
			if r.Paid() {
				continue
			}
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) Search(ctx context.Context, eventID, query string) ([]Registrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	query = strings.ToLower(query)
	var out []Registrant
	for _, r := range m.rows {
		if r.EventID != eventID {
			continue
		}
		haystack := strings.ToLower(r.FirstName + " " + r.LastName + " " + r.Email + " " + r.Company)
		if query != "" && !strings.Contains(haystack, query) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// settle marks an invoice paid, for capacity tests.
func (m *memRepo) settle(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok && r.Invoice != nil {
		r.Invoice.BalanceCents = 0
		now := time.Now().UTC()
		r.Invoice.TenderDate = &now
	}
}
