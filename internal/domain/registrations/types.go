package registrations

import (
	"context"
	"time"
)

// Seeded payment methods. Free registrations are recorded against the
// cash method so every registrant row carries one.
const (
	PaymentMethodCreditCard = 1
	PaymentMethodCheck      = 2
	PaymentMethodCash       = 3
)

// Registrant is one person signed up for an event. It is the unit the
// workflow, roster and export all operate on; the owning Registration row
// and its Invoice are loaded alongside it.
type Registrant struct {
	ID             string
	RegistrationID string
	EventID        string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Company        string

	// HashToken is the opaque token mailed to the registrant; it grants
	// unauthenticated access to the confirmation and cancellation routes.
	HashToken string

	AmountCents     int64
	PaymentMethodID int

	Cancelled bool
	CancelDT  *time.Time

	Invoice *Invoice

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Registrant) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// Paid reports whether the registrant's invoice is settled. Free
// registrations carry a zero-total invoice and count as paid, and so does
// an overpaid invoice with a negative balance.
func (r *Registrant) Paid() bool {
	return r.Invoice != nil && r.Invoice.BalanceCents <= 0
}

// Invoice is the billing record created with every registration.
// Guard is the unpredictable token required alongside the invoice id on
// the payment redirect.
type Invoice struct {
	ID           string
	Guard        string
	TotalCents   int64
	BalanceCents int64
	TenderDate   *time.Time
}

// CreateParams is what the recorder hands to the repository. The
// repository creates the Registration, Registrant and Invoice rows in one
// transaction and returns ErrDuplicate when the (event, lower(email))
// unique index rejects the insert.
type CreateParams struct {
	EventID         string
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Company         string
	HashToken       string
	AmountCents     int64
	PaymentMethodID int
	InvoiceGuard    string
}

type RosterView string

const (
	RosterTotal   RosterView = "total"
	RosterPaid    RosterView = "paid"
	RosterNonPaid RosterView = "non-paid"
)

func ParseRosterView(s string) (RosterView, bool) {
	switch RosterView(s) {
	case RosterTotal, RosterPaid, RosterNonPaid:
		return RosterView(s), true
	case "":
		return RosterTotal, true
	default:
		return "", false
	}
}

type Repository interface {
	// CountActive counts non-cancelled registrants for the event. With
	// onlyPaid, only registrants whose invoice is settled count toward
	// the capacity limit.
	CountActive(ctx context.Context, eventID string, onlyPaid bool) (int, error)
	// FindActiveByEmail matches case-insensitively and skips cancelled
	// registrants.
	FindActiveByEmail(ctx context.Context, eventID, email string) (*Registrant, error)
	// FindByHash returns the most recently updated match for the token
	// within the event, cancelled or not.
	FindByHash(ctx context.Context, eventID, hash string) (*Registrant, error)
	GetByID(ctx context.Context, id string) (*Registrant, error)
	Create(ctx context.Context, params CreateParams) (*Registrant, error)
	// MarkCancelled stamps cancel_dt with at, overwriting any previous
	// cancellation timestamp.
	MarkCancelled(ctx context.Context, id string, at time.Time) (*Registrant, error)
	ListByEvent(ctx context.Context, eventID string, view RosterView) ([]Registrant, error)
	// Search matches name, email and company, ordered by most recently
	// updated first.
	Search(ctx context.Context, eventID, query string) ([]Registrant, error)
}
