package registrations

import (
	"context"
	"fmt"

	"github.com/gatherly/server/internal/auth"
)

// Totals summarizes an event's invoices for the roster header.
type Totals struct {
	TotalCents   int64
	BalanceCents int64
	PaidCount    int
	OwingCount   int
}

// ComputeTotals folds the roster rows. Balance only accumulates for
// invoices that were actually tendered; an untendered invoice is a sign-up
// that never reached checkout and should not inflate the amount owed.
func ComputeTotals(items []Registrant) Totals {
	var totals Totals
	for i := range items {
		invoice := items[i].Invoice
		if invoice == nil {
			continue
		}
		totals.TotalCents += invoice.TotalCents
		if invoice.TenderDate != nil {
			totals.BalanceCents += invoice.BalanceCents
		}
		if invoice.BalanceCents <= 0 {
			totals.PaidCount++
		} else {
			totals.OwingCount++
		}
	}
	return totals
}

// Roster lists and summarizes an event's registrants.
type Roster struct {
	repo   Repository
	oracle auth.Oracle
}

func NewRoster(repo Repository, oracle auth.Oracle) *Roster {
	return &Roster{repo: repo, oracle: oracle}
}

func (r *Roster) View(ctx context.Context, eventID string, view RosterView) ([]Registrant, Totals, error) {
	identity := auth.IdentityFromContext(ctx)
	if !r.oracle.CanView(identity, auth.Resource{Kind: "roster"}) {
		return nil, Totals{}, ErrForbidden
	}
	items, err := r.repo.ListByEvent(ctx, eventID, view)
	if err != nil {
		return nil, Totals{}, fmt.Errorf("list registrants: %w", err)
	}
	return items, ComputeTotals(items), nil
}

func (r *Roster) Search(ctx context.Context, eventID, query string) ([]Registrant, error) {
	identity := auth.IdentityFromContext(ctx)
	if !r.oracle.CanView(identity, auth.Resource{Kind: "roster"}) {
		return nil, ErrForbidden
	}
	return r.repo.Search(ctx, eventID, query)
}

// Stats adapts the repository counts to the event lifecycle notifier.
type Stats struct {
	repo Repository
}

func NewStats(repo Repository) *Stats {
	return &Stats{repo: repo}
}

func (s *Stats) PaidAndPending(ctx context.Context, eventID string) (int, int, error) {
	total, err := s.repo.CountActive(ctx, eventID, false)
	if err != nil {
		return 0, 0, err
	}
	paid, err := s.repo.CountActive(ctx, eventID, true)
	if err != nil {
		return 0, 0, err
	}
	return paid, total - paid, nil
}
