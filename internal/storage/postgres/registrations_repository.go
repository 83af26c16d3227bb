package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/server/internal/domain/registrations"
)

type RegistrationRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *RegistrationRepository) queryer() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const registrantSelectColumns = `
	rg.id, rg.registration_id, rg.event_id,
	rg.first_name, rg.last_name, rg.email, rg.phone, rg.company,
	rg.hash_token, rg.amount_cents, rg.cancelled, rg.cancel_dt,
	rg.created_at, rg.updated_at,
	reg.payment_method_id,
	inv.id, inv.guard, inv.total_cents, inv.balance_cents, inv.tender_date`

const registrantSelectJoins = `
  FROM registrants rg
  JOIN registrations reg ON reg.id = rg.registration_id
  LEFT JOIN invoices inv ON inv.registration_id = reg.id`

func scanRegistrant(row pgx.Row) (*registrations.Registrant, error) {
	var registrant registrations.Registrant
	var invoiceID, invoiceGuard *string
	var invoiceTotal, invoiceBalance *int64
	var tenderDate *time.Time

	err := row.Scan(
		&registrant.ID, &registrant.RegistrationID, &registrant.EventID,
		&registrant.FirstName, &registrant.LastName, &registrant.Email,
		&registrant.Phone, &registrant.Company,
		&registrant.HashToken, &registrant.AmountCents,
		&registrant.Cancelled, &registrant.CancelDT,
		&registrant.CreatedAt, &registrant.UpdatedAt,
		&registrant.PaymentMethodID,
		&invoiceID, &invoiceGuard, &invoiceTotal, &invoiceBalance, &tenderDate,
	)
	if err != nil {
		return nil, err
	}

	if invoiceID != nil {
		registrant.Invoice = &registrations.Invoice{
			ID:           *invoiceID,
			Guard:        derefString(invoiceGuard),
			TotalCents:   derefInt64(invoiceTotal),
			BalanceCents: derefInt64(invoiceBalance),
			TenderDate:   tenderDate,
		}
	}
	return &registrant, nil
}

func (r *RegistrationRepository) CountActive(ctx context.Context, eventID string, onlyPaid bool) (int, error) {
	query := `
SELECT count(*)` + registrantSelectJoins + `
 WHERE rg.event_id = $1 AND NOT rg.cancelled`
	if onlyPaid {
		query += " AND inv.balance_cents <= 0"
	}

	var count int
	if err := r.queryer().QueryRow(ctx, query, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count registrants: %w", err)
	}
	return count, nil
}

func (r *RegistrationRepository) FindActiveByEmail(ctx context.Context, eventID, email string) (*registrations.Registrant, error) {
	row := r.queryer().QueryRow(ctx,
		"SELECT"+registrantSelectColumns+registrantSelectJoins+`
 WHERE rg.event_id = $1 AND lower(rg.email) = lower($2) AND NOT rg.cancelled
 ORDER BY rg.updated_at DESC
 LIMIT 1`, eventID, email)

	registrant, err := scanRegistrant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, registrations.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find registrant by email: %w", err)
	}
	return registrant, nil
}

func (r *RegistrationRepository) FindByHash(ctx context.Context, eventID, hash string) (*registrations.Registrant, error) {
	row := r.queryer().QueryRow(ctx,
		"SELECT"+registrantSelectColumns+registrantSelectJoins+`
 WHERE rg.event_id = $1 AND rg.hash_token = $2
 ORDER BY rg.updated_at DESC
 LIMIT 1`, eventID, hash)

	registrant, err := scanRegistrant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, registrations.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find registrant by hash: %w", err)
	}
	return registrant, nil
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*registrations.Registrant, error) {
	row := r.queryer().QueryRow(ctx,
		"SELECT"+registrantSelectColumns+registrantSelectJoins+" WHERE rg.id = $1", id)

	registrant, err := scanRegistrant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, registrations.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registrant: %w", err)
	}
	return registrant, nil
}

// Create inserts the registration, its invoice, and the registrant in one
// transaction. The partial unique index on (event_id, lower(email)) for
// non-cancelled registrants is the idempotency guarantee; its violation
// surfaces as ErrDuplicate for the recorder to converge on.
func (r *RegistrationRepository) Create(ctx context.Context, params registrations.CreateParams) (*registrations.Registrant, error) {
	repo := &Repository{pool: r.pool, tx: r.tx}
	var registrantID string
	err := repo.WithTx(ctx, func(ctx context.Context, txRepo *Repository) error {
		q := txRepo.Registrations().(*RegistrationRepository).queryer()

		var registrationID string
		err := q.QueryRow(ctx, `
INSERT INTO registrations (event_id, payment_method_id, amount_cents)
VALUES ($1, $2, $3)
RETURNING id`,
			params.EventID, params.PaymentMethodID, params.AmountCents,
		).Scan(&registrationID)
		if err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}

		_, err = q.Exec(ctx, `
INSERT INTO invoices (registration_id, guard, total_cents, balance_cents)
VALUES ($1, $2, $3, $3)`,
			registrationID, params.InvoiceGuard, params.AmountCents)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		err = q.QueryRow(ctx, `
INSERT INTO registrants
	(registration_id, event_id, first_name, last_name, email, phone, company, hash_token, amount_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`,
			registrationID, params.EventID, params.FirstName, params.LastName,
			params.Email, params.Phone, params.Company, params.HashToken, params.AmountCents,
		).Scan(&registrantID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return registrations.ErrDuplicate
			}
			return fmt.Errorf("insert registrant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, registrantID)
}

func (r *RegistrationRepository) MarkCancelled(ctx context.Context, id string, at time.Time) (*registrations.Registrant, error) {
	tag, err := r.queryer().Exec(ctx, `
UPDATE registrants
   SET cancelled = true, cancel_dt = $2, updated_at = now()
 WHERE id = $1`, id, at)
	if err != nil {
		return nil, fmt.Errorf("mark cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, registrations.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string, view registrations.RosterView) ([]registrations.Registrant, error) {
	query := "SELECT" + registrantSelectColumns + registrantSelectJoins + `
 WHERE rg.event_id = $1 AND NOT rg.cancelled`
	switch view {
	case registrations.RosterPaid:
		query += " AND inv.balance_cents <= 0"
	case registrations.RosterNonPaid:
		query += " AND inv.balance_cents > 0"
	}
	query += " ORDER BY rg.created_at, rg.id"

	return r.queryRegistrants(ctx, query, eventID)
}

func (r *RegistrationRepository) Search(ctx context.Context, eventID, query string) ([]registrations.Registrant, error) {
	sql := "SELECT" + registrantSelectColumns + registrantSelectJoins + `
 WHERE rg.event_id = $1`
	args := []any{eventID}
	if query != "" {
		sql += `
   AND (rg.first_name ILIKE $2 OR rg.last_name ILIKE $2
        OR rg.email ILIKE $2 OR rg.company ILIKE $2)`
		args = append(args, "%"+query+"%")
	}
	sql += " ORDER BY rg.updated_at DESC"

	return r.queryRegistrants(ctx, sql, args...)
}

func (r *RegistrationRepository) queryRegistrants(ctx context.Context, sql string, args ...any) ([]registrations.Registrant, error) {
	rows, err := r.queryer().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query registrants: %w", err)
	}
	defer rows.Close()

	var items []registrations.Registrant
	for rows.Next() {
		registrant, err := scanRegistrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registrant: %w", err)
		}
		items = append(items, *registrant)
	}
	return items, rows.Err()
}
