package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/server/internal/api/pagination"
	"github.com/gatherly/server/internal/domain/events"
)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *EventRepository) queryer() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const eventSelectColumns = `
	e.id, e.ulid, e.title, e.description, e.type_slug,
	e.start_time, e.end_time, e.owner_email, e.created_at, e.updated_at,
	p.name, p.address, p.city, p.region, p.postal_code, p.country,
	o.name, o.email,
	s.name,
	rc.enabled, rc.price_cents, rc.payment_required,
	rc.early_dt, rc.regular_dt, rc.late_dt, rc.reg_limit`

const eventSelectJoins = `
  FROM events e
  LEFT JOIN event_places p ON p.event_id = e.id
  LEFT JOIN event_organizers o ON o.event_id = e.id
  LEFT JOIN event_speakers s ON s.event_id = e.id
  LEFT JOIN registration_configurations rc ON rc.event_id = e.id`

func scanEvent(row pgx.Row) (*events.Event, error) {
	var event events.Event
	var placeName, placeAddress, placeCity, placeRegion, placePostal, placeCountry *string
	var organizerName, organizerEmail *string
	var speakerName *string
	var regEnabled, regPaymentRequired *bool
	var regPrice *int64
	var regEarly, regRegular, regLate *time.Time
	var regLimit *int

	err := row.Scan(
		&event.ID, &event.ULID, &event.Title, &event.Description, &event.TypeSlug,
		&event.StartTime, &event.EndTime, &event.OwnerEmail, &event.CreatedAt, &event.UpdatedAt,
		&placeName, &placeAddress, &placeCity, &placeRegion, &placePostal, &placeCountry,
		&organizerName, &organizerEmail,
		&speakerName,
		&regEnabled, &regPrice, &regPaymentRequired,
		&regEarly, &regRegular, &regLate, &regLimit,
	)
	if err != nil {
		return nil, err
	}

	if placeName != nil {
		event.Place = &events.Place{
			Name:       *placeName,
			Address:    derefString(placeAddress),
			City:       derefString(placeCity),
			Region:     derefString(placeRegion),
			PostalCode: derefString(placePostal),
			Country:    derefString(placeCountry),
		}
	}
	if organizerName != nil {
		event.Organizer = &events.Organizer{
			Name:  *organizerName,
			Email: derefString(organizerEmail),
		}
	}
	if speakerName != nil {
		event.Speaker = &events.Speaker{Name: *speakerName}
	}
	if regEnabled != nil {
		event.Registration = &events.RegistrationConfiguration{
			Enabled:         *regEnabled,
			PriceCents:      derefInt64(regPrice),
			PaymentRequired: regPaymentRequired != nil && *regPaymentRequired,
			EarlyDT:         derefTime(regEarly),
			RegularDT:       derefTime(regRegular),
			LateDT:          derefTime(regLate),
			Limit:           derefInt(regLimit),
		}
	}
	return &event, nil
}

func (r *EventRepository) GetByULID(ctx context.Context, ulid string) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx,
		"SELECT"+eventSelectColumns+eventSelectJoins+" WHERE e.ulid = $1", ulid)

	event, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) List(ctx context.Context, filters events.Filters, p events.Pagination) (events.ListResult, error) {
	var conditions []string
	var args []any

	addArg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.StartDate != nil {
		conditions = append(conditions, "e.start_time >= "+addArg(*filters.StartDate))
	}
	if filters.EndDate != nil {
		conditions = append(conditions, "e.start_time < "+addArg(filters.EndDate.AddDate(0, 0, 1)))
	}
	if filters.TypeSlug != "" {
		conditions = append(conditions, "e.type_slug = "+addArg(filters.TypeSlug))
	}
	if filters.Query != "" {
		placeholder := addArg("%" + filters.Query + "%")
		conditions = append(conditions, "(e.title ILIKE "+placeholder+" OR e.description ILIKE "+placeholder+")")
	}

	if p.After != "" {
		cursor, err := pagination.DecodeEventCursor(p.After)
		if err != nil {
			return events.ListResult{}, fmt.Errorf("decode cursor: %w", err)
		}
		tsArg := addArg(cursor.Timestamp)
		ulidArg := addArg(cursor.ULID)
		conditions = append(conditions,
			"(e.start_time, e.ulid) > ("+tsArg+", "+ulidArg+")")
	}

	query := "SELECT" + eventSelectColumns + eventSelectJoins
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY e.start_time, e.ulid LIMIT " + addArg(limit+1)

	rows, err := r.queryer().Query(ctx, query, args...)
	if err != nil {
		return events.ListResult{}, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var items []events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return events.ListResult{}, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *event)
	}
	if err := rows.Err(); err != nil {
		return events.ListResult{}, fmt.Errorf("list events: %w", err)
	}

	result := events.ListResult{Events: items}
	if len(items) > limit {
		result.Events = items[:limit]
		last := result.Events[len(result.Events)-1]
		result.NextCursor = pagination.EncodeEventCursor(last.StartTime, last.ULID)
	}
	return result, nil
}

func (r *EventRepository) ListBetween(ctx context.Context, from, to time.Time) ([]events.Event, error) {
	rows, err := r.queryer().Query(ctx,
		"SELECT"+eventSelectColumns+eventSelectJoins+
			" WHERE e.start_time >= $1 AND e.start_time < $2 ORDER BY e.start_time, e.ulid",
		from, to)
	if err != nil {
		return nil, fmt.Errorf("list events between: %w", err)
	}
	defer rows.Close()

	var items []events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *event)
	}
	return items, rows.Err()
}

func (r *EventRepository) Create(ctx context.Context, params events.EventCreateParams) (*events.Event, error) {
	repo := &Repository{pool: r.pool, tx: r.tx}
	var ulid string
	err := repo.WithTx(ctx, func(ctx context.Context, txRepo *Repository) error {
		q := txRepo.Events().(*EventRepository).queryer()

		var eventID string
		err := q.QueryRow(ctx, `
INSERT INTO events (ulid, title, description, type_slug, start_time, end_time, owner_email)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, ulid`,
			params.ULID, params.Title, params.Description, params.TypeSlug,
			params.StartTime, params.EndTime, params.OwnerEmail,
		).Scan(&eventID, &ulid)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return insertEventChildren(ctx, q, eventID, params.Place, params.Organizer, params.Speaker, params.Registration)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByULID(ctx, ulid)
}

func (r *EventRepository) Update(ctx context.Context, ulid string, params events.EventUpdateParams) (*events.Event, error) {
	repo := &Repository{pool: r.pool, tx: r.tx}
	err := repo.WithTx(ctx, func(ctx context.Context, txRepo *Repository) error {
		q := txRepo.Events().(*EventRepository).queryer()

		var eventID string
		err := q.QueryRow(ctx, `
UPDATE events
   SET title = $2, description = $3, type_slug = $4,
       start_time = $5, end_time = $6, updated_at = now()
 WHERE ulid = $1
RETURNING id`,
			ulid, params.Title, params.Description, params.TypeSlug,
			params.StartTime, params.EndTime,
		).Scan(&eventID)
		if errors.Is(err, pgx.ErrNoRows) {
			return events.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}

		// Sub-records are replaced wholesale; the aggregate is edited as
		// a unit.
		for _, table := range []string{"event_places", "event_organizers", "event_speakers", "registration_configurations"} {
			if _, err := q.Exec(ctx, "DELETE FROM "+table+" WHERE event_id = $1", eventID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return insertEventChildren(ctx, q, eventID, params.Place, params.Organizer, params.Speaker, params.Registration)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByULID(ctx, ulid)
}

func insertEventChildren(ctx context.Context, q querier, eventID string,
	place *events.Place, organizer *events.Organizer, speaker *events.Speaker,
	registration *events.RegistrationConfiguration,
) error {
	if place != nil {
		_, err := q.Exec(ctx, `
INSERT INTO event_places (event_id, name, address, city, region, postal_code, country)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			eventID, place.Name, place.Address, place.City, place.Region, place.PostalCode, place.Country)
		if err != nil {
			return fmt.Errorf("insert event place: %w", err)
		}
	}
	if organizer != nil {
		_, err := q.Exec(ctx, `
INSERT INTO event_organizers (event_id, name, email) VALUES ($1, $2, $3)`,
			eventID, organizer.Name, organizer.Email)
		if err != nil {
			return fmt.Errorf("insert event organizer: %w", err)
		}
	}
	if speaker != nil {
		_, err := q.Exec(ctx, `
INSERT INTO event_speakers (event_id, name) VALUES ($1, $2)`, eventID, speaker.Name)
		if err != nil {
			return fmt.Errorf("insert event speaker: %w", err)
		}
	}
	if registration != nil {
		_, err := q.Exec(ctx, `
INSERT INTO registration_configurations
	(event_id, enabled, price_cents, payment_required, early_dt, regular_dt, late_dt, reg_limit)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			eventID, registration.Enabled, registration.PriceCents, registration.PaymentRequired,
			registration.EarlyDT, registration.RegularDT, registration.LateDT, registration.Limit)
		if err != nil {
			return fmt.Errorf("insert registration configuration: %w", err)
		}
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, ulid string) error {
	tag, err := r.queryer().Exec(ctx, "DELETE FROM events WHERE ulid = $1", ulid)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}
