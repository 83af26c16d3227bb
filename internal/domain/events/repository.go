package events

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("event not found")

var ErrForbidden = errors.New("forbidden")

// Event is an entry on the site calendar. Place, Organizer, Speaker and
// Registration are owned sub-records edited together with the event.
type Event struct {
	ID           string
	ULID         string
	Title        string
	Description  string
	TypeSlug     string
	StartTime    time.Time
	EndTime      time.Time
	Place        *Place
	Organizer    *Organizer
	Speaker      *Speaker
	Registration *RegistrationConfiguration
	OwnerEmail   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Place struct {
	Name       string
	Address    string
	City       string
	Region     string
	PostalCode string
	Country    string
}

type Organizer struct {
	Name  string
	Email string
}

type Speaker struct {
	Name string
}

// RegistrationConfiguration controls sign-up for one event (1:1).
// EarlyDT/RegularDT/LateDT bound the registration window; callers assume
// early <= regular <= late but the ordering is not enforced at write time.
// Limit 0 means unlimited.
type RegistrationConfiguration struct {
	Enabled         bool
	PriceCents      int64
	PaymentRequired bool
	EarlyDT         time.Time
	RegularDT       time.Time
	LateDT          time.Time
	Limit           int
}

type EventCreateParams struct {
	ULID         string
	Title        string
	Description  string
	TypeSlug     string
	StartTime    time.Time
	EndTime      time.Time
	Place        *Place
	Organizer    *Organizer
	Speaker      *Speaker
	Registration *RegistrationConfiguration
	OwnerEmail   string
}

type EventUpdateParams struct {
	Title        string
	Description  string
	TypeSlug     string
	StartTime    time.Time
	EndTime      time.Time
	Place        *Place
	Organizer    *Organizer
	Speaker      *Speaker
	Registration *RegistrationConfiguration
}

type Filters struct {
	StartDate *time.Time
	EndDate   *time.Time
	TypeSlug  string
	Query     string
}

type Pagination struct {
	Limit int
	After string
}

type ListResult struct {
	Events     []Event
	NextCursor string
}

type Repository interface {
	List(ctx context.Context, filters Filters, pagination Pagination) (ListResult, error)
	GetByULID(ctx context.Context, ulid string) (*Event, error)
	Create(ctx context.Context, params EventCreateParams) (*Event, error)
	Update(ctx context.Context, ulid string, params EventUpdateParams) (*Event, error)
	Delete(ctx context.Context, ulid string) error
	// ListBetween returns events whose start time falls in [from, to),
	// ordered by start time. Used by the calendar views and the feed.
	ListBetween(ctx context.Context, from, to time.Time) ([]Event, error)
}
