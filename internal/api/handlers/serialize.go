package handlers

import (
	"time"

	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/registrations"
)

type eventPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`

	Place        *placePayload        `json:"place,omitempty"`
	Organizer    *organizerPayload    `json:"organizer,omitempty"`
	Speaker      *speakerPayload      `json:"speaker,omitempty"`
	Registration *registrationPayload `json:"registration,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type placePayload struct {
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type organizerPayload struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type speakerPayload struct {
	Name string `json:"name"`
}

type registrationPayload struct {
	Enabled         bool      `json:"enabled"`
	PriceCents      int64     `json:"priceCents"`
	PaymentRequired bool      `json:"paymentRequired"`
	EarlyDT         time.Time `json:"earlyDt"`
	RegularDT       time.Time `json:"regularDt"`
	LateDT          time.Time `json:"lateDt"`
	Limit           int       `json:"limit"`
}

func serializeEvent(event *events.Event) eventPayload {
	payload := eventPayload{
		ID:          event.ULID,
		Title:       event.Title,
		Description: event.Description,
		Type:        event.TypeSlug,
		StartTime:   event.StartTime,
		EndTime:     event.EndTime,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
	if event.Place != nil {
		payload.Place = &placePayload{
			Name:       event.Place.Name,
			Address:    event.Place.Address,
			City:       event.Place.City,
			Region:     event.Place.Region,
			PostalCode: event.Place.PostalCode,
			Country:    event.Place.Country,
		}
	}
	if event.Organizer != nil {
		payload.Organizer = &organizerPayload{
			Name:  event.Organizer.Name,
			Email: event.Organizer.Email,
		}
	}
	if event.Speaker != nil {
		payload.Speaker = &speakerPayload{Name: event.Speaker.Name}
	}
	if event.Registration != nil {
		payload.Registration = &registrationPayload{
			Enabled:         event.Registration.Enabled,
			PriceCents:      event.Registration.PriceCents,
			PaymentRequired: event.Registration.PaymentRequired,
			EarlyDT:         event.Registration.EarlyDT,
			RegularDT:       event.Registration.RegularDT,
			LateDT:          event.Registration.LateDT,
			Limit:           event.Registration.Limit,
		}
	}
	return payload
}

func serializeEvents(items []events.Event) []eventPayload {
	payloads := make([]eventPayload, 0, len(items))
	for i := range items {
		payloads = append(payloads, serializeEvent(&items[i]))
	}
	return payloads
}

type registrantPayload struct {
	ID            string     `json:"id"`
	EventID       string     `json:"eventId"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName,omitempty"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Company       string     `json:"company,omitempty"`
	PaymentMethod string     `json:"paymentMethod"`
	AmountCents   int64      `json:"amountCents"`
	Paid          bool       `json:"paid"`
	Cancelled     bool       `json:"cancelled"`
	CancelDT      *time.Time `json:"cancelDt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`

	Invoice *invoicePayload `json:"invoice,omitempty"`
}

type invoicePayload struct {
	ID           string     `json:"id"`
	TotalCents   int64      `json:"totalCents"`
	BalanceCents int64      `json:"balanceCents"`
	TenderDate   *time.Time `json:"tenderDate,omitempty"`
}

func serializeRegistrant(r *registrations.Registrant) registrantPayload {
	payload := registrantPayload{
		ID:            r.ID,
		EventID:       r.EventID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Phone:         r.Phone,
		Company:       r.Company,
		PaymentMethod: paymentMethodName(r.PaymentMethodID),
		AmountCents:   r.AmountCents,
		Paid:          r.Paid(),
		Cancelled:     r.Cancelled,
		CancelDT:      r.CancelDT,
		CreatedAt:     r.CreatedAt,
	}
	if r.Invoice != nil {
		payload.Invoice = &invoicePayload{
			ID:           r.Invoice.ID,
			TotalCents:   r.Invoice.TotalCents,
			BalanceCents: r.Invoice.BalanceCents,
			TenderDate:   r.Invoice.TenderDate,
		}
	}
	return payload
}

func serializeRegistrants(items []registrations.Registrant) []registrantPayload {
	payloads := make([]registrantPayload, 0, len(items))
	for i := range items {
		payloads = append(payloads, serializeRegistrant(&items[i]))
	}
	return payloads
}

func paymentMethodName(id int) string {
	switch id {
	case registrations.PaymentMethodCreditCard:
		return "credit card"
	case registrations.PaymentMethodCheck:
		return "check"
	case registrations.PaymentMethodCash:
		return "cash"
	default:
		return "unknown"
	}
}
