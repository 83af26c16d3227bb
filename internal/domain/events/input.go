package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EventInput is the aggregate payload for creating or editing an event.
// The nested sections are optional; a nil section clears the sub-record.
type EventInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=10000"`
	TypeSlug    string    `json:"type" validate:"omitempty,lowercase,max=50"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required"`

	Place        *PlaceInput        `json:"place,omitempty"`
	Organizer    *OrganizerInput    `json:"organizer,omitempty"`
	Speaker      *SpeakerInput      `json:"speaker,omitempty"`
	Registration *RegistrationInput `json:"registration,omitempty"`
}

type PlaceInput struct {
	Name       string `json:"name" validate:"required,max=200"`
	Address    string `json:"address" validate:"max=200"`
	City       string `json:"city" validate:"max=100"`
	Region     string `json:"region" validate:"max=100"`
	PostalCode string `json:"postalCode" validate:"max=20"`
	Country    string `json:"country" validate:"max=100"`
}

type OrganizerInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
}

type SpeakerInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

type RegistrationInput struct {
	Enabled         bool      `json:"enabled"`
	PriceCents      int64     `json:"priceCents" validate:"min=0"`
	PaymentRequired bool      `json:"paymentRequired"`
	EarlyDT         time.Time `json:"earlyDt" validate:"required"`
	RegularDT       time.Time `json:"regularDt" validate:"required"`
	LateDT          time.Time `json:"lateDt" validate:"required"`
	Limit           int       `json:"limit" validate:"min=0"`
}

// ValidationError carries per-field messages for a 422 response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidateEventInput runs struct-tag validation plus the cross-field rules
// the tags cannot express, and returns a validated wrapper that converts
// to repository params.
func ValidateEventInput(input EventInput) (*ValidatedEventInput, error) {
	fields := map[string]string{}

	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fieldName(fe)] = tagMessage(fe)
			}
		} else {
			return nil, fmt.Errorf("validate event input: %w", err)
		}
	}

	if !input.StartTime.IsZero() && !input.EndTime.IsZero() && input.EndTime.Before(input.StartTime) {
		fields["endTime"] = "must be on or after startTime"
	}
	if input.Registration != nil && input.Registration.PaymentRequired && input.Registration.PriceCents == 0 {
		fields["registration.paymentRequired"] = "cannot require payment for a free event"
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return &ValidatedEventInput{input: input}, nil
}

type ValidatedEventInput struct {
	input EventInput
}

func (v *ValidatedEventInput) createParams() EventCreateParams {
	return EventCreateParams{
		Title:        strings.TrimSpace(v.input.Title),
		Description:  v.input.Description,
		TypeSlug:     strings.ToLower(strings.TrimSpace(v.input.TypeSlug)),
		StartTime:    v.input.StartTime.UTC(),
		EndTime:      v.input.EndTime.UTC(),
		Place:        v.place(),
		Organizer:    v.organizer(),
		Speaker:      v.speaker(),
		Registration: v.registration(),
	}
}

func (v *ValidatedEventInput) updateParams() EventUpdateParams {
	return EventUpdateParams{
		Title:        strings.TrimSpace(v.input.Title),
		Description:  v.input.Description,
		TypeSlug:     strings.ToLower(strings.TrimSpace(v.input.TypeSlug)),
		StartTime:    v.input.StartTime.UTC(),
		EndTime:      v.input.EndTime.UTC(),
		Place:        v.place(),
		Organizer:    v.organizer(),
		Speaker:      v.speaker(),
		Registration: v.registration(),
	}
}

func (v *ValidatedEventInput) place() *Place {
	if v.input.Place == nil {
		return nil
	}
	return &Place{
		Name:       strings.TrimSpace(v.input.Place.Name),
		Address:    strings.TrimSpace(v.input.Place.Address),
		City:       strings.TrimSpace(v.input.Place.City),
		Region:     strings.TrimSpace(v.input.Place.Region),
		PostalCode: strings.TrimSpace(v.input.Place.PostalCode),
		Country:    strings.TrimSpace(v.input.Place.Country),
	}
}

func (v *ValidatedEventInput) organizer() *Organizer {
	if v.input.Organizer == nil {
		return nil
	}
	return &Organizer{
		Name:  strings.TrimSpace(v.input.Organizer.Name),
		Email: strings.ToLower(strings.TrimSpace(v.input.Organizer.Email)),
	}
}

func (v *ValidatedEventInput) speaker() *Speaker {
	if v.input.Speaker == nil {
		return nil
	}
	return &Speaker{Name: strings.TrimSpace(v.input.Speaker.Name)}
}

func (v *ValidatedEventInput) registration() *RegistrationConfiguration {
	if v.input.Registration == nil {
		return nil
	}
	r := v.input.Registration
	return &RegistrationConfiguration{
		Enabled:         r.Enabled,
		PriceCents:      r.PriceCents,
		PaymentRequired: r.PaymentRequired,
		EarlyDT:         r.EarlyDT.UTC(),
		RegularDT:       r.RegularDT.UTC(),
		LateDT:          r.LateDT.UTC(),
		Limit:           r.Limit,
	}
}

func fieldName(fe validator.FieldError) string {
	// Namespace looks like EventInput.Place.Name; drop the root and
	// lower-case the leaves to match the JSON shape.
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = lowerFirst(p)
	}
	return strings.Join(parts, ".")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "lowercase":
		return "must be lowercase"
	default:
		return "is invalid"
	}
}
