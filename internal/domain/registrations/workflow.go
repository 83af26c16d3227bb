package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/domain/events"
)

type State string

const (
	StateNotRegistered     State = "not_registered"
	StateClosedRejected    State = "closed_rejected"
	StateAlreadyRegistered State = "already_registered"
	StatePaymentPending    State = "payment_pending"
	StateConfirmed         State = "confirmed"
)

// Decision is the outcome of one pass through the registration state
// machine. InvoiceID and InvoiceGuard are set only in the payment_pending
// state; both are required to reach the payment page.
type Decision struct {
	State        State
	Reason       ClosedReason
	Registrant   *Registrant
	InvoiceID    string
	InvoiceGuard string
}

// Workflow drives an attempt from not-registered to one of the four
// terminal states.
type Workflow struct {
	window   *WindowValidator
	lookup   *Lookup
	recorder *Recorder
}

func NewWorkflow(window *WindowValidator, lookup *Lookup, recorder *Recorder) *Workflow {
	return &Workflow{window: window, lookup: lookup, recorder: recorder}
}

// Begin handles the GET side: it reports where the caller stands without
// taking registration details. A free event auto-registers an
// authenticated caller on sight; everything else lands in not_registered
// and waits for the form. An existing registration wins before the window
// is consulted, so a registrant returning after the cutoff still reaches
// their confirmation.
func (w *Workflow) Begin(ctx context.Context, event *events.Event) (Decision, error) {
	identity := auth.IdentityFromContext(ctx)
	if identity.Authenticated {
		existing, err := w.lookup.ByEmail(ctx, event.ID, identity.Email)
		if err == nil {
			return Decision{State: StateAlreadyRegistered, Registrant: existing}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Decision{}, err
		}
	}

	if decision, closed, err := w.checkWindow(ctx, event); closed || err != nil {
		return decision, err
	}

	if !identity.Authenticated {
		return Decision{State: StateNotRegistered}, nil
	}

	if event.Registration.PriceCents == 0 {
		input := RegistrantInput{
			FirstName: identity.Name,
			Email:     identity.Email,
		}
		if input.FirstName == "" {
			input.FirstName = identity.Email
		}
		return w.record(ctx, event, input, PaymentMethodCash, 0)
	}

	return Decision{State: StateNotRegistered}, nil
}

// Register handles the POST side with a filled form. The form email is
// checked against existing registrations before the window, so a repeat
// submission after the cutoff resolves to already_registered rather than
// bouncing off the closed window.
func (w *Workflow) Register(ctx context.Context, event *events.Event, input RegistrantInput) (Decision, error) {
	if err := ValidateRegistrantInput(&input); err != nil {
		return Decision{}, err
	}

	existing, err := w.lookup.ByEmail(ctx, event.ID, input.Email)
	if err == nil {
		return Decision{State: StateAlreadyRegistered, Registrant: existing}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Decision{}, err
	}

	if decision, closed, err := w.checkWindow(ctx, event); closed || err != nil {
		return decision, err
	}

	price := event.Registration.PriceCents
	if price == 0 {
		return w.record(ctx, event, input, PaymentMethodCash, 0)
	}

	if input.PaymentMethodID == 0 {
		return Decision{}, &ValidationError{Fields: map[string]string{
			"paymentMethodId": "is required",
		}}
	}
	return w.record(ctx, event, input, input.PaymentMethodID, price)
}

func (w *Workflow) checkWindow(ctx context.Context, event *events.Event) (Decision, bool, error) {
	err := w.window.Check(ctx, event)
	if err == nil {
		return Decision{}, false, nil
	}
	var closed *ClosedError
	if errors.As(err, &closed) {
		return Decision{State: StateClosedRejected, Reason: closed.Reason}, true, nil
	}
	return Decision{}, false, fmt.Errorf("check registration window: %w", err)
}

func (w *Workflow) record(ctx context.Context, event *events.Event, input RegistrantInput, method int, amountCents int64) (Decision, error) {
	registrant, wasCreated, err := w.recorder.Record(ctx, event, input, method, amountCents)
	if err != nil {
		return Decision{}, err
	}
	if !wasCreated {
		return Decision{State: StateAlreadyRegistered, Registrant: registrant}, nil
	}

	if method == PaymentMethodCreditCard && amountCents > 0 {
		if registrant.Invoice == nil {
			return Decision{}, fmt.Errorf("registrant %s missing invoice for payment redirect", registrant.ID)
		}
		return Decision{
			State:        StatePaymentPending,
			Registrant:   registrant,
			InvoiceID:    registrant.Invoice.ID,
			InvoiceGuard: registrant.Invoice.Guard,
		}, nil
	}
	return Decision{State: StateConfirmed, Registrant: registrant}, nil
}
