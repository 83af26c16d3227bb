package registrations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/domain/events"
)

func newTestService(repo Repository, notifier events.Notifier) *Service {
	return NewService(repo, auth.NewRoleOracle(), notifier, testSite(), fixedNow)
}

func memberCtx(email string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		UserID: "u-" + email, Email: email, Name: "Member", Role: "member", Authenticated: true,
	})
}

func TestWorkflowClosedRejected(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	event := testEvent(func(e *events.Event) { e.Registration.LateDT = windowNow.Add(-time.Hour) })

	decision, err := svc.Workflow.Register(context.Background(), event, RegistrantInput{
		FirstName: "Alice", Email: "alice@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, StateClosedRejected, decision.State)
	require.Equal(t, ReasonAfterLate, decision.Reason)
}

func TestWorkflowInvalidFormRejected(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)

	_, err := svc.Workflow.Register(context.Background(), testEvent(nil), RegistrantInput{Email: "not-an-email"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "firstName")
	require.Contains(t, verr.Fields, "email")
}

func TestWorkflowFreeEventConfirms(t *testing.T) {
	notifier := &capturingNotifier{}
	svc := newTestService(newMemRepo(), notifier)

	decision, err := svc.Workflow.Register(context.Background(), testEvent(nil), RegistrantInput{
		FirstName: "Alice", Email: "alice@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, decision.State)
	require.Equal(t, PaymentMethodCash, decision.Registrant.PaymentMethodID)
	require.Zero(t, decision.Registrant.AmountCents)
	require.Equal(t, 1, notifier.count("registration_confirmation"))
}

func TestWorkflowRepeatSubmissionIsAlreadyRegistered(t *testing.T) {
	notifier := &capturingNotifier{}
	svc := newTestService(newMemRepo(), notifier)
	event := testEvent(nil)
	input := RegistrantInput{FirstName: "Alice", Email: "alice@example.com"}

	first, err := svc.Workflow.Register(context.Background(), event, input)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, first.State)

	second, err := svc.Workflow.Register(context.Background(), event, input)
	require.NoError(t, err)
	require.Equal(t, StateAlreadyRegistered, second.State)
	require.Equal(t, first.Registrant.ID, second.Registrant.ID)
	require.Equal(t, 1, notifier.count("registration_confirmation"))
}

func TestWorkflowExistingRegistrationBeatsClosedWindow(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	event := testEvent(nil)
	input := RegistrantInput{FirstName: "Alice", Email: "alice@example.com"}

	first, err := svc.Workflow.Register(context.Background(), event, input)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, first.State)

	// The window closes; a returning registrant still reaches their
	// confirmation instead of bouncing off the cutoff.
	event.Registration.LateDT = windowNow.Add(-time.Hour)

	again, err := svc.Workflow.Register(context.Background(), event, input)
	require.NoError(t, err)
	require.Equal(t, StateAlreadyRegistered, again.State)
	require.Equal(t, first.Registrant.ID, again.Registrant.ID)

	begin, err := svc.Workflow.Begin(memberCtx("alice@example.com"), event)
	require.NoError(t, err)
	require.Equal(t, StateAlreadyRegistered, begin.State)
}

func TestWorkflowPaidEventRequiresPaymentMethod(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	event := testEvent(func(e *events.Event) { e.Registration.PriceCents = 2500 })

	_, err := svc.Workflow.Register(context.Background(), event, RegistrantInput{
		FirstName: "Alice", Email: "alice@example.com",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "paymentMethodId")
}

func TestWorkflowCreditCardGoesPaymentPending(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	event := testEvent(func(e *events.Event) { e.Registration.PriceCents = 2500 })

	decision, err := svc.Workflow.Register(context.Background(), event, RegistrantInput{
		FirstName: "Alice", Email: "alice@example.com", PaymentMethodID: PaymentMethodCreditCard,
	})
	require.NoError(t, err)
	require.Equal(t, StatePaymentPending, decision.State)
	require.Equal(t, decision.Registrant.Invoice.ID, decision.InvoiceID)
	require.Equal(t, decision.Registrant.Invoice.Guard, decision.InvoiceGuard)
	require.NotEmpty(t, decision.InvoiceGuard)
	require.Equal(t, int64(2500), decision.Registrant.AmountCents)
}

func TestWorkflowCheckPaymentConfirmsWithBalanceDue(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	event := testEvent(func(e *events.Event) { e.Registration.PriceCents = 2500 })

	decision, err := svc.Workflow.Register(context.Background(), event, RegistrantInput{
		FirstName: "Alice", Email: "alice@example.com", PaymentMethodID: PaymentMethodCheck,
	})
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, decision.State)
	require.False(t, decision.Registrant.Paid())
}

func TestWorkflowNthSucceedsNPlusFirstRejected(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	event := testEvent(func(e *events.Event) { e.Registration.Limit = 3 })

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	for _, email := range emails {
		decision, err := svc.Workflow.Register(context.Background(), event, RegistrantInput{
			FirstName: "R", Email: email,
		})
		require.NoError(t, err)
		require.Equal(t, StateConfirmed, decision.State)
	}

	decision, err := svc.Workflow.Register(context.Background(), event, RegistrantInput{
		FirstName: "R", Email: "d@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, StateClosedRejected, decision.State)
	require.Equal(t, ReasonFull, decision.Reason)
}

func TestWorkflowBeginAutoRegistersFreeEvent(t *testing.T) {
	notifier := &capturingNotifier{}
	svc := newTestService(newMemRepo(), notifier)
	event := testEvent(nil)
	ctx := memberCtx("alice@example.com")

	decision, err := svc.Workflow.Begin(ctx, event)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, decision.State)
	require.Equal(t, "alice@example.com", decision.Registrant.Email)
	require.Equal(t, 1, notifier.count("registration_confirmation"))

	// A second visit sees the existing registration, no second email.
	decision, err = svc.Workflow.Begin(ctx, event)
	require.NoError(t, err)
	require.Equal(t, StateAlreadyRegistered, decision.State)
	require.Equal(t, 1, notifier.count("registration_confirmation"))
}

func TestWorkflowBeginAnonymousSeesForm(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)

	decision, err := svc.Workflow.Begin(context.Background(), testEvent(nil))
	require.NoError(t, err)
	require.Equal(t, StateNotRegistered, decision.State)
}

func TestWorkflowBeginPaidEventSeesForm(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	event := testEvent(func(e *events.Event) { e.Registration.PriceCents = 2500 })

	decision, err := svc.Workflow.Begin(memberCtx("alice@example.com"), event)
	require.NoError(t, err)
	require.Equal(t, StateNotRegistered, decision.State)
}

func TestWorkflowHashRoundTrip(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	event := testEvent(nil)

	decision, err := svc.Workflow.Register(context.Background(), event, RegistrantInput{
		FirstName: "Alice", Email: "alice@example.com",
	})
	require.NoError(t, err)

	found, err := svc.Lookup.ConfirmationByHash(context.Background(), event.ID, decision.Registrant.HashToken)
	require.NoError(t, err)
	require.Equal(t, decision.Registrant.ID, found.ID)

	_, err = svc.Lookup.ConfirmationByHash(context.Background(), event.ID, "deadbeefdeadbeefdeadbeefdeadbeef")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLookupConfirmationPermissions(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	event := testEvent(nil)

	decision, err := svc.Workflow.Register(context.Background(), event, RegistrantInput{
		FirstName: "Alice", Email: "alice@example.com",
	})
	require.NoError(t, err)
	id := decision.Registrant.ID

	// Owner can see their own confirmation.
	found, err := svc.Lookup.Confirmation(memberCtx("alice@example.com"), id)
	require.NoError(t, err)
	require.Equal(t, id, found.ID)

	// A different member cannot.
	_, err = svc.Lookup.Confirmation(memberCtx("bob@example.com"), id)
	require.ErrorIs(t, err, ErrForbidden)

	// Unknown id is NotFound, not a fault.
	_, err = svc.Lookup.Confirmation(memberCtx("alice@example.com"), "rgt-unknown")
	require.ErrorIs(t, err, ErrNotFound)
}
