package registrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatherly/server/internal/domain/events"
)

func registerOne(t *testing.T, svc *Service, email string) *Registrant {
	t.Helper()
	decision, err := svc.Workflow.Register(context.Background(), testEvent(nil), RegistrantInput{
		FirstName: "Alice", Email: email,
	})
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, decision.State)
	return decision.Registrant
}

func TestCancelByHash(t *testing.T) {
	notifier := &capturingNotifier{}
	svc := newTestService(newMemRepo(), notifier)
	event := testEvent(nil)
	registrant := registerOne(t, svc, "alice@example.com")

	cancelled, err := svc.Canceller.CancelByHash(context.Background(), event, registrant.HashToken)
	require.NoError(t, err)
	require.True(t, cancelled.Cancelled)
	require.NotNil(t, cancelled.CancelDT)

	require.Equal(t, 1, notifier.count("registration_cancelled"))
	// Registrant plus configured notice recipients.
	require.Equal(t, []string{"alice@example.com", "admin@example.com"}, notifier.recipients[1])
}

func TestCancelByUnknownHashIsNotFound(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)

	_, err := svc.Canceller.CancelByHash(context.Background(), testEvent(nil), "nosuchtoken")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Canceller.CancelByHash(context.Background(), testEvent(nil), "  ")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReCancelOverwritesCancelDT(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	event := testEvent(nil)
	registrant := registerOne(t, svc, "alice@example.com")

	first, err := svc.Canceller.CancelByHash(context.Background(), event, registrant.HashToken)
	require.NoError(t, err)

	second, err := svc.Canceller.CancelByHash(context.Background(), event, registrant.HashToken)
	require.NoError(t, err)
	require.True(t, second.Cancelled)
	require.False(t, second.CancelDT.Before(*first.CancelDT))
}

func TestCancelByIDPermissions(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	event := testEvent(nil)
	registrant := registerOne(t, svc, "alice@example.com")

	// A different member may not cancel someone else's registration.
	_, err := svc.Canceller.CancelByID(memberCtx("bob@example.com"), event, registrant.ID)
	require.ErrorIs(t, err, ErrForbidden)

	// The registrant may cancel their own.
	cancelled, err := svc.Canceller.CancelByID(memberCtx("alice@example.com"), event, registrant.ID)
	require.NoError(t, err)
	require.True(t, cancelled.Cancelled)
}

func TestCancelByIDWrongEventIsNotFound(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	registrant := registerOne(t, svc, "alice@example.com")

	other := testEvent(nil)
	other.ID = "evt-2"
	_, err := svc.Canceller.CancelByID(memberCtx("alice@example.com"), other, registrant.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelledSpotReopens(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	event := testEvent(func(e *events.Event) { e.Registration.Limit = 1 })

	registrant := registerOne(t, svc, "alice@example.com")
	require.ErrorIs(t, svc.Window.Check(context.Background(), event), ErrRegistrationClosed)

	_, err := svc.Canceller.CancelByHash(context.Background(), event, registrant.HashToken)
	require.NoError(t, err)
	require.NoError(t, svc.Window.Check(context.Background(), event))
}
