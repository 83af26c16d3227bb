package registrations

import "errors"

var ErrNotFound = errors.New("registrant not found")

var ErrForbidden = errors.New("forbidden")

// ErrDuplicate is returned by Repository.Create when the (event, email)
// unique constraint fires. The recorder converts it into a fetch of the
// row that won the race.
var ErrDuplicate = errors.New("registrant already exists")

// ErrRegistrationClosed is the sentinel matched by errors.Is against any
// *ClosedError.
var ErrRegistrationClosed = errors.New("registration closed")

type ClosedReason string

const (
	ReasonDisabled    ClosedReason = "disabled"
	ReasonEventEnded  ClosedReason = "event_ended"
	ReasonAfterLate   ClosedReason = "after_late_cutoff"
	ReasonBeforeEarly ClosedReason = "before_early_open"
	ReasonFull        ClosedReason = "capacity_reached"
)

// ClosedError reports why the registration window rejected an attempt.
// A closed window is a normal outcome, not a fault; handlers turn it into
// a redirect back to the event page.
type ClosedError struct {
	Reason ClosedReason
}

func (e *ClosedError) Error() string {
	return "registration closed: " + string(e.Reason)
}

func (e *ClosedError) Is(target error) bool {
	return target == ErrRegistrationClosed
}
