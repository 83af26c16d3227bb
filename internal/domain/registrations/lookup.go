package registrations

import (
	"context"
	"strings"

	"github.com/gatherly/server/internal/auth"
)

// Lookup resolves registrants for the confirmation routes. The by-id path
// is permission-checked; the by-hash path is not, because possession of
// the token is the credential.
type Lookup struct {
	repo   Repository
	oracle auth.Oracle
}

func NewLookup(repo Repository, oracle auth.Oracle) *Lookup {
	return &Lookup{repo: repo, oracle: oracle}
}

// ByEmail finds the active registrant for the event with that email.
// Absence is an ErrNotFound result, never a fault.
func (l *Lookup) ByEmail(ctx context.Context, eventID, email string) (*Registrant, error) {
	return l.repo.FindActiveByEmail(ctx, eventID, NormalizeEmail(email))
}

// Confirmation returns the registrant by id after a canView check against
// the caller's identity.
func (l *Lookup) Confirmation(ctx context.Context, registrantID string) (*Registrant, error) {
	registrant, err := l.repo.GetByID(ctx, registrantID)
	if err != nil {
		return nil, err
	}
	identity := auth.IdentityFromContext(ctx)
	if !l.oracle.CanView(identity, auth.Resource{Kind: "registrant", OwnerEmail: registrant.Email}) {
		return nil, ErrForbidden
	}
	return registrant, nil
}

// ConfirmationByHash returns the event's most recently updated registrant
// carrying the token.
func (l *Lookup) ConfirmationByHash(ctx context.Context, eventID, hash string) (*Registrant, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, ErrNotFound
	}
	return l.repo.FindByHash(ctx, eventID, hash)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
