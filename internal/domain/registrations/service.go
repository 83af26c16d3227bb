package registrations

import (
	"time"

	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/domain/events"
)

// Service bundles the registration collaborators for the HTTP layer.
type Service struct {
	Repo      Repository
	Window    *WindowValidator
	Lookup    *Lookup
	Recorder  *Recorder
	Workflow  *Workflow
	Canceller *Canceller
	Roster    *Roster
	Stats     *Stats
}

func NewService(repo Repository, oracle auth.Oracle, notifier events.Notifier, site events.SiteInfo, now func() time.Time) *Service {
	window := NewWindowValidator(repo, now)
	lookup := NewLookup(repo, oracle)
	recorder := NewRecorder(repo, notifier, site)
	return &Service{
		Repo:      repo,
		Window:    window,
		Lookup:    lookup,
		Recorder:  recorder,
		Workflow:  NewWorkflow(window, lookup, recorder),
		Canceller: NewCanceller(repo, oracle, notifier, site, now),
		Roster:    NewRoster(repo, oracle),
		Stats:     NewStats(repo),
	}
}
