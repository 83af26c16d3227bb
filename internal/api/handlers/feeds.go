package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/domain/events"
)

// Feeds serves the public iCalendar feed.
type Feeds struct {
	Service *events.Service
	Site    events.SiteInfo
	Env     string
	Now     func() time.Time
}

func NewFeeds(service *events.Service, site events.SiteInfo, env string) *Feeds {
	return &Feeds{Service: service, Site: site, Env: env, Now: time.Now}
}

func (h *Feeds) ICal(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	items, err := h.Service.Upcoming(r.Context(), now().UTC(), events.FeedHorizon)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problemServerError, "Failed to build feed", err, h.Env)
		return
	}

	host := h.feedHost()
	document := events.BuildICalendar(items, h.Site.DisplayName, host)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", host+".ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(document))
}

func (h *Feeds) feedHost() string {
	parsed, err := url.Parse(h.Site.URL)
	if err != nil || parsed.Host == "" {
		return "events.local"
	}
	return parsed.Hostname()
}
