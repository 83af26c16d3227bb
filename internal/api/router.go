package api

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gatherly/server/internal/api/handlers"
	"github.com/gatherly/server/internal/api/middleware"
	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/config"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/registrations"
	"github.com/gatherly/server/internal/metrics"
)

// Deps carries everything the router needs. The cmd layer owns the pool
// and job client lifecycles; the router only wires them together.
type Deps struct {
	Config        config.Config
	Logger        zerolog.Logger
	Events        events.Repository
	Registrations registrations.Repository
	Users         auth.UserStore
	DB            handlers.Pinger
	Notifier      events.Notifier
	Version       string
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	oracle := auth.NewRoleOracle()
	site := events.SiteInfo{
		DisplayName:      cfg.Site.DisplayName,
		URL:              cfg.Site.URL,
		NoticeRecipients: cfg.Site.NoticeRecipients,
	}

	regService := registrations.NewService(deps.Registrations, oracle, deps.Notifier, site, time.Now)
	eventsService := events.NewService(deps.Events, oracle, deps.Notifier, regService.Stats, site)
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)

	env := cfg.Environment
	eventsHandler := handlers.NewEvents(eventsService, env)
	calendarHandler := handlers.NewCalendar(eventsService, env)
	feedsHandler := handlers.NewFeeds(eventsService, site, env)
	regHandler := handlers.NewRegistrations(eventsService, regService, cfg.Server.BaseURL, env)
	registrantsHandler := handlers.NewRegistrants(eventsService, regService, oracle, env)
	messagesHandler := handlers.NewMessages(eventsService, regService, oracle, deps.Notifier, cfg.Site.WebmasterEmail, env)
	authHandler := handlers.NewAuth(deps.Users, jwtManager, env)
	healthHandler := handlers.NewHealth(deps.DB, deps.Version)

	limit := middleware.RateLimit(cfg.RateLimit)
	public := func(h http.HandlerFunc) http.Handler { return limit(h) }
	user := func(h http.HandlerFunc) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierUser)(limit(middleware.RequireAuth(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", http.HandlerFunc(healthHandler.Healthz))
	mux.Handle("/readyz", http.HandlerFunc(healthHandler.Readyz))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/api/v1/events/feed.ics", public(feedsHandler.ICal))

	mux.Handle("/api/v1/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: public(authHandler.Login),
	}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet:  public(eventsHandler.List),
		http.MethodPost: user(eventsHandler.Create),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    public(eventsHandler.Get),
		http.MethodPut:    user(eventsHandler.Update),
		http.MethodDelete: user(eventsHandler.Delete),
	}))

	mux.Handle("/api/v1/events/calendar/{year}/{month}", methodMux(map[string]http.Handler{
		http.MethodGet: public(calendarHandler.Month),
	}))
	mux.Handle("/api/v1/events/calendar/{year}/{month}/{day}", methodMux(map[string]http.Handler{
		http.MethodGet: public(calendarHandler.Day),
	}))

	mux.Handle("/api/v1/events/{id}/register", methodMux(map[string]http.Handler{
		http.MethodGet:  public(regHandler.Begin),
		http.MethodPost: public(regHandler.Register),
	}))
	mux.Handle("/api/v1/events/{id}/registrations/{registrantId}", methodMux(map[string]http.Handler{
		http.MethodGet: user(regHandler.Confirmation),
	}))
	mux.Handle("/api/v1/events/{id}/registrations/{registrantId}/cancel", methodMux(map[string]http.Handler{
		http.MethodPost: user(regHandler.Cancel),
	}))
	mux.Handle("/api/v1/events/{id}/registrations/confirm/{hash}", methodMux(map[string]http.Handler{
		http.MethodGet: public(regHandler.ConfirmationByHash),
	}))
	mux.Handle("/api/v1/events/{id}/registrations/confirm/{hash}/cancel", methodMux(map[string]http.Handler{
		http.MethodPost: public(regHandler.CancelByHash),
	}))

	mux.Handle("/api/v1/events/{id}/registrants", methodMux(map[string]http.Handler{
		http.MethodGet: user(registrantsHandler.Search),
	}))
	mux.Handle("/api/v1/events/{id}/registrants/roster/{view}", methodMux(map[string]http.Handler{
		http.MethodGet: user(registrantsHandler.Roster),
	}))
	mux.Handle("/api/v1/events/{id}/registrants/export", methodMux(map[string]http.Handler{
		http.MethodGet: user(registrantsHandler.Export),
	}))
	mux.Handle("/api/v1/registrants/{registrantId}", methodMux(map[string]http.Handler{
		http.MethodGet: user(registrantsHandler.Details),
	}))
	mux.Handle("/api/v1/events/{id}/messages", methodMux(map[string]http.Handler{
		http.MethodPost: user(messagesHandler.Send),
	}))

	var handler http.Handler = mux
	handler = middleware.Audit(deps.Logger)(handler)
	handler = middleware.Authenticate(jwtManager)(handler)
	handler = middleware.SecurityHeaders(env == "production")(handler)
	handler = metrics.HTTPMiddleware(handler)
	if cfg.Tracing.Enabled {
		handler = middleware.Tracing(cfg.Tracing.ServiceName)(handler)
	}
	handler = middleware.RequestLogging(deps.Logger)(handler)
	return handler
}

func methodMux(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := routes[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(routes))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(routes map[string]http.Handler) string {
	methods := make([]string, 0, len(routes))
	for method := range routes {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
