package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/domain/events"
)

// Calendar serves the month grid and per-day listing.
type Calendar struct {
	Service *events.Service
	Env     string
}

func NewCalendar(service *events.Service, env string) *Calendar {
	return &Calendar{Service: service, Env: env}
}

type monthResponse struct {
	Year      int                       `json:"year"`
	Month     int                       `json:"month"`
	Weeks     [][]dayCell               `json:"weeks"`
	Events    map[string][]eventPayload `json:"events"`
	PrevYear  int                       `json:"prevYear"`
	PrevMonth int                       `json:"prevMonth"`
	NextYear  int                       `json:"nextYear"`
	NextMonth int                       `json:"nextMonth"`
}

type dayCell struct {
	Date    string `json:"date"`
	InMonth bool   `json:"inMonth"`
}

func (h *Calendar) Month(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.parseYearMonth(w, r)
	if !ok {
		return
	}

	view, items, err := h.Service.Month(r.Context(), year, month)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problemServerError, "Failed to load calendar", err, h.Env)
		return
	}

	grouped := events.GroupByDay(items)
	byDay := make(map[string][]eventPayload, len(grouped))
	for key, dayEvents := range grouped {
		byDay[key] = serializeEvents(dayEvents)
	}

	weeks := make([][]dayCell, 0, len(view.Weeks))
	for _, week := range view.Weeks {
		cells := make([]dayCell, 0, len(week))
		for _, day := range week {
			cells = append(cells, dayCell{
				Date:    day.Date.Format("2006-01-02"),
				InMonth: day.InMonth,
			})
		}
		weeks = append(weeks, cells)
	}

	writeJSON(w, http.StatusOK, monthResponse{
		Year:      view.Year,
		Month:     int(view.Month),
		Weeks:     weeks,
		Events:    byDay,
		PrevYear:  view.PrevYear,
		PrevMonth: int(view.PrevMonth),
		NextYear:  view.NextYear,
		NextMonth: int(view.NextMonth),
	})
}

type dayResponse struct {
	Date   string         `json:"date"`
	Events []eventPayload `json:"events"`
}

func (h *Calendar) Day(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.parseYearMonth(w, r)
	if !ok {
		return
	}
	day, err := strconv.Atoi(pathParam(r, "day"))
	if err != nil || day < 1 || day > 31 {
		problem.Write(w, r, http.StatusBadRequest, problemValidation, "Invalid day", err, h.Env)
		return
	}

	items, err := h.Service.Day(r.Context(), year, month, day)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problemServerError, "Failed to load calendar day", err, h.Env)
		return
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	writeJSON(w, http.StatusOK, dayResponse{
		Date:   date.Format("2006-01-02"),
		Events: serializeEvents(items),
	})
}

func (h *Calendar) parseYearMonth(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year, err := strconv.Atoi(pathParam(r, "year"))
	if err != nil || year < 1970 || year > 9999 {
		problem.Write(w, r, http.StatusBadRequest, problemValidation, "Invalid year", err, h.Env)
		return 0, 0, false
	}
	month, err := strconv.Atoi(pathParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		problem.Write(w, r, http.StatusBadRequest, problemValidation, "Invalid month", err, h.Env)
		return 0, 0, false
	}
	return year, time.Month(month), true
}
