package events

import "time"

// MonthView is the Sunday-first grid for one calendar month. Weeks always
// hold seven days; leading and trailing cells belong to the adjacent months
// and are marked InMonth=false.
type MonthView struct {
	Year      int
	Month     time.Month
	Weeks     [][]Day
	PrevYear  int
	PrevMonth time.Month
	NextYear  int
	NextMonth time.Month
}

type Day struct {
	Date    time.Time
	InMonth bool
}

// BuildMonthView computes the grid for year/month in UTC.
func BuildMonthView(year int, month time.Month) MonthView {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)
	prev := first.AddDate(0, -1, 0)

	// Walk back to the Sunday on or before the 1st.
	cursor := first.AddDate(0, 0, -int(first.Weekday()))

	var weeks [][]Day
	for cursor.Before(next) || cursor.Weekday() != time.Sunday {
		if cursor.Weekday() == time.Sunday {
			weeks = append(weeks, make([]Day, 0, 7))
		}
		week := &weeks[len(weeks)-1]
		*week = append(*week, Day{Date: cursor, InMonth: cursor.Month() == month && cursor.Year() == year})
		cursor = cursor.AddDate(0, 0, 1)
	}

	return MonthView{
		Year:      year,
		Month:     month,
		Weeks:     weeks,
		PrevYear:  prev.Year(),
		PrevMonth: prev.Month(),
		NextYear:  next.Year(),
		NextMonth: next.Month(),
	}
}

// GroupByDay buckets events by their start date (UTC) for rendering into
// a month grid. Keys use the yyyy-mm-dd form.
func GroupByDay(items []Event) map[string][]Event {
	grouped := make(map[string][]Event)
	for _, item := range items {
		key := item.StartTime.UTC().Format("2006-01-02")
		grouped[key] = append(grouped[key], item)
	}
	return grouped
}
