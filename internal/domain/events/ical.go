package events

import (
	"strings"
	"time"
)

const icalTimeLayout = "20060102T150405Z"

// BuildICalendar renders the events as an RFC 5545 VCALENDAR document.
// prodID identifies the generator, host scopes the UIDs.
func BuildICalendar(items []Event, prodID, host string) string {
	var b strings.Builder
	writeICalLine(&b, "BEGIN:VCALENDAR")
	writeICalLine(&b, "VERSION:2.0")
	writeICalLine(&b, "PRODID:-//"+escapeICalText(prodID)+"//EN")
	writeICalLine(&b, "METHOD:PUBLISH")
	for i := range items {
		writeVEvent(&b, &items[i], host)
	}
	writeICalLine(&b, "END:VCALENDAR")
	return b.String()
}

func writeVEvent(b *strings.Builder, event *Event, host string) {
	writeICalLine(b, "BEGIN:VEVENT")
	writeICalLine(b, "UID:"+event.ULID+"@"+host)
	writeICalLine(b, "DTSTAMP:"+event.UpdatedAt.UTC().Format(icalTimeLayout))
	writeICalLine(b, "DTSTART:"+event.StartTime.UTC().Format(icalTimeLayout))
	if !event.EndTime.IsZero() {
		writeICalLine(b, "DTEND:"+event.EndTime.UTC().Format(icalTimeLayout))
	}
	writeICalLine(b, "SUMMARY:"+escapeICalText(event.Title))
	if event.Description != "" {
		writeICalLine(b, "DESCRIPTION:"+escapeICalText(event.Description))
	}
	if event.Place != nil {
		writeICalLine(b, "LOCATION:"+escapeICalText(formatLocation(event.Place)))
	}
	if event.Organizer != nil && event.Organizer.Email != "" {
		writeICalLine(b, "ORGANIZER;CN="+escapeICalText(event.Organizer.Name)+":MAILTO:"+event.Organizer.Email)
	}
	writeICalLine(b, "END:VEVENT")
}

func formatLocation(place *Place) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{place.Name, place.Address, place.City, place.Region} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// escapeICalText applies the RFC 5545 TEXT escaping rules.
func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// writeICalLine folds lines longer than 75 octets with a CRLF plus space,
// as the calendar format requires.
func writeICalLine(b *strings.Builder, line string) {
	const width = 75
	for len(line) > width {
		cut := width
		// Do not split a multi-byte rune.
		for cut > 0 && line[cut]&0xC0 == 0x80 {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}

// FeedHorizon is how far ahead the public feed looks.
const FeedHorizon = 365 * 24 * time.Hour
