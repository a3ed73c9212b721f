// Package calendar renders events as an iCalendar feed.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/soh335/ical"

	"event-in/internal/models"
)

type Exporter struct {
	Location *time.Location
	Name     string
	Version  string
}

func NewExporter(loc *time.Location, name, version string) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{Location: loc, Name: name, Version: version}
}

// UID is stable per event so calendar clients update rather than duplicate.
func UID(ev models.Event) string {
	return fmt.Sprintf("event-%d@event-in", ev.ID)
}

// Encode writes one VEVENT per event. Events whose date or time does not
// parse are left out and counted in skipped.
func (e *Exporter) Encode(w io.Writer, events []models.Event) (skipped int, err error) {
	cal := ical.NewBasicVCalendar()
	cal.PRODID = fmt.Sprintf("-//Event-In//Events//ID/%s", e.Version)
	cal.VERSION = "2.0"
	cal.NAME = e.Name
	cal.X_WR_CALNAME = e.Name
	cal.DESCRIPTION = e.Name
	cal.X_WR_CALDESC = e.Name

	tz := e.Location.String()
	cal.TIMEZONE_ID = tz
	cal.X_WR_TIMEZONE = tz

	cal.REFRESH_INTERVAL = "PT1H"
	cal.X_PUBLISHED_TTL = "PT1H"
	cal.CALSCALE = "GREGORIAN"
	cal.METHOD = "PUBLISH"

	for _, ev := range events {
		start, end, err := ev.Span(e.Location)
		if err != nil {
			skipped++
			continue
		}

		stamp := ev.CreatedAt
		if ev.UpdatedAt != nil {
			stamp = *ev.UpdatedAt
		}

		description := ev.Description
		if ev.HasMeetLink() {
			description = fmt.Sprintf("%s - %s", description, *ev.MeetLink)
		}

		cal.VComponent = append(cal.VComponent, &ical.VEvent{
			UID:         UID(ev),
			DTSTAMP:     stamp,
			DTSTART:     start,
			DTEND:       end,
			SUMMARY:     ev.Name,
			DESCRIPTION: description,
			TZID:        tz,
		})
	}

	return skipped, cal.Encode(w)
}
