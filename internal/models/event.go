package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Event is the only persisted entity: one calendar entry in the events table.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          int64      `bun:"id,pk,autoincrement" json:"id"`
	Name        string     `bun:"nama_event,notnull" json:"nama_event"`
	Description string     `bun:"deskripsi,notnull" json:"deskripsi"`
	Date        string     `bun:"tanggal,notnull" json:"tanggal"`
	StartTime   string     `bun:"waktu_mulai,notnull" json:"waktu_mulai"`
	EndTime     string     `bun:"waktu_selesai,notnull" json:"waktu_selesai"`
	MeetLink    *string    `bun:"link_meet" json:"link_meet"`
	Recurring   bool       `bun:"berulang,notnull" json:"berulang"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   *time.Time `bun:"updated_at" json:"updated_at"`
}

// HasMeetLink reports whether the event carries a non-empty meeting link.
func (e Event) HasMeetLink() bool {
	return e.MeetLink != nil && strings.TrimSpace(*e.MeetLink) != ""
}

// Span resolves the event's date and clock fields into absolute times in loc.
// An end time that is not after the start is taken to fall on the next day.
func (e Event) Span(loc *time.Location) (time.Time, time.Time, error) {
	start, err := parseDateClock(e.Date, e.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("event %d start: %w", e.ID, err)
	}
	end, err := parseDateClock(e.Date, e.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("event %d end: %w", e.ID, err)
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func parseDateClock(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, err
	}
	c, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, loc), nil
}

// ParseClock accepts HH:MM and HH:MM:SS.
func ParseClock(s string) (time.Time, error) {
	if t, err := time.Parse(ClockLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(ClockLayout+":05", s)
}
