package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-in/internal/models"
)

func TestEncode(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	exporter := NewExporter(loc, "Event-In", "test")

	link := "https://meet.example.com/abc"
	events := []models.Event{
		{ID: 1, Name: "Standup", Description: "Daily sync", Date: "2024-06-01", StartTime: "09:00", EndTime: "09:30", MeetLink: &link, CreatedAt: time.Now()},
		{ID: 2, Name: "Release", Description: "Night deploy", Date: "2024-06-02", StartTime: "23:00", EndTime: "01:00", Recurring: true, CreatedAt: time.Now()},
		{ID: 3, Name: "Broken", Description: "x", Date: "June 3rd", StartTime: "09:00", EndTime: "10:00", CreatedAt: time.Now()},
	}

	var buf bytes.Buffer
	skipped, err := exporter.Encode(&buf, events)
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "SUMMARY:Standup")
	assert.Contains(t, out, "SUMMARY:Release")
	assert.NotContains(t, out, "SUMMARY:Broken")
	assert.Contains(t, out, "UID:event-1@event-in")
	assert.Contains(t, out, "https://meet.example.com/abc")
	assert.Contains(t, out, "Asia/Jakarta")
	assert.NotContains(t, out, "RRULE")
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	skipped, err := NewExporter(nil, "Event-In", "test").Encode(&buf, nil)

	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Contains(t, buf.String(), "BEGIN:VCALENDAR")
	assert.NotContains(t, buf.String(), "BEGIN:VEVENT")
}

func TestUID(t *testing.T) {
	assert.Equal(t, "event-42@event-in", UID(models.Event{ID: 42}))
}
