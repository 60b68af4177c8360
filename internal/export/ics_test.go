package export

import (
	"strings"
	"testing"
	"time"

	"diet-scheduler/internal/model"
)

func TestWeekCalendar(t *testing.T) {
	weekStart := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	appts := []model.Appointment{{
		ID:        "a1",
		UserID:    "u1",
		UserName:  "Ada",
		Date:      time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC),
		TimeSlot:  "14:00",
		Status:    model.StatusConfirmed,
		CreatedAt: weekStart,
	}}
	brks := []model.Break{
		{ID: "b1", FromTime: "12:00", ToTime: "13:00"},                              // daily
		{ID: "b2", FromTime: "09:00", ToTime: "10:00", SpecificDate: "2024-01-09"},  // in range
		{ID: "b3", FromTime: "09:00", ToTime: "10:00", SpecificDate: "2024-02-01"},  // out of range
	}

	buf, filename, err := WeekCalendar(weekStart, appts, brks)
	if err != nil {
		t.Fatal(err)
	}
	if filename != "schedule-week-2024-01-08.ics" {
		t.Fatalf("filename = %s", filename)
	}
	out := buf.String()

	if !strings.Contains(out, "Appointment: Ada") {
		t.Fatal("appointment event missing")
	}
	// daily break expands to all seven days
	if got := strings.Count(out, "SUMMARY:Unavailable"); got != 8 {
		t.Fatalf("unavailable events = %d, want 7 daily + 1 specific", got)
	}
	if strings.Contains(out, "break-b3") {
		t.Fatal("out-of-week break exported")
	}
	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		t.Fatal("not a calendar document")
	}
}
