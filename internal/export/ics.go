// Package export renders a week of the grid as an iCalendar document so
// the dietician can pull the schedule into a regular calendar client.
package export

import (
	"bytes"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"diet-scheduler/internal/model"
)

// WeekCalendar serializes the week starting at weekStart. Appointments
// become one-hour events; breaks become "Unavailable" events, daily
// breaks expanded onto each of the seven days.
func WeekCalendar(weekStart time.Time, appointments []model.Appointment, breaks []model.Break) (*bytes.Buffer, string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//diet-scheduler//schedule//EN")

	for _, a := range appointments {
		ev := cal.AddEvent("appt-" + a.ID)
		ev.SetCreatedTime(a.CreatedAt)
		ev.SetDtStampTime(a.CreatedAt)
		ev.SetStartAt(a.Date)
		ev.SetEndAt(a.Date.Add(time.Hour))
		ev.SetSummary(fmt.Sprintf("Appointment: %s", a.UserName))
		ev.SetDescription(fmt.Sprintf("Booked slot %s", a.TimeSlot))
	}

	for _, b := range breaks {
		for d := 0; d < 7; d++ {
			day := weekStart.AddDate(0, 0, d)
			key := model.DateKey(day)
			if b.SpecificDate != "" && b.SpecificDate != key {
				continue
			}
			start, end, err := breakWindow(day, b)
			if err != nil {
				return nil, "", err
			}
			ev := cal.AddEvent(fmt.Sprintf("break-%s-%s", b.ID, key))
			ev.SetDtStampTime(start)
			ev.SetStartAt(start)
			ev.SetEndAt(end)
			ev.SetSummary("Unavailable")
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("schedule-week-%s.ics", model.DateKey(weekStart))
	return buf, filename, nil
}

func breakWindow(day time.Time, b model.Break) (time.Time, time.Time, error) {
	fh, fm, err := model.ParseHHMM(b.FromTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	th, tm, err := model.ParseHHMM(b.ToTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), fh, fm, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), th, tm, 0, 0, day.Location())
	return start, end, nil
}
