// Package grid computes the weekly availability view. It is a pure
// function of the current record set: every recomputation starts from the
// full appointment and break lists, so re-delivered change events cannot
// make the view diverge.
package grid

import (
	"time"

	"diet-scheduler/internal/model"
)

type State string

const (
	Free    State = "free"
	Booked  State = "booked"
	Blocked State = "blocked"
	Past    State = "past"
)

// Default working window for the weekly view.
const (
	DefaultOpenHour  = 9
	DefaultCloseHour = 18
)

type Cell struct {
	Date        string             `json:"date"`
	Hour        int                `json:"hour"`
	State       State              `json:"state"`
	Appointment *model.Appointment `json:"appointment,omitempty"`
}

type Day struct {
	Date  string `json:"date"`
	Cells []Cell `json:"cells"`
}

// Classify determines the state of one (day, hour) cell. Precedence:
// past, then blocked, then booked. Missing data yields Free.
func Classify(day time.Time, hour int, appointments []model.Appointment, breaks []model.Break, now time.Time) State {
	slot := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
	if !slot.After(now) {
		return Past
	}
	key := model.DateKey(day)
	for _, b := range breaks {
		if b.Covers(key, hour) {
			return Blocked
		}
	}
	if appointmentAt(appointments, key, hour) != nil {
		return Booked
	}
	return Free
}

// WeekView renders seven days starting at weekStart, one cell per hour in
// [openHour, closeHour].
func WeekView(weekStart time.Time, openHour, closeHour int, appointments []model.Appointment, breaks []model.Break, now time.Time) []Day {
	days := make([]Day, 0, 7)
	for d := 0; d < 7; d++ {
		day := weekStart.AddDate(0, 0, d)
		key := model.DateKey(day)
		cells := make([]Cell, 0, closeHour-openHour+1)
		for h := openHour; h <= closeHour; h++ {
			c := Cell{Date: key, Hour: h, State: Classify(day, h, appointments, breaks, now)}
			if c.State == Booked {
				c.Appointment = appointmentAt(appointments, key, h)
			}
			cells = append(cells, c)
		}
		days = append(days, Day{Date: key, Cells: cells})
	}
	return days
}

func appointmentAt(appointments []model.Appointment, dateKey string, hour int) *model.Appointment {
	for i := range appointments {
		a := &appointments[i]
		if a.Status != model.StatusConfirmed {
			continue
		}
		if model.DateKey(a.Date) == dateKey && a.Date.Hour() == hour {
			return a
		}
	}
	return nil
}
