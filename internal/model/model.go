package model

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleDietician Role = "dietician"
)

const StatusConfirmed = "confirmed"

// MaxReminderMessage caps reminder text, matching the store constraint.
const MaxReminderMessage = 100

type Appointment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Date      time.Time `json:"date"`
	TimeSlot  string    `json:"timeSlot"` // "HH:00", matches Date's hour
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Break is a dietician-declared unavailable window. An empty SpecificDate
// means the break recurs every day at the same time range.
type Break struct {
	ID           string `json:"id"`
	FromTime     string `json:"fromTime"` // "HH:MM"
	ToTime       string `json:"toTime"`   // "HH:MM"
	SpecificDate string `json:"specificDate,omitempty"`
}

// Covers reports whether the break blocks the given (day, hour) cell.
// The hour range is inclusive on both ends: a 09:00-10:00 break blocks
// both the 09:00 and the 10:00 slot.
func (b Break) Covers(dateKey string, hour int) bool {
	if b.SpecificDate != "" && b.SpecificDate != dateKey {
		return false
	}
	fromH, _, err := ParseHHMM(b.FromTime)
	if err != nil {
		return false
	}
	toH, _, err := ParseHHMM(b.ToTime)
	if err != nil {
		return false
	}
	return fromH <= hour && hour <= toH
}

type ReminderSource string

const (
	SourceDiet   ReminderSource = "diet"
	SourceCustom ReminderSource = "custom"
)

// Reminder is a recurring wall-clock alert. SelectedDays uses Monday=0
// through Sunday=6; an empty set means every day. ScheduledID points at
// the armed primary trigger, BackupIDs at the redundant future fires.
type Reminder struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	Message      string         `json:"message"`
	Time         string         `json:"time"` // "HH:MM"
	SelectedDays []int          `json:"selectedDays"`
	Source       ReminderSource `json:"source"`
	ScheduledID  string         `json:"scheduledId,omitempty"`
	BackupIDs    []string       `json:"backupIds,omitempty"`
}

// Notice is the append-only outbox record left for a user whose booking
// was preempted by a break.
type Notice struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

// DateKey collapses an instant to its calendar day.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SlotLabel renders an hour as the "HH:00" slot string.
func SlotLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// ParseHHMM parses a "HH:MM" wall-clock string.
func ParseHHMM(s string) (hour, minute int, err error) {
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("bad time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad time %q: out of range", s)
	}
	return hour, minute, nil
}

// WeekdayIndex maps Go's Sunday-first weekday to the Monday=0 convention
// reminders use.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
