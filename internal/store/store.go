// Package store defines the persistent record capability the engine is
// written against: collections of records with conditional writes and a
// realtime change subscription. The postgres implementation is the
// authoritative multi-client store; the memory implementation backs tests
// and embedded use.
package store

import (
	"context"
	"errors"
	"time"

	"diet-scheduler/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional write loses: the slot is
	// taken, blocked, or the user already holds an upcoming booking.
	ErrConflict = errors.New("conditional write conflict")
)

const (
	Appointments = "appointments"
	Breaks       = "breaks"
	Notices      = "notices"
	Reminders    = "reminders"
)

type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// ChangeEvent describes one committed mutation, delivered in commit order
// per record. Consumers recompute from the full record set rather than
// patching, so re-delivery is harmless.
type ChangeEvent struct {
	Collection string `json:"collection"`
	Op         Op     `json:"op"`
	ID         string `json:"id"`
}

type AppointmentStore interface {
	// CreateAppointmentIfFree inserts the appointment only if its cell has
	// no confirmed booking, no covering break, and the user has no other
	// upcoming appointment. The check and insert are atomic; losers get
	// ErrConflict.
	CreateAppointmentIfFree(ctx context.Context, a *model.Appointment, now time.Time) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	AppointmentAt(ctx context.Context, dateKey string, hour int) (*model.Appointment, error)
	ListAppointments(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
	// DeleteAppointmentsBefore garbage-collects past rows.
	DeleteAppointmentsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type BreakStore interface {
	CreateBreak(ctx context.Context, b *model.Break) error
	ListBreaks(ctx context.Context) ([]model.Break, error)
	DeleteBreak(ctx context.Context, id string) error
}

type NoticeStore interface {
	AppendNotice(ctx context.Context, n *model.Notice) error
	ListNotices(ctx context.Context, userID string) ([]model.Notice, error)
	MarkNoticeRead(ctx context.Context, id string) error
}

type ReminderStore interface {
	PutReminder(ctx context.Context, r *model.Reminder) error
	GetReminder(ctx context.Context, id string) (*model.Reminder, error)
	ListReminders(ctx context.Context, userID string) ([]model.Reminder, error)
	ListAllReminders(ctx context.Context) ([]model.Reminder, error)
	DeleteReminder(ctx context.Context, id string) error
}

type Store interface {
	AppointmentStore
	BreakStore
	NoticeStore
	ReminderStore
	// Subscribe streams committed changes until ctx is done.
	Subscribe(ctx context.Context) (<-chan ChangeEvent, error)
}
