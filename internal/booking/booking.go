// Package booking validates and persists appointments against the weekly
// grid. The client-side classification is advisory only; the store's
// conditional insert is what actually decides a race.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"diet-scheduler/internal/clock"
	"diet-scheduler/internal/grid"
	"diet-scheduler/internal/metrics"
	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store"
)

var (
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrAlreadyBooked   = errors.New("user already has an upcoming appointment")
	ErrForbidden       = errors.New("not allowed to cancel this appointment")
	ErrInvalidSlot     = errors.New("invalid slot")
)

type Manager struct {
	st    store.Store
	clock clock.Clock
	log   *zap.Logger

	OpenHour  int
	CloseHour int
}

func NewManager(st store.Store, clk clock.Clock, log *zap.Logger) *Manager {
	return &Manager{
		st:        st,
		clock:     clk,
		log:       log,
		OpenHour:  grid.DefaultOpenHour,
		CloseHour: grid.DefaultCloseHour,
	}
}

// Book places a confirmed appointment at (day, hour). The cell must
// classify as free right now; the store re-validates at write time so a
// concurrent booking or break loses cleanly with ErrSlotUnavailable.
func (m *Manager) Book(ctx context.Context, userID, userName string, day time.Time, hour int) (*model.Appointment, error) {
	if hour < 0 || hour > 23 {
		return nil, ErrInvalidSlot
	}
	now := m.clock.Now()
	slot := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())

	// snapshot check, same view the caller's grid showed
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	appts, err := m.st.ListAppointments(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	brks, err := m.st.ListBreaks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list breaks: %w", err)
	}
	if state := grid.Classify(day, hour, appts, brks, now); state != grid.Free {
		metrics.BookingConflicts.Inc()
		return nil, ErrSlotUnavailable
	}

	// at most one upcoming appointment per user; advisory here, the
	// store re-checks inside the conditional write
	upcoming, err := m.st.ListAppointments(ctx, now, now.AddDate(1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	for _, other := range upcoming {
		if other.UserID == userID {
			return nil, ErrAlreadyBooked
		}
	}

	a := &model.Appointment{
		ID:        uuid.New().String(),
		UserID:    userID,
		UserName:  userName,
		Date:      slot,
		TimeSlot:  model.SlotLabel(hour),
		Status:    model.StatusConfirmed,
		CreatedAt: now,
	}
	if err := m.st.CreateAppointmentIfFree(ctx, a, now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// the store caught a race the snapshot missed
			metrics.BookingConflicts.Inc()
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	metrics.Bookings.Inc()
	m.log.Info("appointment booked",
		zap.String("id", a.ID),
		zap.String("user", userID),
		zap.String("date", model.DateKey(slot)),
		zap.Int("hour", hour))
	return a, nil
}

// Cancel deletes the appointment. Record removal is the cancellation
// signal; there is no soft-cancel. The caller must own the appointment
// or hold the dietician role (the administrative path BreakManager uses).
func (m *Manager) Cancel(ctx context.Context, appointmentID, byUserID string, role model.Role) error {
	a, err := m.st.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if a.UserID != byUserID && role != model.RoleDietician {
		return ErrForbidden
	}
	if err := m.st.DeleteAppointment(ctx, appointmentID); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	m.log.Info("appointment cancelled",
		zap.String("id", appointmentID),
		zap.String("by", byUserID),
		zap.String("role", string(role)))
	return nil
}

// SweepPast garbage-collects appointments whose slot has passed.
func (m *Manager) SweepPast(ctx context.Context) (int64, error) {
	n, err := m.st.DeleteAppointmentsBefore(ctx, m.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep past appointments: %w", err)
	}
	if n > 0 {
		m.log.Debug("swept past appointments", zap.Int64("count", n))
	}
	return n, nil
}

// WeekView builds the seven-day grid starting at weekStart, sweeping
// expired rows first.
func (m *Manager) WeekView(ctx context.Context, weekStart time.Time) ([]grid.Day, error) {
	if _, err := m.SweepPast(ctx); err != nil {
		return nil, err
	}
	from := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())
	to := from.AddDate(0, 0, 7)
	appts, err := m.st.ListAppointments(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	brks, err := m.st.ListBreaks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list breaks: %w", err)
	}
	return grid.WeekView(from, m.OpenHour, m.CloseHour, appts, brks, m.clock.Now()), nil
}
