// Package reminder turns declarative (message, time-of-day, weekdays)
// specs into armed triggers. The platform primitive is one-shot only, so
// recurrence is an explicit state machine: armed -> fired -> rearmed on
// every delivery, with a few redundant future registrations as a
// backstop against a missed wake.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"diet-scheduler/internal/clock"
	"diet-scheduler/internal/metrics"
	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store"
	"diet-scheduler/internal/trigger"
)

// BackupCount is how many redundant future occurrences stay armed beyond
// the primary, so one missed wake does not silently stop the reminder.
const BackupCount = 3

var (
	ErrRegistrationFailed = errors.New("trigger registration failed")
	ErrMessageTooLong     = fmt.Errorf("reminder message exceeds %d characters", model.MaxReminderMessage)
	ErrBadDay             = errors.New("selected day out of range")
)

type State string

const (
	StateUnscheduled State = "unscheduled"
	StateArmed       State = "armed"
	StateFired       State = "fired"
)

// Notifier delivers a fired reminder to the user. The default logs.
type Notifier interface {
	Notify(ctx context.Context, r *model.Reminder) error
}

type Scheduler struct {
	st    store.Store
	trig  trigger.Service
	clock clock.Clock
	log   *zap.Logger

	mu       sync.Mutex
	states   map[string]State
	notifier Notifier
}

func NewScheduler(st store.Store, trig trigger.Service, clk clock.Clock, log *zap.Logger) *Scheduler {
	return &Scheduler{
		st:     st,
		trig:   trig,
		clock:  clk,
		log:    log,
		states: make(map[string]State),
	}
}

// SetNotifier installs the delivery hook for fired reminders.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// StateOf reports a reminder's position in the state machine.
func (s *Scheduler) StateOf(reminderID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[reminderID]; ok {
		return st
	}
	return StateUnscheduled
}

// Schedule validates the spec, arms the primary trigger at the next
// matching instant plus BackupCount redundant occurrences, and persists
// the handles. A refused registration leaves the reminder unscheduled
// with every partially-armed trigger cancelled.
func (s *Scheduler) Schedule(ctx context.Context, r *model.Reminder) error {
	if err := validate(r); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return s.arm(ctx, r)
}

// Cancel disarms the primary and every backup and persists the cleared
// handles. Afterwards r.ScheduledID is empty and the reminder is
// unscheduled.
func (s *Scheduler) Cancel(ctx context.Context, r *model.Reminder) error {
	s.disarm(r)
	s.setState(r.ID, StateUnscheduled)
	if err := s.st.PutReminder(ctx, r); err != nil {
		return fmt.Errorf("persist reminder: %w", err)
	}
	return nil
}

// Edit applies new fields by full cancel-and-rearm; an armed trigger is
// never mutated in place.
func (s *Scheduler) Edit(ctx context.Context, r *model.Reminder, newTime, newMessage string, newDays []int) error {
	s.disarm(r)
	r.Time = newTime
	r.Message = newMessage
	r.SelectedDays = newDays
	if err := validate(r); err != nil {
		s.setState(r.ID, StateUnscheduled)
		return err
	}
	return s.arm(ctx, r)
}

// Delete cancels the reminder's triggers and removes the record.
func (s *Scheduler) Delete(ctx context.Context, reminderID string) error {
	r, err := s.st.GetReminder(ctx, reminderID)
	if err != nil {
		return err
	}
	s.disarm(r)
	s.mu.Lock()
	delete(s.states, reminderID)
	s.mu.Unlock()
	return s.st.DeleteReminder(ctx, reminderID)
}

// SupersedeAll replaces the user's diet-extracted reminders with the new
// set. Custom reminders are untouched. The full cancel of the prior set
// makes repeated invocation with the same content idempotent: the armed
// handle count ends the same.
func (s *Scheduler) SupersedeAll(ctx context.Context, userID string, newReminders []*model.Reminder) error {
	existing, err := s.st.ListReminders(ctx, userID)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}
	for i := range existing {
		r := &existing[i]
		if r.Source != model.SourceDiet {
			continue
		}
		s.disarm(r)
		s.mu.Lock()
		delete(s.states, r.ID)
		s.mu.Unlock()
		if err := s.st.DeleteReminder(ctx, r.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete superseded reminder: %w", err)
		}
	}
	for _, r := range newReminders {
		r.UserID = userID
		r.Source = model.SourceDiet
		if err := s.Schedule(ctx, r); err != nil {
			return err
		}
	}
	s.log.Info("diet reminders superseded",
		zap.String("user", userID),
		zap.Int("count", len(newReminders)))
	return nil
}

// RestoreAll re-arms every persisted reminder. Stored handles are dead
// after a restart; re-registration from the persisted specs is the
// recovery path.
func (s *Scheduler) RestoreAll(ctx context.Context) error {
	all, err := s.st.ListAllReminders(ctx)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}
	for i := range all {
		r := &all[i]
		r.ScheduledID = ""
		r.BackupIDs = nil
		if err := s.arm(ctx, r); err != nil {
			s.log.Warn("restore failed, reminder left unscheduled",
				zap.String("id", r.ID), zap.Error(err))
		}
	}
	return nil
}

// HandleFire is the trigger service's callback. The consumed occurrence
// moves the reminder to fired; delivery, then a fresh primary and fresh
// backups move it back to armed.
func (s *Scheduler) HandleFire(p trigger.Payload) {
	ctx := context.Background()
	r, err := s.st.GetReminder(ctx, p.ReminderID)
	if err != nil {
		// deleted or superseded between arm and fire; stale backups for
		// it were already cancelled with the record
		return
	}
	s.setState(r.ID, StateFired)
	metrics.ReminderFires.Inc()

	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	if n != nil {
		if err := n.Notify(ctx, r); err != nil {
			s.log.Warn("reminder delivery failed", zap.String("id", r.ID), zap.Error(err))
		}
	} else {
		s.log.Info("reminder fired", zap.String("id", r.ID), zap.String("message", r.Message))
	}

	// invalidate the consumed occurrence's siblings and rearm fresh
	if err := s.arm(ctx, r); err != nil {
		s.log.Error("rearm after fire failed", zap.String("id", r.ID), zap.Error(err))
	}
}

// arm cancels whatever the reminder still holds, registers a fresh
// primary plus backups, persists the handles, and marks it armed.
func (s *Scheduler) arm(ctx context.Context, r *model.Reminder) error {
	s.disarm(r)

	now := s.clock.Now()
	payload := trigger.Payload{ReminderID: r.ID, UserID: r.UserID, Message: r.Message}

	occ, err := NextOccurrence(now, r.Time, r.SelectedDays)
	if err != nil {
		return err
	}
	var handles []trigger.Handle
	rollback := func() {
		for _, h := range handles {
			_ = s.trig.Cancel(h)
		}
	}

	primary, err := s.trig.ScheduleOnce(occ, payload)
	if err != nil {
		metrics.TriggerFailures.Inc()
		s.setState(r.ID, StateUnscheduled)
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
	handles = append(handles, primary)

	backups := make([]string, 0, BackupCount)
	for i := 0; i < BackupCount; i++ {
		occ, err = NextOccurrence(occ, r.Time, r.SelectedDays)
		if err != nil {
			rollback()
			s.setState(r.ID, StateUnscheduled)
			return err
		}
		h, err := s.trig.ScheduleOnce(occ, payload)
		if err != nil {
			metrics.TriggerFailures.Inc()
			rollback()
			s.setState(r.ID, StateUnscheduled)
			return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
		}
		handles = append(handles, h)
		backups = append(backups, string(h))
	}

	r.ScheduledID = string(primary)
	r.BackupIDs = backups
	if err := s.st.PutReminder(ctx, r); err != nil {
		rollback()
		r.ScheduledID = ""
		r.BackupIDs = nil
		s.setState(r.ID, StateUnscheduled)
		return fmt.Errorf("persist reminder: %w", err)
	}
	s.setState(r.ID, StateArmed)
	return nil
}

// disarm cancels every handle the reminder holds and clears them.
func (s *Scheduler) disarm(r *model.Reminder) {
	if r.ScheduledID != "" {
		_ = s.trig.Cancel(trigger.Handle(r.ScheduledID))
	}
	for _, id := range r.BackupIDs {
		_ = s.trig.Cancel(trigger.Handle(id))
	}
	r.ScheduledID = ""
	r.BackupIDs = nil
}

func (s *Scheduler) setState(id string, st State) {
	s.mu.Lock()
	s.states[id] = st
	s.mu.Unlock()
}

func validate(r *model.Reminder) error {
	if len(r.Message) > model.MaxReminderMessage {
		return ErrMessageTooLong
	}
	if _, _, err := model.ParseHHMM(r.Time); err != nil {
		return err
	}
	for _, d := range r.SelectedDays {
		if d < 0 || d > 6 {
			return ErrBadDay
		}
	}
	return nil
}

// NextOccurrence returns the earliest instant strictly after "after"
// whose wall-clock time matches hhmm and whose weekday is selected
// (Monday=0; an empty set means every day). A time equal to "after"
// counts as already passed and rolls forward; a single selected day can
// roll up to seven days out.
func NextOccurrence(after time.Time, hhmm string, selectedDays []int) (time.Time, error) {
	h, m, err := model.ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	allowed := func(t time.Time) bool {
		if len(selectedDays) == 0 || len(selectedDays) == 7 {
			return true
		}
		idx := model.WeekdayIndex(t)
		for _, d := range selectedDays {
			if d == idx {
				return true
			}
		}
		return false
	}
	base := time.Date(after.Year(), after.Month(), after.Day(), h, m, 0, 0, after.Location())
	for i := 0; i <= 7; i++ {
		c := base.AddDate(0, 0, i)
		if c.After(after) && allowed(c) {
			return c, nil
		}
	}
	return time.Time{}, fmt.Errorf("no matching occurrence within a week for %q", hhmm)
}
