package reminder

import (
	"context"
	"errors"

	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store"
)

// Set is the aggregate of one user's reminders: custom entries edited
// one at a time, diet-extracted entries replaced wholesale when a new
// diet document is processed.
type Set struct {
	st    store.Store
	sched *Scheduler
}

func NewSet(st store.Store, sched *Scheduler) *Set {
	return &Set{st: st, sched: sched}
}

func (s *Set) List(ctx context.Context, userID string) ([]model.Reminder, error) {
	return s.st.ListReminders(ctx, userID)
}

// Put creates or updates a single custom reminder. An update goes
// through full cancel-and-rearm; armed triggers are never mutated in
// place.
func (s *Set) Put(ctx context.Context, userID string, r *model.Reminder) (*model.Reminder, error) {
	r.UserID = userID
	if r.Source == "" {
		r.Source = model.SourceCustom
	}
	if r.ID != "" {
		existing, err := s.st.GetReminder(ctx, r.ID)
		switch {
		case err == nil:
			if existing.UserID != userID {
				return nil, store.ErrNotFound
			}
			if err := s.sched.Edit(ctx, existing, r.Time, r.Message, r.SelectedDays); err != nil {
				return nil, err
			}
			return existing, nil
		case errors.Is(err, store.ErrNotFound):
			// fall through to create with the caller's id
		default:
			return nil, err
		}
	}
	if err := s.sched.Schedule(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes one reminder if it belongs to the user.
func (s *Set) Delete(ctx context.Context, userID, reminderID string) error {
	r, err := s.st.GetReminder(ctx, reminderID)
	if err != nil {
		return err
	}
	if r.UserID != userID {
		return store.ErrNotFound
	}
	return s.sched.Delete(ctx, reminderID)
}

// Supersede replaces the diet-extracted subset after a new diet document
// was processed.
func (s *Set) Supersede(ctx context.Context, userID string, extracted []*model.Reminder) error {
	return s.sched.SupersedeAll(ctx, userID, extracted)
}
