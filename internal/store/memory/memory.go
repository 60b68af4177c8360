// Package memory implements the record store over in-process maps with
// the same conditional-write and subscription semantics as the postgres
// store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store"
)

type Store struct {
	mu           sync.Mutex
	appointments map[string]model.Appointment
	slots        map[string]string // dateKey|HH -> appointment id
	breaks       map[string]model.Break
	notices      map[string]model.Notice
	reminders    map[string]model.Reminder
	subs         []chan store.ChangeEvent
}

func New() *Store {
	return &Store{
		appointments: make(map[string]model.Appointment),
		slots:        make(map[string]string),
		breaks:       make(map[string]model.Break),
		notices:      make(map[string]model.Notice),
		reminders:    make(map[string]model.Reminder),
	}
}

func slotKey(dateKey string, hour int) string {
	return dateKey + "|" + model.SlotLabel(hour)
}

func (s *Store) CreateAppointmentIfFree(ctx context.Context, a *model.Appointment, now time.Time) error {
	s.mu.Lock()
	key := slotKey(model.DateKey(a.Date), a.Date.Hour())
	if _, taken := s.slots[key]; taken {
		s.mu.Unlock()
		return store.ErrConflict
	}
	dateKey := model.DateKey(a.Date)
	for _, b := range s.breaks {
		if b.Covers(dateKey, a.Date.Hour()) {
			s.mu.Unlock()
			return store.ErrConflict
		}
	}
	for _, other := range s.appointments {
		if other.UserID == a.UserID && other.Date.After(now) {
			s.mu.Unlock()
			return store.ErrConflict
		}
	}
	s.appointments[a.ID] = *a
	s.slots[key] = a.ID
	s.mu.Unlock()
	s.emit(store.Appointments, store.OpPut, a.ID)
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) AppointmentAt(ctx context.Context, dateKey string, hour int) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.slots[slotKey(dateKey, hour)]
	if !ok {
		return nil, store.ErrNotFound
	}
	a := s.appointments[id]
	return &a, nil
}

func (s *Store) ListAppointments(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, a := range s.appointments {
		if !a.Date.Before(from) && a.Date.Before(to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	s.mu.Lock()
	a, ok := s.appointments[id]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.appointments, id)
	delete(s.slots, slotKey(model.DateKey(a.Date), a.Date.Hour()))
	s.mu.Unlock()
	s.emit(store.Appointments, store.OpDelete, id)
	return nil
}

func (s *Store) DeleteAppointmentsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	var removed []string
	for id, a := range s.appointments {
		if a.Date.Before(cutoff) {
			delete(s.appointments, id)
			delete(s.slots, slotKey(model.DateKey(a.Date), a.Date.Hour()))
			removed = append(removed, id)
		}
	}
	s.mu.Unlock()
	for _, id := range removed {
		s.emit(store.Appointments, store.OpDelete, id)
	}
	return int64(len(removed)), nil
}

func (s *Store) CreateBreak(ctx context.Context, b *model.Break) error {
	s.mu.Lock()
	s.breaks[b.ID] = *b
	s.mu.Unlock()
	s.emit(store.Breaks, store.OpPut, b.ID)
	return nil
}

func (s *Store) ListBreaks(ctx context.Context) ([]model.Break, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Break, 0, len(s.breaks))
	for _, b := range s.breaks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteBreak(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.breaks[id]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.breaks, id)
	s.mu.Unlock()
	s.emit(store.Breaks, store.OpDelete, id)
	return nil
}

func (s *Store) AppendNotice(ctx context.Context, n *model.Notice) error {
	s.mu.Lock()
	s.notices[n.ID] = *n
	s.mu.Unlock()
	s.emit(store.Notices, store.OpPut, n.ID)
	return nil
}

func (s *Store) ListNotices(ctx context.Context, userID string) ([]model.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notice
	for _, n := range s.notices {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkNoticeRead(ctx context.Context, id string) error {
	s.mu.Lock()
	n, ok := s.notices[id]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	n.Read = true
	s.notices[id] = n
	s.mu.Unlock()
	s.emit(store.Notices, store.OpPut, id)
	return nil
}

func (s *Store) PutReminder(ctx context.Context, r *model.Reminder) error {
	s.mu.Lock()
	s.reminders[r.ID] = *r
	s.mu.Unlock()
	s.emit(store.Reminders, store.OpPut, r.ID)
	return nil
}

func (s *Store) GetReminder(ctx context.Context, id string) (*model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *Store) ListReminders(ctx context.Context, userID string) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reminder
	for _, r := range s.reminders {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListAllReminders(ctx context.Context) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteReminder(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.reminders[id]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.reminders, id)
	s.mu.Unlock()
	s.emit(store.Reminders, store.OpDelete, id)
	return nil
}

func (s *Store) Subscribe(ctx context.Context) (<-chan store.ChangeEvent, error) {
	ch := make(chan store.ChangeEvent, 64)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		// not closed: a writer holding a pre-removal copy of subs may
		// still attempt a non-blocking send
	}()
	return ch, nil
}

func (s *Store) emit(collection string, op store.Op, id string) {
	ev := store.ChangeEvent{Collection: collection, Op: op, ID: id}
	s.mu.Lock()
	subs := make([]chan store.ChangeEvent, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- ev:
		default: // slow subscriber, drop rather than block a write
		}
	}
}
