// Package trigger models the platform's local-notification primitive: a
// one-shot wake-up at an absolute instant, cancellable by handle. There
// is no native repeating trigger; recurrence is emulated a level up by
// re-arming on every fire.
package trigger

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrStopped = errors.New("trigger service stopped")

// Handle identifies one armed wake-up.
type Handle string

// Payload travels with a wake-up and comes back on fire.
type Payload struct {
	ReminderID string
	UserID     string
	Message    string
}

type FireFunc func(p Payload)

type Service interface {
	ScheduleOnce(at time.Time, p Payload) (Handle, error)
	Cancel(h Handle) error
}

// Timers runs wake-ups on in-process timers.
type Timers struct {
	mu       sync.Mutex
	timers   map[Handle]*time.Timer
	fire     FireFunc
	stopped  bool
	stopOnce sync.Once
}

func NewTimers() *Timers {
	return &Timers{timers: make(map[Handle]*time.Timer)}
}

// OnFire sets the callback invoked when a wake-up elapses. Must be set
// before any trigger fires; fires with no callback are dropped.
func (t *Timers) OnFire(f FireFunc) {
	t.mu.Lock()
	t.fire = f
	t.mu.Unlock()
}

func (t *Timers) ScheduleOnce(at time.Time, p Payload) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return "", ErrStopped
	}
	h := Handle(uuid.New().String())
	delay := time.Until(at)
	if delay <= 0 {
		go t.consume(h, p)
		return h, nil
	}
	t.timers[h] = time.AfterFunc(delay, func() { t.consume(h, p) })
	return h, nil
}

// Cancel is idempotent; cancelling an unknown or already-fired handle is
// a no-op.
func (t *Timers) Cancel(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[h]; ok {
		timer.Stop()
		delete(t.timers, h)
	}
	return nil
}

func (t *Timers) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.stopped = true
		for h, timer := range t.timers {
			timer.Stop()
			delete(t.timers, h)
		}
	})
}

// ActiveCount reports armed wake-ups.
func (t *Timers) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

func (t *Timers) consume(h Handle, p Payload) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	delete(t.timers, h)
	fire := t.fire
	t.mu.Unlock()
	if fire != nil {
		fire(p)
	}
}
