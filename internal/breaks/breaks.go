// Package breaks manages the dietician's unavailable windows, including
// the single-tap toggle that preempts an existing booking.
package breaks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"diet-scheduler/internal/booking"
	"diet-scheduler/internal/clock"
	"diet-scheduler/internal/metrics"
	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store"
)

var (
	ErrOverlap      = errors.New("break overlaps an existing daily break")
	ErrBadTimeRange = errors.New("break end must be after start")
	ErrBadDate      = errors.New("bad break date")
)

// PartialFailure reports a preempt saga that stopped mid-way. The steps
// already committed stay committed; the caller retries only what is
// missing.
type PartialFailure struct {
	BookingCancelled bool
	NoticeWritten    bool
	BreakCreated     bool
	Err              error
}

func (p *PartialFailure) Error() string {
	return fmt.Sprintf("slot preempt incomplete (cancelled=%t notice=%t break=%t): %v",
		p.BookingCancelled, p.NoticeWritten, p.BreakCreated, p.Err)
}

func (p *PartialFailure) Unwrap() error { return p.Err }

// ToggleResult describes what a toggle did.
type ToggleResult struct {
	Removed   bool               `json:"removed"`
	Break     *model.Break       `json:"break,omitempty"`
	Preempted *model.Appointment `json:"preempted,omitempty"`
}

type Manager struct {
	st      store.Store
	booking *booking.Manager
	clock   clock.Clock
	log     *zap.Logger
}

func NewManager(st store.Store, bm *booking.Manager, clk clock.Clock, log *zap.Logger) *Manager {
	return &Manager{st: st, booking: bm, clock: clk, log: log}
}

// AddBreak declares a window. Daily windows must not overlap another
// daily window (half-open comparison). Specific-date windows are not
// overlap-checked: a redundant block is harmless and classification is
// an OR over breaks.
func (m *Manager) AddBreak(ctx context.Context, fromTime, toTime, specificDate string) (*model.Break, error) {
	from, err := minutes(fromTime)
	if err != nil {
		return nil, err
	}
	to, err := minutes(toTime)
	if err != nil {
		return nil, err
	}
	if to <= from {
		return nil, ErrBadTimeRange
	}
	if specificDate != "" {
		if _, err := time.Parse(time.DateOnly, specificDate); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadDate, specificDate)
		}
	}

	if specificDate == "" {
		existing, err := m.st.ListBreaks(ctx)
		if err != nil {
			return nil, fmt.Errorf("list breaks: %w", err)
		}
		for _, b := range existing {
			if b.SpecificDate != "" {
				continue
			}
			oldFrom, err1 := minutes(b.FromTime)
			oldTo, err2 := minutes(b.ToTime)
			if err1 != nil || err2 != nil {
				continue
			}
			if from < oldTo && to > oldFrom {
				return nil, ErrOverlap
			}
		}
	}

	b := &model.Break{
		ID:           uuid.New().String(),
		FromTime:     fromTime,
		ToTime:       toTime,
		SpecificDate: specificDate,
	}
	if err := m.st.CreateBreak(ctx, b); err != nil {
		return nil, fmt.Errorf("create break: %w", err)
	}
	m.log.Info("break added",
		zap.String("id", b.ID),
		zap.String("from", fromTime),
		zap.String("to", toTime),
		zap.String("date", specificDate))
	return b, nil
}

// ToggleSlotBreak flips one cell. A blocked cell loses its covering
// break; a free or booked cell gains a single-hour specific-date break,
// preempting any booking there: cancel it, leave the owner a notice,
// then create the break. The three steps run as a saga; a mid-way
// failure surfaces as PartialFailure so the caller can retry the missing
// steps without redoing the committed ones.
func (m *Manager) ToggleSlotBreak(ctx context.Context, byUserID string, day time.Time, hour int) (*ToggleResult, error) {
	dateKey := model.DateKey(day)

	existing, err := m.st.ListBreaks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list breaks: %w", err)
	}
	for _, b := range existing {
		if b.Covers(dateKey, hour) {
			if err := m.st.DeleteBreak(ctx, b.ID); err != nil {
				return nil, fmt.Errorf("remove break: %w", err)
			}
			m.log.Info("break removed by toggle", zap.String("id", b.ID), zap.String("date", dateKey), zap.Int("hour", hour))
			return &ToggleResult{Removed: true}, nil
		}
	}

	res := &ToggleResult{}
	pf := &PartialFailure{}

	appt, err := m.st.AppointmentAt(ctx, dateKey, hour)
	switch {
	case err == nil:
		if err := m.booking.Cancel(ctx, appt.ID, byUserID, model.RoleDietician); err != nil {
			return nil, fmt.Errorf("cancel preempted booking: %w", err)
		}
		pf.BookingCancelled = true
		res.Preempted = appt
		metrics.Preemptions.Inc()

		n := &model.Notice{
			ID:     uuid.New().String(),
			UserID: appt.UserID,
			Message: fmt.Sprintf("Your appointment on %s at %s was cancelled: the dietician is unavailable at that time.",
				dateKey, model.SlotLabel(hour)),
			CreatedAt: m.clock.Now(),
		}
		if err := m.st.AppendNotice(ctx, n); err != nil {
			pf.Err = fmt.Errorf("append notice: %w", err)
			return res, pf
		}
		pf.NoticeWritten = true
	case errors.Is(err, store.ErrNotFound):
		// nothing booked there
	default:
		return nil, fmt.Errorf("lookup appointment: %w", err)
	}

	toTime := model.SlotLabel(hour + 1)
	if hour == 23 {
		toTime = "23:59"
	}
	b := &model.Break{
		ID:           uuid.New().String(),
		FromTime:     model.SlotLabel(hour),
		ToTime:       toTime,
		SpecificDate: dateKey,
	}
	if err := m.st.CreateBreak(ctx, b); err != nil {
		if pf.BookingCancelled {
			pf.Err = fmt.Errorf("create break: %w", err)
			return res, pf
		}
		return nil, fmt.Errorf("create break: %w", err)
	}
	res.Break = b
	m.log.Info("slot blocked by toggle",
		zap.String("date", dateKey),
		zap.Int("hour", hour),
		zap.Bool("preempted", res.Preempted != nil))
	return res, nil
}

// RemoveBreak deletes the window. A booking preempted while the break
// existed is never resurrected.
func (m *Manager) RemoveBreak(ctx context.Context, id string) error {
	if err := m.st.DeleteBreak(ctx, id); err != nil {
		return err
	}
	m.log.Info("break removed", zap.String("id", id))
	return nil
}

func minutes(hhmm string) (int, error) {
	h, m, err := model.ParseHHMM(hhmm)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}
