package breaks

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"diet-scheduler/internal/booking"
	"diet-scheduler/internal/clock"
	"diet-scheduler/internal/grid"
	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store/memory"
)

var (
	now = time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC)
	wed = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
)

const dietician = "diet-1"

func setup(t *testing.T) (*Manager, *booking.Manager, *memory.Store) {
	t.Helper()
	st := memory.New()
	clk := clock.NewManual(now)
	bm := booking.NewManager(st, clk, zap.NewNop())
	return NewManager(st, bm, clk, zap.NewNop()), bm, st
}

func TestAddDailyBreakRejectsOverlap(t *testing.T) {
	m, _, _ := setup(t)
	ctx := context.Background()
	if _, err := m.AddBreak(ctx, "12:00", "13:00", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddBreak(ctx, "12:30", "14:00", ""); !errors.Is(err, ErrOverlap) {
		t.Fatalf("overlapping daily break: err = %v", err)
	}
	// half-open comparison: touching ranges do not overlap
	if _, err := m.AddBreak(ctx, "13:00", "14:00", ""); err != nil {
		t.Fatalf("touching daily break rejected: %v", err)
	}
}

func TestSpecificDateBreakSkipsOverlapCheck(t *testing.T) {
	m, _, _ := setup(t)
	ctx := context.Background()
	if _, err := m.AddBreak(ctx, "12:00", "13:00", ""); err != nil {
		t.Fatal(err)
	}
	// same window on a specific date is accepted
	if _, err := m.AddBreak(ctx, "12:00", "13:00", "2024-01-10"); err != nil {
		t.Fatal(err)
	}
}

func TestAddBreakValidation(t *testing.T) {
	m, _, _ := setup(t)
	ctx := context.Background()
	if _, err := m.AddBreak(ctx, "13:00", "12:00", ""); !errors.Is(err, ErrBadTimeRange) {
		t.Fatalf("inverted range: err = %v", err)
	}
	if _, err := m.AddBreak(ctx, "26:00", "27:00", ""); err == nil {
		t.Fatal("bad time accepted")
	}
	if _, err := m.AddBreak(ctx, "09:00", "10:00", "10/01/2024"); err == nil {
		t.Fatal("bad date accepted")
	}
}

func TestTogglePreemptsBooking(t *testing.T) {
	m, bm, st := setup(t)
	ctx := context.Background()

	a, err := bm.Book(ctx, "u1", "Ada", wed, 14)
	if err != nil {
		t.Fatal(err)
	}

	res, err := m.ToggleSlotBreak(ctx, dietician, wed, 14)
	if err != nil {
		t.Fatal(err)
	}
	if res.Removed || res.Break == nil || res.Preempted == nil || res.Preempted.ID != a.ID {
		t.Fatalf("toggle result %+v", res)
	}

	// the booking is gone
	if _, err := st.GetAppointment(ctx, a.ID); err == nil {
		t.Fatal("preempted booking survives")
	}
	// exactly one notice for the original owner
	notices, err := st.ListNotices(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notices))
	}
	// the cell reclassifies to blocked
	brks, _ := st.ListBreaks(ctx)
	appts, _ := st.ListAppointments(ctx, wed, wed.AddDate(0, 0, 1))
	if got := grid.Classify(wed, 14, appts, brks, now); got != grid.Blocked {
		t.Fatalf("cell = %s, want blocked", got)
	}
}

func TestToggleOnBlockedCellRemovesBreak(t *testing.T) {
	m, _, st := setup(t)
	ctx := context.Background()
	if _, err := m.ToggleSlotBreak(ctx, dietician, wed, 14); err != nil {
		t.Fatal(err)
	}

	res, err := m.ToggleSlotBreak(ctx, dietician, wed, 14)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Removed {
		t.Fatalf("second toggle did not remove: %+v", res)
	}
	brks, _ := st.ListBreaks(ctx)
	if len(brks) != 0 {
		t.Fatalf("breaks left = %d", len(brks))
	}
}

func TestRemoveBreakNeverResurrectsBooking(t *testing.T) {
	m, bm, st := setup(t)
	ctx := context.Background()

	if _, err := bm.Book(ctx, "u1", "Ada", wed, 14); err != nil {
		t.Fatal(err)
	}
	res, err := m.ToggleSlotBreak(ctx, dietician, wed, 14)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.RemoveBreak(ctx, res.Break.ID); err != nil {
		t.Fatal(err)
	}

	brks, _ := st.ListBreaks(ctx)
	appts, _ := st.ListAppointments(ctx, wed, wed.AddDate(0, 0, 1))
	if got := grid.Classify(wed, 14, appts, brks, now); got != grid.Free {
		t.Fatalf("cell = %s, want free", got)
	}
	if len(appts) != 0 {
		t.Fatal("cancelled appointment resurrected")
	}
}

// noticeFailingStore makes the outbox write fail to exercise the saga's
// partial-failure reporting.
type noticeFailingStore struct {
	*memory.Store
}

func (s *noticeFailingStore) AppendNotice(ctx context.Context, n *model.Notice) error {
	return errors.New("store write failed")
}

func TestTogglePartialFailureReportsCommittedSteps(t *testing.T) {
	st := &noticeFailingStore{Store: memory.New()}
	clk := clock.NewManual(now)
	bm := booking.NewManager(st, clk, zap.NewNop())
	m := NewManager(st, bm, clk, zap.NewNop())
	ctx := context.Background()

	a, err := bm.Book(ctx, "u1", "Ada", wed, 14)
	if err != nil {
		t.Fatal(err)
	}

	res, err := m.ToggleSlotBreak(ctx, dietician, wed, 14)
	var pf *PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("err = %v, want PartialFailure", err)
	}
	if !pf.BookingCancelled || pf.NoticeWritten || pf.BreakCreated {
		t.Fatalf("steps %+v", pf)
	}
	if res == nil || res.Preempted == nil {
		t.Fatal("result should carry the preempted booking")
	}
	// the cancel stays committed
	if _, err := st.GetAppointment(ctx, a.ID); err == nil {
		t.Fatal("booking should remain cancelled")
	}
}
