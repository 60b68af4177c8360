package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"diet-scheduler/internal/clock"
	"diet-scheduler/internal/grid"
	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store/memory"
)

var (
	now = time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC) // Monday morning
	wed = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
)

func setup(t *testing.T) (*Manager, *memory.Store, *clock.Manual) {
	t.Helper()
	st := memory.New()
	clk := clock.NewManual(now)
	return NewManager(st, clk, zap.NewNop()), st, clk
}

func TestBookFreeSlot(t *testing.T) {
	m, st, _ := setup(t)
	a, err := m.Book(context.Background(), "u1", "Ada", wed, 14)
	if err != nil {
		t.Fatal(err)
	}
	if a.TimeSlot != "14:00" || a.Status != model.StatusConfirmed {
		t.Fatalf("appointment %+v", a)
	}
	got, err := st.AppointmentAt(context.Background(), "2024-01-10", 14)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != a.ID {
		t.Fatal("persisted appointment mismatch")
	}
}

func TestSecondUserLosesTheCell(t *testing.T) {
	m, _, _ := setup(t)
	ctx := context.Background()
	if _, err := m.Book(ctx, "u1", "Ada", wed, 14); err != nil {
		t.Fatal(err)
	}
	_, err := m.Book(ctx, "u2", "Ben", wed, 14)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}
}

func TestOneUpcomingBookingPerUser(t *testing.T) {
	m, _, _ := setup(t)
	ctx := context.Background()
	if _, err := m.Book(ctx, "u1", "Ada", wed, 14); err != nil {
		t.Fatal(err)
	}
	_, err := m.Book(ctx, "u1", "Ada", wed.AddDate(0, 0, 1), 10)
	if !errors.Is(err, ErrAlreadyBooked) {
		t.Fatalf("err = %v, want ErrAlreadyBooked", err)
	}
}

func TestBookBlockedAndPastSlots(t *testing.T) {
	m, st, _ := setup(t)
	ctx := context.Background()
	if err := st.CreateBreak(ctx, &model.Break{ID: "b1", FromTime: "12:00", ToTime: "13:00"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Book(ctx, "u1", "Ada", wed, 12); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("blocked cell: err = %v", err)
	}
	monday := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	if _, err := m.Book(ctx, "u1", "Ada", monday, 7); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("past cell: err = %v", err)
	}
}

func TestCancelOwnership(t *testing.T) {
	m, _, _ := setup(t)
	ctx := context.Background()
	a, err := m.Book(ctx, "u1", "Ada", wed, 14)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Cancel(ctx, a.ID, "u2", model.RoleUser); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger cancel: err = %v", err)
	}
	// administrative cancel by the dietician is allowed
	if err := m.Cancel(ctx, a.ID, "diet-1", model.RoleDietician); err != nil {
		t.Fatal(err)
	}
}

func TestSelfCancelDeletesRecord(t *testing.T) {
	m, st, _ := setup(t)
	ctx := context.Background()
	a, err := m.Book(ctx, "u1", "Ada", wed, 14)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Cancel(ctx, a.ID, "u1", model.RoleUser); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetAppointment(ctx, a.ID); err == nil {
		t.Fatal("record survives cancel")
	}
	// the cell is bookable again
	if _, err := m.Book(ctx, "u2", "Ben", wed, 14); err != nil {
		t.Fatal(err)
	}
}

func TestSweepRemovesPastAppointments(t *testing.T) {
	m, st, clk := setup(t)
	ctx := context.Background()
	a, err := m.Book(ctx, "u1", "Ada", wed, 14)
	if err != nil {
		t.Fatal(err)
	}

	clk.Set(time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC))
	n, err := m.SweepPast(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("swept %d", n)
	}
	if _, err := st.GetAppointment(ctx, a.ID); err == nil {
		t.Fatal("past appointment survives sweep")
	}
}

func TestWeekViewReflectsRecords(t *testing.T) {
	m, st, _ := setup(t)
	ctx := context.Background()
	if _, err := m.Book(ctx, "u1", "Ada", wed, 14); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateBreak(ctx, &model.Break{ID: "b1", FromTime: "12:00", ToTime: "13:00"}); err != nil {
		t.Fatal(err)
	}

	monday := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	days, err := m.WeekView(ctx, monday)
	if err != nil {
		t.Fatal(err)
	}
	var cell14, cell12 grid.Cell
	for _, c := range days[2].Cells {
		switch c.Hour {
		case 14:
			cell14 = c
		case 12:
			cell12 = c
		}
	}
	if cell14.State != grid.Booked {
		t.Fatalf("wed 14:00 = %s", cell14.State)
	}
	if cell12.State != grid.Blocked {
		t.Fatalf("wed 12:00 = %s", cell12.State)
	}
}
