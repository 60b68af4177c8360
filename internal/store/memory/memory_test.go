package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store"
)

var now = time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC)

func appt(id, userID string, day time.Time, hour int) *model.Appointment {
	slot := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)
	return &model.Appointment{
		ID:        id,
		UserID:    userID,
		UserName:  userID,
		Date:      slot,
		TimeSlot:  model.SlotLabel(hour),
		Status:    model.StatusConfirmed,
		CreatedAt: now,
	}
}

func TestConditionalCreateLosesOnTakenSlot(t *testing.T) {
	s := New()
	ctx := context.Background()
	wed := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	if err := s.CreateAppointmentIfFree(ctx, appt("a1", "u1", wed, 14), now); err != nil {
		t.Fatal(err)
	}
	err := s.CreateAppointmentIfFree(ctx, appt("a2", "u2", wed, 14), now)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestConditionalCreateLosesOnCoveringBreak(t *testing.T) {
	s := New()
	ctx := context.Background()
	wed := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	if err := s.CreateBreak(ctx, &model.Break{ID: "b1", FromTime: "14:00", ToTime: "15:00"}); err != nil {
		t.Fatal(err)
	}
	err := s.CreateAppointmentIfFree(ctx, appt("a1", "u1", wed, 14), now)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestConditionalCreateLosesOnSecondUpcoming(t *testing.T) {
	s := New()
	ctx := context.Background()
	wed := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	if err := s.CreateAppointmentIfFree(ctx, appt("a1", "u1", wed, 14), now); err != nil {
		t.Fatal(err)
	}
	err := s.CreateAppointmentIfFree(ctx, appt("a2", "u1", wed.AddDate(0, 0, 1), 10), now)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestDeleteBeforeSweepsOnlyPast(t *testing.T) {
	s := New()
	ctx := context.Background()
	past := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	future := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	// past rows bypass the conditional create in real flows too: they
	// were valid when written
	if err := s.CreateAppointmentIfFree(ctx, appt("a1", "u1", past, 14), past); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAppointmentIfFree(ctx, appt("a2", "u2", future, 14), now); err != nil {
		t.Fatal(err)
	}

	n, err := s.DeleteAppointmentsBefore(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("swept %d", n)
	}
	if _, err := s.GetAppointment(ctx, "a2"); err != nil {
		t.Fatal("future appointment swept")
	}
}

func TestSubscribeDeliversChanges(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}

	wed := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	if err := s.CreateAppointmentIfFree(context.Background(), appt("a1", "u1", wed, 14), now); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAppointment(context.Background(), "a1"); err != nil {
		t.Fatal(err)
	}

	want := []store.ChangeEvent{
		{Collection: store.Appointments, Op: store.OpPut, ID: "a1"},
		{Collection: store.Appointments, Op: store.OpDelete, ID: "a1"},
	}
	for i, w := range want {
		select {
		case ev := <-ch:
			if ev != w {
				t.Fatalf("event %d = %+v, want %+v", i, ev, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d never arrived", i)
		}
	}
}

func TestNoticeLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	n := &model.Notice{ID: "n1", UserID: "u1", Message: "cancelled", CreatedAt: now}
	if err := s.AppendNotice(ctx, n); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkNoticeRead(ctx, "n1"); err != nil {
		t.Fatal(err)
	}
	list, err := s.ListNotices(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || !list[0].Read {
		t.Fatalf("notices %+v", list)
	}
}
