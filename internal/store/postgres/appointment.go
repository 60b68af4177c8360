package postgres

import (
	"context"
	"time"

	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store"
)

func (s *Store) CreateAppointmentIfFree(ctx context.Context, a *model.Appointment, now time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	dateKey := model.DateKey(a.Date)
	hour := a.Date.Hour()

	// covering break? inclusive on both hour bounds, same rule as the grid
	var blocked bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM breaks
			WHERE (specific_date IS NULL OR specific_date = $1::date)
			  AND split_part(from_time, ':', 1)::int <= $2
			  AND $2 <= split_part(to_time, ':', 1)::int
		)`, dateKey, hour,
	).Scan(&blocked)
	if err != nil {
		return err
	}
	if blocked {
		return store.ErrConflict
	}

	// one upcoming booking per user
	var hasUpcoming bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE user_id = $1 AND status = 'confirmed' AND date > $2
		)`, a.UserID, now,
	).Scan(&hasUpcoming)
	if err != nil {
		return err
	}
	if hasUpcoming {
		return store.ErrConflict
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO appointments (id, user_id, user_name, date, slot_date, slot_hour, status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.UserID, a.UserName, a.Date, dateKey, hour, a.Status, a.CreatedAt,
	)
	if err != nil {
		// the partial unique index caught a race
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, user_name, date, status, created_at
		 FROM appointments WHERE id = $1`, id,
	).Scan(&a.ID, &a.UserID, &a.UserName, &a.Date, &a.Status, &a.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	a.TimeSlot = model.SlotLabel(a.Date.Hour())
	return a, nil
}

func (s *Store) AppointmentAt(ctx context.Context, dateKey string, hour int) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, user_name, date, status, created_at
		 FROM appointments
		 WHERE slot_date = $1::date AND slot_hour = $2 AND status = 'confirmed'`,
		dateKey, hour,
	).Scan(&a.ID, &a.UserID, &a.UserName, &a.Date, &a.Status, &a.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	a.TimeSlot = model.SlotLabel(hour)
	return a, nil
}

func (s *Store) ListAppointments(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, user_name, date, slot_hour, status, created_at
		 FROM appointments
		 WHERE date >= $1 AND date < $2
		 ORDER BY date`, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		var hour int
		if err := rows.Scan(&a.ID, &a.UserID, &a.UserName, &a.Date, &hour, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.TimeSlot = model.SlotLabel(hour)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAppointmentsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
