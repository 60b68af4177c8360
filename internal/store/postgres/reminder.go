package postgres

import (
	"context"

	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store"
)

func (s *Store) PutReminder(ctx context.Context, r *model.Reminder) error {
	days := make([]int32, len(r.SelectedDays))
	for i, d := range r.SelectedDays {
		days[i] = int32(d)
	}
	var scheduled any
	if r.ScheduledID != "" {
		scheduled = r.ScheduledID
	}
	backups := r.BackupIDs
	if backups == nil {
		backups = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reminders (id, user_id, message, remind_time, selected_days, source, scheduled_id, backup_ids)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET
		   message = EXCLUDED.message,
		   remind_time = EXCLUDED.remind_time,
		   selected_days = EXCLUDED.selected_days,
		   source = EXCLUDED.source,
		   scheduled_id = EXCLUDED.scheduled_id,
		   backup_ids = EXCLUDED.backup_ids`,
		r.ID, r.UserID, r.Message, r.Time, days, r.Source, scheduled, backups,
	)
	return err
}

func (s *Store) GetReminder(ctx context.Context, id string) (*model.Reminder, error) {
	r, err := scanReminder(s.pool.QueryRow(ctx, reminderSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return r, nil
}

func (s *Store) ListReminders(ctx context.Context, userID string) ([]model.Reminder, error) {
	return s.queryReminders(ctx, reminderSelect+` WHERE user_id = $1 ORDER BY id`, userID)
}

func (s *Store) ListAllReminders(ctx context.Context) ([]model.Reminder, error) {
	return s.queryReminders(ctx, reminderSelect+` ORDER BY id`)
}

func (s *Store) DeleteReminder(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const reminderSelect = `SELECT id, user_id, message, remind_time, selected_days, source, scheduled_id, backup_ids FROM reminders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*model.Reminder, error) {
	r := &model.Reminder{}
	var days []int32
	var scheduled *string
	if err := row.Scan(&r.ID, &r.UserID, &r.Message, &r.Time, &days, &r.Source, &scheduled, &r.BackupIDs); err != nil {
		return nil, err
	}
	r.SelectedDays = make([]int, len(days))
	for i, d := range days {
		r.SelectedDays[i] = int(d)
	}
	if scheduled != nil {
		r.ScheduledID = *scheduled
	}
	return r, nil
}

func (s *Store) queryReminders(ctx context.Context, q string, args ...any) ([]model.Reminder, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
