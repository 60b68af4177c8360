package postgres

import (
	"context"
	"database/sql"
	"time"

	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store"
)

func (s *Store) CreateBreak(ctx context.Context, b *model.Break) error {
	var specific any
	if b.SpecificDate != "" {
		specific = b.SpecificDate
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO breaks (id, from_time, to_time, specific_date) VALUES ($1,$2,$3,$4::date)`,
		b.ID, b.FromTime, b.ToTime, specific,
	)
	return err
}

func (s *Store) ListBreaks(ctx context.Context) ([]model.Break, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, from_time, to_time, specific_date FROM breaks ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Break
	for rows.Next() {
		var b model.Break
		var specific sql.NullTime
		if err := rows.Scan(&b.ID, &b.FromTime, &b.ToTime, &specific); err != nil {
			return nil, err
		}
		if specific.Valid {
			b.SpecificDate = specific.Time.Format(time.DateOnly)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) DeleteBreak(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM breaks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
