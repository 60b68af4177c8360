package postgres

import (
	"context"

	"diet-scheduler/internal/model"
	"diet-scheduler/internal/store"
)

func (s *Store) AppendNotice(ctx context.Context, n *model.Notice) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notices (id, user_id, message, created_at, read) VALUES ($1,$2,$3,$4,$5)`,
		n.ID, n.UserID, n.Message, n.CreatedAt, n.Read,
	)
	return err
}

func (s *Store) ListNotices(ctx context.Context, userID string) ([]model.Notice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, message, created_at, read
		 FROM notices WHERE user_id = $1 ORDER BY created_at`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notice
	for rows.Next() {
		var n model.Notice
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.CreatedAt, &n.Read); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkNoticeRead(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notices SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
