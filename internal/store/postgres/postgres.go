// Package postgres is the authoritative record store. Writes notify the
// schedule_changes channel (triggers installed by the migration); the
// booking insert is conditional inside one transaction so the database,
// not the client snapshot, decides booking races.
package postgres

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"diet-scheduler/internal/store"
)

const changeChannel = "schedule_changes"

// unique_violation
const pgUniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger

	mu        sync.Mutex
	subs      []chan store.ChangeEvent
	listening bool

	ctx    context.Context
	cancel context.CancelFunc
}

func New(pool *pgxpool.Pool, log *zap.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{pool: pool, log: log, ctx: ctx, cancel: cancel}
}

// Close stops the change listener. The pool is owned by the caller.
func (s *Store) Close() {
	s.cancel()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// parseNotification decodes the "table|op|id" payload written by the
// notify trigger.
func parseNotification(payload string) (store.ChangeEvent, bool) {
	parts := strings.SplitN(payload, "|", 3)
	if len(parts) != 3 {
		return store.ChangeEvent{}, false
	}
	op := store.OpPut
	if parts[1] == "delete" {
		op = store.OpDelete
	}
	return store.ChangeEvent{Collection: parts[0], Op: op, ID: parts[2]}, true
}
