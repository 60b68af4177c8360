package postgres

import (
	"context"
	"time"

	"go.uber.org/zap"

	"diet-scheduler/internal/store"
)

// Subscribe fans out the schedule_changes NOTIFY stream. The LISTEN loop
// starts on first use and runs until Close.
func (s *Store) Subscribe(ctx context.Context) (<-chan store.ChangeEvent, error) {
	ch := make(chan store.ChangeEvent, 64)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	if !s.listening {
		s.listening = true
		go s.listen()
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}()
	return ch, nil
}

func (s *Store) listen() {
	for {
		if err := s.listenOnce(); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.Warn("change listener lost, reconnecting", zap.Error(err))
			select {
			case <-time.After(2 * time.Second):
			case <-s.ctx.Done():
				return
			}
		}
	}
}

func (s *Store) listenOnce() error {
	conn, err := s.pool.Acquire(s.ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(s.ctx, "LISTEN "+changeChannel); err != nil {
		return err
	}
	for {
		n, err := conn.Conn().WaitForNotification(s.ctx)
		if err != nil {
			return err
		}
		ev, ok := parseNotification(n.Payload)
		if !ok {
			s.log.Warn("unparseable change payload", zap.String("payload", n.Payload))
			continue
		}
		s.fanout(ev)
	}
}

func (s *Store) fanout(ev store.ChangeEvent) {
	s.mu.Lock()
	subs := make([]chan store.ChangeEvent, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- ev:
		default: // slow subscriber, drop; consumers recompute from the full set
		}
	}
}
