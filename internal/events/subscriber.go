package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/logging"
)

// Subscription delivers decoded events from a subject. Messages that
// arrive while the buffer is full are dropped and counted.
type Subscription struct {
	sub     *nats.Subscription
	events  chan Event
	dropped atomic.Int64
	logger  *logging.Logger

	// mu orders channel sends against close.
	mu     sync.RWMutex
	closed bool
}

// AllSubject returns the wildcard subject covering every speaker.
func AllSubject(prefix string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return strings.TrimSuffix(prefix, ".") + ".>"
}

// UserSubject returns the subject for one speaker.
func UserSubject(prefix, userID string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return strings.TrimSuffix(prefix, ".") + "." + subjectToken(userID)
}

// Subscribe listens on subject. buffer <= 0 means 64.
func Subscribe(nc *nats.Conn, subject string, buffer int, logger *logging.Logger) (*Subscription, error) {
	if nc == nil {
		return nil, ErrNoConnection
	}
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Subscription{events: make(chan Event, buffer), logger: logger.Named("events")}
	sub, err := nc.Subscribe(subject, s.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	if err := nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flush subscription %s: %w", subject, err)
	}
	s.sub = sub
	return s, nil
}

// handle runs on the NATS delivery goroutine.
func (s *Subscription) handle(msg *nats.Msg) {
	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		s.logger.Underlying().Warn("dropping malformed perception event",
			zap.String("subject", msg.Subject), zap.Error(err))
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Events returns the delivery channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Dropped returns how many events were discarded on a full buffer.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unsubscribes and closes the events channel.
func (s *Subscription) Close() error {
	err := s.sub.Unsubscribe()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return err
}
