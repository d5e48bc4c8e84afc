// Package events fans perception records out over NATS.
//
// Each record is published as JSON to
//
//	{prefix}.{user_id}
//
// so subscribers can follow one speaker with an exact subject or everyone
// with {prefix}.>.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/logging"
	"github.com/fyrsmithlabs/perceptd/internal/nlu"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "perception.records"

// ErrNoConnection is returned when the publisher has no NATS connection.
var ErrNoConnection = errors.New("nats connection required")

// Event is the published message body.
type Event struct {
	ID          string               `json:"id"`
	UserID      string               `json:"user_id"`
	Record      nlu.PerceptionRecord `json:"record"`
	PublishedAt time.Time            `json:"published_at"`
}

// Publisher publishes perception records. It satisfies perception.Sink.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	owned  bool
	logger *logging.Logger
}

// Connect dials url and returns a Publisher that owns the connection.
func Connect(url, prefix string, logger *logging.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("perceptd"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	p, err := NewPublisher(nc, prefix, logger)
	if err != nil {
		nc.Close()
		return nil, err
	}
	p.owned = true
	return p, nil
}

// NewPublisher wraps an existing connection. Close leaves nc open.
func NewPublisher(nc *nats.Conn, prefix string, logger *logging.Logger) (*Publisher, error) {
	if nc == nil {
		return nil, ErrNoConnection
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Publisher{nc: nc, prefix: strings.TrimSuffix(prefix, "."), logger: logger.Named("events")}, nil
}

// Subject returns the subject records for userID are published on.
func (p *Publisher) Subject(userID string) string {
	return p.prefix + "." + subjectToken(userID)
}

// Remember publishes rec for userID.
func (p *Publisher) Remember(ctx context.Context, id, userID string, rec nlu.PerceptionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(Event{ID: id, UserID: userID, Record: rec, PublishedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.Subject(userID)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish perception event: %w", err)
	}
	p.logger.Trace(ctx, "perception event published", zap.String("subject", subject), zap.String("analysis.id", id))
	return nil
}

// Close drains the connection when the publisher owns it.
func (p *Publisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}

// subjectToken maps an id to a single NATS subject token. Wildcards,
// separators and whitespace become underscores.
func subjectToken(id string) string {
	if id == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
