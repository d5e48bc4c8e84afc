package memory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/nlu"
)

// Recall is the context assembled for a user from both tiers.
type Recall struct {
	Working  []Entry `json:"working_memory"`
	LongTerm []Entry `json:"long_term_memory"`
}

// Manager coordinates the two tiers.
type Manager struct {
	working  *WorkingMemory
	longTerm *LongTermMemory
	stores   []Store
	logger   *zap.Logger
}

// NewManager returns a Manager. The stores passed are closed by Close.
func NewManager(working *WorkingMemory, longTerm *LongTermMemory, logger *zap.Logger, stores ...Store) (*Manager, error) {
	if working == nil || longTerm == nil {
		return nil, fmt.Errorf("%w: both memory tiers are required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{working: working, longTerm: longTerm, stores: stores, logger: logger}, nil
}

// Working returns the working-memory tier.
func (m *Manager) Working() *WorkingMemory { return m.working }

// LongTerm returns the long-term tier.
func (m *Manager) LongTerm() *LongTermMemory { return m.longTerm }

// Remember writes rec to both tiers. A failure in one tier does not stop the
// other; both errors are returned joined.
func (m *Manager) Remember(ctx context.Context, id, userID string, rec nlu.PerceptionRecord) error {
	var errs []error
	if err := m.working.Store(ctx, id, userID, rec); err != nil {
		errs = append(errs, err)
	}
	if err := m.longTerm.Store(ctx, id, userID, rec); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	m.logger.Debug("record remembered",
		zap.String("id", id),
		zap.String("user_id", userID),
	)
	return nil
}

// Context returns working-memory and long-term hits for query.
func (m *Manager) Context(ctx context.Context, userID, query string) (*Recall, error) {
	working, err := m.working.Retrieve(ctx, query, 0)
	if err != nil {
		return nil, err
	}
	longTerm, err := m.longTerm.Retrieve(ctx, userID, query, 0)
	if err != nil {
		return nil, err
	}
	return &Recall{Working: working, LongTerm: longTerm}, nil
}

// Close closes the underlying stores.
func (m *Manager) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
