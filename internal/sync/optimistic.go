package sync

import (
	"context"
	"fmt"
)

// mutation describes one optimistic store mutation paired with its
// remote call. The sequence of events is fixed: apply locally, issue
// the remote call, and on failure roll the store back and record a
// user-facing message.
type mutation struct {
	// entityID keys the per-entity mutation sequence. A rollback is
	// skipped when a later mutation has touched the same entity, so an
	// early failure cannot clobber a newer optimistic state.
	entityID string

	// apply performs the optimistic store mutation.
	apply func()

	// call issues the remote operation.
	call func(ctx context.Context) error

	// rollback restores the captured pre-mutation value(s).
	rollback func()

	// settle runs after a successful remote call (reconcile ids,
	// close dialogs). Skipped when a later mutation superseded this one.
	settle func()

	// action is the gerund phrase used for error wrapping.
	action string

	// failMsg is the short, action-specific message surfaced on failure.
	failMsg string
}

// mutate runs the optimistic update protocol for one mutation. The
// returned error wraps the remote failure so callers can react beyond
// the store's error field.
func (m *Manager) mutate(ctx context.Context, mut mutation) error {
	seq := m.bumpSeq(mut.entityID)

	mut.apply()

	if err := mut.call(ctx); err != nil {
		if m.isLatest(mut.entityID, seq) && mut.rollback != nil {
			mut.rollback()
		}
		m.store.SetError(mut.failMsg)
		return fmt.Errorf("%s: %w", mut.action, err)
	}

	if m.isLatest(mut.entityID, seq) && mut.settle != nil {
		mut.settle()
	}

	m.persist(ctx)
	return nil
}

// bumpSeq advances and returns the mutation sequence for an entity.
func (m *Manager) bumpSeq(entityID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq[entityID]++
	return m.seq[entityID]
}

// isLatest reports whether seq is still the newest mutation for an entity.
func (m *Manager) isLatest(entityID string, seq uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq[entityID] == seq
}
