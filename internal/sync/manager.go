// Package sync bridges the in-memory store to the checklist service.
// Every mutating operation is optimistic: the store changes first, the
// remote call follows, and a failure rolls the store back and records a
// user-facing error message.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/campuskit/checklists/internal/hierarchy"
	"github.com/campuskit/checklists/internal/model"
	"github.com/campuskit/checklists/internal/remote"
	"github.com/campuskit/checklists/internal/session"
	"github.com/campuskit/checklists/internal/store"
)

// User-facing failure messages, one per action category.
const (
	msgCreateChecklist = "Failed to create checklist. Please try again."
	msgUpdateChecklist = "Failed to update checklist. Please try again."
	msgDeleteChecklist = "Failed to delete checklist. Please try again."
	msgAddItem         = "Failed to add item. Please try again."
	msgUpdateItem      = "Failed to update item. Please try again."
	msgDeleteItem      = "Failed to delete item. Please try again."
	msgReorderItems    = "Failed to reorder items. Please try again."
	msgCopyTemplate    = "Failed to create checklist from template. Please try again."
)

// Snapshots is the subset of the local cache the manager uses for
// offline fallback and write-through.
type Snapshots interface {
	SaveSnapshot(ctx context.Context, userID string, checklists []model.Checklist) error
	LoadSnapshot(ctx context.Context, userID string) ([]model.Checklist, error)
	Clear(ctx context.Context, userID string) error
}

// Manager orchestrates optimistic mutations between the store and the
// checklist service. All methods are safe for concurrent use; two
// overlapping mutations to the same entity are resolved by the
// per-entity mutation sequence (last mutation wins at the client).
type Manager struct {
	store *store.Store
	svc   remote.Service
	snap  Snapshots // nil disables the offline snapshot

	mu      gosync.Mutex
	userID  string
	seq     map[string]uint64
	loadErr error
}

// NewManager creates a Manager. snap may be nil to disable the local
// snapshot cache.
func NewManager(st *store.Store, svc remote.Service, snap Snapshots) *Manager {
	return &Manager{
		store: st,
		svc:   svc,
		snap:  snap,
		seq:   make(map[string]uint64),
	}
}

// Watch subscribes to session changes and drives load/clear until the
// context is cancelled. Run it in its own goroutine.
func (m *Manager) Watch(ctx context.Context, n *session.Notifier) {
	id, ch := n.Subscribe()
	defer n.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			if change.Session == nil {
				m.handleSignOut()
			} else {
				m.setUser(change.Session.UserID)
				m.Load(ctx)
			}
		}
	}
}

func (m *Manager) setUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = userID
}

func (m *Manager) user() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

func (m *Manager) handleSignOut() {
	m.setUser("")
	m.store.SetChecklists(nil)
	m.store.ClearError()
}

// Load fetches the user's checklists and populates the store. A fetch
// failure is degraded silently: the local snapshot is served if one
// exists, otherwise an empty list. The failure is recorded and
// retrievable via LastLoadError, never surfaced on the store.
func (m *Manager) Load(ctx context.Context) {
	userID := m.user()
	if userID == "" {
		return
	}

	checklists, err := m.svc.FetchUserChecklists(ctx, userID)
	if err != nil {
		m.mu.Lock()
		m.loadErr = err
		m.mu.Unlock()

		if m.snap != nil {
			if cached, cacheErr := m.snap.LoadSnapshot(ctx, userID); cacheErr == nil && len(cached) > 0 {
				m.store.SetChecklists(cached)
				return
			}
		}
		m.store.SetChecklists(nil)
		return
	}

	m.mu.Lock()
	m.loadErr = nil
	m.mu.Unlock()

	m.store.SetChecklists(checklists)
	m.persist(ctx)
}

// LastLoadError returns the most recent load failure, nil after a
// successful load.
func (m *Manager) LastLoadError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadErr
}

// persist writes the current store contents through to the local
// snapshot. Best effort: a cache write failure never disturbs the
// in-memory state or surfaces to the user.
func (m *Manager) persist(ctx context.Context) {
	userID := m.user()
	if m.snap == nil || userID == "" {
		return
	}
	_ = m.snap.SaveSnapshot(ctx, userID, m.store.Checklists())
}

// CreateChecklist optimistically adds a checklist under a temporary id,
// then reconciles with the server-assigned entity. On success the
// editor dialog is closed.
func (m *Manager) CreateChecklist(
	ctx context.Context,
	draft remote.ChecklistDraft,
) error {
	userID := m.user()
	tempID := uuid.New().String()
	now := time.Now().UTC()

	optimistic := model.Checklist{
		ID:          tempID,
		UserID:      userID,
		Title:       draft.Title,
		Description: draft.Description,
		Category:    draft.Category,
		Color:       draft.Color,
		Icon:        draft.Icon,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var created *model.Checklist
	return m.mutate(ctx, mutation{
		entityID: tempID,
		apply: func() {
			m.store.AddChecklist(optimistic)
		},
		call: func(ctx context.Context) error {
			var err error
			created, err = m.svc.CreateChecklist(ctx, userID, draft)
			return err
		},
		rollback: func() {
			m.store.DeleteChecklist(tempID)
		},
		settle: func() {
			m.store.SwapChecklistID(tempID, *created)
			m.store.SetShowEditor(false)
		},
		action:  "creating checklist",
		failMsg: msgCreateChecklist,
	})
}

// UpdateChecklist applies a partial patch optimistically.
func (m *Manager) UpdateChecklist(
	ctx context.Context,
	id string,
	patch model.ChecklistPatch,
) error {
	prior, ok := m.store.Checklist(id)
	if !ok {
		return nil
	}

	return m.mutate(ctx, mutation{
		entityID: id,
		apply: func() {
			m.store.UpdateChecklist(id, patch)
		},
		call: func(ctx context.Context) error {
			return m.svc.UpdateChecklist(ctx, id, patch)
		},
		rollback: func() {
			m.store.ReplaceChecklist(prior)
		},
		action:  "updating checklist " + id,
		failMsg: msgUpdateChecklist,
	})
}

// DeleteChecklist removes a checklist and its items. Rollback restores
// the checklist at its previous table position.
func (m *Manager) DeleteChecklist(ctx context.Context, id string) error {
	prior, ok := m.store.Checklist(id)
	if !ok {
		return nil
	}
	index := m.store.ChecklistIndex(id)
	wasExpanded := m.store.IsExpanded(id)
	wasSelected := m.store.SelectedChecklist() == id

	return m.mutate(ctx, mutation{
		entityID: id,
		apply: func() {
			m.store.DeleteChecklist(id)
		},
		call: func(ctx context.Context) error {
			return m.svc.DeleteChecklist(ctx, id)
		},
		rollback: func() {
			m.store.InsertChecklist(index, prior)
			m.store.SetExpanded(id, wasExpanded)
			if wasSelected {
				m.store.SelectChecklist(id)
			}
		},
		action:  "deleting checklist " + id,
		failMsg: msgDeleteChecklist,
	})
}

// CreateItem optimistically appends an item under a temporary id.
func (m *Manager) CreateItem(
	ctx context.Context,
	draft remote.ItemDraft,
) error {
	userID := m.user()
	tempID := uuid.New().String()
	now := time.Now().UTC()

	if draft.Priority == "" {
		draft.Priority = model.PriorityMedium
	}
	if items, ok := m.store.Items(draft.ChecklistID); ok && draft.SortOrder == 0 {
		draft.SortOrder = len(items)
	}

	optimistic := model.Item{
		ID:          tempID,
		UserID:      userID,
		ChecklistID: draft.ChecklistID,
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		ParentID:    draft.ParentID,
		DueDate:     draft.DueDate,
		SortOrder:   draft.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var created *model.Item
	return m.mutate(ctx, mutation{
		entityID: tempID,
		apply: func() {
			m.store.AddItem(draft.ChecklistID, optimistic)
		},
		call: func(ctx context.Context) error {
			var err error
			created, err = m.svc.CreateItem(ctx, userID, draft)
			return err
		},
		rollback: func() {
			m.store.DeleteItem(draft.ChecklistID, tempID)
		},
		settle: func() {
			m.store.SwapItemID(draft.ChecklistID, tempID, *created)
		},
		action:  "creating item",
		failMsg: msgAddItem,
	})
}

// UpdateItem applies a partial patch optimistically.
func (m *Manager) UpdateItem(
	ctx context.Context,
	checklistID, itemID string,
	patch model.ItemPatch,
) error {
	prior, ok := m.store.Item(checklistID, itemID)
	if !ok {
		return nil
	}

	return m.mutate(ctx, mutation{
		entityID: itemID,
		apply: func() {
			m.store.UpdateItem(checklistID, itemID, patch)
		},
		call: func(ctx context.Context) error {
			return m.svc.UpdateItem(ctx, itemID, patch)
		},
		rollback: func() {
			m.store.ReplaceItem(checklistID, prior)
		},
		action:  "updating item " + itemID,
		failMsg: msgUpdateItem,
	})
}

// DeleteItem removes an item, promoting its direct children to the
// deleted item's parent. The promotions are mirrored remotely before
// the delete so the service never sees a dangling parent reference.
func (m *Manager) DeleteItem(ctx context.Context, checklistID, itemID string) error {
	priorItems, ok := m.store.Items(checklistID)
	if !ok {
		return nil
	}

	var target *model.Item
	for i := range priorItems {
		if priorItems[i].ID == itemID {
			target = &priorItems[i]
			break
		}
	}
	if target == nil {
		return nil
	}

	var promoted []string
	for _, it := range priorItems {
		if it.ParentID != nil && *it.ParentID == itemID {
			promoted = append(promoted, it.ID)
		}
	}
	grandparent := target.ParentID

	return m.mutate(ctx, mutation{
		entityID: itemID,
		apply: func() {
			m.store.DeleteItem(checklistID, itemID)
		},
		call: func(ctx context.Context) error {
			for _, childID := range promoted {
				patch := model.ItemPatch{ParentID: &grandparent}
				if err := m.svc.UpdateItem(ctx, childID, patch); err != nil {
					return err
				}
			}
			return m.svc.DeleteItem(ctx, itemID)
		},
		rollback: func() {
			m.store.SetItems(checklistID, priorItems)
		},
		action:  "deleting item " + itemID,
		failMsg: msgDeleteItem,
	})
}

// ToggleItem flips an item's completion state. Completing cascades to
// descendants locally; the service applies the same cascade on its side
// from the single toggle call.
func (m *Manager) ToggleItem(ctx context.Context, checklistID, itemID string) error {
	priorItems, ok := m.store.Items(checklistID)
	if !ok {
		return nil
	}

	var wasCompleted bool
	found := false
	for i := range priorItems {
		if priorItems[i].ID == itemID {
			wasCompleted = priorItems[i].IsCompleted
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	return m.mutate(ctx, mutation{
		entityID: itemID,
		apply: func() {
			m.store.ToggleItem(checklistID, itemID)
		},
		call: func(ctx context.Context) error {
			return m.svc.ToggleItem(ctx, itemID, !wasCompleted)
		},
		rollback: func() {
			m.store.SetItems(checklistID, priorItems)
		},
		action:  "toggling item " + itemID,
		failMsg: msgUpdateItem,
	})
}

// ReorderItems commits a new item order for one checklist, renumbering
// sort_order to array position both locally and remotely.
func (m *Manager) ReorderItems(
	ctx context.Context,
	checklistID string,
	items []model.Item,
) error {
	priorItems, ok := m.store.Items(checklistID)
	if !ok {
		return nil
	}

	entries := make([]remote.SortEntry, len(items))
	for i := range items {
		entries[i] = remote.SortEntry{ID: items[i].ID, SortOrder: i}
	}

	return m.mutate(ctx, mutation{
		entityID: checklistID,
		apply: func() {
			m.store.ReorderItems(checklistID, items)
		},
		call: func(ctx context.Context) error {
			return m.svc.ReorderItems(ctx, entries)
		},
		rollback: func() {
			m.store.SetItems(checklistID, priorItems)
		},
		action:  "reordering items in checklist " + checklistID,
		failMsg: msgReorderItems,
	})
}

// ReparentItem moves an item under a new parent (nil for root). A move
// that would make the item its own ancestor is rejected before any
// store mutation or remote call; the rejection is silent per the
// drag-and-drop contract.
func (m *Manager) ReparentItem(
	ctx context.Context,
	checklistID, itemID string,
	newParentID *string,
) error {
	items, ok := m.store.Items(checklistID)
	if !ok {
		return nil
	}
	if !hierarchy.CanReparent(items, itemID, newParentID) {
		return nil
	}

	patch := model.ItemPatch{ParentID: &newParentID}
	return m.UpdateItem(ctx, checklistID, itemID, patch)
}

// Templates fetches the shared checklist blueprints.
func (m *Manager) Templates(ctx context.Context) ([]model.Template, error) {
	return m.svc.FetchTemplates(ctx)
}

// CopyTemplate instantiates a template into a new user checklist. Not
// optimistic: the item contents are only known after the service call,
// so the checklist appears once the copy succeeds and the template
// picker closes.
func (m *Manager) CopyTemplate(ctx context.Context, templateID string) error {
	userID := m.user()

	created, err := m.svc.CopyTemplateToUser(ctx, userID, templateID)
	if err != nil {
		m.store.SetError(msgCopyTemplate)
		return err
	}

	m.store.AddChecklist(*created)
	m.store.SetShowTemplates(false)
	m.persist(ctx)
	return nil
}
