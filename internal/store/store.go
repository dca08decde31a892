// Package store holds the canonical in-memory snapshot of the user's
// checklists plus transient UI state. All mutations are synchronous and
// pure with respect to I/O; the sync layer is responsible for pairing
// them with remote calls.
package store

import (
	"sync"

	"github.com/campuskit/checklists/internal/model"
)

// EventKind classifies a change notification.
type EventKind int

const (
	EventChecklists EventKind = iota // checklist table changed
	EventItems                       // items within one checklist changed
	EventUIState                     // filter, selection, expansion, dialogs
	EventError                       // error message changed
)

// Event is broadcast to subscribers after every mutation.
type Event struct {
	Kind        EventKind
	ChecklistID string
	ItemID      string
}

// Store is an observable table of checklists. It is safe for
// concurrent use; subscribers receive change events on buffered
// channels with non-blocking sends, so a slow subscriber drops events
// rather than stalling mutations.
type Store struct {
	mu sync.RWMutex

	checklists []model.Checklist

	// UI state.
	expanded      map[string]bool
	selectedID    string
	filter        Filter
	errMsg        string
	showTemplates bool
	showEditor    bool

	subs    map[int]chan Event
	nextSub int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		expanded: make(map[string]bool),
		filter:   DefaultFilter(),
		subs:     make(map[int]chan Event),
	}
}

// Subscribe registers a change listener. The returned channel is
// buffered; events are dropped rather than blocking a mutation. Call
// Unsubscribe with the returned id when done.
func (s *Store) Subscribe() (int, <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 32)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// broadcast sends an event to every subscriber without blocking.
// Callers must hold s.mu.
func (s *Store) broadcast(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is behind; drop rather than stall.
		}
	}
}

// Checklists returns a deep copy of the checklist table.
func (s *Store) Checklists() []model.Checklist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyChecklists(s.checklists)
}

// Checklist returns a deep copy of one checklist by id.
func (s *Store) Checklist(id string) (model.Checklist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.checklists {
		if s.checklists[i].ID == id {
			return copyChecklist(s.checklists[i]), true
		}
	}
	return model.Checklist{}, false
}

// Item returns a deep copy of one item.
func (s *Store) Item(checklistID, itemID string) (model.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.checklists {
		if s.checklists[i].ID != checklistID {
			continue
		}
		for j := range s.checklists[i].Items {
			if s.checklists[i].Items[j].ID == itemID {
				return copyItem(s.checklists[i].Items[j]), true
			}
		}
	}
	return model.Item{}, false
}

// Items returns a deep copy of one checklist's item list.
func (s *Store) Items(checklistID string) ([]model.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.checklists {
		if s.checklists[i].ID == checklistID {
			return copyItems(s.checklists[i].Items), true
		}
	}
	return nil, false
}

// === UI state ===

// SelectChecklist records which checklist the UI is focused on.
func (s *Store) SelectChecklist(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = id
	s.broadcast(Event{Kind: EventUIState, ChecklistID: id})
}

// SelectedChecklist returns the focused checklist id, if any.
func (s *Store) SelectedChecklist() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// SetExpanded marks a checklist's item tree as expanded or collapsed.
func (s *Store) SetExpanded(id string, expanded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expanded {
		s.expanded[id] = true
	} else {
		delete(s.expanded, id)
	}
	s.broadcast(Event{Kind: EventUIState, ChecklistID: id})
}

// IsExpanded reports whether a checklist's item tree is expanded.
func (s *Store) IsExpanded(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded[id]
}

// SetShowTemplates toggles the template-picker dialog flag.
func (s *Store) SetShowTemplates(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showTemplates = show
	s.broadcast(Event{Kind: EventUIState})
}

// ShowTemplates reports the template-picker dialog flag.
func (s *Store) ShowTemplates() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showTemplates
}

// SetShowEditor toggles the checklist-editor dialog flag.
func (s *Store) SetShowEditor(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showEditor = show
	s.broadcast(Event{Kind: EventUIState})
}

// ShowEditor reports the checklist-editor dialog flag.
func (s *Store) ShowEditor() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showEditor
}

// SetError records the most recent mutation failure message. It is a
// single slot, not a log; successful operations do not clear it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
	s.broadcast(Event{Kind: EventError})
}

// ClearError resets the failure message.
func (s *Store) ClearError() {
	s.SetError("")
}

// Error returns the most recent mutation failure message, empty when none.
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// === copy helpers ===

func copyChecklists(src []model.Checklist) []model.Checklist {
	out := make([]model.Checklist, len(src))
	for i := range src {
		out[i] = copyChecklist(src[i])
	}
	return out
}

func copyChecklist(c model.Checklist) model.Checklist {
	c.Items = copyItems(c.Items)
	return c
}

func copyItems(src []model.Item) []model.Item {
	if src == nil {
		return nil
	}
	out := make([]model.Item, len(src))
	for i := range src {
		out[i] = copyItem(src[i])
	}
	return out
}

func copyItem(it model.Item) model.Item {
	if it.Tags != nil {
		it.Tags = append([]string(nil), it.Tags...)
	}
	return it
}
