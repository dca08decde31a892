package store

import (
	"time"

	"github.com/campuskit/checklists/internal/hierarchy"
	"github.com/campuskit/checklists/internal/model"
)

// SetChecklists replaces the whole checklist table.
func (s *Store) SetChecklists(list []model.Checklist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checklists = copyChecklists(list)
	s.broadcast(Event{Kind: EventChecklists})
}

// AddChecklist appends a checklist and expands it in the UI.
func (s *Store) AddChecklist(c model.Checklist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checklists = append(s.checklists, copyChecklist(c))
	s.expanded[c.ID] = true
	s.broadcast(Event{Kind: EventChecklists, ChecklistID: c.ID})
}

// UpdateChecklist shallow-merges a patch into the matching checklist.
// No-op when the id is absent.
func (s *Store) UpdateChecklist(id string, patch model.ChecklistPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.checklists {
		if s.checklists[i].ID == id {
			patch.Apply(&s.checklists[i])
			s.broadcast(Event{Kind: EventChecklists, ChecklistID: id})
			return
		}
	}
}

// ReplaceChecklist swaps in a full checklist value by id, used by the
// sync layer for rollback and for reconciling server-assigned entities.
func (s *Store) ReplaceChecklist(c model.Checklist) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.checklists {
		if s.checklists[i].ID == c.ID {
			s.checklists[i] = copyChecklist(c)
			s.broadcast(Event{Kind: EventChecklists, ChecklistID: c.ID})
			return
		}
	}
}

// SwapChecklistID re-keys an optimistically created checklist to the
// server-assigned entity, preserving UI expansion and selection.
func (s *Store) SwapChecklistID(tempID string, c model.Checklist) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.checklists {
		if s.checklists[i].ID == tempID {
			s.checklists[i] = copyChecklist(c)
			if s.expanded[tempID] {
				delete(s.expanded, tempID)
				s.expanded[c.ID] = true
			}
			if s.selectedID == tempID {
				s.selectedID = c.ID
			}
			s.broadcast(Event{Kind: EventChecklists, ChecklistID: c.ID})
			return
		}
	}
}

// InsertChecklist puts a checklist back at a given table position,
// used by the sync layer to roll back a failed delete. Positions past
// the end append.
func (s *Store) InsertChecklist(index int, c model.Checklist) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index > len(s.checklists) {
		index = len(s.checklists)
	}
	s.checklists = append(s.checklists, model.Checklist{})
	copy(s.checklists[index+1:], s.checklists[index:])
	s.checklists[index] = copyChecklist(c)
	s.broadcast(Event{Kind: EventChecklists, ChecklistID: c.ID})
}

// ChecklistIndex returns a checklist's position in the table, -1 when absent.
func (s *Store) ChecklistIndex(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.checklists {
		if s.checklists[i].ID == id {
			return i
		}
	}
	return -1
}

// DeleteChecklist removes a checklist and all of its items, dropping it
// from the expanded set and clearing the selection if it was focused.
func (s *Store) DeleteChecklist(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.checklists[:0]
	for i := range s.checklists {
		if s.checklists[i].ID != id {
			kept = append(kept, s.checklists[i])
		}
	}
	s.checklists = kept
	delete(s.expanded, id)
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.broadcast(Event{Kind: EventChecklists, ChecklistID: id})
}

// AddItem appends an item to its checklist's item array.
func (s *Store) AddItem(checklistID string, it model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.checklists {
		if s.checklists[i].ID == checklistID {
			s.checklists[i].Items = append(s.checklists[i].Items, copyItem(it))
			s.broadcast(Event{Kind: EventItems, ChecklistID: checklistID, ItemID: it.ID})
			return
		}
	}
}

// UpdateItem shallow-merges a patch into the matching item.
func (s *Store) UpdateItem(checklistID, itemID string, patch model.ItemPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.checklists {
		if s.checklists[i].ID != checklistID {
			continue
		}
		for j := range s.checklists[i].Items {
			if s.checklists[i].Items[j].ID == itemID {
				patch.Apply(&s.checklists[i].Items[j])
				s.broadcast(Event{Kind: EventItems, ChecklistID: checklistID, ItemID: itemID})
				return
			}
		}
	}
}

// ReplaceItem swaps in a full item value, used for rollback.
func (s *Store) ReplaceItem(checklistID string, it model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.checklists {
		if s.checklists[i].ID != checklistID {
			continue
		}
		for j := range s.checklists[i].Items {
			if s.checklists[i].Items[j].ID == it.ID {
				s.checklists[i].Items[j] = copyItem(it)
				s.broadcast(Event{Kind: EventItems, ChecklistID: checklistID, ItemID: it.ID})
				return
			}
		}
	}
}

// SwapItemID re-keys an optimistically created item to the
// server-assigned entity.
func (s *Store) SwapItemID(checklistID, tempID string, it model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.checklists {
		if s.checklists[i].ID != checklistID {
			continue
		}
		items := s.checklists[i].Items
		for j := range items {
			if items[j].ID == tempID {
				items[j] = copyItem(it)
			} else if items[j].ParentID != nil && *items[j].ParentID == tempID {
				id := it.ID
				items[j].ParentID = &id
			}
		}
		s.broadcast(Event{Kind: EventItems, ChecklistID: checklistID, ItemID: it.ID})
		return
	}
}

// DeleteItem removes an item, promoting its direct children to the
// deleted item's own parent so no item is left pointing at a missing
// parent. Relative sort order is untouched.
func (s *Store) DeleteItem(checklistID, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.checklists {
		if s.checklists[i].ID != checklistID {
			continue
		}

		var grandparent *string
		for j := range s.checklists[i].Items {
			if s.checklists[i].Items[j].ID == itemID {
				grandparent = s.checklists[i].Items[j].ParentID
				break
			}
		}

		kept := s.checklists[i].Items[:0]
		for _, it := range s.checklists[i].Items {
			if it.ID == itemID {
				continue
			}
			if it.ParentID != nil && *it.ParentID == itemID {
				it.ParentID = grandparent
			}
			kept = append(kept, it)
		}
		s.checklists[i].Items = kept
		s.broadcast(Event{Kind: EventItems, ChecklistID: checklistID, ItemID: itemID})
		return
	}
}

// ToggleItem flips an item's completion flag. Completing cascades to
// every descendant, stamping all affected items with one shared
// completion time; un-completing touches only the target item.
func (s *Store) ToggleItem(checklistID, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.checklists {
		if s.checklists[i].ID != checklistID {
			continue
		}
		items := s.checklists[i].Items

		var target *model.Item
		for j := range items {
			if items[j].ID == itemID {
				target = &items[j]
				break
			}
		}
		if target == nil {
			return
		}

		now := time.Now().UTC()
		if target.IsCompleted {
			target.IsCompleted = false
			target.CompletedAt = nil
			target.UpdatedAt = now
		} else {
			affected := map[string]bool{itemID: true}
			for _, id := range hierarchy.Descendants(items, itemID) {
				affected[id] = true
			}
			for j := range items {
				if !affected[items[j].ID] {
					continue
				}
				items[j].IsCompleted = true
				stamp := now
				items[j].CompletedAt = &stamp
				items[j].UpdatedAt = now
			}
		}

		s.broadcast(Event{Kind: EventItems, ChecklistID: checklistID, ItemID: itemID})
		return
	}
}

// SetItems replaces a checklist's item array without renumbering,
// used by the sync layer to roll back item-level mutations.
func (s *Store) SetItems(checklistID string, items []model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.checklists {
		if s.checklists[i].ID == checklistID {
			s.checklists[i].Items = copyItems(items)
			s.broadcast(Event{Kind: EventItems, ChecklistID: checklistID})
			return
		}
	}
}

// ReorderItems replaces a checklist's item array wholesale, renumbering
// sort_order to array position.
func (s *Store) ReorderItems(checklistID string, items []model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.checklists {
		if s.checklists[i].ID == checklistID {
			next := copyItems(items)
			for j := range next {
				next[j].SortOrder = j
			}
			s.checklists[i].Items = next
			s.broadcast(Event{Kind: EventItems, ChecklistID: checklistID})
			return
		}
	}
}
