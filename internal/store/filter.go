package store

import (
	"strings"

	"github.com/campuskit/checklists/internal/model"
)

// Filter status values. FilterAll is shared by every dimension.
const (
	FilterAll        = "all"
	FilterCompleted  = "completed"
	FilterNotStarted = "not_started"
	FilterInProgress = "in_progress"
)

// Filter is ephemeral view state applied to read paths only; it is
// never persisted remotely.
type Filter struct {
	Status   string         // "all", "completed", "not_started", "in_progress"
	Priority model.Priority // exact level, or "" / FilterAll for all
	Search   string         // case-insensitive substring over titles
	Category model.Category // exact category, or "" / FilterAll for all
}

// DefaultFilter matches every checklist.
func DefaultFilter() Filter {
	return Filter{Status: FilterAll}
}

// SetFilter replaces the active filter.
func (s *Store) SetFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	s.broadcast(Event{Kind: EventUIState})
}

// Filter returns the active filter.
func (s *Store) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// FilteredChecklists returns deep copies of the checklists matching the
// active filter. A checklist is included only if every dimension passes.
func (s *Store) FilteredChecklists() []model.Checklist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Checklist
	for i := range s.checklists {
		if s.filter.matches(&s.checklists[i]) {
			out = append(out, copyChecklist(s.checklists[i]))
		}
	}
	return out
}

func (f Filter) matches(c *model.Checklist) bool {
	return f.matchesStatus(c) &&
		f.matchesCategory(c) &&
		f.matchesSearch(c) &&
		f.matchesPriority(c)
}

// matchesStatus applies the completion-state rule: "completed" means
// every item is done (vacuously true for an empty checklist),
// "not_started" means at least one item is open, and "in_progress"
// means at least one done and at least one open.
func (f Filter) matchesStatus(c *model.Checklist) bool {
	if f.Status == "" || f.Status == FilterAll {
		return true
	}

	done, open := 0, 0
	for i := range c.Items {
		if c.Items[i].IsCompleted {
			done++
		} else {
			open++
		}
	}

	switch f.Status {
	case FilterCompleted:
		return open == 0
	case FilterNotStarted:
		return open > 0
	case FilterInProgress:
		return done > 0 && open > 0
	default:
		return true
	}
}

func (f Filter) matchesCategory(c *model.Checklist) bool {
	if f.Category == "" || f.Category == model.Category(FilterAll) {
		return true
	}
	return c.Category == f.Category
}

// matchesSearch requires the search term (case-insensitive) to appear
// in the checklist title or in at least one item title.
func (f Filter) matchesSearch(c *model.Checklist) bool {
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(c.Title), needle) {
		return true
	}
	for i := range c.Items {
		if strings.Contains(strings.ToLower(c.Items[i].Title), needle) {
			return true
		}
	}
	return false
}

// matchesPriority requires at least one incomplete item at the exact
// filtered level.
func (f Filter) matchesPriority(c *model.Checklist) bool {
	if f.Priority == "" || f.Priority == model.Priority(FilterAll) {
		return true
	}
	for i := range c.Items {
		if !c.Items[i].IsCompleted && c.Items[i].Priority == f.Priority {
			return true
		}
	}
	return false
}

// ChecklistProgress computes the completion summary for one checklist.
// An unknown id yields an all-zero Progress.
func (s *Store) ChecklistProgress(id string) model.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.checklists {
		if s.checklists[i].ID != id {
			continue
		}
		done := 0
		for j := range s.checklists[i].Items {
			if s.checklists[i].Items[j].IsCompleted {
				done++
			}
		}
		return model.NewProgress(done, len(s.checklists[i].Items))
	}
	return model.Progress{}
}

// OverallProgress computes the completion summary across every
// checklist in the store.
func (s *Store) OverallProgress() model.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	done, total := 0, 0
	for i := range s.checklists {
		for j := range s.checklists[i].Items {
			total++
			if s.checklists[i].Items[j].IsCompleted {
				done++
			}
		}
	}
	return model.NewProgress(done, total)
}
