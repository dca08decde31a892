package model

import "time"

// Category identifies the life-cycle phase a checklist belongs to.
type Category string

const (
	CategoryPreArrival Category = "pre_arrival"
	CategoryFirstWeek  Category = "first_week"
	CategoryFirstMonth Category = "first_month"
	CategoryOngoing    Category = "ongoing"
	CategoryOPT        Category = "opt"
	CategoryCPT        Category = "cpt"
	CategoryTravel     Category = "travel"
	CategoryGraduation Category = "graduation"
	CategoryCustom     Category = "custom"
)

// Checklist status constants, derived from item completion.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Checklist is a user-owned, named collection of items.
type Checklist struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Category    Category   `json:"category" db:"category"`
	Color       string     `json:"color" db:"color"`
	Icon        string     `json:"icon" db:"icon"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	SortOrder   int        `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	// Items is the ordered flat item list. Hierarchy is derived from
	// each item's ParentID, never stored nested.
	Items []Item `json:"items,omitempty" db:"-"`
}

// Status derives the checklist status from its items' completion flags.
func (c *Checklist) Status() string {
	if len(c.Items) == 0 {
		return StatusNotStarted
	}
	done := 0
	for i := range c.Items {
		if c.Items[i].IsCompleted {
			done++
		}
	}
	switch done {
	case 0:
		return StatusNotStarted
	case len(c.Items):
		return StatusCompleted
	default:
		return StatusInProgress
	}
}

// ChecklistPatch holds optional replacement values for a checklist update.
// Nil fields are left unchanged.
type ChecklistPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Category    *Category   `json:"category,omitempty"`
	Color       *string     `json:"color,omitempty"`
	Icon        *string     `json:"icon,omitempty"`
	DueDate     **time.Time `json:"due_date,omitempty"`
	SortOrder   *int        `json:"sort_order,omitempty"`
}

// Apply merges the patch into the checklist and bumps UpdatedAt.
func (p ChecklistPatch) Apply(c *Checklist) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.DueDate != nil {
		c.DueDate = *p.DueDate
	}
	if p.SortOrder != nil {
		c.SortOrder = *p.SortOrder
	}
	c.UpdatedAt = time.Now().UTC()
}

// Progress is the completion summary for one or more checklists.
type Progress struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

// NewProgress computes a Progress with the percentage rounded half-up.
// A zero total yields zero percent.
func NewProgress(completed, total int) Progress {
	p := Progress{Total: total, Completed: completed}
	if total > 0 {
		p.Percentage = (completed*100 + total/2) / total
	}
	return p
}
