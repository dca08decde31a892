package model

import "time"

// Priority levels for checklist items.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Item is a single task within a checklist, optionally nested under a
// parent item of the same checklist.
type Item struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	ChecklistID string     `json:"checklist_id" db:"checklist_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	IsCompleted bool       `json:"is_completed" db:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	Priority    Priority   `json:"priority" db:"priority"`
	ParentID    *string    `json:"parent_id,omitempty" db:"parent_id"`
	SortOrder   int        `json:"sort_order" db:"sort_order"`
	Tags        []string   `json:"tags,omitempty" db:"-"`
	Notes       string     `json:"notes" db:"notes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// ItemPatch holds optional replacement values for an item update.
// Nil fields are left unchanged. ParentID uses a double pointer so a
// patch can distinguish "leave alone" from "set to root".
type ItemPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	DueDate     **time.Time `json:"due_date,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	ParentID    **string    `json:"parent_id,omitempty"`
	SortOrder   *int        `json:"sort_order,omitempty"`
	Tags        *[]string   `json:"tags,omitempty"`
	Notes       *string     `json:"notes,omitempty"`
}

// Apply merges the patch into the item and bumps UpdatedAt.
func (p ItemPatch) Apply(it *Item) {
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.DueDate != nil {
		it.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		it.Priority = *p.Priority
	}
	if p.ParentID != nil {
		it.ParentID = *p.ParentID
	}
	if p.SortOrder != nil {
		it.SortOrder = *p.SortOrder
	}
	if p.Tags != nil {
		it.Tags = *p.Tags
	}
	if p.Notes != nil {
		it.Notes = *p.Notes
	}
	it.UpdatedAt = time.Now().UTC()
}
