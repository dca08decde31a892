package model

import "time"

// Template is a shared, read-only checklist blueprint. Instantiating a
// template produces a new user-owned checklist with copies of its items.
type Template struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    Category       `json:"category"`
	Color       string         `json:"color"`
	Icon        string         `json:"icon"`
	Items       []TemplateItem `json:"items,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TemplateItem is a single blueprint entry within a template.
type TemplateItem struct {
	ID          string   `json:"id"`
	TemplateID  string   `json:"template_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	ParentID    *string  `json:"parent_id,omitempty"`
	SortOrder   int      `json:"sort_order"`
}
