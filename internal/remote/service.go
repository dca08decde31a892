// Package remote talks to the checklist service over HTTP. The Service
// interface is the persistence contract the sync layer depends on; the
// Client type is its production implementation.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuskit/checklists/internal/model"
)

// AuthError indicates that authentication has failed or expired.
// It is returned when the service responds with 401 or 403.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ErrNotFound is returned when the service reports a missing entity.
var ErrNotFound = errors.New("entity not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ChecklistDraft carries the user-supplied fields of a new checklist.
type ChecklistDraft struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Category    model.Category `json:"category"`
	Color       string         `json:"color"`
	Icon        string         `json:"icon,omitempty"`
}

// ItemDraft carries the user-supplied fields of a new item.
type ItemDraft struct {
	ChecklistID string         `json:"checklist_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Priority    model.Priority `json:"priority"`
	ParentID    *string        `json:"parent_id,omitempty"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	SortOrder   int            `json:"sort_order"`
}

// SortEntry is one (id, position) pair of a reorder request.
type SortEntry struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sort_order"`
}

// Service is the persistence contract for user checklists. All calls
// are keyed by entity id; the service enforces ownership and cascade
// deletion on its side.
type Service interface {
	// FetchUserChecklists returns every checklist (with nested items)
	// owned by the user.
	FetchUserChecklists(ctx context.Context, userID string) ([]model.Checklist, error)

	CreateChecklist(ctx context.Context, userID string, draft ChecklistDraft) (*model.Checklist, error)
	UpdateChecklist(ctx context.Context, id string, patch model.ChecklistPatch) error
	DeleteChecklist(ctx context.Context, id string) error

	CreateItem(ctx context.Context, userID string, draft ItemDraft) (*model.Item, error)
	UpdateItem(ctx context.Context, id string, patch model.ItemPatch) error
	DeleteItem(ctx context.Context, id string) error
	ToggleItem(ctx context.Context, id string, completed bool) error
	ReorderItems(ctx context.Context, entries []SortEntry) error

	// FetchTemplates lists the shared checklist blueprints.
	FetchTemplates(ctx context.Context) ([]model.Template, error)

	// CopyTemplateToUser instantiates a template into a new checklist
	// owned by the user.
	CopyTemplateToUser(ctx context.Context, userID, templateID string) (*model.Checklist, error)
}
