// Package cache persists the last known checklist snapshot to a local
// SQLite database so the app can start offline. It is written through
// after successful loads; the sync layer reads it only when the
// service is unreachable.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/campuskit/checklists/internal/model"
)

// Cache is a SQLite-backed snapshot of a user's checklists.
type Cache struct {
	db *sqlx.DB
}

// New opens (or creates) a SQLite database at dbPath, enables WAL
// mode, and runs any pending schema migrations. Parent directories are
// created as needed.
func New(dbPath string) (*Cache, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	c := &Cache{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *Cache) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := c.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveSnapshot replaces the stored snapshot for one user with the
// given checklists, all within a single transaction.
func (c *Cache) SaveSnapshot(
	ctx context.Context,
	userID string,
	checklists []model.Checklist,
) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM checklists WHERE user_id = ?", userID,
	); err != nil {
		return fmt.Errorf("clearing previous snapshot: %w", err)
	}

	const checklistQuery = `
		INSERT INTO checklists (
			id, user_id, title, description, category, color, icon,
			due_date, completed_at, sort_order, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	const itemQuery = `
		INSERT INTO items (
			id, user_id, checklist_id, title, description,
			is_completed, completed_at, due_date, priority,
			parent_id, sort_order, tags, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	clStmt, err := tx.PreparexContext(ctx, checklistQuery)
	if err != nil {
		return fmt.Errorf("preparing checklist insert: %w", err)
	}
	defer clStmt.Close()

	itStmt, err := tx.PreparexContext(ctx, itemQuery)
	if err != nil {
		return fmt.Errorf("preparing item insert: %w", err)
	}
	defer itStmt.Close()

	for _, cl := range checklists {
		_, err := clStmt.ExecContext(ctx,
			cl.ID, userID, cl.Title, cl.Description, string(cl.Category),
			cl.Color, cl.Icon, utcPtr(cl.DueDate), utcPtr(cl.CompletedAt),
			cl.SortOrder, cl.CreatedAt.UTC(), cl.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting checklist %s: %w", cl.ID, err)
		}

		for _, it := range cl.Items {
			tags, err := json.Marshal(it.Tags)
			if err != nil {
				return fmt.Errorf("marshaling tags for item %s: %w", it.ID, err)
			}

			_, err = itStmt.ExecContext(ctx,
				it.ID, userID, cl.ID, it.Title, it.Description,
				boolToInt(it.IsCompleted), utcPtr(it.CompletedAt),
				utcPtr(it.DueDate), string(it.Priority),
				it.ParentID, it.SortOrder, string(tags), it.Notes,
				it.CreatedAt.UTC(), it.UpdatedAt.UTC(),
			)
			if err != nil {
				return fmt.Errorf("inserting item %s: %w", it.ID, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshot_meta (user_id, fetched_at)
		VALUES (?, ?)`,
		userID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("recording snapshot time: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot reads the stored snapshot for one user, checklists in
// sort order with their items nested. Returns an empty slice when no
// snapshot exists.
func (c *Cache) LoadSnapshot(
	ctx context.Context,
	userID string,
) ([]model.Checklist, error) {
	rows, err := c.db.QueryxContext(ctx,
		"SELECT * FROM checklists WHERE user_id = ? ORDER BY sort_order, created_at",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying checklists: %w", err)
	}
	defer rows.Close()

	var checklists []model.Checklist
	for rows.Next() {
		cl, err := scanChecklist(rows)
		if err != nil {
			return nil, err
		}
		checklists = append(checklists, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating checklists: %w", err)
	}

	for i := range checklists {
		items, err := c.loadItems(ctx, checklists[i].ID)
		if err != nil {
			return nil, err
		}
		checklists[i].Items = items
	}

	return checklists, nil
}

// SnapshotTime returns when the user's snapshot was last written, or
// the zero time when no snapshot exists.
func (c *Cache) SnapshotTime(ctx context.Context, userID string) (time.Time, error) {
	var fetched time.Time
	err := c.db.GetContext(ctx, &fetched,
		"SELECT fetched_at FROM snapshot_meta WHERE user_id = ?", userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("reading snapshot time: %w", err)
	}
	return fetched, nil
}

// Clear drops the stored snapshot for one user.
func (c *Cache) Clear(ctx context.Context, userID string) error {
	if _, err := c.db.ExecContext(ctx,
		"DELETE FROM checklists WHERE user_id = ?", userID,
	); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	if _, err := c.db.ExecContext(ctx,
		"DELETE FROM snapshot_meta WHERE user_id = ?", userID,
	); err != nil {
		return fmt.Errorf("clearing snapshot meta: %w", err)
	}
	return nil
}

func (c *Cache) loadItems(ctx context.Context, checklistID string) ([]model.Item, error) {
	rows, err := c.db.QueryxContext(ctx,
		"SELECT * FROM items WHERE checklist_id = ? ORDER BY sort_order, created_at",
		checklistID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying items for checklist %s: %w", checklistID, err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// scanChecklist scans a checklist row from a sqlx.Rows result set.
func scanChecklist(rows *sqlx.Rows) (model.Checklist, error) {
	var (
		cl       model.Checklist
		category string
	)

	err := rows.Scan(
		&cl.ID, &cl.UserID, &cl.Title, &cl.Description, &category,
		&cl.Color, &cl.Icon, &cl.DueDate, &cl.CompletedAt,
		&cl.SortOrder, &cl.CreatedAt, &cl.UpdatedAt,
	)
	if err != nil {
		return model.Checklist{}, fmt.Errorf("scanning checklist row: %w", err)
	}

	cl.Category = model.Category(category)
	return cl, nil
}

// scanItem scans an item row from a sqlx.Rows result set.
func scanItem(rows *sqlx.Rows) (model.Item, error) {
	var (
		it        model.Item
		completed int
		priority  string
		tags      string
	)

	err := rows.Scan(
		&it.ID, &it.UserID, &it.ChecklistID, &it.Title, &it.Description,
		&completed, &it.CompletedAt, &it.DueDate, &priority,
		&it.ParentID, &it.SortOrder, &tags, &it.Notes,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return model.Item{}, fmt.Errorf("scanning item row: %w", err)
	}

	it.IsCompleted = completed != 0
	it.Priority = model.Priority(priority)

	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &it.Tags); err != nil {
			return model.Item{}, fmt.Errorf("unmarshaling item tags: %w", err)
		}
	}

	return it, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// utcPtr normalizes an optional timestamp to UTC for storage.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
