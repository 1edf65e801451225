package drafts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/pagedit/internal/db"
)

// Store manages persistence of autosave drafts and the export log.
type Store struct {
	db *db.DB
}

// NewStore creates a new draft store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Save creates or replaces the draft for d.PageID.
func (s *Store) Save(ctx context.Context, d Draft) error {
	if d.PageID == "" {
		return errors.New("saving draft: page id is required")
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO drafts (page_id, content, html_content, css_content, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(page_id) DO UPDATE SET
		   content = excluded.content,
		   html_content = excluded.html_content,
		   css_content = excluded.css_content,
		   updated_at = excluded.updated_at`,
		d.PageID, d.Content, d.HTMLContent, d.CSSContent, d.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

// Get returns the draft for pageID, or nil when there is none.
func (s *Store) Get(ctx context.Context, pageID string) (*Draft, error) {
	var d Draft
	err := s.db.QueryRowContext(ctx,
		`SELECT page_id, content, html_content, css_content, updated_at
		 FROM drafts WHERE page_id = ?`, pageID,
	).Scan(&d.PageID, &d.Content, &d.HTMLContent, &d.CSSContent, &d.Timestamp)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}
	return &d, nil
}

// List returns all drafts, newest first, without their content.
func (s *Store) List(ctx context.Context) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT page_id, updated_at FROM drafts ORDER BY updated_at DESC, page_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		var d Draft
		if err := rows.Scan(&d.PageID, &d.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning draft: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes the draft for pageID. Deleting a missing draft is not an
// error.
func (s *Store) Delete(ctx context.Context, pageID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return nil
}

// Prune deletes drafts last saved before cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning drafts: %w", err)
	}
	return result.RowsAffected()
}

// RecordExport appends an entry to the export log.
func (s *Store) RecordExport(ctx context.Context, e Export) (*Export, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exports (id, page_id, file_name, size_bytes, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.PageID, e.FileName, e.SizeBytes, e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording export: %w", err)
	}
	return &e, nil
}

// ListExports returns exports matching the filter, newest first.
func (s *Store) ListExports(ctx context.Context, filter ExportFilter) ([]Export, error) {
	query := `SELECT id, page_id, file_name, size_bytes, created_at FROM exports WHERE 1=1`
	args := []interface{}{}

	if filter.PageID != "" {
		query += " AND page_id = ?"
		args = append(args, filter.PageID)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	defer rows.Close()

	var out []Export
	for rows.Next() {
		var e Export
		if err := rows.Scan(&e.ID, &e.PageID, &e.FileName, &e.SizeBytes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning export: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
