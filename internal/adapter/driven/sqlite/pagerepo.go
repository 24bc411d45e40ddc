package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/talkwatch/talkwatch/internal/domain/model"
	"github.com/talkwatch/talkwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PageStore = (*PageRepo)(nil)

// PageRepo is the SQLite implementation of the PageStore port interface.
type PageRepo struct {
	db *DB
}

// NewPageRepo creates a new PageRepo backed by the given DB.
func NewPageRepo(db *DB) *PageRepo {
	return &PageRepo{db: db}
}

// Upsert inserts or updates a watched page. Revision markers are preserved
// on conflict so re-adding a page does not lose its check state.
func (r *PageRepo) Upsert(ctx context.Context, page model.Page) error {
	const query = `
		INSERT INTO pages (title, last_checked_rev, previous_visit_rev, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(title) DO NOTHING
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		page.Title, page.LastCheckedRevID, page.PreviousVisitRevID, page.AddedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert page %q: %w", page.Title, err)
	}
	return nil
}

// Get retrieves a watched page by title. Returns nil, nil if the page is
// not watched.
func (r *PageRepo) Get(ctx context.Context, title string) (*model.Page, error) {
	const query = `
		SELECT title, last_checked_rev, previous_visit_rev, added_at
		FROM pages
		WHERE title = ?
	`

	var page model.Page
	err := r.db.Reader.QueryRowContext(ctx, query, title).Scan(
		&page.Title, &page.LastCheckedRevID, &page.PreviousVisitRevID, &page.AddedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get page %q: %w", title, err)
	}
	return &page, nil
}

// ListAll returns all watched pages ordered by title.
func (r *PageRepo) ListAll(ctx context.Context) ([]model.Page, error) {
	const query = `
		SELECT title, last_checked_rev, previous_visit_rev, added_at
		FROM pages
		ORDER BY title
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []model.Page
	for rows.Next() {
		var page model.Page
		if err := rows.Scan(&page.Title, &page.LastCheckedRevID, &page.PreviousVisitRevID, &page.AddedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return pages, nil
}

// UpdateLastChecked records the revision the poller most recently reconciled.
func (r *PageRepo) UpdateLastChecked(ctx context.Context, title string, revID int64) error {
	const query = `UPDATE pages SET last_checked_rev = ? WHERE title = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, revID, title); err != nil {
		return fmt.Errorf("update last checked for %q: %w", title, err)
	}
	return nil
}

// UpdatePreviousVisit records the revision current at the user's visit.
func (r *PageRepo) UpdatePreviousVisit(ctx context.Context, title string, revID int64) error {
	const query = `UPDATE pages SET previous_visit_rev = ? WHERE title = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, revID, title); err != nil {
		return fmt.Errorf("update previous visit for %q: %w", title, err)
	}
	return nil
}

// Remove stops watching a page. Cached snapshots, flags, and subscriptions
// cascade.
func (r *PageRepo) Remove(ctx context.Context, title string) error {
	const query = `DELETE FROM pages WHERE title = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, title); err != nil {
		return fmt.Errorf("remove page %q: %w", title, err)
	}
	return nil
}
