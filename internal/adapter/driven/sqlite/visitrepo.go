package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/talkwatch/talkwatch/internal/domain/model"
	"github.com/talkwatch/talkwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VisitStore = (*VisitRepo)(nil)

// VisitRepo is the SQLite implementation of per-comment prior flags.
type VisitRepo struct {
	db *DB
}

// NewVisitRepo creates a new VisitRepo backed by the given DB.
func NewVisitRepo(db *DB) *VisitRepo {
	return &VisitRepo{db: db}
}

// GetFlags returns the prior flags of every tracked comment on the page.
func (r *VisitRepo) GetFlags(ctx context.Context, pageTitle string) (map[string]model.PriorFlags, error) {
	const query = `
		SELECT comment_id, changed, deleted
		FROM comment_flags
		WHERE page_title = ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, pageTitle)
	if err != nil {
		return nil, fmt.Errorf("get flags for %q: %w", pageTitle, err)
	}
	defer rows.Close()

	flags := make(map[string]model.PriorFlags)
	for rows.Next() {
		var commentID string
		var changed, deleted int
		if err := rows.Scan(&commentID, &changed, &deleted); err != nil {
			return nil, fmt.Errorf("scan flags: %w", err)
		}
		flags[commentID] = model.PriorFlags{
			Changed: changed != 0,
			Deleted: deleted != 0,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flags: %w", err)
	}
	return flags, nil
}

// SetFlags stores the flags of one comment.
func (r *VisitRepo) SetFlags(ctx context.Context, pageTitle, commentID string, flags model.PriorFlags) error {
	const query = `
		INSERT INTO comment_flags (page_title, comment_id, changed, deleted, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(page_title, comment_id) DO UPDATE SET
			changed = excluded.changed,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at
	`

	changed := 0
	if flags.Changed {
		changed = 1
	}
	deleted := 0
	if flags.Deleted {
		deleted = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query, pageTitle, commentID, changed, deleted, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set flags for %s/%s: %w", pageTitle, commentID, err)
	}
	return nil
}

// ClearFlags drops the tracked state of one comment.
func (r *VisitRepo) ClearFlags(ctx context.Context, pageTitle, commentID string) error {
	const query = `DELETE FROM comment_flags WHERE page_title = ? AND comment_id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, pageTitle, commentID); err != nil {
		return fmt.Errorf("clear flags for %s/%s: %w", pageTitle, commentID, err)
	}
	return nil
}
