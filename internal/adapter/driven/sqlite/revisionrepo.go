package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/talkwatch/talkwatch/internal/domain/model"
	"github.com/talkwatch/talkwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RevisionStore = (*RevisionRepo)(nil)

// RevisionRepo is the SQLite implementation of the parsed-revision cache.
// Snapshots are stored as JSON; the model's index-based references make them
// flat documents with no cycles to break.
type RevisionRepo struct {
	db *DB
}

// NewRevisionRepo creates a new RevisionRepo backed by the given DB.
func NewRevisionRepo(db *DB) *RevisionRepo {
	return &RevisionRepo{db: db}
}

// Get returns the cached snapshot for a revision, or nil, nil on a miss.
func (r *RevisionRepo) Get(ctx context.Context, pageTitle string, revID int64) (*model.RevisionSnapshot, error) {
	const query = `
		SELECT snapshot FROM revision_snapshots
		WHERE page_title = ? AND revision_id = ?
	`

	var raw string
	err := r.db.Reader.QueryRowContext(ctx, query, pageTitle, revID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s@%d: %w", pageTitle, revID, err)
	}

	var snapshot model.RevisionSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot %s@%d: %w", pageTitle, revID, err)
	}
	return &snapshot, nil
}

// Put stores or replaces a snapshot.
func (r *RevisionRepo) Put(ctx context.Context, snapshot *model.RevisionSnapshot) error {
	const query = `
		INSERT INTO revision_snapshots (page_title, revision_id, snapshot, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(page_title, revision_id) DO UPDATE SET
			snapshot = excluded.snapshot,
			created_at = excluded.created_at
	`

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s@%d: %w", snapshot.PageTitle, snapshot.RevisionID, err)
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		snapshot.PageTitle, snapshot.RevisionID, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put snapshot %s@%d: %w", snapshot.PageTitle, snapshot.RevisionID, err)
	}
	return nil
}

// Prune deletes every cached snapshot of the page whose revision id is not
// in keep. Zero ids in keep are ignored.
func (r *RevisionRepo) Prune(ctx context.Context, pageTitle string, keep []int64) error {
	args := []any{pageTitle}
	var placeholders []string
	for _, id := range keep {
		if id == 0 {
			continue
		}
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}

	query := "DELETE FROM revision_snapshots WHERE page_title = ?"
	if len(placeholders) > 0 {
		query += " AND revision_id NOT IN (" + strings.Join(placeholders, ", ") + ")"
	}

	if _, err := r.db.Writer.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune snapshots for %q: %w", pageTitle, err)
	}
	return nil
}
