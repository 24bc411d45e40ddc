package driven

import (
	"context"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// RevisionStore defines the driven port for the parsed-revision cache.
type RevisionStore interface {
	// Get returns the cached snapshot for a revision, or nil, nil on a miss.
	Get(ctx context.Context, pageTitle string, revID int64) (*model.RevisionSnapshot, error)
	Put(ctx context.Context, snapshot *model.RevisionSnapshot) error

	// Prune deletes every cached snapshot of the page whose revision id is
	// not in keep. The caller passes the small fixed set of revisions that
	// still matter (just computed, last checked, previous visit, live).
	Prune(ctx context.Context, pageTitle string, keep []int64) error
}
