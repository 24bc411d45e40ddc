package driven

import (
	"context"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// Extractor defines the driven port for turning rendered discussion HTML
// into a structured revision snapshot. Implementations may off-load the work
// to a worker pool; the call blocks until the snapshot is ready.
type Extractor interface {
	Extract(ctx context.Context, pageTitle string, revID int64, html string) (*model.RevisionSnapshot, error)
}
