package driven

import (
	"context"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// VisitStore defines the driven port for per-comment prior state, keyed by
// the comment's content-derived id within a page.
type VisitStore interface {
	GetFlags(ctx context.Context, pageTitle string) (map[string]model.PriorFlags, error)
	SetFlags(ctx context.Context, pageTitle, commentID string, flags model.PriorFlags) error
	ClearFlags(ctx context.Context, pageTitle, commentID string) error
}
