package driven

import (
	"context"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// WikiClient defines the driven port for read-only access to the wiki API.
type WikiClient interface {
	// LatestRevision returns the metadata of the newest revision of a page.
	LatestRevision(ctx context.Context, title string) (model.RevisionMeta, error)

	// RenderedHTML returns the parsed discussion HTML of a specific revision.
	RenderedHTML(ctx context.Context, title string, revID int64) (string, error)

	// Wikitext returns the raw wikitext of a specific revision, used for
	// line-level diff verification.
	Wikitext(ctx context.Context, revID int64) (string, error)
}
