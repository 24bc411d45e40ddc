package driven

import (
	"context"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// PageStore defines the driven port for watched-page persistence.
type PageStore interface {
	Upsert(ctx context.Context, page model.Page) error
	Get(ctx context.Context, title string) (*model.Page, error)
	ListAll(ctx context.Context) ([]model.Page, error)
	UpdateLastChecked(ctx context.Context, title string, revID int64) error
	UpdatePreviousVisit(ctx context.Context, title string, revID int64) error
	Remove(ctx context.Context, title string) error
}
