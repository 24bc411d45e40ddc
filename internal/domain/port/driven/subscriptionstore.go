package driven

import (
	"context"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// SubscriptionStore defines the driven port for section subscriptions and
// muted authors.
type SubscriptionStore interface {
	Add(ctx context.Context, sub model.Subscription) error
	Remove(ctx context.Context, pageTitle, headline string) error
	ListByPage(ctx context.Context, pageTitle string) ([]model.Subscription, error)

	// Rename migrates a subscription from an old headline to a new one after
	// a confident section rename detection. Renaming a headline with no
	// subscription is a no-op, not an error.
	Rename(ctx context.Context, pageTitle, oldHeadline, newHeadline string) error

	MutedAuthors(ctx context.Context) ([]string, error)
	Mute(ctx context.Context, author string) error
	Unmute(ctx context.Context, author string) error
}
