package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/talkwatch/talkwatch/internal/domain/model"
	"github.com/talkwatch/talkwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SubscriptionStore = (*SubscriptionRepo)(nil)

// SubscriptionRepo is the SQLite implementation of section subscriptions
// and muted authors.
type SubscriptionRepo struct {
	db *DB
}

// NewSubscriptionRepo creates a new SubscriptionRepo backed by the given DB.
func NewSubscriptionRepo(db *DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// Add subscribes to a section. Adding an existing subscription is a no-op.
func (r *SubscriptionRepo) Add(ctx context.Context, sub model.Subscription) error {
	const query = `
		INSERT INTO subscriptions (page_title, section_headline, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(page_title, section_headline) DO NOTHING
	`

	_, err := r.db.Writer.ExecContext(ctx, query, sub.PageTitle, sub.SectionHeadline, sub.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("add subscription %s/%s: %w", sub.PageTitle, sub.SectionHeadline, err)
	}
	return nil
}

// Remove unsubscribes from a section.
func (r *SubscriptionRepo) Remove(ctx context.Context, pageTitle, headline string) error {
	const query = `DELETE FROM subscriptions WHERE page_title = ? AND section_headline = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, pageTitle, headline); err != nil {
		return fmt.Errorf("remove subscription %s/%s: %w", pageTitle, headline, err)
	}
	return nil
}

// ListByPage returns the page's subscriptions ordered by headline.
func (r *SubscriptionRepo) ListByPage(ctx context.Context, pageTitle string) ([]model.Subscription, error) {
	const query = `
		SELECT page_title, section_headline, created_at
		FROM subscriptions
		WHERE page_title = ?
		ORDER BY section_headline
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, pageTitle)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for %q: %w", pageTitle, err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		if err := rows.Scan(&sub.PageTitle, &sub.SectionHeadline, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

// Rename migrates a subscription to a renamed section headline. Renaming a
// headline with no subscription is a no-op. If the new headline is already
// subscribed the old row is simply dropped.
func (r *SubscriptionRepo) Rename(ctx context.Context, pageTitle, oldHeadline, newHeadline string) error {
	const update = `
		UPDATE OR IGNORE subscriptions
		SET section_headline = ?
		WHERE page_title = ? AND section_headline = ?
	`
	const cleanup = `DELETE FROM subscriptions WHERE page_title = ? AND section_headline = ?`

	if _, err := r.db.Writer.ExecContext(ctx, update, newHeadline, pageTitle, oldHeadline); err != nil {
		return fmt.Errorf("rename subscription %s/%s: %w", pageTitle, oldHeadline, err)
	}
	if _, err := r.db.Writer.ExecContext(ctx, cleanup, pageTitle, oldHeadline); err != nil {
		return fmt.Errorf("cleanup renamed subscription %s/%s: %w", pageTitle, oldHeadline, err)
	}
	return nil
}

// MutedAuthors returns all muted authors ordered by name.
func (r *SubscriptionRepo) MutedAuthors(ctx context.Context) ([]string, error) {
	const query = `SELECT author FROM muted_authors ORDER BY author`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list muted authors: %w", err)
	}
	defer rows.Close()

	var authors []string
	for rows.Next() {
		var author string
		if err := rows.Scan(&author); err != nil {
			return nil, fmt.Errorf("scan muted author: %w", err)
		}
		authors = append(authors, author)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate muted authors: %w", err)
	}
	return authors, nil
}

// Mute hides an author's comments from relevance filtering.
func (r *SubscriptionRepo) Mute(ctx context.Context, author string) error {
	const query = `
		INSERT INTO muted_authors (author, muted_at) VALUES (?, ?)
		ON CONFLICT(author) DO NOTHING
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, author, time.Now().UTC()); err != nil {
		return fmt.Errorf("mute author %q: %w", author, err)
	}
	return nil
}

// Unmute restores an author's comments.
func (r *SubscriptionRepo) Unmute(ctx context.Context, author string) error {
	const query = `DELETE FROM muted_authors WHERE author = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, author); err != nil {
		return fmt.Errorf("unmute author %q: %w", author, err)
	}
	return nil
}
