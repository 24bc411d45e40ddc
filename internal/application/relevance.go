package application

import (
	"strings"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// Relevance decides which comments of a snapshot the watcher should surface.
// A comment is relevant when it mentions the configured user or sits in a
// subscribed section, unless the user wrote it or its author is muted.
type Relevance struct {
	username string
}

// NewRelevance creates a filter for the given wiki username. An empty
// username disables mention detection.
func NewRelevance(username string) *Relevance {
	return &Relevance{username: username}
}

// Filter returns the relevant comments of the snapshot in page order.
func (f *Relevance) Filter(snapshot *model.RevisionSnapshot, subs []model.Subscription, muted []string) []model.CommentSnapshot {
	subscribed := make(map[string]bool, len(subs))
	for _, sub := range subs {
		subscribed[sub.SectionHeadline] = true
	}
	mutedSet := make(map[string]bool, len(muted))
	for _, author := range muted {
		mutedSet[strings.ToLower(author)] = true
	}

	var relevant []model.CommentSnapshot
	for _, c := range snapshot.Comments {
		if f.username != "" && strings.EqualFold(c.Author, f.username) {
			continue
		}
		if mutedSet[strings.ToLower(c.Author)] {
			continue
		}
		if f.mentions(c) || subscribed[snapshot.Headline(c.Index)] {
			relevant = append(relevant, c)
		}
	}
	return relevant
}

// mentions reports whether the comment links to the user's page. Signature
// links count as authorship, not mentions, but the author check above already
// excludes those comments.
func (f *Relevance) mentions(c model.CommentSnapshot) bool {
	if f.username == "" {
		return false
	}

	underscored := strings.ReplaceAll(f.username, " ", "_")
	for _, form := range []string{f.username, underscored} {
		if strings.Contains(c.TextHTML, "User:"+form) || strings.Contains(c.TextHTML, "User_talk:"+form) {
			return true
		}
	}
	return false
}
