package model

import "time"

// Page is a watched talk page.
type Page struct {
	Title string

	// LastCheckedRevID is the revision the background poller most recently
	// reconciled against, 0 before the first successful check.
	LastCheckedRevID int64

	// PreviousVisitRevID is the revision current at the user's previous
	// visit, 0 if the page has never been visited.
	PreviousVisitRevID int64

	AddedAt time.Time
}

// RevisionMeta is the metadata of one page revision as reported by the wiki.
type RevisionMeta struct {
	ID        int64
	PageTitle string
	Timestamp time.Time
}
