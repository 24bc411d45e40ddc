package model

import "time"

// Subscription marks a section the user wants new-comment notifications for.
type Subscription struct {
	PageTitle       string
	SectionHeadline string
	CreatedAt       time.Time
}
