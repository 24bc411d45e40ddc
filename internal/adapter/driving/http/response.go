package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/talkwatch/talkwatch/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// PageResponse is the JSON representation of a watched page.
type PageResponse struct {
	Title              string `json:"title"`
	LastCheckedRevID   int64  `json:"last_checked_rev_id"`
	PreviousVisitRevID int64  `json:"previous_visit_rev_id"`
	AddedAt            string `json:"added_at"`
}

// CommentResponse is the JSON representation of one extracted comment.
type CommentResponse struct {
	ID       string `json:"id"`
	Author   string `json:"author"`
	Date     string `json:"date,omitempty"`
	Index    int    `json:"index"`
	TextHTML string `json:"text_html"`
}

// ChangeResponse is the JSON representation of one classified change.
type ChangeResponse struct {
	CommentID    string `json:"comment_id"`
	Kind         string `json:"kind"`
	NewTextHTML  string `json:"new_text_html,omitempty"`
	VerifiedDiff bool   `json:"verified_diff"`
}

// RenameResponse is the JSON representation of a detected section rename.
type RenameResponse struct {
	OldHeadline string  `json:"old_headline"`
	NewHeadline string  `json:"new_headline"`
	Score       float64 `json:"score"`
}

// CheckResultResponse is the JSON representation of the latest check of a page.
type CheckResultResponse struct {
	PageTitle  string                       `json:"page_title"`
	RevisionID int64                        `json:"revision_id"`
	All        []CommentResponse            `json:"all"`
	Relevant   []CommentResponse            `json:"relevant"`
	BySection  map[string][]CommentResponse `json:"by_section"`
	Changes    []ChangeResponse             `json:"changes"`
	Renames    []RenameResponse             `json:"renames"`
}

// SubscriptionResponse is the JSON representation of a section subscription.
type SubscriptionResponse struct {
	PageTitle       string `json:"page_title"`
	SectionHeadline string `json:"section_headline"`
	CreatedAt       string `json:"created_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// AddPageRequest is the JSON body for the add page endpoint.
type AddPageRequest struct {
	Title string `json:"title"`
}

// AddSubscriptionRequest is the JSON body for the add subscription endpoint.
type AddSubscriptionRequest struct {
	PageTitle       string `json:"page_title"`
	SectionHeadline string `json:"section_headline"`
}

// MuteRequest is the JSON body for the mute endpoint.
type MuteRequest struct {
	Author string `json:"author"`
}

// CheckRequest is the JSON body for the manual check endpoint. An empty title
// checks every watched page.
type CheckRequest struct {
	Title string `json:"title"`
}

// toPageResponse converts a domain Page to its JSON response representation.
func toPageResponse(page model.Page) PageResponse {
	return PageResponse{
		Title:              page.Title,
		LastCheckedRevID:   page.LastCheckedRevID,
		PreviousVisitRevID: page.PreviousVisitRevID,
		AddedAt:            page.AddedAt.UTC().Format(time.RFC3339),
	}
}

// toCommentResponse converts a domain CommentSnapshot to its JSON representation.
func toCommentResponse(c model.CommentSnapshot) CommentResponse {
	resp := CommentResponse{
		ID:       c.ID,
		Author:   c.Author,
		Index:    c.Index,
		TextHTML: c.TextHTML,
	}
	if c.Date != nil {
		resp.Date = c.Date.UTC().Format(time.RFC3339)
	}
	return resp
}

func toCommentResponses(comments []model.CommentSnapshot) []CommentResponse {
	resp := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		resp = append(resp, toCommentResponse(c))
	}
	return resp
}

// toCheckResultResponse converts a domain CheckResult to its JSON representation.
func toCheckResultResponse(result model.CheckResult) CheckResultResponse {
	bySection := make(map[string][]CommentResponse, len(result.BySection))
	for headline, comments := range result.BySection {
		bySection[headline] = toCommentResponses(comments)
	}

	changes := make([]ChangeResponse, 0, len(result.Changes))
	for _, ch := range result.Changes {
		changes = append(changes, ChangeResponse{
			CommentID:    ch.CommentID,
			Kind:         string(ch.Kind),
			NewTextHTML:  ch.NewTextHTML,
			VerifiedDiff: ch.VerifiedDiff,
		})
	}

	renames := make([]RenameResponse, 0, len(result.Renames))
	for _, rn := range result.Renames {
		renames = append(renames, RenameResponse{
			OldHeadline: rn.OldHeadline,
			NewHeadline: rn.NewHeadline,
			Score:       rn.Score,
		})
	}

	return CheckResultResponse{
		PageTitle:  result.PageTitle,
		RevisionID: result.RevisionID,
		All:        toCommentResponses(result.All),
		Relevant:   toCommentResponses(result.Relevant),
		BySection:  bySection,
		Changes:    changes,
		Renames:    renames,
	}
}

// toSubscriptionResponse converts a domain Subscription to its JSON representation.
func toSubscriptionResponse(sub model.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		PageTitle:       sub.PageTitle,
		SectionHeadline: sub.SectionHeadline,
		CreatedAt:       sub.CreatedAt.UTC().Format(time.RFC3339),
	}
}
