// Package httphandler is the HTTP driving adapter serving the REST API.
package httphandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/talkwatch/talkwatch/internal/application"
	"github.com/talkwatch/talkwatch/internal/domain/model"
	"github.com/talkwatch/talkwatch/internal/domain/port/driven"
)

// Handler serves the watcher's REST API.
type Handler struct {
	pages    driven.PageStore
	subs     driven.SubscriptionStore
	checkSvc *application.CheckService
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	pages driven.PageStore,
	subs driven.SubscriptionStore,
	checkSvc *application.CheckService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		pages:    pages,
		subs:     subs,
		checkSvc: checkSvc,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/pages", h.ListPages)
	mux.HandleFunc("POST /api/v1/pages", h.AddPage)
	mux.HandleFunc("DELETE /api/v1/pages/{title}", h.RemovePage)
	mux.HandleFunc("GET /api/v1/pages/{title}/result", h.GetResult)
	mux.HandleFunc("POST /api/v1/pages/{title}/visit", h.MarkVisited)
	mux.HandleFunc("GET /api/v1/pages/{title}/subscriptions", h.ListSubscriptions)
	mux.HandleFunc("POST /api/v1/subscriptions", h.AddSubscription)
	mux.HandleFunc("DELETE /api/v1/pages/{title}/subscriptions/{headline}", h.RemoveSubscription)
	mux.HandleFunc("GET /api/v1/muted", h.ListMuted)
	mux.HandleFunc("POST /api/v1/muted", h.MuteAuthor)
	mux.HandleFunc("DELETE /api/v1/muted/{author}", h.UnmuteAuthor)
	mux.HandleFunc("POST /api/v1/check", h.TriggerCheck)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListPages returns all watched pages.
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.pages.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list pages", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]PageResponse, 0, len(pages))
	for _, page := range pages {
		resp = append(resp, toPageResponse(page))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddPage adds a page to the watch list and triggers an async first check.
func (h *Handler) AddPage(w http.ResponseWriter, r *http.Request) {
	var req AddPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "page title is required")
		return
	}

	if err := h.checkSvc.AddPage(r.Context(), title); err != nil {
		h.logger.Error("failed to add page", "page", title, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Fire-and-forget first check with a background context; the request
	// context dies with the response.
	go func() {
		if err := h.checkSvc.CheckNow(context.Background(), title); err != nil {
			h.logger.Error("async first check failed", "page", title, "error", err)
		}
	}()

	writeJSON(w, http.StatusCreated, PageResponse{
		Title:   title,
		AddedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// RemovePage stops watching a page.
func (h *Handler) RemovePage(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")

	page, err := h.pages.Get(r.Context(), title)
	if err != nil {
		h.logger.Error("failed to look up page", "page", title, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if page == nil {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}

	if err := h.checkSvc.RemovePage(r.Context(), title); err != nil {
		h.logger.Error("failed to remove page", "page", title, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetResult returns the latest check result for a page.
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")

	result := h.checkSvc.Result(title)
	if result == nil {
		writeError(w, http.StatusNotFound, "no check result for page")
		return
	}

	writeJSON(w, http.StatusOK, toCheckResultResponse(*result))
}

// MarkVisited records that the user has caught up with the page.
func (h *Handler) MarkVisited(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")

	if err := h.checkSvc.MarkVisited(r.Context(), title); err != nil {
		if strings.Contains(err.Error(), "not watched") {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		h.logger.Error("failed to mark page visited", "page", title, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions returns the page's section subscriptions.
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")

	subs, err := h.subs.ListByPage(r.Context(), title)
	if err != nil {
		h.logger.Error("failed to list subscriptions", "page", title, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, toSubscriptionResponse(sub))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddSubscription subscribes to a section of a watched page.
func (h *Handler) AddSubscription(w http.ResponseWriter, r *http.Request) {
	var req AddSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.PageTitle) == "" || strings.TrimSpace(req.SectionHeadline) == "" {
		writeError(w, http.StatusBadRequest, "page_title and section_headline are required")
		return
	}

	page, err := h.pages.Get(r.Context(), req.PageTitle)
	if err != nil {
		h.logger.Error("failed to look up page", "page", req.PageTitle, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if page == nil {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}

	sub := model.Subscription{
		PageTitle:       req.PageTitle,
		SectionHeadline: req.SectionHeadline,
		CreatedAt:       time.Now().UTC(),
	}
	if err := h.subs.Add(r.Context(), sub); err != nil {
		h.logger.Error("failed to add subscription", "page", req.PageTitle, "section", req.SectionHeadline, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

// RemoveSubscription unsubscribes from a section.
func (h *Handler) RemoveSubscription(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")
	headline := r.PathValue("headline")

	if err := h.subs.Remove(r.Context(), title, headline); err != nil {
		h.logger.Error("failed to remove subscription", "page", title, "section", headline, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMuted returns all muted authors.
func (h *Handler) ListMuted(w http.ResponseWriter, r *http.Request) {
	authors, err := h.subs.MutedAuthors(r.Context())
	if err != nil {
		h.logger.Error("failed to list muted authors", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if authors == nil {
		authors = []string{}
	}

	writeJSON(w, http.StatusOK, authors)
}

// MuteAuthor mutes an author.
func (h *Handler) MuteAuthor(w http.ResponseWriter, r *http.Request) {
	var req MuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Author) == "" {
		writeError(w, http.StatusBadRequest, "author is required")
		return
	}

	if err := h.subs.Mute(r.Context(), req.Author); err != nil {
		h.logger.Error("failed to mute author", "author", req.Author, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnmuteAuthor unmutes an author.
func (h *Handler) UnmuteAuthor(w http.ResponseWriter, r *http.Request) {
	author := r.PathValue("author")

	if err := h.subs.Unmute(r.Context(), author); err != nil {
		h.logger.Error("failed to unmute author", "author", author, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TriggerCheck runs a manual check of one page, or of all pages when the body
// is empty or names no title.
func (h *Handler) TriggerCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	// An empty body means check everything.
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.checkSvc.CheckNow(r.Context(), strings.TrimSpace(req.Title)); err != nil {
		if strings.Contains(err.Error(), "not watched") {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		h.logger.Error("manual check failed", "page", req.Title, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
