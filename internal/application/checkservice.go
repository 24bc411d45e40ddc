package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talkwatch/talkwatch/internal/domain/model"
	"github.com/talkwatch/talkwatch/internal/domain/port/driven"
	"github.com/talkwatch/talkwatch/internal/reconcile"
)

// maxConcurrentChecks bounds how many pages one cycle reconciles in parallel.
const maxConcurrentChecks = 4

// refreshRequest represents a manual check trigger. An empty pageTitle means
// check every watched page.
type refreshRequest struct {
	pageTitle string
	done      chan error
}

// CheckService orchestrates the periodic check cycle: fetch the newest
// revision of each watched page, reconcile it against the stored baseline,
// classify changes, and keep the latest results available for the API.
type CheckService struct {
	wiki      driven.WikiClient
	pages     driven.PageStore
	revisions driven.RevisionStore
	visits    driven.VisitStore
	subs      driven.SubscriptionStore
	extractor driven.Extractor
	relevance *Relevance
	weights   reconcile.Weights
	interval  time.Duration
	refreshCh chan refreshRequest

	mu     sync.RWMutex
	latest map[string]model.CheckResult
}

// NewCheckService creates a CheckService with all required dependencies.
func NewCheckService(
	wiki driven.WikiClient,
	pages driven.PageStore,
	revisions driven.RevisionStore,
	visits driven.VisitStore,
	subs driven.SubscriptionStore,
	extractor driven.Extractor,
	relevance *Relevance,
	weights reconcile.Weights,
	interval time.Duration,
) *CheckService {
	return &CheckService{
		wiki:      wiki,
		pages:     pages,
		revisions: revisions,
		visits:    visits,
		subs:      subs,
		extractor: extractor,
		relevance: relevance,
		weights:   weights,
		interval:  interval,
		refreshCh: make(chan refreshRequest),
		latest:    make(map[string]model.CheckResult),
	}
}

// Start begins the check loop. It runs an immediate cycle, then checks on the
// configured interval and listens for manual triggers. Start blocks until the
// context is canceled.
func (s *CheckService) Start(ctx context.Context) {
	if err := s.checkAll(ctx); err != nil {
		slog.Error("initial check cycle failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("check service stopped")
			return
		case <-ticker.C:
			if err := s.checkAll(ctx); err != nil {
				slog.Error("check cycle failed", "error", err)
			}
		case req := <-s.refreshCh:
			req.done <- s.handleRefresh(ctx, req)
		}
	}
}

// CheckNow triggers a manual check of one page, or of every watched page when
// pageTitle is empty. It blocks until the check completes or the context is
// canceled.
func (s *CheckService) CheckNow(ctx context.Context, pageTitle string) error {
	done := make(chan error, 1)
	req := refreshRequest{pageTitle: pageTitle, done: done}

	select {
	case s.refreshCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddPage starts watching a page.
func (s *CheckService) AddPage(ctx context.Context, title string) error {
	return s.pages.Upsert(ctx, model.Page{Title: title, AddedAt: time.Now().UTC()})
}

// RemovePage stops watching a page and drops its cached result.
func (s *CheckService) RemovePage(ctx context.Context, title string) error {
	if err := s.pages.Remove(ctx, title); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.latest, title)
	s.mu.Unlock()
	return nil
}

// MarkVisited records that the user has seen the page in its last checked
// state. Change flags reset so the next cycle reports only newer edits.
func (s *CheckService) MarkVisited(ctx context.Context, title string) error {
	page, err := s.pages.Get(ctx, title)
	if err != nil {
		return err
	}
	if page == nil {
		return fmt.Errorf("page %q is not watched", title)
	}

	if err := s.pages.UpdatePreviousVisit(ctx, title, page.LastCheckedRevID); err != nil {
		return err
	}

	flags, err := s.visits.GetFlags(ctx, title)
	if err != nil {
		return err
	}
	for id, f := range flags {
		if !f.Changed {
			continue
		}
		f.Changed = false
		if err := s.visits.SetFlags(ctx, title, id, f); err != nil {
			return err
		}
	}
	return nil
}

// Result returns the latest check result for a page, or nil if the page has
// not completed a check yet.
func (s *CheckService) Result(title string) *model.CheckResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if result, ok := s.latest[title]; ok {
		return &result
	}
	return nil
}

// checkAll checks every watched page, up to maxConcurrentChecks in parallel.
// Per-page failures are logged and do not abort the cycle.
func (s *CheckService) checkAll(ctx context.Context) error {
	start := time.Now()

	pages, err := s.pages.ListAll(ctx)
	if err != nil {
		return err
	}

	var checkErrors int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChecks)
	for _, page := range pages {
		g.Go(func() error {
			if err := s.checkPage(gctx, page); err != nil {
				slog.Error("page check failed", "page", page.Title, "error", err)
				mu.Lock()
				checkErrors++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("check cycle complete",
		"pages", len(pages),
		"errors", checkErrors,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// checkPage is the core reconciliation logic for one page.
func (s *CheckService) checkPage(ctx context.Context, page model.Page) error {
	meta, err := s.wiki.LatestRevision(ctx, page.Title)
	if err != nil {
		return fmt.Errorf("latest revision: %w", err)
	}

	if meta.ID == page.LastCheckedRevID {
		slog.Debug("page unchanged", "page", page.Title, "revision", meta.ID)
		return nil
	}

	fresh, err := s.fetchSnapshot(ctx, page.Title, meta.ID)
	if err != nil {
		return err
	}

	// A revision landing between the id lookup and the HTML fetch would make
	// this snapshot stale. Discard and let the next cycle pick it up; stored
	// state stays untouched.
	verify, err := s.wiki.LatestRevision(ctx, page.Title)
	if err != nil {
		return fmt.Errorf("verify revision: %w", err)
	}
	if verify.ID != meta.ID {
		slog.Info("revision moved during check, discarding",
			"page", page.Title, "checked", meta.ID, "latest", verify.ID)
		return nil
	}

	if page.LastCheckedRevID == 0 {
		return s.baseline(ctx, page, fresh)
	}

	base, err := s.revisions.Get(ctx, page.Title, page.LastCheckedRevID)
	if err != nil {
		return fmt.Errorf("load baseline: %w", err)
	}
	if base == nil {
		// Baseline evicted or never cached; rebuild it from the API.
		base, err = s.fetchSnapshot(ctx, page.Title, page.LastCheckedRevID)
		if err != nil {
			return fmt.Errorf("rebuild baseline: %w", err)
		}
	}

	cm := reconcile.Comments(base, fresh, s.weights)

	prior, err := s.visits.GetFlags(ctx, page.Title)
	if err != nil {
		return fmt.Errorf("load flags: %w", err)
	}

	changes := reconcile.Classify(base, fresh, cm, prior)
	s.verifyChanges(ctx, page, meta.ID, base, changes)

	sm := reconcile.Sections(base, fresh, cm, s.weights)
	renames := reconcile.Renames(base, fresh, sm, s.weights)
	for _, rename := range renames {
		if err := s.subs.Rename(ctx, page.Title, rename.OldHeadline, rename.NewHeadline); err != nil {
			slog.Error("subscription rename failed",
				"page", page.Title, "old", rename.OldHeadline, "new", rename.NewHeadline, "error", err)
		}
	}

	result, err := s.buildResult(ctx, page.Title, meta.ID, fresh, changes, renames)
	if err != nil {
		return err
	}

	if err := s.persist(ctx, page, meta.ID, fresh, prior, changes); err != nil {
		return err
	}

	s.mu.Lock()
	s.latest[page.Title] = *result
	s.mu.Unlock()

	newCount := 0
	for _, by := range cm.TargetedBy(len(fresh.Comments)) {
		if by == model.NoRef {
			newCount++
		}
	}

	slog.Info("page checked",
		"page", page.Title,
		"revision", meta.ID,
		"comments", len(fresh.Comments),
		"new", newCount,
		"changes", len(changes),
		"renames", len(renames),
	)

	return nil
}

// baseline records the first snapshot of a newly watched page. Nothing is
// reconciled; every comment is simply remembered for the next cycle.
func (s *CheckService) baseline(ctx context.Context, page model.Page, fresh *model.RevisionSnapshot) error {
	if err := s.revisions.Put(ctx, fresh); err != nil {
		return fmt.Errorf("store baseline: %w", err)
	}
	if err := s.pages.UpdateLastChecked(ctx, page.Title, fresh.RevisionID); err != nil {
		return fmt.Errorf("record baseline revision: %w", err)
	}

	result, err := s.buildResult(ctx, page.Title, fresh.RevisionID, fresh, nil, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.latest[page.Title] = *result
	s.mu.Unlock()

	slog.Info("page baselined", "page", page.Title, "revision", fresh.RevisionID, "comments", len(fresh.Comments))
	return nil
}

// fetchSnapshot fetches the rendered HTML of one revision and extracts it on
// the worker pool.
func (s *CheckService) fetchSnapshot(ctx context.Context, title string, revID int64) (*model.RevisionSnapshot, error) {
	pageHTML, err := s.wiki.RenderedHTML(ctx, title, revID)
	if err != nil {
		return nil, fmt.Errorf("fetch html for %s@%d: %w", title, revID, err)
	}
	snapshot, err := s.extractor.Extract(ctx, title, revID, pageHTML)
	if err != nil {
		return nil, fmt.Errorf("extract %s@%d: %w", title, revID, err)
	}
	return snapshot, nil
}

// verifyChanges corroborates changed comments against the wikitext diff of
// the two revisions. Verification is advisory; fetch failures are logged and
// the change list keeps its events without the verified flag.
func (s *CheckService) verifyChanges(ctx context.Context, page model.Page, freshRevID int64, base *model.RevisionSnapshot, changes []model.CommentChange) {
	changed := 0
	for i := range changes {
		if changes[i].Kind == model.ChangeKindChanged {
			changed++
		}
	}
	if changed == 0 {
		return
	}

	oldText, err := s.wiki.Wikitext(ctx, page.LastCheckedRevID)
	if err != nil {
		slog.Error("fetch old wikitext failed", "page", page.Title, "revision", page.LastCheckedRevID, "error", err)
		return
	}
	newText, err := s.wiki.Wikitext(ctx, freshRevID)
	if err != nil {
		slog.Error("fetch new wikitext failed", "page", page.Title, "revision", freshRevID, "error", err)
		return
	}

	reconcile.VerifyChanges(base, changes, oldText, newText)
}

// buildResult assembles the API-facing view of one completed check.
func (s *CheckService) buildResult(ctx context.Context, title string, revID int64, fresh *model.RevisionSnapshot, changes []model.CommentChange, renames []model.SectionRename) (*model.CheckResult, error) {
	subsList, err := s.subs.ListByPage(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	muted, err := s.subs.MutedAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list muted authors: %w", err)
	}

	relevant := s.relevance.Filter(fresh, subsList, muted)

	bySection := make(map[string][]model.CommentSnapshot)
	for _, c := range relevant {
		headline := fresh.Headline(c.Index)
		bySection[headline] = append(bySection[headline], c)
	}

	return &model.CheckResult{
		PageTitle:  title,
		RevisionID: revID,
		All:        fresh.Comments,
		Relevant:   relevant,
		BySection:  bySection,
		Changes:    changes,
		Renames:    renames,
	}, nil
}

// persist writes the cycle's outcome: updated flags, the fresh snapshot, the
// pruned snapshot cache, and the new last-checked marker.
func (s *CheckService) persist(ctx context.Context, page model.Page, freshRevID int64, fresh *model.RevisionSnapshot, prior map[string]model.PriorFlags, changes []model.CommentChange) error {
	next := reconcile.NextFlags(prior, changes)
	for id, flags := range next {
		if flags == prior[id] {
			continue
		}
		if err := s.visits.SetFlags(ctx, page.Title, id, flags); err != nil {
			return fmt.Errorf("persist flags: %w", err)
		}
	}

	if err := s.revisions.Put(ctx, fresh); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	keep := []int64{freshRevID, page.LastCheckedRevID, page.PreviousVisitRevID}
	if err := s.revisions.Prune(ctx, page.Title, keep); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	if err := s.pages.UpdateLastChecked(ctx, page.Title, freshRevID); err != nil {
		return fmt.Errorf("record checked revision: %w", err)
	}
	return nil
}

// handleRefresh dispatches a manual check request.
func (s *CheckService) handleRefresh(ctx context.Context, req refreshRequest) error {
	if req.pageTitle == "" {
		return s.checkAll(ctx)
	}
	page, err := s.pages.Get(ctx, req.pageTitle)
	if err != nil {
		return err
	}
	if page == nil {
		return fmt.Errorf("page %q is not watched", req.pageTitle)
	}
	return s.checkPage(ctx, *page)
}
