// Package application contains use-case orchestration services.
package application

import (
	"context"
	"log/slog"

	"github.com/talkwatch/talkwatch/internal/domain/model"
	"github.com/talkwatch/talkwatch/internal/domain/port/driven"
	"github.com/talkwatch/talkwatch/internal/extract"
)

// Compile-time interface satisfaction check.
var _ driven.Extractor = (*ExtractPool)(nil)

type extractJob struct {
	pageTitle string
	revID     int64
	html      string
	result    chan extractResult
}

type extractResult struct {
	snapshot *model.RevisionSnapshot
	err      error
}

// ExtractPool runs snapshot extraction on a fixed pool of workers so that
// concurrent page checks cannot pile up unbounded parsing work.
type ExtractPool struct {
	parser  *extract.Parser
	workers int
	jobs    chan extractJob
}

// NewExtractPool creates a pool with the given worker count. Start must be
// called before Extract.
func NewExtractPool(parser *extract.Parser, workers int) *ExtractPool {
	if workers < 1 {
		workers = 1
	}
	return &ExtractPool{
		parser:  parser,
		workers: workers,
		jobs:    make(chan extractJob),
	}
}

// Start launches the workers. They run until the context is canceled.
func (p *ExtractPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx)
	}
	slog.Debug("extract pool started", "workers", p.workers)
}

func (p *ExtractPool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			snapshot, err := p.parser.Parse(job.pageTitle, job.revID, job.html)
			job.result <- extractResult{snapshot: snapshot, err: err}
		}
	}
}

// Extract parses the rendered HTML of one revision on a pool worker. It
// blocks until a worker picks up the job and finishes, or the context is
// canceled.
func (p *ExtractPool) Extract(ctx context.Context, pageTitle string, revID int64, html string) (*model.RevisionSnapshot, error) {
	job := extractJob{
		pageTitle: pageTitle,
		revID:     revID,
		html:      html,
		result:    make(chan extractResult, 1),
	}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-job.result:
		return res.snapshot, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
