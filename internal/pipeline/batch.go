// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/litreview/pkg/types"
)

// BatchSummary holds counts from a batch intake run.
type BatchSummary struct {
	Completed  int
	Duplicates int
	Failed     int
	Rejected   int
	Skipped    int
}

// Total returns the number of uploads processed.
func (s BatchSummary) Total() int {
	return s.Completed + s.Failed + s.Rejected + s.Skipped
}

// HasFailures reports whether any upload failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// Run submits every upload and waits for all analyses, at most
// Concurrency papers at a time. One paper's failure never stops the
// others. Progress lines go to w.
func (p *Pipeline) Run(ctx context.Context, uploads []Upload, d Decider, w io.Writer) BatchSummary {
	var (
		mu      sync.Mutex
		summary BatchSummary
	)
	report := func(update func(*BatchSummary), format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		update(&summary)
		fmt.Fprintf(w, format, args...)
	}

	var g errgroup.Group
	g.SetLimit(max(p.Concurrency, 1))
	for _, up := range uploads {
		g.Go(func() error {
			task, err := p.Submit(ctx, up, d)
			switch {
			case errors.Is(err, ErrSkipped):
				report(func(s *BatchSummary) { s.Skipped++ }, "skipped  %s: already uploaded\n", up.Name)
				return nil
			case errors.Is(err, ErrRejected):
				report(func(s *BatchSummary) { s.Rejected++ }, "rejected %s: %v\n", up.Name, err)
				return nil
			case err != nil:
				report(func(s *BatchSummary) { s.Failed++ }, "failed   %s: %v\n", up.Name, err)
				return nil
			}

			paper, err := task.Wait()
			switch {
			case err != nil:
				report(func(s *BatchSummary) { s.Failed++ }, "failed   %s: %v\n", up.Name, err)
			case paper.Status == types.StatusError:
				report(func(s *BatchSummary) { s.Failed++ }, "failed   %s [%s]: %s\n", up.Name, shortID(paper.ID), paper.Error)
			case paper.IsDuplicate:
				report(func(s *BatchSummary) { s.Completed++; s.Duplicates++ },
					"complete %s [%s] %s (duplicate DOI %s)\n", up.Name, shortID(paper.ID), paper.Record.Title, paper.Record.DOI)
			default:
				report(func(s *BatchSummary) { s.Completed++ },
					"complete %s [%s] %s\n", up.Name, shortID(paper.ID), paper.Record.Title)
			}
			return nil
		})
	}
	g.Wait()

	fmt.Fprintf(w, "\ncompleted: %d (duplicates: %d), rejected: %d, skipped: %d, failed: %d\n",
		summary.Completed, summary.Duplicates, summary.Rejected, summary.Skipped, summary.Failed)
	return summary
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
