// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich repairs the bibliographic fields of an extracted record
// with registry data. Enrichment never fails: on a miss the record passes
// through unchanged.
package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/registry"
	"github.com/pdiddy/litreview/pkg/types"
)

// Registry is the lookup surface enrichment needs. *registry.Client
// satisfies it.
type Registry interface {
	LookupDOI(ctx context.Context, doi string) (*registry.Work, error)
	Search(ctx context.Context, title, author string) (*registry.Work, error)
}

// Enricher applies registry metadata to draft records.
type Enricher struct {
	Registry Registry
	Logger   *zap.Logger
}

// New returns an Enricher. A nil logger discards output.
func New(r Registry, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{Registry: r, Logger: logger}
}

// Enrich returns a copy of rec with journal, volume, issue, year, DOI and
// URL taken from the registry wherever the registry has a non-empty value.
// The DOI is tried first; a missing DOI or a failed DOI lookup falls back
// to a title and first-author search.
func (e *Enricher) Enrich(ctx context.Context, rec *types.PaperRecord) *types.PaperRecord {
	out := rec.Clone()
	if out == nil || e.Registry == nil {
		return out
	}
	log := e.logger().With(zap.String("title", out.Title))

	var work *registry.Work
	if out.DOI != "" {
		w, err := e.Registry.LookupDOI(ctx, out.DOI)
		if err != nil {
			log.Warn("enrich: DOI lookup failed", zap.String("doi", out.DOI), zap.Error(err))
		} else {
			work = w
		}
	}
	if work == nil {
		w, err := e.Registry.Search(ctx, out.Title, out.FirstAuthorSurname())
		if err != nil {
			log.Warn("enrich: bibliographic search failed, keeping extracted metadata", zap.Error(err))
			return out
		}
		work = w
	}

	Apply(out, work)
	log.Debug("enrich: applied registry metadata", zap.String("doi", out.DOI))
	return out
}

// Apply copies non-empty registry fields onto rec in place.
func Apply(rec *types.PaperRecord, w *registry.Work) {
	if rec == nil || w == nil {
		return
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&rec.Journal, w.Journal)
	set(&rec.Volume, w.Volume)
	set(&rec.Issue, w.Issue)
	set(&rec.Year, w.Year)
	if rec.Abstract == "" {
		rec.Abstract = w.Abstract
	}

	if doi := types.TrimDOI(w.DOI); doi != "" {
		rec.DOI = doi
		rec.URL = types.DOIURL(doi)
	}
	set(&rec.URL, w.URL)
}

func (e *Enricher) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
