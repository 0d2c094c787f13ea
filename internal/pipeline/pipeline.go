// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one paper from raw PDF bytes to a committed
// collection record: text, relevance gate, structured extraction,
// enrichment, commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/collection"
	"github.com/pdiddy/litreview/internal/enrich"
	"github.com/pdiddy/litreview/internal/extract"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/pdftext"
	"github.com/pdiddy/litreview/internal/screen"
	"github.com/pdiddy/litreview/pkg/types"
)

var (
	// ErrSkipped means the caller declined to resubmit a known filename.
	ErrSkipped = errors.New("submission skipped")

	// ErrRejected means the paper did not pass the relevance gate.
	ErrRejected = errors.New("rejected at relevance check")
)

// Upload is one file handed to the pipeline.
type Upload struct {
	Name    string
	Content []byte
}

// ReadUpload reads path into an Upload named by its base name.
func ReadUpload(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Upload{Name: filepath.Base(path), Content: data}, nil
}

// Screener scores an excerpt against the research profile.
type Screener interface {
	Screen(ctx context.Context, excerpt string, profile types.ResearchProfile) (types.RelevanceResult, error)
}

// Extractor builds a draft record from full paper text.
type Extractor interface {
	Extract(ctx context.Context, fullText string, profile types.ResearchProfile) (*types.PaperRecord, error)
}

// Enricher repairs bibliographic fields. It must not fail.
type Enricher interface {
	Enrich(ctx context.Context, rec *types.PaperRecord) *types.PaperRecord
}

// Decider supplies the two decisions the pipeline leaves to its caller.
// Implementations must be safe for concurrent use.
type Decider interface {
	// ConfirmDuplicateFile is asked when name was uploaded before.
	ConfirmDuplicateFile(name string, existing []types.AnalyzedPaper) bool
	// Accept decides whether a screened paper proceeds to analysis.
	Accept(name string, result types.RelevanceResult) bool
}

// Pipeline wires the stages to one collection.
type Pipeline struct {
	Collection *collection.Manager
	Screener   Screener
	Extractor  Extractor
	Enricher   Enricher
	Profile    types.ResearchProfile

	// ExcerptPages is how many leading pages the relevance check reads.
	ExcerptPages int
	// Concurrency bounds Run. Values below 1 mean 1.
	Concurrency int

	Logger *zap.Logger
}

// New builds a Pipeline from one configuration snapshot.
func New(cfg types.PipelineConfig, provider llm.Provider, registry enrich.Registry, coll *collection.Manager, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		Collection:   coll,
		Screener:     screen.New(provider),
		Extractor:    extract.New(provider),
		Enricher:     enrich.New(registry, logger),
		Profile:      cfg.Profile,
		ExcerptPages: cfg.ExcerptPages,
		Concurrency:  cfg.Concurrency,
		Logger:       logger,
	}
}

// Task tracks the background analysis of one accepted paper.
type Task struct {
	ID        string
	FileName  string
	Relevance types.RelevanceResult

	done  chan struct{}
	paper types.AnalyzedPaper
	err   error
}

// Done is closed when the record reached complete or error.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until analysis finished and returns the committed record.
// An analysis failure is reported through the record's error status; err
// is non-nil only when the collection itself could not be updated.
func (t *Task) Wait() (types.AnalyzedPaper, error) {
	<-t.done
	return t.paper, t.err
}

// Submit runs the synchronous front of the pipeline for up and, when the
// paper is accepted, starts analysis in the background. Nothing is added
// to the collection unless the paper passes the relevance decision.
// Analysis ignores cancellation of ctx once started.
func (p *Pipeline) Submit(ctx context.Context, up Upload, d Decider) (*Task, error) {
	log := p.logger().With(zap.String("file", up.Name))

	if existing := p.Collection.CheckFilename(up.Name); len(existing) > 0 {
		if !d.ConfirmDuplicateFile(up.Name, existing) {
			return nil, fmt.Errorf("%w: %s was already uploaded", ErrSkipped, up.Name)
		}
		log.Info("pipeline: resubmitting known filename", zap.Int("existing", len(existing)))
	}

	doc, err := pdftext.Open(up.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", up.Name, err)
	}
	fullText := doc.Text(0)
	if strings.TrimSpace(fullText) == "" {
		return nil, fmt.Errorf("%s: %w: no text layer", up.Name, pdftext.ErrExtraction)
	}
	excerpt := doc.Excerpt(p.excerptPages())

	result, err := p.Screener.Screen(ctx, excerpt, p.Profile)
	if err != nil {
		return nil, fmt.Errorf("screening %s: %w", up.Name, err)
	}
	log.Info("pipeline: screened", zap.Int("score", result.Score), zap.Bool("relevant", result.IsRelevant))

	if !d.Accept(up.Name, result) {
		return nil, fmt.Errorf("%w: %s scored %d", ErrRejected, up.Name, result.Score)
	}

	id, err := p.Collection.Accept(ctx, up.Name)
	if err != nil {
		return nil, err
	}
	task := &Task{ID: id, FileName: up.Name, Relevance: result, done: make(chan struct{})}
	go p.analyze(context.WithoutCancel(ctx), task, fullText)
	return task, nil
}

func (p *Pipeline) analyze(ctx context.Context, task *Task, fullText string) {
	defer close(task.done)
	log := p.logger().With(zap.String("id", task.ID), zap.String("file", task.FileName))

	rec, err := p.Extractor.Extract(ctx, fullText, p.Profile)
	if err != nil {
		log.Warn("pipeline: extraction failed", zap.Error(err))
		task.err = p.Collection.FailAnalysis(ctx, task.ID, err.Error())
	} else {
		if p.Enricher != nil {
			rec = p.Enricher.Enrich(ctx, rec)
		}
		task.err = p.Collection.CompleteAnalysis(ctx, task.ID, rec)
	}
	if task.err != nil {
		log.Error("pipeline: commit failed", zap.Error(task.err))
		return
	}
	task.paper, task.err = p.Collection.Get(task.ID)
}

func (p *Pipeline) excerptPages() int {
	if p.ExcerptPages > 0 {
		return p.ExcerptPages
	}
	return pdftext.ExcerptPages
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
