// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreview/internal/collection"
	"github.com/pdiddy/litreview/internal/extract"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/llm/llmtest"
	"github.com/pdiddy/litreview/internal/pdftext"
	"github.com/pdiddy/litreview/internal/pdftext/pdftest"
	"github.com/pdiddy/litreview/internal/registry"
	"github.com/pdiddy/litreview/internal/screen"
	"github.com/pdiddy/litreview/pkg/types"
)

// fakeScreener scores by file content: the first word of the excerpt
// after "score=" is the score.
type fakeScreener struct {
	err error
}

func (f fakeScreener) Screen(_ context.Context, excerpt string, _ types.ResearchProfile) (types.RelevanceResult, error) {
	if f.err != nil {
		return types.RelevanceResult{}, f.err
	}
	score := 0
	if i := strings.Index(excerpt, "score="); i >= 0 {
		fmt.Sscanf(excerpt[i+len("score="):], "%d", &score)
	}
	return types.RelevanceResult{IsRelevant: screen.IsRelevant(score), Score: score, Reasoning: "fake"}, nil
}

// fakeExtractor returns a record whose DOI is taken from "doi=" in the text.
type fakeExtractor struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, fullText string, _ types.ResearchProfile) (*types.PaperRecord, error) {
	f.mu.Lock()
	f.texts = append(f.texts, fullText)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	doi := ""
	if i := strings.Index(fullText, "doi="); i >= 0 {
		doi = strings.Fields(fullText[i+len("doi="):])[0]
	}
	return &types.PaperRecord{Title: "Paper " + doi, Authors: []string{"Smith, Jane"}, DOI: doi}, nil
}

type passEnricher struct{}

func (passEnricher) Enrich(_ context.Context, rec *types.PaperRecord) *types.PaperRecord {
	return rec.Clone()
}

func newPipeline(t *testing.T, ex Extractor) *Pipeline {
	t.Helper()
	coll, err := collection.Open(context.Background(), nil)
	require.NoError(t, err)
	return &Pipeline{
		Collection: coll,
		Screener:   fakeScreener{},
		Extractor:  ex,
		Enricher:   passEnricher{},
	}
}

func upload(name string, pages ...string) Upload {
	return Upload{Name: name, Content: pdftest.Build(pages...)}
}

func submitAndWait(t *testing.T, p *Pipeline, up Upload, d Decider) types.AnalyzedPaper {
	t.Helper()
	task, err := p.Submit(context.Background(), up, d)
	require.NoError(t, err)
	paper, err := task.Wait()
	require.NoError(t, err)
	return paper
}

func TestDuplicateDOIScenario(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{})
	d := AutoDecider{}

	a := submitAndWait(t, p, upload("paperA.pdf", "score=85 doi=10.1/x"), d)
	b := submitAndWait(t, p, upload("paperB.pdf", "score=85 doi=10.1/X"), d)

	assert.Equal(t, types.StatusComplete, a.Status)
	assert.Equal(t, types.StatusComplete, b.Status)
	assert.True(t, b.IsDuplicate)

	a, err := p.Collection.Get(a.ID)
	require.NoError(t, err)
	assert.False(t, a.IsDuplicate, "paperA is unchanged")
}

func TestRejectedCreatesNoRecord(t *testing.T) {
	ex := &fakeExtractor{}
	p := newPipeline(t, ex)

	_, err := p.Submit(context.Background(), upload("low.pdf", "score=39"), AutoDecider{})
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Empty(t, p.Collection.Snapshot())
	assert.Empty(t, ex.texts, "extraction never runs for rejected papers")
}

func TestThresholdAcceptsForty(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{})
	paper := submitAndWait(t, p, upload("edge.pdf", "score=40"), AutoDecider{})
	assert.Equal(t, types.StatusComplete, paper.Status)
}

func TestScreeningErrorCreatesNoRecord(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{})
	p.Screener = fakeScreener{err: screen.ErrScreeningParse}

	_, err := p.Submit(context.Background(), upload("a.pdf", "text"), AutoDecider{Force: true})
	assert.True(t, errors.Is(err, screen.ErrScreeningParse))
	assert.Empty(t, p.Collection.Snapshot())
}

func TestCorruptPDFCreatesNoRecord(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{})
	_, err := p.Submit(context.Background(), Upload{Name: "junk.pdf", Content: []byte("not a pdf")}, AutoDecider{Force: true})
	assert.True(t, errors.Is(err, pdftext.ErrExtraction))
	assert.Empty(t, p.Collection.Snapshot())
}

func TestNoTextLayerCreatesNoRecord(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{})
	_, err := p.Submit(context.Background(), upload("scan.pdf", "", ""), AutoDecider{Force: true})
	assert.True(t, errors.Is(err, pdftext.ErrExtraction))
	assert.Empty(t, p.Collection.Snapshot())
}

func TestExtractionFailureMarksError(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{err: fmt.Errorf("%w: missing keys: results", extract.ErrIncompleteExtraction)})
	paper := submitAndWait(t, p, upload("a.pdf", "score=90"), AutoDecider{})

	assert.Equal(t, types.StatusError, paper.Status)
	assert.Contains(t, paper.Error, "missing keys")
	assert.Nil(t, paper.Record)
}

func TestScannedLeadingPagesStillScreened(t *testing.T) {
	ex := &fakeExtractor{}
	p := newPipeline(t, ex)
	p.ExcerptPages = 1

	paper := submitAndWait(t, p, upload("late.pdf", "", "", "", "score=90", "body doi=10.1/late"), AutoDecider{})
	assert.Equal(t, types.StatusComplete, paper.Status)
	assert.Equal(t, "10.1/late", paper.Record.DOI)
	require.Len(t, ex.texts, 1)
	assert.Contains(t, ex.texts[0], "score=90")
	assert.Contains(t, ex.texts[0], "body doi=10.1/late")
}

func TestExcerptUsesFirstPagesWithText(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{})
	p.ExcerptPages = 1

	// The relevance score sits on the second text page, past the excerpt.
	_, err := p.Submit(context.Background(), upload("a.pdf", "", "intro only", "score=90"), AutoDecider{})
	assert.True(t, errors.Is(err, ErrRejected))
}

func TestFullTextAndExcerpt(t *testing.T) {
	ex := &fakeExtractor{}
	p := newPipeline(t, ex)
	p.ExcerptPages = 1

	submitAndWait(t, p, upload("a.pdf", "score=90", "second page", "third page"), AutoDecider{})
	require.Len(t, ex.texts, 1)
	assert.Contains(t, ex.texts[0], "third page", "extraction sees every page")
}

func TestDuplicateFilenameAdvisory(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{})
	submitAndWait(t, p, upload("same.pdf", "score=90 doi=10.1/a"), AutoDecider{})

	_, err := p.Submit(context.Background(), upload("same.pdf", "score=90 doi=10.1/b"), AutoDecider{})
	assert.True(t, errors.Is(err, ErrSkipped))
	assert.Len(t, p.Collection.Snapshot(), 1)

	submitAndWait(t, p, upload("same.pdf", "score=90 doi=10.1/b"), AutoDecider{AllowDuplicateFiles: true})
	assert.Len(t, p.Collection.Snapshot(), 2)
}

func TestAutoDecider(t *testing.T) {
	low := types.RelevanceResult{Score: 20, IsRelevant: false}
	high := types.RelevanceResult{Score: 60, IsRelevant: true}

	assert.False(t, AutoDecider{}.Accept("x", low))
	assert.True(t, AutoDecider{}.Accept("x", high))
	assert.True(t, AutoDecider{Force: true}.Accept("x", low))
	assert.False(t, AutoDecider{MinScore: 70}.Accept("x", high))
	assert.True(t, AutoDecider{MinScore: 10}.Accept("x", low))

	assert.False(t, AutoDecider{}.ConfirmDuplicateFile("x", nil))
	assert.True(t, AutoDecider{Force: true}.ConfirmDuplicateFile("x", nil))
}

func TestPromptDecider(t *testing.T) {
	var out bytes.Buffer
	d := &PromptDecider{In: strings.NewReader("y\nno\n"), Out: &out}
	r := types.RelevanceResult{Score: 72, Reasoning: "On topic", MatchedSections: []string{"Motion"}}

	assert.True(t, d.Accept("a.pdf", r))
	assert.False(t, d.Accept("b.pdf", r))
	assert.False(t, d.Accept("c.pdf", r), "end of input means no")

	assert.Contains(t, out.String(), "a.pdf: relevance 72 (keep-high)")
	assert.Contains(t, out.String(), "sections: Motion")
}

func TestRunBatch(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{})
	p.Concurrency = 3

	uploads := []Upload{
		upload("a.pdf", "score=80 doi=10.1/a"),
		upload("b.pdf", "score=10"),
		upload("c.pdf", "score=80 doi=10.1/c"),
		{Name: "d.pdf", Content: []byte("garbage")},
		upload("e.pdf", "score=75 doi=10.1/e"),
	}
	var out bytes.Buffer
	sum := p.Run(context.Background(), uploads, AutoDecider{}, &out)

	assert.Equal(t, 3, sum.Completed)
	assert.Equal(t, 1, sum.Rejected)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 5, sum.Total())
	assert.True(t, sum.HasFailures())
	assert.Contains(t, out.String(), "completed: 3 (duplicates: 0), rejected: 1, skipped: 0, failed: 1")
	assert.Len(t, p.Collection.Snapshot(), 3)
}

func TestRunBatchCountsDuplicates(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{})
	p.Concurrency = 1
	sum := p.Run(context.Background(), []Upload{
		upload("a.pdf", "score=80 doi=10.1/same"),
		upload("b.pdf", "score=80 doi=10.1/SAME"),
	}, AutoDecider{}, &bytes.Buffer{})
	assert.Equal(t, 2, sum.Completed)
	assert.Equal(t, 1, sum.Duplicates)
}

const extractionReply = "```json\n" + `{
  "citation_key": "", "title": "Expressive Gestures", "authors": "Jane Smith and John Doe",
  "journal": "", "year": "2021", "doi": "10.1/x", "volume": "", "issue": "", "abstract": "",
  "problem_framing": {}, "design_taxonomy": {}, "system": {}, "study": {}, "results": {}
}` + "\n```"

// TestEndToEnd wires the real screener, extractor and enricher to a
// scripted model and a registry that knows nothing.
func TestEndToEnd(t *testing.T) {
	provider := &llmtest.Provider{Respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, `"problem_framing"`) {
			return extractionReply, nil
		}
		return `{"score": 85, "reasoning": "robot arm gestures", "matchedSections": ["Motion"]}`, nil
	}}
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	coll, err := collection.Open(context.Background(), nil)
	require.NoError(t, err)
	reg := &registry.Client{Config: types.RegistryConfig{BaseURL: ts.URL}, HTTP: ts.Client()}
	p := New(types.PipelineConfig{Profile: types.ResearchProfile{Title: "Gestures"}}, provider, reg, coll, nil)

	task, err := p.Submit(context.Background(), upload("paperA.pdf", "Robot arms waving"), AutoDecider{})
	require.NoError(t, err)
	assert.Equal(t, 85, task.Relevance.Score)

	paper, err := task.Wait()
	require.NoError(t, err)
	require.Equal(t, types.StatusComplete, paper.Status, paper.Error)
	assert.Equal(t, "Expressive Gestures", paper.Record.Title)
	assert.Equal(t, []string{"Smith, Jane", "Doe, John"}, paper.Record.Authors)
	assert.Equal(t, "10.1/x", paper.Record.DOI, "registry 404 leaves the draft unchanged")
	assert.Len(t, provider.Requests(), 2)
}
