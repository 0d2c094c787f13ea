// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pdiddy/litreview/internal/screen"
	"github.com/pdiddy/litreview/pkg/types"
)

// AutoDecider decides without asking anyone.
type AutoDecider struct {
	// MinScore replaces the default gate when positive.
	MinScore int
	// Force accepts every paper and every repeated filename.
	Force bool
	// AllowDuplicateFiles resubmits known filenames.
	AllowDuplicateFiles bool
}

// ConfirmDuplicateFile implements Decider.
func (a AutoDecider) ConfirmDuplicateFile(string, []types.AnalyzedPaper) bool {
	return a.Force || a.AllowDuplicateFiles
}

// Accept implements Decider.
func (a AutoDecider) Accept(_ string, r types.RelevanceResult) bool {
	if a.Force {
		return true
	}
	if a.MinScore > 0 {
		return r.Score >= a.MinScore
	}
	return r.IsRelevant
}

// PromptDecider asks on a terminal. Questions from concurrent pipelines
// are serialized.
type PromptDecider struct {
	In  io.Reader
	Out io.Writer

	mu     sync.Mutex
	reader *bufio.Reader
}

// ConfirmDuplicateFile implements Decider.
func (p *PromptDecider) ConfirmDuplicateFile(name string, existing []types.AnalyzedPaper) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.Out, "%s was already uploaded:\n", name)
	for _, e := range existing {
		fmt.Fprintf(p.Out, "  [%s] %s %s\n", shortID(e.ID), e.Status, e.UploadedAt.Format("2006-01-02 15:04"))
	}
	return p.ask("Submit it again?")
}

// Accept implements Decider.
func (p *PromptDecider) Accept(name string, r types.RelevanceResult) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.Out, "%s: relevance %d (%s)\n", name, r.Score, screen.BandFor(r.Score))
	if r.Reasoning != "" {
		fmt.Fprintf(p.Out, "  %s\n", r.Reasoning)
	}
	if len(r.MatchedSections) > 0 {
		fmt.Fprintf(p.Out, "  sections: %s\n", strings.Join(r.MatchedSections, ", "))
	}
	return p.ask("Analyze this paper?")
}

// ask reads a y/N answer. End of input counts as no.
func (p *PromptDecider) ask(question string) bool {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	fmt.Fprintf(p.Out, "%s [y/N] ", question)
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.Out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
