// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract produces the structured PaperRecord for a paper's full
// text through one model call, then validates and normalizes the reply.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/pkg/types"
)

var (
	// ErrExtractionParse means the reply is not valid JSON after fence stripping.
	ErrExtractionParse = errors.New("could not parse extraction response")

	// ErrIncompleteExtraction means required keys are missing from the reply.
	ErrIncompleteExtraction = errors.New("incomplete extraction")
)

// Extractor runs structured extraction. It holds no state between calls.
type Extractor struct {
	Provider llm.Provider
}

// New returns an Extractor that calls p.
func New(p llm.Provider) *Extractor {
	return &Extractor{Provider: p}
}

// Extract asks the model for the full record of the paper in fullText.
// The returned record is a draft: bibliographic fields have not been
// checked against the registry yet. Gateway errors pass through unchanged.
func (e *Extractor) Extract(ctx context.Context, fullText string, profile types.ResearchProfile) (*types.PaperRecord, error) {
	prompt, err := renderPrompt(fullText, profile)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := e.Provider.Invoke(ctx, llm.Request{
		Prompt: prompt,
		System: systemInstruction,
		Mode:   llm.ModeJSON,
	})
	if err != nil {
		return nil, err
	}

	res := Parse(text)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Record, nil
}
