// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package screen scores a paper excerpt against the research profile
// before the expensive full extraction runs. The result is advisory: a
// human (or an auto-accept policy) decides what to do with it.
package screen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/llmjson"
	"github.com/pdiddy/litreview/pkg/types"
)

// RelevanceThreshold is the lowest score that counts as relevant.
const RelevanceThreshold = 40

// ErrScreeningParse means the model reply was not a usable screening result.
var ErrScreeningParse = errors.New("could not parse relevance screening response")

// Band names the advisory score range.
type Band string

const (
	BandHigh     Band = "keep-high"
	BandModerate Band = "keep-moderate"
	BandSkip     Band = "skip"
)

// BandFor returns the advisory band for score.
func BandFor(score int) Band {
	switch {
	case score >= 70:
		return BandHigh
	case score >= RelevanceThreshold:
		return BandModerate
	default:
		return BandSkip
	}
}

// IsRelevant applies the gate rule.
func IsRelevant(score int) bool {
	return score >= RelevanceThreshold
}

const systemInstruction = "You are a meticulous research assistant screening papers for a literature review. Reply with a single JSON object and nothing else."

var screeningPromptTmpl = template.Must(template.New("screening").Funcs(template.FuncMap{"join": strings.Join}).Parse(`Decide whether the paper excerpt below belongs in this literature review.

Review title: {{.Profile.Title}}
Review description: {{.Profile.Description}}
{{- if .Profile.TargetVenue}}
Target venue: {{.Profile.TargetVenue}}
{{- end}}
Keywords: {{join .Profile.Keywords ", "}}
{{- if .Profile.Sections}}

Sections of the review:
{{- range .Profile.Sections}}
- {{.Name}}: {{.Description}}
{{- end}}
{{- end}}

Score the paper from 0 to 100:
- 70-100: clearly relevant, keep (high priority)
- 40-69: partially relevant, keep (moderate priority)
- 0-39: not relevant, skip

Respond with a JSON object with exactly these fields:
{"score": <integer 0-100>, "reasoning": "<one or two sentences>", "matchedSections": ["<section name>", ...]}

matchedSections lists the review sections (by name, from the list above) the paper could be cited in. Use an empty array when none apply.

Paper excerpt (first pages):
{{.Excerpt}}
`))

// Screener runs the relevance pre-check. It holds no state between calls.
type Screener struct {
	Provider llm.Provider
}

// New returns a Screener that calls p.
func New(p llm.Provider) *Screener {
	return &Screener{Provider: p}
}

// Screen asks the model to score excerpt against profile. Gateway errors
// are returned unchanged; unusable replies wrap ErrScreeningParse. There
// is no retry.
func (s *Screener) Screen(ctx context.Context, excerpt string, profile types.ResearchProfile) (types.RelevanceResult, error) {
	prompt, err := renderPrompt(excerpt, profile)
	if err != nil {
		return types.RelevanceResult{}, fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := s.Provider.Invoke(ctx, llm.Request{
		Prompt: prompt,
		System: systemInstruction,
		Mode:   llm.ModeJSON,
	})
	if err != nil {
		return types.RelevanceResult{}, err
	}

	return Parse(text)
}

// screeningResponse is the model's reply. Pointers distinguish missing
// fields from zero values.
type screeningResponse struct {
	Score           *float64 `json:"score"`
	Reasoning       *string  `json:"reasoning"`
	MatchedSections []string `json:"matchedSections"`
}

// Parse validates a model reply and applies the gate rule.
func Parse(text string) (types.RelevanceResult, error) {
	var resp screeningResponse
	if err := llmjson.Decode(text, &resp); err != nil {
		return types.RelevanceResult{}, fmt.Errorf("%w: %v", ErrScreeningParse, err)
	}

	if resp.Score == nil {
		return types.RelevanceResult{}, fmt.Errorf("%w: missing score", ErrScreeningParse)
	}
	if resp.Reasoning == nil {
		return types.RelevanceResult{}, fmt.Errorf("%w: missing reasoning", ErrScreeningParse)
	}
	score := int(math.Round(*resp.Score))
	if score < 0 || score > 100 {
		return types.RelevanceResult{}, fmt.Errorf("%w: score %v out of range [0,100]", ErrScreeningParse, *resp.Score)
	}

	sections := make([]string, 0, len(resp.MatchedSections))
	for _, name := range resp.MatchedSections {
		if name = strings.TrimSpace(name); name != "" {
			sections = append(sections, name)
		}
	}

	return types.RelevanceResult{
		IsRelevant:      IsRelevant(score),
		Score:           score,
		Reasoning:       strings.TrimSpace(*resp.Reasoning),
		MatchedSections: sections,
	}, nil
}

func renderPrompt(excerpt string, profile types.ResearchProfile) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Profile types.ResearchProfile
		Excerpt string
	}{profile, excerpt}
	if err := screeningPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
