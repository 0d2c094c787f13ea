// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package taxonomy asks the model for a Markdown narrative that groups
// the collection's papers by the review's sections and design dimensions.
// It only reads records.
package taxonomy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/llmjson"
	"github.com/pdiddy/litreview/pkg/types"
)

// ErrNoRecords means there is nothing to summarize.
var ErrNoRecords = errors.New("no complete records to summarize")

const systemInstruction = "You are an expert reviewer writing the related-work structure of a survey paper. Write clear Markdown."

var taxonomyPromptTmpl = template.Must(template.New("taxonomy").Funcs(template.FuncMap{
	"join": strings.Join,
	"add1": func(i int) int { return i + 1 },
}).Parse(`Build a taxonomy of the {{len .Records}} papers below for the literature review "{{.Profile.Title}}".

Review description: {{.Profile.Description}}
{{- if .Profile.TargetVenue}}
Target venue: {{.Profile.TargetVenue}}
{{- end}}
{{- if .Profile.Sections}}

Organize the papers under these review sections (a paper may appear in more than one):
{{- range .Profile.Sections}}
- {{.Name}} (goal: {{.CitationGoal}} citations): {{.Description}}
{{- end}}
{{- end}}

For each section write a short paragraph and cite papers by their [key]. Then add a
"Design dimensions" table comparing interaction paradigm, embodiment, input modality,
autonomy level and motion generation across papers. End with a "Gaps" section listing
under-covered sections against their citation goals.

Papers:
{{range $i, $r := .Records}}
{{add1 $i}}. [{{$r.Key}}] {{$r.Title}} ({{$r.Year}}) by {{join $r.Authors "; "}}
   Core problem: {{$r.CoreProblem}}
   Paradigm: {{$r.Paradigm}}; Embodiment: {{$r.Embodiment}}; Input: {{$r.Input}}; Autonomy: {{$r.Autonomy}}; Motion: {{$r.Motion}}
   Key finding: {{$r.KeyFinding}}
{{- end}}
`))

type promptRecord struct {
	Key, Title, Year string
	Authors          []string
	CoreProblem      string
	Paradigm         string
	Embodiment       string
	Input            string
	Autonomy         string
	Motion           string
	KeyFinding       string
}

// Generate returns the taxonomy narrative as Markdown. keys gives the
// citation key for each record, in the same order; a missing key falls
// back to the record's own.
func Generate(ctx context.Context, p llm.Provider, profile types.ResearchProfile, records []types.PaperRecord, keys []string) (string, error) {
	if len(records) == 0 {
		return "", ErrNoRecords
	}

	data := struct {
		Profile types.ResearchProfile
		Records []promptRecord
	}{Profile: profile}
	for i, r := range records {
		key := r.CitationKey
		if i < len(keys) && keys[i] != "" {
			key = keys[i]
		}
		data.Records = append(data.Records, promptRecord{
			Key:         key,
			Title:       r.Title,
			Year:        r.Year,
			Authors:     r.Authors,
			CoreProblem: r.ProblemFraming.CoreProblem,
			Paradigm:    r.DesignTaxonomy.InteractionParadigm,
			Embodiment:  r.DesignTaxonomy.EmbodimentType,
			Input:       r.DesignTaxonomy.InputModality,
			Autonomy:    r.DesignTaxonomy.AutonomyLevel,
			Motion:      r.DesignTaxonomy.MotionGeneration,
			KeyFinding:  r.Results.KeyFinding,
		})
	}

	var buf bytes.Buffer
	if err := taxonomyPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := p.Invoke(ctx, llm.Request{
		Prompt: buf.String(),
		System: systemInstruction,
		Mode:   llm.ModeText,
	})
	if err != nil {
		return "", err
	}
	return unwrapMarkdown(text), nil
}

// unwrapMarkdown removes a ```markdown fence the model sometimes adds.
func unwrapMarkdown(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	return strings.TrimSpace(llmjson.StripFence(s))
}
