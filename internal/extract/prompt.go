// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/litreview/pkg/types"
)

const systemInstruction = "You are a research analyst building a structured literature review database. You read full papers carefully and answer with a single JSON object that follows the requested schema exactly."

// extractionPromptTmpl instructs the model to fill every field of the
// record. The author-list rule is spelled out because models often return
// all authors as one comma-joined string.
var extractionPromptTmpl = template.Must(template.New("extraction").Funcs(template.FuncMap{"join": strings.Join}).Parse(`Analyze the academic paper below for the literature review "{{.Profile.Title}}".

Review description: {{.Profile.Description}}
Keywords: {{join .Profile.Keywords ", "}}
{{- if .Profile.Sections}}
Review sections:
{{- range .Profile.Sections}}
- {{.Name}}: {{.Description}}
{{- end}}
{{- end}}

Return a JSON object with ALL of the following keys. Every key must be present. When the paper does not provide the information, use an empty string "" (never omit a key, never use null).

{
  "citation_key": "surname of first author + year + first title word, lowercase (e.g. smith2021gesture)",
  "title": "full paper title",
  "authors": ["Last, First", "Last, First"],
  "journal": "journal or conference name",
  "year": "four-digit publication year",
  "doi": "DOI without resolver prefix, e.g. 10.1145/1234567",
  "volume": "",
  "issue": "",
  "abstract": "the paper abstract",
  "problem_framing": {
    "core_problem": "", "stated_obstacle": "", "gap_claim": "", "key_definitions": ""
  },
  "design_taxonomy": {
    "interaction_paradigm": "", "embodiment_type": "", "input_modality": "",
    "autonomy_level": "", "social_gesture": "", "motion_generation": ""
  },
  "system": {
    "algorithm": "", "hardware_specs": "", "latency": "", "safety_mechanisms": ""
  },
  "study": {
    "design_type": "", "sample_size": "", "task_description": "",
    "independent_variables": "", "dependent_variables": ""
  },
  "results": {
    "key_finding": "", "unexpected_results": "", "limitations": "",
    "future_work": "", "relevance_to_project": "why this paper matters for the review above"
  }
}

IMPORTANT: "authors" MUST be a JSON array with ONE element PER AUTHOR, each formatted "Last, First".
Correct: ["Smith, Jane", "Doe, John"]
Wrong:   ["Jane Smith, John Doe"]
Wrong:   "Smith, Jane; Doe, John"

Do not include any text outside the JSON object.

Paper text:
{{.Text}}
`))

func renderPrompt(text string, profile types.ResearchProfile) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Profile types.ResearchProfile
		Text    string
	}{profile, text}
	if err := extractionPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
