// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes PaperRecords in formats that reference managers
// and spreadsheets read. Callers pass complete records only.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/litreview/pkg/types"
)

// Format names an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatRIS      Format = "ris"
	FormatCSL      Format = "csl"
	FormatMarkdown Format = "md"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatYAML, FormatCSV, FormatRIS, FormatCSL, FormatMarkdown}

// ParseFormat accepts a format name in any case. "markdown" is an alias
// for md and "yml" for yaml.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "markdown":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	default:
		for _, known := range Formats {
			if f == known {
				return f, nil
			}
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Extension returns the conventional file extension, with the dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSL:
		return ".yaml"
	case FormatMarkdown:
		return ".md"
	}
	return "." + string(f)
}

// Write encodes records to w in format f.
func Write(w io.Writer, f Format, records []types.PaperRecord) error {
	if records == nil {
		records = []types.PaperRecord{}
	}
	switch f {
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatYAML:
		return WriteYAML(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatRIS:
		return WriteRIS(w, records)
	case FormatCSL:
		return WriteCSL(w, records)
	case FormatMarkdown:
		return WriteMarkdown(w, records)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// WriteJSON writes records as one indented JSON array.
func WriteJSON(w io.Writer, records []types.PaperRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteYAML writes records as one YAML sequence.
func WriteYAML(w io.Writer, records []types.PaperRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(records)
}

// field is one semantic-category value, shared by the CSV, RIS and
// Markdown writers.
type field struct {
	Category string
	Key      string
	Label    string
	Get      func(r *types.PaperRecord) string
}

// categoryHeadings orders and titles the five categories.
var categoryHeadings = []struct{ Key, Title string }{
	{"problem_framing", "Problem framing"},
	{"design_taxonomy", "Design taxonomy"},
	{"system", "System"},
	{"study", "Study"},
	{"results", "Results"},
}

var categoryFields = []field{
	{"problem_framing", "core_problem", "Core problem", func(r *types.PaperRecord) string { return r.ProblemFraming.CoreProblem }},
	{"problem_framing", "stated_obstacle", "Stated obstacle", func(r *types.PaperRecord) string { return r.ProblemFraming.StatedObstacle }},
	{"problem_framing", "gap_claim", "Gap claim", func(r *types.PaperRecord) string { return r.ProblemFraming.GapClaim }},
	{"problem_framing", "key_definitions", "Key definitions", func(r *types.PaperRecord) string { return r.ProblemFraming.KeyDefinitions }},
	{"design_taxonomy", "interaction_paradigm", "Interaction paradigm", func(r *types.PaperRecord) string { return r.DesignTaxonomy.InteractionParadigm }},
	{"design_taxonomy", "embodiment_type", "Embodiment type", func(r *types.PaperRecord) string { return r.DesignTaxonomy.EmbodimentType }},
	{"design_taxonomy", "input_modality", "Input modality", func(r *types.PaperRecord) string { return r.DesignTaxonomy.InputModality }},
	{"design_taxonomy", "autonomy_level", "Autonomy level", func(r *types.PaperRecord) string { return r.DesignTaxonomy.AutonomyLevel }},
	{"design_taxonomy", "social_gesture", "Social gesture", func(r *types.PaperRecord) string { return r.DesignTaxonomy.SocialGesture }},
	{"design_taxonomy", "motion_generation", "Motion generation", func(r *types.PaperRecord) string { return r.DesignTaxonomy.MotionGeneration }},
	{"system", "algorithm", "Algorithm", func(r *types.PaperRecord) string { return r.System.Algorithm }},
	{"system", "hardware_specs", "Hardware", func(r *types.PaperRecord) string { return r.System.HardwareSpecs }},
	{"system", "latency", "Latency", func(r *types.PaperRecord) string { return r.System.Latency }},
	{"system", "safety_mechanisms", "Safety mechanisms", func(r *types.PaperRecord) string { return r.System.SafetyMechanisms }},
	{"study", "design_type", "Study design", func(r *types.PaperRecord) string { return r.Study.DesignType }},
	{"study", "sample_size", "Sample size", func(r *types.PaperRecord) string { return r.Study.SampleSize }},
	{"study", "task_description", "Task", func(r *types.PaperRecord) string { return r.Study.TaskDescription }},
	{"study", "independent_variables", "Independent variables", func(r *types.PaperRecord) string { return r.Study.IndependentVariables }},
	{"study", "dependent_variables", "Dependent variables", func(r *types.PaperRecord) string { return r.Study.DependentVariables }},
	{"results", "key_finding", "Key finding", func(r *types.PaperRecord) string { return r.Results.KeyFinding }},
	{"results", "unexpected_results", "Unexpected results", func(r *types.PaperRecord) string { return r.Results.UnexpectedResults }},
	{"results", "limitations", "Limitations", func(r *types.PaperRecord) string { return r.Results.Limitations }},
	{"results", "future_work", "Future work", func(r *types.PaperRecord) string { return r.Results.FutureWork }},
	{"results", "relevance_to_project", "Relevance", func(r *types.PaperRecord) string { return r.Results.RelevanceToProject }},
}

// CitationKey returns r.CitationKey, or "<surname><year>" in lowercase
// ASCII when the record has none. The record is not modified.
func CitationKey(r *types.PaperRecord) string {
	if k := strings.TrimSpace(r.CitationKey); k != "" {
		return k
	}
	surname := asciiFold(r.FirstAuthorSurname())
	if surname == "" {
		surname = "anon"
	}
	year := asciiFold(r.Year)
	if year == "" {
		year = "nd"
	}
	return surname + year
}

// CitationKeys assigns keys to records, suffixing a, b, c... to repeats.
func CitationKeys(records []types.PaperRecord) []string {
	keys := make([]string, len(records))
	seen := map[string]int{}
	for i := range records {
		k := CitationKey(&records[i])
		n := seen[k]
		seen[k] = n + 1
		if n > 0 {
			k += suffix(n)
		}
		keys[i] = k
	}
	return keys
}

// suffix maps 1 to "a", 26 to "z", 27 to "aa".
func suffix(n int) string {
	var s []byte
	for n > 0 {
		n--
		s = append([]byte{byte('a' + n%26)}, s...)
		n /= 26
	}
	return string(s)
}

var fold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// asciiFold strips accents, lowercases, and drops everything that is not
// an ASCII letter or digit.
func asciiFold(s string) string {
	out, _, err := transform.String(fold, s)
	if err != nil {
		out = s
	}
	var b strings.Builder
	for _, c := range strings.ToLower(out) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// oneLine collapses whitespace so a value fits a single-line format.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
