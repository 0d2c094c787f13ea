// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/litreview/internal/llmjson"
	"github.com/pdiddy/litreview/pkg/types"
)

// requiredKeys must appear at the top level of every reply.
var requiredKeys = []string{
	"title",
	"authors",
	"problem_framing",
	"design_taxonomy",
	"system",
	"study",
	"results",
}

// ParseFailure explains why a reply could not become a record. Kind is
// ErrExtractionParse or ErrIncompleteExtraction.
type ParseFailure struct {
	Kind   error
	Reason string
}

// ParseResult is either a Record or a Failure, never both.
type ParseResult struct {
	Record  *types.PaperRecord
	Failure *ParseFailure
}

// OK reports whether parsing produced a record.
func (r ParseResult) OK() bool {
	return r.Failure == nil && r.Record != nil
}

// Err returns the failure as an error wrapping its Kind, or nil.
func (r ParseResult) Err() error {
	if r.Failure == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", r.Failure.Kind, r.Failure.Reason)
}

func failed(kind error, format string, args ...any) ParseResult {
	return ParseResult{Failure: &ParseFailure{Kind: kind, Reason: fmt.Sprintf(format, args...)}}
}

// Parse validates a model reply and builds a PaperRecord. Keys are matched
// ignoring case and underscores, so "citationKey" and "citation_key" are
// equivalent. Absent category fields become "".
func Parse(reply string) ParseResult {
	cleaned := llmjson.Clean(reply)
	if !strings.HasPrefix(cleaned, "{") {
		return failed(ErrExtractionParse, "no JSON object in response")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &top); err != nil {
		return failed(ErrExtractionParse, "%v", err)
	}
	fields := normalizeKeys(top)

	var missing []string
	for _, k := range requiredKeys {
		if _, ok := fields[keyOf(k)]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return failed(ErrIncompleteExtraction, "missing keys: %s", strings.Join(missing, ", "))
	}

	rec := &types.PaperRecord{}
	var err error
	str := func(key string) string {
		if err != nil {
			return ""
		}
		var v lenientString
		if raw, ok := fields[keyOf(key)]; ok {
			if uerr := json.Unmarshal(raw, &v); uerr != nil {
				err = fmt.Errorf("field %s: %v", key, uerr)
			}
		}
		return string(v)
	}

	rec.CitationKey = str("citation_key")
	rec.Title = str("title")
	rec.Journal = str("journal")
	rec.Year = str("year")
	rec.DOI = types.TrimDOI(str("doi"))
	rec.URL = str("url")
	rec.Volume = str("volume")
	rec.Issue = str("issue")
	rec.Abstract = str("abstract")
	if err != nil {
		return failed(ErrExtractionParse, "%v", err)
	}

	var authors authorList
	if err := json.Unmarshal(fields[keyOf("authors")], &authors); err != nil {
		return failed(ErrExtractionParse, "field authors: %v", err)
	}
	rec.Authors = NormalizeAuthors(authors)

	cats := map[string]category{}
	for _, k := range []string{"problem_framing", "design_taxonomy", "system", "study", "results"} {
		c, cerr := decodeCategory(fields[keyOf(k)])
		if cerr != nil {
			return failed(ErrIncompleteExtraction, "%s: %v", k, cerr)
		}
		cats[k] = c
	}

	pf := cats["problem_framing"]
	rec.ProblemFraming = types.ProblemFraming{
		CoreProblem:    pf.get("core_problem"),
		StatedObstacle: pf.get("stated_obstacle"),
		GapClaim:       pf.get("gap_claim"),
		KeyDefinitions: pf.get("key_definitions"),
	}
	dt := cats["design_taxonomy"]
	rec.DesignTaxonomy = types.DesignTaxonomy{
		InteractionParadigm: dt.get("interaction_paradigm"),
		EmbodimentType:      dt.get("embodiment_type"),
		InputModality:       dt.get("input_modality"),
		AutonomyLevel:       dt.get("autonomy_level"),
		SocialGesture:       dt.get("social_gesture"),
		MotionGeneration:    dt.get("motion_generation"),
	}
	sy := cats["system"]
	rec.System = types.SystemDetails{
		Algorithm:        sy.get("algorithm"),
		HardwareSpecs:    sy.get("hardware_specs"),
		Latency:          sy.get("latency"),
		SafetyMechanisms: sy.get("safety_mechanisms"),
	}
	st := cats["study"]
	rec.Study = types.StudyDesign{
		DesignType:           st.get("design_type"),
		SampleSize:           st.get("sample_size"),
		TaskDescription:      st.get("task_description"),
		IndependentVariables: st.get("independent_variables"),
		DependentVariables:   st.get("dependent_variables"),
	}
	rs := cats["results"]
	rec.Results = types.Results{
		KeyFinding:         rs.get("key_finding"),
		UnexpectedResults:  rs.get("unexpected_results"),
		Limitations:        rs.get("limitations"),
		FutureWork:         rs.get("future_work"),
		RelevanceToProject: rs.get("relevance_to_project"),
	}

	if rec.URL == "" {
		rec.URL = types.DOIURL(rec.DOI)
	}
	return ParseResult{Record: rec}
}

// keyOf folds a JSON key for lenient matching.
func keyOf(k string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(k))
}

func normalizeKeys(m map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	// Sorted so that exact snake_case keys win over later aliases deterministically.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		nk := keyOf(k)
		if _, dup := out[nk]; !dup {
			out[nk] = m[k]
		}
	}
	return out
}

// category is one of the five semantic groups, keyed by folded field name.
type category map[string]string

func (c category) get(field string) string {
	return c[keyOf(field)]
}

func decodeCategory(raw json.RawMessage) (category, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("expected an object")
	}
	var m map[string]lenientString
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	c := make(category, len(m))
	for k, v := range m {
		c[keyOf(k)] = string(v)
	}
	return c, nil
}

// lenientString decodes any JSON scalar as a trimmed string: numbers keep their
// literal form, null becomes "", and arrays are joined with "; ".
type lenientString string

func (t *lenientString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = lenientString(strings.TrimSpace(s))
	case b[0] == '[':
		var parts []lenientString
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		var kept []string
		for _, p := range parts {
			if p != "" {
				kept = append(kept, string(p))
			}
		}
		*t = lenientString(strings.Join(kept, "; "))
	case b[0] == '{':
		return fmt.Errorf("expected a string, got an object")
	default:
		*t = lenientString(string(b))
	}
	return nil
}

// authorList accepts an array of names, an array of {family, given}
// objects, or a single string.
type authorList []string

func (a *authorList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*a = nil
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = authorList{s}
		return nil
	case b[0] != '[':
		return fmt.Errorf("expected an array of author names")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(authorList, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			var obj struct {
				Family string `json:"family"`
				Given  string `json:"given"`
				Name   string `json:"name"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				return err
			}
			switch {
			case obj.Family != "" && obj.Given != "":
				out = append(out, obj.Family+", "+obj.Given)
			case obj.Family != "":
				out = append(out, obj.Family)
			default:
				out = append(out, obj.Name)
			}
			continue
		}
		var s lenientString
		if err := json.Unmarshal(item, &s); err != nil {
			return err
		}
		out = append(out, string(s))
	}
	*a = out
	return nil
}
