// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// ProblemFraming is category A of a PaperRecord: how the paper frames its problem.
type ProblemFraming struct {
	CoreProblem    string `json:"core_problem" yaml:"core_problem"`
	StatedObstacle string `json:"stated_obstacle" yaml:"stated_obstacle"`
	GapClaim       string `json:"gap_claim" yaml:"gap_claim"`
	KeyDefinitions string `json:"key_definitions" yaml:"key_definitions"`
}

// DesignTaxonomy is category B: where the paper sits in the design space.
type DesignTaxonomy struct {
	InteractionParadigm string `json:"interaction_paradigm" yaml:"interaction_paradigm"`
	EmbodimentType      string `json:"embodiment_type" yaml:"embodiment_type"`
	InputModality       string `json:"input_modality" yaml:"input_modality"`
	AutonomyLevel       string `json:"autonomy_level" yaml:"autonomy_level"`
	SocialGesture       string `json:"social_gesture" yaml:"social_gesture"`
	MotionGeneration    string `json:"motion_generation" yaml:"motion_generation"`
}

// SystemDetails is category C: the built system.
type SystemDetails struct {
	Algorithm        string `json:"algorithm" yaml:"algorithm"`
	HardwareSpecs    string `json:"hardware_specs" yaml:"hardware_specs"`
	Latency          string `json:"latency" yaml:"latency"`
	SafetyMechanisms string `json:"safety_mechanisms" yaml:"safety_mechanisms"`
}

// StudyDesign is category D: the evaluation study. SampleSize is free
// text as reported by the paper ("12 participants", "n=30 (pilot)").
type StudyDesign struct {
	DesignType           string `json:"design_type" yaml:"design_type"`
	SampleSize           string `json:"sample_size" yaml:"sample_size"`
	TaskDescription      string `json:"task_description" yaml:"task_description"`
	IndependentVariables string `json:"independent_variables" yaml:"independent_variables"`
	DependentVariables   string `json:"dependent_variables" yaml:"dependent_variables"`
}

// Results is category E: findings and their relevance to the review.
type Results struct {
	KeyFinding         string `json:"key_finding" yaml:"key_finding"`
	UnexpectedResults  string `json:"unexpected_results" yaml:"unexpected_results"`
	Limitations        string `json:"limitations" yaml:"limitations"`
	FutureWork         string `json:"future_work" yaml:"future_work"`
	RelevanceToProject string `json:"relevance_to_project" yaml:"relevance_to_project"`
}

// PaperRecord is the canonical structured description of one paper.
// Authors are stored one entry per author in "Last, First" form.
// DOI and URL are empty when unknown.
type PaperRecord struct {
	ID          string   `json:"id" yaml:"id"`
	CitationKey string   `json:"citation_key" yaml:"citation_key"`
	Title       string   `json:"title" yaml:"title"`
	Authors     []string `json:"authors" yaml:"authors"`
	Journal     string   `json:"journal" yaml:"journal"`
	Year        string   `json:"year" yaml:"year"`
	DOI         string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`
	Volume      string   `json:"volume" yaml:"volume"`
	Issue       string   `json:"issue" yaml:"issue"`
	Abstract    string   `json:"abstract" yaml:"abstract"`

	ProblemFraming ProblemFraming `json:"problem_framing" yaml:"problem_framing"`
	DesignTaxonomy DesignTaxonomy `json:"design_taxonomy" yaml:"design_taxonomy"`
	System         SystemDetails  `json:"system" yaml:"system"`
	Study          StudyDesign    `json:"study" yaml:"study"`
	Results        Results        `json:"results" yaml:"results"`
}

// Clone returns a copy that shares no slices with r.
func (r *PaperRecord) Clone() *PaperRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Authors != nil {
		c.Authors = append([]string(nil), r.Authors...)
	}
	return &c
}

// FirstAuthorSurname returns the family name of the first author, or "".
func (r *PaperRecord) FirstAuthorSurname() string {
	if r == nil || len(r.Authors) == 0 {
		return ""
	}
	first := strings.TrimSpace(r.Authors[0])
	if i := strings.Index(first, ","); i >= 0 {
		return strings.TrimSpace(first[:i])
	}
	if i := strings.LastIndex(first, " "); i >= 0 {
		return first[i+1:]
	}
	return first
}

// DOIURL returns the resolver URL for a DOI, or "" for an empty DOI.
func DOIURL(doi string) string {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return ""
	}
	return "https://doi.org/" + doi
}

// TrimDOI strips whitespace and resolver prefixes ("https://doi.org/",
// "doi:") from doi, preserving case.
func TrimDOI(doi string) string {
	d := strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if len(d) >= len(prefix) && strings.EqualFold(d[:len(prefix)], prefix) {
			d = d[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(d)
}

// NormalizeDOI is the comparison form of a DOI: trimmed, prefix-free and
// lowercased, so "https://doi.org/10.1/X" and " 10.1/x" compare equal.
func NormalizeDOI(doi string) string {
	return strings.ToLower(TrimDOI(doi))
}

// Status is the lifecycle state of an AnalyzedPaper.
type Status string

const (
	StatusPendingRelevance Status = "pending-relevance"
	StatusAnalyzing        Status = "analyzing"
	StatusComplete         Status = "complete"
	StatusError            Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingRelevance, StatusAnalyzing, StatusComplete, StatusError:
		return true
	}
	return false
}

// AnalyzedPaper wraps a PaperRecord with its intake lifecycle.
// Record is set iff Status is complete; Error is set iff Status is error.
type AnalyzedPaper struct {
	ID          string       `json:"id" yaml:"id"`
	FileName    string       `json:"file_name" yaml:"file_name"`
	UploadedAt  time.Time    `json:"uploaded_at" yaml:"uploaded_at"`
	Status      Status       `json:"status" yaml:"status"`
	Record      *PaperRecord `json:"record,omitempty" yaml:"record,omitempty"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
	IsDuplicate bool         `json:"is_duplicate,omitempty" yaml:"is_duplicate,omitempty"`
}

// Clone returns a deep copy of p.
func (p AnalyzedPaper) Clone() AnalyzedPaper {
	p.Record = p.Record.Clone()
	return p
}

// RelevanceResult is the outcome of the relevance pre-check.
type RelevanceResult struct {
	IsRelevant      bool     `json:"is_relevant" yaml:"is_relevant"`
	Score           int      `json:"score" yaml:"score"`
	Reasoning       string   `json:"reasoning" yaml:"reasoning"`
	MatchedSections []string `json:"matched_sections" yaml:"matched_sections"`
}
