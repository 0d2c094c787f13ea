// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SectionTarget is one section of the review being written, with the
// number of citations it should carry.
type SectionTarget struct {
	Name         string `json:"name" yaml:"name" mapstructure:"name"`
	CitationGoal int    `json:"citation_goal" yaml:"citation_goal" mapstructure:"citation_goal"`
	Description  string `json:"description" yaml:"description" mapstructure:"description"`
}

// ResearchProfile describes the literature review that screening and
// extraction prompts are steered toward. It is read-only to the pipeline.
type ResearchProfile struct {
	Title             string          `json:"title" yaml:"title" mapstructure:"title"`
	Description       string          `json:"description" yaml:"description" mapstructure:"description"`
	Keywords          []string        `json:"keywords" yaml:"keywords" mapstructure:"keywords"`
	TargetVenue       string          `json:"target_venue" yaml:"target_venue" mapstructure:"target_venue"`
	Sections          []SectionTarget `json:"sections" yaml:"sections" mapstructure:"sections"`
	TotalCitationGoal int             `json:"total_citation_goal" yaml:"total_citation_goal" mapstructure:"total_citation_goal"`
}
