// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Volume         string    `yaml:"volume,omitempty"`
	Issue          string    `yaml:"issue,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// WriteCSL writes records as a CSL-YAML list. Entries without a citation
// key get a derived one.
func WriteCSL(w io.Writer, records []types.PaperRecord) error {
	keys := CitationKeys(records)
	items := make([]CSLItem, len(records))
	for i := range records {
		items[i] = toCSLItem(&records[i], keys[i])
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(r *types.PaperRecord, key string) CSLItem {
	item := CSLItem{
		ID:             key,
		Type:           "article-journal",
		Title:          r.Title,
		ContainerTitle: r.Journal,
		Volume:         r.Volume,
		Issue:          r.Issue,
		Abstract:       r.Abstract,
		DOI:            r.DOI,
		URL:            r.URL,
	}
	for _, a := range r.Authors {
		if n := parseAuthorName(a); n != (CSLName{}) {
			item.Author = append(item.Author, n)
		}
	}
	if y, err := strconv.Atoi(strings.TrimSpace(r.Year)); err == nil && y > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{y}}}
	}
	return item
}

// parseAuthorName splits a "Last, First" name into CSL family/given parts.
// Names without a comma split on the last space; single tokens use the
// literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		return CSLName{Family: strings.TrimSpace(family), Given: strings.TrimSpace(given)}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
