// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pdiddy/litreview/pkg/types"
)

var csvBaseColumns = []string{
	"id", "citation_key", "title", "authors", "journal", "year", "doi", "url", "volume", "issue", "abstract",
}

// WriteCSV writes a header row then one row per record. Authors are
// joined with "; " and category columns are named "<category>.<field>".
func WriteCSV(w io.Writer, records []types.PaperRecord) error {
	cw := csv.NewWriter(w)

	header := append([]string(nil), csvBaseColumns...)
	for _, f := range categoryFields {
		header = append(header, f.Category+"."+f.Key)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range records {
		r := &records[i]
		row := []string{
			r.ID, r.CitationKey, r.Title, strings.Join(r.Authors, "; "), r.Journal, r.Year,
			r.DOI, r.URL, r.Volume, r.Issue, r.Abstract,
		}
		for _, f := range categoryFields {
			row = append(row, f.Get(r))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
