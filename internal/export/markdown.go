// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/litreview/pkg/types"
)

// WriteMarkdown writes one section per record with its bibliographic line
// and the non-empty category fields.
func WriteMarkdown(w io.Writer, records []types.PaperRecord) error {
	bw := bufio.NewWriter(w)
	keys := CitationKeys(records)

	for i := range records {
		r := &records[i]
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintf(bw, "## %s {#%s}\n\n", oneLine(r.Title), keys[i])
		fmt.Fprintln(bw, citationLine(r))

		for _, cat := range categoryHeadings {
			var lines []string
			for _, f := range categoryFields {
				if f.Category != cat.Key {
					continue
				}
				if v := oneLine(f.Get(r)); v != "" {
					lines = append(lines, fmt.Sprintf("- **%s:** %s", f.Label, v))
				}
			}
			if len(lines) == 0 {
				continue
			}
			fmt.Fprintf(bw, "\n### %s\n\n%s\n", cat.Title, strings.Join(lines, "\n"))
		}
	}
	return bw.Flush()
}

// citationLine renders "Authors (Year). *Journal*, Vol(Issue). DOI".
func citationLine(r *types.PaperRecord) string {
	var b strings.Builder
	if len(r.Authors) > 0 {
		b.WriteString(strings.Join(r.Authors, "; "))
	} else {
		b.WriteString("Unknown author")
	}
	if r.Year != "" {
		fmt.Fprintf(&b, " (%s)", r.Year)
	}
	b.WriteString(".")
	if r.Journal != "" {
		fmt.Fprintf(&b, " *%s*", oneLine(r.Journal))
		if r.Volume != "" {
			fmt.Fprintf(&b, ", %s", r.Volume)
			if r.Issue != "" {
				fmt.Fprintf(&b, "(%s)", r.Issue)
			}
		}
		b.WriteString(".")
	}
	if r.DOI != "" {
		fmt.Fprintf(&b, " [%s](%s)", r.DOI, types.DOIURL(r.DOI))
	}
	return b.String()
}
