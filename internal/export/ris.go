// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/litreview/pkg/types"
)

// WriteRIS writes one JOUR entry per record. All non-empty category
// fields are packed into a single N1 note line.
func WriteRIS(w io.Writer, records []types.PaperRecord) error {
	bw := bufio.NewWriter(w)
	tag := func(name, value string) {
		if value = oneLine(value); value != "" {
			fmt.Fprintf(bw, "%s  - %s\r\n", name, value)
		}
	}

	for i := range records {
		r := &records[i]
		fmt.Fprintf(bw, "TY  - JOUR\r\n")
		for _, a := range r.Authors {
			tag("AU", a)
		}
		tag("TI", r.Title)
		tag("T2", r.Journal)
		tag("PY", r.Year)
		if r.Year != "" {
			tag("DA", oneLine(r.Year)+"///")
		}
		tag("DO", r.DOI)
		tag("IS", r.Issue)
		tag("VL", r.Volume)
		tag("AB", r.Abstract)
		tag("N1", risNote(r))
		fmt.Fprintf(bw, "ER  - \r\n\r\n")
	}
	return bw.Flush()
}

func risNote(r *types.PaperRecord) string {
	var parts []string
	for _, f := range categoryFields {
		if v := oneLine(f.Get(r)); v != "" {
			parts = append(parts, f.Label+": "+v)
		}
	}
	return strings.Join(parts, " | ")
}
