// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"
)

var conjunction = regexp.MustCompile(`(?i)\s+(?:and|&)\s+`)

// NormalizeAuthors returns one "Last, First" entry per author. A list of
// several entries is taken as one author per entry and only reformatted.
// A single entry may be the whole author line
// ("Jane Smith, John Doe and Ann Lee") and is split first.
func NormalizeAuthors(in []string) []string {
	names := in
	if len(in) == 1 {
		names = splitAuthors(in[0])
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if n := lastFirst(name); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// splitAuthors breaks one author line into individual names.
func splitAuthors(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.Contains(s, ";") {
		var names []string
		for _, part := range strings.Split(s, ";") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
		return names
	}

	segs := conjunction.Split(s, -1)
	if firstLastOrder(segs) {
		var names []string
		for _, seg := range segs {
			names = append(names, commaPieces(seg)...)
		}
		return names
	}

	var names []string
	for _, seg := range segs {
		names = append(names, splitCommas(seg)...)
	}
	return names
}

// firstLastOrder reports whether a conjunction-split line such as
// "Jane Smith, John Doe and Ann Lee" lists full "First Last" names: the
// name after the conjunction has no comma and every comma piece is a
// multi-word name.
func firstLastOrder(segs []string) bool {
	if len(segs) < 2 || strings.Contains(segs[len(segs)-1], ",") {
		return false
	}
	for _, seg := range segs {
		for _, p := range commaPieces(seg) {
			if !strings.Contains(p, " ") {
				return false
			}
		}
	}
	return true
}

// commaPieces splits seg on commas, dropping blanks and "et al".
func commaPieces(seg string) []string {
	var pieces []string
	for _, p := range strings.Split(seg, ",") {
		p = strings.TrimSpace(p)
		if p == "" || strings.EqualFold(strings.TrimSuffix(p, "."), "et al") {
			continue
		}
		pieces = append(pieces, p)
	}
	return pieces
}

// splitCommas handles a conjunction-free segment. Up to two comma pieces
// are one author ("de la Cruz, Maria Elena"). Longer runs are either
// "Last, First" pairs ("Smith, J., Doe, A.") or a list of full names
// ("Jane Smith, John Doe, Ann Lee").
func splitCommas(seg string) []string {
	pieces := commaPieces(seg)
	switch len(pieces) {
	case 0, 1:
		return pieces
	case 2:
		return []string{pieces[0] + ", " + pieces[1]}
	}

	allFull := true
	for _, p := range pieces {
		if !strings.Contains(p, " ") {
			allFull = false
			break
		}
	}
	if allFull || len(pieces)%2 != 0 {
		return pieces
	}
	names := make([]string, 0, len(pieces)/2)
	for i := 0; i < len(pieces); i += 2 {
		names = append(names, pieces[i]+", "+pieces[i+1])
	}
	return names
}

// lastFirst rewrites "First Middle Last" as "Last, First Middle". Names
// already containing a comma only get their spacing normalized.
func lastFirst(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	if last, first, ok := strings.Cut(name, ","); ok {
		last, first = strings.TrimSpace(last), strings.TrimSpace(first)
		if first == "" {
			return last
		}
		return last + ", " + first
	}
	fields := strings.Fields(name)
	if len(fields) == 1 {
		return name
	}
	return fields[len(fields)-1] + ", " + strings.Join(fields[:len(fields)-1], " ")
}
