// Package fields maps canonical semantic field names (timestamp, positions,
// velocity, ...) to the actual header names of a given log file, through
// per-family alias tables and user-declared column overrides.
package fields

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Canonical field names. Every family's rows resolve into these.
const (
	Timestamp = "timestamp"
	TrackID   = "track_id"
	X         = "x"
	Y         = "y"
	Z         = "z"
	VX        = "v_x"
	VY        = "v_y"
	Heading   = "heading"
	Length    = "length"
	Width     = "width"
	Height    = "height"
	Class     = "class"
)

// Required lists the canonical fields a windowed sensor log cannot be
// indexed without. A file missing any of them is skipped entirely.
var Required = []string{Timestamp, X, Y}

// AliasTable maps a canonical field to the header spellings that resolve to
// it. Matching is normalized, so spellings differing only in case or
// punctuation collapse together.
type AliasTable map[string][]string

// Normalize lowercases s and strips everything but letters and digits.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve maps canonical field names to actual header names.
//
// Precedence per canonical field: a header equal (normalized) to the
// canonical name itself, then an explicit override whose named column exists
// in headers, then the alias list in sorted order (sorted so two matching
// aliases always pick the same one). Unresolved fields are simply absent.
func Resolve(headers []string, aliases AliasTable, overrides map[string]string) map[string]string {
	byNorm := make(map[string]string, len(headers))
	actual := make(map[string]bool, len(headers))
	for _, h := range headers {
		h = strings.TrimSpace(h)
		actual[h] = true
		n := Normalize(h)
		if n != "" {
			if _, dup := byNorm[n]; !dup {
				byNorm[n] = h
			}
		}
	}

	out := make(map[string]string)
	for canonical := range aliases {
		if got, ok := byNorm[Normalize(canonical)]; ok {
			out[canonical] = got
		}
	}

	for canonical, column := range overrides {
		canonical = strings.TrimSpace(canonical)
		column = strings.TrimSpace(column)
		if canonical == "" || column == "" {
			continue
		}
		if _, done := out[canonical]; done {
			continue
		}
		if actual[column] {
			out[canonical] = column
		}
	}

	for canonical, names := range aliases {
		if _, done := out[canonical]; done {
			continue
		}
		normed := make([]string, 0, len(names))
		for _, a := range names {
			normed = append(normed, Normalize(a))
		}
		sort.Strings(normed)
		for _, n := range normed {
			if got, ok := byNorm[n]; ok {
				out[canonical] = got
				break
			}
		}
	}
	return out
}

// Indices converts a resolved canonical->header map into canonical->column
// positions for headerless re-parsing. Headers absent from the line are
// skipped.
func Indices(headers []string, resolved map[string]string) map[string]int {
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	out := make(map[string]int, len(resolved))
	for canonical, header := range resolved {
		if i, ok := pos[header]; ok {
			out[canonical] = i
		}
	}
	return out
}

// MissingRequired returns the required canonical fields absent from m.
func MissingRequired(m map[string]int) []string {
	var missing []string
	for _, f := range Required {
		if _, ok := m[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// SafeFloat parses s as a finite float. NaN, infinities, empty strings and
// garbage all report ok=false, never an error.
func SafeFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// SafeInt parses s as an integer, tolerating float spellings ("3.0").
func SafeInt(s string) (int, bool) {
	v, ok := SafeFloat(s)
	if !ok {
		return 0, false
	}
	return int(v), true
}
