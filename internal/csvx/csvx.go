// Package csvx tokenizes the raw sensor-log CSVs. It is deliberately not
// encoding/csv: the window segmenter and the bundle materializer key on
// per-line byte offsets, and real logs contain malformed quoting that must
// degrade to best-effort splitting instead of erroring.
package csvx

import (
	"strings"
)

// Delimiter candidates, in preference order after the caller's hint.
var candidates = []byte{',', ';', '\t'}

// DetectDelimiter picks, among {preferred, comma, semicolon, tab}, the byte
// occurring most often in the header line. Ties go to the earlier candidate,
// so the preferred delimiter wins when counts are equal.
func DetectDelimiter(header string, preferred byte) byte {
	order := make([]byte, 0, 4)
	seen := map[byte]bool{}
	for _, c := range append([]byte{preferred}, candidates...) {
		if c == 0 || seen[c] {
			continue
		}
		seen[c] = true
		order = append(order, c)
	}

	best := order[0]
	bestCount := -1
	for _, c := range order {
		n := strings.Count(header, string(c))
		if n > bestCount {
			best = c
			bestCount = n
		}
	}
	return best
}

// SplitLine splits one CSV line on delim, honoring double-quote escaping
// ("" inside a quoted field is a literal quote). Malformed quoting never
// fails; the remainder of the line is consumed as-is.
func SplitLine(line string, delim byte) []string {
	var fields []string
	var b strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				b.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == delim && !inQuotes:
			fields = append(fields, b.String())
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	fields = append(fields, b.String())
	return fields
}

// Table is a header-resolved view of a parsed CSV text.
type Table struct {
	Header    []string
	Rows      []map[string]string
	Delimiter byte
}

// ParseTable parses an entire CSV text into field-name -> value maps.
// Leading blank lines are skipped, a BOM on the header is stripped, values
// are whitespace-trimmed. There is no error path: empty or unparseable
// input yields an empty table.
func ParseTable(text string, preferred byte) Table {
	t := Table{Delimiter: ','}
	sc := NewLineScanner(text)

	var headerLine string
	for {
		line, _, _, ok := sc.Next()
		if !ok {
			return t
		}
		if strings.TrimSpace(line) != "" {
			headerLine = strings.TrimPrefix(line, "\ufeff")
			break
		}
	}

	t.Delimiter = DetectDelimiter(headerLine, preferred)
	for _, h := range SplitLine(headerLine, t.Delimiter) {
		t.Header = append(t.Header, strings.TrimSpace(h))
	}

	for {
		line, _, _, ok := sc.Next()
		if !ok {
			return t
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := SplitLine(line, t.Delimiter)
		row := make(map[string]string, len(t.Header))
		for i, name := range t.Header {
			if name == "" {
				continue
			}
			if i < len(cells) {
				row[name] = strings.TrimSpace(cells[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
}
