package segment

import (
	"fmt"

	"github.com/v2x-tools/scenedex/internal/csvx"
	"github.com/v2x-tools/scenedex/internal/fields"
)

// Discriminator splits one physical file into several logical sensors by
// the value of a column. Values, when non-empty, whitelists which values
// become sensors; rows with other values are ignored.
type Discriminator struct {
	Column string
	Values []string
}

// ErrMissingRequired is returned by IndexLog when the header cannot supply
// the required canonical fields.
type ErrMissingRequired struct {
	Missing []string
}

func (e *ErrMissingRequired) Error() string {
	return fmt.Sprintf("header missing required fields %v", e.Missing)
}

// LogIndex is the per-file result of a windowing pass.
type LogIndex struct {
	Header     []string
	Delimiter  byte
	FieldIndex map[string]int
	Dropped    int
	// Windows keyed by discriminator value; the empty key holds the whole
	// file's windows when no discriminator is configured.
	Windows map[string][]Window
}

// IndexLog runs the single windowing pass over a log file's text:
// header resolution, per-row timestamp bucketing and window segmentation.
// Rows whose timestamp does not parse as a finite number are dropped and
// counted, never fatal. The byte offsets in the result index directly into
// text.
func IndexLog(text string, cfg Config, aliases fields.AliasTable, overrides map[string]string, preferredDelim byte, disc *Discriminator) (*LogIndex, error) {
	sc := csvx.NewLineScanner(text)
	headerLine, _, _, ok := sc.Next()
	if !ok {
		return nil, &ErrMissingRequired{Missing: fields.Required}
	}
	delim := csvx.DetectDelimiter(headerLine, preferredDelim)
	header := csvx.SplitLine(headerLine, delim)

	resolved := fields.Resolve(header, aliases, overrides)
	idx := fields.Indices(header, resolved)
	if missing := fields.MissingRequired(idx); len(missing) > 0 {
		return nil, &ErrMissingRequired{Missing: missing}
	}

	tsCol := idx[fields.Timestamp]
	discCol := -1
	if disc != nil {
		header2idx := make(map[string]int, len(header))
		for i, h := range header {
			if _, dup := header2idx[h]; !dup {
				header2idx[h] = i
			}
		}
		if i, ok := header2idx[disc.Column]; ok {
			discCol = i
		}
	}
	allowed := map[string]bool{}
	for _, v := range disc.valuesOrNil() {
		allowed[v] = true
	}

	out := &LogIndex{Header: header, Delimiter: delim, FieldIndex: idx, Windows: map[string][]Window{}}
	segs := map[string]*Segmenter{}

	for {
		line, start, end, ok := sc.Next()
		if !ok {
			break
		}
		if line == "" {
			continue
		}
		cells := csvx.SplitLine(line, delim)
		if tsCol >= len(cells) {
			out.Dropped++
			continue
		}
		ts, ok := fields.SafeFloat(cells[tsCol])
		if !ok {
			out.Dropped++
			continue
		}
		key := ""
		if discCol >= 0 {
			if discCol >= len(cells) {
				out.Dropped++
				continue
			}
			key = cells[discCol]
			if len(allowed) > 0 && !allowed[key] {
				continue
			}
		}
		seg := segs[key]
		if seg == nil {
			seg = NewSegmenter(cfg)
			segs[key] = seg
		}
		seg.Push(int64(ts), int64(start), int64(end))
	}

	eof := int64(sc.Offset())
	for key, seg := range segs {
		out.Windows[key] = seg.Flush(eof)
	}
	return out, nil
}

func (d *Discriminator) valuesOrNil() []string {
	if d == nil {
		return nil
	}
	return d.Values
}
