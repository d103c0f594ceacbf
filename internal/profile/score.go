package profile

import (
	"github.com/v2x-tools/scenedex/internal/csvx"
	"github.com/v2x-tools/scenedex/internal/fields"
)

// FileScore rates how strongly one CSV file's shape matches the windowed
// perception-log family, 0..100.
type FileScore struct {
	Path       string  `json:"path"`
	Score      float64 `json:"score"`
	Delimiter  string  `json:"delimiter"`
	SampleRows int     `json:"sample_rows"`
	Reason     string  `json:"reason,omitempty"`
}

const scoreSampleRows = 200

// ScoreCPM scores a file's text: weighted header-field hits plus parse
// ratios over a bounded row sample. Header weight favors the timestamp and
// position columns since windowing cannot run without them.
func ScoreCPM(path, text string, overrides map[string]string) FileScore {
	table := csvx.ParseTable(text, ',')
	if len(table.Header) == 0 {
		return FileScore{Path: path, Delimiter: ",", Reason: "empty_or_unreadable_header"}
	}
	resolved := fields.Resolve(table.Header, fields.CPMAliases(), overrides)

	score := 0.0
	has := func(f string) bool { _, ok := resolved[f]; return ok }
	if has(fields.Timestamp) {
		score += 40
	}
	if has(fields.Y) {
		score += 20
	}
	if has(fields.X) {
		score += 20
	}
	if has(fields.TrackID) {
		score += 5
	}
	if has(fields.Class) {
		score += 5
	}
	if has(fields.VX) && has(fields.VY) {
		score += 5
	}
	if has(fields.Heading) {
		score += 3
	}
	if has(fields.Length) || has(fields.Width) || has(fields.Height) {
		score += 2
	}

	tsOK, xyOK, total := 0, 0, 0
	for _, row := range table.Rows {
		if total >= scoreSampleRows {
			break
		}
		total++
		if _, ok := fields.SafeFloat(row[resolved[fields.Timestamp]]); ok {
			tsOK++
		}
		_, xok := fields.SafeFloat(row[resolved[fields.X]])
		_, yok := fields.SafeFloat(row[resolved[fields.Y]])
		if xok && yok {
			xyOK++
		}
	}
	if total > 0 {
		tsRatio := float64(tsOK) / float64(total)
		xyRatio := float64(xyOK) / float64(total)
		if tsRatio >= 0.90 {
			score += 10
		}
		if xyRatio >= 0.80 {
			score += 10
		}
		if max(tsRatio, xyRatio) < 0.30 {
			score -= 30
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return FileScore{
		Path:       path,
		Score:      score,
		Delimiter:  string(table.Delimiter),
		SampleRows: total,
	}
}

// Decision buckets a ranked score list into one of "auto", "confirm" or
// "manual": adopt without asking, ask the operator, or give up.
func Decision(scores []FileScore) string {
	top, second := 0.0, 0.0
	if len(scores) > 0 {
		top = scores[0].Score
	}
	if len(scores) > 1 {
		second = scores[1].Score
	}
	switch {
	case top >= 75 && top-second >= 12:
		return "auto"
	case top >= 50:
		return "confirm"
	default:
		return "manual"
	}
}
