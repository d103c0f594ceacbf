// Package bundle materializes one scene from a sensor log: slice the raw
// text by the window's stored byte offsets, re-parse just that slice, and
// regroup rows into ordered frames.
package bundle

import (
	"math"
	"sort"

	"github.com/v2x-tools/scenedex/api"
	"github.com/v2x-tools/scenedex/internal/catalog"
	"github.com/v2x-tools/scenedex/internal/csvx"
	"github.com/v2x-tools/scenedex/internal/fields"
	"github.com/v2x-tools/scenedex/internal/segment"
)

// Options control how rows become records.
type Options struct {
	// FrameBinMs quantizes row timestamps into frames. Clamped >= 1.
	FrameBinMs int64
	// Modality names the record group inside each frame ("infra" for
	// roadside sensors).
	Modality string
	// HeadingCWNorthDeg converts the heading column from degrees clockwise
	// off north into theta radians counter-clockwise off the x axis.
	HeadingCWNorthDeg bool
	// DecodeClass turns the class column's numeric code into type/sub_type.
	DecodeClass bool
}

// Materialize builds the playable bundle for ref out of the owning file's
// full text. Offsets come from the catalog and are never re-derived; the
// slice has no header line, so parsing runs purely on the stored column
// indices. Rows failing the row filter are skipped entirely; rows lacking a
// parseable timestamp count toward the row stats but produce no frame.
func Materialize(text string, ref catalog.SceneRef, opt Options) *api.SceneBundle {
	if opt.Modality == "" {
		opt.Modality = "infra"
	}
	start, end := clampRange(ref.Window.OffsetStart, ref.Window.OffsetEnd, int64(len(text)))

	out := &api.SceneBundle{
		SceneID:    ref.SceneID,
		GroupID:    ref.SensorID,
		GroupLabel: ref.SensorLabel,
		Warnings:   []string{},
	}

	idx := ref.FieldIndex
	byBucket := map[int64][]api.Record{}
	extent := api.EmptyExtent()
	rows := 0
	agents := map[string]struct{}{}

	sc := csvx.NewLineScanner(text[start:end])
	for {
		line, _, _, ok := sc.Next()
		if !ok {
			break
		}
		if line == "" {
			continue
		}
		cells := csvx.SplitLine(line, ref.Delimiter)
		if ref.RowFilter != nil {
			f := ref.RowFilter
			if f.Column >= len(cells) || cells[f.Column] != f.Value {
				continue
			}
		}
		rows++
		ts, ok := cellFloat(cells, idx, fields.Timestamp)
		if ts == nil || !ok {
			continue
		}
		bucket := segment.Bucket(int64(*ts), opt.FrameBinMs)

		rec := api.Record{Tag: ref.SensorID}
		rec.ID = cellString(cells, idx, fields.TrackID)
		if rec.ID != "" {
			agents[rec.ID] = struct{}{}
		}
		rec.X, _ = cellFloat(cells, idx, fields.X)
		rec.Y, _ = cellFloat(cells, idx, fields.Y)
		rec.Z, _ = cellFloat(cells, idx, fields.Z)
		rec.VX, _ = cellFloat(cells, idx, fields.VX)
		rec.VY, _ = cellFloat(cells, idx, fields.VY)
		rec.Length, _ = cellFloat(cells, idx, fields.Length)
		rec.Width, _ = cellFloat(cells, idx, fields.Width)
		rec.Height, _ = cellFloat(cells, idx, fields.Height)

		if h, _ := cellFloat(cells, idx, fields.Heading); h != nil {
			theta := *h
			if opt.HeadingCWNorthDeg {
				theta = (90.0 - theta) * math.Pi / 180.0
			}
			rec.Theta = &theta
		}

		if c, _ := cellFloat(cells, idx, fields.Class); c != nil {
			code := int(*c)
			rec.SubTypeCode = &code
		}
		if opt.DecodeClass {
			cl := DecodeClass(rec.SubTypeCode)
			rec.Type = cl.Type
			rec.SubType = cl.SubType
		}

		if rec.X != nil && rec.Y != nil {
			extent.Update(*rec.X, *rec.Y)
		}
		byBucket[bucket] = append(byBucket[bucket], rec)
	}

	buckets := make([]int64, 0, len(byBucket))
	for b := range byBucket {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	out.Timestamps = make([]float64, len(buckets))
	out.Frames = make([]api.Frame, len(buckets))
	for i, b := range buckets {
		out.Timestamps[i] = float64(b) / 1000.0
		out.Frames[i] = api.Frame{opt.Modality: byBucket[b]}
	}
	if len(out.Timestamps) > 0 {
		out.T0 = out.Timestamps[0]
	}

	if extent.Valid() {
		out.Extent = extent
	} else {
		out.Extent = api.DefaultExtent()
		out.Warnings = append(out.Warnings, "extent_missing: could not compute extent from window rows")
	}

	stats := api.ModalityStats{Rows: rows, UniqueTS: len(buckets)}
	if len(buckets) > 0 {
		minTS, maxTS := out.Timestamps[0], out.Timestamps[len(out.Timestamps)-1]
		stats.MinTS, stats.MaxTS = &minTS, &maxTS
	}
	n := len(agents)
	stats.UniqueAgents = &n
	out.Stats = map[string]api.ModalityStats{opt.Modality: stats}
	return out
}

func clampRange(start, end, size int64) (int64, int64) {
	if start < 0 {
		start = 0
	}
	if end > size {
		end = size
	}
	if start > end {
		start = end
	}
	return start, end
}

func cellString(cells []string, idx map[string]int, field string) string {
	i, ok := idx[field]
	if !ok || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func cellFloat(cells []string, idx map[string]int, field string) (*float64, bool) {
	i, ok := idx[field]
	if !ok || i >= len(cells) {
		return nil, false
	}
	v, ok := fields.SafeFloat(cells[i])
	if !ok {
		return nil, false
	}
	return &v, true
}
