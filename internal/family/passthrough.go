package family

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/v2x-tools/scenedex/api"
	"github.com/v2x-tools/scenedex/internal/catalog"
	"github.com/v2x-tools/scenedex/internal/csvx"
	"github.com/v2x-tools/scenedex/internal/fields"
	"github.com/v2x-tools/scenedex/internal/profile"
	"github.com/v2x-tools/scenedex/internal/session"
)

// modality table-name prefixes and per-scene file layout of pass-through
// trajectory datasets.
var ptModalities = []struct {
	name string
	dir  string
}{
	{"ego", "ego-trajectories"},
	{"infra", "infrastructure-trajectories"},
	{"vehicle", "vehicle-trajectories"},
	{"traffic_light", "traffic-light"},
}

// PassThrough serves datasets that declare their own scenes in an index
// CSV: no windowing, scene ids and grouping come straight from metadata.
type PassThrough struct {
	sess      *session.Session
	ds        profile.Dataset
	scenesCSV string
	log       *slog.Logger
	holder    *catalog.Holder[*ptIndex]
}

// NewPassThrough builds the strategy. scenesCSV is relative to the dataset
// path; empty means the conventional "scenes.csv".
func NewPassThrough(sess *session.Session, ds profile.Dataset, scenesCSV string, log *slog.Logger) *PassThrough {
	if scenesCSV == "" {
		scenesCSV = "scenes.csv"
	}
	return &PassThrough{
		sess:      sess,
		ds:        ds,
		scenesCSV: scenesCSV,
		log:       log.With("dataset", ds.ID),
		holder:    &catalog.Holder[*ptIndex]{},
	}
}

type ptScene struct {
	SceneID     string
	Split       string
	City        string
	IntersectID string
	ByModality  map[string]api.ModalityStats
}

// ptIndex precomputes global and per-intersection orderings per split so
// paging and jump-to-scene stay O(1) per lookup.
type ptIndex struct {
	scenes    map[string]map[string]*ptScene
	sorted    map[string][]string
	posAll    map[string]map[string]int
	byGroup   map[string]map[string][]string
	posInGrp  map[string]map[string]int
	groupSize map[string]map[string]int
}

// sceneSortLess orders scene ids numerically when possible, pushing
// non-numeric ids to the end.
func sceneSortLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

func splitFromTable(table string) string {
	for _, p := range strings.Split(strings.ReplaceAll(table, "\\", "/"), "/") {
		if p == "train" || p == "val" || p == "test" {
			return p
		}
	}
	return "unknown"
}

func modalityFromTable(table string) string {
	for _, m := range ptModalities {
		if strings.HasPrefix(table, m.dir+"/") {
			return m.name
		}
	}
	return "unknown"
}

var intersectMapIDRe = regexp.MustCompile(`#(\d+)`)

// intersectionLabel extracts the numeric map id from ids shaped like
// "yizhuang#4-1_po" and renders "Intersection 04"; ids without one are
// shown as-is.
func intersectionLabel(id string) string {
	if id == "" {
		return ""
	}
	m := intersectMapIDRe.FindStringSubmatch(id)
	if m == nil {
		return id
	}
	n, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("Intersection %02d", n)
}

func (p *PassThrough) ensure(ctx context.Context) (*ptIndex, error) {
	if idx, ok := p.holder.Get(); ok {
		return idx, nil
	}
	token := p.sess.Begin(session.OpIndexBuild)
	idx, err := p.build()
	if err != nil {
		return nil, err
	}
	if p.sess.Current(session.OpIndexBuild, token) {
		p.holder.Swap(idx)
	}
	return idx, nil
}

func (p *PassThrough) build() (*ptIndex, error) {
	idx := &ptIndex{
		scenes:    map[string]map[string]*ptScene{},
		sorted:    map[string][]string{},
		posAll:    map[string]map[string]int{},
		byGroup:   map[string]map[string][]string{},
		posInGrp:  map[string]map[string]int{},
		groupSize: map[string]map[string]int{},
	}
	table, err := p.sess.Rows(p.scenePath(), ',')
	if err != nil {
		return nil, fmt.Errorf("scene index: %w", err)
	}
	resolved := fields.Resolve(table.Header, fields.ScenesAliases(), nil)
	cell := func(row map[string]string, canonical string) string {
		if actual, ok := resolved[canonical]; ok {
			return row[actual]
		}
		return ""
	}
	for _, row := range table.Rows {
		split := splitFromTable(cell(row, "table"))
		if split != "train" && split != "val" {
			continue
		}
		sceneID := cell(row, "scene_id")
		if sceneID == "" {
			continue
		}
		bySplit := idx.scenes[split]
		if bySplit == nil {
			bySplit = map[string]*ptScene{}
			idx.scenes[split] = bySplit
		}
		s := bySplit[sceneID]
		if s == nil {
			s = &ptScene{SceneID: sceneID, Split: split, ByModality: map[string]api.ModalityStats{}}
			bySplit[sceneID] = s
		}
		if s.City == "" {
			s.City = cell(row, "city")
		}
		if s.IntersectID == "" {
			s.IntersectID = cell(row, "intersect_id")
		}

		stats := api.ModalityStats{}
		stats.Rows, _ = fields.SafeInt(cell(row, "rows"))
		stats.UniqueTS, _ = fields.SafeInt(cell(row, "unique_ts"))
		if v, ok := fields.SafeFloat(cell(row, "min_ts")); ok {
			stats.MinTS = &v
		}
		if v, ok := fields.SafeFloat(cell(row, "max_ts")); ok {
			stats.MaxTS = &v
		}
		if v, ok := fields.SafeFloat(cell(row, "duration_s")); ok {
			stats.DurationS = &v
		}
		if v, ok := fields.SafeInt(cell(row, "unique_agents")); ok {
			stats.UniqueAgents = &v
		}
		s.ByModality[modalityFromTable(cell(row, "table"))] = stats
	}

	for split, bySplit := range idx.scenes {
		ids := make([]string, 0, len(bySplit))
		for id := range bySplit {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return sceneSortLess(ids[i], ids[j]) })
		idx.sorted[split] = ids

		idx.posAll[split] = make(map[string]int, len(ids))
		idx.byGroup[split] = map[string][]string{}
		idx.posInGrp[split] = map[string]int{}
		idx.groupSize[split] = map[string]int{}
		for i, id := range ids {
			idx.posAll[split][id] = i
			g := bySplit[id].IntersectID
			if g == "" {
				continue
			}
			idx.posInGrp[split][id] = len(idx.byGroup[split][g])
			idx.byGroup[split][g] = append(idx.byGroup[split][g], id)
			idx.groupSize[split][g]++
		}
	}
	p.log.Info("scene index loaded",
		"train", len(idx.sorted["train"]), "val", len(idx.sorted["val"]))
	return idx, nil
}

func (p *PassThrough) scenePath() string {
	return p.ds.Path + "/" + p.scenesCSV
}

// ListGroups implements api.Catalog: groups are intersections.
func (p *PassThrough) ListGroups(ctx context.Context, split string) ([]api.GroupInfo, error) {
	idx, err := p.ensure(ctx)
	if err != nil {
		return nil, err
	}
	var out []api.GroupInfo
	for g, n := range idx.groupSize[split] {
		out = append(out, api.GroupInfo{GroupID: g, Label: intersectionLabel(g), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].GroupID < out[j].GroupID
	})
	return out, nil
}

// ListScenes implements api.Catalog.
func (p *PassThrough) ListScenes(ctx context.Context, split, groupID string, offset, limit int) (api.ScenePage, error) {
	idx, err := p.ensure(ctx)
	if err != nil {
		return api.ScenePage{}, err
	}
	ids := idx.sorted[split]
	if groupID != "" {
		ids = idx.byGroup[split][groupID]
	}
	total := len(ids)
	page := pageOf(ids, offset, limit)

	items := make([]api.SceneSummary, 0, len(page))
	for _, id := range page {
		s := idx.scenes[split][id]
		items = append(items, api.SceneSummary{
			SceneID:    id,
			Split:      split,
			GroupID:    s.IntersectID,
			GroupLabel: intersectionLabel(s.IntersectID),
			ByModality: s.ByModality,
		})
	}
	return api.ScenePage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// LocateScene implements api.Catalog.
func (p *PassThrough) LocateScene(ctx context.Context, split, sceneID string) (api.SceneLocation, error) {
	idx, err := p.ensure(ctx)
	if err != nil {
		return api.SceneLocation{}, err
	}
	s, ok := idx.scenes[split][sceneID]
	if !ok {
		return api.SceneLocation{}, &api.NotFoundError{Kind: "scene", ID: sceneID}
	}
	loc := api.SceneLocation{
		SceneID:    sceneID,
		Split:      split,
		GroupID:    s.IntersectID,
		GroupLabel: intersectionLabel(s.IntersectID),
		TotalInAll: len(idx.sorted[split]),
	}
	loc.PositionInAll = idx.posAll[split][sceneID] + 1
	if s.IntersectID != "" {
		loc.PositionInGroup = idx.posInGrp[split][sceneID] + 1
		loc.TotalInGroup = idx.groupSize[split][s.IntersectID]
	}
	return loc, nil
}

// LoadBundle implements api.Catalog: one file per modality, joined on
// 100ms timestamp ticks.
func (p *PassThrough) LoadBundle(ctx context.Context, split, sceneID string) (*api.SceneBundle, error) {
	idx, err := p.ensure(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := idx.scenes[split][sceneID]; !ok {
		return nil, &api.NotFoundError{Kind: "scene", ID: sceneID}
	}

	out := &api.SceneBundle{SceneID: sceneID, Split: split, Warnings: []string{}}
	byTS := map[string]map[int64][]api.Record{}
	extent := api.EmptyExtent()
	stats := map[string]api.ModalityStats{}
	tickSet := map[int64]struct{}{}

	for _, m := range ptModalities {
		relpath := fmt.Sprintf("%s/%s/%s/data/%s.csv", p.ds.Path, m.dir, split, sceneID)
		table, err := p.sess.Rows(relpath, ',')
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				out.Warnings = append(out.Warnings, m.name+"_missing_file")
				stats[m.name] = api.ModalityStats{}
				continue
			}
			return nil, err
		}
		recs, modStats := p.parseModality(m.name, table, &extent)
		byTS[m.name] = recs
		stats[m.name] = modStats
		for tick := range recs {
			tickSet[tick] = struct{}{}
		}
	}

	ticks := make([]int64, 0, len(tickSet))
	for k := range tickSet {
		ticks = append(ticks, k)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	if len(ticks) == 0 {
		out.Warnings = append(out.Warnings, "no_timestamps: scene appears empty across all modalities")
	}

	out.Timestamps = make([]float64, len(ticks))
	out.Frames = make([]api.Frame, len(ticks))
	for i, tick := range ticks {
		out.Timestamps[i] = float64(tick) / 10.0
		f := api.Frame{}
		for _, m := range ptModalities {
			f[m.name] = byTS[m.name][tick]
		}
		out.Frames[i] = f
	}
	if len(out.Timestamps) > 0 {
		out.T0 = out.Timestamps[0]
	}

	if extent.Valid() {
		out.Extent = extent
	} else {
		out.Extent = api.Extent{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
		out.Warnings = append(out.Warnings, "extent_missing: could not compute extent from scene files")
	}
	out.Stats = stats
	return out, nil
}

// parseModality converts one modality file's rows to records grouped by
// 100ms tick, updating the shared extent.
func (p *PassThrough) parseModality(modality string, table *csvx.Table, extent *api.Extent) (map[int64][]api.Record, api.ModalityStats) {
	recs := map[int64][]api.Record{}
	rows := 0
	var minTick, maxTick int64
	for _, row := range table.Rows {
		tsv, ok := fields.SafeFloat(row["timestamp"])
		if !ok {
			continue
		}
		tick := int64(math.Round(tsv * 10.0))
		rows++
		if rows == 1 || tick < minTick {
			minTick = tick
		}
		if rows == 1 || tick > maxTick {
			maxTick = tick
		}

		var rec api.Record
		if modality == "traffic_light" {
			rec = api.Record{ID: row["lane_id"], Type: "TRAFFIC_LIGHT", SubType: row["color_1"], Tag: row["direction"]}
		} else {
			rec = api.Record{ID: row["id"], Type: row["type"], SubType: row["sub_type"], Tag: row["tag"]}
			rec.Z = floatPtr(row["z"])
			rec.Length = floatPtr(row["length"])
			rec.Width = floatPtr(row["width"])
			rec.Height = floatPtr(row["height"])
			rec.Theta = floatPtr(row["theta"])
			rec.VX = floatPtr(row["v_x"])
			rec.VY = floatPtr(row["v_y"])
		}
		rec.X = floatPtr(row["x"])
		rec.Y = floatPtr(row["y"])
		if rec.X != nil && rec.Y != nil {
			extent.Update(*rec.X, *rec.Y)
		}
		recs[tick] = append(recs[tick], rec)
	}

	stats := api.ModalityStats{Rows: rows, UniqueTS: len(recs)}
	if rows > 0 {
		lo, hi := float64(minTick)/10.0, float64(maxTick)/10.0
		stats.MinTS, stats.MaxTS = &lo, &hi
	}
	return recs, stats
}

func floatPtr(s string) *float64 {
	v, ok := fields.SafeFloat(s)
	if !ok {
		return nil
	}
	return &v
}
