// Package catalog assigns global scene identifiers across every sensor log
// of a dataset and answers position queries over the assignment. The id
// space is dense decimal strings "1".."N", stable for a fixed set of logs.
package catalog

import (
	"sort"
	"strconv"

	"github.com/RoaringBitmap/roaring"

	"github.com/v2x-tools/scenedex/internal/segment"
)

// RowFilter restricts a shared file's rows to one logical sensor at read
// time: keep a row only when cell Column equals Value.
type RowFilter struct {
	Column int
	Value  string
}

// SceneRef is everything needed to materialize one scene later without
// re-reading the whole file: the source path plus the window's byte range
// and the parsing context captured at index time.
type SceneRef struct {
	SceneID     string
	SensorID    string
	SensorLabel string
	Path        string
	Window      segment.Window
	Delimiter   byte
	FieldIndex  map[string]int
	RowFilter   *RowFilter
}

// SensorLog is one logical sensor's contribution to the catalog: a file
// (possibly shared with other sensors) and its windows.
type SensorLog struct {
	SensorID   string
	Label      string
	Path       string
	Delimiter  byte
	FieldIndex map[string]int
	RowFilter  *RowFilter
	Windows    []segment.Window
	Dropped    int
}

// SceneCatalog is the immutable built index for one dataset root and
// configuration. Build a new one rather than mutating.
type SceneCatalog struct {
	ScenesByID map[string]SceneRef
	// SceneIDs holds all ids in global order (the order they were assigned).
	SceneIDs []string
	// SceneIDsBySensor holds each sensor's ids in window order.
	SceneIDsBySensor map[string][]string
	SensorLabels     map[string]string
	DroppedRows      int

	position map[string]int // scene id -> zero-based global position
	bySensor map[string]*roaring.Bitmap
}

// Assign sorts every window of every log into the global scene order and
// hands out ids. Order: sensor id ascending, then first timestamp, then the
// window's in-file index. Deterministic for a fixed input set.
func Assign(logs []SensorLog) *SceneCatalog {
	type flat struct {
		log *SensorLog
		w   segment.Window
	}
	var all []flat
	dropped := 0
	labels := make(map[string]string, len(logs))
	for i := range logs {
		l := &logs[i]
		labels[l.SensorID] = l.Label
		dropped += l.Dropped
		for _, w := range l.Windows {
			all = append(all, flat{log: l, w: w})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.log.SensorID != b.log.SensorID {
			return a.log.SensorID < b.log.SensorID
		}
		if a.w.FirstTS != b.w.FirstTS {
			return a.w.FirstTS < b.w.FirstTS
		}
		return a.w.Index < b.w.Index
	})

	c := &SceneCatalog{
		ScenesByID:       make(map[string]SceneRef, len(all)),
		SceneIDs:         make([]string, 0, len(all)),
		SceneIDsBySensor: make(map[string][]string),
		SensorLabels:     labels,
		DroppedRows:      dropped,
		position:         make(map[string]int, len(all)),
		bySensor:         make(map[string]*roaring.Bitmap),
	}
	for pos, f := range all {
		id := strconv.Itoa(pos + 1)
		c.ScenesByID[id] = SceneRef{
			SceneID:     id,
			SensorID:    f.log.SensorID,
			SensorLabel: f.log.Label,
			Path:        f.log.Path,
			Window:      f.w,
			Delimiter:   f.log.Delimiter,
			FieldIndex:  f.log.FieldIndex,
			RowFilter:   f.log.RowFilter,
		}
		c.SceneIDs = append(c.SceneIDs, id)
		c.SceneIDsBySensor[f.log.SensorID] = append(c.SceneIDsBySensor[f.log.SensorID], id)
		c.position[id] = pos
		bm := c.bySensor[f.log.SensorID]
		if bm == nil {
			bm = roaring.New()
			c.bySensor[f.log.SensorID] = bm
		}
		bm.Add(uint32(pos))
	}
	return c
}

// Len reports the total scene count.
func (c *SceneCatalog) Len() int { return len(c.SceneIDs) }

// Lookup returns the scene ref for id.
func (c *SceneCatalog) Lookup(id string) (SceneRef, bool) {
	ref, ok := c.ScenesByID[id]
	return ref, ok
}

// PositionInAll reports the scene's one-based global position.
func (c *SceneCatalog) PositionInAll(id string) (int, bool) {
	pos, ok := c.position[id]
	if !ok {
		return 0, false
	}
	return pos + 1, true
}

// PositionInSensor reports the scene's one-based position among its own
// sensor's scenes, via the sensor's bitmap of global positions.
func (c *SceneCatalog) PositionInSensor(id string) (int, bool) {
	pos, ok := c.position[id]
	if !ok {
		return 0, false
	}
	ref := c.ScenesByID[id]
	bm := c.bySensor[ref.SensorID]
	if bm == nil {
		return 0, false
	}
	return int(bm.Rank(uint32(pos))), true
}

// SensorCount reports how many scenes a sensor owns.
func (c *SceneCatalog) SensorCount(sensorID string) int {
	if bm, ok := c.bySensor[sensorID]; ok {
		return int(bm.GetCardinality())
	}
	return 0
}

// Sensors lists sensor ids in ascending order.
func (c *SceneCatalog) Sensors() []string {
	out := make([]string, 0, len(c.SceneIDsBySensor))
	for id := range c.SceneIDsBySensor {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
