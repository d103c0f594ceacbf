package family

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/v2x-tools/scenedex/api"
	"github.com/v2x-tools/scenedex/internal/bundle"
	"github.com/v2x-tools/scenedex/internal/catalog"
	"github.com/v2x-tools/scenedex/internal/profile"
	"github.com/v2x-tools/scenedex/internal/segment"
	"github.com/v2x-tools/scenedex/internal/session"
)

// Windowed serves datasets whose raw logs carry no native scene boundary:
// scenes are synthesized by windowing each sensor log. The dataset has no
// train/val structure, so every split coerces to "all".
type Windowed struct {
	sess   *session.Session
	ds     profile.Dataset
	cfg    profile.Config
	log    *slog.Logger
	holder *catalog.Holder[*catalog.SceneCatalog]
}

// NewWindowed builds the strategy; the index itself is built lazily on
// first query and cached by fingerprint.
func NewWindowed(sess *session.Session, ds profile.Dataset, cfg profile.Config, log *slog.Logger) *Windowed {
	return &Windowed{
		sess:   sess,
		ds:     ds,
		cfg:    cfg,
		log:    log.With("dataset", ds.ID),
		holder: &catalog.Holder[*catalog.SceneCatalog]{},
	}
}

func (w *Windowed) ensure(ctx context.Context) (*catalog.SceneCatalog, error) {
	if c, ok := w.holder.Get(); ok {
		return c, nil
	}
	token := w.sess.Begin(session.OpIndexBuild)
	fp := w.sess.IndexFingerprint(string(profile.FamilyWindowed)+":"+w.ds.ID, w.cfg.Fingerprint())
	c, err := w.sess.Index(fp, func() (*catalog.SceneCatalog, error) {
		return w.build(ctx)
	})
	if err != nil {
		return nil, err
	}
	// Install as the served catalog only while this build is the newest;
	// a superseded build's result is returned to its caller but not kept.
	if w.sess.Current(session.OpIndexBuild, token) {
		w.holder.Swap(c)
	}
	return c, nil
}

func (w *Windowed) build(ctx context.Context) (*catalog.SceneCatalog, error) {
	root, ok := w.sess.Root()
	if !ok {
		return catalog.Assign(nil), nil
	}

	var files []string
	for _, sub := range w.cfg.DiscoverRoots {
		found, err := root.WalkSuffix(path.Join(w.ds.Path, sub), w.cfg.DiscoverSuffix)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		found, err := root.WalkSuffix(w.ds.Path, w.cfg.DiscoverSuffix)
		if err != nil {
			return nil, err
		}
		files = found
	}
	sort.Strings(files)

	var logs []catalog.SensorLog
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := w.sess.Text(p)
		if err != nil {
			w.log.Warn("skipping unreadable log", "path", p, "err", err)
			continue
		}
		idx, err := segment.IndexLog(text, w.cfg.Windowing, w.cfg.Aliases, w.cfg.Overrides, w.cfg.DelimiterHint, w.cfg.Discriminator)
		if err != nil {
			var miss *segment.ErrMissingRequired
			if errors.As(err, &miss) {
				w.log.Warn("skipping log without required fields", "path", p, "missing", miss.Missing)
				continue
			}
			return nil, err
		}
		if idx.Dropped > 0 {
			w.log.Debug("dropped unparseable rows", "path", p, "rows", idx.Dropped)
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, w.ds.Path), "/")
		for key, windows := range idx.Windows {
			logs = append(logs, catalog.SensorLog{
				SensorID:   sensorID(rel, key),
				Label:      sensorLabel(rel, key),
				Path:       p,
				Delimiter:  idx.Delimiter,
				FieldIndex: idx.FieldIndex,
				RowFilter:  w.rowFilter(idx.Header, key),
				Windows:    windows,
				Dropped:    idx.Dropped,
			})
		}
	}

	c := catalog.Assign(logs)
	w.log.Info("scene index built", "files", len(files), "sensors", len(logs), "scenes", c.Len())
	return c, nil
}

func (w *Windowed) rowFilter(header []string, key string) *catalog.RowFilter {
	d := w.cfg.Discriminator
	if d == nil || key == "" {
		return nil
	}
	for i, h := range header {
		if h == d.Column {
			return &catalog.RowFilter{Column: i, Value: key}
		}
	}
	return nil
}

// sensorID derives a stable URL-safe identifier from the log's relative
// path, extended by the discriminator value for shared files.
func sensorID(rel, key string) string {
	s := strings.TrimSuffix(rel, ".csv")
	s = strings.ReplaceAll(s, "/", "__")
	if key != "" {
		s += "__" + key
	}
	return s
}

var thermalStemRe = regexp.MustCompile(`^(\d{8})-`)

func sensorLabel(rel, key string) string {
	parts := strings.Split(rel, "/")
	switch parts[0] {
	case "lidar":
		rsu := "RSU"
		if len(parts) >= 2 {
			rsu = parts[1]
		}
		if key != "" {
			rsu = key
		}
		return "LiDAR " + rsu
	case "thermal_camera":
		stem := strings.TrimSuffix(path.Base(rel), ".csv")
		if m := thermalStemRe.FindStringSubmatch(stem); m != nil {
			d := m[1]
			return fmt.Sprintf("Thermal camera (%s-%s-%s)", d[0:4], d[4:6], d[6:8])
		}
		return "Thermal camera"
	}
	label := strings.TrimSuffix(path.Base(rel), ".csv")
	if key != "" {
		label += " " + key
	}
	return label
}

// ListGroups implements api.Catalog: one group per sensor log, busiest
// first.
func (w *Windowed) ListGroups(ctx context.Context, split string) ([]api.GroupInfo, error) {
	c, err := w.ensure(ctx)
	if err != nil {
		return nil, err
	}
	var out []api.GroupInfo
	for _, sensor := range c.Sensors() {
		out = append(out, api.GroupInfo{
			GroupID: sensor,
			Label:   c.SensorLabels[sensor],
			Count:   c.SensorCount(sensor),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

// ListScenes implements api.Catalog.
func (w *Windowed) ListScenes(ctx context.Context, split, groupID string, offset, limit int) (api.ScenePage, error) {
	c, err := w.ensure(ctx)
	if err != nil {
		return api.ScenePage{}, err
	}
	ids := c.SceneIDs
	if groupID != "" {
		ids = c.SceneIDsBySensor[groupID]
	}
	total := len(ids)
	page := pageOf(ids, offset, limit)

	items := make([]api.SceneSummary, 0, len(page))
	for _, id := range page {
		ref, _ := c.Lookup(id)
		win := ref.Window
		durS := float64(win.DurationMs()) / 1000.0
		if durS < 0 {
			durS = 0
		}
		minTS := float64(win.FirstTS) / 1000.0
		maxTS := float64(win.LastTS) / 1000.0
		items = append(items, api.SceneSummary{
			SceneID:    id,
			Label:      sceneLabel(id, win),
			Split:      "all",
			GroupID:    ref.SensorID,
			GroupLabel: ref.SensorLabel,
			ByModality: map[string]api.ModalityStats{
				"infra": {
					Rows:      win.Rows,
					UniqueTS:  win.Frames,
					MinTS:     &minTS,
					MaxTS:     &maxTS,
					DurationS: &durS,
				},
			},
		})
	}
	return api.ScenePage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// sceneLabel renders a human label with the window's local time-of-day
// range.
func sceneLabel(id string, win segment.Window) string {
	t0 := time.UnixMilli(win.FirstTS).Format("15:04:05")
	t1 := time.UnixMilli(win.LastTS).Format("15:04:05")
	return fmt.Sprintf("Scene %s · %s–%s", id, t0, t1)
}

// LocateScene implements api.Catalog.
func (w *Windowed) LocateScene(ctx context.Context, split, sceneID string) (api.SceneLocation, error) {
	c, err := w.ensure(ctx)
	if err != nil {
		return api.SceneLocation{}, err
	}
	ref, ok := c.Lookup(sceneID)
	if !ok {
		return api.SceneLocation{}, &api.NotFoundError{Kind: "scene", ID: sceneID}
	}
	posAll, _ := c.PositionInAll(sceneID)
	posIn, _ := c.PositionInSensor(sceneID)
	return api.SceneLocation{
		SceneID:         sceneID,
		Split:           "all",
		GroupID:         ref.SensorID,
		GroupLabel:      ref.SensorLabel,
		PositionInAll:   posAll,
		TotalInAll:      c.Len(),
		PositionInGroup: posIn,
		TotalInGroup:    c.SensorCount(ref.SensorID),
	}, nil
}

// LoadBundle implements api.Catalog.
func (w *Windowed) LoadBundle(ctx context.Context, split, sceneID string) (*api.SceneBundle, error) {
	c, err := w.ensure(ctx)
	if err != nil {
		return nil, err
	}
	ref, ok := c.Lookup(sceneID)
	if !ok {
		return nil, &api.NotFoundError{Kind: "scene", ID: sceneID}
	}
	text, err := w.sess.Text(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("read scene window from %s: %w", ref.Path, err)
	}
	b := bundle.Materialize(text, ref, bundle.Options{
		FrameBinMs:        w.cfg.Windowing.FrameBinMs,
		Modality:          "infra",
		HeadingCWNorthDeg: w.cfg.HeadingCWNorthDeg,
		DecodeClass:       true,
	})
	b.Split = "all"
	return b, nil
}

func pageOf(ids []string, offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset > len(ids) {
		offset = len(ids)
	}
	if limit <= 0 {
		limit = 200
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[offset:end]
}
