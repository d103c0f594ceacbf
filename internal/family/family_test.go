package family

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v2x-tools/scenedex/api"
	"github.com/v2x-tools/scenedex/internal/dirfs"
	"github.com/v2x-tools/scenedex/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cpmRows(startMs, n int, stepMs int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		ts := startMs + i*stepMs
		b.WriteString(fmt.Sprintf("%d,%d.5,%d.5,veh%d,3,0.1,0.2,90,4.2,1.8,1.5\n", ts, i%7, i%5, i%3))
	}
	return b.String()
}

const cpmHdr = "generationTime_ms,yDistance_m,xDistance_m,trackID,classificationType,xSpeed_mps,ySpeed_mps,yawAngle_deg,objLength_m,objWidth_m,objHeight_m\n"

func windowedFixture(t *testing.T) (*session.Session, *Store) {
	t.Helper()
	bfs := memfs.New()
	write := func(p, content string) {
		require.NoError(t, util.WriteFile(bfs, p, []byte(content), 0o644))
	}
	write("registry.json", `{"datasets": [
	  {"id": "rsu", "label": "Roadside units", "family": "cpm_objects", "path": "rsu"}
	]}`)
	// Two sensors. North has a 10-minute continuous log (2 windows of 300s
	// plus the 100s remainder); east has one short burst.
	write("rsu/lidar/north/20240101_cpm-objects.csv", cpmHdr+cpmRows(0, 700, 1000))
	write("rsu/lidar/east/20240101_cpm-objects.csv", cpmHdr+cpmRows(1_000_000, 10, 100))
	// A CSV without the required columns must be skipped, not fatal.
	write("rsu/lidar/broken/notes_cpm-objects.csv", "foo,bar\n1,2\n")

	sess := session.New(nil)
	store := NewStore(sess, testLogger())
	require.NoError(t, store.Open(dirfs.FromBilly(bfs, "mem://windowed")))
	return sess, store
}

func TestWindowedEndToEnd(t *testing.T) {
	ctx := context.Background()
	_, store := windowedFixture(t)

	cat, err := store.Catalog("rsu")
	require.NoError(t, err)

	groups, err := cat.ListGroups(ctx, "all")
	require.NoError(t, err)
	require.Len(t, groups, 2, "broken log is skipped")
	assert.Equal(t, "lidar__north__20240101_cpm-objects", groups[0].GroupID)
	assert.Equal(t, "LiDAR north", groups[0].Label)
	assert.Equal(t, 3, groups[0].Count, "600s + 100s log splits into three windows")
	assert.Equal(t, "LiDAR east", groups[1].Label)
	assert.Equal(t, 1, groups[1].Count)

	page, err := cat.ListScenes(ctx, "all", "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 4)
	// dense ids, east sensor sorts first lexically
	assert.Equal(t, "1", page.Items[0].SceneID)
	assert.Equal(t, "lidar__east__20240101_cpm-objects", page.Items[0].GroupID)
	assert.Contains(t, page.Items[0].Label, "Scene 1")

	infra := page.Items[1].ByModality["infra"]
	assert.Equal(t, 300, infra.Rows)
	assert.Equal(t, 300, infra.UniqueTS)
	require.NotNil(t, infra.DurationS)
	assert.InDelta(t, 299.0, *infra.DurationS, 0.001)

	loc, err := cat.LocateScene(ctx, "train", "3")
	require.NoError(t, err)
	assert.Equal(t, "all", loc.Split, "split coerces to all")
	assert.Equal(t, 3, loc.PositionInAll)
	assert.Equal(t, 4, loc.TotalInAll)
	assert.Equal(t, 2, loc.PositionInGroup)
	assert.Equal(t, 3, loc.TotalInGroup)

	b, err := cat.LoadBundle(ctx, "all", "1")
	require.NoError(t, err)
	assert.Equal(t, "1", b.SceneID)
	require.Len(t, b.Frames, 10)
	recs := b.Frames[0]["infra"]
	require.Len(t, recs, 1)
	assert.Equal(t, "veh0", recs[0].ID)
	assert.Equal(t, "VEHICLE", recs[0].Type)
	assert.Equal(t, "CAR", recs[0].SubType)
	require.NotNil(t, recs[0].Theta)
	assert.InDelta(t, 0, *recs[0].Theta, 1e-9)
	assert.Empty(t, b.Warnings)
}

func TestWindowedPagination(t *testing.T) {
	ctx := context.Background()
	_, store := windowedFixture(t)
	cat, _ := store.Catalog("rsu")

	page, err := cat.ListScenes(ctx, "all", "", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "3", page.Items[0].SceneID)

	page, err = cat.ListScenes(ctx, "all", "", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 4, page.Total)
}

func TestWindowedSceneNotFound(t *testing.T) {
	ctx := context.Background()
	_, store := windowedFixture(t)
	cat, _ := store.Catalog("rsu")

	_, err := cat.LocateScene(ctx, "all", "999")
	assert.True(t, api.IsNotFound(err))
	_, err = cat.LoadBundle(ctx, "all", "999")
	assert.True(t, api.IsNotFound(err))
}

func TestWindowedBundleIdempotent(t *testing.T) {
	ctx := context.Background()
	_, store := windowedFixture(t)
	cat, _ := store.Catalog("rsu")

	b1, err := cat.LoadBundle(ctx, "all", "2")
	require.NoError(t, err)
	b2, err := cat.LoadBundle(ctx, "all", "2")
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestUnknownDataset(t *testing.T) {
	_, store := windowedFixture(t)
	_, err := store.Catalog("nope")
	assert.True(t, api.IsNotFound(err))
}

func passThroughFixture(t *testing.T) *Store {
	t.Helper()
	bfs := memfs.New()
	write := func(p, content string) {
		require.NoError(t, util.WriteFile(bfs, p, []byte(content), 0o644))
	}
	write("registry.json", `{"datasets": [
	  {"id": "traj", "family": "v2x_traj", "path": "traj"}
	]}`)
	write("traj/scenes.csv",
		"table,scene_id,city,intersect_id,rows,unique_ts,min_ts,max_ts,duration_s,unique_agents\n"+
			"vehicle-trajectories/train/data,2,yizhuang,yizhuang#7-1_po,120,60,100.0,105.9,5.9,4\n"+
			"vehicle-trajectories/train/data,10,yizhuang,yizhuang#7-1_po,50,25,200.0,202.4,2.4,2\n"+
			"infrastructure-trajectories/train/data,2,yizhuang,yizhuang#7-1_po,80,60,100.0,105.9,5.9,3\n"+
			"vehicle-trajectories/val/data,5,yizhuang,yizhuang#9-2_po,10,10,300.0,300.9,0.9,1\n")
	write("traj/vehicle-trajectories/train/data/2.csv",
		"timestamp,id,type,sub_type,tag,x,y,z,length,width,height,theta,v_x,v_y\n"+
			"100.0,a,VEHICLE,CAR,0,5.0,6.0,0,4.2,1.8,1.5,0.5,1.0,0.0\n"+
			"100.1,a,VEHICLE,CAR,0,5.1,6.0,0,4.2,1.8,1.5,0.5,1.0,0.0\n")
	write("traj/infrastructure-trajectories/train/data/2.csv",
		"timestamp,id,type,sub_type,tag,x,y,z,length,width,height,theta,v_x,v_y\n"+
			"100.0,b,PEDESTRIAN,PEDESTRIAN,1,-2.0,3.0,0,0.5,0.5,1.7,0,0,0\n")
	write("traj/traffic-light/train/data/2.csv",
		"timestamp,x,y,direction,lane_id,color_1,remain_1\n"+
			"100.0,1.0,2.0,N,lane7,GREEN,12\n")

	sess := session.New(nil)
	store := NewStore(sess, testLogger())
	require.NoError(t, store.Open(dirfs.FromBilly(bfs, "mem://pt")))
	return store
}

func TestPassThroughListing(t *testing.T) {
	ctx := context.Background()
	store := passThroughFixture(t)
	cat, err := store.Catalog("traj")
	require.NoError(t, err)

	groups, err := cat.ListGroups(ctx, "train")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "yizhuang#7-1_po", groups[0].GroupID)
	assert.Equal(t, "Intersection 07", groups[0].Label)
	assert.Equal(t, 2, groups[0].Count)

	page, err := cat.ListScenes(ctx, "train", "", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "2", page.Items[0].SceneID, "numeric sort: 2 before 10")
	assert.Equal(t, "10", page.Items[1].SceneID)
	assert.Equal(t, 120, page.Items[0].ByModality["vehicle"].Rows)
	assert.Equal(t, 80, page.Items[0].ByModality["infra"].Rows)

	loc, err := cat.LocateScene(ctx, "train", "10")
	require.NoError(t, err)
	assert.Equal(t, 2, loc.PositionInAll)
	assert.Equal(t, 2, loc.PositionInGroup)

	_, err = cat.LocateScene(ctx, "val", "10")
	assert.True(t, api.IsNotFound(err), "scene ids are per split")
}

func TestPassThroughBundle(t *testing.T) {
	ctx := context.Background()
	store := passThroughFixture(t)
	cat, _ := store.Catalog("traj")

	b, err := cat.LoadBundle(ctx, "train", "2")
	require.NoError(t, err)
	assert.Contains(t, b.Warnings, "ego_missing_file")
	assert.NotContains(t, b.Warnings, "vehicle_missing_file")

	require.Len(t, b.Frames, 2, "ticks 100.0 and 100.1")
	assert.Equal(t, []float64{100.0, 100.1}, b.Timestamps)
	assert.Equal(t, 100.0, b.T0)

	f0 := b.Frames[0]
	assert.Len(t, f0["vehicle"], 1)
	assert.Len(t, f0["infra"], 1)
	assert.Len(t, f0["traffic_light"], 1)
	assert.Empty(t, f0["ego"])
	assert.Equal(t, "lane7", f0["traffic_light"][0].ID)
	assert.Equal(t, "GREEN", f0["traffic_light"][0].SubType)

	// extent spans all modalities
	assert.Equal(t, -2.0, b.Extent.MinX)
	assert.Equal(t, 5.1, b.Extent.MaxX)

	assert.Equal(t, 2, b.Stats["vehicle"].Rows)
	assert.Equal(t, 0, b.Stats["ego"].Rows)
}

func TestIntersectionLabel(t *testing.T) {
	assert.Equal(t, "Intersection 04", intersectionLabel("yizhuang#4-1_po"))
	assert.Equal(t, "Intersection 12", intersectionLabel("city#12"))
	assert.Equal(t, "7", intersectionLabel("7"), "no map id shows the raw id")
	assert.Equal(t, "", intersectionLabel(""))
}

func TestPassThroughSceneIndexAliasHeaders(t *testing.T) {
	bfs := memfs.New()
	write := func(p, content string) {
		require.NoError(t, util.WriteFile(bfs, p, []byte(content), 0o644))
	}
	write("registry.json", `{"datasets": [{"id": "traj", "family": "v2x_traj", "path": "traj"}]}`)
	// Alternate column spellings resolve through the scene-index alias table.
	write("traj/scenes.csv",
		"split,scene,city,intersection,row_count,n_frames\n"+
			"vehicle-trajectories/train/data,4,yizhuang,yizhuang#2-1_po,42,21\n")

	store := NewStore(session.New(nil), testLogger())
	require.NoError(t, store.Open(dirfs.FromBilly(bfs, "mem://alias")))
	cat, err := store.Catalog("traj")
	require.NoError(t, err)

	page, err := cat.ListScenes(context.Background(), "train", "", 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "4", page.Items[0].SceneID)
	assert.Equal(t, "yizhuang#2-1_po", page.Items[0].GroupID)
	assert.Equal(t, 42, page.Items[0].ByModality["vehicle"].Rows)
	assert.Equal(t, 21, page.Items[0].ByModality["vehicle"].UniqueTS)
}

func TestPassThroughBundleNotFound(t *testing.T) {
	ctx := context.Background()
	store := passThroughFixture(t)
	cat, _ := store.Catalog("traj")
	_, err := cat.LoadBundle(ctx, "train", "404")
	assert.True(t, api.IsNotFound(err))
}

func TestStoreRegistryLocalOverlay(t *testing.T) {
	bfs := memfs.New()
	write := func(p, content string) {
		require.NoError(t, util.WriteFile(bfs, p, []byte(content), 0o644))
	}
	write("registry.json", `{"datasets": [{"id": "a", "family": "cpm_objects", "path": "a"}]}`)
	write("registry.local.json", `{"datasets": [
	  {"id": "a", "label": "A local", "family": "cpm_objects", "path": "a_local"},
	  {"id": "b", "family": "v2x_traj", "path": "b"}
	]}`)

	store := NewStore(session.New(nil), testLogger())
	require.NoError(t, store.Open(dirfs.FromBilly(bfs, "mem://overlay")))

	ds := store.Datasets()
	require.Len(t, ds, 2)
	assert.Equal(t, "a_local", ds[0].Path)
	assert.Equal(t, "A local", ds[0].Label)
	assert.Equal(t, "b", ds[1].ID)
}

func TestStoreNoRegistryIsEmptyNotError(t *testing.T) {
	store := NewStore(session.New(nil), testLogger())
	require.NoError(t, store.Open(dirfs.FromBilly(memfs.New(), "mem://empty")))
	assert.Empty(t, store.Datasets())
}
