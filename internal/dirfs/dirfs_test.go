package dirfs

import (
	"io/fs"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) *Dir {
	t.Helper()
	bfs := memfs.New()
	write := func(p, content string) {
		require.NoError(t, util.WriteFile(bfs, p, []byte(content), 0o644))
	}
	write("lidar/north/2024-01-01_cpm-objects.csv", "a,b\n1,2\n")
	write("lidar/south/2024-01-01_cpm-objects.csv", "a,b\n3,4\n")
	write("lidar/north/readme.txt", "notes")
	write("thermal_camera/cam1_cpm-objects.csv", "a,b\n")
	return FromBilly(bfs, "mem://fixture")
}

func TestReadText(t *testing.T) {
	d := fixture(t)
	text, err := d.ReadText("lidar/north/2024-01-01_cpm-objects.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", text)
}

func TestReadTextMissingIsNotExist(t *testing.T) {
	d := fixture(t)
	_, err := d.ReadText("nope.csv")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestList(t *testing.T) {
	d := fixture(t)
	names, err := d.List("lidar")
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "south"}, names)

	_, err = d.List("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWalkSuffixSortedRecursive(t *testing.T) {
	d := fixture(t)
	paths, err := d.WalkSuffix("lidar", "cpm-objects.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"lidar/north/2024-01-01_cpm-objects.csv",
		"lidar/south/2024-01-01_cpm-objects.csv",
	}, paths)
}

func TestWalkSuffixMissingDirEmpty(t *testing.T) {
	d := fixture(t)
	paths, err := d.WalkSuffix("radar", ".csv")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestRootID(t *testing.T) {
	var bfs billy.Filesystem = memfs.New()
	d := FromBilly(bfs, "mem://x")
	assert.Equal(t, "mem://x", d.RootID())
}
