package segment

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v2x-tools/scenedex/internal/fields"
)

func TestBucket(t *testing.T) {
	assert.Equal(t, int64(0), Bucket(0, 100))
	assert.Equal(t, int64(0), Bucket(50, 100))
	assert.Equal(t, int64(0), Bucket(99, 100))
	assert.Equal(t, int64(100), Bucket(100, 100))
	assert.Equal(t, int64(-100), Bucket(-1, 100))
	assert.Equal(t, int64(-100), Bucket(-100, 100))
	// bin clamps to 1
	assert.Equal(t, int64(42), Bucket(42, 0))
	assert.Equal(t, int64(42), Bucket(42, -5))
}

func TestSegmenterJitterSharesFrame(t *testing.T) {
	s := NewSegmenter(Config{MaxWindowMs: 300_000, MaxGapMs: 120_000, FrameBinMs: 100})
	s.Push(0, 0, 10)
	s.Push(50, 10, 20)
	ws := s.Flush(20)
	require.Len(t, ws, 1)
	assert.Equal(t, 1, ws[0].Frames)
	assert.Equal(t, 2, ws[0].Rows)
	assert.Equal(t, int64(0), ws[0].DurationMs())
}

func TestSegmenterGapSplits(t *testing.T) {
	s := NewSegmenter(Config{MaxWindowMs: 300_000, MaxGapMs: 120_000, FrameBinMs: 100})
	s.Push(0, 0, 10)
	s.Push(200_000, 10, 20) // 200s of silence, over the 120s cut
	ws := s.Flush(20)
	require.Len(t, ws, 2)
	assert.Equal(t, int64(0), ws[0].FirstTS)
	assert.Equal(t, int64(10), ws[0].OffsetEnd, "first window ends where the second begins")
	assert.Equal(t, int64(200_000), ws[1].FirstTS)
	assert.Equal(t, int64(10), ws[1].OffsetStart)
	assert.Equal(t, int64(20), ws[1].OffsetEnd)
}

func TestSegmenterDurationCap(t *testing.T) {
	// 10 minutes at 1 Hz caps into two 300s windows plus nothing left over.
	s := NewSegmenter(Config{MaxWindowMs: 300_000, MaxGapMs: 120_000, FrameBinMs: 100})
	var off int64
	for ts := int64(0); ts < 600_000; ts += 1000 {
		s.Push(ts, off, off+10)
		off += 10
	}
	ws := s.Flush(off)
	require.Len(t, ws, 2)
	assert.Equal(t, int64(0), ws[0].FirstTS)
	assert.Equal(t, int64(299_000), ws[0].LastTS)
	assert.Equal(t, int64(300_000), ws[1].FirstTS)
	assert.Equal(t, int64(599_000), ws[1].LastTS)
	assert.Equal(t, 300, ws[0].Frames)
	assert.Equal(t, 300, ws[1].Frames)
}

func TestSegmenterIndicesSequential(t *testing.T) {
	s := NewSegmenter(Config{MaxWindowMs: 1000, MaxGapMs: 100_000, FrameBinMs: 100})
	for ts := int64(0); ts < 5000; ts += 100 {
		s.Push(ts, ts, ts+1)
	}
	ws := s.Flush(5000)
	for i, w := range ws {
		assert.Equal(t, i, w.Index)
	}
}

func cpmLog(rows []string) string {
	var b strings.Builder
	b.WriteString("generationTime_ms,yDistance_m,xDistance_m,trackID\n")
	for _, r := range rows {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return b.String()
}

func TestIndexLogBasic(t *testing.T) {
	text := cpmLog([]string{
		"0,1.0,2.0,a",
		"50,1.1,2.1,a",
		"100,1.2,2.2,b",
		"garbage,1,2,c",
	})
	idx, err := IndexLog(text, DefaultConfig(), fields.CPMAliases(), nil, ',', nil)
	require.NoError(t, err)
	assert.Equal(t, byte(','), idx.Delimiter)
	assert.Equal(t, 1, idx.Dropped)
	require.Contains(t, idx.FieldIndex, fields.Timestamp)
	require.Contains(t, idx.FieldIndex, fields.X)
	require.Contains(t, idx.FieldIndex, fields.Y)

	ws := idx.Windows[""]
	require.Len(t, ws, 1)
	assert.Equal(t, 3, ws[0].Rows)
	assert.Equal(t, 2, ws[0].Frames)
	assert.Equal(t, int64(len(text)), ws[0].OffsetEnd)
}

func TestIndexLogMissingRequired(t *testing.T) {
	text := "foo,bar\n1,2\n"
	_, err := IndexLog(text, DefaultConfig(), fields.CPMAliases(), nil, ',', nil)
	var miss *ErrMissingRequired
	require.ErrorAs(t, err, &miss)
	assert.Contains(t, miss.Missing, fields.Timestamp)
}

func TestIndexLogDiscriminatorSplitsSensors(t *testing.T) {
	var rows []string
	for ts := 0; ts < 1000; ts += 100 {
		rows = append(rows, fmt.Sprintf("%d,1,2,x,north", ts))
		rows = append(rows, fmt.Sprintf("%d,3,4,y,south", ts))
	}
	text := "generationTime_ms,yDistance_m,xDistance_m,trackID,rsu\n" + strings.Join(rows, "\n") + "\n"
	idx, err := IndexLog(text, DefaultConfig(), fields.CPMAliases(), nil, ',',
		&Discriminator{Column: "rsu", Values: []string{"north", "south"}})
	require.NoError(t, err)
	require.Len(t, idx.Windows["north"], 1)
	require.Len(t, idx.Windows["south"], 1)
	assert.Equal(t, 10, idx.Windows["north"][0].Rows)
	assert.Equal(t, 10, idx.Windows["south"][0].Rows)

	// interleaved rows mean each sensor's byte range covers the other's rows
	n, s := idx.Windows["north"][0], idx.Windows["south"][0]
	assert.Less(t, n.OffsetStart, s.OffsetStart)
	assert.Equal(t, int64(len(text)), n.OffsetEnd)
}

func TestIndexLogEmptyFile(t *testing.T) {
	_, err := IndexLog("", DefaultConfig(), fields.CPMAliases(), nil, ',', nil)
	require.Error(t, err)
}
