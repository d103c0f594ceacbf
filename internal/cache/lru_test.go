package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUBasic(t *testing.T) {
	c := New[string](2)
	c.Set("a", "1")
	c.Set("b", "2")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	// "b" is now coldest; adding "c" evicts it
	c.Set("c", "3")
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRUTouchOnReadKeepsEntryAlive(t *testing.T) {
	c := New[int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	for i := 0; i < 5; i++ {
		_, _ = c.Get("a")
		c.Set(fmt.Sprintf("x%d", i), i)
	}
	_, ok := c.Get("a")
	assert.True(t, ok, "repeatedly read entry must survive churn")
}

func TestLRUReplaceDoesNotGrow(t *testing.T) {
	c := New[int](2)
	c.Set("a", 1)
	c.Set("a", 2)
	assert.Equal(t, 1, c.Len())
	v, _ := c.Get("a")
	assert.Equal(t, 2, v)
}

func TestLRUBoundClamp(t *testing.T) {
	c := New[int](0)
	c.Set("a", 1)
	c.Set("b", 2)
	assert.Equal(t, 1, c.Len())
}

func TestLRUReset(t *testing.T) {
	c := New[int](4)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Reset()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestStatsCounters(t *testing.T) {
	c := New[int](1)
	c.Set("a", 1)
	c.Get("a")
	c.Get("zzz")
	c.Set("b", 2) // evicts a

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(2), s.Sets)
	assert.Equal(t, int64(1), s.Evictions)
	assert.Equal(t, int64(1), s.Size)
	assert.InDelta(t, 0.5, s.HitRate(), 1e-9)
}

func TestGroupCoalescesConcurrentBuilds(t *testing.T) {
	g := NewGroup(New[string](4))
	var builds atomic.Int32
	gate := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate
			v, err := g.GetOrBuild("k", func() (string, error) {
				builds.Add(1)
				return "built", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "built", v)
		}()
	}
	close(gate)
	wg.Wait()
	assert.LessOrEqual(t, builds.Load(), int32(2), "misses must coalesce")
}

func TestGroupBuildErrorNotCached(t *testing.T) {
	g := NewGroup(New[int](4))
	boom := errors.New("boom")
	_, err := g.GetOrBuild("k", func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)

	v, err := g.GetOrBuild("k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
