// Package session owns the per-root runtime state: the directory handle,
// the three cache tiers keyed under it, and the sequence counters that let
// stale async completions be discarded.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/v2x-tools/scenedex/internal/cache"
	"github.com/v2x-tools/scenedex/internal/catalog"
	"github.com/v2x-tools/scenedex/internal/csvx"
	"github.com/v2x-tools/scenedex/internal/dirfs"
)

// Tier bounds. Text entries are whole files, so keep plenty; index builds
// are the expensive tier and vary least, so keep few.
const (
	TextTierSize  = 32
	RowsTierSize  = 8
	IndexTierSize = 4
)

// OpKind tags externally triggered operations for supersede tracking.
type OpKind int

const (
	OpListGroups OpKind = iota
	OpListScenes
	OpLocateScene
	OpLoadBundle
	OpIndexBuild
	opKinds
)

// Session is safe for concurrent use.
type Session struct {
	mu   sync.RWMutex
	root *dirfs.Dir

	text  *cache.Group[string]
	rows  *cache.Group[*csvx.Table]
	index *cache.Group[*catalog.SceneCatalog]

	seq [opKinds]atomic.Uint64
}

// New returns a session with no root selected. With a non-nil reg the
// tiers export hit/miss/eviction metrics.
func New(reg prometheus.Registerer) *Session {
	text := cache.New[string](TextTierSize)
	rows := cache.New[*csvx.Table](RowsTierSize)
	index := cache.New[*catalog.SceneCatalog](IndexTierSize)
	if reg != nil {
		text.WithMetrics(cache.NewMetrics(reg, "text"))
		rows.WithMetrics(cache.NewMetrics(reg, "rows"))
		index.WithMetrics(cache.NewMetrics(reg, "index"))
	}
	return &Session{
		text:  cache.NewGroup(text),
		rows:  cache.NewGroup(rows),
		index: cache.NewGroup(index),
	}
}

// SetRoot selects a new dataset root. Every tier is dropped whole: cached
// paths are root-relative and ambiguous across roots, so nothing carries
// over. Selecting the same root again is a no-op.
func (s *Session) SetRoot(root *dirfs.Dir) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root != nil && root != nil && s.root.RootID() == root.RootID() {
		return
	}
	s.root = root
	s.text.Reset()
	s.rows.Reset()
	s.index.Reset()
}

// Root returns the selected root; ok is false while none is selected,
// which is a valid state and must surface as empty catalogs upstream.
func (s *Session) Root() (*dirfs.Dir, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root, s.root != nil
}

func (s *Session) rootID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.root == nil {
		return ""
	}
	return s.root.RootID()
}

// Text returns a file's full text through the text tier. Keys carry the
// root identity so a build that completes after a root switch caches under
// the old root's key and can never answer for the new root's bytes.
func (s *Session) Text(relpath string) (string, error) {
	root, ok := s.Root()
	if !ok {
		return "", fmt.Errorf("no root selected")
	}
	return s.textFor(root, relpath)
}

func (s *Session) textFor(root *dirfs.Dir, relpath string) (string, error) {
	key := root.RootID() + "\x1f" + relpath
	return s.text.GetOrBuild(key, func() (string, error) {
		return root.ReadText(relpath)
	})
}

// Rows returns a file parsed into a header-keyed row table through the
// rows tier, keyed like the text tier. Text and key come from the same
// root snapshot.
func (s *Session) Rows(relpath string, delim byte) (*csvx.Table, error) {
	root, ok := s.Root()
	if !ok {
		return nil, fmt.Errorf("no root selected")
	}
	text, err := s.textFor(root, relpath)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s\x1f%s\x1f%c", root.RootID(), relpath, delim)
	return s.rows.GetOrBuild(key, func() (*csvx.Table, error) {
		t := csvx.ParseTable(text, delim)
		return &t, nil
	})
}

// IndexFingerprint keys a built catalog by root identity, family and the
// windowing configuration. A config change misses lazily; text and rows
// stay valid since raw bytes are unaffected.
func (s *Session) IndexFingerprint(family, configFP string) string {
	return s.rootID() + "\x1f" + family + "\x1f" + configFP
}

// Index returns the built scene catalog for a fingerprint, building it at
// most once across concurrent callers.
func (s *Session) Index(fingerprint string, build func() (*catalog.SceneCatalog, error)) (*catalog.SceneCatalog, error) {
	return s.index.GetOrBuild(fingerprint, build)
}

// Begin issues the next sequence token for an operation kind.
func (s *Session) Begin(kind OpKind) uint64 {
	return s.seq[kind].Add(1)
}

// Current reports whether token is still the newest issued for kind.
// Completions holding a stale token must discard their result.
func (s *Session) Current(kind OpKind, token uint64) bool {
	return s.seq[kind].Load() == token
}

// Stats snapshots every tier's counters.
func (s *Session) Stats() map[string]cache.StatsSnapshot {
	return map[string]cache.StatsSnapshot{
		"text":  s.text.Stats(),
		"rows":  s.rows.Stats(),
		"index": s.index.Stats(),
	}
}
