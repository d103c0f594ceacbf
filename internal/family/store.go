// Package family selects and hosts the per-dataset catalog strategy:
// windowed for raw perception logs, pass-through for datasets with declared
// scene metadata. Both serve the same api.Catalog surface.
package family

import (
	"errors"
	"io/fs"
	"log/slog"
	"sort"
	"sync"

	"github.com/v2x-tools/scenedex/api"
	"github.com/v2x-tools/scenedex/internal/dirfs"
	"github.com/v2x-tools/scenedex/internal/profile"
	"github.com/v2x-tools/scenedex/internal/session"
)

// RegistryFile is the dataset list expected at the root; LocalRegistryFile
// overlays per-machine overrides and is optional.
const (
	RegistryFile      = "registry.json"
	LocalRegistryFile = "registry.local.json"
)

// Store holds the catalogs of every registered dataset under the currently
// selected root. Strategy selection happens once, at Open time.
type Store struct {
	sess *session.Session
	log  *slog.Logger

	mu       sync.RWMutex
	datasets []profile.Dataset
	catalogs map[string]api.Catalog
}

// NewStore returns an empty store; call Open to load a root.
func NewStore(sess *session.Session, log *slog.Logger) *Store {
	return &Store{sess: sess, log: log, catalogs: map[string]api.Catalog{}}
}

// Open selects root and loads its registry. A root without a registry is a
// valid empty state, not an error; everything else propagates.
func (s *Store) Open(root *dirfs.Dir) error {
	s.sess.SetRoot(root)

	datasets, err := s.loadRegistry(root)
	if err != nil {
		return err
	}

	catalogs := make(map[string]api.Catalog, len(datasets))
	for _, ds := range datasets {
		p, err := s.loadProfile(root, ds)
		if err != nil {
			return err
		}
		switch ds.Family {
		case profile.FamilyPassThrough:
			scenesCSV := ""
			if p != nil && p.ScenesCSV != nil {
				scenesCSV = *p.ScenesCSV
			}
			catalogs[ds.ID] = NewPassThrough(s.sess, ds, scenesCSV, s.log)
		default:
			catalogs[ds.ID] = NewWindowed(s.sess, ds, profile.Resolve(p), s.log)
		}
	}

	s.mu.Lock()
	s.datasets = datasets
	s.catalogs = catalogs
	s.mu.Unlock()
	s.log.Info("root opened", "root", root.RootID(), "datasets", len(datasets))
	return nil
}

func (s *Store) loadRegistry(root *dirfs.Dir) ([]profile.Dataset, error) {
	text, err := root.ReadText(RegistryFile)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("no registry at root", "root", root.RootID())
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	base, err := profile.ParseRegistry(text)
	if err != nil {
		return nil, err
	}

	localText, err := root.ReadText(LocalRegistryFile)
	if errors.Is(err, fs.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return nil, err
	}
	local, err := profile.ParseRegistry(localText)
	if err != nil {
		return nil, err
	}
	return profile.MergeRegistries(base, local), nil
}

func (s *Store) loadProfile(root *dirfs.Dir, ds profile.Dataset) (*profile.Profile, error) {
	if ds.Profile == "" {
		return nil, nil
	}
	src, err := root.ReadText(ds.Profile)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("profile file missing, using defaults", "dataset", ds.ID, "profile", ds.Profile)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return profile.ParseProfile(ds.Profile, []byte(src))
}

// Datasets lists the registered datasets, sorted by id.
func (s *Store) Datasets() []profile.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]profile.Dataset(nil), s.datasets...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Catalog returns the strategy serving dataset id.
func (s *Store) Catalog(id string) (api.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.catalogs[id]
	if !ok {
		return nil, &api.NotFoundError{Kind: "dataset", ID: id}
	}
	return c, nil
}
