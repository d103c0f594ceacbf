// Package dirfs is the read-only directory handle the indexing pipeline
// works against. Everything goes through billy so tests can run on an
// in-memory filesystem and production on the host.
package dirfs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Dir wraps a dataset root. It never writes.
type Dir struct {
	fs     billy.Filesystem
	rootID string
}

// FromOS opens a host directory as a dataset root. The absolute path doubles
// as the root identity.
func FromOS(root string) *Dir {
	return &Dir{fs: osfs.New(root), rootID: root}
}

// FromBilly wraps an existing filesystem; rootID is any stable identity
// string for cache keying.
func FromBilly(bfs billy.Filesystem, rootID string) *Dir {
	return &Dir{fs: bfs, rootID: rootID}
}

// RootID returns the root's identity string.
func (d *Dir) RootID() string { return d.rootID }

// Exists reports whether relpath names an existing file or directory.
func (d *Dir) Exists(relpath string) bool {
	_, err := d.fs.Stat(relpath)
	return err == nil
}

// ReadText reads a whole file as a string. A missing file surfaces as
// fs.ErrNotExist so callers can treat absence as a signal, not a failure.
func (d *Dir) ReadText(relpath string) (string, error) {
	f, err := d.fs.Open(relpath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("open %s: %w", relpath, fs.ErrNotExist)
		}
		return "", fmt.Errorf("open %s: %w", relpath, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", relpath, err)
	}
	return string(data), nil
}

// List returns the entry names directly under relpath, sorted.
func (d *Dir) List(relpath string) ([]string, error) {
	infos, err := d.fs.ReadDir(relpath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("list %s: %w", relpath, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("list %s: %w", relpath, err)
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	sort.Strings(names)
	return names, nil
}

// WalkSuffix walks relpath recursively and returns the relative paths of
// every file whose name ends in suffix, sorted. A missing directory yields
// an empty slice.
func (d *Dir) WalkSuffix(relpath, suffix string) ([]string, error) {
	var out []string
	var walk func(dir string) error
	walk = func(dir string) error {
		infos, err := d.fs.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, fi := range infos {
			p := path.Join(dir, fi.Name())
			if fi.IsDir() {
				if err := walk(p); err != nil {
					return err
				}
				continue
			}
			if strings.HasSuffix(fi.Name(), suffix) {
				out = append(out, p)
			}
		}
		return nil
	}
	if !d.Exists(relpath) {
		return nil, nil
	}
	if err := walk(relpath); err != nil {
		return nil, fmt.Errorf("walk %s: %w", relpath, err)
	}
	sort.Strings(out)
	return out, nil
}
