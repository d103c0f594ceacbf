package profile

import (
	"fmt"
	"sort"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Dataset is one registry entry: where a dataset lives and which family
// strategy serves it.
type Dataset struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Family  Family `json:"family"`
	Path    string `json:"path"`
	Profile string `json:"profile,omitempty"`
}

var datasetsPath = jp.MustParseString("$.datasets[*]")

// ParseRegistry decodes one registry document. Entries missing an id or a
// path are skipped; an unknown family falls back to windowed.
func ParseRegistry(src string) ([]Dataset, error) {
	root, err := oj.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	var out []Dataset
	for _, node := range datasetsPath.Get(root) {
		m, ok := node.(map[string]any)
		if !ok {
			continue
		}
		d := Dataset{
			ID:      str(m["id"]),
			Label:   str(m["label"]),
			Family:  Family(str(m["family"])),
			Path:    str(m["path"]),
			Profile: str(m["profile"]),
		}
		if d.ID == "" || d.Path == "" {
			continue
		}
		if d.Family != FamilyWindowed && d.Family != FamilyPassThrough {
			d.Family = FamilyWindowed
		}
		if d.Label == "" {
			d.Label = d.ID
		}
		out = append(out, d)
	}
	return out, nil
}

// MergeRegistries overlays local entries over base by dataset id: a local
// entry with a known id replaces the base entry, new ids are appended.
// Result is sorted by id.
func MergeRegistries(base, local []Dataset) []Dataset {
	byID := make(map[string]Dataset, len(base)+len(local))
	for _, d := range base {
		byID[d.ID] = d
	}
	for _, d := range local {
		byID[d.ID] = d
	}
	out := make([]Dataset, 0, len(byID))
	for _, d := range byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
