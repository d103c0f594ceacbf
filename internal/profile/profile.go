// Package profile loads dataset declarations: the registry.json list of
// datasets under a root, plus each dataset's optional HCL profile with
// windowing parameters, column aliases and discovery hints.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/v2x-tools/scenedex/internal/fields"
	"github.com/v2x-tools/scenedex/internal/segment"
)

// Family selects the catalog strategy for a dataset.
type Family string

const (
	// FamilyWindowed synthesizes scenes by windowing raw sensor logs.
	FamilyWindowed Family = "cpm_objects"
	// FamilyPassThrough reads scene ids from a dataset-declared index.
	FamilyPassThrough Family = "v2x_traj"
)

// Profile is one dataset's parsed HCL declaration. All fields are optional;
// missing ones fall back to family defaults.
type Profile struct {
	Windowing *WindowingBlock `hcl:"windowing,block"`
	Aliases   []AliasBlock    `hcl:"alias,block"`
	Columns   []ColumnBlock   `hcl:"column,block"`
	Sensor    *SensorBlock    `hcl:"sensor,block"`
	Discover  *DiscoverBlock  `hcl:"discover,block"`
	Heading   *string         `hcl:"heading,optional"`
	ScenesCSV *string         `hcl:"scenes_csv,optional"`
}

// WindowingBlock carries the scene segmentation knobs, durations in seconds
// to match how operators think about capture sessions.
type WindowingBlock struct {
	MaxWindowDurationS *float64 `hcl:"max_window_duration_s,optional"`
	MaxGapS            *float64 `hcl:"max_gap_s,optional"`
	FrameBinMs         *int64   `hcl:"frame_bin_ms,optional"`
	DelimiterHint      *string  `hcl:"delimiter_hint,optional"`
}

// AliasBlock adds header spellings for one canonical field.
type AliasBlock struct {
	Field string   `hcl:"field,label"`
	Names []string `hcl:"names"`
}

// ColumnBlock pins a canonical field to one exact column name.
type ColumnBlock struct {
	Field string `hcl:"field,label"`
	Name  string `hcl:"name"`
}

// SensorBlock splits a shared file into logical sensors by column value.
type SensorBlock struct {
	Column string   `hcl:"column"`
	Values []string `hcl:"values,optional"`
}

// DiscoverBlock overrides log file discovery.
type DiscoverBlock struct {
	Roots  []string `hcl:"roots,optional"`
	Suffix *string  `hcl:"suffix,optional"`
}

// ParseProfile decodes HCL source. The filename only feeds diagnostics.
func ParseProfile(filename string, src []byte) (*Profile, error) {
	var p Profile
	if err := hclsimple.Decode(filename, src, nil, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", filename, err)
	}
	return &p, nil
}

// Config is the resolved runtime configuration for a windowed dataset.
type Config struct {
	Windowing     segment.Config
	DelimiterHint byte
	Aliases       fields.AliasTable
	Overrides     map[string]string
	Discriminator *segment.Discriminator
	// HeadingCWNorthDeg is set for the "cw_north_deg" heading convention.
	HeadingCWNorthDeg bool
	DiscoverRoots     []string
	DiscoverSuffix    string
}

// DefaultConfig returns the windowed-family defaults used when a dataset
// ships no profile.
func DefaultConfig() Config {
	return Config{
		Windowing:         segment.DefaultConfig(),
		DelimiterHint:     ',',
		Aliases:           fields.CPMAliases(),
		HeadingCWNorthDeg: true,
		DiscoverRoots:     []string{"lidar", "thermal_camera"},
		DiscoverSuffix:    "cpm-objects.csv",
	}
}

// Resolve merges a parsed profile over the defaults. A nil profile returns
// the defaults unchanged.
func Resolve(p *Profile) Config {
	cfg := DefaultConfig()
	if p == nil {
		return cfg
	}
	if w := p.Windowing; w != nil {
		if w.MaxWindowDurationS != nil && *w.MaxWindowDurationS > 0 {
			cfg.Windowing.MaxWindowMs = int64(*w.MaxWindowDurationS * 1000)
		}
		if w.MaxGapS != nil && *w.MaxGapS > 0 {
			cfg.Windowing.MaxGapMs = int64(*w.MaxGapS * 1000)
		}
		if w.FrameBinMs != nil {
			cfg.Windowing.FrameBinMs = *w.FrameBinMs
			if cfg.Windowing.FrameBinMs < 1 {
				cfg.Windowing.FrameBinMs = 1
			}
		}
		if w.DelimiterHint != nil && len(*w.DelimiterHint) == 1 {
			cfg.DelimiterHint = (*w.DelimiterHint)[0]
		}
	}
	for _, a := range p.Aliases {
		cfg.Aliases[a.Field] = append(cfg.Aliases[a.Field], a.Names...)
	}
	if len(p.Columns) > 0 {
		cfg.Overrides = make(map[string]string, len(p.Columns))
		for _, c := range p.Columns {
			cfg.Overrides[c.Field] = c.Name
		}
	}
	if p.Sensor != nil && p.Sensor.Column != "" {
		cfg.Discriminator = &segment.Discriminator{Column: p.Sensor.Column, Values: p.Sensor.Values}
	}
	if p.Heading != nil {
		cfg.HeadingCWNorthDeg = *p.Heading == "cw_north_deg"
	}
	if d := p.Discover; d != nil {
		if len(d.Roots) > 0 {
			cfg.DiscoverRoots = d.Roots
		}
		if d.Suffix != nil && *d.Suffix != "" {
			cfg.DiscoverSuffix = *d.Suffix
		}
	}
	return cfg
}

// Fingerprint renders the parts of the configuration that affect a built
// index into one canonical string, so the index cache key changes exactly
// when a rebuild would produce different output.
func (c Config) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "w=%d;g=%d;b=%d;d=%q", c.Windowing.MaxWindowMs, c.Windowing.MaxGapMs, c.Windowing.FrameBinMs, string(c.DelimiterHint))

	keys := make([]string, 0, len(c.Aliases))
	for k := range c.Aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		names := append([]string(nil), c.Aliases[k]...)
		sort.Strings(names)
		fmt.Fprintf(&b, ";a.%s=%s", k, strings.Join(names, "|"))
	}

	keys = keys[:0]
	for k := range c.Overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ";o.%s=%s", k, c.Overrides[k])
	}

	if d := c.Discriminator; d != nil {
		vals := append([]string(nil), d.Values...)
		sort.Strings(vals)
		fmt.Fprintf(&b, ";s=%s:%s", d.Column, strings.Join(vals, "|"))
	}
	fmt.Fprintf(&b, ";roots=%s;suffix=%s", strings.Join(c.DiscoverRoots, "|"), c.DiscoverSuffix)
	return b.String()
}
