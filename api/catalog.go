// Package api defines the catalog contract consumed by viewer frontends.
// Every dataset family, windowed or pass-through, serves this same
// surface, so consumers never branch on family.
package api

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Catalog is the uniform query surface over one dataset.
type Catalog interface {
	// ListGroups returns the dataset's grouping axis (sensors,
	// intersections, ...) with per-group scene counts.
	ListGroups(ctx context.Context, split string) ([]GroupInfo, error)

	// ListScenes returns one page of scene summaries, optionally
	// filtered to a single group.
	ListScenes(ctx context.Context, split, groupID string, offset, limit int) (ScenePage, error)

	// LocateScene reports where a scene sits in the global ordering and
	// within its group, for jump-to-scene and prev/next navigation.
	LocateScene(ctx context.Context, split, sceneID string) (SceneLocation, error)

	// LoadBundle materializes one scene's playable frames.
	LoadBundle(ctx context.Context, split, sceneID string) (*SceneBundle, error)
}

// GroupInfo describes one group (a sensor log, an intersection, ...).
type GroupInfo struct {
	GroupID string `json:"group_id"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
}

// ModalityStats summarizes one modality's contribution to a scene.
type ModalityStats struct {
	Rows         int      `json:"rows"`
	UniqueTS     int      `json:"unique_ts"`
	MinTS        *float64 `json:"min_ts"`
	MaxTS        *float64 `json:"max_ts"`
	DurationS    *float64 `json:"duration_s,omitempty"`
	UniqueAgents *int     `json:"unique_agents,omitempty"`
}

// SceneSummary is one row of a scene listing.
type SceneSummary struct {
	SceneID    string                   `json:"scene_id"`
	Label      string                   `json:"scene_label,omitempty"`
	Split      string                   `json:"split"`
	GroupID    string                   `json:"group_id,omitempty"`
	GroupLabel string                   `json:"group_label,omitempty"`
	ByModality map[string]ModalityStats `json:"by_modality,omitempty"`
}

// ScenePage is a bounded slice of the scene listing.
type ScenePage struct {
	Items  []SceneSummary `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// SceneLocation answers "where is this scene" for navigation.
type SceneLocation struct {
	SceneID         string `json:"scene_id"`
	Split           string `json:"split"`
	GroupID         string `json:"group_id,omitempty"`
	GroupLabel      string `json:"group_label,omitempty"`
	PositionInAll   int    `json:"position_in_all"`
	TotalInAll      int    `json:"total_in_all"`
	PositionInGroup int    `json:"position_in_group"`
	TotalInGroup    int    `json:"total_in_group"`
}

// Record is one detection/trajectory row in canonical viewer fields.
// Missing or non-numeric source values stay nil; parsing never fails a row.
type Record struct {
	ID          string   `json:"id,omitempty"`
	Type        string   `json:"type,omitempty"`
	SubType     string   `json:"sub_type,omitempty"`
	SubTypeCode *int     `json:"sub_type_code,omitempty"`
	Tag         string   `json:"tag,omitempty"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	Z           *float64 `json:"z,omitempty"`
	Length      *float64 `json:"length,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Theta       *float64 `json:"theta,omitempty"`
	VX          *float64 `json:"v_x,omitempty"`
	VY          *float64 `json:"v_y,omitempty"`
}

// Frame holds all records sharing one quantized timestamp, per modality.
type Frame map[string][]Record

// Extent is an axis-aligned bounding box in dataset world coordinates.
type Extent struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// EmptyExtent returns an inverted box that any Update will fix up. Check
// Valid before use.
func EmptyExtent() Extent {
	return Extent{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

// DefaultExtent is the fallback viewport used when a scene carries no
// finite positions at all.
func DefaultExtent() Extent {
	return Extent{MinX: -10, MinY: -10, MaxX: 10, MaxY: 10}
}

// Valid reports whether the extent saw at least one finite point.
func (e Extent) Valid() bool {
	return e.MinX <= e.MaxX && e.MinY <= e.MaxY &&
		!math.IsInf(e.MinX, 0) && !math.IsInf(e.MaxX, 0) &&
		!math.IsInf(e.MinY, 0) && !math.IsInf(e.MaxY, 0)
}

// Union grows the extent to cover other, ignoring invalid inputs.
func (e *Extent) Union(other Extent) {
	if !other.Valid() {
		return
	}
	e.Update(other.MinX, other.MinY)
	e.Update(other.MaxX, other.MaxY)
}

// Update grows the extent to include (x, y).
func (e *Extent) Update(x, y float64) {
	if x < e.MinX {
		e.MinX = x
	}
	if x > e.MaxX {
		e.MaxX = x
	}
	if y < e.MinY {
		e.MinY = y
	}
	if y > e.MaxY {
		e.MaxY = y
	}
}

// SceneBundle is everything a viewer needs to play one scene.
type SceneBundle struct {
	SceneID    string                   `json:"scene_id"`
	Split      string                   `json:"split"`
	GroupID    string                   `json:"group_id,omitempty"`
	GroupLabel string                   `json:"group_label,omitempty"`
	T0         float64                  `json:"t0"`
	Timestamps []float64                `json:"timestamps"`
	Extent     Extent                   `json:"extent"`
	Stats      map[string]ModalityStats `json:"modality_stats,omitempty"`
	Frames     []Frame                  `json:"frames"`
	Warnings   []string                 `json:"warnings"`
}

// NotFoundError reports an unknown identifier. It is a result, not a
// failure: consumers render a "no data" state from it.
type NotFoundError struct {
	Kind string // "scene", "group", "dataset"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
