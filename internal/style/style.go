// Package style holds the static drawing styles attached to feature
// classes. Styles are plain configuration loaded once from YAML; nothing
// here is computed from geometry.
package style

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wegman-software/osm2pdf-go/internal/classify"
	"github.com/wegman-software/osm2pdf-go/internal/feature"
)

// Color is an RGB triple with components in [0, 1].
type Color struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
}

// Line describes how a stroked feature is drawn. Width is in meters of
// real-world size; the renderer converts it to page units at scale.
type Line struct {
	Stroke   Color   `yaml:"stroke"`
	WidthM   float64 `yaml:"width_m"`
	RoundCap bool    `yaml:"round_cap"`
}

// Fill describes how an area feature is painted.
type Fill struct {
	Color Color `yaml:"color"`
}

// Sheet is the full style configuration for a run.
type Sheet struct {
	Background Color `yaml:"background"` // page background (water when coastlines present)
	Land       Fill  `yaml:"land"`

	Water    Fill `yaml:"water"`
	Building Fill `yaml:"building"`
	Landuse  Fill `yaml:"landuse"`
	Other    Fill `yaml:"other"`

	Waterway Line `yaml:"waterway"`
	Boundary Line `yaml:"boundary"`

	// Roads are keyed by hierarchy level 1..8; missing levels fall back
	// to RoadDefault.
	Roads       map[int]Line `yaml:"roads"`
	RoadDefault Line         `yaml:"road_default"`

	// Landuse subtypes may override the category fill (e.g. lighter
	// green for park interiors).
	LanduseSubtypes map[string]Fill `yaml:"landuse_subtypes"`
}

// Default returns the built-in palette.
func Default() *Sheet {
	waterColor := Color{R: 0.529, G: 0.808, B: 0.922}

	roads := make(map[int]Line, 8)
	widths := map[int]float64{1: 8, 2: 8, 3: 8, 4: 8, 5: 8, 6: 6, 7: 4, 8: 1.5}
	for level, width := range widths {
		grey := 0.3 + float64(level)*0.1
		if grey > 1 {
			grey = 1
		}
		roads[level] = Line{
			Stroke:   Color{R: grey, G: grey, B: grey},
			WidthM:   width,
			RoundCap: true,
		}
	}

	return &Sheet{
		Background: waterColor,
		Land:       Fill{Color: Color{R: 0.95, G: 0.95, B: 0.95}},
		Water:      Fill{Color: waterColor},
		Building:   Fill{Color: Color{R: 0.85, G: 0.85, B: 0.85}},
		Landuse:    Fill{Color: Color{R: 0.698, G: 0.792, B: 0.682}},
		Other:      Fill{Color: Color{R: 0.9, G: 0.9, B: 0.9}},
		Waterway: Line{
			Stroke: waterColor,
			WidthM: 2,
		},
		Boundary: Line{
			Stroke: Color{R: 0.4, G: 0.4, B: 0.4},
			WidthM: 1,
		},
		Roads:       roads,
		RoadDefault: roads[7],
	}
}

// Load reads a style sheet from a YAML file. Fields not set in the file
// keep the built-in defaults.
func Load(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style file: %w", err)
	}

	sheet := Default()
	if err := yaml.Unmarshal(data, sheet); err != nil {
		return nil, fmt.Errorf("failed to parse style YAML: %w", err)
	}
	return sheet, nil
}

// LineFor returns the stroke style for a line-geometry record.
func (s *Sheet) LineFor(rec *feature.Record) Line {
	switch rec.Category {
	case feature.CategoryRoad:
		if ln, ok := s.Roads[classify.RoadHierarchy(rec.Subtype)]; ok {
			return ln
		}
		return s.RoadDefault
	case feature.CategoryWater:
		return s.Waterway
	case feature.CategoryBoundary:
		return s.Boundary
	default:
		return s.RoadDefault
	}
}

// FillFor returns the fill style for an area-geometry record.
func (s *Sheet) FillFor(rec *feature.Record) Fill {
	switch rec.Category {
	case feature.CategoryWater:
		return s.Water
	case feature.CategoryBuilding:
		return s.Building
	case feature.CategoryLanduse:
		if f, ok := s.LanduseSubtypes[rec.Subtype]; ok {
			return f
		}
		return s.Landuse
	default:
		return s.Other
	}
}
