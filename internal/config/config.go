package config

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// BBox represents a geographic bounding box
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
	IsSet                          bool
}

// Contains checks if a point is within the bounding box
func (b *BBox) Contains(lat, lon float64) bool {
	if !b.IsSet {
		return true
	}
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// Padded returns a copy of the bbox grown by pad degrees on every side.
func (b *BBox) Padded(pad float64) BBox {
	if !b.IsSet {
		return *b
	}
	return BBox{
		MinLon: b.MinLon - pad,
		MinLat: b.MinLat - pad,
		MaxLon: b.MaxLon + pad,
		MaxLat: b.MaxLat + pad,
		IsSet:  true,
	}
}

// ParseBBox parses a bbox string in format "minlon,minlat,maxlon,maxlat"
func ParseBBox(s string) (*BBox, error) {
	if s == "" {
		return &BBox{IsSet: false}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values: minlon,minlat,maxlon,maxlat")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	bbox := &BBox{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
		IsSet:  true,
	}

	if bbox.MinLon >= bbox.MaxLon {
		return nil, fmt.Errorf("minlon (%f) must be < maxlon (%f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat >= bbox.MaxLat {
		return nil, fmt.Errorf("minlat (%f) must be < maxlat (%f)", bbox.MinLat, bbox.MaxLat)
	}
	if bbox.MinLat < -90 || bbox.MaxLat > 90 {
		return nil, fmt.Errorf("latitude out of range [-90, 90]")
	}
	if bbox.MinLon < -180 || bbox.MaxLon > 180 {
		return nil, fmt.Errorf("longitude out of range [-180, 180]")
	}

	return bbox, nil
}

// Config holds the global configuration for a map generation run
type Config struct {
	// Input settings
	InputFile  string
	BBox       *BBox   // Geographic bounding box (required)
	PaddingDeg float64 // Extra degrees kept around the bbox during extraction

	// Boundary settings
	BoundaryRelationID int64 // Optional relation whose multipolygon clips the map

	// Output settings
	OutputFile string // Base path for the PDF output
	StyleFile  string // Path to style YAML file (empty = built-in palette)

	// Scale settings
	ScaleDenominator float64 // 1 = true scale (1:1), 1000 = 1:1000, ...

	// Geometry settings
	StitchToleranceDeg float64 // Max endpoint gap when closing relation rings
	SliverAreaPts2     float64 // Clipped rings below this area (pt^2) are dropped

	// Page settings
	MaxSheetPts    float64 // Largest single-sheet dimension before tiling
	TileOverlapPts float64 // Overlap between adjacent tiles

	// Processing settings
	Workers int

	// Database settings (export command)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSchema   string

	// Logging and metrics
	Verbose         bool
	LogFile         string
	MetricsInterval time.Duration
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OutputFile:         "maps/map.pdf",
		PaddingDeg:         0.01,
		ScaleDenominator:   1, // true 1:1 scale
		StitchToleranceDeg: 1e-6,
		SliverAreaPts2:     1.0,
		MaxSheetPts:        14400, // 200 inches, the PDF implementation limit
		TileOverlapPts:     36,    // half an inch
		Workers:            runtime.NumCPU(),
		DBHost:             "localhost",
		DBPort:             5432,
		DBName:             "osm",
		DBUser:             "postgres",
		DBSchema:           "public",
		MetricsInterval:    30 * time.Second,
	}
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.BBox == nil || !c.BBox.IsSet {
		return fmt.Errorf("bounding box is required")
	}
	if c.ScaleDenominator <= 0 || math.IsInf(c.ScaleDenominator, 0) {
		return fmt.Errorf("scale denominator must be positive and finite")
	}
	if c.StitchToleranceDeg < 0 {
		return fmt.Errorf("stitch tolerance must not be negative")
	}
	if c.MaxSheetPts <= 0 {
		return fmt.Errorf("max sheet dimension must be positive")
	}
	if c.TileOverlapPts < 0 || c.TileOverlapPts >= c.MaxSheetPts/2 {
		return fmt.Errorf("tile overlap must be in [0, max-sheet/2)")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}
