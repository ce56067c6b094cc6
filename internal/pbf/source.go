// Package pbf reads OSM PBF extracts in two passes: the first builds a
// memory-mapped node coordinate index, the second collects the ways and
// relations whose geometry can be resolved inside the configured area.
package pbf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2pdf-go/internal/config"
	"github.com/wegman-software/osm2pdf-go/internal/logger"
)

// Stats holds read statistics for one extract.
type Stats struct {
	NodesIndexed   int64
	NodesSeen      int64
	WaysKept       int64
	WaysSeen       int64
	RelationsKept  int64
	RelationsSeen  int64
	InputSizeBytes int64
}

// Extract is the primitive set read from a PBF file. Nodes stays valid
// until the source is closed.
type Extract struct {
	Ways      []*osm.Way
	Relations []*osm.Relation
	Nodes     *NodeIndex
	Stats     Stats
}

// Source reads one PBF file according to the run configuration.
type Source struct {
	cfg       *config.Config
	index     *NodeIndex
	indexPath string
	log       *zap.Logger
}

// NewSource creates a source. The node index file lives next to the
// output and is removed on Close.
func NewSource(cfg *config.Config) (*Source, error) {
	dir := filepath.Dir(cfg.OutputFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Source{
		cfg:       cfg,
		indexPath: filepath.Join(dir, "node_index.bin"),
		log:       logger.Stage("pbf"),
	}, nil
}

// Close releases the node index and deletes its backing file.
func (s *Source) Close() error {
	if s.index != nil {
		s.index.Close()
		s.index = nil
	}
	os.Remove(s.indexPath)
	return nil
}

// Read runs both passes over the input file.
func (s *Source) Read(ctx context.Context) (*Extract, error) {
	f, err := os.Open(s.cfg.InputFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	ex := &Extract{}
	ex.Stats.InputSizeBytes = info.Size()

	s.log.Info("pass 1: indexing node coordinates",
		zap.String("input", s.cfg.InputFile))
	start := time.Now()
	if err := s.indexNodes(ctx, f, &ex.Stats); err != nil {
		return nil, err
	}
	s.log.Info("pass 1 complete",
		zap.Int64("nodes_indexed", ex.Stats.NodesIndexed),
		zap.Int64("nodes_seen", ex.Stats.NodesSeen),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	s.log.Info("pass 2: collecting ways and relations")
	start = time.Now()
	if err := s.collect(ctx, f, ex); err != nil {
		return nil, err
	}
	s.log.Info("pass 2 complete",
		zap.Int64("ways_kept", ex.Stats.WaysKept),
		zap.Int64("relations_kept", ex.Stats.RelationsKept),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	ex.Nodes = s.index
	return ex, nil
}

// indexNodes is pass 1: every node inside the padded bounding box goes
// into the mmap index. The scan stops at the first way; PBF files sort
// nodes first.
func (s *Source) indexNodes(ctx context.Context, f *os.File, stats *Stats) error {
	idx, err := CreateNodeIndex(s.indexPath)
	if err != nil {
		return err
	}
	s.index = idx

	var bbox config.BBox
	if s.cfg.BBox != nil {
		bbox = s.cfg.BBox.Padded(s.cfg.PaddingDeg)
	}

	scanner := osmpbf.New(ctx, f, runtime.NumCPU())
	defer scanner.Close()

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			stats.NodesSeen++
			if bbox.IsSet && !bbox.Contains(o.Lat, o.Lon) {
				continue
			}
			idx.Put(int64(o.ID), o.Lat, o.Lon)
			stats.NodesIndexed++
		case *osm.Way:
			return scanner.Err()
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// collect is pass 2: ways with at least one indexed node are kept, as
// are the relations that can assemble into areas. Everything else in
// the extract is outside the drawable region.
func (s *Source) collect(ctx context.Context, f *os.File, ex *Extract) error {
	scanner := osmpbf.New(ctx, f, runtime.NumCPU())
	defer scanner.Close()

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Way:
			ex.Stats.WaysSeen++
			if !s.wayInRegion(o) {
				continue
			}
			ex.Ways = append(ex.Ways, o)
			ex.Stats.WaysKept++
		case *osm.Relation:
			ex.Stats.RelationsSeen++
			if !s.keepRelation(o) {
				continue
			}
			ex.Relations = append(ex.Relations, o)
			ex.Stats.RelationsKept++
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (s *Source) wayInRegion(w *osm.Way) bool {
	for _, n := range w.Nodes {
		if _, _, ok := s.index.Get(int64(n.ID)); ok {
			return true
		}
	}
	return false
}

func (s *Source) keepRelation(rel *osm.Relation) bool {
	if s.cfg.BoundaryRelationID != 0 && int64(rel.ID) == s.cfg.BoundaryRelationID {
		return true
	}
	switch rel.Tags.Find("type") {
	case "multipolygon", "boundary":
		return true
	}
	return false
}
