// Package build turns raw OSM primitives into normalized feature records:
// lines, polygons with holes, and multipolygons assembled from relations.
package build

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2pdf-go/internal/feature"
	"github.com/wegman-software/osm2pdf-go/internal/logger"
)

// NodeLocator resolves a node id to its coordinate. Backed by the mmap
// node index during real runs, by a map in tests.
type NodeLocator interface {
	Get(nodeID int64) (lat, lon float64, ok bool)
}

// Input is the normalized primitive set handed over by the PBF reader.
type Input struct {
	Ways      []*osm.Way
	Relations []*osm.Relation
	Nodes     NodeLocator
}

// Options control geometry assembly.
type Options struct {
	// StitchToleranceDeg is the maximum endpoint gap (in degrees) closed
	// when joining relation member ways into rings.
	StitchToleranceDeg float64
	// BoundaryRelationID, if non-zero, selects the relation whose
	// multipolygon becomes the clipping boundary.
	BoundaryRelationID int64
}

// Result is the assembled feature set.
type Result struct {
	Features []*feature.Record
	// Boundary is the resolved boundary relation multipolygon, nil when
	// no boundary relation was configured or found.
	Boundary orb.MultiPolygon
	// Skipped counts features dropped due to assembly errors.
	Skipped int
}

// Assembler builds feature records from raw primitives.
type Assembler struct {
	opts  Options
	nodes NodeLocator
	ways  map[osm.WayID]*osm.Way
	log   *zap.Logger
}

// NewAssembler creates an assembler for one run.
func NewAssembler(opts Options) *Assembler {
	return &Assembler{
		opts: opts,
		log:  logger.Stage("build"),
	}
}

// Assemble resolves every way and relation in the input into feature
// records. Per-feature assembly failures are logged and skipped; only
// structural problems return an error.
func (a *Assembler) Assemble(in Input) (*Result, error) {
	a.nodes = in.Nodes
	a.ways = make(map[osm.WayID]*osm.Way, len(in.Ways))
	for _, w := range in.Ways {
		a.ways[w.ID] = w
	}

	res := &Result{}

	// Ways referenced by multipolygon relations carry their geometry on
	// the relation, not themselves.
	relationMember := a.relationMemberWays(in.Relations)

	for _, w := range in.Ways {
		if relationMember[w.ID] && len(w.Tags) == 0 {
			continue
		}
		rec, ok := a.wayFeature(w)
		if ok {
			res.Features = append(res.Features, rec)
		}
	}

	for _, rel := range in.Relations {
		isBoundary := a.opts.BoundaryRelationID != 0 && int64(rel.ID) == a.opts.BoundaryRelationID

		mp, err := a.assembleMultipolygon(rel)
		if err != nil {
			a.log.Warn("skipping relation",
				zap.Int64("osm_id", int64(rel.ID)),
				zap.Error(err))
			res.Skipped++
			continue
		}
		if len(mp) == 0 {
			continue
		}

		if isBoundary {
			a.log.Info("resolved boundary relation",
				zap.Int64("osm_id", int64(rel.ID)),
				zap.Int("polygons", len(mp)))
			res.Boundary = mp
			continue
		}

		var g orb.Geometry = mp
		if len(mp) == 1 {
			g = mp[0]
		}
		res.Features = append(res.Features, &feature.Record{
			Geometry: g,
			OSMID:    int64(rel.ID),
			OSMType:  osm.TypeRelation,
			Tags:     rel.Tags.Map(),
		})
	}

	if a.opts.BoundaryRelationID != 0 && res.Boundary == nil {
		a.log.Warn("boundary relation not found in extract",
			zap.Int64("relation_id", a.opts.BoundaryRelationID))
	}

	return res, nil
}

// relationMemberWays returns the set of way ids used by multipolygon or
// boundary relations.
func (a *Assembler) relationMemberWays(relations []*osm.Relation) map[osm.WayID]bool {
	members := make(map[osm.WayID]bool)
	for _, rel := range relations {
		for _, m := range rel.Members {
			if m.Type == osm.TypeWay {
				members[osm.WayID(m.Ref)] = true
			}
		}
	}
	return members
}

// wayFeature resolves a single way into a line or single-ring polygon
// record.
func (a *Assembler) wayFeature(w *osm.Way) (*feature.Record, bool) {
	coords := a.resolveWay(w)
	if len(coords) < 2 {
		return nil, false
	}

	tags := w.Tags.Map()
	rec := &feature.Record{
		OSMID:   int64(w.ID),
		OSMType: osm.TypeWay,
		Tags:    tags,
	}

	closed := coords[0] == coords[len(coords)-1]
	if closed && len(coords) >= 4 && isAreaTags(w.Tags) {
		rec.Geometry = orb.Polygon{orb.Ring(coords)}
	} else {
		rec.Geometry = coords
	}
	return rec, true
}

// resolveWay maps the way's node refs to coordinates. Nodes missing from
// the extract are dropped, matching the tolerant behavior needed for
// pre-filtered extracts.
func (a *Assembler) resolveWay(w *osm.Way) orb.LineString {
	coords := make(orb.LineString, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		lat, lon, ok := a.nodes.Get(int64(n.ID))
		if !ok {
			continue
		}
		coords = append(coords, orb.Point{lon, lat})
	}
	return coords
}

// assembleMultipolygon stitches a relation's member ways into polygons
// with holes. Relations that are not area-like yield an empty result
// without error.
func (a *Assembler) assembleMultipolygon(rel *osm.Relation) (orb.MultiPolygon, error) {
	if !isMultipolygonRelation(rel) {
		return nil, nil
	}

	var outerFrags, innerFrags []fragment
	for _, m := range rel.Members {
		if m.Type != osm.TypeWay {
			continue
		}
		w, ok := a.ways[osm.WayID(m.Ref)]
		if !ok {
			continue
		}
		coords := a.resolveWay(w)
		if len(coords) < 2 {
			continue
		}
		switch m.Role {
		case "inner":
			innerFrags = append(innerFrags, fragment{coords: coords})
		default: // "outer" and untagged roles
			outerFrags = append(outerFrags, fragment{coords: coords})
		}
	}

	if len(outerFrags) == 0 {
		return nil, nil
	}

	outers, err := stitchRings(outerFrags, a.opts.StitchToleranceDeg)
	if err != nil {
		return nil, &AssemblyError{RelationID: int64(rel.ID), Reason: "outer " + err.Error()}
	}
	inners, err := stitchRings(innerFrags, a.opts.StitchToleranceDeg)
	if err != nil {
		return nil, &AssemblyError{RelationID: int64(rel.ID), Reason: "inner " + err.Error()}
	}

	// Normalize orientation: outers counter-clockwise, holes clockwise.
	for i := range outers {
		if outers[i].Orientation() == orb.CW {
			outers[i].Reverse()
		}
	}
	for i := range inners {
		if inners[i].Orientation() == orb.CCW {
			inners[i].Reverse()
		}
	}

	polys := make(orb.MultiPolygon, len(outers))
	for i, outer := range outers {
		polys[i] = orb.Polygon{outer}
	}

	if len(inners) > 0 {
		if err := a.assignHoles(polys, inners); err != nil {
			return nil, &AssemblyError{RelationID: int64(rel.ID), Reason: err.Error()}
		}
	}

	return polys, nil
}

// outerEntry indexes one outer ring in the containment R-tree.
type outerEntry struct {
	rect  rtreego.Rect
	index int
}

func (e *outerEntry) Bounds() *rtreego.Rect {
	return &e.rect
}

// assignHoles attaches each inner ring to the outer ring containing it.
// When nested outers both contain an inner ring, the smallest containing
// ring wins; this makes the assignment deterministic for shared-edge
// cases too.
func (a *Assembler) assignHoles(polys orb.MultiPolygon, inners []orb.Ring) error {
	tree := rtreego.NewTree(2, 2, 8)
	for i, poly := range polys {
		rect, err := boundRect(poly[0].Bound())
		if err != nil {
			return err
		}
		tree.Insert(&outerEntry{rect: *rect, index: i})
	}

	for _, inner := range inners {
		query, err := boundRect(inner.Bound())
		if err != nil {
			return err
		}

		best := -1
		bestArea := math.Inf(1)
		for _, item := range tree.SearchIntersect(query) {
			entry := item.(*outerEntry)
			outer := polys[entry.index][0]
			if !planar.RingContains(outer, inner[0]) {
				continue
			}
			area := math.Abs(planar.Area(outer))
			if area < bestArea {
				bestArea = area
				best = entry.index
			}
		}
		if best < 0 {
			return &holeError{}
		}
		polys[best] = append(polys[best], inner)
	}

	return nil
}

// boundRect converts an orb bound to an R-tree rectangle, padded so
// degenerate (zero-extent) bounds remain valid.
func boundRect(b orb.Bound) (*rtreego.Rect, error) {
	const pad = 1e-12
	return rtreego.NewRectFromPoints(
		rtreego.Point{b.Min[0] - pad, b.Min[1] - pad},
		rtreego.Point{b.Max[0] + pad, b.Max[1] + pad},
	)
}

type holeError struct{}

func (*holeError) Error() string {
	return "no containing outer ring found for inner ring"
}

// isMultipolygonRelation reports whether the relation assembles into
// area geometry.
func isMultipolygonRelation(rel *osm.Relation) bool {
	switch rel.Tags.Find("type") {
	case "multipolygon", "boundary":
		return true
	}
	// Relations carrying area tags directly, e.g. water or landuse
	// without an explicit type.
	return isAreaTags(rel.Tags)
}

// isAreaTags reports whether a closed way's tags mark it as an area
// rather than a closed line (e.g. a roundabout).
func isAreaTags(tags osm.Tags) bool {
	if v := tags.Find("area"); v != "" {
		return v == "yes"
	}

	areaKeys := map[string]bool{
		"building": true,
		"landuse":  true,
		"natural":  true,
		"leisure":  true,
		"amenity":  true,
		"water":    true,
		"man_made": true,
		"waterway": false, // rivers stay lines even when closed
		"highway":  false, // roundabouts stay lines
		"barrier":  false,
		"railway":  false,
	}

	for _, tag := range tags {
		if isArea, known := areaKeys[tag.Key]; known {
			if tag.Key == "natural" && tag.Value == "coastline" {
				return false
			}
			return isArea
		}
	}
	return false
}
