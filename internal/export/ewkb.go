package export

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// WKB geometry type codes, ISO SQL/MM.
const (
	wkbPoint           = 1
	wkbLineString      = 2
	wkbPolygon         = 3
	wkbMultiLineString = 5
	wkbMultiPolygon    = 6

	// PostGIS extended WKB flag: an SRID follows the type word.
	wkbSRIDFlag = 0x20000000
)

// SRID4326 is WGS84 longitude/latitude.
const SRID4326 = 4326

// Encoder encodes orb geometries as little-endian EWKB with an SRID.
// The internal buffer is reused between calls; Encode returns a copy.
type Encoder struct {
	buf  []byte
	srid uint32
}

// NewEncoder creates an encoder for the given SRID.
func NewEncoder(srid int) *Encoder {
	return &Encoder{
		buf:  make([]byte, 0, 1024),
		srid: uint32(srid),
	}
}

// Encode serializes the geometry.
func (e *Encoder) Encode(g orb.Geometry) ([]byte, error) {
	e.buf = e.buf[:0]

	switch g := g.(type) {
	case orb.Point:
		e.header(wkbPoint)
		e.point(g)
	case orb.LineString:
		e.header(wkbLineString)
		e.lineString(g)
	case orb.Ring:
		e.header(wkbPolygon)
		e.rings([]orb.Ring{g})
	case orb.Polygon:
		e.header(wkbPolygon)
		e.rings(g)
	case orb.MultiLineString:
		e.header(wkbMultiLineString)
		e.uint32(uint32(len(g)))
		for _, ls := range g {
			e.buf = append(e.buf, 0x01)
			e.uint32(wkbLineString)
			e.lineString(ls)
		}
	case orb.MultiPolygon:
		e.header(wkbMultiPolygon)
		e.uint32(uint32(len(g)))
		for _, poly := range g {
			e.buf = append(e.buf, 0x01)
			e.uint32(wkbPolygon)
			e.rings(poly)
		}
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}

	return append([]byte(nil), e.buf...), nil
}

// header writes the byte order mark, type word with SRID flag, and SRID.
func (e *Encoder) header(geomType uint32) {
	e.buf = append(e.buf, 0x01) // little-endian
	e.uint32(geomType | wkbSRIDFlag)
	e.uint32(e.srid)
}

func (e *Encoder) point(p orb.Point) {
	e.float64(p[0])
	e.float64(p[1])
}

func (e *Encoder) lineString(ls orb.LineString) {
	e.uint32(uint32(len(ls)))
	for _, p := range ls {
		e.point(p)
	}
}

func (e *Encoder) rings(rings []orb.Ring) {
	e.uint32(uint32(len(rings)))
	for _, ring := range rings {
		e.uint32(uint32(len(ring)))
		for _, p := range ring {
			e.point(p)
		}
	}
}

func (e *Encoder) uint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) float64(v float64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
}
