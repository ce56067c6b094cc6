// Package pdfcanvas renders sheet tiles into PDF files. Each tile
// becomes one single-page document at its exact physical size.
package pdfcanvas

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics"
	pdfcolor "seehuhn.de/go/pdf/graphics/color"

	"github.com/wegman-software/osm2pdf-go/internal/layout"
	"github.com/wegman-software/osm2pdf-go/internal/logger"
	"github.com/wegman-software/osm2pdf-go/internal/render"
	"github.com/wegman-software/osm2pdf-go/internal/style"
)

// Canvas writes one PDF file per tile. A single-tile page writes the
// output path as-is; a tiled page appends the grid position to the
// file name.
type Canvas struct {
	outputPath string
	multiTile  bool
	log        *zap.Logger
}

// New creates a canvas writing to outputPath. multiTile selects the
// per-tile naming scheme.
func New(outputPath string, multiTile bool) *Canvas {
	return &Canvas{
		outputPath: outputPath,
		multiTile:  multiTile,
		log:        logger.Stage("pdf"),
	}
}

// TileFile returns the file name a tile renders to.
func (c *Canvas) TileFile(tile layout.Tile) string {
	if !c.multiTile {
		return c.outputPath
	}
	ext := filepath.Ext(c.outputPath)
	base := strings.TrimSuffix(c.outputPath, ext)
	return fmt.Sprintf("%s_r%dc%d%s", base, tile.Row, tile.Col, ext)
}

// StartTile opens the PDF document for one tile. Safe to call from
// multiple goroutines; every tile owns its own writer.
func (c *Canvas) StartTile(tile layout.Tile) (render.Page, error) {
	name := c.TileFile(tile)
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	doc, err := document.CreateSinglePage(name,
		&pdf.Rectangle{URx: tile.Width(), URy: tile.Height()},
		pdf.V1_7, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}

	c.log.Debug("started sheet",
		zap.String("file", name),
		zap.Float64("width_pts", tile.Width()),
		zap.Float64("height_pts", tile.Height()))

	return &pdfPage{doc: doc, name: name}, nil
}

type pdfPage struct {
	doc  *document.Page
	name string
}

func (p *pdfPage) FillRect(x, y, w, h float64, col style.Color) error {
	p.doc.SetFillColor(pdfcolor.DeviceRGB{col.R, col.G, col.B})
	p.doc.Rectangle(x, y, w, h)
	p.doc.Fill()
	return p.doc.Err
}

func (p *pdfPage) FillRings(rings []orb.Ring, col style.Color) error {
	p.doc.SetFillColor(pdfcolor.DeviceRGB{col.R, col.G, col.B})
	for _, ring := range rings {
		if len(ring) < 3 {
			continue
		}
		pts := ring
		if pts[0] == pts[len(pts)-1] {
			pts = pts[:len(pts)-1]
		}
		p.doc.MoveTo(pts[0][0], pts[0][1])
		for _, pt := range pts[1:] {
			p.doc.LineTo(pt[0], pt[1])
		}
		p.doc.ClosePath()
	}
	// Even-odd keeps holes unpainted in compound paths.
	p.doc.FillEvenOdd()
	return p.doc.Err
}

func (p *pdfPage) StrokeLine(ls orb.LineString, stroke render.StrokeStyle) error {
	if len(ls) < 2 {
		return nil
	}

	p.doc.SetStrokeColor(pdfcolor.DeviceRGB{stroke.Color.R, stroke.Color.G, stroke.Color.B})
	p.doc.SetLineWidth(stroke.WidthPts)
	if stroke.RoundCap {
		p.doc.SetLineCap(graphics.LineCapRound)
		p.doc.SetLineJoin(graphics.LineJoinRound)
	} else {
		p.doc.SetLineCap(graphics.LineCapButt)
		p.doc.SetLineJoin(graphics.LineJoinMiter)
	}

	p.doc.MoveTo(ls[0][0], ls[0][1])
	for _, pt := range ls[1:] {
		p.doc.LineTo(pt[0], pt[1])
	}
	p.doc.Stroke()
	return p.doc.Err
}

func (p *pdfPage) Close() error {
	if err := p.doc.Close(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", p.name, err)
	}
	return nil
}
