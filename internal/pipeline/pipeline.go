// Package pipeline drives a full map generation run: read, assemble,
// classify, project, clip, lay out and render.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2pdf-go/internal/build"
	"github.com/wegman-software/osm2pdf-go/internal/classify"
	"github.com/wegman-software/osm2pdf-go/internal/clip"
	"github.com/wegman-software/osm2pdf-go/internal/config"
	"github.com/wegman-software/osm2pdf-go/internal/feature"
	"github.com/wegman-software/osm2pdf-go/internal/layout"
	"github.com/wegman-software/osm2pdf-go/internal/logger"
	"github.com/wegman-software/osm2pdf-go/internal/metrics"
	"github.com/wegman-software/osm2pdf-go/internal/pbf"
	"github.com/wegman-software/osm2pdf-go/internal/pdfcanvas"
	"github.com/wegman-software/osm2pdf-go/internal/proj"
	"github.com/wegman-software/osm2pdf-go/internal/render"
	"github.com/wegman-software/osm2pdf-go/internal/style"
)

// Source supplies the raw primitives for a run. The PBF reader is the
// production implementation; tests inject their own.
type Source interface {
	Read(ctx context.Context) (build.Input, error)
	Close() error
}

// PBFSource adapts the two-pass PBF reader to the Source interface.
type PBFSource struct {
	src *pbf.Source
}

// NewPBFSource opens the configured input file as a pipeline source.
func NewPBFSource(cfg *config.Config) (*PBFSource, error) {
	src, err := pbf.NewSource(cfg)
	if err != nil {
		return nil, err
	}
	return &PBFSource{src: src}, nil
}

func (s *PBFSource) Read(ctx context.Context) (build.Input, error) {
	ex, err := s.src.Read(ctx)
	if err != nil {
		return build.Input{}, err
	}
	return build.Input{Ways: ex.Ways, Relations: ex.Relations, Nodes: ex.Nodes}, nil
}

func (s *PBFSource) Close() error { return s.src.Close() }

// Result summarizes one run.
type Result struct {
	Page     *layout.Page
	Features int
	Skipped  int
	Duration time.Duration
}

// Pipeline is one configured generation run.
type Pipeline struct {
	cfg    *config.Config
	sheet  *style.Sheet
	source Source
	canvas render.Canvas
	log    *zap.Logger
}

// Option adjusts pipeline construction.
type Option func(*Pipeline)

// WithSource replaces the PBF reader, for tests and alternative inputs.
func WithSource(src Source) Option {
	return func(p *Pipeline) { p.source = src }
}

// WithCanvas replaces the PDF canvas.
func WithCanvas(canvas render.Canvas) Option {
	return func(p *Pipeline) { p.canvas = canvas }
}

// New creates a pipeline for the configuration and style sheet.
func New(cfg *config.Config, sheet *style.Sheet, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:   cfg,
		sheet: sheet,
		log:   logger.Stage("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.source == nil {
		src, err := NewPBFSource(cfg)
		if err != nil {
			return nil, err
		}
		p.source = src
	}
	return p, nil
}

// Run executes the full pipeline and blocks until every sheet is
// written.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	defer p.source.Close()

	if p.cfg.MetricsInterval > 0 {
		collector := metrics.NewCollector(p.cfg.MetricsInterval, p.log)
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go collector.Start(metricsCtx)
	}

	in, err := p.source.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	assembler := build.NewAssembler(build.Options{
		StitchToleranceDeg: p.cfg.StitchToleranceDeg,
		BoundaryRelationID: p.cfg.BoundaryRelationID,
	})
	assembled, err := assembler.Assemble(in)
	if err != nil {
		return nil, fmt.Errorf("assembling geometry: %w", err)
	}
	skipped := assembled.Skipped

	for _, rec := range assembled.Features {
		classify.Classify(rec)
	}

	projector := proj.NewProjector(p.cfg.BBox, p.cfg.ScaleDenominator)
	pageBound, err := projector.Bound(p.cfg.BBox)
	if err != nil {
		return nil, fmt.Errorf("projecting page bound: %w", err)
	}

	region := clip.Region{Bound: pageBound}
	var land orb.MultiPolygon
	if assembled.Boundary != nil {
		g, err := projector.Geometry(assembled.Boundary)
		if err != nil {
			return nil, fmt.Errorf("projecting boundary: %w", err)
		}
		land = g.(orb.MultiPolygon)
		region.Boundary = land
	}

	clipper := clip.NewClipper(region, p.cfg.SliverAreaPts2)
	features := make([]*feature.Record, 0, len(assembled.Features))
	for _, rec := range assembled.Features {
		g, err := projector.Geometry(rec.Geometry)
		if err != nil {
			p.log.Warn("skipping unprojectable feature",
				zap.Int64("osm_id", rec.OSMID), zap.Error(err))
			skipped++
			continue
		}
		g, err = clipper.Clip(g)
		if err != nil {
			p.log.Warn("skipping unclippable feature",
				zap.Int64("osm_id", rec.OSMID), zap.Error(err))
			skipped++
			continue
		}
		if g == nil {
			continue
		}
		rec.Geometry = g
		features = append(features, rec)
	}

	page, err := layout.Compute(pageBound, projector.PointsPerMeter(), layout.Options{
		MaxSheetPts:    p.cfg.MaxSheetPts,
		TileOverlapPts: p.cfg.TileOverlapPts,
	})
	if err != nil {
		return nil, err
	}

	canvas := p.canvas
	if canvas == nil {
		canvas = pdfcanvas.New(p.cfg.OutputFile, len(page.Tiles) > 1)
	}

	renderer := render.New(p.sheet, projector.PointsPerMeter(), p.cfg.Workers)
	if err := renderer.Render(ctx, canvas, page, land, features); err != nil {
		return nil, fmt.Errorf("rendering: %w", err)
	}

	res := &Result{
		Page:     page,
		Features: len(features),
		Skipped:  skipped,
		Duration: time.Since(start),
	}
	p.log.Info("run complete",
		zap.Int("features", res.Features),
		zap.Int("skipped", res.Skipped),
		zap.Int("sheets", len(page.Tiles)),
		zap.Duration("duration", res.Duration.Round(time.Millisecond)))

	return res, nil
}
