package cmd

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2pdf-go/internal/build"
	"github.com/wegman-software/osm2pdf-go/internal/classify"
	"github.com/wegman-software/osm2pdf-go/internal/layout"
	"github.com/wegman-software/osm2pdf-go/internal/logger"
	"github.com/wegman-software/osm2pdf-go/internal/pbf"
	"github.com/wegman-software/osm2pdf-go/internal/proj"
)

var statsCmd = &cobra.Command{
	Use:   "stats <input.osm.pbf>",
	Short: "Report extract contents and the resulting page dimensions",
	Long: `Read and classify an extract without rendering anything, then report
feature counts per category and the physical dimensions the printed
page would have.`,
	Args: cobra.ExactArgs(1),
	Run:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Float64Var(&cfg.ScaleDenominator, "scale", cfg.ScaleDenominator, "Scale denominator (1 = full size, 1000 = 1:1000)")
	statsCmd.Flags().Float64Var(&cfg.MaxSheetPts, "max-sheet", cfg.MaxSheetPts, "Largest sheet edge in points before tiling")
}

func runStats(cmd *cobra.Command, args []string) {
	cfg.InputFile = args[0]
	parseBBoxFlag()
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	src, err := pbf.NewSource(cfg)
	if err != nil {
		exitWithError("failed to open input", err)
	}
	defer src.Close()

	ex, err := src.Read(cmd.Context())
	if err != nil {
		exitWithError("failed to read extract", err)
	}

	assembler := build.NewAssembler(build.Options{
		StitchToleranceDeg: cfg.StitchToleranceDeg,
		BoundaryRelationID: cfg.BoundaryRelationID,
	})
	res, err := assembler.Assemble(build.Input{
		Ways:      ex.Ways,
		Relations: ex.Relations,
		Nodes:     ex.Nodes,
	})
	if err != nil {
		exitWithError("failed to assemble geometry", err)
	}

	byCategory := make(map[string]int)
	for _, rec := range res.Features {
		classify.Classify(rec)
		byCategory[rec.Category.String()]++
	}

	projector := proj.NewProjector(cfg.BBox, cfg.ScaleDenominator)
	bound, err := projector.Bound(cfg.BBox)
	if err != nil {
		exitWithError("failed to project bounding box", err)
	}
	page, err := layout.Compute(bound, projector.PointsPerMeter(), layout.Options{
		MaxSheetPts:    cfg.MaxSheetPts,
		TileOverlapPts: cfg.TileOverlapPts,
	})
	if err != nil {
		exitWithError("failed to compute page layout", err)
	}

	fields := []zap.Field{
		zap.Int64("nodes_indexed", ex.Stats.NodesIndexed),
		zap.Int64("ways_kept", ex.Stats.WaysKept),
		zap.Int64("relations_kept", ex.Stats.RelationsKept),
		zap.Int("features", len(res.Features)),
		zap.Int("skipped", res.Skipped),
		zap.Bool("boundary_found", res.Boundary != nil),
		zap.Float64("page_width_m", page.WidthM),
		zap.Float64("page_height_m", page.HeightM),
		zap.Int("sheets", len(page.Tiles)),
	}
	for cat, n := range byCategory {
		fields = append(fields, zap.Int("category_"+cat, n))
	}
	log.Info("extract statistics", fields...)
}
