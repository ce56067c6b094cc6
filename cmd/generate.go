package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2pdf-go/internal/logger"
	"github.com/wegman-software/osm2pdf-go/internal/pipeline"
	"github.com/wegman-software/osm2pdf-go/internal/style"
)

var generateCmd = &cobra.Command{
	Use:   "generate <input.osm.pbf>",
	Short: "Render an extract into PDF map sheets",
	Long: `Read an OSM PBF extract and render everything inside the bounding box
into one or more vector PDF sheets.

At the default scale of 1:1 the sheets are true to physical size; pages
larger than the PDF sheet limit are split into an overlapping tile grid
so they can be printed and glued together.`,
	Args: cobra.ExactArgs(1),
	Run:  runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "Output PDF path (tiled sheets get a _rNcM suffix)")
	generateCmd.Flags().StringVar(&cfg.StyleFile, "style", "", "Style YAML file (empty = built-in palette)")
	generateCmd.Flags().Float64Var(&cfg.ScaleDenominator, "scale", cfg.ScaleDenominator, "Scale denominator (1 = full size, 1000 = 1:1000)")
	generateCmd.Flags().Float64Var(&cfg.StitchToleranceDeg, "stitch-tolerance", cfg.StitchToleranceDeg, "Max endpoint gap (degrees) closed when stitching relation rings")
	generateCmd.Flags().Float64Var(&cfg.SliverAreaPts2, "sliver-area", cfg.SliverAreaPts2, "Drop clipped rings below this area (square points)")
	generateCmd.Flags().Float64Var(&cfg.MaxSheetPts, "max-sheet", cfg.MaxSheetPts, "Largest sheet edge in points before tiling")
	generateCmd.Flags().Float64Var(&cfg.TileOverlapPts, "tile-overlap", cfg.TileOverlapPts, "Overlap between adjacent sheets in points")
}

func runGenerate(cmd *cobra.Command, args []string) {
	cfg.InputFile = args[0]
	parseBBoxFlag()
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	sheet, err := loadStyle()
	if err != nil {
		exitWithError("failed to load style", err)
	}

	log.Info("starting map generation",
		zap.String("input", cfg.InputFile),
		zap.String("output", cfg.OutputFile),
		zap.Float64("scale", cfg.ScaleDenominator),
		zap.Int("workers", cfg.Workers),
	)

	p, err := pipeline.New(cfg, sheet)
	if err != nil {
		exitWithError("failed to set up pipeline", err)
	}

	res, err := p.Run(cmd.Context())
	if err != nil {
		exitWithError("generation failed", err)
	}

	log.Info("map generation complete",
		zap.Duration("duration", res.Duration.Round(time.Second)),
		zap.Int("features", res.Features),
		zap.Int("skipped", res.Skipped),
		zap.Float64("page_width_m", res.Page.WidthM),
		zap.Float64("page_height_m", res.Page.HeightM),
		zap.Int("sheets", len(res.Page.Tiles)),
	)
}

func loadStyle() (*style.Sheet, error) {
	if cfg.StyleFile == "" {
		return style.Default(), nil
	}
	return style.Load(cfg.StyleFile)
}
