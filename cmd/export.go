package cmd

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2pdf-go/internal/build"
	"github.com/wegman-software/osm2pdf-go/internal/classify"
	"github.com/wegman-software/osm2pdf-go/internal/export"
	"github.com/wegman-software/osm2pdf-go/internal/logger"
	"github.com/wegman-software/osm2pdf-go/internal/pbf"
)

var exportCmd = &cobra.Command{
	Use:   "export <input.osm.pbf>",
	Short: "Load classified features into PostGIS",
	Long: `Read an extract, assemble and classify its features, and load the
result into a PostGIS table in WGS84. Geometry is exported as drawn
from the source, before projection and clipping, so the table can be
inspected with standard GIS tooling.`,
	Args: cobra.ExactArgs(1),
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Float64Var(&cfg.StitchToleranceDeg, "stitch-tolerance", cfg.StitchToleranceDeg, "Ring stitching tolerance in degrees")
}

func runExport(cmd *cobra.Command, args []string) {
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
	for _, rec := range res.Features {
		classify.Classify(rec)
	}

	exporter, err := export.NewExporter(cfg)
	if err != nil {
		exitWithError("failed to connect to database", err)
	}
	defer exporter.Close()

	rows, err := exporter.Run(cmd.Context(), res.Features)
	if err != nil {
		exitWithError("export failed", err)
	}

	log.Info("export complete",
		zap.Int64("rows", rows),
		zap.Int("skipped", res.Skipped),
		zap.String("database", cfg.DBName))
}
