package cmd

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2pdf-go/internal/config"
	"github.com/wegman-software/osm2pdf-go/internal/logger"
)

var (
	cfg             = config.DefaultConfig()
	bboxFlag        string
	verbose         bool
	logFile         string
	metricsInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "osm2pdf-go",
	Short: "Print-accurate vector maps from OSM extracts",
	Long: `osm2pdf-go renders OpenStreetMap extracts into dimensionally accurate
vector PDF sheets. At the default 1:1 scale one meter of city becomes
one meter of paper.

Features:
  - Two-pass PBF reading with a memory-mapped node index
  - Multipolygon assembly with gap-tolerant ring stitching
  - Arbitrary boundary clipping from an administrative relation
  - Automatic tiling of pages beyond the PDF sheet size limit
  - Optional PostGIS export of the classified feature set`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = metricsInterval

		if logFile != "" {
			logger.InitWithFile(verbose, logFile)
		} else {
			logger.Init(verbose)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&bboxFlag, "bbox", "b", "", "Bounding box as min_lon,min_lat,max_lon,max_lat (required)")
	rootCmd.PersistentFlags().Float64Var(&cfg.PaddingDeg, "padding", cfg.PaddingDeg, "Extra degrees read around the bounding box")
	rootCmd.PersistentFlags().Int64Var(&cfg.BoundaryRelationID, "boundary-relation", 0, "Relation ID whose multipolygon clips the map")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel workers")

	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 30*time.Second, "Interval for resource usage logging (e.g., 10s, 1m)")

	rootCmd.PersistentFlags().StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	rootCmd.PersistentFlags().IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBName, "db-name", "d", cfg.DBName, "PostgreSQL database name")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBUser, "db-user", "U", cfg.DBUser, "PostgreSQL user")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBPassword, "db-password", "W", cfg.DBPassword, "PostgreSQL password")
}

// parseBBoxFlag resolves the required bbox flag into the configuration.
func parseBBoxFlag() {
	if bboxFlag == "" {
		exitWithError("a bounding box is required (--bbox min_lon,min_lat,max_lon,max_lat)", nil)
	}
	bbox, err := config.ParseBBox(bboxFlag)
	if err != nil {
		exitWithError("invalid bounding box", err)
	}
	cfg.BBox = bbox
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}
