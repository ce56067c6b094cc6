// Package export writes classified features into a PostGIS table so the
// same extract can be inspected with desktop GIS tools alongside the
// printed sheets.
package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2pdf-go/internal/config"
	"github.com/wegman-software/osm2pdf-go/internal/feature"
	"github.com/wegman-software/osm2pdf-go/internal/logger"
)

const tableName = "map_features"

// Exporter loads feature records into PostGIS.
type Exporter struct {
	cfg  *config.Config
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewExporter connects to the database from the run configuration.
func NewExporter(cfg *config.Config) (*Exporter, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &Exporter{cfg: cfg, pool: pool, log: logger.Stage("export")}, nil
}

// Close releases the connection pool.
func (x *Exporter) Close() {
	x.pool.Close()
}

// Run replaces the feature table's content with the given records and
// returns the number of rows written. Geometry is stored as WGS84.
func (x *Exporter) Run(ctx context.Context, feats []*feature.Record) (int64, error) {
	conn, err := x.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS postgis"); err != nil {
		return 0, fmt.Errorf("failed to create postgis extension: %w", err)
	}

	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			osm_id BIGINT,
			osm_type CHAR(1),
			category TEXT,
			subtype TEXT,
			z_order INTEGER,
			tags JSONB,
			geom GEOMETRY
		)`, tableName)
	if _, err := conn.Exec(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("failed to create table: %w", err)
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("TRUNCATE %s", tableName)); err != nil {
		return 0, fmt.Errorf("failed to truncate table: %w", err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	// COPY into a bytea staging table, then convert the EWKB in SQL.
	tempSQL := `
		CREATE TEMP TABLE map_features_tmp (
			osm_id BIGINT,
			osm_type CHAR(1),
			category TEXT,
			subtype TEXT,
			z_order INTEGER,
			tags TEXT,
			geom_ewkb BYTEA
		) ON COMMIT DROP`
	if _, err := tx.Exec(ctx, tempSQL); err != nil {
		return 0, fmt.Errorf("failed to create staging table: %w", err)
	}

	enc := NewEncoder(SRID4326)
	count, err := tx.CopyFrom(ctx,
		pgx.Identifier{"map_features_tmp"},
		[]string{"osm_id", "osm_type", "category", "subtype", "z_order", "tags", "geom_ewkb"},
		pgx.CopyFromSlice(len(feats), func(i int) ([]any, error) {
			rec := feats[i]
			ewkb, err := enc.Encode(rec.Geometry)
			if err != nil {
				return nil, err
			}
			tags, err := json.Marshal(rec.Tags)
			if err != nil {
				return nil, err
			}
			return []any{
				rec.OSMID,
				osmTypeCode(rec),
				rec.Category.String(),
				rec.Subtype,
				rec.ZOrder,
				string(tags),
				ewkb,
			}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("COPY failed: %w", err)
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (osm_id, osm_type, category, subtype, z_order, tags, geom)
		SELECT osm_id, osm_type, category, subtype, z_order, tags::jsonb,
		       ST_GeomFromEWKB(geom_ewkb)
		FROM map_features_tmp`, tableName)
	if _, err := tx.Exec(ctx, insertSQL); err != nil {
		return 0, fmt.Errorf("failed to convert staged rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	indexSQL := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_geom_idx ON %s USING GIST (geom)",
		tableName, tableName)
	if _, err := conn.Exec(ctx, indexSQL); err != nil {
		return 0, fmt.Errorf("failed to create spatial index: %w", err)
	}

	x.log.Info("exported features to PostGIS",
		zap.Int64("rows", count),
		zap.String("table", tableName))

	return count, nil
}

func osmTypeCode(rec *feature.Record) string {
	switch rec.OSMType {
	case "node":
		return "N"
	case "relation":
		return "R"
	default:
		return "W"
	}
}
