package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atashie/locationAnalyzer/internal/poiload"
)

var (
	poiloadShapefile string
	poiloadBatchSize int
)

var poiloadCmd = &cobra.Command{
	Use:   "poiload",
	Short: "Load an OSM POI shapefile into the PostGIS feature store",
	Long:  "Parses a geofabrik-style POI shapefile and bulk-copies the rows into the poi table, creating the schema if needed. Requires features.database_url in config.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if poiloadShapefile == "" {
			return eris.New("--shapefile is required")
		}
		if cfg.Features.DatabaseURL == "" {
			return eris.New("features.database_url must be configured")
		}

		pool, err := pgxpool.New(cmd.Context(), cfg.Features.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "connect postgis")
		}
		defer pool.Close()
		if err := pool.Ping(cmd.Context()); err != nil {
			return eris.Wrap(err, "ping postgis")
		}

		n, err := poiload.Load(cmd.Context(), pool, poiloadShapefile, poiloadBatchSize)
		if err != nil {
			return err
		}
		zap.L().Info("shapefile loaded", zap.Int64("rows", n), zap.String("path", poiloadShapefile))
		return nil
	},
}

func init() {
	poiloadCmd.Flags().StringVar(&poiloadShapefile, "shapefile", "", "path to the POI shapefile (required)")
	poiloadCmd.Flags().IntVar(&poiloadBatchSize, "batch-size", 10000, "rows per COPY batch")
	rootCmd.AddCommand(poiloadCmd)
}
