package poiload

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultBatchSize = 10000

// BulkLoad copies parsed rows into the poi table in batches. Returns the
// total rows loaded.
func BulkLoad(ctx context.Context, pool Pool, rows [][]any, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	log := zap.L().With(
		zap.String("component", "poiload"),
		zap.Int("total_rows", len(rows)),
	)

	var total int64
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		n, err := pool.CopyFrom(ctx, pgx.Identifier{"poi"}, columns, pgx.CopyFromRows(rows[i:end]))
		if err != nil {
			return total, eris.Wrapf(err, "poiload: COPY batch at row %d", i)
		}
		total += n
		log.Debug("batch loaded", zap.Int64("rows", n), zap.Int("offset", i))
	}

	log.Info("poi load complete", zap.Int64("rows", total))
	return total, nil
}

// Load parses a shapefile and copies its features into the poi table.
func Load(ctx context.Context, pool Pool, shpPath string, batchSize int) (int64, error) {
	if err := Migrate(ctx, pool); err != nil {
		return 0, err
	}
	rows, err := ParseShapefile(shpPath)
	if err != nil {
		return 0, err
	}
	return BulkLoad(ctx, pool, rows, batchSize)
}
