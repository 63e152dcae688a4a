package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DailyScanCount is one bucket of the per-day scan aggregate.
type DailyScanCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// ScanStatsRepository answers aggregate questions about the scan ledger.
// It runs raw SQL on the pgx pool instead of going through the ORM.
type ScanStatsRepository interface {
	TotalCount(ctx context.Context, qrCodeID uuid.UUID) (int64, error)
	DailyCounts(ctx context.Context, qrCodeID uuid.UUID, days int) ([]DailyScanCount, error)
}

type scanStatsRepository struct {
	pool *pgxpool.Pool
}

// NewScanStatsRepository returns a pgx-backed ScanStatsRepository.
func NewScanStatsRepository(pool *pgxpool.Pool) ScanStatsRepository {
	return &scanStatsRepository{pool: pool}
}

func (r *scanStatsRepository) TotalCount(ctx context.Context, qrCodeID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scan_events WHERE qr_code_id = $1`,
		qrCodeID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *scanStatsRepository) DailyCounts(ctx context.Context, qrCodeID uuid.UUID, days int) ([]DailyScanCount, error) {
	if days <= 0 {
		days = 30
	}

	rows, err := r.pool.Query(ctx,
		`SELECT date_trunc('day', scanned_at) AS day, COUNT(*)
		 FROM scan_events
		 WHERE qr_code_id = $1 AND scanned_at >= now() - ($2 * interval '1 day')
		 GROUP BY day
		 ORDER BY day`,
		qrCodeID, days,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DailyScanCount
	for rows.Next() {
		var bucket DailyScanCount
		if err := rows.Scan(&bucket.Day, &bucket.Count); err != nil {
			return nil, err
		}
		result = append(result, bucket)
	}
	return result, rows.Err()
}
