package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/scantrail/scantrail/internal/app/model"
	"gorm.io/gorm"
)

// ScanEventRepository defines the data access contract for the scan ledger.
// The ledger is append-only: there is deliberately no update or delete.
type ScanEventRepository interface {
	Create(ctx context.Context, event *model.ScanEvent) error
	ListByQRCode(ctx context.Context, qrCodeID uuid.UUID) ([]model.ScanEvent, error)
}

type scanEventRepository struct {
	db *gorm.DB
}

// NewScanEventRepository returns a GORM-backed ScanEventRepository.
func NewScanEventRepository(db *gorm.DB) ScanEventRepository {
	return &scanEventRepository{db: db}
}

func (r *scanEventRepository) Create(ctx context.Context, event *model.ScanEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *scanEventRepository) ListByQRCode(ctx context.Context, qrCodeID uuid.UUID) ([]model.ScanEvent, error) {
	var result []model.ScanEvent
	err := r.db.WithContext(ctx).
		Where("qr_code_id = ?", qrCodeID).
		Order("scanned_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}
