package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/scantrail/scantrail/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrCodeNotFound signals that no QR code matched the query. Owner
	// mismatches collapse to the same error so callers cannot probe foreign
	// rows.
	ErrCodeNotFound = errors.New("qr code not found")
	// ErrTokenTaken signals a unique violation on the public token.
	ErrTokenTaken = errors.New("token already taken")
)

const uniqueViolationCode = "23505"

// QRCodeRepository defines the data access contract for the code registry.
type QRCodeRepository interface {
	Create(ctx context.Context, code *model.QRCode) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*model.QRCode, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.QRCode, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, fields map[string]interface{}) (*model.QRCode, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	GetActiveByToken(ctx context.Context, token string) (*model.QRCode, error)
	IncrementScanCount(ctx context.Context, id uuid.UUID) error
	ListTokens(ctx context.Context) ([]string, error)
}

type qrCodeRepository struct {
	db *gorm.DB
}

// NewQRCodeRepository returns a GORM-backed QRCodeRepository.
func NewQRCodeRepository(db *gorm.DB) QRCodeRepository {
	return &qrCodeRepository{db: db}
}

func (r *qrCodeRepository) Create(ctx context.Context, code *model.QRCode) error {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrTokenTaken
		}
		return err
	}
	return nil
}

func (r *qrCodeRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*model.QRCode, error) {
	var code model.QRCode
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &code, nil
}

func (r *qrCodeRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.QRCode, error) {
	var result []model.QRCode
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *qrCodeRepository) Update(ctx context.Context, ownerID, id uuid.UUID, fields map[string]interface{}) (*model.QRCode, error) {
	result := r.db.WithContext(ctx).
		Model(&model.QRCode{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(fields)

	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCodeNotFound
	}

	var code model.QRCode
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *qrCodeRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&model.QRCode{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCodeNotFound
	}
	return nil
}

func (r *qrCodeRepository) GetActiveByToken(ctx context.Context, token string) (*model.QRCode, error) {
	var code model.QRCode
	err := r.db.WithContext(ctx).
		Where("token = ? AND is_active = ?", token, true).
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &code, nil
}

// IncrementScanCount bumps the counter with a single UPDATE so concurrent
// scans of the same token never lose increments.
func (r *qrCodeRepository) IncrementScanCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.QRCode{}).
		Where("id = ?", id).
		UpdateColumn("scan_count", gorm.Expr("scan_count + 1")).Error
}

func (r *qrCodeRepository) ListTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).
		Model(&model.QRCode{}).
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
