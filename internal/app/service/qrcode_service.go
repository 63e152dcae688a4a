package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/scantrail/scantrail/internal/app/model"
	"github.com/scantrail/scantrail/internal/app/repository"
	"go.uber.org/zap"
)

const maxTokenAttempts = 5

// TokenGenerator produces fresh public tokens for the registry.
type TokenGenerator func() string

// QRCodeService defines behaviour-level operations on the code registry.
// Every method is scoped to the owner resolved by the auth boundary.
type QRCodeService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateQRCodeInput) (*model.QRCode, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.QRCode, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]model.QRCode, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateQRCodeInput) (*model.QRCode, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Analytics(ctx context.Context, ownerID, id uuid.UUID) ([]model.ScanEvent, error)
	DailyStats(ctx context.Context, ownerID, id uuid.UUID, days int) (*ScanStats, error)
}

// ScanStats bundles the aggregate view of a code's scan ledger.
type ScanStats struct {
	Total int64                       `json:"total"`
	Daily []repository.DailyScanCount `json:"daily"`
}

// Deps groups the explicit dependencies of the QR code service. Cache and
// Filter may be nil; the service then skips invalidation and registration.
type Deps struct {
	Logger   *zap.Logger
	Codes    repository.QRCodeRepository
	Scans    repository.ScanEventRepository
	Stats    repository.ScanStatsRepository
	Cache    ResolveCache
	Filter   *TokenFilter
	NewToken TokenGenerator
}

type qrCodeService struct {
	logger   *zap.Logger
	codes    repository.QRCodeRepository
	scans    repository.ScanEventRepository
	stats    repository.ScanStatsRepository
	cache    ResolveCache
	filter   *TokenFilter
	newToken TokenGenerator
}

// NewQRCodeService returns a service implementation backed by the given
// repositories.
func NewQRCodeService(deps Deps) QRCodeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &qrCodeService{
		logger:   logger,
		codes:    deps.Codes,
		scans:    deps.Scans,
		stats:    deps.Stats,
		cache:    deps.Cache,
		filter:   deps.Filter,
		newToken: deps.NewToken,
	}
}

// CreateQRCodeInput captures data required to create a code entry. A nil
// Styling means the documented default.
type CreateQRCodeInput struct {
	Name        string
	Description string
	RedirectURL string
	Styling     *model.StylingConfig
	ImageURL    string
}

// UpdateQRCodeInput captures fields that can be changed on an existing entry.
type UpdateQRCodeInput struct {
	Name        *string
	Description *string
	RedirectURL *string
	Styling     *model.StylingConfig
	ImageURL    *string
	IsActive    *bool
}

func validateRedirectURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return &model.ValidationError{Field: "redirect_url", Reason: "must be an absolute URL"}
	}
	return nil
}

func (s *qrCodeService) Create(ctx context.Context, ownerID uuid.UUID, input CreateQRCodeInput) (*model.QRCode, error) {
	if input.Name == "" {
		return nil, &model.ValidationError{Field: "name", Reason: "is required"}
	}
	if input.RedirectURL == "" {
		return nil, &model.ValidationError{Field: "redirect_url", Reason: "is required"}
	}
	if err := validateRedirectURL(input.RedirectURL); err != nil {
		return nil, err
	}

	styling := model.DefaultStyling()
	if input.Styling != nil {
		styling = *input.Styling
	}
	if err := styling.Validate(); err != nil {
		return nil, err
	}

	code := &model.QRCode{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        input.Name,
		Description: input.Description,
		RedirectURL: input.RedirectURL,
		Styling:     styling,
		ImageURL:    input.ImageURL,
		IsActive:    true,
		ScanCount:   0,
	}

	// Tokens come from an 8-char nanoid; collisions are rare but the unique
	// index is the source of truth, so regenerate and retry on conflict.
	var err error
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		code.Token = s.newToken()
		err = s.codes.Create(ctx, code)
		if err == nil {
			if s.filter != nil {
				s.filter.Add(code.Token)
			}
			return code, nil
		}
		if err != repository.ErrTokenTaken {
			return nil, fmt.Errorf("create qr code: %w", err)
		}
		s.logger.Warn("token collision, regenerating", zap.String("token", code.Token))
	}
	return nil, fmt.Errorf("create qr code: %w", err)
}

func (s *qrCodeService) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.QRCode, error) {
	code, err := s.codes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get qr code: %w", err)
	}
	return code, nil
}

func (s *qrCodeService) List(ctx context.Context, ownerID uuid.UUID) ([]model.QRCode, error) {
	codes, err := s.codes.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list qr codes: %w", err)
	}
	return codes, nil
}

func (s *qrCodeService) Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateQRCodeInput) (*model.QRCode, error) {
	fields := map[string]interface{}{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, &model.ValidationError{Field: "name", Reason: "must not be empty"}
		}
		fields["name"] = *input.Name
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.RedirectURL != nil {
		if err := validateRedirectURL(*input.RedirectURL); err != nil {
			return nil, err
		}
		fields["redirect_url"] = *input.RedirectURL
	}
	if input.Styling != nil {
		if err := input.Styling.Validate(); err != nil {
			return nil, err
		}
		fields["styling"] = *input.Styling
	}
	if input.ImageURL != nil {
		fields["image_url"] = *input.ImageURL
	}
	if input.IsActive != nil {
		fields["is_active"] = *input.IsActive
	}
	if len(fields) == 0 {
		return s.Get(ctx, ownerID, id)
	}

	code, err := s.codes.Update(ctx, ownerID, id, fields)
	if err != nil {
		return nil, fmt.Errorf("update qr code: %w", err)
	}

	s.invalidate(ctx, code.Token)
	return code, nil
}

func (s *qrCodeService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	// Load first so the cached resolution can be dropped alongside the row.
	code, err := s.codes.GetByID(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete qr code: %w", err)
	}

	if err := s.codes.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete qr code: %w", err)
	}

	s.invalidate(ctx, code.Token)
	return nil
}

func (s *qrCodeService) Analytics(ctx context.Context, ownerID, id uuid.UUID) ([]model.ScanEvent, error) {
	// Ownership check before touching the ledger.
	if _, err := s.codes.GetByID(ctx, ownerID, id); err != nil {
		return nil, fmt.Errorf("load qr code: %w", err)
	}

	events, err := s.scans.ListByQRCode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list scan events: %w", err)
	}
	return events, nil
}

func (s *qrCodeService) DailyStats(ctx context.Context, ownerID, id uuid.UUID, days int) (*ScanStats, error) {
	if _, err := s.codes.GetByID(ctx, ownerID, id); err != nil {
		return nil, fmt.Errorf("load qr code: %w", err)
	}

	total, err := s.stats.TotalCount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count scan events: %w", err)
	}

	daily, err := s.stats.DailyCounts(ctx, id, days)
	if err != nil {
		return nil, fmt.Errorf("aggregate scan events: %w", err)
	}

	return &ScanStats{Total: total, Daily: daily}, nil
}

func (s *qrCodeService) invalidate(ctx context.Context, token string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, token); err != nil {
		s.logger.Warn("failed to invalidate resolve cache", zap.String("token", token), zap.Error(err))
	}
}
