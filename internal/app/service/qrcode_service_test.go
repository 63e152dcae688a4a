package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
	"github.com/scantrail/scantrail/internal/app/model"
	"github.com/scantrail/scantrail/internal/app/repository"
)

type mockQRCodeRepository struct {
	createFn    func(ctx context.Context, code *model.QRCode) error
	getFn       func(ctx context.Context, ownerID, id uuid.UUID) (*model.QRCode, error)
	listFn      func(ctx context.Context, ownerID uuid.UUID) ([]model.QRCode, error)
	updateFn    func(ctx context.Context, ownerID, id uuid.UUID, fields map[string]interface{}) (*model.QRCode, error)
	deleteFn    func(ctx context.Context, ownerID, id uuid.UUID) error
	getActiveFn func(ctx context.Context, token string) (*model.QRCode, error)
	incrementFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockQRCodeRepository) Create(ctx context.Context, code *model.QRCode) error {
	if m.createFn != nil {
		return m.createFn(ctx, code)
	}
	return nil
}

func (m *mockQRCodeRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*model.QRCode, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ownerID, id)
	}
	return nil, repository.ErrCodeNotFound
}

func (m *mockQRCodeRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.QRCode, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockQRCodeRepository) Update(ctx context.Context, ownerID, id uuid.UUID, fields map[string]interface{}) (*model.QRCode, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, ownerID, id, fields)
	}
	return nil, repository.ErrCodeNotFound
}

func (m *mockQRCodeRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, id)
	}
	return repository.ErrCodeNotFound
}

func (m *mockQRCodeRepository) GetActiveByToken(ctx context.Context, token string) (*model.QRCode, error) {
	if m.getActiveFn != nil {
		return m.getActiveFn(ctx, token)
	}
	return nil, repository.ErrCodeNotFound
}

func (m *mockQRCodeRepository) IncrementScanCount(ctx context.Context, id uuid.UUID) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, id)
	}
	return nil
}

func (m *mockQRCodeRepository) ListTokens(ctx context.Context) ([]string, error) {
	return nil, nil
}

type mockScanEventRepository struct {
	createFn func(ctx context.Context, event *model.ScanEvent) error
	listFn   func(ctx context.Context, qrCodeID uuid.UUID) ([]model.ScanEvent, error)
}

func (m *mockScanEventRepository) Create(ctx context.Context, event *model.ScanEvent) error {
	if m.createFn != nil {
		return m.createFn(ctx, event)
	}
	return nil
}

func (m *mockScanEventRepository) ListByQRCode(ctx context.Context, qrCodeID uuid.UUID) ([]model.ScanEvent, error) {
	if m.listFn != nil {
		return m.listFn(ctx, qrCodeID)
	}
	return nil, nil
}

type mockResolveCache struct {
	invalidated []string
}

func (m *mockResolveCache) Get(ctx context.Context, token string) (*ResolveTarget, error) {
	return nil, nil
}

func (m *mockResolveCache) Set(ctx context.Context, token string, target ResolveTarget) error {
	return nil
}

func (m *mockResolveCache) Invalidate(ctx context.Context, token string) error {
	m.invalidated = append(m.invalidated, token)
	return nil
}

func sequentialTokens(tokens ...string) TokenGenerator {
	i := 0
	return func() string {
		token := tokens[i%len(tokens)]
		i++
		return token
	}
}

func newTestService(codes *mockQRCodeRepository, scans *mockScanEventRepository, cache ResolveCache) QRCodeService {
	return NewQRCodeService(Deps{
		Codes:    codes,
		Scans:    scans,
		Cache:    cache,
		NewToken: sequentialTokens("tok00001"),
	})
}

func TestQRCodeService_Create(t *testing.T) {
	ownerID := uuid.New()
	var created *model.QRCode
	repo := &mockQRCodeRepository{
		createFn: func(ctx context.Context, code *model.QRCode) error {
			created = code
			return nil
		},
	}

	svc := newTestService(repo, &mockScanEventRepository{}, nil)
	code, err := svc.Create(context.Background(), ownerID, CreateQRCodeInput{
		Name:        "Landing page",
		RedirectURL: "https://example.com/page1",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created == nil {
		t.Fatal("expected repository Create to be called")
	}
	if code.Token != "tok00001" {
		t.Fatalf("expected generated token, got %q", code.Token)
	}
	if code.OwnerID != ownerID {
		t.Fatal("expected owner to be set")
	}
	if !code.IsActive {
		t.Fatal("expected new code to be active")
	}
	if code.ScanCount != 0 {
		t.Fatalf("expected scan count 0, got %d", code.ScanCount)
	}
	if code.Styling != model.DefaultStyling() {
		t.Fatal("expected default styling when none provided")
	}
}

func TestQRCodeService_Create_MissingName(t *testing.T) {
	svc := newTestService(&mockQRCodeRepository{}, &mockScanEventRepository{}, nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateQRCodeInput{
		RedirectURL: "https://example.com",
	})

	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Field != "name" {
		t.Fatalf("expected name error, got %q", vErr.Field)
	}
}

func TestQRCodeService_Create_InvalidRedirectURL(t *testing.T) {
	svc := newTestService(&mockQRCodeRepository{}, &mockScanEventRepository{}, nil)

	for _, raw := range []string{"not a url", "/relative/path", "example.com/missing-scheme"} {
		_, err := svc.Create(context.Background(), uuid.New(), CreateQRCodeInput{
			Name:        "bad",
			RedirectURL: raw,
		})

		var vErr *model.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError for %q, got %v", raw, err)
		}
	}
}

func TestQRCodeService_Create_InvalidStyling(t *testing.T) {
	svc := newTestService(&mockQRCodeRepository{}, &mockScanEventRepository{}, nil)

	styling := model.DefaultStyling()
	styling.Width = 50
	_, err := svc.Create(context.Background(), uuid.New(), CreateQRCodeInput{
		Name:        "tiny",
		RedirectURL: "https://example.com",
		Styling:     &styling,
	})

	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Field != "width" {
		t.Fatalf("expected width error, got %q", vErr.Field)
	}
}

func TestQRCodeService_Create_RetriesOnTokenCollision(t *testing.T) {
	attempts := []string{}
	repo := &mockQRCodeRepository{
		createFn: func(ctx context.Context, code *model.QRCode) error {
			attempts = append(attempts, code.Token)
			if len(attempts) == 1 {
				return repository.ErrTokenTaken
			}
			return nil
		},
	}

	svc := NewQRCodeService(Deps{
		Codes:    repo,
		Scans:    &mockScanEventRepository{},
		NewToken: sequentialTokens("dup00001", "fresh001"),
	})

	code, err := svc.Create(context.Background(), uuid.New(), CreateQRCodeInput{
		Name:        "retry",
		RedirectURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 create attempts, got %d", len(attempts))
	}
	if code.Token != "fresh001" {
		t.Fatalf("expected regenerated token, got %q", code.Token)
	}
}

func TestQRCodeService_Create_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	repo := &mockQRCodeRepository{
		createFn: func(ctx context.Context, code *model.QRCode) error {
			calls++
			return repository.ErrTokenTaken
		},
	}

	svc := newTestService(repo, &mockScanEventRepository{}, nil)
	_, err := svc.Create(context.Background(), uuid.New(), CreateQRCodeInput{
		Name:        "unlucky",
		RedirectURL: "https://example.com",
	})
	if !errors.Is(err, repository.ErrTokenTaken) {
		t.Fatalf("expected ErrTokenTaken, got %v", err)
	}
	if calls != maxTokenAttempts {
		t.Fatalf("expected %d attempts, got %d", maxTokenAttempts, calls)
	}
}

func TestQRCodeService_Get_OwnerScoped(t *testing.T) {
	ownerA := uuid.New()
	ownerB := uuid.New()
	id := uuid.New()

	repo := &mockQRCodeRepository{
		getFn: func(ctx context.Context, ownerID, lookupID uuid.UUID) (*model.QRCode, error) {
			if ownerID == ownerA && lookupID == id {
				return &model.QRCode{ID: id, OwnerID: ownerA}, nil
			}
			return nil, repository.ErrCodeNotFound
		},
	}

	svc := newTestService(repo, &mockScanEventRepository{}, nil)

	if _, err := svc.Get(context.Background(), ownerA, id); err != nil {
		t.Fatalf("owner A should see the code: %v", err)
	}

	_, err := svc.Get(context.Background(), ownerB, id)
	if !errors.Is(err, repository.ErrCodeNotFound) {
		t.Fatalf("owner B should get not-found, got %v", err)
	}
}

func TestQRCodeService_Update_InvalidatesCache(t *testing.T) {
	id := uuid.New()
	repo := &mockQRCodeRepository{
		updateFn: func(ctx context.Context, ownerID, lookupID uuid.UUID, fields map[string]interface{}) (*model.QRCode, error) {
			if _, ok := fields["is_active"]; !ok {
				t.Fatal("expected is_active in update fields")
			}
			return &model.QRCode{ID: lookupID, Token: "cached01", IsActive: false}, nil
		},
	}
	cache := &mockResolveCache{}

	svc := newTestService(repo, &mockScanEventRepository{}, cache)

	inactive := false
	_, err := svc.Update(context.Background(), uuid.New(), id, UpdateQRCodeInput{IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "cached01" {
		t.Fatalf("expected cache invalidation for token, got %v", cache.invalidated)
	}
}

func TestQRCodeService_Update_EmptyNameRejected(t *testing.T) {
	svc := newTestService(&mockQRCodeRepository{}, &mockScanEventRepository{}, nil)

	empty := ""
	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), UpdateQRCodeInput{Name: &empty})

	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestQRCodeService_Delete_InvalidatesCache(t *testing.T) {
	id := uuid.New()
	repo := &mockQRCodeRepository{
		getFn: func(ctx context.Context, ownerID, lookupID uuid.UUID) (*model.QRCode, error) {
			return &model.QRCode{ID: lookupID, Token: "gone0001"}, nil
		},
		deleteFn: func(ctx context.Context, ownerID, lookupID uuid.UUID) error {
			return nil
		},
	}
	cache := &mockResolveCache{}

	svc := newTestService(repo, &mockScanEventRepository{}, cache)
	if err := svc.Delete(context.Background(), uuid.New(), id); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "gone0001" {
		t.Fatalf("expected cache invalidation, got %v", cache.invalidated)
	}
}

func TestQRCodeService_Delete_NotFound(t *testing.T) {
	svc := newTestService(&mockQRCodeRepository{}, &mockScanEventRepository{}, nil)

	err := svc.Delete(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, repository.ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
}

func TestQRCodeService_Analytics_ChecksOwnershipFirst(t *testing.T) {
	listCalled := false
	repo := &mockQRCodeRepository{} // GetByID defaults to not-found
	scans := &mockScanEventRepository{
		listFn: func(ctx context.Context, qrCodeID uuid.UUID) ([]model.ScanEvent, error) {
			listCalled = true
			return nil, nil
		},
	}

	svc := newTestService(repo, scans, nil)
	_, err := svc.Analytics(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, repository.ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
	if listCalled {
		t.Fatal("ledger must not be read when ownership check fails")
	}
}

func TestTokenGenerator_PairwiseDistinct(t *testing.T) {
	gen, err := nanoid.Standard(8)
	if err != nil {
		t.Fatalf("nanoid.Standard: %v", err)
	}

	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		token := gen()
		if seen[token] {
			t.Fatalf("duplicate token after %d generations: %q", i, token)
		}
		seen[token] = true
	}
}
