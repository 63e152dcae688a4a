package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/scantrail/scantrail/internal/app/model"
	"github.com/scantrail/scantrail/internal/app/repository"
	"github.com/scantrail/scantrail/internal/app/service"
)

type mockCodeRepo struct {
	getActiveFn func(ctx context.Context, token string) (*model.QRCode, error)
	calls       int
}

func (m *mockCodeRepo) Create(ctx context.Context, code *model.QRCode) error { return nil }

func (m *mockCodeRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*model.QRCode, error) {
	return nil, repository.ErrCodeNotFound
}

func (m *mockCodeRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.QRCode, error) {
	return nil, nil
}

func (m *mockCodeRepo) Update(ctx context.Context, ownerID, id uuid.UUID, fields map[string]interface{}) (*model.QRCode, error) {
	return nil, repository.ErrCodeNotFound
}

func (m *mockCodeRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return repository.ErrCodeNotFound
}

func (m *mockCodeRepo) GetActiveByToken(ctx context.Context, token string) (*model.QRCode, error) {
	m.calls++
	if m.getActiveFn != nil {
		return m.getActiveFn(ctx, token)
	}
	return nil, repository.ErrCodeNotFound
}

func (m *mockCodeRepo) IncrementScanCount(ctx context.Context, id uuid.UUID) error { return nil }

func (m *mockCodeRepo) ListTokens(ctx context.Context) ([]string, error) { return nil, nil }

type staticCache struct {
	target *service.ResolveTarget
	sets   int
}

func (c *staticCache) Get(ctx context.Context, token string) (*service.ResolveTarget, error) {
	return c.target, nil
}

func (c *staticCache) Set(ctx context.Context, token string, target service.ResolveTarget) error {
	c.sets++
	return nil
}

func (c *staticCache) Invalidate(ctx context.Context, token string) error { return nil }

func newRedirectApp(repo repository.QRCodeRepository, cache service.ResolveCache, filter *service.TokenFilter) *fiber.App {
	app := fiber.New()
	h := NewRedirectHandler(RedirectDeps{
		Codes:   repo,
		Cache:   cache,
		Filter:  filter,
		HomeURL: "https://scantrail.example",
	})
	h.Register(app)
	return app
}

func TestRedirectHandler_ActiveToken(t *testing.T) {
	repo := &mockCodeRepo{
		getActiveFn: func(ctx context.Context, token string) (*model.QRCode, error) {
			if token != "abc12345" {
				t.Fatalf("unexpected token %q", token)
			}
			return &model.QRCode{
				ID:          uuid.New(),
				Token:       token,
				RedirectURL: "https://example.com/landing",
				IsActive:    true,
			}, nil
		},
	}
	app := newRedirectApp(repo, nil, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/qr/abc12345", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com/landing" {
		t.Fatalf("unexpected Location header %q", loc)
	}
}

func TestRedirectHandler_UnknownToken(t *testing.T) {
	app := newRedirectApp(&mockCodeRepo{}, nil, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/qr/missing1", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("expected an html page, got %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), "missing1") {
		t.Fatal("not-found page should mention the token")
	}
}

func TestRedirectHandler_DatastoreFailureStaysNotFound(t *testing.T) {
	repo := &mockCodeRepo{
		getActiveFn: func(ctx context.Context, token string) (*model.QRCode, error) {
			return nil, errors.New("connection refused")
		},
	}
	app := newRedirectApp(repo, nil, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/qr/abc12345", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	// Public scan traffic never sees internal errors.
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRedirectHandler_FilterShortCircuits(t *testing.T) {
	repo := &mockCodeRepo{}
	filter := service.NewTokenFilter(1000, 0.001)
	filter.Reload([]string{"known001"})

	app := newRedirectApp(repo, nil, filter)

	resp, err := app.Test(httptest.NewRequest("GET", "/qr/absent99", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if repo.calls != 0 {
		t.Fatalf("datastore must not be queried for filtered tokens, got %d calls", repo.calls)
	}
}

func TestRedirectHandler_CacheHitSkipsDatastore(t *testing.T) {
	repo := &mockCodeRepo{}
	cache := &staticCache{target: &service.ResolveTarget{ID: uuid.New(), URL: "https://example.com/cached"}}

	app := newRedirectApp(repo, cache, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/qr/cached01", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if repo.calls != 0 {
		t.Fatalf("datastore must not be queried on cache hit, got %d calls", repo.calls)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com/cached" {
		t.Fatalf("unexpected Location header %q", loc)
	}
}

func TestRedirectHandler_CacheMissPopulatesCache(t *testing.T) {
	repo := &mockCodeRepo{
		getActiveFn: func(ctx context.Context, token string) (*model.QRCode, error) {
			return &model.QRCode{ID: uuid.New(), Token: token, RedirectURL: "https://example.com", IsActive: true}, nil
		},
	}
	cache := &staticCache{}

	app := newRedirectApp(repo, cache, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/qr/fresh001", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}
}

func TestRedirectHandler_Health(t *testing.T) {
	app := newRedirectApp(&mockCodeRepo{}, nil, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
