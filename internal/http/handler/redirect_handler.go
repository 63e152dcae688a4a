package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/scantrail/scantrail/internal/app/repository"
	"github.com/scantrail/scantrail/internal/app/service"
	"github.com/scantrail/scantrail/internal/http/util"
	"github.com/scantrail/scantrail/internal/http/view"
	"github.com/scantrail/scantrail/internal/infra/metrics"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the public redirect handler.
// Cache, Filter and ScanPublisher may be nil; the handler degrades to plain
// datastore lookups without scan recording.
type RedirectDeps struct {
	Logger        *zap.Logger
	Codes         repository.QRCodeRepository
	Cache         service.ResolveCache
	Filter        *service.TokenFilter
	ScanPublisher *service.ScanPublisher
	HomeURL       string
}

// RedirectHandler implements the public scan-redirect path.
type RedirectHandler struct {
	logger        *zap.Logger
	codes         repository.QRCodeRepository
	cache         service.ResolveCache
	filter        *service.TokenFilter
	scanPublisher *service.ScanPublisher
	homeURL       string
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:        logger,
		codes:         deps.Codes,
		cache:         deps.Cache,
		filter:        deps.Filter,
		scanPublisher: deps.ScanPublisher,
		homeURL:       deps.HomeURL,
	}
}

// Register wires public routes onto the provided router.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/qr/:token", h.Resolve)
}

// Health is a simple root endpoint so we know the service is running.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "scantrail",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /qr/:token. Missing tokens, deactivated entries and
// datastore failures all collapse to the same not-found page; internal
// errors never leak to public scan traffic.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return h.notFound(c, token)
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	if h.filter != nil && !h.filter.MayContain(token) {
		return h.notFound(c, token)
	}

	target, err := h.resolveTarget(ctx, token)
	if err != nil {
		if !errors.Is(err, repository.ErrCodeNotFound) {
			h.logger.Error("failed to resolve token", zap.Error(err), zap.String("token", token))
		}
		return h.notFound(c, token)
	}

	// Metadata must be deep-copied before the handler returns: fiber recycles
	// the request context and its strings alias fasthttp's per-connection
	// buffers, which the next request on the connection overwrites.
	if h.scanPublisher != nil {
		meta := service.ScanMeta{
			IPAddress: util.ClientIP(c),
			UserAgent: utils.CopyString(c.Get("User-Agent")),
			Referrer:  utils.CopyString(c.Get("Referer")),
			Country:   util.Country(c),
			City:      util.City(c),
		}
		go h.publishScan(target.ID, utils.CopyString(token), meta)
	}

	metrics.RedirectsTotal.WithLabelValues("redirect").Inc()
	h.logger.Debug("redirecting scan", zap.String("token", token), zap.String("target", target.URL))
	return c.Redirect(target.URL, fiber.StatusFound)
}

func (h *RedirectHandler) resolveTarget(ctx context.Context, token string) (*service.ResolveTarget, error) {
	if h.cache != nil {
		target, err := h.cache.Get(ctx, token)
		if err != nil {
			h.logger.Warn("resolve cache read failed", zap.Error(err), zap.String("token", token))
		} else if target != nil {
			return target, nil
		}
	}

	code, err := h.codes.GetActiveByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	target := &service.ResolveTarget{ID: code.ID, URL: code.RedirectURL}
	if h.cache != nil {
		if err := h.cache.Set(ctx, token, *target); err != nil {
			h.logger.Warn("resolve cache write failed", zap.Error(err), zap.String("token", token))
		}
	}
	return target, nil
}

func (h *RedirectHandler) notFound(c *fiber.Ctx, token string) error {
	metrics.RedirectsTotal.WithLabelValues("not_found").Inc()

	html, err := view.RenderNotFoundPage(view.NotFoundPageData{
		Token:   token,
		HomeURL: h.homeURL,
	})
	if err != nil {
		h.logger.Error("failed to render not-found page", zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "qr code not found",
		})
	}

	return c.Status(fiber.StatusNotFound).
		Type("html", "utf-8").
		SendString(html)
}

func (h *RedirectHandler) publishScan(qrCodeID uuid.UUID, token string, meta service.ScanMeta) {
	if err := h.scanPublisher.Publish(qrCodeID, meta); err != nil {
		h.logger.Error("failed to publish scan event", zap.Error(err), zap.String("token", token))
	}
}
