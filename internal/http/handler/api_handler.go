package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/scantrail/scantrail/internal/app/model"
	"github.com/scantrail/scantrail/internal/app/repository"
	"github.com/scantrail/scantrail/internal/app/service"
	"github.com/scantrail/scantrail/internal/http/middleware"
	"github.com/scantrail/scantrail/internal/render"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by the owner-scoped API handlers.
type APIDeps struct {
	Logger   *zap.Logger
	Service  service.QRCodeService
	Renderer render.Renderer
	Auth     fiber.Handler
	BaseURL  string
}

// APIHandler implements the authenticated management API.
type APIHandler struct {
	logger   *zap.Logger
	service  service.QRCodeService
	renderer render.Renderer
	auth     fiber.Handler
	baseURL  string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:   logger,
		service:  deps.Service,
		renderer: deps.Renderer,
		auth:     deps.Auth,
		baseURL:  deps.BaseURL,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api", h.auth)
	{
		qr := api.Group("/qr")
		{
			qr.Get("/", h.List)
			qr.Post("/", h.Create)
			qr.Get("/:id", h.Get)
			qr.Patch("/:id", h.Update)
			qr.Delete("/:id", h.Delete)
			qr.Get("/:id/scans", h.Scans)
			qr.Get("/:id/stats", h.Stats)
			qr.Get("/:id/image", h.Image)
		}
	}
}

// CreateQRCodeRequest represents the request body for creating a code entry.
type CreateQRCodeRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	RedirectURL string               `json:"redirect_url"`
	Styling     *model.StylingConfig `json:"styling,omitempty"`
	ImageURL    string               `json:"image_url,omitempty"`
}

// UpdateQRCodeRequest represents the request body for a partial update.
type UpdateQRCodeRequest struct {
	Name        *string              `json:"name,omitempty"`
	Description *string              `json:"description,omitempty"`
	RedirectURL *string              `json:"redirect_url,omitempty"`
	Styling     *model.StylingConfig `json:"styling,omitempty"`
	ImageURL    *string              `json:"image_url,omitempty"`
	IsActive    *bool                `json:"is_active,omitempty"`
}

// List handles GET /api/qr
func (h *APIHandler) List(c *fiber.Ctx) error {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return unauthenticated(c)
	}

	codes, err := h.service.List(h.ctx(c), ownerID)
	if err != nil {
		return h.fail(c, err, "failed to list qr codes")
	}

	if codes == nil {
		codes = []model.QRCode{}
	}
	return c.JSON(fiber.Map{"qrCodes": codes})
}

// Create handles POST /api/qr
func (h *APIHandler) Create(c *fiber.Ctx) error {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		return unauthenticated(c)
	}

	var req CreateQRCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	code, err := h.service.Create(h.ctx(c), ownerID, service.CreateQRCodeInput{
		Name:        req.Name,
		Description: req.Description,
		RedirectURL: req.RedirectURL,
		Styling:     req.Styling,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return h.fail(c, err, "failed to create qr code")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"qrCode": code})
}

// Get handles GET /api/qr/:id
func (h *APIHandler) Get(c *fiber.Ctx) error {
	ownerID, id, ok := h.scope(c)
	if !ok {
		return nil
	}

	code, err := h.service.Get(h.ctx(c), ownerID, id)
	if err != nil {
		return h.fail(c, err, "failed to get qr code")
	}
	return c.JSON(fiber.Map{"qrCode": code})
}

// Update handles PATCH /api/qr/:id
func (h *APIHandler) Update(c *fiber.Ctx) error {
	ownerID, id, ok := h.scope(c)
	if !ok {
		return nil
	}

	var req UpdateQRCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	code, err := h.service.Update(h.ctx(c), ownerID, id, service.UpdateQRCodeInput{
		Name:        req.Name,
		Description: req.Description,
		RedirectURL: req.RedirectURL,
		Styling:     req.Styling,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return h.fail(c, err, "failed to update qr code")
	}
	return c.JSON(fiber.Map{"qrCode": code})
}

// Delete handles DELETE /api/qr/:id. Deleting a missing or foreign id is an
// explicit 404, not a silent no-op.
func (h *APIHandler) Delete(c *fiber.Ctx) error {
	ownerID, id, ok := h.scope(c)
	if !ok {
		return nil
	}

	if err := h.service.Delete(h.ctx(c), ownerID, id); err != nil {
		return h.fail(c, err, "failed to delete qr code")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Scans handles GET /api/qr/:id/scans
func (h *APIHandler) Scans(c *fiber.Ctx) error {
	ownerID, id, ok := h.scope(c)
	if !ok {
		return nil
	}

	events, err := h.service.Analytics(h.ctx(c), ownerID, id)
	if err != nil {
		return h.fail(c, err, "failed to list scan events")
	}

	if events == nil {
		events = []model.ScanEvent{}
	}
	return c.JSON(fiber.Map{"scans": events})
}

// Stats handles GET /api/qr/:id/stats?days=30
func (h *APIHandler) Stats(c *fiber.Ctx) error {
	ownerID, id, ok := h.scope(c)
	if !ok {
		return nil
	}

	days := c.QueryInt("days", 30)
	stats, err := h.service.DailyStats(h.ctx(c), ownerID, id, days)
	if err != nil {
		return h.fail(c, err, "failed to aggregate scan events")
	}
	return c.JSON(stats)
}

// Image handles GET /api/qr/:id/image and returns the rendered PNG for the
// code's public redirect URL using its stored styling.
func (h *APIHandler) Image(c *fiber.Ctx) error {
	ownerID, id, ok := h.scope(c)
	if !ok {
		return nil
	}

	code, err := h.service.Get(h.ctx(c), ownerID, id)
	if err != nil {
		return h.fail(c, err, "failed to get qr code")
	}

	payload := fmt.Sprintf("%s/qr/%s", h.baseURL, code.Token)
	png, err := h.renderer.Render(payload, code.Styling)
	if err != nil {
		return h.fail(c, err, "failed to render qr code")
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

func (h *APIHandler) ctx(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

// scope resolves the owner identity and the :id path parameter. It writes
// the error response itself and reports false when either is missing.
func (h *APIHandler) scope(c *fiber.Ctx) (uuid.UUID, uuid.UUID, bool) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		_ = unauthenticated(c)
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "qr code not found",
		})
		return uuid.Nil, uuid.Nil, false
	}
	return ownerID, id, true
}

func (h *APIHandler) fail(c *fiber.Ctx, err error, logMsg string) error {
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": vErr.Error(),
		})
	case errors.Is(err, repository.ErrCodeNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "qr code not found",
		})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "unauthenticated",
	})
}
