package util

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP extracts the caller's address, preferring the first entry of
// X-Forwarded-For over X-Real-IP over the socket peer. The result is copied
// out of fasthttp's per-connection buffers, so it stays valid after the
// handler returns.
func ClientIP(c *fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return strings.Clone(first)
		}
	}
	if real := c.Get("X-Real-IP"); real != "" {
		return strings.Clone(real)
	}
	return strings.Clone(c.IP())
}

// Country returns a copy of the edge-provided country code when present.
func Country(c *fiber.Ctx) string {
	return strings.Clone(c.Get("CF-IPCountry"))
}

// City returns a copy of the edge-provided city when present.
func City(c *fiber.Ctx) string {
	return strings.Clone(c.Get("CF-IPCity"))
}
