package util

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

func TestClientIP_PrefersForwardedFor(t *testing.T) {
	app := fiber.New()
	fctx := &fasthttp.RequestCtx{}
	fctx.Request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	fctx.Request.Header.Set("X-Real-IP", "192.0.2.50")

	c := app.AcquireCtx(fctx)
	defer app.ReleaseCtx(c)

	if ip := ClientIP(c); ip != "203.0.113.7" {
		t.Fatalf("expected first forwarded entry, got %q", ip)
	}
}

func TestClientIP_FallsBackToRealIP(t *testing.T) {
	app := fiber.New()
	fctx := &fasthttp.RequestCtx{}
	fctx.Request.Header.Set("X-Real-IP", "192.0.2.50")

	c := app.AcquireCtx(fctx)
	defer app.ReleaseCtx(c)

	if ip := ClientIP(c); ip != "192.0.2.50" {
		t.Fatalf("expected X-Real-IP fallback, got %q", ip)
	}
}

// Metadata captured for the asynchronous scan pipeline outlives the handler,
// while fasthttp reuses the connection's header buffers for the next request.
// The extracted strings must therefore be copies, not views into the buffers.
func TestRequestMeta_SurvivesBufferReuse(t *testing.T) {
	app := fiber.New()
	fctx := &fasthttp.RequestCtx{}
	fctx.Request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.22.33.44")
	fctx.Request.Header.Set("CF-IPCountry", "DE")
	fctx.Request.Header.Set("CF-IPCity", "Berlin")

	c := app.AcquireCtx(fctx)
	ip := ClientIP(c)
	country := Country(c)
	city := City(c)
	app.ReleaseCtx(c)

	// The next request on the connection rewrites the same header storage.
	// Shorter values overwrite the existing backing arrays in place.
	fctx.Request.Header.Set("X-Forwarded-For", "198.51.100.99")
	fctx.Request.Header.Set("CF-IPCountry", "FR")
	fctx.Request.Header.Set("CF-IPCity", "Paris")

	if ip != "203.0.113.7" {
		t.Fatalf("captured IP mutated after handler returned: now %q", ip)
	}
	if country != "DE" {
		t.Fatalf("captured country mutated after handler returned: now %q", country)
	}
	if city != "Berlin" {
		t.Fatalf("captured city mutated after handler returned: now %q", city)
	}
}
