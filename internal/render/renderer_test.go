package render

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scantrail/scantrail/internal/app/model"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestPNGRenderer_DefaultStyling(t *testing.T) {
	r := NewPNGRenderer()

	data, err := r.Render("https://scantrail.example/qr/abc12345", model.DefaultStyling())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, pngMagic), "output is not a PNG")

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestPNGRenderer_EmptyPayload(t *testing.T) {
	r := NewPNGRenderer()

	_, err := r.Render("", model.DefaultStyling())
	assert.Error(t, err)
}

func TestPNGRenderer_InvalidStyling(t *testing.T) {
	r := NewPNGRenderer()

	style := model.DefaultStyling()
	style.DotsColor = "teal"
	_, err := r.Render("https://example.com", style)

	var vErr *model.ValidationError
	assert.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
}

func TestPNGRenderer_GradientUsesStartColor(t *testing.T) {
	r := NewPNGRenderer()

	style := model.DefaultStyling()
	style.DotsGradientEnabled = true
	style.DotsGradientStartColor = "#ff0000"

	data, err := r.Render("https://example.com", style)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	// Scan for a fully red pixel; the modules must carry the gradient
	// start color rather than the solid dots color.
	found := false
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y && !found; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			if cr == 0xffff && cg == 0 && cb == 0 {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "no pixel carries the gradient start color")
}

func TestPNGRenderer_TransparentBackground(t *testing.T) {
	r := NewPNGRenderer()

	style := model.DefaultStyling()
	style.BackgroundTransparent = true

	data, err := r.Render("https://example.com", style)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a, "corner pixel should be transparent")
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#ff8000")
	require.NoError(t, err)
	r, g, b, _ := c.RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0x8080), g)
	assert.Equal(t, uint32(0), b)

	short, err := parseHexColor("#f80")
	require.NoError(t, err)
	sr, sg, _, _ := short.RGBA()
	assert.Equal(t, uint32(0xffff), sr)
	assert.Equal(t, uint32(0x8888), sg)

	_, err = parseHexColor("ff8000")
	assert.Error(t, err)
}
