package render

import (
	"fmt"
	"image/color"

	"github.com/scantrail/scantrail/internal/app/model"
	qrcode "github.com/skip2/go-qrcode"
)

// Renderer turns a payload string plus a styling configuration into an image
// buffer. The drawing algorithm behind it is opaque to the rest of the
// system.
type Renderer interface {
	Render(payload string, style model.StylingConfig) ([]byte, error)
}

// PNGRenderer renders QR codes as PNG. Two-stop gradients are flattened to
// their start color and the dot shape vocabulary maps to plain modules; the
// canvas size, colors, transparency and error correction level are honored.
type PNGRenderer struct{}

// NewPNGRenderer returns a PNG-producing Renderer.
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{}
}

func (r *PNGRenderer) Render(payload string, style model.StylingConfig) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("render: empty payload")
	}
	if err := style.Validate(); err != nil {
		return nil, err
	}

	qr, err := qrcode.New(payload, recoveryLevel(style.ErrorCorrectionLevel))
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	// Gradient supersedes the solid color for the dots channel.
	fg := style.DotsColor
	if style.DotsGradientEnabled {
		fg = style.DotsGradientStartColor
	}
	qr.ForegroundColor, err = parseHexColor(fg)
	if err != nil {
		return nil, err
	}

	// The transparent flag supersedes all background coloring.
	if style.BackgroundTransparent {
		qr.BackgroundColor = color.Transparent
	} else {
		bg := style.BackgroundColor
		if style.BackgroundGradientEnabled {
			bg = style.BackgroundGradientStartColor
		}
		qr.BackgroundColor, err = parseHexColor(bg)
		if err != nil {
			return nil, err
		}
	}

	if style.Margin == 0 {
		qr.DisableBorder = true
	}

	png, err := qr.PNG(style.Width)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return png, nil
}

func recoveryLevel(level string) qrcode.RecoveryLevel {
	switch level {
	case "L":
		return qrcode.Low
	case "M":
		return qrcode.Medium
	case "Q":
		return qrcode.High
	case "H":
		return qrcode.Highest
	default:
		return qrcode.High
	}
}

func parseHexColor(s string) (color.Color, error) {
	var r, g, b uint8
	switch len(s) {
	case 7:
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
			return nil, fmt.Errorf("render: invalid color %q", s)
		}
	case 4:
		if _, err := fmt.Sscanf(s, "#%1x%1x%1x", &r, &g, &b); err != nil {
			return nil, fmt.Errorf("render: invalid color %q", s)
		}
		r *= 17
		g *= 17
		b *= 17
	default:
		return nil, fmt.Errorf("render: invalid color %q", s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
