package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
)

// ValidationError reports a single field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// StylingConfig describes the visual parameters handed to the QR renderer.
// It is embedded in QRCode and stored as a JSONB column. When a gradient is
// enabled for a channel the solid color for that channel is kept in storage
// but ignored by the renderer; the transparent flag likewise supersedes all
// background coloring.
type StylingConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Margin int `json:"margin"`

	DotsType               string  `json:"dotsType"`
	DotsColor              string  `json:"dotsColor"`
	DotsGradientEnabled    bool    `json:"dotsGradientEnabled"`
	DotsGradientType       string  `json:"dotsGradientType"`
	DotsGradientRotation   float64 `json:"dotsGradientRotation"`
	DotsGradientStartColor string  `json:"dotsGradientStartColor"`
	DotsGradientEndColor   string  `json:"dotsGradientEndColor"`

	BackgroundColor              string  `json:"backgroundColor"`
	BackgroundTransparent        bool    `json:"backgroundTransparent"`
	BackgroundGradientEnabled    bool    `json:"backgroundGradientEnabled"`
	BackgroundGradientType       string  `json:"backgroundGradientType"`
	BackgroundGradientRotation   float64 `json:"backgroundGradientRotation"`
	BackgroundGradientStartColor string  `json:"backgroundGradientStartColor"`
	BackgroundGradientEndColor   string  `json:"backgroundGradientEndColor"`

	ErrorCorrectionLevel string  `json:"errorCorrectionLevel"`
	HideBackgroundDots   bool    `json:"hideBackgroundDots"`
	ImageSize            float64 `json:"imageSize"`
	ImageMargin          int     `json:"imageMargin"`
}

// DefaultStyling is the configuration applied when a code is created without
// explicit styling.
func DefaultStyling() StylingConfig {
	return StylingConfig{
		Width:                        300,
		Height:                       300,
		Margin:                       10,
		DotsType:                     "rounded",
		DotsColor:                    "#000000",
		DotsGradientType:             "linear",
		DotsGradientStartColor:       "#000000",
		DotsGradientEndColor:         "#666666",
		BackgroundColor:              "#ffffff",
		BackgroundGradientType:       "linear",
		BackgroundGradientStartColor: "#ffffff",
		BackgroundGradientEndColor:   "#f0f0f0",
		ErrorCorrectionLevel:         "Q",
		HideBackgroundDots:           true,
		ImageSize:                    0.4,
		ImageMargin:                  20,
	}
}

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

var dotsTypes = map[string]bool{
	"rounded":        true,
	"dots":           true,
	"classy":         true,
	"classy-rounded": true,
	"square":         true,
	"extra-rounded":  true,
}

var gradientTypes = map[string]bool{
	"linear": true,
	"radial": true,
}

var errorCorrectionLevels = map[string]bool{
	"L": true,
	"M": true,
	"Q": true,
	"H": true,
}

// Validate checks every field against its declared bounds and vocabulary.
// Gradient colors are only validated when the corresponding gradient is
// enabled, mirroring what the renderer actually consumes.
func (s StylingConfig) Validate() error {
	if s.Width < 100 || s.Width > 1000 {
		return &ValidationError{Field: "width", Reason: "must be between 100 and 1000"}
	}
	if s.Height < 100 || s.Height > 1000 {
		return &ValidationError{Field: "height", Reason: "must be between 100 and 1000"}
	}
	if s.Margin < 0 || s.Margin > 50 {
		return &ValidationError{Field: "margin", Reason: "must be between 0 and 50"}
	}
	if !dotsTypes[s.DotsType] {
		return &ValidationError{Field: "dotsType", Reason: "unknown dots type"}
	}
	if !hexColorPattern.MatchString(s.DotsColor) {
		return &ValidationError{Field: "dotsColor", Reason: "must be a hex color"}
	}
	if s.DotsGradientEnabled {
		if !gradientTypes[s.DotsGradientType] {
			return &ValidationError{Field: "dotsGradientType", Reason: "must be linear or radial"}
		}
		if s.DotsGradientRotation < 0 || s.DotsGradientRotation > 360 {
			return &ValidationError{Field: "dotsGradientRotation", Reason: "must be between 0 and 360"}
		}
		if !hexColorPattern.MatchString(s.DotsGradientStartColor) {
			return &ValidationError{Field: "dotsGradientStartColor", Reason: "must be a hex color"}
		}
		if !hexColorPattern.MatchString(s.DotsGradientEndColor) {
			return &ValidationError{Field: "dotsGradientEndColor", Reason: "must be a hex color"}
		}
	}
	if !s.BackgroundTransparent {
		if !hexColorPattern.MatchString(s.BackgroundColor) {
			return &ValidationError{Field: "backgroundColor", Reason: "must be a hex color"}
		}
		if s.BackgroundGradientEnabled {
			if !gradientTypes[s.BackgroundGradientType] {
				return &ValidationError{Field: "backgroundGradientType", Reason: "must be linear or radial"}
			}
			if s.BackgroundGradientRotation < 0 || s.BackgroundGradientRotation > 360 {
				return &ValidationError{Field: "backgroundGradientRotation", Reason: "must be between 0 and 360"}
			}
			if !hexColorPattern.MatchString(s.BackgroundGradientStartColor) {
				return &ValidationError{Field: "backgroundGradientStartColor", Reason: "must be a hex color"}
			}
			if !hexColorPattern.MatchString(s.BackgroundGradientEndColor) {
				return &ValidationError{Field: "backgroundGradientEndColor", Reason: "must be a hex color"}
			}
		}
	}
	if !errorCorrectionLevels[s.ErrorCorrectionLevel] {
		return &ValidationError{Field: "errorCorrectionLevel", Reason: "must be one of L, M, Q, H"}
	}
	if s.ImageSize < 0.1 || s.ImageSize > 1.0 {
		return &ValidationError{Field: "imageSize", Reason: "must be between 0.1 and 1.0"}
	}
	if s.ImageMargin < 0 || s.ImageMargin > 50 {
		return &ValidationError{Field: "imageMargin", Reason: "must be between 0 and 50"}
	}
	return nil
}

// Value implements driver.Valuer so GORM persists the config as JSONB.
func (s StylingConfig) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for reading the JSONB column back.
func (s *StylingConfig) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	case nil:
		*s = DefaultStyling()
		return nil
	default:
		return fmt.Errorf("styling: unsupported column type %T", value)
	}
}
