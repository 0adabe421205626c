package app

import (
	"image/color"
	"math"
)

// ColorTheme represents a predefined color scheme for control intensity
// visualization:
// - ClassicTheme: blue (full reverse) through dark to red (full forward)
// - GrayscaleTheme: monochrome magnitude
// - ThermalTheme: heat map magnitude
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"
	GrayscaleTheme ColorTheme = "grayscale"
	ThermalTheme   ColorTheme = "thermal"

	DefaultColorMapSize = 256 // Number of pre-computed colors
)

var validThemes = map[ColorTheme]struct{}{
	ClassicTheme:   {},
	GrayscaleTheme: {},
	ThermalTheme:   {},
}

// ColorMapper maps a signed control value in [-limit, limit] onto a
// pre-computed gradient.
type ColorMapper struct {
	colorMap []color.Color
	theme    func(float64) color.Color
	size     int
	limit    float64
}

// NewColorMapper creates a mapper for the given theme and command limit.
func NewColorMapper(theme ColorTheme, limit float64) *ColorMapper {
	cm := &ColorMapper{
		colorMap: make([]color.Color, DefaultColorMapSize),
		theme:    getColorTheme(theme),
		size:     DefaultColorMapSize,
		limit:    limit,
	}

	for i := 0; i < cm.size; i++ {
		normalized := float64(i) / float64(cm.size-1)
		cm.colorMap[i] = cm.theme(normalized)
	}
	return cm
}

// GetColor returns a color for the given control value. Values beyond the
// limit clamp to the gradient ends.
func (cm *ColorMapper) GetColor(v int) color.Color {
	// Map [-limit, limit] to [0, 1]
	normalized := (float64(v) + cm.limit) / (2 * cm.limit)

	index := int(normalized * float64(cm.size-1))
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= cm.size {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

// HSV represents a color in HSV (Hue, Saturation, Value) color space
type HSV struct {
	H float64 // Hue angle in degrees [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value/Brightness [0-1]
}

// RGB converts HSV to RGB color space efficiently
func (hsv HSV) RGB() color.Color {
	// Fast path for grayscale
	if hsv.S <= 0.0 {
		v := uint8(hsv.V * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}

	// Normalize hue to [0-6)
	h := hsv.H
	if h >= 360 {
		h -= 360
	}
	h /= 60

	i := int(h)
	f := h - float64(i)

	v := uint8(hsv.V * 255)
	p := uint8((hsv.V * (1 - hsv.S)) * 255)
	q := uint8((hsv.V * (1 - (hsv.S * f))) * 255)
	t := uint8((hsv.V * (1 - (hsv.S * (1 - f)))) * 255)

	switch i {
	case 0:
		return color.RGBA{R: v, G: t, B: p, A: 255}
	case 1:
		return color.RGBA{R: q, G: v, B: p, A: 255}
	case 2:
		return color.RGBA{R: p, G: v, B: t, A: 255}
	case 3:
		return color.RGBA{R: p, G: q, B: v, A: 255}
	case 4:
		return color.RGBA{R: t, G: p, B: v, A: 255}
	default: // case 5:
		return color.RGBA{R: v, G: p, B: q, A: 255}
	}
}

// Color theme implementations. The input is the normalized signed control
// value: 0 is full reverse, 0.5 is neutral, 1 is full forward.
func getColorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case GrayscaleTheme:
		return func(v float64) color.Color {
			magnitude := math.Abs(v-0.5) * 2
			g := uint8(math.Pow(magnitude, 0.7) * 255)
			return color.RGBA{R: g, G: g, B: g, A: 255}
		}

	case ThermalTheme:
		return func(v float64) color.Color {
			magnitude := math.Abs(v-0.5) * 2
			if magnitude < 0.5 {
				return color.RGBA{
					R: uint8((magnitude * 2) * 255),
					A: 255,
				}
			}
			return color.RGBA{
				R: 255,
				G: uint8(((magnitude - 0.5) * 2) * 255),
				A: 255,
			}
		}

	default: // ClassicTheme
		return func(v float64) color.Color {
			magnitude := math.Abs(v-0.5) * 2
			hue := 240.0 // blue for reverse
			if v >= 0.5 {
				hue = 0 // red for forward
			}
			return HSV{
				H: hue,
				S: 1.0,
				V: math.Pow(magnitude, 0.7),
			}.RGB()
		}
	}
}
