package render

import (
	"fmt"
	"image/color"
	"slices"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// paletteSize is the number of discrete colors in heat map palettes.
const paletteSize = 256

var (
	// Control colors sampled from the magma map, dark to light.
	magmaControls = []color.Color{
		color.RGBA{R: 0x00, G: 0x00, B: 0x04, A: 0xff},
		color.RGBA{R: 0x3b, G: 0x0f, B: 0x70, A: 0xff},
		color.RGBA{R: 0x8c, G: 0x29, B: 0x81, A: 0xff},
		color.RGBA{R: 0xde, G: 0x49, B: 0x68, A: 0xff},
		color.RGBA{R: 0xfe, G: 0x9f, B: 0x6d, A: 0xff},
		color.RGBA{R: 0xfc, G: 0xfd, B: 0xbf, A: 0xff},
	}
	// Control colors sampled from the oranges map, dark to light. The
	// resulting palette is reversed so low densities are pale.
	orangesControls = []color.Color{
		color.RGBA{R: 0x7f, G: 0x27, B: 0x04, A: 0xff},
		color.RGBA{R: 0xd9, G: 0x48, B: 0x01, A: 0xff},
		color.RGBA{R: 0xfd, G: 0x8d, B: 0x3c, A: 0xff},
		color.RGBA{R: 0xfd, G: 0xd0, B: 0xa2, A: 0xff},
		color.RGBA{R: 0xff, G: 0xf5, B: 0xeb, A: 0xff},
	}
)

// Palette returns the named sequential palette with n colors.
// Known names are magma, oranges, blackbody and kindlmann.
func Palette(name string, n int) (palette.Palette, error) {
	if n < 2 {
		return nil, fmt.Errorf("palette %q: need at least 2 colors, got %d", name, n)
	}
	switch name {
	case "magma":
		cm, err := moreland.NewLuminance(magmaControls)
		if err != nil {
			return nil, fmt.Errorf("palette %q: %w", name, err)
		}
		return cm.Palette(n), nil
	case "oranges":
		cm, err := moreland.NewLuminance(orangesControls)
		if err != nil {
			return nil, fmt.Errorf("palette %q: %w", name, err)
		}
		return reversed(cm.Palette(n)), nil
	case "blackbody":
		return moreland.BlackBody().Palette(n), nil
	case "kindlmann":
		return moreland.Kindlmann().Palette(n), nil
	default:
		return nil, fmt.Errorf("unknown palette %q", name)
	}
}

type colors []color.Color

func (c colors) Colors() []color.Color { return c }

func reversed(p palette.Palette) palette.Palette {
	c := slices.Clone(p.Colors())
	slices.Reverse(c)
	return colors(c)
}

// seriesColors creates n distinct colors for overlaid series.
func seriesColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	out := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// withAlpha returns c with its alpha replaced by a in [0, 1].
func withAlpha(c color.Color, a float64) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a * 255)}
}
