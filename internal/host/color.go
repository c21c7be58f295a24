package host

import (
	"github.com/hinshun/vt10x"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// TermColor is a UI-toolkit-agnostic description of one cell's resolved
// foreground or background color, letting termui build a tcell.Style
// without this package importing tcell (host stays headless/testable per
// its own doc comment).
type TermColor struct {
	Default bool // true if the emulator never set this color (use the UI's own default)
	Palette bool // true if Index is a 0-255 palette index rather than RGB
	Index   uint8
	R, G, B uint8
}

// ResolveColor classifies a vt10x.Color the way the teacher's
// glyphToTcellStyle does (palette vs packed-RGB), but stops short of
// picking a tcell color so termui owns that decision. When truecolor is
// false (e.g. running inside tmux, matching the teacher's InTmux check)
// an RGB color is downsampled to the nearest 256-palette entry using
// go-colorful's perceptual Lab distance instead of the teacher's
// hand-rolled channel-quantizing rgbTo256Color.
func ResolveColor(c vt10x.Color, isDefault bool, truecolor bool) TermColor {
	if isDefault {
		return TermColor{Default: true}
	}
	if c <= 255 {
		return TermColor{Palette: true, Index: uint8(c)}
	}

	r := uint8((c >> 16) & 0xFF)
	g := uint8((c >> 8) & 0xFF)
	b := uint8(c & 0xFF)
	if truecolor {
		return TermColor{R: r, G: g, B: b}
	}
	return TermColor{Palette: true, Index: nearest256(r, g, b)}
}

// IsDefaultFG / IsDefaultBG expose the vt10x sentinel comparisons termui
// needs before calling ResolveColor, since vt10x.DefaultFG/DefaultBG are
// themselves just reserved Color values.
func IsDefaultFG(c vt10x.Color) bool { return c == vt10x.DefaultFG }
func IsDefaultBG(c vt10x.Color) bool { return c == vt10x.DefaultBG }

// xterm256Palette is the standard 256-color xterm palette's RGB values
// for indices 16-231 (the 6x6x6 color cube) and 232-255 (the grayscale
// ramp); 0-15 are terminal-theme-dependent ANSI colors and are excluded
// from nearest-match search the same way the teacher's 216-cube-only
// rgbTo256Color implicitly did.
var xterm256Palette = buildXterm256Palette()

func buildXterm256Palette() [256]colorful.Color {
	var pal [256]colorful.Color
	steps := [6]int{0, 95, 135, 175, 215, 255}
	idx := 16
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				pal[idx] = colorful.Color{
					R: float64(steps[r]) / 255,
					G: float64(steps[g]) / 255,
					B: float64(steps[b]) / 255,
				}
				idx++
			}
		}
	}
	for i := 0; i < 24; i++ {
		level := 8 + i*10
		v := float64(level) / 255
		pal[232+i] = colorful.Color{R: v, G: v, B: v}
	}
	return pal
}

// NearestPaletteIndex finds the closest color-cube/grayscale-ramp palette
// index to (r,g,b) by perceptual Lab distance (go-colorful's
// DistanceLab), the dependency spec.md's DOMAIN STACK names for
// "true-color → 256-palette downsampling for terminals without direct
// color". Exported so internal/config can downsample colorscheme.yaml's
// hex overrides through the same palette the terminal grid uses.
func NearestPaletteIndex(r, g, b uint8) uint8 {
	return nearest256(r, g, b)
}

func nearest256(r, g, b uint8) uint8 {
	target := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	best := 16
	bestDist := target.DistanceLab(xterm256Palette[16])
	for i := 17; i < 256; i++ {
		d := target.DistanceLab(xterm256Palette[i])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return uint8(best)
}
