package imaging

import (
	"github.com/lucasb-eyer/go-colorful"
)

// rampStop anchors a colour at a position in [0, 1] on a colour ramp.
type rampStop struct {
	Pos   float64
	Color colorful.Color
}

// jetStops is the classic "jet" ramp: dark blue through cyan, yellow and red
// to dark red, piecewise linear in RGB.
var jetStops = []rampStop{
	{Pos: 0.000, Color: colorful.Color{R: 0, G: 0, B: 0.5}},
	{Pos: 0.125, Color: colorful.Color{R: 0, G: 0, B: 1}},
	{Pos: 0.375, Color: colorful.Color{R: 0, G: 1, B: 1}},
	{Pos: 0.625, Color: colorful.Color{R: 1, G: 1, B: 0}},
	{Pos: 0.875, Color: colorful.Color{R: 1, G: 0, B: 0}},
	{Pos: 1.000, Color: colorful.Color{R: 0.5, G: 0, B: 0}},
}

// jetLUT maps each 8-bit intensity to its jet colour.
var jetLUT = buildLUT(jetStops)

type rgb8 struct {
	R, G, B uint8
}

// ApplyJet pseudo-colours a single-channel grid, producing a three-channel
// grid. Samples are rounded and clamped to 0-255 before lookup.
func ApplyJet(gray *Grid) *Grid {
	out := NewGrid(gray.Width, gray.Height, 3)
	for i := 0; i < gray.Width*gray.Height; i++ {
		c := jetLUT[uint8(saturate(gray.Pix[i*gray.Channels]))]
		out.Pix[i*3] = float64(c.R)
		out.Pix[i*3+1] = float64(c.G)
		out.Pix[i*3+2] = float64(c.B)
	}
	return out
}

func buildLUT(stops []rampStop) [256]rgb8 {
	var lut [256]rgb8
	for i := range lut {
		c := rampAt(stops, float64(i)/255.0)
		r, g, b := c.Clamped().RGB255()
		lut[i] = rgb8{R: r, G: g, B: b}
	}
	return lut
}

// rampAt interpolates the ramp at position t in [0, 1].
func rampAt(stops []rampStop, t float64) colorful.Color {
	if t <= stops[0].Pos {
		return stops[0].Color
	}
	for i := 1; i < len(stops); i++ {
		a, b := stops[i-1], stops[i]
		if t <= b.Pos {
			return a.Color.BlendRgb(b.Color, (t-a.Pos)/(b.Pos-a.Pos))
		}
	}
	return stops[len(stops)-1].Color
}
