package imaging

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Grid is a row-major pixel grid of intensity samples with the origin at the
// top-left corner.
//
// Samples for a pixel are stored interleaved, so the value of channel c at
// (x, y) lives at Pix[(y*Width+x)*Channels+c]. Grids produced by the decoder
// have either one channel (grayscale sources) or three channels in R, G, B
// order. Values are nominally in the 0-255 range but intermediate grids may
// hold any float64.
//
// A Grid is owned by a single pipeline invocation and is never shared.
type Grid struct {
	Width    int
	Height   int
	Channels int
	Pix      []float64
}

// NewGrid allocates a zeroed grid.
func NewGrid(width, height, channels int) *Grid {
	return &Grid{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float64, width*height*channels),
	}
}

// At returns the sample of channel c at (x, y).
func (g *Grid) At(x, y, c int) float64 {
	return g.Pix[(y*g.Width+x)*g.Channels+c]
}

// Set stores the sample of channel c at (x, y).
func (g *Grid) Set(x, y, c int, v float64) {
	g.Pix[(y*g.Width+x)*g.Channels+c] = v
}

// Dimensions returns the grid's width and height.
func (g *Grid) Dimensions() Dimensions {
	return Dimensions{Width: g.Width, Height: g.Height}
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.Width, g.Height, g.Channels)
	copy(out.Pix, g.Pix)
	return out
}

// Gray converts the grid to a single intensity channel.
//
// Three (or more) channel grids are reduced with the ITU-R BT.601 luma weights
// (0.299*R + 0.587*G + 0.114*B) using 14-bit fixed-point arithmetic, so the
// result is an integral 0-255 value exactly as an 8-bit colour conversion
// would produce. A single-channel grid is returned as a copy, which makes the
// conversion idempotent.
func (g *Grid) Gray() *Grid {
	if g.Channels == 1 {
		return g.Clone()
	}

	out := NewGrid(g.Width, g.Height, 1)
	for i := range out.Pix {
		base := i * g.Channels
		r := int(saturate(g.Pix[base]))
		gr := int(saturate(g.Pix[base+1]))
		b := 0
		if g.Channels > 2 {
			b = int(saturate(g.Pix[base+2]))
		}
		out.Pix[i] = float64((r*4899 + gr*9617 + b*1868 + 8192) >> 14)
	}
	return out
}

// Image converts the grid to a Go image for encoding.
//
// One-channel grids become *image.Gray, three-channel grids *image.NRGBA with
// full opacity. Samples are rounded and clamped to 0-255.
func (g *Grid) Image() image.Image {
	rect := image.Rect(0, 0, g.Width, g.Height)
	if g.Channels == 1 {
		img := image.NewGray(rect)
		for i, v := range g.Pix {
			img.Pix[i] = uint8(saturate(v))
		}
		return img
	}

	img := image.NewNRGBA(rect)
	for i := 0; i < g.Width*g.Height; i++ {
		for c := 0; c < 3; c++ {
			img.Pix[i*4+c] = uint8(saturate(g.Pix[i*g.Channels+c]))
		}
		img.Pix[i*4+3] = 255
	}
	return img
}

// GridFromImage converts a decoded image into a Grid.
//
// Grayscale images (*image.Gray, *image.Gray16) produce one channel; every
// other colour model is flattened to non-premultiplied RGB with the alpha
// channel discarded, so a transparent pixel keeps its stored colour.
func GridFromImage(img image.Image) *Grid {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	switch src := img.(type) {
	case *image.Gray:
		g := NewGrid(width, height, 1)
		for y := 0; y < height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+width]
			for x, v := range row {
				g.Pix[y*width+x] = float64(v)
			}
		}
		return g
	case *image.Gray16:
		g := NewGrid(width, height, 1)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := src.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y
				g.Pix[y*width+x] = float64(v >> 8)
			}
		}
		return g
	}

	nrgba := imaging.Clone(img)
	g := NewGrid(width, height, 3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			si := y*nrgba.Stride + x*4
			di := (y*width + x) * 3
			g.Pix[di] = float64(nrgba.Pix[si])
			g.Pix[di+1] = float64(nrgba.Pix[si+1])
			g.Pix[di+2] = float64(nrgba.Pix[si+2])
		}
	}
	return g
}

// saturate rounds half to even and clamps to the 0-255 range.
func saturate(v float64) float64 {
	v = math.RoundToEven(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// normalizeByMax scales vals so that the largest value maps to 255, truncating
// toward zero. When the maximum is not positive the result is all zeros.
func normalizeByMax(vals []float64) []float64 {
	out := make([]float64, len(vals))
	max := 0.0
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		return out
	}
	for i, v := range vals {
		out[i] = math.Floor(v / max * 255)
	}
	return out
}
