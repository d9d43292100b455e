package imaging

import (
	"fmt"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/disintegration/imaging"
)

// heightmapScale is the integer downsampling factor applied in each dimension.
const heightmapScale = 2

// HeightmapInfo describes a downsampled pseudo-elevation grid.
type HeightmapInfo struct {
	// Width and Height are the downsampled dimensions,
	// floor(original/2) in each direction.
	Width  int `json:"width"`
	Height int `json:"height"`

	// MinValue, MaxValue and MeanValue summarise Data. All lie in [0, 1] and
	// MinValue <= MeanValue <= MaxValue.
	MinValue  float64 `json:"min_value"`
	MaxValue  float64 `json:"max_value"`
	MeanValue float64 `json:"mean_value"`

	// OriginalSize is the size of the grid before downsampling.
	OriginalSize Dimensions `json:"original_size"`

	// Data holds Height rows of Width normalised heights, row-major.
	Data [][]float64 `json:"data"`
}

// Heightmap derives a pseudo-coloured elevation map from image intensity.
//
// Parameters:
//   - g: Source grid (one or three channels), at least 2x2 pixels.
//
// Returns:
//   - *Grid: Three-channel jet-coloured visualisation of the downsampled grid.
//   - *HeightmapInfo: Statistics and the full normalised height grid.
//   - error: Non-nil (wrapping ErrTransformFailed) if g is smaller than 2x2.
//
// # Algorithm
//
//  1. Grayscale conversion (see Grid.Gray).
//  2. 5x5 Gaussian smoothing with the binomial kernel [1 4 6 4 1]ᵀ[1 4 6 4 1]/256
//     and replicated borders.
//  3. Downsampling by 2 with a box filter, so each output sample averages a
//     2x2 block of the smoothed image.
//  4. Heights = sample/255, giving values in [0, 1].
//  5. The 8-bit downsampled samples are pseudo-coloured with the jet ramp.
func Heightmap(g *Grid) (*Grid, *HeightmapInfo, error) {
	newWidth, newHeight := g.Width/heightmapScale, g.Height/heightmapScale
	if newWidth == 0 || newHeight == 0 {
		return nil, nil, fmt.Errorf("%w: %dx%d image is too small for a heightmap",
			ErrTransformFailed, g.Width, g.Height)
	}

	gray := g.Gray().Image()
	blurred := convolution.Convolve(gray, gaussianKernel5(), &convolution.Options{Wrap: false})
	resized := imaging.Resize(blurred, newWidth, newHeight, imaging.Box)

	levels := NewGrid(newWidth, newHeight, 1)
	data := make([][]float64, newHeight)
	for y := 0; y < newHeight; y++ {
		data[y] = make([]float64, newWidth)
		for x := 0; x < newWidth; x++ {
			v := resized.Pix[y*resized.Stride+x*4]
			levels.Pix[y*newWidth+x] = float64(v)
			data[y][x] = float64(v) / 255.0
		}
	}

	stats := summarize(data)
	info := &HeightmapInfo{
		Width:        newWidth,
		Height:       newHeight,
		MinValue:     stats.Min,
		MaxValue:     stats.Max,
		MeanValue:    stats.Mean,
		OriginalSize: g.Dimensions(),
		Data:         data,
	}

	return ApplyJet(levels), info, nil
}

// gaussianKernel5 returns the normalised 5x5 binomial Gaussian kernel.
func gaussianKernel5() convolution.Matrix {
	weights := []float64{1, 4, 6, 4, 1}
	k := convolution.NewKernel(5, 5)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			k.Matrix[y*5+x] = weights[y] * weights[x]
		}
	}
	return k.Normalized()
}
