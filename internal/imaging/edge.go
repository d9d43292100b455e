package imaging

import (
	"math"
)

const (
	// cannyLow and cannyHigh are the hysteresis thresholds applied to the L1
	// gradient magnitude of the 8-bit intensity image.
	cannyLow  = 50
	cannyHigh = 150
)

// EdgeMap combines a Canny edge map with a normalised Sobel gradient magnitude.
//
// Parameters:
//   - g: Source grid (one or three channels).
//
// Returns a single-channel grid the same size as g with values in 0-255.
//
// # Algorithm
//
//  1. Grayscale conversion (see Grid.Gray).
//
//  2. Canny edges with thresholds 50/150 and a 3x3 aperture: pixels on a
//     thinned ridge with magnitude above 150 are strong edges, those above 50
//     are kept only when connected to a strong edge (see cannyEdges).
//
//  3. Gradient magnitude from 5x5 Sobel derivatives,
//     sqrt(Gx² + Gy²), scaled so its maximum becomes 255.
//
//  4. Output = 0.5*canny + 0.5*sobel, rounded and saturated at 255.
//
// A constant image has no gradient anywhere, so both terms and the output are
// all zero.
func EdgeMap(g *Grid) *Grid {
	gray := g.Gray()

	canny := cannyEdges(gray, cannyLow, cannyHigh)
	sobel := normalizeByMax(sobelMagnitude(gray))

	out := NewGrid(gray.Width, gray.Height, 1)
	for i := range out.Pix {
		out.Pix[i] = saturate(0.5*canny[i] + 0.5*sobel[i])
	}
	return out
}

var (
	sobelSmooth5 = []float64{1, 4, 6, 4, 1}
	sobelDeriv5  = []float64{-1, -2, 0, 2, 1}
)

// sobelMagnitude computes the Euclidean norm of the horizontal and vertical
// 5x5 Sobel responses. Borders are mirrored without repeating the edge pixel.
func sobelMagnitude(gray *Grid) []float64 {
	width, height := gray.Width, gray.Height
	mag := make([]float64, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -2; ky <= 2; ky++ {
				py := reflect101(y+ky, height)
				for kx := -2; kx <= 2; kx++ {
					px := reflect101(x+kx, width)
					v := gray.Pix[py*width+px]
					gx += v * sobelSmooth5[ky+2] * sobelDeriv5[kx+2]
					gy += v * sobelDeriv5[ky+2] * sobelSmooth5[kx+2]
				}
			}
			mag[y*width+x] = math.Sqrt(gx*gx + gy*gy)
		}
	}
	return mag
}

// cannyEdges returns a 0/255 edge map of the grayscale grid.
//
// Gradients use the 3x3 Sobel operator with replicated borders and the L1
// magnitude |Gx|+|Gy|. Non-maximum suppression quantises the gradient
// direction into horizontal, vertical and the two diagonals. Hysteresis then
// grows edges outward from every strong pixel through 8-connected weak pixels,
// so a weak pixel survives if any chain of weak pixels links it to a strong
// one.
func cannyEdges(gray *Grid, low, high float64) []float64 {
	width, height := gray.Width, gray.Height
	n := width * height

	dx := make([]float64, n)
	dy := make([]float64, n)
	mag := make([]float64, n)

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				py := clamp(y+ky, 0, height-1)
				for kx := -1; kx <= 1; kx++ {
					px := clamp(x+kx, 0, width-1)
					v := gray.Pix[py*width+px]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			i := y*width + x
			dx[i] = gx
			dy[i] = gy
			mag[i] = math.Abs(gx) + math.Abs(gy)
		}
	}

	// magAt treats everything outside the image as zero magnitude.
	magAt := func(x, y int) float64 {
		if x < 0 || x >= width || y < 0 || y >= height {
			return 0
		}
		return mag[y*width+x]
	}

	const (
		notEdge = iota
		weak
		strong
	)
	tan22 := math.Tan(math.Pi / 8)
	tan67 := math.Tan(3 * math.Pi / 8)

	state := make([]uint8, n)
	stack := make([]int, 0, n/8+1)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			m := mag[i]
			if m <= low {
				continue
			}

			ax, ay := math.Abs(dx[i]), math.Abs(dy[i])
			var isMax bool
			switch {
			case ay < ax*tan22:
				isMax = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case ay > ax*tan67:
				isMax = m > magAt(x, y-1) && m >= magAt(x, y+1)
			default:
				s := 1
				if (dx[i] < 0) != (dy[i] < 0) {
					s = -1
				}
				isMax = m > magAt(x-s, y-1) && m > magAt(x+s, y+1)
			}
			if !isMax {
				continue
			}

			if m > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	// Edge tracking by hysteresis
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		for ky := -1; ky <= 1; ky++ {
			for kx := -1; kx <= 1; kx++ {
				px, py := x+kx, y+ky
				if px < 0 || px >= width || py < 0 || py >= height {
					continue
				}
				j := py*width + px
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	out := make([]float64, n)
	for i, s := range state {
		if s == strong {
			out[i] = 255
		}
	}
	return out
}

// reflect101 maps an out-of-range index back into [0, n) by mirroring around
// the edge pixels without repeating them (… 2 1 | 0 1 2 … n-2 n-1 | n-2 …).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
