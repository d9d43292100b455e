package imaging

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FrequencyMap renders the centred log-magnitude spectrum of an image.
//
// The grid is converted to grayscale, transformed with a 2D discrete Fourier
// transform (rows then columns), and the spectrum is shifted so that the
// zero-frequency term sits at (width/2, height/2). Each magnitude is
// compressed as 20*log10(|F|+1) and the result scaled so the largest value is
// 255. The output is a single-channel grid the same size as the input.
//
// The computation is fully deterministic: the same input always yields the
// same output bytes.
func FrequencyMap(g *Grid) *Grid {
	gray := g.Gray()
	width, height := gray.Width, gray.Height

	spectrum := make([]complex128, width*height)
	for i, v := range gray.Pix {
		spectrum[i] = complex(v, 0)
	}
	fft2(spectrum, width, height)

	logMag := make([]float64, width*height)
	for y := 0; y < height; y++ {
		sy := (y + height/2) % height
		for x := 0; x < width; x++ {
			sx := (x + width/2) % width
			m := cmplx.Abs(spectrum[y*width+x])
			logMag[sy*width+sx] = 20 * math.Log10(m+1)
		}
	}

	out := NewGrid(width, height, 1)
	out.Pix = normalizeByMax(logMag)
	return out
}

// fft2 transforms data (row-major, width*height) in place.
func fft2(data []complex128, width, height int) {
	rows := fourier.NewCmplxFFT(width)
	in := make([]complex128, width)
	out := make([]complex128, width)
	for y := 0; y < height; y++ {
		row := data[y*width : (y+1)*width]
		copy(in, row)
		rows.Coefficients(out, in)
		copy(row, out)
	}

	cols := fourier.NewCmplxFFT(height)
	in = make([]complex128, height)
	out = make([]complex128, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			in[y] = data[y*width+x]
		}
		cols.Coefficients(out, in)
		for y := 0; y < height; y++ {
			data[y*width+x] = out[y]
		}
	}
}
