package imaging

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidMode is returned for a transform selector other than the
	// supported modes.
	ErrInvalidMode = errors.New("invalid transform mode")

	// ErrTransformFailed is returned when a transform cannot process a grid,
	// for example an empty grid or one too small to downsample.
	ErrTransformFailed = errors.New("transform failed")
)

// Mode selects one of the image transforms.
type Mode string

const (
	ModeEdge      Mode = "edge"
	ModeFrequency Mode = "fft"
	ModeHeightmap Mode = "3d"
)

// Modes lists the supported transform selectors in display order.
var Modes = []Mode{ModeEdge, ModeFrequency, ModeHeightmap}

// Description returns a short human-readable name for the mode.
func (m Mode) Description() string {
	switch m {
	case ModeEdge:
		return "edge detection (Canny + Sobel)"
	case ModeFrequency:
		return "FFT magnitude spectrum"
	case ModeHeightmap:
		return "3D heightmap"
	default:
		return "unknown"
	}
}

// ParseMode validates a transform selector.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.TrimSpace(s))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", ErrInvalidMode, s, modeList())
}

func modeList() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// Result is the output of a transform.
type Result struct {
	// Mode is the transform that produced the result.
	Mode Mode

	// Output is the image to write: one channel for edge and fft, three
	// (jet-coloured) for the heightmap.
	Output *Grid

	// Heightmap is set only for ModeHeightmap.
	Heightmap *HeightmapInfo
}

// Transform applies the selected transform to g. It performs no I/O and does
// not modify g.
func Transform(mode Mode, g *Grid) (*Result, error) {
	if g == nil || g.Width == 0 || g.Height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrTransformFailed)
	}

	switch mode {
	case ModeEdge:
		return &Result{Mode: mode, Output: EdgeMap(g)}, nil
	case ModeFrequency:
		return &Result{Mode: mode, Output: FrequencyMap(g)}, nil
	case ModeHeightmap:
		out, info, err := Heightmap(g)
		if err != nil {
			return nil, err
		}
		return &Result{Mode: mode, Output: out, Heightmap: info}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, string(mode))
	}
}
