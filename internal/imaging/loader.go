package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

var (
	// ErrDecodeFailed is returned when no decode strategy yields a valid grid,
	// or when the file does not exist or cannot be read.
	ErrDecodeFailed = errors.New("decode failed")

	// ErrUnsupportedFormat is returned by a DecodeStrategy that cannot handle the
	// file's container format.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Dimensions holds the width and height of an image in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DecodeStrategy turns an image file into a decoded image.
//
// Implementations return an error wrapping ErrUnsupportedFormat when the file
// is simply not something they understand, and any other error when the file
// looked supported but could not be decoded.
type DecodeStrategy interface {
	Name() string
	Decode(path string) (image.Image, error)
}

// DefaultStrategies is the decode order used by NewDecoder: the signature
// based decoder first, then the generic registry decoder.
func DefaultStrategies() []DecodeStrategy {
	return []DecodeStrategy{SniffedDecoder{}, GenericDecoder{}}
}

// Decoder loads an image file into a Grid by trying its strategies in order.
type Decoder struct {
	strategies []DecodeStrategy
	logger     *slog.Logger
}

// NewDecoder creates a decoder. With no strategies it uses DefaultStrategies.
// A nil logger disables logging.
func NewDecoder(logger *slog.Logger, strategies ...DecodeStrategy) *Decoder {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Decoder{strategies: strategies, logger: logger}
}

// Decode loads path and returns its pixel grid along with the dimensions
// reported by the file header.
//
// The header dimensions are read with image.DecodeConfig independently of the
// pixel path. If the header cannot be parsed on its own (some containers only
// expose it through a full decode) the grid's own size is reported instead.
//
// # Errors
//
// A strategy that fails for any reason hands over to the next one. When the
// file does not exist or no strategy produces a non-empty grid, the error
// wraps ErrDecodeFailed and every strategy's failure.
func (d *Decoder) Decode(path string) (*Grid, Dimensions, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, Dimensions{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	var errs []error
	for _, s := range d.strategies {
		img, err := s.Decode(path)
		if err != nil {
			d.logger.Debug("decode strategy failed", "strategy", s.Name(), "path", path, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}

		grid := GridFromImage(img)
		if grid.Width == 0 || grid.Height == 0 {
			errs = append(errs, fmt.Errorf("%s: empty image", s.Name()))
			continue
		}

		dims, err := headerDimensions(path)
		if err != nil {
			d.logger.Debug("header dimensions unavailable", "path", path, "error", err)
			dims = grid.Dimensions()
		}
		d.logger.Debug("image decoded", "strategy", s.Name(), "width", dims.Width, "height", dims.Height, "channels", grid.Channels)
		return grid, dims, nil
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no decode strategies configured"))
	}
	return nil, Dimensions{}, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, path, errors.Join(errs...))
}

// Decode loads path with the default strategies.
func Decode(path string) (*Grid, Dimensions, error) {
	return NewDecoder(nil).Decode(path)
}

func headerDimensions(path string) (Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Dimensions{}, err
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// SniffedDecoder identifies the container from its magic bytes and calls the
// matching format decoder directly. Containers it does not recognise are
// reported as ErrUnsupportedFormat.
type SniffedDecoder struct{}

// Name implements DecodeStrategy.
func (SniffedDecoder) Name() string { return "sniffed" }

// Decode implements DecodeStrategy.
func (SniffedDecoder) Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	kind, err := SniffReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind image: %w", err)
	}

	var decode func(io.Reader) (image.Image, error)
	switch kind {
	case KindJPEG:
		decode = jpeg.Decode
	case KindPNG:
		decode = png.Decode
	case KindGIF:
		decode = gif.Decode
	case KindTIFF:
		decode = tiff.Decode
	case KindBMP:
		decode = bmp.Decode
	default:
		return nil, fmt.Errorf("%w: unrecognised signature", ErrUnsupportedFormat)
	}

	img, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", kind, err)
	}
	return img, nil
}

// GenericDecoder decodes through the image format registry, which also covers
// formats without a fixed leading signature such as WebP.
type GenericDecoder struct{}

// Name implements DecodeStrategy.
func (GenericDecoder) Name() string { return "generic" }

// Decode implements DecodeStrategy.
func (GenericDecoder) Decode(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
