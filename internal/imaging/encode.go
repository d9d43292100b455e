package imaging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Save encodes g to path, choosing the format from the file extension
// (.jpg, .jpeg, .png, .gif, .tif, .tiff, .bmp). Missing parent directories
// are created. JPEG output uses quality 95.
func Save(g *Grid, path string) error {
	if err := CheckOutputPath(path); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := imaging.Save(g.Image(), path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// CheckOutputPath reports whether Save can encode to path, judged by its
// extension alone.
func CheckOutputPath(path string) error {
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return fmt.Errorf("cannot encode %s: %w", filepath.Base(path), err)
	}
	return nil
}
