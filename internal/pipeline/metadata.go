package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/image-transform-cli/internal/imaging"
)

// Metadata describes one completed run. It is assembled once, after the
// pacing floor, and not modified afterwards.
//
// The heightmap fields are only present for the 3d transform.
type Metadata struct {
	Input                 string             `json:"input"`
	Output                string             `json:"output"`
	Type                  imaging.Mode       `json:"type"`
	OriginalSize          imaging.Dimensions `json:"original_size"`
	ProcessingTimeSeconds float64            `json:"processing_time_seconds"`

	Width             *int     `json:"width,omitempty"`
	Height            *int     `json:"height,omitempty"`
	MinValue          *float64 `json:"min_value,omitempty"`
	MaxValue          *float64 `json:"max_value,omitempty"`
	MeanValue         *float64 `json:"mean_value,omitempty"`
	HeightmapDataFile string   `json:"heightmap_data_file,omitempty"`
}

func (m *Metadata) addHeightmap(info *imaging.HeightmapInfo, dataFile string) {
	w, h := info.Width, info.Height
	minV, maxV, meanV := info.MinValue, info.MaxValue, info.MeanValue
	m.Width = &w
	m.Height = &h
	m.MinValue = &minV
	m.MaxValue = &maxV
	m.MeanValue = &meanV
	m.HeightmapDataFile = dataFile
}

// SidecarPath returns the heightmap side-car path for an output image:
// the image extension is replaced by "_heightmap.json".
func SidecarPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + "_heightmap.json"
}

// WriteMetadata writes md as indented JSON to path.
func WriteMetadata(path string, md *Metadata) error {
	return writeJSON(path, md)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal %s: %w", ErrWriteFailed, filepath.Base(path), err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
