package imaging

import (
	"errors"
	"testing"
)

func TestHeightmap_UniformImage(t *testing.T) {
	out, info, err := Heightmap(createGrayGrid(100, 100, 128))
	if err != nil {
		t.Fatalf("Heightmap: %v", err)
	}

	if info.Width != 50 || info.Height != 50 {
		t.Errorf("size: got %dx%d, want 50x50", info.Width, info.Height)
	}
	if info.OriginalSize != (Dimensions{Width: 100, Height: 100}) {
		t.Errorf("original size: got %+v", info.OriginalSize)
	}
	if info.MinValue != info.MaxValue || info.MeanValue != info.MinValue {
		t.Errorf("stats should coincide: min=%v max=%v mean=%v", info.MinValue, info.MaxValue, info.MeanValue)
	}
	if out.Width != 50 || out.Height != 50 || out.Channels != 3 {
		t.Errorf("visualisation: got %dx%dx%d, want 50x50x3", out.Width, out.Height, out.Channels)
	}
}

func TestHeightmap_OddDimensions(t *testing.T) {
	_, info, err := Heightmap(createStepGrid(11, 7))
	if err != nil {
		t.Fatalf("Heightmap: %v", err)
	}
	if info.Width != 5 || info.Height != 3 {
		t.Errorf("size: got %dx%d, want 5x3", info.Width, info.Height)
	}
	if len(info.Data) != 3 {
		t.Fatalf("rows: got %d, want 3", len(info.Data))
	}
	for y, row := range info.Data {
		if len(row) != 5 {
			t.Fatalf("row %d: got %d values, want 5", y, len(row))
		}
	}
}

func TestHeightmap_ValueRange(t *testing.T) {
	_, info, err := Heightmap(createStepGrid(40, 40))
	if err != nil {
		t.Fatalf("Heightmap: %v", err)
	}

	if !(info.MinValue <= info.MeanValue && info.MeanValue <= info.MaxValue) {
		t.Errorf("min <= mean <= max violated: %v %v %v", info.MinValue, info.MeanValue, info.MaxValue)
	}
	if info.MinValue < 0 || info.MaxValue > 1 {
		t.Errorf("range: got [%v, %v], want within [0, 1]", info.MinValue, info.MaxValue)
	}
	if info.Data[10][0] >= info.Data[10][19] {
		t.Errorf("dark side should be lower than bright side: %v vs %v", info.Data[10][0], info.Data[10][19])
	}
}

func TestHeightmap_TooSmall(t *testing.T) {
	tests := []struct{ w, h int }{{1, 1}, {1, 10}, {10, 1}}
	for _, tt := range tests {
		if _, _, err := Heightmap(createGrayGrid(tt.w, tt.h, 50)); !errors.Is(err, ErrTransformFailed) {
			t.Errorf("%dx%d: got %v, want ErrTransformFailed", tt.w, tt.h, err)
		}
	}

	if _, info, err := Heightmap(createGrayGrid(2, 2, 50)); err != nil || info.Width != 1 || info.Height != 1 {
		t.Errorf("2x2: got %+v, %v; want a 1x1 heightmap", info, err)
	}
}

func TestGaussianKernel5_Normalized(t *testing.T) {
	k := gaussianKernel5()
	if k.MaxX() != 5 || k.MaxY() != 5 {
		t.Fatalf("kernel size: got %dx%d, want 5x5", k.MaxX(), k.MaxY())
	}
	sum := 0.0
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			sum += k.At(x, y)
		}
	}
	if sum < 0.999999 || sum > 1.000001 {
		t.Errorf("kernel sum: got %v, want 1", sum)
	}
	if k.At(2, 2) != 36.0/256 {
		t.Errorf("centre weight: got %v, want %v", k.At(2, 2), 36.0/256)
	}
}
