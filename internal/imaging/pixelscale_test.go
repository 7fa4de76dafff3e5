package imaging

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func decodePNGSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode PNG output: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestPixelScale_WidthOnlyPreservesAspectRatio(t *testing.T) {
	command, err := NewPixelScaleCommand(map[string]any{"width": 32})
	if err != nil {
		t.Fatalf("NewPixelScaleCommand error: %v", err)
	}

	input := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 64, 32)))
	output, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	w, h := decodePNGSize(t, output)
	if w != 32 || h != 16 {
		t.Errorf("expected 32x16 output, got %dx%d", w, h)
	}
}

func TestPixelScale_HeightOnlyPreservesAspectRatio(t *testing.T) {
	command, err := NewPixelScaleCommand(map[string]any{"height": 10})
	if err != nil {
		t.Fatalf("NewPixelScaleCommand error: %v", err)
	}

	input := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 40, 20)))
	output, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	w, h := decodePNGSize(t, output)
	if w != 20 || h != 10 {
		t.Errorf("expected 20x10 output, got %dx%d", w, h)
	}
}

func TestPixelScale_BothDimensions(t *testing.T) {
	command, err := NewPixelScaleCommand(map[string]any{"width": 5, "height": 7})
	if err != nil {
		t.Fatalf("NewPixelScaleCommand error: %v", err)
	}

	input := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 64, 64)))
	output, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	w, h := decodePNGSize(t, output)
	if w != 5 || h != 7 {
		t.Errorf("expected 5x7 output, got %dx%d", w, h)
	}
}

func TestNewPixelScaleParamsFromMap_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
	}{
		{"width only", map[string]any{"width": 100}, false},
		{"height only", map[string]any{"height": 100}, false},
		{"both dimensions", map[string]any{"width": 100, "height": 50}, false},
		{"no dimensions", map[string]any{}, true},
		{"zero width", map[string]any{"width": 0}, true},
		{"negative height", map[string]any{"height": -5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPixelScaleParamsFromMap(tt.params)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for params %v", tt.params)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for params %v: %v", tt.params, err)
			}
		})
	}
}

func TestPixelScale_UndecodableInput(t *testing.T) {
	command, err := NewPixelScaleCommand(map[string]any{"width": 10})
	if err != nil {
		t.Fatalf("NewPixelScaleCommand error: %v", err)
	}

	if _, err := command.Execute([]byte("definitely not an image")); err == nil {
		t.Fatalf("expected error for undecodable input")
	}
}
