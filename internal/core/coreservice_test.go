package core

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/asampayo00/plus/internal/genai"
	"github.com/asampayo00/plus/internal/history"
)

type stubGenerator struct {
	part *genai.ImagePart
	err  error

	calls int
}

func (s *stubGenerator) StylizeImage(ctx context.Context, mimeType string, data []byte, prompt string) (*genai.ImagePart, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.part, nil
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

func testConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:           8080,
		Model:          DefaultModel,
		Styles:         []string{"watercolor", "pop art"},
		ThumbnailWidth: 8,
	}
}

func newTestService(t *testing.T, generator Generator, withHistory bool) *CoreService {
	t.Helper()
	var store history.Store
	if withHistory {
		var err error
		store, err = history.NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("failed to create history store: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
	}

	service, err := NewCoreService(testConfig(), generator, store)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	return service
}

func TestCoreService_GenerateWithoutUpload(t *testing.T) {
	generator := &stubGenerator{}
	service := newTestService(t, generator, false)

	_, err := service.Generate(context.Background(), "watercolor")
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if generator.calls != 0 {
		t.Errorf("the remote call must not be made without an upload")
	}
}

func TestCoreService_GenerateUnknownStyle(t *testing.T) {
	service := newTestService(t, &stubGenerator{}, false)
	service.Workflow().SetUpload("image/png", testPNG(t, 4, 4))

	if _, err := service.Generate(context.Background(), "vaporwave"); err == nil {
		t.Fatalf("expected error for unknown style")
	}
	if service.Workflow().State().Phase == PhaseLoading {
		t.Errorf("loading must not be entered for an unknown style")
	}
}

func TestCoreService_GenerateSuccess(t *testing.T) {
	resultPNG := testPNG(t, 4, 4)
	generator := &stubGenerator{part: &genai.ImagePart{MimeType: "image/png", Data: resultPNG}}
	service := newTestService(t, generator, true)
	service.Workflow().SetUpload("image/png", testPNG(t, 4, 4))

	result, err := service.Generate(context.Background(), "watercolor")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if !bytes.Equal(result.Data, resultPNG) {
		t.Errorf("expected the returned image part to become the result")
	}
	if result.Style != "watercolor" {
		t.Errorf("expected style watercolor, got %s", result.Style)
	}
	if service.Workflow().State().Phase != PhaseSuccess {
		t.Errorf("expected success phase, got %s", service.Workflow().State().Phase)
	}

	records, err := service.History().ListRecords()
	if err != nil {
		t.Fatalf("ListRecords error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(records))
	}
	if records[0].Style != "watercolor" {
		t.Errorf("expected recorded style watercolor, got %s", records[0].Style)
	}
}

func TestCoreService_GenerateFailureCollapsed(t *testing.T) {
	// A transport failure and a response without image data surface as
	// the same error class
	for name, generatorErr := range map[string]error{
		"transport": errors.New("connection refused"),
		"no image":  genai.ErrNoImage,
	} {
		t.Run(name, func(t *testing.T) {
			generator := &stubGenerator{err: generatorErr}
			service := newTestService(t, generator, false)
			service.Workflow().SetUpload("image/png", testPNG(t, 4, 4))

			_, err := service.Generate(context.Background(), "watercolor")
			if !errors.Is(err, ErrGenerationFailed) {
				t.Fatalf("expected ErrGenerationFailed, got %v", err)
			}
			if service.Workflow().State().Phase != PhaseFailure {
				t.Errorf("expected failure phase, got %s", service.Workflow().State().Phase)
			}
			if service.Workflow().Result() != nil {
				t.Errorf("a failed attempt must never leave a rendered result")
			}
		})
	}
}

func TestCoreService_PostProcessingNormalizesToPNG(t *testing.T) {
	config := testConfig()
	config.PostProcessors = []CommandConfig{{Name: "PngConverterCommand"}}

	generator := &stubGenerator{part: &genai.ImagePart{MimeType: "image/jpeg", Data: testJPEG(t, 4, 4)}}
	service, err := NewCoreService(config, generator, nil)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	service.Workflow().SetUpload("image/png", testPNG(t, 4, 4))

	result, err := service.Generate(context.Background(), "watercolor")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if result.MimeType != "image/png" {
		t.Errorf("expected normalized mime image/png, got %s", result.MimeType)
	}
	if _, err := png.Decode(bytes.NewReader(result.Data)); err != nil {
		t.Errorf("expected result to decode as PNG: %v", err)
	}
}

func TestCoreService_Thumbnail(t *testing.T) {
	service := newTestService(t, &stubGenerator{}, false)

	thumbnail, err := service.Thumbnail(testPNG(t, 64, 32))
	if err != nil {
		t.Fatalf("Thumbnail error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(thumbnail))
	if err != nil {
		t.Fatalf("failed to decode thumbnail: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("expected thumbnail width 8, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 4 {
		t.Errorf("expected aspect-preserving height 4, got %d", img.Bounds().Dy())
	}
}

func TestCoreService_HasStyle(t *testing.T) {
	service := newTestService(t, &stubGenerator{}, false)
	if !service.HasStyle("watercolor") {
		t.Errorf("expected watercolor to be in the catalog")
	}
	if service.HasStyle("vaporwave") {
		t.Errorf("expected vaporwave to be absent from the catalog")
	}
}
