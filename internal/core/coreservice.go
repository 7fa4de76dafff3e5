package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/asampayo00/plus/internal/genai"
	"github.com/asampayo00/plus/internal/history"
	"github.com/asampayo00/plus/internal/imaging"
)

// stylePromptTemplate is the fixed instruction sent alongside the image;
// the user-chosen style label is interpolated into it.
const stylePromptTemplate = "Transform this image into a %s style."

// Generator is the remote image-generation call: one image plus one text
// instruction in, the first image-bearing response part out.
type Generator interface {
	StylizeImage(ctx context.Context, mimeType string, data []byte, prompt string) (*genai.ImagePart, error)
}

type CoreService struct {
	config         *ServiceConfig
	workflow       *Workflow
	generator      Generator
	historyStore   history.Store
	postProcessors []imaging.Command
	thumbnailScale imaging.Command
	pngConverter   imaging.Command
}

func NewCoreService(config *ServiceConfig, generator Generator, store history.Store) (*CoreService, error) {
	postProcessors, err := buildCommands(config.PostProcessors)
	if err != nil {
		return nil, fmt.Errorf("failed to build post-processing pipeline: %w", err)
	}

	thumbnailScale, err := imaging.NewPixelScaleCommand(map[string]any{"width": config.ThumbnailWidth})
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail command: %w", err)
	}
	pngConverter, err := imaging.NewPngConverterCommand(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create png converter: %w", err)
	}

	return &CoreService{
		config:         config,
		workflow:       NewWorkflow(),
		generator:      generator,
		historyStore:   store,
		postProcessors: postProcessors,
		thumbnailScale: thumbnailScale,
		pngConverter:   pngConverter,
	}, nil
}

func buildCommands(configs []CommandConfig) ([]imaging.Command, error) {
	commands := make([]imaging.Command, 0, len(configs))
	for _, cfg := range configs {
		command, err := imaging.DefaultRegistry.Create(cfg.Name, cfg.Params)
		if err != nil {
			return nil, err
		}
		commands = append(commands, command)
	}
	return commands, nil
}

func (service *CoreService) Workflow() *Workflow {
	return service.workflow
}

func (service *CoreService) History() history.Store {
	return service.historyStore
}

func (service *CoreService) Styles() []string {
	return service.config.Styles
}

// HasStyle reports whether the label is part of the configured catalog.
func (service *CoreService) HasStyle(style string) bool {
	for _, s := range service.config.Styles {
		if s == style {
			return true
		}
	}
	return false
}

// Generate runs one stylization attempt: workflow guard, remote call,
// post-processing, history record. Transport errors and responses
// without image data are both surfaced as ErrGenerationFailed.
func (service *CoreService) Generate(ctx context.Context, style string) (*StylizedResult, error) {
	if !service.HasStyle(style) {
		return nil, fmt.Errorf("unknown style: %s", style)
	}

	upload, err := service.workflow.Begin()
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(stylePromptTemplate, style)
	part, err := service.generator.StylizeImage(ctx, upload.MimeType, upload.Data, prompt)
	if err != nil {
		failure := fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		service.workflow.Fail(failure)
		slog.Error("generation failed", "style", style, "error", err)
		return nil, failure
	}

	data := part.Data
	mimeType := part.MimeType
	for _, command := range service.postProcessors {
		data, err = command.Execute(data)
		if err != nil {
			failure := fmt.Errorf("%w: %v", ErrGenerationFailed, err)
			service.workflow.Fail(failure)
			slog.Error("post-processing failed", "command", command.Name(), "error", err)
			return nil, failure
		}
	}
	if len(service.postProcessors) > 0 {
		// Post-processing may have changed the container format
		mimeType = http.DetectContentType(data)
	}

	result := &StylizedResult{
		MimeType:  mimeType,
		Data:      data,
		Style:     style,
		CreatedAt: time.Now().UTC(),
	}
	service.workflow.Complete(result)

	if service.historyStore != nil {
		if _, err := service.historyStore.CreateRecord(style, upload.MimeType, mimeType, data); err != nil {
			// History is best effort; the result itself already succeeded
			slog.Error("failed to record generation", "style", style, "error", err)
		}
	}

	return result, nil
}

// Thumbnail produces a PNG preview scaled to the configured width.
func (service *CoreService) Thumbnail(imageData []byte) ([]byte, error) {
	normalized, err := service.pngConverter.Execute(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize image for thumbnail: %w", err)
	}
	thumbnail, err := service.thumbnailScale.Execute(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail: %w", err)
	}
	return thumbnail, nil
}

func (service *CoreService) Close() error {
	if service.historyStore != nil {
		return service.historyStore.Close()
	}
	return nil
}
