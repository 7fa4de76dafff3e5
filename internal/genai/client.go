// Package genai is a minimal REST client for the Gemini generateContent
// endpoint, scoped to image-to-image stylization: one inline image part
// plus one text instruction in, the first image-bearing part out.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNoImage indicates the model responded without any inline image part.
var ErrNoImage = errors.New("genai: response did not include an image part")

type Client struct {
	APIKey  string
	Model   string
	BaseURL string

	HTTPClient *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		APIKey: apiKey,
		Model:  model,
	}
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("genai: api key is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("genai: model is required")
	}
	return nil
}

// StylizeImage sends one image and one text instruction to the model,
// requesting both image and text response modalities, and returns the
// first inline image part of the response in order. Text parts are
// ignored; a response with no inline part fails with ErrNoImage.
func (c *Client) StylizeImage(ctx context.Context, mimeType string, data []byte, prompt string) (*ImagePart, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("genai: image data is required")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("genai: prompt is required")
	}

	request := &generateContentRequest{
		Contents: []Content{{
			Parts: []Part{
				{InlineData: &InlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	response, err := c.postGenerateContent(ctx, request)
	if err != nil {
		return nil, err
	}

	return firstImagePart(response)
}

func (c *Client) postGenerateContent(ctx context.Context, request *generateContentRequest) (*generateContentResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("genai: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(c.baseURL(), "/"), c.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("genai: build request: %w", err)
	}

	httpReq.Header.Set("x-goog-api-key", c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("genai: request failed: %w", err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(httpResp)
	}

	var response generateContentResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("genai: decode response: %w", err)
	}

	return &response, nil
}

func decodeAPIError(resp *http.Response) error {
	var apiErr apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error.Message == "" {
		return fmt.Errorf("genai: request failed with status %d", resp.StatusCode)
	}
	return fmt.Errorf("genai: request failed with status %d: %s", resp.StatusCode, apiErr.Error.Message)
}

// firstImagePart scans candidates and their parts in response order and
// decodes the first part carrying inline data.
func firstImagePart(response *generateContentResponse) (*ImagePart, error) {
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("genai: decode inline image data: %w", err)
			}
			return &ImagePart{
				MimeType: part.InlineData.MimeType,
				Data:     decoded,
			}, nil
		}
	}
	return nil, ErrNoImage
}
