// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai provides the Google Gemini REST client used for image
// generation, search grounding, and prompt enhancement
// (POST /v1beta/models/{model}:generateContent).
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"thumbforge/internal/models"
)

var (
	// ErrOverloaded signals a transient provider overload (HTTP 503 or an
	// explicit "overloaded" response). Callers may retry with backoff;
	// every other error class is fatal.
	ErrOverloaded = errors.New("gemini: model overloaded")

	// ErrNoImage signals a transport-successful call that produced no
	// extractable image part. Distinct from overload by design.
	ErrNoImage = errors.New("gemini: no image data in response")
)

// Config holds the Gemini credentials and model selection.
type Config struct {
	APIKey     string
	BaseURL    string
	ImageModel string // e.g. "gemini-3-pro-image-preview"
	TextModel  string // e.g. "gemini-3-flash-preview"
}

// Client is a Gemini REST API client.
type Client struct {
	config Config
	client *http.Client
}

// NewClient creates a Gemini client. Image generation calls get a longer
// timeout than text calls via a dedicated HTTP client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// GroundingResult is the outcome of a search-grounded summary call.
type GroundingResult struct {
	Text  string
	Links []models.GroundingLink
}

// GenerateImage sends the composed instruction and reference payloads to
// the image model and returns the raw bytes of the first inline image in
// the response. The aspect ratio and resolution tier are passed as
// generation parameters.
func (c *Client) GenerateImage(ctx context.Context, instruction string, referenceImages [][]byte, aspectRatio models.AspectRatio, size models.Size) ([]byte, error) {
	parts := []geminiPart{{Text: instruction}}
	for _, img := range referenceImages {
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{
				MimeType: "image/jpeg",
				Data:     base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	body := geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			ImageConfig: &geminiImageConfig{
				AspectRatio: string(aspectRatio),
				ImageSize:   string(size),
			},
		},
	}

	result, err := c.generateContent(ctx, c.config.ImageModel, body)
	if err != nil {
		return nil, err
	}

	// Scan for the first part carrying inline image data.
	for _, cand := range result.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				imgBytes, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("gemini image decode base64: %w", err)
				}
				return imgBytes, nil
			}
		}
	}

	return nil, ErrNoImage
}

// SearchGrounding fetches a short, current-information summary and source
// links for the query via a search-enabled generateContent call.
func (c *Client) SearchGrounding(ctx context.Context, query string) (*GroundingResult, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{
			Text: fmt.Sprintf("Get the latest information and trending facts about: %s. Summarize it briefly for a content creator context.", query),
		}}}},
		Tools: []geminiTool{{GoogleSearch: &struct{}{}}},
	}

	result, err := c.generateContent(ctx, c.config.TextModel, body)
	if err != nil {
		return nil, err
	}
	if len(result.Candidates) == 0 {
		return nil, fmt.Errorf("gemini grounding: no candidates returned")
	}

	out := &GroundingResult{}
	cand := result.Candidates[0]
	for _, part := range cand.Content.Parts {
		if part.Text != "" {
			out.Text = part.Text
			break
		}
	}

	// Collect web sources, dropping empty chunks and duplicate URIs while
	// preserving order.
	seen := make(map[string]bool)
	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
				continue
			}
			seen[chunk.Web.URI] = true
			out.Links = append(out.Links, models.GroundingLink{
				Title: chunk.Web.Title,
				URI:   chunk.Web.URI,
			})
		}
	}

	return out, nil
}

// EnhancePrompt expands a terse scene idea into a detailed image prompt
// using the text model. On any failure the caller should fall back to the
// original prompt.
func (c *Client) EnhancePrompt(ctx context.Context, original string) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{
			Text: fmt.Sprintf(`You are a professional image prompt engineer. Expand the following simple idea into a vivid, descriptive, and highly detailed image generation prompt. Focus on lighting, textures, composition, and mood. Keep it under 60 words.
User Idea: %q`, original),
		}}}},
	}

	result, err := c.generateContent(ctx, c.config.TextModel, body)
	if err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("gemini enhance: no candidates returned")
	}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			return strings.TrimSpace(part.Text), nil
		}
	}
	return "", fmt.Errorf("gemini enhance: no text in response")
}

// generateContent performs one generateContent call and decodes the
// response, classifying transient overload separately from other failures.
func (c *Client) generateContent(ctx context.Context, model string, body geminiRequest) (*geminiResponse, error) {
	if model == "" {
		return nil, fmt.Errorf("gemini: model is not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini marshal: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.config.BaseURL, model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		lower := strings.ToLower(string(respBody))
		if resp.StatusCode == http.StatusServiceUnavailable ||
			strings.Contains(lower, "overloaded") || strings.Contains(lower, "unavailable") {
			return nil, fmt.Errorf("gemini API (status %d): %w", resp.StatusCode, ErrOverloaded)
		}
		return nil, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("gemini unmarshal: %w", err)
	}
	return &result, nil
}

// --- Gemini API types ---

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type geminiGenerationConfig struct {
	ImageConfig *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
	Tools            []geminiTool            `json:"tools,omitempty"`
}

type geminiWebSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type geminiGroundingChunk struct {
	Web *geminiWebSource `json:"web,omitempty"`
}

type geminiGroundingMetadata struct {
	GroundingChunks []geminiGroundingChunk `json:"groundingChunks"`
}

type geminiCandidate struct {
	Content           geminiContent            `json:"content"`
	GroundingMetadata *geminiGroundingMetadata `json:"groundingMetadata,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}
