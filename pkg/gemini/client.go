// Package gemini is a Google Gemini vision backend.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/menta2k/image-eraser/pkg/client"
	"github.com/menta2k/image-eraser/pkg/types"
)

var _ client.VisionClient = (*Client)(nil)

// Client is a Gemini provider
type Client struct {
	apiKey      string
	temperature float32
}

// NewClient returns a Gemini client. An empty apiKey falls back to GEMINI_API_KEY.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return &Client{apiKey: apiKey, temperature: 0.2}, nil
}

// SimpleQuery sends a prompt with an image and returns the reply text
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return c.generate(ctx, model, prompt, imgB64, false)
}

// AnalyzeImage asks the model for the objects in an image
func (c *Client) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.DetectionReport, error) {
	text, err := c.generate(ctx, model, prompt, imgB64, true)
	if err != nil {
		return nil, err
	}
	return client.ParseReport(text)
}

func (c *Client) generate(ctx context.Context, modelName, prompt, imgB64 string, jsonOut bool) (string, error) {
	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 image: %w", err)
	}

	gc, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer gc.Close()

	model := gc.GenerativeModel(modelName)
	model.SetTemperature(c.temperature)
	if jsonOut {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.ImageData(imageFormat(imgBytes), imgBytes), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}
	return sb.String(), nil
}

// imageFormat sniffs the short format name genai.ImageData expects
func imageFormat(data []byte) string {
	switch {
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return "png"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "webp"
	default:
		return "jpeg"
	}
}
