package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/image-eraser/pkg/client"
	"github.com/menta2k/image-eraser/pkg/types"
)

// DefaultTimeout applies when the caller's context has no deadline.
// Vision models on CPU routinely take minutes per image.
const DefaultTimeout = 300 * time.Second

var _ client.VisionClient = (*Client)(nil)

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
}

// NewClient creates a new Ollama client
func NewClient(ollamaURL string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs scheme and host", ollamaURL)
	}

	// Keep only scheme and host, dropping paths like /api/chat
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	// Use the given URL, ignoring OLLAMA_HOST
	return &Client{client: api.NewClient(baseURL, http.DefaultClient)}, nil
}

// SimpleQuery performs a simple query with an image without expecting JSON
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	req, err := newChatRequest(model, prompt, imgB64)
	if err != nil {
		return "", err
	}
	return c.chat(ctx, req)
}

// AnalyzeImage asks the model for the objects in an image
func (c *Client) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.DetectionReport, error) {
	req, err := newChatRequest(model, prompt, imgB64)
	if err != nil {
		return nil, err
	}
	req.Format = json.RawMessage(`"json"`)
	req.Options = modelOptions(model)

	content, err := c.chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}
	return client.ParseReport(content)
}

func (c *Client) chat(ctx context.Context, req *api.ChatRequest) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	var sb strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	return sb.String(), nil
}

func newChatRequest(model, prompt, imgB64 string) (*api.ChatRequest, error) {
	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	stream := false
	return &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream: &stream,
	}, nil
}

// modelOptions returns sampling options tuned per model family.
func modelOptions(model string) map[string]any {
	m := strings.ToLower(model)
	if strings.Contains(m, "minicpm-v4") ||
		strings.Contains(m, "minicpm-v-4") ||
		strings.Contains(m, "minicpmv4") {
		return map[string]any{"temperature": 0.7, "top_p": 0.8, "num_ctx": 4096}
	}
	// low temperature keeps box coordinates stable between runs
	return map[string]any{"temperature": 0.2}
}
