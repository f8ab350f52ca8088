package ollama

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/image-ocr/pkg/processing"
	"github.com/menta2k/image-ocr/pkg/transcription"
	"github.com/menta2k/image-ocr/pkg/types"
)

// DefaultModel is a vision model with usable Japanese OCR
const DefaultModel = "qwen2.5vl:7b"

// Client recognizes text through an Ollama vision model
type Client struct {
	client    *api.Client
	model     string
	encoding  processing.ModelEncoding
	timeout   time.Duration
	processor *processing.Processor
}

// Option configures a Client
type Option func(*Client)

// WithEncoding sets how images are encoded before upload
func WithEncoding(enc processing.ModelEncoding) Option {
	return func(c *Client) { c.encoding = enc }
}

// WithTimeout bounds each request when the caller's context has no deadline
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a new Ollama client
func NewClient(ollamaURL, model string, opts ...Option) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs scheme and host", ollamaURL)
	}

	// Drop any path such as /api/chat; the SDK adds its own
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	if model == "" {
		model = DefaultModel
	}

	c := &Client{
		client:    api.NewClient(baseURL, http.DefaultClient),
		model:     model,
		encoding:  processing.DefaultModelEncoding(),
		timeout:   300 * time.Second,
		processor: processing.NewProcessor(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "ollama" }

// Recognize transcribes the text in img, one fragment per line
func (c *Client) Recognize(ctx context.Context, img image.Image, opts types.RecognitionOptions) ([]types.Fragment, error) {
	options := map[string]any{"temperature": 0}
	if opts.Mode == types.ModeFast {
		options["num_predict"] = 1024
	}

	content, err := c.chat(ctx, transcription.Prompt(opts), img, options)
	if err != nil {
		return nil, err
	}
	return transcription.ParseLines(content)
}

// SimpleQuery sends a free-form prompt with an image and returns the raw reply
func (c *Client) SimpleQuery(ctx context.Context, prompt string, img image.Image) (string, error) {
	return c.chat(ctx, prompt, img, nil)
}

func (c *Client) chat(ctx context.Context, prompt string, img image.Image, options map[string]any) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	imgBytes, err := c.processor.EncodeForModel(img, c.encoding.Format, c.encoding.MaxDim, c.encoding.Quality)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream:  &streamFalse,
		Options: options,
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}

	return responseContent, nil
}
