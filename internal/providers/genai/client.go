package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"photobooth/internal/infra"
)

// ErrMissingAPIKey indicates that neither the client nor the request carried credentials.
var ErrMissingAPIKey = errors.New("genai: api key is required")

// ErrTransport marks failures that happened before a response was read.
var ErrTransport = errors.New("genai: transport failure")

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client calls the Gemini generateContent endpoint for image edits.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// EditRequest is one image+prompt edit.
type EditRequest struct {
	// APIKey overrides the configured key; resolved per call by the caller.
	APIKey   string
	Prompt   string
	Image    []byte
	MimeType string
}

// EditResponse carries the first generated image, if any, plus any text the
// model returned instead.
type EditResponse struct {
	Image      []byte
	MimeType   string
	Text       string
	Candidates int
}

// APIError is a non-2xx answer from the Gemini API.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("genai: status %d: %s", e.Status, e.Message)
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a client with defaults for anything left empty.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// EditImage sends the image and prompt in a single user turn. A response
// without an image part is not an error; callers decide how to fall back.
func (c *Client) EditImage(ctx context.Context, req EditRequest) (*EditResponse, error) {
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(req.Image) == 0 {
		return nil, errors.New("genai: image is required")
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(req.Image)
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: strings.TrimSpace(req.Prompt)},
				{InlineData: &geminiInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(req.Image),
				}},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}

	var decoded geminiGenerateContentResponse
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	if err := c.invoke(ctx, endpoint, apiKey, payload, &decoded); err != nil {
		return nil, err
	}

	out := &EditResponse{Candidates: len(decoded.Candidates)}
	var texts []string
	for _, candidate := range decoded.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" && out.Image == nil {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					c.logger.Warn().Err(err).Msg("genai: skipping undecodable inline image")
					continue
				}
				out.Image = data
				out.MimeType = part.InlineData.MimeType
			}
			if t := strings.TrimSpace(part.Text); t != "" {
				texts = append(texts, t)
			}
		}
	}
	out.Text = strings.Join(texts, "\n")

	c.logger.Debug().
		Str("model", c.model).
		Int("candidates", out.Candidates).
		Bool("image", out.Image != nil).
		Msg("genai: edit completed")
	return out, nil
}

func (c *Client) invoke(ctx context.Context, endpoint, apiKey string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("genai: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("genai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("genai: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var detail geminiErrorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Error.Message != "" {
			apiErr.Code = detail.Error.Code
			apiErr.Message = detail.Error.Message
		}
		return apiErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("genai: decode response: %w", err)
	}
	return nil
}
