package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"codemate/internal/config"
	"codemate/internal/conversation"
	"codemate/internal/logging"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
	geminiTimeout        = 2 * time.Minute
)

// GeminiClient talks to the Gemini generateContent REST API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGeminiClient builds a Gemini client from configuration.
func NewGeminiClient(cfg config.GeminiConfig) *GeminiClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: geminiTimeout},
		logger:     logging.Named("provider.gemini"),
	}
}

// Name implements Client.
func (c *GeminiClient) Name() string { return config.ProviderGemini }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents          []geminiContent       `json:"contents"`
	SystemInstruction *geminiContent        `json:"systemInstruction,omitempty"`
	SafetySettings    []geminiSafetySetting `json:"safetySettings,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

var geminiSafetySettings = []geminiSafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// GenerateContent implements Client.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	return c.call(ctx, "generateContent", req)
}

// GenerateChatContent implements Client. The system message becomes the
// systemInstruction; assistant turns map to the "model" role.
func (c *GeminiClient) GenerateChatContent(ctx context.Context, messages []conversation.Message) (string, error) {
	req := geminiRequest{SafetySettings: geminiSafetySettings}
	for _, m := range messages {
		switch m.Role {
		case conversation.RoleSystem:
			req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
		case conversation.RoleAssistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(req.Contents) == 0 {
		return "", nil
	}
	return c.call(ctx, "generateContent", req)
}

// CheckConnection implements Client. A lightweight countTokens request
// validates both reachability and the API key.
func (c *GeminiClient) CheckConnection(ctx context.Context) bool {
	body := map[string]any{
		"contents": []geminiContent{{Parts: []geminiPart{{Text: "test"}}}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return false
	}
	url := fmt.Sprintf("%s/models/%s:countTokens?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("connection check failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *GeminiClient) call(ctx context.Context, method string, req geminiRequest) (string, error) {
	if c.apiKey == "" {
		return "", &Error{Provider: c.Name(), Err: fmt.Errorf("api key not configured")}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", &Error{Provider: c.Name(), Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	url := fmt.Sprintf("%s/models/%s:%s?key=%s", c.baseURL, c.model, method, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Provider: c.Name(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &Error{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Provider: c.Name(), Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &Error{Provider: c.Name(), Err: fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)}
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = fmt.Sprintf("status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", &Error{Provider: c.Name(), Err: fmt.Errorf("%s", msg)}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Provider: c.Name(), Err: fmt.Errorf("empty response")}
	}

	c.logger.Debug("gemini call completed",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)))
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
