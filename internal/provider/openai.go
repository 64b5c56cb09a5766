package provider

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"codemate/internal/config"
	"codemate/internal/conversation"
	"codemate/internal/logging"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint,
// including self-hosted vLLM servers via a BaseURL override.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIClient builds an OpenAI-compatible client from configuration.
func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logging.Named("provider.openai"),
	}
}

// Name implements Client.
func (c *OpenAIClient) Name() string { return config.ProviderOpenAI }

// GenerateContent implements Client.
func (c *OpenAIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return c.GenerateChatContent(ctx, []conversation.Message{
		{Role: conversation.RoleUser, Content: prompt},
	})
}

// GenerateChatContent implements Client.
func (c *OpenAIClient) GenerateChatContent(ctx context.Context, messages []conversation.Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", &Error{Provider: c.Name(), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Provider: c.Name(), Err: errEmptyResponse}
	}

	c.logger.Debug("chat completion finished",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return resp.Choices[0].Message.Content, nil
}

// CheckConnection implements Client.
func (c *OpenAIClient) CheckConnection(ctx context.Context) bool {
	_, err := c.client.ListModels(ctx)
	if err != nil {
		c.logger.Debug("connection check failed", zap.Error(err))
		return false
	}
	return true
}
