package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/ragqa/server/internal/agent/model"
	logx "github.com/ragqa/server/pkg/logger"
)

// ClientConfig holds the configuration for the Gemini API client
type ClientConfig struct {
	APIKey  string
	BaseURL string
}

// NewClient creates the Gemini client shared by the chat model and the embedders.
func NewClient(ctx context.Context, config ClientConfig) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewReasoningChatModel creates the chat model used by the reason node.
func NewReasoningChatModel(ctx context.Context, client *genai.Client, config model.ReasoningModelConfig) (*gemini.ChatModel, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini client is nil")
	}

	temperature := config.Temperature
	maxTokens := config.MaxTokens
	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating reasoning model")
		return nil, fmt.Errorf("error creating reasoning model: %w", err)
	}

	logx.Debug().Str("model", config.Model).Msg("Reasoning model ready")
	return chatModel, nil
}
