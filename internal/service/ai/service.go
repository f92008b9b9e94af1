// Package ai selects and wraps the configured chat-model provider.
package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"convorag/internal/config"
)

// ChatModel is the text-generation surface the pipelines depend on; tests
// substitute a fake.
type ChatModel interface {
	Generate(ctx context.Context, messages []*schema.Message) (string, error)
}

// Service wraps one provider-specific eino chat model.
type Service struct {
	chatModel model.BaseChatModel
	provider  string
}

// NewService builds the chat model for the configured provider.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	provider := cfg.BasicConfig.LLMProvider
	provCfg, ok := cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", provider)
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{APIKey: provCfg.APIKey})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}

	return &Service{chatModel: chatModel, provider: provider}, nil
}

// Generate runs one non-streaming completion and returns the raw text.
func (s *Service) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	resp, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate via %s: %w", s.provider, err)
	}
	return resp.Content, nil
}
