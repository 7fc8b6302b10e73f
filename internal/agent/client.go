package agent

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/perch-finance/perch/internal/config"
)

// ChatClient is the slice of the OpenAI-compatible client the runner
// uses; *openai.Client satisfies it.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewChatClient builds the reasoning-service client. BaseURL lets the
// same wiring target any OpenAI-compatible provider.
func NewChatClient(cfg *config.Config) *openai.Client {
	ocfg := openai.DefaultConfig(cfg.LLM.APIKey)
	if cfg.LLM.BaseURL != "" {
		ocfg.BaseURL = cfg.LLM.BaseURL
	}
	return openai.NewClientWithConfig(ocfg)
}
