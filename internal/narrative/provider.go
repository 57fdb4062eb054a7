package narrative

import (
	"context"
	"fmt"

	"github.com/joelkehle/feasibility-study/internal/config"
)

// NewCaller builds the caller for the configured provider. The "none"
// provider yields a nil caller; generation then reports ErrServiceUnavailable.
func NewCaller(ctx context.Context, cfg config.Config, lang string) (LLMCaller, error) {
	n := cfg.Narrative
	switch n.Provider {
	case config.ProviderNone, "":
		return nil, nil
	case config.ProviderAnthropic:
		return NewAnthropicCaller(n.AnthropicKey, n.Model)
	case config.ProviderGemini:
		return NewGeminiCaller(ctx, n.GeminiKey, n.Model)
	case config.ProviderOpenAI:
		return NewChatCompletionsCaller(n.Endpoint, n.OpenAIKey, n.Model), nil
	case config.ProviderAPL:
		return NewAPLClient(n.Endpoint, lang), nil
	default:
		return nil, fmt.Errorf("unknown narrative provider %q", n.Provider)
	}
}

// OptionsFrom maps the narrative configuration onto generator options.
func OptionsFrom(cfg config.Config) Options {
	n := cfg.Narrative
	return Options{
		ExpertPrompt:   n.ExpertPrompt,
		Timeout:        n.Timeout,
		MaxConcurrency: n.MaxConcurrency,
		FullBudget:     n.PayloadBudget,
		SubsetBudget:   n.SmallBudget,
		ChunkBudget:    n.ChunkBudget,
	}
}
