// Package llm provides the semantic fallback parser for alignment grids
// whose layout defeats the deterministic rules.
package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/edtools/cagforge/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Completer is the narrow contract the fallback parser depends on. Tests
// substitute a canned implementation.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Model wraps a langchaingo LLM behind the Completer contract with a
// bounded per-call timeout.
type Model struct {
	llm       llms.Model
	modelName string
	timeout   time.Duration
}

var _ Completer = (*Model)(nil)

// NewModel creates an LLM model based on configuration. The API key is
// read from the environment variable named by cfg.APIKeyEnv so operators
// can point different runs at different credentials.
func NewModel(cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("missing %s for llm parsing mode", cfg.APIKeyEnv)
		}
		model, err = openai.New(
			openai.WithToken(apiKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("missing %s for llm parsing mode", cfg.APIKeyEnv)
		}
		model, err = anthropic.New(
			anthropic.WithToken(apiKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
		timeout:   cfg.LLMTimeout,
	}, nil
}

// Complete generates text from a system and user prompt.
func (m *Model) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return response.Choices[0].Content, nil
}

// ModelName returns the configured model name.
func (m *Model) ModelName() string {
	return m.modelName
}
