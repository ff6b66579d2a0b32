package evaluation

import (
	"context"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/speaklab-io/speaklab/internal/config"
	"github.com/speaklab-io/speaklab/internal/domain"
)

// Engine is the opaque call boundary to the external scoring engine.
type Engine interface {
	// Complete sends one scoring request and returns the engine's text.
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIEngine talks to an OpenAI-compatible chat completions API. The
// client is rebuilt when the configured key or base URL changes, so runtime
// key updates take effect without a restart.
type OpenAIEngine struct {
	cfg *config.Manager

	mu        sync.Mutex
	client    openai.Client
	clientKey string
}

// NewOpenAIEngine creates an engine reading its settings from the config
// manager at call time.
func NewOpenAIEngine(cfg *config.Manager) *OpenAIEngine {
	return &OpenAIEngine{cfg: cfg}
}

func (e *OpenAIEngine) currentClient() (openai.Client, config.EngineConfig, error) {
	engine := e.cfg.Current().Engine
	if !engine.Configured() {
		return openai.Client{}, engine, fmt.Errorf("%w: evaluation engine API key is not configured", domain.ErrUnavailable)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	key := engine.APIKey + "|" + engine.BaseURL
	if key != e.clientKey {
		e.client = openai.NewClient(
			option.WithAPIKey(engine.APIKey),
			option.WithBaseURL(engine.BaseURL),
		)
		e.clientKey = key
	}
	return e.client, engine, nil
}

// Complete implements Engine.
func (e *OpenAIEngine) Complete(ctx context.Context, system, user string) (string, error) {
	client, engine, err := e.currentClient()
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(engine.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if engine.Temperature != nil {
		params.Temperature = openai.Float(*engine.Temperature)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: engine returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
