// Package llm provides the text generation capability used to justify and
// discuss procurement decisions. The rest of the engine depends only on the
// Generator interface; a deterministic mock and an OpenAI-backed provider
// are provided.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Provider names accepted by Select.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
)

// EnvOpenAIKey is consulted when no key is passed to Select.
const EnvOpenAIKey = "OPENAI_API_KEY"

var (
	// ErrCredentialRequired means the chosen provider needs an API key and
	// none was supplied or found in the environment.
	ErrCredentialRequired = errors.New("api key required")

	// ErrProviderFailure wraps any error raised by a provider while generating.
	ErrProviderFailure = errors.New("llm provider failure")
)

// Generator produces free-form text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Select resolves a provider name to a Generator. Names are case-insensitive;
// an empty or unknown name selects the mock.
func Select(provider, apiKey string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		key := apiKey
		if key == "" {
			key = os.Getenv(EnvOpenAIKey)
		}
		if key == "" {
			return nil, fmt.Errorf("%w for %s", ErrCredentialRequired, ProviderOpenAI)
		}
		return NewOpenAI(OpenAIConfig{APIKey: key}), nil
	default:
		return NewMock(), nil
	}
}
