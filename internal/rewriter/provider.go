// Package rewriter builds documentation-update prompts, enforces the strict
// JSON response envelope, and applies accepted suggestions to doc files
// idempotently.
package rewriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/doc-sentry/internal/config"
)

// ProviderKind is the closed set of LLM backends the envelope can address.
type ProviderKind string

const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderLocal     ProviderKind = "local"
)

// ErrProviderUnavailable marks a backend that cannot serve completions in
// this build; the generator answers with the deterministic fallback stub.
var ErrProviderUnavailable = errors.New("llm provider unavailable")

// Provider is the single operation the envelope needs from any backend.
type Provider interface {
	Kind() ProviderKind
	Model() string
	// Complete sends one prompt and returns the raw response text plus the
	// total token count consumed.
	Complete(ctx context.Context, prompt string) (string, int, error)
}

// NewProvider constructs the configured backend. The local backend is served
// by an Ollama host; the hosted backends are adapter contracts satisfied by
// the deployment, so an unconfigured build degrades to the fallback stub
// rather than failing the run.
func NewProvider(cfg config.AIConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch ProviderKind(cfg.Provider) {
	case ProviderLocal:
		return newLocalProvider(cfg, logger)
	case ProviderOpenAI, ProviderAnthropic:
		return &unavailableProvider{kind: ProviderKind(cfg.Provider), model: cfg.Model}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// localProvider serves completions from an Ollama host.
type localProvider struct {
	model llms.Model
	name  string
}

// newLocalHTTPClient allows for the long generation times of local models.
func newLocalHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    100,
		MaxConnsPerHost: 10,
		IdleConnTimeout: 90 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: 15 * time.Minute}
}

func newLocalProvider(cfg config.AIConfig, logger *slog.Logger) (Provider, error) {
	model, err := ollama.New(
		ollama.WithServerURL(cfg.OllamaHost),
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(newLocalHTTPClient()),
		ollama.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create local llm client: %w", err)
	}
	return &localProvider{model: model, name: cfg.Model}, nil
}

func (p *localProvider) Kind() ProviderKind { return ProviderLocal }
func (p *localProvider) Model() string      { return p.name }

func (p *localProvider) Complete(ctx context.Context, prompt string) (string, int, error) {
	text, err := p.model.Call(ctx, prompt)
	if err != nil {
		return "", 0, fmt.Errorf("local completion failed: %w", err)
	}
	return text, estimateTokens(prompt) + estimateTokens(text), nil
}

// unavailableProvider stands in for backends whose HTTP adapters live
// outside this module. Every completion reports ErrProviderUnavailable.
type unavailableProvider struct {
	kind  ProviderKind
	model string
}

func (p *unavailableProvider) Kind() ProviderKind { return p.kind }
func (p *unavailableProvider) Model() string      { return p.model }

func (p *unavailableProvider) Complete(context.Context, string) (string, int, error) {
	return "", 0, ErrProviderUnavailable
}

// estimateTokens approximates token usage at four bytes per token, the usual
// rule of thumb when the backend does not report real counts.
func estimateTokens(s string) int { return len(s) / 4 }
