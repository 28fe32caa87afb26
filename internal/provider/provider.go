// Package provider wraps external text-reasoning services behind a
// single-method completion interface. Each provider is independently
// fallible; callers try them in configured order.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/resolvd/internal/config"
)

var tracer = otel.Tracer("resolvd.provider")

// Sentinel errors.
var (
	ErrEmptyCompletion = errors.New("provider returned empty completion")
	ErrInvalidConfig   = errors.New("invalid provider configuration")
)

// defaultTimeout bounds a completion call when config leaves it unset.
const defaultTimeout = 15 * time.Second

// Provider is a single text-reasoning source. Name is used only for
// provenance labels on results.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// langchainProvider adapts a langchaingo model to the Provider interface
// with a per-call timeout.
type langchainProvider struct {
	name    string
	model   llms.Model
	timeout time.Duration
}

func (p *langchainProvider) Name() string { return p.name }

func (p *langchainProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "Provider.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("provider", p.name))

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, p.model, prompt)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("provider %s: %w", p.name, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("provider %s: %w", p.name, ErrEmptyCompletion)
	}
	return out, nil
}

// New creates a Provider from configuration. Supported types are
// "openai" (any OpenAI-compatible endpoint) and "ollama".
func New(cfg config.ProviderConfig) (Provider, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required for provider %s", ErrInvalidConfig, cfg.Name)
	}

	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var model llms.Model
	var err error

	switch cfg.Type {
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.APIKey.IsSet() {
			opts = append(opts, openai.WithToken(cfg.APIKey.Value()))
		}
		model, err = openai.New(opts...)

	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)

	default:
		return nil, fmt.Errorf("%w: unsupported type %q for provider %s (supported: openai, ollama)",
			ErrInvalidConfig, cfg.Type, cfg.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("creating provider %s: %w", cfg.Name, err)
	}

	return &langchainProvider{name: cfg.Name, model: model, timeout: timeout}, nil
}

// NewAll creates providers in configured order. Order matters: the
// resolution cascade tries them first to last.
func NewAll(cfgs []config.ProviderConfig) ([]Provider, error) {
	providers := make([]Provider, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := New(cfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}
