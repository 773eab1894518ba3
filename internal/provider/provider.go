// Package provider abstracts the text-completion backends used by the
// code generator: the Anthropic API (direct or via AWS Bedrock), the
// demo relay, and a disabled no-op.
package provider

import (
	"context"
	"errors"

	"taskforge/internal/config"
)

// ErrDisabled is returned by the no-op provider on every call.
var ErrDisabled = errors.New("generation disabled: set ANTHROPIC_API_KEY or enable demo mode")

// Request is a single completion request.
type Request struct {
	// System is the system prompt.
	System string
	// Prompt is the user message.
	Prompt string
	// MaxTokens caps the completion length; 0 uses the provider default.
	MaxTokens int
}

// Provider generates a text completion for a request.
type Provider interface {
	// Name identifies the backend (anthropic, demo, disabled).
	Name() string
	// Generate returns the completion text or an error. Callers treat
	// any error as a signal to fall back to template generation.
	Generate(ctx context.Context, req Request) (string, error)
}

// FromConfig selects a provider for the given configuration: the
// Anthropic API when a key (or Bedrock) is configured, the demo
// provider when demo mode is active, and the disabled provider
// otherwise.
func FromConfig(cfg *config.Config) Provider {
	if cfg.Anthropic.APIKey != "" || cfg.Anthropic.UseBedrock {
		if p, err := NewAnthropic(cfg); err == nil {
			return p
		}
	}
	if cfg.DemoActive() {
		return NewDemo(cfg.Demo.RelayURL, cfg.Demo.RelaySecret)
	}
	return Disabled{}
}

// Disabled is the provider used when no backend is configured.
type Disabled struct{}

// Name implements Provider.
func (Disabled) Name() string { return "disabled" }

// Generate implements Provider. It always fails so callers fall back
// to templates.
func (Disabled) Generate(ctx context.Context, req Request) (string, error) {
	return "", ErrDisabled
}
