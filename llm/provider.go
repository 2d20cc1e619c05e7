// Package llm talks to the language model that backs the assistant. It
// supports a local Ollama server and Anthropic models on Amazon Bedrock.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	ErrEmptyResponse       = errors.New("empty response from model")
)

// Request is a single prompt exchange
type Request struct {
	System string
	Prompt string
	// JSON asks the provider to constrain output to a JSON document
	JSON bool
}

// Provider defines a generic LLM interface
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Options selects and tunes a provider
type Options struct {
	Provider      string
	Endpoint      string
	Model         string
	Region        string
	Timeout       time.Duration
	Temperature   float64
	MaxTokens     int
	MaxConcurrent int64
}

// New creates the provider named in opts, capped at MaxConcurrent
// requests in flight.
func New(opts Options) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch strings.ToLower(opts.Provider) {
	case "ollama", "":
		p = NewOllama(opts.Endpoint, opts.Model, opts.Timeout, opts.Temperature)
	case "bedrock":
		p, err = NewBedrock(opts.Region, opts.Model, opts.Timeout, opts.MaxTokens, opts.Temperature)
	default:
		return nil, fmt.Errorf("unsupported provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithLimit(p, opts.MaxConcurrent), nil
}

// Limited bounds the number of concurrent Generate calls on a provider
type Limited struct {
	Provider
	sem *semaphore.Weighted
}

// WithLimit wraps p so that at most n requests run at once. n <= 0 returns p.
func WithLimit(p Provider, n int64) Provider {
	if n <= 0 {
		return p
	}
	return &Limited{Provider: p, sem: semaphore.NewWeighted(n)}
}

func (l *Limited) Generate(ctx context.Context, req Request) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for %s slot: %w", l.Provider.Name(), err)
	}
	defer l.sem.Release(1)
	return l.Provider.Generate(ctx, req)
}

// HealthChecker is implemented by providers that can probe their backend
type HealthChecker interface {
	IsAvailable(ctx context.Context) bool
}

// Available reports whether p answers. Providers without a health check
// are assumed to be up.
func Available(ctx context.Context, p Provider) bool {
	if l, ok := p.(*Limited); ok {
		p = l.Provider
	}
	if hc, ok := p.(HealthChecker); ok {
		return hc.IsAvailable(ctx)
	}
	return true
}
