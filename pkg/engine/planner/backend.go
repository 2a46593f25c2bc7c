// Package planner turns a request plus session context into a validated
// Plan, using an opaque text-completion backend.
package planner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// Backend is the opaque completion collaborator: prompt in, raw text out.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured signals missing provider credentials. Callers fall back
// to the mock plan instead of aborting.
var ErrNotConfigured = errors.New("planner backend not configured")

// BackendConfig selects and configures the completion provider.
type BackendConfig struct {
	Provider string // "openai" or "googleai"
	Model    string
	APIKey   string // falls back to the provider's environment variable

	// Retry policy applied at the collaborator boundary.
	MaxRetries      uint64
	InitialInterval time.Duration
}

// NewBackend builds a langchaingo-backed completion client for the
// configured provider, wrapped in exponential-backoff retries.
func NewBackend(ctx context.Context, cfg BackendConfig, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var model llms.Model
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrNotConfigured)
		}
		opts := []openai.Option{openai.WithToken(key)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		m, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("building openai backend: %w", err)
		}
		model = m

	case "googleai":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("GOOGLE_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("%w: GOOGLE_API_KEY not set", ErrNotConfigured)
		}
		opts := []googleai.Option{googleai.WithAPIKey(key)}
		if cfg.Model != "" {
			opts = append(opts, googleai.WithDefaultModel(cfg.Model))
		}
		m, err := googleai.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("building googleai backend: %w", err)
		}
		model = m

	default:
		return nil, fmt.Errorf("unknown planner provider %q (use openai or googleai)", cfg.Provider)
	}

	logger.Info("planner backend ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
	)

	return withRetry(&langchainBackend{model: model}, cfg, logger), nil
}

// langchainBackend adapts an llms.Model to the Backend interface.
type langchainBackend struct {
	model llms.Model
}

func (b *langchainBackend) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, b.model, prompt, llms.WithTemperature(0.2))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// Retry Wrapper
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// retryBackend retries transient completion failures with exponential
// backoff and a bounded attempt count. Retries live here, at the
// collaborator boundary, never inside the engine loop.
type retryBackend struct {
	next    Backend
	retries uint64
	initial time.Duration
	logger  *zap.Logger
}

func withRetry(next Backend, cfg BackendConfig, logger *zap.Logger) Backend {
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 3
	}
	initial := cfg.InitialInterval
	if initial <= 0 {
		initial = time.Second
	}
	return &retryBackend{next: next, retries: retries, initial: initial, logger: logger}
}

func (b *retryBackend) Complete(ctx context.Context, prompt string) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.initial

	attempt := 0
	return backoff.RetryWithData(func() (string, error) {
		attempt++
		out, err := b.next.Complete(ctx, prompt)
		if err != nil {
			b.logger.Warn("planner completion attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return out, err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, b.retries), ctx))
}
