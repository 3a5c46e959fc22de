// Package credential runs provider calls against an ordered pool of API keys,
// moving to the next key only when a failure is attributable to the key.
package credential

import (
	"context"
	"fmt"
	"strings"

	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Mode string

const (
	// ModeManaged uses the single key from process configuration.
	ModeManaged Mode = "geminiDefault"
	// ModeCustom uses user-supplied keys.
	ModeCustom Mode = "geminiCustom"
)

type Pool struct {
	Mode Mode
	Keys []string
}

// Managed builds the one-key pool for the managed provider mode.
func Managed(key string) Pool {
	return Pool{Mode: ModeManaged, Keys: []string{key}}
}

func Custom(keys ...string) Pool {
	return Pool{Mode: ModeCustom, Keys: keys}
}

// ExhaustionError is returned when every key failed with a retryable error.
type ExhaustionError struct {
	Mode     Mode
	Attempts int
	Last     error
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("all %d API keys for %s failed; last error: %v", e.Attempts, e.Mode, e.Last)
}

func (e *ExhaustionError) Unwrap() []error {
	return []error{llm.ErrExhausted, e.Last}
}

// Executor runs units of work against a pool. It keeps no state between calls.
type Executor struct {
	factory llm.ClientFactory
	log     zerolog.Logger
}

func NewExecutor(factory llm.ClientFactory, log zerolog.Logger) *Executor {
	return &Executor{factory: factory, log: log.With().Str("component", "credential").Logger()}
}

// Execute tries each key of pool in order until fn succeeds, a non-retryable
// error occurs or the pool is exhausted.
func Execute[T any](ctx context.Context, e *Executor, pool Pool, fn func(context.Context, llm.Client) (T, error)) (T, error) {
	var zero T

	keys := make([]string, 0, len(pool.Keys))
	for _, k := range pool.Keys {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return zero, errors.Wrapf(llm.ErrConfiguration, "no API keys available for %s", pool.Mode)
	}

	var lastErr error
	for i, key := range keys {
		l := e.log.With().Str("mode", string(pool.Mode)).Str("key", redact(key)).Int("attempt", i+1).Logger()

		client, err := e.factory(ctx, key)
		if err == nil {
			var out T
			out, err = fn(ctx, client)
			if err == nil {
				return out, nil
			}
		}

		if !llm.IsRetryable(err) {
			l.Error().Err(err).Msg("non-credential provider error")
			return zero, err
		}
		l.Warn().Err(err).Msg("API key rejected, trying next key")
		lastErr = err
	}

	e.log.Error().Err(lastErr).Str("mode", string(pool.Mode)).Int("attempts", len(keys)).Msg("all API keys failed")
	return zero, &ExhaustionError{Mode: pool.Mode, Attempts: len(keys), Last: lastErr}
}

func redact(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + "..."
}

// ValidateKey reports whether key can complete a trivial request.
func ValidateKey(ctx context.Context, factory llm.ClientFactory, key string, log zerolog.Logger) bool {
	if strings.TrimSpace(key) == "" {
		return false
	}
	client, err := factory(ctx, key)
	if err == nil {
		_, err = client.Generate(ctx, llm.Request{Contents: []llm.Turn{llm.TextTurn(llm.RoleUser, "Hello")}})
	}
	if err != nil {
		ev := log.Warn().Str("key", redact(key)).Err(err)
		if llm.IsRetryable(err) {
			ev.Msg("API key validation failed: invalid key")
		} else {
			ev.Msg("API key validation failed with an unexpected error")
		}
		return false
	}
	log.Info().Str("key", redact(key)).Msg("API key validated")
	return true
}
