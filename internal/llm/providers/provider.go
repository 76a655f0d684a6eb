// File path: internal/llm/providers/provider.go
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request is one system + user exchange.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Backend is a single hosted-model API. Implementations report every
// failure as a *ProviderError.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// ProviderError describes a failed generation call. RateLimited marks the
// only failure class the transport retries.
type ProviderError struct {
	Provider    string
	StatusCode  int
	RateLimited bool
	Err         error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a rate-limit ProviderError.
func IsRateLimited(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.RateLimited
}

// AsProviderError returns err unchanged when it already is a ProviderError,
// otherwise wraps it for provider.
func AsProviderError(provider string, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	return &ProviderError{Provider: provider, Err: err}
}

// rateLimitMessage catches rate limiting reported only through error text.
func rateLimitMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "too many requests", "rate limit", "rate_limit", "resource_exhausted", "resourceexhausted"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
