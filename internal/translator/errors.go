package translator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// ErrorKind classifies a provider failure for fallback decisions.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindRateLimited
	KindTimeout
	KindNetwork
	KindBadResponse
	KindEmpty
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindBadResponse:
		return "bad_response"
	case KindEmpty:
		return "empty"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ProviderError is a failed call to a single provider.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func newError(provider string, kind ErrorKind, format string, args ...any) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// wrapError classifies a transport or client error.
func wrapError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: Classify(err), Err: err}
}

// statusError builds the error for a non-2xx HTTP response.
func statusError(provider string, status int, body string) *ProviderError {
	kind := KindBadResponse
	switch {
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 500:
		kind = KindUnavailable
	case IsRateLimitMessage(body):
		kind = KindRateLimited
	}
	return &ProviderError{
		Provider:   provider,
		Kind:       kind,
		StatusCode: status,
		Err:        fmt.Errorf("API returned status %d: %s", status, truncate(body, 200)),
	}
}

// Classify maps err to an ErrorKind. Structured signals are checked first:
// typed provider errors, HTTP 429 from the Google and OpenAI clients,
// deadlines and net.Error timeouts. Message matching is a last resort
// because providers do not document their rate-limit error shapes.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.Kind != KindUnknown {
		return pe.Kind
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return kindForStatus(gerr.Code, gerr.Message)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return kindForStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return kindForStatus(reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	if IsRateLimitMessage(err.Error()) {
		return KindRateLimited
	}
	return KindUnknown
}

func kindForStatus(status int, msg string) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindUnavailable
	case IsRateLimitMessage(msg):
		return KindRateLimited
	case status >= 400:
		return KindBadResponse
	}
	return KindUnknown
}

var rateLimitHints = []string{
	"rate limit",
	"ratelimit",
	"too many requests",
	"quota",
	"used all available free translations",
}

// IsRateLimitMessage reports whether msg looks like a rate-limit complaint.
// This is a heuristic over free text and will miss providers that phrase
// throttling differently.
func IsRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, h := range rateLimitHints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
