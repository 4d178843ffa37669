package translator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"provider error", &ProviderError{Provider: "x", Kind: KindEmpty, Err: errors.New("e")}, KindEmpty},
		{"wrapped provider error", fmt.Errorf("call: %w", statusError("x", 503, "")), KindUnavailable},
		{"googleapi 429", &googleapi.Error{Code: 429, Message: "quota"}, KindRateLimited},
		{"googleapi 400", &googleapi.Error{Code: 400, Message: "bad"}, KindBadResponse},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), KindTimeout},
		{"net timeout", timeoutErr{}, KindTimeout},
		{"message only", errors.New("429 Too Many Requests"), KindRateLimited},
		{"opaque", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	if k := statusError("p", 429, "").Kind; k != KindRateLimited {
		t.Errorf("429 -> %s", k)
	}
	if k := statusError("p", 500, "").Kind; k != KindUnavailable {
		t.Errorf("500 -> %s", k)
	}
	if k := statusError("p", 403, "Daily quota exceeded").Kind; k != KindRateLimited {
		t.Errorf("403 quota -> %s", k)
	}
	if k := statusError("p", 404, "not found").Kind; k != KindBadResponse {
		t.Errorf("404 -> %s", k)
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &ProviderError{Provider: "p", Kind: KindNetwork, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is through Unwrap")
	}
}
