// Package pool tries an ordered set of translation services one after
// another until one of them produces a usable translation.
package pool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/bntran/internal/placeholder"
	"github.com/valpere/bntran/internal/translator"
)

const (
	DefaultTimeout        = 20 * time.Second
	DefaultRateLimitDelay = 500 * time.Millisecond
)

// Validator accepts or rejects a translation. *validator.Validator satisfies it.
type Validator interface {
	IsValid(translatedText, targetLang string) (bool, error)
}

type Config struct {
	// Timeout bounds a single provider call.
	Timeout time.Duration
	// RateLimitDelay is slept before the next attempt when a provider
	// reports throttling.
	RateLimitDelay time.Duration
	SourceLang     string
	TargetLang     string
	Service        translator.ServiceConfig
	// Validator, when set, rejects translations in the wrong language.
	Validator Validator
	Logger    zerolog.Logger
}

// Outcome is the result of one fallback round. Translated is false when
// every provider failed, in which case Text is the original input.
type Outcome struct {
	Text       string
	Provider   string
	Translated bool
	Attempts   int
}

type Pool struct {
	services []translator.TranslationService
	config   Config
}

func New(services []translator.TranslationService, config Config) *Pool {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RateLimitDelay < 0 {
		config.RateLimitDelay = 0
	}
	if config.SourceLang == "" {
		config.SourceLang = translator.SourceEnglish
	}
	if config.TargetLang == "" {
		config.TargetLang = translator.TargetBengali
	}
	return &Pool{services: services, config: config}
}

func (p *Pool) Len() int {
	return len(p.services)
}

func (p *Pool) Names() []string {
	names := make([]string, len(p.services))
	for i, s := range p.services {
		names[i] = s.Name()
	}
	return names
}

// TranslateWithFallback tries every service once, in order, starting at
// start mod Len(). The first non-blank, validated translation wins. When all
// services fail the original text comes back with Translated false; that is
// an expected outcome, not an error. Cancelling ctx only cuts short the
// rate-limit pause and skips the remaining services.
//
// URLs, e-mail addresses and tags are sent as [PHn] markers; a reply that
// drops one counts as a bad response.
func (p *Pool) TranslateWithFallback(ctx context.Context, text string, start int) Outcome {
	out := Outcome{Text: text}
	n := len(p.services)
	if n == 0 {
		return out
	}

	first := ((start % n) + n) % n
	protected, markers := placeholder.Protect(text)
	req := translator.TranslateRequest{
		Text:       protected,
		SourceLang: p.config.SourceLang,
		TargetLang: p.config.TargetLang,
	}

	for i := 0; i < n; i++ {
		if i > 0 && ctx.Err() != nil {
			break
		}
		svc := p.services[(first+i)%n]
		out.Attempts++

		translated, err := p.call(ctx, svc, req, markers)
		if err == nil {
			out.Text = translated
			out.Provider = svc.Name()
			out.Translated = true
			return out
		}

		kind := translator.Classify(err)
		p.config.Logger.Warn().
			Str("provider", svc.Name()).
			Str("kind", kind.String()).
			Err(err).
			Msg("provider failed, falling back")

		if kind == translator.KindRateLimited && i < n-1 {
			if !sleep(ctx, p.config.RateLimitDelay) {
				break
			}
		}
	}

	p.config.Logger.Warn().
		Str("text", text).
		Int("attempts", out.Attempts).
		Msg("all providers exhausted, keeping original text")
	return out
}

var (
	errBlank           = errors.New("blank translation")
	errLostPlaceholder = errors.New("placeholder missing from translation")
)

// call runs one provider under the per-call timeout. Cancellation of the
// parent context does not interrupt a call already in flight.
func (p *Pool) call(ctx context.Context, svc translator.TranslationService, req translator.TranslateRequest, markers []string) (string, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.Timeout)
	defer cancel()

	res, err := svc.Translate(callCtx, p.config.Service, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return "", err
	}
	if res == nil {
		return "", &translator.ProviderError{Provider: svc.Name(), Kind: translator.KindEmpty, Err: errBlank}
	}
	if res.Error != "" {
		kind := translator.KindUnknown
		if translator.IsRateLimitMessage(res.Error) {
			kind = translator.KindRateLimited
		}
		return "", &translator.ProviderError{Provider: svc.Name(), Kind: kind, Err: errors.New(res.Error)}
	}

	text := strings.TrimSpace(res.TranslatedText)
	if text == "" {
		return "", &translator.ProviderError{Provider: svc.Name(), Kind: translator.KindEmpty, Err: errBlank}
	}

	if missing := placeholder.Missing(text, markers); len(missing) > 0 {
		return "", &translator.ProviderError{Provider: svc.Name(), Kind: translator.KindBadResponse, Err: fmt.Errorf("%w: %v", errLostPlaceholder, missing)}
	}

	if p.config.Validator != nil {
		if ok, verr := p.config.Validator.IsValid(placeholder.Strip(text), req.TargetLang); !ok {
			return "", &translator.ProviderError{Provider: svc.Name(), Kind: translator.KindBadResponse, Err: fmt.Errorf("rejected: %w", verr)}
		}
	}
	return placeholder.Restore(text, markers), nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
