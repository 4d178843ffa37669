// Package translator holds the interchangeable translation backends. Every
// backend exposes the same single capability, TranslationService.Translate,
// so the pool above can treat them uniformly.
package translator

import (
	"context"
	"time"
)

// Default language pair of the engine.
const (
	SourceEnglish = "en"
	TargetBengali = "bn"
)

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
}

type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// Source returns the request source language, defaulting to English when
// unset or "auto".
func (r TranslateRequest) Source() string {
	if r.SourceLang == "" || r.SourceLang == "auto" {
		return SourceEnglish
	}
	return r.SourceLang
}

// Target returns the request target language, defaulting to Bengali.
func (r TranslateRequest) Target() string {
	if r.TargetLang == "" {
		return TargetBengali
	}
	return r.TargetLang
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

// TranslationService is one provider. Translate returns a non-nil result
// whenever possible so latency and error text can be logged; a non-nil
// error or a non-empty result Error means the call failed.
type TranslationService interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// fail records err on result and returns both, the pattern every service
// uses on its error paths.
func fail(result *ServiceResult, err *ProviderError) (*ServiceResult, error) {
	result.Error = err.Error()
	return result, err
}
