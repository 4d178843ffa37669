package translator

import (
	"context"
	"html"
	"sync"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleService calls the Cloud Translation v2 API. The client is created on
// first use and shared by every worker afterwards.
type GoogleService struct {
	mu     sync.Mutex
	client *translate.Client
	opts   []option.ClientOption
}

func NewGoogleService(opts ...option.ClientOption) *GoogleService {
	return &GoogleService{opts: opts}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) getClient(ctx context.Context, cfg ServiceConfig) (*translate.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	opts := append([]option.ClientOption{}, s.opts...)
	switch {
	case cfg.Credentials != "":
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

func (s *GoogleService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	target, err := language.Parse(req.Target())
	if err != nil {
		return fail(result, newError(s.Name(), KindBadResponse, "invalid target language: %v", err))
	}
	source, err := language.Parse(req.Source())
	if err != nil {
		return fail(result, newError(s.Name(), KindBadResponse, "invalid source language: %v", err))
	}

	client, err := s.getClient(ctx, cfg)
	if err != nil {
		return fail(result, newError(s.Name(), KindUnavailable, "failed to create client: %v", err))
	}

	translations, err := client.Translate(ctx, []string{req.Text}, target, &translate.Options{
		Source: source,
		Format: translate.Text,
	})
	if err != nil {
		return fail(result, wrapError(s.Name(), err))
	}
	if len(translations) == 0 || translations[0].Text == "" {
		return fail(result, newError(s.Name(), KindEmpty, "no translation returned"))
	}

	result.TranslatedText = html.UnescapeString(translations[0].Text)
	return result, nil
}

func (s *GoogleService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *GoogleService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{SourceEnglish, TargetBengali}, nil
}

// Close releases the underlying client if one was created.
func (s *GoogleService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
