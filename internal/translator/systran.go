package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type SystranService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewSystranService(apiKey string) *SystranService {
	return &SystranService{
		apiKey:  apiKey,
		baseURL: "https://api-translate.systran.net",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SystranService) Name() string {
	return "systran"
}

func (s *SystranService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return fail(result, newError(s.Name(), KindUnavailable, "Systran API key required"))
	}

	form := url.Values{}
	form.Set("input", req.Text)
	form.Set("source", req.Source())
	form.Set("target", req.Target())
	form.Set("format", "text")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/translation/text/translate?"+form.Encode(), nil)
	if err != nil {
		return fail(result, wrapError(s.Name(), err))
	}
	httpReq.Header.Set("Authorization", "Key "+apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fail(result, wrapError(s.Name(), err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fail(result, statusError(s.Name(), resp.StatusCode, string(body)))
	}

	var systranResp struct {
		Outputs []struct {
			Output string `json:"output"`
			Error  string `json:"error"`
		} `json:"outputs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&systranResp); err != nil {
		return fail(result, newError(s.Name(), KindBadResponse, "failed to decode response: %v", err))
	}
	if len(systranResp.Outputs) == 0 {
		return fail(result, newError(s.Name(), KindEmpty, "empty translation response"))
	}
	out := systranResp.Outputs[0]
	if out.Error != "" {
		return fail(result, newError(s.Name(), KindBadResponse, "%s", out.Error))
	}
	if out.Output == "" {
		return fail(result, newError(s.Name(), KindEmpty, "empty translation response"))
	}

	result.TranslatedText = out.Output
	return result, nil
}

func (s *SystranService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("Systran API key not configured")
	}
	return nil
}

func (s *SystranService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{SourceEnglish, TargetBengali}, nil
}
