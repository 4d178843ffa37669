package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/valpere/bntran/internal/postprocess"
)

var DefaultOpenRouterModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"qwen/qwen2.5-72b-instruct:free",
	"meta-llama/llama-3.1-8b-instruct:free",
}

type OpenRouterService struct {
	apiKey  string
	baseURL string
	models  []string
	client  *http.Client
}

func NewOpenRouterService(apiKey string, baseURL string, models []string) *OpenRouterService {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if len(models) == 0 {
		models = DefaultOpenRouterModels
	}
	return &OpenRouterService{
		apiKey:  apiKey,
		baseURL: baseURL,
		models:  models,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *OpenRouterService) Name() string {
	return "openrouter"
}

// pickModel spreads load across the free-tier models, which are rate limited
// independently.
func (s *OpenRouterService) pickModel(cfg ServiceConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return s.models[rand.Intn(len(s.models))]
}

func (s *OpenRouterService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return fail(result, newError(s.Name(), KindUnavailable, "OpenRouter API key required"))
	}

	model := s.pickModel(cfg)
	payload, err := json.Marshal(map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": cellSystemPrompt(req)},
			{"role": "user", "content": req.Text},
		},
		"max_tokens":  256,
		"temperature": 0.2,
	})
	if err != nil {
		return fail(result, newError(s.Name(), KindUnknown, "failed to marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return fail(result, wrapError(s.Name(), err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("X-Title", "bntran")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fail(result, wrapError(s.Name(), err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fail(result, statusError(s.Name(), resp.StatusCode, string(body)))
	}

	var orResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&orResp); err != nil {
		return fail(result, newError(s.Name(), KindBadResponse, "failed to decode response: %v", err))
	}
	if len(orResp.Choices) == 0 {
		return fail(result, newError(s.Name(), KindEmpty, "empty response from API"))
	}

	text := postprocess.Clean(orResp.Choices[0].Message.Content)
	if text == "" {
		return fail(result, newError(s.Name(), KindEmpty, "empty translation response"))
	}

	result.TranslatedText = text
	result.Metadata = map[string]string{
		"model":             model,
		"prompt_tokens":     fmt.Sprintf("%d", orResp.Usage.PromptTokens),
		"completion_tokens": fmt.Sprintf("%d", orResp.Usage.CompletionTokens),
	}
	return result, nil
}

func (s *OpenRouterService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("OpenRouter API key not configured")
	}
	return nil
}

func (s *OpenRouterService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{SourceEnglish, TargetBengali}, nil
}

func (s *OpenRouterService) Models() []string {
	return s.models
}
