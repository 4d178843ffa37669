package translator

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/valpere/bntran/internal/postprocess"
)

// OpenAIService talks to any OpenAI-compatible chat completion endpoint.
type OpenAIService struct {
	model  string
	client *openai.Client
}

// NewOpenAIService builds a client for apiKey. baseURL may point at a
// compatible gateway; empty means api.openai.com.
func NewOpenAIService(apiKey, baseURL, model string) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIService{
		model:  model,
		client: openai.NewClientWithConfig(config),
	}
}

func (s *OpenAIService) Name() string {
	return "openai"
}

func (s *OpenAIService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	model := s.model
	if cfg.Model != "" {
		model = cfg.Model
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: cellSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
		MaxTokens:   256,
		Temperature: 0.2,
	})
	if err != nil {
		return fail(result, wrapError(s.Name(), err))
	}
	if len(resp.Choices) == 0 {
		return fail(result, newError(s.Name(), KindEmpty, "no choices returned"))
	}

	text := postprocess.Clean(resp.Choices[0].Message.Content)
	if text == "" {
		return fail(result, newError(s.Name(), KindEmpty, "empty translation response"))
	}

	result.TranslatedText = text
	result.Metadata = map[string]string{
		"model":             model,
		"prompt_tokens":     fmt.Sprintf("%d", resp.Usage.PromptTokens),
		"completion_tokens": fmt.Sprintf("%d", resp.Usage.CompletionTokens),
	}
	return result, nil
}

func (s *OpenAIService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *OpenAIService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{SourceEnglish, TargetBengali}, nil
}
