package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoogleWebService uses the keyless endpoint behind the Google Translate web
// widget. It needs no credentials but throttles aggressively.
type GoogleWebService struct {
	baseURL string
	client  *http.Client
}

func NewGoogleWebService() *GoogleWebService {
	return &GoogleWebService{
		baseURL: "https://translate.googleapis.com",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *GoogleWebService) Name() string {
	return "googleweb"
}

func (s *GoogleWebService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", req.Source())
	q.Set("tl", req.Target())
	q.Set("dt", "t")
	q.Set("q", req.Text)
	apiURL := fmt.Sprintf("%s/translate_a/single?%s", s.baseURL, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fail(result, wrapError(s.Name(), err))
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fail(result, wrapError(s.Name(), err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(result, wrapError(s.Name(), err))
	}
	if resp.StatusCode != http.StatusOK {
		return fail(result, statusError(s.Name(), resp.StatusCode, string(body)))
	}

	text, err := parseWebResponse(body)
	if err != nil {
		return fail(result, newError(s.Name(), KindBadResponse, "failed to decode response: %v", err))
	}
	if strings.TrimSpace(text) == "" {
		return fail(result, newError(s.Name(), KindEmpty, "empty translation response"))
	}

	result.TranslatedText = text
	return result, nil
}

// parseWebResponse joins the translated segments of a response shaped like
// [[["অনুবাদ","source",null,null,10],...],null,"en",...].
func parseWebResponse(body []byte) (string, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "", fmt.Errorf("empty response array")
	}

	var segments [][]any
	if err := json.Unmarshal(top[0], &segments); err != nil {
		return "", fmt.Errorf("unexpected segment list: %w", err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			sb.WriteString(s)
		}
	}
	return sb.String(), nil
}

func (s *GoogleWebService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *GoogleWebService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{SourceEnglish, TargetBengali}, nil
}
