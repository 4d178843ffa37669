package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valpere/bntran/internal/chunker"
)

type MyMemoryService struct {
	email   string
	baseURL string
	client  *http.Client
}

// NewMyMemoryService returns the MyMemory client. A contact email raises the
// anonymous daily quota.
func NewMyMemoryService(email string) *MyMemoryService {
	return &MyMemoryService{
		email:   email,
		baseURL: "https://api.mymemory.translated.net",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *MyMemoryService) Name() string {
	return "mymemory"
}

// MyMemory rejects queries over 500 bytes; longer cells are sent in pieces.
const myMemoryMaxQuery = 450

func (s *MyMemoryService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	pieces := chunker.Split(req.Text, myMemoryMaxQuery)
	out := make([]string, 0, len(pieces))
	minMatch := 1.0
	for _, piece := range pieces {
		text, match, perr := s.query(ctx, piece.Text, req)
		if perr != nil {
			return fail(result, perr)
		}
		out = append(out, text)
		minMatch = min(minMatch, match)
	}

	result.TranslatedText = chunker.Join(pieces, out)
	result.Metadata = map[string]string{"match": fmt.Sprintf("%.2f", minMatch)}
	if len(pieces) > 1 {
		result.Metadata["chunks"] = fmt.Sprintf("%d", len(pieces))
	}
	return result, nil
}

func (s *MyMemoryService) query(ctx context.Context, text string, req TranslateRequest) (string, float64, *ProviderError) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", fmt.Sprintf("%s|%s", req.Source(), req.Target()))
	if s.email != "" {
		q.Set("de", s.email)
	}
	apiURL := fmt.Sprintf("%s/get?%s", s.baseURL, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", 0, wrapError(s.Name(), err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", 0, wrapError(s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", 0, statusError(s.Name(), resp.StatusCode, "daily quota exhausted")
	}

	var mymemResp struct {
		ResponseData struct {
			TranslatedText string  `json:"translatedText"`
			Match          float64 `json:"match"`
		} `json:"responseData"`
		ResponseStatus  json.Number `json:"responseStatus"`
		ResponseDetails string      `json:"responseDetails"`
		QuotaFinished   bool        `json:"quotaFinished"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&mymemResp); err != nil {
		return "", 0, newError(s.Name(), KindBadResponse, "failed to decode response: %v", err)
	}

	if mymemResp.QuotaFinished {
		return "", 0, newError(s.Name(), KindRateLimited, "quota finished: %s", mymemResp.ResponseDetails)
	}
	if status, _ := mymemResp.ResponseStatus.Int64(); status != http.StatusOK {
		return "", 0, statusError(s.Name(), int(status), mymemResp.ResponseDetails)
	}

	translated := strings.TrimSpace(mymemResp.ResponseData.TranslatedText)
	if translated == "" {
		return "", 0, newError(s.Name(), KindEmpty, "empty translation response")
	}
	// MyMemory reports quota problems inside a 200 body as well.
	if IsRateLimitMessage(translated) {
		return "", 0, newError(s.Name(), KindRateLimited, "%s", translated)
	}
	return translated, mymemResp.ResponseData.Match, nil
}

func (s *MyMemoryService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *MyMemoryService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{SourceEnglish, TargetBengali, "hi", "ur", "as"}, nil
}
