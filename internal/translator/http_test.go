package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var cellReq = TranslateRequest{Text: "Father Name", SourceLang: "en", TargetLang: "bn"}

func TestGoogleWebService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate_a/single" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("tl"); got != "bn" {
			t.Errorf("expected tl=bn, got %q", got)
		}
		w.Write([]byte(`[[["পিতার ","Father ",null,null,10],["নাম","Name",null,null,10]],null,"en"]`))
	}))
	defer server.Close()

	svc := &GoogleWebService{baseURL: server.URL, client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "পিতার নাম" {
		t.Errorf("expected joined segments, got %q", result.TranslatedText)
	}
}

func TestGoogleWebService_Translate_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := &GoogleWebService{baseURL: server.URL, client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq)
	if err == nil {
		t.Fatal("expected error for 429")
	}
	if Classify(err) != KindRateLimited {
		t.Errorf("expected rate_limited, got %s", Classify(err))
	}
	if result == nil || result.Error == "" {
		t.Error("expected error text on result")
	}
}

func TestParseWebResponse_Malformed(t *testing.T) {
	for _, body := range []string{`{}`, `[]`, `["x"]`} {
		if _, err := parseWebResponse([]byte(body)); err == nil {
			t.Errorf("expected error for %s", body)
		}
	}
}

func TestMyMemoryService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.URL.Query().Get("langpair"); got != "en|bn" {
			t.Errorf("unexpected langpair %q", got)
		}
		if got := r.URL.Query().Get("de"); got != "ops@example.com" {
			t.Errorf("expected email param, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"responseData":   map[string]any{"translatedText": "জন", "match": 0.98},
			"responseStatus": 200,
		})
	}))
	defer server.Close()

	svc := &MyMemoryService{email: "ops@example.com", baseURL: server.URL, client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "John"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "জন" {
		t.Errorf("expected 'জন', got %q", result.TranslatedText)
	}
	if result.Metadata["match"] != "0.98" {
		t.Errorf("expected match metadata, got %v", result.Metadata)
	}
}

func TestMyMemoryService_Translate_LongMultiLineCell(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		q := r.URL.Query().Get("q")
		if len([]rune(q)) > myMemoryMaxQuery {
			t.Errorf("query too long: %d runes", len([]rune(q)))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"responseData":   map[string]any{"translatedText": fmt.Sprintf("bn%d", calls), "match": 0.9},
			"responseStatus": 200,
		})
	}))
	defer server.Close()

	svc := &MyMemoryService{baseURL: server.URL, client: server.Client()}
	line := strings.TrimSpace(strings.Repeat("word ", 60))
	text := line + "\n" + line

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "bn1\nbn2" {
		t.Errorf("expected line break kept between pieces, got %q", result.TranslatedText)
	}
	if result.Metadata["chunks"] != "2" {
		t.Errorf("expected chunk count metadata, got %v", result.Metadata)
	}
}

func TestMyMemoryService_Translate_QuotaInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseData":{"translatedText":"MYMEMORY WARNING: YOU USED ALL AVAILABLE FREE TRANSLATIONS FOR TODAY"},"responseStatus":"200"}`))
	}))
	defer server.Close()

	svc := &MyMemoryService{baseURL: server.URL, client: server.Client()}

	_, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq)
	if Classify(err) != KindRateLimited {
		t.Errorf("expected rate_limited, got %v", err)
	}
}

func TestMyMemoryService_Translate_StatusInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseData":{"translatedText":""},"responseStatus":"403","responseDetails":"INVALID LANGUAGE PAIR"}`))
	}))
	defer server.Close()

	svc := &MyMemoryService{baseURL: server.URL, client: server.Client()}

	_, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq)
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.StatusCode != 403 || pe.Kind != KindBadResponse {
		t.Errorf("unexpected error %+v", pe)
	}
}

func TestMyMemoryService_Name(t *testing.T) {
	if NewMyMemoryService("").Name() != "mymemory" {
		t.Error("unexpected name")
	}
}

func TestSystranService_Translate_NoAPIKey(t *testing.T) {
	svc := NewSystranService("")

	result, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq)
	if err == nil {
		t.Error("expected error when no API key")
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestSystranService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Key test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Write([]byte(`{"outputs":[{"output":"পিতার নাম"}]}`))
	}))
	defer server.Close()

	svc := &SystranService{apiKey: "test-key", baseURL: server.URL, client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "পিতার নাম" {
		t.Errorf("unexpected translation %q", result.TranslatedText)
	}
}

func TestSystranService_Translate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := &SystranService{apiKey: "test-key", baseURL: server.URL, client: server.Client()}

	_, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq)
	if Classify(err) != KindUnavailable {
		t.Errorf("expected unavailable, got %v", err)
	}
}

func TestSystranService_IsAvailable(t *testing.T) {
	if err := NewSystranService("").IsAvailable(context.Background()); err == nil {
		t.Error("expected error when no API key")
	}
	if err := NewSystranService("k").IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOllamaTranslator_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "Father Name" {
			t.Errorf("expected raw cell as prompt, got %v", body["prompt"])
		}
		if sys, _ := body["system"].(string); !strings.Contains(sys, "spreadsheet cells") {
			t.Errorf("expected cell system prompt, got %q", sys)
		}
		json.NewEncoder(w).Encode(map[string]any{"response": "অনুবাদ: পিতার নাম"})
	}))
	defer server.Close()

	svc := &OllamaTranslator{baseURL: server.URL, model: "qwen2.5:3b", client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "পিতার নাম" {
		t.Errorf("expected cleaned translation, got %q", result.TranslatedText)
	}
	if result.Metadata["model"] != "qwen2.5:3b" {
		t.Errorf("expected model metadata, got %v", result.Metadata)
	}
}

func TestOllamaTranslator_Translate_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response": "<think>hmm"})
	}))
	defer server.Close()

	svc := &OllamaTranslator{baseURL: server.URL, model: "m", client: server.Client()}

	_, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq)
	if Classify(err) != KindEmpty {
		t.Errorf("expected empty, got %v", err)
	}
}

func TestOllamaTranslator_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	svc := &OllamaTranslator{baseURL: server.URL, client: server.Client()}
	if err := svc.IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOpenRouterService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer or-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"\"জেন\""}}],"usage":{"prompt_tokens":40,"completion_tokens":3}}`))
	}))
	defer server.Close()

	svc := &OpenRouterService{apiKey: "or-key", baseURL: server.URL, models: []string{"m1"}, client: server.Client()}

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Jane"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "জেন" {
		t.Errorf("expected unquoted translation, got %q", result.TranslatedText)
	}
	if result.Metadata["model"] != "m1" || result.Metadata["prompt_tokens"] != "40" {
		t.Errorf("unexpected metadata %v", result.Metadata)
	}
}

func TestOpenRouterService_Translate_RateLimitBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Rate limit exceeded: free-models-per-day"}}`))
	}))
	defer server.Close()

	svc := &OpenRouterService{apiKey: "k", baseURL: server.URL, models: []string{"m"}, client: server.Client()}

	_, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq)
	if Classify(err) != KindRateLimited {
		t.Errorf("expected rate_limited, got %v", err)
	}
}

func TestOpenRouterService_Translate_NoKey(t *testing.T) {
	svc := NewOpenRouterService("", "", nil)
	if _, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq); err == nil {
		t.Error("expected error without API key")
	}
}

func TestOpenAIService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"ঢাকা শহর"},"finish_reason":"stop"}],"usage":{"prompt_tokens":30,"completion_tokens":4,"total_tokens":34}}`))
	}))
	defer server.Close()

	svc := NewOpenAIService("sk-test", server.URL+"/v1", "")

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Dhaka City"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "ঢাকা শহর" {
		t.Errorf("unexpected translation %q", result.TranslatedText)
	}
	if result.Metadata["completion_tokens"] != "4" {
		t.Errorf("unexpected metadata %v", result.Metadata)
	}
}

func TestOpenAIService_Translate_TooManyRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	defer server.Close()

	svc := NewOpenAIService("sk-test", server.URL+"/v1", "")

	_, err := svc.Translate(context.Background(), ServiceConfig{}, cellReq)
	if Classify(err) != KindRateLimited {
		t.Errorf("expected rate_limited, got %v", err)
	}
}

func TestLanguageName(t *testing.T) {
	if got := languageName("en"); got != "English" {
		t.Errorf("expected English, got %q", got)
	}
	if got := languageName("not a tag!"); got != "not a tag!" {
		t.Errorf("expected passthrough, got %q", got)
	}
}
