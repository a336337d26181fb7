package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LeonardoBeccarini/invernadero/internal/model"
)

type staticReading struct {
	hist []model.SensorReading
	err  error
}

func (s staticReading) FetchLatestReading(context.Context, int64) ([]model.SensorReading, error) {
	return s.hist, s.err
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func fakeOpenAI(t *testing.T, status int, body string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAdvisor(t *testing.T, srv *httptest.Server, src staticReading) *OpenAI {
	t.Helper()
	o, err := NewOpenAI(Config{APIKey: "test", BaseURL: srv.URL + "/", Logger: log.New(io.Discard, "", 0)}, src)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(Config{}, nil); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestQueryAdvisorUsesReadingAsContext(t *testing.T) {
	var req chatRequest
	srv := fakeOpenAI(t, http.StatusOK, completion(`{"consejo":"Abra la ventilación cenital"}`), &req)
	src := staticReading{hist: []model.SensorReading{{Temperature: model.Value("31.2"), Humidity: model.Value("80"), Light: model.Value("900")}}}
	o := newTestAdvisor(t, srv, src)

	ans, err := o.QueryAdvisor(context.Background(), model.AdvisorQuery{Terse: true})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if txt, err := ans.Advice(); err != nil || txt != "Abra la ventilación cenital" {
		t.Fatalf("advice %q %v", txt, err)
	}
	if req.Model != "gpt-4o" || req.ResponseFormat.Type != "json_schema" || len(req.Messages) != 2 {
		t.Fatalf("unexpected request %+v", req)
	}
	sys, user := req.Messages[0].Content, req.Messages[1].Content
	if !strings.Contains(sys, "temperatura 31.2") || !strings.Contains(sys, "luz 900 Lx") || !strings.Contains(sys, terseHint) {
		t.Fatalf("system prompt lacks context: %s", sys)
	}
	if user != generalAsk {
		t.Fatalf("empty question must ask for general status, got %q", user)
	}
}

func TestQueryAdvisorWithoutReading(t *testing.T) {
	var req chatRequest
	srv := fakeOpenAI(t, http.StatusOK, completion(`{"consejo":""}`), &req)
	o := newTestAdvisor(t, srv, staticReading{err: model.ErrRequestFailed})

	ans, err := o.QueryAdvisor(context.Background(), model.AdvisorQuery{Question: "¿Riego hoy?"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if _, err := ans.Advice(); !errors.Is(err, model.ErrMissingField) {
		t.Fatalf("blank advice must be no answer, got %v", err)
	}
	if !strings.Contains(req.Messages[0].Content, "no disponible") || req.Messages[1].Content != "¿Riego hoy?" {
		t.Fatalf("unexpected messages %+v", req.Messages)
	}
}

func TestQueryAdvisorFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusBadRequest, `{"error":{"message":"bad","type":"invalid_request_error"}}`},
		{"not json content", http.StatusOK, completion("ventile")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := fakeOpenAI(t, tc.status, tc.body, nil)
			o := newTestAdvisor(t, srv, staticReading{})
			if _, err := o.QueryAdvisor(context.Background(), model.AdvisorQuery{Question: "x"}); !errors.Is(err, model.ErrRequestFailed) {
				t.Fatalf("expected ErrRequestFailed, got %v", err)
			}
		})
	}
}
