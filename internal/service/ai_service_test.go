package service

import (
	"context"
	"credlyse_backend/internal/config"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/util"
	"credlyse_backend/pkg/cache"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const quizReply = `{"has_quiz": true, "questions": [
	{"question": "What is a goroutine?", "options": ["A thread", "A lightweight thread"], "answer": "A lightweight thread"}
]}`

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memStore) Get(_ context.Context, id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[id]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, id, transcript string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = map[string]string{}
	}
	s.data[id] = transcript
	return nil
}

type aiServer struct {
	transcripts map[string]string
	chatStatus  int
	prompts     []string
	chatCalls   atomic.Int32
	fetchCalls  atomic.Int32
	mu          sync.Mutex
}

func (s *aiServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/transcripts/"):
		s.fetchCalls.Add(1)
		t, ok := s.transcripts[strings.TrimPrefix(r.URL.Path, "/transcripts/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"transcript": t})
	case r.URL.Path == "/v1/chat/completions":
		s.chatCalls.Add(1)
		var req ChatCompletionRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.prompts = append(s.prompts, req.Messages[len(req.Messages)-1].Content)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if s.chatStatus != 0 {
			w.WriteHeader(s.chatStatus)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "overloaded"}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": quizReply}}},
		})
	default:
		http.NotFound(w, r)
	}
}

func newTestAIService(t *testing.T, srv *aiServer, store TranscriptStore) *AIService {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	cfg := config.AIConfig{
		BaseURL:       ts.URL + "/v1",
		APIKey:        "test-key",
		Model:         "gpt-4o-mini",
		TranscriptURL: ts.URL + "/transcripts",
		Timeout:       5 * time.Second,
		QuestionCount: 3,
	}
	return NewAIService(cfg,
		cache.New[string](10, time.Hour),
		cache.New[model.QuizData](10, time.Hour),
		store)
}

func TestAnalyzeUsesTranscriptAndCaches(t *testing.T) {
	srv := &aiServer{transcripts: map[string]string{"vid1": "goroutines are cheap"}}
	store := &memStore{}
	svc := newTestAIService(t, srv, store)
	ctx := context.Background()

	res, err := svc.Analyze(ctx, "vid1", "Concurrency")
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != MethodTranscript || res.Transcript != "goroutines are cheap" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.Quiz.HasQuiz || len(res.Quiz.Questions) != 1 {
		t.Fatalf("quiz: %+v", res.Quiz)
	}
	if !strings.Contains(srv.prompts[0], "goroutines are cheap") {
		t.Fatalf("prompt missing transcript: %q", srv.prompts[0])
	}
	if v, ok, _ := store.Get(ctx, "vid1"); !ok || v != "goroutines are cheap" {
		t.Fatal("transcript not written to the shared store")
	}

	res, err = svc.Analyze(ctx, "vid1", "Concurrency")
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != MethodCache {
		t.Fatalf("second call method=%s", res.Method)
	}
	if srv.chatCalls.Load() != 1 || srv.fetchCalls.Load() != 1 {
		t.Fatalf("chat=%d fetch=%d", srv.chatCalls.Load(), srv.fetchCalls.Load())
	}
}

func TestAnalyzeFallsBackToTitle(t *testing.T) {
	srv := &aiServer{}
	svc := newTestAIService(t, srv, nil)

	res, err := svc.Analyze(context.Background(), "missing", "Channels in Go")
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != MethodTitle || res.Transcript != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(srv.prompts[0], "Channels in Go") {
		t.Fatalf("prompt: %q", srv.prompts[0])
	}
}

func TestTranscriptReadsSharedStore(t *testing.T) {
	srv := &aiServer{}
	store := &memStore{data: map[string]string{"vid9": "from redis"}}
	svc := newTestAIService(t, srv, store)

	if got := svc.Transcript(context.Background(), "vid9"); got != "from redis" {
		t.Fatalf("transcript=%q", got)
	}
	if srv.fetchCalls.Load() != 0 {
		t.Fatal("fetched despite a store hit")
	}
}

func TestGenerateQuizUpstreamFailure(t *testing.T) {
	srv := &aiServer{chatStatus: http.StatusServiceUnavailable}
	svc := newTestAIService(t, srv, nil)

	_, err := svc.Analyze(context.Background(), "vid1", "Anything")
	if !errors.Is(err, util.ErrUpstream) {
		t.Fatalf("want upstream error, got %v", err)
	}
	if !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("error lost upstream message: %v", err)
	}
}

func TestParseQuiz(t *testing.T) {
	content := "```json\n" + `{"has_quiz": true, "questions": [
		{"question": "ok", "options": ["x", "y"], "answer": "y"},
		{"question": "answer not an option", "options": ["x", "y"], "answer": "z"},
		{"question": "", "options": ["x", "y"], "answer": "x"},
		{"question": "one option", "options": ["x"], "answer": "x"}
	]}` + "\n```"

	quiz, err := ParseQuiz(content)
	if err != nil {
		t.Fatal(err)
	}
	if !quiz.HasQuiz || len(quiz.Questions) != 1 || quiz.Questions[0].Question != "ok" {
		t.Fatalf("quiz: %+v", quiz)
	}

	quiz, err = ParseQuiz(`{"has_quiz": true, "questions": []}`)
	if err != nil {
		t.Fatal(err)
	}
	if quiz.HasQuiz || quiz.Reason == "" {
		t.Fatalf("empty quiz should be disabled: %+v", quiz)
	}

	_, err = ParseQuiz("not json")
	if !errors.Is(err, util.ErrUpstream) {
		t.Fatalf("want upstream error, got %v", err)
	}
}
