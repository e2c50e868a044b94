package service

import (
	"context"
	"credlyse_backend/internal/config"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/util"
	"credlyse_backend/pkg/cache"
	"credlyse_backend/pkg/logger"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	MethodTranscript = "openai"
	MethodTitle      = "title"
	MethodCache      = "cache"

	// maxTranscriptChars bounds the prompt size sent to the model.
	maxTranscriptChars = 12000
)

// AnalysisResult is the output of analyzing one video.
type AnalysisResult struct {
	Transcript string
	Quiz       model.QuizData
	Method     string
}

// AnalysisProvider generates a transcript-backed quiz for a video.
type AnalysisProvider interface {
	Analyze(ctx context.Context, youtubeVideoID, title string) (*AnalysisResult, error)
}

// TranscriptStore is a shared transcript tier behind the in-process cache.
type TranscriptStore interface {
	Get(ctx context.Context, youtubeVideoID string) (string, bool, error)
	Set(ctx context.Context, youtubeVideoID, transcript string) error
}

type RedisTranscriptStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s *RedisTranscriptStore) key(id string) string {
	return "transcript:" + id
}

func (s *RedisTranscriptStore) Get(ctx context.Context, id string) (string, bool, error) {
	v, err := s.Client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisTranscriptStore) Set(ctx context.Context, id, transcript string) error {
	return s.Client.Set(ctx, s.key(id), transcript, s.TTL).Err()
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []AIChatMessage   `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	Temperature    float64           `json:"temperature"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type transcriptResponse struct {
	Transcript string `json:"transcript"`
}

// AIService implements AnalysisProvider on an OpenAI-compatible chat API and
// an HTTP transcript source. Transcripts and quizzes are cached per video id.
type AIService struct {
	config      config.AIConfig
	client      *resty.Client
	transcripts *cache.TTLCache[string]
	quizzes     *cache.TTLCache[model.QuizData]
	store       TranscriptStore
}

func NewAIService(cfg config.AIConfig, transcripts *cache.TTLCache[string], quizzes *cache.TTLCache[model.QuizData], store TranscriptStore) *AIService {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &AIService{
		config:      cfg,
		client:      client,
		transcripts: transcripts,
		quizzes:     quizzes,
		store:       store,
	}
}

func (s *AIService) Analyze(ctx context.Context, youtubeVideoID, title string) (*AnalysisResult, error) {
	if quiz, ok := s.quizzes.Get(youtubeVideoID); ok {
		transcript, _ := s.transcripts.Get(youtubeVideoID)
		return &AnalysisResult{Transcript: transcript, Quiz: quiz, Method: MethodCache}, nil
	}

	transcript := s.Transcript(ctx, youtubeVideoID)

	var (
		quiz   *model.QuizData
		method string
		err    error
	)
	if transcript != "" {
		quiz, err = s.GenerateQuiz(ctx, transcriptPrompt(title, transcript, s.questionCount()))
		method = MethodTranscript
	} else {
		quiz, err = s.GenerateQuiz(ctx, titlePrompt(title, s.questionCount()))
		method = MethodTitle
	}
	if err != nil {
		return nil, err
	}

	s.quizzes.Set(youtubeVideoID, *quiz)
	return &AnalysisResult{Transcript: transcript, Quiz: *quiz, Method: method}, nil
}

// Transcript returns the video's transcript, or "" when none is available.
// Fetch failures are logged and treated as a missing transcript.
func (s *AIService) Transcript(ctx context.Context, youtubeVideoID string) string {
	if t, ok := s.transcripts.Get(youtubeVideoID); ok {
		return t
	}

	if s.store != nil {
		t, ok, err := s.store.Get(ctx, youtubeVideoID)
		if err != nil {
			logger.Log.Warn("Transcript store read failed", zap.String("video", youtubeVideoID), zap.Error(err))
		} else if ok {
			s.transcripts.Set(youtubeVideoID, t)
			return t
		}
	}

	t, err := s.fetchTranscript(ctx, youtubeVideoID)
	if err != nil {
		logger.Log.Warn("Transcript unavailable", zap.String("video", youtubeVideoID), zap.Error(err))
		return ""
	}
	if t == "" {
		return ""
	}

	s.transcripts.Set(youtubeVideoID, t)
	if s.store != nil {
		if err := s.store.Set(ctx, youtubeVideoID, t); err != nil {
			logger.Log.Warn("Transcript store write failed", zap.String("video", youtubeVideoID), zap.Error(err))
		}
	}
	return t
}

func (s *AIService) fetchTranscript(ctx context.Context, youtubeVideoID string) (string, error) {
	if s.config.TranscriptURL == "" {
		return "", nil
	}

	var out transcriptResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", youtubeVideoID).
		SetResult(&out).
		Get(strings.TrimRight(s.config.TranscriptURL, "/") + "/{id}")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", nil
	}
	if resp.IsError() {
		return "", fmt.Errorf("transcript source returned %d", resp.StatusCode())
	}
	return strings.TrimSpace(out.Transcript), nil
}

// GenerateQuiz asks the chat model for a quiz as a JSON object.
func (s *AIService) GenerateQuiz(ctx context.Context, prompt string) (*model.QuizData, error) {
	req := ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []AIChatMessage{
			{Role: "system", Content: quizSystemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    0.3,
	}

	var out ChatCompletionResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.config.APIKey).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post(strings.TrimRight(s.config.BaseURL, "/") + "/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %v", util.ErrUpstream, err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if out.Error != nil {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("%w: chat completion returned %d: %s", util.ErrUpstream, resp.StatusCode(), msg)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat completion returned no choices", util.ErrUpstream)
	}

	return ParseQuiz(out.Choices[0].Message.Content)
}

// ParseQuiz decodes the model's JSON reply and drops malformed questions.
func ParseQuiz(content string) (*model.QuizData, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var quiz model.QuizData
	if err := json.Unmarshal([]byte(content), &quiz); err != nil {
		return nil, fmt.Errorf("%w: invalid quiz json: %v", util.ErrUpstream, err)
	}

	valid := quiz.Questions[:0]
	for _, q := range quiz.Questions {
		if q.Question == "" || len(q.Options) < 2 || !containsOption(q.Options, q.Answer) {
			continue
		}
		valid = append(valid, q)
	}
	quiz.Questions = valid
	if len(quiz.Questions) == 0 {
		quiz.HasQuiz = false
		if quiz.Reason == "" {
			quiz.Reason = "No usable questions generated"
		}
	}
	return &quiz, nil
}

func containsOption(options []string, answer string) bool {
	for _, o := range options {
		if answersMatch(o, answer) {
			return true
		}
	}
	return false
}

func (s *AIService) questionCount() int {
	if s.config.QuestionCount <= 0 {
		return 5
	}
	return s.config.QuestionCount
}

const quizSystemPrompt = `You write multiple-choice quizzes for educational videos.
Reply with a JSON object only: {"has_quiz": bool, "reason": string, "questions": [{"question": string, "options": [string], "answer": string}]}.
"answer" must be the exact text of one option. Set has_quiz to false, with a reason, when the content is not educational.`

func transcriptPrompt(title, transcript string, n int) string {
	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars]
	}
	return fmt.Sprintf("Video title: %s\n\nWrite %d questions that test understanding of this transcript:\n\n%s", title, n, transcript)
}

func titlePrompt(title string, n int) string {
	return fmt.Sprintf("No transcript is available. Video title: %s\n\nWrite %d questions on the topic the title describes, or set has_quiz to false if the topic is unclear.", title, n)
}
