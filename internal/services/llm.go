package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"oaforum/internal/apperror"
	"oaforum/internal/config"
	"oaforum/internal/logger"
)

const chatCompletionsPath = "/v1/chat/completions"

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// LLMService OpenAI 兼容的 chat completions 客户端
type LLMService struct {
	baseURL string
	token   string
	model   string
	client  *http.Client
	log     *logger.Logger
}

func NewLLMService(cfg config.LLMConfig, log *logger.Logger) *LLMService {
	s := &LLMService{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:   strings.TrimSpace(cfg.Token),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
	if !s.Enabled() {
		log.Warn("LLMService disabled: missing LLM_BASE_URL or LLM_TOKEN")
	}
	return s
}

func (s *LLMService) Enabled() bool {
	return s != nil && s.baseURL != "" && s.token != ""
}

// Chat 发送对话并返回第一条回复
func (s *LLMService) Chat(ctx context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	if !s.Enabled() {
		return "", apperror.Unavailable("AI service is not configured")
	}

	body, err := json.Marshal(ChatRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
