// Package openai is the OpenAI-compatible chat-completions provider for the
// analysis collaborator. Any endpoint speaking the /v1/chat/completions shape
// works (OpenAI, OpenRouter, local gateways).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/FeldmanGot/ai-tg-analiz/internal/retryutil"
	"github.com/FeldmanGot/ai-tg-analiz/llm"
)

const (
	retryAttempts = 3
	retryDelay    = 2 * time.Second
)

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Logger  *slog.Logger
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 90 * time.Second},
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// httpError marks status-coded failures so the retry policy can tell rate
// limits and server hiccups apart from permanent rejections.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.status, e.message)
}

func retryable(err error) bool {
	var he *httpError
	if errors.As(err, &he) {
		return he.status == http.StatusTooManyRequests || he.status >= 500
	}
	// Transport-level failures (timeouts, resets) are worth another try.
	return true
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	start := time.Now()

	var result llm.Result
	err := retryutil.Do(ctx, c.Logger, "openai_chat", retryAttempts, retryDelay, retryable, func(ctx context.Context) error {
		var err error
		result, err = c.chatOnce(ctx, req)
		return err
	})
	if err != nil {
		return llm.Result{}, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (c *Client) chatOnce(ctx context.Context, req llm.Request) (llm.Result, error) {
	body := chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: 0,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return llm.Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return llm.Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return llm.Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Result{}, err
	}

	var out chatCompletionResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := string(raw)
		if json.Unmarshal(raw, &out) == nil && out.Error != nil && out.Error.Message != "" {
			message = out.Error.Message
		}
		return llm.Result{}, &httpError{status: resp.StatusCode, message: message}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.Result{}, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return llm.Result{}, fmt.Errorf("openai: empty choices")
	}

	return llm.Result{
		Text: out.Choices[0].Message.Content,
		Usage: llm.Usage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			TotalTokens:  out.Usage.TotalTokens,
		},
	}, nil
}
