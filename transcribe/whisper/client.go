// Package whisper is an HTTP transcription client for Whisper-compatible
// servers exposing the /v1/audio/transcriptions endpoint (OpenAI, whisper.cpp
// server, faster-whisper gateways).
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
}

func New(baseURL, apiKey, model string) *Client {
	if model == "" {
		model = "whisper-1"
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		HTTP:    &http.Client{Timeout: 120 * time.Second},
	}
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Transcribe posts the audio file as multipart form data. A missing base URL
// means no engine is configured; that is reported as ok=false, not an error.
func (c *Client) Transcribe(ctx context.Context, filePath, language string) (string, bool, error) {
	if c.BaseURL == "" {
		return "", false, nil
	}

	audio, err := os.Open(filePath)
	if err != nil {
		return "", false, fmt.Errorf("whisper: open audio: %w", err)
	}
	defer audio.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", false, err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", false, fmt.Errorf("whisper: read audio: %w", err)
	}
	if err := mw.WriteField("model", c.Model); err != nil {
		return "", false, err
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			return "", false, err
		}
	}
	if err := mw.Close(); err != nil {
		return "", false, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", false, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", false, fmt.Errorf("whisper: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("whisper: read response: %w", err)
	}

	var out transcriptionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", false, fmt.Errorf("whisper: decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != nil && out.Error.Message != "" {
			return "", false, fmt.Errorf("whisper http %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", false, fmt.Errorf("whisper http %d: %s", resp.StatusCode, string(raw))
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}
