// Package gemini is the Google Gemini provider for the analysis collaborator.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/FeldmanGot/ai-tg-analiz/llm"
)

type Client struct {
	APIKey string
}

func New(apiKey string) *Client {
	return &Client{APIKey: apiKey}
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	start := time.Now()

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.APIKey))
	if err != nil {
		return llm.Result{}, fmt.Errorf("gemini: create client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)

	var system []string
	var parts []genai.Part
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			system = append(system, msg.Content)
			continue
		}
		parts = append(parts, genai.Text(msg.Content))
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))},
		}
	}
	if len(parts) == 0 {
		return llm.Result{}, fmt.Errorf("gemini: request has no user content")
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return llm.Result{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return llm.Result{}, fmt.Errorf("gemini: empty candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return llm.Result{}, fmt.Errorf("gemini: no text parts in response")
	}

	res := llm.Result{
		Text:     b.String(),
		Duration: time.Since(start),
	}
	if resp.UsageMetadata != nil {
		res.Usage = llm.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return res, nil
}
