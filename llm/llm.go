// Package llm defines the analysis collaborator boundary: a synchronous chat
// request that returns a free-form narrative. Providers live under providers/.
package llm

import (
	"context"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

type Request struct {
	Model    string
	Messages []Message
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
