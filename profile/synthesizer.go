// Package profile keeps the per-chat behavioral profile fresh: it formats a
// bounded window of recent messages, asks the analysis collaborator for an
// updated narrative and persists the result.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FeldmanGot/ai-tg-analiz/llm"
	"github.com/FeldmanGot/ai-tg-analiz/store"
)

// ErrAnalysis reports a failed analysis call. The previously stored profile
// is left untouched.
var ErrAnalysis = errors.New("profile: analysis failed")

const promptTimeLayout = "2006-01-02 15:04:05"

const systemPrompt = "You analyze private chat conversations and maintain a running profile of the participants. Be concise and factual."

const analysisPromptFormat = `Analyze the conversation and update the participant profile.

Conversation:
%s

Analyze:
1. The topic of the conversation
2. The tone (friendly, formal, emotional)
3. The communication style (terse, verbose, emoji-heavy)
4. The participants' intentions
5. The relationship dynamics

Answer in the format:
Topic: [topic]
Tone: [tone]
Style: [communication style]
Intentions: [what the participants want]
Dynamics: [how the relationship is developing]`

// Synthesizer owns ChatProfile state; everything else reads it from disk.
type Synthesizer struct {
	LLM    llm.Client
	Model  string
	Store  *store.Store
	Logger *slog.Logger
	Now    func() time.Time

	// Timeout bounds a single analysis call. Zero means no bound beyond ctx.
	Timeout time.Duration
}

func NewSynthesizer(client llm.Client, model string, st *store.Store, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		LLM:    client,
		Model:  model,
		Store:  st,
		Logger: logger,
	}
}

// Refresh rebuilds the profile for chatKey from window, using the prior
// profile narrative as context when one exists. total is the cumulative
// transcript size; the persisted count never decreases. On analysis failure
// nothing is written and ErrAnalysis is returned.
func (s *Synthesizer) Refresh(ctx context.Context, chatKey string, window []store.Message, total int) error {
	prior, hasPrior, err := s.Store.LoadProfile(chatKey)
	if err != nil {
		return err
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(analysisPromptFormat, FormatWindow(window, prior.Analysis))
	res, err := s.LLM.Chat(ctx, llm.Request{
		Model: s.Model,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		s.Logger.Error("profile_analysis_failed", "chat_key", chatKey, "error", err.Error())
		return fmt.Errorf("%w: %s: %v", ErrAnalysis, chatKey, err)
	}
	analysis := strings.TrimSpace(res.Text)
	if analysis == "" {
		s.Logger.Error("profile_analysis_empty", "chat_key", chatKey)
		return fmt.Errorf("%w: %s: empty narrative", ErrAnalysis, chatKey)
	}

	now := s.now().UTC()
	next := store.Profile{
		ChatKey:       chatKey,
		CreatedAt:     now,
		TotalMessages: total,
		Analysis:      analysis,
		LastUpdated:   now,
	}
	if hasPrior {
		next.CreatedAt = prior.CreatedAt
		if prior.TotalMessages > next.TotalMessages {
			next.TotalMessages = prior.TotalMessages
		}
	}

	if err := s.Store.SaveProfile(chatKey, next); err != nil {
		return err
	}
	s.Logger.Info("profile_updated", "chat_key", chatKey,
		"total_messages", next.TotalMessages, "window", len(window), "llm_ms", res.Duration.Milliseconds())
	return nil
}

func (s *Synthesizer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FormatWindow renders messages chronologically as "[time] sender: text"
// lines, appending the prior narrative as context when present.
func FormatWindow(window []store.Message, priorAnalysis string) string {
	var b strings.Builder
	for i, msg := range window {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("[")
		b.WriteString(msg.Time.Format(promptTimeLayout))
		b.WriteString("] ")
		b.WriteString(msg.From)
		b.WriteString(": ")
		b.WriteString(msg.Text)
	}
	if strings.TrimSpace(priorAnalysis) != "" {
		b.WriteString("\n\nCurrent profile:\n")
		b.WriteString(priorAnalysis)
	}
	return b.String()
}
