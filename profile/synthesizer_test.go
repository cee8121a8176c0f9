package profile

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/FeldmanGot/ai-tg-analiz/llm"
	"github.com/FeldmanGot/ai-tg-analiz/store"
)

type fakeLLM struct {
	text    string
	err     error
	lastReq llm.Request
}

func (f *fakeLLM) Chat(_ context.Context, req llm.Request) (llm.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Text: f.text, Duration: 120 * time.Millisecond}, nil
}

func newTestSynthesizer(t *testing.T, client llm.Client) (*Synthesizer, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st := store.New(dir, dir, dir)
	s := NewSynthesizer(client, "test-model", st, nil)
	s.Now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return s, st
}

func window(texts ...string) []store.Message {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	out := make([]store.Message, len(texts))
	for i, text := range texts {
		out[i] = store.Message{
			MessageID: int64(i + 1),
			From:      "Alice",
			Time:      base.Add(time.Duration(i) * time.Minute),
			Kind:      store.KindText,
			Text:      text,
		}
	}
	return out
}

func TestRefreshWritesProfileAndLastAnalysis(t *testing.T) {
	t.Parallel()
	client := &fakeLLM{text: "Topic: greetings"}
	s, st := newTestSynthesizer(t, client)

	if err := s.Refresh(context.Background(), "@alice", window("hi", "hello"), 2); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	p, ok, err := st.LoadProfile("@alice")
	if err != nil || !ok {
		t.Fatalf("LoadProfile: ok=%v err=%v", ok, err)
	}
	if p.Analysis != "Topic: greetings" {
		t.Fatalf("Analysis = %q", p.Analysis)
	}
	if p.TotalMessages != 2 {
		t.Fatalf("TotalMessages = %d, want 2", p.TotalMessages)
	}
	if !p.CreatedAt.Equal(p.LastUpdated) {
		t.Fatalf("first profile CreatedAt %v != LastUpdated %v", p.CreatedAt, p.LastUpdated)
	}

	raw, err := os.ReadFile(st.LastAnalysisPath("@alice"))
	if err != nil {
		t.Fatalf("read last analysis: %v", err)
	}
	if string(raw) != "Topic: greetings" {
		t.Fatalf("last analysis = %q", raw)
	}
}

func TestRefreshPromptCarriesWindowAndPrior(t *testing.T) {
	t.Parallel()
	client := &fakeLLM{text: "updated"}
	s, st := newTestSynthesizer(t, client)
	if err := st.SaveProfile("@alice", store.Profile{ChatKey: "@alice", Analysis: "old narrative"}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	if err := s.Refresh(context.Background(), "@alice", window("hi"), 1); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if len(client.lastReq.Messages) != 2 || client.lastReq.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", client.lastReq.Messages)
	}
	prompt := client.lastReq.Messages[1].Content
	if !strings.Contains(prompt, "[2026-03-01 09:00:00] Alice: hi") {
		t.Fatalf("prompt missing formatted line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Current profile:\nold narrative") {
		t.Fatalf("prompt missing prior narrative:\n%s", prompt)
	}
}

func TestRefreshPreservesCreatedAtAndMonotonicTotal(t *testing.T) {
	t.Parallel()
	client := &fakeLLM{text: "next"}
	s, st := newTestSynthesizer(t, client)

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prior := store.Profile{ChatKey: "@alice", CreatedAt: created, TotalMessages: 10, Analysis: "old"}
	if err := st.SaveProfile("@alice", prior); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	if err := s.Refresh(context.Background(), "@alice", window("hi"), 5); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	p, _, _ := st.LoadProfile("@alice")
	if !p.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want preserved %v", p.CreatedAt, created)
	}
	if p.TotalMessages != 10 {
		t.Fatalf("TotalMessages = %d, want monotonic 10", p.TotalMessages)
	}
	if p.Analysis != "next" {
		t.Fatalf("Analysis = %q", p.Analysis)
	}
}

func TestRefreshFailureLeavesProfileUntouched(t *testing.T) {
	t.Parallel()
	cases := map[string]*fakeLLM{
		"provider error":  {err: errors.New("429")},
		"empty narrative": {text: "   "},
	}
	for name, client := range cases {
		t.Run(name, func(t *testing.T) {
			s, st := newTestSynthesizer(t, client)
			prior := store.Profile{ChatKey: "@alice", TotalMessages: 3, Analysis: "intact"}
			if err := st.SaveProfile("@alice", prior); err != nil {
				t.Fatalf("seed profile: %v", err)
			}

			err := s.Refresh(context.Background(), "@alice", window("hi"), 4)
			if !errors.Is(err, ErrAnalysis) {
				t.Fatalf("err = %v, want ErrAnalysis", err)
			}

			p, ok, _ := st.LoadProfile("@alice")
			if !ok || p.Analysis != "intact" || p.TotalMessages != 3 {
				t.Fatalf("profile disturbed: %+v", p)
			}
			raw, _ := os.ReadFile(st.LastAnalysisPath("@alice"))
			if string(raw) != "intact" {
				t.Fatalf("last analysis disturbed: %q", raw)
			}
		})
	}
}

func TestFormatWindow(t *testing.T) {
	t.Parallel()
	got := FormatWindow(window("hi", "there"), "")
	want := "[2026-03-01 09:00:00] Alice: hi\n[2026-03-01 09:01:00] Alice: there"
	if got != want {
		t.Fatalf("FormatWindow = %q, want %q", got, want)
	}
}
