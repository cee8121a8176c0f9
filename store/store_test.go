package store

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir(), t.TempDir(), t.TempDir())
}

func textMessage(id int64, text string) Message {
	return Message{
		MessageID: id,
		From:      "Alice",
		Time:      time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute),
		Kind:      KindText,
		Text:      text,
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	messages := []Message{textMessage(1, "hi"), textMessage(2, "there")}
	if err := s.SaveTranscript("@alice", messages); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	got, err := s.LoadTranscript("@alice")
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if len(got) != 2 || got[0].Text != "hi" || got[1].MessageID != 2 {
		t.Fatalf("got %+v", got)
	}
	if !got[0].Time.Equal(messages[0].Time) {
		t.Fatalf("Time = %v, want %v", got[0].Time, messages[0].Time)
	}
}

func TestLoadTranscriptMissingIsEmpty(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	got, err := s.LoadTranscript("@nobody")
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d messages, want 0", len(got))
	}
}

func TestSaveTranscriptNilBecomesEmptyArray(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	if err := s.SaveTranscript("@alice", nil); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	raw, err := os.ReadFile(s.TranscriptPath("@alice"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	var decoded []Message
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded == nil || len(decoded) != 0 {
		t.Fatalf("decoded = %v, want empty array", decoded)
	}
}

func TestAppendMessage(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	if err := s.AppendMessage(ctx, "@alice", textMessage(1, "hi")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := s.AppendMessage(ctx, "@alice", textMessage(2, "there")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	got, _ := s.LoadTranscript("@alice")
	if len(got) != 2 || got[1].Text != "there" {
		t.Fatalf("got %+v", got)
	}
}

func TestAppendMessageConcurrent(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := s.AppendMessage(ctx, "@alice", textMessage(id, "m")); err != nil {
				t.Errorf("AppendMessage: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	got, err := s.LoadTranscript("@alice")
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if len(got) != writers {
		t.Fatalf("transcript length = %d, want %d", len(got), writers)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	if _, ok, err := s.LoadProfile("@alice"); ok || err != nil {
		t.Fatalf("LoadProfile before save: ok=%v err=%v", ok, err)
	}

	p := Profile{
		ChatKey:       "@alice",
		CreatedAt:     time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
		TotalMessages: 5,
		Analysis:      "Topic: testing",
		LastUpdated:   time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC),
	}
	if err := s.SaveProfile("@alice", p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	got, ok, err := s.LoadProfile("@alice")
	if err != nil || !ok {
		t.Fatalf("LoadProfile: ok=%v err=%v", ok, err)
	}
	if got.Analysis != p.Analysis || got.TotalMessages != 5 {
		t.Fatalf("got %+v", got)
	}

	raw, err := os.ReadFile(s.LastAnalysisPath("@alice"))
	if err != nil {
		t.Fatalf("read last analysis: %v", err)
	}
	if string(raw) != "Topic: testing" {
		t.Fatalf("last analysis = %q", raw)
	}
}

func TestArtifactPaths(t *testing.T) {
	t.Parallel()
	s := New("live", "profiles", "locks")
	if got := s.TranscriptPath("@alice"); got != "live/@alice.json" {
		t.Fatalf("TranscriptPath = %q", got)
	}
	if got := s.ProfilePath("@alice"); got != "profiles/@alice_profile.json" {
		t.Fatalf("ProfilePath = %q", got)
	}
	if got := s.LastAnalysisPath("@alice"); got != "profiles/@alice_last_analysis.txt" {
		t.Fatalf("LastAnalysisPath = %q", got)
	}
}
