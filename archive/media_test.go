package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FeldmanGot/ai-tg-analiz/remote"
	"github.com/FeldmanGot/ai-tg-analiz/store"
)

type fakeDownloader struct {
	calls int
	err   error
}

func (f *fakeDownloader) Download(_ context.Context, _ remote.MediaRef, path string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(path, []byte("payload"), 0o600)
}

type fakeTranscriber struct {
	text string
	ok   bool
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, _ string) (string, bool, error) {
	return f.text, f.ok, f.err
}

func voiceMessage(id int64) (remote.RawMessage, store.Message) {
	raw := remote.RawMessage{
		ID:    id,
		Date:  time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Voice: &remote.RawDocument{Ref: "loc"},
	}
	msg := store.Message{
		MessageID: id,
		Time:      raw.Date,
		Kind:      store.KindVoice,
		Text:      "[voice message, not transcribed]",
	}
	return raw, msg
}

func TestAcquireDeterministicNameAndSkip(t *testing.T) {
	t.Parallel()
	dl := &fakeDownloader{}
	a := NewAcquirer(t.TempDir(), dl, nil, "ru", nil)
	raw, msg := voiceMessage(77)

	if err := a.Acquire(context.Background(), raw, &msg); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	want := "voice_2026-01-02_15-04-05_77.ogg"
	if msg.File != want {
		t.Fatalf("File = %q, want %q", msg.File, want)
	}
	if _, err := os.Stat(filepath.Join(a.MediaDir, want)); err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}

	// A second pass over the same message must not download again.
	raw2, msg2 := voiceMessage(77)
	if err := a.Acquire(context.Background(), raw2, &msg2); err != nil {
		t.Fatalf("Acquire (repeat): %v", err)
	}
	if dl.calls != 1 {
		t.Fatalf("downloads = %d, want 1", dl.calls)
	}
	if msg2.File != want {
		t.Fatalf("repeat File = %q, want %q", msg2.File, want)
	}
}

func TestAcquireVoiceTranscription(t *testing.T) {
	t.Parallel()
	a := NewAcquirer(t.TempDir(), &fakeDownloader{}, &fakeTranscriber{text: "hello there", ok: true}, "ru", nil)
	raw, msg := voiceMessage(1)
	if err := a.Acquire(context.Background(), raw, &msg); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if msg.Text != "hello there" {
		t.Fatalf("Text = %q, want transcription", msg.Text)
	}
}

func TestAcquireTranscriptionFailureKeepsPlaceholder(t *testing.T) {
	t.Parallel()
	cases := map[string]*fakeTranscriber{
		"engine error":   {err: errors.New("whisper down")},
		"not configured": {ok: false},
	}
	for name, tr := range cases {
		t.Run(name, func(t *testing.T) {
			a := NewAcquirer(t.TempDir(), &fakeDownloader{}, tr, "ru", nil)
			raw, msg := voiceMessage(2)
			if err := a.Acquire(context.Background(), raw, &msg); err != nil {
				t.Fatalf("Acquire: %v", err)
			}
			if msg.Text != "[voice message, not transcribed]" {
				t.Fatalf("Text = %q, want placeholder", msg.Text)
			}
			if msg.File == "" {
				t.Fatalf("File empty, want downloaded filename")
			}
		})
	}
}

func TestAcquireDownloadFailure(t *testing.T) {
	t.Parallel()
	a := NewAcquirer(t.TempDir(), &fakeDownloader{err: errors.New("timeout")}, nil, "ru", nil)
	raw, msg := voiceMessage(3)
	err := a.Acquire(context.Background(), raw, &msg)
	if !errors.Is(err, ErrMediaDownload) {
		t.Fatalf("err = %v, want ErrMediaDownload", err)
	}
	if msg.File != "" {
		t.Fatalf("File = %q after failed download, want empty", msg.File)
	}
	if msg.Text != "[voice message, not transcribed]" {
		t.Fatalf("Text = %q, want placeholder kept", msg.Text)
	}
}

func TestAcquireTextIsNoop(t *testing.T) {
	t.Parallel()
	dl := &fakeDownloader{}
	a := NewAcquirer(t.TempDir(), dl, nil, "ru", nil)
	msg := store.Message{MessageID: 4, Kind: store.KindText, Text: "hi"}
	if err := a.Acquire(context.Background(), remote.RawMessage{ID: 4, Text: "hi"}, &msg); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if dl.calls != 0 {
		t.Fatalf("downloads = %d for text message, want 0", dl.calls)
	}
}

func TestDocumentExt(t *testing.T) {
	t.Parallel()
	if got := documentExt("Report.PDF"); got != ".pdf" {
		t.Fatalf("documentExt = %q, want .pdf", got)
	}
	if got := documentExt("noext"); got != ".bin" {
		t.Fatalf("documentExt = %q, want .bin", got)
	}
}
