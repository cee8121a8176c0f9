package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/FeldmanGot/ai-tg-analiz/remote"
	"github.com/FeldmanGot/ai-tg-analiz/store"
)

type signalRefresher struct {
	mu      sync.Mutex
	windows []int
	totals  []int
	done    chan struct{}
}

func newSignalRefresher() *signalRefresher {
	return &signalRefresher{done: make(chan struct{}, 16)}
}

func (r *signalRefresher) Refresh(_ context.Context, _ string, window []store.Message, total int) error {
	r.mu.Lock()
	r.windows = append(r.windows, len(window))
	r.totals = append(r.totals, total)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *signalRefresher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for profile refresh")
	}
}

func newListener(client *fakeRemote, st *store.Store, synth Refresher, mediaDir string) *Listener {
	return &Listener{
		Client:   client,
		Store:    st,
		Acquirer: NewAcquirer(mediaDir, client, nil, "ru", nil),
		Synth:    synth,
		Guard:    &fakeGuard{},
		Window:   2,
	}
}

func TestListenerAppendsAndRefreshes(t *testing.T) {
	t.Parallel()
	client := &fakeRemote{
		chat: remote.Chat{ID: 11, Username: "bob"},
		feed: make(chan remote.RawMessage, 8),
	}
	st := newTestStore(t)
	synth := newSignalRefresher()
	l := newListener(client, st, synth, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Listen(ctx, "@bob") }()

	base := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	client.feed <- rawText(1, 0, "one", base)
	synth.wait(t)
	client.feed <- rawText(2, 0, "two", base.Add(time.Minute))
	synth.wait(t)
	client.feed <- rawText(3, 0, "three", base.Add(2*time.Minute))
	synth.wait(t)

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Listen: %v", err)
	}

	transcript, err := st.LoadTranscript("@bob")
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if len(transcript) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(transcript))
	}

	// The third refresh sees the full count but a window capped at 2.
	synth.mu.Lock()
	defer synth.mu.Unlock()
	if got := synth.windows[2]; got != 2 {
		t.Fatalf("window = %d, want 2", got)
	}
	if got := synth.totals[2]; got != 3 {
		t.Fatalf("total = %d, want 3", got)
	}

	if client.lastSub == nil || !client.lastSub.closed {
		t.Fatalf("subscription not released on exit")
	}
}

func TestListenerAppendsReplayedMessages(t *testing.T) {
	t.Parallel()
	client := &fakeRemote{chat: remote.Chat{ID: 12}, feed: make(chan remote.RawMessage, 8)}
	st := newTestStore(t)
	synth := newSignalRefresher()
	l := newListener(client, st, synth, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Listen(ctx, "12") }()

	msg := rawText(7, 0, "again", time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC))
	client.feed <- msg
	synth.wait(t)
	client.feed <- msg
	synth.wait(t)

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Listen: %v", err)
	}

	// The feed is at-least-once; the same source id lands twice.
	transcript, _ := st.LoadTranscript("12")
	if len(transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(transcript))
	}
}

func TestListenerFeedDrop(t *testing.T) {
	t.Parallel()
	feed := make(chan remote.RawMessage)
	close(feed)
	client := &fakeRemote{chat: remote.Chat{ID: 13}, feed: feed}
	l := newListener(client, newTestStore(t), newSignalRefresher(), t.TempDir())

	err := l.Listen(context.Background(), "13")
	if err == nil {
		t.Fatalf("Listen = nil on dropped feed, want error")
	}
	if client.lastSub == nil || !client.lastSub.closed {
		t.Fatalf("subscription not released after drop")
	}
}

func TestListenerResolutionFailure(t *testing.T) {
	t.Parallel()
	client := &fakeRemote{resolveErr: remote.ErrNotFound}
	l := newListener(client, newTestStore(t), newSignalRefresher(), t.TempDir())
	if err := l.Listen(context.Background(), "@missing"); !errors.Is(err, ErrResolution) {
		t.Fatalf("err = %v, want ErrResolution", err)
	}
}
