package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FeldmanGot/ai-tg-analiz/remote"
	"github.com/FeldmanGot/ai-tg-analiz/store"
)

const (
	liveProfileWindow     = 30
	defaultRefreshTimeout = 60 * time.Second
)

// Listener subscribes to a chat's new-message feed and pushes every message
// through the same normalize/acquire path as the archiver, appending to the
// persisted transcript and refreshing the profile after each append.
//
// Known gap: replayed messages are appended again; the feed is treated as
// at-least-once and source ids are not deduplicated before appending.
type Listener struct {
	Client   remote.Client
	Store    *store.Store
	Acquirer *Acquirer
	Synth    Refresher
	Guard    Guard
	Logger   *slog.Logger

	// Window bounds the transcript slice handed to the synthesizer.
	Window int
	// RefreshTimeout bounds each synchronous profile refresh so a hanging
	// analysis call cannot stall the feed forever.
	RefreshTimeout time.Duration
}

// Listen blocks until ctx is cancelled or the subscription drops. The
// subscription is released on every exit path. Restarting after a drop is
// the caller's responsibility.
func (l *Listener) Listen(ctx context.Context, chatRef string) error {
	if err := l.Guard.Guard(); err != nil {
		return err
	}
	logger := l.logger().With("chat", chatRef)

	chat, err := l.Client.Resolve(ctx, chatRef)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrResolution, chatRef, err)
	}
	chatKey := chat.Key()
	logger = logger.With("chat_key", chatKey)

	sub, err := l.Client.Subscribe(ctx, chat)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", chatKey, err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			logger.Warn("subscription_close_failed", "error", err.Error())
		}
	}()

	logger.Info("listener_started")
	for {
		raw, err := sub.Recv(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Info("listener_stopped")
				return nil
			}
			logger.Error("listener_feed_dropped", "error", err.Error())
			return fmt.Errorf("live feed for %s: %w", chatKey, err)
		}
		l.handle(ctx, chatKey, raw, logger)
	}
}

func (l *Listener) handle(ctx context.Context, chatKey string, raw remote.RawMessage, logger *slog.Logger) {
	msg, ok := Normalize(ctx, raw, l.Client)
	if !ok {
		return
	}
	if err := l.Acquirer.Acquire(ctx, raw, &msg); err != nil {
		logger.Warn("live_media_skipped", "message_id", raw.ID, "error", err.Error())
	}

	if err := l.Store.AppendMessage(ctx, chatKey, msg); err != nil {
		logger.Error("live_append_failed", "message_id", raw.ID, "error", err.Error())
		return
	}
	logger.Info("live_message", "message_id", raw.ID, "from", msg.From, "kind", string(msg.Kind))

	transcript, err := l.Store.LoadTranscript(chatKey)
	if err != nil {
		logger.Error("live_transcript_read_failed", "error", err.Error())
		return
	}
	window := transcript
	if max := l.window(); len(window) > max {
		window = window[len(window)-max:]
	}

	refreshCtx, cancel := context.WithTimeout(ctx, l.refreshTimeout())
	defer cancel()
	if err := l.Synth.Refresh(refreshCtx, chatKey, window, len(transcript)); err != nil {
		logger.Warn("live_profile_refresh_failed", "error", err.Error())
	}
}

func (l *Listener) window() int {
	if l.Window > 0 {
		return l.Window
	}
	return liveProfileWindow
}

func (l *Listener) refreshTimeout() time.Duration {
	if l.RefreshTimeout > 0 {
		return l.RefreshTimeout
	}
	return defaultRefreshTimeout
}

func (l *Listener) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
