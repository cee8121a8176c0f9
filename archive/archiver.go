package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/FeldmanGot/ai-tg-analiz/remote"
	"github.com/FeldmanGot/ai-tg-analiz/store"
)

const (
	// DefaultLimit bounds a history download when the caller passes none.
	DefaultLimit = 3000

	statusTickEvery      = 10
	progressLogEvery     = 100
	initialProfileWindow = 100
)

// Guard reports whether the account session may touch the message plane.
// *account.Session satisfies it.
type Guard interface {
	Guard() error
}

// Refresher triggers a profile refresh over a bounded message window.
// *profile.Synthesizer satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, chatKey string, window []store.Message, total int) error
}

// Archiver bulk-downloads a chat's backlog, normalizes and acquires every
// message, persists the ordered transcript and seeds the initial profile.
// One Archive call is one long-running job; run it on its own goroutine and
// poll Statuses for progress.
type Archiver struct {
	Client   remote.Client
	Store    *store.Store
	Acquirer *Acquirer
	Synth    Refresher
	Statuses *StatusRegistry
	Guard    Guard
	Logger   *slog.Logger
}

// Archive downloads up to limit messages of chatRef's history. It returns
// the job id; the final outcome lands in the status registry under the chat
// key. An unrecoverable error fails the job and leaves any previously
// persisted transcript untouched.
func (a *Archiver) Archive(ctx context.Context, chatRef string, limit int) (string, error) {
	if err := a.Guard.Guard(); err != nil {
		return "", err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	jobID := uuid.NewString()
	logger := a.logger().With("job_id", jobID, "chat", chatRef)

	chat, err := a.Client.Resolve(ctx, chatRef)
	if err != nil {
		a.Statuses.Set(chatRef, JobStatus{JobID: jobID, State: JobFailed, Error: err.Error()})
		logger.Error("archive_resolution_failed", "error", err.Error())
		return jobID, fmt.Errorf("%w: %s: %v", ErrResolution, chatRef, err)
	}
	chatKey := chat.Key()
	logger = logger.With("chat_key", chatKey)

	// First pass bounds progress reporting before any message is touched.
	total, err := a.Client.HistoryCount(ctx, chat)
	if err != nil {
		a.Statuses.Set(chatKey, JobStatus{JobID: jobID, State: JobFailed, Error: err.Error()})
		return jobID, fmt.Errorf("count history for %s: %w", chatKey, err)
	}
	if total > limit {
		total = limit
	}

	status := JobStatus{
		JobID:    jobID,
		State:    JobRunning,
		Total:    total,
		Counters: make(map[store.Kind]int),
	}
	a.Statuses.Set(chatKey, status)
	logger.Info("archive_started", "total", total, "limit", limit)

	iter, err := a.Client.History(ctx, chat, limit)
	if err != nil {
		status.State = JobFailed
		status.Error = err.Error()
		a.Statuses.Set(chatKey, status)
		return jobID, fmt.Errorf("open history for %s: %w", chatKey, err)
	}

	var messages []store.Message
	for iter.Next(ctx) {
		raw := iter.Value()
		status.Processed++

		msg, ok := Normalize(ctx, raw, a.Client)
		if ok {
			if err := a.Acquirer.Acquire(ctx, raw, &msg); err != nil {
				status.Failures++
			}
			status.Counters[msg.Kind]++
			messages = append(messages, msg)
		}

		if status.Processed%statusTickEvery == 0 {
			a.Statuses.Set(chatKey, status)
		}
		if status.Processed%progressLogEvery == 0 {
			logger.Info("archive_progress", "processed", status.Processed, "total", status.Total)
		}
	}
	if err := iter.Err(); err != nil {
		status.State = JobFailed
		status.Error = err.Error()
		a.Statuses.Set(chatKey, status)
		return jobID, fmt.Errorf("iterate history for %s: %w", chatKey, err)
	}

	messages = sortAndDedup(messages)

	if err := a.Store.SaveTranscript(chatKey, messages); err != nil {
		status.State = JobFailed
		status.Error = err.Error()
		a.Statuses.Set(chatKey, status)
		return jobID, err
	}
	logger.Info("archive_saved", "messages", len(messages))

	if len(messages) > 0 {
		window := messages
		if len(window) > initialProfileWindow {
			window = window[len(window)-initialProfileWindow:]
		}
		if err := a.Synth.Refresh(ctx, chatKey, window, len(messages)); err != nil {
			// Profile synthesis is best effort here; the archive itself
			// succeeded and the next live message retries it.
			logger.Warn("initial_profile_failed", "error", err.Error())
		}
	}

	status.State = JobCompleted
	a.Statuses.Set(chatKey, status)
	logger.Info("archive_completed", "processed", status.Processed, "messages", len(messages))
	return jobID, nil
}

// sortAndDedup enforces the transcript invariants: non-decreasing timestamps
// and unique source message ids (first occurrence wins).
func sortAndDedup(messages []store.Message) []store.Message {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Time.Equal(messages[j].Time) {
			return messages[i].MessageID < messages[j].MessageID
		}
		return messages[i].Time.Before(messages[j].Time)
	})
	seen := make(map[int64]bool, len(messages))
	out := messages[:0]
	for _, msg := range messages {
		if seen[msg.MessageID] {
			continue
		}
		seen[msg.MessageID] = true
		out = append(out, msg)
	}
	return out
}

func (a *Archiver) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
