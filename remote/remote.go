// Package remote is the boundary to the chat platform. The pipeline consumes
// these interfaces only; the MTProto-backed implementation lives in
// remote/mtproto and tests use in-memory fakes.
package remote

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrPasswordNeeded is the distinct second-factor signal: the code was
	// accepted but the account has a cloud password configured.
	ErrPasswordNeeded = errors.New("remote: two-factor password needed")
	// ErrNotFound reports that a chat handle or id cannot be resolved.
	ErrNotFound = errors.New("remote: entity not found")
)

// Chat identifies a resolved conversation.
type Chat struct {
	ID       int64
	Username string
	Title    string
}

// Key derives the stable identifier used to name every persisted artifact of
// this chat: the @handle when there is one, else the title with separators
// flattened, else the numeric id.
func (c Chat) Key() string {
	if u := strings.TrimSpace(c.Username); u != "" {
		return "@" + strings.TrimPrefix(u, "@")
	}
	if t := strings.TrimSpace(c.Title); t != "" {
		r := strings.NewReplacer(" ", "_", "/", "_")
		return r.Replace(t)
	}
	return strconv.FormatInt(c.ID, 10)
}

// MediaRef is an opaque platform handle for a downloadable binary. For the
// MTProto client it wraps a tg.InputFileLocationClass plus size hints.
type MediaRef any

// RawMessage carries one remote message before normalization. At most one of
// the payload facets is consumed; the normalizer picks the winning kind in a
// fixed priority order.
type RawMessage struct {
	ID       int64
	Date     time.Time
	SenderID int64
	Out      bool // sent by the account owner

	Text     string
	Voice    *RawDocument
	Video    *RawDocument
	Photo    *RawPhoto
	Document *RawDocument
}

// RawDocument is a document-backed payload facet (voice note, video, file).
type RawDocument struct {
	Name    string
	Caption string
	Ref     MediaRef
}

// RawPhoto is a photo payload facet.
type RawPhoto struct {
	Caption string
	Ref     MediaRef
}

// Authenticator is the connection and login surface the account session
// drives. Implementations must return ErrPasswordNeeded from SignInCode when
// the account requires a second factor.
type Authenticator interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsAuthorized(ctx context.Context) (bool, error)
	SendCode(ctx context.Context, phone string) (codeHash string, err error)
	SignInCode(ctx context.Context, phone, code, codeHash string) error
	SignInPassword(ctx context.Context, password string) error
}

// Client is the message-plane surface consumed once a session is authorized.
type Client interface {
	// Resolve maps a username-style handle or decimal id onto a Chat.
	Resolve(ctx context.Context, chatRef string) (Chat, error)
	// HistoryCount returns the total number of messages available, capped
	// later by the archive limit.
	HistoryCount(ctx context.Context, chat Chat) (int, error)
	// History iterates up to limit messages in remote chronological order.
	History(ctx context.Context, chat Chat, limit int) (MessageIter, error)
	// Subscribe starts a push feed of new messages for chat. The feed stays
	// open until the subscription is closed or the session drops.
	Subscribe(ctx context.Context, chat Chat) (Subscription, error)
	// SenderName resolves a display name for senderID.
	SenderName(ctx context.Context, senderID int64) (string, error)
	// Download streams the binary behind ref to path.
	Download(ctx context.Context, ref MediaRef, path string) error
}

// MessageIter walks a bounded history listing.
type MessageIter interface {
	Next(ctx context.Context) bool
	Value() RawMessage
	Err() error
}

// Subscription yields live messages until closed. Recv returns the context's
// error on cancellation and a terminal error when the feed drops.
type Subscription interface {
	Recv(ctx context.Context) (RawMessage, error)
	Close() error
}
