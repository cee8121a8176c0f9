// Package store persists the per-chat artifacts the pipeline produces: the
// ordered transcript, the synthesized profile and the last-analysis snapshot.
// File layouts match what the presentation layer reads, so changes here are
// wire-format changes.
package store

import "time"

// Kind is the closed set of message payload kinds. The normalizer decides a
// message's kind exactly once; everything downstream switches on it.
type Kind string

const (
	KindText     Kind = "text"
	KindVoice    Kind = "voice"
	KindVideo    Kind = "video"
	KindPhoto    Kind = "photo"
	KindDocument Kind = "document"
)

// Message is the uniform transcript record for one remote message. Text is
// never empty: media without a caption carries a kind-specific placeholder,
// voice carries the transcription once available.
type Message struct {
	MessageID int64     `json:"message_id"`
	From      string    `json:"from"`
	Time      time.Time `json:"time"`
	Kind      Kind      `json:"type"`
	Text      string    `json:"text"`
	File      string    `json:"file,omitempty"`
}

// Profile is the rolling behavioral profile for one chat. TotalMessages only
// grows; Analysis is free-form narrative from the analysis collaborator.
type Profile struct {
	ChatKey       string    `json:"chat_key"`
	CreatedAt     time.Time `json:"created_at"`
	TotalMessages int       `json:"total_messages"`
	Analysis      string    `json:"analysis"`
	LastUpdated   time.Time `json:"last_updated"`
}
