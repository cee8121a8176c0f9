// Package archive implements the conversation ingestion pipeline: message
// normalization, media acquisition, bulk history archiving and the live
// listener, all feeding the profile synthesizer.
package archive

import (
	"context"
	"strings"

	"github.com/FeldmanGot/ai-tg-analiz/remote"
	"github.com/FeldmanGot/ai-tg-analiz/store"
)

const (
	senderSelf    = "me"
	senderUnknown = "Unknown"

	placeholderVoice = "[voice message, not transcribed]"
	placeholderVideo = "[video message]"
	placeholderPhoto = "[photo]"
)

// SenderResolver resolves a sender id to a display name. remote.Client
// satisfies it.
type SenderResolver interface {
	SenderName(ctx context.Context, senderID int64) (string, error)
}

// Normalize converts a raw remote message into the uniform transcript record.
// The payload kind is decided here exactly once, in fixed priority order:
// text wins over any caption-bearing media, then voice, video, photo,
// document. ok=false means the message carries nothing the system models
// (service messages, empty payloads).
//
// Sender lookup failure never fails the message; the sender is recorded as
// "Unknown".
func Normalize(ctx context.Context, raw remote.RawMessage, senders SenderResolver) (store.Message, bool) {
	msg := store.Message{
		MessageID: raw.ID,
		From:      resolveSender(ctx, raw, senders),
		Time:      raw.Date.UTC(),
	}

	switch {
	case strings.TrimSpace(raw.Text) != "":
		msg.Kind = store.KindText
		msg.Text = raw.Text
	case raw.Voice != nil:
		msg.Kind = store.KindVoice
		msg.Text = placeholderVoice
	case raw.Video != nil:
		msg.Kind = store.KindVideo
		msg.Text = captionOr(raw.Video.Caption, placeholderVideo)
	case raw.Photo != nil:
		msg.Kind = store.KindPhoto
		msg.Text = captionOr(raw.Photo.Caption, placeholderPhoto)
	case raw.Document != nil:
		msg.Kind = store.KindDocument
		msg.Text = captionOr(raw.Document.Caption, documentPlaceholder(raw.Document.Name))
	default:
		return store.Message{}, false
	}

	return msg, true
}

func resolveSender(ctx context.Context, raw remote.RawMessage, senders SenderResolver) string {
	if raw.Out {
		return senderSelf
	}
	if raw.SenderID == 0 || senders == nil {
		return senderUnknown
	}
	name, err := senders.SenderName(ctx, raw.SenderID)
	if err != nil || strings.TrimSpace(name) == "" {
		return senderUnknown
	}
	return name
}

func captionOr(caption, placeholder string) string {
	if strings.TrimSpace(caption) != "" {
		return caption
	}
	return placeholder
}

func documentPlaceholder(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "file"
	}
	return "[document: " + name + "]"
}
